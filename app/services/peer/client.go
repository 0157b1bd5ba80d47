package peer

import (
	"net"
	"time"

	"github.com/songledger/songledger/foundation/blockchain/database"
	"github.com/songledger/songledger/foundation/blockchain/wire"
)

// meshPort is the fixed port every peer listens for mesh traffic on,
// per §6's external interface definition.
const meshPort = "54321"

const dialTimeout = 5 * time.Second

// Client is the outbound half of the peer mesh and the tracker
// rendezvous protocol: it implements state.Broadcaster by dialing a
// fresh one-shot TCP connection per send, and separately exposes
// JoinTracker/Keepalive/LeaveTracker for the tracker's plain-UTF-8
// protocol.
type Client struct {
	trackerAddr string
}

// NewClient constructs a Client that dials trackerAddr for rendezvous
// traffic.
func NewClient(trackerAddr string) *Client {
	return &Client{trackerAddr: trackerAddr}
}

// SendBlock implements state.Broadcaster.
func (c *Client) SendBlock(addr string, block database.Block) error {
	data, err := block.Serialize()
	if err != nil {
		return err
	}
	return c.sendMesh(addr, wire.Encode(wire.KindNewBlock, data))
}

// SendTransaction implements state.Broadcaster.
func (c *Client) SendTransaction(addr string, tx database.Transaction) error {
	data, err := tx.Serialize()
	if err != nil {
		return err
	}
	return c.sendMesh(addr, wire.Encode(wire.KindTransaction, data))
}

// SendChainDump implements state.Broadcaster. kind is expected to be
// wire.KindReceiveBC or wire.KindReqChange, the two chain-dump-carrying
// message kinds.
func (c *Client) SendChainDump(addr string, kind wire.Kind, blocks []database.Block) error {
	serialized := make([]string, len(blocks))
	for i, b := range blocks {
		s, err := b.Serialize()
		if err != nil {
			return err
		}
		serialized[i] = s
	}
	return c.sendMesh(addr, wire.Encode(kind, wire.JoinChainDump(serialized)))
}

// RequestChain implements state.Broadcaster.
func (c *Client) RequestChain(addr string) error {
	return c.sendMesh(addr, wire.Encode(wire.KindRequestBC, ""))
}

// sendMesh dials addr's mesh listener and writes one length-prefixed
// message, closing the connection immediately after — the one-shot
// connection convention every mesh message uses per §4.4.
func (c *Client) sendMesh(addr, payload string) error {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(addr, meshPort), dialTimeout)
	if err != nil {
		return err
	}
	defer conn.Close()
	return wire.WriteFramed(conn, payload)
}

// JoinTracker sends JOIN to the tracker. The tracker replies
// asymmetrically, by dialing this peer's own mesh listener with
// PEER_LIST:, so JoinTracker itself has nothing to read back.
func (c *Client) JoinTracker() error {
	return c.sendTracker(wire.TrackerJoin)
}

// Keepalive sends KEEPALIVE to the tracker, the heartbeat loop's only
// job every 5 seconds.
func (c *Client) Keepalive() error {
	return c.sendTracker(wire.TrackerKeepalive)
}

// LeaveTracker sends LEAVE to the tracker as the peer exits.
func (c *Client) LeaveTracker() error {
	return c.sendTracker(wire.TrackerLeave)
}

func (c *Client) sendTracker(message string) error {
	conn, err := net.DialTimeout("tcp", c.trackerAddr, dialTimeout)
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = conn.Write([]byte(message))
	return err
}
