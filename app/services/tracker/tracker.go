// Package tracker implements the rendezvous service: an in-memory
// membership directory with keepalive eviction and peer-list fan-out,
// per §4.6.
package tracker

import (
	"context"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/songledger/songledger/foundation/blockchain/peerset"
	"github.com/songledger/songledger/foundation/blockchain/wire"
)

// sweepInterval is how often the eviction sweep runs.
const sweepInterval = 10 * time.Second

// staleAfter is how long a peer may go without a JOIN/KEEPALIVE before
// the sweeper evicts it.
const staleAfter = 20 * time.Second

// peerListenPort is the fixed port every peer's listener binds, the
// destination the tracker dials to deliver PEER_LIST: broadcasts.
const peerListenPort = "54321"

// Tracker is the rendezvous service's membership directory, guarded by
// a single mutex per §5's "the tracker uses a single mutex around its
// peers map".
type Tracker struct {
	log *zap.SugaredLogger

	mu       sync.Mutex
	peers    *peerset.PeerSet // insertion order: a new joiner is always last, a contract state.HandlePeerList relies on
	lastSeen map[string]time.Time
}

// New constructs an empty Tracker.
func New(log *zap.SugaredLogger) *Tracker {
	return &Tracker{
		log:      log,
		peers:    peerset.New(),
		lastSeen: make(map[string]time.Time),
	}
}

// Join registers addr (inserting or refreshing it) and broadcasts the
// full membership list to every known peer. A newly joined peer is
// always appended, never reordered ahead of an existing one, matching
// the peer-list reconciliation heuristic's "new address is last"
// assumption.
func (t *Tracker) Join(addr string) {
	t.mu.Lock()
	t.peers.Add(addr)
	t.lastSeen[addr] = time.Now()
	t.mu.Unlock()

	t.log.Infow("tracker: join", "addr", addr)
	t.broadcastPeers()
}

// Keepalive refreshes addr's last-seen time without broadcasting.
func (t *Tracker) Keepalive(addr string) {
	t.mu.Lock()
	known := t.peers.Contains(addr)
	t.peers.Add(addr)
	t.lastSeen[addr] = time.Now()
	t.mu.Unlock()

	if !known {
		t.log.Infow("tracker: keepalive from unregistered peer, re-adding", "addr", addr)
	}
}

// Leave removes addr and broadcasts the updated list.
func (t *Tracker) Leave(addr string) {
	t.mu.Lock()
	t.peers.Remove(addr)
	delete(t.lastSeen, addr)
	t.mu.Unlock()

	t.log.Infow("tracker: leave", "addr", addr)
	t.broadcastPeers()
}

// Peers returns a snapshot of the known peer addresses, in join order.
func (t *Tracker) Peers() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.peers.Addrs()
}

// broadcastPeers sends PEER_LIST:<list> to every known peer on a fresh
// connection to its listener port. Send failures are logged and
// swallowed: broadcast amplification at spec scale is cheap enough
// that a single flaky peer shouldn't interrupt the others.
func (t *Tracker) broadcastPeers() {
	peers := t.Peers()
	body := pythonRepr(peers)
	payload := wire.Encode(wire.KindPeerList, body)

	for _, addr := range peers {
		if err := t.send(addr, payload); err != nil {
			t.log.Infow("tracker: broadcast failed", "addr", addr, "error", err)
		}
	}
}

// send dials addr's peer listener, writes one framed message, and
// closes — the one-shot connection convention used throughout §4.4.
func (t *Tracker) send(addr, payload string) error {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(addr, peerListenPort), 5*time.Second)
	if err != nil {
		return err
	}
	defer conn.Close()

	return wire.WriteFramed(conn, payload)
}

// Sweep runs the 10s-interval eviction loop until ctx is cancelled,
// evicting any peer whose last-seen exceeds staleAfter and broadcasting
// after each eviction, matching the original's per-removal broadcast.
func (t *Tracker) Sweep(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.sweepOnce()
		}
	}
}

func (t *Tracker) sweepOnce() {
	now := time.Now()

	t.mu.Lock()
	var stale []string
	for addr, lastSeen := range t.lastSeen {
		if now.Sub(lastSeen) > staleAfter {
			stale = append(stale, addr)
		}
	}
	t.mu.Unlock()

	for _, addr := range stale {
		t.log.Infow("tracker: evicting stale peer", "addr", addr)
		t.Leave(addr)
	}
}

// Listen accepts connections on addr until ctx is cancelled, handling
// each as a single unframed tracker message (JOIN/KEEPALIVE/LEAVE).
func (t *Tracker) Listen(ctx context.Context, addr string) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				t.log.Infow("tracker: accept error", "error", err)
				continue
			}
		}
		go t.handleConn(conn)
	}
}

func (t *Tracker) handleConn(conn net.Conn) {
	defer conn.Close()

	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		host = conn.RemoteAddr().String()
	}

	data, err := io.ReadAll(conn)
	if err != nil && len(data) == 0 {
		return
	}

	msg := strings.TrimSpace(string(data))
	switch {
	case strings.HasPrefix(msg, wire.TrackerJoin):
		t.Join(host)
	case strings.HasPrefix(msg, wire.TrackerKeepalive):
		t.Keepalive(host)
	case strings.HasPrefix(msg, wire.TrackerLeave):
		t.Leave(host)
	default:
		t.log.Infow("tracker: unrecognized message", "addr", host, "message", msg)
	}
}

// pythonRepr renders a list of strings the way the original tracker's
// str(list(...)) does, since peers parse this textual shape on the
// other end (see wire package's parsePeerList-equivalent in the state
// package).
func pythonRepr(items []string) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, item := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('\'')
		b.WriteString(item)
		b.WriteByte('\'')
	}
	b.WriteByte(']')
	return b.String()
}
