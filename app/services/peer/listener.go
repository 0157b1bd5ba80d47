package peer

import (
	"context"
	"net"

	"go.uber.org/zap"

	"github.com/songledger/songledger/foundation/blockchain/state"
	"github.com/songledger/songledger/foundation/blockchain/wire"
)

// Listener accepts mesh connections and dispatches each one-shot
// framed message to the orchestrator, per §4.4/§5's listener accept
// loop, spawning a per-connection handler.
type Listener struct {
	log     *zap.SugaredLogger
	state   *state.State
	journal *Journal
}

// NewListener constructs a Listener bound to st. journal may be nil, in
// which case peer-list changes are simply not logged to disk.
func NewListener(log *zap.SugaredLogger, st *state.State, journal *Journal) *Listener {
	return &Listener{log: log, state: st, journal: journal}
}

// Serve accepts connections on addr until ctx is cancelled.
func (l *Listener) Serve(ctx context.Context, addr string) error {
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
				l.log.Infow("mesh: accept error", "error", err)
				continue
			}
		}
		go l.handleConn(conn)
	}
}

func (l *Listener) handleConn(conn net.Conn) {
	defer conn.Close()

	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		host = conn.RemoteAddr().String()
	}

	payload, err := wire.ReadFramed(conn)
	if err != nil {
		l.log.Infow("mesh: read error", "addr", host, "error", err)
		return
	}

	kind, _ := wire.Parse(payload)
	l.state.Dispatch(host, payload)

	if kind == wire.KindPeerList && l.journal != nil {
		if err := l.journal.AppendPeerList(l.state.Peers()); err != nil {
			l.log.Infow("mesh: peer-list log write failed", "error", err)
		}
	}
}
