// Package peer wires the listener, tracker client, mining loop and
// front-end-facing HTTP surface around a foundation/blockchain/state.State,
// the peer binary's top-level assembly, per §2.E's package layout.
package peer

import (
	"context"
	"net"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/songledger/songledger/app/services/peer/handlers/v1"
	"github.com/songledger/songledger/foundation/blockchain/state"
	"github.com/songledger/songledger/foundation/events"
	"github.com/songledger/songledger/foundation/web"
)

// Peer bundles every long-lived collaborator a running peer process
// needs: its orchestrator, its mesh client/listener, and its
// front-end-facing HTTP server.
type Peer struct {
	log     *zap.SugaredLogger
	cfg     Config
	state   *state.State
	client  *Client
	listen  *Listener
	evts    *events.Events
	journal *Journal
	server  *http.Server
}

// New assembles a Peer from cfg, resolving the self address if the
// operator didn't pin one explicitly.
func New(log *zap.SugaredLogger, cfg Config) (*Peer, error) {
	selfAddr := cfg.Self.Addr
	if selfAddr == "" {
		resolved, err := resolveSelfAddr()
		if err != nil {
			return nil, err
		}
		selfAddr = resolved
	}

	client := NewClient(cfg.Tracker.Addr)
	evts := events.New()

	st := state.New(state.Config{
		SelfAddr:    selfAddr,
		Log:         log,
		Broadcaster: client,
		Events:      evts,
	})

	journal, err := NewJournal(cfg.Persist.LogDir, selfAddr)
	if err != nil {
		return nil, err
	}

	app := web.NewApp(make(chan os.Signal, 1))
	v1.Routes(app, v1.Config{Log: log, State: st, Evts: evts})

	return &Peer{
		log:     log,
		cfg:     cfg,
		state:   st,
		client:  client,
		listen:  NewListener(log, st, journal),
		evts:    evts,
		journal: journal,
		server:  &http.Server{Addr: cfg.Web.APIListenAddr, Handler: app},
	}, nil
}

// Run starts every worker (mesh listener, heartbeat, mining, optional
// synthetic transaction generator, HTTP API) and blocks until ctx is
// cancelled, at which point it leaves the network and shuts the HTTP
// server down.
func (p *Peer) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- p.listen.Serve(ctx, p.cfg.Mesh.ListenAddr)
	}()

	// Give the listener a moment to bind before the tracker's first
	// PEER_LIST: broadcast can possibly reach us, mirroring the
	// original's fixed startup pause.
	time.Sleep(800 * time.Millisecond)

	p.state.Join()
	if err := p.client.JoinTracker(); err != nil {
		p.log.Infow("join: tracker unreachable, will retry via heartbeat", "error", err)
	}

	go heartbeatLoop(ctx, p.log, p.state, p.client)
	go miningLoop(ctx, p.log, p.state)
	if p.cfg.Synthetic.Enabled {
		go syntheticTxLoop(ctx, p.log, p.state, p.cfg.Songs.Dir)
	}

	go func() {
		p.log.Infow("startup", "api_addr", p.cfg.Web.APIListenAddr)
		if err := p.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			p.log.Errorw("api server failed", "error", err)
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			p.log.Errorw("mesh listener failed", "error", err)
		}
	}

	p.state.Leave()
	if err := p.client.LeaveTracker(); err != nil {
		p.log.Infow("leave: tracker unreachable", "error", err)
	}
	if err := p.journal.WriteBlockchain(p.state.ChainBlocks()); err != nil {
		p.log.Infow("leave: blockchain log write failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return p.server.Shutdown(shutdownCtx)
}

// resolveSelfAddr looks up the local hostname's first address, mirroring
// the original's socket.gethostbyname(socket.gethostname()).
func resolveSelfAddr() (string, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return "", err
	}
	addrs, err := net.LookupHost(hostname)
	if err != nil || len(addrs) == 0 {
		return "", err
	}
	return addrs[0], nil
}
