// Package v1 contains the front-end-facing HTTP surface: song
// registration/transfer submission, a chain-tail read, and a websocket
// for new-block notifications, per §4.5.E.
package v1

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	v1 "github.com/songledger/songledger/business/web/v1"
	"github.com/songledger/songledger/foundation/blockchain/database"
	"github.com/songledger/songledger/foundation/blockchain/hashutil"
	"github.com/songledger/songledger/foundation/blockchain/state"
	"github.com/songledger/songledger/foundation/events"
	"github.com/songledger/songledger/foundation/web"
)

const version = "v1"

// Config bundles the collaborators the handlers need.
type Config struct {
	Log   *zap.SugaredLogger
	State *state.State
	Evts  *events.Events
}

// Routes binds every version 1 route to app.
func Routes(app *web.App, cfg Config) {
	h := Handlers{
		Log:   cfg.Log,
		State: cfg.State,
		Evts:  cfg.Evts,
		WS:    websocket.Upgrader{},
	}

	app.Handle(http.MethodPost, version, "/songs/register", h.SubmitRegister)
	app.Handle(http.MethodPost, version, "/songs/transfer", h.SubmitTransfer)
	app.Handle(http.MethodGet, version, "/chain/tail", h.ChainTail)
	app.Handle(http.MethodGet, version, "/events", h.Events)
}

// Handlers groups the front-end-facing endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	Evts  *events.Events
	WS    websocket.Upgrader
}

// registerRequest is the body of POST /v1/songs/register.
type registerRequest struct {
	UserName  string `json:"user_name" validate:"required"`
	SongName  string `json:"song_name" validate:"required"`
	SongPath  string `json:"song_path" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

// SubmitRegister validates and pools a Register transaction. The checks
// here (required fields) are the only ones made; the mining step does
// not re-validate the transaction.
func (h Handlers) SubmitRegister(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req registerRequest
	if err := web.Decode(r, &req); err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}
	if err := v1.Check(req); err != nil {
		if fields, ok := err.(v1.FieldErrors); ok {
			return v1.NewRequestErrorFromFields(fields)
		}
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	songHash := hashutil.HashFile(req.SongPath)
	tx := database.NewRegister(req.UserName, req.SongName, songHash, req.Signature)

	if err := h.State.SubmitTransaction(tx); err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	h.Log.Infow("submit register", "traceid", web.GetTraceID(ctx), "user", req.UserName, "song", req.SongName)

	return web.Respond(ctx, w, tx, http.StatusAccepted)
}

// transferRequest is the body of POST /v1/songs/transfer.
type transferRequest struct {
	Owner     string `json:"owner" validate:"required"`
	SongName  string `json:"song_name" validate:"required"`
	Recipient string `json:"recipient" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

// SubmitTransfer validates ownership against the local chain for
// song_name. It is the only ownership check: the mining step does not
// re-check ownership against the chain at mining time.
func (h Handlers) SubmitTransfer(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req transferRequest
	if err := web.Decode(r, &req); err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}
	if err := v1.Check(req); err != nil {
		if fields, ok := err.(v1.FieldErrors); ok {
			return v1.NewRequestErrorFromFields(fields)
		}
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	if owner, ok := currentOwner(h.State, req.SongName); ok && owner != req.Owner {
		return v1.NewRequestError(errNotOwner, http.StatusBadRequest)
	}

	songHash := songHashFor(h.State, req.SongName)
	tx := database.NewTransfer(req.Owner, req.SongName, songHash, req.Recipient, req.Signature)

	if err := h.State.SubmitTransaction(tx); err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	h.Log.Infow("submit transfer", "traceid", web.GetTraceID(ctx), "owner", req.Owner, "song", req.SongName, "recipient", req.Recipient)

	return web.Respond(ctx, w, tx, http.StatusAccepted)
}

const defaultTailCount = 10

// ChainTail returns the last n blocks (default 10), matching the
// original's truncate-to-10 log convention.
func (h Handlers) ChainTail(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	n := defaultTailCount
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return v1.NewRequestError(errBadCount, http.StatusBadRequest)
		}
		n = parsed
	}

	blocks := h.State.ChainBlocks()
	if n > len(blocks) {
		n = len(blocks)
	}
	tail := blocks[len(blocks)-n:]

	return web.Respond(ctx, w, tail, http.StatusOK)
}

// Events upgrades the connection to a websocket and streams one JSON
// line per locally-accepted block, fed by foundation/events, mirroring
// the teacher's commented-out Events handler.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		h.Log.Warnw("events: websocket upgrade failed", "error", err)
		return nil
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, open := <-ch:
			if !open {
				return nil
			}
			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}
