// Package web provides the thin httptreemux-based application wrapper
// every handler in app/services/peer is registered against: request
// tracing, JSON decode/respond helpers, and a uniform error-to-response
// translation.
package web

import (
	"context"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/dimfeld/httptreemux/v5"
	"github.com/google/uuid"

	v1 "github.com/songledger/songledger/business/web/v1"
)

// Handler is the signature every application handler implements,
// returning an error instead of writing failures directly so a single
// place (App.Handle's wrapper) can translate it into a response.
type Handler func(ctx context.Context, w http.ResponseWriter, r *http.Request) error

// Middleware wraps a Handler with cross-cutting behavior (logging,
// error translation, panic recovery).
type Middleware func(Handler) Handler

// App is a thin wrapper around httptreemux.ContextMux, adding support
// for Middleware and the Handler signature above.
type App struct {
	mux      *httptreemux.ContextMux
	shutdown chan os.Signal
	mw       []Middleware
}

// NewApp creates an App value that handles a set of routes for the
// application, wrapping every registered handler in mw, applied
// outermost-first.
func NewApp(shutdown chan os.Signal, mw ...Middleware) *App {
	return &App{
		mux:      httptreemux.NewContextMux(),
		shutdown: shutdown,
		mw:       mw,
	}
}

// SignalShutdown is used to gracefully shut down the app when an
// integrity issue is identified (see NewShutdownError).
func (a *App) SignalShutdown() {
	a.shutdown <- syscall.SIGTERM
}

// Handle associates a handler function with an HTTP method and a given
// path pattern under the supplied version. It wraps the specific
// handler with any specified application-wide middleware.
func (a *App) Handle(method string, version string, path string, handler Handler, mw ...Middleware) {
	handler = wrapMiddleware(mw, handler)
	handler = wrapMiddleware(a.mw, handler)

	h := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		v := Values{
			TraceID: uuid.NewString(),
			Now:     time.Now(),
		}
		ctx = context.WithValue(ctx, key, &v)

		if err := handler(ctx, w, r); err != nil {
			if IsShutdown(err) {
				a.SignalShutdown()
				return
			}
			respondError(ctx, w, err)
		}
	}

	finalPath := path
	if version != "" {
		finalPath = "/" + version + path
	}
	a.mux.Handle(method, finalPath, h)
}

// ServeHTTP implements http.Handler, delegating to the underlying mux.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

// wrapMiddleware creates a new handler by wrapping middleware around a
// final handler. The middlewares are executed in the order they are
// passed to wrapMiddleware, outermost first.
func wrapMiddleware(mw []Middleware, handler Handler) Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		if mw[i] != nil {
			handler = mw[i](handler)
		}
	}
	return handler
}

// respondError translates a Handler's returned error into an HTTP
// response: a *v1.RequestError carries its own status and (optionally)
// field errors; anything else is an unhandled error and reported as a
// 500 without leaking its text to the client.
func respondError(ctx context.Context, w http.ResponseWriter, err error) {
	var reqErr *v1.RequestError
	if ok := asRequestError(err, &reqErr); ok {
		if reqErr.Fields != nil {
			_ = Respond(ctx, w, reqErr.Fields, reqErr.Status)
			return
		}
		_ = Respond(ctx, w, struct {
			Error string `json:"error"`
		}{Error: reqErr.Error()}, reqErr.Status)
		return
	}

	_ = Respond(ctx, w, struct {
		Error string `json:"error"`
	}{Error: "internal server error"}, http.StatusInternalServerError)
}

func asRequestError(err error, target **v1.RequestError) bool {
	if re, ok := err.(*v1.RequestError); ok {
		*target = re
		return true
	}
	return false
}
