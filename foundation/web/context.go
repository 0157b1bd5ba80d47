package web

import (
	"context"
	"errors"
	"time"
)

// ctxKey is a private type so keys from this package never collide
// with keys defined elsewhere.
type ctxKey int

const key ctxKey = 1

// Values carries request-scoped information set by App.Handle and read
// by every handler via GetValues.
type Values struct {
	TraceID    string
	Now        time.Time
	StatusCode int
}

// GetValues returns the values stashed in ctx by App.Handle.
func GetValues(ctx context.Context) (*Values, error) {
	v, ok := ctx.Value(key).(*Values)
	if !ok {
		return nil, errors.New("web value missing from context")
	}
	return v, nil
}

// GetTraceID returns the trace id from the context, or "00000000-0000-0000-0000-000000000000" if none is present.
func GetTraceID(ctx context.Context) string {
	v, ok := ctx.Value(key).(*Values)
	if !ok {
		return "00000000-0000-0000-0000-000000000000"
	}
	return v.TraceID
}

// setStatusCode records the status code ultimately written, so logging
// middleware higher up the stack can report it.
func setStatusCode(ctx context.Context, statusCode int) {
	if v, ok := ctx.Value(key).(*Values); ok {
		v.StatusCode = statusCode
	}
}
