package web

// shutdownError is a type used to help with the graceful termination of
// the service. A handler that returns one of these signals that the
// integrity of the process can no longer be trusted and the app should
// stop accepting new work.
type shutdownError struct {
	Message string
}

// NewShutdownError returns an error that causes the framework to signal
// a graceful shutdown.
func NewShutdownError(message string) error {
	return &shutdownError{message}
}

// Error implements the error interface.
func (se *shutdownError) Error() string {
	return se.Message
}

// IsShutdown checks to see if the shutdown flag has been set.
func IsShutdown(err error) bool {
	_, ok := err.(*shutdownError)
	return ok
}
