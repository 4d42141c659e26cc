package remote

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports a module the peer does not share, or an empty Proxy.
	ErrNotFound = errors.New("remote module not found")
	// ErrConnection is wrapped by every ConnectionError.
	ErrConnection = errors.New("connection failed")
	// ErrTimedOut reports a connect or request that outlived its deadline.
	ErrTimedOut = errors.New("remote operation timed out")
	// ErrAlreadyRunning is returned when starting a server that is already serving.
	ErrAlreadyRunning = errors.New("module server already running")
	// ErrInvalidURL reports a module URL that is not scheme://host:port/name.
	ErrInvalidURL = errors.New("invalid module url")
	// ErrClosed is returned by requests on a closed connection.
	ErrClosed = errors.New("connection closed")
)

// ConnectionError is returned when a peer cannot be reached or refuses the
// connection.
type ConnectionError struct {
	Host string
	Port uint16
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect to %s:%d: %v", e.Host, e.Port, e.Err)
}

// Unwrap exposes both ErrConnection and the underlying cause to errors.Is.
func (e *ConnectionError) Unwrap() []error {
	return []error{ErrConnection, e.Err}
}

// CallError carries an error message returned by the peer's method.
type CallError struct {
	Module  string
	Method  string
	Message string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("remote %s.%s: %s", e.Module, e.Method, e.Message)
}
