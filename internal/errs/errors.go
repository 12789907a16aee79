// Package errs holds the failure taxonomy of the engine. Every error returned
// by a round trip is one of these, a filter error, or a context error.
package errs

import (
	"errors"
	"fmt"
	"net"
)

var (
	// ErrTransport is matched by every *TransportError.
	ErrTransport = errors.New("transport failure")
	// ErrProtocol is matched by every *ProtocolError.
	ErrProtocol = errors.New("protocol violation")
	// ErrRedirectLimit is matched by every *RedirectLimitError.
	ErrRedirectLimit = errors.New("redirect limit exceeded")
)

// TransportError reports a connection level failure: refused, reset, timed
// out or closed by the peer. The connection it happened on is always
// invalidated.
type TransportError struct {
	Op   string // "dial", "resolve", "write", "read"
	Addr string
	// Reused is set when the connection came out of the idle pool.
	Reused bool
	// ResponseStarted is set once at least one byte of the response was read.
	ResponseStarted bool
	Err             error
}

func (e *TransportError) Error() string {
	if e.Addr == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// Timeout reports whether the failure was a deadline being exceeded.
func (e *TransportError) Timeout() bool {
	var ne net.Error
	if errors.As(e.Err, &ne) {
		return ne.Timeout()
	}
	return false
}

// ProtocolError reports malformed framing: status line, header or chunk.
// It is fatal for the request and never retried.
type ProtocolError struct {
	Msg string
	Err error
}

func (e *ProtocolError) Error() string {
	if e.Err == nil {
		return "malformed HTTP response: " + e.Msg
	}
	return fmt.Sprintf("malformed HTTP response: %s: %v", e.Msg, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

func (e *ProtocolError) Is(target error) bool { return target == ErrProtocol }

// Protocol is a shorthand for &ProtocolError{Msg: msg}.
func Protocol(msg string) error {
	return &ProtocolError{Msg: msg}
}

// RedirectLimitError is returned when following Location headers would exceed
// the configured depth.
type RedirectLimitError struct {
	Max int
	URL string // the location that was not followed
}

func (e *RedirectLimitError) Error() string {
	return fmt.Sprintf("stopped after %d redirects, next location %q", e.Max, e.URL)
}

func (e *RedirectLimitError) Is(target error) bool { return target == ErrRedirectLimit }
