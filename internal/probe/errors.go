package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
)

// Kind classifies why a probe failed.
type Kind string

const (
	// KindConnection: endpoint unreachable, refused, or unresolvable.
	KindConnection Kind = "connection"
	// KindTimeout: no response within the deadline.
	KindTimeout Kind = "timeout"
	// KindProtocol: endpoint reachable but the response was malformed,
	// unexpected, or unauthorized.
	KindProtocol Kind = "protocol"
)

// Error is the tagged failure of a single probe attempt.
type Error struct {
	Kind     Kind
	Endpoint string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Endpoint, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Classify wraps a transport error for endpoint, distinguishing timeouts
// from connection failures. Protocol errors are constructed directly at the
// parse site, never here.
func Classify(endpoint string, err error) *Error {
	kind := KindConnection

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		kind = KindTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = KindTimeout
	}
	return &Error{Kind: kind, Endpoint: endpoint, Err: err}
}

func protocolErr(endpoint, format string, args ...any) *Error {
	return &Error{Kind: KindProtocol, Endpoint: endpoint, Err: fmt.Errorf(format, args...)}
}
