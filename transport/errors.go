package transport

import (
	"errors"
	"fmt"
)

// ErrRemoteNotFound marks a remote file or directory that does not exist on
// the controller.
var ErrRemoteNotFound = errors.New("transport: remote file not found")

// ConnectError reports that no configured credential produced an
// authenticated session.
type ConnectError struct {
	Host   string
	Causes []error
}

func (e *ConnectError) Error() string {
	if len(e.Causes) == 1 {
		return fmt.Sprintf("transport: connect %s: %v", e.Host, e.Causes[0])
	}
	return fmt.Sprintf("transport: connect %s: all %d credentials failed", e.Host, len(e.Causes))
}

// Unwrap exposes one cause per attempted credential, in configuration order.
func (e *ConnectError) Unwrap() []error {
	return e.Causes
}

// ParseError reports a directory listing line that does not match the
// expected seven-token shape.
type ParseError struct {
	Line   int
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("transport: listing line %d %q: %s", e.Line, e.Text, e.Reason)
}
