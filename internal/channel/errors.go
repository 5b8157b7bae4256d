package channel

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by Open once Close has been called. A closed
	// channel never reconnects; owners create a new Channel instead.
	ErrClosed = errors.New("channel: closed")

	// ErrIdleTimeout is wrapped in a TransportError when no frame arrived
	// within the configured idle timeout.
	ErrIdleTimeout = errors.New("channel: idle timeout")

	// ErrReconnectExhausted is reported when the reconnect policy gives up.
	ErrReconnectExhausted = errors.New("channel: reconnect attempts exhausted")
)

// Websocket close codes. AbnormalClosure and TLSHandshake are never sent on
// the wire; transports report them when the connection dropped without a
// close frame.
const (
	NormalClosure   = 1000
	GoingAway       = 1001
	AbnormalClosure = 1006
	TLSHandshake    = 1015
)

// TransportError is a connection-level failure: a failed dial, a broken read,
// an unclean close or an idle timeout. It triggers the reconnect policy.
type TransportError struct {
	URL string
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("channel: %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// CloseEvent is returned by Conn.ReadMessage when the peer closed the
// connection with a close frame (or the transport synthesized one).
type CloseEvent struct {
	Code   int
	Reason string
}

func (e *CloseEvent) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("connection closed (code %d)", e.Code)
	}
	return fmt.Sprintf("connection closed (code %d): %s", e.Code, e.Reason)
}

// Clean reports whether the peer completed the close handshake. Any code
// carried by a close frame counts, including GoingAway and error codes.
func (e *CloseEvent) Clean() bool {
	return e.Code != AbnormalClosure && e.Code != TLSHandshake
}
