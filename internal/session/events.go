package session

import "context"

// EventKind discriminates lifecycle events reported by a Link.
type EventKind int

const (
	// EventQR carries a fresh linking payload. Backends may rotate the
	// payload, so several EventQR events per handshake are normal.
	EventQR EventKind = iota + 1

	// EventReady signals the link is authenticated and can send.
	EventReady

	// EventAuthFailure signals authentication was rejected or revoked.
	EventAuthFailure

	// EventDisconnected signals the link dropped and will not recover on
	// its own. A fresh initialize is required.
	EventDisconnected
)

func (k EventKind) String() string {
	switch k {
	case EventQR:
		return "qr"
	case EventReady:
		return "ready"
	case EventAuthFailure:
		return "auth_failure"
	case EventDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Event is a lifecycle notification produced by a Link.
type Event struct {
	Kind EventKind

	// Code is the linking payload; set only for EventQR.
	Code string

	// Err is the underlying cause for EventAuthFailure and
	// EventDisconnected. It is logged, never shown to users.
	Err error
}

// Backend opens links to the messaging service.
type Backend interface {
	// Open performs the connection part of the handshake and returns a
	// Link whose event channel reports the rest (QR, ready, failures).
	Open(ctx context.Context) (Link, error)
}

// Link is a single session with the messaging service, live from Open
// until Close or a terminal event.
type Link interface {
	// Events returns the lifecycle event channel for this link. The
	// channel is closed when the link shuts down.
	Events() <-chan Event

	// SendText delivers a plain text message to one recipient, given as
	// the digits of a phone number.
	SendText(ctx context.Context, recipient, body string) error

	// Close tears the link down without unlinking the device.
	Close() error
}

// Sink receives the user-facing lifecycle notifications the Manager
// chooses to publish. Implementations must not block.
type Sink interface {
	// QR publishes a linking payload for rendering.
	QR(code string)

	// Ready publishes that the session can now send messages.
	Ready()

	// AuthFailure publishes a user-safe failure message.
	AuthFailure(message string)
}

// Sinks fans lifecycle notifications out to every given sink, in order.
func Sinks(sinks ...Sink) Sink {
	return multiSink(sinks)
}

type multiSink []Sink

func (m multiSink) QR(code string) {
	for _, s := range m {
		s.QR(code)
	}
}

func (m multiSink) Ready() {
	for _, s := range m {
		s.Ready()
	}
}

func (m multiSink) AuthFailure(message string) {
	for _, s := range m {
		s.AuthFailure(message)
	}
}

type noopSink struct{}

func (noopSink) QR(string)          {}
func (noopSink) Ready()             {}
func (noopSink) AuthFailure(string) {}
