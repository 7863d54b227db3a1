// Package outbound defines the transport-neutral outbound action
// contract between the conversation engine and the messaging transport.
package outbound

import "context"

// Button is one inline choice button. Data carries the callback payload
// in the `namespace:value` grammar and must round-trip unchanged.
type Button struct {
	Text string
	Data string
}

// Message is a single outbound action payload.
type Message struct {
	Text     string
	Keyboard [][]Button
	Markdown bool
}

// MessageRef identifies a previously sent message for edit-in-place.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Zero reports whether the ref identifies no message.
func (r MessageRef) Zero() bool { return r.MessageID == 0 }

// Sender delivers outbound actions. Implementations must be safe for
// concurrent use by different sessions.
type Sender interface {
	// Send delivers a new message and returns its handle.
	Send(ctx context.Context, chatID int64, msg Message) (MessageRef, error)
	// Edit replaces the text and keyboard of an existing message.
	Edit(ctx context.Context, ref MessageRef, msg Message) error
	// SendPhoto delivers a PNG image with an optional caption.
	SendPhoto(ctx context.Context, chatID int64, png []byte, caption string) error
}
