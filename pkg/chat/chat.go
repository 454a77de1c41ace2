// Package chat defines the messaging gateway the raid engine talks to and the
// chat-neutral types (message references, inline keyboards) that travel through it.
package chat

import "context"

// MessageRef identifies a message previously sent to a chat. The zero value means
// "no message".
type MessageRef int

// IsZero reports whether the reference points at no message.
func (r MessageRef) IsZero() bool {
	return r == 0
}

// Button is a single inline control. Exactly one of Data or URL is set: Data is
// routed back to the bot when pressed, URL opens an external link.
type Button struct {
	Text string
	Data string
	URL  string
}

// Keyboard is a grid of inline buttons, one slice per row.
type Keyboard [][]Button

// Message is the payload sent or edited through a Gateway. Text uses the
// lightweight Markdown subset (bold and links) unless Plain is set.
type Message struct {
	Text     string
	Keyboard Keyboard
	Plain    bool
}

// Gateway is the chat platform contract consumed by the raid engine and the
// control surface. Implementations must be safe for concurrent use.
type Gateway interface {
	// Send posts a new message and returns its reference.
	Send(ctx context.Context, chatID int64, msg Message) (MessageRef, error)
	// Edit replaces the text and controls of an existing message.
	Edit(ctx context.Context, chatID int64, ref MessageRef, msg Message) error
	// Delete removes a message. Deleting a zero reference succeeds without a call.
	Delete(ctx context.Context, chatID int64, ref MessageRef) error
	// AnswerInteraction acknowledges a button press, optionally with a notice.
	AnswerInteraction(ctx context.Context, interactionID string, text string, alert bool) error
}
