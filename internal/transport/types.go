package transport

import (
	"context"
	"errors"
	"strconv"
)

// ErrTransport marks a failed call to the messaging backend (network, timeout, API error).
var ErrTransport = errors.New("transport error")

// ChatID identifies a notification recipient / command sender.
type ChatID int64

func (c ChatID) String() string { return strconv.FormatInt(int64(c), 10) }

// ParseChatID parses a decimal chat id.
func ParseChatID(s string) (ChatID, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return ChatID(v), nil
}

// Inbound is a single message received from the messaging backend.
//
// Cursor is assigned by the backend and strictly increases across the stream.
// Text may be empty (stickers, photos, service messages); such entries still
// carry a cursor so the consumer can move past them.
type Inbound struct {
	Cursor   int64
	From     ChatID
	Username string
	Text     string
}

// Messenger is the chat backend used for both notifications and control commands.
type Messenger interface {
	// Send delivers text to one recipient. Silent suppresses the end-user notification sound.
	Send(ctx context.Context, to ChatID, text string, silent bool) error

	// PollInboundSince returns messages with a cursor greater than *cursor
	// (all pending messages when cursor is nil), ordered by cursor.
	PollInboundSince(ctx context.Context, cursor *int64) ([]Inbound, error)
}
