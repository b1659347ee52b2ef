// Package storage is the append-only audit journal.
//
// The journal records what the bot did (commands applied, alerts sent,
// failed deliveries). It is never read back into runtime state.
package storage

import (
	"context"
	"time"
)

// Config configures the journal.
//
// Driver values:
//   - "none" or "": disabled
//   - "file": JSON Lines file at Path
//   - "sqlite": SQLite database at Path
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Entry is one journal record. Keep it compact and schema-stable.
type Entry struct {
	At time.Time `json:"at"`
	// Kind is the event type, e.g. "command.applied" or "stock.in".
	Kind string `json:"kind"`
	// Subject is the product id or command word.
	Subject string `json:"subject,omitempty"`
	// ChatID is the command sender or failed recipient, 0 if not applicable.
	ChatID int64  `json:"chat_id,omitempty"`
	Detail string `json:"detail,omitempty"`
}

type Store interface {
	Append(ctx context.Context, e Entry) error
	// Recent returns up to n of the latest entries, oldest first.
	Recent(ctx context.Context, n int) ([]Entry, error)
	Close() error
}
