package storage

import (
	"context"
	"fmt"
	"strings"

	logx "stockbot/pkg/logx"
)

// Open initializes the configured store. A disabled journal is a no-op Store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	switch driver := strings.ToLower(strings.TrimSpace(cfg.Driver)); driver {
	case "", "none":
		return Nop{}, nil
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", driver)
	}
}

// Nop discards everything.
type Nop struct{}

func (Nop) Append(context.Context, Entry) error          { return nil }
func (Nop) Recent(context.Context, int) ([]Entry, error) { return nil, nil }
func (Nop) Close() error                                 { return nil }
