package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stockbot/internal/eventbus"
	"stockbot/internal/monitor"
	"stockbot/internal/notifier"
	"stockbot/internal/storage"
	logx "stockbot/pkg/logx"
)

const journalWriteTimeout = 2 * time.Second

// journalEntry maps a bus event to an audit record. Cycle events are not journaled.
func journalEntry(e eventbus.Event) (storage.Entry, bool) {
	en := storage.Entry{At: e.Time, Kind: e.Type}
	switch d := e.Data.(type) {
	case monitor.CommandEvent:
		en.Subject = d.Command
		en.ChatID = int64(d.From)
		en.Detail = strings.Join(d.Args, " ")
		if d.Error != "" {
			en.Detail = strings.TrimSpace(en.Detail + " error=" + d.Error)
		}
	case monitor.StockEvent:
		en.Subject = d.ID
		en.Detail = fmt.Sprintf("qty=%s notified=%t", d.Quantity, d.Notified)
	case notifier.FailureEvent:
		en.ChatID = int64(d.To)
		en.Detail = d.Error
	default:
		return storage.Entry{}, false
	}
	return en, true
}

// runJournal writes journaled events to the store until ctx is canceled.
func runJournal(ctx context.Context, bus eventbus.Bus, store storage.Store, log logx.Logger) {
	events, unsub := bus.Subscribe(128)
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if log.Enabled(logx.LevelDebug) {
				log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time), logx.Any("data", e.Data))
			}
			en, ok := journalEntry(e)
			if !ok {
				continue
			}
			wctx, cancel := context.WithTimeout(ctx, journalWriteTimeout)
			if err := store.Append(wctx, en); err != nil {
				log.Warn("journal append failed", logx.String("kind", en.Kind), logx.Err(err))
			}
			cancel()
		}
	}
}
