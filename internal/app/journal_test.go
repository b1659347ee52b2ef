package app

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"stockbot/internal/config"
	"stockbot/internal/eventbus"
	"stockbot/internal/monitor"
	"stockbot/internal/notifier"
	"stockbot/internal/storage"
	logx "stockbot/pkg/logx"
)

func TestJournalEntry(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		ev   eventbus.Event
		want storage.Entry
		ok   bool
	}{
		{
			name: "command",
			ev:   eventbus.Event{Type: eventbus.TypeCommandApplied, Data: monitor.CommandEvent{Command: "/setinterval", Args: []string{"0"}, From: 7, Error: "invalid interval"}},
			want: storage.Entry{Kind: eventbus.TypeCommandApplied, Subject: "/setinterval", ChatID: 7, Detail: "0 error=invalid interval"},
			ok:   true,
		},
		{
			name: "stock",
			ev:   eventbus.Event{Type: eventbus.TypeStockIn, Data: monitor.StockEvent{ID: "milk", Quantity: "3", InStock: true, Notified: true}},
			want: storage.Entry{Kind: eventbus.TypeStockIn, Subject: "milk", Detail: "qty=3 notified=true"},
			ok:   true,
		},
		{
			name: "delivery failure",
			ev:   eventbus.Event{Type: eventbus.TypeDeliveryFailed, Data: notifier.FailureEvent{To: 9, Error: "blocked"}},
			want: storage.Entry{Kind: eventbus.TypeDeliveryFailed, ChatID: 9, Detail: "blocked"},
			ok:   true,
		},
		{
			name: "cycle",
			ev:   eventbus.Event{Type: eventbus.TypeCycleDone, Data: 12},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := journalEntry(tc.ev)
			if ok != tc.ok || got != tc.want {
				t.Fatalf("journalEntry = %+v, %v; want %+v, %v", got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestRunJournalWritesEvents(t *testing.T) {
	t.Parallel()
	store, err := storage.Open(storage.Config{Driver: "file", Path: filepath.Join(t.TempDir(), "journal.jsonl")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	bus := eventbus.New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		runJournal(ctx, bus, store, logx.Nop())
	}()

	deadline := time.Now().Add(2 * time.Second)
	var got []storage.Entry
	for time.Now().Before(deadline) {
		bus.Publish(eventbus.Event{Type: eventbus.TypeStockOut, Data: monitor.StockEvent{ID: "curd", Quantity: "0"}})
		time.Sleep(20 * time.Millisecond)
		if got, _ = store.Recent(context.Background(), 1); len(got) == 1 {
			break
		}
	}
	cancel()
	<-done

	if len(got) != 1 || got[0].Subject != "curd" || got[0].Kind != eventbus.TypeStockOut {
		t.Fatalf("journal = %+v", got)
	}
}

func TestMapSettings(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{}
	cfg.Telegram.ChatIDs = []int64{1, 2}
	cfg.Monitor.RefreshInterval = 20
	cfg.Monitor.StartPaused = true

	s := mapSettings(cfg)
	if s.Monitoring || s.RefreshInterval != 20 || len(s.Subscribers) != 2 || s.Subscribers[1] != 2 {
		t.Fatalf("settings = %+v", s)
	}

	cfg.Logging.Telegram.Enabled = true
	if mapLogConfig(cfg).Chat.Enabled {
		t.Fatal("chat log sink needs a log chat id")
	}
	cfg.Telegram.LogChatID = -100
	if !mapLogConfig(cfg).Chat.Enabled {
		t.Fatal("chat log sink should be enabled")
	}
}

func TestMenuCommandsListedInControls(t *testing.T) {
	t.Parallel()
	for _, c := range menuCommands {
		if !strings.Contains(monitor.ControlsText, "/"+c.Name+" ") {
			t.Errorf("controls text does not list /%s", c.Name)
		}
	}
}
