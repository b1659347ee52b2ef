package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"stockbot/internal/transport"
)

func TestWriterLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, "info").With(String("comp", "test"))
	log.Debug("hidden")
	log.Info("hello", Int("n", 3), Err(errors.New("boom")), Err(nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("lines = %q", lines)
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["message"] != "hello" || m["comp"] != "test" || m["n"] != float64(3) || m["err"] != "boom" {
		t.Fatalf("entry = %v", m)
	}
	if c, _ := m["caller"].(string); !strings.HasPrefix(c, "logging_test.go:") {
		t.Fatalf("caller = %v", m["caller"])
	}
}

func TestZeroLoggerIsSafe(t *testing.T) {
	t.Parallel()
	var l Logger
	if !l.IsZero() {
		t.Fatal("zero logger should report IsZero")
	}
	l.Info("nothing happens", String("k", "v"))
	if Nop().IsZero() {
		t.Fatal("Nop is not the zero logger")
	}
}

func TestFormatChatLine(t *testing.T) {
	t.Parallel()
	got := formatChatLine([]byte(`{"level":"warn","time":"x","message":"feed refresh failed","comp":"monitor","err":"timeout"}` + "\n"))
	want := "[WARN] feed refresh failed\n- comp=monitor\n- err=timeout"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if got := formatChatLine([]byte("not json")); got != "not json" {
		t.Fatalf("got %q", got)
	}
	if got := truncate(strings.Repeat("a", 50), 20); len(got) != 20 || !strings.HasSuffix(got, "...") {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate(strings.Repeat("é", 20), 16); !utf8.ValidString(got) || got != strings.Repeat("é", 6)+"..." {
		t.Fatalf("truncate split a rune: %q", got)
	}
}

type recSender struct {
	mu   sync.Mutex
	sent []string
	to   []transport.ChatID
}

func (r *recSender) Send(_ context.Context, to transport.ChatID, text string, _ bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, text)
	r.to = append(r.to, to)
	return nil
}

func (r *recSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func TestChatSinkForwardsAtMinLevel(t *testing.T) {
	t.Parallel()
	s := &recSender{}
	svc, log := New(Config{Level: "debug", Chat: ChatConfig{Enabled: true, MinLevel: "warn", RatePerSec: 100}}, s)
	defer svc.Close()
	svc.SetChatTarget(-100)

	log.Info("not forwarded")
	log.Warn("forwarded", String("id", "milk"))

	deadline := time.Now().Add(2 * time.Second)
	for s.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) != 1 || s.to[0] != -100 || !strings.HasPrefix(s.sent[0], "[WARN] forwarded") {
		t.Fatalf("sent = %q to %v", s.sent, s.to)
	}
}
