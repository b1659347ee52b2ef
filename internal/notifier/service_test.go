package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"stockbot/internal/eventbus"
	"stockbot/internal/transport"
	logx "stockbot/pkg/logx"
)

type sent struct {
	to     transport.ChatID
	text   string
	silent bool
}

type fakeMessenger struct {
	mu    sync.Mutex
	fail  map[transport.ChatID]error
	block map[transport.ChatID]bool
	sent  []sent
}

func (f *fakeMessenger) Send(ctx context.Context, to transport.ChatID, text string, silent bool) error {
	if f.block[to] {
		<-ctx.Done()
		return ctx.Err()
	}
	if err := f.fail[to]; err != nil {
		return err
	}
	f.mu.Lock()
	f.sent = append(f.sent, sent{to, text, silent})
	f.mu.Unlock()
	return nil
}

func (f *fakeMessenger) PollInboundSince(context.Context, *int64) ([]transport.Inbound, error) {
	return nil, nil
}

type staticAudience []transport.ChatID

func (a staticAudience) Subscribers() []transport.ChatID { return a }

func TestBroadcastContinuesPastFailures(t *testing.T) {
	t.Parallel()
	m := &fakeMessenger{
		fail:  map[transport.ChatID]error{2: errors.New("chat not found")},
		block: map[transport.ChatID]bool{3: true},
	}
	bus := eventbus.New()
	events, unsub := bus.Subscribe(8)
	defer unsub()

	svc := New(Config{RatePerSec: 1000, SendTimeout: 20 * time.Millisecond}, m, staticAudience{1, 2, 3, 4}, bus, logx.Nop())
	d := svc.Broadcast(context.Background(), "hello", true)

	if d.Sent != 2 || d.Failed != 2 {
		t.Fatalf("delivery = %+v, want 2 sent / 2 failed", d)
	}
	if len(m.sent) != 2 || m.sent[0].to != 1 || m.sent[1].to != 4 {
		t.Fatalf("sent = %+v", m.sent)
	}
	if !m.sent[0].silent || m.sent[0].text != "hello" {
		t.Fatalf("unexpected payload %+v", m.sent[0])
	}
	if len(events) != 2 {
		t.Fatalf("failure events = %d, want 2", len(events))
	}
	e := <-events
	if e.Type != eventbus.TypeDeliveryFailed {
		t.Fatalf("event type = %s", e.Type)
	}
	if fe, ok := e.Data.(FailureEvent); !ok || fe.To != 2 {
		t.Fatalf("event data = %+v", e.Data)
	}
}

func TestSendToWrapsErrDelivery(t *testing.T) {
	t.Parallel()
	m := &fakeMessenger{fail: map[transport.ChatID]error{7: errors.New("forbidden")}}
	svc := New(Config{}, m, staticAudience{}, nil, logx.Nop())
	if err := svc.SendTo(context.Background(), 7, "x", false); !errors.Is(err, ErrDelivery) {
		t.Fatalf("err = %v, want ErrDelivery", err)
	}
	if err := svc.SendTo(context.Background(), 8, "x", false); err != nil {
		t.Fatalf("SendTo: %v", err)
	}
}

func TestBroadcastNoSubscribers(t *testing.T) {
	t.Parallel()
	svc := New(Config{}, &fakeMessenger{}, staticAudience{}, nil, logx.Nop())
	if d := svc.Broadcast(context.Background(), "x", false); d != (Delivery{}) {
		t.Fatalf("delivery = %+v", d)
	}
}
