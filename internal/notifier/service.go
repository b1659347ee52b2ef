// Package notifier fans chat notifications out to the current subscribers.
//
// Delivery is best effort: each recipient is tried once, failures are logged and
// published on the event bus, and never block the remaining recipients.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"stockbot/internal/eventbus"
	"stockbot/internal/transport"
	logx "stockbot/pkg/logx"
)

// ErrDelivery wraps a failed send to a single recipient.
var ErrDelivery = errors.New("delivery failed")

type Config struct {
	// RatePerSec paces outbound sends across all recipients (Telegram allows ~30/s per bot).
	RatePerSec int
	// SendTimeout bounds each individual send.
	SendTimeout time.Duration
}

// Audience returns a snapshot of the current recipients.
type Audience interface {
	Subscribers() []transport.ChatID
}

// Delivery summarizes one broadcast.
type Delivery struct {
	Sent   int
	Failed int
}

// FailureEvent is published on the bus for every failed send.
type FailureEvent struct {
	To    transport.ChatID `json:"to"`
	Text  string           `json:"text"`
	Error string           `json:"error"`
}

type Service struct {
	cfg      Config
	msg      transport.Messenger
	audience Audience
	bus      eventbus.Bus
	log      logx.Logger
	limiter  *rate.Limiter
}

func New(cfg Config, msg transport.Messenger, audience Audience, bus eventbus.Bus, log logx.Logger) *Service {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 20
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if bus == nil {
		bus = eventbus.Nop{}
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:      cfg,
		msg:      msg,
		audience: audience,
		bus:      bus,
		log:      log,
		// Token bucket: burst = rate per sec, so short spikes don't block too hard.
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
	}
}

// Broadcast sends text to every current subscriber, one at a time.
func (s *Service) Broadcast(ctx context.Context, text string, silent bool) Delivery {
	var d Delivery
	for _, to := range s.audience.Subscribers() {
		if err := s.SendTo(ctx, to, text, silent); err != nil {
			d.Failed++
			continue
		}
		d.Sent++
	}
	return d
}

// SendTo sends text to a single recipient. Failures are logged and published;
// the returned error wraps ErrDelivery.
func (s *Service) SendTo(ctx context.Context, to transport.ChatID, text string, silent bool) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return s.failed(to, text, err)
	}
	cctx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
	err := s.msg.Send(cctx, to, text, silent)
	cancel()
	if err != nil {
		return s.failed(to, text, err)
	}
	return nil
}

func (s *Service) failed(to transport.ChatID, text string, err error) error {
	s.log.Warn("notification not delivered", logx.String("to", to.String()), logx.Err(err))
	s.bus.Publish(eventbus.Event{
		Type: eventbus.TypeDeliveryFailed,
		Data: FailureEvent{To: to, Text: text, Error: err.Error()},
	})
	return fmt.Errorf("%w: %s: %v", ErrDelivery, to, err)
}
