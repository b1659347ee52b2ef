package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"stockbot/internal/catalog"
	"stockbot/internal/eventbus"
	"stockbot/internal/feed"
	logx "stockbot/pkg/logx"
)

// previewBytes bounds the raw payload logged when decoding fails.
const previewBytes = 200

type LoopConfig struct {
	Tracked  []string
	StoreURL string
	// IdleTick is how often a paused loop re-checks the monitoring flag.
	IdleTick time.Duration
	// SettleDelay is waited after asking the feed to refresh.
	SettleDelay time.Duration
	Location    *time.Location
}

// StockEvent is published for every matched product.
type StockEvent struct {
	Cycle    string `json:"cycle"`
	ID       string `json:"id"`
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
	InStock  bool   `json:"in_stock"`
	Notified bool   `json:"notified"`
}

// CycleResult describes one monitoring cycle.
type CycleResult struct {
	// ID correlates the cycle's log lines and events.
	ID       string
	Products int
	Matches  []catalog.Match
	Missing  []string
	// DataAge is how old the snapshot was, when the source reports capture times.
	DataAge   time.Duration
	FeedErr   error
	DecodeErr error
}

// Loop is the monitoring loop. Run must only be called once; the dedup set is owned by it.
type Loop struct {
	cfg    LoopConfig
	rt     *Runtime
	src    feed.Source
	notify Notifier
	bus    eventbus.Bus
	log    logx.Logger

	dedup catalog.DedupSet
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewLoop(cfg LoopConfig, rt *Runtime, src feed.Source, n Notifier, bus eventbus.Bus, log logx.Logger) *Loop {
	if cfg.IdleTick <= 0 {
		cfg.IdleTick = 2 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if bus == nil {
		bus = eventbus.Nop{}
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Loop{
		cfg:    cfg,
		rt:     rt,
		src:    src,
		notify: n,
		bus:    bus,
		log:    log,
		dedup:  catalog.NewDedupSet(),
		now:    time.Now,
		sleep:  sleep,
	}
}

// Run loops until ctx is canceled. Paused ticks skip the fetch entirely.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if !l.rt.Monitoring() {
			if l.sleep(ctx, l.cfg.IdleTick) != nil {
				return nil
			}
			continue
		}

		l.RunCycle(ctx)

		wait := l.rt.Interval()
		l.log.Info("waiting before next refresh", logx.Duration("interval", wait))
		if l.sleep(ctx, wait) != nil {
			return nil
		}
		l.EndCycle(ctx)
		if l.sleep(ctx, l.cfg.SettleDelay) != nil {
			return nil
		}
	}
}

// RunCycle performs one fetch/decode/match/alert pass.
func (l *Loop) RunCycle(ctx context.Context) CycleResult {
	res := CycleResult{ID: uuid.NewString()}
	log := l.log.With(logx.String("cycle", res.ID))

	l.notify.Broadcast(ctx, checkingText(l.now().In(l.cfg.Location)), true)

	var products []catalog.Product
	raw, err := l.src.Snapshot(ctx)
	if err != nil {
		res.FeedErr = err
		log.Warn("feed snapshot failed", logx.Err(err))
	} else {
		if aged, ok := l.src.(feed.Aged); ok {
			if at := aged.CapturedAt(); !at.IsZero() {
				res.DataAge = l.now().Sub(at)
			}
		}
		products, err = catalog.Decode(raw)
		if err != nil {
			res.DecodeErr = err
			fields := []logx.Field{logx.Err(err)}
			var de *catalog.DecodeError
			if errors.As(err, &de) {
				fields = append(fields, logx.String("preview", de.Preview(previewBytes)))
			}
			log.Error("catalog decode failed", fields...)
			products = nil
		}
	}
	res.Products = len(products)

	if len(products) == 0 {
		if res.FeedErr == nil && res.DecodeErr == nil {
			log.Warn("no product data found")
		}
		l.bus.Publish(eventbus.Event{Type: eventbus.TypeCycleDone, Data: res})
		return res
	}

	rep := catalog.MatchTracked(products, l.cfg.Tracked, l.dedup)
	res.Matches = rep.Matches
	res.Missing = rep.Missing
	for _, id := range rep.Missing {
		log.Warn("tracked product not found in data", logx.String("id", id))
	}

	for _, m := range rep.Matches {
		ev := StockEvent{Cycle: res.ID, ID: m.ID, Name: m.Name, Quantity: m.Available.Quantity(), InStock: m.Available.InStock()}
		if ev.InStock {
			text := inStockText(m, ProductURL(l.cfg.StoreURL, m.ID))
			log.Info("product in stock", logx.String("id", m.ID), logx.String("qty", ev.Quantity))
			l.notify.Broadcast(ctx, text, false)
			ev.Notified = true
			l.bus.Publish(eventbus.Event{Type: eventbus.TypeStockIn, Data: ev})
			continue
		}
		log.Info("product out of stock", logx.String("id", m.ID), logx.String("qty", ev.Quantity))
		if l.rt.OutOfStockAlerts() {
			l.notify.Broadcast(ctx, outOfStockText(m), true)
			ev.Notified = true
		}
		l.bus.Publish(eventbus.Event{Type: eventbus.TypeStockOut, Data: ev})
	}

	log.Info("catalog refreshed",
		logx.Int("products", res.Products),
		logx.Int("matched", len(res.Matches)),
		logx.Duration("data_age", res.DataAge),
	)
	l.bus.Publish(eventbus.Event{Type: eventbus.TypeCycleDone, Data: res})
	return res
}

// EndCycle clears the per-cycle dedup set and asks the feed for fresh data.
func (l *Loop) EndCycle(ctx context.Context) {
	l.dedup.Clear()
	if err := l.src.Refresh(ctx); err != nil && ctx.Err() == nil {
		l.log.Warn("feed refresh failed", logx.Err(err))
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
