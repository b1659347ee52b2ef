package monitor

import (
	"context"
	"sort"
	"time"

	"stockbot/internal/transport"
	logx "stockbot/pkg/logx"
)

type ListenerConfig struct {
	// Every is the pause between polls.
	Every time.Duration
	// Timeout bounds one poll request.
	Timeout time.Duration
}

// Listener polls the messenger for control messages and hands them to the processor.
type Listener struct {
	cfg  ListenerConfig
	msg  transport.Messenger
	proc *Processor
	rt   *Runtime
	log  logx.Logger
}

func NewListener(cfg ListenerConfig, msg transport.Messenger, proc *Processor, rt *Runtime, log logx.Logger) *Listener {
	if cfg.Every <= 0 {
		cfg.Every = time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Listener{cfg: cfg, msg: msg, proc: proc, rt: rt, log: log}
}

// Run polls until ctx is canceled. Transport errors are logged and retried on the next tick.
func (l *Listener) Run(ctx context.Context) error {
	l.Tick(ctx)

	t := time.NewTicker(l.cfg.Every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			l.Tick(ctx)
		}
	}
}

// Tick performs one poll and returns how many messages were processed.
func (l *Listener) Tick(ctx context.Context) int {
	cursor := l.rt.Cursor()

	pctx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
	msgs, err := l.msg.PollInboundSince(pctx, cursor)
	cancel()
	if err != nil {
		if ctx.Err() == nil {
			l.log.Warn("poll inbound failed", logx.Err(err))
		}
		return 0
	}

	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].Cursor < msgs[j].Cursor })

	n := 0
	for _, m := range msgs {
		if cur := l.rt.Cursor(); cur != nil && m.Cursor <= *cur {
			continue
		}
		l.proc.Handle(ctx, m)
		n++
	}
	return n
}
