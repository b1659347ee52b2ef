package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"stockbot/internal/schedule"
	logx "stockbot/pkg/logx"
)

// Reporter broadcasts a silent status summary on a cron schedule.
type Reporter struct {
	spec    string
	loc     *time.Location
	rt      *Runtime
	tracked []string
	notify  Notifier
	log     logx.Logger
}

func NewReporter(spec string, loc *time.Location, rt *Runtime, tracked []string, n Notifier, log logx.Logger) (*Reporter, error) {
	spec = strings.TrimSpace(spec)
	if _, err := schedule.Parse(spec); err != nil {
		return nil, fmt.Errorf("status report schedule %q: %w", spec, err)
	}
	if loc == nil {
		loc = time.Local
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Reporter{spec: spec, loc: loc, rt: rt, tracked: tracked, notify: n, log: log}, nil
}

// Run starts the schedule and blocks until ctx is canceled.
func (r *Reporter) Run(ctx context.Context) error {
	c := cron.New(cron.WithParser(schedule.Parser), cron.WithLocation(r.loc))
	if _, err := c.AddFunc(r.spec, func() { r.Report(ctx) }); err != nil {
		return err
	}
	c.Start()
	r.log.Info("status report scheduled", logx.String("spec", r.spec), logx.String("tz", r.loc.String()))

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// Report broadcasts the current status once.
func (r *Reporter) Report(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	d := r.notify.Broadcast(ctx, StatusText(r.rt.Snapshot(), r.tracked), true)
	r.log.Debug("status report sent", logx.Int("sent", d.Sent), logx.Int("failed", d.Failed))
}
