package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"stockbot/internal/schedule"
)

// Defaults applied when a field is omitted.
const (
	DefaultRefreshInterval = 60
	DefaultIdleTick        = 2 * time.Second
	DefaultSettleDelay     = 5 * time.Second
	DefaultFeedTimeout     = 20 * time.Second
	DefaultPollInterval    = time.Second
	DefaultPollTimeout     = 10 * time.Second
	DefaultSendTimeout     = 10 * time.Second
	DefaultRequestTimeout  = 30 * time.Second
)

// Resolved holds the parsed form of the duration, timezone and schedule fields.
type Resolved struct {
	RequestTimeout time.Duration
	FeedTimeout    time.Duration
	SettleDelay    time.Duration
	IdleTick       time.Duration
	PollInterval   time.Duration
	PollTimeout    time.Duration
	SendTimeout    time.Duration
	BusyTimeout    time.Duration
	Location       *time.Location
}

// ApplyDefaults fills zero values that have a non-zero default.
func (c *Config) ApplyDefaults() {
	if c.Monitor.RefreshInterval == 0 {
		c.Monitor.RefreshInterval = DefaultRefreshInterval
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = "info"
	}
	if strings.TrimSpace(c.Storage.Driver) == "" {
		c.Storage.Driver = "none"
	}
}

// Validate checks the configuration and returns all problems joined.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Telegram.Token) == "" {
		errs = append(errs, errors.New("telegram.token is required (or set "+EnvToken+")"))
	}
	if len(c.Store.Products) == 0 {
		errs = append(errs, errors.New("store.products must list at least one product id"))
	}
	for i, p := range c.Store.Products {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, fmt.Errorf("store.products[%d] is empty", i))
		}
	}
	if strings.TrimSpace(c.Feed.URL) == "" {
		errs = append(errs, errors.New("feed.url is required (or set "+EnvFeedURL+")"))
	}
	if !schedule.ValidInterval(c.Monitor.RefreshInterval) {
		errs = append(errs, fmt.Errorf("monitor.refresh_interval must be between 1 and %d seconds, got %d",
			schedule.MaxIntervalSeconds, c.Monitor.RefreshInterval))
	}
	if c.Notifier.RatePerSec < 0 {
		errs = append(errs, errors.New("notifier.rate_per_sec must be >= 0"))
	}
	switch strings.ToLower(strings.TrimSpace(c.Storage.Driver)) {
	case "", "none":
	case "file", "sqlite":
		if strings.TrimSpace(c.Storage.Path) == "" {
			errs = append(errs, fmt.Errorf("storage.path is required for driver %q", c.Storage.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver))
	}
	if spec := strings.TrimSpace(c.Monitor.StatusReport); spec != "" {
		if _, err := schedule.Parse(spec); err != nil {
			errs = append(errs, fmt.Errorf("monitor.status_report: %w", err))
		}
	}
	if _, err := c.Resolve(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Resolve parses duration and timezone fields, applying defaults.
func (c *Config) Resolve() (Resolved, error) {
	var (
		r    Resolved
		errs []error
	)
	parse := func(dst *time.Duration, path, raw string, def time.Duration) {
		d, err := durationOr(path, raw, def)
		if err != nil {
			errs = append(errs, err)
			return
		}
		*dst = d
	}
	parse(&r.RequestTimeout, "telegram.request_timeout", c.Telegram.RequestTimeout, DefaultRequestTimeout)
	parse(&r.FeedTimeout, "feed.timeout", c.Feed.Timeout, DefaultFeedTimeout)
	parse(&r.IdleTick, "monitor.idle_tick", c.Monitor.IdleTick, DefaultIdleTick)
	parse(&r.PollInterval, "commands.poll_interval", c.Commands.PollInterval, DefaultPollInterval)
	parse(&r.PollTimeout, "commands.poll_timeout", c.Commands.PollTimeout, DefaultPollTimeout)
	parse(&r.SendTimeout, "notifier.send_timeout", c.Notifier.SendTimeout, DefaultSendTimeout)
	parse(&r.BusyTimeout, "storage.busy_timeout", c.Storage.BusyTimeout, 5*time.Second)

	// settle_delay may legitimately be "0s".
	if strings.TrimSpace(c.Feed.SettleDelay) == "" {
		r.SettleDelay = DefaultSettleDelay
	} else if d, err := parseDuration("feed.settle_delay", c.Feed.SettleDelay); err != nil {
		errs = append(errs, err)
	} else {
		r.SettleDelay = d
	}

	r.Location = time.Local
	if tz := strings.TrimSpace(c.Monitor.Timezone); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			errs = append(errs, fmt.Errorf("monitor.timezone: %w", err))
		} else {
			r.Location = loc
		}
	}
	return r, errors.Join(errs...)
}

// parseDuration accepts a Go duration or a bare number of seconds ("30"),
// the unit /setinterval uses. Empty yields 0; negatives are rejected.
func parseDuration(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		n, nerr := strconv.Atoi(s)
		if nerr != nil {
			return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
		}
		d = time.Duration(n) * time.Second
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

func durationOr(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := parseDuration(path, raw)
	if err != nil || d != 0 {
		return d, err
	}
	return def, nil
}
