// Package schedule holds the timing rules shared by config validation and the
// monitor: the cron spec dialect and the refresh interval bounds.
package schedule

import (
	"strings"

	"github.com/robfig/cron/v3"
)

// MaxIntervalSeconds caps the refresh interval at one year.
const MaxIntervalSeconds = 365 * 24 * 60 * 60

// Parser accepts standard 5-field specs and descriptors (@hourly, @every 30m, ...).
var Parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Parse parses a trimmed cron spec with Parser.
func Parse(spec string) (cron.Schedule, error) {
	return Parser.Parse(strings.TrimSpace(spec))
}

// ValidInterval reports whether seconds is a usable refresh interval.
func ValidInterval(seconds int) bool {
	return seconds > 0 && seconds <= MaxIntervalSeconds
}
