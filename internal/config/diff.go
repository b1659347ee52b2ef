package config

import (
	"reflect"

	logx "stockbot/pkg/logx"
)

// LiveSections are applied without a restart.
var LiveSections = map[string]bool{"logging": true}

// SummarizeConfigChange returns the changed top-level sections and safe
// structured attrs for logging. Secrets (the bot token) are never included.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 8)
	attrs := make([]logx.Field, 0, 8)

	if !reflect.DeepEqual(oldCfg.Telegram, newCfg.Telegram) {
		changed = append(changed, "telegram")
		attrs = append(attrs,
			logx.Bool("telegram.token_changed", oldCfg.Telegram.Token != newCfg.Telegram.Token),
			logx.Int("telegram.chat_ids", len(newCfg.Telegram.ChatIDs)),
		)
	}
	if !reflect.DeepEqual(oldCfg.Store, newCfg.Store) {
		changed = append(changed, "store")
		attrs = append(attrs, logx.Int("store.products", len(newCfg.Store.Products)))
	}
	if !reflect.DeepEqual(oldCfg.Feed, newCfg.Feed) {
		changed = append(changed, "feed")
	}
	if !reflect.DeepEqual(oldCfg.Monitor, newCfg.Monitor) {
		changed = append(changed, "monitor")
		attrs = append(attrs, logx.Int("monitor.refresh_interval", newCfg.Monitor.RefreshInterval))
	}
	if oldCfg.Commands != newCfg.Commands {
		changed = append(changed, "commands")
	}
	if oldCfg.Notifier != newCfg.Notifier {
		changed = append(changed, "notifier")
	}
	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logging.telegram_enabled", newCfg.Logging.Telegram.Enabled),
		)
	}
	if oldCfg.Storage != newCfg.Storage {
		changed = append(changed, "storage")
	}
	return changed, attrs
}

// RestartRequired returns the changed sections that are not applied live.
func RestartRequired(changed []string) []string {
	var out []string
	for _, s := range changed {
		if !LiveSections[s] {
			out = append(out, s)
		}
	}
	return out
}
