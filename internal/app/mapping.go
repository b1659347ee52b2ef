package app

import (
	"strings"

	"stockbot/internal/config"
	"stockbot/internal/feed"
	"stockbot/internal/monitor"
	"stockbot/internal/notifier"
	"stockbot/internal/storage"
	"stockbot/internal/transport"
	"stockbot/internal/transport/telegram"
	logx "stockbot/pkg/logx"
)

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Chat: logx.ChatConfig{
			Enabled:    cfg.Logging.Telegram.Enabled && cfg.Telegram.LogChatID != 0,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}

func mapSettings(cfg *config.Config) monitor.Settings {
	subs := make([]transport.ChatID, 0, len(cfg.Telegram.ChatIDs))
	for _, id := range cfg.Telegram.ChatIDs {
		subs = append(subs, transport.ChatID(id))
	}
	return monitor.Settings{
		Monitoring:       !cfg.Monitor.StartPaused,
		OutOfStockAlerts: cfg.Monitor.OutOfStockAlerts,
		RefreshInterval:  cfg.Monitor.RefreshInterval,
		Subscribers:      subs,
	}
}

func mapNotifierConfig(cfg *config.Config, r config.Resolved) notifier.Config {
	return notifier.Config{RatePerSec: cfg.Notifier.RatePerSec, SendTimeout: r.SendTimeout}
}

func mapStorageConfig(cfg *config.Config, r config.Resolved) storage.Config {
	return storage.Config{Driver: cfg.Storage.Driver, Path: cfg.Storage.Path, BusyTimeout: r.BusyTimeout}
}

func mapTelegramConfig(cfg *config.Config, r config.Resolved) telegram.Config {
	return telegram.Config{Token: cfg.Telegram.Token, APIURL: cfg.Telegram.APIURL, RequestTimeout: r.RequestTimeout}
}

// openFeed picks a file source for file:// URLs and the HTTP client otherwise.
func openFeed(cfg *config.Config, r config.Resolved, log logx.Logger) (feed.Source, error) {
	if strings.HasPrefix(cfg.Feed.URL, "file://") {
		return feed.NewFileSource(cfg.Feed.URL), nil
	}
	return feed.NewHTTPSource(feed.HTTPConfig{
		URL:     cfg.Feed.URL,
		Pincode: cfg.Feed.Pincode,
		Headers: cfg.Feed.Headers,
		Timeout: r.FeedTimeout,
		Proxy:   cfg.Feed.Proxy,
		Profile: cfg.Feed.UserAgentProfile,
	}, log)
}

var menuCommands = []telegram.Command{
	{Name: "start", Description: "resume all monitoring"},
	{Name: "stop", Description: "stop all monitoring"},
	{Name: "startoutofstock", Description: "resume out of stock monitoring"},
	{Name: "stopoutofstock", Description: "stop out of stock monitoring"},
	{Name: "addme", Description: "add yourself to alerts"},
	{Name: "removeme", Description: "remove yourself from alerts"},
	{Name: "setinterval", Description: "set refresh interval in seconds"},
	{Name: "status", Description: "show current settings"},
	{Name: "help", Description: "list commands"},
}
