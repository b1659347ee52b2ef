package config

// Config is the file-backed configuration. Durations are Go duration strings
// ("500ms", "10s", "2m") or bare seconds ("30"); empty means "use the default".
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Store    StoreConfig    `json:"store"`
	Feed     FeedConfig     `json:"feed"`
	Monitor  MonitorConfig  `json:"monitor"`
	Commands CommandsConfig `json:"commands"`
	Notifier NotifierConfig `json:"notifier"`
	Logging  LoggingConfig  `json:"logging"`
	Storage  StorageConfig  `json:"storage"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// ChatIDs seeds the subscriber list.
	ChatIDs []int64 `json:"chat_ids"`
	// LogChatID receives forwarded log lines when logging.telegram is enabled.
	LogChatID int64 `json:"log_chat_id,omitempty"`
	// APIURL overrides the Bot API endpoint (self-hosted bot API server).
	APIURL         string `json:"api_url,omitempty"`
	RequestTimeout string `json:"request_timeout,omitempty"`
}

type StoreConfig struct {
	// BaseURL is used to build product links: <base_url>/product/<id>.
	BaseURL  string   `json:"base_url"`
	Products []string `json:"products"`
}

// FeedConfig describes where catalog payloads come from.
//
// URL may be an http(s) endpoint or a file:// path to a saved payload.
// "{pincode}" in URL or header values is replaced with Pincode.
type FeedConfig struct {
	URL              string            `json:"url"`
	Pincode          string            `json:"pincode,omitempty"`
	Headers          map[string]string `json:"headers,omitempty"`
	Timeout          string            `json:"timeout,omitempty"`
	SettleDelay      string            `json:"settle_delay,omitempty"`
	UserAgentProfile string            `json:"user_agent_profile,omitempty"`
	Proxy            string            `json:"proxy,omitempty"`
}

type MonitorConfig struct {
	// RefreshInterval is in whole seconds, matching /setinterval.
	RefreshInterval  int    `json:"refresh_interval"`
	OutOfStockAlerts bool   `json:"out_of_stock_alerts"`
	StartPaused      bool   `json:"start_paused,omitempty"`
	IdleTick         string `json:"idle_tick,omitempty"`
	Timezone         string `json:"timezone,omitempty"`
	// StatusReport is an optional cron spec for a periodic status broadcast.
	StatusReport string `json:"status_report,omitempty"`
	// AnnounceOnStart defaults to true when omitted.
	AnnounceOnStart *bool `json:"announce_on_start,omitempty"`
}

type CommandsConfig struct {
	PollInterval          string `json:"poll_interval,omitempty"`
	PollTimeout           string `json:"poll_timeout,omitempty"`
	RestrictToSubscribers bool   `json:"restrict_to_subscribers,omitempty"`
}

type NotifierConfig struct {
	RatePerSec  int    `json:"rate_per_sec,omitempty"`
	SendTimeout string `json:"send_timeout,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// StorageConfig controls the optional audit journal.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./data/stockbot.db" }
type StorageConfig struct {
	Driver      string `json:"driver"` // none|file|sqlite
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite
}

// Announce reports whether the controls text is broadcast on startup.
func (m MonitorConfig) Announce() bool {
	return m.AnnounceOnStart == nil || *m.AnnounceOnStart
}
