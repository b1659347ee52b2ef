package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleYAML = `
telegram:
  token: "123:abc"
  chat_ids: [111, 222]
store:
  base_url: https://shop.example.com
  products: [milk-8pack, curd-400g]
feed:
  url: https://shop.example.com/api/products?pincode={pincode}
  pincode: "110001"
  timeout: 15s
  settle_delay: 0s
monitor:
  refresh_interval: 45
  out_of_stock_alerts: true
  timezone: UTC
  status_report: "0 9 * * *"
logging:
  level: debug
  console: true
`

func noEnv(string) (string, bool) { return "", false }

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()
	m := NewManager(writeFile(t, "config.yaml", sampleYAML))
	m.SetEnvLookup(noEnv)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Monitor.RefreshInterval != 45 || len(cfg.Telegram.ChatIDs) != 2 || cfg.Storage.Driver != "none" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if !cfg.Monitor.Announce() {
		t.Fatal("announce_on_start should default to true")
	}
	r, err := cfg.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if r.FeedTimeout != 15*time.Second || r.SettleDelay != 0 || r.PollInterval != DefaultPollInterval || r.Location != time.UTC {
		t.Fatalf("resolved = %+v", r)
	}
	if m.Get() != cfg {
		t.Fatal("Load must commit the config")
	}
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	t.Parallel()
	if _, err := Decode("c.yaml", []byte("monitor:\n  refresh_intervall: 3\n")); err == nil {
		t.Fatal("expected unknown field error")
	}
	if _, err := Decode("c.json", []byte(`{"monitor":{}} {"x":1}`)); err == nil {
		t.Fatal("expected trailing data error")
	}
	cfg, err := Decode("c.json", []byte(`{"store":{"products":["a"]}}`))
	if err != nil || len(cfg.Store.Products) != 1 {
		t.Fatalf("cfg=%+v err=%v", cfg, err)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Parallel()
	env := map[string]string{
		EnvToken:           "999:zzz",
		EnvChatIDs:         " 5, 6 ,,7",
		EnvRefreshInterval: "12",
		EnvPincode:         "560001",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	var cfg Config
	if err := ApplyEnv(&cfg, lookup); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.Telegram.Token != "999:zzz" || cfg.Monitor.RefreshInterval != 12 || cfg.Feed.Pincode != "560001" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if got := cfg.Telegram.ChatIDs; len(got) != 3 || got[0] != 5 || got[2] != 7 {
		t.Fatalf("chat ids = %v", got)
	}

	env[EnvChatIDs] = "5,x"
	if err := ApplyEnv(&cfg, lookup); err == nil {
		t.Fatal("expected chat id error")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing token", func(c *Config) { c.Telegram.Token = "" }, "telegram.token"},
		{"no products", func(c *Config) { c.Store.Products = nil }, "store.products"},
		{"bad interval", func(c *Config) { c.Monitor.RefreshInterval = -1 }, "refresh_interval"},
		{"interval too large", func(c *Config) { c.Monitor.RefreshInterval = 9300000000 }, "refresh_interval"},
		{"bad cron", func(c *Config) { c.Monitor.StatusReport = "every day" }, "status_report"},
		{"bad timezone", func(c *Config) { c.Monitor.Timezone = "Mars/Olympus" }, "timezone"},
		{"bad duration", func(c *Config) { c.Commands.PollInterval = "soon" }, "poll_interval"},
		{"sqlite without path", func(c *Config) { c.Storage.Driver = "sqlite" }, "storage.path"},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "redis" }, "unknown driver"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Decode("c.yaml", []byte(sampleYAML))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			cfg.ApplyDefaults()
			if err := cfg.Validate(); err != nil {
				t.Fatalf("base config invalid: %v", err)
			}
			tc.mutate(cfg)
			err = cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want mention of %q", err, tc.want)
			}
		})
	}
}

func TestReloadPublishesChanges(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "config.yaml", sampleYAML)
	m := NewManager(path)
	m.SetEnvLookup(noEnv)
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)
	ctx := context.Background()

	if published, err := m.Reload(ctx); err != nil || published {
		t.Fatalf("unchanged reload: published=%v err=%v", published, err)
	}

	updated := strings.Replace(sampleYAML, "level: debug", "level: warn", 1)
	if err := os.WriteFile(path, []byte(updated), 0o600); err != nil {
		t.Fatal(err)
	}
	if published, err := m.Reload(ctx); err != nil || !published {
		t.Fatalf("changed reload: published=%v err=%v", published, err)
	}
	got := <-ch
	if got.Logging.Level != "warn" || m.Get().Logging.Level != "warn" {
		t.Fatalf("level = %q", got.Logging.Level)
	}

	broken := strings.Replace(sampleYAML, "refresh_interval: 45", "refresh_interval: -5", 1)
	if err := os.WriteFile(path, []byte(broken), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Reload(ctx); err == nil {
		t.Fatal("invalid config must be rejected")
	}
	if m.Get().Monitor.RefreshInterval != 45 {
		t.Fatal("rejected config must not be committed")
	}
}

func TestSummarizeConfigChange(t *testing.T) {
	t.Parallel()
	a, _ := Decode("c.yaml", []byte(sampleYAML))
	b, _ := Decode("c.yaml", []byte(sampleYAML))
	b.Logging.Level = "error"
	b.Monitor.RefreshInterval = 10

	changed, _ := SummarizeConfigChange(a, b)
	if strings.Join(changed, ",") != "monitor,logging" {
		t.Fatalf("changed = %v", changed)
	}
	if rr := RestartRequired(changed); len(rr) != 1 || rr[0] != "monitor" {
		t.Fatalf("restart required = %v", rr)
	}
}

func TestLoadDotEnv(t *testing.T) {
	const key = "STOCKBOT_TEST_DOTENV_KEY"
	t.Cleanup(func() { os.Unsetenv(key) })
	p := writeFile(t, ".env", key+"=from-file\n")

	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env"), p); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv(key); got != "from-file" {
		t.Fatalf("%s = %q", key, got)
	}
}

func TestParseDuration(t *testing.T) {
	t.Parallel()
	cases := []struct {
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{raw: "", want: 0},
		{raw: "1500ms", want: 1500 * time.Millisecond},
		{raw: " 45 ", want: 45 * time.Second},
		{raw: "-2s", wantErr: true},
		{raw: "soon", wantErr: true},
	}
	for _, tc := range cases {
		got, err := parseDuration("x", tc.raw)
		if (err != nil) != tc.wantErr || got != tc.want {
			t.Fatalf("parseDuration(%q) = %v, %v", tc.raw, got, err)
		}
	}
	if d, _ := durationOr("x", "0s", 3*time.Second); d != 3*time.Second {
		t.Fatalf("durationOr = %v", d)
	}
}
