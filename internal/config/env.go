package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"stockbot/internal/transport"
)

// Environment variables that override file values.
const (
	EnvToken           = "TELEGRAM_TOKEN"
	EnvChatIDs         = "TELEGRAM_CHAT_IDS"
	EnvRefreshInterval = "REFRESH_INTERVAL"
	EnvPincode         = "PINCODE"
	EnvFeedURL         = "FEED_URL"
)

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overlays environment overrides on cfg. lookup is usually os.LookupEnv.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if v, ok := lookup(EnvToken); ok && strings.TrimSpace(v) != "" {
		cfg.Telegram.Token = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvChatIDs); ok && strings.TrimSpace(v) != "" {
		ids, err := parseChatIDs(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvChatIDs, err)
		}
		cfg.Telegram.ChatIDs = ids
	}
	if v, ok := lookup(EnvRefreshInterval); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRefreshInterval, err)
		}
		cfg.Monitor.RefreshInterval = n
	}
	if v, ok := lookup(EnvPincode); ok && strings.TrimSpace(v) != "" {
		cfg.Feed.Pincode = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvFeedURL); ok && strings.TrimSpace(v) != "" {
		cfg.Feed.URL = strings.TrimSpace(v)
	}
	return nil
}

func parseChatIDs(s string) ([]int64, error) {
	var out []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := transport.ParseChatID(part)
		if err != nil {
			return nil, fmt.Errorf("invalid chat id %q", part)
		}
		out = append(out, int64(id))
	}
	return out, nil
}
