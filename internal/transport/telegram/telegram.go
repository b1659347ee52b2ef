// Package telegram implements transport.Messenger on the Telegram Bot API.
//
// Inbound messages are pulled with getUpdates using the update_id as cursor,
// so the caller owns the offset and nothing is consumed behind its back.
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"stockbot/internal/transport"
	logx "stockbot/pkg/logx"
)

// textLimit is Telegram's maximum message length in runes.
const textLimit = 4096

type Config struct {
	Token string
	// APIURL defaults to https://api.telegram.org.
	APIURL         string
	RequestTimeout time.Duration
}

// Command is a /menu entry registered with setMyCommands.
type Command struct {
	Name        string
	Description string
}

type Messenger struct {
	cfg Config
	bot *tele.Bot
	log logx.Logger
}

var _ transport.Messenger = (*Messenger)(nil)

func New(cfg Config, log logx.Logger) (*Messenger, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	b, err := tele.NewBot(tele.Settings{
		Token:   strings.TrimSpace(cfg.Token),
		URL:     strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/"),
		Client:  &http.Client{Timeout: cfg.RequestTimeout},
		Offline: true,
	})
	if err != nil {
		return nil, err
	}
	return &Messenger{cfg: cfg, bot: b, log: log}, nil
}

// SetLogger replaces the logger. Call it before the messenger is shared.
func (m *Messenger) SetLogger(log logx.Logger) {
	if log.IsZero() {
		log = logx.Nop()
	}
	m.log = log
}

// Send delivers text to one chat, split into several messages when it exceeds
// Telegram's length limit. The call returns early when ctx is done; the HTTP
// request itself is bounded by RequestTimeout.
func (m *Messenger) Send(ctx context.Context, to transport.ChatID, text string, silent bool) error {
	chat := &tele.Chat{ID: int64(to)}
	opts := &tele.SendOptions{DisableNotification: silent}

	for _, chunk := range splitText(text, textLimit) {
		if err := m.call(ctx, func() error {
			_, err := m.bot.Send(chat, chunk, opts)
			return err
		}); err != nil {
			return err
		}
	}
	return nil
}

type updatesResponse struct {
	Result []tele.Update `json:"result"`
}

// PollInboundSince fetches pending updates after cursor without long polling.
func (m *Messenger) PollInboundSince(ctx context.Context, cursor *int64) ([]transport.Inbound, error) {
	payload := map[string]any{
		"timeout":         0,
		"allowed_updates": []string{"message"},
	}
	if cursor != nil {
		payload["offset"] = *cursor + 1
	}

	var raw []byte
	if err := m.call(ctx, func() error {
		var err error
		raw, err = m.bot.Raw("getUpdates", payload)
		return err
	}); err != nil {
		return nil, err
	}

	var resp updatesResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode getUpdates: %w", transport.ErrTransport, err)
	}

	out := make([]transport.Inbound, 0, len(resp.Result))
	for _, u := range resp.Result {
		in := transport.Inbound{Cursor: int64(u.ID)}
		if msg := u.Message; msg != nil {
			in.Text = msg.Text
			if msg.Chat != nil {
				in.From = transport.ChatID(msg.Chat.ID)
			}
			if msg.Sender != nil {
				in.Username = msg.Sender.Username
				if in.From == 0 {
					in.From = transport.ChatID(msg.Sender.ID)
				}
			}
		}
		out = append(out, in)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cursor < out[j].Cursor })
	return out, nil
}

// SetCommands registers the bot's command menu.
func (m *Messenger) SetCommands(ctx context.Context, cmds []Command) error {
	tc := make([]tele.Command, 0, len(cmds))
	for _, c := range cmds {
		name := strings.TrimPrefix(strings.TrimSpace(c.Name), "/")
		if name == "" {
			continue
		}
		tc = append(tc, tele.Command{Text: name, Description: c.Description})
	}
	err := m.call(ctx, func() error { return m.bot.SetCommands(tc) })
	if err == nil {
		m.log.Info("menu commands updated", logx.Int("count", len(tc)))
	}
	return err
}

// call runs fn, returning early with ctx's error when ctx finishes first.
func (m *Messenger) call(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", transport.ErrTransport, ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w: %w", transport.ErrTransport, err)
		}
		return nil
	}
}

// splitText cuts s into chunks of at most limit runes, preferring newline boundaries.
func splitText(s string, limit int) []string {
	rs := []rune(s)
	if len(rs) <= limit {
		return []string{s}
	}
	var out []string
	for start := 0; start < len(rs); {
		end := min(start+limit, len(rs))
		if end < len(rs) {
			for i := end - 1; i > start+limit/3; i-- {
				if rs[i] == '\n' {
					end = i + 1
					break
				}
			}
		}
		out = append(out, strings.TrimRight(string(rs[start:end]), "\n"))
		start = end
		for start < len(rs) && rs[start] == '\n' {
			start++
		}
	}
	return out
}
