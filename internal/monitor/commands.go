package monitor

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"stockbot/internal/eventbus"
	"stockbot/internal/notifier"
	"stockbot/internal/schedule"
	"stockbot/internal/storage"
	"stockbot/internal/transport"
	logx "stockbot/pkg/logx"
)

// Notifier is the outbound side used by the processor, loop and reporter.
type Notifier interface {
	Broadcast(ctx context.Context, text string, silent bool) notifier.Delivery
	SendTo(ctx context.Context, to transport.ChatID, text string, silent bool) error
}

// History is the read side of the audit journal, oldest entry first.
type History interface {
	Recent(ctx context.Context, n int) ([]storage.Entry, error)
}

// Journal entries scanned and alerts shown by /status.
const (
	historyScan  = 50
	historyShown = 5
)

type ProcessorConfig struct {
	// Tracked is shown by /status.
	Tracked []string
	// RestrictToSubscribers ignores commands (other than /addme and /help) from non-subscribers.
	RestrictToSubscribers bool
	// History, when set, adds the latest in-stock alerts to /status.
	History  History
	Location *time.Location
}

// CommandEvent is published on the bus for every recognized command.
type CommandEvent struct {
	Command  string           `json:"command"`
	Args     []string         `json:"args,omitempty"`
	From     transport.ChatID `json:"from"`
	Username string           `json:"username,omitempty"`
	Cursor   int64            `json:"cursor"`
	Changed  bool             `json:"changed"`
	Error    string           `json:"error,omitempty"`
}

// Processor applies chat commands to the runtime configuration.
type Processor struct {
	cfg    ProcessorConfig
	rt     *Runtime
	notify Notifier
	bus    eventbus.Bus
	log    logx.Logger
}

func NewProcessor(cfg ProcessorConfig, rt *Runtime, n Notifier, bus eventbus.Bus, log logx.Logger) *Processor {
	if bus == nil {
		bus = eventbus.Nop{}
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Processor{cfg: cfg, rt: rt, notify: n, bus: bus, log: log}
}

// parseCommand returns the lower-cased command word (without any @botname suffix) and its arguments.
func parseCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil
	}
	cmd := strings.ToLower(fields[0])
	if at := strings.IndexByte(cmd, '@'); at > 0 {
		cmd = cmd[:at]
	}
	return cmd, fields[1:]
}

func parseInterval(args []string) (int, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("%w: missing value", ErrInvalidInterval)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidInterval, args[0])
	}
	if !schedule.ValidInterval(n) {
		return 0, fmt.Errorf("%w: %d is out of range", ErrInvalidInterval, n)
	}
	return n, nil
}

// Handle processes one inbound message. It never fails: malformed arguments are
// reported back to the chat, unknown text is ignored. The runtime cursor always
// moves past in.Cursor.
func (p *Processor) Handle(ctx context.Context, in transport.Inbound) {
	defer p.rt.AdvanceCursor(in.Cursor)

	cmd, args := parseCommand(in.Text)
	if cmd == "" {
		return
	}
	if p.cfg.RestrictToSubscribers && cmd != "/addme" && cmd != "/help" && !p.rt.IsSubscriber(in.From) {
		p.log.Info("command ignored from non-subscriber", logx.String("cmd", cmd), logx.String("from", in.From.String()))
		return
	}

	ev := CommandEvent{Command: cmd, Args: args, From: in.From, Username: in.Username, Cursor: in.Cursor}
	switch cmd {
	case "/stop":
		p.rt.SetMonitoring(false)
		ev.Changed = true
		p.notify.Broadcast(ctx, msgPaused, true)
	case "/start":
		p.rt.SetMonitoring(true)
		ev.Changed = true
		p.notify.Broadcast(ctx, msgResumed, true)
	case "/stopoutofstock":
		p.rt.SetOutOfStockAlerts(false)
		ev.Changed = true
		p.notify.Broadcast(ctx, msgOutOfStockOff, true)
	case "/startoutofstock":
		p.rt.SetOutOfStockAlerts(true)
		ev.Changed = true
		p.notify.Broadcast(ctx, msgOutOfStockOn, true)
	case "/setinterval":
		n, err := parseInterval(args)
		if err == nil {
			err = p.rt.SetInterval(n)
		}
		if err != nil {
			ev.Error = err.Error()
			p.log.Info("interval rejected", logx.Err(err), logx.String("from", in.From.String()))
			p.notify.Broadcast(ctx, msgInvalidInterval, true)
			break
		}
		ev.Changed = true
		p.notify.Broadcast(ctx, intervalSetText(n), true)
	case "/addme":
		if !p.rt.AddSubscriber(in.From) {
			break
		}
		ev.Changed = true
		p.notify.Broadcast(ctx, msgAdded, false)
	case "/removeme":
		if !p.rt.RemoveSubscriber(in.From) {
			break
		}
		ev.Changed = true
		p.notify.Broadcast(ctx, msgRemoved, false)
	case "/help":
		_ = p.notify.SendTo(ctx, in.From, ControlsText, true)
	case "/status":
		text := StatusText(p.rt.Snapshot(), p.cfg.Tracked)
		if alerts := p.recentAlerts(ctx); alerts != "" {
			text += "\n" + alerts
		}
		_ = p.notify.SendTo(ctx, in.From, text, true)
	default:
		p.log.Debug("unknown command ignored", logx.String("cmd", cmd))
		return
	}

	p.log.Info("command handled",
		logx.String("cmd", cmd),
		logx.String("from", in.From.String()),
		logx.String("user", in.Username),
		logx.Int64("cursor", in.Cursor),
		logx.Bool("changed", ev.Changed),
	)
	p.bus.Publish(eventbus.Event{Type: eventbus.TypeCommandApplied, Data: ev})
}

func (p *Processor) recentAlerts(ctx context.Context) string {
	if p.cfg.History == nil {
		return ""
	}
	entries, err := p.cfg.History.Recent(ctx, historyScan)
	if err != nil {
		p.log.Warn("journal read failed", logx.Err(err))
		return ""
	}
	return recentAlertsText(entries, p.cfg.Location, historyShown)
}
