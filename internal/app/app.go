package app

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"stockbot/internal/config"
	"stockbot/internal/eventbus"
	"stockbot/internal/monitor"
	"stockbot/internal/notifier"
	"stockbot/internal/runtime/supervisor"
	"stockbot/internal/storage"
	"stockbot/internal/transport"
	"stockbot/internal/transport/telegram"
	logx "stockbot/pkg/logx"
)

type App struct {
	cfgm *config.Manager
	cfg  *config.Config

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store

	tg       *telegram.Messenger
	rt       *monitor.Runtime
	notif    *notifier.Service
	loop     *monitor.Loop
	listener *monitor.Listener
	reporter *monitor.Reporter

	sup *supervisor.Supervisor
}

// NewApp loads configuration and wires every component. Nothing runs until Start.
func NewApp(cfgPath string) (*App, error) {
	envFiles := []string{".env"}
	if dir := filepath.Dir(cfgPath); dir != "." {
		envFiles = append(envFiles, filepath.Join(dir, ".env"))
	}
	if err := config.LoadDotEnv(envFiles...); err != nil {
		return nil, err
	}

	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	res, err := cfg.Resolve()
	if err != nil {
		return nil, err
	}

	tg, err := telegram.New(mapTelegramConfig(cfg, res), logx.Nop())
	if err != nil {
		return nil, err
	}

	// Set the chat target before the sink is enabled so early lines are not dropped.
	logCfg := mapLogConfig(cfg)
	bootCfg := logCfg
	bootCfg.Chat.Enabled = false
	logSvc, root := logx.New(bootCfg, tg)
	logSvc.SetChatTarget(transport.ChatID(cfg.Telegram.LogChatID))
	logSvc.Apply(logCfg)
	log := root.With(logx.String("comp", "app"))
	cfgm.SetLogger(root.With(logx.String("comp", "config")))
	tg.SetLogger(root.With(logx.String("comp", "telegram")))

	bus := eventbus.New()

	store, err := storage.Open(mapStorageConfig(cfg, res), root.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}

	src, err := openFeed(cfg, res, root.With(logx.String("comp", "feed")))
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	rt, err := monitor.NewRuntime(mapSettings(cfg))
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	notif := notifier.New(mapNotifierConfig(cfg, res), tg, rt, bus, root.With(logx.String("comp", "notifier")))

	proc := monitor.NewProcessor(monitor.ProcessorConfig{
		Tracked:               cfg.Store.Products,
		RestrictToSubscribers: cfg.Commands.RestrictToSubscribers,
		History:               store,
		Location:              res.Location,
	}, rt, notif, bus, root.With(logx.String("comp", "commands")))

	loop := monitor.NewLoop(monitor.LoopConfig{
		Tracked:     cfg.Store.Products,
		StoreURL:    cfg.Store.BaseURL,
		IdleTick:    res.IdleTick,
		SettleDelay: res.SettleDelay,
		Location:    res.Location,
	}, rt, src, notif, bus, root.With(logx.String("comp", "monitor")))

	listener := monitor.NewListener(monitor.ListenerConfig{
		Every:   res.PollInterval,
		Timeout: res.PollTimeout,
	}, tg, proc, rt, root.With(logx.String("comp", "listener")))

	var reporter *monitor.Reporter
	if spec := strings.TrimSpace(cfg.Monitor.StatusReport); spec != "" {
		reporter, err = monitor.NewReporter(spec, res.Location, rt, cfg.Store.Products, notif, root.With(logx.String("comp", "reporter")))
		if err != nil {
			_ = store.Close()
			return nil, err
		}
	}

	return &App{
		cfgm:     cfgm,
		cfg:      cfg,
		log:      log,
		logs:     logSvc,
		bus:      bus,
		store:    store,
		tg:       tg,
		rt:       rt,
		notif:    notif,
		loop:     loop,
		listener: listener,
		reporter: reporter,
	}, nil
}

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))
	sctx := a.sup.Context()

	if err := a.tg.SetCommands(sctx, menuCommands); err != nil {
		a.log.Warn("menu commands not updated", logx.Err(err))
	}
	if a.cfg.Monitor.Announce() {
		d := a.notif.Broadcast(sctx, monitor.ControlsText, false)
		a.log.Info("startup announcement sent", logx.Int("sent", d.Sent), logx.Int("failed", d.Failed))
	}

	a.sup.Go0("journal", func(c context.Context) {
		runJournal(c, a.bus, a.store, a.log.With(logx.String("comp", "journal")))
	})
	a.sup.GoRestart("monitor.loop", a.loop.Run, supervisor.WithRestartBackoff(time.Second, 30*time.Second))
	a.sup.GoRestart("commands.listener", a.listener.Run, supervisor.WithRestartBackoff(time.Second, 30*time.Second))
	if a.reporter != nil {
		a.sup.GoRestart("status.report", a.reporter.Run)
	}

	sub := a.cfgm.Subscribe(4)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		a.applyReloads(c, sub)
	})
	a.sup.Go("config.watch", a.cfgm.Watch)

	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		a.log.Warn("systemd notify failed", logx.Err(err))
	} else if ok {
		a.log.Debug("systemd notified ready")
	}

	st := a.rt.Snapshot()
	a.log.Info("app started",
		logx.Int("products", len(a.cfg.Store.Products)),
		logx.Int("subscribers", len(st.Subscribers)),
		logx.Int("interval_s", st.RefreshInterval),
		logx.Bool("monitoring", st.Monitoring),
	)
	return nil
}

// applyReloads applies the logging section live; other changes need a restart.
func (a *App) applyReloads(ctx context.Context, sub <-chan *config.Config) {
	last := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case next, ok := <-sub:
			if !ok {
				return
			}
			sections, attrs := config.SummarizeConfigChange(last, next)
			last = next
			if len(sections) == 0 {
				a.log.Debug("config reload received, but no effective changes detected")
				continue
			}

			a.logs.SetChatTarget(transport.ChatID(next.Telegram.LogChatID))
			a.logs.Apply(mapLogConfig(next))

			fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
			a.log.Info("config reloaded", fields...)
			if rr := config.RestartRequired(sections); len(rr) > 0 {
				a.log.Warn("restart required for config changes to take effect", logx.Strings("sections", rr))
			}
		}
	}
}

func (a *App) Stop(ctx context.Context) error {
	if _, err := daemon.SdNotify(false, daemon.SdNotifyStopping); err != nil {
		a.log.Debug("systemd notify failed", logx.Err(err))
	}

	var (
		err      error
		restarts uint64
	)
	if a.sup != nil {
		err = a.sup.Stop(ctx)
		if ctx.Err() != nil {
			a.log.Warn("shutdown timed out", logx.Int64("still_running", a.sup.Active()))
		}
		restarts = a.sup.Restarts()
	}
	if cerr := a.store.Close(); cerr != nil {
		a.log.Warn("journal close failed", logx.Err(cerr))
	}
	a.log.Info("app stopped", logx.Uint64("restarts", restarts))
	_ = a.logs.Close()
	return err
}
