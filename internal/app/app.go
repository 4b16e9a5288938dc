// Package app assembles the advisory daemon: it maps the config onto the
// scheduler and its collaborators and owns their lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tcasvoice/internal/advisory"
	"tcasvoice/internal/announce"
	"tcasvoice/internal/audio"
	"tcasvoice/internal/config"
	"tcasvoice/internal/eventbus"
	"tcasvoice/internal/host"
	"tcasvoice/internal/journal"
	"tcasvoice/internal/observability/debug"
	"tcasvoice/internal/presence"
	"tcasvoice/internal/sched"
	"tcasvoice/internal/supervisor"
	logx "tcasvoice/pkg/logx"
	"tcasvoice/pkg/systemd"
)

type App struct {
	cfg  *config.Config
	cfgm *config.Manager

	log  logx.Logger
	logs *logx.Service
	sup  *supervisor.Supervisor

	bus     eventbus.Bus
	store   journal.Store
	backend audio.Backend
	loop    *host.Loop
	flag    *presence.FileSource
	powered func() bool
	sched   *sched.Scheduler
	ann     *announce.Service
	debug   *debug.Server

	stopOnce sync.Once
}

type Option func(*App)

// WithBackend replaces the PCM backend built from output.*.
func WithBackend(b audio.Backend) Option { return func(a *App) { a.backend = b } }

// WithLogging replaces the logging service built from logging.*.
func WithLogging(svc *logx.Service) Option { return func(a *App) { a.logs = svc } }

// Load reads cfgPath and builds an App that follows the file for hot reload.
func Load(cfgPath string, opts ...Option) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	a, err := New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	a.cfgm = cfgm
	cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	return a, nil
}

// New builds an App from an already validated config. Nothing runs until Start.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &App{cfg: cfg, bus: eventbus.New()}
	for _, o := range opts {
		o(a)
	}

	if a.logs == nil {
		a.logs, _ = logx.New(cfg.LogConfig())
	}
	a.log = a.logs.Logger().With(logx.String("comp", "app"))

	if a.backend == nil {
		a.backend = audio.NewPCMBackend(audio.PCMConfig{
			Open:     audio.OpenOutput(cfg.Output.Path),
			Realtime: cfg.Output.Realtime,
			Log:      a.logs.Logger(),
		})
	}

	interval, err := cfg.TickInterval()
	if err != nil {
		return nil, err
	}
	var ticker sched.Ticker
	switch cfg.TickerMode() {
	case config.TickerHost:
		frame, err := cfg.HostFrame()
		if err != nil {
			return nil, err
		}
		a.loop = host.NewLoop(frame, a.logs.Logger())
		ticker = sched.NewHostTicker(a.loop, interval)
	default:
		ticker = sched.NewThreadTicker(interval, a.logs.Logger())
	}

	switch cfg.PresenceMode() {
	case config.PresenceNever:
		a.powered = presence.Never
	case config.PresenceFile:
		a.flag = presence.NewFileSource(cfg.Presence.Path, a.logs.Logger())
		a.powered = a.flag.Powered
	default:
		a.powered = presence.Always
	}

	a.sched = sched.New(sched.Config{
		Backend: a.backend,
		Ticker:  ticker,
		Bus:     a.bus,
		Log:     a.logs.Logger(),
	})

	entries, err := cfg.AnnouncementEntries()
	if err != nil {
		return nil, err
	}
	if len(entries) > 0 {
		a.ann, err = announce.New(entries, a.sched, a.logs.Logger())
		if err != nil {
			return nil, err
		}
	}

	store, err := journal.Open(cfg.JournalConfig(), a.logs.Logger())
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}
	a.store = store

	if dc := cfg.Debug; dc != nil && dc.Enabled {
		src := debug.Source{
			Healthy: a.sched.Initialized,
			Stats:   func() any { return a.Stats() },
		}
		if store != nil {
			src.Recent = func(ctx context.Context, n int) (any, error) { return store.Recent(ctx, n) }
		}
		a.debug = debug.New(debug.Config{Addr: dc.Addr, Token: dc.Token}, src, a.logs.Logger())
	}
	return a, nil
}

// Stats is what the debug endpoint reports.
type Stats struct {
	sched.Stats
	EventsDropped uint64 `json:"events_dropped"`
}

func (a *App) Stats() Stats {
	return Stats{Stats: a.sched.Stats(), EventsDropped: a.bus.Dropped()}
}

// Logger returns the root logger; it follows hot-reloaded logging config.
func (a *App) Logger() logx.Logger { return a.logs.Logger() }

func (a *App) Scheduler() *sched.Scheduler { return a.sched }

func (a *App) Store() journal.Store { return a.store }

func (a *App) Bus() eventbus.Bus { return a.bus }

// Done is closed when the app supervisor context is canceled (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor, if any.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// Start runs the support goroutines and initializes the scheduler. If
// initialization fails everything already started is stopped again.
func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))

	if a.loop != nil {
		a.sup.Go("host.loop", a.loop.Run)
	}
	if a.flag != nil {
		a.sup.GoRestart("presence.watch", time.Second, 30*time.Second, a.flag.Watch)
	}
	if a.store != nil {
		rec := journal.NewRecorder(a.store, a.bus, a.logs.Logger())
		a.sup.Go("journal.recorder", rec.Run)
	}
	a.sup.Go0("eventbus.log", a.logEvents)

	if err := a.sched.Initialize(a.cfg.Sounds.Dir, a.powered); err != nil {
		// Initialize already logged and rolled back; stop the support goroutines.
		_ = a.Stop(context.Background())
		return err
	}

	if a.ann != nil {
		a.sup.Go("announce", a.ann.Run)
	}
	if a.debug != nil {
		a.sup.GoRestart("debug.http", time.Second, 30*time.Second, a.debug.Run)
	}
	if a.cfgm != nil {
		a.cfgm.SetValidator(a.validate)
		a.sup.Go("config.watch", a.cfgm.Watch)
		a.sup.Go0("config.reload", a.reloadLoop)
	}
	if d := systemd.WatchdogInterval(); d > 0 {
		a.sup.Go("systemd.watchdog", func(c context.Context) error {
			return systemd.Watchdog(c, d, a.sched.Initialized)
		})
	}

	_ = systemd.Ready()
	_ = systemd.Status("sounds=%s ticker=%s", a.cfg.Sounds.Dir, a.cfg.TickerMode())
	a.log.Info("advisory voice ready",
		logx.String("sounds", a.cfg.Sounds.Dir),
		logx.String("ticker", a.cfg.TickerMode()),
		logx.String("presence", a.cfg.PresenceMode()),
	)
	return nil
}

// Request queues an advisory by name, file name or numeric id.
func (a *App) Request(name string) (advisory.Message, error) {
	m, err := advisory.ParseMessage(name)
	if err != nil {
		return m, err
	}
	a.sched.Request(m)
	return m, nil
}

// Stop tears down the scheduler, then the support goroutines. It is safe
// to call more than once.
func (a *App) Stop(ctx context.Context) error {
	var err error
	a.stopOnce.Do(func() {
		_ = systemd.Stopping()
		st := a.sched.Stats()
		a.log.Info("advisory voice stopping",
			logx.Uint64("ticks", st.Ticks),
			logx.Uint64("dispatched", st.Dispatched),
			logx.Uint64("superseded", st.Superseded),
		)
		err = a.shutdown(ctx)
	})
	return err
}

func (a *App) shutdown(ctx context.Context) error {
	a.sched.Teardown()

	var err error
	if a.sup != nil {
		if serr := a.sup.Stop(ctx); serr != nil && !errors.Is(serr, context.Canceled) {
			err = serr
		}
	}
	if a.store != nil {
		if cerr := a.store.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}
	_ = a.logs.Close()
	return err
}

func (a *App) logEvents(ctx context.Context) {
	events, unsub := a.bus.Subscribe(64)
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-events:
			a.log.Debug("event", logx.String("type", e.Type), logx.Any("data", e.Data))
		}
	}
}
