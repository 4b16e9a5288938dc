package sched

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"tcasvoice/internal/advisory"
	"tcasvoice/internal/audio"
	"tcasvoice/internal/eventbus"
	logx "tcasvoice/pkg/logx"
)

// Config wires a Scheduler to its collaborators.
type Config struct {
	Backend audio.Backend
	Ticker  Ticker
	// Bus receives dispatch and gate events. Optional.
	Bus eventbus.Bus
	Log logx.Logger
}

// Scheduler owns the advisory table, the request slot and the mute gate.
type Scheduler struct {
	backend audio.Backend
	ticker  Ticker
	bus     eventbus.Bus
	log     logx.Logger
	// warn throttles failures that would otherwise repeat every tick.
	warn logx.Logger

	// mu serializes Initialize and Teardown.
	mu          sync.Mutex
	initialized atomic.Bool

	// tickMu guards everything the tick body touches.
	tickMu  sync.Mutex
	table   table
	gate    Gate
	powered func() bool

	slot       *Slot
	ticks      atomic.Uint64
	dispatched atomic.Uint64
	soundOn    atomic.Bool
}

// Stats is a point-in-time view of a Scheduler.
type Stats struct {
	Initialized  bool   `json:"initialized"`
	SoundEnabled bool   `json:"sound_enabled"`
	Ticks        uint64 `json:"ticks"`
	Dispatched   uint64 `json:"dispatched"`
	Superseded   uint64 `json:"superseded"`
}

func New(cfg Config) *Scheduler {
	if cfg.Backend == nil {
		panic("sched: nil backend")
	}
	if cfg.Ticker == nil {
		cfg.Ticker = NewThreadTicker(DefaultInterval, cfg.Log)
	}
	log := cfg.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	log = log.With(logx.String("comp", "snd_sys"))
	return &Scheduler{
		backend: cfg.Backend,
		ticker:  cfg.Ticker,
		bus:     cfg.Bus,
		log:     log,
		warn:    logx.Limited(log, time.Second, 1),
		slot:    newSlot(),
	}
}

// Initialize starts the backend, loads every advisory from dir and starts
// ticking. powered is evaluated once per tick; while it reports false every
// message is muted.
//
// It returns an error wrapping ErrBackendInit or a *LoadError; in both
// cases nothing stays allocated. Calling Initialize on an initialized
// Scheduler panics.
func (s *Scheduler) Initialize(dir string, powered func() bool) error {
	if powered == nil {
		panic("sched: nil powered predicate")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized.Load() {
		panic("sched: Initialize called while initialized")
	}
	s.log.Info("sound system init", logx.String("dir", dir))

	// No backend calls before this.
	if err := s.backend.Init(); err != nil {
		s.log.Error("audio backend init failed", logx.Err(err))
		return fmt.Errorf("%w: %w", ErrBackendInit, err)
	}

	s.tickMu.Lock()
	err := s.table.load(s.backend, dir)
	if err == nil {
		s.gate = newGate()
		s.powered = powered
		s.slot.clear()
		s.soundOn.Store(true)
	}
	s.tickMu.Unlock()
	if err != nil {
		s.log.Error("advisory load failed; rolled back", logx.Err(err))
		s.backend.Shutdown()
		return err
	}

	if err := s.ticker.Start(s.tick); err != nil {
		s.tickMu.Lock()
		s.table.free(s.backend)
		s.powered = nil
		s.tickMu.Unlock()
		s.soundOn.Store(false)
		s.backend.Shutdown()
		return fmt.Errorf("start ticker: %w", err)
	}

	s.initialized.Store(true)
	return nil
}

// Teardown stops ticking, frees every advisory and shuts the backend down.
// It is a no-op when not initialized.
func (s *Scheduler) Teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized.Load() {
		return
	}
	s.log.Info("sound system fini")

	// Blocks until no tick is or will be in flight.
	s.ticker.Stop()

	s.tickMu.Lock()
	s.table.free(s.backend)
	s.powered = nil
	s.slot.clear()
	s.tickMu.Unlock()

	// No backend calls after this.
	s.backend.Shutdown()
	s.soundOn.Store(false)
	s.initialized.Store(false)
}

// Request asks for m to be played on the next tick, replacing any request
// not yet consumed. It is safe to call from any goroutine. An id outside
// the catalogue panics.
func (s *Scheduler) Request(m advisory.Message) {
	if !m.Valid() {
		panic(fmt.Sprintf("sched: invalid advisory message %d", int(m)))
	}
	s.slot.Put(m)
}

// Initialized reports whether the Scheduler is between Initialize and Teardown.
func (s *Scheduler) Initialized() bool { return s.initialized.Load() }

// Ticks returns the number of tick bodies executed so far.
func (s *Scheduler) Ticks() uint64 { return s.ticks.Load() }

func (s *Scheduler) Stats() Stats {
	return Stats{
		Initialized:  s.initialized.Load(),
		SoundEnabled: s.soundOn.Load(),
		Ticks:        s.ticks.Load(),
		Dispatched:   s.dispatched.Load(),
		Superseded:   s.slot.Superseded(),
	}
}

// tick is the shared body run by every Ticker.
func (s *Scheduler) tick() {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	if s.powered == nil {
		return
	}
	n := s.ticks.Add(1)

	if m, ok := s.slot.Take(); ok {
		s.backend.Play(s.table.handle(m))
		s.dispatched.Add(1)
		s.log.Debug("advisory dispatched", logx.String("msg", m.String()), logx.Bool("audible", s.gate.Enabled()))
		s.publish(EventDispatched, Dispatch{Message: m, Audible: s.gate.Enabled(), Tick: n})
	}

	// Muting must track the predicate even while idle.
	if s.gate.Refresh(s.poweredNow, func(g float32) { s.table.setGain(s.backend, g) }) {
		on := s.gate.Enabled()
		s.soundOn.Store(on)
		typ := EventMuted
		if on {
			typ = EventUnmuted
		}
		s.log.Debug("advisory gate changed", logx.Bool("sound_on", on))
		s.publish(typ, GateChange{Enabled: on, Tick: n})
	}
}

// poweredNow evaluates the predicate. A panicking predicate keeps the gate
// where it is, so the tick cadence and the gains do not change.
func (s *Scheduler) poweredNow() (on bool) {
	defer func() {
		if p := recover(); p != nil {
			s.warn.Warn("powered predicate panicked", logx.String("panic", fmt.Sprint(p)))
			on = s.gate.Enabled()
		}
	}()
	return s.powered()
}

func (s *Scheduler) publish(typ string, data any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.Event{Type: typ, Time: time.Now(), Data: data})
}
