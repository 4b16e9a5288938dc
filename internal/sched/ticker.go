package sched

import (
	"context"
	"errors"
	"sync"
	"time"

	"tcasvoice/internal/host"
	"tcasvoice/internal/supervisor"
	logx "tcasvoice/pkg/logx"
)

// DefaultInterval is the tick period used when none is configured.
const DefaultInterval = 50 * time.Millisecond

var errTickerRunning = errors.New("ticker already running")

// Ticker drives a tick body periodically. Implementations never run two
// bodies concurrently, and Stop returns only once no body is running or
// will run.
type Ticker interface {
	Start(body func()) error
	Stop()
}

// Host is the host application's periodic callback facility.
type Host interface {
	Register(name string, cb host.Callback, initial host.Rearm) host.ID
	Unregister(id host.ID)
}

// HostTicker runs the tick body from a host-owned frame loop.
type HostTicker struct {
	host  Host
	rearm host.Rearm

	mu     sync.Mutex
	id     host.ID
	active bool
}

// NewHostTicker re-arms the callback every interval; an interval of zero
// asks for every host frame.
func NewHostTicker(h Host, interval time.Duration) *HostTicker {
	return &HostTicker{host: h, rearm: host.Every(interval)}
}

func (t *HostTicker) Start(body func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active {
		return errTickerRunning
	}
	rearm := t.rearm
	t.id = t.host.Register("advisory.tick", func(time.Duration, uint64) host.Rearm {
		body()
		return rearm
	}, host.NextFrame)
	t.active = true
	return nil
}

func (t *HostTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.active {
		return
	}
	t.host.Unregister(t.id)
	t.active = false
}

// ThreadTicker owns a background goroutine that runs the tick body, then
// sleeps for the interval or until stopped.
type ThreadTicker struct {
	interval time.Duration
	log      logx.Logger

	mu  sync.Mutex
	sup *supervisor.Supervisor
}

func NewThreadTicker(interval time.Duration, log logx.Logger) *ThreadTicker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &ThreadTicker{interval: interval, log: log}
}

func (t *ThreadTicker) Start(body func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sup != nil {
		return errTickerRunning
	}
	t.sup = supervisor.New(context.Background(), supervisor.WithLogger(t.log))
	// A panicking body is restarted; the loop itself only exits on Stop.
	t.sup.GoRestart("advisory.tick", t.interval, time.Second, func(ctx context.Context) error {
		wait := time.NewTimer(t.interval)
		defer wait.Stop()
		for ctx.Err() == nil {
			body()
			wait.Reset(t.interval)
			select {
			case <-ctx.Done():
			case <-wait.C:
			}
		}
		return nil
	})
	return nil
}

// Stop cancels the worker and waits for it to exit.
func (t *ThreadTicker) Stop() {
	t.mu.Lock()
	sup := t.sup
	t.sup = nil
	t.mu.Unlock()
	if sup == nil {
		return
	}
	_ = sup.Stop(context.Background())
}
