// Package host emulates the periodic callback facility of an embedding
// application (a simulator's per-frame processing loop).
//
// Callbacks are registered with an initial Rearm directive and return a new
// directive on every call:
//   - positive: call again after that many seconds
//   - negative: call again after that many frames (-1 is the next frame)
//   - zero: stop calling
//
// All callbacks run on the loop goroutine, one at a time.
package host

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	logx "tcasvoice/pkg/logx"
)

// Rearm is the directive a callback returns to schedule its next call.
type Rearm float32

// NextFrame asks for a call on the next frame.
const NextFrame Rearm = -1

// Every converts an interval into a Rearm directive.
func Every(d time.Duration) Rearm {
	if d <= 0 {
		return NextFrame
	}
	return Rearm(d.Seconds())
}

// Callback is invoked by the loop. elapsed is the time since the callback was
// last called (or registered); counter is the loop frame number.
type Callback func(elapsed time.Duration, counter uint64) Rearm

// ID identifies a registration.
type ID uint64

type registration struct {
	id     ID
	name   string
	cb     Callback
	last   time.Time
	nextAt time.Time // valid when frames == 0
	nextFr uint64    // valid when > 0
}

// Loop is a fixed-rate frame loop. Zero value is not usable; use NewLoop.
type Loop struct {
	frame time.Duration
	log   logx.Logger

	// mu is held for a whole frame, so Unregister returning means the
	// callback is not running and will not run again.
	mu      sync.Mutex
	regs    map[ID]*registration
	seq     ID
	counter uint64
}

func NewLoop(frame time.Duration, log logx.Logger) *Loop {
	if frame <= 0 {
		frame = 20 * time.Millisecond
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Loop{frame: frame, log: log.With(logx.String("comp", "host")), regs: map[ID]*registration{}}
}

// Frame returns the loop period.
func (l *Loop) Frame() time.Duration { return l.frame }

// Register schedules cb. An initial directive of zero is treated as NextFrame.
// Must not be called from inside a callback.
func (l *Loop) Register(name string, cb Callback, initial Rearm) ID {
	if cb == nil {
		panic("host: nil callback")
	}
	if initial == 0 {
		initial = NextFrame
	}
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	r := &registration{id: l.seq, name: name, cb: cb, last: now}
	l.schedule(r, initial, now)
	l.regs[r.id] = r
	l.log.Debug("callback registered", logx.String("name", name), logx.Uint64("id", uint64(r.id)))
	return r.id
}

// Unregister removes a callback. It blocks until any frame in progress has
// finished. Must not be called from inside a callback.
func (l *Loop) Unregister(id ID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if r, ok := l.regs[id]; ok {
		delete(l.regs, id)
		l.log.Debug("callback unregistered", logx.String("name", r.name), logx.Uint64("id", uint64(id)))
	}
}

// Registered reports the number of active callbacks.
func (l *Loop) Registered() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.regs)
}

// Run drives frames until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	t := time.NewTicker(l.frame)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-t.C:
			l.Step(now)
		}
	}
}

// Step runs one frame at the given time.
func (l *Loop) Step(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counter++

	due := make([]*registration, 0, len(l.regs))
	for _, r := range l.regs {
		if r.nextFr > 0 {
			if l.counter >= r.nextFr {
				due = append(due, r)
			}
			continue
		}
		if !now.Before(r.nextAt) {
			due = append(due, r)
		}
	}
	// Registration order keeps frames deterministic.
	sort.Slice(due, func(i, j int) bool { return due[i].id < due[j].id })

	for _, r := range due {
		next := l.call(r, now)
		r.last = now
		if next == 0 {
			delete(l.regs, r.id)
			l.log.Debug("callback finished", logx.String("name", r.name))
			continue
		}
		l.schedule(r, next, now)
	}
}

func (l *Loop) call(r *registration, now time.Time) (next Rearm) {
	defer func() {
		if p := recover(); p != nil {
			l.log.Error("callback panicked", logx.String("name", r.name), logx.String("panic", fmt.Sprint(p)))
			next = NextFrame
		}
	}()
	return r.cb(now.Sub(r.last), l.counter)
}

func (l *Loop) schedule(r *registration, d Rearm, now time.Time) {
	if d < 0 {
		r.nextFr = l.counter + uint64(-d)
		r.nextAt = time.Time{}
		return
	}
	r.nextFr = 0
	// Round to the microsecond; float32 seconds are not exact.
	r.nextAt = now.Add(time.Duration(math.Round(float64(d)*1e6)) * time.Microsecond)
}
