package host

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	logx "tcasvoice/pkg/logx"
)

func TestFrameDirectives(t *testing.T) {
	t.Parallel()
	l := NewLoop(10*time.Millisecond, logx.Nop())
	var every, second int
	l.Register("every", func(time.Duration, uint64) Rearm { every++; return NextFrame }, NextFrame)
	l.Register("second", func(time.Duration, uint64) Rearm { second++; return -2 }, -2)

	now := time.Now()
	for i := 0; i < 6; i++ {
		l.Step(now.Add(time.Duration(i) * 10 * time.Millisecond))
	}
	if every != 6 {
		t.Fatalf("every-frame callback ran %d times, want 6", every)
	}
	if second != 3 {
		t.Fatalf("every-second-frame callback ran %d times, want 3", second)
	}
}

func TestSecondsDirectiveAndStop(t *testing.T) {
	t.Parallel()
	l := NewLoop(10*time.Millisecond, logx.Nop())
	calls := 0
	var elapsed []time.Duration
	l.Register("timed", func(d time.Duration, _ uint64) Rearm {
		calls++
		elapsed = append(elapsed, d)
		if calls == 2 {
			return 0
		}
		return Every(50 * time.Millisecond)
	}, NextFrame)

	base := time.Now().Add(time.Second)
	l.Step(base)                             // first call
	l.Step(base.Add(20 * time.Millisecond))  // not due
	l.Step(base.Add(50 * time.Millisecond))  // second call, stops
	l.Step(base.Add(200 * time.Millisecond)) // removed
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
	if elapsed[1] != 50*time.Millisecond {
		t.Fatalf("elapsed = %v, want 50ms", elapsed[1])
	}
	if l.Registered() != 0 {
		t.Fatalf("callback returning 0 should be removed")
	}
}

func TestUnregisterStopsCalls(t *testing.T) {
	t.Parallel()
	l := NewLoop(time.Millisecond, logx.Nop())
	var n atomic.Int64
	id := l.Register("x", func(time.Duration, uint64) Rearm { n.Add(1); return NextFrame }, NextFrame)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { _ = l.Run(ctx); close(done) }()

	deadline := time.Now().Add(2 * time.Second)
	for n.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatal("loop did not run callbacks")
		}
		time.Sleep(time.Millisecond)
	}
	l.Unregister(id)
	after := n.Load()
	time.Sleep(20 * time.Millisecond)
	if got := n.Load(); got != after {
		t.Fatalf("callback ran after Unregister returned: %d -> %d", after, got)
	}
	cancel()
	<-done
}

func TestPanickingCallbackIsRescheduled(t *testing.T) {
	t.Parallel()
	l := NewLoop(time.Millisecond, logx.Nop())
	calls := 0
	l.Register("boom", func(time.Duration, uint64) Rearm {
		calls++
		panic("boom")
	}, NextFrame)
	now := time.Now()
	l.Step(now)
	l.Step(now)
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}
