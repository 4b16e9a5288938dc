package sched

import "testing"

func TestGateTransitions(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		start   bool
		powered bool
		changed bool
		gain    float32
	}{
		{name: "on stays on", start: true, powered: true},
		{name: "mute", start: true, powered: false, changed: true, gain: 0},
		{name: "off stays off", start: false, powered: false},
		{name: "unmute", start: false, powered: true, changed: true, gain: 1},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			g := Gate{enabled: tt.start}
			calls, writes := 0, 0
			var gain float32 = -1
			changed := g.Refresh(func() bool { calls++; return tt.powered }, func(v float32) { writes++; gain = v })
			if calls != 1 {
				t.Fatalf("predicate called %d times, want 1", calls)
			}
			if changed != tt.changed {
				t.Fatalf("changed = %v, want %v", changed, tt.changed)
			}
			if g.Enabled() != tt.powered {
				t.Fatalf("Enabled = %v, want %v", g.Enabled(), tt.powered)
			}
			if !tt.changed && writes != 0 {
				t.Fatalf("unchanged predicate wrote gains %d times", writes)
			}
			if tt.changed && gain != tt.gain {
				t.Fatalf("gain = %v, want %v", gain, tt.gain)
			}
		})
	}
}
