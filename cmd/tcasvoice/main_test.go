package main

import (
	"testing"
	"time"

	"tcasvoice/internal/audio/wav"
	"tcasvoice/internal/config"
)

func TestPlayWaitFollowsTickInterval(t *testing.T) {
	t.Parallel()

	clip := &wav.Clip{SampleRate: 8000, NumChannels: 1, Samples: make([]int16, 4000)}
	tests := []struct {
		interval string
		want     time.Duration
	}{
		{"", 600 * time.Millisecond},
		{"200ms", 900 * time.Millisecond},
		{"10ms", 520 * time.Millisecond},
	}
	for _, tt := range tests {
		cfg := config.Default()
		cfg.Ticker.Interval = tt.interval
		got, err := playWait(cfg, clip)
		if err != nil {
			t.Fatalf("interval %q: %v", tt.interval, err)
		}
		if got != tt.want {
			t.Fatalf("interval %q: wait = %v, want %v", tt.interval, got, tt.want)
		}
	}

	cfg := config.Default()
	cfg.Ticker.Interval = "soon"
	if _, err := playWait(cfg, clip); err == nil {
		t.Fatal("expected error for invalid interval")
	}
}
