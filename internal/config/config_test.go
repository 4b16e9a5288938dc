package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDecodeYAMLKeepsDefaults(t *testing.T) {
	t.Parallel()

	src := `
sounds:
  dir: /opt/tcas/sounds
ticker:
  mode: host
presence:
  mode: file
  path: /run/tcas/powered
journal:
  driver: sqlite
  path: /var/lib/tcas/journal.db
announcements:
  - name: selftest
    schedule: "@every 1h"
    message: traffic
`
	cfg, err := Decode("tcas.yaml", []byte(src))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if cfg.Sounds.Dir != "/opt/tcas/sounds" {
		t.Fatalf("sounds.dir=%q", cfg.Sounds.Dir)
	}
	if cfg.TickerMode() != TickerHost {
		t.Fatalf("ticker mode=%q", cfg.TickerMode())
	}
	if d, _ := cfg.TickInterval(); d != 50*time.Millisecond {
		t.Fatalf("interval=%v want 50ms default", d)
	}
	if d, _ := cfg.HostFrame(); d != 20*time.Millisecond {
		t.Fatalf("host frame=%v want 20ms default", d)
	}
	if cfg.Logging.Level != "info" || !cfg.Logging.Console {
		t.Fatalf("logging defaults lost: %+v", cfg.Logging)
	}
	if jc := cfg.JournalConfig(); jc.Driver != "sqlite" || jc.Path != "/var/lib/tcas/journal.db" {
		t.Fatalf("journal=%+v", jc)
	}
	entries, err := cfg.AnnouncementEntries()
	if err != nil || len(entries) != 1 || entries[0].Name != "selftest" {
		t.Fatalf("announcements=%+v err=%v", entries, err)
	}
}

func TestDecodeRejects(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		file string
		src  string
		want string
	}{
		{"unknown field", "c.json", `{"sounds":{"dir":"x"},"volume":3}`, "unknown field"},
		{"trailing data", "c.json", `{} {}`, "trailing data"},
		{"bad ticker mode", "c.json", `{"ticker":{"mode":"irq"}}`, "ticker.mode"},
		{"bad interval", "c.json", `{"ticker":{"interval":"soon"}}`, "ticker.interval"},
		{"negative frame", "c.json", `{"ticker":{"host_frame":"-1s"}}`, "ticker.host_frame"},
		{"file presence without path", "c.yml", "presence:\n  mode: file\n", "presence.path"},
		{"empty sounds dir", "c.json", `{"sounds":{"dir":" "}}`, "sounds.dir"},
		{"bad announcement", "c.json", `{"announcements":[{"name":"x","schedule":"@every 1m","message":"boom"}]}`, "announcements[0]"},
		{"bad yaml", "c.yaml", "sounds: [", "yaml"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Decode(tc.file, []byte(tc.src))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err=%q want substring %q", err, tc.want)
			}
		})
	}
}

func TestExampleConfigDecodes(t *testing.T) {
	t.Parallel()

	cfg, err := NewManager(filepath.Join("..", "..", "config.example.yaml")).Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.JournalConfig().Driver != "sqlite" || cfg.Debug == nil || len(cfg.Announcements) != 1 {
		t.Fatalf("unexpected cfg %+v", cfg)
	}
}

func TestEmptyYAMLIsDefault(t *testing.T) {
	t.Parallel()

	cfg, err := Decode("empty.yaml", nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if cfg.Sounds.Dir != Default().Sounds.Dir || cfg.PresenceMode() != PresenceAlways {
		t.Fatalf("unexpected cfg %+v", cfg)
	}
}

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestPublishDropsOldest(t *testing.T) {
	t.Parallel()

	m := NewManager("unused.json")
	ch := m.Subscribe(1)
	a, b := Default(), Default()
	b.Logging.Level = "debug"

	m.publish(a)
	m.publish(b)
	if got := <-ch; got != b {
		t.Fatalf("expected newest config to survive")
	}

	m.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Fatalf("channel should be closed after Unsubscribe")
	}
	m.publish(a) // must not panic on the closed channel
}

func TestWatchPublishesChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tcas.json")
	writeFile(t, path, `{"logging":{"level":"info"}}`)

	m := NewManager(path)
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	ch := m.Subscribe(4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = m.Watch(ctx)
		close(done)
	}()

	// Give the watcher a moment to register the directory.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, path, `{"logging":{"level":"debug"}}`)

	select {
	case cfg := <-ch:
		if cfg.Logging.Level != "debug" {
			t.Fatalf("level=%q", cfg.Logging.Level)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no config published")
	}
	if m.Get().Logging.Level != "debug" {
		t.Fatalf("Get did not return committed config")
	}

	// Invalid content is not committed.
	writeFile(t, path, `{"logging":`)
	time.Sleep(reloadDebounce + 200*time.Millisecond)
	if m.Get().Logging.Level != "debug" {
		t.Fatalf("invalid config replaced committed one")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Watch did not return after cancel")
	}
}

func TestWatchValidatorRejects(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tcas.yaml")
	writeFile(t, path, "logging:\n  level: info\n")

	m := NewManager(path)
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	rejected := make(chan struct{}, 1)
	m.SetValidator(func(ctx context.Context, cfg *Config) error {
		select {
		case rejected <- struct{}{}:
		default:
		}
		return context.Canceled
	})
	ch := m.Subscribe(1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Watch(ctx) }()

	time.Sleep(100 * time.Millisecond)
	writeFile(t, path, "logging:\n  level: warn\n")

	select {
	case <-rejected:
	case <-time.After(5 * time.Second):
		t.Fatalf("validator not called")
	}
	select {
	case <-ch:
		t.Fatalf("rejected config was published")
	case <-time.After(100 * time.Millisecond):
	}
	if m.Get().Logging.Level != "info" {
		t.Fatalf("rejected config committed")
	}
}

func TestSummarizeChange(t *testing.T) {
	t.Parallel()

	a := Default()
	b := Default()
	if got, _ := SummarizeChange(a, b); len(got) != 0 {
		t.Fatalf("identical configs reported %v", got)
	}

	b.Logging.Level = "debug"
	got, attrs := SummarizeChange(a, b)
	if len(got) != 1 || got[0] != "logging" || len(attrs) == 0 {
		t.Fatalf("got %v", got)
	}
	if RestartRequired(got) {
		t.Fatalf("logging change should apply live")
	}

	b.Ticker.Mode = TickerHost
	b.Announcements = []AnnouncementConfig{{Name: "x", Schedule: "@hourly", Message: "traffic"}}
	got, _ = SummarizeChange(a, b)
	if len(got) != 3 || !RestartRequired(got) {
		t.Fatalf("got %v", got)
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	t.Parallel()

	def := 50 * time.Millisecond
	tests := []struct {
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{"", def, false},
		{"  ", def, false},
		{"0s", def, false},
		{"75ms", 75 * time.Millisecond, false},
		{"-1ms", 0, true},
		{"fast", 0, true},
	}
	for _, tt := range tests {
		got, err := parseDurationOrDefault("ticker.interval", tt.raw, def)
		if (err != nil) != tt.wantErr {
			t.Fatalf("%q: err = %v, wantErr %v", tt.raw, err, tt.wantErr)
		}
		if err == nil && got != tt.want {
			t.Fatalf("%q: got %v, want %v", tt.raw, got, tt.want)
		}
	}
}
