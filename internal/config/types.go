package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"tcasvoice/internal/announce"
	"tcasvoice/internal/journal"
	logx "tcasvoice/pkg/logx"
)

// Config is the daemon configuration file (JSON or YAML).
//
// All durations are Go duration strings (e.g. "50ms", "1s").
//
// Defaults (when fields are omitted/zero):
//   - sounds.dir: "./sounds"
//   - ticker.mode: "thread", ticker.interval: "50ms", ticker.host_frame: "20ms"
//   - presence.mode: "always"
//   - output.path: "none", output.realtime: false
//   - journal: disabled
type Config struct {
	Logging  LoggingConfig  `json:"logging"`
	Sounds   SoundsConfig   `json:"sounds"`
	Ticker   TickerConfig   `json:"ticker"`
	Presence PresenceConfig `json:"presence"`
	Output   OutputConfig   `json:"output"`

	Journal       *JournalConfig       `json:"journal,omitempty"`
	Debug         *DebugConfig         `json:"debug,omitempty"`
	Announcements []AnnouncementConfig `json:"announcements,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type SoundsConfig struct {
	Dir string `json:"dir"`
}

// TickerConfig selects how the scheduler tick is driven.
//
// Mode values:
//   - "thread": a goroutine owned by the scheduler
//   - "host": a callback registered with the embedded host frame loop
type TickerConfig struct {
	Mode      string `json:"mode"`
	Interval  string `json:"interval"`
	HostFrame string `json:"host_frame,omitempty"`
}

// PresenceConfig selects the powered predicate.
//
// Mode values: "always", "never", "file" (powered while Path exists).
type PresenceConfig struct {
	Mode string `json:"mode"`
	Path string `json:"path,omitempty"`
}

// OutputConfig selects the PCM sink: "-" (stdout), "none", or a file path.
type OutputConfig struct {
	Path     string `json:"path"`
	Realtime bool   `json:"realtime"`
}

type JournalConfig struct {
	Driver string `json:"driver"`
	Path   string `json:"path"`
}

// DebugConfig enables the HTTP stats/pprof endpoint. A non-loopback Addr
// requires Token.
type DebugConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"`
	Token   string `json:"token,omitempty"`
}

type AnnouncementConfig struct {
	Name     string `json:"name"`
	Schedule string `json:"schedule"`
	Message  string `json:"message"`
}

const (
	TickerThread = "thread"
	TickerHost   = "host"

	PresenceAlways = "always"
	PresenceNever  = "never"
	PresenceFile   = "file"
)

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Console: true},
		Sounds:  SoundsConfig{Dir: "./sounds"},
		Ticker:  TickerConfig{Mode: TickerThread, Interval: "50ms"},
		Presence: PresenceConfig{
			Mode: PresenceAlways,
		},
		Output: OutputConfig{Path: "none"},
	}
}

// Validate checks the whole config and returns every problem found.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Sounds.Dir) == "" {
		errs = append(errs, errors.New("sounds.dir is required"))
	}
	switch c.TickerMode() {
	case TickerThread, TickerHost:
	default:
		errs = append(errs, fmt.Errorf("ticker.mode: unknown mode %q", c.Ticker.Mode))
	}
	if _, err := c.TickInterval(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.HostFrame(); err != nil {
		errs = append(errs, err)
	}
	switch c.PresenceMode() {
	case PresenceAlways, PresenceNever:
	case PresenceFile:
		if strings.TrimSpace(c.Presence.Path) == "" {
			errs = append(errs, errors.New("presence.path is required for mode file"))
		}
	default:
		errs = append(errs, fmt.Errorf("presence.mode: unknown mode %q", c.Presence.Mode))
	}
	if _, err := c.AnnouncementEntries(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c *Config) TickerMode() string {
	m := strings.ToLower(strings.TrimSpace(c.Ticker.Mode))
	if m == "" {
		return TickerThread
	}
	return m
}

func (c *Config) TickInterval() (time.Duration, error) {
	return parseDurationOrDefault("ticker.interval", c.Ticker.Interval, 50*time.Millisecond)
}

func (c *Config) HostFrame() (time.Duration, error) {
	return parseDurationOrDefault("ticker.host_frame", c.Ticker.HostFrame, 20*time.Millisecond)
}

func (c *Config) PresenceMode() string {
	m := strings.ToLower(strings.TrimSpace(c.Presence.Mode))
	if m == "" {
		return PresenceAlways
	}
	return m
}

func (c *Config) LogConfig() logx.Config {
	return logx.Config{
		Level:   c.Logging.Level,
		Console: c.Logging.Console,
		File:    logx.FileConfig{Enabled: c.Logging.File.Enabled, Path: c.Logging.File.Path},
	}
}

func (c *Config) JournalConfig() journal.Config {
	if c.Journal == nil {
		return journal.Config{}
	}
	return journal.Config{Driver: c.Journal.Driver, Path: c.Journal.Path}
}

func (c *Config) AnnouncementEntries() ([]announce.Entry, error) {
	out := make([]announce.Entry, 0, len(c.Announcements))
	for i, a := range c.Announcements {
		e, err := announce.ParseEntry(a.Name, a.Schedule, a.Message)
		if err != nil {
			return nil, fmt.Errorf("announcements[%d]: %w", i, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// parseDurationOrDefault parses a Go duration string. Empty or zero means
// def; negative values are rejected. path names the field in errors.
func parseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	if d == 0 {
		return def, nil
	}
	return d, nil
}
