package config

import (
	"reflect"

	logx "tcasvoice/pkg/logx"
)

// SummarizeChange returns the names of the top-level sections that differ
// between oldCfg and newCfg, plus log fields describing the new values.
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 8)
	attrs := make([]logx.Field, 0, 12)

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}
	if oldCfg.Sounds != newCfg.Sounds {
		changed = append(changed, "sounds")
		attrs = append(attrs, logx.String("sounds.dir", newCfg.Sounds.Dir))
	}
	if oldCfg.Ticker != newCfg.Ticker {
		changed = append(changed, "ticker")
		attrs = append(attrs,
			logx.String("ticker.mode", newCfg.TickerMode()),
			logx.String("ticker.interval", newCfg.Ticker.Interval),
		)
	}
	if oldCfg.Presence != newCfg.Presence {
		changed = append(changed, "presence")
		attrs = append(attrs, logx.String("presence.mode", newCfg.PresenceMode()))
	}
	if oldCfg.Output != newCfg.Output {
		changed = append(changed, "output")
		attrs = append(attrs, logx.String("output.path", newCfg.Output.Path))
	}
	if !reflect.DeepEqual(oldCfg.Journal, newCfg.Journal) {
		changed = append(changed, "journal")
		attrs = append(attrs, logx.String("journal.driver", newCfg.JournalConfig().Driver))
	}
	if !reflect.DeepEqual(oldCfg.Debug, newCfg.Debug) {
		changed = append(changed, "debug")
		// never log the token
		if newCfg.Debug != nil {
			attrs = append(attrs,
				logx.Bool("debug.enabled", newCfg.Debug.Enabled),
				logx.String("debug.addr", newCfg.Debug.Addr),
				logx.Bool("debug.token_set", newCfg.Debug.Token != ""),
			)
		}
	}
	if !reflect.DeepEqual(oldCfg.Announcements, newCfg.Announcements) {
		changed = append(changed, "announcements")
		attrs = append(attrs, logx.Int("announcements.count", len(newCfg.Announcements)))
	}
	return changed, attrs
}

// RestartRequired reports whether any section outside logging changed.
// Only logging is applied live.
func RestartRequired(sections []string) bool {
	for _, s := range sections {
		if s != "logging" {
			return true
		}
	}
	return false
}
