package app

import (
	"context"
	"strings"

	"tcasvoice/internal/config"
	logx "tcasvoice/pkg/logx"
	"tcasvoice/pkg/systemd"
)

// validate rejects reloads whose sections cannot be mapped, so a bad edit
// never replaces the committed config.
func (a *App) validate(_ context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	_, err := cfg.AnnouncementEntries()
	return err
}

// reloadLoop applies logging changes live. Other sections are reported and
// take effect on the next restart.
func (a *App) reloadLoop(ctx context.Context) {
	sub := a.cfgm.Subscribe(8)
	defer a.cfgm.Unsubscribe(sub)

	applied := a.cfg
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-sub:
			if !ok {
				return
			}
			// Coalesce bursts: only the newest config matters.
		drain:
			for {
				select {
				case newer := <-sub:
					if newer != nil {
						cfg = newer
					}
				default:
					break drain
				}
			}
			a.apply(applied, cfg)
			applied = cfg
		}
	}
}

func (a *App) apply(old, cfg *config.Config) {
	sections, attrs := config.SummarizeChange(old, cfg)
	if len(sections) == 0 {
		a.log.Debug("config reload received, but no effective changes detected")
		return
	}
	_ = systemd.Reloading()
	defer func() { _ = systemd.Ready() }()

	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config change summary", fields...)

	for _, s := range sections {
		if s == "logging" {
			a.logs.Apply(cfg.LogConfig())
		}
	}
	if config.RestartRequired(sections) {
		a.log.Warn("config changed; restart required for changes to take effect", logx.String("changed", strings.Join(sections, ",")))
	}
}
