// Package systemd reports service state to the service manager through the
// sd_notify protocol. Every call is a no-op when not started by systemd.
package systemd

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

func notify(state string) error {
	_, err := daemon.SdNotify(false, state)
	return err
}

func Ready() error     { return notify(daemon.SdNotifyReady) }
func Stopping() error  { return notify(daemon.SdNotifyStopping) }
func Reloading() error { return notify(daemon.SdNotifyReloading) }

// Status sets the free-form status line shown by systemctl status.
func Status(format string, args ...any) error {
	return notify("STATUS=" + fmt.Sprintf(format, args...))
}

// WatchdogInterval returns how often Watchdog should ping, or 0 when the
// unit has no WatchdogSec.
func WatchdogInterval() time.Duration {
	d, err := daemon.SdWatchdogEnabled(false)
	if err != nil || d <= 0 {
		return 0
	}
	return d / 2
}

// Watchdog pings the watchdog every interval while alive reports true.
// It returns when ctx is done.
func Watchdog(ctx context.Context, interval time.Duration, alive func() bool) error {
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if alive == nil || alive() {
				if err := notify(daemon.SdNotifyWatchdog); err != nil {
					return err
				}
			}
		}
	}
}
