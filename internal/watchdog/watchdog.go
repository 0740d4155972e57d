// Package watchdog services the systemd watchdog from the render tick loop.
// A stalled loop stops kicking and systemd restarts the process, which is
// the recovery path for a wedged strip or radio.
package watchdog

import (
	"log/slog"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Watchdog is kicked once per scheduler tick.
type Watchdog interface {
	Kick()
}

// systemdWatchdog rate-limits notifications to half the configured
// watchdog interval so per-tick kicks stay cheap.
type systemdWatchdog struct {
	interval time.Duration
	last     time.Time
	logger   *slog.Logger
}

// New returns a systemd-backed watchdog when WATCHDOG_USEC is set for this
// process, otherwise a no-op.
func New(logger *slog.Logger) Watchdog {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		logger.Info("Systemd watchdog not enabled")
		return noop{}
	}

	logger.Info("Systemd watchdog enabled", "interval", interval)
	return &systemdWatchdog{
		interval: interval / 2,
		logger:   logger,
	}
}

func (w *systemdWatchdog) Kick() {
	now := time.Now()
	if now.Sub(w.last) < w.interval {
		return
	}
	w.last = now

	if _, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog); err != nil {
		w.logger.Warn("Watchdog notify failed", "error", err)
	}
}

type noop struct{}

// NewNoop returns a watchdog that does nothing.
func NewNoop() Watchdog {
	return noop{}
}

func (noop) Kick() {}
