package radio

import (
	"context"
	"log/slog"
)

// noop implements Radio as a no-op for hosts without a managed wireless
// interface. Join always succeeds so the rest of the pipeline can be
// exercised on a bench machine.
type noop struct {
	logger *slog.Logger
}

// NewNoop creates a no-op radio.
func NewNoop(logger *slog.Logger) Radio {
	return &noop{logger: logger}
}

// StartHotspot logs the request.
func (n *noop) StartHotspot(ssid string) error {
	n.logger.Debug("Radio not available (no-op)", "op", "start_hotspot", "ssid", ssid)
	return nil
}

// StopHotspot logs the request.
func (n *noop) StopHotspot() error {
	n.logger.Debug("Radio not available (no-op)", "op", "stop_hotspot")
	return nil
}

// Join pretends the association succeeded.
func (n *noop) Join(ctx context.Context, ssid, password string) error {
	n.logger.Debug("Radio not available (no-op)", "op", "join", "ssid", ssid)
	return nil
}

// Address returns the loopback address.
func (n *noop) Address() (string, error) {
	return "127.0.0.1", nil
}
