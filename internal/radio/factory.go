package radio

import (
	"log/slog"
	"os/exec"
)

// New returns an nmcli-backed radio when NetworkManager is present,
// otherwise the no-op implementation.
func New(iface string, logger *slog.Logger) Radio {
	if _, err := exec.LookPath("nmcli"); err != nil {
		logger.Info("nmcli not found, using no-op radio")
		return NewNoop(logger)
	}

	logger.Info("Using nmcli radio", "iface", iface)
	return newNmcli(iface, logger)
}
