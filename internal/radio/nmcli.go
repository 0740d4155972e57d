package radio

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// nmcli implements Radio on top of NetworkManager's CLI.
type nmcli struct {
	iface  string
	logger *slog.Logger
}

// newNmcli creates an nmcli-backed radio for the given wireless interface.
func newNmcli(iface string, logger *slog.Logger) *nmcli {
	return &nmcli{iface: iface, logger: logger}
}

// StartHotspot brings up the setup hotspot.
func (n *nmcli) StartHotspot(ssid string) error {
	out, err := exec.Command("nmcli", "device", "wifi", "hotspot",
		"ifname", n.iface, "con-name", "stripd-hotspot", "ssid", ssid).CombinedOutput()
	if err != nil {
		return fmt.Errorf("radio: start hotspot: %w: %s", err, strings.TrimSpace(string(out)))
	}
	n.logger.Info("Hotspot started", "ssid", ssid, "iface", n.iface)
	return nil
}

// StopHotspot tears the setup hotspot down.
func (n *nmcli) StopHotspot() error {
	out, err := exec.Command("nmcli", "connection", "down", "stripd-hotspot").CombinedOutput()
	if err != nil {
		return fmt.Errorf("radio: stop hotspot: %w: %s", err, strings.TrimSpace(string(out)))
	}
	n.logger.Info("Hotspot stopped")
	return nil
}

// Join associates with the given network as a client.
func (n *nmcli) Join(ctx context.Context, ssid, password string) error {
	args := []string{"device", "wifi", "connect", ssid, "ifname", n.iface}
	if password != "" {
		args = append(args, "password", password)
	}

	out, err := exec.CommandContext(ctx, "nmcli", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("radio: join %q: %w: %s", ssid, err, strings.TrimSpace(string(out)))
	}
	n.logger.Info("Joined network", "ssid", ssid)
	return nil
}

// Address returns the interface's IPv4 address.
func (n *nmcli) Address() (string, error) {
	out, err := exec.Command("nmcli", "-g", "IP4.ADDRESS", "device", "show", n.iface).Output()
	if err != nil {
		return "", fmt.Errorf("radio: address: %w", err)
	}

	// nmcli reports CIDR notation, one address per line.
	addr := strings.TrimSpace(strings.SplitN(string(out), "\n", 2)[0])
	if i := strings.IndexByte(addr, '/'); i > 0 {
		addr = addr[:i]
	}
	if addr == "" {
		return "", fmt.Errorf("radio: no address on %s", n.iface)
	}
	return addr, nil
}
