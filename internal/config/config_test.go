package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
)

// testOptions mirrors the shape of the daemon options struct.
type testOptions struct {
	Config string `help:"Config file path"`

	ControlAddr string `toml:"control.addr" env:"CONTROL_ADDR"`
	LedCount    int    `toml:"strip.led_count" env:"LED_COUNT"`
	HotspotSsid string `toml:"network.hotspot_ssid" env:"HOTSPOT_SSID"`
	JsonLogs    bool   `toml:"logging.json" env:"JSON_LOGS"`
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stripd.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadConfigFromTOML(t *testing.T) {
	path := writeTempConfig(t, `
[control]
addr = ":7700"

[strip]
led_count = 144

[network]
hotspot_ssid = "strip-setup"

[logging]
json = true
`)

	opts := &testOptions{Config: path}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.ControlAddr != ":7700" {
		t.Errorf("ControlAddr = %q, want :7700", opts.ControlAddr)
	}
	if opts.LedCount != 144 {
		t.Errorf("LedCount = %d, want 144", opts.LedCount)
	}
	if opts.HotspotSsid != "strip-setup" {
		t.Errorf("HotspotSsid = %q, want strip-setup", opts.HotspotSsid)
	}
	if !opts.JsonLogs {
		t.Error("JsonLogs = false, want true")
	}
}

func TestEnvOverridesTOML(t *testing.T) {
	path := writeTempConfig(t, `
[strip]
led_count = 60
`)

	t.Setenv("STRIPD_LED_COUNT", "30")

	opts := &testOptions{Config: path}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.LedCount != 30 {
		t.Errorf("LedCount = %d, want env override 30", opts.LedCount)
	}
}

func TestCLIFlagsBeatEnvAndTOML(t *testing.T) {
	path := writeTempConfig(t, `
[control]
addr = ":7700"

[strip]
led_count = 144
`)

	t.Setenv("STRIPD_CONTROL_ADDR", ":1111")

	cmd := &cobra.Command{Use: "stripd"}
	cmd.Flags().String("control-addr", ":7777", "")
	cmd.Flags().Int("led-count", 60, "")
	if err := cmd.Flags().Set("control-addr", ":9999"); err != nil {
		t.Fatalf("set flag: %v", err)
	}

	opts := &testOptions{Config: path, ControlAddr: ":9999", LedCount: 60}
	if err := LoadConfig(opts, cmd); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.ControlAddr != ":9999" {
		t.Errorf("ControlAddr = %q, want CLI value :9999 to survive file and env", opts.ControlAddr)
	}
	// A flag left at its default still loads from the file.
	if opts.LedCount != 144 {
		t.Errorf("LedCount = %d, want 144 from file", opts.LedCount)
	}
}

func TestMissingFileIsNotAnError(t *testing.T) {
	opts := &testOptions{Config: "/nonexistent/stripd.toml", LedCount: 60}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if opts.LedCount != 60 {
		t.Errorf("LedCount = %d, want untouched default 60", opts.LedCount)
	}
}

func TestLoadLoggingConfig(t *testing.T) {
	path := writeTempConfig(t, `
[logging]
level = "warn"
format = "json"
render = "debug"
`)

	cfg := LoadLoggingConfig(path)
	if cfg.Level != "warn" {
		t.Errorf("Level = %q, want warn", cfg.Level)
	}
	if cfg.Format != "json" {
		t.Errorf("Format = %q, want json", cfg.Format)
	}
	if cfg.Modules["render"] != "debug" {
		t.Errorf("Modules[render] = %q, want debug", cfg.Modules["render"])
	}
}
