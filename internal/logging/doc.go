// Package logging provides structured logging with per-module log level
// configuration.
//
// The logging system uses Go's slog package with automatic output routing:
//   - Logs to systemd journal when available (Linux systems with journald)
//   - Logs to stdout when a terminal, pipe, or file is connected
//   - Always mirrors entries into an in-memory ring buffer, served by the
//     status API's /api/logs endpoint
//
// Initialize once at startup:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"render": "debug",
//			"conn":   "warn",
//		},
//	})
//
// Get a logger for your module:
//
//	logger := logging.GetLogger("conn")
//	logger.Info("Association started", "ssid", ssid)
//
// Module levels are backed by slog.LevelVar, so Reload can adjust them at
// runtime when the config file changes.
//
// When running as a systemd service:
//
//	journalctl -t stripd              # All stripd logs
//	journalctl -t stripd -f           # Follow live
//	journalctl -t stripd MODULE=conn  # Filter by module
package logging
