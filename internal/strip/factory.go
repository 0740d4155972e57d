package strip

import "log/slog"

// New opens the strip at the given spidev path, falling back to the no-op
// implementation when the device is unavailable.
func New(path string, count int, logger *slog.Logger) Strip {
	if path == "" {
		logger.Info("No strip device configured, using no-op output")
		return newNoop(logger)
	}

	s, err := newSPI(path, count)
	if err != nil {
		logger.Warn("Strip device unavailable, using no-op output", "path", path, "error", err)
		return newNoop(logger)
	}

	logger.Info("Strip device opened", "path", path, "leds", count)
	return s
}
