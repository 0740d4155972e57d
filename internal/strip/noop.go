package strip

import "log/slog"

// noop implements Strip as a no-op for hosts without the hardware.
type noop struct {
	logger *slog.Logger
}

// newNoop creates a new no-op strip.
func newNoop(logger *slog.Logger) *noop {
	return &noop{logger: logger}
}

// Flush discards the buffer.
func (n *noop) Flush(buf []RGB) error {
	return nil
}

// Close is a no-op.
func (n *noop) Close() error {
	return nil
}
