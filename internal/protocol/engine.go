package protocol

import (
	"log/slog"

	"github.com/mstrov/stripd/internal/audio"
	"github.com/mstrov/stripd/internal/events"
)

// Device is the surface the engine dispatches validated commands to.
// Implemented by the render scheduler.
type Device interface {
	SetColor(r, g, b uint8)
	SetMode(mode uint8) error
	SetBrightness(level uint8)
	// IngestAudio returns false when the frame was dropped (render in
	// flight). Drops are expected backpressure, not errors.
	IngestAudio(f audio.Frame) bool
	// Reconfigure persists the credentials and restarts association. An
	// error means persistence failed; association state is untouched.
	Reconfigure(ssid, password string) error
}

// Session is the transport context a message arrived on.
type Session interface {
	ID() string
	// HotspotContext reports whether the session was opened while the
	// device's setup hotspot was active.
	HotspotContext() bool
}

// Metrics is the subset of the metrics set the engine feeds.
type Metrics interface {
	CommandHandled(opcode byte, result string)
	AudioFrame(result string)
}

// Engine validates inbound messages and dispatches typed commands.
type Engine struct {
	dev     Device
	bus     *events.Bus
	metrics Metrics
	logger  *slog.Logger
}

// NewEngine creates a protocol engine over the given device.
func NewEngine(dev Device, bus *events.Bus, metrics Metrics, logger *slog.Logger) *Engine {
	return &Engine{dev: dev, bus: bus, metrics: metrics, logger: logger}
}

// Handle processes one complete message and returns the reply line to send
// back, or "" when the message produces no reply. Rejected messages leave
// all state untouched.
func (e *Engine) Handle(sess Session, msg []byte) string {
	var op byte
	if len(msg) > 0 {
		op = msg[0]
	}

	cmd, err := Parse(msg)
	if err != nil {
		e.metrics.CommandHandled(op, "rejected")
		e.logger.Debug("Rejected message", "session", sess.ID(), "opcode", op, "error", err)
		return "ERR:" + err.Error()
	}

	switch c := cmd.(type) {
	case SetColor:
		e.dev.SetColor(c.R, c.G, c.B)
		e.metrics.CommandHandled(op, "ok")
		return ""

	case SetMode:
		if modeErr := e.dev.SetMode(c.Mode); modeErr != nil {
			e.metrics.CommandHandled(op, "rejected")
			return "ERR:" + modeErr.Error()
		}
		e.metrics.CommandHandled(op, "ok")
		return ""

	case SetBrightness:
		e.dev.SetBrightness(c.Level)
		e.metrics.CommandHandled(op, "ok")
		return ""

	case AudioFrame:
		if e.dev.IngestAudio(c.Bands) {
			e.metrics.AudioFrame("accepted")
		} else {
			// Backpressure drop: silent on the wire by design.
			e.metrics.AudioFrame("dropped")
			e.bus.Publish(events.AudioFrameDroppedEvent{Reason: "render in flight"})
		}
		return ""

	case Reconfigure:
		if !sess.HotspotContext() {
			e.metrics.CommandHandled(op, "rejected")
			e.logger.Warn("Reconfigure refused outside hotspot context", "session", sess.ID())
			return "ERR:not in setup context"
		}
		if cfgErr := e.dev.Reconfigure(c.SSID, c.Password); cfgErr != nil {
			e.metrics.CommandHandled(op, "failed")
			e.logger.Error("Reconfigure failed", "session", sess.ID(), "error", cfgErr)
			return "FAIL:" + cfgErr.Error()
		}
		e.metrics.CommandHandled(op, "ok")
		e.bus.Publish(events.CredentialsSavedEvent{SSID: c.SSID})
		return "RECONFIG:" + c.SSID
	}

	return ""
}
