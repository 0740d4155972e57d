// Package metrics exposes the device's operational counters in Prometheus
// format on the status API's /metrics endpoint.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Set bundles all device metrics on a private registry.
type Set struct {
	registry *prometheus.Registry

	ticks           prometheus.Counter
	renders         prometheus.Counter
	renderDuration  prometheus.Histogram
	commands        *prometheus.CounterVec
	audioFrames     *prometheus.CounterVec
	beats           prometheus.Counter
	connectionState *prometheus.GaugeVec
	sessions        prometheus.Gauge
}

// New creates and registers the full metric set.
func New() *Set {
	registry := prometheus.NewRegistry()

	s := &Set{
		registry: registry,
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stripd_scheduler_ticks_total",
			Help: "Render scheduler wakeups.",
		}),
		renders: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stripd_renders_total",
			Help: "Frames rendered and flushed to the strip.",
		}),
		renderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stripd_render_duration_seconds",
			Help:    "Time spent rendering and flushing one frame.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 10),
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stripd_commands_total",
			Help: "Protocol commands by opcode and result.",
		}, []string{"opcode", "result"}),
		audioFrames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stripd_audio_frames_total",
			Help: "Audio frames by result (accepted, dropped).",
		}, []string{"result"}),
		beats: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stripd_beats_total",
			Help: "Beats flagged by the audio feature processor.",
		}),
		connectionState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stripd_connection_state",
			Help: "Current connection state (1 for the active state).",
		}, []string{"state"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stripd_control_sessions",
			Help: "Open control protocol sessions.",
		}),
	}

	registry.MustRegister(
		s.ticks, s.renders, s.renderDuration,
		s.commands, s.audioFrames, s.beats,
		s.connectionState, s.sessions,
	)

	return s
}

// Handler returns the HTTP handler serving the registry.
func (s *Set) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

// TickObserved counts one scheduler wakeup.
func (s *Set) TickObserved() {
	s.ticks.Inc()
}

// RenderObserved counts one flushed frame and its duration.
func (s *Set) RenderObserved(d time.Duration) {
	s.renders.Inc()
	s.renderDuration.Observe(d.Seconds())
}

// CommandHandled counts one protocol command.
func (s *Set) CommandHandled(opcode byte, result string) {
	s.commands.WithLabelValues(opcodeLabel(opcode), result).Inc()
}

// AudioFrame counts one audio frame outcome.
func (s *Set) AudioFrame(result string) {
	s.audioFrames.WithLabelValues(result).Inc()
}

// BeatDetected counts one beat.
func (s *Set) BeatDetected() {
	s.beats.Inc()
}

// SetConnectionState marks the active connection state gauge.
func (s *Set) SetConnectionState(state string) {
	s.connectionState.Reset()
	s.connectionState.WithLabelValues(state).Set(1)
}

// SessionOpened increments the open-session gauge.
func (s *Set) SessionOpened() {
	s.sessions.Inc()
}

// SessionClosed decrements the open-session gauge.
func (s *Set) SessionClosed() {
	s.sessions.Dec()
}

func opcodeLabel(op byte) string {
	switch op {
	case 0x01:
		return "set_color"
	case 0x02:
		return "set_mode"
	case 0x03:
		return "set_brightness"
	case 0x04:
		return "audio_frame"
	case 0xFF:
		return "reconfigure"
	default:
		return "unknown"
	}
}
