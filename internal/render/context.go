// Package render owns the LED output path: the mode renderers, the
// connection-state indicator animations and the fixed-budget scheduler that
// drives them from a single goroutine.
package render

import (
	"errors"
	"time"

	"github.com/mstrov/stripd/internal/audio"
	"github.com/mstrov/stripd/internal/strip"
)

// ErrUnknownMode rejects a mode id with no registered renderer.
var ErrUnknownMode = errors.New("unknown mode")

// Mode identifies a visual mode.
type Mode uint8

const (
	// ModeStatic holds a single solid color.
	ModeStatic Mode = 0

	// ModeRainbow cycles a hue wheel along the strip.
	ModeRainbow Mode = 1

	// ModeSpectrum paints the 16 audio bands as colored segments.
	ModeSpectrum Mode = 2

	// ModeVUMeter fills the strip proportionally to mean energy.
	ModeVUMeter Mode = 3

	// ModePulse flashes on detected beats and decays between them.
	ModePulse Mode = 4
)

// AudioReactive reports whether the mode consumes the audio pipeline. The
// scheduler uses this both for the frame budget and to gate the per-tick
// processor pass.
func (m Mode) AudioReactive() bool {
	switch m {
	case ModeSpectrum, ModeVUMeter, ModePulse:
		return true
	}
	return false
}

// String returns the mode name used in logs, events and the status API.
func (m Mode) String() string {
	switch m {
	case ModeStatic:
		return "static"
	case ModeRainbow:
		return "rainbow"
	case ModeSpectrum:
		return "spectrum"
	case ModeVUMeter:
		return "vumeter"
	case ModePulse:
		return "pulse"
	default:
		return "unknown"
	}
}

// Context is the state a renderer paints from. The buffer is owned
// exclusively by the scheduler for the duration of the tick; renderers write
// into it and never retain it.
type Context struct {
	Mode        Mode
	Brightness  uint8
	StaticColor strip.RGB
	Buffer      []strip.RGB
	Audio       *audio.Processor
}

// Renderer paints one frame into the context buffer. Implementations may
// keep private animation state between frames; Reset clears it on mode
// change so nothing leaks across modes.
type Renderer interface {
	Render(ctx *Context, elapsed time.Duration)
	Reset()
}

// Registry maps mode ids to renderers.
type Registry struct {
	renderers map[Mode]Renderer
}

// NewRegistry creates a registry populated with the built-in renderers.
func NewRegistry() *Registry {
	r := &Registry{renderers: make(map[Mode]Renderer)}
	r.Register(ModeStatic, &staticRenderer{})
	r.Register(ModeRainbow, &rainbowRenderer{})
	r.Register(ModeSpectrum, &spectrumRenderer{})
	r.Register(ModeVUMeter, &vuMeterRenderer{})
	r.Register(ModePulse, &pulseRenderer{})
	return r
}

// Register installs a renderer for a mode, replacing any existing one.
func (r *Registry) Register(m Mode, ren Renderer) {
	r.renderers[m] = ren
}

// Lookup returns the renderer for a mode.
func (r *Registry) Lookup(m Mode) (Renderer, bool) {
	ren, ok := r.renderers[m]
	return ren, ok
}
