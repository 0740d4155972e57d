package render

import (
	"time"

	"github.com/mstrov/stripd/internal/audio"
	"github.com/mstrov/stripd/internal/strip"
)

// wheel maps a 0-255 position onto an R->G->B->R color circle.
func wheel(pos uint8) strip.RGB {
	switch {
	case pos < 85:
		return strip.RGB{R: 255 - pos*3, G: pos * 3}
	case pos < 170:
		pos -= 85
		return strip.RGB{G: 255 - pos*3, B: pos * 3}
	default:
		pos -= 170
		return strip.RGB{B: 255 - pos*3, R: pos * 3}
	}
}

func fill(buf []strip.RGB, c strip.RGB) {
	for i := range buf {
		buf[i] = c
	}
}

// staticRenderer paints the configured solid color.
type staticRenderer struct{}

func (r *staticRenderer) Render(ctx *Context, _ time.Duration) {
	fill(ctx.Buffer, ctx.StaticColor)
}

func (r *staticRenderer) Reset() {}

// rainbowRenderer cycles the color wheel along the strip, one full
// revolution roughly every five seconds.
type rainbowRenderer struct {
	phase time.Duration
}

const rainbowPeriod = 5 * time.Second

func (r *rainbowRenderer) Render(ctx *Context, elapsed time.Duration) {
	r.phase = (r.phase + elapsed) % rainbowPeriod
	offset := int(r.phase * 256 / rainbowPeriod)

	n := len(ctx.Buffer)
	for i := range ctx.Buffer {
		ctx.Buffer[i] = wheel(uint8((i*256/n + offset) & 0xff))
	}
}

func (r *rainbowRenderer) Reset() {
	r.phase = 0
}

// spectrumRenderer paints each audio band as a hue-coded segment whose
// intensity follows the smoothed band energy. The held peak is blended in
// as a white component so transients stay visible while the band decays.
type spectrumRenderer struct{}

func (r *spectrumRenderer) Render(ctx *Context, _ time.Duration) {
	bands := ctx.Audio.Bands()
	n := len(ctx.Buffer)

	for i := range ctx.Buffer {
		band := i * audio.NumBands / n
		b := bands[band]

		c := strip.Scale(wheel(uint8(band*256/audio.NumBands)), b.Value)
		if b.Peak > b.Value {
			w := (b.Peak - b.Value) / 4
			c.R = satAdd(c.R, w)
			c.G = satAdd(c.G, w)
			c.B = satAdd(c.B, w)
		}
		ctx.Buffer[i] = c
	}
}

func (r *spectrumRenderer) Reset() {}

func satAdd(a, b uint8) uint8 {
	s := uint16(a) + uint16(b)
	if s > 255 {
		return 255
	}
	return uint8(s)
}

// vuMeterRenderer lights the strip from the start proportionally to the
// mean energy, classic green/yellow/red zoning.
type vuMeterRenderer struct{}

func (r *vuMeterRenderer) Render(ctx *Context, _ time.Duration) {
	n := len(ctx.Buffer)
	lit := int(ctx.Audio.Mean()) * n / 255

	for i := range ctx.Buffer {
		if i >= lit {
			ctx.Buffer[i] = strip.RGB{}
			continue
		}
		switch pos := i * 100 / n; {
		case pos < 60:
			ctx.Buffer[i] = strip.RGB{G: 255}
		case pos < 85:
			ctx.Buffer[i] = strip.RGB{R: 255, G: 200}
		default:
			ctx.Buffer[i] = strip.RGB{R: 255}
		}
	}
}

func (r *vuMeterRenderer) Reset() {}

// pulseRenderer flashes the whole strip on a beat and decays toward black
// between beats. The flash color is the configured static color, falling
// back to white when none is set.
type pulseRenderer struct {
	level uint8
}

const pulseDecayPerSecond = 640 // full flash fades out in ~400ms

func (r *pulseRenderer) Render(ctx *Context, elapsed time.Duration) {
	if ctx.Audio.Beat() {
		r.level = 255
	} else if r.level > 0 {
		dec := int(elapsed * pulseDecayPerSecond / time.Second)
		if dec >= int(r.level) {
			r.level = 0
		} else {
			r.level -= uint8(dec)
		}
	}

	c := ctx.StaticColor
	if c == (strip.RGB{}) {
		c = strip.RGB{R: 255, G: 255, B: 255}
	}
	fill(ctx.Buffer, strip.Scale(c, r.level))
}

func (r *pulseRenderer) Reset() {
	r.level = 0
}
