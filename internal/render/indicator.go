package render

import (
	"time"

	"github.com/mstrov/stripd/internal/strip"
)

// Connection-state indicator animations. These take over the whole strip
// while the device is not in steady operation so the user can read the
// network state off the hardware: amber breathing while the setup hotspot
// is up, a blue chase while associating, and a green blink until the first
// light-control command arrives.

var (
	indicatorAmber = strip.RGB{R: 255, G: 120}
	indicatorBlue  = strip.RGB{B: 255}
	indicatorGreen = strip.RGB{G: 255}
)

// breathingIndicator ramps the color up and down on a triangle wave.
type breathingIndicator struct {
	color  strip.RGB
	period time.Duration
	phase  time.Duration
}

func newBreathingIndicator(color strip.RGB, period time.Duration) *breathingIndicator {
	return &breathingIndicator{color: color, period: period}
}

func (b *breathingIndicator) Render(buf []strip.RGB, elapsed time.Duration) {
	b.phase = (b.phase + elapsed) % b.period

	half := b.period / 2
	var level time.Duration
	if b.phase < half {
		level = b.phase * 255 / half
	} else {
		level = (b.period - b.phase) * 255 / half
	}
	fill(buf, strip.Scale(b.color, uint8(level)))
}

func (b *breathingIndicator) Reset() {
	b.phase = 0
}

// chaseIndicator runs a short lit segment along the strip with a dim tail.
type chaseIndicator struct {
	color strip.RGB
	speed time.Duration // time per pixel step
	acc   time.Duration
	head  int
}

func newChaseIndicator(color strip.RGB, speed time.Duration) *chaseIndicator {
	return &chaseIndicator{color: color, speed: speed}
}

func (c *chaseIndicator) Render(buf []strip.RGB, elapsed time.Duration) {
	n := len(buf)
	if n == 0 {
		return
	}

	c.acc += elapsed
	for c.acc >= c.speed {
		c.acc -= c.speed
		c.head = (c.head + 1) % n
	}

	fill(buf, strip.RGB{})
	const tail = 4
	for i := 0; i <= tail; i++ {
		pos := (c.head - i + n) % n
		buf[pos] = strip.Scale(c.color, uint8(255>>uint(i)))
	}
}

func (c *chaseIndicator) Reset() {
	c.acc = 0
	c.head = 0
}

// blinkIndicator toggles the whole strip on and off.
type blinkIndicator struct {
	color  strip.RGB
	period time.Duration
	phase  time.Duration
}

func newBlinkIndicator(color strip.RGB, period time.Duration) *blinkIndicator {
	return &blinkIndicator{color: color, period: period}
}

func (b *blinkIndicator) Render(buf []strip.RGB, elapsed time.Duration) {
	b.phase = (b.phase + elapsed) % b.period
	if b.phase < b.period/2 {
		fill(buf, b.color)
	} else {
		fill(buf, strip.RGB{})
	}
}

func (b *blinkIndicator) Reset() {
	b.phase = 0
}
