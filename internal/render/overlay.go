package render

import (
	"time"

	"github.com/mstrov/stripd/internal/strip"
)

// wipeOverlay is the connection-established animation: a green wipe runs
// once across the strip, then the buffer contents from before the overlay
// started are restored. While active it owns the buffer exclusively.
type wipeOverlay struct {
	saved []strip.RGB
	acc   time.Duration
	total time.Duration
}

const wipeDuration = time.Second

func newWipeOverlay(buf []strip.RGB) *wipeOverlay {
	saved := make([]strip.RGB, len(buf))
	copy(saved, buf)
	return &wipeOverlay{saved: saved, total: wipeDuration}
}

// Render paints one overlay frame. It returns true once the wipe has
// completed and the prior buffer contents have been restored.
func (o *wipeOverlay) Render(buf []strip.RGB, elapsed time.Duration) bool {
	o.acc += elapsed
	if o.acc >= o.total {
		copy(buf, o.saved)
		return true
	}

	n := len(buf)
	head := int(o.acc * time.Duration(n) / o.total)
	for i := range buf {
		if i <= head {
			buf[i] = indicatorGreen
		} else {
			buf[i] = o.saved[i]
		}
	}
	return false
}
