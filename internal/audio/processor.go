package audio

import (
	"sync/atomic"
	"time"
)

// NumBands is the width of the feature vector delivered per frame.
const NumBands = 16

const (
	// Peak hold: ticks a latched peak is held before stepping down.
	peakHoldTicks = 20
	peakDecayStep = 4

	// Beat detection thresholds, integer arithmetic on the 0-255 domain.
	beatRingDepth  = 8
	beatRingMargin = 20
	beatFloor      = 45
	beatPrevMargin = 10

	// StaleTimeout is how long bands keep their last values without a new
	// frame before decaying toward zero, so visuals go dark instead of
	// freezing on stale data.
	StaleTimeout = 500 * time.Millisecond
)

// Frame is one feature vector: 16 band energies, 0-255.
type Frame [NumBands]uint8

// BandState is the per-band smoothed output read by renderers.
type BandState struct {
	Value uint8 // smoothed energy
	Peak  uint8 // held peak
	hold  uint8 // remaining hold ticks
}

// Processor holds all per-mode transient audio state. Process mutates it
// exactly once per render tick; Reset clears it on mode change.
type Processor struct {
	bands [NumBands]BandState

	// Beat detector: ring of recent mean energies plus last tick's mean.
	ring     [beatRingDepth]uint8
	ringPos  int
	ringFill int
	lastMean uint8
	beat     bool

	busy        atomic.Bool
	pending     atomic.Pointer[Frame]
	lastFrameAt atomic.Int64 // unix nanos of last accepted frame
}

// NewProcessor creates a processor with all bands at zero.
func NewProcessor() *Processor {
	return &Processor{}
}

// Ingest offers a new frame from the transport. It returns false and drops
// the frame when a render pass is in flight. A frame that arrives before
// the previous one was consumed supersedes it.
func (p *Processor) Ingest(f Frame) bool {
	if p.busy.Load() {
		return false
	}
	frame := f
	p.pending.Store(&frame)
	p.lastFrameAt.Store(time.Now().UnixNano())
	return true
}

// BeginRender marks a render pass in flight; frames arriving until
// EndRender are dropped.
func (p *Processor) BeginRender() {
	p.busy.Store(true)
}

// EndRender clears the busy flag.
func (p *Processor) EndRender() {
	p.busy.Store(false)
}

// Process runs one smoothing, peak-hold and beat-detection pass. Called
// exactly once per render tick while an audio-reactive mode is active.
func (p *Processor) Process(now time.Time) {
	sample, fresh := p.takeSample(now)

	var sum int
	for i := range p.bands {
		b := &p.bands[i]
		b.Value = smooth(b.Value, sample[i])

		if b.Value > b.Peak {
			b.Peak = b.Value
			b.hold = peakHoldTicks
		} else if b.hold > 0 {
			b.hold--
		} else if b.Peak > peakDecayStep {
			b.Peak -= peakDecayStep
		} else {
			b.Peak = 0
		}

		sum += int(b.Value)
	}

	mean := uint8(sum / NumBands)
	p.beat = fresh && p.detectBeat(mean)
	p.pushMean(mean)
}

// takeSample resolves this tick's input vector: the pending frame if one
// arrived, zeros once the last frame is stale, otherwise the current values
// (hold steady inside the stale window).
func (p *Processor) takeSample(now time.Time) (Frame, bool) {
	if f := p.pending.Swap(nil); f != nil {
		return *f, true
	}

	last := p.lastFrameAt.Load()
	if last == 0 || now.Sub(time.Unix(0, last)) > StaleTimeout {
		return Frame{}, false
	}

	var held Frame
	for i := range p.bands {
		held[i] = p.bands[i].Value
	}
	return held, false
}

// detectBeat applies the three-condition integer test against the ring of
// prior mean energies. All conditions must hold; the ring must be warm.
func (p *Processor) detectBeat(mean uint8) bool {
	if p.ringFill < beatRingDepth-1 {
		return false
	}

	var sum int
	for i := 0; i < p.ringFill; i++ {
		sum += int(p.ring[i])
	}
	ringAvg := sum / p.ringFill

	m := int(mean)
	return m-ringAvg >= beatRingMargin &&
		m >= beatFloor &&
		m-int(p.lastMean) >= beatPrevMargin
}

// pushMean records this tick's mean into the ring.
func (p *Processor) pushMean(mean uint8) {
	p.ring[p.ringPos] = mean
	p.ringPos = (p.ringPos + 1) % beatRingDepth
	if p.ringFill < beatRingDepth {
		p.ringFill++
	}
	p.lastMean = mean
}

// Beat reports whether the last Process pass flagged a beat.
func (p *Processor) Beat() bool {
	return p.beat
}

// Mean returns the mean energy of the last Process pass.
func (p *Processor) Mean() uint8 {
	return p.lastMean
}

// Bands returns a copy of the per-band state for renderers.
func (p *Processor) Bands() [NumBands]BandState {
	return p.bands
}

// Reset clears all transient state. Called on any mode change so no stale
// visual state leaks across modes.
func (p *Processor) Reset() {
	p.bands = [NumBands]BandState{}
	p.ring = [beatRingDepth]uint8{}
	p.ringPos = 0
	p.ringFill = 0
	p.lastMean = 0
	p.beat = false
	p.pending.Store(nil)
	p.lastFrameAt.Store(0)
}

// smooth applies asymmetric smoothing: snap up instantly, decay by half the
// remaining distance per tick on the way down.
func smooth(current, in uint8) uint8 {
	if in >= current {
		return in
	}
	return in + (current-in)/2
}
