package audio

import (
	"testing"
	"time"
)

// uniformFrame builds a frame with every band at v, so the tick mean is v.
func uniformFrame(v uint8) Frame {
	var f Frame
	for i := range f {
		f[i] = v
	}
	return f
}

// feed ingests one frame and runs one processor pass.
func feed(t *testing.T, p *Processor, v uint8, now time.Time) {
	t.Helper()
	if !p.Ingest(uniformFrame(v)) {
		t.Fatalf("Ingest(%d) dropped while idle", v)
	}
	p.Process(now)
}

func TestBeatFlaggedOnEnergyJump(t *testing.T) {
	p := NewProcessor()
	now := time.Now()

	for _, v := range []uint8{10, 10, 10, 10, 10, 10, 10} {
		feed(t, p, v, now)
		if p.Beat() {
			t.Fatal("beat flagged during flat baseline")
		}
		now = now.Add(16 * time.Millisecond)
	}

	feed(t, p, 80, now)
	if !p.Beat() {
		t.Error("expected beat on 8th sample jumping 10 -> 80")
	}
}

func TestNoBeatBelowMargins(t *testing.T) {
	p := NewProcessor()
	now := time.Now()

	// 45 clears the absolute floor but fails both margin tests against a
	// baseline of 40.
	for _, v := range []uint8{40, 40, 40, 40, 40, 40, 40} {
		feed(t, p, v, now)
		now = now.Add(16 * time.Millisecond)
	}

	feed(t, p, 45, now)
	if p.Beat() {
		t.Error("beat flagged for 40 -> 45; margins should reject it")
	}
}

func TestNoBeatBeforeRingWarm(t *testing.T) {
	p := NewProcessor()
	now := time.Now()

	feed(t, p, 10, now)
	feed(t, p, 200, now.Add(16*time.Millisecond))
	if p.Beat() {
		t.Error("beat flagged before the mean ring was warm")
	}
}

func TestSmoothingSnapUpGeometricDecay(t *testing.T) {
	p := NewProcessor()
	now := time.Now()

	feed(t, p, 200, now)
	if got := p.Bands()[0].Value; got != 200 {
		t.Fatalf("up-tick value = %d, want instant snap to 200", got)
	}

	// Drop to zero: each tick loses half the remaining distance.
	want := []uint8{100, 50, 25, 12, 6, 3}
	for i, w := range want {
		now = now.Add(16 * time.Millisecond)
		feed(t, p, 0, now)
		if got := p.Bands()[0].Value; got != w {
			t.Errorf("decay tick %d: value = %d, want %d", i+1, got, w)
		}
	}

	if got := p.Bands()[0].Value; got >= 5 {
		t.Errorf("value = %d after 6 decay ticks, want <5", got)
	}
}

func TestPeakHoldThenStepDecay(t *testing.T) {
	p := NewProcessor()
	now := time.Now()

	feed(t, p, 180, now)
	if got := p.Bands()[0].Peak; got != 180 {
		t.Fatalf("peak = %d, want 180 latched", got)
	}

	// Peak holds for the hold window even as the value decays.
	for i := 0; i < peakHoldTicks; i++ {
		now = now.Add(16 * time.Millisecond)
		feed(t, p, 0, now)
	}
	if got := p.Bands()[0].Peak; got != 180 {
		t.Fatalf("peak = %d during hold window, want 180", got)
	}

	now = now.Add(16 * time.Millisecond)
	feed(t, p, 0, now)
	if got := p.Bands()[0].Peak; got != 180-peakDecayStep {
		t.Errorf("peak = %d after hold expiry, want %d", got, 180-peakDecayStep)
	}
}

func TestIngestDroppedWhileRenderInFlight(t *testing.T) {
	p := NewProcessor()
	now := time.Now()
	feed(t, p, 50, now)
	before := p.Bands()

	p.BeginRender()
	if p.Ingest(uniformFrame(250)) {
		t.Error("Ingest accepted a frame while render in flight")
	}
	p.EndRender()

	if p.Bands() != before {
		t.Error("dropped frame altered band state")
	}

	// Idle again: the next frame updates all 16 bands.
	if !p.Ingest(uniformFrame(250)) {
		t.Fatal("Ingest dropped while idle")
	}
	p.Process(now.Add(16 * time.Millisecond))
	for i, b := range p.Bands() {
		if b.Value != 250 {
			t.Fatalf("band %d = %d, want 250", i, b.Value)
		}
	}
}

func TestPendingFrameSuperseded(t *testing.T) {
	p := NewProcessor()

	p.Ingest(uniformFrame(10))
	p.Ingest(uniformFrame(90))
	p.Process(time.Now())

	if got := p.Bands()[0].Value; got != 90 {
		t.Errorf("value = %d, want the superseding frame's 90", got)
	}
}

func TestStaleDecayTowardZero(t *testing.T) {
	p := NewProcessor()
	now := time.Now()
	feed(t, p, 200, now)

	// Inside the stale window the bands hold steady.
	p.Process(now.Add(100 * time.Millisecond))
	if got := p.Bands()[0].Value; got != 200 {
		t.Fatalf("value = %d inside stale window, want held 200", got)
	}

	// Past the timeout they decay toward zero without new samples.
	stale := now.Add(StaleTimeout + time.Millisecond)
	p.Process(stale)
	if got := p.Bands()[0].Value; got != 100 {
		t.Errorf("value = %d on first stale tick, want 100", got)
	}
	for i := 0; i < 10; i++ {
		stale = stale.Add(16 * time.Millisecond)
		p.Process(stale)
	}
	if got := p.Bands()[0].Value; got != 0 {
		t.Errorf("value = %d after extended staleness, want 0", got)
	}
}

func TestResetClearsAllTransientState(t *testing.T) {
	p := NewProcessor()
	now := time.Now()
	for i := 0; i < 10; i++ {
		feed(t, p, 200, now)
		now = now.Add(16 * time.Millisecond)
	}

	p.Reset()

	if p.Bands() != ([NumBands]BandState{}) {
		t.Error("Reset left band state behind")
	}
	if p.Beat() || p.Mean() != 0 {
		t.Error("Reset left beat detector state behind")
	}
}
