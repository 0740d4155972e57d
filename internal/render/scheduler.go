package render

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mstrov/stripd/internal/audio"
	"github.com/mstrov/stripd/internal/connmgr"
	"github.com/mstrov/stripd/internal/credstore"
	"github.com/mstrov/stripd/internal/events"
	"github.com/mstrov/stripd/internal/strip"
	"github.com/mstrov/stripd/internal/ticks"
)

// Metrics is the subset of the metric set the scheduler feeds.
type Metrics interface {
	TickObserved()
	RenderObserved(d time.Duration)
	BeatDetected()
}

// Watchdog is serviced once per tick so a stalled loop gets the process
// restarted.
type Watchdog interface {
	Kick()
}

// Config holds the scheduler's strip geometry and timing.
type Config struct {
	LEDCount     int
	TickInterval time.Duration
	// RenderBudget is the minimum spacing between frames for non-audio
	// modes; AudioBudget is the tighter spacing audio-reactive modes get.
	RenderBudget time.Duration
	AudioBudget  time.Duration
}

// Scheduler drives everything that touches the LED buffer from a single
// goroutine. Control commands arrive through a mailbox drained at the top
// of each tick; audio frames bypass the mailbox and go straight into the
// processor, which carries its own single-slot handoff.
//
// Scheduler implements the protocol engine's device surface.
type Scheduler struct {
	cfg     Config
	strip   strip.Strip
	conn    *connmgr.Manager
	proc    *audio.Processor
	reg     *Registry
	store   *credstore.Store
	bus     *events.Bus
	metrics Metrics
	wd      Watchdog
	logger  *slog.Logger

	cmds     chan func(now ticks.Ticks)
	firstCmd atomic.Bool

	mu          sync.RWMutex
	mode        Mode
	brightness  uint8
	staticColor strip.RGB

	// Tick-loop private state.
	buf          []strip.RGB
	out          []strip.RGB
	now          ticks.Ticks
	lastRender   ticks.Ticks
	lastWall     time.Time
	rendered     bool
	renderBudget ticks.Ticks
	audioBudget  ticks.Ticks
	overlay      *wipeOverlay
	prevState    connmgr.State

	hotspotInd    *breathingIndicator
	connectingInd *chaseIndicator
	awaitingInd   *blinkIndicator
}

// New creates a scheduler. Call Run to start the tick loop.
func New(cfg Config, st strip.Strip, conn *connmgr.Manager, proc *audio.Processor, store *credstore.Store, bus *events.Bus, metrics Metrics, wd Watchdog, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cfg:     cfg,
		strip:   st,
		conn:    conn,
		proc:    proc,
		reg:     NewRegistry(),
		store:   store,
		bus:     bus,
		metrics: metrics,
		wd:      wd,
		logger:  logger,

		cmds:       make(chan func(now ticks.Ticks), 64),
		brightness: 255,

		buf:          make([]strip.RGB, cfg.LEDCount),
		out:          make([]strip.RGB, cfg.LEDCount),
		renderBudget: ticks.FromDuration(cfg.RenderBudget, cfg.TickInterval),
		audioBudget:  ticks.FromDuration(cfg.AudioBudget, cfg.TickInterval),

		hotspotInd:    newBreathingIndicator(indicatorAmber, 2*time.Second),
		connectingInd: newChaseIndicator(indicatorBlue, 40*time.Millisecond),
		awaitingInd:   newBlinkIndicator(indicatorGreen, time.Second),
	}
}

// Run starts the connection manager and spins the tick loop until ctx is
// cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.conn.Start(s.now)

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.conn.Stop()
			if err := s.strip.Close(); err != nil {
				s.logger.Warn("Failed to close strip", "error", err)
			}
			return
		case t := <-ticker.C:
			s.tick(t)
		}
	}
}

// tick is one pass of the loop. Exactly one Flush happens per rendered
// frame; ticks inside the frame budget only service the watchdog.
func (s *Scheduler) tick(wall time.Time) {
	s.now = s.now.Add(1)
	s.metrics.TickObserved()

	s.drainCommands()

	if s.firstCmd.Load() {
		s.conn.FirstCommandSeen()
	}

	s.conn.Advance(s.now)

	state := s.conn.State()
	if state == connmgr.StateConfigBroadcast && s.prevState != connmgr.StateConfigBroadcast {
		s.overlay = newWipeOverlay(s.buf)
	}
	s.prevState = state

	mode, brightness, color := s.snapshot()

	budget := s.renderBudget
	if mode.AudioReactive() {
		budget = s.audioBudget
	}
	if s.rendered && ticks.Since(s.now, s.lastRender) < budget {
		s.wd.Kick()
		return
	}

	var elapsed time.Duration
	if s.rendered {
		elapsed = wall.Sub(s.lastWall)
	}

	renderStart := time.Now()
	s.proc.BeginRender()

	if mode.AudioReactive() {
		s.proc.Process(wall)
		if s.proc.Beat() {
			s.metrics.BeatDetected()
			s.bus.Publish(events.BeatEvent{Mean: s.proc.Mean()})
		}
	}

	s.paint(state, mode, color, elapsed)

	for i := range s.buf {
		s.out[i] = strip.Scale(s.buf[i], brightness)
	}
	if err := s.strip.Flush(s.out); err != nil {
		s.logger.Error("Strip flush failed", "error", err)
	}

	s.proc.EndRender()
	s.metrics.RenderObserved(time.Since(renderStart))

	s.lastRender = s.now
	s.lastWall = wall
	s.rendered = true

	s.wd.Kick()
}

// paint picks who owns the buffer this frame. Connection-state indicators
// outrank everything; the connect overlay outranks the mode renderers.
func (s *Scheduler) paint(state connmgr.State, mode Mode, color strip.RGB, elapsed time.Duration) {
	switch state {
	case connmgr.StateHotspot:
		s.hotspotInd.Render(s.buf, elapsed)
		return
	case connmgr.StateConnecting:
		s.connectingInd.Render(s.buf, elapsed)
		return
	}

	if s.overlay != nil {
		if s.overlay.Render(s.buf, elapsed) {
			s.overlay = nil
		}
		return
	}

	if state == connmgr.StateConfigBroadcast || state == connmgr.StateAwaitingFirstCommand {
		s.awaitingInd.Render(s.buf, elapsed)
		return
	}

	if ren, ok := s.reg.Lookup(mode); ok {
		ren.Render(&Context{
			Mode:        mode,
			Brightness:  s.Brightness(),
			StaticColor: color,
			Buffer:      s.buf,
			Audio:       s.proc,
		}, elapsed)
	}
}

func (s *Scheduler) drainCommands() {
	for {
		select {
		case fn := <-s.cmds:
			fn(s.now)
		default:
			return
		}
	}
}

// enqueue hands a command to the tick loop. The mailbox is bounded; a full
// mailbox means the loop is wedged and dropping is better than blocking a
// transport goroutine.
func (s *Scheduler) enqueue(fn func(now ticks.Ticks)) {
	select {
	case s.cmds <- fn:
	default:
		s.logger.Warn("Control mailbox full, dropping command")
	}
}

// applyMode runs on the tick loop. Any actual change resets the renderers
// involved and the audio pipeline so no transient state survives the switch.
func (s *Scheduler) applyMode(m Mode) {
	s.mu.Lock()
	prev := s.mode
	s.mode = m
	s.mu.Unlock()

	if prev == m {
		return
	}

	if ren, ok := s.reg.Lookup(prev); ok {
		ren.Reset()
	}
	if ren, ok := s.reg.Lookup(m); ok {
		ren.Reset()
	}
	s.proc.Reset()

	s.logger.Info("Mode changed", "mode", m.String())
	s.bus.Publish(events.ModeChangedEvent{Mode: uint8(m), Name: m.String()})
}

// SetColor installs a static color and forces static mode.
func (s *Scheduler) SetColor(r, g, b uint8) {
	s.firstCmd.Store(true)
	s.enqueue(func(ticks.Ticks) {
		s.mu.Lock()
		s.staticColor = strip.RGB{R: r, G: g, B: b}
		s.mu.Unlock()
		s.applyMode(ModeStatic)
	})
}

// SetMode switches the visual mode. Unknown modes are rejected before
// anything is enqueued.
func (s *Scheduler) SetMode(mode uint8) error {
	m := Mode(mode)
	if _, ok := s.reg.Lookup(m); !ok {
		return ErrUnknownMode
	}
	s.firstCmd.Store(true)
	s.enqueue(func(ticks.Ticks) {
		s.applyMode(m)
	})
	return nil
}

// SetBrightness sets the output scaling applied at flush time.
func (s *Scheduler) SetBrightness(level uint8) {
	s.firstCmd.Store(true)
	s.enqueue(func(ticks.Ticks) {
		s.mu.Lock()
		s.brightness = level
		s.mu.Unlock()
	})
}

// IngestAudio offers a feature frame to the audio processor. It bypasses
// the mailbox; backpressure is the processor's single-slot handoff.
func (s *Scheduler) IngestAudio(f audio.Frame) bool {
	if !s.proc.Ingest(f) {
		return false
	}
	s.firstCmd.Store(true)
	return true
}

// Reconfigure persists the credentials, then hands the association restart
// to the tick loop. A persistence failure leaves connection state untouched
// so the caller can report it synchronously. The first-command latch is
// cleared alongside the restart; the new association waits for a fresh
// light-control command before the blink indicator yields.
func (s *Scheduler) Reconfigure(ssid, password string) error {
	if err := s.store.Save(ssid, password); err != nil {
		return err
	}
	s.enqueue(func(now ticks.Ticks) {
		s.firstCmd.Store(false)
		s.conn.Reconfigure(now, credstore.Credentials{SSID: ssid, Password: password})
	})
	return nil
}

func (s *Scheduler) snapshot() (Mode, uint8, strip.RGB) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode, s.brightness, s.staticColor
}

// Status is the scheduler's slice of the device status surface.
type Status struct {
	State      string `json:"state"`
	Address    string `json:"address,omitempty"`
	Mode       uint8  `json:"mode"`
	ModeName   string `json:"mode_name"`
	Brightness uint8  `json:"brightness"`
}

// Status returns a point-in-time snapshot, safe from any goroutine.
func (s *Scheduler) Status() Status {
	mode, brightness, _ := s.snapshot()
	return Status{
		State:      s.conn.State().String(),
		Address:    s.conn.Address(),
		Mode:       uint8(mode),
		ModeName:   mode.String(),
		Brightness: brightness,
	}
}

// Mode returns the active visual mode.
func (s *Scheduler) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// Brightness returns the current output scaling.
func (s *Scheduler) Brightness() uint8 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.brightness
}

// StaticColor returns the configured static color.
func (s *Scheduler) StaticColor() strip.RGB {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.staticColor
}
