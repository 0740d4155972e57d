package render

import (
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mstrov/stripd/internal/audio"
	"github.com/mstrov/stripd/internal/connmgr"
	"github.com/mstrov/stripd/internal/credstore"
	"github.com/mstrov/stripd/internal/events"
	"github.com/mstrov/stripd/internal/radio"
	"github.com/mstrov/stripd/internal/strip"
)

type fakeStrip struct {
	mu      sync.Mutex
	flushes [][]strip.RGB
}

func (f *fakeStrip) Flush(buf []strip.RGB) error {
	cp := make([]strip.RGB, len(buf))
	copy(cp, buf)
	f.mu.Lock()
	f.flushes = append(f.flushes, cp)
	f.mu.Unlock()
	return nil
}

func (f *fakeStrip) Close() error { return nil }

func (f *fakeStrip) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.flushes)
}

func (f *fakeStrip) last() []strip.RGB {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.flushes) == 0 {
		return nil
	}
	return f.flushes[len(f.flushes)-1]
}

type fakeSchedMetrics struct {
	mu      sync.Mutex
	ticks   int
	renders int
	beats   int
}

func (m *fakeSchedMetrics) TickObserved() {
	m.mu.Lock()
	m.ticks++
	m.mu.Unlock()
}

func (m *fakeSchedMetrics) RenderObserved(time.Duration) {
	m.mu.Lock()
	m.renders++
	m.mu.Unlock()
}

func (m *fakeSchedMetrics) BeatDetected() {
	m.mu.Lock()
	m.beats++
	m.mu.Unlock()
}

func (m *fakeSchedMetrics) beatCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.beats
}

type fakeWatchdog struct {
	mu    sync.Mutex
	kicks int
}

func (w *fakeWatchdog) Kick() {
	w.mu.Lock()
	w.kicks++
	w.mu.Unlock()
}

type nopConnMetrics struct{}

func (nopConnMetrics) SetConnectionState(string) {}

// harness drives the scheduler's tick function directly with a synthetic
// wall clock, one step per tick.
type harness struct {
	s       *Scheduler
	strip   *fakeStrip
	metrics *fakeSchedMetrics
	wd      *fakeWatchdog
	wall    time.Time
	step    time.Duration
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()

	logger := slog.Default()
	store := credstore.New(filepath.Join(t.TempDir(), "credentials.bin"), logger)
	if err := store.Save("homenet", "hunter2"); err != nil {
		t.Fatalf("seed credentials: %v", err)
	}

	bus := events.New()
	conn := connmgr.New(connmgr.Config{
		HotspotSSID:    "strip-setup",
		DeviceName:     "stripd",
		ConnectTimeout: 100,
		GracePeriod:    5,
		AnnounceEvery:  10,
	}, store, radio.NewNoop(logger), connmgr.NewNoopAdvertiser(), bus, nopConnMetrics{}, logger)
	t.Cleanup(conn.Stop)

	fs := &fakeStrip{}
	fm := &fakeSchedMetrics{}
	fw := &fakeWatchdog{}
	s := New(cfg, fs, conn, audio.NewProcessor(), store, bus, fm, fw, logger)

	return &harness{
		s:       s,
		strip:   fs,
		metrics: fm,
		wd:      fw,
		wall:    time.Now(),
		step:    200 * time.Millisecond,
	}
}

func defaultConfig() Config {
	return Config{
		LEDCount:     8,
		TickInterval: time.Millisecond,
		RenderBudget: time.Millisecond,
		AudioBudget:  time.Millisecond,
	}
}

func (h *harness) run(n int) {
	for i := 0; i < n; i++ {
		h.wall = h.wall.Add(h.step)
		h.s.tick(h.wall)
	}
}

func (h *harness) untilState(t *testing.T, want connmgr.State) {
	t.Helper()
	for i := 0; i < 500; i++ {
		h.run(1)
		if h.s.conn.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("never reached %v, stuck in %v", want, h.s.conn.State())
}

// toSteady walks the harness through association, grace period and first
// command into the steady connected state. The no-op radio joins instantly.
func (h *harness) toSteady(t *testing.T) {
	t.Helper()
	h.s.conn.Start(0)
	h.untilState(t, connmgr.StateConfigBroadcast)
	h.untilState(t, connmgr.StateAwaitingFirstCommand)

	h.s.SetBrightness(255)
	h.run(2)
	if got := h.s.conn.State(); got != connmgr.StateConnected {
		t.Fatalf("state after first command = %v, want connected", got)
	}

	// Let the connect wipe finish so mode renderers own the buffer.
	h.run(10)
}

func TestStaticModeFlushesColor(t *testing.T) {
	h := newHarness(t, defaultConfig())
	h.toSteady(t)

	h.s.SetColor(10, 20, 30)
	h.run(2)

	last := h.strip.last()
	if last == nil {
		t.Fatal("no flushes recorded")
	}
	want := strip.RGB{R: 10, G: 20, B: 30}
	for i, px := range last {
		if px != want {
			t.Fatalf("pixel %d = %+v, want %+v", i, px, want)
		}
	}
	if h.s.Mode() != ModeStatic {
		t.Errorf("mode = %v, want static", h.s.Mode())
	}
}

func TestBrightnessScalesAtFlush(t *testing.T) {
	h := newHarness(t, defaultConfig())
	h.toSteady(t)

	h.s.SetColor(200, 100, 50)
	h.s.SetBrightness(128)
	h.run(2)

	last := h.strip.last()
	want := strip.Scale(strip.RGB{R: 200, G: 100, B: 50}, 128)
	if last[0] != want {
		t.Errorf("pixel = %+v, want %+v", last[0], want)
	}
	// The canvas itself stays unscaled so brightness changes do not compound.
	if h.s.buf[0] != (strip.RGB{R: 200, G: 100, B: 50}) {
		t.Errorf("canvas = %+v, want unscaled color", h.s.buf[0])
	}
}

func TestRenderBudgetGatesFlushes(t *testing.T) {
	cfg := defaultConfig()
	cfg.RenderBudget = 4 * time.Millisecond // 4 ticks
	h := newHarness(t, cfg)
	h.toSteady(t)

	h.s.SetColor(1, 2, 3)
	h.run(1) // apply + render

	before := h.strip.count()
	h.run(12)
	rendered := h.strip.count() - before
	if rendered != 3 {
		t.Errorf("renders in 12 ticks with 4-tick budget = %d, want 3", rendered)
	}

	// Every tick services the watchdog whether or not it rendered.
	h.wd.mu.Lock()
	kicks := h.wd.kicks
	h.wd.mu.Unlock()
	h.metrics.mu.Lock()
	ticks := h.metrics.ticks
	h.metrics.mu.Unlock()
	if kicks != ticks {
		t.Errorf("watchdog kicks = %d, ticks = %d; want equal", kicks, ticks)
	}
}

func TestUnknownModeRejected(t *testing.T) {
	h := newHarness(t, defaultConfig())

	if err := h.s.SetMode(99); err == nil {
		t.Fatal("SetMode(99) = nil, want error")
	}
	if h.s.Mode() != ModeStatic {
		t.Errorf("mode changed by rejected command")
	}
}

func TestModeChangeResetsAudioAndPublishes(t *testing.T) {
	h := newHarness(t, defaultConfig())
	h.toSteady(t)

	var mu sync.Mutex
	var changes []events.ModeChangedEvent
	unsub := h.s.bus.Subscribe(func(e events.ModeChangedEvent) {
		mu.Lock()
		changes = append(changes, e)
		mu.Unlock()
	})
	defer unsub()

	if err := h.s.SetMode(uint8(ModeSpectrum)); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	h.run(2)
	time.Sleep(10 * time.Millisecond) // dispatcher delivery is async

	mu.Lock()
	defer mu.Unlock()
	if len(changes) != 1 || changes[0].Name != "spectrum" {
		t.Fatalf("mode change events = %+v, want one spectrum change", changes)
	}
}

func TestBeatDetectionReachesMetrics(t *testing.T) {
	h := newHarness(t, defaultConfig())
	h.toSteady(t)

	if err := h.s.SetMode(uint8(ModePulse)); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	h.run(1)

	quiet := audio.Frame{}
	for i := range quiet {
		quiet[i] = 10
	}
	loud := audio.Frame{}
	for i := range loud {
		loud[i] = 80
	}

	// Warm the beat ring with quiet frames, then hit it with a loud one.
	for i := 0; i < 8; i++ {
		if !h.s.IngestAudio(quiet) {
			t.Fatal("quiet frame dropped")
		}
		h.run(1)
	}
	if !h.s.IngestAudio(loud) {
		t.Fatal("loud frame dropped")
	}
	h.run(1)

	if got := h.metrics.beatCount(); got != 1 {
		t.Errorf("beats = %d, want 1", got)
	}

	// The pulse renderer flashes at full level on the beat frame.
	last := h.strip.last()
	if last[0] == (strip.RGB{}) {
		t.Error("pulse frame is dark on a beat")
	}
}

func TestConnectOverlayRunsThenRestores(t *testing.T) {
	h := newHarness(t, defaultConfig())
	h.s.conn.Start(0)
	h.untilState(t, connmgr.StateConfigBroadcast)

	// First frame after association: the wipe owns the buffer.
	h.run(1)
	if h.s.overlay == nil {
		t.Fatal("no overlay after entering config broadcast")
	}
	last := h.strip.last()
	if last[0] != indicatorGreen {
		t.Errorf("wipe head = %+v, want green", last[0])
	}

	// Wipe completes within its duration, then the awaiting blink takes over.
	h.run(10)
	if h.s.overlay != nil {
		t.Error("overlay still active after wipe duration")
	}
}

func TestReconfigurePersistFailureLeavesStateAlone(t *testing.T) {
	h := newHarness(t, defaultConfig())
	h.toSteady(t)

	long := make([]byte, 40)
	for i := range long {
		long[i] = 'x'
	}
	if err := h.s.Reconfigure(string(long), "pw"); err == nil {
		t.Fatal("Reconfigure with oversized ssid = nil, want error")
	}

	h.run(2)
	if got := h.s.conn.State(); got != connmgr.StateConnected {
		t.Errorf("state = %v, want connected untouched", got)
	}
}

func TestReconfigureRestartsAssociation(t *testing.T) {
	h := newHarness(t, defaultConfig())
	h.toSteady(t)

	if err := h.s.Reconfigure("othernet", "newpw"); err != nil {
		t.Fatalf("Reconfigure: %v", err)
	}
	h.untilState(t, connmgr.StateConfigBroadcast)

	creds, ok := credstoreLoad(h)
	if !ok || creds.SSID != "othernet" {
		t.Errorf("stored creds = %+v, ok=%v; want othernet", creds, ok)
	}
}

func TestReconfigureWaitsForNewFirstCommand(t *testing.T) {
	h := newHarness(t, defaultConfig())
	h.toSteady(t)

	if err := h.s.Reconfigure("othernet", "newpw"); err != nil {
		t.Fatalf("Reconfigure: %v", err)
	}
	h.untilState(t, connmgr.StateConfigBroadcast)
	h.untilState(t, connmgr.StateAwaitingFirstCommand)

	// Commands from before the reconfigure must not count; with nothing
	// sent, the device keeps blinking and holds this state.
	h.run(20)
	if got := h.s.conn.State(); got != connmgr.StateAwaitingFirstCommand {
		t.Fatalf("state with no command after reconfigure = %v, want awaiting_first_command", got)
	}

	h.s.SetColor(5, 5, 5)
	h.run(2)
	if got := h.s.conn.State(); got != connmgr.StateConnected {
		t.Errorf("state after fresh command = %v, want connected", got)
	}
}

func credstoreLoad(h *harness) (credstore.Credentials, bool) {
	return h.s.store.Load()
}
