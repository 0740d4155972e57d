// Package connmgr owns the device's network association state machine:
// hotspot vs. client mode, the connect timeout, the post-association grace
// period, and name advertisement. All transitions happen on the render
// scheduler's tick via Advance; the only off-loop work is the blocking
// radio join, which runs in a goroutine and reports back over a channel.
package connmgr

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mstrov/stripd/internal/credstore"
	"github.com/mstrov/stripd/internal/events"
	"github.com/mstrov/stripd/internal/radio"
	"github.com/mstrov/stripd/internal/ticks"
)

// Advertiser starts and stops name-resolution advertisement once the
// device is reachable on the joined network.
type Advertiser interface {
	Start(name string) error
	Stop()
}

// Metrics is the subset of the metric set the manager feeds.
type Metrics interface {
	SetConnectionState(state string)
}

// Config holds the manager's timing and identity settings. Durations are
// in scheduler ticks.
type Config struct {
	HotspotSSID    string
	DeviceName     string
	ConnectTimeout ticks.Ticks
	GracePeriod    ticks.Ticks
	AnnounceEvery  ticks.Ticks
}

type joinResult struct {
	gen uint64
	err error
}

// Manager is the connection state machine. Advance, Reconfigure and
// FirstCommandSeen are called from the scheduler tick; State, Address and
// HotspotActive are safe from other goroutines.
type Manager struct {
	cfg     Config
	store   *credstore.Store
	radio   radio.Radio
	adv     Advertiser
	bus     *events.Bus
	metrics Metrics
	logger  *slog.Logger

	mu        sync.RWMutex
	state     State
	addr      string
	hotspotUp bool

	creds     credstore.Credentials
	firstTime bool // credentials arrived via reconfigure, not the store

	joinCh     chan joinResult
	joinGen    uint64
	joinCancel context.CancelFunc

	connectDeadline ticks.Ticks
	graceDeadline   ticks.Ticks
	nextAnnounce    ticks.Ticks
}

// New creates a manager. Call Start before the first Advance.
func New(cfg Config, store *credstore.Store, r radio.Radio, adv Advertiser, bus *events.Bus, metrics Metrics, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:     cfg,
		store:   store,
		radio:   r,
		adv:     adv,
		bus:     bus,
		metrics: metrics,
		logger:  logger,
		joinCh:  make(chan joinResult, 4),
	}
}

// Start picks the boot state: Connecting when the store holds a valid
// record, HotspotMode otherwise. A corrupt record fails closed to hotspot.
func (m *Manager) Start(now ticks.Ticks) {
	m.metrics.SetConnectionState(m.State().String())

	if creds, ok := m.store.Load(); ok {
		m.logger.Info("Stored credentials found, auto-reconnecting", "ssid", creds.SSID)
		m.creds = creds
		m.firstTime = false
		m.beginConnect(now)
		return
	}

	m.logger.Info("No usable credentials, entering hotspot mode")
	m.enterHotspot()
}

// Advance runs the manager's timer and transition work for one tick.
func (m *Manager) Advance(now ticks.Ticks) {
	switch m.State() {
	case StateConnecting:
		m.advanceConnecting(now)
	case StateConfigBroadcast:
		m.advanceConfigBroadcast(now)
	}
}

// Reconfigure installs new credentials and restarts association from any
// state. A pending grace timer and any in-flight join attempt are
// cancelled. Persistence has already happened by the time this runs.
func (m *Manager) Reconfigure(now ticks.Ticks, creds credstore.Credentials) {
	m.logger.Info("Reconfiguring", "ssid", creds.SSID)

	m.cancelJoin()
	m.adv.Stop()

	m.creds = creds
	m.firstTime = true
	m.beginConnect(now)
}

// FirstCommandSeen moves AwaitingFirstCommand into steady operation.
// Driven by the protocol engine through the scheduler.
func (m *Manager) FirstCommandSeen() {
	if m.State() != StateAwaitingFirstCommand {
		return
	}
	m.logger.Info("First light-control command received")
	m.setState(StateConnected)
}

// Stop cancels any in-flight join and stops advertisement.
func (m *Manager) Stop() {
	m.cancelJoin()
	m.adv.Stop()
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Address returns the assigned client address, if any.
func (m *Manager) Address() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.addr
}

// HotspotActive reports whether the setup hotspot is currently up. The
// transport captures this at accept time to scope reconfiguration.
func (m *Manager) HotspotActive() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hotspotUp
}

func (m *Manager) advanceConnecting(now ticks.Ticks) {
	// Drain join results; stale generations are attempts that were
	// already cancelled by a reconfigure.
	for {
		select {
		case res := <-m.joinCh:
			if res.gen != m.joinGen {
				continue
			}
			if res.err != nil {
				m.logger.Warn("Association failed", "ssid", m.creds.SSID, "error", res.err)
				m.bus.Publish(events.StatusEvent{Text: "FAIL:connect"})
				m.enterHotspot()
				return
			}
			m.associationSucceeded(now)
			return
		default:
			if ticks.Reached(now, m.connectDeadline) {
				m.logger.Warn("Association timed out", "ssid", m.creds.SSID)
				m.cancelJoin()
				m.bus.Publish(events.StatusEvent{Text: "FAIL:timeout"})
				m.enterHotspot()
			}
			return
		}
	}
}

func (m *Manager) advanceConfigBroadcast(now ticks.Ticks) {
	if ticks.Reached(now, m.graceDeadline) {
		// Grace period over: the companion app had its window to learn
		// the address over the hotspot.
		if m.HotspotActive() {
			if err := m.radio.StopHotspot(); err != nil {
				m.logger.Warn("Failed to stop hotspot", "error", err)
			}
			m.setHotspotUp(false)
		}

		if err := m.adv.Start(m.cfg.DeviceName); err != nil {
			m.logger.Warn("Name advertisement failed", "error", err)
		}

		m.setState(StateAwaitingFirstCommand)
		return
	}

	if ticks.Reached(now, m.nextAnnounce) {
		m.bus.Publish(events.StatusEvent{Text: "IP:" + m.Address()})
		m.nextAnnounce = now.Add(m.cfg.AnnounceEvery)
	}
}

func (m *Manager) associationSucceeded(now ticks.Ticks) {
	addr, err := m.radio.Address()
	if err != nil {
		m.logger.Warn("Associated but no address", "error", err)
	}
	m.setAddress(addr)

	status := "AUTO_CONNECTED:" + addr
	if m.firstTime {
		status = "IP:" + addr
	}
	m.logger.Info("Association succeeded", "ssid", m.creds.SSID, "addr", addr, "first_time", m.firstTime)
	m.bus.Publish(events.StatusEvent{Text: status})

	m.setState(StateConnected)

	// Keep the hotspot alive through the grace period so the companion
	// app can retrieve the assigned address.
	m.graceDeadline = now.Add(m.cfg.GracePeriod)
	m.nextAnnounce = now.Add(m.cfg.AnnounceEvery)
	m.setState(StateConfigBroadcast)
}

// beginConnect launches an association attempt off the tick loop.
func (m *Manager) beginConnect(now ticks.Ticks) {
	m.connectDeadline = now.Add(m.cfg.ConnectTimeout)
	m.joinGen++

	ctx, cancel := context.WithCancel(context.Background())
	m.joinCancel = cancel

	gen := m.joinGen
	creds := m.creds
	go func() {
		err := m.radio.Join(ctx, creds.SSID, creds.Password)
		m.joinCh <- joinResult{gen: gen, err: err}
	}()

	m.setState(StateConnecting)
}

// enterHotspot re-enables the setup broadcast. The failed attempt is not
// retried; only a fresh reconfigure or a reboot tries again.
func (m *Manager) enterHotspot() {
	if !m.HotspotActive() {
		if err := m.radio.StartHotspot(m.cfg.HotspotSSID); err != nil {
			m.logger.Error("Failed to start hotspot", "error", err)
		}
		m.setHotspotUp(true)
	}
	m.bus.Publish(events.StatusEvent{Text: "AP_MODE"})
	m.setState(StateHotspot)
}

func (m *Manager) cancelJoin() {
	if m.joinCancel != nil {
		m.joinCancel()
		m.joinCancel = nil
	}
	// Invalidate any result already in flight.
	m.joinGen++
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	prev := m.state
	m.state = s
	addr := m.addr
	m.mu.Unlock()

	if prev == s {
		return
	}

	m.metrics.SetConnectionState(s.String())
	m.bus.Publish(events.ConnectionStateChangedEvent{
		From:    prev.String(),
		To:      s.String(),
		Address: addr,
	})
}

func (m *Manager) setAddress(addr string) {
	m.mu.Lock()
	m.addr = addr
	m.mu.Unlock()
}

func (m *Manager) setHotspotUp(up bool) {
	m.mu.Lock()
	m.hotspotUp = up
	m.mu.Unlock()
}
