package protocol

import (
	"log/slog"
	"strings"
	"testing"

	"github.com/mstrov/stripd/internal/audio"
	"github.com/mstrov/stripd/internal/events"
)

type fakeDevice struct {
	colors      [][3]uint8
	modes       []uint8
	brightness  []uint8
	frames      []audio.Frame
	reconfigs   [][2]string
	audioBusy   bool
	modeErr     error
	reconfigErr error
}

func (d *fakeDevice) SetColor(r, g, b uint8) { d.colors = append(d.colors, [3]uint8{r, g, b}) }
func (d *fakeDevice) SetMode(m uint8) error {
	if d.modeErr != nil {
		return d.modeErr
	}
	d.modes = append(d.modes, m)
	return nil
}
func (d *fakeDevice) SetBrightness(l uint8) { d.brightness = append(d.brightness, l) }
func (d *fakeDevice) IngestAudio(f audio.Frame) bool {
	if d.audioBusy {
		return false
	}
	d.frames = append(d.frames, f)
	return true
}
func (d *fakeDevice) Reconfigure(ssid, pass string) error {
	if d.reconfigErr != nil {
		return d.reconfigErr
	}
	d.reconfigs = append(d.reconfigs, [2]string{ssid, pass})
	return nil
}

func (d *fakeDevice) callCount() int {
	return len(d.colors) + len(d.modes) + len(d.brightness) + len(d.frames) + len(d.reconfigs)
}

type fakeSession struct {
	id      string
	hotspot bool
}

func (s fakeSession) ID() string           { return s.id }
func (s fakeSession) HotspotContext() bool { return s.hotspot }

type nopMetrics struct{}

func (nopMetrics) CommandHandled(byte, string) {}
func (nopMetrics) AudioFrame(string)           {}

func newTestEngine(dev *fakeDevice) *Engine {
	return NewEngine(dev, events.New(), nopMetrics{}, slog.Default())
}

func TestHandleSetColor(t *testing.T) {
	dev := &fakeDevice{}
	e := newTestEngine(dev)

	reply := e.Handle(fakeSession{id: "s1"}, []byte{OpSetColor, 255, 64, 0})
	if reply != "" {
		t.Errorf("reply = %q, want none", reply)
	}
	if len(dev.colors) != 1 || dev.colors[0] != [3]uint8{255, 64, 0} {
		t.Errorf("colors = %v, want one (255,64,0)", dev.colors)
	}
}

func TestMalformedMessagesRejectedWithoutSideEffects(t *testing.T) {
	tests := []struct {
		name string
		msg  []byte
	}{
		{"empty", nil},
		{"unknown opcode", []byte{0x42}},
		{"color short", []byte{OpSetColor, 255}},
		{"color long", []byte{OpSetColor, 1, 2, 3, 4}},
		{"mode missing payload", []byte{OpSetMode}},
		{"brightness long", []byte{OpSetBrightness, 10, 20}},
		{"audio short", append([]byte{OpAudioFrame}, make([]byte, 15)...)},
		{"audio long", append([]byte{OpAudioFrame}, make([]byte, 17)...)},
		{"reconfigure truncated header", []byte{OpReconfigure, 4}},
		{"reconfigure ssid too long", []byte{OpReconfigure, 33, 0}},
		{"reconfigure pass too long", []byte{OpReconfigure, 2, 64}},
		{"reconfigure body mismatch", []byte{OpReconfigure, 4, 2, 'a', 'b'}},
		{"reconfigure empty ssid", []byte{OpReconfigure, 0, 2, 'p', 'w'}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := &fakeDevice{}
			e := newTestEngine(dev)

			reply := e.Handle(fakeSession{id: "s1", hotspot: true}, tt.msg)
			if !strings.HasPrefix(reply, "ERR:") {
				t.Errorf("reply = %q, want ERR:*", reply)
			}
			if dev.callCount() != 0 {
				t.Errorf("rejected message reached the device: %+v", dev)
			}
		})
	}
}

func TestAudioFrameSilentOnBothPaths(t *testing.T) {
	dev := &fakeDevice{}
	e := newTestEngine(dev)

	msg := append([]byte{OpAudioFrame}, make([]byte, audio.NumBands)...)

	if reply := e.Handle(fakeSession{id: "s1"}, msg); reply != "" {
		t.Errorf("accepted frame reply = %q, want none", reply)
	}
	if len(dev.frames) != 1 {
		t.Fatalf("frames = %d, want 1", len(dev.frames))
	}

	dev.audioBusy = true
	if reply := e.Handle(fakeSession{id: "s1"}, msg); reply != "" {
		t.Errorf("dropped frame reply = %q, want silence", reply)
	}
	if len(dev.frames) != 1 {
		t.Errorf("dropped frame reached the device")
	}
}

func reconfigureMsg(ssid, pass string) []byte {
	msg := []byte{OpReconfigure, byte(len(ssid)), byte(len(pass))}
	msg = append(msg, ssid...)
	return append(msg, pass...)
}

func TestReconfigureOnlyInHotspotContext(t *testing.T) {
	dev := &fakeDevice{}
	e := newTestEngine(dev)
	msg := reconfigureMsg("homenet", "hunter2")

	reply := e.Handle(fakeSession{id: "client", hotspot: false}, msg)
	if !strings.HasPrefix(reply, "ERR:") {
		t.Errorf("reply = %q, want ERR:* outside hotspot context", reply)
	}
	if len(dev.reconfigs) != 0 {
		t.Error("reconfigure reached the device from a non-hotspot session")
	}

	reply = e.Handle(fakeSession{id: "setup", hotspot: true}, msg)
	if reply != "RECONFIG:homenet" {
		t.Errorf("reply = %q, want RECONFIG:homenet", reply)
	}
	if len(dev.reconfigs) != 1 || dev.reconfigs[0] != [2]string{"homenet", "hunter2"} {
		t.Errorf("reconfigs = %v", dev.reconfigs)
	}
}

func TestReconfigurePersistFailureReply(t *testing.T) {
	dev := &fakeDevice{reconfigErr: errPersist}
	e := newTestEngine(dev)

	reply := e.Handle(fakeSession{id: "setup", hotspot: true}, reconfigureMsg("net", "pw"))
	if !strings.HasPrefix(reply, "FAIL:") {
		t.Errorf("reply = %q, want FAIL:*", reply)
	}
}

var errPersist = &persistError{}

type persistError struct{}

func (*persistError) Error() string { return "persist" }

func TestParseRoundTripReconfigureMaxLengths(t *testing.T) {
	ssid := strings.Repeat("s", 32)
	pass := strings.Repeat("p", 63)

	cmd, err := Parse(reconfigureMsg(ssid, pass))
	if err != nil {
		t.Fatalf("Parse() err=%v", err)
	}
	rc, ok := cmd.(Reconfigure)
	if !ok {
		t.Fatalf("Parse() = %T, want Reconfigure", cmd)
	}
	if rc.SSID != ssid || rc.Password != pass {
		t.Error("Parse() mangled max-length credentials")
	}
}
