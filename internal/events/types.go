package events

// Event type constants for kelindar/event.
const (
	TypeStatus uint32 = iota + 1
	TypeConnectionStateChanged
	TypeModeChanged
	TypeBeat
	TypeAudioFrameDropped
	TypeSession
	TypeCredentialsSaved
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// StatusEvent carries one outbound status line for the companion app
// (IP:<addr>, AUTO_CONNECTED:<addr>, AP_MODE, RECONFIG:<ssid>, FAIL:<reason>).
// The transport fans it out to every live session.
type StatusEvent struct {
	Text string `json:"text"`
}

// Type returns the event type identifier for StatusEvent.
func (e StatusEvent) Type() uint32 { return TypeStatus }

// ConnectionStateChangedEvent reports a connection manager transition.
type ConnectionStateChangedEvent struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Address string `json:"address,omitempty"`
}

// Type returns the event type identifier for ConnectionStateChangedEvent.
func (e ConnectionStateChangedEvent) Type() uint32 { return TypeConnectionStateChanged }

// ModeChangedEvent reports a visual mode switch.
type ModeChangedEvent struct {
	Mode uint8  `json:"mode"`
	Name string `json:"name"`
}

// Type returns the event type identifier for ModeChangedEvent.
func (e ModeChangedEvent) Type() uint32 { return TypeModeChanged }

// BeatEvent is published once per detected beat.
type BeatEvent struct {
	Mean uint8 `json:"mean"`
}

// Type returns the event type identifier for BeatEvent.
func (e BeatEvent) Type() uint32 { return TypeBeat }

// AudioFrameDroppedEvent reports a backpressure drop. Expected under load,
// published for observability only.
type AudioFrameDroppedEvent struct {
	Reason string `json:"reason"`
}

// Type returns the event type identifier for AudioFrameDroppedEvent.
func (e AudioFrameDroppedEvent) Type() uint32 { return TypeAudioFrameDropped }

// SessionEvent reports a control session opening or closing.
type SessionEvent struct {
	ID      string `json:"id"`
	Action  string `json:"action"` // "opened" or "closed"
	Hotspot bool   `json:"hotspot"`
}

// Type returns the event type identifier for SessionEvent.
func (e SessionEvent) Type() uint32 { return TypeSession }

// CredentialsSavedEvent reports a persisted reconfiguration.
type CredentialsSavedEvent struct {
	SSID string `json:"ssid"`
}

// Type returns the event type identifier for CredentialsSavedEvent.
func (e CredentialsSavedEvent) Type() uint32 { return TypeCredentialsSaved }
