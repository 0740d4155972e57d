package protocol

import (
	"errors"
	"fmt"

	"github.com/mstrov/stripd/internal/audio"
	"github.com/mstrov/stripd/internal/credstore"
)

// Opcodes, one leading byte per message.
const (
	OpSetColor      = 0x01 // R,G,B
	OpSetMode       = 0x02 // mode id
	OpSetBrightness = 0x03 // brightness 0-255
	OpAudioFrame    = 0x04 // 16 band energies
	OpReconfigure   = 0xFF // ssidLen, passLen, ssid, pass
)

// reconfigureHeader is opcode + ssidLen + passLen.
const reconfigureHeader = 3

// Command is the typed form of a validated message.
type Command interface {
	isCommand()
}

// SetColor sets the static color and switches to static mode.
type SetColor struct {
	R, G, B uint8
}

// SetMode switches the active visual mode.
type SetMode struct {
	Mode uint8
}

// SetBrightness sets the global brightness.
type SetBrightness struct {
	Level uint8
}

// AudioFrame delivers one feature vector.
type AudioFrame struct {
	Bands audio.Frame
}

// Reconfigure replaces the network credentials and restarts association.
type Reconfigure struct {
	SSID     string
	Password string
}

func (SetColor) isCommand()      {}
func (SetMode) isCommand()       {}
func (SetBrightness) isCommand() {}
func (AudioFrame) isCommand()    {}
func (Reconfigure) isCommand()   {}

// ErrUnknownOpcode is returned for an opcode outside the table.
var ErrUnknownOpcode = errors.New("unknown opcode")

// PayloadSize returns the fixed payload length for an opcode. ok is false
// for unknown opcodes and for OpReconfigure, whose payload is
// variable-length (use ReconfigurePayloadSize after the two length bytes).
func PayloadSize(op byte) (int, bool) {
	switch op {
	case OpSetColor:
		return 3, true
	case OpSetMode, OpSetBrightness:
		return 1, true
	case OpAudioFrame:
		return audio.NumBands, true
	default:
		return 0, false
	}
}

// ReconfigurePayloadSize validates the reconfigure length bytes and returns
// the number of credential bytes that follow them.
func ReconfigurePayloadSize(ssidLen, passLen byte) (int, error) {
	if int(ssidLen) > credstore.MaxSSIDLen {
		return 0, fmt.Errorf("ssid length %d exceeds %d", ssidLen, credstore.MaxSSIDLen)
	}
	if int(passLen) > credstore.MaxPasswordLen {
		return 0, fmt.Errorf("password length %d exceeds %d", passLen, credstore.MaxPasswordLen)
	}
	return int(ssidLen) + int(passLen), nil
}

// Parse validates a complete message and returns its typed command.
// Validation happens before any dispatch, so a rejected message has no
// side effects.
func Parse(msg []byte) (Command, error) {
	if len(msg) == 0 {
		return nil, errors.New("empty message")
	}

	op := msg[0]
	payload := msg[1:]

	switch op {
	case OpSetColor, OpSetMode, OpSetBrightness, OpAudioFrame:
		want, _ := PayloadSize(op)
		if len(payload) != want {
			return nil, fmt.Errorf("opcode 0x%02X wants %d payload bytes, got %d", op, want, len(payload))
		}
	case OpReconfigure:
		// handled below
	default:
		return nil, ErrUnknownOpcode
	}

	switch op {
	case OpSetColor:
		return SetColor{R: payload[0], G: payload[1], B: payload[2]}, nil

	case OpSetMode:
		return SetMode{Mode: payload[0]}, nil

	case OpSetBrightness:
		return SetBrightness{Level: payload[0]}, nil

	case OpAudioFrame:
		var f audio.Frame
		copy(f[:], payload)
		return AudioFrame{Bands: f}, nil

	default: // OpReconfigure
		if len(payload) < 2 {
			return nil, errors.New("reconfigure message truncated")
		}
		ssidLen, passLen := payload[0], payload[1]
		credBytes, err := ReconfigurePayloadSize(ssidLen, passLen)
		if err != nil {
			return nil, err
		}
		if len(payload) != 2+credBytes {
			return nil, fmt.Errorf("reconfigure wants %d credential bytes, got %d", credBytes, len(payload)-2)
		}
		ssid := string(payload[2 : 2+ssidLen])
		if ssid == "" {
			return nil, errors.New("reconfigure with empty ssid")
		}
		pass := string(payload[2+ssidLen : 2+int(ssidLen)+int(passLen)])
		return Reconfigure{SSID: ssid, Password: pass}, nil
	}
}
