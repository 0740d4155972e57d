package credstore

import (
	"encoding/binary"
	"errors"

	"github.com/sigurn/crc16"
)

// Record layout, fixed offsets.
const (
	signature uint16 = 0x5AA5

	sigOffset  = 0
	ssidOffset = 2
	passOffset = 35
	crcOffset  = 99
	recordSize = 101

	ssidField = 33
	passField = 64

	// MaxSSIDLen and MaxPasswordLen leave room for the NUL terminator
	// inside the fixed-width fields.
	MaxSSIDLen     = 32
	MaxPasswordLen = 63
)

// CRC-16 with polynomial 0xA001 (reflected), initial value 0xFFFF.
var crcTable = crc16.MakeTable(crc16.CRC16_MODBUS)

var (
	// ErrSSIDTooLong is returned by Save for an ssid over 32 bytes.
	ErrSSIDTooLong = errors.New("credstore: ssid exceeds 32 bytes")
	// ErrPasswordTooLong is returned by Save for a password over 63 bytes.
	ErrPasswordTooLong = errors.New("credstore: password exceeds 63 bytes")
)

// Credentials is the in-RAM form of the stored record. An empty SSID is the
// "no credentials" sentinel.
type Credentials struct {
	SSID     string
	Password string
}

// encodeRecord builds the full on-disk record with signature and CRC.
// Callers must have validated field lengths.
func encodeRecord(creds Credentials) []byte {
	buf := make([]byte, recordSize)
	binary.LittleEndian.PutUint16(buf[sigOffset:], signature)
	copy(buf[ssidOffset:ssidOffset+ssidField], creds.SSID)
	copy(buf[passOffset:passOffset+passField], creds.Password)

	crc := crc16.Checksum(buf[ssidOffset:crcOffset], crcTable)
	binary.LittleEndian.PutUint16(buf[crcOffset:], crc)
	return buf
}

// decodeRecord validates signature and CRC and extracts the credential
// pair. ok is false for any record that fails a check; no partial trust.
func decodeRecord(buf []byte) (Credentials, bool) {
	if len(buf) != recordSize {
		return Credentials{}, false
	}
	if binary.LittleEndian.Uint16(buf[sigOffset:]) != signature {
		return Credentials{}, false
	}

	stored := binary.LittleEndian.Uint16(buf[crcOffset:])
	if crc16.Checksum(buf[ssidOffset:crcOffset], crcTable) != stored {
		return Credentials{}, false
	}

	return Credentials{
		SSID:     cString(buf[ssidOffset : ssidOffset+ssidField]),
		Password: cString(buf[passOffset : passOffset+passField]),
	}, true
}

// cString returns the bytes up to the first NUL.
func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
