package strip

import (
	"fmt"
	"os"
	"sync"
)

// spiStrip drives an APA102/SK9822 strip through a spidev device file.
// Frame format: 4 zero start bytes, one (0xE0|global, B, G, R) word per
// pixel, then at least count/2 trailing clock bits of zeros.
type spiStrip struct {
	dev *os.File
	buf []byte
	mu  sync.Mutex
}

// newSPI opens the spidev node and preallocates the wire buffer.
func newSPI(path string, count int) (*spiStrip, error) {
	dev, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("strip: open %s: %w", path, err)
	}

	endBytes := count/16 + 1
	return &spiStrip{
		dev: dev,
		buf: make([]byte, 4+count*4+endBytes),
	}, nil
}

// Flush encodes and writes one full frame.
func (s *spiStrip) Flush(buf []RGB) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos := 4 // start frame stays zero
	for _, px := range buf {
		s.buf[pos] = 0xFF // full per-pixel current, dimming is done upstream
		s.buf[pos+1] = px.B
		s.buf[pos+2] = px.G
		s.buf[pos+3] = px.R
		pos += 4
	}

	if _, err := s.dev.Write(s.buf); err != nil {
		return fmt.Errorf("strip: flush: %w", err)
	}
	return nil
}

// Close closes the device file.
func (s *spiStrip) Close() error {
	return s.dev.Close()
}
