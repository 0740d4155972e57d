// Package strip abstracts the physical LED strip behind a flush interface,
// with an SPI device-file implementation and a no-op fallback for hosts
// without the hardware.
package strip

// RGB is one pixel.
type RGB struct {
	R, G, B uint8
}

// Strip writes a rendered buffer out to the physical LEDs.
// Flush is the single write-out point per scheduler tick.
type Strip interface {
	// Flush pushes the full buffer to the strip. The buffer is owned by
	// the caller and must not be retained.
	Flush(buf []RGB) error

	// Close releases the underlying device.
	Close() error
}

// Scale returns c with every channel scaled by brightness (0-255).
func Scale(c RGB, brightness uint8) RGB {
	if brightness == 255 {
		return c
	}
	b := uint16(brightness)
	return RGB{
		R: uint8(uint16(c.R) * b / 255),
		G: uint8(uint16(c.G) * b / 255),
		B: uint8(uint16(c.B) * b / 255),
	}
}
