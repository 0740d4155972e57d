// Package radio abstracts the dual-mode wireless interface: broadcasting
// the setup hotspot and joining an existing network as a client.
package radio

import "context"

// Radio is the hardware surface the connection manager drives.
// Implementations handle platform-specific association.
type Radio interface {
	// StartHotspot brings up the local setup network.
	StartHotspot(ssid string) error

	// StopHotspot tears the setup network down.
	StopHotspot() error

	// Join associates with an existing network. It blocks until the
	// association settles or ctx is cancelled; the connection manager
	// runs it off the tick loop and polls the result.
	Join(ctx context.Context, ssid, password string) error

	// Address returns the currently assigned client address.
	Address() (string, error)
}
