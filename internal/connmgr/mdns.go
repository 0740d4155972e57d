package connmgr

import (
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"

	"github.com/pion/mdns/v2"
	"golang.org/x/net/ipv4"
)

// mdnsAdvertiser answers multicast DNS queries for <name>.local once the
// device is reachable as a client.
type mdnsAdvertiser struct {
	logger *slog.Logger

	mu   sync.Mutex
	conn *mdns.Conn
}

// NewAdvertiser creates an mDNS-backed advertiser.
func NewAdvertiser(logger *slog.Logger) Advertiser {
	return &mdnsAdvertiser{logger: logger}
}

// Start begins answering queries for the device name.
func (a *mdnsAdvertiser) Start(name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.conn != nil {
		return nil
	}

	addr, err := net.ResolveUDPAddr("udp4", mdns.DefaultAddressIPv4)
	if err != nil {
		return fmt.Errorf("connmgr: mdns resolve: %w", err)
	}

	l, err := net.ListenUDP("udp4", addr)
	if err != nil {
		return fmt.Errorf("connmgr: mdns listen: %w", err)
	}

	local := name
	if !strings.HasSuffix(local, ".local") {
		local += ".local"
	}

	conn, err := mdns.Server(ipv4.NewPacketConn(l), nil, &mdns.Config{
		LocalNames: []string{local},
	})
	if err != nil {
		l.Close()
		return fmt.Errorf("connmgr: mdns server: %w", err)
	}

	a.conn = conn
	a.logger.Info("Name advertisement started", "name", local)
	return nil
}

// Stop stops answering queries.
func (a *mdnsAdvertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.conn == nil {
		return
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Warn("Failed to close mDNS responder", "error", err)
	}
	a.conn = nil
	a.logger.Info("Name advertisement stopped")
}

// noopAdvertiser is used in tests and when advertisement is disabled.
type noopAdvertiser struct{}

// NewNoopAdvertiser returns an advertiser that does nothing.
func NewNoopAdvertiser() Advertiser {
	return noopAdvertiser{}
}

// Start is a no-op.
func (noopAdvertiser) Start(name string) error { return nil }

// Stop is a no-op.
func (noopAdvertiser) Stop() {}
