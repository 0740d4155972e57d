package transport

import (
	"log/slog"
	"net"
	"sync"
	"time"
)

// writeTimeout bounds a single status or reply write so one wedged client
// cannot stall the broadcast fan-out.
const writeTimeout = 5 * time.Second

// session is one control connection. It satisfies the protocol engine's
// session surface: the hotspot flag is captured once at accept time and
// never changes for the life of the connection.
type session struct {
	id      string
	conn    net.Conn
	hotspot bool
	logger  *slog.Logger

	writeMu sync.Mutex
}

// ID returns the session identifier.
func (s *session) ID() string { return s.id }

// HotspotContext reports whether the connection was accepted while the
// setup hotspot was active.
func (s *session) HotspotContext() bool { return s.hotspot }

// send writes one newline-terminated status line. Errors are logged and
// otherwise ignored; the read loop notices a dead peer on its own.
func (s *session) send(line string) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return
	}
	if _, err := s.conn.Write([]byte(line + "\n")); err != nil {
		s.logger.Debug("Status write failed", "session", s.id, "error", err)
	}
}
