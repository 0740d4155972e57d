// Package transport runs the TCP control listener for the binary protocol.
// One goroutine per session reads length-framed messages, hands them to the
// protocol engine and writes replies; outbound status lines from the event
// bus fan out to every live session.
package transport

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/mstrov/stripd/internal/events"
	"github.com/mstrov/stripd/internal/protocol"
)

// Handler processes one complete message and returns the reply line, or ""
// for silence. Implemented by the protocol engine.
type Handler interface {
	Handle(sess protocol.Session, msg []byte) string
}

// Hotspot reports whether the setup hotspot is up, sampled at accept time.
type Hotspot interface {
	HotspotActive() bool
}

// Metrics is the subset of the metric set the transport feeds.
type Metrics interface {
	SessionOpened()
	SessionClosed()
}

// Server accepts and serves control sessions.
type Server struct {
	addr    string
	engine  Handler
	hotspot Hotspot
	bus     *events.Bus
	metrics Metrics
	logger  *slog.Logger

	mu       sync.Mutex
	ln       net.Listener
	sessions map[string]*session
	closed   bool

	unsub func()
	wg    sync.WaitGroup
}

// NewServer creates a control server listening on addr once started.
func NewServer(addr string, engine Handler, hotspot Hotspot, bus *events.Bus, metrics Metrics, logger *slog.Logger) *Server {
	return &Server{
		addr:     addr,
		engine:   engine,
		hotspot:  hotspot,
		bus:      bus,
		metrics:  metrics,
		logger:   logger,
		sessions: make(map[string]*session),
	}
}

// Start binds the listener and begins accepting sessions.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("transport: listen %s: %w", s.addr, err)
	}

	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	s.unsub = s.bus.Subscribe(func(e events.StatusEvent) {
		s.broadcast(e.Text)
	})

	s.logger.Info("Control server listening", "addr", ln.Addr().String())

	s.wg.Add(1)
	go s.acceptLoop(ln)
	return nil
}

// Addr returns the bound listener address.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return s.addr
	}
	return s.ln.Addr().String()
}

// Stop closes the listener and every live session, then waits for the
// session goroutines to drain.
func (s *Server) Stop() {
	s.mu.Lock()
	s.closed = true
	ln := s.ln
	open := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		open = append(open, sess)
	}
	s.mu.Unlock()

	if s.unsub != nil {
		s.unsub()
	}
	if ln != nil {
		ln.Close()
	}
	for _, sess := range open {
		sess.conn.Close()
	}
	s.wg.Wait()
}

func (s *Server) acceptLoop(ln net.Listener) {
	defer s.wg.Done()

	for {
		conn, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if !closed {
				s.logger.Error("Accept failed", "error", err)
			}
			return
		}

		sess := &session{
			id:      uuid.NewString(),
			conn:    conn,
			hotspot: s.hotspot.HotspotActive(),
			logger:  s.logger,
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.sessions[sess.id] = sess
		s.mu.Unlock()

		s.metrics.SessionOpened()
		s.bus.Publish(events.SessionEvent{ID: sess.id, Action: "opened", Hotspot: sess.hotspot})
		s.logger.Info("Session opened", "session", sess.id, "remote", conn.RemoteAddr().String(), "hotspot", sess.hotspot)

		s.wg.Add(1)
		go s.serve(sess)
	}
}

// serve is one session's read loop. A framing error is unrecoverable on a
// raw byte stream, so the session is told why and dropped.
func (s *Server) serve(sess *session) {
	defer s.wg.Done()
	defer s.closeSession(sess)

	r := bufio.NewReader(sess.conn)
	for {
		msg, err := readMessage(r)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.logger.Debug("Session read failed", "session", sess.id, "error", err)
				sess.send("ERR:" + err.Error())
			}
			return
		}

		if reply := s.engine.Handle(sess, msg); reply != "" {
			sess.send(reply)
		}
	}
}

func (s *Server) closeSession(sess *session) {
	sess.conn.Close()

	s.mu.Lock()
	delete(s.sessions, sess.id)
	s.mu.Unlock()

	s.metrics.SessionClosed()
	s.bus.Publish(events.SessionEvent{ID: sess.id, Action: "closed", Hotspot: sess.hotspot})
	s.logger.Info("Session closed", "session", sess.id)
}

// broadcast sends one status line to every live session.
func (s *Server) broadcast(text string) {
	s.mu.Lock()
	open := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		open = append(open, sess)
	}
	s.mu.Unlock()

	for _, sess := range open {
		sess.send(text)
	}
}

// readMessage reads one complete message off the stream: the opcode byte,
// then the payload the opcode's framing dictates.
func readMessage(r *bufio.Reader) ([]byte, error) {
	op, err := r.ReadByte()
	if err != nil {
		return nil, err
	}

	if n, ok := protocol.PayloadSize(op); ok {
		msg := make([]byte, 1+n)
		msg[0] = op
		if _, err := io.ReadFull(r, msg[1:]); err != nil {
			return nil, fmt.Errorf("short payload for opcode 0x%02X: %w", op, err)
		}
		return msg, nil
	}

	if op == protocol.OpReconfigure {
		var hdr [2]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return nil, fmt.Errorf("short reconfigure header: %w", err)
		}
		n, err := protocol.ReconfigurePayloadSize(hdr[0], hdr[1])
		if err != nil {
			return nil, err
		}
		msg := make([]byte, 3+n)
		msg[0] = op
		msg[1], msg[2] = hdr[0], hdr[1]
		if _, err := io.ReadFull(r, msg[3:]); err != nil {
			return nil, fmt.Errorf("short reconfigure credentials: %w", err)
		}
		return msg, nil
	}

	return nil, fmt.Errorf("%w: 0x%02X", protocol.ErrUnknownOpcode, op)
}
