package credstore

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Store reads and writes the credential record in a file-backed
// non-volatile region. Writes go through a temp file and rename, so Load
// never observes a partial record.
type Store struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
}

// New creates a store over the given file path.
func New(path string, logger *slog.Logger) *Store {
	return &Store{path: path, logger: logger}
}

// Load returns the stored credentials. ok is false when the region is
// missing, zeroed or corrupt; a single failed validation is definitive for
// this boot, there are no retries.
func (s *Store) Load() (Credentials, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("Credential region unreadable", "path", s.path, "error", err)
		}
		return Credentials{}, false
	}

	creds, ok := decodeRecord(data)
	if !ok {
		s.logger.Warn("Credential record failed validation, treating as absent")
		return Credentials{}, false
	}
	if creds.SSID == "" {
		return Credentials{}, false
	}

	return creds, true
}

// Save validates field lengths, recomputes signature and CRC and writes the
// whole record atomically.
func (s *Store) Save(ssid, password string) error {
	if len(ssid) > MaxSSIDLen {
		return ErrSSIDTooLong
	}
	if len(password) > MaxPasswordLen {
		return ErrPasswordTooLong
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record := encodeRecord(Credentials{SSID: ssid, Password: password})
	if err := s.writeAtomic(record); err != nil {
		return fmt.Errorf("credstore: save: %w", err)
	}

	s.logger.Info("Credentials persisted", "ssid", ssid)
	return nil
}

// Clear overwrites the entire region with zeros. The zeroed signature fails
// validation on the next Load.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeAtomic(make([]byte, recordSize)); err != nil {
		return fmt.Errorf("credstore: clear: %w", err)
	}

	s.logger.Info("Credential region cleared")
	return nil
}

// writeAtomic replaces the region contents via temp file and rename.
func (s *Store) writeAtomic(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
