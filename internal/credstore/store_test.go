package credstore

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "credentials.bin")
	return New(path, slog.Default())
}

func TestSaveThenLoadRoundtrip(t *testing.T) {
	tests := []struct {
		name     string
		ssid     string
		password string
	}{
		{"simple", "homenet", "hunter2hunter2"},
		{"empty password", "opennet", ""},
		{"max lengths", strings.Repeat("s", 32), strings.Repeat("p", 63)},
		{"spaces and symbols", "my wifi 5GHz", `p@ss "word" !`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t)
			if err := store.Save(tt.ssid, tt.password); err != nil {
				t.Fatalf("Save() err=%v", err)
			}

			creds, ok := store.Load()
			if !ok {
				t.Fatal("Load() returned not ok after Save")
			}
			if creds.SSID != tt.ssid || creds.Password != tt.password {
				t.Errorf("Load() = %q/%q, want %q/%q", creds.SSID, creds.Password, tt.ssid, tt.password)
			}
		})
	}
}

func TestSaveRejectsOversizedFields(t *testing.T) {
	store := newTestStore(t)

	if err := store.Save(strings.Repeat("s", 33), "pw"); err != ErrSSIDTooLong {
		t.Errorf("Save(long ssid) err=%v, want ErrSSIDTooLong", err)
	}
	if err := store.Save("net", strings.Repeat("p", 64)); err != ErrPasswordTooLong {
		t.Errorf("Save(long password) err=%v, want ErrPasswordTooLong", err)
	}
}

func TestLoadFailsClosedOnBitFlip(t *testing.T) {
	store := newTestStore(t)
	if err := store.Save("homenet", "hunter2hunter2"); err != nil {
		t.Fatalf("Save() err=%v", err)
	}

	data, err := os.ReadFile(store.path)
	if err != nil {
		t.Fatalf("read region: %v", err)
	}

	// Flip one bit in every byte of the ssid and password fields in turn;
	// every corruption must fail closed.
	for off := ssidOffset; off < crcOffset; off++ {
		corrupted := append([]byte(nil), data...)
		corrupted[off] ^= 0x01
		if err := os.WriteFile(store.path, corrupted, 0o644); err != nil {
			t.Fatalf("write corrupted region: %v", err)
		}

		if _, ok := store.Load(); ok {
			t.Fatalf("Load() trusted record with flipped bit at offset %d", off)
		}
	}
}

func TestLoadFailsClosedOnBadSignature(t *testing.T) {
	store := newTestStore(t)
	if err := store.Save("homenet", "pw"); err != nil {
		t.Fatalf("Save() err=%v", err)
	}

	data, _ := os.ReadFile(store.path)
	data[0] ^= 0xFF
	os.WriteFile(store.path, data, 0o644)

	if _, ok := store.Load(); ok {
		t.Error("Load() trusted record with bad signature")
	}
}

func TestClearMakesLoadReturnNothing(t *testing.T) {
	store := newTestStore(t)
	if err := store.Save("homenet", "pw"); err != nil {
		t.Fatalf("Save() err=%v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear() err=%v", err)
	}

	if _, ok := store.Load(); ok {
		t.Error("Load() returned credentials after Clear")
	}

	// Region stays allocated at full size, just zeroed.
	data, err := os.ReadFile(store.path)
	if err != nil {
		t.Fatalf("read region: %v", err)
	}
	if len(data) != recordSize {
		t.Errorf("region size = %d, want %d", len(data), recordSize)
	}
}

func TestLoadMissingOrTruncatedRegion(t *testing.T) {
	store := newTestStore(t)
	if _, ok := store.Load(); ok {
		t.Error("Load() on missing region returned ok")
	}

	os.WriteFile(store.path, []byte{0x01, 0x02, 0x03}, 0o644)
	if _, ok := store.Load(); ok {
		t.Error("Load() on truncated region returned ok")
	}
}
