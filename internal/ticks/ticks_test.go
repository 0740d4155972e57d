package ticks

import (
	"testing"
	"time"
)

func TestReached(t *testing.T) {
	tests := []struct {
		name     string
		now      Ticks
		deadline Ticks
		want     bool
	}{
		{"before", 10, 20, false},
		{"exact", 20, 20, true},
		{"after", 25, 20, true},
		{"wrap pending", 0xFFFFFFF0, Ticks(0xFFFFFFF0).Add(32), false},
		{"wrap reached", Ticks(0xFFFFFFF0).Add(40), Ticks(0xFFFFFFF0).Add(32), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Reached(tt.now, tt.deadline); got != tt.want {
				t.Errorf("Reached(%d, %d) = %v, want %v", tt.now, tt.deadline, got, tt.want)
			}
		})
	}
}

func TestSinceAcrossWrap(t *testing.T) {
	then := Ticks(0xFFFFFFFE)
	now := then.Add(10)

	if got := Since(now, then); got != 10 {
		t.Errorf("Since() = %d, want 10", got)
	}
}

func TestFromDuration(t *testing.T) {
	if got := FromDuration(30*time.Millisecond, 2*time.Millisecond); got != 15 {
		t.Errorf("FromDuration() = %d, want 15", got)
	}

	// Sub-interval durations round up so short timeouts never become zero.
	if got := FromDuration(time.Millisecond, 2*time.Millisecond); got != 1 {
		t.Errorf("FromDuration() = %d, want 1", got)
	}
}
