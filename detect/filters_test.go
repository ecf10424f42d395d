package detect

import (
	"testing"
	"time"

	"github.com/roomsage/bookscan/models"
)

func TestFilters_ChainHost(t *testing.T) {
	f := DefaultFilters()

	tests := []struct {
		host string
		want bool
	}{
		{"marriott.com", true},
		{"www.marriott.com", true},
		{"reservations.hilton.com", true},
		{"mapleinn.com", false},
		{"notmarriott.com", false},
	}
	for _, tt := range tests {
		if got := f.ChainHost(tt.host); got != tt.want {
			t.Errorf("ChainHost(%q) = %v, want %v", tt.host, got, tt.want)
		}
	}
}

func TestFilters_JunkHost(t *testing.T) {
	f := DefaultFilters()

	tests := []struct {
		host string
		want bool
	}{
		{"facebook.com", true},
		{"m.facebook.com", true},
		{"parks.state.xx.gov", true},
		{"navy.mil", true},
		{"mapleinn.com", false},
		{"bookings.example.com", false},
	}
	for _, tt := range tests {
		if got := f.JunkHost(tt.host); got != tt.want {
			t.Errorf("JunkHost(%q) = %v, want %v", tt.host, got, tt.want)
		}
	}
}

func TestMemory_SetGetExpire(t *testing.T) {
	m := NewMemory(50 * time.Millisecond)
	defer m.Stop()

	m.Set("dead.example.com", models.ErrCodePrecheck)
	if got := m.Get("dead.example.com"); got != models.ErrCodePrecheck {
		t.Fatalf("Get = %q", got)
	}
	if got := m.Get("other.example.com"); got != "" {
		t.Fatalf("unexpected entry: %q", got)
	}

	time.Sleep(60 * time.Millisecond)
	if got := m.Get("dead.example.com"); got != "" {
		t.Fatalf("entry should have expired, got %q", got)
	}
}
