package session

import (
	"context"
	"testing"
	"time"
)

func TestManagerCreateGetEnd(t *testing.T) {
	m := NewManager(time.Minute)
	s := m.Create("pt-BR", "voice-1")
	if s.ID == "" || s.Status != StatusActive || s.Locale != "pt-BR" {
		t.Fatalf("created session = %+v", s)
	}

	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.ID != s.ID {
		t.Fatalf("Get returned %q, want %q", got.ID, s.ID)
	}

	if err := m.CountExchange(s.ID); err != nil {
		t.Fatalf("CountExchange error: %v", err)
	}
	ended, err := m.End(s.ID)
	if err != nil {
		t.Fatalf("End error: %v", err)
	}
	if ended.Status != StatusEnded || ended.Exchanges != 1 {
		t.Fatalf("ended session = %+v", ended)
	}
	if m.ActiveCount() != 0 {
		t.Fatalf("ActiveCount = %d", m.ActiveCount())
	}
}

func TestManagerGetUnknown(t *testing.T) {
	m := NewManager(time.Minute)
	if _, err := m.Get("missing"); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := m.Touch("missing"); err != ErrNotFound {
		t.Fatalf("Touch err = %v, want ErrNotFound", err)
	}
}

func TestManagerCloneIsolation(t *testing.T) {
	m := NewManager(time.Minute)
	s := m.Create("pt-BR", "")
	s.Locale = "mutated"

	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.Locale != "pt-BR" {
		t.Fatalf("internal state mutated through returned copy: %q", got.Locale)
	}
}

func TestManagerJanitorExpiresInactive(t *testing.T) {
	m := NewManager(20 * time.Millisecond)
	expired := make(chan string, 1)
	m.SetExpireHook(func(s *Session) { expired <- s.ID })

	s := m.Create("pt-BR", "")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartJanitor(ctx, 10*time.Millisecond)

	select {
	case id := <-expired:
		if id != s.ID {
			t.Fatalf("expired %q, want %q", id, s.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("session never expired")
	}
	if m.ActiveCount() != 0 {
		t.Fatalf("ActiveCount = %d after expiry", m.ActiveCount())
	}
}
