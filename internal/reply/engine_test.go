package reply

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/veronicadeleonh/BatePapo/internal/brain"
	"github.com/veronicadeleonh/BatePapo/internal/profile"
	"github.com/veronicadeleonh/BatePapo/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, *brain.MockAdapter, *profile.Store) {
	t.Helper()
	adapter := brain.NewMockAdapter()
	profiles := profile.NewStore(store.NewMemoryKV())
	engine := NewEngine(adapter, profiles, Config{MaxTokens: 120, Temperature: 0.7, Timeout: time.Second})
	return engine, adapter, profiles
}

func TestEngineReturnsGeneratedReply(t *testing.T) {
	engine, adapter, _ := newTestEngine(t)
	adapter.SetReplies("Que ótimo! [pause:400ms] Me conta mais.")

	got, err := engine.Reply(context.Background(), "eu gosto de viajar")
	if err != nil {
		t.Fatalf("Reply error: %v", err)
	}
	if got != "Que ótimo! [pause:400ms] Me conta mais." {
		t.Fatalf("reply = %q", got)
	}

	reqs := adapter.Requests()
	if len(reqs) != 1 {
		t.Fatalf("requests = %d", len(reqs))
	}
	if !strings.Contains(reqs[0].Prompt, "eu gosto de viajar") {
		t.Fatalf("prompt missing user text: %q", reqs[0].Prompt)
	}
}

func TestEngineFallsBackOnAdapterError(t *testing.T) {
	engine, adapter, profiles := newTestEngine(t)
	adapter.SetError(errors.New("backend down"))

	// Finish onboarding first so the keyword table answers.
	prof := profiles.Load(context.Background())
	prof.Onboarding.Done = true
	if err := profiles.Save(context.Background(), prof); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	got, err := engine.Reply(context.Background(), "adoro viajar para a praia")
	if err != nil {
		t.Fatalf("Reply error: %v", err)
	}
	if got == "" {
		t.Fatalf("fallback reply is empty")
	}
	if !strings.Contains(got, "viagens") {
		t.Fatalf("reply = %q, want travel fallback", got)
	}
}

func TestEngineFallsBackOnEmptyGeneration(t *testing.T) {
	engine, adapter, _ := newTestEngine(t)
	adapter.SetReplies("   ")

	got, err := engine.Reply(context.Background(), "oi")
	if err != nil {
		t.Fatalf("Reply error: %v", err)
	}
	if strings.TrimSpace(got) == "" {
		t.Fatalf("reply is empty")
	}
}

func TestEngineAbsorbsOnboardingAnswers(t *testing.T) {
	engine, _, profiles := newTestEngine(t)

	if _, err := engine.Reply(context.Background(), "me chamo Veronica"); err != nil {
		t.Fatalf("Reply error: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		prof := profiles.Load(context.Background())
		if prof.Name == "Veronica" {
			if prof.Onboarding.CurrentID() != profile.StepGender {
				t.Fatalf("onboarding step = %q, want gender", prof.Onboarding.CurrentID())
			}
			return
		}
		select {
		case <-deadline:
			t.Fatalf("profile never absorbed the name, got %+v", prof)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestEngineKeepsExchangeWindowBounded(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	for i := 0; i < exchangeWindow*2; i++ {
		if _, err := engine.Reply(context.Background(), "oi de novo"); err != nil {
			t.Fatalf("Reply error: %v", err)
		}
	}
	if got := len(engine.RecentExchanges()); got != exchangeWindow {
		t.Fatalf("window = %d, want %d", got, exchangeWindow)
	}
}

func TestEngineResetSession(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	if _, err := engine.Reply(context.Background(), "oi"); err != nil {
		t.Fatalf("Reply error: %v", err)
	}
	engine.ResetSession()
	if got := len(engine.RecentExchanges()); got != 0 {
		t.Fatalf("window = %d after reset", got)
	}
}
