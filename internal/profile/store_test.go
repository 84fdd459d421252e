package profile

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/veronicadeleonh/BatePapo/internal/store"
)

func TestLoadReturnsDefaultWhenMissing(t *testing.T) {
	s := NewStore(store.NewMemoryKV())
	p := s.Load(context.Background())
	if p.Name != "" {
		t.Fatalf("fresh profile has Name = %q", p.Name)
	}
	if p.Onboarding.Done || p.Onboarding.Current != 0 {
		t.Fatalf("fresh profile onboarding = %+v, want step 0 not done", p.Onboarding)
	}
	if len(p.Onboarding.Steps) != 4 {
		t.Fatalf("onboarding steps = %d, want 4", len(p.Onboarding.Steps))
	}
}

func TestLoadDiscardsCorruptData(t *testing.T) {
	kv := store.NewMemoryKV()
	_ = kv.Put(context.Background(), "profile/default", "{not json")

	s := NewStore(kv)
	p := s.Load(context.Background())
	if p.Name != "" || p.Onboarding.Done {
		t.Fatalf("corrupt data should yield a default profile, got %+v", p)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewStore(store.NewMemoryKV())

	in := Default()
	in.Name = "Verônica"
	in.Gender = "feminino"
	in.AddTopic("música")
	in.AddGoal("viajar")
	in.Onboarding.Advance()

	before := time.Now().UTC()
	if err := s.Save(ctx, in); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	out := s.Load(ctx)
	if out.Name != in.Name || out.Gender != in.Gender {
		t.Fatalf("round trip changed identity fields: %+v", out)
	}
	if len(out.FavoriteTopics) != 1 || out.FavoriteTopics[0] != "música" {
		t.Fatalf("FavoriteTopics = %v", out.FavoriteTopics)
	}
	if out.Onboarding.Current != 1 || !out.Onboarding.Steps[0].Done {
		t.Fatalf("onboarding state lost: %+v", out.Onboarding)
	}
	if out.LastActiveAt.Before(before) {
		t.Fatalf("Save did not refresh LastActiveAt: %s", out.LastActiveAt)
	}
}

func TestSaveEnforcesHistoryBound(t *testing.T) {
	ctx := context.Background()
	s := NewStore(store.NewMemoryKV())

	p := Default()
	for i := 0; i < HistoryWindow*2; i++ {
		p.AppendHistory(PastConversation{
			SessionID: fmt.Sprintf("s-%d", i),
			Summary:   fmt.Sprintf("conversa %d", i),
			EndedAt:   time.Now().UTC(),
		})
		if err := s.Save(ctx, p); err != nil {
			t.Fatalf("Save error: %v", err)
		}
	}

	out := s.Load(ctx)
	if len(out.History) != HistoryWindow {
		t.Fatalf("history length = %d, want %d", len(out.History), HistoryWindow)
	}
	if out.History[len(out.History)-1].SessionID != fmt.Sprintf("s-%d", HistoryWindow*2-1) {
		t.Fatalf("newest entry missing, last = %s", out.History[len(out.History)-1].SessionID)
	}
	if out.History[0].SessionID != fmt.Sprintf("s-%d", HistoryWindow) {
		t.Fatalf("oldest entries not evicted first, first = %s", out.History[0].SessionID)
	}
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryKV()
	s := NewStore(kv)

	p := Default()
	p.Name = "João"
	if err := s.Save(ctx, p); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	if got := s.Load(ctx); got.Name != "" {
		t.Fatalf("profile survived Clear: %+v", got)
	}
}

func TestOnboardingAdvance(t *testing.T) {
	o := DefaultOnboarding()
	order := []string{StepName, StepGender, StepTopics, StepGoals}
	for i, want := range order {
		if got := o.CurrentID(); got != want {
			t.Fatalf("step %d = %q, want %q", i, got, want)
		}
		o.Advance()
		if !o.Steps[i].Done {
			t.Fatalf("step %q not marked done after Advance", want)
		}
	}
	if !o.Done {
		t.Fatalf("onboarding not done after all steps")
	}
	if o.CurrentID() != "" {
		t.Fatalf("CurrentID after completion = %q, want empty", o.CurrentID())
	}
	o.Advance() // no-op once done
	if o.Current != len(o.Steps) {
		t.Fatalf("Advance after done moved the pointer: %d", o.Current)
	}
}
