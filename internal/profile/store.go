package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/veronicadeleonh/BatePapo/internal/store"
)

const profileKey = "profile/default"

// Store persists the UserProfile through the key/value boundary.
type Store struct {
	kv     store.KV
	window int
}

func NewStore(kv store.KV) *Store {
	return &Store{kv: kv, window: HistoryWindow}
}

// SetHistoryWindow overrides the rolling-history bound (tunable, default 10).
func (s *Store) SetHistoryWindow(n int) {
	if n > 0 {
		s.window = n
	}
}

// Load returns the stored profile, or a fresh default when the record is
// missing or unreadable. Corrupt data is logged and discarded, never
// propagated as a failure.
func (s *Store) Load(ctx context.Context) UserProfile {
	raw, ok, err := s.kv.Get(ctx, profileKey)
	if err != nil {
		log.Printf("profile: load failed, starting fresh: %v", err)
		return Default()
	}
	if !ok {
		return Default()
	}

	var p UserProfile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		log.Printf("profile: discarding corrupt stored profile: %v", err)
		return Default()
	}
	if len(p.Onboarding.Steps) == 0 {
		p.Onboarding = DefaultOnboarding()
	}
	return p
}

// Save writes the full merged profile, enforcing the history bound and
// refreshing the last-active timestamp on every write.
func (s *Store) Save(ctx context.Context, p UserProfile) error {
	if len(p.History) > s.window {
		p.History = p.History[len(p.History)-s.window:]
	}
	p.LastActiveAt = time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = p.LastActiveAt
	}

	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if err := s.kv.Put(ctx, profileKey, string(raw)); err != nil {
		return fmt.Errorf("store profile: %w", err)
	}
	return nil
}

// Clear removes the stored profile.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, profileKey); err != nil {
		return fmt.Errorf("clear profile: %w", err)
	}
	return nil
}
