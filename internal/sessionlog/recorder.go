package sessionlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/veronicadeleonh/BatePapo/internal/store"
)

const sessionKeyPrefix = "session/"

var ErrNoActiveSession = errors.New("no active session")

// Recorder accumulates the exchanges of the active practice session and
// persists a summarized record when the session ends.
type Recorder struct {
	kv store.KV

	mu     sync.Mutex
	active *Session
}

func NewRecorder(kv store.KV) *Recorder {
	return &Recorder{kv: kv}
}

// Begin opens a new session record, replacing any unfinished one.
func (r *Recorder) Begin(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = &Session{
		ID:        sessionID,
		StartedAt: time.Now().UTC(),
	}
}

// Record appends one exchange to the active session. Flow and topics are
// derived here so callers only supply the raw texts.
func (r *Recorder) Record(turnID, userText, agentText string, latency time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return ErrNoActiveSession
	}
	r.active.Exchanges = append(r.active.Exchanges, Exchange{
		TurnID:    turnID,
		UserText:  userText,
		AgentText: agentText,
		Topics:    DetectTopics(userText),
		Flow:      ClassifyFlow(userText),
		LatencyMS: latency.Milliseconds(),
		At:        time.Now().UTC(),
	})
	return nil
}

// End closes the active session, derives its summary fields, and persists
// it. Sessions with no exchanges are discarded, not stored.
func (r *Recorder) End(ctx context.Context) (Session, error) {
	r.mu.Lock()
	active := r.active
	r.active = nil
	r.mu.Unlock()

	if active == nil {
		return Session{}, ErrNoActiveSession
	}
	active.EndedAt = time.Now().UTC()
	if len(active.Exchanges) == 0 {
		return *active, nil
	}

	active.Topics = aggregateTopics(active.Exchanges)
	active.Mood = ClassifyMood(active.Exchanges)
	active.Engagement = ClassifyEngagement(active.Exchanges)
	active.Summary = buildSummary(*active)

	raw, err := json.Marshal(active)
	if err != nil {
		return *active, fmt.Errorf("encode session: %w", err)
	}
	if err := r.kv.Put(ctx, sessionKeyPrefix+active.ID, string(raw)); err != nil {
		return *active, fmt.Errorf("store session: %w", err)
	}
	return *active, nil
}

// Active reports whether a session is currently open and its exchange count.
func (r *Recorder) Active() (string, int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return "", 0, false
	}
	return r.active.ID, len(r.active.Exchanges), true
}

func aggregateTopics(exchanges []Exchange) []string {
	counts := map[string]int{}
	for _, ex := range exchanges {
		for _, t := range ex.Topics {
			counts[t]++
		}
	}
	topics := make([]string, 0, len(counts))
	for t := range counts {
		topics = append(topics, t)
	}
	sort.Slice(topics, func(i, j int) bool {
		if counts[topics[i]] != counts[topics[j]] {
			return counts[topics[i]] > counts[topics[j]]
		}
		return topics[i] < topics[j]
	})
	return topics
}

func buildSummary(s Session) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d trocas em %s", len(s.Exchanges), s.Duration().Round(time.Second))
	if len(s.Topics) > 0 {
		limit := len(s.Topics)
		if limit > 3 {
			limit = 3
		}
		fmt.Fprintf(&b, " sobre %s", strings.Join(s.Topics[:limit], ", "))
	}
	return b.String()
}
