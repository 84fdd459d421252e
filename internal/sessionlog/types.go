package sessionlog

import "time"

// FlowType labels the conversational shape of a user turn.
type FlowType string

const (
	FlowGreeting          FlowType = "greeting"
	FlowTopicIntroduction FlowType = "topic_introduction"
	FlowQuestion          FlowType = "question"
	FlowResponse          FlowType = "response"
	FlowFollowup          FlowType = "followup"
	FlowGoodbye           FlowType = "goodbye"
)

// Mood summarizes how the practice session felt for the learner.
type Mood string

const (
	MoodPositive Mood = "positive"
	MoodNeutral  Mood = "neutral"
	MoodNegative Mood = "negative"
)

// Engagement grades how much the learner talked.
type Engagement string

const (
	EngagementHigh   Engagement = "high"
	EngagementMedium Engagement = "medium"
	EngagementLow    Engagement = "low"
)

// Exchange is one immutable user/agent pair. Recorded exchanges are never
// edited after the fact.
type Exchange struct {
	TurnID    string    `json:"turn_id"`
	UserText  string    `json:"user_text"`
	AgentText string    `json:"agent_text"`
	Topics    []string  `json:"topics,omitempty"`
	Flow      FlowType  `json:"flow"`
	LatencyMS int64     `json:"latency_ms"`
	At        time.Time `json:"at"`
}

// Session is the persisted record of one practice conversation.
type Session struct {
	ID         string     `json:"id"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    time.Time  `json:"ended_at"`
	Exchanges  []Exchange `json:"exchanges"`
	Topics     []string   `json:"topics,omitempty"`
	Mood       Mood       `json:"mood"`
	Engagement Engagement `json:"engagement"`
	Summary    string     `json:"summary"`
}

func (s *Session) Duration() time.Duration {
	if s.EndedAt.IsZero() || s.StartedAt.IsZero() {
		return 0
	}
	return s.EndedAt.Sub(s.StartedAt)
}
