package profile

import "time"

type ConversationStyle string

const (
	StyleCasual ConversationStyle = "casual"
	StyleFormal ConversationStyle = "formal"
	StyleMixed  ConversationStyle = "mixed"
)

type Pace string

const (
	PaceSlow   Pace = "slow"
	PaceNormal Pace = "normal"
	PaceFast   Pace = "fast"
)

// HistoryWindow bounds the rolling window of past-conversation summaries.
// Oldest entries are evicted first; insertion order is chronological.
const HistoryWindow = 10

// Onboarding step identifiers, in fixed first-session order.
const (
	StepName   = "name"
	StepGender = "gender"
	StepTopics = "topics"
	StepGoals  = "goals"
)

type OnboardingStep struct {
	ID   string `json:"id"`
	Done bool   `json:"done"`
}

// Onboarding tracks the fixed first-session checklist.
type Onboarding struct {
	Steps   []OnboardingStep `json:"steps"`
	Current int              `json:"current"`
	Done    bool             `json:"done"`
}

func DefaultOnboarding() Onboarding {
	return Onboarding{
		Steps: []OnboardingStep{
			{ID: StepName},
			{ID: StepGender},
			{ID: StepTopics},
			{ID: StepGoals},
		},
	}
}

// CurrentID returns the identifier of the step awaiting completion, or ""
// once the sequence is done.
func (o *Onboarding) CurrentID() string {
	if o.Done || o.Current < 0 || o.Current >= len(o.Steps) {
		return ""
	}
	return o.Steps[o.Current].ID
}

// Advance marks the current step completed and moves the pointer forward by
// exactly one; the sequence flips to done after the last step.
func (o *Onboarding) Advance() {
	if o.Done || o.Current < 0 || o.Current >= len(o.Steps) {
		return
	}
	o.Steps[o.Current].Done = true
	o.Current++
	if o.Current >= len(o.Steps) {
		o.Done = true
	}
}

// PastConversation is one entry in the rolling history window.
type PastConversation struct {
	SessionID string    `json:"session_id"`
	Summary   string    `json:"summary"`
	Topics    []string  `json:"topics,omitempty"`
	EndedAt   time.Time `json:"ended_at"`
}

// UserProfile is the long-lived per-user record persisted across sessions.
type UserProfile struct {
	Name           string             `json:"name,omitempty"`
	Gender         string             `json:"gender,omitempty"`
	FavoriteTopics []string           `json:"favorite_topics,omitempty"`
	LearningGoals  []string           `json:"learning_goals,omitempty"`
	Style          ConversationStyle  `json:"style"`
	Pace           Pace               `json:"pace"`
	History        []PastConversation `json:"history,omitempty"`
	Onboarding     Onboarding         `json:"onboarding"`
	CreatedAt      time.Time          `json:"created_at"`
	LastActiveAt   time.Time          `json:"last_active_at"`
}

// Default returns a fresh profile with the onboarding sequence at step one.
func Default() UserProfile {
	now := time.Now().UTC()
	return UserProfile{
		Style:        StyleCasual,
		Pace:         PaceNormal,
		Onboarding:   DefaultOnboarding(),
		CreatedAt:    now,
		LastActiveAt: now,
	}
}

// AddTopic records a favorite topic, deduplicated.
func (p *UserProfile) AddTopic(topic string) {
	for _, t := range p.FavoriteTopics {
		if t == topic {
			return
		}
	}
	p.FavoriteTopics = append(p.FavoriteTopics, topic)
}

// AddGoal records a learning goal, deduplicated.
func (p *UserProfile) AddGoal(goal string) {
	for _, g := range p.LearningGoals {
		if g == goal {
			return
		}
	}
	p.LearningGoals = append(p.LearningGoals, goal)
}

// AppendHistory appends one summary and evicts the oldest entries beyond the
// window bound.
func (p *UserProfile) AppendHistory(entry PastConversation) {
	p.History = append(p.History, entry)
	if len(p.History) > HistoryWindow {
		p.History = p.History[len(p.History)-HistoryWindow:]
	}
}
