package sessionlog

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
)

// Analytics aggregates every stored session into the practice report.
type Analytics struct {
	Sessions               int                `json:"sessions"`
	Exchanges              int                `json:"exchanges"`
	TopicFrequency         map[string]int     `json:"topic_frequency"`
	FlowDistribution       map[FlowType]int   `json:"flow_distribution"`
	MoodDistribution       map[Mood]int       `json:"mood_distribution"`
	EngagementDistribution map[Engagement]int `json:"engagement_distribution"`
	SessionsByHour         [24]int            `json:"sessions_by_hour"`
	MeanLatencyMS          float64            `json:"mean_latency_ms"`
}

// LoadSessions reads all persisted session records, oldest first. Corrupt
// records are skipped with a log line, never fatal.
func LoadSessions(ctx context.Context, r *Recorder) ([]Session, error) {
	items, err := r.kv.List(ctx, sessionKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	sessions := make([]Session, 0, len(items))
	for key, raw := range items {
		var s Session
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			log.Printf("sessionlog: skipping corrupt record %s: %v", key, err)
			continue
		}
		sessions = append(sessions, s)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartedAt.Before(sessions[j].StartedAt)
	})
	return sessions, nil
}

// BuildAnalytics folds stored sessions into the aggregate report.
func BuildAnalytics(sessions []Session) Analytics {
	a := Analytics{
		TopicFrequency:         map[string]int{},
		FlowDistribution:       map[FlowType]int{},
		MoodDistribution:       map[Mood]int{},
		EngagementDistribution: map[Engagement]int{},
	}

	latencySum := int64(0)
	latencyCount := 0
	for _, s := range sessions {
		a.Sessions++
		a.MoodDistribution[s.Mood]++
		a.EngagementDistribution[s.Engagement]++
		a.SessionsByHour[s.StartedAt.Hour()]++
		for _, ex := range s.Exchanges {
			a.Exchanges++
			a.FlowDistribution[ex.Flow]++
			for _, t := range ex.Topics {
				a.TopicFrequency[t]++
			}
			if ex.LatencyMS > 0 {
				latencySum += ex.LatencyMS
				latencyCount++
			}
		}
	}
	if latencyCount > 0 {
		a.MeanLatencyMS = float64(latencySum) / float64(latencyCount)
	}
	return a
}

// Transcript renders one session as a plain-text dialogue export.
func Transcript(s Session) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sessão %s — %s\n", s.ID, s.StartedAt.Format("2006-01-02 15:04"))
	if s.Summary != "" {
		fmt.Fprintf(&b, "%s\n", s.Summary)
	}
	b.WriteString("\n")
	for _, ex := range s.Exchanges {
		fmt.Fprintf(&b, "Você: %s\n", ex.UserText)
		fmt.Fprintf(&b, "Agente: %s\n\n", ex.AgentText)
	}
	return b.String()
}
