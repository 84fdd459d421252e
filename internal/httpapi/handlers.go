package httpapi

import (
	"net/http"
	"strings"

	"github.com/veronicadeleonh/BatePapo/internal/sessionlog"
	"github.com/veronicadeleonh/BatePapo/internal/voice"
)

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.profiles.Load(r.Context()))
}

func (s *Server) handleClearProfile(w http.ResponseWriter, r *http.Request) {
	if err := s.profiles.Clear(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, "profile_clear_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "cleared"})
}

func (s *Server) handleOnboardingStatus(w http.ResponseWriter, r *http.Request) {
	p := s.profiles.Load(r.Context())
	respondJSON(w, http.StatusOK, map[string]any{
		"done":            p.Onboarding.Done,
		"current_step":    p.Onboarding.CurrentID(),
		"steps":           p.Onboarding.Steps,
		"capability_mode": s.cfg.CapabilityMode,
		"brain_mode":      s.cfg.BrainMode,
	})
}

type sessionListItem struct {
	SessionID  string   `json:"session_id"`
	StartedAt  string   `json:"started_at"`
	EndedAt    string   `json:"ended_at"`
	Exchanges  int      `json:"exchanges"`
	Topics     []string `json:"topics,omitempty"`
	Mood       string   `json:"mood"`
	Engagement string   `json:"engagement"`
	Summary    string   `json:"summary"`
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := sessionlog.LoadSessions(r.Context(), s.recorder)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "sessions_unavailable", err.Error())
		return
	}
	items := make([]sessionListItem, 0, len(sessions))
	for _, rec := range sessions {
		items = append(items, sessionListItem{
			SessionID:  rec.ID,
			StartedAt:  rec.StartedAt.Format("2006-01-02T15:04:05Z07:00"),
			EndedAt:    rec.EndedAt.Format("2006-01-02T15:04:05Z07:00"),
			Exchanges:  len(rec.Exchanges),
			Topics:     rec.Topics,
			Mood:       string(rec.Mood),
			Engagement: string(rec.Engagement),
			Summary:    rec.Summary,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"sessions": items})
}

// handleSessionTranscript exports stored dialogues as plain text. With an
// id query parameter only that session is exported; without one, all of
// them in chronological order.
func (s *Server) handleSessionTranscript(w http.ResponseWriter, r *http.Request) {
	sessions, err := sessionlog.LoadSessions(r.Context(), s.recorder)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "sessions_unavailable", err.Error())
		return
	}

	id := strings.TrimSpace(r.URL.Query().Get("id"))
	var b strings.Builder
	found := false
	for _, rec := range sessions {
		if id != "" && rec.ID != id {
			continue
		}
		found = true
		b.WriteString(sessionlog.Transcript(rec))
	}
	if id != "" && !found {
		respondError(w, http.StatusNotFound, "session_not_found", "no stored session with id "+id)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(b.String()))
}

func (s *Server) handleSessionsReport(w http.ResponseWriter, r *http.Request) {
	sessions, err := sessionlog.LoadSessions(r.Context(), s.recorder)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "sessions_unavailable", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"analytics": sessionlog.BuildAnalytics(sessions),
		"latency":   s.metrics.LatencySnapshot(),
	})
}

// defaultVoiceCatalog is served when the browser has not enumerated its own
// voices; URIs follow the platform convention of locale-qualified names.
var defaultVoiceCatalog = []voice.Voice{
	{URI: "pt-BR-luciana", Name: "Luciana", Lang: "pt-BR", Default: true},
	{URI: "pt-BR-felipe", Name: "Felipe", Lang: "pt-BR"},
	{URI: "pt-PT-joana", Name: "Joana", Lang: "pt-PT"},
	{URI: "en-US-alex", Name: "Alex", Lang: "en-US"},
}

func (s *Server) handleListVoices(w http.ResponseWriter, r *http.Request) {
	locale := strings.TrimSpace(r.URL.Query().Get("locale"))
	if locale == "" {
		locale = s.cfg.Locale
	}
	chosen, ok := voice.ChooseVoicePreferring(defaultVoiceCatalog, locale, s.cfg.VoicePriority)
	resp := map[string]any{
		"voices": defaultVoiceCatalog,
		"locale": locale,
	}
	if ok {
		resp["default_uri"] = chosen.URI
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePerfLatency(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.metrics.LatencySnapshot())
}
