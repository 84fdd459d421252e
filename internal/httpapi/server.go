package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/veronicadeleonh/BatePapo/internal/brain"
	"github.com/veronicadeleonh/BatePapo/internal/config"
	"github.com/veronicadeleonh/BatePapo/internal/observability"
	"github.com/veronicadeleonh/BatePapo/internal/profile"
	"github.com/veronicadeleonh/BatePapo/internal/protocol"
	"github.com/veronicadeleonh/BatePapo/internal/session"
	"github.com/veronicadeleonh/BatePapo/internal/sessionlog"
)

type Server struct {
	cfg      config.Config
	sessions *session.Manager
	profiles *profile.Store
	recorder *sessionlog.Recorder
	adapter  brain.Adapter
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
	static   http.Handler
}

func New(cfg config.Config, sessions *session.Manager, profiles *profile.Store, recorder *sessionlog.Recorder, adapter brain.Adapter, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:      cfg,
		sessions: sessions,
		profiles: profiles,
		recorder: recorder,
		adapter:  adapter,
		metrics:  metrics,
		static:   newStaticHandler(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only allow browser websocket connections from the same
				// origin. This prevents other websites from driving the
				// user's mic session if the service is ever exposed beyond
				// localhost.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ui/", http.StatusTemporaryRedirect)
	})
	r.Get("/ui", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ui/", http.StatusTemporaryRedirect)
	})
	r.Handle("/ui/*", http.StripPrefix("/ui/", s.static))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/practice/session", s.handleCreateSession)
	r.Post("/v1/practice/session/{id}/end", s.handleEndSession)
	r.Get("/v1/practice/session/ws", s.handleSessionWS)

	r.Get("/v1/profile", s.handleGetProfile)
	r.Delete("/v1/profile", s.handleClearProfile)
	r.Get("/v1/onboarding/status", s.handleOnboardingStatus)

	r.Get("/v1/sessions", s.handleListSessions)
	r.Get("/v1/sessions/transcript", s.handleSessionTranscript)
	r.Get("/v1/sessions/report", s.handleSessionsReport)

	r.Get("/v1/voices", s.handleListVoices)
	r.Get("/v1/perf/latency", s.handlePerfLatency)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"capability_mode": s.cfg.CapabilityMode,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ready",
		"capability_mode": s.cfg.CapabilityMode,
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req session.CreateRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Locale) == "" {
		req.Locale = s.cfg.Locale
	}

	sess := s.sessions.Create(req.Locale, req.VoiceURI)
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))

	respondJSON(w, http.StatusCreated, session.CreateResponse{
		SessionID:       sess.ID,
		Status:          sess.Status,
		Locale:          sess.Locale,
		VoiceURI:        sess.VoiceURI,
		StartedAt:       sess.StartedAt,
		InactivityTTLMS: s.cfg.SessionInactivityTimeout.Milliseconds(),
	})
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}

	sess, err := s.sessions.End(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	respondJSON(w, http.StatusOK, sess)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

func messageTypeOf(v any) (protocol.MessageType, bool) {
	switch m := v.(type) {
	case protocol.ClientEnergy:
		return m.Type, true
	case protocol.ClientPartial:
		return m.Type, true
	case protocol.ClientFinal:
		return m.Type, true
	case protocol.ClientRecognitionError:
		return m.Type, true
	case protocol.ClientSpeakStarted:
		return m.Type, true
	case protocol.ClientSpeakBoundary:
		return m.Type, true
	case protocol.ClientSpeakEnded:
		return m.Type, true
	case protocol.ClientSpeakError:
		return m.Type, true
	case protocol.ClientText:
		return m.Type, true
	case protocol.ClientControl:
		return m.Type, true
	case protocol.StateUpdate:
		return m.Type, true
	case protocol.CaptionDelta:
		return m.Type, true
	case protocol.RecognizeStart:
		return m.Type, true
	case protocol.RecognizeStop:
		return m.Type, true
	case protocol.SpeakSegment:
		return m.Type, true
	case protocol.SpeakCancel:
		return m.Type, true
	case protocol.TranscriptUser:
		return m.Type, true
	case protocol.TranscriptAgent:
		return m.Type, true
	case protocol.AgentReply:
		return m.Type, true
	case protocol.SessionSummary:
		return m.Type, true
	case protocol.ErrorEvent:
		return m.Type, true
	default:
		return "", false
	}
}
