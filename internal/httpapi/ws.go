package httpapi

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/veronicadeleonh/BatePapo/internal/profile"
	"github.com/veronicadeleonh/BatePapo/internal/protocol"
	"github.com/veronicadeleonh/BatePapo/internal/reply"
	"github.com/veronicadeleonh/BatePapo/internal/session"
	"github.com/veronicadeleonh/BatePapo/internal/voice"
)

func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session_id", "query parameter session_id is required")
		return
	}

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	inbound := make(chan any, 256)
	outbound := make(chan any, 256)
	runDone := make(chan struct{})

	go func() {
		defer close(runDone)
		s.runConversation(ctx, sess, inbound, outbound)
	}()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-outbound:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteJSON(msg); err != nil {
					cancel()
					return
				}
				if t, ok := messageTypeOf(msg); ok {
					s.metrics.WSMessages.WithLabelValues("outbound", string(t)).Inc()
				}
			}
		}
	}()

	conn.SetReadLimit(2 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

readLoop:
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			errEvent := protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				SessionID: sessionID,
				Code:      "invalid_client_message",
				Source:    "gateway",
				Retryable: false,
				Detail:    err.Error(),
			}
			select {
			case outbound <- errEvent:
			default:
				// Keep websocket writes single-threaded; drop if the
				// outbound queue is saturated.
				s.metrics.WSMessages.WithLabelValues("outbound_dropped", string(protocol.TypeErrorEvent)).Inc()
			}
			continue
		}

		if t, ok := messageTypeOf(parsed); ok {
			s.metrics.WSMessages.WithLabelValues("inbound", string(t)).Inc()
		}
		select {
		case <-ctx.Done():
			break readLoop
		case inbound <- parsed:
		}
	}

	cancel()
	close(inbound)
	<-runDone
	<-writerDone
}

type userTurn struct {
	text string
	at   time.Time
}

// conversation owns one websocket's turn-taking engine. Capability events
// arriving on the socket are routed into the bridge; coordinator hooks are
// translated back into protocol messages.
type conversation struct {
	server   *Server
	sess     *session.Session
	ctx      context.Context
	outbound chan<- any
	engine   *reply.Engine
	coord    *voice.Coordinator
	bridge   *wsBridge

	mu    sync.Mutex
	turns map[string]userTurn
}

func (s *Server) runConversation(ctx context.Context, sess *session.Session, inbound <-chan any, outbound chan<- any) {
	conv := &conversation{
		server:   s,
		sess:     sess,
		ctx:      ctx,
		outbound: outbound,
		turns:    make(map[string]userTurn),
	}
	conv.engine = reply.NewEngine(s.adapter, s.profiles, reply.Config{
		MaxTokens:   s.cfg.ReplyMaxTokens,
		Temperature: s.cfg.ReplyTemperature,
		Timeout:     s.cfg.BrainTimeout,
	})

	var capture voice.Capture
	var recog voice.Recognizer
	var synth voice.Synthesizer
	if strings.EqualFold(s.cfg.CapabilityMode, "mock") {
		// Headless mode: no browser capabilities, the typed path drives
		// the conversation and synthesis completes instantly.
		capture = voice.NewMockCapture()
		recog = voice.NewMockRecognizer()
		synth = voice.NewMockSynthesizer()
	} else {
		conv.bridge = newWSBridge(sess.ID, conv.send)
		capture = &wsCapture{b: conv.bridge}
		recog = &wsRecognizer{b: conv.bridge}
		synth = &wsSynthesizer{b: conv.bridge}
	}

	conv.coord = voice.NewCoordinator(voice.Config{
		Locale:         sess.Locale,
		Continuous:     strings.EqualFold(s.cfg.RecognitionMode, "continuous"),
		InterimResults: s.cfg.InterimResults,
		Greeting:       s.cfg.GreetingText,
		VoiceURI:       sess.VoiceURI,
		Segmenter: voice.SegmenterConfig{
			SpeechThreshold:  s.cfg.SpeechThreshold,
			SilenceThreshold: s.cfg.SilenceThreshold,
			SpeechRunTarget:  s.cfg.SpeechRunTarget,
			SilenceRunTarget: s.cfg.SilenceRunTarget,
		},
		PartialSilenceTimeout: s.cfg.PartialSilenceTimeout,
		RestartRetryDelay:     s.cfg.RestartRetryDelay,
		DefaultPause:          s.cfg.DefaultPause,
	}, capture, recog, synth, conv.engine, s.metrics, voice.Hooks{
		OnState:          conv.onState,
		OnUserTranscript: conv.onUserTranscript,
		OnAgentReply:     conv.onAgentReply,
		OnCaption:        conv.onCaption,
		OnError:          conv.onError,
	})

	s.recorder.Begin(sess.ID)
	if err := conv.coord.Start(ctx); err != nil {
		conv.onError("session_start_failed", err.Error(), false)
	}

	defer func() {
		conv.coord.Stop()
		conv.finish(context.Background(), false)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-inbound:
			if !ok {
				return
			}
			_ = s.sessions.Touch(sess.ID)
			conv.handleInbound(msg)
		}
	}
}

func (c *conversation) handleInbound(msg any) {
	switch m := msg.(type) {
	case protocol.ClientEnergy:
		if c.bridge != nil {
			c.bridge.pushEnergy(voice.EnergySample{Level: m.Level, TSMs: m.TSMs})
		}
	case protocol.ClientPartial:
		if c.bridge != nil {
			c.bridge.pushRecognition(voice.RecognitionEvent{
				Type: voice.RecognitionPartial, Text: m.Text, Confidence: m.Confidence, TSMs: m.TSMs,
			})
		}
	case protocol.ClientFinal:
		if c.bridge != nil {
			c.bridge.pushRecognition(voice.RecognitionEvent{
				Type: voice.RecognitionFinal, Text: m.Text, Confidence: m.Confidence, TSMs: m.TSMs,
			})
		}
	case protocol.ClientRecognitionError:
		if c.bridge != nil {
			c.bridge.pushRecognition(voice.RecognitionEvent{
				Type: voice.RecognitionError, Kind: m.Kind, Detail: m.Detail,
			})
		}
	case protocol.ClientSpeakStarted:
		if c.bridge != nil {
			c.bridge.pushSpeech(m.SegmentID, voice.SpeechEvent{Type: voice.SpeechStarted, SegmentID: m.SegmentID})
		}
	case protocol.ClientSpeakBoundary:
		if c.bridge != nil {
			c.bridge.pushSpeech(m.SegmentID, voice.SpeechEvent{Type: voice.SpeechBoundary, SegmentID: m.SegmentID, CharIndex: m.CharIndex})
		}
	case protocol.ClientSpeakEnded:
		if c.bridge != nil {
			c.bridge.pushSpeech(m.SegmentID, voice.SpeechEvent{Type: voice.SpeechEnded, SegmentID: m.SegmentID})
		}
	case protocol.ClientSpeakError:
		if c.bridge != nil {
			c.bridge.pushSpeech(m.SegmentID, voice.SpeechEvent{Type: voice.SpeechError, SegmentID: m.SegmentID, Detail: m.Detail})
		}
	case protocol.ClientText:
		if err := c.coord.SubmitText(c.ctx, m.Text); err != nil {
			c.onError("text_rejected", err.Error(), true)
		}
	case protocol.ClientControl:
		c.handleControl(m.Action)
	}
}

func (c *conversation) handleControl(action string) {
	switch action {
	case protocol.ActionStart:
		if _, _, active := c.server.recorder.Active(); !active {
			c.server.recorder.Begin(c.sess.ID)
		}
		if err := c.coord.Start(c.ctx); err != nil {
			c.onError("session_start_failed", err.Error(), false)
		}
	case protocol.ActionStop:
		c.coord.Stop()
		c.finish(c.ctx, true)
	case protocol.ActionReset:
		c.coord.Stop()
		c.engine.ResetSession()
		c.finish(c.ctx, false)
		c.server.recorder.Begin(c.sess.ID)
		if err := c.coord.Start(c.ctx); err != nil {
			c.onError("session_start_failed", err.Error(), false)
		}
	}
}

// finish closes the recorder session, folds its summary into the profile
// history, and optionally reports it to the client.
func (c *conversation) finish(ctx context.Context, sendSummary bool) {
	rec, err := c.server.recorder.End(ctx)
	if err != nil {
		return
	}
	if len(rec.Exchanges) > 0 {
		prof := c.server.profiles.Load(ctx)
		prof.AppendHistory(profile.PastConversation{
			SessionID: rec.ID,
			Summary:   rec.Summary,
			Topics:    rec.Topics,
			EndedAt:   rec.EndedAt,
		})
		if saveErr := c.server.profiles.Save(ctx, prof); saveErr != nil {
			c.onError("profile_save_failed", saveErr.Error(), true)
		}
	}
	if sendSummary {
		c.send(protocol.SessionSummary{
			Type:          protocol.TypeSessionSummary,
			SessionID:     c.sess.ID,
			Exchanges:     len(rec.Exchanges),
			DurationMS:    rec.Duration().Milliseconds(),
			Topics:        rec.Topics,
			Mood:          string(rec.Mood),
			Engagement:    string(rec.Engagement),
			MeanLatencyMS: float64(c.server.metrics.MeanReplyLatency().Milliseconds()),
		})
	}
}

func (c *conversation) onState(state voice.State, detail string) {
	c.send(protocol.StateUpdate{
		Type:      protocol.TypeStateUpdate,
		SessionID: c.sess.ID,
		State:     string(state),
		Detail:    detail,
		DebugTail: c.coord.DebugTail(),
	})
}

func (c *conversation) onUserTranscript(turnID, text string) {
	c.mu.Lock()
	c.turns[turnID] = userTurn{text: text, at: time.Now()}
	c.mu.Unlock()
	c.send(protocol.TranscriptUser{
		Type:      protocol.TypeTranscriptUser,
		SessionID: c.sess.ID,
		TurnID:    turnID,
		Text:      text,
		TSMs:      time.Now().UnixMilli(),
	})
}

func (c *conversation) onAgentReply(turnID, markup string) {
	plain := voice.StripMarkup(markup)
	c.send(protocol.AgentReply{
		Type:      protocol.TypeAgentReply,
		SessionID: c.sess.ID,
		TurnID:    turnID,
		Text:      markup,
	})
	c.send(protocol.TranscriptAgent{
		Type:      protocol.TypeTranscriptAgent,
		SessionID: c.sess.ID,
		TurnID:    turnID,
		Text:      plain,
		TSMs:      time.Now().UnixMilli(),
	})

	c.mu.Lock()
	turn, ok := c.turns[turnID]
	delete(c.turns, turnID)
	c.mu.Unlock()
	if !ok {
		return
	}
	_ = c.server.recorder.Record(turnID, turn.text, plain, time.Since(turn.at))
	_ = c.server.sessions.CountExchange(c.sess.ID)
}

func (c *conversation) onCaption(turnID, delta string) {
	c.send(protocol.CaptionDelta{
		Type:      protocol.TypeCaptionDelta,
		SessionID: c.sess.ID,
		TurnID:    turnID,
		TextDelta: delta,
	})
}

func (c *conversation) onError(code, detail string, retryable bool) {
	c.send(protocol.ErrorEvent{
		Type:      protocol.TypeErrorEvent,
		SessionID: c.sess.ID,
		Code:      code,
		Source:    "engine",
		Retryable: retryable,
		Detail:    detail,
	})
}

// send never blocks; the hooks run on the coordinator's event loop and a
// stalled websocket must not wedge turn-taking.
func (c *conversation) send(msg any) bool {
	select {
	case c.outbound <- msg:
		return true
	default:
		if t, ok := messageTypeOf(msg); ok {
			c.server.metrics.WSMessages.WithLabelValues("outbound_dropped", string(t)).Inc()
		}
		return false
	}
}
