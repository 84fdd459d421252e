package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType identifies websocket payload variants.
type MessageType string

// Client-to-server messages: the browser reports its capability events.
const (
	TypeClientEnergy           MessageType = "client_energy"
	TypeClientPartial          MessageType = "client_partial"
	TypeClientFinal            MessageType = "client_final"
	TypeClientRecognitionError MessageType = "client_recognition_error"
	TypeClientSpeakStarted     MessageType = "client_speak_started"
	TypeClientSpeakBoundary    MessageType = "client_speak_boundary"
	TypeClientSpeakEnded       MessageType = "client_speak_ended"
	TypeClientSpeakError       MessageType = "client_speak_error"
	TypeClientText             MessageType = "client_text"
	TypeClientControl          MessageType = "client_control"
)

// Server-to-client messages: capability commands and conversation output.
const (
	TypeStateUpdate     MessageType = "state_update"
	TypeCaptionDelta    MessageType = "caption_delta"
	TypeRecognizeStart  MessageType = "recognize_start"
	TypeRecognizeStop   MessageType = "recognize_stop"
	TypeSpeakSegment    MessageType = "speak_segment"
	TypeSpeakCancel     MessageType = "speak_cancel"
	TypeTranscriptUser  MessageType = "transcript_user"
	TypeTranscriptAgent MessageType = "transcript_agent"
	TypeAgentReply      MessageType = "agent_reply"
	TypeSessionSummary  MessageType = "session_summary"
	TypeErrorEvent      MessageType = "error_event"
)

// Control actions accepted in client_control messages.
const (
	ActionStart = "start"
	ActionStop  = "stop"
	ActionReset = "reset"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// ClientEnergy carries one sampled microphone level, normalized to 0..255.
type ClientEnergy struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Level     int         `json:"level"`
	TSMs      int64       `json:"ts_ms"`
}

// ClientPartial is an interim recognition hypothesis, subject to revision.
type ClientPartial struct {
	Type       MessageType `json:"type"`
	SessionID  string      `json:"session_id"`
	Text       string      `json:"text"`
	Confidence float64     `json:"confidence"`
	TSMs       int64       `json:"ts_ms"`
}

// ClientFinal is a committed recognition result for the current utterance.
type ClientFinal struct {
	Type       MessageType `json:"type"`
	SessionID  string      `json:"session_id"`
	Text       string      `json:"text"`
	Confidence float64     `json:"confidence"`
	TSMs       int64       `json:"ts_ms"`
}

// ClientRecognitionError reports a recognizer failure with its platform kind
// (for example "no-speech", "aborted", "not-allowed").
type ClientRecognitionError struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Kind      string      `json:"kind"`
	Detail    string      `json:"detail,omitempty"`
}

// ClientSpeakStarted acknowledges that playback of a segment began.
type ClientSpeakStarted struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	SegmentID string      `json:"segment_id"`
}

// ClientSpeakBoundary reports a word boundary during playback, used for
// progressive caption reveal.
type ClientSpeakBoundary struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	SegmentID string      `json:"segment_id"`
	CharIndex int         `json:"char_index"`
}

// ClientSpeakEnded acknowledges that playback of a segment finished.
type ClientSpeakEnded struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	SegmentID string      `json:"segment_id"`
}

// ClientSpeakError reports a synthesis failure for a segment.
type ClientSpeakError struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	SegmentID string      `json:"segment_id"`
	Detail    string      `json:"detail,omitempty"`
}

// ClientText is a typed message, bypassing the voice path entirely.
type ClientText struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Text      string      `json:"text"`
}

type ClientControl struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Action    string      `json:"action"`
}

// StateUpdate publishes the engine state after every transition, with a
// rolling tail of recent engine events for the debug panel.
type StateUpdate struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	State     string      `json:"state"`
	Detail    string      `json:"detail,omitempty"`
	DebugTail []string    `json:"debug_tail,omitempty"`
}

// CaptionDelta reveals the next slice of the agent caption during playback.
type CaptionDelta struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	TurnID    string      `json:"turn_id"`
	TextDelta string      `json:"text_delta"`
}

// RecognizeStart instructs the client to (re)start speech recognition.
type RecognizeStart struct {
	Type           MessageType `json:"type"`
	SessionID      string      `json:"session_id"`
	Locale         string      `json:"locale"`
	Continuous     bool        `json:"continuous"`
	InterimResults bool        `json:"interim_results"`
}

type RecognizeStop struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
}

// SpeakSegment instructs the client to synthesize one reply segment.
type SpeakSegment struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	TurnID    string      `json:"turn_id"`
	SegmentID string      `json:"segment_id"`
	Text      string      `json:"text"`
	VoiceURI  string      `json:"voice_uri,omitempty"`
	Locale    string      `json:"locale,omitempty"`
}

type SpeakCancel struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
}

// TranscriptUser appends the user's committed utterance to the transcript.
type TranscriptUser struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	TurnID    string      `json:"turn_id"`
	Text      string      `json:"text"`
	TSMs      int64       `json:"ts_ms"`
}

// TranscriptAgent appends the agent's full reply to the transcript.
type TranscriptAgent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	TurnID    string      `json:"turn_id"`
	Text      string      `json:"text"`
	TSMs      int64       `json:"ts_ms"`
}

// AgentReply carries the reply text with pause markup intact, ahead of the
// per-segment speak commands.
type AgentReply struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	TurnID    string      `json:"turn_id"`
	Text      string      `json:"text"`
}

// SessionSummary is sent once when a practice session ends.
type SessionSummary struct {
	Type          MessageType `json:"type"`
	SessionID     string      `json:"session_id"`
	Exchanges     int         `json:"exchanges"`
	DurationMS    int64       `json:"duration_ms"`
	Topics        []string    `json:"topics,omitempty"`
	Mood          string      `json:"mood,omitempty"`
	Engagement    string      `json:"engagement,omitempty"`
	MeanLatencyMS float64     `json:"mean_latency_ms,omitempty"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Source    string      `json:"source"`
	Retryable bool        `json:"retryable"`
	Detail    string      `json:"detail"`
}

// ParseClientMessage decodes and validates an inbound client payload.
func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeClientEnergy:
		var msg ClientEnergy
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" || msg.Level < 0 || msg.Level > 255 {
			return nil, errors.New("invalid client_energy")
		}
		return msg, nil
	case TypeClientPartial:
		var msg ClientPartial
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" {
			return nil, errors.New("invalid client_partial")
		}
		return msg, nil
	case TypeClientFinal:
		var msg ClientFinal
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" {
			return nil, errors.New("invalid client_final")
		}
		return msg, nil
	case TypeClientRecognitionError:
		var msg ClientRecognitionError
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" || msg.Kind == "" {
			return nil, errors.New("invalid client_recognition_error")
		}
		return msg, nil
	case TypeClientSpeakStarted:
		var msg ClientSpeakStarted
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" || msg.SegmentID == "" {
			return nil, errors.New("invalid client_speak_started")
		}
		return msg, nil
	case TypeClientSpeakBoundary:
		var msg ClientSpeakBoundary
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" || msg.SegmentID == "" || msg.CharIndex < 0 {
			return nil, errors.New("invalid client_speak_boundary")
		}
		return msg, nil
	case TypeClientSpeakEnded:
		var msg ClientSpeakEnded
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" || msg.SegmentID == "" {
			return nil, errors.New("invalid client_speak_ended")
		}
		return msg, nil
	case TypeClientSpeakError:
		var msg ClientSpeakError
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" || msg.SegmentID == "" {
			return nil, errors.New("invalid client_speak_error")
		}
		return msg, nil
	case TypeClientText:
		var msg ClientText
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" || msg.Text == "" {
			return nil, errors.New("invalid client_text")
		}
		return msg, nil
	case TypeClientControl:
		var msg ClientControl
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" || msg.Action == "" {
			return nil, errors.New("invalid client_control")
		}
		switch msg.Action {
		case ActionStart, ActionStop, ActionReset:
		default:
			return nil, fmt.Errorf("unknown control action %q", msg.Action)
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}
