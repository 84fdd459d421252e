package voice

import "context"

// EnergySample is one microphone level reading, normalized to 0..255.
type EnergySample struct {
	Level int
	TSMs  int64
}

// Capture provides the microphone level stream. The browser client is the
// usual implementation; mocks stand in for tests and headless runs.
type Capture interface {
	Start(ctx context.Context) (<-chan EnergySample, error)
	Stop() error
}

type RecognitionEventType string

const (
	RecognitionPartial RecognitionEventType = "partial"
	RecognitionFinal   RecognitionEventType = "final"
	RecognitionError   RecognitionEventType = "error"
	RecognitionEnded   RecognitionEventType = "ended"
)

// RecognitionEvent is one result or lifecycle signal from the recognizer.
// Kind carries the platform error kind for RecognitionError events.
type RecognitionEvent struct {
	Type       RecognitionEventType
	Text       string
	Confidence float64
	Kind       string
	Detail     string
	TSMs       int64
}

type RecognizeOptions struct {
	Locale         string
	Continuous     bool
	InterimResults bool
}

// Recognizer wraps a speech-to-text capability. Each Start returns a fresh
// event channel; the channel is closed when the underlying session ends.
type Recognizer interface {
	Start(ctx context.Context, opts RecognizeOptions) (<-chan RecognitionEvent, error)
	Stop() error
}

type SpeechEventType string

const (
	SpeechStarted  SpeechEventType = "started"
	SpeechBoundary SpeechEventType = "boundary"
	SpeechEnded    SpeechEventType = "ended"
	SpeechError    SpeechEventType = "error"
)

// SpeechEvent reports synthesis progress for one segment. CharIndex is a
// rune offset into the segment text, used for progressive captions.
type SpeechEvent struct {
	Type      SpeechEventType
	SegmentID string
	CharIndex int
	Detail    string
}

type SpeakRequest struct {
	TurnID    string
	SegmentID string
	Text      string
	VoiceURI  string
	Locale    string
}

// Voice describes one synthesis voice offered by the platform.
type Voice struct {
	URI     string `json:"uri"`
	Name    string `json:"name"`
	Lang    string `json:"lang"`
	Default bool   `json:"default"`
}

// Synthesizer wraps a text-to-speech capability. Speak returns a channel
// that delivers progress events for the requested segment and is closed
// after the terminal started/ended/error sequence.
type Synthesizer interface {
	Speak(ctx context.Context, req SpeakRequest) (<-chan SpeechEvent, error)
	Cancel() error
	Voices(ctx context.Context) ([]Voice, error)
}
