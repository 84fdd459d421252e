package voice

import (
	"context"
	"errors"
	"sync"
)

// MockCapture is a scriptable level source for tests and headless runs.
type MockCapture struct {
	mu      sync.Mutex
	ch      chan EnergySample
	started bool
	failErr error
}

func NewMockCapture() *MockCapture {
	return &MockCapture{}
}

// FailWith makes the next Start return err.
func (m *MockCapture) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failErr = err
}

func (m *MockCapture) Start(_ context.Context) (<-chan EnergySample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return nil, m.failErr
	}
	if m.started {
		return nil, errors.New("capture already started")
	}
	m.ch = make(chan EnergySample, 256)
	m.started = true
	return m.ch, nil
}

func (m *MockCapture) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return nil
	}
	m.started = false
	close(m.ch)
	m.ch = nil
	return nil
}

// Push feeds one level sample, ignored when capture is stopped.
func (m *MockCapture) Push(level int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return
	}
	m.ch <- EnergySample{Level: level}
}

// MockRecognizer is a scriptable recognition source.
type MockRecognizer struct {
	mu       sync.Mutex
	ch       chan RecognitionEvent
	started  bool
	starts   int
	failNext int
	failErr  error
}

func NewMockRecognizer() *MockRecognizer {
	return &MockRecognizer{failErr: errors.New("recognizer start failed")}
}

// FailNextStarts makes the next n Start calls fail.
func (m *MockRecognizer) FailNextStarts(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = n
}

func (m *MockRecognizer) Starts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts
}

func (m *MockRecognizer) Start(_ context.Context, _ RecognizeOptions) (<-chan RecognitionEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext > 0 {
		m.failNext--
		return nil, m.failErr
	}
	if m.started {
		close(m.ch)
	}
	m.ch = make(chan RecognitionEvent, 64)
	m.started = true
	m.starts++
	return m.ch, nil
}

func (m *MockRecognizer) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return nil
	}
	m.started = false
	close(m.ch)
	m.ch = nil
	return nil
}

// Push feeds one recognition event, ignored when stopped.
func (m *MockRecognizer) Push(evt RecognitionEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return
	}
	m.ch <- evt
}

// MockSynthesizer records speak requests and completes each segment
// immediately with a started/ended pair. Boundary events can be scripted
// per call site by driving a real channel instead.
type MockSynthesizer struct {
	mu       sync.Mutex
	requests []SpeakRequest
	voices   []Voice
	cancels  int
}

func NewMockSynthesizer() *MockSynthesizer {
	return &MockSynthesizer{}
}

func (m *MockSynthesizer) SetVoices(voices []Voice) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.voices = voices
}

func (m *MockSynthesizer) Requests() []SpeakRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SpeakRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

func (m *MockSynthesizer) Cancels() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancels
}

func (m *MockSynthesizer) Speak(_ context.Context, req SpeakRequest) (<-chan SpeechEvent, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	events := make(chan SpeechEvent, 4)
	events <- SpeechEvent{Type: SpeechStarted, SegmentID: req.SegmentID}
	events <- SpeechEvent{Type: SpeechEnded, SegmentID: req.SegmentID}
	close(events)
	return events, nil
}

func (m *MockSynthesizer) Cancel() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancels++
	return nil
}

func (m *MockSynthesizer) Voices(_ context.Context) ([]Voice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Voice, len(m.voices))
	copy(out, m.voices)
	return out, nil
}
