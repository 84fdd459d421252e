package httpapi

import (
	"context"
	"errors"
	"sync"

	"github.com/veronicadeleonh/BatePapo/internal/protocol"
	"github.com/veronicadeleonh/BatePapo/internal/voice"
)

// wsBridge backs the voice capability interfaces with a browser on the far
// side of the websocket. Commands go out as protocol messages; the client's
// capability reports are routed back into the channels handed to the
// coordinator. All channel sends are non-blocking: a browser that stops
// acknowledging must never stall the socket read loop.
type wsBridge struct {
	sessionID string
	send      func(msg any) bool

	mu       sync.Mutex
	energy   chan voice.EnergySample
	recog    chan voice.RecognitionEvent
	segments map[string]chan voice.SpeechEvent
}

func newWSBridge(sessionID string, send func(msg any) bool) *wsBridge {
	return &wsBridge{
		sessionID: sessionID,
		send:      send,
		segments:  make(map[string]chan voice.SpeechEvent),
	}
}

func (b *wsBridge) pushEnergy(s voice.EnergySample) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.energy == nil {
		return
	}
	select {
	case b.energy <- s:
	default:
	}
}

func (b *wsBridge) pushRecognition(evt voice.RecognitionEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.recog == nil {
		return
	}
	select {
	case b.recog <- evt:
	default:
	}
}

// pushSpeech routes one playback report to its segment's channel. Terminal
// events close the channel; a dropped terminal send still closes it, which
// the speaker treats the same as an ended event.
func (b *wsBridge) pushSpeech(segmentID string, evt voice.SpeechEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.segments[segmentID]
	if !ok {
		return
	}
	select {
	case ch <- evt:
	default:
	}
	if evt.Type == voice.SpeechEnded || evt.Type == voice.SpeechError {
		close(ch)
		delete(b.segments, segmentID)
	}
}

type wsCapture struct {
	b *wsBridge
}

func (c *wsCapture) Start(_ context.Context) (<-chan voice.EnergySample, error) {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	if c.b.energy != nil {
		return nil, errors.New("capture already started")
	}
	c.b.energy = make(chan voice.EnergySample, 256)
	return c.b.energy, nil
}

func (c *wsCapture) Stop() error {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	if c.b.energy != nil {
		close(c.b.energy)
		c.b.energy = nil
	}
	return nil
}

type wsRecognizer struct {
	b *wsBridge
}

func (r *wsRecognizer) Start(_ context.Context, opts voice.RecognizeOptions) (<-chan voice.RecognitionEvent, error) {
	r.b.mu.Lock()
	if r.b.recog != nil {
		close(r.b.recog)
	}
	ch := make(chan voice.RecognitionEvent, 64)
	r.b.recog = ch
	r.b.mu.Unlock()

	r.b.send(protocol.RecognizeStart{
		Type:           protocol.TypeRecognizeStart,
		SessionID:      r.b.sessionID,
		Locale:         opts.Locale,
		Continuous:     opts.Continuous,
		InterimResults: opts.InterimResults,
	})
	return ch, nil
}

func (r *wsRecognizer) Stop() error {
	r.b.mu.Lock()
	if r.b.recog != nil {
		close(r.b.recog)
		r.b.recog = nil
	}
	r.b.mu.Unlock()

	r.b.send(protocol.RecognizeStop{
		Type:      protocol.TypeRecognizeStop,
		SessionID: r.b.sessionID,
	})
	return nil
}

type wsSynthesizer struct {
	b *wsBridge
}

func (s *wsSynthesizer) Speak(_ context.Context, req voice.SpeakRequest) (<-chan voice.SpeechEvent, error) {
	s.b.mu.Lock()
	ch := make(chan voice.SpeechEvent, 32)
	s.b.segments[req.SegmentID] = ch
	s.b.mu.Unlock()

	if !s.b.send(protocol.SpeakSegment{
		Type:      protocol.TypeSpeakSegment,
		SessionID: s.b.sessionID,
		TurnID:    req.TurnID,
		SegmentID: req.SegmentID,
		Text:      req.Text,
		VoiceURI:  req.VoiceURI,
		Locale:    req.Locale,
	}) {
		s.b.mu.Lock()
		delete(s.b.segments, req.SegmentID)
		s.b.mu.Unlock()
		close(ch)
		return nil, errors.New("speak command dropped")
	}
	return ch, nil
}

// Cancel closes every pending segment channel so in-flight playback waits
// unwind immediately, then tells the client to stop speaking.
func (s *wsSynthesizer) Cancel() error {
	s.b.mu.Lock()
	for id, ch := range s.b.segments {
		close(ch)
		delete(s.b.segments, id)
	}
	s.b.mu.Unlock()

	s.b.send(protocol.SpeakCancel{
		Type:      protocol.TypeSpeakCancel,
		SessionID: s.b.sessionID,
	})
	return nil
}

// Voices are enumerated by the browser itself; the HTTP catalog endpoint
// serves the server-side defaults instead.
func (s *wsSynthesizer) Voices(_ context.Context) ([]voice.Voice, error) {
	return nil, nil
}
