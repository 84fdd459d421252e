package voice

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/veronicadeleonh/BatePapo/internal/observability"
	"github.com/veronicadeleonh/BatePapo/internal/reliability"
)

// State is the observable conversation phase.
type State string

const (
	StateIdle          State = "idle"
	StateListening     State = "listening_for_speech"
	StateCapturing     State = "capturing_utterance"
	StateAwaitingReply State = "awaiting_reply"
	StateSpeaking      State = "speaking"
)

// Responder produces the agent reply for a committed user utterance. It
// must never fail; degraded backends fall back to canned replies upstream.
type Responder interface {
	Reply(ctx context.Context, userText string) (string, error)
}

// Hooks receive coordinator output. Nil funcs are allowed. All hooks are
// invoked from the coordinator's event loop goroutine, in order.
type Hooks struct {
	OnState          func(state State, detail string)
	OnUserTranscript func(turnID, text string)
	OnAgentReply     func(turnID, markup string)
	OnCaption        func(turnID, delta string)
	OnError          func(code, detail string, retryable bool)
}

type Config struct {
	Locale                string
	Continuous            bool
	InterimResults        bool
	Greeting              string
	VoiceURI              string
	Segmenter             SegmenterConfig
	PartialSilenceTimeout time.Duration
	RestartRetryDelay     time.Duration
	DefaultPause          time.Duration
}

type coordEventKind int

const (
	evEnergy coordEventKind = iota
	evPartial
	evFinal
	evRecogError
	evRecogEnded
	evPartialTimeout
	evRestartRetry
	evReplyReady
	evSpeakDone
	evSubmitText
)

type coordEvent struct {
	kind   coordEventKind
	gen    uint64
	seq    uint64
	level  int
	text   string
	errKin string
	detail string
	turnID string
}

// Coordinator is the turn-taking state machine. Every capability callback
// is funneled through one event channel and processed by a single
// goroutine, so handlers never race. A session generation stamped on every
// event discards callbacks that outlive the session that spawned them.
type Coordinator struct {
	cfg       Config
	monitor   *AudioLevelMonitor
	recog     Recognizer
	synth     Synthesizer
	responder Responder
	metrics   *observability.Metrics
	hooks     Hooks
	speaker   *Speaker

	recogSeq atomic.Uint64

	mu         sync.Mutex
	running    bool
	gen        uint64
	cancel     context.CancelFunc
	loopDone   chan struct{}
	loopEvents chan coordEvent
	curState   State
	debugTail  []string

	// Loop-owned fields, never touched outside the run goroutine.
	seg             *UtteranceSegmenter
	turnID          string
	turnOpen        bool
	pendingPartial  string
	committedAt     time.Time
	partialTimer    *time.Timer
	restartAttempts int
	retryOnceUsed   bool
}

func NewCoordinator(cfg Config, capture Capture, recog Recognizer, synth Synthesizer, responder Responder, metrics *observability.Metrics, hooks Hooks) *Coordinator {
	c := &Coordinator{
		cfg:       cfg,
		monitor:   NewAudioLevelMonitor(capture),
		recog:     recog,
		synth:     synth,
		responder: responder,
		metrics:   metrics,
		hooks:     hooks,
		curState:  StateIdle,
		seg:       NewUtteranceSegmenter(cfg.Segmenter),
	}
	c.speaker = NewSpeaker(synth, cfg.DefaultPause, cfg.VoiceURI, cfg.Locale, func(turnID, delta string) {
		if hooks.OnCaption != nil {
			hooks.OnCaption(turnID, delta)
		}
	})
	return c
}

// Start acquires capture and recognition and begins the session. If
// recognition cannot start, the already-acquired capture is released
// before returning. Starting a running coordinator is a no-op.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}
	c.gen++
	gen := c.gen
	runCtx, cancel := context.WithCancel(ctx)
	events := make(chan coordEvent, 256)
	loopDone := make(chan struct{})

	c.running = true
	c.cancel = cancel
	c.loopDone = loopDone
	c.mu.Unlock()

	fail := func(err error) error {
		c.mu.Lock()
		c.running = false
		c.cancel = nil
		c.loopDone = nil
		c.mu.Unlock()
		cancel()
		return err
	}

	if err := c.monitor.Start(runCtx, func(s EnergySample) {
		c.post(runCtx, events, coordEvent{kind: evEnergy, gen: gen, level: s.Level})
	}); err != nil {
		return fail(err)
	}

	speakGreeting := c.cfg.Greeting != ""
	if !speakGreeting {
		if err := c.startRecognition(runCtx, gen, events); err != nil {
			c.monitor.Stop()
			return fail(fmt.Errorf("start recognition: %w", err))
		}
	}

	go c.run(runCtx, gen, events, loopDone, speakGreeting)
	return nil
}

// Stop ends the session and invalidates all in-flight callbacks.
// Idempotent and safe from any goroutine.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.gen++
	cancel := c.cancel
	loopDone := c.loopDone
	c.running = false
	c.cancel = nil
	c.loopDone = nil
	c.mu.Unlock()

	cancel()
	_ = c.synth.Cancel()
	_ = c.recog.Stop()
	c.monitor.Stop()
	<-loopDone

	c.setState(StateIdle, "stopped")
}

// SubmitText injects a typed utterance, bypassing the voice path. Valid
// while running; interrupts agent playback if necessary.
func (c *Coordinator) SubmitText(ctx context.Context, text string) error {
	c.mu.Lock()
	running := c.running
	gen := c.gen
	ch := c.loopEvents
	c.mu.Unlock()
	if !running || ch == nil {
		return errors.New("session not running")
	}
	_ = c.synth.Cancel()
	select {
	case ch <- coordEvent{kind: evSubmitText, gen: gen, text: text}:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// Snapshot returns the current state for API consumers.
func (c *Coordinator) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.curState
}

// debugTailCap bounds the rolling tail of recent engine events.
const debugTailCap = 32

// DebugTail returns a copy of the most recent engine events, oldest first.
func (c *Coordinator) DebugTail() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.debugTail))
	copy(out, c.debugTail)
	return out
}

func (c *Coordinator) addDebug(line string) {
	c.mu.Lock()
	c.debugTail = append(c.debugTail, time.Now().Format("15:04:05.000")+" "+line)
	if len(c.debugTail) > debugTailCap {
		c.debugTail = c.debugTail[len(c.debugTail)-debugTailCap:]
	}
	c.mu.Unlock()
}

func (c *Coordinator) post(ctx context.Context, events chan<- coordEvent, ev coordEvent) {
	select {
	case events <- ev:
	case <-ctx.Done():
	}
}

// startRecognition opens a fresh recognizer session. Each session gets a
// sequence number so events from a superseded session (including the
// "ended" signal its channel close produces) are discarded by the loop.
func (c *Coordinator) startRecognition(ctx context.Context, gen uint64, events chan coordEvent) error {
	recogEvents, err := c.recog.Start(ctx, RecognizeOptions{
		Locale:         c.cfg.Locale,
		Continuous:     c.cfg.Continuous,
		InterimResults: c.cfg.InterimResults,
	})
	if err != nil {
		return err
	}
	seq := c.recogSeq.Add(1)
	go func() {
		for evt := range recogEvents {
			switch evt.Type {
			case RecognitionPartial:
				c.post(ctx, events, coordEvent{kind: evPartial, gen: gen, seq: seq, text: evt.Text})
			case RecognitionFinal:
				c.post(ctx, events, coordEvent{kind: evFinal, gen: gen, seq: seq, text: evt.Text})
			case RecognitionError:
				c.post(ctx, events, coordEvent{kind: evRecogError, gen: gen, seq: seq, errKin: evt.Kind, detail: evt.Detail})
			case RecognitionEnded:
				c.post(ctx, events, coordEvent{kind: evRecogEnded, gen: gen, seq: seq})
			}
		}
		c.post(ctx, events, coordEvent{kind: evRecogEnded, gen: gen, seq: seq})
	}()
	return nil
}

func (c *Coordinator) run(ctx context.Context, gen uint64, events chan coordEvent, loopDone chan struct{}, speakGreeting bool) {
	defer close(loopDone)

	c.mu.Lock()
	c.loopEvents = events
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		if c.loopEvents == events {
			c.loopEvents = nil
		}
		c.mu.Unlock()
	}()

	c.seg.SetSuppressed(false)
	c.turnOpen = false
	c.pendingPartial = ""
	c.restartAttempts = 0
	c.retryOnceUsed = false

	if speakGreeting {
		c.turnID = "greeting-" + uuid.NewString()
		c.enterSpeaking(ctx, gen, events, c.turnID, c.cfg.Greeting, false)
	} else {
		c.setState(StateListening, "session started")
	}

	for {
		select {
		case <-ctx.Done():
			c.stopPartialTimer()
			return
		case ev := <-events:
			if ev.gen != gen {
				continue
			}
			switch ev.kind {
			case evPartial, evFinal, evRecogError, evRecogEnded:
				if ev.seq != c.recogSeq.Load() {
					continue
				}
			}
			c.handle(ctx, gen, events, ev)
		}
	}
}

func (c *Coordinator) handle(ctx context.Context, gen uint64, events chan coordEvent, ev coordEvent) {
	switch ev.kind {
	case evEnergy:
		switch c.seg.Observe(ev.level) {
		case SegmenterSpeechStart:
			if c.currentState() == StateListening {
				c.beginTurn("energy")
			}
		case SegmenterSpeechEnd:
			if c.currentState() == StateCapturing && c.turnOpen {
				c.countTurnEvent("utterance_end_energy")
				c.closeTurn(ctx, gen, events, c.pendingPartial)
			}
		}

	case evPartial:
		if ev.text == "" {
			return
		}
		if c.currentState() == StateListening {
			c.beginTurn("partial")
		}
		if c.currentState() != StateCapturing || !c.turnOpen {
			return
		}
		// Only a changed hypothesis postpones end-of-turn; recognizers
		// that re-emit the same interim text must not hold the turn open.
		if ev.text == c.pendingPartial {
			return
		}
		c.pendingPartial = ev.text
		c.armPartialTimer(ctx, gen, events, c.turnID)

	case evFinal:
		if c.currentState() == StateListening && ev.text != "" {
			// Recognition committed before the energy path noticed;
			// treat it as a complete, instantly closed turn.
			c.beginTurn("final")
		}
		if !c.turnOpen {
			c.countTurnEvent("final_deduped")
			return
		}
		c.countTurnEvent("utterance_end_final")
		c.closeTurn(ctx, gen, events, ev.text)

	case evPartialTimeout:
		if !c.turnOpen || ev.turnID != c.turnID {
			return
		}
		c.countTurnEvent("utterance_end_partial_silence")
		c.closeTurn(ctx, gen, events, c.pendingPartial)

	case evRecogError:
		c.handleRecognitionError(ctx, gen, events, ev.errKin, ev.detail)

	case evRecogEnded:
		// Deliberate stops while the agent speaks also close the event
		// channel; only restart when we expect recognition to be live.
		switch c.currentState() {
		case StateListening, StateCapturing:
			c.restartRecognition(ctx, gen, events)
		}

	case evRestartRetry:
		switch c.currentState() {
		case StateListening, StateCapturing:
			if err := c.startRecognition(ctx, gen, events); err != nil {
				c.terminalRecognitionFailure(err.Error())
				return
			}
			c.restartAttempts = 0
		}

	case evReplyReady:
		if ev.turnID != c.turnID || c.currentState() != StateAwaitingReply {
			return
		}
		c.metrics.ObserveReplyLatency(time.Since(c.committedAt))
		if ev.text == "" {
			c.resumeListening(ctx, gen, events)
			return
		}
		if c.hooks.OnAgentReply != nil {
			c.hooks.OnAgentReply(ev.turnID, ev.text)
		}
		c.enterSpeaking(ctx, gen, events, ev.turnID, ev.text, true)

	case evSpeakDone:
		if ev.turnID != c.turnID || c.currentState() != StateSpeaking {
			return
		}
		c.resumeListening(ctx, gen, events)

	case evSubmitText:
		if c.currentState() == StateIdle {
			return
		}
		c.stopPartialTimer()
		c.turnID = uuid.NewString()
		c.turnOpen = true
		c.pendingPartial = ""
		c.countTurnEvent("typed_input")
		c.setState(StateCapturing, "typed input")
		c.closeTurn(ctx, gen, events, ev.text)
	}
}

func (c *Coordinator) beginTurn(trigger string) {
	c.turnID = uuid.NewString()
	c.turnOpen = true
	c.pendingPartial = ""
	c.countTurnEvent("utterance_start_" + trigger)
	c.setState(StateCapturing, "speech detected")
}

// closeTurn commits the utterance exactly once. The energy path, the final
// transcript, and the silence-after-partial timer all race to call it; the
// turnOpen flag makes the losers no-ops.
func (c *Coordinator) closeTurn(ctx context.Context, gen uint64, events chan coordEvent, text string) {
	c.turnOpen = false
	c.stopPartialTimer()
	c.pendingPartial = ""

	if text == "" {
		c.countTurnEvent("utterance_abandoned")
		c.setState(StateListening, "no transcript")
		return
	}

	turnID := c.turnID
	c.committedAt = time.Now()
	if c.hooks.OnUserTranscript != nil {
		c.hooks.OnUserTranscript(turnID, text)
	}
	c.seg.SetSuppressed(true)
	c.setState(StateAwaitingReply, "utterance committed")

	go func() {
		markup, err := c.responder.Reply(ctx, text)
		if err != nil {
			// Responder contracts say this cannot happen; log and recover
			// with an empty reply rather than wedging the turn.
			log.Printf("voice: responder error on turn %s: %v", turnID, err)
			markup = ""
		}
		c.post(ctx, events, coordEvent{kind: evReplyReady, gen: gen, turnID: turnID, text: markup})
	}()
}

// enterSpeaking stops recognition, plays the reply, and posts evSpeakDone
// exactly once when playback finishes or is cancelled.
func (c *Coordinator) enterSpeaking(ctx context.Context, gen uint64, events chan coordEvent, turnID, markup string, stopRecog bool) {
	c.seg.SetSuppressed(true)
	if stopRecog {
		_ = c.recog.Stop()
	}
	c.setState(StateSpeaking, "agent speaking")

	go func() {
		if err := c.speaker.Speak(ctx, turnID, markup); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("voice: playback error on turn %s: %v", turnID, err)
		}
		c.post(ctx, events, coordEvent{kind: evSpeakDone, gen: gen, turnID: turnID})
	}()
}

func (c *Coordinator) resumeListening(ctx context.Context, gen uint64, events chan coordEvent) {
	c.seg.SetSuppressed(false)
	c.turnOpen = false
	c.pendingPartial = ""
	c.setState(StateListening, "listening")
	c.restartRecognition(ctx, gen, events)
}

// restartRecognition applies the fixed policy: immediate restart, then one
// retry after RestartRetryDelay, then a terminal failure.
func (c *Coordinator) restartRecognition(ctx context.Context, gen uint64, events chan coordEvent) {
	if err := c.startRecognition(ctx, gen, events); err != nil {
		c.restartAttempts++
		if c.restartAttempts > 1 {
			c.terminalRecognitionFailure(err.Error())
			return
		}
		c.countTurnEvent("recognition_restart_retry")
		time.AfterFunc(c.cfg.RestartRetryDelay, func() {
			c.post(ctx, events, coordEvent{kind: evRestartRetry, gen: gen})
		})
		return
	}
	c.restartAttempts = 0
}

func (c *Coordinator) handleRecognitionError(ctx context.Context, gen uint64, events chan coordEvent, kind, detail string) {
	c.metrics.CapabilityErrors.WithLabelValues("recognition", kind).Inc()

	switch reliability.ClassifyRecognitionError(kind) {
	case reliability.RecognitionTransient:
		// Silent restart; no-speech and aborted are routine in
		// continuous mode and must not surface to the user.
		switch c.currentState() {
		case StateListening, StateCapturing:
			c.restartRecognition(ctx, gen, events)
		}
	case reliability.RecognitionFatal:
		c.emitError("recognition_"+kind, detail, false)
		c.setState(StateIdle, "recognition permission lost")
		go c.Stop()
	case reliability.RecognitionRetryOnce:
		if c.retryOnceUsed {
			c.terminalRecognitionFailure(detail)
			return
		}
		c.retryOnceUsed = true
		backoff := reliability.ExponentialBackoff(1, c.cfg.RestartRetryDelay, 2*time.Second)
		time.AfterFunc(backoff, func() {
			c.post(ctx, events, coordEvent{kind: evRestartRetry, gen: gen})
		})
	}
}

func (c *Coordinator) terminalRecognitionFailure(detail string) {
	c.emitError("recognition_unavailable", detail, false)
	c.setState(StateIdle, "recognition unavailable")
	go c.Stop()
}

func (c *Coordinator) armPartialTimer(ctx context.Context, gen uint64, events chan coordEvent, turnID string) {
	c.stopPartialTimer()
	c.partialTimer = time.AfterFunc(c.cfg.PartialSilenceTimeout, func() {
		c.post(ctx, events, coordEvent{kind: evPartialTimeout, gen: gen, turnID: turnID})
	})
}

func (c *Coordinator) stopPartialTimer() {
	if c.partialTimer != nil {
		c.partialTimer.Stop()
		c.partialTimer = nil
	}
}

func (c *Coordinator) currentState() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.curState
}

func (c *Coordinator) setState(s State, detail string) {
	c.mu.Lock()
	c.curState = s
	c.mu.Unlock()
	c.addDebug(string(s) + ": " + detail)
	if c.hooks.OnState != nil {
		c.hooks.OnState(s, detail)
	}
}

func (c *Coordinator) emitError(code, detail string, retryable bool) {
	c.addDebug("error " + code + ": " + detail)
	if c.hooks.OnError != nil {
		c.hooks.OnError(code, detail, retryable)
	}
}

func (c *Coordinator) countTurnEvent(event string) {
	c.metrics.TurnEvents.WithLabelValues(event).Inc()
}
