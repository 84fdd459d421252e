package voice

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/veronicadeleonh/BatePapo/internal/observability"
)

type scriptedResponder struct {
	mu      sync.Mutex
	replies []string
	next    int
	inputs  []string
}

func (r *scriptedResponder) Reply(_ context.Context, userText string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inputs = append(r.inputs, userText)
	if len(r.replies) == 0 {
		return "Entendi.", nil
	}
	reply := r.replies[r.next]
	if r.next < len(r.replies)-1 {
		r.next++
	}
	return reply, nil
}

func (r *scriptedResponder) Inputs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.inputs))
	copy(out, r.inputs)
	return out
}

type hookRecorder struct {
	states      chan State
	transcripts chan string
	replies     chan string
	errs        chan string
}

func newHookRecorder() *hookRecorder {
	return &hookRecorder{
		states:      make(chan State, 64),
		transcripts: make(chan string, 16),
		replies:     make(chan string, 16),
		errs:        make(chan string, 16),
	}
}

func (h *hookRecorder) hooks() Hooks {
	return Hooks{
		OnState:          func(s State, _ string) { h.states <- s },
		OnUserTranscript: func(_, text string) { h.transcripts <- text },
		OnAgentReply:     func(_, markup string) { h.replies <- markup },
		OnError:          func(code, _ string, _ bool) { h.errs <- code },
	}
}

func (h *hookRecorder) waitState(t *testing.T, want State) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case got := <-h.states:
			if got == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state %q", want)
		}
	}
}

func waitChan[T any](t *testing.T, ch chan T, what string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
		panic("unreachable")
	}
}

func testCoordinatorConfig() Config {
	return Config{
		Locale:         "pt-BR",
		Continuous:     true,
		InterimResults: true,
		Segmenter: SegmenterConfig{
			SpeechThreshold:  30,
			SilenceThreshold: 12,
			SpeechRunTarget:  3,
			SilenceRunTarget: 4,
		},
		PartialSilenceTimeout: 500 * time.Millisecond,
		RestartRetryDelay:     30 * time.Millisecond,
		DefaultPause:          time.Millisecond,
	}
}

type coordFixture struct {
	capture *MockCapture
	recog   *MockRecognizer
	synth   *MockSynthesizer
	resp    *scriptedResponder
	hooks   *hookRecorder
	coord   *Coordinator
}

func newCoordFixture(t *testing.T, cfg Config) *coordFixture {
	t.Helper()
	f := &coordFixture{
		capture: NewMockCapture(),
		recog:   NewMockRecognizer(),
		synth:   NewMockSynthesizer(),
		resp:    &scriptedResponder{},
		hooks:   newHookRecorder(),
	}
	metrics := observability.NewMetrics("test_voice_" + strings.ReplaceAll(t.Name(), "/", "_"))
	f.coord = NewCoordinator(cfg, f.capture, f.recog, f.synth, f.resp, metrics, f.hooks.hooks())
	return f
}

func (f *coordFixture) pushLevels(levels ...int) {
	for _, lvl := range levels {
		f.capture.Push(lvl)
	}
}

func TestCoordinatorFullVoiceTurn(t *testing.T) {
	f := newCoordFixture(t, testCoordinatorConfig())
	f.resp.replies = []string{"Que legal! [pause:1ms] Me conta mais."}

	if err := f.coord.Start(context.Background()); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	defer f.coord.Stop()
	f.hooks.waitState(t, StateListening)

	f.pushLevels(50, 50, 50)
	f.hooks.waitState(t, StateCapturing)

	f.recog.Push(RecognitionEvent{Type: RecognitionFinal, Text: "eu gosto de viajar"})
	if got := waitChan(t, f.hooks.transcripts, "user transcript"); got != "eu gosto de viajar" {
		t.Fatalf("transcript = %q", got)
	}
	if got := waitChan(t, f.hooks.replies, "agent reply"); !strings.Contains(got, "Que legal!") {
		t.Fatalf("reply = %q", got)
	}
	f.hooks.waitState(t, StateSpeaking)
	f.hooks.waitState(t, StateListening)

	reqs := f.synth.Requests()
	if len(reqs) != 2 {
		t.Fatalf("speak requests = %d, want 2 segments", len(reqs))
	}
	if reqs[0].Text != "Que legal!" || reqs[1].Text != "Me conta mais." {
		t.Fatalf("segment texts = %q, %q", reqs[0].Text, reqs[1].Text)
	}
	if inputs := f.resp.Inputs(); len(inputs) != 1 || inputs[0] != "eu gosto de viajar" {
		t.Fatalf("responder inputs = %v", inputs)
	}
}

type gatedResponder struct {
	release chan struct{}
	reply   string
}

func (r *gatedResponder) Reply(ctx context.Context, _ string) (string, error) {
	select {
	case <-r.release:
	case <-ctx.Done():
	}
	return r.reply, nil
}

func TestCoordinatorEnergyEndCommitsPartialAndDedupesLateFinal(t *testing.T) {
	f := newCoordFixture(t, testCoordinatorConfig())
	gate := &gatedResponder{release: make(chan struct{}), reply: "Legal!"}
	f.coord.responder = gate

	if err := f.coord.Start(context.Background()); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	defer f.coord.Stop()
	f.hooks.waitState(t, StateListening)

	f.pushLevels(50, 50, 50)
	f.hooks.waitState(t, StateCapturing)
	f.recog.Push(RecognitionEvent{Type: RecognitionPartial, Text: "oi tudo bem"})

	// Energy path wins the race: silence run closes the turn with the
	// accumulated partial.
	f.pushLevels(5, 5, 5, 5)
	if got := waitChan(t, f.hooks.transcripts, "user transcript"); got != "oi tudo bem" {
		t.Fatalf("transcript = %q", got)
	}
	f.hooks.waitState(t, StateAwaitingReply)

	// The recognizer's own final for the same utterance arrives while the
	// reply is pending; the closed turn token makes it a no-op.
	f.recog.Push(RecognitionEvent{Type: RecognitionFinal, Text: "oi tudo bem"})
	select {
	case extra := <-f.hooks.transcripts:
		t.Fatalf("unexpected second transcript %q", extra)
	case <-time.After(100 * time.Millisecond):
	}

	close(gate.release)
	waitChan(t, f.hooks.replies, "agent reply")
	f.hooks.waitState(t, StateListening)
}

func TestCoordinatorPartialSilenceTimeoutCommits(t *testing.T) {
	cfg := testCoordinatorConfig()
	cfg.PartialSilenceTimeout = 60 * time.Millisecond
	f := newCoordFixture(t, cfg)

	if err := f.coord.Start(context.Background()); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	defer f.coord.Stop()
	f.hooks.waitState(t, StateListening)

	// Recognition hears speech the energy path never resolves; the
	// silence-after-partial timer closes the turn.
	f.recog.Push(RecognitionEvent{Type: RecognitionPartial, Text: "acho que sim"})
	f.hooks.waitState(t, StateCapturing)

	if got := waitChan(t, f.hooks.transcripts, "user transcript"); got != "acho que sim" {
		t.Fatalf("transcript = %q", got)
	}
}

func TestCoordinatorNewPartialRearmsSilenceTimer(t *testing.T) {
	cfg := testCoordinatorConfig()
	cfg.PartialSilenceTimeout = 120 * time.Millisecond
	f := newCoordFixture(t, cfg)

	if err := f.coord.Start(context.Background()); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	defer f.coord.Stop()
	f.hooks.waitState(t, StateListening)

	f.recog.Push(RecognitionEvent{Type: RecognitionPartial, Text: "eu"})
	f.hooks.waitState(t, StateCapturing)
	time.Sleep(70 * time.Millisecond)
	f.recog.Push(RecognitionEvent{Type: RecognitionPartial, Text: "eu moro"})
	time.Sleep(70 * time.Millisecond)
	f.recog.Push(RecognitionEvent{Type: RecognitionPartial, Text: "eu moro em lisboa"})

	if got := waitChan(t, f.hooks.transcripts, "user transcript"); got != "eu moro em lisboa" {
		t.Fatalf("transcript = %q, want the newest partial", got)
	}
}

func TestCoordinatorIdenticalPartialDoesNotHoldTurnOpen(t *testing.T) {
	cfg := testCoordinatorConfig()
	cfg.PartialSilenceTimeout = 120 * time.Millisecond
	f := newCoordFixture(t, cfg)

	if err := f.coord.Start(context.Background()); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	defer f.coord.Stop()
	f.hooks.waitState(t, StateListening)

	f.recog.Push(RecognitionEvent{Type: RecognitionPartial, Text: "oi"})
	f.hooks.waitState(t, StateCapturing)

	// A recognizer re-emitting the same hypothesis must not postpone the
	// silence timer; keep repeating it faster than the timeout fires.
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(60 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				f.recog.Push(RecognitionEvent{Type: RecognitionPartial, Text: "oi"})
			}
		}
	}()

	if got := waitChan(t, f.hooks.transcripts, "user transcript"); got != "oi" {
		t.Fatalf("transcript = %q", got)
	}
}

func TestCoordinatorSuppressesEnergyWhileSpeaking(t *testing.T) {
	f := newCoordFixture(t, testCoordinatorConfig())
	f.resp.replies = []string{"Entendi. [pause:300ms] Me conta mais."}

	if err := f.coord.Start(context.Background()); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	defer f.coord.Stop()
	f.hooks.waitState(t, StateListening)

	if err := f.coord.SubmitText(context.Background(), "oi"); err != nil {
		t.Fatalf("SubmitText error: %v", err)
	}
	waitChan(t, f.hooks.transcripts, "user transcript")
	f.hooks.waitState(t, StateSpeaking)

	// Loud samples while the agent speaks must not start a recording.
	for i := 0; i < 8; i++ {
		f.pushLevels(90)
		time.Sleep(10 * time.Millisecond)
	}

	if next := waitChan(t, f.hooks.states, "post-speaking state"); next != StateListening {
		t.Fatalf("state after speaking = %q, want listening", next)
	}
	select {
	case tr := <-f.hooks.transcripts:
		t.Fatalf("unexpected transcript %q from suppressed energy", tr)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestCoordinatorTransientErrorRestartsSilently(t *testing.T) {
	f := newCoordFixture(t, testCoordinatorConfig())
	if err := f.coord.Start(context.Background()); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	defer f.coord.Stop()
	f.hooks.waitState(t, StateListening)

	before := f.recog.Starts()
	f.recog.Push(RecognitionEvent{Type: RecognitionError, Kind: "no-speech"})

	deadline := time.After(2 * time.Second)
	for f.recog.Starts() <= before {
		select {
		case <-deadline:
			t.Fatalf("recognizer never restarted")
		case <-time.After(10 * time.Millisecond):
		}
	}
	select {
	case code := <-f.hooks.errs:
		t.Fatalf("transient error surfaced to user as %q", code)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCoordinatorRestartExhaustionIsTerminal(t *testing.T) {
	f := newCoordFixture(t, testCoordinatorConfig())
	if err := f.coord.Start(context.Background()); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	defer f.coord.Stop()
	f.hooks.waitState(t, StateListening)

	f.recog.FailNextStarts(2)
	f.recog.Push(RecognitionEvent{Type: RecognitionError, Kind: "no-speech"})

	if code := waitChan(t, f.hooks.errs, "terminal error"); code != "recognition_unavailable" {
		t.Fatalf("error code = %q", code)
	}
}

func TestCoordinatorPermissionErrorIsFatal(t *testing.T) {
	f := newCoordFixture(t, testCoordinatorConfig())
	if err := f.coord.Start(context.Background()); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	defer f.coord.Stop()
	f.hooks.waitState(t, StateListening)

	f.recog.Push(RecognitionEvent{Type: RecognitionError, Kind: "not-allowed"})
	if code := waitChan(t, f.hooks.errs, "fatal error"); code != "recognition_not-allowed" {
		t.Fatalf("error code = %q", code)
	}
	f.hooks.waitState(t, StateIdle)
}

func TestCoordinatorTypedInputBypassesVoicePath(t *testing.T) {
	f := newCoordFixture(t, testCoordinatorConfig())
	f.resp.replies = []string{"Boa!"}

	if err := f.coord.Start(context.Background()); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	defer f.coord.Stop()
	f.hooks.waitState(t, StateListening)

	if err := f.coord.SubmitText(context.Background(), "gosto de cozinhar"); err != nil {
		t.Fatalf("SubmitText error: %v", err)
	}
	if got := waitChan(t, f.hooks.transcripts, "user transcript"); got != "gosto de cozinhar" {
		t.Fatalf("transcript = %q", got)
	}
	waitChan(t, f.hooks.replies, "agent reply")
	f.hooks.waitState(t, StateListening)

	tail := f.coord.DebugTail()
	if len(tail) == 0 {
		t.Fatalf("debug tail empty after a full turn")
	}
	found := false
	for _, line := range tail {
		if strings.Contains(line, string(StateAwaitingReply)) {
			found = true
		}
	}
	if !found {
		t.Fatalf("debug tail missing awaiting_reply transition: %v", tail)
	}
}

func TestCoordinatorStartUnwindsCaptureWhenRecognitionFails(t *testing.T) {
	f := newCoordFixture(t, testCoordinatorConfig())
	f.recog.FailNextStarts(1)

	if err := f.coord.Start(context.Background()); err == nil {
		t.Fatalf("Start should fail when recognition cannot start")
	}
	if f.capture.started {
		t.Fatalf("capture left running after failed start")
	}
}

func TestCoordinatorCaptureFailureWrapsSentinel(t *testing.T) {
	f := newCoordFixture(t, testCoordinatorConfig())
	f.capture.FailWith(errors.New("permission denied"))

	err := f.coord.Start(context.Background())
	if !errors.Is(err, ErrCaptureUnavailable) {
		t.Fatalf("err = %v, want ErrCaptureUnavailable", err)
	}
}

func TestCoordinatorStopIsIdempotentAndDropsStaleEvents(t *testing.T) {
	f := newCoordFixture(t, testCoordinatorConfig())
	if err := f.coord.Start(context.Background()); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	f.hooks.waitState(t, StateListening)

	f.coord.Stop()
	f.coord.Stop()
	if got := f.coord.Snapshot(); got != StateIdle {
		t.Fatalf("state after stop = %q", got)
	}

	// Capability pushes after stop must be inert.
	f.capture.Push(80)
	f.recog.Push(RecognitionEvent{Type: RecognitionFinal, Text: "fantasma"})
	select {
	case got := <-f.hooks.transcripts:
		t.Fatalf("stale transcript %q after stop", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCoordinatorGreetingSpokenOnStart(t *testing.T) {
	cfg := testCoordinatorConfig()
	cfg.Greeting = "Oi! [pause:1ms] Vamos conversar?"
	f := newCoordFixture(t, cfg)

	if err := f.coord.Start(context.Background()); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	defer f.coord.Stop()

	f.hooks.waitState(t, StateSpeaking)
	f.hooks.waitState(t, StateListening)

	reqs := f.synth.Requests()
	if len(reqs) != 2 || reqs[0].Text != "Oi!" {
		t.Fatalf("greeting segments = %+v", reqs)
	}
	if f.recog.Starts() == 0 {
		t.Fatalf("recognition never started after greeting")
	}
}
