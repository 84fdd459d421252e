package voice

// SegmenterEvent is the edge detected by one Observe call.
type SegmenterEvent int

const (
	SegmenterNone SegmenterEvent = iota
	SegmenterSpeechStart
	SegmenterSpeechEnd
)

type SegmenterConfig struct {
	// SpeechThreshold and SilenceThreshold split the 0..255 level range
	// into speech, silence, and a dead band between them.
	SpeechThreshold  int
	SilenceThreshold int
	// SpeechRunTarget and SilenceRunTarget are the run lengths, in
	// samples, needed to flip the in-speech flag.
	SpeechRunTarget  int
	SilenceRunTarget int
}

// UtteranceSegmenter turns a noisy level stream into speech-start and
// speech-end edges using two decaying run-length counters. Levels in the
// dead band decay both counters by one, so brief wobble around a threshold
// does not reset accumulated evidence outright. Not safe for concurrent
// use; the coordinator owns it from a single goroutine.
type UtteranceSegmenter struct {
	cfg        SegmenterConfig
	speechRun  int
	silenceRun int
	inSpeech   bool
	suppressed bool
}

func NewUtteranceSegmenter(cfg SegmenterConfig) *UtteranceSegmenter {
	return &UtteranceSegmenter{cfg: cfg}
}

// Observe feeds one level sample and reports any edge it produced.
// While suppressed, samples are discarded entirely.
func (s *UtteranceSegmenter) Observe(level int) SegmenterEvent {
	if s.suppressed {
		return SegmenterNone
	}

	switch {
	case level >= s.cfg.SpeechThreshold:
		s.speechRun++
		s.silenceRun = decay(s.silenceRun)
	case level <= s.cfg.SilenceThreshold:
		s.silenceRun++
		s.speechRun = decay(s.speechRun)
	default:
		s.speechRun = decay(s.speechRun)
		s.silenceRun = decay(s.silenceRun)
	}

	if !s.inSpeech && s.speechRun >= s.cfg.SpeechRunTarget {
		s.inSpeech = true
		s.silenceRun = 0
		return SegmenterSpeechStart
	}
	if s.inSpeech && s.silenceRun >= s.cfg.SilenceRunTarget {
		s.inSpeech = false
		s.speechRun = 0
		return SegmenterSpeechEnd
	}
	return SegmenterNone
}

// SetSuppressed gates the segmenter while the agent is speaking, so
// playback bleeding into the microphone never registers as user speech.
// Both counters and the in-speech flag are cleared on every change.
func (s *UtteranceSegmenter) SetSuppressed(v bool) {
	s.suppressed = v
	s.Reset()
}

func (s *UtteranceSegmenter) Reset() {
	s.speechRun = 0
	s.silenceRun = 0
	s.inSpeech = false
}

func (s *UtteranceSegmenter) InSpeech() bool { return s.inSpeech }

func decay(n int) int {
	if n > 0 {
		return n - 1
	}
	return 0
}
