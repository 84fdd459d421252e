package voice

import (
	"testing"
	"time"
)

func TestSplitSpeech(t *testing.T) {
	segs := SplitSpeech("Oi! [pause:600ms] Que bom te ver. [pause:400ms] Vamos conversar?")
	if len(segs) != 3 {
		t.Fatalf("segments = %d, want 3", len(segs))
	}
	if segs[0].Text != "Oi!" || segs[0].PauseAfter != 600*time.Millisecond {
		t.Fatalf("seg[0] = %+v", segs[0])
	}
	if segs[1].Text != "Que bom te ver." || segs[1].PauseAfter != 400*time.Millisecond {
		t.Fatalf("seg[1] = %+v", segs[1])
	}
	if segs[2].Text != "Vamos conversar?" || segs[2].PauseAfter != 0 {
		t.Fatalf("seg[2] = %+v", segs[2])
	}
}

func TestSplitSpeechNoMarkup(t *testing.T) {
	segs := SplitSpeech("Tudo bem?")
	if len(segs) != 1 || segs[0].Text != "Tudo bem?" {
		t.Fatalf("segments = %+v", segs)
	}
}

func TestSplitSpeechAdjacentPausesAccumulate(t *testing.T) {
	segs := SplitSpeech("Hmm [pause:300ms][pause:200ms] deixa eu pensar")
	if len(segs) != 2 {
		t.Fatalf("segments = %d, want 2: %+v", len(segs), segs)
	}
	if segs[0].PauseAfter != 500*time.Millisecond {
		t.Fatalf("PauseAfter = %v, want 500ms", segs[0].PauseAfter)
	}
}

func TestSplitSpeechLeadingPauseDropped(t *testing.T) {
	segs := SplitSpeech("[pause:900ms] Oi")
	if len(segs) != 1 || segs[0].Text != "Oi" || segs[0].PauseAfter != 0 {
		t.Fatalf("segments = %+v", segs)
	}
}

func TestSplitSpeechBarePauseToken(t *testing.T) {
	segs := SplitSpeech("Oi [pause] tudo bem?")
	if len(segs) != 2 {
		t.Fatalf("segments = %d, want 2: %+v", len(segs), segs)
	}
	// Zero means the speaker substitutes its default pause.
	if segs[0].Text != "Oi" || segs[0].PauseAfter != 0 {
		t.Fatalf("seg[0] = %+v", segs[0])
	}
	if segs[1].Text != "tudo bem?" {
		t.Fatalf("seg[1] = %+v", segs[1])
	}
}

func TestStripMarkupBarePause(t *testing.T) {
	if got := StripMarkup("Oi! [pause] Tudo bem?"); got != "Oi! Tudo bem?" {
		t.Fatalf("StripMarkup = %q", got)
	}
}

func TestSplitSpeechMalformedTokenIsLiteral(t *testing.T) {
	segs := SplitSpeech("Espera [pause:muito] um pouco")
	if len(segs) != 1 {
		t.Fatalf("segments = %d, want 1: %+v", len(segs), segs)
	}
	if segs[0].Text != "Espera [pause:muito] um pouco" {
		t.Fatalf("Text = %q", segs[0].Text)
	}
}

func TestSplitSpeechEmpty(t *testing.T) {
	if segs := SplitSpeech(""); segs != nil {
		t.Fatalf("segments = %+v, want nil", segs)
	}
	if segs := SplitSpeech("[pause:100ms]"); segs != nil {
		t.Fatalf("segments = %+v, want nil", segs)
	}
}

func TestStripMarkup(t *testing.T) {
	got := StripMarkup("Oi! [pause:600ms] Tudo bem?")
	if got != "Oi! Tudo bem?" {
		t.Fatalf("StripMarkup = %q", got)
	}
}
