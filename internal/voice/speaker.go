package voice

import (
	"context"
	"fmt"
	"time"
)

// Speaker plays one reply through the synthesizer, segment by segment,
// sleeping the real pause between segments and revealing the caption as
// word boundaries arrive. Speak returns exactly once per call, after the
// last segment's terminal event or on cancellation.
type Speaker struct {
	synth        Synthesizer
	defaultPause time.Duration
	voiceURI     string
	locale       string
	onCaption    func(turnID, delta string)
}

func NewSpeaker(synth Synthesizer, defaultPause time.Duration, voiceURI, locale string, onCaption func(turnID, delta string)) *Speaker {
	if onCaption == nil {
		onCaption = func(string, string) {}
	}
	return &Speaker{
		synth:        synth,
		defaultPause: defaultPause,
		voiceURI:     voiceURI,
		locale:       locale,
		onCaption:    onCaption,
	}
}

// SetVoice switches the voice used for subsequent replies.
func (sp *Speaker) SetVoice(voiceURI string) {
	sp.voiceURI = voiceURI
}

// Speak synthesizes the marked-up reply text. A failed segment reveals its
// caption and playback moves on to the next segment; only cancellation
// aborts the reply.
func (sp *Speaker) Speak(ctx context.Context, turnID, markup string) error {
	segments := SplitSpeech(markup)
	for i, seg := range segments {
		segID := fmt.Sprintf("%s-%d", turnID, i)
		if err := sp.speakSegment(ctx, turnID, segID, seg.Text); err != nil {
			return err
		}

		if i == len(segments)-1 {
			break
		}
		pause := seg.PauseAfter
		if pause <= 0 {
			pause = sp.defaultPause
		}
		if err := sleepCtx(ctx, pause); err != nil {
			return err
		}
	}
	return nil
}

func (sp *Speaker) speakSegment(ctx context.Context, turnID, segID, text string) error {
	events, err := sp.synth.Speak(ctx, SpeakRequest{
		TurnID:    turnID,
		SegmentID: segID,
		Text:      text,
		VoiceURI:  sp.voiceURI,
		Locale:    sp.locale,
	})
	if err != nil {
		// Caption still tells the user what would have been said.
		sp.onCaption(turnID, text+" ")
		return nil
	}

	runes := []rune(text)
	revealed := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-events:
			if !ok {
				sp.revealRest(turnID, runes, revealed)
				return nil
			}
			switch evt.Type {
			case SpeechBoundary:
				if evt.CharIndex > revealed && evt.CharIndex <= len(runes) {
					sp.onCaption(turnID, string(runes[revealed:evt.CharIndex]))
					revealed = evt.CharIndex
				}
			case SpeechEnded, SpeechError:
				sp.revealRest(turnID, runes, revealed)
				return nil
			}
		}
	}
}

func (sp *Speaker) revealRest(turnID string, runes []rune, revealed int) {
	if revealed < len(runes) {
		sp.onCaption(turnID, string(runes[revealed:])+" ")
	} else {
		sp.onCaption(turnID, " ")
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
