package voice

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Reply text may carry inline pause tokens, [pause:600ms] or the bare
// [pause] which takes the speaker's default duration. Malformed tokens
// are left in place and spoken literally.
var pauseTokenRe = regexp.MustCompile(`\[pause(?::(\d+)ms)?\]`)

// SpeechSegment is one synthesizable slice of a reply, with the pause to
// honor after it finishes playing.
type SpeechSegment struct {
	Text       string
	PauseAfter time.Duration
}

// SplitSpeech breaks marked-up reply text into segments at pause tokens.
// Adjacent pause tokens accumulate onto the preceding segment; leading
// pauses before any text are dropped. The returned segments never have
// empty text.
func SplitSpeech(markup string) []SpeechSegment {
	var out []SpeechSegment
	rest := markup
	for {
		loc := pauseTokenRe.FindStringSubmatchIndex(rest)
		if loc == nil {
			if text := strings.TrimSpace(rest); text != "" {
				out = append(out, SpeechSegment{Text: text})
			}
			break
		}

		// A bare [pause] has no duration group; zero means "use the
		// speaker's default" downstream.
		ms := 0
		if loc[2] >= 0 {
			ms, _ = strconv.Atoi(rest[loc[2]:loc[3]])
		}
		pause := time.Duration(ms) * time.Millisecond
		text := strings.TrimSpace(rest[:loc[0]])
		if text != "" {
			out = append(out, SpeechSegment{Text: text, PauseAfter: pause})
		} else if len(out) > 0 {
			out[len(out)-1].PauseAfter += pause
		}
		rest = rest[loc[1]:]
	}
	return out
}

// StripMarkup removes pause tokens for transcript and caption display.
func StripMarkup(markup string) string {
	clean := pauseTokenRe.ReplaceAllString(markup, " ")
	return strings.Join(strings.Fields(clean), " ")
}
