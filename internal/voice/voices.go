package voice

import "strings"

// DefaultVoicePriority lists known-good synthesis voice names per locale,
// best first. Platform voice inventories vary; these are the voices that
// sound natural for each locale when the platform offers them.
var DefaultVoicePriority = map[string][]string{
	"pt-br": {"Luciana", "Felipe", "Francisca"},
	"pt-pt": {"Joana", "Catarina"},
	"en-us": {"Alex", "Ava"},
}

// ChooseVoice picks the best synthesis voice for a locale: a known-good
// name from the built-in priority list first, then exact locale match,
// then same-language match, then the platform default, then the first
// voice offered. Returns false only when the list is empty.
func ChooseVoice(voices []Voice, locale string) (Voice, bool) {
	return ChooseVoicePreferring(voices, locale, nil)
}

// ChooseVoicePreferring is ChooseVoice with an explicit priority name
// list; when preferred is empty the built-in per-locale list applies.
func ChooseVoicePreferring(voices []Voice, locale string, preferred []string) (Voice, bool) {
	if len(voices) == 0 {
		return Voice{}, false
	}

	want := normalizeLang(locale)
	wantBase := langBase(want)

	names := preferred
	if len(names) == 0 {
		names = DefaultVoicePriority[want]
	}
	for _, name := range names {
		for _, v := range voices {
			if strings.EqualFold(v.Name, name) {
				return v, true
			}
		}
	}

	for _, v := range voices {
		if normalizeLang(v.Lang) == want {
			return v, true
		}
	}
	if wantBase != "" {
		for _, v := range voices {
			if langBase(normalizeLang(v.Lang)) == wantBase {
				return v, true
			}
		}
	}
	for _, v := range voices {
		if v.Default {
			return v, true
		}
	}
	return voices[0], true
}

func normalizeLang(lang string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(lang), "_", "-"))
}

func langBase(lang string) string {
	if i := strings.IndexByte(lang, '-'); i > 0 {
		return lang[:i]
	}
	return lang
}
