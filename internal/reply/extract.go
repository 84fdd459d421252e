package reply

import (
	"regexp"
	"strings"

	"github.com/veronicadeleonh/BatePapo/internal/profile"
)

var (
	namePatternRe = regexp.MustCompile(`(?i)(?:me chamo|meu nome é|meu nome e|pode me chamar de|sou o|sou a|sou)\s+([\p{L}]+)`)

	genderWords = []struct {
		word       string
		normalized string
	}{
		{"não-binário", "não-binário"},
		{"nao-binario", "não-binário"},
		{"não binário", "não-binário"},
		{"elu", "não-binário"},
		{"masculino", "masculino"},
		{"homem", "masculino"},
		{"ele", "masculino"},
		{"feminino", "feminino"},
		{"mulher", "feminino"},
		{"ela", "feminino"},
	}

	topicSplitRe = regexp.MustCompile(`\s*(?:,|;| e )\s*`)

	// Passive topic detection after onboarding, keyed on the same domains
	// the fallback table covers.
	passiveTopics = map[string][]string{
		"viagem":   {"viajar", "viagem", "praia", "férias"},
		"comida":   {"comida", "cozinhar", "restaurante"},
		"trabalho": {"trabalho", "trabalhar", "emprego"},
		"família":  {"família", "filho", "filha", "pais"},
		"música":   {"música", "cantar", "banda"},
		"filmes":   {"filme", "série", "cinema"},
		"esporte":  {"esporte", "futebol", "academia"},
		"estudos":  {"estudar", "escola", "faculdade"},
	}
)

// ApplyUtterance folds one user utterance into the profile. While
// onboarding is active, the utterance answers the current step and advances
// it by one; afterwards only passive topic detection applies. Reports
// whether the profile changed.
func ApplyUtterance(p *profile.UserProfile, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	if step := p.Onboarding.CurrentID(); step != "" {
		return applyOnboardingAnswer(p, step, text)
	}
	return applyPassiveTopics(p, text)
}

func applyOnboardingAnswer(p *profile.UserProfile, step, text string) bool {
	switch step {
	case profile.StepName:
		name := extractName(text)
		if name == "" {
			return false
		}
		p.Name = name
	case profile.StepGender:
		gender := extractGender(text)
		if gender == "" {
			return false
		}
		p.Gender = gender
	case profile.StepTopics:
		topics := splitListAnswer(text)
		if len(topics) == 0 {
			return false
		}
		for _, t := range topics {
			p.AddTopic(t)
		}
	case profile.StepGoals:
		goals := splitListAnswer(text)
		if len(goals) == 0 {
			return false
		}
		for _, g := range goals {
			p.AddGoal(g)
		}
	default:
		return false
	}
	p.Onboarding.Advance()
	return true
}

func applyPassiveTopics(p *profile.UserProfile, text string) bool {
	lower := strings.ToLower(text)
	changed := false
	for topic, keywords := range passiveTopics {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				before := len(p.FavoriteTopics)
				p.AddTopic(topic)
				if len(p.FavoriteTopics) != before {
					changed = true
				}
				break
			}
		}
	}
	return changed
}

func extractName(text string) string {
	if m := namePatternRe.FindStringSubmatch(text); m != nil {
		return capitalize(m[1])
	}
	// A bare one- or two-word answer is taken as the name itself.
	fields := strings.Fields(text)
	if len(fields) >= 1 && len(fields) <= 2 {
		return capitalize(fields[0])
	}
	return ""
}

func extractGender(text string) string {
	lower := strings.ToLower(text)
	words := strings.Fields(lower)
	for _, entry := range genderWords {
		if strings.Contains(entry.word, " ") {
			if strings.Contains(lower, entry.word) {
				return entry.normalized
			}
			continue
		}
		for _, w := range words {
			if strings.Trim(w, ".,!?") == entry.word {
				return entry.normalized
			}
		}
	}
	return ""
}

func splitListAnswer(text string) []string {
	parts := topicSplitRe.Split(strings.ToLower(text), -1)
	var out []string
	for _, part := range parts {
		part = strings.TrimSpace(strings.TrimSuffix(part, "."))
		part = strings.TrimPrefix(part, "gosto de ")
		part = strings.TrimPrefix(part, "de ")
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	return strings.ToUpper(string(runes[0])) + string(runes[1:])
}
