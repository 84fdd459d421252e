package sessionlog

import "strings"

var questionOpeners = []string{
	"o que", "por que", "porque", "como", "quando", "onde", "quem", "qual", "quais", "será que",
}

// topicKeywords is ordered so detected topics come out the same way on
// every run.
var topicKeywords = []struct {
	topic    string
	keywords []string
}{
	{"viagem", []string{"viajar", "viagem", "praia", "férias", "passeio"}},
	{"comida", []string{"comida", "cozinhar", "comer", "restaurante", "receita"}},
	{"trabalho", []string{"trabalho", "trabalhar", "emprego", "escritório", "reunião"}},
	{"família", []string{"família", "filho", "filha", "irmão", "irmã", "pais", "avó", "avô"}},
	{"música", []string{"música", "cantar", "banda", "tocar", "show"}},
	{"filmes", []string{"filme", "série", "cinema", "assistir"}},
	{"esporte", []string{"esporte", "futebol", "correr", "academia", "treinar", "jogo"}},
	{"estudos", []string{"estudar", "escola", "faculdade", "aprender", "curso"}},
}

var greetingMarkers = []string{
	"oi", "olá", "ola", "bom dia", "boa tarde", "boa noite", "tudo bem", "e aí",
}

var goodbyeMarkers = []string{
	"tchau", "até logo", "ate logo", "até mais", "ate mais", "até amanhã", "adeus", "boa noite, até",
}

var introductionMarkers = []string{
	"vamos falar", "queria falar", "quero falar", "me conta sobre", "eu gosto de", "hoje eu",
}

var positiveMarkers = []string{
	"adoro", "amo", "gosto muito", "ótimo", "legal", "feliz", "maravilhoso", "incrível", "divertido",
}

var negativeMarkers = []string{
	"não sei", "nao sei", "difícil", "dificil", "como se diz", "não entendi", "nao entendi",
	"complicado", "esqueci a palavra", "não gosto", "nao gosto", "chato", "cansado", "triste",
}

// ClassifyFlow labels one user turn: greetings and goodbyes by opener,
// questions by mark or interrogative opener, topic introductions by their
// framing phrases, short turns as responses, the rest as followups.
func ClassifyFlow(text string) FlowType {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)
	for _, m := range greetingMarkers {
		if lower == m || strings.HasPrefix(lower, m+" ") || strings.HasPrefix(lower, m+",") || strings.HasPrefix(lower, m+"!") {
			return FlowGreeting
		}
	}
	for _, m := range goodbyeMarkers {
		if strings.HasPrefix(lower, m) {
			return FlowGoodbye
		}
	}
	if strings.HasSuffix(trimmed, "?") {
		return FlowQuestion
	}
	for _, opener := range questionOpeners {
		if strings.HasPrefix(lower, opener+" ") {
			return FlowQuestion
		}
	}
	for _, m := range introductionMarkers {
		if strings.Contains(lower, m) {
			return FlowTopicIntroduction
		}
	}
	if len(strings.Fields(trimmed)) <= 4 {
		return FlowResponse
	}
	return FlowFollowup
}

// DetectTopics returns the topic labels whose keywords occur in the text,
// in the fixed vocabulary order.
func DetectTopics(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, tk := range topicKeywords {
		for _, kw := range tk.keywords {
			if strings.Contains(lower, kw) {
				out = append(out, tk.topic)
				break
			}
		}
	}
	return out
}

// ClassifyMood weighs positive markers against negative ones (frustration
// and struggle phrases included) across all user turns in a session.
func ClassifyMood(exchanges []Exchange) Mood {
	positive, negative := 0, 0
	for _, ex := range exchanges {
		lower := strings.ToLower(ex.UserText)
		for _, m := range positiveMarkers {
			if strings.Contains(lower, m) {
				positive++
			}
		}
		for _, m := range negativeMarkers {
			if strings.Contains(lower, m) {
				negative++
			}
		}
	}
	switch {
	case negative > positive:
		return MoodNegative
	case positive > negative:
		return MoodPositive
	default:
		return MoodNeutral
	}
}

// ClassifyEngagement grades a session by how many exchanges happened and
// how long the learner's turns ran.
func ClassifyEngagement(exchanges []Exchange) Engagement {
	if len(exchanges) == 0 {
		return EngagementLow
	}
	totalWords := 0
	for _, ex := range exchanges {
		totalWords += len(strings.Fields(ex.UserText))
	}
	meanWords := float64(totalWords) / float64(len(exchanges))
	switch {
	case len(exchanges) >= 8 && meanWords >= 8:
		return EngagementHigh
	case len(exchanges) >= 3 && meanWords >= 4:
		return EngagementMedium
	default:
		return EngagementLow
	}
}
