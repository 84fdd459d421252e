package reply

import (
	"strings"

	"github.com/veronicadeleonh/BatePapo/internal/profile"
)

// fallbackTable pairs keyword sets with canned conversational replies, so
// the agent stays responsive when the generation backend is unreachable.
// Matching is first-hit on the lowercased utterance.
var fallbackTable = []struct {
	keywords []string
	reply    string
}{
	{[]string{"viajar", "viagem", "praia", "férias"},
		"Adoro falar de viagens! [pause:400ms] Qual foi o lugar mais bonito que você já visitou?"},
	{[]string{"comida", "cozinhar", "comer", "restaurante"},
		"Hmm, comida é um ótimo assunto. [pause:400ms] Qual prato você mais gosta de preparar?"},
	{[]string{"trabalho", "trabalhar", "emprego", "escritório"},
		"Entendi. [pause:300ms] E o que você mais gosta no seu trabalho?"},
	{[]string{"família", "filho", "filha", "irmão", "irmã", "pais"},
		"Que legal falar da família. [pause:400ms] Vocês se veem com frequência?"},
	{[]string{"música", "cantar", "banda", "tocar"},
		"Música deixa tudo melhor, né? [pause:400ms] Que tipo de música você mais escuta?"},
	{[]string{"filme", "série", "cinema", "assistir"},
		"Eu também gosto de filmes! [pause:400ms] Me indica um que você viu recentemente?"},
	{[]string{"esporte", "futebol", "correr", "academia", "treinar"},
		"Esporte é uma ótima rotina. [pause:400ms] Você pratica com que frequência?"},
	{[]string{"estudar", "escola", "faculdade", "aprender"},
		"Estudar dá trabalho, mas vale a pena. [pause:400ms] O que você está estudando agora?"},
}

// genericFallbacks keep the conversation moving when nothing matches;
// picked round-robin by utterance length so repeats feel less canned.
var genericFallbacks = []string{
	"Interessante! [pause:400ms] Me conta mais sobre isso.",
	"Entendi. [pause:300ms] E como você se sentiu com isso?",
	"Que legal! [pause:400ms] Por que isso é importante para você?",
	"Ah, sim. [pause:300ms] E o que aconteceu depois?",
}

// Fallback produces a canned reply appropriate to the profile state. Never
// returns an empty string.
func Fallback(p profile.UserProfile, userText string) string {
	if step := p.Onboarding.CurrentID(); step != "" {
		if q, ok := onboardingQuestions[step]; ok {
			return "Legal! [pause:300ms] " + q
		}
	}

	lower := strings.ToLower(userText)
	for _, entry := range fallbackTable {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.reply
			}
		}
	}
	return genericFallbacks[len([]rune(userText))%len(genericFallbacks)]
}
