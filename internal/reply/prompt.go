package reply

import (
	"fmt"
	"strings"

	"github.com/veronicadeleonh/BatePapo/internal/profile"
)

// onboardingQuestions maps each pending step to the question the agent
// asks next, in the practice language.
var onboardingQuestions = map[string]string{
	profile.StepName:   "Como você se chama?",
	profile.StepGender: "Como você prefere que eu me refira a você?",
	profile.StepTopics: "Quais assuntos você gosta de conversar? [pause:400ms] Pode falar alguns.",
	profile.StepGoals:  "E o que você quer melhorar no seu português?",
}

// BuildPrompt assembles the generation prompt from the stored profile, the
// rolling cross-session history, and the in-session exchange window.
func BuildPrompt(p profile.UserProfile, recent []Exchange, userText string) string {
	var b strings.Builder

	b.WriteString("Você é uma parceira de conversação paciente para quem está praticando português brasileiro. ")
	b.WriteString("Responda em português, em no máximo duas frases curtas, e termine com uma pergunta que mantenha a conversa. ")
	b.WriteString("Você pode inserir pausas naturais com o marcador [pause:400ms].\n\n")

	if p.Name != "" {
		fmt.Fprintf(&b, "O nome da pessoa é %s.\n", p.Name)
	}
	if p.Gender != "" {
		fmt.Fprintf(&b, "Forma de tratamento preferida: %s.\n", p.Gender)
	}
	if len(p.FavoriteTopics) > 0 {
		fmt.Fprintf(&b, "Assuntos favoritos: %s.\n", strings.Join(p.FavoriteTopics, ", "))
	}
	if len(p.LearningGoals) > 0 {
		fmt.Fprintf(&b, "Objetivos de aprendizado: %s.\n", strings.Join(p.LearningGoals, ", "))
	}
	fmt.Fprintf(&b, "Estilo: %s, ritmo: %s.\n", p.Style, p.Pace)

	if len(p.History) > 0 {
		b.WriteString("\nConversas anteriores:\n")
		for _, h := range p.History {
			fmt.Fprintf(&b, "- %s\n", h.Summary)
		}
	}

	if step := p.Onboarding.CurrentID(); step != "" {
		fmt.Fprintf(&b, "\nVocês ainda estão se conhecendo. Depois de reagir ao que a pessoa disse, pergunte: %q\n", onboardingQuestions[step])
	}

	if len(recent) > 0 {
		b.WriteString("\nConversa atual:\n")
		for _, ex := range recent {
			fmt.Fprintf(&b, "Pessoa: %s\nVocê: %s\n", ex.UserText, ex.AgentText)
		}
	}

	fmt.Fprintf(&b, "\nPessoa: %s\nVocê:", userText)
	return b.String()
}
