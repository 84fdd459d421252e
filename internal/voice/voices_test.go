package voice

import "testing"

func TestChooseVoice(t *testing.T) {
	voices := []Voice{
		{URI: "en-default", Lang: "en-US", Default: true},
		{URI: "pt-pt", Lang: "pt-PT"},
		{URI: "pt-br", Lang: "pt-BR"},
	}

	tests := []struct {
		name   string
		locale string
		want   string
	}{
		{"exact locale", "pt-BR", "pt-br"},
		{"exact with underscore", "pt_BR", "pt-br"},
		{"language fallback", "pt-AO", "pt-pt"},
		{"platform default", "ja-JP", "en-default"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ChooseVoice(voices, tt.locale)
			if !ok {
				t.Fatalf("ChooseVoice returned no voice")
			}
			if got.URI != tt.want {
				t.Fatalf("URI = %q, want %q", got.URI, tt.want)
			}
		})
	}
}

func TestChooseVoicePriorityNameWins(t *testing.T) {
	voices := []Voice{
		{URI: "br-generic", Lang: "pt-BR", Default: true},
		{URI: "br-luciana", Name: "Luciana", Lang: "pt-BR"},
	}
	got, ok := ChooseVoice(voices, "pt-BR")
	if !ok || got.URI != "br-luciana" {
		t.Fatalf("got %+v ok=%v, want the known-good Luciana voice", got, ok)
	}
}

func TestChooseVoicePreferringExplicitList(t *testing.T) {
	voices := []Voice{
		{URI: "br-luciana", Name: "Luciana", Lang: "pt-BR"},
		{URI: "br-felipe", Name: "Felipe", Lang: "pt-BR"},
	}
	got, ok := ChooseVoicePreferring(voices, "pt-BR", []string{"Felipe"})
	if !ok || got.URI != "br-felipe" {
		t.Fatalf("got %+v ok=%v, want the preferred Felipe voice", got, ok)
	}
}

func TestChooseVoicePriorityFallsThroughToLocale(t *testing.T) {
	voices := []Voice{
		{URI: "en-default", Lang: "en-US", Default: true},
		{URI: "br-other", Name: "Vitória", Lang: "pt-BR"},
	}
	got, ok := ChooseVoice(voices, "pt-BR")
	if !ok || got.URI != "br-other" {
		t.Fatalf("got %+v ok=%v, want the exact-locale voice", got, ok)
	}
}

func TestChooseVoiceFirstWhenNoDefault(t *testing.T) {
	voices := []Voice{{URI: "a", Lang: "fr-FR"}, {URI: "b", Lang: "de-DE"}}
	got, ok := ChooseVoice(voices, "pt-BR")
	if !ok || got.URI != "a" {
		t.Fatalf("got %+v ok=%v, want first voice", got, ok)
	}
}

func TestChooseVoiceEmptyList(t *testing.T) {
	if _, ok := ChooseVoice(nil, "pt-BR"); ok {
		t.Fatalf("empty list should return ok=false")
	}
}
