package reply

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/veronicadeleonh/BatePapo/internal/brain"
	"github.com/veronicadeleonh/BatePapo/internal/profile"
)

const (
	// exchangeWindow bounds the in-session context carried into prompts.
	exchangeWindow = 10
	// profileSaveTimeout bounds the detached best-effort profile write.
	profileSaveTimeout = 2 * time.Second
)

// Exchange is one user/agent pair from the current session.
type Exchange struct {
	UserText  string
	AgentText string
}

type Config struct {
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// Engine turns committed user utterances into agent replies. Reply never
// fails: when the generation backend errors out or produces nothing, the
// keyword fallback answers instead. Profile extraction runs detached so a
// slow store can never delay the reply.
type Engine struct {
	adapter  brain.Adapter
	profiles *profile.Store
	cfg      Config

	mu     sync.Mutex
	recent []Exchange
}

func NewEngine(adapter brain.Adapter, profiles *profile.Store, cfg Config) *Engine {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	return &Engine{adapter: adapter, profiles: profiles, cfg: cfg}
}

// Reply implements voice.Responder.
func (e *Engine) Reply(ctx context.Context, userText string) (string, error) {
	prof := e.profiles.Load(ctx)

	genCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	markup := ""
	resp, err := e.adapter.Generate(genCtx, brain.Request{
		Prompt:      BuildPrompt(prof, e.recentExchanges(), userText),
		MaxTokens:   e.cfg.MaxTokens,
		Temperature: e.cfg.Temperature,
	})
	if err != nil {
		log.Printf("reply: generation failed, using fallback: %v", err)
	} else {
		markup = strings.TrimSpace(resp.Text)
	}
	if markup == "" {
		markup = Fallback(prof, userText)
	}

	e.appendExchange(Exchange{UserText: userText, AgentText: markup})

	// Fold the utterance into the profile off the reply path. The profile
	// is re-read inside to avoid clobbering concurrent writes with the
	// stale copy used for the prompt.
	go e.absorbUtterance(userText)

	return markup, nil
}

// RecentExchanges exposes the in-session window for session summaries.
func (e *Engine) RecentExchanges() []Exchange {
	return e.recentExchanges()
}

// ResetSession clears the in-session exchange window.
func (e *Engine) ResetSession() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recent = nil
}

func (e *Engine) recentExchanges() []Exchange {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Exchange, len(e.recent))
	copy(out, e.recent)
	return out
}

func (e *Engine) appendExchange(ex Exchange) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recent = append(e.recent, ex)
	if len(e.recent) > exchangeWindow {
		e.recent = e.recent[len(e.recent)-exchangeWindow:]
	}
}

func (e *Engine) absorbUtterance(userText string) {
	ctx, cancel := context.WithTimeout(context.Background(), profileSaveTimeout)
	defer cancel()

	prof := e.profiles.Load(ctx)
	if !ApplyUtterance(&prof, userText) {
		return
	}
	if err := e.profiles.Save(ctx, prof); err != nil {
		log.Printf("reply: profile save failed: %v", err)
	}
}
