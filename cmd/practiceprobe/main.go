// Command practiceprobe drives a running server over the websocket with
// typed turns and reports utterance-to-reply latency. It is the smoke and
// perf check used against local builds; no microphone required.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/veronicadeleonh/BatePapo/internal/protocol"
	"github.com/veronicadeleonh/BatePapo/internal/session"
)

type options struct {
	baseURL     string
	locale      string
	turns       int
	turnTimeout time.Duration
	texts       []string
	verbose     bool
}

var defaultTexts = []string{
	"oi, tudo bem?",
	"eu gosto muito de viajar",
	"ontem eu cozinhei uma feijoada",
	"me conta alguma coisa sobre música",
}

func main() {
	opts := parseFlags()

	sessionID, err := createSession(opts)
	if err != nil {
		log.Fatalf("create session: %v", err)
	}

	wsURL := "ws" + strings.TrimPrefix(opts.baseURL, "http") +
		"/v1/practice/session/ws?session_id=" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		log.Fatalf("dial websocket: %v", err)
	}
	defer conn.Close()

	latencies := make([]time.Duration, 0, opts.turns)
	for i := 0; i < opts.turns; i++ {
		text := opts.texts[i%len(opts.texts)]
		start := time.Now()
		if err := conn.WriteJSON(map[string]any{
			"type":       string(protocol.TypeClientText),
			"session_id": sessionID,
			"text":       text,
		}); err != nil {
			log.Fatalf("turn %d: write: %v", i+1, err)
		}
		reply, err := awaitReply(conn, opts.turnTimeout, opts.verbose)
		if err != nil {
			log.Fatalf("turn %d: %v", i+1, err)
		}
		took := time.Since(start)
		latencies = append(latencies, took)
		fmt.Printf("turn %d  %6dms  %s\n", i+1, took.Milliseconds(), reply)
	}

	_ = conn.WriteJSON(map[string]any{
		"type":       string(protocol.TypeClientControl),
		"session_id": sessionID,
		"action":     protocol.ActionStop,
	})

	fmt.Println(summarize(latencies))
}

func parseFlags() options {
	opts := options{}
	textsFlag := ""
	flag.StringVar(&opts.baseURL, "base-url", "http://127.0.0.1:8080", "server base URL")
	flag.StringVar(&opts.locale, "locale", "pt-BR", "practice locale")
	flag.IntVar(&opts.turns, "turns", 4, "number of typed turns to send")
	flag.DurationVar(&opts.turnTimeout, "turn-timeout", 15*time.Second, "max wait per reply")
	flag.StringVar(&textsFlag, "texts", "", "semicolon-separated turn texts (defaults to canned pt-BR turns)")
	flag.BoolVar(&opts.verbose, "v", false, "log every websocket message")
	flag.Parse()

	opts.texts = defaultTexts
	if strings.TrimSpace(textsFlag) != "" {
		opts.texts = strings.Split(textsFlag, ";")
	}
	if opts.turns <= 0 {
		fmt.Fprintln(os.Stderr, "turns must be positive")
		os.Exit(2)
	}
	return opts
}

func createSession(opts options) (string, error) {
	body, _ := json.Marshal(session.CreateRequest{Locale: opts.locale})
	res, err := http.Post(opts.baseURL+"/v1/practice/session", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("unexpected status %d", res.StatusCode)
	}
	var created session.CreateResponse
	if err := json.NewDecoder(res.Body).Decode(&created); err != nil {
		return "", err
	}
	return created.SessionID, nil
}

func awaitReply(conn *websocket.Conn, timeout time.Duration, verbose bool) (string, error) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		_ = conn.SetReadDeadline(deadline)
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			return "", fmt.Errorf("read: %w", err)
		}
		if verbose {
			log.Printf("<- %v", msg["type"])
		}
		switch msg["type"] {
		case string(protocol.TypeAgentReply):
			text, _ := msg["text"].(string)
			return text, nil
		case string(protocol.TypeErrorEvent):
			return "", fmt.Errorf("server error: %v (%v)", msg["code"], msg["detail"])
		}
	}
	return "", fmt.Errorf("no reply within %s", timeout)
}

func summarize(latencies []time.Duration) string {
	if len(latencies) == 0 {
		return "no turns completed"
	}
	sorted := make([]time.Duration, len(latencies))
	copy(sorted, latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}
	avg := sum / time.Duration(len(sorted))
	return fmt.Sprintf("turns=%d avg=%dms p50=%dms p95=%dms max=%dms",
		len(sorted),
		avg.Milliseconds(),
		percentile(sorted, 0.50).Milliseconds(),
		percentile(sorted, 0.95).Milliseconds(),
		sorted[len(sorted)-1].Milliseconds(),
	)
}

// percentile expects a sorted slice and clamps to its ends.
func percentile(sorted []time.Duration, q float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(q * float64(len(sorted)-1))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
