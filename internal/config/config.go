package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the practice service.
type Config struct {
	BindAddr                 string
	ShutdownTimeout          time.Duration
	SessionInactivityTimeout time.Duration
	MetricsNamespace         string

	AllowAnyOrigin bool

	// Locale drives recognition, voice selection and the canned responder.
	Locale       string
	GreetingText string

	// VoicePriority overrides the built-in known-good voice name list for
	// the configured locale when non-empty.
	VoicePriority []string

	// CapabilityMode selects where the platform capabilities live:
	// "browser" bridges them over the websocket, "mock" runs in-process fakes.
	CapabilityMode string

	// RecognitionMode is "continuous" (interim results) or "single_shot",
	// chosen once per device class at session start.
	RecognitionMode string
	InterimResults  bool

	// Segmenter tunables. Energy levels are 0..255; the band between
	// SilenceThreshold and SpeechThreshold is the dead band.
	SpeechThreshold  int
	SilenceThreshold int
	SpeechRunTarget  int
	SilenceRunTarget int
	SamplePeriod     time.Duration

	// PartialSilenceTimeout closes a turn when interim transcripts stop
	// changing for this long. The original variants disagreed between 2.5s
	// and 3s, so it stays configurable.
	PartialSilenceTimeout time.Duration
	RestartRetryDelay     time.Duration
	DefaultPause          time.Duration

	BrainMode        string
	BrainHTTPURL     string
	BrainTimeout     time.Duration
	ReplyMaxTokens   int
	ReplyTemperature float64

	HistoryWindow int

	DatabaseURL string
	SQLitePath  string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:                 envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:         envOrDefault("APP_METRICS_NAMESPACE", "batepapo"),
		AllowAnyOrigin:           false,
		Locale:                   envOrDefault("PRACTICE_LOCALE", "pt-BR"),
		GreetingText:             envOrDefault("PRACTICE_GREETING", "Oi! [pause:600ms] Que bom te ver. [pause:400ms] Vamos conversar?"),
		VoicePriority:            listFromEnv("PRACTICE_VOICE_PRIORITY"),
		CapabilityMode:           envOrDefault("CAPABILITY_MODE", "browser"),
		RecognitionMode:          envOrDefault("RECOGNITION_MODE", "continuous"),
		InterimResults:           true,
		SpeechThreshold:          30,
		SilenceThreshold:         12,
		SpeechRunTarget:          3,
		SilenceRunTarget:         8,
		SamplePeriod:             100 * time.Millisecond,
		PartialSilenceTimeout:    2500 * time.Millisecond,
		RestartRetryDelay:        300 * time.Millisecond,
		DefaultPause:             600 * time.Millisecond,
		BrainMode:                envOrDefault("BRAIN_MODE", "auto"),
		BrainHTTPURL:             stringsTrimSpace("BRAIN_HTTP_URL"),
		BrainTimeout:             8 * time.Second,
		ReplyMaxTokens:           120,
		ReplyTemperature:         0.7,
		HistoryWindow:            10,
		DatabaseURL:              stringsTrimSpace("DATABASE_URL"),
		SQLitePath:               envOrDefault("SQLITE_PATH", ""),
		ShutdownTimeout:          15 * time.Second,
		SessionInactivityTimeout: 5 * time.Minute,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionInactivityTimeout, err = durationFromEnv("APP_SESSION_INACTIVITY_TIMEOUT", cfg.SessionInactivityTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.InterimResults, err = boolFromEnv("RECOGNITION_INTERIM_RESULTS", cfg.InterimResults)
	if err != nil {
		return Config{}, err
	}
	cfg.SpeechThreshold, err = intFromEnv("SEGMENTER_SPEECH_THRESHOLD", cfg.SpeechThreshold)
	if err != nil {
		return Config{}, err
	}
	cfg.SilenceThreshold, err = intFromEnv("SEGMENTER_SILENCE_THRESHOLD", cfg.SilenceThreshold)
	if err != nil {
		return Config{}, err
	}
	cfg.SpeechRunTarget, err = intFromEnv("SEGMENTER_SPEECH_RUN", cfg.SpeechRunTarget)
	if err != nil {
		return Config{}, err
	}
	cfg.SilenceRunTarget, err = intFromEnv("SEGMENTER_SILENCE_RUN", cfg.SilenceRunTarget)
	if err != nil {
		return Config{}, err
	}
	cfg.SamplePeriod, err = durationFromEnv("SEGMENTER_SAMPLE_PERIOD", cfg.SamplePeriod)
	if err != nil {
		return Config{}, err
	}
	cfg.PartialSilenceTimeout, err = durationFromEnv("PARTIAL_SILENCE_TIMEOUT", cfg.PartialSilenceTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.RestartRetryDelay, err = durationFromEnv("RECOGNITION_RESTART_RETRY_DELAY", cfg.RestartRetryDelay)
	if err != nil {
		return Config{}, err
	}
	cfg.DefaultPause, err = durationFromEnv("SPEECH_DEFAULT_PAUSE", cfg.DefaultPause)
	if err != nil {
		return Config{}, err
	}
	cfg.BrainTimeout, err = durationFromEnv("BRAIN_TIMEOUT", cfg.BrainTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ReplyMaxTokens, err = intFromEnv("REPLY_MAX_TOKENS", cfg.ReplyMaxTokens)
	if err != nil {
		return Config{}, err
	}
	cfg.ReplyTemperature, err = floatFromEnv("REPLY_TEMPERATURE", cfg.ReplyTemperature)
	if err != nil {
		return Config{}, err
	}
	cfg.HistoryWindow, err = intFromEnv("PROFILE_HISTORY_WINDOW", cfg.HistoryWindow)
	if err != nil {
		return Config{}, err
	}

	switch strings.ToLower(strings.TrimSpace(cfg.CapabilityMode)) {
	case "browser", "mock":
	default:
		return Config{}, fmt.Errorf("CAPABILITY_MODE must be browser or mock, got %q", cfg.CapabilityMode)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.RecognitionMode)) {
	case "continuous", "single_shot":
	default:
		return Config{}, fmt.Errorf("RECOGNITION_MODE must be continuous or single_shot, got %q", cfg.RecognitionMode)
	}
	if cfg.SessionInactivityTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("APP_SESSION_INACTIVITY_TIMEOUT must be at least 5s")
	}
	if cfg.SilenceThreshold < 0 || cfg.SpeechThreshold > 255 {
		return Config{}, fmt.Errorf("segmenter thresholds must stay within 0..255")
	}
	if cfg.SpeechThreshold <= cfg.SilenceThreshold {
		return Config{}, fmt.Errorf("SEGMENTER_SPEECH_THRESHOLD must be above SEGMENTER_SILENCE_THRESHOLD")
	}
	if cfg.SpeechRunTarget <= 0 || cfg.SilenceRunTarget <= 0 {
		return Config{}, fmt.Errorf("segmenter run targets must be positive")
	}
	if cfg.SamplePeriod <= 0 {
		return Config{}, fmt.Errorf("SEGMENTER_SAMPLE_PERIOD must be positive")
	}
	if cfg.PartialSilenceTimeout < 500*time.Millisecond {
		return Config{}, fmt.Errorf("PARTIAL_SILENCE_TIMEOUT must be at least 500ms")
	}
	if cfg.ReplyMaxTokens <= 0 {
		return Config{}, fmt.Errorf("REPLY_MAX_TOKENS must be positive")
	}
	if cfg.ReplyTemperature < 0 || cfg.ReplyTemperature > 2 {
		return Config{}, fmt.Errorf("REPLY_TEMPERATURE must be within 0..2")
	}
	if cfg.HistoryWindow <= 0 {
		return Config{}, fmt.Errorf("PROFILE_HISTORY_WINDOW must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// listFromEnv splits a comma-separated value, dropping empty entries.
func listFromEnv(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
