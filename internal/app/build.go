package app

import (
	"context"
	"fmt"

	"github.com/veronicadeleonh/BatePapo/internal/brain"
	"github.com/veronicadeleonh/BatePapo/internal/config"
	"github.com/veronicadeleonh/BatePapo/internal/httpapi"
	"github.com/veronicadeleonh/BatePapo/internal/observability"
	"github.com/veronicadeleonh/BatePapo/internal/profile"
	"github.com/veronicadeleonh/BatePapo/internal/session"
	"github.com/veronicadeleonh/BatePapo/internal/sessionlog"
	"github.com/veronicadeleonh/BatePapo/internal/store"
)

type BuildResult struct {
	Config   config.Config
	API      *httpapi.Server
	Sessions *session.Manager
	Profiles *profile.Store
	Recorder *sessionlog.Recorder
	Metrics  *observability.Metrics

	// Cleanup should be called on shutdown to release external resources.
	Cleanup func() error
}

// Build wires the whole service from configuration: storage, the reply
// backend, profile and session records, and the HTTP/websocket API.
func Build(ctx context.Context, cfg config.Config) (*BuildResult, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	kv, err := store.Open(ctx, cfg.DatabaseURL, cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("store init failed: %w", err)
	}

	adapter, err := brain.NewAdapter(brain.Config{
		Mode:    cfg.BrainMode,
		HTTPURL: cfg.BrainHTTPURL,
		Timeout: cfg.BrainTimeout,
	})
	if err != nil {
		_ = kv.Close()
		return nil, fmt.Errorf("brain adapter init failed: %w", err)
	}

	profiles := profile.NewStore(kv)
	profiles.SetHistoryWindow(cfg.HistoryWindow)
	recorder := sessionlog.NewRecorder(kv)

	sessions := session.NewManager(cfg.SessionInactivityTimeout)
	sessions.SetExpireHook(func(_ *session.Session) {
		metrics.ActiveSessions.Set(float64(sessions.ActiveCount()))
	})

	api := httpapi.New(cfg, sessions, profiles, recorder, adapter, metrics)

	return &BuildResult{
		Config:   cfg,
		API:      api,
		Sessions: sessions,
		Profiles: profiles,
		Recorder: recorder,
		Metrics:  metrics,
		Cleanup:  kv.Close,
	}, nil
}
