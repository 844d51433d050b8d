package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/anle/alumnet/internal/assemble"
	"github.com/anle/alumnet/internal/backend"
	"github.com/anle/alumnet/internal/cache"
	"github.com/anle/alumnet/internal/health"
	"github.com/anle/alumnet/internal/model"
	"github.com/anle/alumnet/internal/session"
)

// App bundles the long-lived handles a command needs: config, the backend
// client, the local cache, the session manager, the connection monitor, and
// the feature layers on top.
type App struct {
	Config   *model.AppConfig
	Client   *backend.Client
	Cache    *cache.SQLiteCache
	Sessions *session.Manager
	Monitor  *health.Monitor
	Views    *assemble.Assembler
	Actions  *assemble.Actions
}

// newApp loads the config and builds the full handle graph. The caller owns
// Close.
func newApp(opts *RootOptions) (*App, error) {
	cfg, err := model.LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if cfg.Backend.URL == "" || cfg.Backend.APIKey == "" {
		return nil, fmt.Errorf("backend url and api key must be set in %s (or ALUMNET_URL / ALUMNET_API_KEY)", opts.ConfigPath)
	}

	client := backend.New(backend.Config{
		BaseURL:      cfg.Backend.URL,
		APIKey:       cfg.Backend.APIKey,
		ReadTimeout:  time.Duration(cfg.Backend.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.Backend.WriteTimeoutSec) * time.Second,
		MaxRetries:   cfg.Backend.MaxRetries,
	}, nil)

	store, err := cache.NewSQLiteCache(cfg.CachePath)
	if err != nil {
		return nil, fmt.Errorf("opening local cache: %w", err)
	}

	ring, err := session.OpenKeyring(cfg.KeyringService, filepath.Join(filepath.Dir(opts.ConfigPath), "credentials"))
	if err != nil {
		store.Close()
		return nil, err
	}

	sessions := session.NewManager(ring, client, store, slog.Default())
	client.SetTokenSource(sessions)

	monitor := health.NewMonitor(client, health.Options{
		CheckTimeout: time.Duration(cfg.Health.CheckTimeoutSec) * time.Second,
		Interval:     time.Duration(cfg.Health.CheckIntervalSec) * time.Second,
		MaxRetries:   cfg.Health.MaxRetries,
		BaseDelay:    time.Duration(cfg.Health.BaseDelayMs) * time.Millisecond,
	})

	return &App{
		Config:   cfg,
		Client:   client,
		Cache:    store,
		Sessions: sessions,
		Monitor:  monitor,
		Views:    assemble.New(client),
		Actions:  assemble.NewActions(client),
	}, nil
}

// Close releases the app's local resources.
func (a *App) Close() {
	if err := a.Cache.Close(); err != nil {
		slog.Error("closing local cache", "error", err)
	}
}

// ErrNotSignedIn is returned by commands that need a session when none is
// stored or the stored one has expired beyond refresh.
var ErrNotSignedIn = errors.New("not signed in; run `alumnet login` first")

// requireSession restores the stored session, refreshing if needed.
func (a *App) requireSession(ctx context.Context) (*model.Session, error) {
	sess, err := a.Sessions.Load(ctx)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrNotSignedIn
	}
	return sess, nil
}
