// Package session owns the authenticated identity: signing in, persisting
// tokens in the system keyring, refreshing them when they age out, and the
// complete local teardown on sign-out.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/99designs/keyring"

	"github.com/anle/alumnet/internal/model"
)

const sessionKey = "session"

// signOutAttempts bounds how many times the remote sign-out is tried before
// the local teardown proceeds without it.
const signOutAttempts = 3

// signOutBaseDelay is the wait before the second sign-out attempt; it
// doubles on each subsequent attempt.
const signOutBaseDelay = time.Second

// Authenticator is the slice of the backend client the manager needs.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (model.Session, error)
	RefreshSession(ctx context.Context, refreshToken string) (model.Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

// Wiper clears local record storage. Satisfied by the cache.
type Wiper interface {
	Wipe(ctx context.Context) error
}

// OpenKeyring returns the system keyring scoped to the given service name,
// falling back to an encrypted file under dir when no OS backend exists.
func OpenKeyring(serviceName, dir string) (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  dir,
		FilePasswordFunc:         keyring.FixedStringPrompt(serviceName + "-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Manager holds the current session and keeps the keyring copy in step.
// It implements backend.TokenSource, so the client picks up token changes
// without rewiring.
type Manager struct {
	ring  keyring.Keyring
	auth  Authenticator
	store Wiper
	log   *slog.Logger

	// sleep is swapped out in tests.
	sleep func(time.Duration)

	mu      sync.RWMutex
	current *model.Session
}

// NewManager creates a Manager. store may be nil when no local cache is in
// use; logger may be nil for the default.
func NewManager(ring keyring.Keyring, auth Authenticator, store Wiper, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		ring:  ring,
		auth:  auth,
		store: store,
		log:   logger,
		sleep: time.Sleep,
	}
}

// SignIn exchanges credentials for a session and persists it.
func (m *Manager) SignIn(ctx context.Context, email, password string) (model.Session, error) {
	sess, err := m.auth.SignIn(ctx, email, password)
	if err != nil {
		return model.Session{}, err
	}
	if err := m.persist(sess); err != nil {
		return model.Session{}, err
	}
	return sess, nil
}

// Load restores the persisted session. An expired session with a refresh
// token is refreshed and re-persisted; one without is treated as absent.
// A missing keyring entry is not an error.
func (m *Manager) Load(ctx context.Context) (*model.Session, error) {
	item, err := m.ring.Get(sessionKey)
	if err == keyring.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading stored session: %w", err)
	}

	var sess model.Session
	if err := json.Unmarshal(item.Data, &sess); err != nil {
		return nil, fmt.Errorf("decoding stored session: %w", err)
	}

	if sess.Expired(time.Now()) {
		if sess.RefreshToken == "" {
			return nil, nil
		}
		refreshed, err := m.auth.RefreshSession(ctx, sess.RefreshToken)
		if err != nil {
			m.log.Warn("session refresh failed", "error", err)
			return nil, nil
		}
		sess = refreshed
	}

	if err := m.persist(sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// Current returns the in-memory session, or nil when signed out or expired.
func (m *Manager) Current() *model.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil || m.current.Expired(time.Now()) {
		return nil
	}
	sess := *m.current
	return &sess
}

// AccessToken implements backend.TokenSource. Empty when signed out.
func (m *Manager) AccessToken() string {
	if sess := m.Current(); sess != nil {
		return sess.AccessToken
	}
	return ""
}

// CompleteLogout tears down the session everywhere. The remote sign-out is
// attempted a bounded number of times with backoff; whether or not it
// succeeds, the keyring entry and the local cache are cleared. Failures are
// logged, never returned, so sign-out always completes for the member. A
// stored session that cannot be decoded does not stop the teardown.
func (m *Manager) CompleteLogout(ctx context.Context) {
	m.mu.Lock()
	sess := m.current
	m.current = nil
	m.mu.Unlock()

	if sess == nil {
		sess = m.stored()
	}
	if sess != nil && sess.AccessToken != "" {
		m.remoteSignOut(ctx, sess.AccessToken)
	}

	if err := m.ring.Remove(sessionKey); err != nil && err != keyring.ErrKeyNotFound {
		m.log.Warn("removing stored session failed", "error", err)
	}

	if m.store != nil {
		if err := m.store.Wipe(ctx); err != nil {
			m.log.Warn("wiping local cache failed", "error", err)
		}
	}
}

// stored reads the keyring copy for teardown. Any failure, including an
// undecodable entry, yields nil; the caller clears local state regardless.
func (m *Manager) stored() *model.Session {
	item, err := m.ring.Get(sessionKey)
	if err != nil {
		if err != keyring.ErrKeyNotFound {
			m.log.Warn("reading stored session failed", "error", err)
		}
		return nil
	}
	var sess model.Session
	if err := json.Unmarshal(item.Data, &sess); err != nil {
		m.log.Warn("stored session is undecodable, discarding", "error", err)
		return nil
	}
	return &sess
}

func (m *Manager) remoteSignOut(ctx context.Context, accessToken string) {
	var lastErr error
	for attempt := 0; attempt < signOutAttempts; attempt++ {
		if attempt > 0 {
			m.sleep(signOutBaseDelay * time.Duration(1<<uint(attempt-1)))
		}
		if err := m.auth.SignOut(ctx, accessToken); err != nil {
			lastErr = err
			continue
		}
		return
	}
	m.log.Warn("remote sign-out failed, clearing local state anyway",
		"attempts", signOutAttempts, "error", lastErr)
}

// persist stores the session in the keyring and swaps the in-memory copy.
func (m *Manager) persist(sess model.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := m.ring.Set(keyring.Item{Key: sessionKey, Data: data}); err != nil {
		return fmt.Errorf("storing session: %w", err)
	}

	m.mu.Lock()
	m.current = &sess
	m.mu.Unlock()
	return nil
}
