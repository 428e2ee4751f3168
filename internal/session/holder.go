package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/housei/dashboard/domain/entities"
	"github.com/housei/dashboard/domain/repositories"
)

// StorageKey is where the signed-in admin is persisted
const StorageKey = "housei_admin_user"

// ErrLoginInProgress is returned when Login is called while another login
// has not finished
var ErrLoginInProgress = errors.New("login already in progress")

// CredentialVerifier checks an email/password pair, returning nil when it
// does not match
type CredentialVerifier interface {
	Verify(ctx context.Context, email, password string) *entities.AdminUser
}

// Holder owns the admin session of one dashboard client and keeps it in
// durable storage so it survives restarts
type Holder struct {
	verifier CredentialVerifier
	storage  repositories.KeyValueStorage
	logger   *zap.Logger

	mu    sync.RWMutex
	user  *entities.AdminUser
	state entities.SessionState
}

// NewHolder creates an unauthenticated holder. Call Restore to pick up a
// persisted session.
func NewHolder(verifier CredentialVerifier, storage repositories.KeyValueStorage, logger *zap.Logger) *Holder {
	return &Holder{
		verifier: verifier,
		storage:  storage,
		logger:   logger,
		state:    entities.SessionUnauthenticated,
	}
}

// Restore loads the persisted admin, if any. Entries that cannot be parsed
// as a valid admin are removed; a storage read failure removes nothing.
func (h *Holder) Restore() *entities.AdminUser {
	raw, ok, err := h.storage.Get(StorageKey)
	if err != nil {
		// Read failures never rewrite the storage
		h.logger.Warn("Failed to read persisted session", zap.Error(err))
		h.setUnauthenticated()
		return nil
	}
	if !ok {
		h.setUnauthenticated()
		return nil
	}

	var user entities.AdminUser
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		h.logger.Warn("Discarding unreadable persisted session", zap.Error(err))
		h.discard()
		return nil
	}
	if err := user.Validate(); err != nil {
		h.logger.Warn("Discarding invalid persisted session", zap.Error(err))
		h.discard()
		return nil
	}

	h.mu.Lock()
	h.user = &user
	h.state = entities.SessionAuthenticated
	h.mu.Unlock()

	h.logger.Debug("Session restored", zap.String("email", user.Email))
	out := user
	return &out
}

// Login verifies the credentials and, on success, persists the admin and
// marks the session authenticated
func (h *Holder) Login(ctx context.Context, email, password string) (*entities.AdminUser, error) {
	h.mu.Lock()
	if h.state == entities.SessionAuthenticating {
		h.mu.Unlock()
		return nil, ErrLoginInProgress
	}
	previous := h.state
	h.state = entities.SessionAuthenticating
	h.mu.Unlock()

	user := h.verifier.Verify(ctx, email, password)
	if user == nil {
		h.mu.Lock()
		h.state = previous
		h.mu.Unlock()
		h.logger.Info("Login rejected", zap.String("email", email))
		return nil, &entities.AuthenticationError{Email: email}
	}

	data, err := json.Marshal(user)
	if err == nil {
		err = h.storage.Set(StorageKey, string(data))
	}
	if err != nil {
		// The session still works for this process
		h.logger.Warn("Failed to persist session", zap.Error(err))
	}

	h.mu.Lock()
	h.user = user
	h.state = entities.SessionAuthenticated
	h.mu.Unlock()

	h.logger.Info("Admin logged in", zap.String("email", user.Email))
	out := *user
	return &out, nil
}

// Logout clears the session from memory and storage
func (h *Holder) Logout() error {
	h.setUnauthenticated()
	if err := h.storage.Remove(StorageKey); err != nil {
		h.logger.Warn("Failed to clear persisted session", zap.Error(err))
		return err
	}
	h.logger.Info("Admin logged out")
	return nil
}

// User returns the signed-in admin, nil when unauthenticated
func (h *Holder) User() *entities.AdminUser {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.user == nil {
		return nil
	}
	out := *h.user
	return &out
}

// State returns where the session is in its lifecycle
func (h *Holder) State() entities.SessionState {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// Authenticated reports whether an admin is signed in
func (h *Holder) Authenticated() bool {
	return h.State() == entities.SessionAuthenticated
}

func (h *Holder) setUnauthenticated() {
	h.mu.Lock()
	h.user = nil
	h.state = entities.SessionUnauthenticated
	h.mu.Unlock()
}

func (h *Holder) discard() {
	h.setUnauthenticated()
	if err := h.storage.Remove(StorageKey); err != nil {
		h.logger.Warn("Failed to clear persisted session", zap.Error(err))
	}
}
