// Package session stores Instagram web session tokens. Tokens are kept
// in the system keychain when one is available, in an encrypted file
// otherwise, with environment variables as a read-only last resort.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Session holds the cookie pair a logged-in Instagram web client carries.
type Session struct {
	Username     string    `json:"username"`
	SessionID    string    `json:"session_id"`
	CSRFToken    string    `json:"csrf_token"`
	UserAgent    string    `json:"user_agent,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// Store abstracts a session token backend.
type Store interface {
	Store(session *Session) error
	Retrieve(username string) (*Session, error)
	List() ([]*Session, error)
	Delete(username string) error
	Exists(username string) bool
}

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrInvalidSession   = errors.New("invalid session")
	ErrStoreUnavailable = errors.New("session store unavailable")
)

// Manager tries each backend in order: keychain, encrypted file,
// environment.
type Manager struct {
	stores []Store
}

// NewManager creates a session manager with every backend available on
// this system.
func NewManager() (*Manager, error) {
	var stores []Store

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := configDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "sessions.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	stores = append(stores, NewEnvStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores builds a manager over explicit backends.
func NewManagerWithStores(stores ...Store) *Manager {
	return &Manager{stores: stores}
}

// Store saves a session using the first backend that accepts it.
func (m *Manager) Store(session *Session) error {
	if session.Username == "" {
		return errors.New("username is required")
	}
	if session.SessionID == "" {
		return errors.New("session ID is required")
	}
	if session.CSRFToken == "" {
		return errors.New("CSRF token is required")
	}

	session.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		if err := store.Store(session); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store session: %w", lastErr)
	}
	return errors.New("no available session stores")
}

// Retrieve gets the session for username from the first backend that has
// it.
func (m *Manager) Retrieve(username string) (*Session, error) {
	for _, store := range m.stores {
		if session, err := store.Retrieve(username); err == nil && session != nil {
			return session, nil
		}
	}
	return nil, fmt.Errorf("session not found for user: %s", username)
}

// RetrieveDefault returns the environment session if one is configured,
// otherwise the first stored session.
func (m *Manager) RetrieveDefault() (*Session, error) {
	if envStore, ok := m.stores[len(m.stores)-1].(*EnvStore); ok {
		if session, err := envStore.Retrieve(""); err == nil && session != nil {
			return session, nil
		}
	}

	sessions, err := m.List()
	if err == nil && len(sessions) > 0 {
		return sessions[0], nil
	}

	return nil, ErrSessionNotFound
}

// List merges sessions from all backends, keeping the most recently
// modified copy of each username.
func (m *Manager) List() ([]*Session, error) {
	byUser := make(map[string]*Session)

	for _, store := range m.stores {
		sessions, err := store.List()
		if err != nil {
			continue
		}
		for _, session := range sessions {
			if existing, ok := byUser[session.Username]; !ok || session.LastModified.After(existing.LastModified) {
				byUser[session.Username] = session
			}
		}
	}

	var result []*Session
	for _, session := range byUser {
		result = append(result, session)
	}
	return result, nil
}

// Delete removes the session from every backend that holds it.
func (m *Manager) Delete(username string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(username); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}

	if !deleted && lastErr != nil {
		return fmt.Errorf("failed to delete session: %w", lastErr)
	}
	if !deleted {
		return fmt.Errorf("session not found for user: %s", username)
	}
	return nil
}

// Sanitize returns a copy safe to log or print.
func Sanitize(session *Session) *Session {
	if session == nil {
		return nil
	}
	return &Session{
		Username:     session.Username,
		SessionID:    maskToken(session.SessionID),
		CSRFToken:    maskToken(session.CSRFToken),
		UserAgent:    session.UserAgent,
		LastModified: session.LastModified,
	}
}

func maskToken(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

func configDir() (string, error) {
	var dir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, "Library", "Application Support", "socialscope")
	case "windows":
		dir = filepath.Join(os.Getenv("APPDATA"), "socialscope")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			dir = filepath.Join(xdgConfig, "socialscope")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dir = filepath.Join(home, ".config", "socialscope")
		}
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}
