package session

import (
	"os"
	"time"
)

// EnvStore reads a single session from environment variables. It cannot
// write or delete; it exists so CI and containers can inject a session
// without touching disk.
type EnvStore struct{}

func NewEnvStore() *EnvStore {
	return &EnvStore{}
}

func (e *EnvStore) Store(session *Session) error {
	return ErrStoreUnavailable
}

func (e *EnvStore) Retrieve(username string) (*Session, error) {
	sessionID := os.Getenv("SOCIALSCOPE_SESSION_ID")
	csrfToken := os.Getenv("SOCIALSCOPE_CSRF_TOKEN")
	userAgent := os.Getenv("SOCIALSCOPE_USER_AGENT")

	if sessionID == "" || csrfToken == "" {
		return nil, ErrSessionNotFound
	}

	if username == "" {
		username = "default"
	}

	return &Session{
		Username:     username,
		SessionID:    sessionID,
		CSRFToken:    csrfToken,
		UserAgent:    userAgent,
		LastModified: time.Now(),
	}, nil
}

func (e *EnvStore) List() ([]*Session, error) {
	session, err := e.Retrieve("")
	if err != nil {
		return []*Session{}, nil
	}
	return []*Session{session}, nil
}

func (e *EnvStore) Delete(username string) error {
	return ErrStoreUnavailable
}

func (e *EnvStore) Exists(username string) bool {
	return os.Getenv("SOCIALSCOPE_SESSION_ID") != "" && os.Getenv("SOCIALSCOPE_CSRF_TOKEN") != ""
}
