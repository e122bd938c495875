package player

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
)

// SessionStore supplies the durable per-profile session id used for view
// tracking. The id is created lazily on first use and persisted before it
// is returned.
type SessionStore interface {
	SessionID() (string, error)
}

// FileSessionStore persists the session id in a single file, the Go
// equivalent of durable client-side storage.
type FileSessionStore struct {
	Path string
}

func (s *FileSessionStore) SessionID() (string, error) {
	if data, err := os.ReadFile(s.Path); err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	}
	id, err := newSessionID()
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(s.Path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("persist session id: %w", err)
	}
	return id, nil
}

func newSessionID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
