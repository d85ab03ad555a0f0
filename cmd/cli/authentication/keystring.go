package authentication

// KeyString keeps the CLI session token in the OS keyring between runs.
import (
	"encoding/json"
	"errors"

	"github.com/zalando/go-keyring"
)

const (
	serviceName = "terapiahub-cli"
	sessionKey  = "session"
)

var ErrNoStoredSession = errors.New("no stored session")

type StoredSession struct {
	Token     string `json:"token"`
	UserID    int64  `json:"user_id"`
	Role      string `json:"role"`
	ExpiresAt int64  `json:"expires_at,omitempty"`
}

func StoreSession(s *StoredSession) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return keyring.Set(serviceName, sessionKey, string(data))
}

func GetSession() (*StoredSession, error) {
	value, err := keyring.Get(serviceName, sessionKey)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, ErrNoStoredSession
	}
	if err != nil {
		return nil, err
	}

	var s StoredSession
	if err := json.Unmarshal([]byte(value), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func DeleteSession() error {
	err := keyring.Delete(serviceName, sessionKey)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}
