package credentials

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/facegate/facegate/internal/config"
)

// Store holds the shared secrets used by the challenge gate, keyed by
// subject display name. Secrets are loaded once at startup and read-only
// afterwards.
type Store struct {
	// secrets maps subject name to shared secret.
	secrets map[string]string
}

// defaultSecrets is written on first run when no credentials file exists.
func defaultSecrets() map[string]string {
	return map[string]string{
		"hassen": "1234",
		"zied":   "5678",
	}
}

// Load reads the credentials file. When the file does not exist, a default
// set is created, persisted and returned, so a freshly installed system can
// complete a challenge.
func Load(path string) (*Store, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if errors.Is(err, os.ErrNotExist) {
		secrets := defaultSecrets()
		if err := save(path, secrets); err != nil {
			return nil, err
		}

		return &Store{secrets: secrets}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	var secrets map[string]string
	if err := json.Unmarshal(contents, &secrets); err != nil {
		return nil, fmt.Errorf("unmarshal credentials: %w", err)
	}

	return &Store{secrets: secrets}, nil
}

// save persists the secret map with restricted permissions.
func save(path string, secrets map[string]string) error {
	data, err := json.MarshalIndent(secrets, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}

	return nil
}

// Verify reports whether the secret matches the one stored for the subject.
// Unknown subjects never verify. The comparison is constant-time.
func (s *Store) Verify(subject, secret string) bool {
	stored, ok := s.secrets[subject]
	if !ok {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(stored), []byte(secret)) == 1
}

// Has reports whether a secret is stored for the subject.
func (s *Store) Has(subject string) bool {
	_, ok := s.secrets[subject]

	return ok
}

// Len returns the number of stored credentials.
func (s *Store) Len() int {
	return len(s.secrets)
}
