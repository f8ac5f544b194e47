package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// EnvStore maps keys to environment variables: "agent/api_token" is read
// from AGENT_API_TOKEN.
type EnvStore struct {
	lookup func(string) (string, bool)
}

var _ Store = (*EnvStore)(nil)

// NewEnvStore creates a store backed by the process environment.
func NewEnvStore() *EnvStore {
	return &EnvStore{lookup: os.LookupEnv}
}

// Get returns the environment value for key.
func (s *EnvStore) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := EnvName(key)
	value, ok := s.lookup(name)
	if !ok || strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("env %s: %w", name, ErrNotFound)
	}
	return value, nil
}

// EnvName returns the environment variable consulted for key.
func EnvName(key string) string {
	r := strings.NewReplacer("/", "_", "-", "_", ".", "_")
	return strings.ToUpper(r.Replace(strings.TrimSpace(key)))
}
