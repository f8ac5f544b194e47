// Package secrets resolves credentials from the environment or a secret directory.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Secret keys used by the server.
const (
	KeyAgentAPIToken = "agent/api_token"
	KeyAgentUsageKey = "agent/usage_key"
)

// ErrNotFound is returned when no backend holds a key.
var ErrNotFound = errors.New("secret not found")

// Store reads secrets by key.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
}

// Chain asks each store in order and returns the first hit.
type Chain []Store

var _ Store = Chain(nil)

// Get returns the first value found for key.
func (c Chain) Get(ctx context.Context, key string) (string, error) {
	var errs []error
	for _, s := range c {
		value, err := s.Get(ctx, key)
		if err == nil {
			return value, nil
		}
		if !errors.Is(err, ErrNotFound) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return "", fmt.Errorf("lookup secret %q: %w", key, errors.Join(errs...))
	}
	return "", fmt.Errorf("secret %q: %w", key, ErrNotFound)
}

// AgentCredentials is the static credential pair of the agent service.
type AgentCredentials struct {
	APIToken string
	UsageKey string
}

// LoadAgentCredentials resolves both agent service credentials.
func LoadAgentCredentials(ctx context.Context, store Store) (AgentCredentials, error) {
	token, err := store.Get(ctx, KeyAgentAPIToken)
	if err != nil {
		return AgentCredentials{}, err
	}
	usageKey, err := store.Get(ctx, KeyAgentUsageKey)
	if err != nil {
		return AgentCredentials{}, err
	}
	return AgentCredentials{
		APIToken: strings.TrimSpace(token),
		UsageKey: strings.TrimSpace(usageKey),
	}, nil
}
