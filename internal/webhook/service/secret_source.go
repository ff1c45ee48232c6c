package service

import (
	"context"
	"fmt"
	"sync"

	"gocloud.dev/runtimevar"
	_ "gocloud.dev/runtimevar/awssecretsmanager"
	_ "gocloud.dev/runtimevar/constantvar"
	_ "gocloud.dev/runtimevar/filevar"
	_ "gocloud.dev/runtimevar/gcpsecretmanager"
	"golang.org/x/sync/singleflight"

	apperrors "github.com/allisson/webhook-ledger/internal/errors"
)

// RuntimevarSecretSource resolves secrets through gocloud.dev runtimevar URLs
// (awssecretsmanager://, gcpsecretmanager://, file://, constant://). Resolved
// values are cached for the lifetime of the process and concurrent lookups for
// the same URL are collapsed into a single fetch.
type RuntimevarSecretSource struct {
	cache sync.Map
	group singleflight.Group
}

// NewRuntimevarSecretSource creates a new RuntimevarSecretSource.
func NewRuntimevarSecretSource() *RuntimevarSecretSource {
	return &RuntimevarSecretSource{}
}

// Get returns the secret value behind the given runtimevar URL.
func (s *RuntimevarSecretSource) Get(ctx context.Context, secretURL string) (string, error) {
	if cached, ok := s.cache.Load(secretURL); ok {
		return cached.(string), nil
	}

	value, err, _ := s.group.Do(secretURL, func() (any, error) {
		return s.fetch(ctx, secretURL)
	})
	if err != nil {
		return "", err
	}

	secret := value.(string)
	s.cache.Store(secretURL, secret)
	return secret, nil
}

func (s *RuntimevarSecretSource) fetch(ctx context.Context, secretURL string) (string, error) {
	variable, err := runtimevar.OpenVariable(ctx, secretURL)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to open secret variable")
	}
	defer func() { _ = variable.Close() }()

	snapshot, err := variable.Latest(ctx)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to read secret value")
	}

	switch value := snapshot.Value.(type) {
	case string:
		return value, nil
	case []byte:
		return string(value), nil
	default:
		return "", fmt.Errorf("unexpected secret value type %T", snapshot.Value)
	}
}
