package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"hairstudio/internal/infra"
	"hairstudio/internal/sqlinline"
)

// Providers whose API keys may be stored in integration_tokens. Diagnosis
// and image generation use separate keys so quotas can be split.
const (
	ProviderDiagnosis = "diagnosis"
	ProviderImageGen  = "imagegen"
)

var ErrUnknownProvider = errors.New("unknown provider")

// Store reads and writes model API keys kept in the database. Keys from the
// environment take precedence; see Resolve.
type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

func ValidProvider(provider string) bool {
	switch provider {
	case ProviderDiagnosis, ProviderImageGen:
		return true
	}
	return false
}

// Token returns the stored key for provider, or "" when none is stored.
func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	if !ValidProvider(provider) {
		return "", fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

// Resolve prefers the env-provided key and falls back to the stored one.
func (s *Store) Resolve(ctx context.Context, provider, fromEnv string) (string, error) {
	if v := strings.TrimSpace(fromEnv); v != "" {
		return v, nil
	}
	if s == nil || s.sql == nil {
		return "", nil
	}
	return s.Token(ctx, provider)
}

// SetToken stores key for provider, recording who set it.
func (s *Store) SetToken(ctx context.Context, provider, key, setBy string) error {
	if !ValidProvider(provider) {
		return fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("%s api key is required", provider)
	}
	props := map[string]any{"updatedAt": time.Now().UTC().Format(time.RFC3339)}
	if setBy != "" {
		props["setBy"] = setBy
	}
	raw, err := json.Marshal(props)
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, key, raw)
	return err
}
