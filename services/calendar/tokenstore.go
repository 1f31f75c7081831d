package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/oauth2"
)

const tokenKeyPrefix = "calcred:"

// refreshMargin refreshes tokens slightly before their expiry so an almost
// dead token never reaches the upstream API.
const refreshMargin = 2 * time.Minute

// RedisTokenStore is the durable CredentialStore. Tokens survive process
// restarts and are shared across instances, with refresh-before-expiry
// handled on read.
type RedisTokenStore struct {
	Client *redis.Client
	// OAuth, when set, enables refresh of near-expiry tokens.
	OAuth *oauth2.Config
}

func NewRedisTokenStore(client *redis.Client, oauthCfg *oauth2.Config) *RedisTokenStore {
	return &RedisTokenStore{Client: client, OAuth: oauthCfg}
}

func (s *RedisTokenStore) GetCalendarCredential(ctx context.Context, providerID string) (*oauth2.Token, error) {
	raw, err := s.Client.Get(ctx, tokenKeyPrefix+providerID).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("provider %s: %w", providerID, ErrCredentialExpired)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credential for provider %s: %w", providerID, err)
	}

	var token oauth2.Token
	if err := json.Unmarshal([]byte(raw), &token); err != nil {
		return nil, fmt.Errorf("corrupt credential for provider %s: %w", providerID, err)
	}

	if time.Until(token.Expiry) > refreshMargin || token.Expiry.IsZero() {
		return &token, nil
	}
	return s.refresh(ctx, providerID, &token)
}

func (s *RedisTokenStore) refresh(ctx context.Context, providerID string, token *oauth2.Token) (*oauth2.Token, error) {
	if s.OAuth == nil || token.RefreshToken == "" {
		return nil, fmt.Errorf("provider %s: %w", providerID, ErrCredentialExpired)
	}
	fresh, err := s.OAuth.TokenSource(ctx, token).Token()
	if err != nil {
		return nil, fmt.Errorf("provider %s refresh failed: %w", providerID, ErrCredentialExpired)
	}
	if err := s.SaveCalendarCredential(ctx, providerID, fresh); err != nil {
		return nil, err
	}
	return fresh, nil
}

func (s *RedisTokenStore) SaveCalendarCredential(ctx context.Context, providerID string, token *oauth2.Token) error {
	raw, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode credential for provider %s: %w", providerID, err)
	}
	if err := s.Client.Set(ctx, tokenKeyPrefix+providerID, raw, 0).Err(); err != nil {
		return fmt.Errorf("failed to store credential for provider %s: %w", providerID, err)
	}
	return nil
}
