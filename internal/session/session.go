// Package session provides Valkey-backed login tokens. A token is a
// (uuid id, random value) pair stored as JSON under its id with automatic
// TTL expiry; clients present it as "Bearer <id>.<value>".
package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL is how long a token lives in Valkey before automatic expiry.
	DefaultTTL = 24 * time.Hour

	// keyPrefix namespaces token keys in Valkey to avoid collisions.
	keyPrefix = "token:"

	// valueLength is the byte length of the random token value (32 bytes = 64 hex chars).
	valueLength = 32
)

// Token is a login token issued to a user for one client.
type Token struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Client    string    `json:"client"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Bearer returns the header credential for t.
func (t *Token) Bearer() string {
	return t.ID + "." + t.Value
}

// TokenStore issues and checks login tokens.
type TokenStore interface {
	// Issue creates a token for userID.
	Issue(ctx context.Context, userID int64, client string) (*Token, error)
	// Verify returns the token when id and value match a live token, nil otherwise.
	Verify(ctx context.Context, id, value string) (*Token, error)
	// Refresh extends a live token's lifetime. It reports false when the
	// token is unknown or the value does not match.
	Refresh(ctx context.Context, id, value string) (bool, error)
	// Revoke deletes a live token. It reports false when the token is
	// unknown or the value does not match.
	Revoke(ctx context.Context, id, value string) (bool, error)
}

// Store manages token lifecycle in Valkey.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewStore creates a token store backed by the given Valkey client. A
// non-positive ttl selects DefaultTTL.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{client: client, ttl: ttl, now: time.Now}
}

// Issue generates a new token and stores it in Valkey.
func (s *Store) Issue(ctx context.Context, userID int64, client string) (*Token, error) {
	value, err := generateValue()
	if err != nil {
		return nil, fmt.Errorf("token generate: %w", err)
	}

	now := s.now()
	t := &Token{
		ID:        uuid.NewString(),
		UserID:    userID,
		Client:    client,
		Value:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.put(ctx, t); err != nil {
		return nil, fmt.Errorf("token issue: %w", err)
	}
	return t, nil
}

// Verify retrieves the token with id and checks its value.
func (s *Store) Verify(ctx context.Context, id, value string) (*Token, error) {
	if id == "" || value == "" {
		return nil, nil
	}

	payload, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil // Token expired or doesn't exist
	}
	if err != nil {
		return nil, fmt.Errorf("token get: %w", err)
	}

	var t Token
	if err := json.Unmarshal(payload, &t); err != nil {
		return nil, fmt.Errorf("token unmarshal: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(t.Value), []byte(value)) != 1 {
		return nil, nil
	}
	return &t, nil
}

// Refresh rewrites a live token with a fresh TTL.
func (s *Store) Refresh(ctx context.Context, id, value string) (bool, error) {
	t, err := s.Verify(ctx, id, value)
	if err != nil || t == nil {
		return false, err
	}

	t.ExpiresAt = s.now().Add(s.ttl)
	if err := s.put(ctx, t); err != nil {
		return false, fmt.Errorf("token refresh: %w", err)
	}
	return true, nil
}

// Revoke removes a live token from Valkey.
func (s *Store) Revoke(ctx context.Context, id, value string) (bool, error) {
	t, err := s.Verify(ctx, id, value)
	if err != nil || t == nil {
		return false, err
	}

	if err := s.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return false, fmt.Errorf("token revoke: %w", err)
	}
	return true, nil
}

func (s *Store) put(ctx context.Context, t *Token) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("token marshal: %w", err)
	}
	return s.client.Set(ctx, keyPrefix+t.ID, payload, s.ttl).Err()
}

// ParseBearer splits an Authorization header of the form
// "Bearer <id>.<value>".
func ParseBearer(header string) (id, value string, ok bool) {
	cred, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return "", "", false
	}
	id, value, found = strings.Cut(strings.TrimSpace(cred), ".")
	if !found || id == "" || value == "" {
		return "", "", false
	}
	return id, value, true
}

// generateValue creates a cryptographically random token value.
func generateValue() (string, error) {
	b := make([]byte, valueLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
