package service

import (
	"context"
	"sync"
	"time"

	"neo-auth/backend/internal/security"
)

// ServiceTokenStore persists the single shared service credential so all
// replicas hand out the same token. The upsert must be atomic; at most one
// valid instance exists at a time.
type ServiceTokenStore interface {
	// Current returns the stored token and its expiry, or "" when none exists.
	Current(ctx context.Context) (token string, expiresAt time.Time, err error)
	// Put replaces the stored token.
	Put(ctx context.Context, token string, expiresAt time.Time) error
}

// ServiceTokenCache hands out the shared service token used by
// unauthenticated public endpoints, regenerating it lazily when none is
// valid. Owned by the service root, never package-global.
type ServiceTokenCache struct {
	codec *security.Codec
	store ServiceTokenStore

	mu        sync.Mutex
	token     string
	expiresAt time.Time
	now       func() time.Time
}

// NewServiceTokenCache returns a cache over codec and store. store may be
// nil, in which case the token lives only in this process.
func NewServiceTokenCache(codec *security.Codec, store ServiceTokenStore) *ServiceTokenCache {
	return &ServiceTokenCache{
		codec: codec,
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// GetOrIssue returns a currently valid service token, minting and persisting
// a new one when the cached and stored ones are absent or expired. A small
// validity margin avoids handing out a token that expires mid-flight.
func (c *ServiceTokenCache) GetOrIssue(ctx context.Context) (string, error) {
	const margin = 5 * time.Second

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.token != "" && c.expiresAt.After(now.Add(margin)) {
		return c.token, nil
	}

	if c.store != nil {
		token, expiresAt, err := c.store.Current(ctx)
		if err != nil {
			return "", storeErr("service token lookup failed", err)
		}
		if token != "" && expiresAt.After(now.Add(margin)) {
			c.token, c.expiresAt = token, expiresAt
			return token, nil
		}
	}

	token, expiresAt, err := c.codec.IssueServiceToken()
	if err != nil {
		return "", storeErr("service token issuance failed", err)
	}
	if c.store != nil {
		if err := c.store.Put(ctx, token, expiresAt); err != nil {
			return "", storeErr("service token write failed", err)
		}
	}
	c.token, c.expiresAt = token, expiresAt
	return token, nil
}
