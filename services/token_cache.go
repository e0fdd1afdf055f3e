package services

import (
	"context"
	"sync"
	"time"

	"tournament-registration/utils"

	"golang.org/x/sync/singleflight"
)

// tokenRefreshMargin is how close to expiry a cached token may get before
// it is replaced.
const tokenRefreshMargin = 60 * time.Second

// TokenFetcher obtains a fresh client-credentials token.
type TokenFetcher func(ctx context.Context) (*OsuToken, error)

// TokenCache holds the process-wide client-credentials token. Concurrent
// refreshes share one upstream call.
type TokenCache struct {
	now   func() time.Time
	fetch TokenFetcher

	mu        sync.Mutex
	token     string
	expiresAt time.Time

	group singleflight.Group
}

func NewTokenCache(fetch TokenFetcher, now func() time.Time) *TokenCache {
	if now == nil {
		now = time.Now
	}
	return &TokenCache{now: now, fetch: fetch}
}

// Get returns the cached token while it is valid for more than
// tokenRefreshMargin, otherwise it fetches and stores a new one. The shared
// fetch is detached from any single caller's cancellation; each caller
// still stops waiting when its own ctx ends.
func (c *TokenCache) Get(ctx context.Context) (string, error) {
	if token, ok := c.cached(); ok {
		return token, nil
	}

	ch := c.group.DoChan("client_token", func() (interface{}, error) {
		if token, ok := c.cached(); ok {
			return token, nil
		}
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), utils.UpstreamTimeout)
		defer cancel()

		requestedAt := c.now()
		tok, err := c.fetch(fetchCtx)
		if err != nil {
			return "", err
		}
		c.Set(tok.AccessToken, requestedAt.Add(time.Duration(tok.ExpiresIn)*time.Second))
		return tok.AccessToken, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Set replaces the cached token.
func (c *TokenCache) Set(token string, expiresAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.expiresAt = expiresAt
}

// Invalidate drops the cached token so the next Get refreshes it.
func (c *TokenCache) Invalidate() {
	c.Set("", time.Time{})
}

func (c *TokenCache) cached() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == "" {
		return "", false
	}
	if c.expiresAt.After(c.now().Add(tokenRefreshMargin)) {
		return c.token, true
	}
	return "", false
}
