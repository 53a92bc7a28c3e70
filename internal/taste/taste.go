// Package taste provides listener taste profiles for persona-mode tracks.
package taste

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Profile is an opaque taste mapping carried on the draft.
type Profile map[string]any

// Source looks up a taste profile for a user.
type Source interface {
	AnalyzeUser(ctx context.Context, userID string) (Profile, error)
}

// MockSource returns a fixed profile for every user.
type MockSource struct{}

func (MockSource) AnalyzeUser(ctx context.Context, userID string) (Profile, error) {
	return Profile{
		"favorite_genres": []string{"dark_rock", "electronic"},
		"energy":          0.7,
	}, nil
}

// Cached wraps a Source with a per-user TTL cache.
type Cached struct {
	src   Source
	cache *gocache.Cache
}

func NewCached(src Source, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cached{src: src, cache: gocache.New(ttl, 2*ttl)}
}

func (c *Cached) AnalyzeUser(ctx context.Context, userID string) (Profile, error) {
	if v, ok := c.cache.Get(userID); ok {
		return v.(Profile), nil
	}
	p, err := c.src.AnalyzeUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	c.cache.Set(userID, p, gocache.DefaultExpiration)
	return p, nil
}
