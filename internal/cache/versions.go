// Package cache keeps per-resource version counters in Redis. The response
// cache embeds the current version in its keys, so bumping a version makes
// every cached listing of that resource unreachable.
package cache

import (
	"context"
	"errors"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Scopes group cached routes that must be invalidated together.
const (
	ScopeFilms         = "films"
	ScopeAuthors       = "authors"
	ScopeFilmReviews   = "film-reviews"
	ScopeAuthorReviews = "author-reviews"
	ScopeSpectators    = "spectators"
)

// Versions reads and bumps version counters. A nil client or a disabled
// store reports version 0 and ignores bumps, leaving the TTL as the only
// expiry.
type Versions struct {
	rdb     *redis.Client
	prefix  string
	enabled bool
	log     zerolog.Logger
}

func NewVersions(rdb *redis.Client, prefix string, enabled bool, log zerolog.Logger) *Versions {
	return &Versions{rdb: rdb, prefix: prefix, enabled: enabled && rdb != nil, log: log}
}

func (v *Versions) key(scope string) string { return v.prefix + ":v:" + scope }

// Current returns the scope's version, 0 when unset or disabled.
func (v *Versions) Current(ctx context.Context, scope string) int64 {
	if v == nil || !v.enabled {
		return 0
	}
	s, err := v.rdb.Get(ctx, v.key(scope)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			v.log.Warn().Err(err).Str("scope", scope).Msg("cache version read failed")
		}
		return 0
	}
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

// Invalidate bumps every named scope. Failures are logged; the entries
// still expire with their TTL.
func (v *Versions) Invalidate(ctx context.Context, scopes ...string) {
	if v == nil || !v.enabled {
		return
	}
	pipe := v.rdb.Pipeline()
	for _, s := range scopes {
		pipe.Incr(ctx, v.key(s))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		v.log.Warn().Err(err).Strs("scopes", scopes).Msg("cache invalidation failed")
	}
}
