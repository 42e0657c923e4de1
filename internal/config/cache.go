package config

import (
	"strings"
	"time"
)

// CacheConfig defines settings for the response cache middleware.
// When Enabled is false or no Redis client is configured, caching is disabled.
// Methods lists the HTTP methods to cache. KeyStrategy ("route",
// "method_route_query" or the default "route_query") picks which parts of
// the request contribute to the cache key. The caller identity is part of
// every key.
type CacheConfig struct {
	Enabled      bool          `env:"CACHE_ENABLED" env-default:"true"`
	MethodList   []string      `env:"CACHE_METHODS" env-separator:"," env-default:"GET"`
	TTL          time.Duration `env:"CACHE_TTL" env-default:"900s"`
	KeyStrategy  string        `env:"CACHE_KEY_STRATEGY" env-default:"route_query"`
	Prefix       string        `env:"CACHE_PREFIX" env-default:"cinema"`
	MaxBodyBytes int           `env:"CACHE_MAX_BODY_BYTES" env-default:"1048576"`
	// InvalidateOnWrite bumps a per-resource version on writes so cached
	// lists stop being served before their TTL runs out.
	InvalidateOnWrite bool `env:"CACHE_INVALIDATE_ON_WRITE" env-default:"false"`

	Methods map[string]bool `env:"-"`
}

func (c *CacheConfig) normalize() {
	c.Methods = parseMethods(c.MethodList)
	if c.TTL <= 0 {
		c.TTL = 900 * time.Second
	}
	if c.Prefix == "" {
		c.Prefix = "cinema"
	}
}

func parseMethods(list []string) map[string]bool {
	m := map[string]bool{}
	for _, p := range list {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			m[p] = true
		}
	}
	return m
}
