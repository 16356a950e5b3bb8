package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
)

// CachePolicy describes the CDN-facing cache header pair for a route
// class. These values feed the HTTP caching layer and are independent of
// the in-memory cache TTLs, which serve a different tier.
type CachePolicy struct {
	MaxAge               int // seconds
	StaleWhileRevalidate int // seconds
}

// Header renders the policy as a Cache-Control value.
func (p CachePolicy) Header() string {
	if p.StaleWhileRevalidate > 0 {
		return fmt.Sprintf("public, max-age=%d, stale-while-revalidate=%d", p.MaxAge, p.StaleWhileRevalidate)
	}
	return fmt.Sprintf("public, max-age=%d", p.MaxAge)
}

// DefaultCachePolicies maps route class prefixes to header policies.
func DefaultCachePolicies() map[string]CachePolicy {
	return map[string]CachePolicy{
		"/api/safe-zones":    {MaxAge: 300, StaleWhileRevalidate: 600},
		"/api/notifications": {MaxAge: 0},
		"/api/locations":     {MaxAge: 0},
		"/static":            {MaxAge: 86400, StaleWhileRevalidate: 604800},
	}
}

// CacheControl applies the policy table by longest matching path prefix.
// Requests matching no class receive no-store.
func CacheControl(policies map[string]CachePolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path

		var (
			best    string
			matched bool
			policy  CachePolicy
		)
		for prefix, candidate := range policies {
			if strings.HasPrefix(path, prefix) && len(prefix) > len(best) {
				best = prefix
				policy = candidate
				matched = true
			}
		}

		switch {
		case !matched, policy.MaxAge <= 0:
			c.Header("Cache-Control", "no-store")
		default:
			c.Header("Cache-Control", policy.Header())
		}

		c.Next()
	}
}
