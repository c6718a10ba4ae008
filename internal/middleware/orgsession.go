package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Authentication itself is external: some system issues a session token and
// stores the authenticated organization id in Redis. This middleware only
// resolves token → organization id; it never mints or verifies credentials.

// OrgSessionConfig for Redis-backed organization resolution.
type OrgSessionConfig struct {
	RedisURL       string
	AllowOrgHeader bool // dev only: accept X-Org-Id directly
}

const (
	orgSessionPrefix = "orgsession:"
	orgIDLocal       = "org_id"
	sessionCookie    = "ropa.sid"
	// Sliding expiry refresh on access; the issuing system owns the real TTL.
	sessionTTL = 24 * time.Hour
)

// OrgSession returns the resolution middleware and the Redis client (shared
// with the health module).
func OrgSession(cfg OrgSessionConfig) (fiber.Handler, *redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	rdb := redis.NewClient(opt)

	return func(c *fiber.Ctx) error {
		if cfg.AllowOrgHeader {
			if raw := c.Get("X-Org-Id"); raw != "" {
				if orgID, err := uuid.Parse(raw); err == nil {
					c.Locals(orgIDLocal, orgID)
					return c.Next()
				}
			}
		}

		token := bearerToken(c)
		if token == "" {
			token = c.Cookies(sessionCookie)
		}
		if token != "" {
			key := orgSessionPrefix + token
			val, err := rdb.Get(c.Context(), key).Result()
			if err == nil {
				if orgID, parseErr := uuid.Parse(val); parseErr == nil {
					c.Locals(orgIDLocal, orgID)
					rdb.Expire(context.Background(), key, sessionTTL)
				}
			}
		}
		return c.Next()
	}, rdb, nil
}

// RequireOrg guards org-scoped routes: without a resolved organization the
// request is unauthorized.
func RequireOrg() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := OrgIDFromLocals(c); !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "Not authenticated")
		}
		return c.Next()
	}
}

// OrgIDFromLocals returns the resolved organization id, if any.
func OrgIDFromLocals(c *fiber.Ctx) (uuid.UUID, bool) {
	orgID, ok := c.Locals(orgIDLocal).(uuid.UUID)
	return orgID, ok
}

// SetOrgSession stores a token → org mapping; used by tests and by external
// setup tooling hitting the same Redis.
func SetOrgSession(ctx context.Context, rdb *redis.Client, token string, orgID uuid.UUID) error {
	return rdb.Set(ctx, orgSessionPrefix+token, orgID.String(), sessionTTL).Err()
}

func bearerToken(c *fiber.Ctx) string {
	auth := c.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}
