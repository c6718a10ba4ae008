package middleware

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Redis keys for request stats read back by the health endpoints.
const (
	KeyReqTotal  = "ropa:health:req_total"
	KeyReqErrors = "ropa:health:req_errors"
	KeyResTime   = "ropa:health:res_time_total"
	KeyResCount  = "ropa:health:res_count"
	KeyStartTime = "ropa:health:start_time"
	KeyLastReq   = "ropa:health:last_request"
)

// lastRequest is the JSON stored under KeyLastReq. OrgID is filled when the
// request carried a resolved organization, so the health dashboard can tell
// tenant traffic from anonymous probes.
type lastRequest struct {
	Time   time.Time `json:"time"`
	IP     string    `json:"ip"`
	Path   string    `json:"path"`
	Method string    `json:"method"`
	OrgID  string    `json:"orgId,omitempty"`
}

// HealthMarker records request counters and response times in Redis.
// Health and favicon routes are not counted. Writes are pipelined and
// best-effort: a Redis outage never fails the request itself.
func HealthMarker(rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		if path == "/" || strings.HasPrefix(path, "/health") || strings.HasPrefix(path, "/favicon") {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()

		last := lastRequest{
			Time:   start,
			IP:     c.IP(),
			Path:   c.OriginalURL(),
			Method: c.Method(),
		}
		if orgID, ok := OrgIDFromLocals(c); ok {
			last.OrgID = orgID.String()
		}
		b, _ := json.Marshal(last)

		// The request context is done once the handler returns; stats writes
		// get their own short deadline instead.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		pipe := rdb.Pipeline()
		pipe.Set(ctx, KeyLastReq, b, 0)
		pipe.Incr(ctx, KeyReqTotal)
		pipe.Incr(ctx, KeyResCount)
		pipe.IncrByFloat(ctx, KeyResTime, float64(time.Since(start).Milliseconds()))
		if c.Response().StatusCode() >= fiber.StatusInternalServerError {
			pipe.Incr(ctx, KeyReqErrors)
		}
		_, _ = pipe.Exec(ctx)

		return err
	}
}
