package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// MutationRateLimit caps money-movement requests per account and minute
// using Redis if available. The account is taken from the route parameter
// or the request body, falling back to the client IP.
func MutationRateLimit(cache *redis.Client, maxPerMin int) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 60
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next() // no-op without Redis
		}
		account := c.Params("accountId")
		if account == "" {
			var req struct {
				AccountID string `json:"account_id"`
			}
			_ = c.BodyParser(&req)
			account = strings.TrimSpace(req.AccountID)
		}
		if account == "" {
			account = c.IP()
		}
		key := "rl:mutation:" + account
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err == nil && cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if err != nil {
			return c.Next() // fail-open on cache errors
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "too many requests for account, try again later")
		}
		return c.Next()
	}
}
