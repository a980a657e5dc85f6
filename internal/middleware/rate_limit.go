package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const rateLimitPrefix = "rl:balance:"

// RateLimit caps requests per client IP per minute using a Redis counter.
// Each balance lookup starts a light client, so this guards the worker budget.
func RateLimit(cache *redis.Client, maxPerMin int, logger *slog.Logger) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 30
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next() // no-op without Redis
		}
		key := rateLimitPrefix + c.IP()
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err != nil {
			if logger != nil {
				logger.Warn("rate limit lookup failed", slog.String("key", key), slog.Any("error", err))
			}
			return c.Next() // fail-open on cache errors
		}
		if cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			return c.Status(http.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"error":   "Too many requests, try again later",
			})
		}
		return c.Next()
	}
}
