package middleware

import (
	"net/http/httptest"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/dot_balance/internal/logging"
)

func setupRateLimitApp(t *testing.T, limit int) (*fiber.App, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	app := fiber.New()
	app.Use(RateLimit(cache, limit, logging.Discard()))
	app.Get("/api/balance/:address", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	cleanup := func() {
		cache.Close()
		mr.Close()
	}
	return app, mr, cleanup
}

func TestRateLimitRejectsOverLimit(t *testing.T) {
	app, mr, cleanup := setupRateLimitApp(t, 2)
	defer cleanup()

	for i, want := range []int{fiber.StatusOK, fiber.StatusOK, fiber.StatusTooManyRequests} {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/api/balance/abc", nil))
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		if resp.StatusCode != want {
			t.Fatalf("request %d: expected %d got %d", i, want, resp.StatusCode)
		}
	}

	keys := mr.Keys()
	if len(keys) != 1 {
		t.Fatalf("expected one counter key got %v", keys)
	}
	if ttl := mr.TTL(keys[0]); ttl <= 0 {
		t.Fatalf("expected counter to expire, ttl %v", ttl)
	}

	mr.FastForward(mr.TTL(keys[0]))
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/api/balance/abc", nil))
	if err != nil {
		t.Fatalf("request after window: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected window reset, got %d", resp.StatusCode)
	}
}

func TestRateLimitFailsOpen(t *testing.T) {
	app, mr, cleanup := setupRateLimitApp(t, 1)
	defer cleanup()
	mr.Close()

	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/api/balance/abc", nil), 5000)
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("expected fail-open, got %d", resp.StatusCode)
		}
	}
}

func TestRateLimitWithoutRedisIsNoop(t *testing.T) {
	app := fiber.New()
	app.Use(RateLimit(nil, 1, logging.Discard()))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("expected 200 got %d", resp.StatusCode)
		}
	}
}
