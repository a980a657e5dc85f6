package routes

import (
    "github.com/gofiber/fiber/v2"

    "github.com/congo-pay/dot_balance/internal/balance"
)

// RegisterBalanceRoutes wires balance lookup endpoints.
func RegisterBalanceRoutes(r fiber.Router, h *balance.Handler, rateLimiter fiber.Handler) {
    if rateLimiter != nil {
        r.Get("/balance/:address", rateLimiter, h.Get)
    } else {
        r.Get("/balance/:address", h.Get)
    }
    r.Get("/lookups", h.Recent)
}
