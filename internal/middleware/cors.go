package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// CORS allows browser frontends on other origins to call the read-only API.
func CORS() fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: fiber.MethodGet + "," + fiber.MethodHead + "," + fiber.MethodOptions,
	})
}
