package routes

import (
    "context"
    "fmt"
    "log/slog"
    "net/http"
    "time"

    "github.com/gofiber/fiber/v2"
    "github.com/gofiber/fiber/v2/middleware/logger"
    "github.com/gofiber/fiber/v2/middleware/recover"
    "github.com/jackc/pgx/v5/pgxpool"
    "github.com/redis/go-redis/v9"

    "github.com/congo-pay/dot_balance/internal/balance"
    "github.com/congo-pay/dot_balance/internal/config"
    "github.com/congo-pay/dot_balance/internal/journal"
    "github.com/congo-pay/dot_balance/internal/middleware"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
    Cfg       config.Config
    DB        *pgxpool.Pool
    Cache     *redis.Client
    Logger    *slog.Logger
    Connector balance.Connector
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
    if d.Connector == nil {
        return fmt.Errorf("light client connector is required")
    }
    if !d.Cfg.IsDev() && d.Cache == nil {
        return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
    }
    // Middlewares
    app.Use(recover.New())
    app.Use(middleware.RequestID())
    app.Use(middleware.CORS())
    // Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
    app.Use(logger.New(logger.Config{
        Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
        TimeFormat: "15:04:05",
        TimeZone:   "Local",
    }))
    if d.Logger != nil {
        app.Use(middleware.Audit(d.Logger))
    }

    // Health
    RegisterHealthRoutes(app, d)

    // Services and handlers
    var journalRepo journal.Repository
    if d.DB != nil {
        pgRepo := journal.NewPostgresRepository(d.DB)
        ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
        defer cancel()
        if err := pgRepo.EnsureSchema(ctx); err != nil {
            return err
        }
        journalRepo = pgRepo
    } else {
        journalRepo = journal.NewMemoryRepository()
    }

    lc := d.Cfg.LightClient
    balanceSvc := balance.NewService(d.Connector, journalRepo, d.Logger, balance.Options{
        SyncTimeout:  lc.SyncTimeout,
        QueryTimeout: lc.QueryTimeout,
        Decimals:     lc.TokenDecimals,
    })
    balanceHandler := balance.NewHandler(balanceSvc, lc.TokenSymbol, d.Logger)

    // API routes
    api := app.Group("/api")
    api.Get("/ping", func(c *fiber.Ctx) error {
        reqID := middleware.RequestIDFrom(c)
        return c.Status(http.StatusOK).JSON(fiber.Map{
            "status":     "ok",
            "request_id": reqID,
            "timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
        })
    })

    rateLimiter := middleware.RateLimit(d.Cache, d.Cfg.RateLimitPerMinute, d.Logger)
    RegisterBalanceRoutes(api, balanceHandler, rateLimiter)

    return nil
}
