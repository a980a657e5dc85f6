package server

import (
    "context"
    "errors"
    "log/slog"
    "time"

    "github.com/gofiber/fiber/v2"
    "github.com/jackc/pgx/v5/pgxpool"
    "github.com/redis/go-redis/v9"

    "github.com/congo-pay/dot_balance/internal/config"
    "github.com/congo-pay/dot_balance/internal/infra"
    "github.com/congo-pay/dot_balance/internal/routes"
)

// Server wraps the Fiber application and shared dependencies.
type Server struct {
    app            *fiber.App
    cfg            config.Config
    closeConnector func(context.Context) error
}

// New instantiates the HTTP server, builds (and warms) the light client
// connector and delegates route wiring to routes.Setup. db and cache may be nil.
func New(ctx context.Context, cfg config.Config, db *pgxpool.Pool, cache *redis.Client, logger *slog.Logger) (*Server, error) {
    // Balance lookups wait for sync, so the write timeout must cover it.
    writeTimeout := cfg.LightClient.SyncTimeout + cfg.LightClient.StartTimeout + cfg.LightClient.QueryTimeout
    if writeTimeout < 30*time.Second {
        writeTimeout = 30 * time.Second
    }
    app := fiber.New(fiber.Config{
        AppName:      cfg.AppName,
        ReadTimeout:  30 * time.Second,
        WriteTimeout: writeTimeout,
    })

    connector, closeConnector, err := infra.NewConnector(ctx, cfg.LightClient, logger)
    if err != nil {
        return nil, err
    }

    if err := routes.Setup(app, routes.Deps{Cfg: cfg, DB: db, Cache: cache, Logger: logger, Connector: connector}); err != nil {
        _ = closeConnector(context.Background())
        return nil, err
    }

    return &Server{app: app, cfg: cfg, closeConnector: closeConnector}, nil
}

// App exposes the underlying Fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
    return s.app
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
    return s.app.Listen(s.cfg.Address())
}

// Shutdown gracefully stops the HTTP server, then releases pooled light
// client connections.
func (s *Server) Shutdown(ctx context.Context) error {
    httpErr := s.app.ShutdownWithContext(ctx)
    return errors.Join(httpErr, s.closeConnector(ctx))
}
