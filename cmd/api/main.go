package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"entityapi/docs"
	"entityapi/internal/config"
	handlers "entityapi/internal/http/handler"
	"entityapi/internal/http/middleware"
	"entityapi/internal/logging"
	"entityapi/internal/otel"
	"entityapi/internal/service"
)

const shutdownTimeout = 10 * time.Second

var (
	initTracing = otel.Init
	openStore   = openGateway
)

// @title Entity API
// @version 1.0
// @description Generic CRUD over schemaless document collections.
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Printf("unknown timezone %q, using UTC", cfg.Timezone)
		loc = time.UTC
	}

	logger, err := logging.New(cfg.LogLevel, loc)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("server_exit", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.AppConfig, logger *zap.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := initTracing(ctx, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, release("tracing", shutdownTracing))
	}()

	gw, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, release("store", closeStore))
	}()
	logger.Info("store_ready", zap.String("backend", cfg.Store.Backend))

	svc := service.NewEntityService(gw, service.Options{MaxPageSize: cfg.Query.MaxPageSize})

	app, err := newApp(cfg, svc, logger)
	if err != nil {
		return err
	}

	addr := ":" + cfg.HTTP.Port
	listenErr := make(chan error, 1)
	go func() {
		listenErr <- app.Listen(addr)
	}()

	select {
	case err := <-listenErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		logger.Info("server_shutdown", zap.String("reason", "signal"))
	}

	// The deferred releases then close the store and flush tracing.
	return app.ShutdownWithTimeout(shutdownTimeout)
}

// release runs a shutdown step under its own timeout.
func release(name string, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		return fmt.Errorf("release %s: %w", name, err)
	}
	return nil
}

// newApp wires middleware and routes. Fixed routes are registered before the
// catch-all collection routes.
func newApp(cfg *config.AppConfig, svc service.EntityService, logger *zap.Logger) (*fiber.App, error) {
	app := fiber.New(fiber.Config{
		AppName:               "entityapi",
		ErrorHandler:          handlers.ErrorHandler(),
		ReadTimeout:           cfg.HTTP.ReadTimeout,
		WriteTimeout:          cfg.HTTP.WriteTimeout,
		DisableStartupMessage: true,
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return nil, err
	}

	app.Use(otelfiber.Middleware(otelfiber.WithNext(func(c *fiber.Ctx) bool {
		return c.Path() == middleware.MetricsPath
	})))
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(logger))
	app.Use(prom.Handler())

	app.Get(middleware.MetricsPath, middleware.MetricsHandler(reg))

	docs.SwaggerInfo.Host = cfg.HTTP.AppHost
	app.Get("/swagger/*", swaggerHandler(cfg.HTTP.AppHost))

	handlers.RegisterRoutes(app, svc, logger)
	return app, nil
}

// swaggerHandler serves the API docs with the host and scheme the client
// used, falling back to APP_HOST when the request names no host.
func swaggerHandler(fallbackHost string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get(fiber.HeaderXForwardedProto); proto != "" {
			scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
		}

		docs.SwaggerInfo.Host = requestHost(c, fallbackHost)
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	}
}

func requestHost(c *fiber.Ctx, fallback string) string {
	if host := c.Get(fiber.HeaderHost); host != "" {
		return host
	}
	return fallback
}
