package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirinyoku/moodcafe/internal/config"
	redisx "github.com/kirinyoku/moodcafe/internal/redis"
	redisrepo "github.com/kirinyoku/moodcafe/internal/repository/redis"
	httpgin "github.com/kirinyoku/moodcafe/internal/transport/http/gin"
	"github.com/ulule/limiter/v3"
	lmemory "github.com/ulule/limiter/v3/drivers/store/memory"
	lredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"golang.org/x/sync/errgroup"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	rt         *Runtime
	httpServer *http.Server
}

func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	rt, err := NewRuntime(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize runtime: %w", err)
	}

	rateLimiter, err := newRateLimiter(rt, cfg.RateLimit)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to initialize rate limiter: %w", err)
	}

	opts := httpgin.Options{
		Services:    rt.Services,
		Bus:         rt.Bus,
		Logger:      logger,
		AdminToken:  cfg.Admin.APIKey,
		UploadsDir:  cfg.Server.UploadsDir,
		RateLimiter: rateLimiter,
	}

	// idempotency and per-IP booking limits need state shared by every process
	if rt.Redis != nil {
		opts.Idempotency = redisrepo.NewIdempotencyStore(rt.Redis, cfg.RateLimit.IdempotencyTTL)
		opts.BookingLimiter = redisrepo.NewSlidingWindowLimiter(
			rt.Redis,
			"bookings",
			cfg.RateLimit.BookingRequests,
			cfg.RateLimit.BookingWindow,
		)
	}

	if cfg.Admin.APIKey == "" {
		logger.Warn("ADMIN_API_KEY is empty, admin API rejects every request")
	}

	router := httpgin.NewRouter(opts)

	return &App{
		cfg:    cfg,
		logger: logger,
		rt:     rt,
		httpServer: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

func newRateLimiter(rt *Runtime, cfg config.RateLimitConfig) (*limiter.Limiter, error) {
	if cfg.Requests <= 0 {
		return nil, nil
	}

	rate := limiter.Rate{Period: cfg.Window, Limit: cfg.Requests}

	if rt.Redis != nil {
		st, err := lredis.NewStoreWithOptions(rt.Redis, limiter.StoreOptions{
			Prefix: redisx.PrefixLimiter(),
		})
		if err != nil {
			return nil, err
		}
		return limiter.New(st, rate), nil
	}

	return limiter.New(lmemory.NewStore(), rate), nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()
	defer a.rt.Close()

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Relay writes made by other processes
	g.Go(func() error {
		return a.rt.Bridge.Run(gCtx)
	})

	// Metrics scheduler
	g.Go(func() error {
		return a.rt.Services.Monitor.Run(gCtx)
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}
