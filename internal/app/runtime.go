package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/kirinyoku/moodcafe/internal/bridge"
	"github.com/kirinyoku/moodcafe/internal/bus"
	"github.com/kirinyoku/moodcafe/internal/config"
	"github.com/kirinyoku/moodcafe/internal/idgen"
	"github.com/kirinyoku/moodcafe/internal/postgres"
	"github.com/kirinyoku/moodcafe/internal/redis"
	"github.com/kirinyoku/moodcafe/internal/repository/file"
	"github.com/kirinyoku/moodcafe/internal/repository/memory"
	postgresrepo "github.com/kirinyoku/moodcafe/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/moodcafe/internal/repository/redis"
	"github.com/kirinyoku/moodcafe/internal/service"
	"github.com/kirinyoku/moodcafe/internal/service/admin"
	"github.com/kirinyoku/moodcafe/internal/service/monitor"
	"github.com/kirinyoku/moodcafe/internal/store"
	goredis "github.com/redis/go-redis/v9"
)

// Runtime is one execution context: its store mirror, its local bus, the
// ledgers on top and the bridge that relays other contexts' writes.
type Runtime struct {
	Origin   string
	Store    *store.Store
	Bus      *bus.Bus
	Services *service.Services
	Bridge   *bridge.Bridge

	// Redis is set only for the redis backend.
	Redis *goredis.Client

	closers []func()
}

// NewRuntime opens the configured backend and seeds both ledgers if their
// documents do not exist yet.
func NewRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	const op = "app.NewRuntime"

	rt := &Runtime{Origin: uuid.NewString()}

	backend, err := rt.openBackend(ctx, cfg, logger)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ids, err := idgen.New(cfg.NodeID)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rt.Store = store.New(backend, logger)
	rt.Bus = bus.New()
	rt.Services = service.NewServices(rt.Store, rt.Bus, ids, service.Config{
		Admin: admin.Config{
			SyncMode: admin.SyncMode(cfg.Admin.OrderSyncMode),
			Logger:   logger,
		},
		Monitor: monitor.Config{Logger: logger},
	})

	rt.Bridge = bridge.New(rt.Store, rt.Bus, logger)
	rt.Bridge.WatchLedgers()

	// admin first: the booking seed broadcast is projected into its orders
	if err := rt.Services.Admin.Init(ctx, cfg.Admin.SeedFile); err != nil {
		rt.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := rt.Services.Booking.Init(ctx); err != nil {
		rt.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("runtime ready",
		slog.String("backend", cfg.Store.Backend),
		slog.String("origin", rt.Origin),
		slog.Int64("node_id", cfg.NodeID),
	)

	return rt, nil
}

func (rt *Runtime) openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Backend, error) {
	switch cfg.Store.Backend {
	case config.BackendFile:
		return file.New(cfg.Store.FileDir, logger)

	case config.BackendRedis:
		rdb, err := redis.New(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		rt.Redis = rdb
		rt.closers = append(rt.closers, func() { _ = rdb.Close() })

		return redisrepo.NewBlobStore(rdb, rt.Origin, logger), nil

	case config.BackendPostgres:
		pool, err := postgres.New(ctx, postgres.Config{DSN: cfg.Postgres.DSN()})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres: %w", err)
		}
		rt.closers = append(rt.closers, pool.Close)

		if err := postgres.Migrate(ctx, pool); err != nil {
			return nil, fmt.Errorf("failed to migrate postgres: %w", err)
		}

		return postgresrepo.NewBlobStore(pool, rt.Origin, logger), nil

	default:
		backend := memory.NewShared().Context()
		rt.closers = append(rt.closers, backend.Close)

		return backend, nil
	}
}

// Close releases backend connections in reverse order of opening.
func (rt *Runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}
