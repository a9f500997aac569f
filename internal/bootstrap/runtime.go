// Package bootstrap wires the configured post store, Redis and the interaction service.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"campusfeed/internal/cache"
	"campusfeed/internal/config"
	"campusfeed/internal/database"
	"campusfeed/internal/middleware"
	"campusfeed/internal/notifications"
	"campusfeed/internal/service"
	"campusfeed/internal/store"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/gorm"
)

// Runtime holds the long-lived dependencies of a process.
type Runtime struct {
	Config   *config.Config
	Store    store.PostStore
	Redis    *redis.Client
	Notifier *notifications.Notifier
	Service  *service.InteractionService

	closers []func(context.Context) error
}

// InitRuntime opens the configured store and, when REDIS_URL is set, Redis.
// An unreachable Redis is logged and skipped; the feed works without cache and events.
func InitRuntime(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	rt := &Runtime{Config: cfg}

	postStore, closeStore, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	rt.Store = store.Instrument(postStore, cfg.StoreBackend)
	rt.closers = append(rt.closers, closeStore)

	if cfg.RedisURL != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			middleware.Logger.Warn("Redis unavailable, running without snapshot cache and events",
				slog.String("error", err.Error()))
		} else {
			rt.Redis = rdb
			rt.closers = append(rt.closers, func(context.Context) error { return rdb.Close() })
		}
	}

	opts := service.Options{
		Retry: service.RetryPolicy{
			MaxAttempts:         cfg.MaxAttempts,
			InitialInterval:     cfg.BackoffInitial(),
			MaxInterval:         cfg.BackoffMax(),
			Multiplier:          2,
			RandomizationFactor: 0.5,
		},
		OperationTimeout: cfg.OperationTimeout(),
		CommentOrder:     cfg.CommentOrder,
	}
	if rt.Redis != nil {
		rt.Notifier = notifications.NewNotifier(rt.Redis)
		opts.Cache = cache.NewPostSnapshots(rt.Redis, cfg.CacheTTL())
		opts.Events = rt.Notifier
	}
	rt.Service = service.NewInteractionService(rt.Store, opts)

	return rt, nil
}

// Close releases everything InitRuntime opened, last opened first.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OpenStore connects to the backend named by STORE_BACKEND.
func OpenStore(ctx context.Context, cfg *config.Config) (store.PostStore, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }

	switch cfg.StoreBackend {
	case config.StoreMemory:
		middleware.Logger.Warn("Using in-memory post store; data is lost on restart")
		return store.NewMemoryStore(), noop, nil

	case config.StorePostgres, config.StoreSQLite:
		db, err := database.Connect(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("database connection failed: %w", err)
		}
		return openGormStore(ctx, db)

	case config.StoreMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, nil, fmt.Errorf("mongo connection failed: %w", err)
		}
		ms := store.NewMongoStore(client.Database(cfg.MongoDatabase))
		if err := ms.Ping(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, nil, fmt.Errorf("mongo ping failed: %w", err)
		}
		middleware.Logger.Info("MongoDB connected", slog.String("database", cfg.MongoDatabase))
		return ms, client.Disconnect, nil

	case config.StoreNATS:
		nc, err := nats.Connect(cfg.NATSURL, nats.Name("campusfeed"))
		if err != nil {
			return nil, nil, fmt.Errorf("nats connection failed: %w", err)
		}
		js, err := jetstream.New(nc)
		if err != nil {
			nc.Close()
			return nil, nil, fmt.Errorf("jetstream init failed: %w", err)
		}
		kv, err := store.NewKVStore(ctx, js, cfg.NATSBucket)
		if err != nil {
			nc.Close()
			return nil, nil, err
		}
		middleware.Logger.Info("NATS JetStream KV ready", slog.String("bucket", cfg.NATSBucket))
		return kv, func(context.Context) error { return nc.Drain() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// openGormStore migrates the posts table. The pool is closed if that fails.
func openGormStore(ctx context.Context, db *gorm.DB) (store.PostStore, func(context.Context) error, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("database handle: %w", err)
	}
	gs := store.NewGormStore(db)
	if err := gs.Migrate(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, nil, fmt.Errorf("database migration failed: %w", err)
	}
	return gs, func(context.Context) error { return sqlDB.Close() }, nil
}
