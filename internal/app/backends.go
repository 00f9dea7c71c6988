package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-iam/internal/auth"
	"github.com/odyssey-erp/odyssey-iam/internal/employees"
	"github.com/odyssey-erp/odyssey-iam/internal/observability"
	"github.com/odyssey-erp/odyssey-iam/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-iam/internal/platform/db"
	platformmongo "github.com/odyssey-erp/odyssey-iam/internal/platform/mongo"
	"github.com/odyssey-erp/odyssey-iam/internal/roles"
	"github.com/odyssey-erp/odyssey-iam/internal/shared"
	"github.com/odyssey-erp/odyssey-iam/internal/store/memory"
	storemongo "github.com/odyssey-erp/odyssey-iam/internal/store/mongo"
	"github.com/odyssey-erp/odyssey-iam/internal/users"
	"github.com/odyssey-erp/odyssey-iam/jobs"
)

// Backends carries the opened infrastructure and a single release function.
type Backends struct {
	Stores       Stores
	Revocations  auth.RevocationList
	Notifier     Notifier
	JobInspector *asynq.Inspector
	closers      []func() error
}

// Close releases every opened resource in reverse order.
func (b *Backends) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OpenBackends connects the configured store driver and, when REDIS_ADDR is
// set, the Redis revocation list and notification queue.
func OpenBackends(ctx context.Context, cfg *Config, logger *slog.Logger, metrics *observability.Metrics) (*Backends, error) {
	b := &Backends{}
	if err := b.openStores(ctx, cfg, logger); err != nil {
		_ = b.Close()
		return nil, err
	}
	if cfg.RedisAddr == "" {
		logger.Warn("REDIS_ADDR not set, revocations are kept in memory and notifications are disabled")
		b.Revocations = auth.NewMemoryRevocationList()
		return b, nil
	}

	client, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		_ = b.Close()
		return nil, shared.Critical("redis unavailable", err)
	}
	b.closers = append(b.closers, client.Close)
	b.Revocations = auth.NewRedisRevocationList(client)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	queue := jobs.NewClient(redisOpts, metrics)
	b.closers = append(b.closers, queue.Close)
	b.Notifier = queue
	b.JobInspector = asynq.NewInspector(redisOpts)
	b.closers = append(b.closers, b.JobInspector.Close)
	return b, nil
}

func (b *Backends) openStores(ctx context.Context, cfg *Config, logger *slog.Logger) error {
	switch cfg.StoreDriver {
	case DriverMemory:
		store := memory.New()
		b.Stores = Stores{Users: store.Users(), Roles: store.Roles(), Employees: store.Employees(), Audit: store}
		return nil
	case DriverPostgres:
		pool, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return shared.Critical("database unavailable", err)
		}
		b.closers = append(b.closers, func() error { pool.Close(); return nil })
		if cfg.DBAutoMigrate {
			if err := db.Migrate(ctx, pool, logger); err != nil {
				return shared.Critical("database migration failed", err)
			}
		}
		b.Stores = Stores{
			Users:     users.NewRepository(pool),
			Roles:     roles.NewRepository(pool),
			Employees: employees.NewRepository(pool),
			Audit:     shared.NewAuditLogger(pool),
		}
		return nil
	case DriverMongo:
		database, err := platformmongo.New(ctx, platformmongo.Options{
			URI:            cfg.DatabaseURL,
			Database:       cfg.MongoDatabase,
			ConnectTimeout: 10 * time.Second,
			RetryAttempts:  3,
			RetryInterval:  2 * time.Second,
		})
		if err != nil {
			return shared.Critical("database unavailable", err)
		}
		b.closers = append(b.closers, func() error {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return database.Client().Disconnect(shutdownCtx)
		})
		store := storemongo.New(database)
		if err := store.Migrate(ctx); err != nil {
			return shared.Critical("database indexes failed", err)
		}
		b.Stores = Stores{Users: store.Users(), Roles: store.Roles(), Employees: store.Employees(), Audit: store}
		return nil
	default:
		return shared.Critical("missing configuration", fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver))
	}
}
