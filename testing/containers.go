//go:build integration

package testing

import (
	"context"
	"log/slog"
	stdtesting "testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/odyssey-erp/odyssey-iam/internal/platform/db"
	"github.com/odyssey-erp/odyssey-iam/internal/platform/mongo"
)

const cleanupTimeout = 30 * time.Second

// PostgresPool starts a disposable PostgreSQL container, applies the goose
// migrations and returns a pool on it. The test is skipped when no container
// runtime is reachable.
func PostgresPool(t stdtesting.TB) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("odyssey_iam"),
		postgres.WithUsername("odyssey"),
		postgres.WithPassword("odyssey"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() { terminate(t, container) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("postgres connection string: %v", err)
	}
	pool, err := db.New(ctx, dsn)
	if err != nil {
		t.Fatalf("postgres pool: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := db.Migrate(ctx, pool, slog.Default()); err != nil {
		t.Fatalf("postgres migrate: %v", err)
	}
	return pool
}

// MongoDatabase starts a disposable MongoDB container and returns a database
// on it. Index creation is left to the caller's store.
func MongoDatabase(t stdtesting.TB) *mongod.Database {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("mongo container unavailable: %v", err)
	}
	t.Cleanup(func() { terminate(t, container) })

	uri, err := container.PortEndpoint(ctx, "27017/tcp", "mongodb")
	if err != nil {
		t.Fatalf("mongo endpoint: %v", err)
	}

	database, err := mongo.New(ctx, mongo.Options{
		URI:            uri,
		Database:       "odyssey_iam",
		ConnectTimeout: 10 * time.Second,
		MaxPoolSize:    10,
		RetryAttempts:  5,
		RetryInterval:  500 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("mongo connect: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
		defer cancel()
		_ = database.Client().Disconnect(ctx)
	})
	return database
}

// terminate uses a fresh context so a cancelled test context cannot leak the
// container.
func terminate(t stdtesting.TB, container testcontainers.Container) {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	if err := container.Terminate(ctx); err != nil {
		t.Logf("terminate container: %v", err)
	}
}
