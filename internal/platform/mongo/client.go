package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ErrConnect is returned when every connection attempt failed.
var ErrConnect = errors.New("platform/mongo: failed to connect")

// Options configures the client.
type Options struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	MaxPoolSize    uint64
	RetryAttempts  int
	RetryInterval  time.Duration
}

// New connects to MongoDB, retrying up to RetryAttempts times, and returns
// the configured database.
func New(ctx context.Context, opts Options) (*mongo.Database, error) {
	attempts := opts.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for i := range attempts {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, errors.Join(ErrConnect, ctx.Err())
			case <-time.After(opts.RetryInterval):
			}
		}
		client, err := mongo.Connect(options.Client().
			ApplyURI(opts.URI).
			SetConnectTimeout(opts.ConnectTimeout).
			SetMaxPoolSize(opts.MaxPoolSize))
		if err != nil {
			lastErr = err
			continue
		}
		if err := client.Ping(ctx, nil); err != nil {
			lastErr = err
			_ = client.Disconnect(context.WithoutCancel(ctx))
			continue
		}
		return client.Database(opts.Database), nil
	}
	return nil, errors.Join(ErrConnect, fmt.Errorf("after %d attempts: %w", attempts, lastErr))
}

// Healthcheck returns a ping function for readiness probes.
func Healthcheck(db *mongo.Database) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := db.Client().Ping(ctx, nil); err != nil {
			return fmt.Errorf("platform/mongo: ping: %w", err)
		}
		return nil
	}
}
