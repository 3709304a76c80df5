package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"entityapi/internal/config"
)

var mongoConnect = mongo.Connect

// NewMongo connects to MongoDB and verifies the primary is reachable.
// Commands slower than the configured threshold are logged.
func NewMongo(c config.MongoConfig, logger *zap.Logger) (*mongo.Client, error) {
	if c.URI == "" || c.Database == "" {
		return nil, fmt.Errorf("invalid mongo config: uri and database are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.ConnectTimeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(c.URI).
		SetConnectTimeout(c.ConnectTimeout)
	if c.SlowQueryThreshold > 0 {
		opts.SetMonitor(newCommandMonitor(logger, c))
	}

	client, err := mongoConnect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	ctxPing, cancelPing := context.WithTimeout(ctx, c.PingTimeout)
	defer cancelPing()
	if err := client.Ping(ctxPing, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	logger.Info("mongo_connected",
		zap.String("component", "database"),
		zap.String("database", c.Database),
	)
	return client, nil
}

func newCommandMonitor(logger *zap.Logger, c config.MongoConfig) *event.CommandMonitor {
	log := logger.With(zap.String("component", "mongo"))
	return &event.CommandMonitor{
		Succeeded: func(_ context.Context, evt *event.CommandSucceededEvent) {
			if evt.Duration > c.SlowQueryThreshold {
				log.Warn("mongo_slow_command",
					zap.Int64("request_id", evt.RequestID),
					zap.String("command", evt.CommandName),
					zap.String("database", evt.DatabaseName),
					zap.Int64("duration_ms", evt.Duration.Milliseconds()),
				)
			}
		},
		Failed: func(_ context.Context, evt *event.CommandFailedEvent) {
			log.Warn("mongo_command_failed",
				zap.Int64("request_id", evt.RequestID),
				zap.String("command", evt.CommandName),
				zap.String("database", evt.DatabaseName),
				zap.String("failure", evt.Failure),
				zap.Int64("duration_ms", evt.Duration.Milliseconds()),
			)
		},
	}
}
