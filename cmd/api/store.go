package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"entityapi/internal/config"
	"entityapi/internal/database"
	"entityapi/internal/database/migration"
	"entityapi/internal/repository"
	"entityapi/internal/repository/memory"
	mongorepo "entityapi/internal/repository/mongo"
	"entityapi/internal/repository/objectstore"
	"entityapi/internal/repository/postgres"
	"entityapi/internal/storage"
)

type closeFunc func(context.Context) error

func noClose(context.Context) error { return nil }

// openGateway connects the entity store selected by STORE_BACKEND. The
// returned closeFunc releases the underlying client.
func openGateway(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (repository.EntityGateway, closeFunc, error) {
	switch cfg.Store.Backend {
	case config.BackendMongo:
		client, err := database.NewMongo(cfg.Mongo, logger)
		if err != nil {
			return nil, nil, err
		}
		return mongorepo.NewEntityMongo(client.Database(cfg.Mongo.Database)), client.Disconnect, nil

	case config.BackendPostgres:
		db, err := database.NewPostgres(cfg.Database, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := migration.EnsureMigrated(ctx, db, logger, cfg.Database.Host); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return postgres.NewEntityPostgres(db), func(context.Context) error { return db.Close() }, nil

	case config.BackendObjectStore:
		st, err := storage.NewMinIO(cfg.MinIO)
		if err != nil {
			return nil, nil, err
		}
		return objectstore.NewEntityObjectStore(st), noClose, nil

	case config.BackendMemory:
		return memory.NewEntityMemory(), noClose, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
