// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/carehub/internal/app/store/audit"
	"github.com/dalemusser/carehub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ConnectDB connects to the audit database. With no Mongo URI it returns
// empty deps and audit events go to the log only.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	if appCfg.MongoURI == "" {
		logger.Warn("mongo_uri is blank; audit events are logged but not stored")
		return DBDeps{}, nil
	}

	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetAppName("carehub")
	if appCfg.MongoMaxPoolSize > 0 {
		opts.SetMaxPoolSize(appCfg.MongoMaxPoolSize)
	}
	if appCfg.MongoMinPoolSize > 0 {
		opts.SetMinPoolSize(appCfg.MongoMinPoolSize)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return DBDeps{}, fmt.Errorf("mongo connect: %w", err)
	}

	pingCtx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), logger, "mongo ping")
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return DBDeps{}, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(appCfg.MongoDatabase)
	logger.Info("connected to MongoDB", zap.String("database", appCfg.MongoDatabase))

	return DBDeps{
		MongoClient:   client,
		MongoDatabase: db,
		Audit:         audit.New(db),
	}, nil
}

// EnsureSchema creates the audit indexes.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.Audit == nil {
		return nil
	}
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Long(), logger, "ensure audit indexes")
	defer cancel()
	if err := deps.Audit.EnsureIndexes(ctx); err != nil {
		logger.Error("audit index creation failed", zap.Error(err))
		return err
	}
	return nil
}
