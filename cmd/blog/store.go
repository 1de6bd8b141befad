package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/quillhub/blog/internal/api/handler"
	"github.com/quillhub/blog/internal/core/ports"
	mongostore "github.com/quillhub/blog/internal/infrastructure/db/mongo"
	"github.com/quillhub/blog/internal/infrastructure/db/sqlstore"
	"github.com/quillhub/blog/internal/pkg/config"
)

// store bundles the repositories of the configured backend.
type store struct {
	users ports.UserRepository
	posts ports.PostRepository
	ping  handler.CheckFunc
	close func(context.Context) error
}

// openStore connects to the backend named by DB_DRIVER and brings its schema
// up to date: goose migrations for SQL, indexes for Mongo.
func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*store, error) {
	if cfg.DB.Driver == "mongo" {
		return openMongo(ctx, cfg, log)
	}
	return openSQL(ctx, cfg, log)
}

func openSQL(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*store, error) {
	db, err := sqlstore.Open(ctx, sqlstore.Config{Driver: cfg.DB.Driver, DSN: cfg.DB.URL}, log)
	if err != nil {
		return nil, err
	}
	applied, err := sqlstore.Migrate(ctx, db, cfg.DB.Driver)
	if err != nil {
		_ = sqlstore.Close(db)
		return nil, err
	}
	version, err := sqlstore.MigrationVersion(ctx, db, cfg.DB.Driver)
	if err != nil {
		_ = sqlstore.Close(db)
		return nil, err
	}
	log.Info().Str("driver", cfg.DB.Driver).Int("applied", applied).Int64("version", version).Msg("database ready")

	return &store{
		users: sqlstore.NewUserRepository(db),
		posts: sqlstore.NewPostRepository(db),
		ping:  func(ctx context.Context) error { return sqlstore.Ping(ctx, db) },
		close: func(context.Context) error { return sqlstore.Close(db) },
	}, nil
}

func openMongo(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*store, error) {
	client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := mongostore.EnsureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	log.Info().Str("database", cfg.Mongo.Database).Msg("mongo ready")

	return &store{
		users: mongostore.NewUserRepository(db),
		posts: mongostore.NewPostRepository(db),
		ping:  func(ctx context.Context) error { return client.Ping(ctx, nil) },
		close: client.Disconnect,
	}, nil
}
