package main

import (
	"context"
	"fmt"

	"github.com/erazemk/vodnik/internal/config"
	"github.com/erazemk/vodnik/internal/store"
	"github.com/erazemk/vodnik/internal/store/dynamostore"
	"github.com/erazemk/vodnik/internal/store/pgstore"
	"github.com/erazemk/vodnik/internal/store/redisstore"
)

// openBackend connects to the backend named in cfg and prepares its schema.
func openBackend(ctx context.Context, cfg *config.Config) (store.Backend, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		return store.OpenSQLite(cfg.SQLitePath)
	case config.BackendRedis:
		return redisstore.Open(ctx, cfg.RedisAddr, cfg.RedisDB)
	case config.BackendPostgres:
		return pgstore.Open(ctx, cfg.DatabaseURL)
	case config.BackendDynamoDB:
		s, err := dynamostore.Open(ctx, dynamostore.Options{
			Region:     cfg.DynamoDBRegion,
			Endpoint:   cfg.DynamoDBEndpoint,
			ItemsTable: cfg.DynamoDBItemsTable,
			UsersTable: cfg.DynamoDBUsersTable,
		})
		if err != nil {
			return nil, err
		}
		if err := s.EnsureTables(ctx); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// jwtSecret picks the token signing secret: the configured one, the one
// persisted in the SQLite settings table, or a random per-process secret.
func jwtSecret(ctx context.Context, cfg *config.Config, backend store.Backend) (string, error) {
	if cfg.JWTSecret != "" {
		return cfg.JWTSecret, nil
	}
	if s, ok := backend.(*store.SQLite); ok {
		return s.JWTSecret(ctx)
	}
	secret, err := store.RandomSecret(32)
	if err != nil {
		return "", err
	}
	return secret, nil
}
