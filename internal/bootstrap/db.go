package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/roomcraft/roomcraft-backend/config"
	"github.com/roomcraft/roomcraft-backend/internal/redesign/engine"
	"github.com/roomcraft/roomcraft-backend/internal/redesign/repository"
	"github.com/roomcraft/roomcraft-backend/internal/storage/postgres"
)

const (
	connectTimeout = 5 * time.Second
	pingTimeout    = 2 * time.Second
)

// OpenRedis connects to Redis and checks it answers.
func OpenRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("REDIS_ADDR is not set")
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: connectTimeout,
	})

	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return client, nil
}

// OpenStore builds the project store selected by STORE_BACKEND. The returned
// close func releases the underlying connection.
func OpenStore(ctx context.Context, cfg *config.Config) (engine.Store, func() error, error) {
	switch cfg.Store.Backend {
	case config.StorePostgres:
		cctx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()

		db, err := postgres.NewConnection(cctx, &cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("db connect: %w", err)
		}
		store := repository.NewPostgresStore(db)
		if err := store.Migrate(cctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		log.Printf("[info] operation=bootstrap.store backend=postgres host=%s db=%s", cfg.Database.Host, cfg.Database.Name)
		return store, db.Close, nil

	case config.StoreRedis, "":
		client, err := OpenRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("[info] operation=bootstrap.store backend=redis addr=%s", cfg.Redis.Addr)
		return repository.NewRedisStore(client), client.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
