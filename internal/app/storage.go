// Package app wires configuration into the room store used by the server
// and by meetctl.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/immxrtalbeast/axenix_meet/internal/config"
	"github.com/immxrtalbeast/axenix_meet/internal/repository"
	"github.com/immxrtalbeast/axenix_meet/internal/repository/model"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var ErrUnknownDriver = errors.New("unknown storage driver")

// Storage is an opened room store and the function releasing it.
type Storage struct {
	Rooms repository.RoomRepository
	Close func() error
}

func OpenStorage(ctx context.Context, cfg config.StorageConfig, log *slog.Logger) (*Storage, error) {
	log = log.With(slog.String("driver", cfg.Driver))

	switch cfg.Driver {
	case config.StorageMemory, "":
		log.Warn("using in-memory room store, rooms are lost on restart")
		return &Storage{
			Rooms: repository.NewInMemoryRoomRepository(),
			Close: func() error { return nil },
		}, nil

	case config.StorageRedis:
		client, err := connectRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		log.Info("connected to redis", slog.String("addr", cfg.Redis.Addr))
		return &Storage{
			Rooms: repository.NewRedisRoomRepository(client, cfg.Redis.Prefix),
			Close: client.Close,
		}, nil

	case config.StoragePostgres:
		db, err := connectDatabase(cfg.Postgres)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		log.Info("connected to postgres")
		return &Storage{
			Rooms: repository.NewPostgresRoomRepository(db),
			Close: sqlDB.Close,
		}, nil

	case config.StorageFirebase:
		client, err := repository.NewFirebaseClient(ctx, cfg.Firebase.DatabaseURL, cfg.Firebase.CredentialsFile)
		if err != nil {
			return nil, err
		}
		log.Info("connected to firebase", slog.String("database_url", cfg.Firebase.DatabaseURL))
		return &Storage{
			Rooms: repository.NewFirebaseRoomRepository(client, cfg.Firebase.PollInterval),
			Close: func() error { return nil },
		}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

func connectRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func connectDatabase(cfg config.PostgresConfig) (*gorm.DB, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database dsn is empty")
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&model.Room{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}
