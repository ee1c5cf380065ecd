package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"
	"github.com/rogerio-castellano/storefront/internal/config"
	"github.com/rogerio-castellano/storefront/internal/db"
	"github.com/rogerio-castellano/storefront/internal/redissvc"
	"github.com/sirupsen/logrus"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open builds the store selected by cfg.Type. The returned closer releases
// the underlying connection, if any.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, io.Closer, error) {
	fields := logrus.Fields{"storageType": cfg.Type}

	var (
		store  Store
		closer io.Closer = nopCloser{}
	)

	switch cfg.Type {
	case "filesystem":
		fields["path"] = cfg.Path
		fs, err := NewFileStore(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		store = fs
	case "redis":
		fields["addr"] = cfg.RedisAddr
		rs, err := redissvc.Connect(ctx, &redis.Options{Addr: cfg.RedisAddr})
		if err != nil {
			return nil, nil, err
		}
		store, closer = NewRedisStore(rs.Rdb(), cfg.KeyPrefix), rs
	case "postgres":
		database, err := db.Connect(cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		pg, err := NewPostgresStore(database)
		if err != nil {
			database.Close()
			return nil, nil, err
		}
		store, closer = pg, database
	case "sqlite":
		fields["path"] = cfg.Path
		database, err := db.OpenSQLite(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		lite, err := NewSQLiteStore(database)
		if err != nil {
			database.Close()
			return nil, nil, err
		}
		store, closer = lite, database
	case "memory", "":
		fields["storageType"] = "in-memory"
		store = NewMemoryStore()
	default:
		return nil, nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}

	logrus.WithFields(fields).Info("Use storage")
	return store, closer, nil
}
