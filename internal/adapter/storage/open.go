package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/inventory/internal/port"
)

const (
	BackendMySQL  = "mysql"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type Options struct {
	Backend    string
	MySQLDSN   string
	SQLitePath string
	RedisAddr  string
}

// Open connects the selected backend, applies the schema where there is one,
// and returns the store together with a func releasing its connections.
func Open(ctx context.Context, opts Options) (port.StockStore, func() error, error) {
	switch opts.Backend {
	case BackendMySQL:
		return openSQL(ctx, MySQL, opts.MySQLDSN, 50)
	case BackendSQLite:
		// one writer keeps SQLITE_BUSY out of the save path
		return openSQL(ctx, SQLite, opts.SQLitePath, 1)
	case BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     opts.RedisAddr,
			PoolSize: 100,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		return NewRedisAdapter(rdb), rdb.Close, nil
	case BackendMemory:
		return NewMemoryAdapter(), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown stock backend %q", opts.Backend)
	}
}

func openSQL(ctx context.Context, dialect Dialect, dsn string, maxConns int) (port.StockStore, func() error, error) {
	db, err := sql.Open(dialect.DriverName, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", dialect.Name, err)
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns/2 + 1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("ping %s: %w", dialect.Name, err)
	}

	adapter := NewSQLAdapter(db, dialect)
	if err := adapter.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate %s: %w", dialect.Name, err)
	}
	return adapter, db.Close, nil
}
