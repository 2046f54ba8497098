package cache

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rating-finder/internal/model"
)

// Pool is the subset of pgxpool.Pool the cache uses. pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresCache implements Cache using pgxpool.
type PostgresCache struct {
	pool    Pool
	closeFn func()
	q       queries
	now     func() time.Time
}

// NewPostgres connects to connString, migrates and seeds the metrics.
func NewPostgres(ctx context.Context, connString string) (*PostgresCache, error) {
	if connString == "" {
		return nil, eris.New("postgres: empty connection string")
	}
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 1
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	c := newPostgresWithPool(pool)
	c.closeFn = pool.Close
	if err := c.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return c, nil
}

func newPostgresWithPool(pool Pool) *PostgresCache {
	return &PostgresCache{pool: pool, q: newQueries(sq.Dollar), now: time.Now}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS cache (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	created_at BIGINT NOT NULL,
	expires_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cache_expires_at ON cache(expires_at);

CREATE TABLE IF NOT EXISTS metrics (
	key   TEXT PRIMARY KEY,
	value BIGINT NOT NULL DEFAULT 0
);
`

// Migrate creates the tables and seeds every counter at zero.
func (c *PostgresCache) Migrate(ctx context.Context) error {
	if _, err := c.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	for _, name := range model.MetricNames() {
		query, args, err := c.q.seed(name)
		if err != nil {
			return eris.Wrap(err, "postgres: build seed")
		}
		if _, err := c.pool.Exec(ctx, query, args...); err != nil {
			return eris.Wrapf(err, "postgres: seed metric %s", name)
		}
	}
	return nil
}

func (c *PostgresCache) Get(ctx context.Context, key string) ([]byte, bool) {
	query, args, err := c.q.get(key, c.now())
	if err != nil {
		zap.L().Warn("postgres: build get", zap.Error(err))
		return nil, false
	}

	var value string
	err = c.pool.QueryRow(ctx, query, args...).Scan(&value)
	switch {
	case err == nil:
		c.Incr(ctx, model.MetricCacheHits, 1)
		return []byte(value), true
	case errors.Is(err, pgx.ErrNoRows):
	default:
		zap.L().Warn("postgres: cache get", zap.String("key", key), zap.Error(err))
	}
	c.Incr(ctx, model.MetricCacheMisses, 1)
	return nil, false
}

func (c *PostgresCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	now := c.now()
	query, args, err := c.q.upsert(key, value, now, now.Add(ttl))
	if err != nil {
		return eris.Wrap(err, "postgres: build upsert")
	}
	if _, err := c.pool.Exec(ctx, query, args...); err != nil {
		return eris.Wrapf(err, "postgres: set %s", key)
	}
	return nil
}

func (c *PostgresCache) Cleanup(ctx context.Context) (int, error) {
	query, args, err := c.q.cleanup(c.now())
	if err != nil {
		return 0, eris.Wrap(err, "postgres: build cleanup")
	}
	tag, err := c.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: cleanup")
	}
	return int(tag.RowsAffected()), nil
}

func (c *PostgresCache) Incr(ctx context.Context, name string, n int64) {
	query, args, err := c.q.incr(name, n)
	if err == nil {
		_, err = c.pool.Exec(ctx, query, args...)
	}
	if err != nil {
		zap.L().Warn("postgres: incr metric", zap.String("metric", name), zap.Error(err))
	}
}

func (c *PostgresCache) Metrics(ctx context.Context) map[string]int64 {
	out := zeroMetrics()
	query, args, err := c.q.metrics()
	if err != nil {
		return out
	}
	rows, err := c.pool.Query(ctx, query, args...)
	if err != nil {
		zap.L().Warn("postgres: read metrics", zap.Error(err))
		return out
	}
	defer rows.Close()
	for rows.Next() {
		var (
			name  string
			value int64
		)
		if err := rows.Scan(&name, &value); err != nil {
			zap.L().Warn("postgres: scan metric", zap.Error(err))
			return out
		}
		out[name] = value
	}
	return out
}

func (c *PostgresCache) Close() error {
	if c.closeFn != nil {
		c.closeFn()
	}
	return nil
}
