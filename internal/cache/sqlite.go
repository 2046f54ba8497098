package cache

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sells-group/rating-finder/internal/model"
)

// SQLiteCache implements Cache using modernc.org/sqlite.
type SQLiteCache struct {
	db  *sql.DB
	q   queries
	now func() time.Time
}

// NewSQLite opens (or creates) the cache database at path, configures WAL
// mode, migrates and seeds the metrics.
func NewSQLite(ctx context.Context, path string) (*SQLiteCache, error) {
	if path == "" {
		return nil, eris.New("sqlite: empty path")
	}
	// Pragmas go in the DSN so every pooled connection gets them.
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "sqlite: ping")
	}

	c := &SQLiteCache{db: db, q: newQueries(sq.Question), now: time.Now}
	if err := c.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS cache (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cache_expires_at ON cache(expires_at);

CREATE TABLE IF NOT EXISTS metrics (
	key   TEXT PRIMARY KEY,
	value INTEGER NOT NULL DEFAULT 0
);
`

func (c *SQLiteCache) migrate(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrap(err, "sqlite: migrate")
	}
	for _, name := range model.MetricNames() {
		query, args, err := c.q.seed(name)
		if err != nil {
			return eris.Wrap(err, "sqlite: build seed")
		}
		if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
			return eris.Wrapf(err, "sqlite: seed metric %s", name)
		}
	}
	return nil
}

func (c *SQLiteCache) Get(ctx context.Context, key string) ([]byte, bool) {
	query, args, err := c.q.get(key, c.now())
	if err != nil {
		zap.L().Warn("sqlite: build get", zap.Error(err))
		return nil, false
	}

	var value string
	err = c.db.QueryRowContext(ctx, query, args...).Scan(&value)
	switch {
	case err == nil:
		c.Incr(ctx, model.MetricCacheHits, 1)
		return []byte(value), true
	case errors.Is(err, sql.ErrNoRows):
	default:
		zap.L().Warn("sqlite: cache get", zap.String("key", key), zap.Error(err))
	}
	c.Incr(ctx, model.MetricCacheMisses, 1)
	return nil, false
}

func (c *SQLiteCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	now := c.now()
	query, args, err := c.q.upsert(key, value, now, now.Add(ttl))
	if err != nil {
		return eris.Wrap(err, "sqlite: build upsert")
	}
	if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
		return eris.Wrapf(err, "sqlite: set %s", key)
	}
	return nil
}

func (c *SQLiteCache) Cleanup(ctx context.Context) (int, error) {
	query, args, err := c.q.cleanup(c.now())
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: build cleanup")
	}
	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: cleanup")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: cleanup rows affected")
	}
	return int(n), nil
}

func (c *SQLiteCache) Incr(ctx context.Context, name string, n int64) {
	query, args, err := c.q.incr(name, n)
	if err == nil {
		_, err = c.db.ExecContext(ctx, query, args...)
	}
	if err != nil {
		zap.L().Warn("sqlite: incr metric", zap.String("metric", name), zap.Error(err))
	}
}

func (c *SQLiteCache) Metrics(ctx context.Context) map[string]int64 {
	out := zeroMetrics()
	query, args, err := c.q.metrics()
	if err != nil {
		return out
	}
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		zap.L().Warn("sqlite: read metrics", zap.Error(err))
		return out
	}
	defer rows.Close()
	for rows.Next() {
		var (
			name  string
			value int64
		)
		if err := rows.Scan(&name, &value); err != nil {
			zap.L().Warn("sqlite: scan metric", zap.Error(err))
			return out
		}
		out[name] = value
	}
	return out
}

func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
