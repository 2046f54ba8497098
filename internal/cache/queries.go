package cache

import (
	"time"

	sq "github.com/Masterminds/squirrel"
)

// queries builds the statements shared by the SQL backends. Times are stored
// as unix milliseconds so both dialects compare them the same way.
type queries struct {
	b sq.StatementBuilderType
}

func newQueries(ph sq.PlaceholderFormat) queries {
	return queries{b: sq.StatementBuilder.PlaceholderFormat(ph)}
}

func (q queries) get(key string, now time.Time) (string, []any, error) {
	return q.b.Select("value").
		From("cache").
		Where(sq.Eq{"key": key}).
		Where(sq.Gt{"expires_at": now.UnixMilli()}).
		ToSql()
}

func (q queries) upsert(key string, value []byte, created, expires time.Time) (string, []any, error) {
	return q.b.Insert("cache").
		Columns("key", "value", "created_at", "expires_at").
		Values(key, string(value), created.UnixMilli(), expires.UnixMilli()).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = excluded.value, created_at = excluded.created_at, expires_at = excluded.expires_at").
		ToSql()
}

func (q queries) cleanup(now time.Time) (string, []any, error) {
	return q.b.Delete("cache").
		Where(sq.LtOrEq{"expires_at": now.UnixMilli()}).
		ToSql()
}

func (q queries) incr(name string, n int64) (string, []any, error) {
	return q.b.Insert("metrics").
		Columns("key", "value").
		Values(name, n).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = metrics.value + excluded.value").
		ToSql()
}

func (q queries) seed(name string) (string, []any, error) {
	return q.b.Insert("metrics").
		Columns("key", "value").
		Values(name, 0).
		Suffix("ON CONFLICT (key) DO NOTHING").
		ToSql()
}

func (q queries) metrics() (string, []any, error) {
	return q.b.Select("key", "value").From("metrics").OrderBy("key").ToSql()
}
