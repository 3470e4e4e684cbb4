package storage

import (
	"time"

	"github.com/Masterminds/squirrel"
)

const kvTable = "ledger_kv"

// kvQueries builds the two statements every SQL backend needs.
// Placeholders, the value cast and the timestamp type differ per dialect.
type kvQueries struct {
	ph        squirrel.PlaceholderFormat
	valueExpr string
	forUpdate bool
	stamp     func(time.Time) any
}

var sqliteQueries = kvQueries{
	ph:        squirrel.Question,
	valueExpr: "?",
	stamp:     func(t time.Time) any { return t.UTC().Format(time.RFC3339Nano) },
}

var postgresQueries = kvQueries{
	ph:        squirrel.Dollar,
	valueExpr: "?::jsonb",
	forUpdate: true,
	stamp:     func(t time.Time) any { return t },
}

func (q kvQueries) selectValue(key string, lock bool) (string, []any, error) {
	b := squirrel.Select("value").
		From(kvTable).
		Where(squirrel.Eq{"key": key}).
		PlaceholderFormat(q.ph)
	if lock && q.forUpdate {
		b = b.Suffix("FOR UPDATE")
	}
	return b.ToSql()
}

func (q kvQueries) upsert(key string, value []byte, now time.Time) (string, []any, error) {
	return squirrel.Insert(kvTable).
		Columns("key", "value", "version", "updated_at").
		Values(key, squirrel.Expr(q.valueExpr, string(value)), 1, q.stamp(now)).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = excluded.value, version = " + kvTable + ".version + 1, updated_at = excluded.updated_at").
		PlaceholderFormat(q.ph).
		ToSql()
}
