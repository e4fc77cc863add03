package setting

import (
	"context"
	"sort"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nekogravitycat/resource-booking-backend/internal/pkg/errs"
)

type Repository interface {
	// All returns every stored row plus the most recent update time.
	All(ctx context.Context) (map[string]string, time.Time, error)
	Upsert(ctx context.Context, rows map[string]string) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) All(ctx context.Context) (map[string]string, time.Time, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select("setting_key", "setting_value", "updated_at").
		From("public.settings").
		ToSql()
	if err != nil {
		return nil, time.Time{}, errs.Wrap(err, "build list settings query failed")
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, time.Time{}, errs.Wrap(err, "list settings failed")
	}
	defer rows.Close()

	result := make(map[string]string)
	var latest time.Time
	for rows.Next() {
		var key, value string
		var updatedAt time.Time
		if err := rows.Scan(&key, &value, &updatedAt); err != nil {
			return nil, time.Time{}, errs.Wrap(err, "scan setting failed")
		}
		result[key] = value
		if updatedAt.After(latest) {
			latest = updatedAt
		}
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, errs.Wrap(err, "iterate settings failed")
	}
	return result, latest, nil
}

func (r *pgxRepository) Upsert(ctx context.Context, rows map[string]string) error {
	if len(rows) == 0 {
		return nil
	}

	keys := make([]string, 0, len(rows))
	for k := range rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	insert := psql.Insert("public.settings").Columns("setting_key", "setting_value", "updated_at")
	for _, k := range keys {
		insert = insert.Values(k, rows[k], squirrel.Expr("now()"))
	}

	query, args, err := insert.
		Suffix("ON CONFLICT (setting_key) DO UPDATE SET setting_value = EXCLUDED.setting_value, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return errs.Wrap(err, "build upsert settings query failed")
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return errs.Wrap(err, "upsert settings failed")
	}
	return nil
}
