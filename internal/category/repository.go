package category

import (
	"context"
	"errors"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nekogravitycat/resource-booking-backend/internal/db"
	"github.com/nekogravitycat/resource-booking-backend/internal/pkg/errs"
)

type Repository interface {
	Create(ctx context.Context, c *Category) error
	GetByID(ctx context.Context, id string) (*Category, error)
	List(ctx context.Context, filter Filter) ([]*Category, int, error)
	Update(ctx context.Context, c *Category) error
	Delete(ctx context.Context, id string) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var sortColumns = map[string]string{
	"name":       "c.name",
	"created_at": "c.created_at",
}

func selectCategories() squirrel.SelectBuilder {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	return psql.Select(
		"c.id", "c.name", "c.description", "c.status", "c.created_at",
		"(SELECT count(*) FROM public.resources r WHERE r.category_id = c.id) AS resource_count",
	).From("public.categories c")
}

func (r *pgxRepository) Create(ctx context.Context, c *Category) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.categories").
		Columns("name", "description", "status").
		Values(c.Name, c.Description, c.Status).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return errs.Wrap(err, "build create category query failed")
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&c.ID, &c.CreatedAt); err != nil {
		if db.IsPgError(err, pgerrcode.UniqueViolation) {
			return ErrNameTaken
		}
		return errs.Wrap(err, "create category failed")
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Category, error) {
	query, args, err := selectCategories().
		Where(squirrel.Eq{"c.id": id}).
		ToSql()
	if err != nil {
		return nil, errs.Wrap(err, "build get category query failed")
	}

	var c Category
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&c.ID, &c.Name, &c.Description, &c.Status, &c.CreatedAt, &c.ResourceCount,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errs.Wrap(err, "get category failed")
	}
	return &c, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Category, int, error) {
	queryBuilder := selectCategories().Column("count(*) OVER() AS total_count")

	if filter.Status != "" {
		queryBuilder = queryBuilder.Where(squirrel.Eq{"c.status": filter.Status})
	}

	orderBy, ok := sortColumns[filter.SortBy]
	if !ok {
		orderBy = "c.name"
	}
	orderDir := "ASC"
	if filter.SortOrder == "DESC" {
		orderDir = "DESC"
	}
	queryBuilder = queryBuilder.OrderBy(orderBy + " " + orderDir)

	// Pagination
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize
	queryBuilder = queryBuilder.Limit(uint64(filter.PageSize)).Offset(uint64(offset))

	sql, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, 0, errs.Wrap(err, "build list categories query failed")
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, errs.Wrap(err, "list categories failed")
	}
	defer rows.Close()

	var result []*Category
	var total int
	for rows.Next() {
		var c Category
		if err := rows.Scan(
			&c.ID, &c.Name, &c.Description, &c.Status, &c.CreatedAt, &c.ResourceCount, &total,
		); err != nil {
			return nil, 0, errs.Wrap(err, "scan category failed")
		}
		result = append(result, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errs.Wrap(err, "iterate categories failed")
	}

	return result, total, nil
}

func (r *pgxRepository) Update(ctx context.Context, c *Category) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.categories").
		Set("name", c.Name).
		Set("description", c.Description).
		Set("status", c.Status).
		Where(squirrel.Eq{"id": c.ID}).
		ToSql()
	if err != nil {
		return errs.Wrap(err, "build update category query failed")
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		if db.IsPgError(err, pgerrcode.UniqueViolation) {
			return ErrNameTaken
		}
		return errs.Wrap(err, "update category failed")
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) Delete(ctx context.Context, id string) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Delete("public.categories").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return errs.Wrap(err, "build delete category query failed")
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		if db.IsPgError(err, pgerrcode.ForeignKeyViolation) {
			return ErrInUse
		}
		return errs.Wrap(err, "delete category failed")
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
