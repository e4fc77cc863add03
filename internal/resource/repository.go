package resource

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
	Create(ctx context.Context, res *Resource) error
	GetByID(ctx context.Context, id string) (*Resource, error)
	GetStatus(ctx context.Context, id string) (Status, error)
	List(ctx context.Context, filter Filter) ([]*Resource, int, error)
	Update(ctx context.Context, res *Resource) error
	Delete(ctx context.Context, id string) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var sortColumns = map[string]string{
	"name":       "r.name",
	"status":     "r.status",
	"created_at": "r.created_at",
}

func selectResources() squirrel.SelectBuilder {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	return psql.Select(
		"r.id", "r.category_id", "c.name", "r.name", "r.description", "r.location",
		"r.capacity", "r.status", "r.created_at", "r.updated_at",
	).
		From("public.resources r").
		Join("public.categories c ON r.category_id = c.id")
}

func (r *pgxRepository) Create(ctx context.Context, res *Resource) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.resources").
		Columns("category_id", "name", "description", "location", "capacity", "status").
		Values(res.CategoryID, res.Name, res.Description, res.Location, res.Capacity, res.Status).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return errs.Wrap(err, "build create resource query failed")
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&res.ID, &res.CreatedAt, &res.UpdatedAt); err != nil {
		if db.IsPgError(err, pgerrcode.ForeignKeyViolation) {
			return ErrInvalidCategory
		}
		return errs.Wrap(err, "create resource failed")
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Resource, error) {
	query, args, err := selectResources().
		Where(squirrel.Eq{"r.id": id}).
		ToSql()
	if err != nil {
		return nil, errs.Wrap(err, "build get resource query failed")
	}

	var res Resource
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&res.ID, &res.CategoryID, &res.CategoryName, &res.Name, &res.Description, &res.Location,
		&res.Capacity, &res.Status, &res.CreatedAt, &res.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errs.Wrap(err, "get resource failed")
	}
	return &res, nil
}

func (r *pgxRepository) GetStatus(ctx context.Context, id string) (Status, error) {
	const query = `SELECT status FROM public.resources WHERE id = $1`

	var status Status
	if err := r.pool.QueryRow(ctx, query, id).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", errs.Wrap(err, "get resource status failed")
	}
	return status, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Resource, int, error) {
	queryBuilder := selectResources().Column("count(*) OVER() AS total_count")

	if filter.CategoryID != "" {
		queryBuilder = queryBuilder.Where(squirrel.Eq{"r.category_id": filter.CategoryID})
	}
	if filter.Status != "" {
		queryBuilder = queryBuilder.Where(squirrel.Eq{"r.status": filter.Status})
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		queryBuilder = queryBuilder.Where(squirrel.Or{
			squirrel.ILike{"r.name": pattern},
			squirrel.ILike{"r.location": pattern},
		})
	}

	orderBy, ok := sortColumns[filter.SortBy]
	if !ok {
		orderBy = "r.name"
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
		return nil, 0, errs.Wrap(err, "build list resources query failed")
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, errs.Wrap(err, "list resources failed")
	}
	defer rows.Close()

	var result []*Resource
	var total int
	for rows.Next() {
		var res Resource
		if err := rows.Scan(
			&res.ID, &res.CategoryID, &res.CategoryName, &res.Name, &res.Description, &res.Location,
			&res.Capacity, &res.Status, &res.CreatedAt, &res.UpdatedAt, &total,
		); err != nil {
			return nil, 0, errs.Wrap(err, "scan resource failed")
		}
		result = append(result, &res)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errs.Wrap(err, "iterate resources failed")
	}

	return result, total, nil
}

func (r *pgxRepository) Update(ctx context.Context, res *Resource) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.resources").
		Set("category_id", res.CategoryID).
		Set("name", res.Name).
		Set("description", res.Description).
		Set("location", res.Location).
		Set("capacity", res.Capacity).
		Set("status", res.Status).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": res.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return errs.Wrap(err, "build update resource query failed")
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&res.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if db.IsPgError(err, pgerrcode.ForeignKeyViolation) {
			return ErrInvalidCategory
		}
		return errs.Wrap(err, "update resource failed")
	}
	return nil
}

func (r *pgxRepository) Delete(ctx context.Context, id string) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Delete("public.resources").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return errs.Wrap(err, "build delete resource query failed")
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		if db.IsPgError(err, pgerrcode.ForeignKeyViolation) {
			return ErrInUse
		}
		return errs.Wrap(err, "delete resource failed")
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
