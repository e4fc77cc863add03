package user

import (
	"context"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nekogravitycat/resource-booking-backend/internal/db"
	"github.com/nekogravitycat/resource-booking-backend/internal/pkg/errs"
)

// Repository defines methods for accessing user data from storage.
type Repository interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, u *User) error
	UpdateLastLogin(ctx context.Context, id string, t time.Time) error
	List(ctx context.Context, filter Filter) ([]*User, int, error)
	Update(ctx context.Context, u *User) error
	UpdateProfile(ctx context.Context, u *User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error

	// WithRegistrationLock runs fn in a transaction that holds an exclusive
	// lock against concurrent account creation.
	WithRegistrationLock(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error
}

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgxUserRepository struct {
	pool *pgxpool.Pool
	q    querier
}

// NewPgxRepository creates a new Repository implementation using pgxpool.
func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxUserRepository{pool: pool, q: pool}
}

var userColumns = []string{
	"id", "email", "password_hash", "full_name", "role", "is_active", "created_at", "last_login_at",
}

var sortColumns = map[string]string{
	"name":       "full_name",
	"email":      "email",
	"created_at": "created_at",
}

func scanUser(row pgx.Row, extra ...any) (*User, error) {
	var u User
	dest := []any{&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Role, &u.IsActive, &u.CreatedAt, &u.LastLoginAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *pgxUserRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*User, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(userColumns...).
		From("public.users").
		Where(where).
		ToSql()
	if err != nil {
		return nil, errs.Wrap(err, "build get user query failed")
	}

	u, err := scanUser(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errs.Wrap(err, "get user failed")
	}
	return u, nil
}

func (r *pgxUserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getOne(ctx, squirrel.Eq{"email": email})
}

func (r *pgxUserRepository) GetByID(ctx context.Context, id string) (*User, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

func (r *pgxUserRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM public.users`).Scan(&n); err != nil {
		return 0, errs.Wrap(err, "count users failed")
	}
	return n, nil
}

func (r *pgxUserRepository) Create(ctx context.Context, u *User) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.users").
		Columns("email", "password_hash", "full_name", "role", "is_active").
		Values(u.Email, u.PasswordHash, u.FullName, u.Role, u.IsActive).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return errs.Wrap(err, "build create user query failed")
	}

	if err := r.q.QueryRow(ctx, query, args...).Scan(&u.ID, &u.CreatedAt); err != nil {
		if db.IsPgError(err, pgerrcode.UniqueViolation) {
			return ErrEmailAlreadyUsed
		}
		return errs.Wrap(err, "create user failed")
	}
	return nil
}

func (r *pgxUserRepository) UpdateLastLogin(ctx context.Context, id string, t time.Time) error {
	const query = `UPDATE public.users SET last_login_at = $2 WHERE id = $1`

	ct, err := r.q.Exec(ctx, query, id, t)
	if err != nil {
		return errs.Wrap(err, "update last login failed")
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxUserRepository) List(ctx context.Context, filter Filter) ([]*User, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	queryBuilder := psql.Select(userColumns...).
		Column("count(*) OVER() AS total_count").
		From("public.users")

	if filter.Email != "" {
		queryBuilder = queryBuilder.Where(squirrel.ILike{"email": "%" + filter.Email + "%"})
	}
	if filter.FullName != "" {
		queryBuilder = queryBuilder.Where(squirrel.ILike{"full_name": "%" + filter.FullName + "%"})
	}
	if filter.Role != "" {
		queryBuilder = queryBuilder.Where(squirrel.Eq{"role": filter.Role})
	}
	if filter.IsActive != nil {
		queryBuilder = queryBuilder.Where(squirrel.Eq{"is_active": *filter.IsActive})
	}

	orderBy, ok := sortColumns[filter.SortBy]
	if !ok {
		orderBy = "created_at"
	}
	orderDir := "DESC"
	if filter.SortOrder == "ASC" {
		orderDir = "ASC"
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
		return nil, 0, errs.Wrap(err, "build list users query failed")
	}

	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, errs.Wrap(err, "list users failed")
	}
	defer rows.Close()

	var users []*User
	var total int
	for rows.Next() {
		u, err := scanUser(rows, &total)
		if err != nil {
			return nil, 0, errs.Wrap(err, "scan user failed")
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errs.Wrap(err, "iterate users failed")
	}

	return users, total, nil
}

func (r *pgxUserRepository) Update(ctx context.Context, u *User) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.users").
		Set("full_name", u.FullName).
		Set("role", u.Role).
		Set("is_active", u.IsActive).
		Where(squirrel.Eq{"id": u.ID}).
		ToSql()
	if err != nil {
		return errs.Wrap(err, "build update user query failed")
	}

	ct, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return errs.Wrap(err, "update user failed")
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxUserRepository) UpdateProfile(ctx context.Context, u *User) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.users").
		Set("full_name", u.FullName).
		Set("email", u.Email).
		Where(squirrel.Eq{"id": u.ID}).
		ToSql()
	if err != nil {
		return errs.Wrap(err, "build update profile query failed")
	}

	ct, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		if db.IsPgError(err, pgerrcode.UniqueViolation) {
			return ErrEmailAlreadyUsed
		}
		return errs.Wrap(err, "update profile failed")
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	const query = `UPDATE public.users SET password_hash = $2 WHERE id = $1`

	ct, err := r.q.Exec(ctx, query, id, passwordHash)
	if err != nil {
		return errs.Wrap(err, "update password failed")
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// WithRegistrationLock takes a SHARE ROW EXCLUSIVE lock on the users table,
// which conflicts with itself and with inserts, so two registrations cannot
// both observe an empty table.
func (r *pgxUserRepository) WithRegistrationLock(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error {
	return db.RunInTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `LOCK TABLE public.users IN SHARE ROW EXCLUSIVE MODE`); err != nil {
			return errs.Wrap(err, "lock users table failed")
		}
		return fn(ctx, &pgxUserRepository{pool: r.pool, q: tx})
	})
}
