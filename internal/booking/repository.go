package booking

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
	"github.com/nekogravitycat/resource-booking-backend/internal/resource"
)

// Store holds the reads and writes used by the lifecycle operations. Inside a
// transaction FindByID also locks the booking row.
type Store interface {
	OverlapFinder
	FindByID(ctx context.Context, id string) (*Booking, error)
	Insert(ctx context.Context, b *Booking) error
	UpdateStatus(ctx context.Context, b *Booking) error
	UpdateFields(ctx context.Context, b *Booking) error
	DeleteByID(ctx context.Context, id string) error
}

// Tx is a Store bound to one database transaction.
type Tx interface {
	Store
	// LockResource takes a row lock on the resource and returns its status,
	// serializing every admission for that resource until commit.
	LockResource(ctx context.Context, id string) (resource.Status, error)
}

type Repository interface {
	Store
	List(ctx context.Context, filter Filter) ([]*Booking, int, error)
	ListUpcoming(ctx context.Context, userID string, now time.Time, limit int) ([]*Booking, error)
	ListPending(ctx context.Context, limit int) ([]*Booking, error)
	CompleteElapsed(ctx context.Context, now time.Time) (int64, error)

	// RunInTx runs fn in a READ COMMITTED transaction, retrying on
	// serialization failures and deadlocks.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// querier is implemented by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgxStore struct {
	q         querier
	forUpdate bool
}

type pgxTx struct {
	pgxStore
}

type pgxRepository struct {
	pgxStore
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{
		pgxStore: pgxStore{q: pool},
		pool:     pool,
	}
}

var sortColumns = map[string]string{
	"start_time": "b.start_time",
	"end_time":   "b.end_time",
	"created_at": "b.created_at",
	"status":     "b.status",
}

func blockingStatusValues() []string {
	values := make([]string, len(blockingStatuses))
	for i, s := range blockingStatuses {
		values[i] = string(s)
	}
	return values
}

func selectBookings() squirrel.SelectBuilder {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	return psql.Select(
		"b.id", "b.resource_id", "r.name", "c.name", "b.user_id", "u.full_name",
		"b.title", "b.description", "b.start_time", "b.end_time", "b.status",
		"b.created_at", "b.updated_at",
	).
		From("public.bookings b").
		Join("public.resources r ON b.resource_id = r.id").
		Join("public.categories c ON r.category_id = c.id").
		Join("public.users u ON b.user_id = u.id")
}

func scanBooking(row pgx.Row, extra ...any) (*Booking, error) {
	var b Booking
	dest := []any{
		&b.ID, &b.ResourceID, &b.ResourceName, &b.CategoryName, &b.UserID, &b.UserName,
		&b.Title, &b.Description, &b.StartTime, &b.EndTime, &b.Status,
		&b.CreatedAt, &b.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &b, nil
}

func collectBookings(rows pgx.Rows) ([]*Booking, error) {
	defer rows.Close()

	var result []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, errs.Wrap(err, "scan booking failed")
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(err, "iterate bookings failed")
	}
	return result, nil
}

// mapWriteError translates constraint violations into business errors.
func mapWriteError(err error, msg string) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return errs.Wrap(err, msg)
	}

	switch pgErr.Code {
	case pgerrcode.ExclusionViolation:
		return ErrResourceUnavailable
	case pgerrcode.ForeignKeyViolation:
		if pgErr.ConstraintName == "bookings_user_id_fkey" {
			return ErrUserNotFound
		}
		return ErrResourceNotFound
	case pgerrcode.CheckViolation:
		if pgErr.ConstraintName == "bookings_title_check" {
			return ErrTitleRequired
		}
		return ErrInvalidInterval
	default:
		return errs.Wrap(err, msg)
	}
}

func (s *pgxStore) FindByID(ctx context.Context, id string) (*Booking, error) {
	qb := selectBookings().Where(squirrel.Eq{"b.id": id})
	if s.forUpdate {
		qb = qb.Suffix("FOR UPDATE OF b")
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, errs.Wrap(err, "build get booking query failed")
	}

	b, err := scanBooking(s.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errs.Wrap(err, "get booking failed")
	}
	return b, nil
}

func (s *pgxStore) FindOverlapping(ctx context.Context, q OverlapQuery) ([]*Booking, error) {
	qb := selectBookings().
		Where(squirrel.Eq{"b.resource_id": q.ResourceID}).
		Where(squirrel.Eq{"b.status": blockingStatusValues()}).
		Where(squirrel.Lt{"b.start_time": q.End}).
		Where(squirrel.Gt{"b.end_time": q.Start})
	if q.ExcludeID != "" {
		qb = qb.Where(squirrel.NotEq{"b.id": q.ExcludeID})
	}

	query, args, err := qb.OrderBy("b.start_time ASC").ToSql()
	if err != nil {
		return nil, errs.Wrap(err, "build find overlapping query failed")
	}

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, errs.Wrap(err, "find overlapping bookings failed")
	}
	return collectBookings(rows)
}

func (s *pgxStore) Insert(ctx context.Context, b *Booking) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.bookings").
		Columns("resource_id", "user_id", "title", "description", "start_time", "end_time", "status").
		Values(b.ResourceID, b.UserID, b.Title, b.Description, b.StartTime, b.EndTime, string(b.Status)).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return errs.Wrap(err, "build create booking query failed")
	}

	if err := s.q.QueryRow(ctx, query, args...).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return mapWriteError(err, "create booking failed")
	}
	return nil
}

func (s *pgxStore) UpdateStatus(ctx context.Context, b *Booking) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.bookings").
		Set("status", string(b.Status)).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": b.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return errs.Wrap(err, "build update booking status query failed")
	}

	if err := s.q.QueryRow(ctx, query, args...).Scan(&b.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return mapWriteError(err, "update booking status failed")
	}
	return nil
}

func (s *pgxStore) UpdateFields(ctx context.Context, b *Booking) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.bookings").
		Set("resource_id", b.ResourceID).
		Set("title", b.Title).
		Set("description", b.Description).
		Set("start_time", b.StartTime).
		Set("end_time", b.EndTime).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": b.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return errs.Wrap(err, "build update booking query failed")
	}

	if err := s.q.QueryRow(ctx, query, args...).Scan(&b.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return mapWriteError(err, "update booking failed")
	}
	return nil
}

func (s *pgxStore) DeleteByID(ctx context.Context, id string) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Delete("public.bookings").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return errs.Wrap(err, "build delete booking query failed")
	}

	ct, err := s.q.Exec(ctx, query, args...)
	if err != nil {
		return errs.Wrap(err, "delete booking failed")
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgxTx) LockResource(ctx context.Context, id string) (resource.Status, error) {
	const query = `SELECT status FROM public.resources WHERE id = $1 FOR UPDATE`

	var status resource.Status
	if err := t.q.QueryRow(ctx, query, id).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", resource.ErrNotFound
		}
		return "", errs.Wrap(err, "lock resource failed")
	}
	return status, nil
}

func (r *pgxRepository) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return db.RunInTxWithRetry(ctx, r.pool, db.DefaultMaxRetries, func(tx pgx.Tx) error {
		return fn(ctx, &pgxTx{pgxStore{q: tx, forUpdate: true}})
	})
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Booking, int, error) {
	qb := selectBookings().Column("count(*) OVER() AS total_count")

	if filter.UserID != "" {
		qb = qb.Where(squirrel.Eq{"b.user_id": filter.UserID})
	}
	if filter.ResourceID != "" {
		qb = qb.Where(squirrel.Eq{"b.resource_id": filter.ResourceID})
	}
	if filter.CategoryID != "" {
		qb = qb.Where(squirrel.Eq{"r.category_id": filter.CategoryID})
	}
	if filter.Status != "" {
		qb = qb.Where(squirrel.Eq{"b.status": string(filter.Status)})
	}
	// Date range filtering (intersection with [From, To))
	if filter.From != nil {
		qb = qb.Where(squirrel.Gt{"b.end_time": *filter.From})
	}
	if filter.To != nil {
		qb = qb.Where(squirrel.Lt{"b.start_time": *filter.To})
	}

	orderBy, ok := sortColumns[filter.SortBy]
	if !ok {
		orderBy = "b.start_time"
	}
	orderDir := "DESC"
	if filter.SortOrder == "ASC" {
		orderDir = "ASC"
	}
	qb = qb.OrderBy(orderBy+" "+orderDir, "b.id")

	// Pagination
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize
	qb = qb.Limit(uint64(filter.PageSize)).Offset(uint64(offset))

	sql, args, err := qb.ToSql()
	if err != nil {
		return nil, 0, errs.Wrap(err, "build list bookings query failed")
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, errs.Wrap(err, "list bookings failed")
	}
	defer rows.Close()

	var bookings []*Booking
	var total int
	for rows.Next() {
		b, err := scanBooking(rows, &total)
		if err != nil {
			return nil, 0, errs.Wrap(err, "scan booking failed")
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errs.Wrap(err, "iterate bookings failed")
	}

	return bookings, total, nil
}

func (r *pgxRepository) ListUpcoming(ctx context.Context, userID string, now time.Time, limit int) ([]*Booking, error) {
	query, args, err := selectBookings().
		Where(squirrel.Eq{"b.user_id": userID}).
		Where(squirrel.Eq{"b.status": blockingStatusValues()}).
		Where(squirrel.Gt{"b.start_time": now}).
		OrderBy("b.start_time ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, errs.Wrap(err, "build upcoming bookings query failed")
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errs.Wrap(err, "list upcoming bookings failed")
	}
	return collectBookings(rows)
}

func (r *pgxRepository) ListPending(ctx context.Context, limit int) ([]*Booking, error) {
	query, args, err := selectBookings().
		Where(squirrel.Eq{"b.status": string(StatusPending)}).
		OrderBy("b.created_at ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, errs.Wrap(err, "build pending bookings query failed")
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errs.Wrap(err, "list pending bookings failed")
	}
	return collectBookings(rows)
}

func (r *pgxRepository) CompleteElapsed(ctx context.Context, now time.Time) (int64, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.bookings").
		Set("status", string(StatusCompleted)).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"status": string(StatusConfirmed)}).
		Where(squirrel.LtOrEq{"end_time": now}).
		ToSql()
	if err != nil {
		return 0, errs.Wrap(err, "build complete elapsed query failed")
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, errs.Wrap(err, "complete elapsed bookings failed")
	}
	return ct.RowsAffected(), nil
}
