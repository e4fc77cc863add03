package booking

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapWriteError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{"overlap", &pgconn.PgError{Code: pgerrcode.ExclusionViolation, ConstraintName: "bookings_no_overlap"}, ErrResourceUnavailable},
		{"missing resource", &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, ConstraintName: "bookings_resource_id_fkey"}, ErrResourceNotFound},
		{"missing user", &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, ConstraintName: "bookings_user_id_fkey"}, ErrUserNotFound},
		{"blank title", &pgconn.PgError{Code: pgerrcode.CheckViolation, ConstraintName: "bookings_title_check"}, ErrTitleRequired},
		{"time range", &pgconn.PgError{Code: pgerrcode.CheckViolation, ConstraintName: "bookings_time_range_check"}, ErrInvalidInterval},
		{"wrapped", fmt.Errorf("insert: %w", &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, ConstraintName: "bookings_user_id_fkey"}), ErrUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapWriteError(tt.err, "insert booking failed"), tt.wantErr)
		})
	}

	t.Run("other errors are wrapped", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := mapWriteError(cause, "insert booking failed")
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "insert booking failed")
	})
}
