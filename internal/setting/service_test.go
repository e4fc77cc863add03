package setting

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepository struct {
	rows    map[string]string
	upserts []map[string]string
}

func (m *memRepository) All(_ context.Context) (map[string]string, time.Time, error) {
	out := make(map[string]string, len(m.rows))
	for k, v := range m.rows {
		out[k] = v
	}
	return out, time.Time{}, nil
}

func (m *memRepository) Upsert(_ context.Context, rows map[string]string) error {
	m.upserts = append(m.upserts, rows)
	for k, v := range rows {
		m.rows[k] = v
	}
	return nil
}

func TestService_GetOverlaysDefaults(t *testing.T) {
	repo := &memRepository{rows: map[string]string{
		KeyBookingApprovalRequired: "0",
		KeyMaxBookingDaysAhead:     "14",
		KeyMaxBookingDurationHours: "not-a-number",
		"legacy_key":               "ignored",
	}}

	s, err := NewService(repo).Get(context.Background())
	require.NoError(t, err)

	assert.False(t, s.BookingApprovalRequired)
	assert.Equal(t, 14, s.MaxBookingDaysAhead)
	assert.Equal(t, 8, s.MaxBookingDurationHours, "unparsable values keep the default")
	assert.Equal(t, "Booking System", s.SiteName)
	assert.Equal(t, 8*time.Hour, s.MaxDuration())
}

func TestService_UpdateWritesOnlyChangedKeys(t *testing.T) {
	repo := &memRepository{rows: fromRowsDefaults()}
	svc := NewService(repo)

	approval := false
	days := 30 // unchanged
	s, err := svc.Update(context.Background(), UpdateRequest{
		BookingApprovalRequired: &approval,
		MaxBookingDaysAhead:     &days,
	})
	require.NoError(t, err)

	assert.False(t, s.BookingApprovalRequired)
	require.Len(t, repo.upserts, 1)
	assert.Equal(t, map[string]string{KeyBookingApprovalRequired: "0"}, repo.upserts[0])
}

func TestService_UpdateValidation(t *testing.T) {
	svc := NewService(&memRepository{rows: map[string]string{}})
	ctx := context.Background()

	neg := -1
	_, err := svc.Update(ctx, UpdateRequest{MaxBookingDurationHours: &neg})
	assert.ErrorIs(t, err, ErrInvalidValue)

	blank := "  "
	_, err = svc.Update(ctx, UpdateRequest{SiteName: &blank})
	assert.ErrorIs(t, err, ErrInvalidValue)

	email := "not-an-email"
	_, err = svc.Update(ctx, UpdateRequest{ContactEmail: &email})
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestSettings_LatestStart(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	s := Defaults()
	assert.Equal(t, time.Date(2026, 3, 31, 9, 0, 0, 0, time.UTC), s.LatestStart(now))

	s.MaxBookingDaysAhead = 0
	assert.True(t, s.LatestStart(now).IsZero())
}

func fromRowsDefaults() map[string]string {
	return Defaults().rows()
}
