//go:build integration

package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/nekogravitycat/resource-booking-backend/internal/booking"
	bookingHttp "github.com/nekogravitycat/resource-booking-backend/internal/booking/http"
	catHttp "github.com/nekogravitycat/resource-booking-backend/internal/category/http"
	"github.com/nekogravitycat/resource-booking-backend/internal/db"
	resHttp "github.com/nekogravitycat/resource-booking-backend/internal/resource/http"
	userHttp "github.com/nekogravitycat/resource-booking-backend/internal/user/http"
)

var (
	testPool      *pgxpool.Pool
	testContainer *Container
)

func TestMain(m *testing.M) {
	ctx := context.Background()

	pg, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "booking",
				"POSTGRES_PASSWORD": "booking",
				"POSTGRES_DB":       "booking",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("failed to start postgres container: %v", err)
	}

	host, err := pg.Host(ctx)
	if err != nil {
		log.Fatalf("failed to get container host: %v", err)
	}
	port, err := pg.MappedPort(ctx, "5432/tcp")
	if err != nil {
		log.Fatalf("failed to get container port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://booking:booking@%s:%s/booking?sslmode=disable", host, port.Port())

	if err := db.Migrate("file://../../migrations", dsn); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	testPool, err = db.NewPool(ctx, dsn)
	if err != nil {
		log.Fatalf("unable to connect to database: %v", err)
	}

	gin.SetMode(gin.TestMode)
	testContainer = NewContainer(Config{
		DBPool:     testPool,
		JWTSecret:  "integration-secret",
		JWTTTL:     30 * time.Minute,
		BcryptCost: 4, // Lower cost for testing purposes
	})

	exitCode := m.Run()

	testPool.Close()
	if err := pg.Terminate(ctx); err != nil {
		log.Printf("failed to terminate container: %v", err)
	}
	os.Exit(exitCode)
}

func clearTables(t *testing.T) {
	t.Helper()
	_, err := testPool.Exec(context.Background(),
		"TRUNCATE TABLE public.bookings, public.resources, public.categories, public.users CASCADE")
	require.NoError(t, err)
}

func executeRequest(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reqBody []byte
	if body != nil {
		reqBody, _ = json.Marshal(body)
	}

	req, _ := http.NewRequest(method, path, bytes.NewBuffer(reqBody))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	testContainer.Router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// registerAndLogin returns the new user's ID and access token.
func registerAndLogin(t *testing.T, email string) (string, string) {
	t.Helper()
	w := executeRequest(http.MethodPost, "/v1/auth/register", userHttp.RegisterRequest{
		Email: email, Password: "password123", FullName: email,
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = executeRequest(http.MethodPost, "/v1/auth/login", userHttp.LoginRequest{
		Email: email, Password: "password123",
	}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[userHttp.LoginResponse](t, w)
	return resp.User.ID, resp.AccessToken
}

func setupResource(t *testing.T, adminToken string) string {
	t.Helper()
	w := executeRequest(http.MethodPost, "/v1/categories", catHttp.CreateRequest{Name: "Meeting Rooms"}, adminToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	cat := decode[catHttp.CategoryResponse](t, w)

	w = executeRequest(http.MethodPost, "/v1/resources", resHttp.CreateRequest{CategoryID: cat.ID, Name: "Room 101"}, adminToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[resHttp.ResourceResponse](t, w).ID
}

func TestBookingLifecycle(t *testing.T) {
	clearTables(t)

	_, adminToken := registerAndLogin(t, "admin@example.com") // first user becomes admin
	aliceID, aliceToken := registerAndLogin(t, "alice@example.com")
	_, bobToken := registerAndLogin(t, "bob@example.com")
	resourceID := setupResource(t, adminToken)

	start := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Hour)
	var bookingID string

	t.Run("create pending booking", func(t *testing.T) {
		w := executeRequest(http.MethodPost, "/v1/bookings", bookingHttp.CreateBookingRequest{
			ResourceID: resourceID, Title: "Standup", StartTime: start, EndTime: start.Add(time.Hour),
		}, aliceToken)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		b := decode[bookingHttp.BookingResponse](t, w)
		assert.Equal(t, "pending", b.Status)
		assert.Equal(t, aliceID, b.User.ID)
		assert.Equal(t, "Room 101", b.Resource.Name)
		assert.Equal(t, "Meeting Rooms", b.CategoryName)
		bookingID = b.ID
	})

	t.Run("overlap is rejected and touching is accepted", func(t *testing.T) {
		w := executeRequest(http.MethodPost, "/v1/bookings", bookingHttp.CreateBookingRequest{
			ResourceID: resourceID, Title: "Clash", StartTime: start.Add(30 * time.Minute), EndTime: start.Add(90 * time.Minute),
		}, bobToken)
		assert.Equal(t, http.StatusConflict, w.Code)

		w = executeRequest(http.MethodPost, "/v1/bookings", bookingHttp.CreateBookingRequest{
			ResourceID: resourceID, Title: "Next", StartTime: start.Add(time.Hour), EndTime: start.Add(2 * time.Hour),
		}, bobToken)
		assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	})

	t.Run("availability reports the conflict", func(t *testing.T) {
		path := fmt.Sprintf("/v1/resources/%s/availability?start=%s&end=%s",
			resourceID, start.Format(time.RFC3339), start.Add(time.Hour).Format(time.RFC3339))
		w := executeRequest(http.MethodGet, path, nil, bobToken)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		resp := decode[bookingHttp.AvailabilityResponse](t, w)
		assert.False(t, resp.Available)
		require.Len(t, resp.Conflicts, 1)
		assert.Equal(t, bookingID, resp.Conflicts[0].ID)
	})

	t.Run("only owner or admin", func(t *testing.T) {
		w := executeRequest(http.MethodGet, "/v1/bookings/"+bookingID, nil, bobToken)
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = executeRequest(http.MethodPost, "/v1/bookings/"+bookingID+"/approve", nil, aliceToken)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("approve then cancel", func(t *testing.T) {
		w := executeRequest(http.MethodPost, "/v1/bookings/"+bookingID+"/approve", nil, adminToken)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "confirmed", decode[bookingHttp.BookingResponse](t, w).Status)

		w = executeRequest(http.MethodPost, "/v1/bookings/"+bookingID+"/cancel", nil, aliceToken)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = executeRequest(http.MethodPost, "/v1/bookings/"+bookingID+"/cancel", nil, aliceToken)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("cancelled slot can be booked again", func(t *testing.T) {
		w := executeRequest(http.MethodPost, "/v1/bookings", bookingHttp.CreateBookingRequest{
			ResourceID: resourceID, Title: "Retake", StartTime: start, EndTime: start.Add(time.Hour),
		}, bobToken)
		assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	})
}

func TestConcurrentCreate(t *testing.T) {
	clearTables(t)

	_, adminToken := registerAndLogin(t, "admin@example.com")
	userID, _ := registerAndLogin(t, "racer@example.com")
	resourceID := setupResource(t, adminToken)

	start := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Hour)
	const workers = 8

	var wg sync.WaitGroup
	results := make([]error, workers)
	gate := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-gate
			_, results[i] = testContainer.BookingService.Create(context.Background(), booking.CreateRequest{
				UserID:     userID,
				ResourceID: resourceID,
				Title:      fmt.Sprintf("race %d", i),
				StartTime:  start.Add(time.Duration(i) * time.Minute),
				EndTime:    start.Add(time.Hour),
			})
		}(i)
	}
	close(gate)
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, booking.ErrResourceUnavailable)
	}
	assert.Equal(t, 1, succeeded)

	var active int
	err := testPool.QueryRow(context.Background(),
		"SELECT count(*) FROM public.bookings WHERE resource_id = $1 AND status IN ('pending', 'confirmed')",
		resourceID).Scan(&active)
	require.NoError(t, err)
	assert.Equal(t, 1, active)
}

func TestExclusionConstraintBackstop(t *testing.T) {
	clearTables(t)

	_, adminToken := registerAndLogin(t, "admin@example.com")
	userID, _ := registerAndLogin(t, "raw@example.com")
	resourceID := setupResource(t, adminToken)

	start := time.Now().UTC().Add(96 * time.Hour).Truncate(time.Hour)
	insert := func(s, e time.Time, status string) error {
		_, err := testPool.Exec(context.Background(),
			`INSERT INTO public.bookings (resource_id, user_id, title, start_time, end_time, status)
			 VALUES ($1, $2, 'raw', $3, $4, $5)`,
			resourceID, userID, s, e, status)
		return err
	}

	require.NoError(t, insert(start, start.Add(time.Hour), "confirmed"))
	err := insert(start.Add(30*time.Minute), start.Add(2*time.Hour), "pending")
	assert.True(t, db.IsPgError(err, pgerrcode.ExclusionViolation), "got %v", err)

	assert.NoError(t, insert(start.Add(time.Hour), start.Add(2*time.Hour), "pending"))
	assert.NoError(t, insert(start, start.Add(time.Hour), "cancelled"))
}
