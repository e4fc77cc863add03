package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nekogravitycat/resource-booking-backend/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	args := m.Called(ctx, email)
	if u, ok := args.Get(0).(*User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepository) GetByID(ctx context.Context, id string) (*User, error) {
	args := m.Called(ctx, id)
	if u, ok := args.Get(0).(*User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockRepository) Create(ctx context.Context, u *User) error {
	args := m.Called(ctx, u)
	if args.Error(0) == nil {
		u.ID = "user-1"
	}
	return args.Error(0)
}

func (m *mockRepository) UpdateLastLogin(ctx context.Context, id string, t time.Time) error {
	return m.Called(ctx, id, t).Error(0)
}

func (m *mockRepository) List(ctx context.Context, filter Filter) ([]*User, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*User), args.Int(1), args.Error(2)
}

func (m *mockRepository) Update(ctx context.Context, u *User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockRepository) UpdateProfile(ctx context.Context, u *User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return m.Called(ctx, id, passwordHash).Error(0)
}

// WithRegistrationLock runs fn against the mock itself once the lock call is
// allowed by the expectations.
func (m *mockRepository) WithRegistrationLock(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error {
	if err := m.Called(ctx).Error(0); err != nil {
		return err
	}
	return fn(ctx, m)
}

func newTestService(repo Repository) Service {
	return NewService(repo, auth.NewBcryptPasswordHasherWithCost(bcrypt.MinCost))
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("first user becomes admin", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("GetByEmail", ctx, "alice@example.com").Return(nil, ErrNotFound)
		repo.On("WithRegistrationLock", ctx).Return(nil)
		repo.On("Count", ctx).Return(0, nil)
		repo.On("Create", ctx, mock.MatchedBy(func(u *User) bool {
			return u.Role == RoleAdmin && u.IsActive && u.PasswordHash != "password123"
		})).Return(nil)

		u, err := newTestService(repo).Register(ctx, RegisterRequest{
			Email: "  Alice@Example.com ", Password: "password123", FullName: "Alice",
		})
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", u.Email)
		assert.True(t, u.IsAdmin())
		repo.AssertExpectations(t)
	})

	t.Run("later users are plain users", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("GetByEmail", ctx, "bob@example.com").Return(nil, ErrNotFound)
		repo.On("WithRegistrationLock", ctx).Return(nil)
		repo.On("Count", ctx).Return(3, nil)
		repo.On("Create", ctx, mock.MatchedBy(func(u *User) bool { return u.Role == RoleUser })).Return(nil)

		u, err := newTestService(repo).Register(ctx, RegisterRequest{Email: "bob@example.com", Password: "password123"})
		require.NoError(t, err)
		assert.False(t, u.IsAdmin())
	})

	t.Run("count and insert run under the registration lock", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("GetByEmail", ctx, "bob@example.com").Return(nil, ErrNotFound)
		repo.On("WithRegistrationLock", ctx).Return(errors.New("lock timeout"))

		_, err := newTestService(repo).Register(ctx, RegisterRequest{Email: "bob@example.com", Password: "password123"})
		assert.EqualError(t, err, "lock timeout")
		repo.AssertNotCalled(t, "Count", mock.Anything)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("duplicate email", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("GetByEmail", ctx, "bob@example.com").Return(&User{ID: "u-0"}, nil)

		_, err := newTestService(repo).Register(ctx, RegisterRequest{Email: "bob@example.com", Password: "password123"})
		assert.ErrorIs(t, err, ErrEmailAlreadyUsed)
	})

	t.Run("short password", func(t *testing.T) {
		_, err := newTestService(new(mockRepository)).Register(ctx, RegisterRequest{Email: "bob@example.com", Password: "short"})
		assert.ErrorIs(t, err, ErrPasswordTooShort)
	})
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()
	hasher := auth.NewBcryptPasswordHasherWithCost(bcrypt.MinCost)
	hash, err := hasher.Hash("password123")
	require.NoError(t, err)

	t.Run("success records last login", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("GetByEmail", ctx, "alice@example.com").Return(&User{ID: "u-1", PasswordHash: hash, IsActive: true}, nil)
		repo.On("UpdateLastLogin", ctx, "u-1", mock.AnythingOfType("time.Time")).Return(nil)

		u, err := newTestService(repo).Login(ctx, "alice@example.com", "password123")
		require.NoError(t, err)
		assert.NotNil(t, u.LastLoginAt)
	})

	t.Run("last login failure does not block login", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("GetByEmail", ctx, "alice@example.com").Return(&User{ID: "u-1", PasswordHash: hash, IsActive: true}, nil)
		repo.On("UpdateLastLogin", ctx, "u-1", mock.Anything).Return(errors.New("db down"))

		_, err := newTestService(repo).Login(ctx, "alice@example.com", "password123")
		assert.NoError(t, err)
	})

	t.Run("wrong password", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("GetByEmail", ctx, "alice@example.com").Return(&User{ID: "u-1", PasswordHash: hash, IsActive: true}, nil)

		_, err := newTestService(repo).Login(ctx, "alice@example.com", "nope-nope")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("inactive", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("GetByEmail", ctx, "alice@example.com").Return(&User{ID: "u-1", PasswordHash: hash, IsActive: false}, nil)

		_, err := newTestService(repo).Login(ctx, "alice@example.com", "password123")
		assert.ErrorIs(t, err, ErrInactiveUser)
	})

	t.Run("unknown email", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("GetByEmail", ctx, "ghost@example.com").Return(nil, ErrNotFound)

		_, err := newTestService(repo).Login(ctx, "ghost@example.com", "password123")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestService_UpdateSelfDemotion(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepository)
	repo.On("GetByID", ctx, "admin-1").Return(&User{ID: "admin-1", Role: RoleAdmin, IsActive: true}, nil)

	role := RoleUser
	_, err := newTestService(repo).Update(ctx, "admin-1", UpdateRequest{Role: &role}, "admin-1")
	assert.ErrorIs(t, err, ErrSelfDemotion)

	inactive := false
	_, err = newTestService(repo).Update(ctx, "admin-1", UpdateRequest{IsActive: &inactive}, "admin-1")
	assert.ErrorIs(t, err, ErrSelfDemotion)
}

func TestService_UpdateProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("changes name and email", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("GetByID", ctx, "u-1").Return(&User{ID: "u-1", Email: "alice@example.com", FullName: "Alice"}, nil)
		repo.On("GetByEmail", ctx, "alice@corp.example.com").Return(nil, ErrNotFound)
		repo.On("UpdateProfile", ctx, mock.MatchedBy(func(u *User) bool {
			return u.FullName == "Alice Liddell" && u.Email == "alice@corp.example.com"
		})).Return(nil)

		name := " Alice Liddell "
		email := "Alice@Corp.example.com"
		u, err := newTestService(repo).UpdateProfile(ctx, "u-1", ProfileRequest{FullName: &name, Email: &email})
		require.NoError(t, err)
		assert.Equal(t, "alice@corp.example.com", u.Email)
		repo.AssertExpectations(t)
	})

	t.Run("unchanged email skips lookup", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("GetByID", ctx, "u-1").Return(&User{ID: "u-1", Email: "alice@example.com", FullName: "Alice"}, nil)
		repo.On("UpdateProfile", ctx, mock.Anything).Return(nil)

		email := "alice@example.com"
		_, err := newTestService(repo).UpdateProfile(ctx, "u-1", ProfileRequest{Email: &email})
		require.NoError(t, err)
		repo.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
	})

	t.Run("email taken by another account", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("GetByID", ctx, "u-1").Return(&User{ID: "u-1", Email: "alice@example.com", FullName: "Alice"}, nil)
		repo.On("GetByEmail", ctx, "bob@example.com").Return(&User{ID: "u-2"}, nil)

		email := "bob@example.com"
		_, err := newTestService(repo).UpdateProfile(ctx, "u-1", ProfileRequest{Email: &email})
		assert.ErrorIs(t, err, ErrEmailAlreadyUsed)
		repo.AssertNotCalled(t, "UpdateProfile", mock.Anything, mock.Anything)
	})

	t.Run("email taken concurrently", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("GetByID", ctx, "u-1").Return(&User{ID: "u-1", Email: "alice@example.com", FullName: "Alice"}, nil)
		repo.On("GetByEmail", ctx, "bob@example.com").Return(nil, ErrNotFound)
		repo.On("UpdateProfile", ctx, mock.Anything).Return(ErrEmailAlreadyUsed)

		email := "bob@example.com"
		_, err := newTestService(repo).UpdateProfile(ctx, "u-1", ProfileRequest{Email: &email})
		assert.ErrorIs(t, err, ErrEmailAlreadyUsed)
	})

	t.Run("blank fields", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("GetByID", ctx, "u-1").Return(&User{ID: "u-1", Email: "alice@example.com", FullName: "Alice"}, nil)

		blank := "  "
		_, err := newTestService(repo).UpdateProfile(ctx, "u-1", ProfileRequest{FullName: &blank})
		assert.ErrorIs(t, err, ErrFullNameRequired)

		_, err = newTestService(repo).UpdateProfile(ctx, "u-1", ProfileRequest{Email: &blank})
		assert.ErrorIs(t, err, ErrEmailRequired)
	})
}

func TestService_ChangePassword(t *testing.T) {
	ctx := context.Background()
	hasher := auth.NewBcryptPasswordHasherWithCost(bcrypt.MinCost)
	hash, err := hasher.Hash("password123")
	require.NoError(t, err)

	current := func() *User { return &User{ID: "u-1", PasswordHash: hash, IsActive: true} }

	t.Run("stores a new hash", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("GetByID", ctx, "u-1").Return(current(), nil)
		repo.On("UpdatePassword", ctx, "u-1", mock.MatchedBy(func(h string) bool {
			return hasher.Compare(h, "new-secret-1") == nil
		})).Return(nil)

		err := newTestService(repo).ChangePassword(ctx, "u-1", PasswordChangeRequest{
			Current: "password123", New: "new-secret-1", Confirm: "new-secret-1",
		})
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	tests := []struct {
		name    string
		req     PasswordChangeRequest
		wantErr error
	}{
		{"missing current", PasswordChangeRequest{New: "new-secret-1", Confirm: "new-secret-1"}, ErrWrongPassword},
		{"wrong current", PasswordChangeRequest{Current: "password124", New: "new-secret-1", Confirm: "new-secret-1"}, ErrWrongPassword},
		{"too short", PasswordChangeRequest{Current: "password123", New: "short", Confirm: "short"}, ErrPasswordTooShort},
		{"confirmation differs", PasswordChangeRequest{Current: "password123", New: "new-secret-1", Confirm: "new-secret-2"}, ErrPasswordMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mockRepository)
			repo.On("GetByID", ctx, "u-1").Return(current(), nil)

			err := newTestService(repo).ChangePassword(ctx, "u-1", tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
			repo.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}
