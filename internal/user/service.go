package user

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/nekogravitycat/resource-booking-backend/internal/auth"
	"github.com/nekogravitycat/resource-booking-backend/internal/pkg/errs"
)

type RegisterRequest struct {
	Email    string
	Password string
	FullName string
}

// UpdateRequest holds the admin-editable fields; nil means unchanged.
type UpdateRequest struct {
	FullName *string
	Role     *Role
	IsActive *bool
}

// ProfileRequest holds the fields a user may change on their own account.
type ProfileRequest struct {
	FullName *string
	Email    *string
}

// PasswordChangeRequest replaces the caller's password. Confirm must repeat New.
type PasswordChangeRequest struct {
	Current string
	New     string
	Confirm string
}

// Service defines business logic related to users.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*User, error)
	Login(ctx context.Context, email, password string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	List(ctx context.Context, filter Filter) ([]*User, int, error)
	Update(ctx context.Context, id string, req UpdateRequest, actorID string) (*User, error)
	UpdateProfile(ctx context.Context, id string, req ProfileRequest) (*User, error)
	ChangePassword(ctx context.Context, id string, req PasswordChangeRequest) error
}

type service struct {
	repo   Repository
	hasher auth.PasswordHasher
	now    func() time.Time

	minPasswordLength int
}

// NewService creates a new user Service.
func NewService(repo Repository, hasher auth.PasswordHasher) Service {
	return &service{
		repo:              repo,
		hasher:            hasher,
		now:               time.Now,
		minPasswordLength: 8,
	}
}

// Register creates an active account. The very first account becomes an
// admin so a fresh installation can be administered.
func (s *service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	cleanEmail := normalizeEmail(req.Email)
	if cleanEmail == "" {
		return nil, ErrEmailRequired
	}
	if len(req.Password) < s.minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	_, err := s.repo.GetByEmail(ctx, cleanEmail)
	if err == nil {
		return nil, ErrEmailAlreadyUsed
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, errs.Wrap(err, "failed to hash password")
	}

	u := &User{
		Email:        cleanEmail,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(req.FullName),
		Role:         RoleUser,
		IsActive:     true,
	}

	err = s.repo.WithRegistrationLock(ctx, func(ctx context.Context, repo Repository) error {
		count, err := repo.Count(ctx)
		if err != nil {
			return err
		}
		if count == 0 {
			u.Role = RoleAdmin
		}
		return repo.Create(ctx, u)
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "user registered", "user_id", u.ID, "role", u.Role)
	return u, nil
}

func (s *service) Login(ctx context.Context, email, password string) (*User, error) {
	cleanEmail := normalizeEmail(email)
	if cleanEmail == "" || strings.TrimSpace(password) == "" {
		return nil, ErrInvalidCredentials
	}

	u, err := s.repo.GetByEmail(ctx, cleanEmail)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !u.IsActive {
		return nil, ErrInactiveUser
	}

	// Best effort; login succeeds even if this write fails.
	now := s.now().UTC()
	if err := s.repo.UpdateLastLogin(ctx, u.ID, now); err != nil {
		slog.WarnContext(ctx, "failed to update last login", "user_id", u.ID, "error", err)
	} else {
		u.LastLoginAt = &now
	}

	return u, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*User, int, error) {
	if filter.Role != "" && !filter.Role.IsValid() {
		return nil, 0, ErrInvalidRole
	}
	return s.repo.List(ctx, filter)
}

func (s *service) Update(ctx context.Context, id string, req UpdateRequest, actorID string) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		u.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Role != nil {
		if !req.Role.IsValid() {
			return nil, ErrInvalidRole
		}
		if id == actorID && *req.Role != RoleAdmin {
			return nil, ErrSelfDemotion
		}
		u.Role = *req.Role
	}
	if req.IsActive != nil {
		if id == actorID && !*req.IsActive {
			return nil, ErrSelfDemotion
		}
		u.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// UpdateProfile changes the caller's own name and email.
func (s *service) UpdateProfile(ctx context.Context, id string, req ProfileRequest) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		u.FullName = strings.TrimSpace(*req.FullName)
		if u.FullName == "" {
			return nil, ErrFullNameRequired
		}
	}
	if req.Email != nil {
		cleanEmail := normalizeEmail(*req.Email)
		if cleanEmail == "" {
			return nil, ErrEmailRequired
		}
		if cleanEmail != u.Email {
			other, err := s.repo.GetByEmail(ctx, cleanEmail)
			if err == nil && other.ID != u.ID {
				return nil, ErrEmailAlreadyUsed
			}
			if err != nil && !errors.Is(err, ErrNotFound) {
				return nil, err
			}
		}
		u.Email = cleanEmail
	}

	if err := s.repo.UpdateProfile(ctx, u); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "profile updated", "user_id", u.ID)
	return u, nil
}

// ChangePassword verifies the current password before storing the new one.
func (s *service) ChangePassword(ctx context.Context, id string, req PasswordChangeRequest) error {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if req.Current == "" || s.hasher.Compare(u.PasswordHash, req.Current) != nil {
		return ErrWrongPassword
	}
	if len(req.New) < s.minPasswordLength {
		return ErrPasswordTooShort
	}
	if req.New != req.Confirm {
		return ErrPasswordMismatch
	}

	hash, err := s.hasher.Hash(req.New)
	if err != nil {
		return errs.Wrap(err, "failed to hash password")
	}
	if err := s.repo.UpdatePassword(ctx, u.ID, hash); err != nil {
		return err
	}

	slog.InfoContext(ctx, "password changed", "user_id", u.ID)
	return nil
}

// normalizeEmail trims spaces and lowercases the email.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
