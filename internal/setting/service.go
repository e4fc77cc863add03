package setting

import (
	"context"
	"log/slog"
	"strings"
)

// UpdateRequest carries the settings to change; nil fields are left untouched.
type UpdateRequest struct {
	SiteName                  *string
	SiteDescription           *string
	ContactEmail              *string
	BookingApprovalRequired   *bool
	MaxBookingDaysAhead       *int
	MaxBookingDurationHours   *int
	NotificationEmailsEnabled *bool
	CancellationPolicy        *string
}

type Service interface {
	Get(ctx context.Context) (*Settings, error)
	Update(ctx context.Context, req UpdateRequest) (*Settings, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Get(ctx context.Context) (*Settings, error) {
	rows, updatedAt, err := s.repo.All(ctx)
	if err != nil {
		return nil, err
	}
	settings := fromRows(rows)
	settings.UpdatedAt = updatedAt
	return &settings, nil
}

func (s *service) Update(ctx context.Context, req UpdateRequest) (*Settings, error) {
	current, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	next := *current

	if req.SiteName != nil {
		name := strings.TrimSpace(*req.SiteName)
		if name == "" {
			return nil, ErrInvalidValue
		}
		next.SiteName = name
	}
	if req.SiteDescription != nil {
		next.SiteDescription = strings.TrimSpace(*req.SiteDescription)
	}
	if req.ContactEmail != nil {
		email := strings.TrimSpace(*req.ContactEmail)
		if email != "" && !strings.Contains(email, "@") {
			return nil, ErrInvalidValue
		}
		next.ContactEmail = email
	}
	if req.BookingApprovalRequired != nil {
		next.BookingApprovalRequired = *req.BookingApprovalRequired
	}
	if req.MaxBookingDaysAhead != nil {
		if *req.MaxBookingDaysAhead < 0 {
			return nil, ErrInvalidValue
		}
		next.MaxBookingDaysAhead = *req.MaxBookingDaysAhead
	}
	if req.MaxBookingDurationHours != nil {
		if *req.MaxBookingDurationHours < 0 {
			return nil, ErrInvalidValue
		}
		next.MaxBookingDurationHours = *req.MaxBookingDurationHours
	}
	if req.NotificationEmailsEnabled != nil {
		next.NotificationEmailsEnabled = *req.NotificationEmailsEnabled
	}
	if req.CancellationPolicy != nil {
		next.CancellationPolicy = strings.TrimSpace(*req.CancellationPolicy)
	}

	changed := diff(current.rows(), next.rows())
	if len(changed) == 0 {
		return current, nil
	}
	if err := s.repo.Upsert(ctx, changed); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "settings updated", "keys", len(changed))

	return s.Get(ctx)
}

func diff(before, after map[string]string) map[string]string {
	changed := make(map[string]string)
	for k, v := range after {
		if before[k] != v {
			changed[k] = v
		}
	}
	return changed
}
