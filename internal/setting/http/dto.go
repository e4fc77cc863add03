package http

import (
	"time"

	"github.com/jinzhu/copier"
	"github.com/nekogravitycat/resource-booking-backend/internal/setting"
)

type SettingsResponse struct {
	SiteName                  string    `json:"site_name"`
	SiteDescription           string    `json:"site_description"`
	ContactEmail              string    `json:"contact_email"`
	BookingApprovalRequired   bool      `json:"booking_approval_required"`
	MaxBookingDaysAhead       int       `json:"max_booking_days_ahead"`
	MaxBookingDurationHours   int       `json:"max_booking_duration_hours"`
	NotificationEmailsEnabled bool      `json:"notification_emails_enabled"`
	CancellationPolicy        string    `json:"cancellation_policy"`
	UpdatedAt                 time.Time `json:"updated_at"`
}

func NewResponse(s *setting.Settings) (SettingsResponse, error) {
	var resp SettingsResponse
	if err := copier.Copy(&resp, s); err != nil {
		return SettingsResponse{}, err
	}
	return resp, nil
}

type UpdateRequest struct {
	SiteName                  *string `json:"site_name" binding:"omitempty,min=1,max=100"`
	SiteDescription           *string `json:"site_description" binding:"omitempty,max=500"`
	ContactEmail              *string `json:"contact_email" binding:"omitempty,email"`
	BookingApprovalRequired   *bool   `json:"booking_approval_required"`
	MaxBookingDaysAhead       *int    `json:"max_booking_days_ahead" binding:"omitempty,min=0,max=3650"`
	MaxBookingDurationHours   *int    `json:"max_booking_duration_hours" binding:"omitempty,min=0,max=8760"`
	NotificationEmailsEnabled *bool   `json:"notification_emails_enabled"`
	CancellationPolicy        *string `json:"cancellation_policy" binding:"omitempty,max=2000"`
}

// ToServiceRequest maps the body onto the service request field by field.
func (r *UpdateRequest) ToServiceRequest() (setting.UpdateRequest, error) {
	var req setting.UpdateRequest
	if err := copier.Copy(&req, r); err != nil {
		return setting.UpdateRequest{}, err
	}
	return req, nil
}
