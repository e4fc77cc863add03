package setting

import (
	"net/http"
	"strconv"
	"time"

	"github.com/nekogravitycat/resource-booking-backend/internal/pkg/apperror"
)

var (
	ErrInvalidValue = apperror.New(http.StatusBadRequest, "invalid setting value")
)

// Keys of the rows stored in public.settings.
const (
	KeySiteName                  = "site_name"
	KeySiteDescription           = "site_description"
	KeyContactEmail              = "contact_email"
	KeyBookingApprovalRequired   = "booking_approval_required"
	KeyMaxBookingDaysAhead       = "max_booking_days_ahead"
	KeyMaxBookingDurationHours   = "max_booking_duration_hours"
	KeyNotificationEmailsEnabled = "notification_emails_enabled"
	KeyCancellationPolicy        = "cancellation_policy"
)

// Settings is the typed view of the key/value settings table.
// A zero MaxBookingDaysAhead or MaxBookingDurationHours disables that limit.
type Settings struct {
	SiteName                  string
	SiteDescription           string
	ContactEmail              string
	BookingApprovalRequired   bool
	MaxBookingDaysAhead       int
	MaxBookingDurationHours   int
	NotificationEmailsEnabled bool
	CancellationPolicy        string
	UpdatedAt                 time.Time
}

func Defaults() Settings {
	return Settings{
		SiteName:                  "Booking System",
		SiteDescription:           "Resource booking management system",
		ContactEmail:              "admin@example.com",
		BookingApprovalRequired:   true,
		MaxBookingDaysAhead:       30,
		MaxBookingDurationHours:   8,
		NotificationEmailsEnabled: true,
		CancellationPolicy:        "Bookings can be cancelled up to 24 hours before the scheduled time.",
	}
}

// MaxDuration returns the longest allowed booking, or 0 when unlimited.
func (s Settings) MaxDuration() time.Duration {
	return time.Duration(s.MaxBookingDurationHours) * time.Hour
}

// LatestStart returns the latest admissible start time relative to now,
// or the zero time when unlimited.
func (s Settings) LatestStart(now time.Time) time.Time {
	if s.MaxBookingDaysAhead <= 0 {
		return time.Time{}
	}
	return now.AddDate(0, 0, s.MaxBookingDaysAhead)
}

// fromRows overlays stored rows on the defaults. Unknown keys are ignored and
// unparsable values keep their default.
func fromRows(rows map[string]string) Settings {
	s := Defaults()
	for k, v := range rows {
		switch k {
		case KeySiteName:
			s.SiteName = v
		case KeySiteDescription:
			s.SiteDescription = v
		case KeyContactEmail:
			s.ContactEmail = v
		case KeyBookingApprovalRequired:
			if b, err := strconv.ParseBool(v); err == nil {
				s.BookingApprovalRequired = b
			}
		case KeyMaxBookingDaysAhead:
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				s.MaxBookingDaysAhead = n
			}
		case KeyMaxBookingDurationHours:
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				s.MaxBookingDurationHours = n
			}
		case KeyNotificationEmailsEnabled:
			if b, err := strconv.ParseBool(v); err == nil {
				s.NotificationEmailsEnabled = b
			}
		case KeyCancellationPolicy:
			s.CancellationPolicy = v
		}
	}
	return s
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func (s Settings) rows() map[string]string {
	return map[string]string{
		KeySiteName:                  s.SiteName,
		KeySiteDescription:           s.SiteDescription,
		KeyContactEmail:              s.ContactEmail,
		KeyBookingApprovalRequired:   formatBool(s.BookingApprovalRequired),
		KeyMaxBookingDaysAhead:       strconv.Itoa(s.MaxBookingDaysAhead),
		KeyMaxBookingDurationHours:   strconv.Itoa(s.MaxBookingDurationHours),
		KeyNotificationEmailsEnabled: formatBool(s.NotificationEmailsEnabled),
		KeyCancellationPolicy:        s.CancellationPolicy,
	}
}
