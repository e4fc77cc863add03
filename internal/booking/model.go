package booking

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/resource-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound            = apperror.New(http.StatusNotFound, "booking not found")
	ErrInvalidInterval     = apperror.New(http.StatusBadRequest, "start time must be before end time")
	ErrResourceUnavailable = apperror.New(http.StatusConflict, "resource is not available for the requested time")
	ErrResourceNotFound    = apperror.New(http.StatusNotFound, "resource not found")
	ErrUserNotFound        = apperror.New(http.StatusNotFound, "user not found")
	ErrInvalidState        = apperror.New(http.StatusConflict, "booking status does not allow this operation")
	ErrInvalidStatus       = apperror.New(http.StatusBadRequest, "invalid booking status")
	ErrTitleRequired       = apperror.New(http.StatusBadRequest, "booking title is required")
	ErrStartTimePast       = apperror.New(http.StatusBadRequest, "cannot create booking in the past")
	ErrRescheduleIntoPast  = apperror.New(http.StatusBadRequest, "cannot move a booking to start in the past")
	ErrDurationExceeded    = apperror.New(http.StatusBadRequest, "booking exceeds the maximum allowed duration")
	ErrTooFarAhead         = apperror.New(http.StatusBadRequest, "booking starts too far in the future")
	ErrPermissionDenied    = apperror.New(http.StatusForbidden, "permission denied")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// validTransitions defines the booking state machine.
var validTransitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCancelled, StatusCompleted},
	StatusCancelled: {},
	StatusCompleted: {},
}

// blockingStatuses are the statuses that occupy a resource's schedule.
var blockingStatuses = []Status{StatusPending, StatusConfirmed}

func (s Status) IsValid() bool {
	_, ok := validTransitions[s]
	return ok
}

func (s Status) CanTransitionTo(target Status) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
// Unknown statuses are treated as terminal.
func (s Status) IsTerminal() bool {
	return len(validTransitions[s]) == 0
}

// Blocks reports whether a booking in this status participates in conflict checks.
func (s Status) Blocks() bool {
	return s == StatusPending || s == StatusConfirmed
}

func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.IsValid() {
		return "", ErrInvalidStatus
	}
	return status, nil
}

type Booking struct {
	ID           string
	ResourceID   string
	ResourceName string
	CategoryName string
	UserID       string
	UserName     string
	Title        string
	Description  string
	StartTime    time.Time
	EndTime      time.Time
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Filter struct {
	UserID     string
	ResourceID string
	CategoryID string
	Status     Status
	From       *time.Time // bookings ending after this time
	To         *time.Time // bookings starting before this time
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// TimeSlot is a half-open interval [StartTime, EndTime).
type TimeSlot struct {
	StartTime time.Time
	EndTime   time.Time
}

// Schedule is the calendar view of one resource over a window.
type Schedule struct {
	ResourceID     string
	ResourceStatus string
	From           time.Time
	To             time.Time
	Bookings       []*Booking
	FreeSlots      []TimeSlot
}
