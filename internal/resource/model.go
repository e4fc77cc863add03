package resource

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/resource-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound        = apperror.New(http.StatusNotFound, "resource not found")
	ErrNameRequired    = apperror.New(http.StatusBadRequest, "resource name is required")
	ErrInvalidStatus   = apperror.New(http.StatusBadRequest, "invalid resource status")
	ErrInvalidCategory = apperror.New(http.StatusBadRequest, "invalid category_id")
	ErrInvalidCapacity = apperror.New(http.StatusBadRequest, "capacity must be positive")
	ErrInUse           = apperror.New(http.StatusConflict, "resource still has bookings")
)

// Status is the operational state of a resource. Only available resources
// admit new bookings; changing it never touches existing bookings.
type Status string

const (
	StatusAvailable   Status = "available"
	StatusMaintenance Status = "maintenance"
	StatusInactive    Status = "inactive"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusAvailable, StatusMaintenance, StatusInactive:
		return true
	}
	return false
}

// Resource represents a bookable unit (e.g., Room 101, Van #3, Projector).
type Resource struct {
	ID           string
	CategoryID   string
	CategoryName string
	Name         string
	Description  string
	Location     string
	Capacity     *int
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Filter defines parameters for listing resources.
type Filter struct {
	CategoryID string
	Status     Status
	Search     string // case-insensitive match on name or location
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
