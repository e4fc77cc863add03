package category

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/resource-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound      = apperror.New(http.StatusNotFound, "category not found")
	ErrNameRequired  = apperror.New(http.StatusBadRequest, "category name is required")
	ErrNameTaken     = apperror.New(http.StatusConflict, "category name already exists")
	ErrInvalidStatus = apperror.New(http.StatusBadRequest, "invalid category status")
	ErrInUse         = apperror.New(http.StatusConflict, "category still has resources")
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusInactive
}

// Category groups resources of the same kind (e.g. Meeting Rooms, Vehicles).
type Category struct {
	ID            string
	Name          string
	Description   string
	Status        Status
	ResourceCount int
	CreatedAt     time.Time
}

// Filter defines parameters for listing categories.
type Filter struct {
	Status    Status
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
