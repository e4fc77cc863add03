package http

import (
	"time"

	"github.com/nekogravitycat/resource-booking-backend/internal/booking"
	"github.com/nekogravitycat/resource-booking-backend/internal/pkg/request"
	resHttp "github.com/nekogravitycat/resource-booking-backend/internal/resource/http"
	userHttp "github.com/nekogravitycat/resource-booking-backend/internal/user/http"
)

// ListBookingsRequest defines query parameters for listing bookings.
// UserID is honoured for admins only.
type ListBookingsRequest struct {
	request.ListParams
	UserID     string     `form:"user_id" binding:"omitempty,uuid"`
	ResourceID string     `form:"resource_id" binding:"omitempty,uuid"`
	CategoryID string     `form:"category_id" binding:"omitempty,uuid"`
	Status     string     `form:"status" binding:"omitempty,oneof=pending confirmed cancelled completed"`
	From       *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To         *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	SortBy     string     `form:"sort_by" binding:"omitempty,oneof=start_time end_time created_at status"`
}

type LimitRequest struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

type BookingResponse struct {
	ID           string              `json:"id"`
	Resource     resHttp.ResourceTag `json:"resource"`
	CategoryName string              `json:"category_name"`
	User         userHttp.UserTag    `json:"user"`
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	StartTime    time.Time           `json:"start_time"`
	EndTime      time.Time           `json:"end_time"`
	Status       string              `json:"status"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

func NewResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		ID:           b.ID,
		Resource:     resHttp.ResourceTag{ID: b.ResourceID, Name: b.ResourceName},
		CategoryName: b.CategoryName,
		User:         userHttp.UserTag{ID: b.UserID, Name: b.UserName},
		Title:        b.Title,
		Description:  b.Description,
		StartTime:    b.StartTime,
		EndTime:      b.EndTime,
		Status:       string(b.Status),
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}

func newResponses(bookings []*booking.Booking) []BookingResponse {
	items := make([]BookingResponse, len(bookings))
	for i, b := range bookings {
		items[i] = NewResponse(b)
	}
	return items
}

type CreateBookingRequest struct {
	ResourceID  string    `json:"resource_id" binding:"required,uuid"`
	Title       string    `json:"title" binding:"required,max=200"`
	Description string    `json:"description" binding:"max=2000"`
	StartTime   time.Time `json:"start_time" binding:"required"`
	EndTime     time.Time `json:"end_time" binding:"required"`
}

type UpdateBookingRequest struct {
	ResourceID  *string    `json:"resource_id" binding:"omitempty,uuid"`
	Title       *string    `json:"title" binding:"omitempty,max=200"`
	Description *string    `json:"description" binding:"omitempty,max=2000"`
	StartTime   *time.Time `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
}

func (r UpdateBookingRequest) ToServiceRequest() booking.UpdateRequest {
	return booking.UpdateRequest{
		ResourceID:  r.ResourceID,
		Title:       r.Title,
		Description: r.Description,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
	}
}

type AvailabilityRequest struct {
	Start            time.Time `form:"start" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	End              time.Time `form:"end" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	ExcludeBookingID string    `form:"exclude_booking_id" binding:"omitempty,uuid"`
}

// ConflictResponse describes a colliding booking without exposing its owner or title.
type ConflictResponse struct {
	ID        string    `json:"id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Status    string    `json:"status"`
}

type AvailabilityResponse struct {
	ResourceID     string             `json:"resource_id"`
	Start          time.Time          `json:"start"`
	End            time.Time          `json:"end"`
	Available      bool               `json:"available"`
	Reason         string             `json:"reason,omitempty"`
	ResourceStatus string             `json:"resource_status"`
	Conflicts      []ConflictResponse `json:"conflicts"`
}

func NewAvailabilityResponse(resourceID string, req AvailabilityRequest, d booking.Decision) AvailabilityResponse {
	conflicts := make([]ConflictResponse, len(d.Conflicts))
	for i, b := range d.Conflicts {
		conflicts[i] = ConflictResponse{ID: b.ID, StartTime: b.StartTime, EndTime: b.EndTime, Status: string(b.Status)}
	}
	return AvailabilityResponse{
		ResourceID:     resourceID,
		Start:          req.Start,
		End:            req.End,
		Available:      d.Available,
		Reason:         string(d.Reason),
		ResourceStatus: string(d.ResourceStatus),
		Conflicts:      conflicts,
	}
}

type ScheduleRequest struct {
	From time.Time `form:"from" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	To   time.Time `form:"to" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
}

type TimeSlotResponse struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type ScheduleResponse struct {
	ResourceID     string             `json:"resource_id"`
	ResourceStatus string             `json:"resource_status"`
	From           time.Time          `json:"from"`
	To             time.Time          `json:"to"`
	Bookings       []ConflictResponse `json:"bookings"`
	FreeSlots      []TimeSlotResponse `json:"free_slots"`
}

func NewScheduleResponse(s *booking.Schedule) ScheduleResponse {
	bookings := make([]ConflictResponse, len(s.Bookings))
	for i, b := range s.Bookings {
		bookings[i] = ConflictResponse{ID: b.ID, StartTime: b.StartTime, EndTime: b.EndTime, Status: string(b.Status)}
	}
	slots := make([]TimeSlotResponse, len(s.FreeSlots))
	for i, slot := range s.FreeSlots {
		slots[i] = TimeSlotResponse{StartTime: slot.StartTime, EndTime: slot.EndTime}
	}
	return ScheduleResponse{
		ResourceID:     s.ResourceID,
		ResourceStatus: s.ResourceStatus,
		From:           s.From,
		To:             s.To,
		Bookings:       bookings,
		FreeSlots:      slots,
	}
}
