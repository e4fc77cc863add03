package http

import (
	"time"

	catHttp "github.com/nekogravitycat/resource-booking-backend/internal/category/http"
	"github.com/nekogravitycat/resource-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/resource-booking-backend/internal/resource"
)

// ListResourcesRequest defines query parameters for listing resources.
type ListResourcesRequest struct {
	request.ListParams
	CategoryID string `form:"category_id" binding:"omitempty,uuid"`
	Status     string `form:"status" binding:"omitempty,oneof=available maintenance inactive"`
	Search     string `form:"q" binding:"omitempty,max=100"`
	SortBy     string `form:"sort_by" binding:"omitempty,oneof=name status created_at"`
}

// ResourceTag is the compact form embedded in booking responses.
type ResourceTag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ResourceResponse struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Category    catHttp.CategoryTag `json:"category"`
	Description string              `json:"description"`
	Location    string              `json:"location"`
	Capacity    *int                `json:"capacity"`
	Status      string              `json:"status"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

func NewResponse(r *resource.Resource) ResourceResponse {
	return ResourceResponse{
		ID:          r.ID,
		Name:        r.Name,
		Category:    catHttp.CategoryTag{ID: r.CategoryID, Name: r.CategoryName},
		Description: r.Description,
		Location:    r.Location,
		Capacity:    r.Capacity,
		Status:      string(r.Status),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type CreateRequest struct {
	CategoryID  string `json:"category_id" binding:"required,uuid"`
	Name        string `json:"name" binding:"required,min=1,max=100"`
	Description string `json:"description" binding:"max=2000"`
	Location    string `json:"location" binding:"max=200"`
	Capacity    *int   `json:"capacity" binding:"omitempty,min=1"`
	Status      string `json:"status" binding:"omitempty,oneof=available maintenance inactive"`
}

type UpdateRequest struct {
	CategoryID  *string `json:"category_id" binding:"omitempty,uuid"`
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
	Location    *string `json:"location" binding:"omitempty,max=200"`
	Capacity    *int    `json:"capacity" binding:"omitempty,min=1"`
	Status      *string `json:"status" binding:"omitempty,oneof=available maintenance inactive"`
}
