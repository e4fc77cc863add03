package http

import (
	"time"

	"github.com/nekogravitycat/resource-booking-backend/internal/category"
	"github.com/nekogravitycat/resource-booking-backend/internal/pkg/request"
)

// ListCategoriesRequest defines query parameters for listing categories.
type ListCategoriesRequest struct {
	request.ListParams
	Status string `form:"status" binding:"omitempty,oneof=active inactive"`
	SortBy string `form:"sort_by" binding:"omitempty,oneof=name created_at"`
}

// CategoryTag is the compact form embedded in other responses.
type CategoryTag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type CategoryResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Status        string    `json:"status"`
	ResourceCount int       `json:"resource_count"`
	CreatedAt     time.Time `json:"created_at"`
}

func NewResponse(c *category.Category) CategoryResponse {
	return CategoryResponse{
		ID:            c.ID,
		Name:          c.Name,
		Description:   c.Description,
		Status:        string(c.Status),
		ResourceCount: c.ResourceCount,
		CreatedAt:     c.CreatedAt,
	}
}

type CreateRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=100"`
	Description string `json:"description" binding:"max=1000"`
	Status      string `json:"status" binding:"omitempty,oneof=active inactive"`
}

type UpdateRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	Description *string `json:"description" binding:"omitempty,max=1000"`
	Status      *string `json:"status" binding:"omitempty,oneof=active inactive"`
}
