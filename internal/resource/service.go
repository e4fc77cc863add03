package resource

import (
	"context"
	"errors"
	"strings"

	"github.com/nekogravitycat/resource-booking-backend/internal/category"
)

type CreateRequest struct {
	CategoryID  string
	Name        string
	Description string
	Location    string
	Capacity    *int
	Status      Status
}

type UpdateRequest struct {
	CategoryID  *string
	Name        *string
	Description *string
	Location    *string
	Capacity    *int
	Status      *Status
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Resource, error)
	GetByID(ctx context.Context, id string) (*Resource, error)
	List(ctx context.Context, filter Filter) ([]*Resource, int, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*Resource, error)
	Delete(ctx context.Context, id string) error

	// ResourceStatus reports the current status of a resource, or ErrNotFound.
	ResourceStatus(ctx context.Context, id string) (Status, error)
}

type service struct {
	repo       Repository
	catService category.Service
}

func NewService(repo Repository, catService category.Service) Service {
	return &service{
		repo:       repo,
		catService: catService,
	}
}

func (s *service) checkCategory(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidCategory
	}
	if _, err := s.catService.GetByID(ctx, id); err != nil {
		if errors.Is(err, category.ErrNotFound) {
			return ErrInvalidCategory
		}
		return err
	}
	return nil
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Resource, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if req.Status == "" {
		req.Status = StatusAvailable
	}
	if !req.Status.IsValid() {
		return nil, ErrInvalidStatus
	}
	if req.Capacity != nil && *req.Capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	if err := s.checkCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	res := &Resource{
		CategoryID:  req.CategoryID,
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Location:    strings.TrimSpace(req.Location),
		Capacity:    req.Capacity,
		Status:      req.Status,
	}

	if err := s.repo.Create(ctx, res); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, res.ID)
}

func (s *service) GetByID(ctx context.Context, id string) (*Resource, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ResourceStatus(ctx context.Context, id string) (Status, error) {
	return s.repo.GetStatus(ctx, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Resource, int, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, 0, ErrInvalidStatus
	}
	filter.Search = strings.TrimSpace(filter.Search)
	return s.repo.List(ctx, filter)
}

func (s *service) Update(ctx context.Context, id string, req UpdateRequest) (*Resource, error) {
	res, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		res.Name = name
	}
	if req.CategoryID != nil && *req.CategoryID != res.CategoryID {
		if err := s.checkCategory(ctx, *req.CategoryID); err != nil {
			return nil, err
		}
		res.CategoryID = *req.CategoryID
	}
	if req.Description != nil {
		res.Description = strings.TrimSpace(*req.Description)
	}
	if req.Location != nil {
		res.Location = strings.TrimSpace(*req.Location)
	}
	if req.Capacity != nil {
		if *req.Capacity <= 0 {
			return nil, ErrInvalidCapacity
		}
		res.Capacity = req.Capacity
	}
	if req.Status != nil {
		if !req.Status.IsValid() {
			return nil, ErrInvalidStatus
		}
		res.Status = *req.Status
	}

	if err := s.repo.Update(ctx, res); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// Delete removes a resource. Resources referenced by any booking are refused
// by the foreign key and reported as ErrInUse.
func (s *service) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
