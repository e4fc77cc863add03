package resource

import (
	"context"
	"testing"

	"github.com/nekogravitycat/resource-booking-backend/internal/category"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) Create(ctx context.Context, res *Resource) error {
	args := m.Called(ctx, res)
	if args.Error(0) == nil {
		res.ID = "res-1"
	}
	return args.Error(0)
}

func (m *mockRepository) GetByID(ctx context.Context, id string) (*Resource, error) {
	args := m.Called(ctx, id)
	if r, ok := args.Get(0).(*Resource); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepository) GetStatus(ctx context.Context, id string) (Status, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Status), args.Error(1)
}

func (m *mockRepository) List(ctx context.Context, filter Filter) ([]*Resource, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*Resource), args.Int(1), args.Error(2)
}

func (m *mockRepository) Update(ctx context.Context, res *Resource) error {
	return m.Called(ctx, res).Error(0)
}

func (m *mockRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockCategoryService struct {
	category.Service
	mock.Mock
}

func (m *mockCategoryService) GetByID(ctx context.Context, id string) (*category.Category, error) {
	args := m.Called(ctx, id)
	if c, ok := args.Get(0).(*category.Category); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults to available", func(t *testing.T) {
		repo := new(mockRepository)
		cats := new(mockCategoryService)
		cats.On("GetByID", ctx, "cat-1").Return(&category.Category{ID: "cat-1"}, nil)
		repo.On("Create", ctx, mock.MatchedBy(func(r *Resource) bool {
			return r.Status == StatusAvailable && r.Name == "Room 101"
		})).Return(nil)
		repo.On("GetByID", ctx, "res-1").Return(&Resource{ID: "res-1", Name: "Room 101", Status: StatusAvailable}, nil)

		res, err := NewService(repo, cats).Create(ctx, CreateRequest{CategoryID: "cat-1", Name: " Room 101 "})
		require.NoError(t, err)
		assert.Equal(t, "res-1", res.ID)
		repo.AssertExpectations(t)
	})

	t.Run("unknown category", func(t *testing.T) {
		cats := new(mockCategoryService)
		cats.On("GetByID", ctx, "cat-x").Return(nil, category.ErrNotFound)

		_, err := NewService(new(mockRepository), cats).Create(ctx, CreateRequest{CategoryID: "cat-x", Name: "Van"})
		assert.ErrorIs(t, err, ErrInvalidCategory)
	})

	t.Run("validation", func(t *testing.T) {
		zero := 0
		svc := NewService(new(mockRepository), new(mockCategoryService))

		_, err := svc.Create(ctx, CreateRequest{CategoryID: "cat-1", Name: ""})
		assert.ErrorIs(t, err, ErrNameRequired)

		_, err = svc.Create(ctx, CreateRequest{CategoryID: "cat-1", Name: "Van", Status: "broken"})
		assert.ErrorIs(t, err, ErrInvalidStatus)

		_, err = svc.Create(ctx, CreateRequest{CategoryID: "cat-1", Name: "Van", Capacity: &zero})
		assert.ErrorIs(t, err, ErrInvalidCapacity)
	})
}

func TestService_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepository)
	repo.On("GetByID", ctx, "res-1").Return(&Resource{ID: "res-1", Name: "Room", CategoryID: "cat-1", Status: StatusAvailable}, nil)
	repo.On("Update", ctx, mock.MatchedBy(func(r *Resource) bool {
		return r.Status == StatusMaintenance
	})).Return(nil)

	maintenance := StatusMaintenance
	_, err := NewService(repo, new(mockCategoryService)).Update(ctx, "res-1", UpdateRequest{Status: &maintenance})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestService_ResourceStatus(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepository)
	repo.On("GetStatus", ctx, "res-1").Return(StatusInactive, nil)
	repo.On("GetStatus", ctx, "res-x").Return(Status(""), ErrNotFound)

	svc := NewService(repo, new(mockCategoryService))

	status, err := svc.ResourceStatus(ctx, "res-1")
	require.NoError(t, err)
	assert.Equal(t, StatusInactive, status)

	_, err = svc.ResourceStatus(ctx, "res-x")
	assert.ErrorIs(t, err, ErrNotFound)
}
