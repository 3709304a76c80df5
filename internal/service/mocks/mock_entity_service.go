package mocks

import (
	"context"

	"entityapi/internal/model"
	"entityapi/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockEntityService struct {
	mock.Mock
}

var _ service.EntityService = (*MockEntityService)(nil)

func (m *MockEntityService) Create(ctx context.Context, collection string, doc model.Document) (string, error) {
	args := m.Called(ctx, collection, doc)
	return args.String(0), args.Error(1)
}

func (m *MockEntityService) List(ctx context.Context, collection string, params service.ListParams) ([]model.Document, error) {
	args := m.Called(ctx, collection, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Document), args.Error(1)
}

func (m *MockEntityService) Get(ctx context.Context, collection, id string) (model.Document, error) {
	args := m.Called(ctx, collection, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(model.Document), args.Error(1)
}

func (m *MockEntityService) Update(ctx context.Context, collection, id string, patch model.Document) error {
	args := m.Called(ctx, collection, id, patch)
	return args.Error(0)
}

func (m *MockEntityService) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
