package mocks

import (
	"context"

	"entityapi/internal/model"
	"entityapi/internal/repository"
	"github.com/stretchr/testify/mock"
)

type MockEntityGateway struct {
	mock.Mock
}

var _ repository.EntityGateway = (*MockEntityGateway)(nil)

func (m *MockEntityGateway) Insert(ctx context.Context, coll string, doc model.Document) (string, error) {
	args := m.Called(ctx, coll, doc)
	return args.String(0), args.Error(1)
}

func (m *MockEntityGateway) Find(ctx context.Context, coll string, filter model.Filter, proj model.Projection) ([]model.Document, error) {
	args := m.Called(ctx, coll, filter, proj)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Document), args.Error(1)
}

func (m *MockEntityGateway) FindPage(ctx context.Context, coll string, filter model.Filter, proj model.Projection, page model.PageSpec) ([]model.Document, error) {
	args := m.Called(ctx, coll, filter, proj, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Document), args.Error(1)
}

func (m *MockEntityGateway) FindByIdentifier(ctx context.Context, coll, id string) (model.Document, error) {
	args := m.Called(ctx, coll, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(model.Document), args.Error(1)
}

func (m *MockEntityGateway) UpdateByIdentifier(ctx context.Context, coll, id string, patch model.Document) (bool, error) {
	args := m.Called(ctx, coll, id, patch)
	return args.Bool(0), args.Error(1)
}

func (m *MockEntityGateway) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
