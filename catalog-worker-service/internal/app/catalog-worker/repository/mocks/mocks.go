package mocks

import (
	"context"

	"productcatalog/catalog-worker-service/internal/app/catalog-worker/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockEventRepository мок для EventRepository
type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) EnsureIndexes(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockEventRepository) Append(ctx context.Context, record *entity.EventRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockEventRepository) ListByProduct(ctx context.Context, productID string, limit int64) ([]entity.EventRecord, error) {
	args := m.Called(ctx, productID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.EventRecord), args.Error(1)
}

// MockProductRepository мок для ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) ListLowStock(ctx context.Context) ([]entity.LowStockProduct, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.LowStockProduct), args.Error(1)
}

// MockSnapshotRepository мок для SnapshotRepository
type MockSnapshotRepository struct {
	mock.Mock
}

func (m *MockSnapshotRepository) Save(ctx context.Context, snapshot *entity.LowStockSnapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

func (m *MockSnapshotRepository) Get(ctx context.Context) (*entity.LowStockSnapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.LowStockSnapshot), args.Error(1)
}

// MockEventService мок для EventServiceInterface
type MockEventService struct {
	mock.Mock
}

func (m *MockEventService) ProcessEvent(ctx context.Context, event *entity.ProductEvent, meta entity.MessageMeta) error {
	args := m.Called(ctx, event, meta)
	return args.Error(0)
}

func (m *MockEventService) History(ctx context.Context, productID uuid.UUID, limit int64) ([]entity.EventRecord, error) {
	args := m.Called(ctx, productID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.EventRecord), args.Error(1)
}

// MockStockService мок для StockServiceInterface
type MockStockService struct {
	mock.Mock
}

func (m *MockStockService) ScanLowStock(ctx context.Context) (*entity.LowStockSnapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.LowStockSnapshot), args.Error(1)
}

func (m *MockStockService) LastSnapshot(ctx context.Context) (*entity.LowStockSnapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.LowStockSnapshot), args.Error(1)
}
