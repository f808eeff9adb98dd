package repository

import (
	"context"
	"errors"

	"productcatalog/catalog-worker-service/internal/app/catalog-worker/entity"
)

// ErrSnapshotNotFound снимок остатков еще не сохранялся или истек TTL
var ErrSnapshotNotFound = errors.New("low stock snapshot not found")

// EventRepository интерфейс истории событий о товарах в MongoDB
type EventRepository interface {
	// EnsureIndexes создает индексы коллекции
	EnsureIndexes(ctx context.Context) error

	// Append добавляет событие в историю
	Append(ctx context.Context, record *entity.EventRecord) error

	// ListByProduct возвращает последние события товара, новые первыми
	ListByProduct(ctx context.Context, productID string, limit int64) ([]entity.EventRecord, error)
}

// ProductRepository интерфейс чтения товаров из PostgreSQL каталога
type ProductRepository interface {
	// ListLowStock возвращает товары, у которых 0 < quantity <= low_stock_threshold
	ListLowStock(ctx context.Context) ([]entity.LowStockProduct, error)
}

// SnapshotRepository интерфейс хранения снимка остатков в Redis
type SnapshotRepository interface {
	Save(ctx context.Context, snapshot *entity.LowStockSnapshot) error
	Get(ctx context.Context) (*entity.LowStockSnapshot, error)
}
