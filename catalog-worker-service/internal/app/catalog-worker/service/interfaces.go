package service

import (
	"context"

	"productcatalog/catalog-worker-service/internal/app/catalog-worker/entity"

	"github.com/google/uuid"
)

// EventServiceInterface определяет интерфейс обработки событий о товарах
type EventServiceInterface interface {
	// ProcessEvent сохраняет событие из Kafka в историю
	ProcessEvent(ctx context.Context, event *entity.ProductEvent, meta entity.MessageMeta) error
	// History возвращает последние события товара
	History(ctx context.Context, productID uuid.UUID, limit int64) ([]entity.EventRecord, error)
}

// StockServiceInterface определяет интерфейс контроля остатков
type StockServiceInterface interface {
	// ScanLowStock находит товары с низким остатком и сохраняет снимок в Redis
	ScanLowStock(ctx context.Context) (*entity.LowStockSnapshot, error)
	// LastSnapshot возвращает результат последней проверки
	LastSnapshot(ctx context.Context) (*entity.LowStockSnapshot, error)
}
