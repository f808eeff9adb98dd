package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"productcatalog/catalog-worker-service/internal/app/catalog-worker/entity"
	"productcatalog/catalog-worker-service/internal/app/catalog-worker/repository"
	"productcatalog/pkg/logger"
	"productcatalog/pkg/metrics"

	"github.com/google/uuid"
)

// Границы выборки истории товара
const (
	DefaultHistoryLimit int64 = 50
	MaxHistoryLimit     int64 = 500
)

// EventService ведет историю событий о товарах
type EventService struct {
	eventRepo repository.EventRepository
	now       func() time.Time
}

// NewEventService создает новый сервис истории событий
func NewEventService(eventRepo repository.EventRepository) *EventService {
	return &EventService{
		eventRepo: eventRepo,
		now:       time.Now,
	}
}

// ProcessEvent сохраняет событие в MongoDB.
// Событие неизвестного типа или без product_id пропускается без ошибки: повторная доставка его не исправит
func (s *EventService) ProcessEvent(ctx context.Context, event *entity.ProductEvent, meta entity.MessageMeta) error {
	if !slices.Contains(entity.KnownEventTypes, event.EventType) || event.ProductID == uuid.Nil {
		logger.Warn().
			Str("event_type", event.EventType).
			Str("product_id", event.ProductID.String()).
			Int64("offset", meta.Offset).
			Msg("Skipping unsupported product event")
		metrics.RecordWorkerEvent(event.EventType, metrics.WorkerEventSkipped)
		return nil
	}

	record, err := entity.NewEventRecord(event, meta, s.now().UTC())
	if err != nil {
		metrics.RecordWorkerEvent(event.EventType, metrics.WorkerEventFailed)
		return fmt.Errorf("failed to convert product event: %w", err)
	}

	if err := s.eventRepo.Append(ctx, record); err != nil {
		metrics.RecordWorkerEvent(event.EventType, metrics.WorkerEventFailed)
		return fmt.Errorf("failed to store product event: %w", err)
	}
	metrics.RecordWorkerEvent(event.EventType, metrics.WorkerEventSuccess)

	if event.IsLowStock {
		logger.Warn().
			Str("product_id", event.ProductID.String()).
			Str("sku", event.SKU).
			Int("quantity", event.Quantity).
			Msg("Product is running low on stock")
	}

	logger.Debug().
		Str("event_type", event.EventType).
		Str("product_id", event.ProductID.String()).
		Msg("Product event stored")

	return nil
}

// History возвращает последние события товара. limit вне (0, MaxHistoryLimit] заменяется значением по умолчанию
func (s *EventService) History(ctx context.Context, productID uuid.UUID, limit int64) ([]entity.EventRecord, error) {
	if limit <= 0 || limit > MaxHistoryLimit {
		limit = DefaultHistoryLimit
	}

	records, err := s.eventRepo.ListByProduct(ctx, productID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load product history: %w", err)
	}
	return records, nil
}
