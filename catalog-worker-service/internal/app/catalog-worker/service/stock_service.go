package service

import (
	"context"
	"fmt"
	"time"

	"productcatalog/catalog-worker-service/internal/app/catalog-worker/entity"
	"productcatalog/catalog-worker-service/internal/app/catalog-worker/repository"
	"productcatalog/pkg/logger"
	"productcatalog/pkg/metrics"
)

// StockService периодически проверяет остатки товаров
type StockService struct {
	productRepo  repository.ProductRepository
	snapshotRepo repository.SnapshotRepository
	now          func() time.Time
}

// NewStockService создает новый сервис контроля остатков
func NewStockService(
	productRepo repository.ProductRepository,
	snapshotRepo repository.SnapshotRepository,
) *StockService {
	return &StockService{
		productRepo:  productRepo,
		snapshotRepo: snapshotRepo,
		now:          time.Now,
	}
}

// ScanLowStock выбирает товары с низким остатком, обновляет метрику и снимок в Redis.
// Метрика обновляется даже если Redis недоступен
func (s *StockService) ScanLowStock(ctx context.Context) (*entity.LowStockSnapshot, error) {
	timer := metrics.NewTimer()

	products, err := s.productRepo.ListLowStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan stock: %w", err)
	}

	snapshot := &entity.LowStockSnapshot{
		ProductIDs: make([]string, 0, len(products)),
		Count:      len(products),
		ScannedAt:  s.now().UTC(),
	}
	for _, p := range products {
		snapshot.ProductIDs = append(snapshot.ProductIDs, p.ID.String())
	}

	metrics.RecordLowStockScan(snapshot.Count, timer.Duration())

	if err := s.snapshotRepo.Save(ctx, snapshot); err != nil {
		return snapshot, fmt.Errorf("failed to save low stock snapshot: %w", err)
	}

	logger.Info().
		Int("low_stock_products", snapshot.Count).
		Dur("duration", timer.Duration()).
		Msg("Low stock scan completed")

	return snapshot, nil
}

// LastSnapshot возвращает снимок последней проверки
func (s *StockService) LastSnapshot(ctx context.Context) (*entity.LowStockSnapshot, error) {
	return s.snapshotRepo.Get(ctx)
}
