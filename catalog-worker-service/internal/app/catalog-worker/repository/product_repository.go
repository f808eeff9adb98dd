package repository

import (
	"context"
	"fmt"

	"productcatalog/catalog-worker-service/internal/app/catalog-worker/entity"

	"gorm.io/gorm"
)

// productRepository читает товары каталога через GORM
type productRepository struct {
	db *gorm.DB
}

// NewProductRepository создает репозиторий товаров (только чтение)
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

// ListLowStock выбирает товары, которые заканчиваются. Товары без остатка сюда не входят
func (r *productRepository) ListLowStock(ctx context.Context) ([]entity.LowStockProduct, error) {
	var products []entity.LowStockProduct

	result := r.db.WithContext(ctx).
		Where("quantity > 0 AND quantity <= low_stock_threshold").
		Order("quantity ASC, id").
		Find(&products)

	if result.Error != nil {
		return nil, fmt.Errorf("failed to list low stock products: %w", result.Error)
	}

	return products, nil
}
