package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"productcatalog/catalog-service/internal/app/catalog/entity"
	"productcatalog/pkg/metrics"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// колонки, которые перезаписывает Update (включая нулевые значения)
var productUpdateColumns = []string{
	"sku", "name", "description", "brand", "category_id", "tags",
	"price", "discount_price", "quantity", "low_stock_threshold",
	"weight", "dimensions", "status", "featured", "rating", "updated_at",
}

type productRepository struct {
	db *gorm.DB
}

// NewProductRepository создает новый репозиторий товаров
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// applyFilter добавляет условия фильтра к запросу
func applyFilter(db *gorm.DB, f entity.ProductFilter) *gorm.DB {
	if f.CategoryID != nil {
		db = db.Where("category_id = ?", *f.CategoryID)
	}
	if f.MinPrice != nil {
		db = db.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		db = db.Where("price <= ?", *f.MaxPrice)
	}
	switch f.StockStatus {
	case entity.StockInStock:
		db = db.Where("quantity > 0")
	case entity.StockOutOfStock:
		db = db.Where("quantity = 0")
	case entity.StockLow:
		db = db.Where("quantity > 0 AND quantity <= low_stock_threshold")
	}
	if f.Status != "" {
		db = db.Where("status = ?", f.Status)
	}
	if f.Featured != nil {
		db = db.Where("featured = ?", *f.Featured)
	}
	if f.Search != "" {
		like := "%" + likeEscaper.Replace(f.Search) + "%"
		db = db.Where(searchCondition, like, like, like, like, like)
	}
	return db
}

// % и _ в поисковой строке ищутся буквально
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

const searchCondition = `(name ILIKE ? ESCAPE '\' OR description ILIKE ? ESCAPE '\' OR sku ILIKE ? ESCAPE '\' ` +
	`OR brand ILIKE ? ESCAPE '\' OR tags ILIKE ? ESCAPE '\')`

// productOrder колонка и направление сортировки. Неизвестное значение
// заменяется порядком по умолчанию, handler отклоняет его раньше
func productOrder(f entity.ProductFilter) (string, bool) {
	column, desc, ok := entity.ParseOrdering(f.Ordering)
	if !ok {
		column, desc, _ = entity.ParseOrdering(entity.DefaultOrdering)
	}
	return column, desc
}

// anchorValue значение колонки сортировки у товара, от которого считается позиция
func anchorValue(p *entity.Product, column string) interface{} {
	switch column {
	case "name":
		return p.Name
	case "price":
		return p.Price
	case "quantity":
		return p.Quantity
	}
	return p.CreatedAt
}

// Create создает новый товар
func (r *productRepository) Create(ctx context.Context, product *entity.Product) error {
	defer metrics.NewDbTimer(metricsService, metrics.DbOpInsert, "products").ObserveDuration()

	if err := r.db.WithContext(ctx).Omit("Category").Create(product).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateSKU
		}
		metrics.RecordDbError(metricsService, metrics.DbOpInsert)
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// GetByID получает товар по ID вместе с категорией
func (r *productRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Product, error) {
	defer metrics.NewDbTimer(metricsService, metrics.DbOpSelect, "products").ObserveDuration()

	var product entity.Product
	result := r.db.WithContext(ctx).Preload("Category").First(&product, "id = ?", id)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		metrics.RecordDbError(metricsService, metrics.DbOpSelect)
		return nil, fmt.Errorf("failed to get product: %w", result.Error)
	}

	return &product, nil
}

// Update перезаписывает все изменяемые поля товара
func (r *productRepository) Update(ctx context.Context, product *entity.Product) error {
	defer metrics.NewDbTimer(metricsService, metrics.DbOpUpdate, "products").ObserveDuration()

	product.UpdatedAt = time.Now()
	result := r.db.WithContext(ctx).
		Model(&entity.Product{}).
		Where("id = ?", product.ID).
		Select(productUpdateColumns).
		Updates(product)

	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return ErrDuplicateSKU
		}
		metrics.RecordDbError(metricsService, metrics.DbOpUpdate)
		return fmt.Errorf("failed to update product: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// Delete удаляет товар
func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	defer metrics.NewDbTimer(metricsService, metrics.DbOpDelete, "products").ObserveDuration()

	result := r.db.WithContext(ctx).Delete(&entity.Product{}, "id = ?", id)

	if result.Error != nil {
		metrics.RecordDbError(metricsService, metrics.DbOpDelete)
		return fmt.Errorf("failed to delete product: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// Count количество товаров под фильтром
func (r *productRepository) Count(ctx context.Context, filter entity.ProductFilter) (int, error) {
	defer metrics.NewDbTimer(metricsService, metrics.DbOpSelect, "products").ObserveDuration()

	var total int64
	if err := applyFilter(r.db.WithContext(ctx).Model(&entity.Product{}), filter).Count(&total).Error; err != nil {
		metrics.RecordDbError(metricsService, metrics.DbOpSelect)
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return int(total), nil
}

// List возвращает товары с позициями [start, end)
func (r *productRepository) List(ctx context.Context, filter entity.ProductFilter, start, end int) ([]entity.Product, error) {
	products := []entity.Product{}
	if end <= start {
		return products, nil
	}

	defer metrics.NewDbTimer(metricsService, metrics.DbOpSelect, "products").ObserveDuration()

	column, desc := productOrder(filter)
	order := column
	if desc {
		order += " DESC"
	}

	result := applyFilter(r.db.WithContext(ctx), filter).
		Preload("Category").
		Order(order).
		Order("id").
		Offset(start).
		Limit(end - start).
		Find(&products)

	if result.Error != nil {
		metrics.RecordDbError(metricsService, metrics.DbOpSelect)
		return nil, fmt.Errorf("failed to list products: %w", result.Error)
	}
	return products, nil
}

// PositionOf считает, сколько товаров стоит перед данным в том же порядке, что и List
func (r *productRepository) PositionOf(ctx context.Context, filter entity.ProductFilter, id uuid.UUID) (int, error) {
	defer metrics.NewDbTimer(metricsService, metrics.DbOpSelect, "products").ObserveDuration()

	column, desc := productOrder(filter)

	var anchor entity.Product
	result := applyFilter(r.db.WithContext(ctx), filter).
		Select("id", column).
		Where("id = ?", id).
		Take(&anchor)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return 0, ErrProductNotFound
		}
		metrics.RecordDbError(metricsService, metrics.DbOpSelect)
		return 0, fmt.Errorf("failed to resolve product position: %w", result.Error)
	}

	cmp := "<"
	if desc {
		cmp = ">"
	}
	value := anchorValue(&anchor, column)

	var before int64
	err := applyFilter(r.db.WithContext(ctx).Model(&entity.Product{}), filter).
		Where(fmt.Sprintf("(%[1]s %[2]s ? OR (%[1]s = ? AND id < ?))", column, cmp), value, value, anchor.ID).
		Count(&before).Error
	if err != nil {
		metrics.RecordDbError(metricsService, metrics.DbOpSelect)
		return 0, fmt.Errorf("failed to resolve product position: %w", err)
	}
	return int(before), nil
}

// UpdateStock устанавливает количество товара на складе
func (r *productRepository) UpdateStock(ctx context.Context, id uuid.UUID, quantity int) error {
	defer metrics.NewDbTimer(metricsService, metrics.DbOpUpdate, "products").ObserveDuration()

	result := r.db.WithContext(ctx).
		Model(&entity.Product{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"quantity":   quantity,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		metrics.RecordDbError(metricsService, metrics.DbOpUpdate)
		return fmt.Errorf("failed to update stock: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}
