package repository

import (
	"context"
	"errors"

	"productcatalog/catalog-service/internal/app/catalog/entity"

	"github.com/google/uuid"
)

// Ошибки репозиториев для обработки в service layer
var (
	ErrCategoryNotFound      = errors.New("category not found")
	ErrCategoryAlreadyExists = errors.New("category with this name already exists")
	ErrCategoryHasProducts   = errors.New("cannot delete category with existing products")
	ErrProductNotFound       = errors.New("product not found")
	ErrDuplicateSKU          = errors.New("product with this sku already exists")
)

// PostgreSQL коды ошибок
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// CategoryRepository интерфейс для работы с категориями в PostgreSQL
type CategoryRepository interface {
	Create(ctx context.Context, category *entity.Category) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Category, error)
	GetBySlug(ctx context.Context, slug string) (*entity.Category, error)
	GetAll(ctx context.Context) ([]entity.Category, error)
	Update(ctx context.Context, category *entity.Category) error

	// Delete удаляет категорию атомарно с проверкой товаров.
	// detach == true отвязывает товары и возвращает их число,
	// иначе категория с товарами дает ErrCategoryHasProducts
	Delete(ctx context.Context, id uuid.UUID, detach bool) (int64, error)
}

// ProductRepository интерфейс для работы с товарами в PostgreSQL.
// Списки упорядочены по filter.Ordering (по умолчанию created_at DESC), затем по id
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Product, error)
	Update(ctx context.Context, product *entity.Product) error
	Delete(ctx context.Context, id uuid.UUID) error

	// Count количество товаров под фильтром
	Count(ctx context.Context, filter entity.ProductFilter) (int, error)

	// List товары с позициями [start, end) под фильтром
	List(ctx context.Context, filter entity.ProductFilter, start, end int) ([]entity.Product, error)

	// PositionOf позиция товара в отфильтрованном списке.
	// ErrProductNotFound если товара нет или он не проходит фильтр
	PositionOf(ctx context.Context, filter entity.ProductFilter, id uuid.UUID) (int, error)

	// UpdateStock устанавливает количество на складе
	UpdateStock(ctx context.Context, id uuid.UUID, quantity int) error
}
