package service

import (
	"context"

	"productcatalog/catalog-service/internal/app/catalog/entity"
	"productcatalog/catalog-service/internal/app/catalog/validation"
	"productcatalog/pkg/pagination"

	"github.com/google/uuid"
)

// ProductPage страница товаров с навигацией
type ProductPage = pagination.Page[entity.ProductResponse]

type CatalogServiceInterface interface {
	CreateCategory(ctx context.Context, req *entity.CreateCategoryRequest) (*entity.Category, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*entity.Category, error)
	GetAllCategories(ctx context.Context) ([]entity.Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, req *entity.UpdateCategoryRequest) (*entity.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	ListCategoryProducts(ctx context.Context, id uuid.UUID, page PageRequest) (*ProductPage, error)
	AttachProduct(ctx context.Context, categoryID, productID uuid.UUID) (*entity.ProductResponse, error)
	DetachProduct(ctx context.Context, categoryID, productID uuid.UUID) (*entity.ProductResponse, error)

	CreateProduct(ctx context.Context, fields validation.FieldMap) (*entity.ProductResponse, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*entity.ProductResponse, error)
	ListProducts(ctx context.Context, query ProductQuery) (*ProductPage, error)
	ListLowStock(ctx context.Context, query ProductQuery) (*ProductPage, error)
	ListFeatured(ctx context.Context, query ProductQuery) (*ProductPage, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, fields validation.FieldMap) (*entity.ProductResponse, error)
	UpdateStock(ctx context.Context, id uuid.UUID, req *entity.UpdateStockRequest) (*entity.ProductResponse, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}
