package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"productcatalog/catalog-service/internal/app/catalog/entity"
	"productcatalog/catalog-service/internal/app/catalog/repository"
	"productcatalog/catalog-service/internal/app/catalog/validation"
	"productcatalog/pkg/apperr"
	"productcatalog/pkg/logger"
	"productcatalog/pkg/metrics"
	"productcatalog/pkg/pagination"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PageRequest сырые параметры пагинации из query string.
// Start может быть позицией или ID товара
type PageRequest struct {
	Start    string
	Limit    string
	Page     string
	PageSize string
	BasePath string // путь со всеми фильтрами, к нему дописываются start и limit
}

// ProductQuery фильтры и пагинация списка товаров.
// Category принимает ID или slug категории
type ProductQuery struct {
	Filter   entity.ProductFilter
	Category string
	Page     PageRequest
}

// === PRODUCTS ===

// CreateProduct валидирует запись и создает товар
func (s *CatalogService) CreateProduct(ctx context.Context, fields validation.FieldMap) (*entity.ProductResponse, error) {
	res, err := s.validator.Validate(fields, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to validate product: %w", err)
	}
	if !res.Valid {
		metrics.RecordValidationFailures(res.Errors)
		return nil, apperr.ValidationFailed(res.Errors)
	}

	now := time.Now().UTC()
	product := &entity.Product{
		ID:        uuid.New(),
		Tags:      entity.Tags{},
		Status:    validation.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyFields(product, res.Fields)

	if err := s.resolveProductCategory(ctx, product); err != nil {
		return nil, err
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		if errors.Is(err, repository.ErrDuplicateSKU) {
			return nil, duplicateSKU()
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	logger.Info().
		Str("product_id", product.ID.String()).
		Str("name", product.Name).
		Msg("product created")

	s.publishProductEvent(ctx, entity.EventProductCreated, product)
	resp := entity.NewProductResponse(product)
	return &resp, nil
}

// GetProduct получает товар по ID вместе с категорией
func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*entity.ProductResponse, error) {
	product, err := s.getProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := entity.NewProductResponse(product)
	return &resp, nil
}

// ListProducts постраничный список товаров с фильтрами
func (s *CatalogService) ListProducts(ctx context.Context, query ProductQuery) (*ProductPage, error) {
	filter, err := s.resolveFilter(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.listProducts(ctx, "products", filter, query.Page)
}

// ListLowStock товары, которых осталось не больше порога
func (s *CatalogService) ListLowStock(ctx context.Context, query ProductQuery) (*ProductPage, error) {
	filter, err := s.resolveFilter(ctx, query)
	if err != nil {
		return nil, err
	}
	filter.StockStatus = entity.StockLow
	return s.listProducts(ctx, "low_stock", filter, query.Page)
}

// ListFeatured рекомендуемые товары
func (s *CatalogService) ListFeatured(ctx context.Context, query ProductQuery) (*ProductPage, error) {
	filter, err := s.resolveFilter(ctx, query)
	if err != nil {
		return nil, err
	}
	featured := true
	filter.Featured = &featured
	return s.listProducts(ctx, "featured", filter, query.Page)
}

// UpdateProduct частичное обновление: проверяются только переданные поля,
// правило скидки сравнивается с уже сохраненной ценой
func (s *CatalogService) UpdateProduct(ctx context.Context, id uuid.UUID, fields validation.FieldMap) (*entity.ProductResponse, error) {
	product, err := s.getProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	res, err := s.validator.Validate(fields, existingFields(product))
	if err != nil {
		return nil, fmt.Errorf("failed to validate product: %w", err)
	}
	if rawID, ok := fields[validation.FieldID]; ok && fmt.Sprint(rawID) != id.String() {
		res.Errors[validation.FieldID] = append(res.Errors[validation.FieldID], "id cannot be changed")
		res.Valid = false
	}
	if !res.Valid {
		metrics.RecordValidationFailures(res.Errors)
		return nil, apperr.ValidationFailed(res.Errors)
	}

	previousCategory := product.CategoryID
	applyFields(product, res.Fields)
	if !sameCategory(previousCategory, product.CategoryID) {
		if err := s.resolveProductCategory(ctx, product); err != nil {
			return nil, err
		}
	}

	if err := s.saveProduct(ctx, product); err != nil {
		return nil, err
	}

	s.publishProductEvent(ctx, entity.EventProductUpdated, product)
	resp := entity.NewProductResponse(product)
	return &resp, nil
}

// UpdateStock устанавливает количество или применяет изменение к текущему
func (s *CatalogService) UpdateStock(ctx context.Context, id uuid.UUID, req *entity.UpdateStockRequest) (*entity.ProductResponse, error) {
	if (req.Quantity == nil) == (req.Adjustment == nil) {
		return nil, apperr.InvalidParameter("quantity", "exactly one of quantity or adjustment must be provided")
	}

	product, err := s.getProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	quantity := product.Quantity
	if req.Quantity != nil {
		quantity = *req.Quantity
	} else {
		quantity += *req.Adjustment
	}
	if quantity < 0 {
		return nil, apperr.InvalidParameter("quantity", "Quantity cannot be negative")
	}

	if err := s.productRepo.UpdateStock(ctx, id, quantity); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to update stock: %w", err)
	}
	product.Quantity = quantity
	product.UpdatedAt = time.Now().UTC()

	if product.IsLowStock() {
		logger.Warn().
			Str("product_id", id.String()).
			Int("quantity", quantity).
			Int("threshold", product.LowStockThreshold).
			Msg("product stock is low")
	}

	s.publishProductEvent(ctx, entity.EventStockUpdated, product)
	resp := entity.NewProductResponse(product)
	return &resp, nil
}

// DeleteProduct удаляет товар и отправляет событие
func (s *CatalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	product, err := s.getProduct(ctx, id)
	if err != nil {
		return err
	}

	if err := s.productRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}

	s.publishProductEvent(ctx, entity.EventProductDeleted, product)
	return nil
}

func (s *CatalogService) getProduct(ctx context.Context, id uuid.UUID) (*entity.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

func (s *CatalogService) saveProduct(ctx context.Context, product *entity.Product) error {
	product.UpdatedAt = time.Now().UTC()
	if err := s.productRepo.Update(ctx, product); err != nil {
		switch {
		case errors.Is(err, repository.ErrProductNotFound):
			return ErrProductNotFound
		case errors.Is(err, repository.ErrDuplicateSKU):
			return duplicateSKU()
		}
		return fmt.Errorf("failed to update product: %w", err)
	}
	return nil
}

// resolveProductCategory проверяет, что категория товара существует, и подгружает ее
func (s *CatalogService) resolveProductCategory(ctx context.Context, product *entity.Product) error {
	if product.CategoryID == nil {
		product.Category = nil
		return nil
	}

	category, err := s.categoryRepo.GetByID(ctx, *product.CategoryID)
	if err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return apperr.ValidationFailed(map[string][]string{
				validation.FieldCategory: {fmt.Sprintf("Invalid pk %q - object does not exist.", product.CategoryID.String())},
			})
		}
		return fmt.Errorf("failed to get category: %w", err)
	}
	product.Category = category
	return nil
}

// resolveFilter переводит параметр category (ID или slug) в CategoryID.
// Неизвестный slug дает пустой список, а не ошибку
func (s *CatalogService) resolveFilter(ctx context.Context, query ProductQuery) (entity.ProductFilter, error) {
	filter := query.Filter
	raw := strings.TrimSpace(query.Category)
	if raw == "" {
		return filter, nil
	}

	if id, err := uuid.Parse(raw); err == nil {
		filter.CategoryID = &id
		return filter, nil
	}

	category, err := s.categoryRepo.GetBySlug(ctx, raw)
	switch {
	case err == nil:
		filter.CategoryID = &category.ID
	case errors.Is(err, repository.ErrCategoryNotFound):
		none := uuid.Nil
		filter.CategoryID = &none
	default:
		return filter, fmt.Errorf("failed to resolve category: %w", err)
	}
	return filter, nil
}

func (s *CatalogService) listProducts(ctx context.Context, collection string, filter entity.ProductFilter, req PageRequest) (*ProductPage, error) {
	page, err := s.fetchProducts(ctx, filter, req)
	if err != nil {
		switch {
		case apperr.IsKind(err, apperr.KindNotFound):
			metrics.RecordPage(collection, metrics.PageNotFound, 0)
		case errors.As(err, new(*apperr.Error)):
			metrics.RecordPage(collection, metrics.PageInvalid, 0)
		}
		return nil, err
	}

	metrics.RecordPage(collection, metrics.PageOK, len(page.Items))
	return page, nil
}

func (s *CatalogService) fetchProducts(ctx context.Context, filter entity.ProductFilter, req PageRequest) (*ProductPage, error) {
	start, limit, err := s.resolveWindow(ctx, filter, req)
	if err != nil {
		return nil, err
	}
	src := &productSource{repo: s.productRepo, filter: filter}
	return pagination.Fetch[entity.ProductResponse](ctx, s.pager, src, start, limit, req.BasePath)
}

// resolveWindow разбирает start/limit или page/page_size.
// Если start не число, но валидный UUID, он переводится в позицию товара
func (s *CatalogService) resolveWindow(ctx context.Context, filter entity.ProductFilter, req PageRequest) (int, int, error) {
	if req.Page != "" || req.PageSize != "" {
		page := 1
		if req.Page != "" {
			n, err := strconv.Atoi(strings.TrimSpace(req.Page))
			if err != nil {
				return 0, 0, apperr.InvalidParameter("page", fmt.Sprintf("page parameter %q is not an integer", req.Page))
			}
			page = n
		}
		pageSize := s.pager.DefaultLimit()
		if req.PageSize != "" {
			n, err := strconv.Atoi(strings.TrimSpace(req.PageSize))
			if err != nil {
				return 0, 0, apperr.InvalidParameter("page_size", fmt.Sprintf("page_size parameter %q is not an integer", req.PageSize))
			}
			pageSize = n
		}
		start, err := s.pager.FromPage(page, pageSize)
		if err != nil {
			return 0, 0, err
		}
		return start, pageSize, nil
	}

	limit, err := s.pager.ParseLimit(req.Limit)
	if err != nil {
		return 0, 0, err
	}

	raw := strings.TrimSpace(req.Start)
	if _, convErr := strconv.Atoi(raw); convErr != nil && raw != "" {
		if id, parseErr := uuid.Parse(raw); parseErr == nil {
			start, err := s.productRepo.PositionOf(ctx, filter, id)
			if err != nil {
				if errors.Is(err, repository.ErrProductNotFound) {
					return 0, 0, apperr.NotFound("start", fmt.Sprintf("product %s is not part of this collection", id)).
						WithSuggestion("Use the navigation URIs of a previous response to walk the collection")
				}
				return 0, 0, fmt.Errorf("failed to resolve start position: %w", err)
			}
			return start, limit, nil
		}
	}

	start, err := s.pager.ParseStart(raw)
	if err != nil {
		return 0, 0, err
	}
	return start, limit, nil
}

// productSource коллекция товаров под фильтром для pagination.Fetch
type productSource struct {
	repo   repository.ProductRepository
	filter entity.ProductFilter
}

func (p *productSource) Count(ctx context.Context) (int, error) {
	return p.repo.Count(ctx, p.filter)
}

func (p *productSource) Slice(ctx context.Context, start, end int) ([]entity.ProductResponse, error) {
	products, err := p.repo.List(ctx, p.filter, start, end)
	if err != nil {
		return nil, err
	}
	items := make([]entity.ProductResponse, 0, len(products))
	for i := range products {
		items = append(items, entity.NewProductResponse(&products[i]))
	}
	return items, nil
}

// existingFields текущая запись товара в виде, понятном валидатору
func existingFields(p *entity.Product) validation.FieldMap {
	fields := validation.FieldMap{
		validation.FieldName:              p.Name,
		validation.FieldPrice:             p.Price,
		validation.FieldQuantity:          p.Quantity,
		validation.FieldLowStockThreshold: p.LowStockThreshold,
		validation.FieldStatus:            p.Status,
		validation.FieldFeatured:          p.Featured,
	}
	if p.DiscountPrice.Valid {
		fields[validation.FieldDiscountPrice] = p.DiscountPrice.Decimal
	}
	if p.SKU != nil {
		fields[validation.FieldSKU] = *p.SKU
	}
	if p.CategoryID != nil {
		fields[validation.FieldCategory] = *p.CategoryID
	}
	return fields
}

// applyFields переносит проверенные поля в товар. Поля, явно переданные как null, обнуляются
func applyFields(p *entity.Product, f validation.ProductFields) {
	if f.SKU != nil {
		p.SKU = f.SKU
	} else if f.IsCleared(validation.FieldSKU) {
		p.SKU = nil
	}
	if f.Name != nil {
		p.Name = *f.Name
	}
	if f.Description != nil {
		p.Description = *f.Description
	} else if f.IsCleared(validation.FieldDescription) {
		p.Description = ""
	}
	if f.Brand != nil {
		p.Brand = *f.Brand
	} else if f.IsCleared(validation.FieldBrand) {
		p.Brand = ""
	}
	if f.Category != nil {
		p.CategoryID = f.Category
	} else if f.IsCleared(validation.FieldCategory) {
		p.CategoryID = nil
	}
	if f.Tags != nil {
		p.Tags = entity.Tags(*f.Tags)
	} else if f.IsCleared(validation.FieldTags) {
		p.Tags = entity.Tags{}
	}
	if f.Price != nil {
		p.Price = *f.Price
	}
	p.DiscountPrice = mergeNullDecimal(p.DiscountPrice, f.DiscountPrice, f.IsCleared(validation.FieldDiscountPrice))
	if f.Quantity != nil {
		p.Quantity = *f.Quantity
	}
	if f.LowStockThreshold != nil {
		p.LowStockThreshold = *f.LowStockThreshold
	}
	p.Weight = mergeNullDecimal(p.Weight, f.Weight, f.IsCleared(validation.FieldWeight))
	if f.Dimensions != nil {
		p.Dimensions = *f.Dimensions
	} else if f.IsCleared(validation.FieldDimensions) {
		p.Dimensions = ""
	}
	if f.Status != nil {
		p.Status = *f.Status
	}
	if f.Featured != nil {
		p.Featured = *f.Featured
	}
	p.Rating = mergeNullDecimal(p.Rating, f.Rating, f.IsCleared(validation.FieldRating))
}

func mergeNullDecimal(current decimal.NullDecimal, value *decimal.Decimal, cleared bool) decimal.NullDecimal {
	switch {
	case value != nil:
		return decimal.NewNullDecimal(*value)
	case cleared:
		return decimal.NullDecimal{}
	}
	return current
}

func sameCategory(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func duplicateSKU() *apperr.Error {
	return apperr.ValidationFailed(map[string][]string{
		validation.FieldSKU: {"product with this sku already exists."},
	})
}
