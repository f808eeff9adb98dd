package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"productcatalog/catalog-service/internal/app/catalog/entity"
	"productcatalog/catalog-service/internal/app/catalog/repository"
	"productcatalog/catalog-service/internal/app/catalog/util"
	"productcatalog/catalog-service/internal/app/catalog/validation"
	"productcatalog/pkg/apperr"
	"productcatalog/pkg/logger"
	"productcatalog/pkg/metrics"
	"productcatalog/pkg/pagination"

	"github.com/google/uuid"
)

// DeletePolicy поведение при удалении категории, у которой есть товары
type DeletePolicy string

const (
	// DeletePolicyReject удаление запрещено, пока у категории есть товары
	DeletePolicyReject DeletePolicy = "reject"
	// DeletePolicyDetach товары отвязываются от категории, затем она удаляется
	DeletePolicyDetach DeletePolicy = "detach"
)

// DefaultCategoriesTTL время жизни кеша списка категорий
const DefaultCategoriesTTL = time.Hour

// Options настройки сервиса каталога
type Options struct {
	CategoriesTTL time.Duration
	DeletePolicy  DeletePolicy
}

// CatalogService обрабатывает бизнес-логику каталога товаров
// Координирует работу репозиториев, Redis кеша и Kafka producer
type CatalogService struct {
	categoryRepo repository.CategoryRepository // Категории в PostgreSQL (pgx)
	productRepo  repository.ProductRepository  // Товары в PostgreSQL (GORM)
	cache        util.RedisCache               // Кеш списка категорий
	publisher    util.MessagePublisher         // События о товарах
	validator    *validation.Validator
	pager        *pagination.Engine
	opts         Options
}

// NewCatalogService создает новый сервис каталога с внедрением зависимостей
func NewCatalogService(
	categoryRepo repository.CategoryRepository,
	productRepo repository.ProductRepository,
	cache util.RedisCache,
	publisher util.MessagePublisher,
	validator *validation.Validator,
	pager *pagination.Engine,
	opts Options,
) *CatalogService {
	if opts.CategoriesTTL <= 0 {
		opts.CategoriesTTL = DefaultCategoriesTTL
	}
	if opts.DeletePolicy == "" {
		opts.DeletePolicy = DeletePolicyReject
	}
	return &CatalogService{
		categoryRepo: categoryRepo,
		productRepo:  productRepo,
		cache:        cache,
		publisher:    publisher,
		validator:    validator,
		pager:        pager,
		opts:         opts,
	}
}

// === CATEGORIES ===

// CreateCategory создает новую категорию и инвалидирует кеш
func (s *CatalogService) CreateCategory(ctx context.Context, req *entity.CreateCategoryRequest) (*entity.Category, error) {
	name := strings.TrimSpace(req.Name)
	slug := slugify(name)
	if slug == "" {
		return nil, apperr.ValidationFailed(map[string][]string{"name": {"name must contain letters or digits"}})
	}

	now := time.Now().UTC()
	category := &entity.Category{
		ID:          uuid.New(),
		Name:        name,
		Slug:        slug,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		if errors.Is(err, repository.ErrCategoryAlreadyExists) {
			return nil, ErrCategoryAlreadyExists
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	s.invalidateCategories(ctx)
	return category, nil
}

// GetCategory получает категорию по ID из PostgreSQL
// Не использует кеш, так как запрашивается конкретная категория
func (s *CatalogService) GetCategory(ctx context.Context, id uuid.UUID) (*entity.Category, error) {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	return category, nil
}

// GetAllCategories получает все категории с кешированием в Redis
// Сначала проверяет кеш, если нет - загружает из БД и кеширует
func (s *CatalogService) GetAllCategories(ctx context.Context) ([]entity.Category, error) {
	categories, err := s.cache.GetCategories(ctx)
	if err == nil && categories != nil {
		return categories, nil
	}
	if err != nil {
		logger.Warn().Err(err).Msg("failed to read categories cache")
	}

	categories, err = s.categoryRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}

	// Ошибка кеша не критична, данные уже получены из БД
	if err := s.cache.SetCategories(ctx, categories, s.opts.CategoriesTTL); err != nil {
		logger.Warn().Err(err).Msg("failed to cache categories")
	}

	return categories, nil
}

// UpdateCategory обновляет категорию и инвалидирует кеш
func (s *CatalogService) UpdateCategory(ctx context.Context, id uuid.UUID, req *entity.UpdateCategoryRequest) (*entity.Category, error) {
	category, err := s.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	slug := slugify(name)
	if slug == "" {
		return nil, apperr.ValidationFailed(map[string][]string{"name": {"name must contain letters or digits"}})
	}

	category.Name = name
	category.Slug = slug
	if req.Description != nil {
		category.Description = *req.Description
	}
	category.UpdatedAt = time.Now().UTC()

	if err := s.categoryRepo.Update(ctx, category); err != nil {
		switch {
		case errors.Is(err, repository.ErrCategoryAlreadyExists):
			return nil, ErrCategoryAlreadyExists
		case errors.Is(err, repository.ErrCategoryNotFound):
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to update category: %w", err)
	}

	s.invalidateCategories(ctx)
	return category, nil
}

// DeleteCategory удаляет категорию согласно политике удаления и инвалидирует кеш
func (s *CatalogService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetCategory(ctx, id); err != nil {
		return err
	}

	detached, err := s.categoryRepo.Delete(ctx, id, s.opts.DeletePolicy == DeletePolicyDetach)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrCategoryNotFound):
			return ErrCategoryNotFound
		case errors.Is(err, repository.ErrCategoryHasProducts):
			return ErrCategoryHasProducts
		}
		return fmt.Errorf("failed to delete category: %w", err)
	}

	if detached > 0 {
		logger.Info().
			Str("category_id", id.String()).
			Int64("products", detached).
			Msg("products detached from deleted category")
	}

	s.invalidateCategories(ctx)
	return nil
}

// ListCategoryProducts постраничный список товаров категории
func (s *CatalogService) ListCategoryProducts(ctx context.Context, id uuid.UUID, page PageRequest) (*ProductPage, error) {
	if _, err := s.GetCategory(ctx, id); err != nil {
		return nil, err
	}
	return s.listProducts(ctx, "category_products", entity.ProductFilter{CategoryID: &id}, page)
}

// AttachProduct переносит товар в категорию
func (s *CatalogService) AttachProduct(ctx context.Context, categoryID, productID uuid.UUID) (*entity.ProductResponse, error) {
	category, err := s.GetCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	product, err := s.getProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	product.CategoryID = &category.ID
	product.Category = category
	if err := s.saveProduct(ctx, product); err != nil {
		return nil, err
	}

	s.publishProductEvent(ctx, entity.EventProductUpdated, product)
	resp := entity.NewProductResponse(product)
	return &resp, nil
}

// DetachProduct убирает товар из категории
func (s *CatalogService) DetachProduct(ctx context.Context, categoryID, productID uuid.UUID) (*entity.ProductResponse, error) {
	if _, err := s.GetCategory(ctx, categoryID); err != nil {
		return nil, err
	}
	product, err := s.getProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.CategoryID == nil || *product.CategoryID != categoryID {
		return nil, ErrProductNotInCategory
	}

	product.CategoryID = nil
	product.Category = nil
	if err := s.saveProduct(ctx, product); err != nil {
		return nil, err
	}

	s.publishProductEvent(ctx, entity.EventProductUpdated, product)
	resp := entity.NewProductResponse(product)
	return &resp, nil
}

// invalidateCategories сбрасывает кеш категорий, ошибка только логируется
func (s *CatalogService) invalidateCategories(ctx context.Context) {
	if err := s.cache.DeleteCategories(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to invalidate categories cache")
	}
}

// publishProductEvent отправляет событие о товаре в Kafka.
// Key - ProductID для партиционирования. Ошибка Kafka не отменяет уже сохраненное изменение
func (s *CatalogService) publishProductEvent(ctx context.Context, eventType string, product *entity.Product) {
	metrics.RecordProductEvent(eventType)

	event := entity.NewProductEvent(eventType, product)
	eventData, err := json.Marshal(event)
	if err != nil {
		logger.Error().Err(err).Str("event_type", eventType).Msg("failed to marshal product event")
		return
	}

	if err := s.publisher.PublishMessage(ctx, event.ProductID.String(), eventData); err != nil {
		logger.Error().
			Err(err).
			Str("event_type", eventType).
			Str("product_id", event.ProductID.String()).
			Msg("failed to publish product event")
	}
}

// slugify строит slug из имени: буквы и цифры в нижнем регистре, остальное через дефис
func slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
