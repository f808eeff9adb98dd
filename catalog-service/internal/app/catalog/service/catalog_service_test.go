package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"productcatalog/catalog-service/internal/app/catalog/entity"
	"productcatalog/catalog-service/internal/app/catalog/repository"
	"productcatalog/catalog-service/internal/app/catalog/repository/mocks"
	"productcatalog/catalog-service/internal/app/catalog/validation"
	"productcatalog/pkg/apperr"
	"productcatalog/pkg/pagination"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Хелперы для создания тестовых данных

type testDeps struct {
	categoryRepo *mocks.MockCategoryRepository
	productRepo  *mocks.MockProductRepository
	cache        *mocks.MockRedisCache
	publisher    *mocks.MockMessagePublisher
	service      *CatalogService
}

func newTestService(t *testing.T, opts Options) *testDeps {
	t.Helper()

	v, err := validation.New(validation.Options{})
	require.NoError(t, err)
	pager, err := pagination.NewEngine(pagination.DefaultMaxLimit, pagination.DefaultPageLimit)
	require.NoError(t, err)

	d := &testDeps{
		categoryRepo: new(mocks.MockCategoryRepository),
		productRepo:  new(mocks.MockProductRepository),
		cache:        new(mocks.MockRedisCache),
		publisher:    new(mocks.MockMessagePublisher),
	}
	d.service = NewCatalogService(d.categoryRepo, d.productRepo, d.cache, d.publisher, v, pager, opts)
	return d
}

func newTestCategory() *entity.Category {
	return &entity.Category{
		ID:        uuid.New(),
		Name:      "Electronics",
		Slug:      "electronics",
		CreatedAt: time.Now(),
	}
}

func newTestProduct(category *entity.Category) *entity.Product {
	sku := "LAP-00001"
	p := &entity.Product{
		ID:                uuid.New(),
		SKU:               &sku,
		Name:              "Laptop",
		Description:       "High-performance laptop for developers",
		Price:             decimal.RequireFromString("100.00"),
		Quantity:          50,
		LowStockThreshold: 10,
		Status:            validation.StatusActive,
		Tags:              entity.Tags{"dev"},
		CreatedAt:         time.Now(),
	}
	if category != nil {
		p.CategoryID = &category.ID
		p.Category = category
	}
	return p
}

func intPtr(n int) *int { return &n }

func requireAppErr(t *testing.T, err error, kind apperr.Kind) *apperr.Error {
	t.Helper()
	appErr, ok := apperr.As(err)
	require.True(t, ok, "expected *apperr.Error, got %v", err)
	require.Equal(t, kind, appErr.Kind)
	return appErr
}

// ==================== Category Tests ====================

func TestCatalogService_CreateCategory_Success(t *testing.T) {
	// Arrange
	ctx := context.Background()
	d := newTestService(t, Options{})

	d.categoryRepo.On("Create", ctx, mock.AnythingOfType("*entity.Category")).Return(nil)
	d.cache.On("DeleteCategories", ctx).Return(nil)

	// Act
	category, err := d.service.CreateCategory(ctx, &entity.CreateCategoryRequest{Name: "  Home & Garden "})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "Home & Garden", category.Name)
	assert.Equal(t, "home-garden", category.Slug)
	assert.NotEqual(t, uuid.Nil, category.ID)

	d.categoryRepo.AssertExpectations(t)
	d.cache.AssertExpectations(t)
}

func TestCatalogService_CreateCategory_AlreadyExists(t *testing.T) {
	// Arrange
	ctx := context.Background()
	d := newTestService(t, Options{})

	d.categoryRepo.On("Create", ctx, mock.AnythingOfType("*entity.Category")).Return(repository.ErrCategoryAlreadyExists)

	// Act
	category, err := d.service.CreateCategory(ctx, &entity.CreateCategoryRequest{Name: "Electronics"})

	// Assert
	assert.Nil(t, category)
	assert.ErrorIs(t, err, ErrCategoryAlreadyExists)
	d.cache.AssertNotCalled(t, "DeleteCategories", mock.Anything)
}

func TestCatalogService_CreateCategory_CacheErrorIgnored(t *testing.T) {
	// Arrange
	ctx := context.Background()
	d := newTestService(t, Options{})

	d.categoryRepo.On("Create", ctx, mock.AnythingOfType("*entity.Category")).Return(nil)
	d.cache.On("DeleteCategories", ctx).Return(errors.New("redis error"))

	// Act
	category, err := d.service.CreateCategory(ctx, &entity.CreateCategoryRequest{Name: "Electronics"})

	// Assert - ошибка кеша не должна прерывать выполнение
	require.NoError(t, err)
	assert.NotNil(t, category)
}

func TestCatalogService_GetCategory_NotFound(t *testing.T) {
	// Arrange
	ctx := context.Background()
	d := newTestService(t, Options{})
	id := uuid.New()

	d.categoryRepo.On("GetByID", ctx, id).Return(nil, repository.ErrCategoryNotFound)

	// Act
	category, err := d.service.GetCategory(ctx, id)

	// Assert
	assert.Nil(t, category)
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestCatalogService_GetAllCategories_FromCache(t *testing.T) {
	// Arrange
	ctx := context.Background()
	d := newTestService(t, Options{})
	cached := []entity.Category{*newTestCategory()}

	d.cache.On("GetCategories", ctx).Return(cached, nil)

	// Act
	categories, err := d.service.GetAllCategories(ctx)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, cached, categories)
	d.categoryRepo.AssertNotCalled(t, "GetAll", mock.Anything)
}

func TestCatalogService_GetAllCategories_CacheMiss(t *testing.T) {
	// Arrange
	ctx := context.Background()
	d := newTestService(t, Options{CategoriesTTL: 5 * time.Minute})
	stored := []entity.Category{*newTestCategory(), *newTestCategory()}

	d.cache.On("GetCategories", ctx).Return(nil, nil)
	d.categoryRepo.On("GetAll", ctx).Return(stored, nil)
	d.cache.On("SetCategories", ctx, stored, 5*time.Minute).Return(nil)

	// Act
	categories, err := d.service.GetAllCategories(ctx)

	// Assert
	require.NoError(t, err)
	assert.Len(t, categories, 2)
	d.cache.AssertExpectations(t)
	d.categoryRepo.AssertExpectations(t)
}

func TestCatalogService_UpdateCategory_Success(t *testing.T) {
	// Arrange
	ctx := context.Background()
	d := newTestService(t, Options{})
	category := newTestCategory()
	description := "Gadgets and devices"

	d.categoryRepo.On("GetByID", ctx, category.ID).Return(category, nil)
	d.categoryRepo.On("Update", ctx, mock.AnythingOfType("*entity.Category")).Return(nil)
	d.cache.On("DeleteCategories", ctx).Return(nil)

	// Act
	updated, err := d.service.UpdateCategory(ctx, category.ID, &entity.UpdateCategoryRequest{
		Name:        "Consumer Electronics",
		Description: &description,
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "consumer-electronics", updated.Slug)
	assert.Equal(t, description, updated.Description)
	d.cache.AssertExpectations(t)
}

func TestCatalogService_DeleteCategory_RejectWithProducts(t *testing.T) {
	// Arrange
	ctx := context.Background()
	d := newTestService(t, Options{})
	category := newTestCategory()

	d.categoryRepo.On("GetByID", ctx, category.ID).Return(category, nil)
	d.categoryRepo.On("Delete", ctx, category.ID, false).Return(int64(0), repository.ErrCategoryHasProducts)

	// Act
	err := d.service.DeleteCategory(ctx, category.ID)

	// Assert
	assert.ErrorIs(t, err, ErrCategoryHasProducts)
	d.categoryRepo.AssertExpectations(t)
	d.cache.AssertNotCalled(t, "DeleteCategories", mock.Anything)
}

func TestCatalogService_DeleteCategory_DetachPolicy(t *testing.T) {
	// Arrange
	ctx := context.Background()
	d := newTestService(t, Options{DeletePolicy: DeletePolicyDetach})
	category := newTestCategory()

	d.categoryRepo.On("GetByID", ctx, category.ID).Return(category, nil)
	d.categoryRepo.On("Delete", ctx, category.ID, true).Return(int64(2), nil)
	d.cache.On("DeleteCategories", ctx).Return(nil)

	// Act
	err := d.service.DeleteCategory(ctx, category.ID)

	// Assert
	require.NoError(t, err)
	d.categoryRepo.AssertExpectations(t)
	d.cache.AssertExpectations(t)
}

func TestCatalogService_DeleteCategory_FailedDeleteKeepsCache(t *testing.T) {
	// Arrange
	ctx := context.Background()
	d := newTestService(t, Options{DeletePolicy: DeletePolicyDetach})
	category := newTestCategory()

	// транзакция откатилась: ни категория, ни привязки товаров не изменились
	d.categoryRepo.On("GetByID", ctx, category.ID).Return(category, nil)
	d.categoryRepo.On("Delete", ctx, category.ID, true).Return(int64(0), errors.New("connection reset"))

	// Act
	err := d.service.DeleteCategory(ctx, category.ID)

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to delete category")
	assert.NotErrorIs(t, err, ErrCategoryHasProducts)
	d.cache.AssertNotCalled(t, "DeleteCategories", mock.Anything)
}

func TestCatalogService_DeleteCategory_RemovedConcurrently(t *testing.T) {
	// Arrange
	ctx := context.Background()
	d := newTestService(t, Options{})
	category := newTestCategory()

	d.categoryRepo.On("GetByID", ctx, category.ID).Return(category, nil)
	d.categoryRepo.On("Delete", ctx, category.ID, false).Return(int64(0), repository.ErrCategoryNotFound)

	// Act
	err := d.service.DeleteCategory(ctx, category.ID)

	// Assert
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestCatalogService_DeleteCategory_Empty(t *testing.T) {
	// Arrange
	ctx := context.Background()
	d := newTestService(t, Options{})
	category := newTestCategory()

	d.categoryRepo.On("GetByID", ctx, category.ID).Return(category, nil)
	d.categoryRepo.On("Delete", ctx, category.ID, false).Return(int64(0), nil)
	d.cache.On("DeleteCategories", ctx).Return(nil)

	// Act
	err := d.service.DeleteCategory(ctx, category.ID)

	// Assert
	require.NoError(t, err)
	d.categoryRepo.AssertExpectations(t)
}

func TestCatalogService_AttachProduct_Success(t *testing.T) {
	// Arrange
	ctx := context.Background()
	d := newTestService(t, Options{})
	category := newTestCategory()
	product := newTestProduct(nil)

	d.categoryRepo.On("GetByID", ctx, category.ID).Return(category, nil)
	d.productRepo.On("GetByID", ctx, product.ID).Return(product, nil)
	d.productRepo.On("Update", ctx, mock.MatchedBy(func(p *entity.Product) bool {
		return p.CategoryID != nil && *p.CategoryID == category.ID
	})).Return(nil)
	d.publisher.On("PublishMessage", ctx, product.ID.String(), mock.Anything).Return(nil)

	// Act
	resp, err := d.service.AttachProduct(ctx, category.ID, product.ID)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, &category.ID, resp.Category)
	assert.Equal(t, "Electronics", resp.CategoryName)
	d.productRepo.AssertExpectations(t)
	d.publisher.AssertExpectations(t)
}

func TestCatalogService_DetachProduct_NotInCategory(t *testing.T) {
	// Arrange
	ctx := context.Background()
	d := newTestService(t, Options{})
	category := newTestCategory()
	other := newTestCategory()
	product := newTestProduct(other)

	d.categoryRepo.On("GetByID", ctx, category.ID).Return(category, nil)
	d.productRepo.On("GetByID", ctx, product.ID).Return(product, nil)

	// Act
	resp, err := d.service.DetachProduct(ctx, category.ID, product.ID)

	// Assert
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrProductNotInCategory)
	d.productRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestCatalogService_DetachProduct_Success(t *testing.T) {
	// Arrange
	ctx := context.Background()
	d := newTestService(t, Options{})
	category := newTestCategory()
	product := newTestProduct(category)

	d.categoryRepo.On("GetByID", ctx, category.ID).Return(category, nil)
	d.productRepo.On("GetByID", ctx, product.ID).Return(product, nil)
	d.productRepo.On("Update", ctx, mock.MatchedBy(func(p *entity.Product) bool {
		return p.CategoryID == nil
	})).Return(nil)
	d.publisher.On("PublishMessage", ctx, product.ID.String(), mock.Anything).Return(nil)

	// Act
	resp, err := d.service.DetachProduct(ctx, category.ID, product.ID)

	// Assert
	require.NoError(t, err)
	assert.Nil(t, resp.Category)
	assert.Empty(t, resp.CategoryName)
}

// ==================== Product Tests ====================

func TestCatalogService_CreateProduct_Success(t *testing.T) {
	// Arrange
	ctx := context.Background()
	d := newTestService(t, Options{})

	var stored *entity.Product
	d.productRepo.On("Create", ctx, mock.AnythingOfType("*entity.Product")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*entity.Product) }).
		Return(nil)

	var published []byte
	d.publisher.On("PublishMessage", ctx, mock.AnythingOfType("string"), mock.Anything).
		Run(func(args mock.Arguments) { published = args.Get(2).([]byte) }).
		Return(nil)

	fields := validation.FieldMap{
		"sku":      "LAP-00001",
		"name":     "Laptop",
		"price":    json.Number("999.99"),
		"quantity": json.Number("5"),
		"tags":     []any{" dev ", "", "work"},
	}

	// Act
	resp, err := d.service.CreateProduct(ctx, fields)

	// Assert
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "LAP-00001", *resp.SKU)
	assert.True(t, decimal.RequireFromString("999.99").Equal(resp.Price))
	assert.Equal(t, validation.DefaultLowStockThreshold, resp.LowStockThreshold)
	assert.Equal(t, validation.StatusActive, resp.Status)
	assert.Equal(t, []string{"dev", "work"}, resp.Tags)
	assert.True(t, resp.IsInStock)
	assert.True(t, resp.IsLowStock)

	var event entity.ProductEvent
	require.NoError(t, json.Unmarshal(published, &event))
	assert.Equal(t, entity.EventProductCreated, event.EventType)
	assert.Equal(t, stored.ID, event.ProductID)
	assert.True(t, event.IsLowStock)
}

func TestCatalogService_CreateProduct_ValidationFailed(t *testing.T) {
	// Arrange
	ctx := context.Background()
	d := newTestService(t, Options{})

	fields := validation.FieldMap{
		"sku":            "bad",
		"name":           "Laptop",
		"discount_price": json.Number("10"),
	}

	// Act
	resp, err := d.service.CreateProduct(ctx, fields)

	// Assert
	assert.Nil(t, resp)
	appErr := requireAppErr(t, err, apperr.KindValidationFailed)
	assert.Contains(t, appErr.Fields, "sku")
	assert.Contains(t, appErr.Fields, "price")
	assert.Contains(t, appErr.Fields, "quantity")
	d.productRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	d.publisher.AssertNotCalled(t, "PublishMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestCatalogService_CreateProduct_UnknownCategory(t *testing.T) {
	// Arrange
	ctx := context.Background()
	d := newTestService(t, Options{})
	categoryID := uuid.New()

	d.categoryRepo.On("GetByID", ctx, categoryID).Return(nil, repository.ErrCategoryNotFound)

	fields := validation.FieldMap{
		"name":     "Laptop",
		"price":    json.Number("10"),
		"quantity": json.Number("1"),
		"category": categoryID.String(),
	}

	// Act
	resp, err := d.service.CreateProduct(ctx, fields)

	// Assert
	assert.Nil(t, resp)
	appErr := requireAppErr(t, err, apperr.KindValidationFailed)
	assert.Contains(t, appErr.Fields, "category")
	d.productRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCatalogService_CreateProduct_DuplicateSKU(t *testing.T) {
	// Arrange
	ctx := context.Background()
	d := newTestService(t, Options{})

	d.productRepo.On("Create", ctx, mock.AnythingOfType("*entity.Product")).Return(repository.ErrDuplicateSKU)

	fields := validation.FieldMap{
		"sku":      "LAP-00001",
		"name":     "Laptop",
		"price":    json.Number("10"),
		"quantity": json.Number("1"),
	}

	// Act
	_, err := d.service.CreateProduct(ctx, fields)

	// Assert
	appErr := requireAppErr(t, err, apperr.KindValidationFailed)
	assert.Equal(t, []string{"product with this sku already exists."}, appErr.Fields["sku"])
}

func TestCatalogService_CreateProduct_PublishErrorIgnored(t *testing.T) {
	// Arrange
	ctx := context.Background()
	d := newTestService(t, Options{})

	d.productRepo.On("Create", ctx, mock.AnythingOfType("*entity.Product")).Return(nil)
	d.publisher.On("PublishMessage", ctx, mock.Anything, mock.Anything).Return(errors.New("kafka down"))

	fields := validation.FieldMap{
		"name":     "Laptop",
		"price":    json.Number("10"),
		"quantity": json.Number("100"),
	}

	// Act
	resp, err := d.service.CreateProduct(ctx, fields)

	// Assert - товар уже сохранен, ошибка Kafka только логируется
	require.NoError(t, err)
	assert.False(t, resp.IsLowStock)
}

func TestCatalogService_GetProduct_NotFound(t *testing.T) {
	// Arrange
	ctx := context.Background()
	d := newTestService(t, Options{})
	id := uuid.New()

	d.productRepo.On("GetByID", ctx, id).Return(nil, repository.ErrProductNotFound)

	// Act
	resp, err := d.service.GetProduct(ctx, id)

	// Assert
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestCatalogService_UpdateProduct_Partial(t *testing.T) {
	// Arrange
	ctx := context.Background()
	d := newTestService(t, Options{})
	category := newTestCategory()
	product := newTestProduct(category)

	d.productRepo.On("GetByID", ctx, product.ID).Return(product, nil)
	d.productRepo.On("Update", ctx, mock.MatchedBy(func(p *entity.Product) bool {
		return p.Name == "Laptop Pro" && p.Quantity == 50 && p.CategoryID != nil
	})).Return(nil)
	d.publisher.On("PublishMessage", ctx, product.ID.String(), mock.Anything).Return(nil)

	// Act
	resp, err := d.service.UpdateProduct(ctx, product.ID, validation.FieldMap{"name": "Laptop Pro"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "Laptop Pro", resp.Name)
	assert.Equal(t, "Electronics", resp.CategoryName)
	d.categoryRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	d.productRepo.AssertExpectations(t)
}

func TestCatalogService_UpdateProduct_DiscountAgainstStoredPrice(t *testing.T) {
	// Arrange
	ctx := context.Background()
	d := newTestService(t, Options{})
	product := newTestProduct(nil)

	d.productRepo.On("GetByID", ctx, product.ID).Return(product, nil)

	// Act
	_, err := d.service.UpdateProduct(ctx, product.ID, validation.FieldMap{"discount_price": json.Number("150")})

	// Assert
	appErr := requireAppErr(t, err, apperr.KindValidationFailed)
	assert.Equal(t, []string{"Discount price must be less than regular price"}, appErr.Fields["discount_price"])
	d.productRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestCatalogService_UpdateProduct_ClearsNullableFields(t *testing.T) {
	// Arrange
	ctx := context.Background()
	d := newTestService(t, Options{})
	category := newTestCategory()
	product := newTestProduct(category)
	product.DiscountPrice = decimal.NewNullDecimal(decimal.RequireFromString("80"))

	d.productRepo.On("GetByID", ctx, product.ID).Return(product, nil)
	d.productRepo.On("Update", ctx, mock.AnythingOfType("*entity.Product")).Return(nil)
	d.publisher.On("PublishMessage", ctx, product.ID.String(), mock.Anything).Return(nil)

	// Act
	resp, err := d.service.UpdateProduct(ctx, product.ID, validation.FieldMap{
		"category":       nil,
		"discount_price": nil,
		"sku":            nil,
	})

	// Assert
	require.NoError(t, err)
	assert.Nil(t, resp.Category)
	assert.Nil(t, resp.SKU)
	assert.False(t, resp.DiscountPrice.Valid)
}

func TestCatalogService_UpdateProduct_IDMismatch(t *testing.T) {
	// Arrange
	ctx := context.Background()
	d := newTestService(t, Options{})
	product := newTestProduct(nil)

	d.productRepo.On("GetByID", ctx, product.ID).Return(product, nil)

	// Act
	_, err := d.service.UpdateProduct(ctx, product.ID, validation.FieldMap{
		"id":   uuid.NewString(),
		"name": "Other",
	})

	// Assert
	appErr := requireAppErr(t, err, apperr.KindValidationFailed)
	assert.Contains(t, appErr.Fields, "id")
}

func TestCatalogService_UpdateStock_Adjustment(t *testing.T) {
	// Arrange
	ctx := context.Background()
	d := newTestService(t, Options{})
	product := newTestProduct(nil)

	d.productRepo.On("GetByID", ctx, product.ID).Return(product, nil)
	d.productRepo.On("UpdateStock", ctx, product.ID, 8).Return(nil)
	d.publisher.On("PublishMessage", ctx, product.ID.String(), mock.Anything).Return(nil)

	// Act
	resp, err := d.service.UpdateStock(ctx, product.ID, &entity.UpdateStockRequest{Adjustment: intPtr(-42)})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 8, resp.Quantity)
	assert.True(t, resp.IsLowStock)
	d.productRepo.AssertExpectations(t)
}

func TestCatalogService_UpdateStock_Negative(t *testing.T) {
	// Arrange
	ctx := context.Background()
	d := newTestService(t, Options{})
	product := newTestProduct(nil)

	d.productRepo.On("GetByID", ctx, product.ID).Return(product, nil)

	// Act
	_, err := d.service.UpdateStock(ctx, product.ID, &entity.UpdateStockRequest{Adjustment: intPtr(-51)})

	// Assert
	appErr := requireAppErr(t, err, apperr.KindInvalidParameter)
	assert.Equal(t, "Quantity cannot be negative", appErr.Message)
	d.productRepo.AssertNotCalled(t, "UpdateStock", mock.Anything, mock.Anything, mock.Anything)
}

func TestCatalogService_UpdateStock_RequiresExactlyOne(t *testing.T) {
	ctx := context.Background()
	d := newTestService(t, Options{})

	_, err := d.service.UpdateStock(ctx, uuid.New(), &entity.UpdateStockRequest{})
	requireAppErr(t, err, apperr.KindInvalidParameter)

	_, err = d.service.UpdateStock(ctx, uuid.New(), &entity.UpdateStockRequest{Quantity: intPtr(1), Adjustment: intPtr(1)})
	requireAppErr(t, err, apperr.KindInvalidParameter)
}

func TestCatalogService_DeleteProduct_Success(t *testing.T) {
	// Arrange
	ctx := context.Background()
	d := newTestService(t, Options{})
	product := newTestProduct(nil)

	d.productRepo.On("GetByID", ctx, product.ID).Return(product, nil)
	d.productRepo.On("Delete", ctx, product.ID).Return(nil)
	d.publisher.On("PublishMessage", ctx, product.ID.String(), mock.MatchedBy(func(b []byte) bool {
		var event entity.ProductEvent
		return json.Unmarshal(b, &event) == nil && event.EventType == entity.EventProductDeleted
	})).Return(nil)

	// Act
	err := d.service.DeleteProduct(ctx, product.ID)

	// Assert
	require.NoError(t, err)
	d.publisher.AssertExpectations(t)
}

// ==================== Listing Tests ====================

func TestCatalogService_ListProducts_FirstPage(t *testing.T) {
	// Arrange
	ctx := context.Background()
	d := newTestService(t, Options{})
	filter := entity.ProductFilter{}
	products := []entity.Product{*newTestProduct(nil), *newTestProduct(nil)}

	d.productRepo.On("Count", ctx, filter).Return(3, nil)
	d.productRepo.On("List", ctx, filter, 0, 2).Return(products, nil)

	// Act
	page, err := d.service.ListProducts(ctx, ProductQuery{
		Page: PageRequest{Limit: "2", BasePath: "/products"},
	})

	// Assert
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, "/products?start=0&limit=2", page.Navigation.Self)
	require.NotNil(t, page.Navigation.Next)
	assert.Equal(t, "/products?start=2&limit=2", *page.Navigation.Next)
	assert.Nil(t, page.Navigation.Prev)
	assert.Equal(t, 2, page.Navigation.Pages)
	assert.Equal(t, 1, page.Navigation.Current)
}

func TestCatalogService_ListProducts_PageAndPageSize(t *testing.T) {
	// Arrange
	ctx := context.Background()
	d := newTestService(t, Options{})
	filter := entity.ProductFilter{}

	d.productRepo.On("Count", ctx, filter).Return(5, nil)
	d.productRepo.On("List", ctx, filter, 2, 4).Return([]entity.Product{*newTestProduct(nil), *newTestProduct(nil)}, nil)

	// Act
	page, err := d.service.ListProducts(ctx, ProductQuery{
		Page: PageRequest{Page: "2", PageSize: "2", BasePath: "/products"},
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, page.Navigation.Current)
	assert.Equal(t, 3, page.Navigation.Pages)
}

func TestCatalogService_ListProducts_StartByProductID(t *testing.T) {
	// Arrange
	ctx := context.Background()
	d := newTestService(t, Options{})
	filter := entity.ProductFilter{}
	anchor := uuid.New()

	d.productRepo.On("PositionOf", ctx, filter, anchor).Return(2, nil)
	d.productRepo.On("Count", ctx, filter).Return(4, nil)
	d.productRepo.On("List", ctx, filter, 2, 4).Return([]entity.Product{*newTestProduct(nil), *newTestProduct(nil)}, nil)

	// Act
	page, err := d.service.ListProducts(ctx, ProductQuery{
		Page: PageRequest{Start: anchor.String(), Limit: "2", BasePath: "/products"},
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "/products?start=2&limit=2", page.Navigation.Self)
	require.NotNil(t, page.Navigation.Prev)
	assert.Equal(t, "/products?start=0&limit=2", *page.Navigation.Prev)
}

func TestCatalogService_ListProducts_StartIDNotInCollection(t *testing.T) {
	// Arrange
	ctx := context.Background()
	d := newTestService(t, Options{})
	anchor := uuid.New()

	d.productRepo.On("PositionOf", ctx, entity.ProductFilter{}, anchor).Return(0, repository.ErrProductNotFound)

	// Act
	page, err := d.service.ListProducts(ctx, ProductQuery{
		Page: PageRequest{Start: anchor.String(), BasePath: "/products"},
	})

	// Assert
	assert.Nil(t, page)
	appErr := requireAppErr(t, err, apperr.KindNotFound)
	assert.Equal(t, "start", appErr.Field)
	d.productRepo.AssertNotCalled(t, "Count", mock.Anything, mock.Anything)
}

func TestCatalogService_ListProducts_InvalidParameters(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		req  PageRequest
		kind apperr.Kind
	}{
		{"limit above max", PageRequest{Limit: "251"}, apperr.KindLimitExceeded},
		{"limit not a number", PageRequest{Limit: "ten"}, apperr.KindInvalidParameter},
		{"negative start", PageRequest{Start: "-1"}, apperr.KindInvalidParameter},
		{"garbage start", PageRequest{Start: "abc"}, apperr.KindInvalidParameter},
		{"page zero", PageRequest{Page: "0"}, apperr.KindInvalidParameter},
		{"page size above max", PageRequest{Page: "1", PageSize: "1000"}, apperr.KindLimitExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestService(t, Options{})

			page, err := d.service.ListProducts(ctx, ProductQuery{Page: tt.req})

			assert.Nil(t, page)
			requireAppErr(t, err, tt.kind)
			d.productRepo.AssertNotCalled(t, "Count", mock.Anything, mock.Anything)
		})
	}
}

func TestCatalogService_ListProducts_StartBeyondEnd(t *testing.T) {
	// Arrange
	ctx := context.Background()
	d := newTestService(t, Options{})

	d.productRepo.On("Count", ctx, entity.ProductFilter{}).Return(3, nil)

	// Act
	_, err := d.service.ListProducts(ctx, ProductQuery{Page: PageRequest{Start: "4", BasePath: "/products"}})

	// Assert
	requireAppErr(t, err, apperr.KindNotFound)
	d.productRepo.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCatalogService_ListProducts_UnknownCategorySlug(t *testing.T) {
	// Arrange
	ctx := context.Background()
	d := newTestService(t, Options{})
	none := uuid.Nil
	filter := entity.ProductFilter{CategoryID: &none}

	d.categoryRepo.On("GetBySlug", ctx, "toys").Return(nil, repository.ErrCategoryNotFound)
	d.productRepo.On("Count", ctx, filter).Return(0, nil)

	// Act
	page, err := d.service.ListProducts(ctx, ProductQuery{
		Category: "toys",
		Page:     PageRequest{BasePath: "/products?category=toys"},
	})

	// Assert
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.NotNil(t, page.Items)
	assert.Equal(t, 0, page.Navigation.Pages)
	assert.Equal(t, 1, page.Navigation.Current)
	assert.Equal(t, "/products?category=toys&start=0&limit=100", page.Navigation.Self)
}

func TestCatalogService_ListLowStock_AppliesStockFilter(t *testing.T) {
	// Arrange
	ctx := context.Background()
	d := newTestService(t, Options{})
	category := newTestCategory()
	filter := entity.ProductFilter{CategoryID: &category.ID, StockStatus: entity.StockLow}

	d.categoryRepo.On("GetBySlug", ctx, "electronics").Return(category, nil)
	d.productRepo.On("Count", ctx, filter).Return(1, nil)
	d.productRepo.On("List", ctx, filter, 0, 1).Return([]entity.Product{*newTestProduct(category)}, nil)

	// Act
	page, err := d.service.ListLowStock(ctx, ProductQuery{
		Category: "electronics",
		Page:     PageRequest{BasePath: "/products/low-stock"},
	})

	// Assert
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	d.productRepo.AssertExpectations(t)
}

func TestCatalogService_ListFeatured_AppliesFeaturedFilter(t *testing.T) {
	// Arrange
	ctx := context.Background()
	d := newTestService(t, Options{})
	featured := true
	filter := entity.ProductFilter{Featured: &featured}

	d.productRepo.On("Count", ctx, filter).Return(0, nil)

	// Act
	page, err := d.service.ListFeatured(ctx, ProductQuery{Page: PageRequest{BasePath: "/products/featured"}})

	// Assert
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	d.productRepo.AssertExpectations(t)
}

func TestCatalogService_ListCategoryProducts_CategoryNotFound(t *testing.T) {
	// Arrange
	ctx := context.Background()
	d := newTestService(t, Options{})
	id := uuid.New()

	d.categoryRepo.On("GetByID", ctx, id).Return(nil, repository.ErrCategoryNotFound)

	// Act
	page, err := d.service.ListCategoryProducts(ctx, id, PageRequest{})

	// Assert
	assert.Nil(t, page)
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Electronics":        "electronics",
		"Home & Garden":      "home-garden",
		"  Books -- Comics ": "books-comics",
		"Кухня и Дом":        "кухня-и-дом",
		"!!!":                "",
		"4K TVs!":            "4k-tvs",
	}
	for in, want := range tests {
		assert.Equal(t, want, slugify(in), in)
	}
}
