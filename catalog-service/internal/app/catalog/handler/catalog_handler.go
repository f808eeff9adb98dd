package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"productcatalog/catalog-service/internal/app/catalog/entity"
	"productcatalog/catalog-service/internal/app/catalog/service"
	"productcatalog/pkg/apperr"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// CatalogHandler обрабатывает HTTP запросы для каталога с использованием Gin
type CatalogHandler struct {
	catalogService service.CatalogServiceInterface
	validator      *validator.Validate
}

// NewCatalogHandler создает новый обработчик каталога
func NewCatalogHandler(catalogService service.CatalogServiceInterface) *CatalogHandler {
	v := validator.New()
	// В ошибках валидации используем имена полей из JSON
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &CatalogHandler{
		catalogService: catalogService,
		validator:      v,
	}
}

// === CATEGORIES HANDLERS ===

// CreateCategory обрабатывает POST /categories
func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var req entity.CreateCategoryRequest
	if !h.bindJSON(c, &req) {
		return
	}

	category, err := h.catalogService.CreateCategory(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Location", "/categories/"+category.ID.String())
	c.JSON(http.StatusCreated, category)
}

// GetCategory обрабатывает GET /categories/:id
func (h *CatalogHandler) GetCategory(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	category, err := h.catalogService.GetCategory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, category)
}

// GetAllCategories обрабатывает GET /categories (с кешированием)
func (h *CatalogHandler) GetAllCategories(c *gin.Context) {
	categories, err := h.catalogService.GetAllCategories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if categories == nil {
		categories = []entity.Category{}
	}

	c.JSON(http.StatusOK, entity.CategoryListResponse{
		Categories: categories,
		Total:      len(categories),
	})
}

// UpdateCategory обрабатывает PUT /categories/:id
func (h *CatalogHandler) UpdateCategory(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req entity.UpdateCategoryRequest
	if !h.bindJSON(c, &req) {
		return
	}

	category, err := h.catalogService.UpdateCategory(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, category)
}

// DeleteCategory обрабатывает DELETE /categories/:id
func (h *CatalogHandler) DeleteCategory(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.catalogService.DeleteCategory(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListCategoryProducts обрабатывает GET /categories/:id/products
func (h *CatalogHandler) ListCategoryProducts(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	page, err := h.catalogService.ListCategoryProducts(c.Request.Context(), id, pageRequest(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// AttachProduct обрабатывает POST /categories/:id/products
func (h *CatalogHandler) AttachProduct(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req entity.AttachProductRequest
	if !h.bindJSON(c, &req) {
		return
	}

	product, err := h.catalogService.AttachProduct(c.Request.Context(), id, req.ProductID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// DetachProduct обрабатывает DELETE /categories/:id/products/:productId
func (h *CatalogHandler) DetachProduct(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	productID, ok := uuidParam(c, "productId")
	if !ok {
		return
	}

	product, err := h.catalogService.DetachProduct(c.Request.Context(), id, productID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// bindJSON разбирает тело запроса и проверяет теги validate.
// При ошибке ответ уже отправлен
func (h *CatalogHandler) bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, apperr.InvalidParameter("body", "Invalid request body").
			WithSuggestion("Send a JSON object in the request body"))
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		respondError(c, apperr.ValidationFailed(formatValidationErrors(err)))
		return false
	}
	return true
}

// uuidParam читает UUID из пути. При ошибке ответ уже отправлен
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondError(c, apperr.InvalidParameter(name, "Invalid ID: "+c.Param(name)))
		return uuid.Nil, false
	}
	return id, true
}

// formatValidationErrors переводит ошибки validator в ошибки по полям
func formatValidationErrors(err error) map[string][]string {
	fields := make(map[string][]string)

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		fields["body"] = []string{"Validation failed"}
		return fields
	}

	for _, fieldError := range validationErrors {
		msg := fieldError.Field() + " is " + fieldError.Tag()
		if fieldError.Param() != "" {
			msg += "=" + fieldError.Param()
		}
		fields[fieldError.Field()] = append(fields[fieldError.Field()], msg)
	}
	return fields
}
