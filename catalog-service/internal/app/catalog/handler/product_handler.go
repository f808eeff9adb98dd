package handler

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"productcatalog/catalog-service/internal/app/catalog/entity"
	"productcatalog/catalog-service/internal/app/catalog/service"
	"productcatalog/catalog-service/internal/app/catalog/validation"
	"productcatalog/pkg/apperr"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// параметры пагинации, которые не переносятся в навигационные ссылки
var pagingParams = []string{"start", "limit", "page", "page_size"}

// === PRODUCTS HANDLERS ===

// GetAllProducts обрабатывает GET /products
func (h *CatalogHandler) GetAllProducts(c *gin.Context) {
	h.listProducts(c, h.catalogService.ListProducts)
}

// GetLowStockProducts обрабатывает GET /products/low-stock
func (h *CatalogHandler) GetLowStockProducts(c *gin.Context) {
	h.listProducts(c, h.catalogService.ListLowStock)
}

// GetFeaturedProducts обрабатывает GET /products/featured
func (h *CatalogHandler) GetFeaturedProducts(c *gin.Context) {
	h.listProducts(c, h.catalogService.ListFeatured)
}

// GetProduct обрабатывает GET /products/:id
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	product, err := h.catalogService.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// CreateProduct обрабатывает POST /products.
// Тело разбирается в сырую запись, проверку полей делает валидатор товара
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	fields, ok := decodeFields(c)
	if !ok {
		return
	}

	product, err := h.catalogService.CreateProduct(c.Request.Context(), fields)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Location", "/products/"+product.ID.String())
	c.JSON(http.StatusCreated, product)
}

// UpdateProduct обрабатывает PUT и PATCH /products/:id (частичное обновление)
func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	fields, ok := decodeFields(c)
	if !ok {
		return
	}

	product, err := h.catalogService.UpdateProduct(c.Request.Context(), id, fields)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// UpdateStock обрабатывает PATCH /products/:id/stock
func (h *CatalogHandler) UpdateStock(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req entity.UpdateStockRequest
	if !h.bindJSON(c, &req) {
		return
	}

	product, err := h.catalogService.UpdateStock(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// DeleteProduct обрабатывает DELETE /products/:id
func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.catalogService.DeleteProduct(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type listFunc func(ctx context.Context, query service.ProductQuery) (*service.ProductPage, error)

func (h *CatalogHandler) listProducts(c *gin.Context, list listFunc) {
	query, err := productQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}

	page, err := list(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// decodeFields читает тело как JSON объект. Числа остаются json.Number
// (binding.EnableDecoderUseNumber), чтобы цены не теряли точность.
// При ошибке ответ уже отправлен
func decodeFields(c *gin.Context) (validation.FieldMap, bool) {
	var fields validation.FieldMap
	if err := c.ShouldBindJSON(&fields); err != nil || fields == nil {
		respondError(c, apperr.InvalidParameter("body", "Invalid request body").
			WithSuggestion("Send a single JSON object with product fields"))
		return nil, false
	}
	return fields, true
}

// pageRequest собирает параметры пагинации и базовый путь для ссылок.
// Фильтры из query string сохраняются в ссылках, параметры страницы нет
func pageRequest(c *gin.Context) service.PageRequest {
	return service.PageRequest{
		Start:    c.Query("start"),
		Limit:    c.Query("limit"),
		Page:     c.Query("page"),
		PageSize: c.Query("page_size"),
		BasePath: basePath(c.Request.URL),
	}
}

func basePath(u *url.URL) string {
	q := u.Query()
	for _, p := range pagingParams {
		q.Del(p)
	}
	if len(q) == 0 {
		return u.Path
	}
	return u.Path + "?" + q.Encode()
}

// productQuery разбирает фильтры списка товаров
func productQuery(c *gin.Context) (service.ProductQuery, error) {
	query := service.ProductQuery{
		Category: c.Query("category"),
		Page:     pageRequest(c),
	}
	filter := &query.Filter

	var err error
	if filter.MinPrice, err = decimalQuery(c, "min_price"); err != nil {
		return query, err
	}
	if filter.MaxPrice, err = decimalQuery(c, "max_price"); err != nil {
		return query, err
	}

	switch stock := c.Query("stock_status"); stock {
	case "", entity.StockInStock, entity.StockOutOfStock, entity.StockLow:
		filter.StockStatus = stock
	default:
		return query, apperr.InvalidParameter("stock_status", "stock_status must be one of: in_stock, out_of_stock, low_stock")
	}

	switch status := c.Query("status"); status {
	case "", validation.StatusActive, validation.StatusInactive, validation.StatusOutOfStock, validation.StatusDiscontinued:
		filter.Status = status
	default:
		return query, apperr.InvalidParameter("status", "status must be one of: active, inactive, out_of_stock, discontinued")
	}

	if raw := c.Query("featured"); raw != "" {
		featured, err := strconv.ParseBool(raw)
		if err != nil {
			return query, apperr.InvalidParameter("featured", "featured must be true or false")
		}
		filter.Featured = &featured
	}

	if ordering := strings.TrimSpace(c.Query("ordering")); ordering != "" {
		if _, _, ok := entity.ParseOrdering(ordering); !ok {
			return query, apperr.InvalidParameter("ordering",
				"ordering must be one of: "+strings.Join(entity.OrderingFields, ", ")+` (prefix with "-" for descending)`)
		}
		filter.Ordering = ordering
	}

	filter.Search = strings.TrimSpace(c.Query("search"))
	return query, nil
}

func decimalQuery(c *gin.Context, name string) (*decimal.Decimal, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, apperr.InvalidParameter(name, name+" must be a number")
	}
	return &d, nil
}
