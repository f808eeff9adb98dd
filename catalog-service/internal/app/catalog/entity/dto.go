package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateCategoryRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description" validate:"max=2000"`
}

type UpdateCategoryRequest struct {
	Name        string  `json:"name" validate:"required,min=2,max=100"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}

// AttachProductRequest тело POST /categories/:id/products
type AttachProductRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
}

// UpdateStockRequest тело PATCH /products/:id/stock.
// Передается либо абсолютное количество, либо изменение
type UpdateStockRequest struct {
	Quantity   *int `json:"quantity" validate:"omitempty,gte=0"`
	Adjustment *int `json:"adjustment"`
}

// Значения фильтра stock_status
const (
	StockInStock    = "in_stock"
	StockOutOfStock = "out_of_stock"
	StockLow        = "low_stock"
)

// ProductFilter фильтры списка товаров, пустые поля не применяются
type ProductFilter struct {
	CategoryID  *uuid.UUID
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
	StockStatus string
	Status      string
	Featured    *bool
	Search      string
	Ordering    string // колонка сортировки, "-" в начале означает убывание
}

// DefaultOrdering сортировка списка товаров, если ordering не передан
const DefaultOrdering = "-created_at"

// OrderingFields колонки, по которым разрешено сортировать товары
var OrderingFields = []string{"name", "price", "created_at", "quantity"}

// ParseOrdering разбирает значение ordering ("price", "-created_at").
// Пустая строка дает DefaultOrdering, неизвестная колонка ok == false
func ParseOrdering(raw string) (column string, desc bool, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = DefaultOrdering
	}
	desc = strings.HasPrefix(raw, "-")
	column = strings.TrimPrefix(raw, "-")
	for _, f := range OrderingFields {
		if f == column {
			return column, desc, true
		}
	}
	return "", false, false
}

// ProductResponse товар в ответе API вместе с вычисляемыми полями
type ProductResponse struct {
	ID                uuid.UUID           `json:"id"`
	SKU               *string             `json:"sku"`
	Name              string              `json:"name"`
	Description       string              `json:"description"`
	Brand             string              `json:"brand"`
	Category          *uuid.UUID          `json:"category"`
	CategoryName      string              `json:"category_name,omitempty"`
	Tags              []string            `json:"tags"`
	Price             decimal.Decimal     `json:"price"`
	DiscountPrice     decimal.NullDecimal `json:"discount_price"`
	Quantity          int                 `json:"quantity"`
	LowStockThreshold int                 `json:"low_stock_threshold"`
	Weight            decimal.NullDecimal `json:"weight"`
	Dimensions        string              `json:"dimensions"`
	Status            string              `json:"status"`
	Featured          bool                `json:"featured"`
	Rating            decimal.NullDecimal `json:"rating"`
	IsInStock         bool                `json:"is_in_stock"`
	IsLowStock        bool                `json:"is_low_stock"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

// NewProductResponse заполняет ответ, имя категории берется из загруженной связи
func NewProductResponse(p *Product) ProductResponse {
	resp := ProductResponse{
		ID:                p.ID,
		SKU:               p.SKU,
		Name:              p.Name,
		Description:       p.Description,
		Brand:             p.Brand,
		Category:          p.CategoryID,
		Tags:              []string(p.Tags),
		Price:             p.Price,
		DiscountPrice:     p.DiscountPrice,
		Quantity:          p.Quantity,
		LowStockThreshold: p.LowStockThreshold,
		Weight:            p.Weight,
		Dimensions:        p.Dimensions,
		Status:            p.Status,
		Featured:          p.Featured,
		Rating:            p.Rating,
		IsInStock:         p.IsInStock(),
		IsLowStock:        p.IsLowStock(),
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	if p.Category != nil {
		resp.CategoryName = p.Category.Name
	}
	return resp
}

// ErrorResponse единый формат ошибки API
type ErrorResponse struct {
	Code       string              `json:"code"`
	Message    string              `json:"message"`
	Details    string              `json:"details,omitempty"`
	Timestamp  time.Time           `json:"timestamp"`
	Request    string              `json:"request"`
	Suggestion string              `json:"suggestion,omitempty"`
	Errors     map[string][]string `json:"errors,omitempty"`
}

type CategoryListResponse struct {
	Categories []Category `json:"categories"`
	Total      int        `json:"total"`
}
