package validation

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Имена полей товара в JSON представлении
const (
	FieldID                = "id"
	FieldSKU               = "sku"
	FieldName              = "name"
	FieldDescription       = "description"
	FieldBrand             = "brand"
	FieldCategory          = "category"
	FieldTags              = "tags"
	FieldPrice             = "price"
	FieldDiscountPrice     = "discount_price"
	FieldQuantity          = "quantity"
	FieldLowStockThreshold = "low_stock_threshold"
	FieldWeight            = "weight"
	FieldDimensions        = "dimensions"
	FieldStatus            = "status"
	FieldFeatured          = "featured"
	FieldRating            = "rating"
)

// DefaultLowStockThreshold порог "мало на складе" для новых товаров
const DefaultLowStockThreshold = 10

// Статусы товара
const (
	StatusActive       = "active"
	StatusInactive     = "inactive"
	StatusOutOfStock   = "out_of_stock"
	StatusDiscontinued = "discontinued"
)

var (
	// DefaultRequired минимальный набор обязательных полей при создании
	DefaultRequired = []string{FieldName, FieldPrice, FieldQuantity}
	// StrictRequired расширенный набор: дополнительно sku, категория и бренд
	StrictRequired = []string{FieldName, FieldPrice, FieldQuantity, FieldSKU, FieldCategory, FieldBrand}
)

// поля, которые клиент может прислать, но сервер их вычисляет сам
var readOnlyFields = map[string]struct{}{
	FieldID:         {},
	"uuid":          {},
	"slug":          {},
	"created_at":    {},
	"updated_at":    {},
	"is_in_stock":   {},
	"is_low_stock":  {},
	"category_name": {},
}

// FieldMap сырая запись товара, например результат json.Decoder с UseNumber
type FieldMap map[string]any

// ProductFields типизированная запись товара после валидации.
// nil указатель означает, что поле не передавалось
type ProductFields struct {
	SKU               *string
	Name              *string
	Description       *string
	Brand             *string
	Category          *uuid.UUID
	Tags              *[]string
	Price             *decimal.Decimal
	DiscountPrice     *decimal.Decimal
	Quantity          *int
	LowStockThreshold *int
	Weight            *decimal.Decimal
	Dimensions        *string
	Status            *string
	Featured          *bool
	Rating            *decimal.Decimal

	// Cleared необязательные поля, явно переданные как null
	Cleared map[string]bool
}

// IsCleared сообщает, что поле нужно обнулить
func (f ProductFields) IsCleared(field string) bool {
	return f.Cleared[field]
}

// Result результат валидации.
// При Valid == false Errors содержит хотя бы одно поле
type Result struct {
	Valid  bool                `json:"valid"`
	Errors map[string][]string `json:"errors"`
	Fields ProductFields       `json:"-"`
}

func (r *Result) addError(field, msg string) {
	r.Errors[field] = append(r.Errors[field], msg)
}
