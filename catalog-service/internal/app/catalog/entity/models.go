package entity

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Category представляет категорию товаров.
// Таблица читается через pgx, схема создается GORM AutoMigrate, поэтому теги обоих видов
type Category struct {
	ID          uuid.UUID `json:"id" db:"id" gorm:"type:uuid;primaryKey"`
	Name        string    `json:"name" db:"name" gorm:"size:100;not null;uniqueIndex"`
	Slug        string    `json:"slug" db:"slug" gorm:"size:100;not null;uniqueIndex"`
	Description string    `json:"description" db:"description" gorm:"type:text;not null;default:''"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Tags список тегов товара, в БД хранится одной строкой через запятую
type Tags []string

// Value реализует driver.Valuer
func (t Tags) Value() (driver.Value, error) {
	return strings.Join(t, ","), nil
}

// Scan реализует sql.Scanner
func (t *Tags) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*t = Tags{}
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("unsupported tags type %T", src)
	}

	out := Tags{}
	for _, tag := range strings.Split(raw, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	*t = out
	return nil
}

// Product представляет товар в каталоге
type Product struct {
	ID                uuid.UUID           `json:"id" gorm:"type:uuid;primaryKey"`
	SKU               *string             `json:"sku" gorm:"size:9;uniqueIndex"`
	Name              string              `json:"name" gorm:"size:200;not null;index"`
	Description       string              `json:"description" gorm:"type:text;not null;default:''"`
	Brand             string              `json:"brand" gorm:"size:100;not null;default:'';index"`
	CategoryID        *uuid.UUID          `json:"category" gorm:"type:uuid;index"`
	Category          *Category           `json:"-" gorm:"foreignKey:CategoryID;constraint:OnDelete:RESTRICT"`
	Tags              Tags                `json:"tags" gorm:"type:varchar(200);not null;default:''"`
	Price             decimal.Decimal     `json:"price" gorm:"type:numeric(10,2);not null"` // Цена в базовой валюте (USD)
	DiscountPrice     decimal.NullDecimal `json:"discount_price" gorm:"type:numeric(10,2)"`
	Quantity          int                 `json:"quantity" gorm:"not null;default:0"`
	LowStockThreshold int                 `json:"low_stock_threshold" gorm:"not null;default:10"`
	Weight            decimal.NullDecimal `json:"weight" gorm:"type:numeric(6,2)"` // кг
	Dimensions        string              `json:"dimensions" gorm:"size:50;not null;default:''"`
	Status            string              `json:"status" gorm:"size:20;not null;default:'active';index"`
	Featured          bool                `json:"featured" gorm:"not null;default:false;index"`
	Rating            decimal.NullDecimal `json:"rating" gorm:"type:numeric(3,2)"`
	CreatedAt         time.Time           `json:"created_at" gorm:"index"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

// IsInStock товар есть на складе
func (p *Product) IsInStock() bool {
	return p.Quantity > 0
}

// IsLowStock товар заканчивается: есть на складе, но не больше порога
func (p *Product) IsLowStock() bool {
	return p.Quantity > 0 && p.Quantity <= p.LowStockThreshold
}

// Типы событий о товарах
const (
	EventProductCreated = "PRODUCT_CREATED"
	EventProductUpdated = "PRODUCT_UPDATED"
	EventProductDeleted = "PRODUCT_DELETED"
	EventStockUpdated   = "STOCK_UPDATED"
)

// ProductEvent представляет событие изменения продукта для Kafka
type ProductEvent struct {
	EventType  string          `json:"event_type"` // PRODUCT_CREATED, PRODUCT_UPDATED, PRODUCT_DELETED, STOCK_UPDATED
	ProductID  uuid.UUID       `json:"product_id"`
	SKU        string          `json:"sku,omitempty"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
	IsLowStock bool            `json:"is_low_stock"`
	CategoryID *uuid.UUID      `json:"category_id,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

// NewProductEvent собирает событие по текущему состоянию товара
func NewProductEvent(eventType string, p *Product) ProductEvent {
	event := ProductEvent{
		EventType:  eventType,
		ProductID:  p.ID,
		Name:       p.Name,
		Price:      p.Price,
		Quantity:   p.Quantity,
		IsLowStock: p.IsLowStock(),
		CategoryID: p.CategoryID,
		Timestamp:  time.Now().UTC(),
	}
	if p.SKU != nil {
		event.SKU = *p.SKU
	}
	return event
}
