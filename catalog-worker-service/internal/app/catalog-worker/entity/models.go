package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Типы событий, которые публикует Catalog Service
const (
	EventTypeProductCreated = "PRODUCT_CREATED"
	EventTypeProductUpdated = "PRODUCT_UPDATED"
	EventTypeProductDeleted = "PRODUCT_DELETED"
	EventTypeStockUpdated   = "STOCK_UPDATED"
)

// KnownEventTypes события, которые worker сохраняет в историю
var KnownEventTypes = []string{
	EventTypeProductCreated,
	EventTypeProductUpdated,
	EventTypeProductDeleted,
	EventTypeStockUpdated,
}

// ProductEvent событие о товаре из топика product_events
type ProductEvent struct {
	EventType  string          `json:"event_type"`
	ProductID  uuid.UUID       `json:"product_id"`
	SKU        string          `json:"sku,omitempty"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
	IsLowStock bool            `json:"is_low_stock"`
	CategoryID *uuid.UUID      `json:"category_id,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

// MessageMeta положение сообщения в Kafka
type MessageMeta struct {
	Topic     string
	Partition int
	Offset    int64
}

// EventRecord документ коллекции product_events в MongoDB
type EventRecord struct {
	ID         primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	EventType  string               `bson:"event_type" json:"event_type"`
	ProductID  string               `bson:"product_id" json:"product_id"`
	SKU        string               `bson:"sku,omitempty" json:"sku,omitempty"`
	Name       string               `bson:"name" json:"name"`
	Price      primitive.Decimal128 `bson:"price" json:"price"`
	Quantity   int                  `bson:"quantity" json:"quantity"`
	IsLowStock bool                 `bson:"is_low_stock" json:"is_low_stock"`
	CategoryID string               `bson:"category_id,omitempty" json:"category_id,omitempty"`
	OccurredAt time.Time            `bson:"occurred_at" json:"occurred_at"`
	ReceivedAt time.Time            `bson:"received_at" json:"received_at"`
	Partition  int                  `bson:"partition" json:"partition"`
	Offset     int64                `bson:"offset" json:"offset"`
}

// NewEventRecord переводит событие в документ истории.
// Цена хранится как Decimal128, чтобы не терять копейки
func NewEventRecord(event *ProductEvent, meta MessageMeta, receivedAt time.Time) (*EventRecord, error) {
	price, err := primitive.ParseDecimal128(event.Price.String())
	if err != nil {
		return nil, err
	}

	record := &EventRecord{
		EventType:  event.EventType,
		ProductID:  event.ProductID.String(),
		SKU:        event.SKU,
		Name:       event.Name,
		Price:      price,
		Quantity:   event.Quantity,
		IsLowStock: event.IsLowStock,
		OccurredAt: event.Timestamp,
		ReceivedAt: receivedAt,
		Partition:  meta.Partition,
		Offset:     meta.Offset,
	}
	if event.CategoryID != nil {
		record.CategoryID = event.CategoryID.String()
	}
	return record, nil
}

// LowStockProduct проекция таблицы products для проверки остатков
type LowStockProduct struct {
	ID                uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	SKU               *string   `json:"sku"`
	Name              string    `json:"name"`
	Quantity          int       `json:"quantity"`
	LowStockThreshold int       `json:"low_stock_threshold"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (LowStockProduct) TableName() string {
	return "products"
}

// LowStockSnapshot результат последней проверки остатков, хранится в Redis
type LowStockSnapshot struct {
	ProductIDs []string  `json:"product_ids"`
	Count      int       `json:"count"`
	ScannedAt  time.Time `json:"scanned_at"`
}

const (
	RedisKeyLowStock = "products:low_stock" // Снимок товаров с низким остатком
)
