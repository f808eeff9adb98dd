package repository

import (
	"context"
	"fmt"

	"productcatalog/catalog-worker-service/internal/app/catalog-worker/entity"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const eventsCollection = "product_events"

type eventRepository struct {
	collection *mongo.Collection
}

// NewEventRepository создает репозиторий истории событий
func NewEventRepository(db *mongo.Database) EventRepository {
	return &eventRepository{collection: db.Collection(eventsCollection)}
}

// EnsureIndexes создает индекс (product_id, occurred_at) для выборки истории товара
// и уникальный индекс по позиции в Kafka, чтобы повторная доставка не дублировала запись
func (r *eventRepository) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "product_id", Value: 1},
				{Key: "occurred_at", Value: -1},
			},
			Options: options.Index().SetName("product_id_occurred_at_idx"),
		},
		{
			Keys: bson.D{
				{Key: "partition", Value: 1},
				{Key: "offset", Value: 1},
			},
			Options: options.Index().SetName("partition_offset_uniq").SetUnique(true),
		},
	}

	if _, err := r.collection.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

// Append сохраняет событие. Повторно доставленное сообщение не считается ошибкой
func (r *eventRepository) Append(ctx context.Context, record *entity.EventRecord) error {
	result, err := r.collection.InsertOne(ctx, record)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("failed to insert product event: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		record.ID = oid
	}
	return nil
}

// ListByProduct получает историю товара, новые события первыми
func (r *eventRepository) ListByProduct(ctx context.Context, productID string, limit int64) ([]entity.EventRecord, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "occurred_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, bson.M{"product_id": productID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find product events: %w", err)
	}
	defer cursor.Close(ctx)

	records := make([]entity.EventRecord, 0)
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode product events: %w", err)
	}
	return records, nil
}
