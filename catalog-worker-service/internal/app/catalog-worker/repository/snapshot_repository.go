package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"productcatalog/catalog-worker-service/internal/app/catalog-worker/entity"

	"github.com/redis/go-redis/v9"
)

// snapshotRepository хранит снимок остатков в Redis под ключом products:low_stock
type snapshotRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSnapshotRepository создает репозиторий снимка остатков
// ttl - сколько живет снимок, если проверки перестали выполняться
func NewSnapshotRepository(client *redis.Client, ttl time.Duration) SnapshotRepository {
	return &snapshotRepository{client: client, ttl: ttl}
}

// Save перезаписывает снимок
func (r *snapshotRepository) Save(ctx context.Context, snapshot *entity.LowStockSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal low stock snapshot: %w", err)
	}

	if err := r.client.Set(ctx, entity.RedisKeyLowStock, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set low stock snapshot in redis: %w", err)
	}
	return nil
}

// Get читает последний снимок
func (r *snapshotRepository) Get(ctx context.Context) (*entity.LowStockSnapshot, error) {
	data, err := r.client.Get(ctx, entity.RedisKeyLowStock).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to get low stock snapshot from redis: %w", err)
	}

	var snapshot entity.LowStockSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal low stock snapshot: %w", err)
	}
	return &snapshot, nil
}
