package repository

import (
	"context"
	"testing"
	"time"

	"productcatalog/catalog-worker-service/internal/app/catalog-worker/entity"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// SnapshotRepositoryTestSuite тестовый suite для Redis repository
type SnapshotRepositoryTestSuite struct {
	suite.Suite
	miniRedis *miniredis.Miniredis
	client    *redis.Client
	repo      SnapshotRepository
}

func TestSnapshotRepositorySuite(t *testing.T) {
	suite.Run(t, new(SnapshotRepositoryTestSuite))
}

func (s *SnapshotRepositoryTestSuite) SetupSuite() {
	var err error
	s.miniRedis, err = miniredis.Run()
	require.NoError(s.T(), err)

	s.client = redis.NewClient(&redis.Options{
		Addr: s.miniRedis.Addr(),
	})

	s.repo = NewSnapshotRepository(s.client, 15*time.Minute)
}

func (s *SnapshotRepositoryTestSuite) SetupTest() {
	s.miniRedis.FlushAll()
}

func (s *SnapshotRepositoryTestSuite) TearDownSuite() {
	s.client.Close()
	s.miniRedis.Close()
}

func (s *SnapshotRepositoryTestSuite) TestSaveAndGet() {
	ctx := context.Background()
	snapshot := &entity.LowStockSnapshot{
		ProductIDs: []string{"a", "b"},
		Count:      2,
		ScannedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	// Act
	err := s.repo.Save(ctx, snapshot)
	s.Require().NoError(err)

	got, err := s.repo.Get(ctx)

	// Assert
	s.NoError(err)
	s.Equal(snapshot.ProductIDs, got.ProductIDs)
	s.Equal(2, got.Count)
	s.True(snapshot.ScannedAt.Equal(got.ScannedAt))
	s.True(s.miniRedis.Exists(entity.RedisKeyLowStock))
	s.Equal(15*time.Minute, s.miniRedis.TTL(entity.RedisKeyLowStock))
}

func (s *SnapshotRepositoryTestSuite) TestSave_Overwrites() {
	ctx := context.Background()

	s.Require().NoError(s.repo.Save(ctx, &entity.LowStockSnapshot{ProductIDs: []string{"a"}, Count: 1}))
	s.Require().NoError(s.repo.Save(ctx, &entity.LowStockSnapshot{ProductIDs: []string{}, Count: 0}))

	// Act
	got, err := s.repo.Get(ctx)

	// Assert
	s.NoError(err)
	s.Empty(got.ProductIDs)
	s.Zero(got.Count)
}

func (s *SnapshotRepositoryTestSuite) TestGet_NotFound() {
	// Act
	got, err := s.repo.Get(context.Background())

	// Assert
	s.ErrorIs(err, ErrSnapshotNotFound)
	s.Nil(got)
}

func (s *SnapshotRepositoryTestSuite) TestGet_CorruptedValue() {
	s.Require().NoError(s.miniRedis.Set(entity.RedisKeyLowStock, "not json"))

	// Act
	got, err := s.repo.Get(context.Background())

	// Assert
	s.Error(err)
	s.NotErrorIs(err, ErrSnapshotNotFound)
	s.Nil(got)
}
