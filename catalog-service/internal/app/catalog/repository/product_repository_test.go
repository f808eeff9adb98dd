package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"productcatalog/catalog-service/internal/app/catalog/entity"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var productRowColumns = []string{
	"id", "sku", "name", "description", "brand", "category_id", "tags",
	"price", "discount_price", "quantity", "low_stock_threshold", "weight",
	"dimensions", "status", "featured", "rating", "created_at", "updated_at",
}

// ProductRepositoryTestSuite тестовый suite для GORM repository
type ProductRepositoryTestSuite struct {
	suite.Suite
	db    *gorm.DB
	mock  sqlmock.Sqlmock
	repo  ProductRepository
	sqlDB *sql.DB
}

func TestProductRepositorySuite(t *testing.T) {
	suite.Run(t, new(ProductRepositoryTestSuite))
}

func (s *ProductRepositoryTestSuite) SetupTest() {
	var err error
	s.sqlDB, s.mock, err = sqlmock.New()
	require.NoError(s.T(), err)

	dialector := postgres.New(postgres.Config{
		Conn:       s.sqlDB,
		DriverName: "postgres",
	})

	s.db, err = gorm.Open(dialector, &gorm.Config{})
	require.NoError(s.T(), err)

	s.repo = NewProductRepository(s.db)
}

func (s *ProductRepositoryTestSuite) TearDownTest() {
	s.sqlDB.Close()
}

func productRow(rows *sqlmock.Rows, id, categoryID uuid.UUID, quantity int, createdAt time.Time) *sqlmock.Rows {
	return rows.AddRow(
		id.String(), "ABC-12345", "Laptop", "Fast laptop", "Acme", categoryID.String(), "tech, sale",
		"1299.99", nil, quantity, 10, nil,
		"10x20x30", "active", true, "4.50", createdAt, createdAt,
	)
}

// ===================== GetByID Tests =====================

func (s *ProductRepositoryTestSuite) TestGetByID_Success() {
	ctx := context.Background()
	productID := uuid.New()
	categoryID := uuid.New()
	now := time.Now()

	s.mock.ExpectQuery(`SELECT \* FROM "products" WHERE id = \$1`).
		WillReturnRows(productRow(sqlmock.NewRows(productRowColumns), productID, categoryID, 5, now))
	s.mock.ExpectQuery(`SELECT \* FROM "categories" WHERE "categories"."id" = \$1`).
		WithArgs(categoryID.String()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug", "description", "created_at", "updated_at"}).
			AddRow(categoryID.String(), "Electronics", "electronics", "", now, now))

	// Act
	product, err := s.repo.GetByID(ctx, productID)

	// Assert
	s.NoError(err)
	s.Require().NotNil(product)
	s.Equal(productID, product.ID)
	s.Equal("ABC-12345", *product.SKU)
	s.Equal(entity.Tags{"tech", "sale"}, product.Tags)
	s.True(decimal.RequireFromString("1299.99").Equal(product.Price))
	s.False(product.DiscountPrice.Valid)
	s.True(product.IsLowStock())
	s.Require().NotNil(product.Category)
	s.Equal("Electronics", product.Category.Name)

	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *ProductRepositoryTestSuite) TestGetByID_NotFound() {
	ctx := context.Background()

	s.mock.ExpectQuery(`SELECT \* FROM "products" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows(productRowColumns))

	// Act
	product, err := s.repo.GetByID(ctx, uuid.New())

	// Assert
	s.ErrorIs(err, ErrProductNotFound)
	s.Nil(product)

	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *ProductRepositoryTestSuite) TestGetByID_DBError() {
	ctx := context.Background()

	s.mock.ExpectQuery(`SELECT \* FROM "products" WHERE id = \$1`).
		WillReturnError(sql.ErrConnDone)

	// Act
	product, err := s.repo.GetByID(ctx, uuid.New())

	// Assert
	s.Error(err)
	s.Nil(product)
	s.Contains(err.Error(), "failed to get product")
}

// ===================== Count / List Tests =====================

func (s *ProductRepositoryTestSuite) TestCount_WithFilter() {
	ctx := context.Background()
	featured := true

	s.mock.ExpectQuery(`SELECT count\(\*\) FROM "products" WHERE \(quantity > 0 AND quantity <= low_stock_threshold\) AND featured = \$1`).
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	// Act
	total, err := s.repo.Count(ctx, entity.ProductFilter{StockStatus: entity.StockLow, Featured: &featured})

	// Assert
	s.NoError(err)
	s.Equal(7, total)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *ProductRepositoryTestSuite) TestCount_DBError() {
	s.mock.ExpectQuery(`SELECT count\(\*\) FROM "products"`).
		WillReturnError(sql.ErrConnDone)

	_, err := s.repo.Count(context.Background(), entity.ProductFilter{})

	s.Error(err)
	s.Contains(err.Error(), "failed to count products")
}

func (s *ProductRepositoryTestSuite) TestList_OrderedWindow() {
	ctx := context.Background()
	categoryID := uuid.New()
	now := time.Now()

	rows := sqlmock.NewRows(productRowColumns)
	productRow(rows, uuid.New(), categoryID, 0, now)
	productRow(rows, uuid.New(), categoryID, 50, now.Add(-time.Minute))

	s.mock.ExpectQuery(`SELECT \* FROM "products" WHERE status = \$1 ORDER BY created_at DESC,id LIMIT`).
		WillReturnRows(rows)
	s.mock.ExpectQuery(`SELECT \* FROM "categories"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug", "description", "created_at", "updated_at"}).
			AddRow(categoryID.String(), "Electronics", "electronics", "", now, now))

	// Act
	products, err := s.repo.List(ctx, entity.ProductFilter{Status: "active"}, 4, 6)

	// Assert
	s.NoError(err)
	s.Len(products, 2)
	s.False(products[0].IsInStock())
	s.False(products[1].IsLowStock())
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *ProductRepositoryTestSuite) TestList_CustomOrdering() {
	ctx := context.Background()

	s.mock.ExpectQuery(`SELECT \* FROM "products" ORDER BY price,id LIMIT`).
		WillReturnRows(sqlmock.NewRows(productRowColumns))

	// Act
	products, err := s.repo.List(ctx, entity.ProductFilter{Ordering: "price"}, 0, 10)

	// Assert
	s.NoError(err)
	s.Empty(products)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *ProductRepositoryTestSuite) TestList_UnknownOrderingFallsBackToDefault() {
	s.mock.ExpectQuery(`SELECT \* FROM "products" ORDER BY created_at DESC,id LIMIT`).
		WillReturnRows(sqlmock.NewRows(productRowColumns))

	_, err := s.repo.List(context.Background(), entity.ProductFilter{Ordering: "price; DROP TABLE products"}, 0, 10)

	s.NoError(err)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *ProductRepositoryTestSuite) TestCount_SearchEscapesWildcards() {
	like := `%50\%\_off%`

	s.mock.ExpectQuery(`SELECT count\(\*\) FROM "products" WHERE \(name ILIKE \$1 ESCAPE '\\' OR description ILIKE \$2 ESCAPE '\\' ` +
		`OR sku ILIKE \$3 ESCAPE '\\' OR brand ILIKE \$4 ESCAPE '\\' OR tags ILIKE \$5 ESCAPE '\\'\)`).
		WithArgs(like, like, like, like, like).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	// Act
	total, err := s.repo.Count(context.Background(), entity.ProductFilter{Search: "50%_off"})

	// Assert
	s.NoError(err)
	s.Equal(1, total)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *ProductRepositoryTestSuite) TestList_EmptyWindowSkipsQuery() {
	products, err := s.repo.List(context.Background(), entity.ProductFilter{}, 3, 3)

	s.NoError(err)
	s.NotNil(products)
	s.Empty(products)
	s.NoError(s.mock.ExpectationsWereMet())
}

// ===================== PositionOf Tests =====================

func (s *ProductRepositoryTestSuite) TestPositionOf_Success() {
	ctx := context.Background()
	productID := uuid.New()
	createdAt := time.Now()

	s.mock.ExpectQuery(`SELECT "id","created_at" FROM "products" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(productID.String(), createdAt))
	s.mock.ExpectQuery(`SELECT count\(\*\) FROM "products" WHERE \(created_at > \$1 OR \(created_at = \$2 AND id < \$3\)\)`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

	// Act
	pos, err := s.repo.PositionOf(ctx, entity.ProductFilter{}, productID)

	// Assert
	s.NoError(err)
	s.Equal(12, pos)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *ProductRepositoryTestSuite) TestPositionOf_FollowsOrdering() {
	ctx := context.Background()
	productID := uuid.New()
	price := decimal.RequireFromString("19.99")

	s.mock.ExpectQuery(`SELECT "id","price" FROM "products" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "price"}).AddRow(productID.String(), "19.99"))
	s.mock.ExpectQuery(`SELECT count\(\*\) FROM "products" WHERE \(price > \$1 OR \(price = \$2 AND id < \$3\)\)`).
		WithArgs(price, price, productID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	// Act
	pos, err := s.repo.PositionOf(ctx, entity.ProductFilter{Ordering: "-price"}, productID)

	// Assert
	s.NoError(err)
	s.Equal(3, pos)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *ProductRepositoryTestSuite) TestPositionOf_NotFound() {
	s.mock.ExpectQuery(`SELECT "id","created_at" FROM "products" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}))

	_, err := s.repo.PositionOf(context.Background(), entity.ProductFilter{}, uuid.New())

	s.ErrorIs(err, ErrProductNotFound)
	s.NoError(s.mock.ExpectationsWereMet())
}

// ===================== Write Tests =====================

func (s *ProductRepositoryTestSuite) TestUpdate_NotFound() {
	product := &entity.Product{ID: uuid.New(), Name: "Laptop", Price: decimal.NewFromInt(10)}

	s.mock.ExpectBegin()
	s.mock.ExpectExec(`UPDATE "products" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectCommit()

	err := s.repo.Update(context.Background(), product)

	s.ErrorIs(err, ErrProductNotFound)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *ProductRepositoryTestSuite) TestUpdate_Success() {
	product := &entity.Product{ID: uuid.New(), Name: "Laptop", Price: decimal.NewFromInt(10), Quantity: 0}

	s.mock.ExpectBegin()
	s.mock.ExpectExec(`UPDATE "products" SET .*"quantity"=.* WHERE id = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	err := s.repo.Update(context.Background(), product)

	s.NoError(err)
	s.False(product.UpdatedAt.IsZero())
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *ProductRepositoryTestSuite) TestUpdateStock() {
	id := uuid.New()

	s.mock.ExpectBegin()
	s.mock.ExpectExec(`UPDATE "products" SET "quantity"=\$1,"updated_at"=\$2 WHERE id = \$3`).
		WithArgs(3, sqlmock.AnyArg(), id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	s.NoError(s.repo.UpdateStock(context.Background(), id, 3))
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *ProductRepositoryTestSuite) TestDelete_NotFound() {
	s.mock.ExpectBegin()
	s.mock.ExpectExec(`DELETE FROM "products" WHERE id = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectCommit()

	err := s.repo.Delete(context.Background(), uuid.New())

	s.ErrorIs(err, ErrProductNotFound)
	s.NoError(s.mock.ExpectationsWereMet())
}
