package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"productcatalog/catalog-service/internal/app/catalog/entity"
	"productcatalog/pkg/metrics"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	metricsService  = "catalog"
	categoryColumns = `id, name, slug, description, created_at, updated_at`
)

type categoryRepository struct {
	db *pgxpool.Pool // Пул соединений с PostgreSQL для работы с категориями
}

// NewCategoryRepository создает новый репозиторий категорий
func NewCategoryRepository(db *pgxpool.Pool) CategoryRepository {
	return &categoryRepository{db: db}
}

func scanCategory(row pgx.Row, category *entity.Category) error {
	return row.Scan(
		&category.ID,
		&category.Name,
		&category.Slug,
		&category.Description,
		&category.CreatedAt,
		&category.UpdatedAt,
	)
}

// Create создает новую категорию в PostgreSQL
// Проверяет уникальность имени и slug через UNIQUE constraint
func (r *categoryRepository) Create(ctx context.Context, category *entity.Category) error {
	defer metrics.NewDbTimer(metricsService, metrics.DbOpInsert, "categories").ObserveDuration()

	query := `
		INSERT INTO categories (` + categoryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Exec(ctx, query,
		category.ID, category.Name, category.Slug, category.Description,
		category.CreatedAt, category.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrCategoryAlreadyExists
		}
		metrics.RecordDbError(metricsService, metrics.DbOpInsert)
		return fmt.Errorf("failed to create category: %w", err)
	}

	return nil
}

// GetByID получает категорию по ID из PostgreSQL
func (r *categoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Category, error) {
	defer metrics.NewDbTimer(metricsService, metrics.DbOpSelect, "categories").ObserveDuration()

	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`

	var category entity.Category
	if err := scanCategory(r.db.QueryRow(ctx, query, id), &category); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		metrics.RecordDbError(metricsService, metrics.DbOpSelect)
		return nil, fmt.Errorf("failed to get category by id: %w", err)
	}

	return &category, nil
}

// GetBySlug получает категорию по slug, используется фильтром товаров
func (r *categoryRepository) GetBySlug(ctx context.Context, slug string) (*entity.Category, error) {
	defer metrics.NewDbTimer(metricsService, metrics.DbOpSelect, "categories").ObserveDuration()

	query := `SELECT ` + categoryColumns + ` FROM categories WHERE slug = $1`

	var category entity.Category
	if err := scanCategory(r.db.QueryRow(ctx, query, slug), &category); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		metrics.RecordDbError(metricsService, metrics.DbOpSelect)
		return nil, fmt.Errorf("failed to get category by slug: %w", err)
	}

	return &category, nil
}

// GetAll получает все категории отсортированные по имени
// Результат кешируется в Redis через service layer
func (r *categoryRepository) GetAll(ctx context.Context) ([]entity.Category, error) {
	defer metrics.NewDbTimer(metricsService, metrics.DbOpSelect, "categories").ObserveDuration()

	query := `SELECT ` + categoryColumns + ` FROM categories ORDER BY name ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		metrics.RecordDbError(metricsService, metrics.DbOpSelect)
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	defer rows.Close()

	categories := []entity.Category{}
	for rows.Next() {
		var category entity.Category
		if err := scanCategory(rows, &category); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}

	// Проверяем ошибки итерации
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

// Update обновляет категорию в PostgreSQL
func (r *categoryRepository) Update(ctx context.Context, category *entity.Category) error {
	defer metrics.NewDbTimer(metricsService, metrics.DbOpUpdate, "categories").ObserveDuration()

	query := `
		UPDATE categories
		SET name = $1, slug = $2, description = $3, updated_at = $4
		WHERE id = $5
	`

	result, err := r.db.Exec(ctx, query,
		category.Name, category.Slug, category.Description, category.UpdatedAt, category.ID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrCategoryAlreadyExists
		}
		metrics.RecordDbError(metricsService, metrics.DbOpUpdate)
		return fmt.Errorf("failed to update category: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}

	return nil
}

// Delete удаляет категорию в одной транзакции с проверкой ее товаров.
// Строка категории блокируется FOR UPDATE, поэтому товар не может быть
// привязан к ней между подсчетом и удалением.
// detach == false: категория с товарами не удаляется (ErrCategoryHasProducts).
// detach == true: товары отвязываются, возвращается их количество
func (r *categoryRepository) Delete(ctx context.Context, id uuid.UUID, detach bool) (int64, error) {
	defer metrics.NewDbTimer(metricsService, metrics.DbOpDelete, "categories").ObserveDuration()

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		metrics.RecordDbError(metricsService, metrics.DbOpDelete)
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var locked uuid.UUID
	if err := tx.QueryRow(ctx, `SELECT id FROM categories WHERE id = $1 FOR UPDATE`, id).Scan(&locked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrCategoryNotFound
		}
		metrics.RecordDbError(metricsService, metrics.DbOpSelect)
		return 0, fmt.Errorf("failed to lock category: %w", err)
	}

	var productCount int64
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE category_id = $1`, id).Scan(&productCount); err != nil {
		metrics.RecordDbError(metricsService, metrics.DbOpSelect)
		return 0, fmt.Errorf("failed to check products in category: %w", err)
	}

	var detached int64
	if productCount > 0 {
		if !detach {
			return 0, ErrCategoryHasProducts
		}
		result, err := tx.Exec(ctx,
			`UPDATE products SET category_id = NULL, updated_at = $1 WHERE category_id = $2`,
			time.Now().UTC(), id,
		)
		if err != nil {
			metrics.RecordDbError(metricsService, metrics.DbOpUpdate)
			return 0, fmt.Errorf("failed to detach products from category: %w", err)
		}
		detached = result.RowsAffected()
	}

	if _, err := tx.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id); err != nil {
		// внешний ключ products.category_id объявлен с ON DELETE RESTRICT
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return 0, ErrCategoryHasProducts
		}
		metrics.RecordDbError(metricsService, metrics.DbOpDelete)
		return 0, fmt.Errorf("failed to delete category: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		metrics.RecordDbError(metricsService, metrics.DbOpDelete)
		return 0, fmt.Errorf("failed to commit category delete: %w", err)
	}
	return detached, nil
}
