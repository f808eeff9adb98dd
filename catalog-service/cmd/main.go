package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"productcatalog/catalog-service/internal/app/catalog/config"
	"productcatalog/catalog-service/internal/app/catalog/entity"
	"productcatalog/catalog-service/internal/app/catalog/handler"
	"productcatalog/catalog-service/internal/app/catalog/repository"
	"productcatalog/catalog-service/internal/app/catalog/service"
	"productcatalog/catalog-service/internal/app/catalog/util"
	"productcatalog/catalog-service/internal/app/catalog/validation"
	"productcatalog/pkg/logger"
	"productcatalog/pkg/metrics"
	"productcatalog/pkg/pagination"
)

const (
	serviceName      = "catalog-service"
	connectAttempts  = 10
	poolStatsPeriod  = 15 * time.Second
	shutdownDeadline = 30 * time.Second
)

func main() {
	// === ИНИЦИАЛИЗАЦИЯ КОНФИГУРАЦИИ ===
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(serviceName, cfg.Log.Level)
	if cfg.Log.LogstashAddr != "" {
		if err := logger.InitLogstash(cfg.Log.LogstashAddr, serviceName, cfg.Log.Level); err != nil {
			logger.Warn().Err(err).Msg("Failed to connect to Logstash, using stdout only")
		} else {
			logger.Info().Str("logstash_addr", cfg.Log.LogstashAddr).Msg("Connected to Logstash")
		}
	}

	ctx := context.Background()

	// === ПОДКЛЮЧЕНИЕ К POSTGRESQL ===
	// Категории читаются через pgx pool, товары через GORM
	gormDB, err := connectGorm(cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	if err := gormDB.AutoMigrate(&entity.Category{}, &entity.Product{}); err != nil {
		logger.Fatal().Err(err).Msg("Failed to migrate database schema")
	}

	pool, err := connectPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()
	logger.Info().
		Str("host", cfg.Database.Host).
		Str("database", cfg.Database.DBName).
		Msg("Connected to PostgreSQL")

	statsCtx, stopStats := context.WithCancel(ctx)
	defer stopStats()
	go reportPoolStats(statsCtx, pool)

	// === ПОДКЛЮЧЕНИЕ К REDIS ===
	// Redis используется для кеширования списка категорий
	redisClient, err := util.NewRedisClient(cfg.Redis.Address(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()
	logger.Info().Str("address", cfg.Redis.Address()).Msg("Connected to Redis")

	// === ИНИЦИАЛИЗАЦИЯ KAFKA PRODUCER ===
	// Catalog Worker подписан на этот топик и ведет историю событий
	kafkaProducer := util.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	defer kafkaProducer.Close()
	logger.Info().Str("topic", cfg.Kafka.Topic).Msg("Initialized Kafka producer")

	// === ВАЛИДАЦИЯ И ПАГИНАЦИЯ ===
	validationOpts := validation.Options{
		AllowZeroPrice: cfg.Validation.AllowZeroPrice,
		Strict:         cfg.Validation.StrictFields,
	}
	if cfg.Validation.StrictRequired {
		validationOpts.Required = validation.StrictRequired
	}
	productValidator, err := validation.New(validationOpts)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize product validator")
	}

	pager, err := pagination.NewEngine(cfg.Pagination.MaxLimit, cfg.Pagination.DefaultLimit)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize pagination")
	}

	// === СЛОИ ПРИЛОЖЕНИЯ ===
	categoryRepo := repository.NewCategoryRepository(pool)
	productRepo := repository.NewProductRepository(gormDB)

	catalogService := service.NewCatalogService(
		categoryRepo,
		productRepo,
		redisClient,
		kafkaProducer,
		productValidator,
		pager,
		service.Options{
			CategoriesTTL: cfg.Redis.CategoriesTTL,
			DeletePolicy:  service.DeletePolicy(cfg.Catalog.DeletePolicy),
		},
	)

	catalogHandler := handler.NewCatalogHandler(catalogService)
	router := handler.SetupRoutes(catalogHandler, cfg.Server.AllowedOrigins)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  15 * time.Second, // Таймаут чтения запроса
		WriteTimeout: 15 * time.Second, // Таймаут записи ответа
		IdleTimeout:  60 * time.Second, // Таймаут idle соединений
	}

	// === ЗАПУСК HTTP СЕРВЕРА ===
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Int("max_limit", cfg.Pagination.MaxLimit).
			Str("delete_policy", cfg.Catalog.DeletePolicy).
			Msg("Starting Catalog Service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// === GRACEFUL SHUTDOWN ===
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down Catalog Service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownDeadline)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	if sqlDB, err := gormDB.DB(); err == nil {
		_ = sqlDB.Close()
	}

	logger.Info().Msg("Catalog Service stopped gracefully")
}

// connectPool устанавливает соединение с PostgreSQL используя pgx connection pool
// Использует retry logic для устойчивости при запуске в Docker
func connectPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to parse pool config: %w", err)
	}

	poolConfig.MaxConns = 25                       // Максимум соединений в пуле
	poolConfig.MinConns = 5                        // Минимум соединений (держим открытыми)
	poolConfig.MaxConnLifetime = 5 * time.Minute   // Время жизни соединения
	poolConfig.MaxConnIdleTime = 1 * time.Minute   // Время простоя перед закрытием
	poolConfig.HealthCheckPeriod = 1 * time.Minute // Периодичность health checks

	var pool *pgxpool.Pool
	for i := 0; i < connectAttempts; i++ {
		pool, err = pgxpool.NewWithConfig(ctx, poolConfig)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return pool, nil
			}
			pool.Close()
		}
		logger.Warn().
			Int("attempt", i+1).
			Err(err).
			Msg("Failed to connect to database, retrying...")
		time.Sleep(3 * time.Second)
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %w", connectAttempts, err)
}

// connectGorm открывает GORM соединение для репозитория товаров
func connectGorm(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	}

	var err error
	for i := 0; i < connectAttempts; i++ {
		var db *gorm.DB
		db, err = gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
		if err == nil {
			sqlDB, sqlErr := db.DB()
			if sqlErr != nil {
				err = sqlErr
			} else if err = sqlDB.Ping(); err == nil {
				sqlDB.SetMaxOpenConns(25)
				sqlDB.SetMaxIdleConns(5)
				sqlDB.SetConnMaxLifetime(5 * time.Minute)
				sqlDB.SetConnMaxIdleTime(1 * time.Minute)
				return db, nil
			}
		}
		logger.Warn().
			Int("attempt", i+1).
			Err(err).
			Msg("Failed to connect to database, retrying...")
		time.Sleep(3 * time.Second)
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %w", connectAttempts, err)
}

// reportPoolStats периодически выгружает состояние pgx пула в метрики
func reportPoolStats(ctx context.Context, pool *pgxpool.Pool) {
	ticker := time.NewTicker(poolStatsPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stat := pool.Stat()
			metrics.RecordDbPoolStats("catalog", stat.IdleConns(), stat.AcquiredConns())
		}
	}
}
