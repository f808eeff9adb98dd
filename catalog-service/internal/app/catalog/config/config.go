package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config содержит все настройки приложения Catalog Service
// Включает конфигурацию для HTTP сервера, PostgreSQL, Redis, Kafka, пагинации и валидации
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	Pagination PaginationConfig
	Validation ValidationConfig
	Catalog    CatalogConfig
	Log        LogConfig
}

// ServerConfig - настройки HTTP сервера
type ServerConfig struct {
	Host           string   // Адрес хоста (по умолчанию 0.0.0.0)
	Port           string   // Порт сервера (по умолчанию 8081)
	AllowedOrigins []string // CORS источники, "*" - любые
}

// DatabaseConfig - настройки подключения к PostgreSQL
// Используется для хранения категорий и товаров
type DatabaseConfig struct {
	Host     string // Хост PostgreSQL
	Port     string // Порт PostgreSQL
	User     string // Имя пользователя БД
	Password string // Пароль БД
	DBName   string // Имя базы данных
	SSLMode  string // Режим SSL (disable/require/verify-full)
}

// RedisConfig - настройки подключения к Redis для кеширования
type RedisConfig struct {
	Host          string        // Хост Redis
	Port          string        // Порт Redis
	Password      string        // Пароль Redis (опционально)
	DB            int           // Номер БД Redis (0-15)
	CategoriesTTL time.Duration // Время жизни кеша списка категорий
}

// KafkaConfig - настройки Kafka для отправки событий
// События отправляются при изменении товаров (создание/обновление/остаток/удаление)
type KafkaConfig struct {
	Brokers []string // Список брокеров Kafka (формат: host:port)
	Topic   string   // Топик для событий PRODUCT_*, STOCK_UPDATED
}

// PaginationConfig - границы размера страницы
type PaginationConfig struct {
	MaxLimit     int
	DefaultLimit int
}

// ValidationConfig - политика валидации товаров
type ValidationConfig struct {
	StrictRequired bool // Требовать sku, category и brand при создании
	AllowZeroPrice bool // Разрешить бесплатные товары
	StrictFields   bool // Отклонять неизвестные и read-only поля
}

// CatalogConfig - бизнес-настройки каталога
type CatalogConfig struct {
	DeletePolicy string // reject или detach
}

// LogConfig - уровень логирования и адрес Logstash
type LogConfig struct {
	Level        string
	LogstashAddr string
}

// Load загружает конфигурацию из переменных окружения
// Возвращает ошибку, если не удалось распарсить значения
func Load() (*Config, error) {
	p := &parser{}

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnv("SERVER_PORT", "8081"),
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "catalog_service"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:          getEnv("REDIS_HOST", "localhost"),
			Port:          getEnv("REDIS_PORT", "6379"),
			Password:      getEnv("REDIS_PASSWORD", ""),
			DB:            p.int("REDIS_DB", 0),
			CategoriesTTL: p.duration("CACHE_CATEGORIES_TTL", time.Hour),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
			Topic:   getEnv("KAFKA_TOPIC", "product_events"),
		},
		Pagination: PaginationConfig{
			MaxLimit:     p.int("PAGINATION_MAX_LIMIT", 250),
			DefaultLimit: p.int("PAGINATION_DEFAULT_LIMIT", 100),
		},
		Validation: ValidationConfig{
			StrictRequired: p.bool("VALIDATION_STRICT_REQUIRED", false),
			AllowZeroPrice: p.bool("VALIDATION_ALLOW_ZERO_PRICE", false),
			StrictFields:   p.bool("VALIDATION_STRICT_FIELDS", false),
		},
		Catalog: CatalogConfig{
			DeletePolicy: strings.ToLower(getEnv("CATEGORY_DELETE_POLICY", "reject")),
		},
		Log: LogConfig{
			Level:        getEnv("LOG_LEVEL", "info"),
			LogstashAddr: getEnv("LOGSTASH_ADDR", ""),
		},
	}

	if p.err != nil {
		return nil, p.err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Catalog.DeletePolicy {
	case "reject", "detach":
	default:
		return fmt.Errorf("invalid CATEGORY_DELETE_POLICY value %q: must be reject or detach", c.Catalog.DeletePolicy)
	}
	if c.Pagination.MaxLimit <= 0 {
		return fmt.Errorf("invalid PAGINATION_MAX_LIMIT value %d: must be positive", c.Pagination.MaxLimit)
	}
	if c.Pagination.DefaultLimit <= 0 || c.Pagination.DefaultLimit > c.Pagination.MaxLimit {
		return fmt.Errorf("invalid PAGINATION_DEFAULT_LIMIT value %d: must be in [1, %d]", c.Pagination.DefaultLimit, c.Pagination.MaxLimit)
	}
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS must not be empty")
	}
	return nil
}

// DSN возвращает строку подключения к PostgreSQL в формате libpq (для GORM)
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// URL возвращает строку подключения в формате postgres:// (для pgxpool)
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Address возвращает адрес сервера в формате host:port для HTTP сервера
func (c *ServerConfig) Address() string {
	return c.Host + ":" + c.Port
}

// Address возвращает адрес Redis в формате host:port для подключения
func (c *RedisConfig) Address() string {
	return c.Host + ":" + c.Port
}

// parser запоминает первую ошибку разбора, чтобы Load вернул ее целиком
type parser struct {
	err error
}

func (p *parser) int(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" || p.err != nil {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		p.err = fmt.Errorf("invalid %s value: %w", key, err)
		return defaultValue
	}
	return n
}

func (p *parser) bool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" || p.err != nil {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		p.err = fmt.Errorf("invalid %s value: %w", key, err)
		return defaultValue
	}
	return b
}

func (p *parser) duration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" || p.err != nil {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		p.err = fmt.Errorf("invalid %s value: %w", key, err)
		return defaultValue
	}
	if d <= 0 {
		p.err = fmt.Errorf("invalid %s value: must be positive", key)
		return defaultValue
	}
	return d
}

// getEnv получает значение переменной окружения или возвращает значение по умолчанию
// Используется для гибкой конфигурации через environment variables
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// splitList разбирает список через запятую, пустые элементы отбрасываются
func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
