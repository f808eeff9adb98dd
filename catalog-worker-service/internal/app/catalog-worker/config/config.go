package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Config содержит все настройки приложения Catalog Worker Service
// Включает конфигурацию для PostgreSQL, Redis, MongoDB, Kafka и расписания проверок
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	MongoDB      MongoDBConfig
	Kafka        KafkaConfig
	CronSchedule CronScheduleConfig
	Log          LogConfig
}

// ServerConfig - HTTP сервер для healthcheck и метрик
type ServerConfig struct {
	Port string
}

// DatabaseConfig - настройки подключения к PostgreSQL Catalog Service
// Worker только читает таблицу products
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string // Имя базы данных (catalog_service)
	SSLMode  string
}

// RedisConfig - настройки Redis для снимка товаров с низким остатком
type RedisConfig struct {
	Host        string
	Port        string
	Password    string
	DB          int
	SnapshotTTL time.Duration // Время жизни снимка products:low_stock
}

// MongoDBConfig - хранилище истории событий о товарах
type MongoDBConfig struct {
	URI      string
	Database string
}

// KafkaConfig - настройки Kafka для подписки на события
// Слушает топик product_events
type KafkaConfig struct {
	Brokers  []string
	Topic    string
	GroupID  string
	MinBytes int
	MaxBytes int
}

// CronScheduleConfig - расписание cron задач (с полем секунд)
type CronScheduleConfig struct {
	LowStockScan string // Например, "0 */5 * * * *" - каждые 5 минут
}

type LogConfig struct {
	Level        string
	LogstashAddr string
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	p := &parser{}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
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
			Host:        getEnv("REDIS_HOST", "localhost"),
			Port:        getEnv("REDIS_PORT", "6379"),
			Password:    getEnv("REDIS_PASSWORD", ""),
			DB:          p.int("REDIS_DB", 0),
			SnapshotTTL: p.duration("REDIS_LOW_STOCK_TTL", 30*time.Minute),
		},
		MongoDB: MongoDBConfig{
			URI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGODB_DATABASE", "catalog_events"),
		},
		Kafka: KafkaConfig{
			Brokers:  splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
			Topic:    getEnv("KAFKA_TOPIC", "product_events"),
			GroupID:  getEnv("KAFKA_GROUP_ID", "catalog-worker-group"),
			MinBytes: p.int("KAFKA_MIN_BYTES", 1),    // 1 byte minimum
			MaxBytes: p.int("KAFKA_MAX_BYTES", 10e6), // 10MB maximum
		},
		CronSchedule: CronScheduleConfig{
			LowStockScan: getEnv("CRON_LOW_STOCK_SCAN", "0 */5 * * * *"),
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
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS must not be empty")
	}
	if c.Kafka.MinBytes <= 0 || c.Kafka.MaxBytes < c.Kafka.MinBytes {
		return fmt.Errorf("invalid KAFKA_MIN_BYTES/KAFKA_MAX_BYTES: %d/%d", c.Kafka.MinBytes, c.Kafka.MaxBytes)
	}
	scheduleParser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := scheduleParser.Parse(c.CronSchedule.LowStockScan); err != nil {
		return fmt.Errorf("invalid CRON_LOW_STOCK_SCAN value %q: %w", c.CronSchedule.LowStockScan, err)
	}
	return nil
}

// DSN возвращает строку подключения к PostgreSQL в формате libpq
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// Address возвращает адрес Redis в формате host:port
func (c *RedisConfig) Address() string {
	return c.Host + ":" + c.Port
}

// Address возвращает адрес HTTP сервера
func (c *ServerConfig) Address() string {
	return ":" + c.Port
}

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

func (p *parser) duration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" || p.err != nil {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		p.err = fmt.Errorf("invalid %s value %q: must be a positive duration", key, value)
		return defaultValue
	}
	return d
}

// getEnv получает значение переменной окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
