package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Store drivers accepted in STORE_DRIVER.
const (
	DriverMemory = "memory"
	DriverMySQL  = "mysql"
	DriverMongo  = "mongo"
)

// Config holds the application settings.
type Config struct {
	Port        string
	StoreDriver string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	MongoURI      string
	MongoDatabase string

	CacheEnabled  bool
	CacheSize     int64
	MemcachedHost string

	RabbitMQURL   string
	RabbitMQQueue string

	LogLevel  string
	LogFormat string

	// RateLimitRPS <= 0 disables rate limiting.
	RateLimitRPS   float64
	RateLimitBurst int

	SeedData bool
}

// LoadConfig reads the configuration from environment variables with defaults.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		StoreDriver:    strings.ToLower(getEnv("STORE_DRIVER", DriverMemory)),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "3306"),
		DBUser:         getEnv("DB_USER", "villa_user"),
		DBPassword:     getEnv("DB_PASSWORD", "villa_password"),
		DBName:         getEnv("DB_NAME", "villa_db"),
		MongoURI:       getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:  getEnv("MONGO_DATABASE", "villa"),
		CacheEnabled:   getEnvBool("CACHE_ENABLED", false),
		CacheSize:      int64(getEnvInt("CACHE_SIZE", 1000)),
		MemcachedHost:  getEnv("MEMCACHED_HOST", ""),
		RabbitMQURL:    getEnv("RABBITMQ_URL", ""),
		RabbitMQQueue:  getEnv("RABBITMQ_QUEUE", "villas_queue"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "text"),
		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 0),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 20),
		SeedData:       getEnvBool("SEED_DATA", true),
	}

	switch cfg.StoreDriver {
	case DriverMemory, DriverMySQL, DriverMongo:
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
	return cfg, nil
}

// MySQLDSN builds the go-sql-driver DSN.
// Format: user:password@tcp(host:port)/database?options
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// getEnv returns the variable or defaultValue when unset or empty.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return n
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if f, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return f
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return b
	}
	return defaultValue
}
