package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Supported values of STORE_BACKEND.
const (
	BackendMongo       = "mongo"
	BackendPostgres    = "postgres"
	BackendObjectStore = "objectstore"
	BackendMemory      = "memory"
)

// HTTPConfig holds listener settings for the Fiber server.
type HTTPConfig struct {
	AppHost      string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// StoreConfig selects the entity store implementation.
type StoreConfig struct {
	Backend string
}

// MongoConfig holds MongoDB connection settings.
type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	PingTimeout    time.Duration
	// SlowQueryThreshold logs commands slower than this; 0 disables it.
	SlowQueryThreshold time.Duration
}

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
	PingTimeout        time.Duration
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// QueryConfig holds list endpoint policy.
type QueryConfig struct {
	// MaxPageSize rejects larger page_size values; 0 disables the limit.
	MaxPageSize int64
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	HTTP     HTTPConfig
	Store    StoreConfig
	Mongo    MongoConfig
	Database DatabaseConfig
	MinIO    MinIOConfig
	Query    QueryConfig
	LogLevel string
	// Timezone is the IANA location used for log timestamps.
	Timezone string
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		HTTP: HTTPConfig{
			AppHost:      getEnv("APP_HOST", "localhost:8080"),
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getEnvDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvDuration("HTTP_WRITE_TIMEOUT", 15*time.Second),
		},
		Store: StoreConfig{
			Backend: strings.ToLower(getEnv("STORE_BACKEND", BackendMongo)),
		},
		Mongo: MongoConfig{
			URI:                getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database:           getEnv("MONGO_DATABASE", "entities"),
			ConnectTimeout:     getEnvDuration("MONGO_CONNECT_TIMEOUT", 10*time.Second),
			PingTimeout:        getEnvDuration("MONGO_PING_TIMEOUT", 5*time.Second),
			SlowQueryThreshold: getEnvDuration("MONGO_SLOW_QUERY_THRESHOLD", 200*time.Millisecond),
		},
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
			PingTimeout:        getEnvDuration("DB_PING_TIMEOUT", 5*time.Second),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Query: QueryConfig{
			MaxPageSize: int64(getEnvInt("QUERY_MAX_PAGE_SIZE", 100)),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Timezone: getEnv("APP_TIMEZONE", "UTC"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}
