package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage vendors accepted in DB_VENDOR.
const (
	VendorMySQL    = "mysql"
	VendorPostgres = "postgres"
	VendorSQLite   = "sqlite"
	VendorMongo    = "mongodb"
)

// Config stores the application configuration.
type Config struct {
	Port       string
	CORSOrigin string

	DBVendor   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string
	MongoURI   string
	MongoDB    string

	JWTSecret    string
	JWTTTL       time.Duration
	CookieSecure bool

	// Redis配置
	RedisEnabled     bool
	RedisHost        string
	RedisPort        string
	RedisPassword    string
	RedisDB          int
	PlaylistCacheTTL time.Duration

	// MinIO配置
	MinioEnabled   bool
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool

	LoginRatePerMinute int

	LogLevel      string
	LogFile       string
	LogMaxSize    int
	LogMaxBackups int
	LogMaxAge     int
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	vendor := strings.ToLower(getEnv("DB_VENDOR", VendorMySQL))
	if vendor == "mongo" {
		vendor = VendorMongo
	}
	if vendor == "postgresql" {
		vendor = VendorPostgres
	}

	dbPort := "3306"
	if vendor == VendorPostgres {
		dbPort = "5432"
	}

	return &Config{
		Port:       getEnv("PORT", "4000"),
		CORSOrigin: getEnv("CORS_ORIGIN", "http://localhost:3000"),

		DBVendor:   vendor,
		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", dbPort),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"), // no hardcoded default for passwords
		DBName:     getEnv("DB_NAME", "playlister"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		SQLitePath: getEnv("SQLITE_PATH", "playlister.db"),
		MongoURI:   getEnv("MONGO_URI", getEnv("DB_CONNECT", "mongodb://127.0.0.1:27017")),
		MongoDB:    getEnv("MONGO_DB", "playlister"),

		JWTSecret:    getEnv("JWT_SECRET", "change-me-in-production"),
		JWTTTL:       getEnvDuration("JWT_TTL", 7*24*time.Hour),
		CookieSecure: getEnvBool("COOKIE_SECURE", true),

		RedisEnabled:     getEnvBool("REDIS_ENABLED", false),
		RedisHost:        getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:        getEnv("REDIS_PORT", "6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""), // 默认无密码
		RedisDB:          getEnvInt("REDIS_DB", 0),     // 默认使用0号数据库
		PlaylistCacheTTL: getEnvDuration("PLAYLIST_CACHE_TTL", 10*time.Minute),

		MinioEnabled:   getEnvBool("MINIO_ENABLED", false),
		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "127.0.0.1:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getEnv("MINIO_BUCKET", "playlister"),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		LoginRatePerMinute: getEnvInt("LOGIN_RATE_PER_MINUTE", 20),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFile:       getEnv("LOG_FILE", ""),
		LogMaxSize:    getEnvInt("LOG_MAX_SIZE", 100),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
		LogMaxAge:     getEnvInt("LOG_MAX_AGE", 30),
	}
}
