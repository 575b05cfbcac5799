package config

import (
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"time"    // For durations

	"github.com/joho/godotenv" // For loading .env files
)

// Store drivers
const (
	DriverMySQL  = "mysql"  // GORM over MySQL
	DriverMemory = "memory" // Process-local store, data lost on restart
)

// Config holds the application configuration
type Config struct {
	AppPort          string        // Application port
	DBUser           string        // Database user
	DBPassword       string        // Database password
	DBHost           string        // Database host
	DBPort           string        // Database port
	DBName           string        // Database name
	JWTSecret        string        // JWT secret key
	RedisAddr        string        // Redis server address, empty disables caching
	RedisPass        string        // Redis password
	RedisDB          int           // Redis database number
	IsProd           bool          // Is production environment
	StoreDriver      string        // mysql or memory
	OrderMaxAttempts int           // Purchase attempts before a version conflict is reported
	OrderTimeout     time.Duration // Deadline for a single purchase request
	CacheTTL         time.Duration // Lifetime of cached slot listings
	SeedData         bool          // Seed demo users and catalog on start
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	orderTimeout := time.Duration(getInt("ORDER_TIMEOUT_MS", 5000)) * time.Millisecond
	cacheTTL := time.Duration(getInt("CACHE_TTL_SECONDS", 60)) * time.Second
	return &Config{
		AppPort:          getEnv("APP_PORT", "8080"),          // Application port
		DBUser:           os.Getenv("DB_USER"),                // Database user
		DBPassword:       os.Getenv("DB_PASSWORD"),            // Database password
		DBHost:           getEnv("DB_HOST", "127.0.0.1"),      // Database host
		DBPort:           getEnv("DB_PORT", "3306"),           // Database port
		DBName:           os.Getenv("DB_NAME"),                // Database name
		JWTSecret:        os.Getenv("JWT_SECRET"),             // JWT secret key
		RedisAddr:        os.Getenv("REDIS_ADDR"),             // Redis server address
		RedisPass:        os.Getenv("REDIS_PASS"),             // Redis password
		RedisDB:          getInt("REDIS_DB", 0),               // Redis database number
		IsProd:           os.Getenv("IS_PROD") == "true",      // Is production environment
		StoreDriver:      getEnv("STORE_DRIVER", DriverMySQL), // Store driver
		OrderMaxAttempts: getInt("ORDER_MAX_ATTEMPTS", 3),     // Purchase attempts
		OrderTimeout:     orderTimeout,                        // Purchase deadline
		CacheTTL:         cacheTTL,                            // Cache lifetime
		SeedData:         os.Getenv("SEED_DATA") == "true",    // Seed demo data
	}
}

// DSN builds the MySQL Data Source Name
func (c *Config) DSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true"
}

// getEnv returns the variable or def when it is unset or empty
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getInt returns the variable as a non-negative int, or def when it is missing or invalid
func getInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v < 0 {
		return def
	}
	return v
}
