package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Storage backend: "mongo", "postgres" or "memory".
	StorageBackend string

	MongoURI string
	MongoDB  string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// CacheTTL is the freshness window after which a stored search result is
	// considered stale and eligible for replacement.
	CacheTTL time.Duration

	// NavTimeout bounds page navigation; ResultTimeout bounds the wait for
	// either the result list or an error banner to render.
	NavTimeout    time.Duration
	ResultTimeout time.Duration
	MaxRetries    int

	Headless      bool
	ChromeBin     string
	ScreenshotDir string
	RawDumpPath   string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		Port:         getEnv("PORT", "8080"),
		ReadTimeout:  time.Duration(getEnvInt("READ_TIMEOUT_SEC", 120)) * time.Second,
		WriteTimeout: time.Duration(getEnvInt("WRITE_TIMEOUT_SEC", 240)) * time.Second,

		StorageBackend: getEnv("STORAGE_BACKEND", "mongo"),

		MongoURI: getEnv("MONGODB_DSN", "mongodb://127.0.0.1:27017"),
		MongoDB:  getEnv("MONGO_DB", "flightsdata"),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "flights_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		CacheTTL: time.Duration(getEnvInt("CACHE_TTL_MIN", 10)) * time.Minute,

		NavTimeout:    time.Duration(getEnvInt("NAV_TIMEOUT_SEC", 90)) * time.Second,
		ResultTimeout: time.Duration(getEnvInt("RESULT_TIMEOUT_SEC", 60)) * time.Second,
		MaxRetries:    getEnvInt("MAX_RETRIES", 2),

		Headless:      getEnvBool("HEADLESS", true),
		ChromeBin:     getEnv("CHROME_BIN", ""),
		ScreenshotDir: getEnv("SCREENSHOT_DIR", "./output"),
		RawDumpPath:   getEnv("RAW_DUMP_PATH", ""),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
