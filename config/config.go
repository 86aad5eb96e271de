package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	MaxConcurrentScrapers int
	ScrapeTimeoutSeconds  int
	MaxQueriesPerSource   int
	MaxReviewsPerEntity   int
	MinQueryDelayMs       int
	MaxQueryDelayMs       int
	MaxRetries            int

	CSVOutputPath   string
	ChromeBin       string
	RedditUserAgent string
	ITunesCountry   string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "validator"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "validator123"),
		PostgresDB:       getEnv("POSTGRES_DB", "validation_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		MaxConcurrentScrapers: getEnvInt("MAX_CONCURRENT_SCRAPERS", 5),
		ScrapeTimeoutSeconds:  getEnvInt("SCRAPE_TIMEOUT_SECONDS", 300),
		MaxQueriesPerSource:   getEnvInt("MAX_QUERIES_PER_SOURCE", 4),
		MaxReviewsPerEntity:   getEnvInt("MAX_REVIEWS_PER_ENTITY", 5),
		MinQueryDelayMs:       getEnvInt("MIN_QUERY_DELAY_MS", 1000),
		MaxQueryDelayMs:       getEnvInt("MAX_QUERY_DELAY_MS", 3000),
		MaxRetries:            getEnvInt("MAX_RETRIES", 3),

		CSVOutputPath:   getEnv("CSV_OUTPUT_PATH", "./output/validation_results.csv"),
		ChromeBin:       getEnv("CHROME_BIN", ""),
		RedditUserAgent: getEnv("REDDIT_USER_AGENT", "idea-validator/1.0"),
		ITunesCountry:   getEnv("ITUNES_COUNTRY", "us"),
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
