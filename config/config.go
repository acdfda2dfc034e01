package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"feed_importer/httputil"
)

type Config struct {
	DatabaseURL       string
	DBPath            string
	DefaultCountry    string
	CountryProfiles   string
	HTTP              HTTPConfig
	ImportConcurrency int
	Log               LogConfig
	Fluent            FluentConfig
	S3                S3Config
	API               APIConfig
}

type HTTPConfig struct {
	Timeout    time.Duration
	Retries    int
	RetryDelay time.Duration
	UserAgent  string
	// AllowPrivate lets the API fetch loopback and private-network URLs.
	AllowPrivate bool
}

type LogConfig struct {
	Level     string
	File      string
	MaxSizeMB int
	JSON      bool
}

type FluentConfig struct {
	Host string
	Port int
	Tag  string
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
}

func (c S3Config) Enabled() bool { return c.Bucket != "" }

type APIConfig struct {
	Addr           string
	AllowedOrigins []string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		DBPath:          getEnv("DB_PATH", "catalog.db"),
		DefaultCountry:  strings.ToUpper(getEnv("DEFAULT_COUNTRY", "TR")),
		CountryProfiles: os.Getenv("COUNTRY_PROFILES"),
		HTTP: HTTPConfig{
			Timeout:      getEnvDuration("HTTP_TIMEOUT", 20*time.Second),
			Retries:      getEnvInt("HTTP_RETRIES", 2),
			RetryDelay:   getEnvDuration("HTTP_RETRY_DELAY", 500*time.Millisecond),
			UserAgent:    getEnv("HTTP_USER_AGENT", httputil.DefaultUserAgent),
			AllowPrivate: getEnvBool("HTTP_ALLOW_PRIVATE", false),
		},
		ImportConcurrency: getEnvInt("IMPORT_CONCURRENCY", 4),
		Log: LogConfig{
			Level:     getEnv("LOG_LEVEL", "info"),
			File:      getEnv("LOG_FILE", "feed_importer.log"),
			MaxSizeMB: getEnvInt("LOG_MAX_SIZE_MB", 2),
			JSON:      getEnvBool("LOG_JSON", false),
		},
		Fluent: FluentConfig{
			Host: os.Getenv("FLUENT_HOST"),
			Port: getEnvInt("FLUENT_PORT", 24224),
			Tag:  getEnv("FLUENT_TAG", "feed_importer"),
		},
		S3: S3Config{
			Bucket:          os.Getenv("S3_BUCKET"),
			Region:          os.Getenv("S3_REGION"),
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
			Prefix:          os.Getenv("S3_PREFIX"),
		},
		API: APIConfig{
			Addr:           getEnv("HTTP_ADDR", ":8080"),
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
	}

	if cfg.ImportConcurrency < 1 {
		cfg.ImportConcurrency = 1
	}
	if cfg.HTTP.Retries < 0 {
		cfg.HTTP.Retries = 0
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvList(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
