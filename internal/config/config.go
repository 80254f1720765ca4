package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr             string
	GRPCAddr             string
	MongoURI             string
	MongoDatabase        string
	StoreTimeout         time.Duration
	CatalogDatabaseURL   string
	RedisAddr            string
	RedisPassword        string
	CatalogCacheTTL      time.Duration
	JWTSecret            string
	JWTIssuer            string
	AccessTokenTTL       time.Duration
	ServiceAuthToken     string
	CORSAllowedOrigins   []string
	LogMode              string
	VerifyCourseOnEnroll bool
}

// Load reads the service configuration from the environment. A .env file in
// the working directory is applied first; real environment variables win.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		HTTPAddr:             getenv("HTTP_ADDR", ":8084"),
		GRPCAddr:             getenv("GRPC_ADDR", ":9094"),
		MongoURI:             getenv("MONGO_URI", "mongodb://127.0.0.1:27017"),
		MongoDatabase:        getenv("MONGO_DATABASE", "learning"),
		StoreTimeout:         getenvDuration("STORE_TIMEOUT", 10*time.Second),
		CatalogDatabaseURL:   getenv("CATALOG_DATABASE_URL", ""),
		RedisAddr:            getenv("REDIS_ADDR", ""),
		RedisPassword:        getenv("REDIS_PASSWORD", ""),
		CatalogCacheTTL:      getenvDuration("CATALOG_CACHE_TTL", 5*time.Minute),
		JWTSecret:            getenv("JWT_SECRET", "dev-secret"),
		JWTIssuer:            getenv("JWT_ISSUER", "semaphore-learning"),
		AccessTokenTTL:       getenvDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		ServiceAuthToken:     getenv("SERVICE_AUTH_TOKEN", ""),
		CORSAllowedOrigins:   getenvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		LogMode:              getenv("LOG_MODE", "development"),
		VerifyCourseOnEnroll: getenvBool("VERIFY_COURSE_ON_ENROLL", false),
	}
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
