package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service configuration loaded from environment variables.
type Config struct {
	Port           string
	MongoURI       string
	MongoDB        string
	RedisAddr      string
	RedisPassword  string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	TokenSecret    string
	TokenTTL       time.Duration
	LogLevel       string
	Env            string
	CORSOrigins    []string
	MaxPhotoBytes  int64

	// ListingOwnerFromToken checks listing and account ownership against
	// the authenticated caller instead of the id sent in the request.
	ListingOwnerFromToken bool
}

// Load reads an optional .env file, then the environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:                  getenv("PORT", "8080"),
		MongoURI:              getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:               getenv("MONGO_DB", "autos"),
		RedisAddr:             getenv("REDIS_ADDR", "redis:6379"),
		RedisPassword:         getenv("REDIS_PASSWORD", ""),
		MinioEndpoint:         getenv("MINIO_ENDPOINT", "minio:9000"),
		MinioAccessKey:        getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey:        getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:           getenv("MINIO_BUCKET", "listing-photos"),
		MinioUseSSL:           getbool("MINIO_USE_SSL", false),
		TokenSecret:           getenv("TOKEN_SECRET", ""),
		TokenTTL:              getduration("TOKEN_TTL", 168*time.Hour),
		LogLevel:              getenv("LOG_LEVEL", "info"),
		Env:                   getenv("APP_ENV", "production"),
		CORSOrigins:           getlist("CORS_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
		MaxPhotoBytes:         getint64("MAX_PHOTO_BYTES", 5<<20),
		ListingOwnerFromToken: getbool("LISTING_OWNER_FROM_TOKEN", false),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getbool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(getenv(key, strconv.FormatBool(fallback)))
	if err != nil {
		return fallback
	}
	return b
}

func getint64(key string, fallback int64) int64 {
	n, err := strconv.ParseInt(getenv(key, ""), 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

// getduration accepts Go durations ("12h") and "0" for tokens without expiry.
func getduration(key string, fallback time.Duration) time.Duration {
	v := getenv(key, "")
	if v == "" {
		return fallback
	}
	if v == "0" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getlist(key string, fallback []string) []string {
	v := getenv(key, "")
	if v == "" {
		return fallback
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
