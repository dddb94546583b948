package config

import (
	"os"
	"strings"
	"time"
)

// Storage backends for the snapshot store.
const (
	StorageFile  = "file"
	StorageRedis = "redis"
	StorageMongo = "mongo"
)

type Config struct {
	Port           string
	Environment    string // ENV: production, development, etc.
	DataDir        string // snapshot files for the default file backend
	Storage        string // file | redis | mongo
	RedisURI       string
	MongoURI       string
	PostgresURI    string // optional; accounts move to PostgreSQL when set
	JWTSecret      string
	TokenTTL       time.Duration
	FrontendURL    string
	AllowedOrigins []string // CORS: from ALLOWED_ORIGINS or FRONTEND_URL
}

func Load() *Config {
	env := strings.ToLower(strings.TrimSpace(getEnv("ENV", "development")))

	allowedOrigins := parseOrigins(getEnv("ALLOWED_ORIGINS", ""))
	if len(allowedOrigins) == 0 {
		if u := strings.TrimSpace(getEnv("FRONTEND_URL", "http://localhost:3000")); u != "" {
			allowedOrigins = append(allowedOrigins, u)
		}
	}

	tokenTTL := 7 * 24 * time.Hour
	if v := os.Getenv("TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			tokenTTL = d
		}
	}

	return &Config{
		Port:           getEnv("PORT", "8080"),
		Environment:    env,
		DataDir:        getEnv("DATA_DIR", "data"),
		Storage:        strings.ToLower(getEnv("STORAGE_BACKEND", StorageFile)),
		RedisURI:       getEnv("REDIS_URI", ""),
		MongoURI:       getEnv("MONGODB_URI", getEnv("MONGO_URI", "")),
		PostgresURI:    getEnv("POSTGRES_URI", ""),
		JWTSecret:      getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		TokenTTL:       tokenTTL,
		FrontendURL:    getEnv("FRONTEND_URL", "http://localhost:3000"),
		AllowedOrigins: allowedOrigins,
	}
}

func parseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
