package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ServiceName string
	ServerPort  int
	LogLevel    string

	StoreDriver   string
	DatabaseURL   string
	SQLitePath    string
	MongoURI      string
	MongoDatabase string

	JWTSecret []byte
	JWTExpire time.Duration

	KafkaBrokers []string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string
}

func Load() Config {
	return Config{
		ServiceName: EnvDefault("SERVICE_NAME", "sweet-shop"),
		ServerPort:  EnvIntDefault("SERVER_PORT", 5000),
		LogLevel:    os.Getenv("LOG_LEVEL"),

		StoreDriver:   strings.ToLower(EnvDefault("STORE_DRIVER", "postgres")),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		SQLitePath:    EnvDefault("SQLITE_PATH", "sweet_shop.db"),
		MongoURI:      os.Getenv("MONGODB_URI"),
		MongoDatabase: EnvDefault("MONGODB_DATABASE", "sweet-shop"),

		JWTSecret: []byte(os.Getenv("JWT_SECRET")),
		JWTExpire: EnvDurationDefault("JWT_EXPIRE", 7*24*time.Hour),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),

		ESURL:      os.Getenv("ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),
		ESIndex:    EnvDefault("ES_INDEX", "sweets"),
	}
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// EnvDurationDefault reads a duration such as "15m", "12h" or "7d".
// Unparseable values fall back to def.
func EnvDurationDefault(key string, def time.Duration) time.Duration {
	d, err := ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func ParseDuration(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if days, ok := strings.CutSuffix(v, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, err
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(v)
}
