package shared

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv         string
	HTTPAddr       string
	MetricsAddr    string
	DBDriver       string
	DBDSN          string
	RedisAddr      string
	RedisDB        int
	RedisPass      string
	CacheTTL       time.Duration
	JWTSecret      string
	JWTTTL         time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
	RequestTimeout time.Duration
	CORSOrigin     string

	ImageKitPrivateKey  string
	ImageKitURLEndpoint string
	ImageKitFolder      string
}

// devSecret keeps local runs working without configuration.
const devSecret = "dev-only-secret-change-me"

func (c Config) IsDev() bool { return c.AppEnv == "dev" || c.AppEnv == "development" }

// Load reads .env (when present) and the environment.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("could not read .env")
	}
	c := Config{
		AppEnv:         env("APP_ENV", "prod"),
		HTTPAddr:       env("HTTP_ADDR", ":8080"),
		MetricsAddr:    env("METRICS_ADDR", ":9100"),
		DBDriver:       env("DB_DRIVER", "sqlite"),
		DBDSN:          env("DB_DSN", ""),
		RedisAddr:      env("REDIS_ADDR", ""),
		RedisPass:      env("REDIS_PASSWORD", ""),
		RedisDB:        atoi("REDIS_DB", 0),
		CacheTTL:       time.Duration(atoi("CACHE_TTL_SECONDS", 300)) * time.Second,
		JWTSecret:      env("JWT_SECRET", ""),
		JWTTTL:         time.Duration(atoi("JWT_TTL_HOURS", 24)) * time.Hour,
		RateLimitRPS:   atof("RATE_LIMIT_RPS", 5),
		RateLimitBurst: atoi("RATE_LIMIT_BURST", 10),
		RequestTimeout: time.Duration(atoi("REQUEST_TIMEOUT_SECONDS", 15)) * time.Second,
		CORSOrigin:     env("CORS_ORIGIN", ""),

		ImageKitPrivateKey:  env("IMAGEKIT_PRIVATE_KEY", ""),
		ImageKitURLEndpoint: env("IMAGEKIT_URL_ENDPOINT", ""),
		ImageKitFolder:      env("IMAGEKIT_FOLDER", "/properties"),
	}
	if c.JWTSecret == "" {
		if !c.IsDev() {
			log.Fatal().Msg("JWT_SECRET is required outside dev")
		}
		log.Warn().Msg("JWT_SECRET is empty; using the development secret")
		c.JWTSecret = devSecret
	}
	if c.ImageKitPrivateKey == "" {
		log.Warn().Msg("IMAGEKIT_PRIVATE_KEY is empty; media uploads disabled")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func atoi(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Warn().Str("key", k).Str("value", v).Msg("not an integer; using default")
	}
	return def
}

func atof(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		log.Warn().Str("key", k).Str("value", v).Msg("not a number; using default")
	}
	return def
}
