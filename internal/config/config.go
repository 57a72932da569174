// Package config loads server configuration from the environment, with a
// local .env file honored in development.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config is the complete server configuration. Database and Redis are
// optional: without them the server still runs, keeping balances and the
// action history in memory only for the life of the process.
type Config struct {
	Addr           string
	DatabaseURL    string
	RedisAddr      string
	RedisPassword  string
	JWTSecret      string
	TokenTTL       time.Duration
	AllowedOrigins []string
	GraceWindow    time.Duration
	AbsenceWindow  time.Duration
	SweepInterval  time.Duration
}

// Load reads the environment. A missing .env file is not an error.
func Load(log *logrus.Logger) Config {
	if err := godotenv.Load(); err == nil {
		log.Info("loaded environment from .env")
	}

	cfg := Config{
		Addr:          envStr("ADDR", ":8080"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		TokenTTL:      envDur(log, "TOKEN_TTL", 30*24*time.Hour),
		GraceWindow:   envDur(log, "GRACE_WINDOW", 30*time.Second),
		AbsenceWindow: envDur(log, "ABSENCE_WINDOW", 5*time.Minute),
		SweepInterval: envDur(log, "SWEEP_INTERVAL", 30*time.Second),
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	} else {
		cfg.AllowedOrigins = []string{"http://localhost:5173"}
	}

	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-insecure-secret"
		log.Warn("JWT_SECRET not set, using insecure development secret")
	}
	return cfg
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDur(log *logrus.Logger, key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.WithField("key", key).WithError(err).Warn("bad duration, using default")
		return fallback
	}
	return d
}
