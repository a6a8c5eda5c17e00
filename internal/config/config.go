// internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Config holds the server's runtime settings, read from the environment.
// A .env file is loaded by the binary before Load is called.
type Config struct {
	Port              string
	Env               string
	LogLevel          string
	DatabaseURL       string
	RedisAddr         string
	RedisDB           int
	ActionPrefix      string
	JWTPublicKeyPath  string
	AllowedOrigins    []string
	DefaultMaxPlayers int
}

// Load reads Config from the environment, applying defaults.
func Load() Config {
	return Config{
		Port:              getEnv("PORT", "8080"),
		Env:               getEnv("APP_ENV", "development"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		DatabaseURL:       databaseURL(),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		ActionPrefix:      getEnv("ACTION_CHANNEL_PREFIX", "tabletop:actions"),
		JWTPublicKeyPath:  os.Getenv("JWT_PUBLIC_KEY_PATH"),
		AllowedOrigins:    splitList(getEnv("ALLOWED_ORIGINS", "*")),
		DefaultMaxPlayers: getEnvInt("DEFAULT_MAX_PLAYERS", 4),
	}
}

// Production reports whether APP_ENV is "production".
func (c Config) Production() bool {
	return strings.EqualFold(c.Env, "production")
}

// Addr is the listen address.
func (c Config) Addr() string {
	return ":" + c.Port
}

// NewLogger builds the process logger: JSON output in production, text
// otherwise. An unknown level falls back to info.
func (c Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if c.Production() {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

// databaseURL prefers DATABASE_URL and otherwise assembles one from the
// individual PG settings. It returns "" when no database is configured.
func databaseURL() string {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v
	}
	host := os.Getenv("PG_HOST")
	if host == "" {
		return ""
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(os.Getenv("POSTGRES_USER"), os.Getenv("POSTGRES_PASSWORD")),
		Host:   fmt.Sprintf("%s:%s", host, getEnv("PG_PORT", "5432")),
		Path:   "/" + os.Getenv("PG_DATABASE"),
	}
	return u.String()
}

func getEnv(key, defVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defVal
}

// getEnvInt returns defVal when the variable is unset or not an integer.
func getEnvInt(key string, defVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defVal
	}
	return i
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
