package config

import (
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

func lookupEnv(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

// parseEnv falls back when the variable is blank or does not parse.
func parseEnv[T any](key string, fallback T, parse func(string) (T, error)) T {
	raw, ok := lookupEnv(key)
	if !ok {
		return fallback
	}
	v, err := parse(raw)
	if err != nil {
		return fallback
	}
	return v
}

func GetEnv(key, fallback string) string {
	if v, ok := lookupEnv(key); ok {
		return v
	}
	return fallback
}

// GetEnvLower is GetEnv for enum-like values such as STORAGE_BACKEND.
func GetEnvLower(key, fallback string) string {
	return strings.ToLower(GetEnv(key, fallback))
}

func GetEnvInt(key string, fallback int) int {
	return parseEnv(key, fallback, strconv.Atoi)
}

func GetEnvFloat(key string, fallback float64) float64 {
	return parseEnv(key, fallback, func(raw string) (float64, error) {
		return strconv.ParseFloat(raw, 64)
	})
}

func GetEnvBool(key string, fallback bool) bool {
	return parseEnv(key, fallback, strconv.ParseBool)
}

func GetEnvDuration(key string, fallback time.Duration) time.Duration {
	return parseEnv(key, fallback, time.ParseDuration)
}

// SplitCSV drops blank entries, so "a,,b" yields two values.
func SplitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// DefaultPostgresDSN assembles a postgres:// URL from the POSTGRES_* variables
// for deployments that do not set DATABASE_URL.
func DefaultPostgresDSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(GetEnv("POSTGRES_USER", "postgres"), GetEnv("POSTGRES_PASSWORD", "postgres")),
		Host:   net.JoinHostPort(GetEnv("POSTGRES_HOST", "localhost"), GetEnv("POSTGRES_PORT", "5432")),
		Path:   "/" + GetEnv("POSTGRES_DB", "shortner"),
	}
	q := url.Values{}
	q.Set("sslmode", GetEnv("POSTGRES_SSLMODE", "disable"))
	u.RawQuery = q.Encode()
	return u.String()
}
