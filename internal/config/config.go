package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseURL       string
	HTTPAddr          string
	LogLevel          string
	Env               string // dev|prod
	SentryDSN         string
	ParishName        string
	Location          *time.Location
	DefaultTotalWeeks int // fallback when no current school year exists
}

func Load() (*Config, error) {
	tz := getenv("TZ", "Asia/Ho_Chi_Minh")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.Local
	}

	weeks, err := parseInt(getenv("DEFAULT_TOTAL_WEEKS", "40"))
	if err != nil {
		return nil, fmt.Errorf("DEFAULT_TOTAL_WEEKS: %w", err)
	}

	cfg := &Config{
		DatabaseURL:       mustEnv("DATABASE_URL"),
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		LogLevel:          getenv("LOG_LEVEL", "info"),
		Env:               getenv("ENV", "dev"),
		SentryDSN:         os.Getenv("SENTRY_DSN"),
		ParishName:        getenv("PARISH_NAME", "Giáo xứ Thiên Ân"),
		Location:          loc,
		DefaultTotalWeeks: weeks,
	}
	return cfg, nil
}

func mustEnv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("required env " + k + " is empty")
	}
	return v
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func parseInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("bad number %q: %w", s, err)
	}
	return n, nil
}
