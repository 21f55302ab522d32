// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing, the process exits with an error.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all runtime configuration for the interview service.
type Config struct {
	Port                    string
	DatabaseURL             string
	RedisURL                string
	CalendarServiceURL      string // empty disables meeting-link creation
	CalendarAPIKey          string
	ReminderIntervalMinutes int // how often the reminder cron fires
}

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	interval := 15
	if s := os.Getenv("REMINDER_INTERVAL_MINUTES"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			return nil, fmt.Errorf("REMINDER_INTERVAL_MINUTES must be a positive integer, got %q", s)
		}
		interval = v
	}

	port := os.Getenv("INTERVIEW_PORT")
	if port == "" {
		port = "8083"
	}

	return &Config{
		Port:                    port,
		DatabaseURL:             dbURL,
		RedisURL:                redisURL,
		CalendarServiceURL:      os.Getenv("CALENDAR_SERVICE_URL"),
		CalendarAPIKey:          os.Getenv("CALENDAR_API_KEY"),
		ReminderIntervalMinutes: interval,
	}, nil
}
