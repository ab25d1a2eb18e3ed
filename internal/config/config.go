package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr string

	// Env selects dev conveniences such as seeding.
	Env string // "dev" | "prod"

	// EventStore selects the events backend: "sqlite" | "json" | "memory".
	EventStore string
	DBPath     string // e.g. "./data/sunwatch.db"
	EventsPath string // e.g. "./config/sun_events.json"

	// Scheduling
	LookAhead     time.Duration
	FallbackPoll  time.Duration
	LookupTimeout time.Duration
}

func FromEnv() Config {
	addr := getenvDefault("SUNWATCH_HTTP_ADDR", ":8080")

	env := strings.ToLower(getenvDefault("SUNWATCH_ENV", "dev"))
	if env != "dev" && env != "prod" {
		// fail-soft: treat unknown as dev
		env = "dev"
	}

	backend := strings.ToLower(getenvDefault("SUNWATCH_EVENT_STORE", "sqlite"))
	if backend != "sqlite" && backend != "json" && backend != "memory" {
		backend = "sqlite"
	}

	return Config{
		HTTPAddr: addr,
		Env:      env,

		EventStore: backend,
		DBPath:     getenvDefault("SUNWATCH_DB_PATH", "./data/sunwatch.db"),
		EventsPath: getenvDefault("SUNWATCH_EVENTS_PATH", "./config/sun_events.json"),

		LookAhead:     getenvMinutes("SUNWATCH_LOOK_AHEAD_MINUTES", 30),
		FallbackPoll:  getenvMinutes("SUNWATCH_FALLBACK_POLL_MINUTES", 5),
		LookupTimeout: getenvSeconds("SUNWATCH_LOOKUP_TIMEOUT_SECONDS", 10),
	}
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func getenvMinutes(key string, def int) time.Duration {
	return time.Duration(getenvInt(key, def)) * time.Minute
}

func getenvSeconds(key string, def int) time.Duration {
	return time.Duration(getenvInt(key, def)) * time.Second
}
