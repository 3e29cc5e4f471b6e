package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	ServerPort       string
	DatabaseType     string
	DatabasePath     string
	DatabaseURL      string
	MigrationsPath   string
	SeedCatalogPath  string
	LogMode          string
	MetricsNamespace string
	ShutdownTimeout  time.Duration

	// RateLimit is requests per RateLimitWindow per client; 0 disables limiting
	RateLimit       int
	RateLimitWindow time.Duration

	// Scheduling rules
	JournalResetDay         time.Weekday
	NewGroupWindow          time.Duration
	OnboardingPromptID      string
	MinMembersForMemberName int
	FallbackName            string
	ScheduleConcurrency     int
}

// Load reads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort:              getEnv("PORT", "8080"),
		DatabaseType:            strings.ToLower(getEnv("DATABASE_TYPE", "sqlite")),
		DatabasePath:            getEnv("DB_PATH", "./dailyprompt.db"),
		DatabaseURL:             strings.TrimSpace(os.Getenv("DATABASE_URL")),
		MigrationsPath:          getEnv("MIGRATIONS_PATH", "./migrations"),
		SeedCatalogPath:         strings.TrimSpace(os.Getenv("SEED_CATALOG")),
		LogMode:                 getEnv("LOG_MODE", "development"),
		MetricsNamespace:        getEnv("METRICS_NAMESPACE", "dailyprompt"),
		OnboardingPromptID:      strings.TrimSpace(os.Getenv("ONBOARDING_PROMPT_ID")),
		FallbackName:            getEnv("FALLBACK_NAME", "them"),
		ShutdownTimeout:         15 * time.Second,
		JournalResetDay:         time.Sunday,
		NewGroupWindow:          24 * time.Hour,
		MinMembersForMemberName: 3,
		ScheduleConcurrency:     4,
		RateLimitWindow:         time.Minute,
	}

	var err error
	if cfg.ShutdownTimeout, err = durationFromEnv("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout); err != nil {
		return nil, err
	}
	if cfg.NewGroupWindow, err = durationFromEnv("NEW_GROUP_WINDOW", cfg.NewGroupWindow); err != nil {
		return nil, err
	}
	if cfg.MinMembersForMemberName, err = intFromEnv("MIN_MEMBERS_FOR_MEMBER_NAME", cfg.MinMembersForMemberName); err != nil {
		return nil, err
	}
	if cfg.ScheduleConcurrency, err = intFromEnv("SCHEDULE_CONCURRENCY", cfg.ScheduleConcurrency); err != nil {
		return nil, err
	}
	if cfg.RateLimit, err = intFromEnv("RATE_LIMIT", cfg.RateLimit); err != nil {
		return nil, err
	}
	if cfg.RateLimitWindow, err = durationFromEnv("RATE_LIMIT_WINDOW", cfg.RateLimitWindow); err != nil {
		return nil, err
	}
	if v := strings.TrimSpace(os.Getenv("JOURNAL_RESET_DAY")); v != "" {
		day, err := ParseWeekday(v)
		if err != nil {
			return nil, fmt.Errorf("JOURNAL_RESET_DAY: %w", err)
		}
		cfg.JournalResetDay = day
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the invariants the scheduling rules depend on
func (c *Config) Validate() error {
	switch c.DatabaseType {
	case "sqlite", "sqlite3", "postgres", "postgresql", "pgx", "mysql", "memory":
	default:
		return fmt.Errorf("unsupported DATABASE_TYPE: %s", c.DatabaseType)
	}
	if c.NewGroupWindow <= 0 {
		return fmt.Errorf("NEW_GROUP_WINDOW must be positive")
	}
	if c.MinMembersForMemberName < 1 {
		return fmt.Errorf("MIN_MEMBERS_FOR_MEMBER_NAME must be at least 1")
	}
	if c.ScheduleConcurrency < 1 {
		return fmt.Errorf("SCHEDULE_CONCURRENCY must be at least 1")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("RATE_LIMIT must not be negative")
	}
	if c.RateLimit > 0 && c.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive when RATE_LIMIT is set")
	}
	if strings.TrimSpace(c.FallbackName) == "" {
		return fmt.Errorf("FALLBACK_NAME must not be blank")
	}
	return nil
}

// ParseWeekday accepts full or three-letter English day names
func ParseWeekday(v string) (time.Weekday, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if v == name || v == name[:3] {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("unknown weekday %q", v)
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}
