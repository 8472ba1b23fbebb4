package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Storage backends for the persisted key-value records.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Config holds the configuration for the application.
type Config struct {
	DataDir        string
	StorageBackend string
	DatabasePath   string
	CatalogDir     string
	ImagesDir      string
	ImagesBaseURL  string

	// Identity provider (Supabase). Optional: the planner works offline without it.
	SupabaseURL       string
	SupabaseAnonKey   string
	SupabaseJWTSecret string

	GeminiAPIKey string

	// Telegram Config
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64
	AdminTelegramID        int64
	Port                   string
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	dataDir := getEnvOrDefault("DATA_DIR", "data")

	backend := strings.ToLower(getEnvOrDefault("STORAGE_BACKEND", BackendSQLite))
	switch backend {
	case BackendFile, BackendSQLite, BackendMemory:
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q (expected file, sqlite or memory)", backend)
	}

	allowed, err := parseIDList(os.Getenv("TELEGRAM_ALLOWED_USER_IDS"))
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_ALLOWED_USER_IDS: %w", err)
	}

	var adminID int64
	if raw := os.Getenv("ADMIN_TELEGRAM_ID"); raw != "" {
		adminID, err = strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
		}
	}

	supabaseURL := strings.TrimRight(os.Getenv("SUPABASE_URL"), "/")
	supabaseKey := os.Getenv("SUPABASE_ANON_KEY")
	if (supabaseURL == "") != (supabaseKey == "") {
		return nil, fmt.Errorf("SUPABASE_URL and SUPABASE_ANON_KEY must be set together")
	}

	return &Config{
		DataDir:                dataDir,
		StorageBackend:         backend,
		DatabasePath:           getEnvOrDefault("DATABASE_PATH", filepath.Join(dataDir, "babymeal.db")),
		CatalogDir:             os.Getenv("CATALOG_DIR"),
		ImagesDir:              os.Getenv("IMAGES_DIR"),
		ImagesBaseURL:          getEnvOrDefault("IMAGES_BASE_URL", "/assets/ingredients"),
		SupabaseURL:            supabaseURL,
		SupabaseAnonKey:        supabaseKey,
		SupabaseJWTSecret:      os.Getenv("SUPABASE_JWT_SECRET"),
		GeminiAPIKey:           os.Getenv("GEMINI_API_KEY"),
		TelegramBotToken:       os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL:     os.Getenv("TELEGRAM_WEBHOOK_URL"),
		TelegramAllowedUserIDs: allowed,
		AdminTelegramID:        adminID,
		Port:                   getEnvOrDefault("PORT", "8080"),
	}, nil
}

// IdentityEnabled reports whether the hosted identity provider is configured.
func (c *Config) IdentityEnabled() bool {
	return c.SupabaseURL != "" && c.SupabaseAnonKey != ""
}

// RequireTelegram checks the settings the bot cannot start without.
func (c *Config) RequireTelegram() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable not set")
	}
	if c.TelegramWebhookURL == "" {
		return fmt.Errorf("TELEGRAM_WEBHOOK_URL environment variable not set")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseIDList(raw string) ([]int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
