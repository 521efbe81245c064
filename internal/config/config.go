package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends for the per-session stores.
const (
	StorageSQLite = "sqlite"
	StorageFile   = "file"
)

// OCR providers.
const (
	OCRSpace  = "ocrspace"
	OCRGemini = "gemini"
)

// Config holds the configuration for the application.
type Config struct {
	DatabasePath   string
	StorageBackend string
	SnapshotDir    string

	OCRProvider    string
	OCRSpaceAPIKey string
	OCRSpaceURL    string
	OCRLanguage    string
	GeminiAPIKey   string
	GeminiModel    string

	// Empty means pages are scraped locally only.
	ScraperURL string

	FirestoreProjectID  string
	FirestoreAPIKey     string
	FirestoreCollection string
	KitchenCacheTTL     time.Duration
	SpoonacularAPIKey   string

	// Share links are disabled without a secret.
	ShareSecret string
	ShareTTL    time.Duration
	PublicURL   string

	// Telegram Config
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64
	AdminTelegramID        int64

	ExternalTimeout time.Duration
	Port            string
}

// LoadDotEnv loads a .env file into the environment when one exists.
func LoadDotEnv(paths ...string) {
	if err := godotenv.Load(paths...); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Failed to load .env file: %v", err)
	}
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	cfg := &Config{
		DatabasePath:        getEnv("DATABASE_PATH", "data/meal-planner.db"),
		StorageBackend:      strings.ToLower(getEnv("STORAGE_BACKEND", StorageSQLite)),
		SnapshotDir:         getEnv("SNAPSHOT_DIR", "data/snapshots"),
		OCRProvider:         strings.ToLower(getEnv("OCR_PROVIDER", OCRSpace)),
		OCRSpaceAPIKey:      os.Getenv("OCR_SPACE_API_KEY"),
		OCRSpaceURL:         getEnv("OCR_SPACE_URL", "https://api.ocr.space/parse/image"),
		OCRLanguage:         getEnv("OCR_LANGUAGE", "eng"),
		GeminiAPIKey:        os.Getenv("GEMINI_API_KEY"),
		GeminiModel:         getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		ScraperURL:          os.Getenv("SCRAPER_URL"),
		FirestoreProjectID:  os.Getenv("FIRESTORE_PROJECT_ID"),
		FirestoreAPIKey:     os.Getenv("FIRESTORE_API_KEY"),
		FirestoreCollection: getEnv("FIRESTORE_COLLECTION", "kitchenRecipes"),
		SpoonacularAPIKey:   os.Getenv("SPOONACULAR_API_KEY"),
		ShareSecret:         os.Getenv("SHARE_SECRET"),
		PublicURL:           strings.TrimRight(getEnv("PUBLIC_URL", "http://localhost:8080"), "/"),
		TelegramBotToken:    os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL:  os.Getenv("TELEGRAM_WEBHOOK_URL"),
		Port:                getEnv("PORT", "8080"),
	}

	switch cfg.StorageBackend {
	case StorageSQLite, StorageFile:
	default:
		return nil, fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q", StorageSQLite, StorageFile, cfg.StorageBackend)
	}

	// Without a key for the selected provider photo capture is disabled.
	switch cfg.OCRProvider {
	case OCRSpace, OCRGemini:
	default:
		return nil, fmt.Errorf("OCR_PROVIDER must be %q or %q, got %q", OCRSpace, OCRGemini, cfg.OCRProvider)
	}

	if cfg.FirestoreProjectID != "" && cfg.FirestoreAPIKey == "" {
		return nil, fmt.Errorf("FIRESTORE_API_KEY environment variable not set")
	}

	var err error
	if cfg.ExternalTimeout, err = secondsEnv("EXTERNAL_TIMEOUT_SECONDS", 30); err != nil {
		return nil, err
	}
	if cfg.KitchenCacheTTL, err = secondsEnv("KITCHEN_CACHE_SECONDS", 300); err != nil {
		return nil, err
	}
	if cfg.ShareTTL, err = secondsEnv("SHARE_TTL_SECONDS", 7*24*3600); err != nil {
		return nil, err
	}

	if cfg.TelegramAllowedUserIDs, err = parseIDs(os.Getenv("TELEGRAM_ALLOWED_USER_IDS")); err != nil {
		return nil, fmt.Errorf("TELEGRAM_ALLOWED_USER_IDS: %w", err)
	}
	if admin := os.Getenv("ADMIN_TELEGRAM_ID"); admin != "" {
		if cfg.AdminTelegramID, err = strconv.ParseInt(admin, 10, 64); err != nil {
			return nil, fmt.Errorf("ADMIN_TELEGRAM_ID must be a number: %w", err)
		}
	}

	return cfg, nil
}

// OCREnabled reports whether the selected OCR provider has a key.
func (c *Config) OCREnabled() bool {
	switch c.OCRProvider {
	case OCRGemini:
		return c.GeminiAPIKey != ""
	default:
		return c.OCRSpaceAPIKey != ""
	}
}

// KitchenEnabled reports whether curated recipes are configured.
func (c *Config) KitchenEnabled() bool {
	return c.FirestoreProjectID != ""
}

// UserAllowed reports whether the Telegram user may use the bot. An empty
// allow list admits everybody.
func (c *Config) UserAllowed(id int64) bool {
	if len(c.TelegramAllowedUserIDs) == 0 || id == c.AdminTelegramID {
		return true
	}
	for _, allowed := range c.TelegramAllowedUserIDs {
		if allowed == id {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func secondsEnv(key string, fallback int) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return time.Duration(fallback) * time.Second, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive number of seconds, got %q", key, v)
	}
	return time.Duration(n) * time.Second, nil
}

func parseIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
