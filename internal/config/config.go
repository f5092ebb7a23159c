package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds everything the server needs, built once at startup and
// passed down explicitly.
type Config struct {
	ListenAddr  string
	BaseURL     string
	DatabaseURL string
	Environment string

	CookieHashKey  []byte
	CookieBlockKey []byte

	CoachPassword string
	CoachEmail    string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	EmailFrom    string
}

func FromEnv() (Config, error) {
	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	cfg := Config{
		ListenAddr:  getenv("LISTEN_ADDR", ":8080"),
		BaseURL:     getenv("BASE_URL", "http://localhost:8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Environment: getenv("ENV", "development"),

		CoachPassword: os.Getenv("COACH_PASSWORD"),
		CoachEmail:    os.Getenv("COACH_EMAIL"),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		EmailFrom:    os.Getenv("EMAIL_FROM"),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.CoachPassword == "" {
		return Config{}, fmt.Errorf("COACH_PASSWORD is required")
	}

	port, err := strconv.Atoi(getenv("SMTP_PORT", "587"))
	if err != nil || port < 1 {
		return Config{}, fmt.Errorf("invalid SMTP_PORT")
	}
	cfg.SMTPPort = port

	hashKey := os.Getenv("COOKIE_HASH_KEY")
	blockKey := os.Getenv("COOKIE_BLOCK_KEY")
	if hashKey == "" || blockKey == "" {
		return Config{}, fmt.Errorf("COOKIE_HASH_KEY and COOKIE_BLOCK_KEY are required (base64, see `padelbook keys`)")
	}
	if cfg.CookieHashKey, err = decodeB64(hashKey); err != nil {
		return Config{}, fmt.Errorf("COOKIE_HASH_KEY: %w", err)
	}
	if cfg.CookieBlockKey, err = decodeB64(blockKey); err != nil {
		return Config{}, fmt.Errorf("COOKIE_BLOCK_KEY: %w", err)
	}

	return cfg, nil
}

// SMTPConfigured reports whether outbound email can be sent at all.
// Without it the server still runs; notifications are skipped.
func (c Config) SMTPConfigured() bool {
	return c.SMTPHost != "" && c.EmailFrom != ""
}

func decodeB64(s string) ([]byte, error) {
	// allow pointing to a file path for k8s secret mounts
	if b, err := os.ReadFile(s); err == nil {
		s = string(b)
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(s))
}

func getenv(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
