package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL  string
	JWTSecretKey string
	ServerPort   int
	PublicURL    string

	// Relationship store (SpiceDB-совместимый HTTP API).
	AuthzEndpoint string
	AuthzToken    string

	// Identity provider (Clerk-совместимый HTTP API).
	IdentityAPIURL string
	IdentityAPIKey string

	// SMTP для писем-приглашений.
	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	// Cloudflare R2 для выгрузок.
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string

	// Минимальное число судей, при котором при подведении итогов
	// отбрасываются лучшая и худшая оценки.
	QuorumThreshold int
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	// Загружаем .env файл, если он есть. Ошибку не считаем фатальной.
	_ = godotenv.Load()

	cfg := &Config{}

	required := map[string]*string{
		"DATABASE_URL":     &cfg.DatabaseURL,
		"JWT_SECRET_KEY":   &cfg.JWTSecretKey,
		"AUTHZ_ENDPOINT":   &cfg.AuthzEndpoint,
		"AUTHZ_TOKEN":      &cfg.AuthzToken,
		"IDENTITY_API_URL": &cfg.IdentityAPIURL,
		"IDENTITY_API_KEY": &cfg.IdentityAPIKey,
	}
	for name, dst := range required {
		val := os.Getenv(name)
		if val == "" {
			return nil, fmt.Errorf("%s environment variable is not set", name)
		}
		*dst = val
	}

	cfg.PublicURL = os.Getenv("PUBLIC_URL")
	if cfg.PublicURL == "" {
		cfg.PublicURL = "http://localhost:5173"
	}

	port, err := intEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}
	cfg.ServerPort = port

	quorum, err := intEnv("QUORUM_THRESHOLD", 5)
	if err != nil {
		return nil, err
	}
	if quorum < 3 {
		// После отбрасывания лучшей и худшей оценки должно что-то остаться.
		return nil, fmt.Errorf("QUORUM_THRESHOLD must be at least 3, got %d", quorum)
	}
	cfg.QuorumThreshold = quorum

	cfg.SMTPHost = os.Getenv("SMTP_HOST")
	cfg.SMTPUser = os.Getenv("SMTP_USER")
	cfg.SMTPPass = os.Getenv("SMTP_PASS")
	cfg.SMTPFrom = os.Getenv("SMTP_FROM")
	smtpPort, err := intEnv("SMTP_PORT", 587)
	if err != nil {
		return nil, err
	}
	cfg.SMTPPort = smtpPort

	cfg.R2AccountID = os.Getenv("R2_ACCOUNT_ID")
	cfg.R2AccessKeyID = os.Getenv("R2_ACCESS_KEY_ID")
	cfg.R2SecretAccessKey = os.Getenv("R2_SECRET_ACCESS_KEY")
	cfg.R2BucketName = os.Getenv("R2_BUCKET_NAME")
	cfg.R2PublicBaseURL = os.Getenv("R2_PUBLIC_BASE_URL")

	return cfg, nil
}

func intEnv(name string, fallback int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", name, err)
	}
	return val, nil
}
