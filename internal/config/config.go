package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      string
	DBUrl     string
	JWTSecret string
	AppEnv    string

	// Policy settings for the booking and recovery flows.
	TempPasswordTTLMins    int
	TempPasswordResendMins int
	CancelCutoffMins       int
	AccessTokenTTLMins     int

	// SMTP delivery for temporary passwords. Mail is disabled when the
	// host is empty.
	SMTPHost        string
	SMTPPort        int
	SMTPUsername    string
	SMTPPassword    string
	MailFromName    string
	MailFromAddress string

	// Base URL embedded in password reset emails.
	ResetURL string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	jwtSecret, exists := os.LookupEnv("JWT_SECRET")
	if !exists || jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return &Config{
		Port:      getEnv("PORT", "8080"),
		DBUrl:     getEnv("DB_URL", ""),
		JWTSecret: jwtSecret,
		AppEnv:    normalizeEnv(getEnv("APP_ENV", "production")),

		TempPasswordTTLMins:    getEnvInt("TEMP_PASSWORD_TTL_MINS", 10),
		TempPasswordResendMins: getEnvInt("TEMP_PASSWORD_RESEND_MINS", 2),
		CancelCutoffMins:       getEnvInt("CANCEL_CUTOFF_MINS", 60),
		AccessTokenTTLMins:     getEnvInt("ACCESS_TOKEN_TTL_MINS", 60),

		SMTPHost:        getEnv("SMTP_HOST", ""),
		SMTPPort:        getEnvInt("SMTP_PORT", 465),
		SMTPUsername:    getEnv("SMTP_USERNAME", ""),
		SMTPPassword:    getEnv("SMTP_PASSWORD", ""),
		MailFromName:    getEnv("MAIL_FROM_NAME", "PFNext Admin"),
		MailFromAddress: getEnv("MAIL_FROM_ADDRESS", "admin@fitnext.uk"),

		ResetURL: getEnv("RESET_URL", "https://fitnext.uk/reset_pwd"),
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func normalizeEnv(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "develop", "development", "local":
		return "development"
	case "prod", "production":
		return "production"
	case "stage", "staging":
		return "staging"
	case "test", "testing":
		return "test"
	default:
		return strings.ToLower(strings.TrimSpace(value))
	}
}
