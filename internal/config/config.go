// internal/config/config.go
package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string
	Production bool

	// DB
	DBHost    string
	DBPort    string
	DBUser    string
	DBPass    string
	DBName    string
	DBSSLMode string

	// Auth
	JWTSecret   string
	TokenTTLMin int

	// SMTP (sale receipts)
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPass     string
	SMTPFrom     string
	SMTPFromName string

	// R2 Storage (product images)
	R2AccountID       string
	R2AccessKeyID     string
	R2AccessKeySecret string
	R2BucketName      string
	R2PublicURL       string

	// Redis (cross-instance sync event bus), optional.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// CORS
	AllowedOrigins string
}

func Load() *Config {
	if os.Getenv("ENV") != "production" {
		_ = godotenv.Load() // optional .env for local
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	smtpPort := 587
	if v := os.Getenv("SMTP_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			log.Fatalf("❌ Invalid SMTP_PORT: %v", err)
		}
		smtpPort = p
	}

	redisDB := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil {
			log.Fatalf("❌ Invalid REDIS_DB: %v", err)
		}
		redisDB = d
	}

	tokenTTL := 720
	if v := os.Getenv("TOKEN_TTL_MINUTES"); v != "" {
		t, err := strconv.Atoi(v)
		if err != nil {
			log.Fatalf("❌ Invalid TOKEN_TTL_MINUTES: %v", err)
		}
		tokenTTL = t
	}

	return &Config{
		ServerPort: port,
		Production: os.Getenv("ENV") == "production",

		DBHost:    getEnv("DB_HOST", "localhost"),
		DBPort:    getEnv("DB_PORT", "5432"),
		DBUser:    getEnv("DB_USER", "postgres"),
		DBPass:    getEnv("DB_PASS", "postgres"),
		DBName:    getEnv("DB_NAME", "pos_db"),
		DBSSLMode: getEnv("DB_SSLMODE", "disable"),

		JWTSecret:   getEnv("JWT_SECRET", "dev-only-secret-change-me"),
		TokenTTLMin: tokenTTL,

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     smtpPort,
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPass:     os.Getenv("SMTP_PASS"),
		SMTPFrom:     os.Getenv("SMTP_FROM"),
		SMTPFromName: getEnv("SMTP_FROM_NAME", "POS Service"),

		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2AccessKeySecret: os.Getenv("R2_ACCESS_KEY_SECRET"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicURL:       os.Getenv("R2_PUBLIC_URL"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:3001"),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
