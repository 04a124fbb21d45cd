package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	JWTSecret       string
	AllowOrigins    []string
	LogstashTCPAddr string

	// ProviderBackend selects the auth backend: "local" or "remote".
	ProviderBackend string
	AuthServiceURL  string
	AuthServiceKey  string

	// TokenStoreBackend selects where reset token bundles live:
	// "memory" or "redis".
	TokenStoreBackend string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int

	FrontendBaseURL string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	ResetCodeTTL       time.Duration
	ResetSessionTTL    time.Duration
	ResetOTPLength     int
	ResetMaxRequests   int
	ResetRequestWindow time.Duration
	ResetBundleTTL     time.Duration
}

func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	otpLen := 6
	if v, err := strconv.Atoi(getenv("RESET_OTP_LENGTH", "6")); err == nil && v > 0 {
		otpLen = v
	}
	maxRequests := 5
	if v, err := strconv.Atoi(getenv("RESET_MAX_REQUESTS", "5")); err == nil && v > 0 {
		maxRequests = v
	}
	redisDB := 0
	if v, err := strconv.Atoi(getenv("REDIS_DB", "0")); err == nil && v >= 0 {
		redisDB = v
	}

	return Config{
		Port:               getenv("PORT", "8080"),
		JWTSecret:          must("JWT_SECRET"),
		AllowOrigins:       splitAndTrim(getenv("ALLOW_ORIGINS", "*")),
		LogstashTCPAddr:    getenv("LOGSTASH_TCP_ADDR", ""),
		ProviderBackend:    getenv("AUTH_PROVIDER", "local"),
		AuthServiceURL:     getenv("AUTH_SERVICE_URL", ""),
		AuthServiceKey:     getenv("AUTH_SERVICE_KEY", ""),
		TokenStoreBackend:  getenv("TOKEN_STORE_BACKEND", "memory"),
		RedisAddr:          getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getenv("REDIS_PASSWORD", ""),
		RedisDB:            redisDB,
		FrontendBaseURL:    getenv("FRONTEND_BASE_URL", ""),
		SMTPHost:           getenv("SMTP_HOST", ""),
		SMTPPort:           getenv("SMTP_PORT", ""),
		SMTPUsername:       getenv("SMTP_USERNAME", ""),
		SMTPPassword:       getenv("SMTP_PASSWORD", ""),
		SMTPFrom:           getenv("SMTP_FROM", ""),
		ResetCodeTTL:       duration("RESET_CODE_TTL", 15*time.Minute),
		ResetSessionTTL:    duration("RESET_SESSION_TTL", 10*time.Minute),
		ResetOTPLength:     otpLen,
		ResetMaxRequests:   maxRequests,
		ResetRequestWindow: duration("RESET_REQUEST_WINDOW", 15*time.Minute),
		ResetBundleTTL:     duration("RESET_BUNDLE_TTL", 15*time.Minute),
	}
}

func duration(k string, d time.Duration) time.Duration {
	raw := getenv(k, "")
	if raw == "" {
		return d
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		log.Printf("Warning: invalid %s %q, using %s", k, raw, d)
		return d
	}
	return v
}

func splitAndTrim(input string) []string {
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}
