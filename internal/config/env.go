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

type Env struct {
	AppAddr string
	AppEnv  string
	GinMode string

	CORSAllowedOrigins []string

	DBDSN         string
	DBAutoMigrate bool

	JWTSecret             string
	JWTTTL                time.Duration
	AuthMaxFailedAttempts int
	AuthLockoutDuration   time.Duration
	AuthAllowMockLogin    bool
	LoginRatePerMinute    int

	ParentAppURL         string
	ParentAppAppID       string
	ParentAppAPIKey      string
	ParentAppRedirectURI string

	GatewayURL           string
	GatewayKeyID         string
	GatewayKeySecret     string
	GatewayWebhookSecret string
	PaymentPendingTTL    time.Duration

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string

	SentryDSN string
}

// LoadEnv reads .env (when present) and the process environment.
func LoadEnv() Env {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: failed to read .env: %v", err)
	}

	return Env{
		AppAddr: getString("APP_ADDR", ":8080"),
		AppEnv:  getString("APP_ENV", "development"),
		GinMode: getString("GIN_MODE", ""),

		CORSAllowedOrigins: getList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),

		DBDSN:         buildDSN(),
		DBAutoMigrate: getBool("DB_AUTO_MIGRATE", false),

		JWTSecret:             getString("JWT_SECRET", "change-me-tms-secret"),
		JWTTTL:                getDuration("JWT_TTL", 24*time.Hour),
		AuthMaxFailedAttempts: getInt("AUTH_MAX_FAILED_ATTEMPTS", 5),
		AuthLockoutDuration:   getDuration("AUTH_LOCKOUT_DURATION", 30*time.Minute),
		AuthAllowMockLogin:    getBool("AUTH_ALLOW_MOCK_LOGIN", false),
		LoginRatePerMinute:    getInt("LOGIN_RATE_PER_MINUTE", 10),

		ParentAppURL:         strings.TrimSuffix(getString("PARENT_APP_URL", "https://my.jkkn.ac.in"), "/"),
		ParentAppAppID:       getString("PARENT_APP_APP_ID", ""),
		ParentAppAPIKey:      getString("PARENT_APP_API_KEY", ""),
		ParentAppRedirectURI: getString("PARENT_APP_REDIRECT_URI", "http://localhost:3000/auth/callback"),

		GatewayURL:           strings.TrimSuffix(getString("GATEWAY_URL", "https://api.razorpay.com/v1"), "/"),
		GatewayKeyID:         getString("GATEWAY_KEY_ID", ""),
		GatewayKeySecret:     getString("GATEWAY_KEY_SECRET", ""),
		GatewayWebhookSecret: getString("GATEWAY_WEBHOOK_SECRET", ""),
		PaymentPendingTTL:    getDuration("PAYMENT_PENDING_TTL", 24*time.Hour),

		VAPIDPublicKey:  getString("VAPID_PUBLIC_KEY", ""),
		VAPIDPrivateKey: getString("VAPID_PRIVATE_KEY", ""),
		VAPIDSubject:    getString("VAPID_SUBJECT", "mailto:transport@jkkn.ac.in"),

		SentryDSN: getString("SENTRY_DSN", ""),
	}
}

func buildDSN() string {
	if dsn := getString("DB_DSN", ""); dsn != "" {
		return dsn
	}
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=Local&charset=utf8mb4&timeout=5s&readTimeout=30s&writeTimeout=30s",
		getString("DB_USER", "root"),
		getString("DB_PASSWORD", ""),
		getString("DB_HOST", "127.0.0.1:3306"),
		getString("DB_NAME", "tms"),
	)
}

func getString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func getList(key string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	out := []string{}
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func getBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("warning: %s=%q is not a boolean, using default %v", key, v, def)
		return def
	}
	return b
}

func getInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("warning: %s=%q is invalid, using default %d", key, v, def)
		return def
	}
	return n
}

func getDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("warning: %s=%q is invalid, using default %s", key, v, def)
		return def
	}
	return d
}
