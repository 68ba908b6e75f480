package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables
	S3BucketName   string
	S3PublicURL    string // CDN or website origin for product images
	SNSRegion      string
	SNSSenderID    string
	RedisAddr      string // empty: rate limiters stay in-process

	JWTSecret string
	JWTExpiry time.Duration
	OTPSecret string

	PhoneRegion       string
	OTPTTL            time.Duration
	OTPMaxAttempts    int
	CodeRequestsLimit int // per phone per minute
	VerifyLimit       int // per IP per 15 minutes

	TaxRate           float64
	ShippingFee       float64
	FreeShippingAbove float64

	AdminPhones []string
	AdminEmails []string

	GoogleClientID string

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	OTABundleID  string
	OTATitle     string
	OTAIPAKey    string // S3 object key of the .ipa
	OTAStaticDir string // when set, the .ipa is served from disk instead of S3

	AllowedOrigins []string // CORS allowed origins
	TrustedProxies []string // CIDRs or addresses whose X-Forwarded-For is believed
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users              string
	Identities         string
	Sessions           string
	PhoneVerifications string
	Products           string
	Orders             string
	AppVersions        string
}

// IsProduction reports whether the service runs with APP_ENV=production.
func (c *Config) IsProduction() bool { return c.AppEnv == "production" }

// Load reads all configuration from environment variables.
func Load() *Config {
	jwtSecret := getEnv("JWT_SECRET", "dev-secret-change-me")
	return &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		AppEnv:         getEnv("APP_ENV", "development"),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users:              getEnv("DYNAMO_TABLE_USERS", "users"),
			Identities:         getEnv("DYNAMO_TABLE_IDENTITIES", "user_identities"),
			Sessions:           getEnv("DYNAMO_TABLE_SESSIONS", "sessions"),
			PhoneVerifications: getEnv("DYNAMO_TABLE_PHONE_VERIFICATIONS", "phone_verifications"),
			Products:           getEnv("DYNAMO_TABLE_PRODUCTS", "products"),
			Orders:             getEnv("DYNAMO_TABLE_ORDERS", "orders"),
			AppVersions:        getEnv("DYNAMO_TABLE_APP_VERSIONS", "app_versions"),
		},
		S3BucketName: getEnv("S3_BUCKET_NAME", "store-assets"),
		S3PublicURL:  getEnv("S3_PUBLIC_URL", ""),
		SNSRegion:    getEnv("SNS_REGION", ""),
		SNSSenderID:  getEnv("SNS_SENDER_ID", ""),
		RedisAddr:    getEnv("REDIS_ADDR", ""),

		JWTSecret: jwtSecret,
		JWTExpiry: time.Duration(getEnvInt("JWT_EXPIRY_DAYS", 7)) * 24 * time.Hour,
		OTPSecret: getEnv("OTP_SECRET", jwtSecret),

		PhoneRegion:       getEnv("PHONE_DEFAULT_REGION", "US"),
		OTPTTL:            time.Duration(getEnvInt("OTP_TTL_MINUTES", 5)) * time.Minute,
		OTPMaxAttempts:    getEnvInt("OTP_MAX_ATTEMPTS", 5),
		CodeRequestsLimit: getEnvInt("OTP_REQUESTS_PER_MINUTE", 3),
		VerifyLimit:       getEnvInt("OTP_VERIFY_PER_15_MINUTES", 10),

		TaxRate:           getEnvFloat("TAX_RATE", 0.08),
		ShippingFee:       getEnvFloat("SHIPPING_FEE", 5.00),
		FreeShippingAbove: getEnvFloat("FREE_SHIPPING_THRESHOLD", 50.00),

		AdminPhones: getEnvList("ADMIN_PHONES"),
		AdminEmails: getEnvList("ADMIN_EMAILS"),

		GoogleClientID: getEnv("GOOGLE_CLIENT_ID", ""),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "orders@example.com"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		OTABundleID:  getEnv("OTA_BUNDLE_ID", "com.himalfrost.app"),
		OTATitle:     getEnv("OTA_TITLE", "Himalfrost"),
		OTAIPAKey:    getEnv("OTA_IPA_KEY", "ota/app.ipa"),
		OTAStaticDir: getEnv("OTA_STATIC_DIR", ""),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		TrustedProxies: getEnvList("TRUSTED_PROXIES"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// getEnvList splits a comma-separated variable, dropping blanks.
func getEnvList(key string) []string {
	var out []string
	for _, s := range strings.Split(os.Getenv(key), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
