package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	LogFormat     string
	PublicBaseURL string

	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Remote generative AI
	GeminiAPIKey     string
	GeminiModelID    string
	BedrockModelID   string
	LLMTimeout       time.Duration
	LLMMaxTokens     int
	ResponseCacheTTL time.Duration
	UseLLMClassifier bool

	// AWS (Bedrock alternate, SES, S3 transcript archive)
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Transcript archive
	TranscriptArchiveBucket string

	// Clinic directory
	ClinicSource            string // "postgres", "firestore" or "static"
	FirebaseProjectID       string
	FirebaseCredentialsFile string
	ClinicMinRating         float64
	ClinicResultLimit       int
	ClinicRanking           string // "rating" or "score"
	ClinicCacheTTL          time.Duration

	// Chat
	SessionTTL           time.Duration
	ChatRateLimitPerMin  int
	IPRateLimitPerSecond float64
	IPRateLimitBurst     int

	// Booking
	DefaultDailyCapacity int

	// Auth
	JWTSecret   string
	JWTTokenTTL time.Duration
	// Seeded on startup when both are set.
	BootstrapAdminEmail    string
	BootstrapAdminPassword string

	// Email
	EmailProvider    string // "sendgrid", "ses" or "" (stub)
	SendGridAPIKey   string
	EmailFromAddress string
	EmailFromName    string
	AdminNotifyEmail string
	// EmailSandbox asks SendGrid to validate without delivering.
	EmailSandbox        bool
	SESConfigurationSet string

	CORSAllowedOrigins []string
	CORSAllowedHeaders []string
	CORSAllowedMethods []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "json"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),

		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:    getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		BedrockModelID:   getEnv("BEDROCK_MODEL_ID", ""),
		LLMTimeout:       getEnvAsDuration("LLM_TIMEOUT", 8*time.Second),
		LLMMaxTokens:     getEnvAsInt("LLM_MAX_TOKENS", 256),
		ResponseCacheTTL: getEnvAsDuration("RESPONSE_CACHE_TTL", 10*time.Minute),
		UseLLMClassifier: getEnvAsBool("USE_LLM_CLASSIFIER", false),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		TranscriptArchiveBucket: getEnv("TRANSCRIPT_ARCHIVE_BUCKET", ""),

		ClinicSource:            strings.ToLower(strings.TrimSpace(getEnv("CLINIC_SOURCE", "postgres"))),
		FirebaseProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseCredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),
		ClinicMinRating:         getEnvAsFloat("CLINIC_MIN_RATING", 4.0),
		ClinicResultLimit:       getEnvAsInt("CLINIC_RESULT_LIMIT", 5),
		ClinicRanking:           strings.ToLower(strings.TrimSpace(getEnv("CLINIC_RANKING", "rating"))),
		ClinicCacheTTL:          getEnvAsDuration("CLINIC_CACHE_TTL", 5*time.Minute),

		SessionTTL:           getEnvAsDuration("SESSION_TTL", 24*time.Hour),
		ChatRateLimitPerMin:  getEnvAsInt("CHAT_RATE_LIMIT_PER_MIN", 20),
		IPRateLimitPerSecond: getEnvAsFloat("IP_RATE_LIMIT_PER_SECOND", 10),
		IPRateLimitBurst:     getEnvAsInt("IP_RATE_LIMIT_BURST", 30),

		DefaultDailyCapacity: getEnvAsInt("DEFAULT_DAILY_CAPACITY", 8),

		JWTSecret:   getEnv("JWT_SECRET", ""),
		JWTTokenTTL: getEnvAsDuration("JWT_TOKEN_TTL", 24*time.Hour),

		BootstrapAdminEmail:    getEnv("BOOTSTRAP_ADMIN_EMAIL", ""),
		BootstrapAdminPassword: getEnv("BOOTSTRAP_ADMIN_PASSWORD", ""),

		EmailProvider:       strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", ""))),
		SendGridAPIKey:      getEnv("SENDGRID_API_KEY", ""),
		EmailFromAddress:    getEnv("EMAIL_FROM_ADDRESS", ""),
		EmailFromName:       getEnv("EMAIL_FROM_NAME", "CareConnect"),
		AdminNotifyEmail:    getEnv("ADMIN_NOTIFY_EMAIL", ""),
		EmailSandbox:        getEnvAsBool("EMAIL_SANDBOX", false),
		SESConfigurationSet: getEnv("SES_CONFIGURATION_SET", ""),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		CORSAllowedHeaders: getEnvAsList("CORS_ALLOWED_HEADERS"),
		CORSAllowedMethods: getEnvAsList("CORS_ALLOWED_METHODS"),
	}
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
