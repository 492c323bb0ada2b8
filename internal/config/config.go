package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// Config holds the application configuration
type Config struct {
	DatabaseURL string
	Port        string
	OTPSalt     string
	DevMode     bool

	// OTPStore selects the OTP ledger backend: "memory" or "redis".
	OTPStore string
	RedisURL string

	ModelPath string

	SMTP     SMTPConfig
	SMS      SMSConfig
	Geocoder GeocoderConfig
	Kafka    KafkaConfig

	AllowedOrigins    []string
	FanoutConcurrency int
	Environment       string
	LogLevel          string
	LogFormat         string
}

// SMTPConfig configures delivery of OTP emails
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMSConfig configures alert delivery through Amazon SNS
type SMSConfig struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	SenderID        string
}

// GeocoderConfig configures reverse geocoding
type GeocoderConfig struct {
	BaseURL   string
	UserAgent string
	RPS       float64
}

// KafkaConfig configures emergency event publishing. Empty Brokers disables it.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		OTPStore:    strings.ToLower(getEnv("OTP_STORE", "memory")),
		RedisURL:    os.Getenv("REDIS_URL"),
		ModelPath:   getEnv("MODEL_PATH", "models/emergency_classifier.json"),
		Environment: getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "console"),
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "localhost"),
			Username: os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASS"),
			From:     getEnv("SMTP_FROM", "noreply@safecircle.local"),
		},
		SMS: SMSConfig{
			Region:          getEnv("SNS_REGION", getEnv("AWS_REGION", "us-east-1")),
			Endpoint:        os.Getenv("AWS_ENDPOINT_URL"),
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			SenderID:        os.Getenv("SMS_SENDER_ID"),
		},
		Geocoder: GeocoderConfig{
			BaseURL:   strings.TrimRight(getEnv("GEOCODER_URL", "https://nominatim.openstreetmap.org"), "/"),
			UserAgent: getEnv("GEOCODER_USER_AGENT", "SafeCircle/1.0"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   getEnv("KAFKA_TOPIC", "emergency-events"),
		},
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),
	}

	// Load DATABASE_URL (required)
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	// Load OTP_SALT (required)
	cfg.OTPSalt = os.Getenv("OTP_SALT")
	if cfg.OTPSalt == "" {
		return nil, fmt.Errorf("OTP_SALT environment variable is required")
	}

	cfg.DevMode = os.Getenv("OTP_DEV_MODE") == "true"

	switch cfg.OTPStore {
	case "memory":
	case "redis":
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL environment variable is required when OTP_STORE=redis")
		}
	default:
		return nil, fmt.Errorf("OTP_STORE must be memory or redis, got %q", cfg.OTPStore)
	}

	var err error
	if cfg.SMTP.Port, err = getEnvInt("SMTP_PORT", 1025); err != nil {
		return nil, err
	}
	if cfg.FanoutConcurrency, err = getEnvInt("FANOUT_CONCURRENCY", 3); err != nil {
		return nil, err
	}
	if cfg.FanoutConcurrency < 1 {
		return nil, fmt.Errorf("FANOUT_CONCURRENCY must be at least 1")
	}

	rps := getEnv("GEOCODER_RPS", "1")
	cfg.Geocoder.RPS, err = strconv.ParseFloat(rps, 64)
	if err != nil || cfg.Geocoder.RPS <= 0 {
		return nil, fmt.Errorf("GEOCODER_RPS must be a positive number, got %q", rps)
	}

	return cfg, nil
}

// IsProduction reports whether APP_ENV is production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// RedactedDatabaseURL returns DATABASE_URL with the password masked, for logging.
func (c *Config) RedactedDatabaseURL() string {
	u, err := url.Parse(c.DatabaseURL)
	if err != nil {
		return "(invalid DATABASE_URL)"
	}
	if u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "****")
		}
	}
	return u.String()
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
