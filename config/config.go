package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const EnvironmentProduction = "production"

type Config struct {
	App               AppConfig
	HTTP              ServerConfig
	MySQL             MySQLConfig
	Log               LogConfig
	InternalEndpoints InternalEndpointsConfig
	PayFast           PayFastConfig
	Mail              MailConfig
	Tracing           TracingConfig
}

type AppConfig struct {
	ServiceName string
	Environment string
	BaseURL     string
}

// Sandbox reports whether the gateway sandbox must be used. Anything but an
// explicit production environment goes to the sandbox.
func (c AppConfig) Sandbox() bool {
	return !strings.EqualFold(strings.TrimSpace(c.Environment), EnvironmentProduction)
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LogConfig struct {
	Level string
}

type InternalEndpointsConfig struct {
	AuthGRPCAddr string
}

type PayFastConfig struct {
	MerchantID         string
	MerchantKey        string
	Passphrase         string
	SignatureAlgorithm string
	ItemName           string
	ValidateSourceIP   bool
	AllowedIPs         []string
}

type MailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	From         string
	StoreName    string
	SendTimeout  time.Duration
}

// Enabled reports whether confirmation emails can be sent at all.
func (c MailConfig) Enabled() bool {
	return strings.TrimSpace(c.SMTPHost) != "" && strings.TrimSpace(c.From) != ""
}

type TracingConfig struct {
	CollectorHost string
}

var defaultPayFastIPs = []string{
	"52.31.114.135",
	"52.49.113.86",
	"52.49.114.205",
	"52.211.133.67",
	"52.211.146.217",
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	merchantID := strings.TrimSpace(os.Getenv("PAYFAST_MERCHANT_ID"))
	if merchantID == "" {
		return nil, errors.New("PAYFAST_MERCHANT_ID environment variable is required")
	}
	merchantKey := strings.TrimSpace(os.Getenv("PAYFAST_MERCHANT_KEY"))
	if merchantKey == "" {
		return nil, errors.New("PAYFAST_MERCHANT_KEY environment variable is required")
	}
	passphrase := os.Getenv("PAYFAST_PASSPHRASE")
	if strings.TrimSpace(passphrase) == "" {
		return nil, errors.New("PAYFAST_PASSPHRASE environment variable is required")
	}
	algorithm := strings.ToLower(strings.TrimSpace(os.Getenv("PAYFAST_SIGNATURE_ALGORITHM")))
	if algorithm == "" {
		return nil, errors.New("PAYFAST_SIGNATURE_ALGORITHM environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "storefront-payments-service"),
			Environment: getEnv("APP_ENV", "development"),
			BaseURL:     getEnv("APP_BASE_URL", "http://localhost:3000"),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		InternalEndpoints: InternalEndpointsConfig{
			AuthGRPCAddr: getEnv("AUTH_SERVICE_GRPC_ADDR", "localhost:9090"),
		},
		PayFast: PayFastConfig{
			MerchantID:         merchantID,
			MerchantKey:        merchantKey,
			Passphrase:         passphrase,
			SignatureAlgorithm: algorithm,
			ItemName:           getEnv("PAYFAST_ITEM_NAME", "Storefront Order"),
			ValidateSourceIP:   getBoolEnv("PAYFAST_VALIDATE_SOURCE_IP", false),
			AllowedIPs:         getListEnv("PAYFAST_ALLOWED_IPS", defaultPayFastIPs),
		},
		Mail: MailConfig{
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getIntEnv("SMTP_PORT", 587),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			From:         getEnv("MAIL_FROM", ""),
			StoreName:    getEnv("MAIL_STORE_NAME", "Storefront"),
			SendTimeout:  getSecondsEnv("EMAIL_SEND_TIMEOUT_SECONDS", 3*time.Second),
		},
		Tracing: TracingConfig{
			CollectorHost: getEnv("OTEL_COLLECTOR_HOST", ""),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return append([]string(nil), defaultValue...)
	}
	items := make([]string, 0)
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

type SignatureConfig struct {
	Passphrase string
	Algorithm  string
}

// LoadSignature reads only what signature tooling needs, so it works without
// database or merchant settings.
func LoadSignature() (*SignatureConfig, error) {
	_ = godotenv.Load()

	algorithm := strings.ToLower(strings.TrimSpace(os.Getenv("PAYFAST_SIGNATURE_ALGORITHM")))
	if algorithm == "" {
		return nil, errors.New("PAYFAST_SIGNATURE_ALGORITHM environment variable is required")
	}

	return &SignatureConfig{
		Passphrase: os.Getenv("PAYFAST_PASSPHRASE"),
		Algorithm:  algorithm,
	}, nil
}
