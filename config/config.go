package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	// App config
	Port        string `yaml:"port"`
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`
	CORSOrigins string `yaml:"cors_origins"`

	// Database config
	DBDriver    string `yaml:"db_driver"`
	DatabaseURL string `yaml:"database_url"`
	DBHost      string `yaml:"db_host"`
	DBPort      string `yaml:"db_port"`
	DBUser      string `yaml:"db_user"`
	DBPassword  string `yaml:"db_password"`
	DBName      string `yaml:"db_name"`
	DBSSLMode   string `yaml:"db_sslmode"`
	DBPath      string `yaml:"db_path"` // SQLite database file path

	// Auth config
	JWTSecret               string `yaml:"jwt_secret"`
	JWTExpiresIn            string `yaml:"jwt_expires_in"`
	OTPExpiryMinutes        int    `yaml:"otp_expiry_minutes"`
	ReturnGeneratedPassword bool   `yaml:"return_generated_password"`
	RateLimitRPS            int    `yaml:"rate_limit_rps"`
	RateLimitBurst          int    `yaml:"rate_limit_burst"`

	// Mail config
	MailProvider string `yaml:"mail_provider"`
	SMTPHost     string `yaml:"smtp_host"`
	SMTPPort     int    `yaml:"smtp_port"`
	SMTPUser     string `yaml:"smtp_user"`
	SMTPPass     string `yaml:"smtp_pass"`
	SMTPFromName string `yaml:"smtp_from_name"`
	ResendAPIKey string `yaml:"resend_api_key"`
	FromEmail    string `yaml:"from_email"`
	MailTimeout  string `yaml:"mail_timeout"`

	// Device command broker
	DeviceBroker  string `yaml:"device_broker"`
	NATSURL       string `yaml:"nats_url"`
	MQTTBrokerURL string `yaml:"mqtt_broker_url"`
	MQTTUsername  string `yaml:"mqtt_username"`
	MQTTPassword  string `yaml:"mqtt_password"`

	// Payment config
	RazorpayKey    string `yaml:"razorpay_key"`
	RazorpaySecret string `yaml:"razorpay_secret"`

	jwtExpiry   time.Duration
	mailTimeout time.Duration
}

var AppConfig Config

// Defaults returns the built-in configuration used before file and env overrides
func Defaults() Config {
	return Config{
		Port:             "5000",
		Environment:      "development",
		LogLevel:         "info",
		CORSOrigins:      "*",
		DBDriver:         "postgres",
		DBHost:           "localhost",
		DBPort:           "5432",
		DBUser:           "postgres",
		DBPassword:       "postgres",
		DBName:           "nimblevision",
		DBSSLMode:        "disable",
		DBPath:           "./nimblevision.db",
		JWTSecret:        "nimblevision_default_secret_key",
		JWTExpiresIn:     "7d",
		OTPExpiryMinutes: 15,
		RateLimitRPS:     5,
		RateLimitBurst:   10,
		MailProvider:     "smtp",
		SMTPPort:         587,
		SMTPFromName:     "NimbleVision",
		MailTimeout:      "10s",
		DeviceBroker:     "none",
	}
}

// InitConfig initializes the application configuration from CONFIG_FILE and the environment
func InitConfig() error {
	cfg, err := Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return err
	}
	AppConfig = cfg
	return nil
}

// Load builds a Config from defaults, an optional YAML file and environment overrides
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(&cfg)

	var err error
	if cfg.jwtExpiry, err = ParseExpiry(cfg.JWTExpiresIn); err != nil {
		return cfg, fmt.Errorf("JWT_EXPIRES_IN: %w", err)
	}
	if cfg.mailTimeout, err = time.ParseDuration(cfg.MailTimeout); err != nil {
		return cfg, fmt.Errorf("MAIL_TIMEOUT: %w", err)
	}
	if cfg.DBDriver == "sqlite3" {
		cfg.DBDriver = "sqlite"
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	// PG* variables win over DB_* when both are present
	aliases := map[string]string{
		"PGHOST":     "DB_HOST",
		"PGPORT":     "DB_PORT",
		"PGUSER":     "DB_USER",
		"PGPASSWORD": "DB_PASSWORD",
		"PGDATABASE": "DB_NAME",
	}
	for pg, db := range aliases {
		if v := os.Getenv(pg); v != "" {
			os.Setenv(db, v)
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.CORSOrigins = getEnv("CORS_ORIGINS", cfg.CORSOrigins)

	cfg.DBDriver = getEnv("DB_DRIVER", cfg.DBDriver)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.DBHost = getEnv("DB_HOST", cfg.DBHost)
	cfg.DBPort = getEnv("DB_PORT", cfg.DBPort)
	cfg.DBUser = getEnv("DB_USER", cfg.DBUser)
	cfg.DBPassword = getEnv("DB_PASSWORD", cfg.DBPassword)
	cfg.DBName = getEnv("DB_NAME", cfg.DBName)
	cfg.DBSSLMode = getEnv("DB_SSLMODE", cfg.DBSSLMode)
	cfg.DBPath = getEnv("DB_PATH", cfg.DBPath)

	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.JWTExpiresIn = getEnv("JWT_EXPIRES_IN", cfg.JWTExpiresIn)
	cfg.OTPExpiryMinutes = getEnvAsInt("OTP_EXPIRY_MINUTES", cfg.OTPExpiryMinutes)
	cfg.ReturnGeneratedPassword = getEnvAsBool("RETURN_GENERATED_PASSWORD", cfg.ReturnGeneratedPassword)
	cfg.RateLimitRPS = getEnvAsInt("RATE_LIMIT_RPS", cfg.RateLimitRPS)
	cfg.RateLimitBurst = getEnvAsInt("RATE_LIMIT_BURST", cfg.RateLimitBurst)

	cfg.MailProvider = getEnv("MAIL_PROVIDER", cfg.MailProvider)
	cfg.SMTPHost = getEnv("SMTP_HOST", cfg.SMTPHost)
	cfg.SMTPPort = getEnvAsInt("SMTP_PORT", cfg.SMTPPort)
	cfg.SMTPUser = getEnv("SMTP_USER", cfg.SMTPUser)
	cfg.SMTPPass = getEnv("SMTP_PASS", cfg.SMTPPass)
	cfg.SMTPFromName = getEnv("SMTP_FROM_NAME", cfg.SMTPFromName)
	cfg.ResendAPIKey = getEnv("RESEND_API_KEY", cfg.ResendAPIKey)
	cfg.FromEmail = getEnv("FROM_EMAIL", cfg.FromEmail)
	cfg.MailTimeout = getEnv("MAIL_TIMEOUT", cfg.MailTimeout)

	cfg.DeviceBroker = getEnv("DEVICE_BROKER", cfg.DeviceBroker)
	cfg.NATSURL = getEnv("NATS_URL", cfg.NATSURL)
	cfg.MQTTBrokerURL = getEnv("MQTT_BROKER_URL", cfg.MQTTBrokerURL)
	cfg.MQTTUsername = getEnv("MQTT_USERNAME", cfg.MQTTUsername)
	cfg.MQTTPassword = getEnv("MQTT_PASSWORD", cfg.MQTTPassword)

	cfg.RazorpayKey = getEnv("RAZORPAY_KEY", cfg.RazorpayKey)
	cfg.RazorpaySecret = getEnv("RAZORPAY_SECRET", cfg.RazorpaySecret)
}

// ParseExpiry accepts Go durations ("24h"), day counts ("7d") and bare seconds ("3600")
func ParseExpiry(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if days, ok := strings.CutSuffix(value, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid day count %q", value)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs <= 0 {
			return 0, fmt.Errorf("invalid seconds %q", value)
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("non-positive duration %q", value)
	}
	return d, nil
}

// Helper function to get environment variable with fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// Helper function to get integer environment variable with fallback
func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// GetJWTExpiration returns JWT expiration time
func GetJWTExpiration() time.Duration {
	if AppConfig.jwtExpiry <= 0 {
		return 7 * 24 * time.Hour
	}
	return AppConfig.jwtExpiry
}

// GetMailTimeout bounds a single outbound mail send
func GetMailTimeout() time.Duration {
	if AppConfig.mailTimeout <= 0 {
		return 10 * time.Second
	}
	return AppConfig.mailTimeout
}

// GetOTPExpiration returns how long a password reset OTP stays valid
func GetOTPExpiration() time.Duration {
	if AppConfig.OTPExpiryMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(AppConfig.OTPExpiryMinutes) * time.Minute
}

// AllowedOrigins splits CORS_ORIGINS into a list
func AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(AppConfig.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// IsDevelopment returns true if the application is running in development mode
func IsDevelopment() bool {
	return AppConfig.Environment == "development"
}
