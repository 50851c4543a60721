package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	pkgconfig "github.com/opsmind/auth/pkg/config"
	"github.com/opsmind/auth/pkg/db"
)

const (
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"

	defaultJWTSecret     = "supersecret"
	defaultAdminPassword = "Admin@123456"
)

type Config struct {
	AppEnv     string `env:"APP_ENV" envDefault:"development"`
	ServerPort int    `env:"SERVER_PORT" envDefault:"3000"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`

	JWTSecret    string        `env:"JWT_SECRET" envDefault:"supersecret"`
	JWTExpiresIn time.Duration `env:"JWT_EXPIRES_IN" envDefault:"24h"`

	OTPLength          int           `env:"OTP_LENGTH" envDefault:"6"`
	OTPExpiryMinutes   int           `env:"OTP_EXPIRY_MINUTES" envDefault:"5"`
	OTPCleanupInterval time.Duration `env:"OTP_CLEANUP_INTERVAL" envDefault:"1h"`

	BcryptCost     int    `env:"BCRYPT_COST" envDefault:"12"`
	AllowedDomains string `env:"ALLOWED_DOMAINS" envDefault:"miuegypt.edu.eg"`

	MailDriver string `env:"MAIL_DRIVER" envDefault:"smtp"`
	SMTPHost   string `env:"SMTP_HOST" envDefault:"localhost"`
	SMTPPort   int    `env:"SMTP_PORT" envDefault:"1025"`
	SMTPUser   string `env:"SMTP_USER"`
	SMTPPass   string `env:"SMTP_PASS"`
	SMTPFrom   string `env:"SMTP_FROM" envDefault:"noreply@opsmind.com"`

	DBDriver    string `env:"DB_DRIVER" envDefault:"postgres"`
	DatabaseURL string `env:"DATABASE_URL"`
	DBHost      string `env:"DB_HOST" envDefault:"localhost"`
	DBPort      int    `env:"DB_PORT" envDefault:"5432"`
	DBUser      string `env:"DB_USER" envDefault:"postgres"`
	DBPassword  string `env:"DB_PASSWORD"`
	DBName      string `env:"DB_NAME" envDefault:"opsmind_auth"`
	DBSSLMode   string `env:"DB_SSLMODE" envDefault:"disable"`

	RedisURL string `env:"REDIS_URL"`

	KafkaBrokers string `env:"KAFKA_BROKERS"`
	KafkaTopic   string `env:"KAFKA_TOPIC" envDefault:"user_events"`

	ESURL      string `env:"ES_URL"`
	ESUser     string `env:"ES_USER"`
	ESPassword string `env:"ES_PASSWORD"`
	ESIndex    string `env:"ES_INDEX" envDefault:"accounts"`

	CORSOrigin string `env:"CORS_ORIGIN" envDefault:"*"`

	SeedAdminEmail    string `env:"SEED_ADMIN_EMAIL" envDefault:"admin@opsmind.com"`
	SeedAdminPassword string `env:"SEED_ADMIN_PASSWORD" envDefault:"Admin@123456"`
}

// Load parses the environment and validates the result. A nil map reads the
// process environment.
func Load(environment map[string]string) (*Config, error) {
	cfg, err := pkgconfig.Parse[Config](environment)
	if err != nil {
		return nil, err
	}
	cfg.AppEnv = strings.ToLower(strings.TrimSpace(cfg.AppEnv))
	cfg.MailDriver = strings.ToLower(strings.TrimSpace(cfg.MailDriver))
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	switch c.AppEnv {
	case EnvDevelopment, EnvTest, EnvProduction:
	default:
		errs = append(errs, fmt.Errorf("APP_ENV must be development, test or production, got %q", c.AppEnv))
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		errs = append(errs, fmt.Errorf("SERVER_PORT out of range: %d", c.ServerPort))
	}
	if c.OTPLength < 6 || c.OTPLength > 10 {
		errs = append(errs, fmt.Errorf("OTP_LENGTH must be between 6 and 10, got %d", c.OTPLength))
	}
	if c.OTPExpiryMinutes < 1 {
		errs = append(errs, fmt.Errorf("OTP_EXPIRY_MINUTES must be at least 1, got %d", c.OTPExpiryMinutes))
	}
	if c.OTPCleanupInterval < 0 {
		errs = append(errs, errors.New("OTP_CLEANUP_INTERVAL must not be negative"))
	}
	if c.JWTExpiresIn <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRES_IN must be positive"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.BcryptCost < 12 || c.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between 12 and 31, got %d", c.BcryptCost))
	}
	if len(c.Domains()) == 0 {
		errs = append(errs, errors.New("ALLOWED_DOMAINS must list at least one domain"))
	}
	switch c.MailDriver {
	case "smtp", "log":
	default:
		errs = append(errs, fmt.Errorf("MAIL_DRIVER must be smtp or log, got %q", c.MailDriver))
	}
	switch c.DBDriver {
	case db.DriverPostgres, db.DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.DBDriver))
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			errs = append(errs, errors.New("JWT_SECRET must be set in production"))
		}
		if c.MailDriver == "smtp" && (c.SMTPUser == "" || c.SMTPPass == "") {
			errs = append(errs, errors.New("SMTP_USER and SMTP_PASS must be set in production"))
		}
		if c.SeedAdminPassword == defaultAdminPassword {
			errs = append(errs, errors.New("SEED_ADMIN_PASSWORD must be set in production"))
		}
	}

	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool  { return c.AppEnv == EnvProduction }
func (c *Config) IsDevelopment() bool { return c.AppEnv == EnvDevelopment }

func (c *Config) OTPWindow() time.Duration {
	return time.Duration(c.OTPExpiryMinutes) * time.Minute
}

func (c *Config) Domains() []string {
	return pkgconfig.CSV(c.AllowedDomains)
}

func (c *Config) Brokers() []string {
	return pkgconfig.CSV(c.KafkaBrokers)
}

func (c *Config) CORSOrigins() []string {
	return pkgconfig.CSV(c.CORSOrigin)
}

// DSN returns DATABASE_URL, or a postgres URL assembled from the DB_* parts.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.DBSSLMode),
	}
	return u.String()
}
