package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port               string        `mapstructure:"PORT"`
	Env                string        `mapstructure:"ENV"`
	DatabaseURL        string        `mapstructure:"DATABASE_URL"`
	DBMaxConns         int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns         int32         `mapstructure:"DB_MIN_CONNS"`
	JWTSecret          string        `mapstructure:"JWT_SECRET"`
	JWTExpiresIn       time.Duration `mapstructure:"JWT_EXPIRES_IN"`
	CORSOrigins        []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS       float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst     int           `mapstructure:"RATE_LIMIT_BURST"`
	BodyLimit          string        `mapstructure:"BODY_LIMIT"`
	Timezone           string        `mapstructure:"TIMEZONE"`
	OrderSweepInterval time.Duration `mapstructure:"ORDER_SWEEP_INTERVAL"`
	AMQPURL            string        `mapstructure:"AMQP_URL"`
	AMQPExchange       string        `mapstructure:"AMQP_EXCHANGE"`
	MailProvider       string        `mapstructure:"MAIL_PROVIDER"`
	MailFrom           string        `mapstructure:"MAIL_FROM"`
	AWSRegion          string        `mapstructure:"AWS_REGION"`
	PublicURL          string        `mapstructure:"PUBLIC_URL"`
	ProjectName        string        `mapstructure:"PROJECT_NAME"`
	TLSEnabled         bool          `mapstructure:"TLS_ENABLED"`
	TLSCertFile        string        `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile         string        `mapstructure:"TLS_KEY_FILE"`
}

var keys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"JWT_SECRET", "JWT_EXPIRES_IN", "CORS_ORIGINS", "RATE_LIMIT_RPS",
	"RATE_LIMIT_BURST", "BODY_LIMIT", "TIMEZONE", "ORDER_SWEEP_INTERVAL",
	"AMQP_URL", "AMQP_EXCHANGE", "MAIL_PROVIDER", "MAIL_FROM", "AWS_REGION",
	"PUBLIC_URL", "PROJECT_NAME", "TLS_ENABLED", "TLS_CERT_FILE", "TLS_KEY_FILE",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("JWT_EXPIRES_IN", "2160h")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	// 200 requests per hour per client, all spendable at once.
	v.SetDefault("RATE_LIMIT_RPS", 200.0/3600)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("BODY_LIMIT", "10K")
	v.SetDefault("TIMEZONE", "Local")
	v.SetDefault("ORDER_SWEEP_INTERVAL", "10m")
	v.SetDefault("AMQP_EXCHANGE", "dietary.events")
	v.SetDefault("MAIL_PROVIDER", "log")
	v.SetDefault("MAIL_FROM", "no-reply@nutritrack.local")
	v.SetDefault("PUBLIC_URL", "http://localhost:3000")
	v.SetDefault("PROJECT_NAME", "NutriTrack")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() && cfg.JWTSecret == "" {
		log.Println("WARNING: JWT_SECRET is not set; using an insecure development secret.")
		cfg.JWTSecret = "development-only-secret-do-not-use-in-prod"
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Location resolves TIMEZONE. Order days and meal times are computed in it.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Validate checks that the configuration is safe to run. Outside development
// JWT_SECRET must be at least 32 bytes, and the SES mailer needs a region.
func (c *Config) Validate() error {
	if !c.IsDev() && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes when ENV=%q", c.Env)
	}
	if c.JWTExpiresIn <= 0 {
		return fmt.Errorf("JWT_EXPIRES_IN must be positive, got %s", c.JWTExpiresIn)
	}
	if c.OrderSweepInterval <= 0 {
		return fmt.Errorf("ORDER_SWEEP_INTERVAL must be positive, got %s", c.OrderSweepInterval)
	}

	switch c.MailProvider {
	case "log":
	case "ses":
		if c.AWSRegion == "" {
			return fmt.Errorf("AWS_REGION is required when MAIL_PROVIDER is \"ses\"")
		}
	default:
		return fmt.Errorf("MAIL_PROVIDER must be \"log\" or \"ses\", got %q", c.MailProvider)
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	// TLS validation: when TLS is enabled, cert and key files must be specified.
	if c.TLSEnabled {
		if c.TLSCertFile == "" {
			return fmt.Errorf("TLS_CERT_FILE is required when TLS_ENABLED is true")
		}
		if c.TLSKeyFile == "" {
			return fmt.Errorf("TLS_KEY_FILE is required when TLS_ENABLED is true")
		}
	}

	return nil
}
