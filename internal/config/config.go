package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port            string   `mapstructure:"PORT"`
	Env             string   `mapstructure:"ENV"`
	DatabaseURL     string   `mapstructure:"DATABASE_URL"`
	DBMaxConns      int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns      int32    `mapstructure:"DB_MIN_CONNS"`
	JWTSecret       string   `mapstructure:"JWT_SECRET"`
	TokenTTLMinutes int      `mapstructure:"TOKEN_TTL_MINUTES"`
	CORSOrigins     []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS    float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst  int      `mapstructure:"RATE_LIMIT_BURST"`
	SMTPAddr        string   `mapstructure:"SMTP_ADDR"`
	SMTPFrom        string   `mapstructure:"SMTP_FROM"`
	SMTPUsername    string   `mapstructure:"SMTP_USERNAME"`
	SMTPPassword    string   `mapstructure:"SMTP_PASSWORD"`
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
	v.SetDefault("TOKEN_TTL_MINUTES", 60)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("TOKEN_TTL_MINUTES")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("SMTP_ADDR")
	v.BindEnv("SMTP_FROM")
	v.BindEnv("SMTP_USERNAME")
	v.BindEnv("SMTP_PASSWORD")

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

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. Outside development a
// JWT secret must be configured so tokens cannot be forged, and production
// needs an SMTP relay so password-reset mail can actually be delivered.
func (c *Config) Validate() error {
	if !c.IsDev() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when ENV=%q", c.Env)
	}
	if c.TokenTTLMinutes <= 0 {
		return fmt.Errorf("TOKEN_TTL_MINUTES must be positive, got %d", c.TokenTTLMinutes)
	}
	if c.IsProduction() && c.SMTPAddr == "" {
		return fmt.Errorf("SMTP_ADDR is required in production")
	}
	if c.SMTPAddr != "" && c.SMTPFrom == "" {
		return fmt.Errorf("SMTP_FROM is required when SMTP_ADDR is set")
	}
	return nil
}
