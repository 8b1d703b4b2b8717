// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultAuthSecret = "your-secret-key-change-in-production"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Env            string `mapstructure:"APP_ENV"`
	Port           string `mapstructure:"PORT"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`

	DBHost                        string `mapstructure:"DB_HOST"`
	DBPort                        string `mapstructure:"DB_PORT"`
	DBUser                        string `mapstructure:"DB_USER"`
	DBPassword                    string `mapstructure:"DB_PASSWORD"`
	DBName                        string `mapstructure:"DB_NAME"`
	DBSSLMode                     string `mapstructure:"DB_SSLMODE"`
	DBReadHost                    string `mapstructure:"DB_READ_HOST"`
	DBSchemaMode                  string `mapstructure:"DB_SCHEMA_MODE"`
	DBAutoMigrateAllowDestructive bool   `mapstructure:"DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE"`
	DBMaxOpenConns                int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns                int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetimeMinutes      int    `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`

	RedisURL string `mapstructure:"REDIS_URL"`

	// AuthJWTSecret verifies HS256 tokens minted by the identity provider.
	AuthJWTSecret string `mapstructure:"AUTH_JWT_SECRET"`
	AuthIssuer    string `mapstructure:"AUTH_ISSUER"`
	AuthAudience  string `mapstructure:"AUTH_AUDIENCE"`
	DevAuthBypass bool   `mapstructure:"DEV_AUTH_BYPASS"`
	DevSeedAuthID string `mapstructure:"DEV_SEED_AUTH_ID"`

	FeatureFlags string `mapstructure:"FEATURE_FLAGS"`

	AvatarStorage     string `mapstructure:"AVATAR_STORAGE"`
	AvatarDir         string `mapstructure:"AVATAR_DIR"`
	AvatarGCSBucket   string `mapstructure:"AVATAR_GCS_BUCKET"`
	AvatarGCSCreds    string `mapstructure:"AVATAR_GCS_CREDENTIALS"`
	AvatarFormat      string `mapstructure:"AVATAR_FORMAT"`
	AvatarMaxUploadMB int    `mapstructure:"AVATAR_MAX_UPLOAD_MB"`

	LogLevel string `mapstructure:"LOG_LEVEL"`
	LogFile  string `mapstructure:"LOG_FILE"`

	TracingEnabled     bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter    string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint       string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSampleRatio float64 `mapstructure:"TRACING_SAMPLE_RATIO"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base config file is optional.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("PORT", "8375")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173,http://127.0.0.1:3000")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "unboundedfigures")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_READ_HOST", "")
	viper.SetDefault("DB_SCHEMA_MODE", "hybrid")
	viper.SetDefault("DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE", false)
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 5)
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("AUTH_JWT_SECRET", defaultAuthSecret)
	viper.SetDefault("AUTH_ISSUER", "")
	viper.SetDefault("AUTH_AUDIENCE", "")
	viper.SetDefault("DEV_AUTH_BYPASS", false)
	viper.SetDefault("DEV_SEED_AUTH_ID", "")
	viper.SetDefault("FEATURE_FLAGS", "personalized_recs=on")
	viper.SetDefault("AVATAR_STORAGE", "local")
	viper.SetDefault("AVATAR_DIR", "./public/avatars")
	viper.SetDefault("AVATAR_FORMAT", "webp")
	viper.SetDefault("AVATAR_MAX_UPLOAD_MB", 5)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FILE", "")
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLE_RATIO", 1.0)
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.DBSSLMode = strings.ToLower(strings.TrimSpace(c.DBSSLMode))
	c.DBSchemaMode = strings.ToLower(strings.TrimSpace(c.DBSchemaMode))
	c.AvatarStorage = strings.ToLower(strings.TrimSpace(c.AvatarStorage))
	c.AvatarFormat = strings.ToLower(strings.TrimSpace(c.AvatarFormat))
}

// IsProduction reports whether the config targets a production deployment.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.AuthJWTSecret == "" {
		return errors.New("AUTH_JWT_SECRET is required")
	}
	if c.AvatarMaxUploadMB < 0 {
		return errors.New("AVATAR_MAX_UPLOAD_MB must not be negative")
	}

	switch c.AvatarStorage {
	case "", "local":
	case "gcs":
		if c.AvatarGCSBucket == "" {
			return errors.New("AVATAR_GCS_BUCKET is required when AVATAR_STORAGE=gcs")
		}
	default:
		return fmt.Errorf("unsupported AVATAR_STORAGE %q", c.AvatarStorage)
	}
	switch c.AvatarFormat {
	case "", "webp", "jpeg":
	default:
		return fmt.Errorf("unsupported AVATAR_FORMAT %q", c.AvatarFormat)
	}

	// The bypass impersonates a fixed identity and is only tolerated on a workstation.
	if c.DevAuthBypass {
		if c.Env != "development" && c.Env != "test" {
			return fmt.Errorf("DEV_AUTH_BYPASS is not allowed in %q", c.Env)
		}
		if c.DevSeedAuthID == "" {
			return errors.New("DEV_SEED_AUTH_ID is required when DEV_AUTH_BYPASS=true")
		}
	}

	if c.IsProduction() {
		if c.AuthJWTSecret == defaultAuthSecret {
			return errors.New("AUTH_JWT_SECRET must be changed from the default value in production")
		}
		if len(c.AuthJWTSecret) < 32 {
			return errors.New("AUTH_JWT_SECRET must be at least 32 characters in production")
		}
		if c.DBPassword == "password" || c.DBPassword == "" {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
			return errors.New("DB_SSLMODE must enable TLS in production")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if len(c.AuthJWTSecret) < 32 {
		log.Println("WARNING: AUTH_JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}
