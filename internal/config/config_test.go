package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		Env:           "development",
		Port:          "8375",
		AuthJWTSecret: "secure-secret-at-least-32-chars-long",
		DBPassword:    "secure-password",
		DBSSLMode:     "require",
		AvatarStorage: "local",
	}
}

func TestConfig_ValidateSSLMode(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		sslMode     string
		expectError bool
	}{
		{"Production with empty SSL mode", "production", "", true},
		{"Production with disable SSL mode", "production", "disable", true},
		{"Production with require SSL mode", "production", "require", false},
		{"Prod with verify-full SSL mode", "prod", "verify-full", false},
		{"Development with disable SSL mode", "development", "disable", false},
		{"Test with empty SSL mode", "test", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			c.Env = tt.env
			c.DBSSLMode = tt.sslMode

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateDevAuthBypass(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		seedAuthID  string
		expectError bool
	}{
		{"development with seed identity", "development", "seed-sub", false},
		{"test with seed identity", "test", "seed-sub", false},
		{"development without seed identity", "development", "", true},
		{"staging is rejected", "staging", "seed-sub", true},
		{"production is rejected", "production", "seed-sub", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			c.Env = tt.env
			c.DevAuthBypass = true
			c.DevSeedAuthID = tt.seedAuthID

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateProductionSecret(t *testing.T) {
	c := validConfig()
	c.Env = "production"
	c.AuthJWTSecret = defaultAuthSecret
	assert.Error(t, c.Validate())

	c.AuthJWTSecret = "short"
	assert.Error(t, c.Validate())

	c.AuthJWTSecret = "secure-secret-at-least-32-chars-long"
	c.DBPassword = "password"
	assert.Error(t, c.Validate())
}

func TestConfig_ValidateAvatarStorage(t *testing.T) {
	c := validConfig()
	c.AvatarStorage = "gcs"
	assert.Error(t, c.Validate(), "gcs without bucket")

	c.AvatarGCSBucket = "figures-avatars"
	assert.NoError(t, c.Validate())

	c.AvatarStorage = "s3"
	assert.Error(t, c.Validate())
}

func TestConfig_ValidateAvatarFormat(t *testing.T) {
	c := validConfig()
	for _, format := range []string{"", "webp", "jpeg"} {
		c.AvatarFormat = format
		assert.NoError(t, c.Validate(), format)
	}
	c.AvatarFormat = "png"
	assert.Error(t, c.Validate())
}

func TestLoadConfig_Normalization(t *testing.T) {
	defer os.Unsetenv("APP_ENV")
	defer os.Unsetenv("DB_SSLMODE")
	defer os.Unsetenv("AVATAR_STORAGE")
	defer viper.Reset()

	os.Setenv("APP_ENV", "development")
	os.Setenv("DB_SSLMODE", "  DISABLE  ")
	os.Setenv("AVATAR_STORAGE", " Local ")

	c, err := LoadConfig()
	assert.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, "local", c.AvatarStorage)
	assert.Equal(t, "personalized_recs=on", c.FeatureFlags)
	assert.Equal(t, 5, c.AvatarMaxUploadMB)
}
