package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{
			name:    "Missing database URL",
			config:  Config{JWTSecret: "secret"},
			wantErr: "DATABASE_URL is required",
		},
		{
			name:    "Missing JWT secret",
			config:  Config{DatabaseURL: "postgres://localhost/ryce"},
			wantErr: "JWT_SECRET is required",
		},
		{
			name:   "Complete configuration",
			config: Config{DatabaseURL: "postgres://localhost/ryce", JWTSecret: "secret"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr != "" {
				assert.EqualError(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEnvironmentHelpers(t *testing.T) {
	assert.True(t, (&Config{GoEnv: "production"}).IsProduction())
	assert.True(t, (&Config{GoEnv: "test"}).IsTest())
	assert.True(t, (&Config{GoEnv: "development"}).IsDevelopment())
	assert.False(t, (&Config{GoEnv: "test"}).IsProduction())
}

func TestGetEnvDefaults(t *testing.T) {
	os.Unsetenv("RYCE_TEST_KEY")
	assert.Equal(t, "fallback", getEnv("RYCE_TEST_KEY", "fallback"))

	os.Setenv("RYCE_TEST_KEY", "value")
	defer os.Unsetenv("RYCE_TEST_KEY")
	assert.Equal(t, "value", getEnv("RYCE_TEST_KEY", "fallback"))

	os.Setenv("RYCE_TEST_INT", "not-a-number")
	defer os.Unsetenv("RYCE_TEST_INT")
	assert.Equal(t, 587, getEnvInt("RYCE_TEST_INT", 587), "unparseable values fall back to the default")

	os.Setenv("RYCE_TEST_INT64", "33554432")
	defer os.Unsetenv("RYCE_TEST_INT64")
	assert.Equal(t, int64(33554432), getEnvInt64("RYCE_TEST_INT64", 0))
}

func TestSetAndGetConfig(t *testing.T) {
	original := GetConfig()
	defer SetConfig(original)

	cfg := &Config{JWTSecret: "secret"}
	SetConfig(cfg)
	assert.Same(t, cfg, GetConfig())
}

func TestSetAndGetDB(t *testing.T) {
	original := GetDB()
	defer SetDB(original)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	assert.NoError(t, err)

	SetDB(db)
	assert.Same(t, db, GetDB())
}
