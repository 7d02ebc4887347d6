// Package config loads runtime settings from the process environment.
package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// Delete policies accepted by DELETE_POLICY.
const (
	DeleteOpen  = "open"  // anyone may delete
	DeleteUser  = "user"  // any logged-in user
	DeleteAdmin = "admin" // only the admin account
)

const devSecretKey = "dev-secret-change-me"

// Config holds runtime settings for the cafe server.
type Config struct {
	AppPort        string
	SecretKey      string
	JWTSecret      string
	DatabaseDriver string
	DatabaseURL    string
	RabbitMQURL    string
	DeletePolicy   string
	AdminEmail     string
	BcryptCost     int
	SessionTTL     time.Duration
	CSRFEnabled    bool
	CookieSecure   bool
}

// SetDefaults registers the default value of every setting on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("SECRET_KEY", devSecretKey)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DATABASE_URL", "cafes.db")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("DELETE_POLICY", DeleteAdmin)
	v.SetDefault("ADMIN_EMAIL", "")
	v.SetDefault("BCRYPT_COST", bcrypt.DefaultCost)
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("CSRF_ENABLED", true)
	v.SetDefault("COOKIE_SECURE", false)
}

// Load reads the configuration from environment variables.
func Load() (Config, error) {
	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()
	return FromViper(v)
}

// FromViper builds and validates a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		AppPort:        v.GetString("APP_PORT"),
		SecretKey:      v.GetString("SECRET_KEY"),
		JWTSecret:      v.GetString("JWT_SECRET"),
		DatabaseDriver: strings.ToLower(v.GetString("DB_DRIVER")),
		DatabaseURL:    v.GetString("DATABASE_URL"),
		RabbitMQURL:    v.GetString("RABBITMQ_URL"),
		DeletePolicy:   strings.ToLower(v.GetString("DELETE_POLICY")),
		AdminEmail:     strings.TrimSpace(v.GetString("ADMIN_EMAIL")),
		BcryptCost:     v.GetInt("BCRYPT_COST"),
		SessionTTL:     v.GetDuration("SESSION_TTL"),
		CSRFEnabled:    v.GetBool("CSRF_ENABLED"),
		CookieSecure:   v.GetBool("COOKIE_SECURE"),
	}

	if cfg.SecretKey == "" {
		return Config{}, fmt.Errorf("SECRET_KEY must not be empty")
	}
	if cfg.SecretKey == devSecretKey {
		log.Println("Warning: SECRET_KEY is not set, using an insecure development key")
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = cfg.SecretKey
	}

	switch cfg.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return Config{}, fmt.Errorf("unsupported DB_DRIVER %q (want sqlite or postgres)", cfg.DatabaseDriver)
	}
	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL must not be empty")
	}

	switch cfg.DeletePolicy {
	case DeleteOpen, DeleteUser, DeleteAdmin:
	default:
		return Config{}, fmt.Errorf("unsupported DELETE_POLICY %q (want open, user or admin)", cfg.DeletePolicy)
	}

	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		return Config{}, fmt.Errorf("BCRYPT_COST %d out of range %d..%d", cfg.BcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	if cfg.SessionTTL <= 0 {
		return Config{}, fmt.Errorf("SESSION_TTL must be positive")
	}
	return cfg, nil
}
