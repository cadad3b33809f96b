// Package config загружает настройки приложения из переменных окружения.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	StorageMemory   = "in-memory"
	StoragePostgres = "postgres"
)

// Config - настройки сервера
type Config struct {
	Addr            string        `env:"BLOGICUM_ADDR" envDefault:":8080"`
	StorageType     string        `env:"STORAGE_TYPE" envDefault:"in-memory"`
	DatabaseURL     string        `env:"DATABASE_URL"`
	MigrationsDir   string        `env:"MIGRATIONS_DIR" envDefault:"migrations"`
	MediaDir        string        `env:"MEDIA_DIR" envDefault:"media"`
	PageSize        int           `env:"PAGE_SIZE" envDefault:"10"`
	IndexSize       int           `env:"INDEX_SIZE" envDefault:"5"`
	SessionLifetime time.Duration `env:"SESSION_LIFETIME" envDefault:"24h"`
	CookieSecure    bool          `env:"COOKIE_SECURE" envDefault:"false"`
	AllowedOrigins  []string      `env:"ALLOWED_ORIGINS" envSeparator:","` // пусто - только свой origin
	StaffUsernames  []string      `env:"STAFF_USERNAMES" envSeparator:","`
}

// Load читает Config из окружения и проверяет его
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.StorageType {
	case StorageMemory:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is not set")
		}
	default:
		return fmt.Errorf("unknown STORAGE_TYPE %q", c.StorageType)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("PAGE_SIZE must be positive, got %d", c.PageSize)
	}
	if c.IndexSize <= 0 {
		return fmt.Errorf("INDEX_SIZE must be positive, got %d", c.IndexSize)
	}
	// cookie сессии уходят с запросами, поэтому любой origin недопустим
	for _, origin := range c.AllowedOrigins {
		if origin == "*" {
			return errors.New("ALLOWED_ORIGINS must list explicit origins, \"*\" is not allowed")
		}
	}
	return nil
}

// IsStaff сообщает, получает ли пользователь права персонала при регистрации
func (c Config) IsStaff(username string) bool {
	for _, name := range c.StaffUsernames {
		if name == username {
			return true
		}
	}
	return false
}
