package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Postgres owns the gorm handle shared by the meal-operations repositories.
// Claim commits and delivery saves run row-locking transactions on it, so the
// pool is sized from process settings instead of the driver defaults.
type Postgres struct {
	DB *gorm.DB
}

// Settings tunes the underlying sql.DB pool.
type Settings struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	PingTimeout     time.Duration
}

func (s Settings) withDefaults() Settings {
	if s.MaxOpenConns <= 0 {
		s.MaxOpenConns = 10
	}
	if s.MaxIdleConns <= 0 {
		s.MaxIdleConns = 5
	}
	if s.MaxIdleConns > s.MaxOpenConns {
		s.MaxIdleConns = s.MaxOpenConns
	}
	if s.ConnMaxLifetime <= 0 {
		s.ConnMaxLifetime = 30 * time.Minute
	}
	if s.PingTimeout <= 0 {
		s.PingTimeout = 5 * time.Second
	}
	return s
}

func Connect(settings Settings) (*Postgres, error) {
	settings = settings.withDefaults()
	if strings.TrimSpace(settings.DSN) == "" {
		return nil, errors.New("postgres dsn is required")
	}

	gormDB, err := gorm.Open(postgres.Open(settings.DSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open gorm postgres: %w", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("resolve postgres sql db handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(settings.MaxOpenConns)
	sqlDB.SetMaxIdleConns(settings.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(settings.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), settings.PingTimeout)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{DB: gormDB}, nil
}

func (p *Postgres) Close() error {
	if p == nil || p.DB == nil {
		return nil
	}
	sqlDB, err := p.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
