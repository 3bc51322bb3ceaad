package db

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"fleet-admin-console/config"
	"fleet-admin-console/internal/model"
)

// Init opens the database, runs migrations and makes sure the bootstrap
// admin account exists.
func Init(cfg *config.DatabaseConfig, boot config.BootstrapConfig) (*gorm.DB, error) {
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}

	log.Println("Running database migrations...")
	if err := Migrate(db); err != nil {
		return nil, err
	}

	if err := BootstrapAdmin(db, boot); err != nil {
		return nil, err
	}

	log.Println("Database initialization complete.")
	return db, nil
}

// Open connects to cfg.DSN. Postgres URLs and key=value DSNs use the postgres
// driver; anything else is treated as a sqlite file or URI.
func Open(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	level := logger.Warn
	if cfg.LogSQL {
		level = logger.Info
	}

	db, err := gorm.Open(dialector(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	switch {
	case cfg.MaxOpenConns > 0:
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	case !isPostgres(cfg.DSN):
		// sqlite allows a single writer.
		sqlDB.SetMaxOpenConns(1)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	}
	return db, nil
}

func dialector(dsn string) gorm.Dialector {
	if isPostgres(dsn) {
		return postgres.Open(dsn)
	}
	return sqlite.Open(dsn)
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") ||
		strings.HasPrefix(dsn, "postgresql://") ||
		strings.Contains(dsn, "host=")
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.Machine{},
		&model.MachineStatus{},
		&model.Device{},
		&model.Permission{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}
	return nil
}

// BootstrapAdmin creates the configured admin account when it is missing. An
// empty password is replaced by a random one that is logged once.
func BootstrapAdmin(db *gorm.DB, boot config.BootstrapConfig) error {
	var existing model.User
	err := db.Where("username = ?", boot.AdminUsername).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to look up admin %q: %w", boot.AdminUsername, err)
	}

	password := boot.AdminPassword
	if password == "" {
		password = uuid.NewString()
		log.Printf("No bootstrap password configured; generated password for %q: %s", boot.AdminUsername, password)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := model.User{Username: boot.AdminUsername, PasswordHash: string(hash), Role: model.RoleAdmin}
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("failed to create admin %q: %w", boot.AdminUsername, err)
	}
	log.Printf("Bootstrapped admin account %q", boot.AdminUsername)
	return nil
}
