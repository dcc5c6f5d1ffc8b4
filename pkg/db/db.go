package db

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config holds database connection configuration
type Config struct {
	// URL is the server URL, postgres:// or postgresql://
	URL string
	// Username and Password replace the URL's user info when Username is set
	Username string
	Password string
	// Database replaces the URL's path when set
	Database string
	// ConnectTimeout is rounded up to whole seconds
	ConnectTimeout time.Duration
}

// DSN renders cfg as a connection URL.
func DSN(cfg Config) (string, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return "", fmt.Errorf("invalid database URL: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return "", fmt.Errorf("unsupported database URL scheme %q", u.Scheme)
	}

	if cfg.Username != "" {
		u.User = url.UserPassword(cfg.Username, cfg.Password)
	}
	if cfg.Database != "" {
		u.Path = "/" + cfg.Database
		u.RawPath = ""
	}
	if cfg.ConnectTimeout > 0 {
		q := u.Query()
		seconds := int((cfg.ConnectTimeout + time.Second - 1) / time.Second)
		q.Set("connect_timeout", strconv.Itoa(seconds))
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// LogLevel is Info when DBINIT_LOG_LEVEL=debug, Silent otherwise.
func LogLevel() logger.LogLevel {
	if strings.EqualFold(os.Getenv("DBINIT_LOG_LEVEL"), "debug") {
		return logger.Info
	}
	return logger.Silent
}

// Connect establishes a database connection.
func Connect(cfg Config) (*gorm.DB, error) {
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(
		postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true, // disables implicit prepared statement usage
		}),
		&gorm.Config{
			Logger: logger.Default.LogMode(LogLevel()),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// Close releases the connection pool behind db.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
