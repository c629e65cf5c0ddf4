package infra

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/amirasaad/awgen/pkg/config"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	// Pure Go sqlite driver registered as "sqlite".
	_ "modernc.org/sqlite"
)

// NewDBConnection opens the sqlite settings database at path, creating its
// folder when needed.
func NewDBConnection(cnf *config.DB, path string) (*gorm.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("database path is not set")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database folder: %w", err)
		}
	}

	connection, err := gorm.Open(sqlite.New(sqlite.Config{
		DriverName: "sqlite",
		DSN:        sqliteDSN(path),
	}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logLevel(cnf)),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := connection.DB()
	if err != nil {
		return nil, err
	}
	// sqlite serialises writers.
	sqlDB.SetMaxOpenConns(1)

	return connection, nil
}

func sqliteDSN(path string) string {
	if path == ":memory:" {
		return path
	}
	return filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func logLevel(cnf *config.DB) logger.LogLevel {
	if cnf == nil {
		return logger.Silent
	}
	switch strings.ToLower(cnf.LogLevel) {
	case "info":
		return logger.Info
	case "warn":
		return logger.Warn
	case "error":
		return logger.Error
	default:
		return logger.Silent
	}
}
