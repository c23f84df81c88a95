package database

import (
	"fmt"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/wayfarerlabs/wayfarer/internal/travel"
)

const (
	maxOpenConnections = 30 // base pool of 10 plus 20 overflow
	maxIdleConnections = 10
	connMaxLifetime    = time.Hour

	connectAttempts = 3
	connectBackoff  = time.Second
)

// Open establishes a database connection, verifies it with a ping, and
// performs schema migrations. Postgres DSNs select the Postgres driver;
// anything else is treated as a SQLite path.
func Open(dsn string, logger *zap.Logger) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database dsn is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := openWithRetry(dsn, logger)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(maxOpenConnections)
	sqlDB.SetMaxIdleConns(maxIdleConnections)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)

	if err := db.AutoMigrate(&travel.Destination{}, &travel.Note{}); err != nil {
		return nil, fmt.Errorf("schema migration failed: %w", err)
	}

	logger.Info("database initialized", zap.String("driver", driverName(dsn)))

	return db, nil
}

func openWithRetry(dsn string, logger *zap.Logger) (*gorm.DB, error) {
	var lastErr error
	backoff := connectBackoff

	for attempt := 1; attempt <= connectAttempts; attempt++ {
		db, err := gorm.Open(dialector(dsn), &gorm.Config{})
		if err == nil {
			sqlDB, dbErr := db.DB()
			if dbErr == nil {
				if pingErr := sqlDB.Ping(); pingErr == nil {
					return db, nil
				} else {
					err = pingErr
				}
			} else {
				err = dbErr
			}
		}

		lastErr = err
		logger.Warn("database connection attempt failed",
			zap.Int("attempt", attempt),
			zap.Error(err))
		if attempt < connectAttempts {
			time.Sleep(backoff)
			backoff *= 2
		}
	}

	return nil, fmt.Errorf("database unreachable after %d attempts: %w", connectAttempts, lastErr)
}

func dialector(dsn string) gorm.Dialector {
	if isPostgresDSN(dsn) {
		return postgres.Open(dsn)
	}
	return sqlite.Open(dsn)
}

func driverName(dsn string) string {
	if isPostgresDSN(dsn) {
		return "postgres"
	}
	return "sqlite"
}

func isPostgresDSN(dsn string) bool {
	lower := strings.ToLower(dsn)
	return strings.HasPrefix(lower, "postgres://") ||
		strings.HasPrefix(lower, "postgresql://") ||
		strings.Contains(lower, "host=")
}

// PoolStatus describes the live state of the connection pool for /status.
type PoolStatus struct {
	MaxOpen int `json:"max_open"`
	Open    int `json:"open"`
	InUse   int `json:"in_use"`
	Idle    int `json:"idle"`
}

// Pool reports the current connection pool counters.
func Pool(db *gorm.DB) (PoolStatus, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return PoolStatus{}, err
	}
	stats := sqlDB.Stats()
	return PoolStatus{
		MaxOpen: stats.MaxOpenConnections,
		Open:    stats.OpenConnections,
		InUse:   stats.InUse,
		Idle:    stats.Idle,
	}, nil
}
