package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"rajhholding/internal/config"
	"rajhholding/internal/domain"
	"rajhholding/internal/metrics"
	apperrors "rajhholding/pkg/errors"
)

const (
	maxOpenConns    = 25
	maxIdleConns    = 5
	connMaxLifetime = 5 * time.Minute
	connMaxIdleTime = 10 * time.Minute
	pingTimeout     = 5 * time.Second
)

// Open connects to the configured store, verifies the connection and
// migrates the schema. It fails with a configuration error when no database
// URL is set.
func Open(cfg *config.DatabaseConfig, logger *log.Logger) (*gorm.DB, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, apperrors.Configuration("DATABASE_URL must be set")
	}
	logger = logger.WithPrefix("db")

	var dialector gorm.Dialector
	if cfg.IsPostgres() {
		logger.Info("connecting to PostgreSQL")
		dialector = postgres.Open(cfg.URL)
	} else {
		logger.Info("connecting to SQLite", "path", cfg.GetSQLitePath())
		sqlDB, err := sql.Open("sqlite", cfg.GetSQLitePath())
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite database: %w", err)
		}
		// A single connection serialises writers; SQLite would otherwise
		// answer concurrent transactions with SQLITE_BUSY.
		sqlDB.SetMaxOpenConns(1)
		dialector = sqlite.Dialector{
			DriverName: "sqlite",
			DSN:        cfg.GetSQLitePath(),
			Conn:       sqlDB,
		}
	}

	// Never log SQL: statements carry contact form contents.
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.IsPostgres() {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
		}
		sqlDB.SetMaxOpenConns(maxOpenConns)
		sqlDB.SetMaxIdleConns(maxIdleConns)
		sqlDB.SetConnMaxLifetime(connMaxLifetime)
		sqlDB.SetConnMaxIdleTime(connMaxIdleTime)
		logger.Debug("connection pool configured", "max_open", maxOpenConns, "max_idle", maxIdleConns)
	}

	if err := Ping(context.Background(), db); err != nil {
		return nil, fmt.Errorf("database connection test failed: %w", err)
	}

	if cfg.AutoMigrate {
		logger.Info("running database migrations")
		if err := db.AutoMigrate(&domain.TeamMember{}, &domain.ContactSubmission{}); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	if cfg.InstallPolicies && isPostgres(db) {
		logger.Info("installing row-level security policies")
		if err := InstallPolicies(db); err != nil {
			return nil, fmt.Errorf("failed to install policies: %w", err)
		}
	}

	logger.Info("database ready", "dialect", db.Dialector.Name())
	return db, nil
}

// Ping checks that the store answers within pingTimeout
func Ping(ctx context.Context, db *gorm.DB) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

// RecordStats publishes connection pool gauges
func RecordStats(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	stats := sqlDB.Stats()
	metrics.UpdateDBConnections(stats.InUse, stats.Idle)
}

// Close releases the underlying connection pool
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func isPostgres(db *gorm.DB) bool {
	return db.Dialector.Name() == "postgres"
}
