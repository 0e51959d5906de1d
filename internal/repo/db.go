// Package repo implements the data persistence layer for the habit tracker,
// backed by GORM. This file contains database bootstrapping for SQLite (pure
// Go driver) and Postgres, query logging through zerolog, optional
// OpenTelemetry instrumentation, and schema migrations.
package repo

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-habit-backend/internal/domain"
)

// Supported values for Options.Driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Options selects the store and tunes the connection.
type Options struct {
	Driver       string // sqlite|postgres
	Path         string // SQLite file path or DSN
	URL          string // Postgres DSN
	LogQueries   bool   // log every statement at debug level
	MaxOpenConns int    // <= 0 means 10
	Tracing      bool   // install the GORM OpenTelemetry plugin
}

// gormLogWriter forwards GORM's logger output to zerolog.
type gormLogWriter struct{}

func (gormLogWriter) Printf(format string, args ...interface{}) {
	log.Debug().Str("component", "gorm").Msgf(format, args...)
}

func newGormLogger(logQueries bool) logger.Interface {
	level := logger.Warn
	if logQueries {
		level = logger.Info
	}
	return logger.New(gormLogWriter{}, logger.Config{
		SlowThreshold:             500 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}

// Open opens the configured store, applies driver specific settings and the
// connection pool, and installs tracing when requested. The returned handle
// is the single storage capability shared by all services; release it with
// Close at shutdown.
func Open(opts Options) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		Logger:         newGormLogger(opts.LogQueries),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}

	var (
		db  *gorm.DB
		err error
	)
	switch opts.Driver {
	case "", DriverSQLite:
		// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
		file, _, _ := strings.Cut(opts.Path, "?")
		if dir := filepath.Dir(file); dir != "." {
			if _, err := os.Stat(dir); err != nil {
				return nil, err
			}
		}
		if db, err = gorm.Open(sqlite.Open(sqliteDSN(opts.Path)), gcfg); err != nil {
			return nil, err
		}
	case DriverPostgres:
		if db, err = gorm.Open(postgres.Open(opts.URL), gcfg); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("unsupported database driver: " + opts.Driver)
	}

	maxOpen := opts.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 10
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(maxOpen)
		sqlDB.SetMaxIdleConns(maxOpen)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	if opts.Tracing {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// sqlitePragmas are applied by the driver on every new connection, so the
// whole pool shares them.
var sqlitePragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"foreign_keys(1)",
	"busy_timeout(5000)",
}

// sqliteDSN appends sqlitePragmas to path, keeping any query it already has.
func sqliteDSN(path string) string {
	var b strings.Builder
	b.WriteString(path)
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	for _, p := range sqlitePragmas {
		b.WriteString(sep)
		b.WriteString("_pragma=")
		b.WriteString(p)
		sep = "&"
	}
	return b.String()
}

// OpenSQLite opens (or creates) a SQLite database with default options.
func OpenSQLite(path string) (*gorm.DB, error) {
	return Open(Options{Driver: DriverSQLite, Path: path})
}

// AutoMigrate creates or updates the habit tracker schema.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Habit{},
		&domain.HabitWeekDay{},
		&domain.Day{},
		&domain.DayHabit{},
		&domain.Idempotency{},
	)
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
