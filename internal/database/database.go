// Package database opens the gorm connection used by the database preset store.
package database

import (
	"database/sql"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MemoryDSN is the shared-cache in-memory SQLite database used when no path is set.
const MemoryDSN = "file::memory:?cache=shared"

// Driver names the database a Manager ended up on.
type Driver string

const (
	DriverNone     Driver = ""
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

var sqlitePragmas = []string{
	"PRAGMA user_version = 1;",
	"PRAGMA journal_mode = WAL;",
	"PRAGMA busy_timeout = 5000;",
	"PRAGMA foreign_keys = ON;",
}

// Manager owns one gorm connection. Connect prefers Postgres and drops back to the
// SQLite file at sqlitePath, or to MemoryDSN when the path is empty.
type Manager struct {
	DB     *gorm.DB
	Driver Driver
	Logger zerolog.Logger

	pool       *sql.DB
	sqlitePath string
}

// NewManager creates a new database manager.
func NewManager(log zerolog.Logger, sqlitePath string) *Manager {
	return &Manager{Logger: log, sqlitePath: sqlitePath}
}

// Ready reports whether a connection is open.
func (m *Manager) Ready() bool {
	return m.Driver != DriverNone
}

// Fallback reports whether presets are kept in SQLite although Postgres was asked for.
func (m *Manager) Fallback() bool {
	return m.Driver == DriverSQLite
}

// Connect establishes a Postgres connection, falling back to SQLite if Postgres fails.
func (m *Manager) Connect() error {
	m.Logger.Debug().
		Str("host", viper.GetString("db.host")).
		Str("database", viper.GetString("db.database")).
		Msg("Connecting to Postgres DB")

	db, err := openPostgres(PostgresDSN())
	if err == nil {
		err = m.attach(db, DriverPostgres)
	}
	if err != nil {
		m.Logger.Error().Err(err).Msg("Failed to connect to Postgres DB, trying SQLite")
		return m.ConnectSQLite()
	}

	m.pool.SetMaxOpenConns(10)
	m.Logger.Info().Msg("Connected to database")
	return nil
}

// ConnectSQLite opens the local SQLite database directly.
func (m *Manager) ConnectSQLite() error {
	dsn := m.sqlitePath
	if dsn == "" {
		dsn = MemoryDSN
	}
	db, err := openSQLite(dsn)
	if err != nil {
		return fmt.Errorf("failed to get local SQLite DB: %w", err)
	}
	if err := m.attach(db, DriverSQLite); err != nil {
		return err
	}

	if m.sqlitePath != "" {
		m.Logger.Info().Str("path", m.sqlitePath).Msg("Using local SQLite DB")
	} else {
		m.Logger.Info().Msg("Using local SQLite DB in memory")
	}
	return nil
}

// attach pings db and makes it the manager's connection.
func (m *Manager) attach(db *gorm.DB, driver Driver) error {
	pool, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err := pool.Ping(); err != nil {
		_ = pool.Close()
		return fmt.Errorf("ping %s: %w", driver, err)
	}
	m.DB, m.pool, m.Driver = db, pool, driver
	return nil
}

// Close closes the underlying connection pool.
func (m *Manager) Close() error {
	if m.pool == nil {
		return nil
	}
	m.Driver = DriverNone
	pool := m.pool
	m.pool = nil
	return pool.Close()
}

// PostgresDSN builds the connection string from the db.* settings.
func PostgresDSN() string {
	return fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		viper.GetString("db.host"),
		viper.GetString("db.port"),
		viper.GetString("db.username"),
		viper.GetString("db.password"),
		viper.GetString("db.database"),
	)
}

func silent() logger.Interface {
	return logger.Default.LogMode(logger.Silent)
}

func openPostgres(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{Logger: silent()})
}

func openSQLite(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt: true,
		Logger:      silent(),
	})
	if err != nil {
		return nil, err
	}
	for _, pragma := range sqlitePragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}
	return db, nil
}
