package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file" // file:// migration source
)

const (
	pingTimeout         = 5 * time.Second
	defaultMaxOpenConns = 25
	defaultMaxIdleConns = 5
)

// DatabaseConfig holds database connection config / Contient la config de connexion BD
type DatabaseConfig struct {
	Type         DatabaseType
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// dialect is everything that differs between the session_state backends
type dialect struct {
	driver string // database/sql driver name
	// setup runs once per pool; failures are logged, not fatal
	setup   []string
	migrate func(*sql.DB) (database.Driver, error)
}

var dialects = map[DatabaseType]dialect{
	SQLite: {
		driver: "sqlite",
		// One row, many readers: WAL and a busy timeout avoid "database is locked".
		setup: []string{
			"PRAGMA journal_mode=WAL;",
			"PRAGMA synchronous=NORMAL;",
			"PRAGMA busy_timeout=5000;",
			"PRAGMA trusted_schema=OFF;",
		},
		migrate: func(conn *sql.DB) (database.Driver, error) {
			return sqlite.WithInstance(conn, &sqlite.Config{})
		},
	},
	PostgreSQL: {
		driver: "postgres",
		setup:  []string{"SET TIME ZONE 'UTC'"},
		migrate: func(conn *sql.DB) (database.Driver, error) {
			return postgres.WithInstance(conn, &postgres.Config{})
		},
	},
	MySQL: {
		driver: "mysql",
		setup:  []string{"SET SESSION sql_mode='TRADITIONAL,NO_AUTO_VALUE_ON_ZERO'"},
		migrate: func(conn *sql.DB) (database.Driver, error) {
			return mysql.WithInstance(conn, &mysql.Config{})
		},
	},
}

// dialectFor returns the dialect for dbType; unknown types use SQLite
func dialectFor(dbType DatabaseType) (DatabaseType, dialect) {
	if d, ok := dialects[dbType]; ok {
		return dbType, d
	}
	return SQLite, dialects[SQLite]
}

// Open connects, tunes the pool and pings / Ouvre, configure et vérifie la connexion
// Unknown types fall back to SQLite.
func Open(ctx context.Context, config DatabaseConfig) (*sql.DB, error) {
	dbType, d := dialectFor(config.Type)

	conn, err := sql.Open(d.driver, config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", dbType, err)
	}

	conn.SetMaxOpenConns(orDefault(config.MaxOpenConns, defaultMaxOpenConns))
	conn.SetMaxIdleConns(orDefault(config.MaxIdleConns, defaultMaxIdleConns))

	for _, stmt := range d.setup {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			slog.Warn("database setup statement failed", "type", dbType, "stmt", stmt, "error", err)
		}
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", dbType, err)
	}

	slog.Info("🗄️  Database connected", "type", dbType)
	return conn, nil
}

// Migrate applies pending up migrations from dir / Applique les migrations en attente depuis dir
func Migrate(conn *sql.DB, dbType DatabaseType, dir string) error {
	d, ok := dialects[dbType]
	if !ok {
		return fmt.Errorf("unsupported database type for migrations: %s", dbType)
	}

	driver, err := d.migrate(conn)
	if err != nil {
		return fmt.Errorf("could not create %s migration driver: %w", dbType, err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+dir, dbType.String(), driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	slog.Info("applying database migrations", "type", dbType, "path", dir)
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read migration version: %w", err)
	}
	slog.Info("database migrations applied", "version", version, "dirty", dirty)
	return nil
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
