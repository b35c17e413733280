package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Olprog59/ehs-access/internal/config"
	"github.com/Olprog59/ehs-access/internal/domain"
	"github.com/Olprog59/ehs-access/internal/metrics"
	"github.com/Olprog59/ehs-access/internal/ports"
	"github.com/Olprog59/ehs-access/internal/repository"
	"github.com/Olprog59/ehs-access/internal/repository/db"
	"github.com/Olprog59/ehs-access/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/lib/pq"              // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver
)

const sweeperTask = "session_sweeper"

// Container holds application dependencies / Contient les dépendances de l'application
type Container struct {
	DB           *sql.DB
	DBType       db.DatabaseType
	SessionStore ports.SessionStore
	AccessSvc    *service.AccessService
	SessionSvc   *service.SessionService
	Config       *config.Config
	Metrics      *metrics.Metrics
	Registry     *prometheus.Registry
	ctxCancel    context.CancelFunc
	done         chan struct{}
}

// NewContainer initializes application container / Initialise le conteneur de l'application
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	c := &Container{Config: cfg}

	// Each container gets its own registry so tests can build several.
	c.Registry = prometheus.NewRegistry()
	c.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	c.Metrics = metrics.NewMetrics(c.Registry)

	if err := c.initDatabase(ctx); err != nil {
		return nil, fmt.Errorf("database init: %w", err)
	}

	if err := c.runMigrations(); err != nil {
		c.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	c.initRepositories()
	c.initServices()

	// A failed restore leaves the session anonymous; startup continues.
	if err := c.SessionSvc.Restore(ctx); err != nil {
		slog.Warn("session restore failed", "error", err)
	}

	c.startSweeper()
	c.updateDatabaseMetrics()

	return c, nil
}

// initDatabase initializes database connection / Initialise la connexion à la base de données
func (c *Container) initDatabase(ctx context.Context) error {
	c.DBType = db.ParseDatabaseType(c.Config.Database.Type)

	dbConfig := db.DatabaseConfig{
		Type:         c.DBType,
		DSN:          c.Config.Database.DSN,
		MaxOpenConns: c.Config.Database.MaxOpenConns,
		MaxIdleConns: c.Config.Database.MaxIdleConns,
	}

	conn, err := db.Open(ctx, dbConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize %s database: %w", c.DBType, err)
	}

	c.DB = conn
	return nil
}

// runMigrations applies database migrations / Applique les migrations de base de données
func (c *Container) runMigrations() error {
	return db.Migrate(c.DB, c.DBType, c.Config.Database.MigrationsPath)
}

// initRepositories initializes repositories / Initialise les repositories
func (c *Container) initRepositories() {
	c.SessionStore = repository.NewAdapter(c.DB, c.DBType.String()).SessionStore()
	slog.Info("repositories initialized", "type", c.DBType)
}

// initServices initializes application services / Initialise les services applicatifs
func (c *Container) initServices() {
	c.AccessSvc = service.NewAccessService(domain.DefaultMatrix, c.Metrics)
	c.SessionSvc = service.NewSessionService(c.SessionStore, c.AccessSvc, c.Config, c.Metrics)
}

// startSweeper signs out expired sessions periodically / Déconnecte périodiquement les sessions expirées
func (c *Container) startSweeper() {
	interval := c.Config.Session.SweepInterval
	if interval <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.ctxCancel = cancel
	c.done = make(chan struct{})

	go func() {
		defer close(c.done)
		c.Metrics.SetBackgroundTaskStatus(sweeperTask, true)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.SessionSvc.SweepExpired(ctx)
				c.updateDatabaseMetrics()
			case <-ctx.Done():
				c.Metrics.SetBackgroundTaskStatus(sweeperTask, false)
				slog.Info("session sweeper stopped")
				return
			}
		}
	}()
}

// updateDatabaseMetrics updates database metrics / Met à jour les métriques de la BD
func (c *Container) updateDatabaseMetrics() {
	stats := c.DB.Stats()
	c.Metrics.UpdateDatabaseConnections(stats.OpenConnections)
}

// Close performs graceful shutdown / Effectue un arrêt gracieux
func (c *Container) Close() error {
	if c.ctxCancel != nil {
		c.ctxCancel()
		<-c.done
	}
	if c.DB != nil {
		slog.Info("closing database")
		return c.DB.Close()
	}
	return nil
}
