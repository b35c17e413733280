// Package config provides application configuration management using Viper.
// It supports loading configuration from YAML files, an optional .env file and
// environment variables, with built-in validation for production and development
// environments. Sections cover the HTTP server, the session store database
// (SQLite, MySQL, PostgreSQL), the simulated login, session persistence, CORS,
// rate limiting and logging.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Olprog59/ehs-access/internal/domain"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultSessionSecret = "your-super-secret-key"

// Config holds all application configuration / Contient toute la configuration de l'application
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Environment string            `mapstructure:"environment"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Session     SessionConfig     `mapstructure:"session"`
	Security    SecurityConfig    `mapstructure:"security"`
	Cors        CorsConfig        `mapstructure:"cors"`
	RateLimiter RateLimiterConfig `mapstructure:"rate_limiter"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// ServerConfig holds server configuration / Configuration serveur
type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// DatabaseConfig holds database-specific configuration / Configuration de la base de données
type DatabaseConfig struct {
	Type           string `mapstructure:"type"`            // Database type: "sqlite", "mysql", or "postgres"
	DSN            string `mapstructure:"dsn"`             // Data Source Name for connecting to the database
	MigrationsPath string `mapstructure:"migrations_path"` // Path to migration files
	MaxOpenConns   int    `mapstructure:"max_open_conns"`  // Maximum number of open connections (default: 25)
	MaxIdleConns   int    `mapstructure:"max_idle_conns"`  // Maximum number of idle connections (default: 5)
}

// AuthConfig holds login and session token settings / Paramètres de connexion et de jeton de session
type AuthConfig struct {
	SessionSecret        string        `mapstructure:"session_secret"`         // HMAC key for the persisted session token
	SessionTokenDuration time.Duration `mapstructure:"session_token_duration"` // Lifetime of a persisted session
	LoginDelay           time.Duration `mapstructure:"login_delay"`            // Simulated login latency
	DefaultRole          string        `mapstructure:"default_role"`           // Role granted on login
	PasswordHash         string        `mapstructure:"password_hash"`          // Optional bcrypt hash checked on login
}

// SessionConfig holds startup session behaviour / Comportement de la session au démarrage
type SessionConfig struct {
	DemoAutologin bool          `mapstructure:"demo_autologin"` // Start authenticated when nothing is stored
	DemoID        string        `mapstructure:"demo_id"`
	DemoEmail     string        `mapstructure:"demo_email"`
	DemoName      string        `mapstructure:"demo_name"`
	DemoRole      string        `mapstructure:"demo_role"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"` // How often expired stored sessions are cleared
}

// SecurityConfig holds security settings / Paramètres de sécurité
type SecurityConfig struct {
	BcryptCost     int      `mapstructure:"bcrypt_cost"`
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

// CorsConfig holds CORS configuration / Configuration CORS
type CorsConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RateLimiterConfig holds rate limiter configuration / Configuration limiteur de débit
type RateLimiterConfig struct {
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
	Enabled bool    `mapstructure:"enabled"`
}

// LoggingConfig holds logging configuration / Configuration logging
type LoggingConfig struct {
	Level         string            `mapstructure:"level"`
	Format        string            `mapstructure:"format"`
	LokiEnabled   bool              `mapstructure:"loki_enabled"`
	LokiURL       string            `mapstructure:"loki_url"`
	LokiLabels    map[string]string `mapstructure:"loki_labels"`
	LokiBatchSize int               `mapstructure:"loki_batch_size"`
}

// IsProduction checks if environment is production / Vérifie si l'environnement est production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsProd is alias for IsProduction / Alias pour IsProduction
func (c *Config) IsProd() bool {
	return c.IsProduction()
}

// DefaultRole returns the parsed login role / Retourne le rôle de connexion
func (c *Config) DefaultRole() domain.Role {
	role, ok := domain.ParseRole(c.Auth.DefaultRole)
	if !ok {
		return domain.RoleGMGAdmin
	}
	return role
}

// DemoUser returns the identity used when no session is stored / Identité utilisée sans session stockée
func (c *Config) DemoUser() domain.User {
	role, ok := domain.ParseRole(c.Session.DemoRole)
	if !ok {
		role = domain.RoleGMGAdmin
	}
	return domain.User{
		ID:    c.Session.DemoID,
		Email: c.Session.DemoEmail,
		Name:  c.Session.DemoName,
		Role:  role,
	}
}

// setDefaults registers default values / Enregistre les valeurs par défaut
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "30s")
	v.SetDefault("environment", "development")
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "session.db")
	v.SetDefault("database.migrations_path", "migrations/sqlite")

	v.SetDefault("auth.session_secret", defaultSessionSecret)
	v.SetDefault("auth.session_token_duration", "720h")
	v.SetDefault("auth.login_delay", "1s")
	v.SetDefault("auth.default_role", domain.RoleGMGAdmin.String())
	v.SetDefault("auth.password_hash", "")

	v.SetDefault("session.demo_autologin", true)
	v.SetDefault("session.demo_id", "1")
	v.SetDefault("session.demo_email", "demo@gmg.com")
	v.SetDefault("session.demo_name", "John Smith")
	v.SetDefault("session.demo_role", domain.RoleGMGAdmin.String())
	v.SetDefault("session.sweep_interval", "1h")

	v.SetDefault("security.bcrypt_cost", 12)
	v.SetDefault("security.trusted_proxies", []string{}) // Empty by default - don't trust proxy headers unless explicitly configured
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:5173"})

	// Rate limiter defaults - More permissive in dev
	v.SetDefault("rate_limiter.rps", 10)
	v.SetDefault("rate_limiter.burst", 20)
	v.SetDefault("rate_limiter.enabled", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.loki_enabled", false)
	v.SetDefault("logging.loki_url", "http://localhost:3100")
	v.SetDefault("logging.loki_labels", map[string]string{
		"app":         "ehs-access",
		"environment": "development",
	})
	v.SetDefault("logging.loki_batch_size", 10)
}

// LoadConfig loads configuration from YAML, .env and env vars / Charge la config depuis YAML, .env et variables d'env
// An empty configFile searches for config.yaml in the working directory.
func LoadConfig(configFile string) (*Config, error) {
	// A missing .env is fine; real environment variables still win.
	_ = godotenv.Load()

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind specific environment variables
	_ = v.BindEnv("auth.session_secret", "SESSION_SECRET")
	_ = v.BindEnv("auth.password_hash", "LOGIN_PASSWORD_HASH")
	_ = v.BindEnv("database.dsn", "DATABASE_DSN")

	var cfg Config
	err := v.Unmarshal(&cfg, func(c *mapstructure.DecoderConfig) {
		c.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	})
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates configuration / Valide la configuration
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validateAuth(); err != nil {
		return err
	}

	if err := c.validateSession(); err != nil {
		return err
	}

	if err := c.validateRateLimiter(); err != nil {
		return err
	}

	return nil
}

// validateServer validates server configuration
func (c *Config) validateServer() error {
	if c.Server.Port == "" {
		return errors.New("server.port is required")
	}
	return nil
}

// validateDatabase validates database configuration
func (c *Config) validateDatabase() error {
	validDBTypes := []string{"sqlite", "mysql", "postgres", "postgresql", ""}
	dbType := strings.ToLower(c.Database.Type)

	if dbType != "" && !slices.Contains(validDBTypes, dbType) {
		return errors.New("database.type must be one of: sqlite, mysql, postgres")
	}

	if c.IsProduction() && c.Database.DSN == "" {
		return errors.New("database.dsn is required in production")
	}

	return nil
}

// validateAuth validates login and session token configuration
func (c *Config) validateAuth() error {
	if c.Auth.SessionSecret == "" {
		return errors.New("auth.session_secret is required")
	}

	if c.IsProduction() {
		if len(c.Auth.SessionSecret) < 32 {
			return errors.New("auth.session_secret must be ≥32 chars in production")
		}
		if c.Auth.SessionSecret == defaultSessionSecret {
			return errors.New("auth.session_secret cannot use default value in production - set SESSION_SECRET environment variable")
		}
	}

	if c.Auth.SessionTokenDuration <= 0 {
		return errors.New("auth.session_token_duration must be positive")
	}

	if c.Auth.LoginDelay < 0 {
		return errors.New("auth.login_delay cannot be negative")
	}

	if c.Auth.DefaultRole != "" {
		if _, ok := domain.ParseRole(c.Auth.DefaultRole); !ok {
			return fmt.Errorf("auth.default_role %q is not a known role", c.Auth.DefaultRole)
		}
	}

	return nil
}

// validateSession validates the demo identity
func (c *Config) validateSession() error {
	if !c.Session.DemoAutologin {
		return nil
	}

	if c.Session.DemoID == "" || c.Session.DemoEmail == "" {
		return errors.New("session.demo_id and session.demo_email are required when demo_autologin is enabled")
	}

	if _, ok := domain.ParseRole(c.Session.DemoRole); !ok {
		return fmt.Errorf("session.demo_role %q is not a known role", c.Session.DemoRole)
	}

	return nil
}

// validateRateLimiter validates rate limiter configuration
func (c *Config) validateRateLimiter() error {
	if !c.RateLimiter.Enabled {
		return nil
	}

	if c.RateLimiter.RPS <= 0 {
		return errors.New("rate_limiter.rps must be positive when enabled")
	}

	if c.RateLimiter.Burst <= 0 {
		return errors.New("rate_limiter.burst must be positive when enabled")
	}

	return nil
}
