// Package config provides application configuration with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (MINDDOJO_ prefix; .env is loaded if present)
//  2. Config file (./config.yaml or ~/.minddojo/config.yaml)
//  3. Default values
//
// Categories:
//   - AI: generation model, embedder model, temperature
//   - Index: persisted index path, chunking, retrieval top-k
//   - Storage: PostgreSQL connection
//   - Server: listen address, CORS origins
//   - Observability: optional OTLP trace endpoint
//
// Sensitive values (the Postgres password) are never logged; use LogValue.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	// ErrInvalidModelName indicates the generation model name is empty or malformed.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidEmbedderModel indicates the embedder model name is empty.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidIndexPath indicates the persisted index path is empty.
	ErrInvalidIndexPath = errors.New("invalid index path")

	// ErrInvalidChunking indicates chunk size/overlap values are inconsistent.
	ErrInvalidChunking = errors.New("invalid chunking configuration")

	// ErrInvalidTopK indicates the retrieval top-k is out of range.
	ErrInvalidTopK = errors.New("invalid top-k")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is empty.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is empty.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is unknown.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")
)

// Defaults mirror the values the service shipped with.
const (
	// DefaultModelName is the provider-qualified generation model.
	DefaultModelName = "googleai/gemini-2.5-flash"

	// DefaultEmbedderModel is the embedding model used for the course index.
	DefaultEmbedderModel = "text-embedding-004"

	// DefaultIndexPath is the on-disk location of the persisted course index.
	DefaultIndexPath = "minddojo_courses.index"

	// DefaultChunkSize is the maximum chunk length in runes.
	DefaultChunkSize = 1200

	// DefaultChunkOverlap is the overlap between adjacent chunks in runes.
	DefaultChunkOverlap = 200

	// DefaultTopK is the number of chunks assembled into the prompt context.
	DefaultTopK = 4

	// MaxTopK bounds retrieval so a misconfiguration cannot flood the prompt.
	MaxTopK = 10
)

// Config stores application configuration.
type Config struct {
	// AI configuration
	ModelName     string  `mapstructure:"model_name"`
	EmbedderModel string  `mapstructure:"embedder_model"`
	Temperature   float32 `mapstructure:"temperature"`

	// Index configuration
	IndexPath    string `mapstructure:"index_path"`
	ChunkSize    int    `mapstructure:"chunk_size"`
	ChunkOverlap int    `mapstructure:"chunk_overlap"`
	TopK         int    `mapstructure:"top_k"`

	// Storage configuration
	PostgresHost     string `mapstructure:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password"` // SENSITIVE: masked in LogValue
	PostgresDBName   string `mapstructure:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode"`

	// Server configuration
	ListenAddr  string   `mapstructure:"listen_addr"`
	CORSOrigins []string `mapstructure:"cors_origins"`

	// Observability configuration (empty endpoint disables tracing)
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`

	// Logging configuration
	LogLevel string `mapstructure:"log_level"` // debug|info|warn|error
	LogJSON  bool   `mapstructure:"log_json"`
}

// Load reads configuration from .env, config file, and environment variables.
func Load() (*Config, error) {
	// Best-effort .env loading; absence is not an error.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".minddojo"))
	}

	v.SetEnvPrefix("MINDDOJO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// No config file: defaults + env only.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("model_name", DefaultModelName)
	v.SetDefault("embedder_model", DefaultEmbedderModel)
	v.SetDefault("temperature", 0.3)

	v.SetDefault("index_path", DefaultIndexPath)
	v.SetDefault("chunk_size", DefaultChunkSize)
	v.SetDefault("chunk_overlap", DefaultChunkOverlap)
	v.SetDefault("top_k", DefaultTopK)

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "minddojo")
	v.SetDefault("postgres_password", "")
	v.SetDefault("postgres_db_name", "minddojo")
	v.SetDefault("postgres_ssl_mode", "disable")

	v.SetDefault("listen_addr", ":8000")
	v.SetDefault("cors_origins", []string{})

	v.SetDefault("otlp_endpoint", "")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
}

// Validate checks the configuration for values that would fail at runtime.
func (c *Config) Validate() error {
	if c.ModelName == "" {
		return fmt.Errorf("%w: model name must not be empty", ErrInvalidModelName)
	}
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder model must not be empty", ErrInvalidEmbedderModel)
	}
	if c.IndexPath == "" {
		return fmt.Errorf("%w: index path must not be empty", ErrInvalidIndexPath)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidChunking, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: overlap %d must be in [0, chunk size %d)", ErrInvalidChunking, c.ChunkOverlap, c.ChunkSize)
	}
	if c.TopK < 1 || c.TopK > MaxTopK {
		return fmt.Errorf("%w: top-k %d must be in [1, %d]", ErrInvalidTopK, c.TopK, MaxTopK)
	}
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host must not be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name must not be empty", ErrInvalidPostgresDBName)
	}
	switch c.PostgresSSLMode {
	case "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPostgresSSLMode, c.PostgresSSLMode)
	}
	return nil
}

// DatabaseURL assembles a postgres:// connection URL for pgx and golang-migrate.
func (c *Config) DatabaseURL() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", c.PostgresHost, c.PostgresPort),
		Path:   "/" + c.PostgresDBName,
	}
	if c.PostgresUser != "" {
		if c.PostgresPassword != "" {
			u.User = url.UserPassword(c.PostgresUser, c.PostgresPassword)
		} else {
			u.User = url.User(c.PostgresUser)
		}
	}
	q := url.Values{}
	q.Set("sslmode", c.PostgresSSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// SlogLevel maps the configured log level string to a slog.Level.
// Unknown values fall back to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogValue implements slog.LogValuer so logging a Config never leaks the
// Postgres password.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("model_name", c.ModelName),
		slog.String("embedder_model", c.EmbedderModel),
		slog.String("index_path", c.IndexPath),
		slog.Int("chunk_size", c.ChunkSize),
		slog.Int("chunk_overlap", c.ChunkOverlap),
		slog.Int("top_k", c.TopK),
		slog.String("postgres_host", c.PostgresHost),
		slog.Int("postgres_port", c.PostgresPort),
		slog.String("postgres_db_name", c.PostgresDBName),
		slog.String("listen_addr", c.ListenAddr),
	)
}
