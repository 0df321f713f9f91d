package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"

	defaultAddr = "0.0.0.0:8080"
)

// Config holds the complete application configuration, loadable from
// environment variables (ORDERS_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (ORDERS_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	Storage     string `default:"postgres" usage:"Order storage backend: postgres or memory"`
	Migrate     bool   `default:"true" usage:"Apply the embedded schema on startup"`
	Stats       StatsConfig
	Paging      PagingConfig
	Graceful    GracefulConfig
}

// StatsConfig controls the batch sizes of the revenue scan.
type StatsConfig struct {
	InitialBatch int `default:"500" usage:"First statistics scan batch size" flag:"stats-initial-batch"`
	MaxBatch     int `default:"50000" usage:"Upper bound for statistics scan batch size" flag:"stats-max-batch"`
}

// PagingConfig controls listing page sizes.
type PagingConfig struct {
	DefaultSize int `default:"10" usage:"Page size when none is requested" flag:"page-default-size"`
	MaxSize     int `default:"100" usage:"Largest accepted page size" flag:"page-max-size"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, flags and YAML
// config files, then applies platform defaults and validates the result.
func LoadConfig() (*Config, error) {
	return loadConfig(aconfig.Config{
		Files: []string{"config.yaml", "/etc/orders/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
}

func loadConfig(ac aconfig.Config) (*Config, error) {
	ac.EnvPrefix = "ORDERS"

	var cfg Config
	if err := aconfig.LoaderFor(&cfg, ac).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided variables such as
// DATABASE_URL and PORT onto the ORDERS_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

func (c *Config) validate() error {
	switch c.Storage {
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return errors.New("database URL is required: set ORDERS_DATABASE_URL or DATABASE_URL")
		}
	case StorageMemory:
	default:
		return errors.Errorf("unknown storage %q: want %s or %s", c.Storage, StoragePostgres, StorageMemory)
	}

	if c.Paging.MaxSize < 1 {
		return errors.Errorf("paging max size must be positive, got %d", c.Paging.MaxSize)
	}
	if c.Paging.DefaultSize < 1 || c.Paging.DefaultSize > c.Paging.MaxSize {
		return errors.Errorf("paging default size %d is outside [1, %d]", c.Paging.DefaultSize, c.Paging.MaxSize)
	}
	if c.Stats.InitialBatch < 1 {
		return errors.Errorf("stats initial batch must be positive, got %d", c.Stats.InitialBatch)
	}
	if c.Stats.MaxBatch < c.Stats.InitialBatch {
		return errors.Errorf("stats max batch %d is below initial batch %d", c.Stats.MaxBatch, c.Stats.InitialBatch)
	}
	return nil
}
