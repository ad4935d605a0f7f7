// Package config loads dorkroom settings from a YAML file and DORKROOM_*
// environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"dorkroom/internal/blob"
	"dorkroom/internal/core"
	"dorkroom/internal/logging"
	"dorkroom/internal/similarity"
)

// Config holds all application configuration.
type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	Blob      BlobConfig      `yaml:"blob"`
	Search    SearchConfig    `yaml:"search"`
	Admission AdmissionConfig `yaml:"admission"`
	Index     IndexConfig     `yaml:"index"`
	Log       LogConfig       `yaml:"log"`
	Server    ServerConfig    `yaml:"server"`
}

// StorageConfig selects the snapshot store.
type StorageConfig struct {
	Driver      string `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
	BoltPath    string `yaml:"bolt_path"`
}

// BlobConfig configures the blob driver behind the blob snapshot store.
type BlobConfig struct {
	Driver string         `yaml:"driver"`
	FSRoot string         `yaml:"fs_root"`
	Prefix string         `yaml:"prefix"`
	S3     blob.S3Config  `yaml:"s3"`
	HTTP   BlobHTTPConfig `yaml:"http"`
}

// BlobHTTPConfig configures the read-only HTTP driver.
type BlobHTTPConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// SearchConfig holds fuzzy search settings.
type SearchConfig struct {
	Threshold    float64 `yaml:"threshold"`
	DefaultLimit int     `yaml:"default_limit"`
}

// AdmissionConfig holds the soft admission check settings.
type AdmissionConfig struct {
	NearDuplicateThreshold float64 `yaml:"near_duplicate_threshold"`
	PushPullTolerance      float64 `yaml:"push_pull_tolerance"`
}

// IndexConfig holds the load-time integrity policy.
type IndexConfig struct {
	Policy string `yaml:"policy"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultHTTPTimeout bounds requests made by the HTTP blob driver.
const DefaultHTTPTimeout = 10 * time.Second

const maxThreshold = 200.0

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Driver:      string(core.StorageBlob),
			SQLitePath:  "./dorkroom.db",
			PostgresDSN: "postgres://localhost/dorkroom?sslmode=disable",
			BoltPath:    "./dorkroom.bolt",
		},
		Blob: BlobConfig{
			Driver: string(blob.DriverFilesystem),
			FSRoot: "./data",
			S3:     blob.S3Config{Region: "us-east-1"},
			HTTP:   BlobHTTPConfig{BaseURL: blob.DefaultHTTPBaseURL, Timeout: DefaultHTTPTimeout},
		},
		Search: SearchConfig{
			Threshold:    similarity.DefaultThreshold,
			DefaultLimit: core.DefaultLimit,
		},
		Admission: AdmissionConfig{
			NearDuplicateThreshold: core.DefaultNearDuplicateThreshold,
			PushPullTolerance:      core.DefaultPushPullTolerance,
		},
		Index: IndexConfig{Policy: string(core.PolicyExclude)},
		Log: LogConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 30,
		},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// Load reads config from a YAML file (if it exists) and overrides with
// environment variables. Environment variables take precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() error {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	str("DORKROOM_STORAGE_DRIVER", &c.Storage.Driver)
	str("DORKROOM_SQLITE_PATH", &c.Storage.SQLitePath)
	str("DORKROOM_POSTGRES_DSN", &c.Storage.PostgresDSN)
	str("DORKROOM_BOLT_PATH", &c.Storage.BoltPath)
	str("DORKROOM_BLOB_DRIVER", &c.Blob.Driver)
	str("DORKROOM_BLOB_FS_ROOT", &c.Blob.FSRoot)
	str("DORKROOM_BLOB_PREFIX", &c.Blob.Prefix)
	str("DORKROOM_BLOB_S3_BUCKET", &c.Blob.S3.Bucket)
	str("DORKROOM_BLOB_S3_REGION", &c.Blob.S3.Region)
	str("DORKROOM_BLOB_S3_ENDPOINT", &c.Blob.S3.Endpoint)
	str("DORKROOM_BLOB_S3_ACCESS_KEY_ID", &c.Blob.S3.AccessKeyID)
	str("DORKROOM_BLOB_S3_SECRET_ACCESS_KEY", &c.Blob.S3.SecretAccessKey)
	str("DORKROOM_BLOB_S3_SESSION_TOKEN", &c.Blob.S3.SessionToken)
	str("DORKROOM_BLOB_HTTP_BASE_URL", &c.Blob.HTTP.BaseURL)
	str("DORKROOM_INDEX_POLICY", &c.Index.Policy)
	str("DORKROOM_LOG_LEVEL", &c.Log.Level)
	str("DORKROOM_LOG_FORMAT", &c.Log.Format)
	str("DORKROOM_LOG_FILE", &c.Log.File)
	str("DORKROOM_SERVER_ADDR", &c.Server.Addr)

	var errs []string
	parse := func(key string, fn func(string) error) {
		if v := os.Getenv(key); v != "" {
			if err := fn(v); err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", key, err))
			}
		}
	}
	floatInto := func(dst *float64) func(string) error {
		return func(v string) (err error) {
			*dst, err = strconv.ParseFloat(v, 64)
			return err
		}
	}
	intInto := func(dst *int) func(string) error {
		return func(v string) (err error) {
			*dst, err = strconv.Atoi(v)
			return err
		}
	}
	parse("DORKROOM_BLOB_S3_PATH_STYLE", func(v string) (err error) {
		c.Blob.S3.PathStyle, err = strconv.ParseBool(v)
		return err
	})
	parse("DORKROOM_BLOB_HTTP_TIMEOUT", func(v string) (err error) {
		c.Blob.HTTP.Timeout, err = time.ParseDuration(v)
		return err
	})
	parse("DORKROOM_SEARCH_THRESHOLD", floatInto(&c.Search.Threshold))
	parse("DORKROOM_SEARCH_LIMIT", intInto(&c.Search.DefaultLimit))
	parse("DORKROOM_NEAR_DUPLICATE_THRESHOLD", floatInto(&c.Admission.NearDuplicateThreshold))
	parse("DORKROOM_PUSH_PULL_TOLERANCE", floatInto(&c.Admission.PushPullTolerance))
	parse("DORKROOM_LOG_MAX_SIZE_MB", intInto(&c.Log.MaxSizeMB))
	parse("DORKROOM_LOG_MAX_BACKUPS", intInto(&c.Log.MaxBackups))
	parse("DORKROOM_LOG_MAX_AGE_DAYS", intInto(&c.Log.MaxAgeDays))
	if len(errs) > 0 {
		return fmt.Errorf("invalid values: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validate() error {
	switch core.StorageDriver(c.Storage.Driver) {
	case core.StorageMemory, core.StorageSQLite, core.StoragePostgres, core.StorageBolt, core.StorageBlob:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch blob.Driver(c.Blob.Driver) {
	case blob.DriverFilesystem, blob.DriverS3, blob.DriverMemory, blob.DriverHTTP:
	default:
		return fmt.Errorf("unknown blob driver %q", c.Blob.Driver)
	}
	if blob.Driver(c.Blob.Driver) == blob.DriverS3 && c.Blob.S3.Bucket == "" {
		return fmt.Errorf("blob.s3.bucket is required for the s3 driver")
	}
	if c.Blob.HTTP.Timeout <= 0 {
		c.Blob.HTTP.Timeout = DefaultHTTPTimeout
	}
	if _, err := core.ParseIndexPolicy(c.Index.Policy); err != nil {
		return err
	}
	for name, v := range map[string]float64{
		"search.threshold":                   c.Search.Threshold,
		"admission.near_duplicate_threshold": c.Admission.NearDuplicateThreshold,
	} {
		if v < 0 || v > maxThreshold {
			return fmt.Errorf("%s must be within [0, %g], got %g", name, maxThreshold, v)
		}
	}
	if c.Admission.PushPullTolerance < 0 {
		return fmt.Errorf("admission.push_pull_tolerance must not be negative")
	}
	if c.Search.DefaultLimit <= 0 {
		return fmt.Errorf("search.default_limit must be positive, got %d", c.Search.DefaultLimit)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format %q", c.Log.Format)
	}
	c.Blob.Prefix = strings.Trim(c.Blob.Prefix, "/")
	return nil
}

// StorageOptions maps the storage and blob sections onto the snapshot store
// factory's options.
func (c *Config) StorageOptions() core.StorageOptions {
	return core.StorageOptions{
		Driver:      core.StorageDriver(c.Storage.Driver),
		SQLitePath:  c.Storage.SQLitePath,
		PostgresDSN: c.Storage.PostgresDSN,
		BoltPath:    c.Storage.BoltPath,
		Blob:        c.BlobOptions(),
		BlobPrefix:  c.Blob.Prefix,
	}
}

// BlobOptions maps the blob section onto the blob factory's options.
func (c *Config) BlobOptions() blob.Options {
	return blob.Options{
		Driver:      blob.Driver(c.Blob.Driver),
		FSRoot:      c.Blob.FSRoot,
		S3:          c.Blob.S3,
		HTTPBaseURL: c.Blob.HTTP.BaseURL,
		HTTPTimeout: c.Blob.HTTP.Timeout,
	}
}

// EngineOptions returns the engine options derived from the search,
// admission and index sections.
func (c *Config) EngineOptions() []core.Option {
	policy, _ := core.ParseIndexPolicy(c.Index.Policy)
	return []core.Option{
		core.WithThreshold(c.Search.Threshold),
		core.WithDefaultLimit(c.Search.DefaultLimit),
		core.WithNearDuplicateThreshold(c.Admission.NearDuplicateThreshold),
		core.WithPushPullTolerance(c.Admission.PushPullTolerance),
		core.WithIndexPolicy(policy),
	}
}

// Logging maps the log section onto the logger's configuration.
func (c *Config) Logging() logging.Config {
	return logging.Config{
		Level:      c.Log.Level,
		Format:     c.Log.Format,
		File:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
	}
}
