// Package config loads closetfit settings from defaults, an optional YAML
// file and CLOSETFIT_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"closetfit/internal/blob"
	"closetfit/internal/catalog"
	"closetfit/internal/core"
	"closetfit/internal/infra/blob/s3"
	"closetfit/internal/logging"
)

// EnvConfigPath names the config file when --config is not given.
const EnvConfigPath = "CLOSETFIT_CONFIG"

// Config is the complete process configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Log      LogConfig      `yaml:"log"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Blob     BlobConfig     `yaml:"blob"`
	Composer ComposerConfig `yaml:"composer"`
	Session  SessionConfig  `yaml:"session"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type CatalogConfig struct {
	Driver      string `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

type BlobConfig struct {
	Driver string   `yaml:"driver"`
	FSRoot string   `yaml:"fs_root"`
	S3     S3Config `yaml:"s3"`
}

type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	Prefix          string `yaml:"prefix"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type ComposerConfig struct {
	Shuffle     string `yaml:"shuffle"`
	ExportScale int    `yaml:"export_scale"`
}

type SessionConfig struct {
	IdleLimit time.Duration `yaml:"idle_limit"`
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		HTTP:     HTTPConfig{Addr: ":8080"},
		Log:      LogConfig{Level: "info", Format: "text"},
		Catalog:  CatalogConfig{Driver: string(catalog.DriverSQLite), SQLitePath: "closetfit.db"},
		Blob:     BlobConfig{Driver: string(blob.DriverFilesystem), FSRoot: "data/blobs"},
		Composer: ComposerConfig{Shuffle: string(core.ShuffleUniform), ExportScale: 2},
		Session:  SessionConfig{IdleLimit: 30 * time.Minute},
	}
}

// Load builds a Config. path may be empty, in which case CLOSETFIT_CONFIG is
// consulted; a missing file named only by the environment is an error too.
// getenv defaults to os.Getenv.
func Load(path string, getenv func(string) string) (Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	cfg := Default()
	if path == "" {
		path = getenv(EnvConfigPath)
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.mergeEnv(getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer func() { _ = f.Close() }()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeEnv(getenv func(string) string) error {
	str := map[string]*string{
		"CLOSETFIT_HTTP_ADDR":          &c.HTTP.Addr,
		"CLOSETFIT_LOG_LEVEL":          &c.Log.Level,
		"CLOSETFIT_LOG_FORMAT":         &c.Log.Format,
		"CLOSETFIT_STORAGE_DRIVER":     &c.Catalog.Driver,
		"CLOSETFIT_SQLITE_PATH":        &c.Catalog.SQLitePath,
		"CLOSETFIT_POSTGRES_DSN":       &c.Catalog.PostgresDSN,
		"CLOSETFIT_BLOB_DRIVER":        &c.Blob.Driver,
		"CLOSETFIT_BLOB_FS_ROOT":       &c.Blob.FSRoot,
		"CLOSETFIT_BLOB_S3_BUCKET":     &c.Blob.S3.Bucket,
		"CLOSETFIT_BLOB_S3_REGION":     &c.Blob.S3.Region,
		"CLOSETFIT_BLOB_S3_ENDPOINT":   &c.Blob.S3.Endpoint,
		"CLOSETFIT_BLOB_S3_PREFIX":     &c.Blob.S3.Prefix,
		"CLOSETFIT_BLOB_S3_ACCESS_KEY": &c.Blob.S3.AccessKeyID,
		"CLOSETFIT_BLOB_S3_SECRET_KEY": &c.Blob.S3.SecretAccessKey,
		"CLOSETFIT_SHUFFLE":            &c.Composer.Shuffle,
	}
	for name, dst := range str {
		if v := getenv(name); v != "" {
			*dst = v
		}
	}

	var errs []error
	if v := getenv("CLOSETFIT_BLOB_S3_PATH_STYLE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("CLOSETFIT_BLOB_S3_PATH_STYLE: %w", err))
		}
		c.Blob.S3.PathStyle = b
	}
	if v := getenv("CLOSETFIT_EXPORT_SCALE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("CLOSETFIT_EXPORT_SCALE: %w", err))
		}
		c.Composer.ExportScale = n
	}
	if v := getenv("CLOSETFIT_SESSION_IDLE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("CLOSETFIT_SESSION_IDLE: %w", err))
		}
		c.Session.IdleLimit = d
	}
	return errors.Join(errs...)
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format %q: want text or json", c.Log.Format))
	}
	switch catalog.Driver(c.Catalog.Driver) {
	case catalog.DriverMemory, catalog.DriverSQLite, catalog.DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("catalog.driver %q: want memory, sqlite or postgres", c.Catalog.Driver))
	}
	switch blob.Driver(c.Blob.Driver) {
	case blob.DriverFilesystem, blob.DriverMemory:
	case blob.DriverS3:
		if c.Blob.S3.Bucket == "" {
			errs = append(errs, errors.New("blob.s3.bucket is required for the s3 driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("blob.driver %q: want fs, s3 or memory", c.Blob.Driver))
	}
	switch core.ShuffleMode(c.Composer.Shuffle) {
	case core.ShuffleUniform, core.ShuffleLegacy:
	default:
		errs = append(errs, fmt.Errorf("composer.shuffle %q: want uniform or legacy", c.Composer.Shuffle))
	}
	if c.Composer.ExportScale < 1 || c.Composer.ExportScale > 8 {
		errs = append(errs, fmt.Errorf("composer.export_scale %d: want 1..8", c.Composer.ExportScale))
	}
	if c.Session.IdleLimit < 0 {
		errs = append(errs, fmt.Errorf("session.idle_limit %s: must not be negative", c.Session.IdleLimit))
	}
	return errors.Join(errs...)
}

// LogLevel returns the parsed slog level.
func (c Config) LogLevel() slog.Level {
	l, _ := logging.ParseLevel(c.Log.Level)
	return l
}

// CatalogOptions maps the catalog section onto the catalog factory.
func (c Config) CatalogOptions() catalog.Config {
	return catalog.Config{
		Driver:      c.Catalog.Driver,
		SQLitePath:  c.Catalog.SQLitePath,
		PostgresDSN: c.Catalog.PostgresDSN,
	}
}

// BlobOptions maps the blob section onto the blob factory.
func (c Config) BlobOptions() blob.Config {
	return blob.Config{
		Driver: c.Blob.Driver,
		FSRoot: c.Blob.FSRoot,
		S3: s3.Config{
			Bucket:          c.Blob.S3.Bucket,
			Region:          c.Blob.S3.Region,
			Endpoint:        c.Blob.S3.Endpoint,
			Prefix:          c.Blob.S3.Prefix,
			PathStyle:       c.Blob.S3.PathStyle,
			AccessKeyID:     c.Blob.S3.AccessKeyID,
			SecretAccessKey: c.Blob.S3.SecretAccessKey,
		},
	}
}
