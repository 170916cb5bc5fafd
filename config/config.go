package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/cloudpad/cloudpad"
	"github.com/cloudpad/cloudpad/database"
	cloudpadhttp "github.com/cloudpad/cloudpad/http"
	"github.com/cloudpad/cloudpad/keybackend"
	"github.com/cloudpad/cloudpad/minio"
	"github.com/cloudpad/cloudpad/s3"
)

// Bucket backend types accepted by bucket.type.
const (
	BucketMemory = "memory"
	BucketLocal  = "local"
	BucketS3     = "s3"
	BucketMinIO  = "minio"
)

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Config is the root configuration struct for cloudpad.
type Config struct {
	Env      string                  `mapstructure:"env"`
	Server   ServerConfig            `mapstructure:"server"`
	Auth     AuthConfig              `mapstructure:"auth"`
	Bucket   BucketConfig            `mapstructure:"bucket"`
	Storage  StorageConfig           `mapstructure:"storage"`
	Database DatabaseConfig          `mapstructure:"database"`
	S3       S3Config                `mapstructure:"s3"`
	MinIO    MinIOConfig             `mapstructure:"minio"`
	CORS     cloudpadhttp.CORSConfig `mapstructure:"cors"`
	Metrics  MetricsConfig           `mapstructure:"metrics"`
	Log      LogConfig               `mapstructure:"log"`
}

// IsProduction reports whether env names a production deployment.
func (c *Config) IsProduction() bool {
	return c.Env == "prod" || c.Env == "production"
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port          int   `mapstructure:"port" validate:"required,min=1,max=65535"`
	MaxUploadSize int64 `mapstructure:"max_upload_size" validate:"min=0"`
	ReadTimeout   int   `mapstructure:"read_timeout" validate:"min=0"`  // seconds
	WriteTimeout  int   `mapstructure:"write_timeout" validate:"min=0"` // seconds
}

// ReadTimeoutDuration returns ReadTimeout as a time.Duration.
func (s ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns WriteTimeout as a time.Duration.
func (s ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// AuthConfig holds the shared access token settings.
type AuthConfig struct {
	Token     string `mapstructure:"token" validate:"required_without=TokenFile"`
	TokenFile string `mapstructure:"token_file"`
	Header    string `mapstructure:"header" validate:"required"`
}

// TokenConfig returns the keybackend view of the token settings.
func (a AuthConfig) TokenConfig() keybackend.TokenConfig {
	return keybackend.TokenConfig{Token: a.Token, TokenFile: a.TokenFile}
}

// BucketConfig selects the storage backend.
type BucketConfig struct {
	Type string `mapstructure:"type" validate:"required,oneof=memory local s3 minio"`
}

// StorageConfig holds file storage configuration for the local backend.
type StorageConfig struct {
	Path           string `mapstructure:"path" validate:"required"`
	CleanupTimeout int    `mapstructure:"cleanup_timeout" validate:"min=1"` // seconds
}

// DatabaseConfig holds the metadata database used by the local backend.
type DatabaseConfig struct {
	Type        string          `mapstructure:"type" validate:"required,oneof=sqlite postgres"`
	DSN         string          `mapstructure:"dsn" validate:"required"`
	Tables      cloudpad.Tables `mapstructure:"tables"`
	AutoMigrate bool            `mapstructure:"auto_migrate"`
}

// Connection returns the database.Config used to connect.
func (d DatabaseConfig) Connection() database.Config {
	return database.Config{Type: d.Type, DSN: d.DSN, Tables: d.Tables}
}

// S3Config holds the settings of the s3 backend.
type S3Config struct {
	Endpoint     string `mapstructure:"endpoint"`
	Region       string `mapstructure:"region"`
	Bucket       string `mapstructure:"bucket"`
	Prefix       string `mapstructure:"prefix"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
}

// Client returns the s3.Config for the backend.
func (c S3Config) Client() s3.Config {
	return s3.Config{
		Endpoint:     c.Endpoint,
		Region:       c.Region,
		Bucket:       c.Bucket,
		Prefix:       c.Prefix,
		AccessKey:    c.AccessKey,
		SecretKey:    c.SecretKey,
		UsePathStyle: c.UsePathStyle,
	}
}

// MinIOConfig holds the settings of the minio backend.
type MinIOConfig struct {
	Endpoint     string `mapstructure:"endpoint"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	Bucket       string `mapstructure:"bucket"`
	UseSSL       bool   `mapstructure:"use_ssl"`
	CreateBucket bool   `mapstructure:"create_bucket"`
}

// Client returns the minio.Config for the backend.
func (c MinIOConfig) Client() minio.Config {
	return minio.Config{
		Endpoint:     c.Endpoint,
		AccessKey:    c.AccessKey,
		SecretKey:    c.SecretKey,
		Bucket:       c.Bucket,
		UseSSL:       c.UseSSL,
		CreateBucket: c.CreateBucket,
	}
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"required,startswith=/"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"db-type":         "database.type",
	"db-dsn":          "database.dsn",
	"storage-path":    "storage.path",
	"port":            "server.port",
	"max-upload-size": "server.max_upload_size",
	"token":           "auth.token",
	"token-file":      "auth.token_file",
	"bucket-type":     "bucket.type",
	"metrics":         "metrics.enabled",
	"log-level":       "log.level",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		// Use custom mapping if it exists, otherwise use flag name as-is
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// setDefaults configures default values on the viper instance. Every key has
// a default so that AutomaticEnv can reach it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")

	v.SetDefault("server.port", 8787)
	v.SetDefault("server.max_upload_size", 0) // 0 means no limit
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 60)

	v.SetDefault("auth.token", "")
	v.SetDefault("auth.token_file", "")
	v.SetDefault("auth.header", cloudpadhttp.DefaultTokenHeader)

	v.SetDefault("bucket.type", BucketLocal)

	v.SetDefault("storage.path", "./data")
	v.SetDefault("storage.cleanup_timeout", 30)

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "cloudpad.db")
	v.SetDefault("database.tables.meta_data", "cloudpad_metadata")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.region", "")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.prefix", "")
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")
	v.SetDefault("s3.use_path_style", false)

	v.SetDefault("minio.endpoint", "")
	v.SetDefault("minio.access_key", "")
	v.SetDefault("minio.secret_key", "")
	v.SetDefault("minio.bucket", "")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.create_bucket", false)

	v.SetDefault("cors.enabled", false)
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "PUT", "POST", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{cloudpadhttp.DefaultTokenHeader, "Content-Type", "Cache-Control"})
	v.SetDefault("cors.exposed_headers", []string{"ETag", "Content-Disposition"})
	v.SetDefault("cors.allow_credentials", false)
	v.SetDefault("cors.max_age", 300)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("log.level", "info")
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Read config files
	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	// 3. Bind environment variables
	v.SetEnvPrefix("CLOUDPAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Bind flags (if provided)
	if flags != nil {
		bindFlags(v, flags)
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// 6. Validate using go-playground/validator
	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks struct tags and the settings required by the selected
// bucket backend.
func Validate(cfg *Config) error {
	validate := validator.New()
	validate.RegisterStructValidation(validateBackend, Config{})

	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	if cfg.Bucket.Type == BucketLocal {
		if err := cfg.Database.Tables.Validate(); err != nil {
			return fmt.Errorf("validate config: %w", err)
		}
	}

	return nil
}

func validateBackend(sl validator.StructLevel) {
	cfg, ok := sl.Current().Interface().(Config)
	if !ok {
		return
	}

	switch cfg.Bucket.Type {
	case BucketS3:
		if cfg.S3.Bucket == "" {
			sl.ReportError(cfg.S3.Bucket, "s3.bucket", "Bucket", "required", "")
		}
		if cfg.S3.Region == "" {
			sl.ReportError(cfg.S3.Region, "s3.region", "Region", "required", "")
		}
	case BucketMinIO:
		if cfg.MinIO.Endpoint == "" {
			sl.ReportError(cfg.MinIO.Endpoint, "minio.endpoint", "Endpoint", "required", "")
		}
		if cfg.MinIO.Bucket == "" {
			sl.ReportError(cfg.MinIO.Bucket, "minio.bucket", "Bucket", "required", "")
		}
	}
}
