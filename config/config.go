// Package config provides Viper-based configuration management for image-pipeline
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"image-pipeline/internal/domain"
)

// EnvPrefix prefixes every environment override, e.g. IMAGE_PIPELINE_SERVER_PORT.
const EnvPrefix = "IMAGE_PIPELINE"

// Config represents the complete image-pipeline configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Images    ImagesConfig    `mapstructure:"images"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Storage   StorageConfig   `mapstructure:"storage"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	BodyLimit       string        `mapstructure:"body_limit"`
}

// ImagesConfig contains pipeline settings
type ImagesConfig struct {
	Formats            []string      `mapstructure:"formats"`
	Sizes              []string      `mapstructure:"sizes"`
	Quality            QualityConfig `mapstructure:"quality"`
	UploadDir          string        `mapstructure:"upload_dir"`
	ProcessedDir       string        `mapstructure:"processed_dir"`
	CacheDir           string        `mapstructure:"cache_dir"`
	URLPrefix          string        `mapstructure:"url_prefix"`
	DeleteOriginal     bool          `mapstructure:"delete_original"`
	VariantConcurrency int           `mapstructure:"variant_concurrency"`
	UploadField        string        `mapstructure:"upload_field"`
	MaxUploadBytes     int64         `mapstructure:"max_upload_bytes"`
}

// QualityConfig holds per-format encoder quality
type QualityConfig struct {
	WebP int `mapstructure:"webp"`
	JPEG int `mapstructure:"jpeg"`
	PNG  int `mapstructure:"png"`
}

// CacheConfig contains manifest cache settings
type CacheConfig struct {
	Backend         string        `mapstructure:"backend"`
	RedisURL        string        `mapstructure:"redis_url"`
	LRUSize         int           `mapstructure:"lru_size"`
	LRUTTL          time.Duration `mapstructure:"lru_ttl"`
	MaxAge          time.Duration `mapstructure:"max_age"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	CleanupTimeout  time.Duration `mapstructure:"cleanup_timeout"`
}

// StorageConfig contains secondary storage settings
type StorageConfig struct {
	S3 S3Config `mapstructure:"s3"`
}

// S3Config configures the optional variant mirror
type S3Config struct {
	Bucket   string `mapstructure:"bucket"`
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
	Prefix   string `mapstructure:"prefix"`
}

// Enabled reports whether variants should be mirrored.
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// RateLimitConfig contains upload rate limiting settings
type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	Burst             int `mapstructure:"burst"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// Load reads configuration from file and environment variables
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("image-pipeline")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/image-pipeline")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values
func setDefaults(v *viper.Viper) {
	d := domain.DefaultProcessingConfig()

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.body_limit", "25M")

	formats := make([]string, 0, len(d.Formats))
	for _, f := range d.Formats {
		formats = append(formats, string(f))
	}
	sizes := make([]string, 0, len(d.Sizes))
	for _, s := range d.Sizes {
		sizes = append(sizes, strconv.Itoa(s.Width)+":"+s.Suffix)
	}
	v.SetDefault("images.formats", formats)
	v.SetDefault("images.sizes", sizes)
	v.SetDefault("images.quality.webp", d.Quality.WebP)
	v.SetDefault("images.quality.jpeg", d.Quality.JPEG)
	v.SetDefault("images.quality.png", d.Quality.PNG)
	v.SetDefault("images.upload_dir", d.UploadDir)
	v.SetDefault("images.processed_dir", d.ProcessedDir)
	v.SetDefault("images.cache_dir", d.CacheDir)
	v.SetDefault("images.url_prefix", d.URLPrefix)
	v.SetDefault("images.delete_original", false)
	v.SetDefault("images.variant_concurrency", 0)
	v.SetDefault("images.upload_field", "image")
	v.SetDefault("images.max_upload_bytes", int64(20<<20))

	v.SetDefault("cache.backend", BackendFile)
	v.SetDefault("cache.redis_url", "redis://localhost:6379/0")
	v.SetDefault("cache.lru_size", 1024)
	v.SetDefault("cache.lru_ttl", 10*time.Minute)
	v.SetDefault("cache.max_age", 30*24*time.Hour)
	v.SetDefault("cache.cleanup_interval", 24*time.Hour)
	v.SetDefault("cache.cleanup_timeout", 5*time.Minute)

	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.prefix", "")

	v.SetDefault("rate_limit.requests_per_minute", 60)
	v.SetDefault("rate_limit.burst", 10)

	v.SetDefault("logging.level", "info")
}

// validate checks the configuration for errors
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	if _, err := strconv.Atoi(cfg.Server.Port); err != nil {
		return fmt.Errorf("server.port %q is not a number", cfg.Server.Port)
	}

	switch cfg.Cache.Backend {
	case BackendFile:
	case BackendRedis:
		if cfg.Cache.RedisURL == "" {
			return fmt.Errorf("cache.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("cache.backend must be %q or %q, got %q", BackendFile, BackendRedis, cfg.Cache.Backend)
	}

	if cfg.Images.MaxUploadBytes <= 0 {
		return fmt.Errorf("images.max_upload_bytes must be positive")
	}
	if cfg.Images.UploadField == "" {
		return fmt.Errorf("images.upload_field is required")
	}

	pc, err := cfg.ToProcessingConfig()
	if err != nil {
		return err
	}
	return pc.WithDefaults().Validate()
}

// ToProcessingConfig converts the images section to the pipeline configuration.
func (c *Config) ToProcessingConfig() (domain.ProcessingConfig, error) {
	formats := make([]domain.Format, 0, len(c.Images.Formats))
	for _, raw := range c.Images.Formats {
		f, err := domain.ParseFormat(strings.TrimSpace(raw))
		if err != nil {
			return domain.ProcessingConfig{}, fmt.Errorf("images.formats: %w", err)
		}
		formats = append(formats, f)
	}

	sizes := make([]domain.SizeSpec, 0, len(c.Images.Sizes))
	for _, raw := range c.Images.Sizes {
		s, err := domain.ParseSizeSpec(strings.TrimSpace(raw))
		if err != nil {
			return domain.ProcessingConfig{}, fmt.Errorf("images.sizes: %w", err)
		}
		sizes = append(sizes, s)
	}

	return domain.ProcessingConfig{
		Formats: formats,
		Sizes:   sizes,
		Quality: domain.Quality{
			WebP: c.Images.Quality.WebP,
			JPEG: c.Images.Quality.JPEG,
			PNG:  c.Images.Quality.PNG,
		},
		UploadDir:          c.Images.UploadDir,
		ProcessedDir:       c.Images.ProcessedDir,
		CacheDir:           c.Images.CacheDir,
		URLPrefix:          c.Images.URLPrefix,
		DeleteOriginal:     c.Images.DeleteOriginal,
		VariantConcurrency: c.Images.VariantConcurrency,
	}, nil
}
