package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "NODEPOP"

// Config holds all configuration for the service.
type Config struct {
	ServiceName string        `mapstructure:"service_name"`
	HTTP        HTTPConfig    `mapstructure:"http"`
	Store       StoreConfig   `mapstructure:"store"`
	Mongo       MongoConfig   `mapstructure:"mongo"`
	SQLite      SQLiteConfig  `mapstructure:"sqlite"`
	Storage     StorageConfig `mapstructure:"storage"`
	MinIO       MinIOConfig   `mapstructure:"minio"`
	Redis       RedisConfig   `mapstructure:"redis"`
	NATS        NATSConfig    `mapstructure:"nats"`
	Media       MediaConfig   `mapstructure:"media"`
	Log         LogConfig     `mapstructure:"log"`
	Tracing     TracingConfig `mapstructure:"tracing"`
	Auth        AuthConfig    `mapstructure:"auth"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// MaxUploadBytes caps the multipart body of a create request.
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"` // mongo | sqlite
}

type MongoConfig struct {
	URI            string        `mapstructure:"uri"`
	Database       string        `mapstructure:"database"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	MaxPoolSize    uint64        `mapstructure:"max_pool_size"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type SQLiteConfig struct {
	DSN string `mapstructure:"dsn"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"` // local | minio
	// LocalDir is where the local driver writes photos; also served at /images.
	LocalDir string `mapstructure:"local_dir"`
}

type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

type MediaConfig struct {
	MaxWidth    int   `mapstructure:"max_width"`
	MaxHeight   int   `mapstructure:"max_height"`
	MaxPixels   int64 `mapstructure:"max_pixels"`
	JPEGQuality int   `mapstructure:"jpeg_quality"`
	Workers     int64 `mapstructure:"workers"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputFile string `mapstructure:"output_file"`
}

type TracingConfig struct {
	Endpoint string `mapstructure:"endpoint"`
}

type AuthConfig struct {
	// JWTSecret enables bearer auth on listing creation when non-empty.
	JWTSecret string `mapstructure:"jwt_secret"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "nodepop")

	v.SetDefault("http.addr", ":3000")
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("http.max_upload_bytes", 10<<20)

	v.SetDefault("store.driver", "mongo")
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "nodepop")
	v.SetDefault("mongo.username", "")
	v.SetDefault("mongo.password", "")
	v.SetDefault("mongo.max_pool_size", 20)
	v.SetDefault("mongo.connect_timeout", 10*time.Second)
	v.SetDefault("sqlite.dsn", "file:nodepop.db?_pragma=foreign_keys(1)")

	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.local_dir", "./public/images")
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.access_key", "minioadmin")
	v.SetDefault("minio.secret_key", "minioadmin")
	v.SetDefault("minio.bucket", "listing-photos")
	v.SetDefault("minio.use_ssl", false)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 5*time.Minute)

	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject", "listing.created")

	v.SetDefault("media.max_width", 800)
	v.SetDefault("media.max_height", 4000)
	v.SetDefault("media.max_pixels", 25_000_000)
	v.SetDefault("media.jpeg_quality", 80)
	v.SetDefault("media.workers", 4)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_file", "stdout")

	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("auth.jwt_secret", "")
}

// Load reads .env (if present), then an optional yaml file at path, then
// NODEPOP_* environment variables, on top of the defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "mongo":
		if c.Mongo.URI == "" || c.Mongo.Database == "" {
			return errors.New("config: mongo.uri and mongo.database are required for the mongo store")
		}
	case "sqlite":
		if c.SQLite.DSN == "" {
			return errors.New("config: sqlite.dsn is required for the sqlite store")
		}
	default:
		return fmt.Errorf("config: unknown store.driver %q", c.Store.Driver)
	}

	switch c.Storage.Driver {
	case "local":
		if c.Storage.LocalDir == "" {
			return errors.New("config: storage.local_dir is required for local storage")
		}
	case "minio":
		if c.MinIO.Endpoint == "" || c.MinIO.Bucket == "" {
			return errors.New("config: minio.endpoint and minio.bucket are required for minio storage")
		}
	default:
		return fmt.Errorf("config: unknown storage.driver %q", c.Storage.Driver)
	}

	if c.Media.MaxWidth <= 0 {
		return fmt.Errorf("config: media.max_width must be positive, got %d", c.Media.MaxWidth)
	}
	if c.Media.MaxHeight < 0 || c.Media.MaxPixels < 0 {
		return fmt.Errorf("config: media.max_height and media.max_pixels must not be negative")
	}
	return nil
}
