// Package config loads process configuration from MEDIA_* environment
// variables. A .env file in the working directory is read first when present,
// which is how local runs of mediactl are configured.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is prepended to every variable, e.g. MEDIA_S3_BUCKET.
const EnvPrefix = "MEDIA"

type Config struct {
	Env    string       `envconfig:"ENV" default:"dev"`
	Log    LogConfig    `envconfig:"LOG"`
	S3     S3Config     `envconfig:"S3"`
	Queue  QueueConfig  `envconfig:"QUEUE"`
	DB     DBConfig     `envconfig:"DB"`
	Cache  CacheConfig  `envconfig:"CACHE"`
	Worker WorkerConfig `envconfig:"WORKER"`
	JWT    JWTConfig    `envconfig:"JWT"`
	Event  EventConfig  `envconfig:"EVENT"`
	Server ServerConfig `envconfig:"SERVER"`
}

type LogConfig struct {
	Level  string `envconfig:"LEVEL" default:"info"`
	Format string `envconfig:"FORMAT" default:"json"`
}

type S3Config struct {
	Bucket       string        `envconfig:"BUCKET"`
	UploadURLTTL time.Duration `envconfig:"UPLOAD_URL_TTL" default:"300s"`
	ViewURLTTL   time.Duration `envconfig:"VIEW_URL_TTL" default:"168h"`
}

type QueueConfig struct {
	URL               string        `envconfig:"URL"`
	WaitTime          time.Duration `envconfig:"WAIT_TIME" default:"20s"`
	VisibilityTimeout time.Duration `envconfig:"VISIBILITY_TIMEOUT" default:"6m"`
	MaxMessages       int32         `envconfig:"MAX_MESSAGES" default:"10"`
}

// DBConfig selects where database credentials come from. URL wins when set
// (local development); otherwise the credential bundle is read once from
// Secrets Manager (SecretID) or an SSM SecureString (SecretParam).
type DBConfig struct {
	URL              string        `envconfig:"URL"`
	SecretID         string        `envconfig:"SECRET_ID"`
	SecretParam      string        `envconfig:"SECRET_PARAM"`
	SSLMode          string        `envconfig:"SSLMODE" default:"require"`
	MaxConns         int32         `envconfig:"MAX_CONNS" default:"10"`
	ConnectTimeout   time.Duration `envconfig:"CONNECT_TIMEOUT" default:"5s"`
	StatementTimeout time.Duration `envconfig:"STATEMENT_TIMEOUT" default:"30s"`
	AutoMigrate      bool          `envconfig:"AUTO_MIGRATE" default:"false"`
}

type CacheConfig struct {
	Addr         string        `envconfig:"ADDR"`
	Password     string        `envconfig:"PASSWORD"`
	DB           int           `envconfig:"DB" default:"0"`
	TLS          bool          `envconfig:"TLS" default:"false"`
	ListingTTL   time.Duration `envconfig:"LISTING_TTL" default:"300s"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"3s"`
}

// WorkerConfig tunes the processing worker. MaxImageBytes caps how much of
// an image original is read into memory; MaxPixels caps decoded area.
type WorkerConfig struct {
	JobTimeout       time.Duration `envconfig:"JOB_TIMEOUT" default:"5m"`
	BatchParallelism int           `envconfig:"BATCH_PARALLELISM" default:"1"`
	PartialBatch     bool          `envconfig:"PARTIAL_BATCH" default:"true"`
	MaxImageBytes    int64         `envconfig:"MAX_IMAGE_BYTES" default:"52428800"`
	MaxPixels        int           `envconfig:"MAX_PIXELS" default:"100000000"`
}

// JWTConfig holds token settings. SecretParam names an SSM SecureString
// used when Secret is empty.
type JWTConfig struct {
	Secret      string        `envconfig:"SECRET"`
	SecretParam string        `envconfig:"SECRET_PARAM"`
	Issuer      string        `envconfig:"ISSUER" default:"media-platform"`
	TTL         time.Duration `envconfig:"TTL" default:"24h"`
}

type EventConfig struct {
	BusName string `envconfig:"BUS_NAME"`
	Source  string `envconfig:"SOURCE" default:"media-platform"`
}

type ServerConfig struct {
	Addr            string        `envconfig:"ADDR" default:":8080"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"20s"`
	MaxBodyBytes    int64         `envconfig:"MAX_BODY_BYTES" default:"65536"`
}

// Load reads .env (if any) and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Worker.BatchParallelism < 1 {
		return fmt.Errorf("%s_WORKER_BATCH_PARALLELISM must be >= 1, got %d", EnvPrefix, c.Worker.BatchParallelism)
	}
	if c.Worker.MaxImageBytes <= 0 || c.Worker.MaxPixels <= 0 {
		return fmt.Errorf("%s_WORKER_MAX_IMAGE_BYTES and %s_WORKER_MAX_PIXELS must be positive", EnvPrefix, EnvPrefix)
	}
	if c.Worker.JobTimeout <= 0 {
		return fmt.Errorf("%s_WORKER_JOB_TIMEOUT must be positive", EnvPrefix)
	}
	if c.Queue.MaxMessages < 1 || c.Queue.MaxMessages > 10 {
		return fmt.Errorf("%s_QUEUE_MAX_MESSAGES must be between 1 and 10, got %d", EnvPrefix, c.Queue.MaxMessages)
	}
	if c.DB.ConnectTimeout <= 0 || c.DB.StatementTimeout <= 0 {
		return fmt.Errorf("%s_DB_CONNECT_TIMEOUT and %s_DB_STATEMENT_TIMEOUT must be positive", EnvPrefix, EnvPrefix)
	}
	if c.Cache.ListingTTL <= 0 {
		return fmt.Errorf("%s_CACHE_LISTING_TTL must be positive", EnvPrefix)
	}
	return nil
}

