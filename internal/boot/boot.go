// Package boot holds the shared bootstrap used by every entry point: the two
// Lambdas and the mediactl subcommands.
//
// Each binary needs some subset of AWS config, S3, SQS, the Postgres pool
// (credentials from the secret provider), Redis, EventBridge and the JWT
// secret. Helpers here log and exit on failure, since a process that cannot
// reach its dependencies at startup has nothing useful to do.
package boot

import (
	"context"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/devstream-shilpa/Media-Platform/internal/api"
	"github.com/devstream-shilpa/Media-Platform/internal/auth"
	"github.com/devstream-shilpa/Media-Platform/internal/cache"
	"github.com/devstream-shilpa/Media-Platform/internal/config"
	"github.com/devstream-shilpa/Media-Platform/internal/events"
	"github.com/devstream-shilpa/Media-Platform/internal/logging"
	"github.com/devstream-shilpa/Media-Platform/internal/metrics"
	"github.com/devstream-shilpa/Media-Platform/internal/pipeline"
	"github.com/devstream-shilpa/Media-Platform/internal/queue"
	"github.com/devstream-shilpa/Media-Platform/internal/s3util"
	"github.com/devstream-shilpa/Media-Platform/internal/secrets"
	"github.com/devstream-shilpa/Media-Platform/internal/store"
	"github.com/devstream-shilpa/Media-Platform/internal/transform"
)

// AWSClients holds the AWS config and the SSM client several helpers share.
type AWSClients struct {
	Config aws.Config
	SSM    *ssm.Client
}

// InitAWS loads the default AWS config.
func InitAWS(ctx context.Context) AWSClients {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS config")
	}
	log.Debug().Str("region", cfg.Region).Msg("AWS config loaded")
	return AWSClients{
		Config: cfg,
		SSM:    ssm.NewFromConfig(cfg),
	}
}

// InitS3 creates the object store for bucket.
func InitS3(cfg aws.Config, bucket string) *s3util.Store {
	if bucket == "" {
		log.Fatal().Str("envVar", config.EnvPrefix+"_S3_BUCKET").Msg("Bucket environment variable is required")
	}
	client := s3.NewFromConfig(cfg)
	return s3util.New(client, s3.NewPresignClient(client), bucket)
}

// InitSQS creates an SQS client and checks the queue URL is configured.
func InitSQS(cfg aws.Config, queueURL string) *sqs.Client {
	if queueURL == "" {
		log.Fatal().Str("envVar", config.EnvPrefix+"_QUEUE_URL").Msg("Queue URL environment variable is required")
	}
	return sqs.NewFromConfig(cfg)
}

// InitEvents returns the EventBridge publisher, or nil when no bus is set.
func InitEvents(cfg aws.Config, ev config.EventConfig) *events.Publisher {
	if ev.BusName == "" {
		log.Debug().Msg("Event bus not set, lifecycle events disabled")
		return nil
	}
	return events.NewPublisher(eventbridge.NewFromConfig(cfg), ev.BusName, ev.Source)
}

// SecretProvider picks the credential source for the database. It returns
// nil when a literal URL is configured instead.
func SecretProvider(clients AWSClients, db config.DBConfig) *secrets.Provider {
	switch {
	case db.URL != "":
		return nil
	case db.SecretID != "":
		return secrets.NewProvider(secrets.SecretsManagerFetcher{
			Client:   secretsmanager.NewFromConfig(clients.Config),
			SecretID: db.SecretID,
		})
	case db.SecretParam != "":
		return secrets.NewProvider(secrets.SSMFetcher{Client: clients.SSM, Name: db.SecretParam})
	}
	log.Fatal().Msgf("One of %[1]s_DB_URL, %[1]s_DB_SECRET_ID or %[1]s_DB_SECRET_PARAM is required", config.EnvPrefix)
	return nil
}

// InitDB resolves credentials, opens the pool and optionally migrates.
// The returned label is safe to log.
func InitDB(ctx context.Context, clients AWSClients, db config.DBConfig) (*pgxpool.Pool, string) {
	dsn, label := db.URL, "url"
	if p := SecretProvider(clients, db); p != nil {
		creds, err := p.Credentials(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load database credentials")
		}
		dsn, label = creds.DSN(db.SSLMode, db.ConnectTimeout), creds.Redacted()
	}

	pool, err := store.OpenPool(ctx, dsn, store.PoolOptions{
		MaxConns:         db.MaxConns,
		ConnectTimeout:   db.ConnectTimeout,
		StatementTimeout: db.StatementTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Str("database", label).Msg("Failed to connect to Postgres")
	}
	if db.AutoMigrate {
		if err := store.Migrate(ctx, pool, "up"); err != nil {
			log.Fatal().Err(err).Msg("Database migration failed")
		}
		log.Info().Msg("Database migrations applied")
	}
	return pool, label
}

// InitCache connects to Redis.
func InitCache(ctx context.Context, c config.CacheConfig) *cache.Cache {
	lc, err := cache.New(ctx, cache.Options{
		Addr:         c.Addr,
		Password:     c.Password,
		DB:           c.DB,
		TLS:          c.TLS,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
		ListingTTL:   c.ListingTTL,
	})
	if err != nil {
		log.Fatal().Err(err).Str("addr", c.Addr).Msg("Failed to connect to Redis")
	}
	return lc
}

// LoadJWTSecret returns the signing secret, reading it from SSM when only a
// parameter name is configured.
func LoadJWTSecret(ctx context.Context, ssmClient secrets.SSMAPI, j config.JWTConfig) string {
	if j.Secret != "" {
		return j.Secret
	}
	if j.SecretParam == "" {
		log.Fatal().Msgf("%[1]s_JWT_SECRET or %[1]s_JWT_SECRET_PARAM is required", config.EnvPrefix)
	}
	start := time.Now()
	value, err := secrets.SSMFetcher{Client: ssmClient, Name: j.SecretParam}.Fetch(ctx)
	if err != nil {
		log.Fatal().Err(err).Str("param", j.SecretParam).Msg("Failed to read JWT secret from SSM")
	}
	log.Debug().Str("param", j.SecretParam).Dur("elapsed", time.Since(start)).Msg("JWT secret loaded from SSM")
	return string(value)
}

// Worker is the wired processing pipeline plus what the caller needs to
// shut it down.
type Worker struct {
	Processor *pipeline.Processor
	Pool      *pgxpool.Pool
	Cache     *cache.Cache
	SQS       *sqs.Client
	Startup   *logging.StartupLogger
}

// Close releases the pool and Redis client.
func (w *Worker) Close() {
	w.Pool.Close()
	if err := w.Cache.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close Redis client")
	}
}

// NewWorker wires the processing pipeline. withQueue also creates the SQS
// client for the long-poll consumer; the Lambda gets its messages from the
// event source instead.
func NewWorker(ctx context.Context, name string, cfg *config.Config, withQueue bool) *Worker {
	initStart := time.Now()
	clients := InitAWS(ctx)
	objects := InitS3(clients.Config, cfg.S3.Bucket)
	pool, dbLabel := InitDB(ctx, clients, cfg.DB)
	lc := InitCache(ctx, cfg.Cache)
	notify := InitEvents(clients.Config, cfg.Event)

	var sqsClient *sqs.Client
	if withQueue {
		sqsClient = InitSQS(clients.Config, cfg.Queue.URL)
	}

	proc := pipeline.NewProcessor(
		store.New(pool),
		objects,
		transform.New(objects).WithMaxPixels(cfg.Worker.MaxPixels),
		lc,
		notify,
		pipeline.Options{
			JobTimeout:    cfg.Worker.JobTimeout,
			Parallelism:   cfg.Worker.BatchParallelism,
			MaxImageBytes: cfg.Worker.MaxImageBytes,
		},
	)

	startup := StartupLog(name, initStart).
		S3Bucket("media", cfg.S3.Bucket).
		Database("postgres", dbLabel).
		Cache("redis", cfg.Cache.Addr).
		EventBus("lifecycle", cfg.Event.BusName).
		Feature("partialBatch", cfg.Worker.PartialBatch).
		Feature("events", notify != nil).
		Config("env", cfg.Env).
		Config("jobTimeout", cfg.Worker.JobTimeout.String()).
		Config("batchParallelism", strconv.Itoa(cfg.Worker.BatchParallelism)).
		Config("maxImageBytes", strconv.FormatInt(cfg.Worker.MaxImageBytes, 10)).
		Config("maxPixels", strconv.Itoa(cfg.Worker.MaxPixels))
	if withQueue {
		startup.Queue("jobs", cfg.Queue.URL)
	}
	return &Worker{Processor: proc, Pool: pool, Cache: lc, SQS: sqsClient, Startup: startup}
}

// APIServer is the wired HTTP service.
type APIServer struct {
	Server  *api.Server
	Pool    *pgxpool.Pool
	Cache   *cache.Cache
	Startup *logging.StartupLogger
}

// Close releases the pool and Redis client.
func (a *APIServer) Close() {
	a.Pool.Close()
	if err := a.Cache.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close Redis client")
	}
}

// NewAPIServer wires the HTTP service. lambdaMode switches request metrics
// from Prometheus to EMF.
func NewAPIServer(ctx context.Context, name string, cfg *config.Config, lambdaMode bool) *APIServer {
	initStart := time.Now()
	clients := InitAWS(ctx)
	objects := InitS3(clients.Config, cfg.S3.Bucket)
	jobs := queue.NewPublisher(InitSQS(clients.Config, cfg.Queue.URL), cfg.Queue.URL)
	pool, dbLabel := InitDB(ctx, clients, cfg.DB)
	lc := InitCache(ctx, cfg.Cache)

	tokens, err := auth.NewTokens(LoadJWTSecret(ctx, clients.SSM, cfg.JWT), cfg.JWT.Issuer, cfg.JWT.TTL)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid JWT configuration")
	}

	opts := api.Options{
		UploadURLTTL: cfg.S3.UploadURLTTL,
		ViewURLTTL:   cfg.S3.ViewURLTTL,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		EMF:          lambdaMode,
	}
	if !lambdaMode {
		opts.HTTP = metrics.NewHTTP()
	}
	srv := api.New(store.New(pool), lc, objects, jobs, tokens, opts)

	startup := StartupLog(name, initStart).
		S3Bucket("media", cfg.S3.Bucket).
		Queue("jobs", cfg.Queue.URL).
		Database("postgres", dbLabel).
		Cache("redis", cfg.Cache.Addr).
		Secret("jwt", cfg.JWT.SecretParam).
		Feature("prometheus", opts.HTTP != nil).
		Config("env", cfg.Env).
		Config("uploadUrlTtl", cfg.S3.UploadURLTTL.String()).
		Config("viewUrlTtl", cfg.S3.ViewURLTTL.String()).
		Config("listingTtl", cfg.Cache.ListingTTL.String())
	return &APIServer{Server: srv, Pool: pool, Cache: lc, Startup: startup}
}

// StartupLog is a convenience wrapper for the startup logger.
func StartupLog(name string, initStart time.Time) *logging.StartupLogger {
	return logging.NewStartupLogger(name).InitDuration(time.Since(initStart))
}
