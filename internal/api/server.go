// Package api is the HTTP surface of the media platform: accounts, upload
// URLs, confirmation (which enqueues processing), cached listings, status
// reads and sharing.
//
// The same Handler serves the long-running server (mediactl serve) and the
// API Lambda behind API Gateway.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/devstream-shilpa/Media-Platform/internal/auth"
	"github.com/devstream-shilpa/Media-Platform/internal/media"
	"github.com/devstream-shilpa/Media-Platform/internal/metrics"
	"github.com/devstream-shilpa/Media-Platform/internal/store"
)

// Store is the relational surface the handlers use. *store.Store satisfies it.
type Store interface {
	Ping(ctx context.Context) error
	CreateUser(ctx context.Context, email, passwordHash string) (*media.User, error)
	GetUserByEmail(ctx context.Context, email string) (*media.User, error)
	CreateMedia(ctx context.Context, in store.NewMedia) (*media.Record, error)
	GetMedia(ctx context.Context, id string) (*media.Record, error)
	ListByOwner(ctx context.Context, ownerID string) ([]media.Record, error)
	ListSharedWith(ctx context.Context, userID string) ([]media.Record, error)
	CanView(ctx context.Context, mediaID, userID string) (bool, error)
	CreateShare(ctx context.Context, mediaID, fromUserID, toUserID string) (bool, error)
}

// Cache is the listing cache. *cache.Cache satisfies it.
type Cache interface {
	Ping(ctx context.Context) error
	GetListing(ctx context.Context, key string) ([]media.Record, bool, error)
	SetListing(ctx context.Context, key string, recs []media.Record) error
	InvalidateKey(ctx context.Context, key string) error
}

// Presigner issues direct object URLs. *s3util.Store satisfies it.
type Presigner interface {
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
	PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, error)
}

// Enqueuer hands a job to the worker queue. *queue.Publisher satisfies it.
type Enqueuer interface {
	Enqueue(ctx context.Context, job media.Job) (string, error)
}

// Options configure the server. Zero TTLs take the defaults.
type Options struct {
	UploadURLTTL time.Duration
	ViewURLTTL   time.Duration
	MaxBodyBytes int64
	// HTTP, when set, records Prometheus request metrics and serves /metrics.
	HTTP *metrics.HTTP
	// EMF records per-request EMF lines instead; used inside Lambda.
	EMF bool
}

const (
	DefaultUploadURLTTL = 300 * time.Second
	DefaultViewURLTTL   = 604800 * time.Second
	defaultMaxBodyBytes = 64 << 10
)

// Server holds the handler dependencies.
type Server struct {
	store   Store
	cache   Cache
	objects Presigner
	jobs    Enqueuer
	tokens  *auth.Tokens
	opts    Options
	now     func() time.Time
}

// New builds a Server.
func New(st Store, c Cache, objects Presigner, jobs Enqueuer, tokens *auth.Tokens, opts Options) *Server {
	if opts.UploadURLTTL <= 0 {
		opts.UploadURLTTL = DefaultUploadURLTTL
	}
	if opts.ViewURLTTL <= 0 {
		opts.ViewURLTTL = DefaultViewURLTTL
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	return &Server{
		store:   st,
		cache:   c,
		objects: objects,
		jobs:    jobs,
		tokens:  tokens,
		opts:    opts,
		now:     time.Now,
	}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.routes()
}
