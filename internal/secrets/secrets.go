// Package secrets retrieves the relational store's credential bundle.
//
// The bundle is fetched once per process and cached; every later call
// returns the same value (or the same error). Failure to retrieve is fatal
// at startup, so callers resolve it during init rather than per request.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"
)

// ErrMalformed is returned when the secret payload is not a usable bundle.
var ErrMalformed = errors.New("malformed credential bundle")

// Credentials is the database credential bundle.
type Credentials struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
}

// wireCredentials accepts both the field names used by RDS-managed secrets
// (dbname, port as number) and hand-written ones (database, port as string).
type wireCredentials struct {
	Host     string          `json:"host"`
	Port     json.RawMessage `json:"port"`
	Database string          `json:"database"`
	DBName   string          `json:"dbname"`
	Username string          `json:"username"`
	Password string          `json:"password"`
}

// Parse decodes a JSON credential bundle.
func Parse(payload []byte) (Credentials, error) {
	var w wireCredentials
	if err := json.Unmarshal(payload, &w); err != nil {
		return Credentials{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	c := Credentials{
		Host:     w.Host,
		Database: w.Database,
		Username: w.Username,
		Password: w.Password,
	}
	if c.Database == "" {
		c.Database = w.DBName
	}

	c.Port = 5432
	if len(w.Port) > 0 && string(w.Port) != "null" {
		raw := string(w.Port)
		if unq, err := strconv.Unquote(raw); err == nil {
			raw = unq
		}
		p, err := strconv.Atoi(raw)
		if err != nil || p <= 0 || p > 65535 {
			return Credentials{}, fmt.Errorf("%w: invalid port %s", ErrMalformed, w.Port)
		}
		c.Port = p
	}

	if c.Host == "" || c.Database == "" || c.Username == "" {
		return Credentials{}, fmt.Errorf("%w: host, database and username are required", ErrMalformed)
	}
	return c, nil
}

// DSN renders a postgres:// URL for pgx.
func (c Credentials) DSN(sslMode string, connectTimeout time.Duration) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.Username, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Database,
	}
	q := url.Values{}
	if sslMode != "" {
		q.Set("sslmode", sslMode)
	}
	if connectTimeout > 0 {
		q.Set("connect_timeout", strconv.Itoa(int(connectTimeout.Seconds())))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Redacted returns host:port/database for logging.
func (c Credentials) Redacted() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port)) + "/" + c.Database
}

// Fetcher returns the raw secret payload.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
	// Ref names the secret for logs.
	Ref() string
}

// SecretsManagerAPI is the subset of the Secrets Manager client used here.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsManagerFetcher reads a JSON SecretString.
type SecretsManagerFetcher struct {
	Client   SecretsManagerAPI
	SecretID string
}

func (f SecretsManagerFetcher) Fetch(ctx context.Context) ([]byte, error) {
	out, err := f.Client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(f.SecretID),
	})
	if err != nil {
		return nil, fmt.Errorf("secretsmanager GetSecretValue %s: %w", f.SecretID, err)
	}
	if out.SecretString == nil {
		return nil, fmt.Errorf("%w: secret %s has no string value", ErrMalformed, f.SecretID)
	}
	return []byte(*out.SecretString), nil
}

func (f SecretsManagerFetcher) Ref() string { return f.SecretID }

// SSMAPI is the subset of the SSM client used here.
type SSMAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// SSMFetcher reads a SecureString parameter holding the JSON bundle.
type SSMFetcher struct {
	Client SSMAPI
	Name   string
}

func (f SSMFetcher) Fetch(ctx context.Context) ([]byte, error) {
	out, err := f.Client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(f.Name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("ssm GetParameter %s: %w", f.Name, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return nil, fmt.Errorf("%w: parameter %s has no value", ErrMalformed, f.Name)
	}
	return []byte(*out.Parameter.Value), nil
}

func (f SSMFetcher) Ref() string { return f.Name }

// Provider caches the first fetch result for the process lifetime.
type Provider struct {
	fetcher Fetcher

	once  sync.Once
	creds Credentials
	err   error
}

// NewProvider returns a Provider backed by f.
func NewProvider(f Fetcher) *Provider {
	return &Provider{fetcher: f}
}

// Credentials fetches on first call and returns the cached result after.
// A failed first fetch is cached too; the process is expected to exit.
func (p *Provider) Credentials(ctx context.Context) (Credentials, error) {
	p.once.Do(func() {
		start := time.Now()
		payload, err := p.fetcher.Fetch(ctx)
		if err != nil {
			p.err = err
			return
		}
		p.creds, p.err = Parse(payload)
		if p.err == nil {
			log.Debug().Str("secret", p.fetcher.Ref()).Dur("elapsed", time.Since(start)).Msg("Database credentials loaded")
		}
	})
	return p.creds, p.err
}
