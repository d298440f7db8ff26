package s3util

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// ErrTooLarge is returned by Get when the object exceeds the caller's cap.
var ErrTooLarge = errors.New("object exceeds size limit")

// Object is a fetched blob. Body is nil when only metadata was requested.
type Object struct {
	Body        []byte
	Size        int64
	ContentType string
}

// Get downloads key into memory, reading at most maxBytes. Larger objects
// return an error wrapping ErrTooLarge; the declared length is checked
// before any byte is read. A missing key returns an error wrapping
// ErrNotFound.
func (s *Store) Get(ctx context.Context, key string, maxBytes int64) (*Object, error) {
	log.Debug().Str("bucket", s.bucket).Str("key", key).Int64("maxBytes", maxBytes).Msg("Downloading from S3")
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket, Key: &key,
	})
	if err != nil {
		return nil, wrapGetErr("GetObject", key, err)
	}
	defer result.Body.Close()

	if n := aws.ToInt64(result.ContentLength); n > maxBytes {
		return nil, fmt.Errorf("%s is %d bytes, cap %d: %w", key, n, maxBytes, ErrTooLarge)
	}
	body, err := io.ReadAll(io.LimitReader(result.Body, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	if int64(len(body)) > maxBytes {
		return nil, fmt.Errorf("%s exceeds cap %d: %w", key, maxBytes, ErrTooLarge)
	}
	return &Object{
		Body:        body,
		Size:        int64(len(body)),
		ContentType: aws.ToString(result.ContentType),
	}, nil
}

// Stat returns size and content type without transferring the body.
func (s *Store) Stat(ctx context.Context, key string) (*Object, error) {
	result, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &s.bucket, Key: &key,
	})
	if err != nil {
		return nil, wrapGetErr("HeadObject", key, err)
	}
	return &Object{
		Size:        aws.ToInt64(result.ContentLength),
		ContentType: aws.ToString(result.ContentType),
	}, nil
}

func wrapGetErr(op, key string, err error) error {
	if isNotFound(err) {
		return fmt.Errorf("S3 %s %s: %w: %v", op, key, ErrNotFound, err)
	}
	return fmt.Errorf("S3 %s %s: %w", op, key, err)
}
