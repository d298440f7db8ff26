// Package transform turns an uploaded original into derivatives and
// metadata. The kind is chosen from the declared content type:
//
//   - image/*  300x300 cropped thumbnail + medium (fit within 800x800)
//   - video/*  placeholder thumbnail, duration/codec left unknown
//   - other    no derivative, size and content type only
//
// Derivatives are written before Run returns, so a Result always refers to
// objects that exist.
package transform

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/devstream-shilpa/Media-Platform/internal/media"
)

// ObjectWriter stores a derivative.
type ObjectWriter interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// Source is an original as fetched from the object store. Body is only
// needed for images; other kinds are described by Size and ContentType.
type Source struct {
	Key          string
	DeclaredType string
	ContentType  string
	Size         int64
	Body         []byte
}

// Result is what the worker persists on success.
type Result struct {
	Kind         media.Kind
	Metadata     media.Metadata
	ThumbnailKey string
}

// DefaultMaxPixels caps decoded image area. A 100 MP frame decodes to about
// 400 MB of RGBA.
const DefaultMaxPixels = 100_000_000

// Transformer dispatches an original to the transform for its kind.
type Transformer struct {
	out       ObjectWriter
	maxPixels int
}

// New returns a Transformer writing derivatives to out.
func New(out ObjectWriter) *Transformer {
	return &Transformer{out: out, maxPixels: DefaultMaxPixels}
}

// WithMaxPixels overrides DefaultMaxPixels.
func (t *Transformer) WithMaxPixels(n int) *Transformer {
	t.maxPixels = n
	return t
}

// Run transforms src. Errors mean the media must be marked failed.
func (t *Transformer) Run(ctx context.Context, src Source) (Result, error) {
	kind := media.KindOf(src.DeclaredType)
	log.Debug().Str("key", src.Key).Str("kind", string(kind)).Int64("size", src.Size).Msg("Transforming media")

	switch kind {
	case media.KindImage:
		meta, err := t.image(ctx, src)
		if err != nil {
			return Result{}, err
		}
		return Result{Kind: kind, Metadata: meta, ThumbnailKey: meta.ThumbnailKey}, nil
	case media.KindVideo:
		meta, err := t.video(ctx, src)
		if err != nil {
			return Result{}, err
		}
		return Result{Kind: kind, Metadata: meta, ThumbnailKey: meta.ThumbnailKey}, nil
	default:
		return Result{Kind: kind, Metadata: passThrough(src)}, nil
	}
}

func passThrough(src Source) *media.FileMetadata {
	ct := src.ContentType
	if ct == "" {
		ct = src.DeclaredType
	}
	return &media.FileMetadata{Size: src.Size, ContentType: ct}
}

func (t *Transformer) put(ctx context.Context, key string, data []byte) error {
	if err := t.out.Put(ctx, key, data, "image/jpeg"); err != nil {
		return fmt.Errorf("store derivative %s: %w", key, err)
	}
	return nil
}
