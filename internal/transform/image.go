package transform

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/evanoberholster/imagemeta"
	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/devstream-shilpa/Media-Platform/internal/media"
)

const (
	ThumbnailSize    = 300
	ThumbnailQuality = 80
	MediumMaxSide    = 800
	MediumQuality    = 85
)

func (t *Transformer) image(ctx context.Context, src Source) (*media.ImageMetadata, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(src.Body))
	if err != nil {
		return nil, fmt.Errorf("decode image header: %w", err)
	}
	if t.maxPixels > 0 && cfg.Width*cfg.Height > t.maxPixels {
		return nil, fmt.Errorf("image %dx%d exceeds %d pixel limit", cfg.Width, cfg.Height, t.maxPixels)
	}

	img, err := imaging.Decode(bytes.NewReader(src.Body), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	// Dimensions as displayed, after EXIF orientation.
	bounds := img.Bounds()
	meta := &media.ImageMetadata{
		Width:        bounds.Dx(),
		Height:       bounds.Dy(),
		Format:       format,
		ThumbnailKey: media.ThumbnailKey(src.Key),
		MediumKey:    media.MediumKey(src.Key),
	}

	thumb, err := encodeJPEG(imaging.Fill(img, ThumbnailSize, ThumbnailSize, imaging.Center, imaging.Lanczos), ThumbnailQuality)
	if err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	if err := t.put(ctx, meta.ThumbnailKey, thumb); err != nil {
		return nil, err
	}

	// Fit never upscales: a source already inside the box is re-encoded as is.
	medium, err := encodeJPEG(imaging.Fit(img, MediumMaxSide, MediumMaxSide, imaging.Lanczos), MediumQuality)
	if err != nil {
		return nil, fmt.Errorf("encode medium: %w", err)
	}
	if err := t.put(ctx, meta.MediumKey, medium); err != nil {
		return nil, err
	}

	applyCaptureInfo(meta, src.Body)

	log.Debug().
		Str("key", src.Key).
		Int("width", meta.Width).
		Int("height", meta.Height).
		Str("format", format).
		Int("thumbBytes", len(thumb)).
		Int("mediumBytes", len(medium)).
		Msg("Image derivatives written")
	return meta, nil
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// applyCaptureInfo adds camera and capture time from EXIF when present.
// Images without EXIF (PNG, screenshots) are normal, so failures are ignored.
func applyCaptureInfo(meta *media.ImageMetadata, body []byte) {
	defer func() {
		if r := recover(); r != nil {
			log.Debug().Interface("panic", r).Msg("EXIF parser panicked; skipping capture info")
		}
	}()

	exifData, err := imagemeta.Decode(bytes.NewReader(body))
	if err != nil {
		return
	}
	meta.CameraMake = strings.TrimSpace(exifData.Make)
	meta.CameraModel = strings.TrimSpace(exifData.Model)
	if taken := exifData.DateTimeOriginal(); !taken.IsZero() {
		meta.TakenAt = taken.UTC().Format(time.RFC3339)
	}
}
