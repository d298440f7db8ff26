package transform

import (
	"context"
	"image/color"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/devstream-shilpa/Media-Platform/internal/media"
)

var (
	placeholderOnce sync.Once
	placeholderJPEG []byte
	placeholderErr  error
)

// placeholder is a mid-gray square the size of an image thumbnail.
func placeholder() ([]byte, error) {
	placeholderOnce.Do(func() {
		img := imaging.New(ThumbnailSize, ThumbnailSize, color.Gray{Y: 128})
		placeholderJPEG, placeholderErr = encodeJPEG(img, ThumbnailQuality)
	})
	return placeholderJPEG, placeholderErr
}

// video writes the placeholder thumbnail. No frames are read; duration and
// codec stay at their unknown values until real probing replaces this body.
func (t *Transformer) video(ctx context.Context, src Source) (*media.VideoMetadata, error) {
	data, err := placeholder()
	if err != nil {
		return nil, err
	}
	meta := &media.VideoMetadata{
		Duration:     nil,
		Codec:        media.UnknownCodec,
		ThumbnailKey: media.ThumbnailKey(src.Key),
	}
	if err := t.put(ctx, meta.ThumbnailKey, data); err != nil {
		return nil, err
	}
	return meta, nil
}
