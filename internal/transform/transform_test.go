package transform

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/devstream-shilpa/Media-Platform/internal/media"
)

type memWriter struct {
	objects map[string][]byte
	types   map[string]string
	failKey string
}

func newMemWriter() *memWriter {
	return &memWriter{objects: map[string][]byte{}, types: map[string]string{}}
}

func (w *memWriter) Put(_ context.Context, key string, data []byte, contentType string) error {
	if key == w.failKey {
		return errors.New("access denied")
	}
	w.objects[key] = data
	w.types[key] = contentType
	return nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func jpegSize(t *testing.T, data []byte) (int, int) {
	t.Helper()
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("derivative is not a JPEG: %v", err)
	}
	return cfg.Width, cfg.Height
}

func TestImageWideSource(t *testing.T) {
	w := newMemWriter()
	src := Source{Key: "uploads/7/1700000000-cat.jpg", DeclaredType: "image/jpeg", Body: pngBytes(t, 1000, 500)}

	res, err := New(w).Run(context.Background(), src)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	meta, ok := res.Metadata.(*media.ImageMetadata)
	if !ok {
		t.Fatalf("metadata type = %T", res.Metadata)
	}
	if meta.Width != 1000 || meta.Height != 500 || meta.Format != "png" {
		t.Errorf("metadata = %+v, want 1000x500 png", meta)
	}
	if res.ThumbnailKey != "uploads/7/1700000000-cat_thumb.jpg" || meta.MediumKey != "uploads/7/1700000000-cat_medium.jpg" {
		t.Errorf("keys = %q, %q", res.ThumbnailKey, meta.MediumKey)
	}

	if tw, th := jpegSize(t, w.objects[meta.ThumbnailKey]); tw != 300 || th != 300 {
		t.Errorf("thumbnail = %dx%d, want 300x300", tw, th)
	}
	if mw, mh := jpegSize(t, w.objects[meta.MediumKey]); mw != 800 || mh != 400 {
		t.Errorf("medium = %dx%d, want 800x400", mw, mh)
	}
	if w.types[meta.ThumbnailKey] != "image/jpeg" {
		t.Errorf("thumbnail content type = %q", w.types[meta.ThumbnailKey])
	}
}

// withOrientation splices a minimal little-endian EXIF APP1 segment carrying
// the given Orientation tag directly after the JPEG SOI marker.
func withOrientation(t *testing.T, jpg []byte, orientation uint16) []byte {
	t.Helper()
	if len(jpg) < 2 || jpg[0] != 0xFF || jpg[1] != 0xD8 {
		t.Fatal("not a JPEG")
	}
	var tiff bytes.Buffer
	tiff.WriteString("II")
	binary.Write(&tiff, binary.LittleEndian, uint16(42))
	binary.Write(&tiff, binary.LittleEndian, uint32(8)) // IFD0 offset
	binary.Write(&tiff, binary.LittleEndian, uint16(1)) // one entry
	binary.Write(&tiff, binary.LittleEndian, uint16(0x0112))
	binary.Write(&tiff, binary.LittleEndian, uint16(3)) // SHORT
	binary.Write(&tiff, binary.LittleEndian, uint32(1))
	binary.Write(&tiff, binary.LittleEndian, uint32(orientation))
	binary.Write(&tiff, binary.LittleEndian, uint32(0)) // no next IFD

	payload := append([]byte("Exif\x00\x00"), tiff.Bytes()...)
	var out bytes.Buffer
	out.Write(jpg[:2])
	out.Write([]byte{0xFF, 0xE1})
	binary.Write(&out, binary.BigEndian, uint16(len(payload)+2))
	out.Write(payload)
	out.Write(jpg[2:])
	return out.Bytes()
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(pngBytes(t, w, h)))
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestImageRotatedByEXIF(t *testing.T) {
	tests := []struct {
		name           string
		orientation    uint16
		wantW, wantH   int
		wantMW, wantMH int
	}{
		{"upright", 1, 1000, 500, 800, 400},
		{"rotate 90 cw", 6, 500, 1000, 400, 800},
		{"rotate 90 ccw", 8, 500, 1000, 400, 800},
		{"upside down", 3, 1000, 500, 800, 400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newMemWriter()
			body := withOrientation(t, jpegBytes(t, 1000, 500), tt.orientation)
			res, err := New(w).Run(context.Background(), Source{Key: "uploads/7/phone.jpg", DeclaredType: "image/jpeg", Body: body})
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			meta := res.Metadata.(*media.ImageMetadata)
			if meta.Width != tt.wantW || meta.Height != tt.wantH {
				t.Errorf("metadata = %dx%d, want %dx%d", meta.Width, meta.Height, tt.wantW, tt.wantH)
			}
			mw, mh := jpegSize(t, w.objects[meta.MediumKey])
			if mw != tt.wantMW || mh != tt.wantMH {
				t.Errorf("medium = %dx%d, want %dx%d", mw, mh, tt.wantMW, tt.wantMH)
			}
			if mw*meta.Height != mh*meta.Width {
				t.Errorf("medium %dx%d does not keep the %dx%d aspect ratio", mw, mh, meta.Width, meta.Height)
			}
		})
	}
}

func TestImageAspectRatios(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		wantMW, wantMH int
	}{
		{"tall", 600, 1200, 400, 800},
		{"small is not upscaled", 120, 80, 120, 80},
		{"square", 900, 900, 800, 800},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newMemWriter()
			res, err := New(w).Run(context.Background(), Source{Key: "uploads/1/a.png", DeclaredType: "image/png", Body: pngBytes(t, tt.w, tt.h)})
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			meta := res.Metadata.(*media.ImageMetadata)
			if tw, th := jpegSize(t, w.objects[meta.ThumbnailKey]); tw != 300 || th != 300 {
				t.Errorf("thumbnail = %dx%d, want 300x300", tw, th)
			}
			if mw, mh := jpegSize(t, w.objects[meta.MediumKey]); mw != tt.wantMW || mh != tt.wantMH {
				t.Errorf("medium = %dx%d, want %dx%d", mw, mh, tt.wantMW, tt.wantMH)
			}
		})
	}
}

func TestImageDecodeFailure(t *testing.T) {
	w := newMemWriter()
	_, err := New(w).Run(context.Background(), Source{Key: "uploads/1/bad.jpg", DeclaredType: "image/jpeg", Body: []byte("not an image")})
	if err == nil {
		t.Fatal("expected decode error")
	}
	if len(w.objects) != 0 {
		t.Errorf("no derivative should be written, got %d", len(w.objects))
	}
}

func TestImagePixelLimit(t *testing.T) {
	_, err := New(newMemWriter()).WithMaxPixels(100).Run(context.Background(), Source{Key: "k.png", DeclaredType: "image/png", Body: pngBytes(t, 20, 20)})
	if err == nil {
		t.Fatal("expected pixel limit error")
	}
}

func TestImageWriteFailure(t *testing.T) {
	w := newMemWriter()
	w.failKey = "uploads/1/a_medium.jpg"
	if _, err := New(w).Run(context.Background(), Source{Key: "uploads/1/a.png", DeclaredType: "image/png", Body: pngBytes(t, 50, 50)}); err == nil {
		t.Fatal("expected derivative write error")
	}
}

func TestVideoPlaceholder(t *testing.T) {
	w := newMemWriter()
	res, err := New(w).Run(context.Background(), Source{Key: "uploads/7/1700000000-clip.mp4", DeclaredType: "video/mp4", Body: []byte{0, 0, 0, 0x18}})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	meta, ok := res.Metadata.(*media.VideoMetadata)
	if !ok {
		t.Fatalf("metadata type = %T", res.Metadata)
	}
	if meta.Duration != nil || meta.Codec != media.UnknownCodec {
		t.Errorf("metadata = %+v, want unknown duration/codec", meta)
	}
	if res.ThumbnailKey != "uploads/7/1700000000-clip_thumb.jpg" {
		t.Errorf("thumbnail key = %q", res.ThumbnailKey)
	}
	if tw, th := jpegSize(t, w.objects[res.ThumbnailKey]); tw != 300 || th != 300 {
		t.Errorf("placeholder = %dx%d, want 300x300", tw, th)
	}
}

func TestPassThrough(t *testing.T) {
	w := newMemWriter()
	res, err := New(w).Run(context.Background(), Source{Key: "uploads/1/doc.pdf", DeclaredType: "application/pdf", Size: 1234})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	meta, ok := res.Metadata.(*media.FileMetadata)
	if !ok {
		t.Fatalf("metadata type = %T", res.Metadata)
	}
	if meta.Size != 1234 || meta.ContentType != "application/pdf" {
		t.Errorf("metadata = %+v", meta)
	}
	if res.ThumbnailKey != "" || len(w.objects) != 0 {
		t.Errorf("pass-through must not produce derivatives")
	}
}
