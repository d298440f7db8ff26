package media

import (
	"encoding/json"
	"fmt"
)

// UnknownCodec is written to video metadata until real probing exists.
const UnknownCodec = "unknown"

// Metadata is the per-kind attribute set written by the worker.
// The concrete types share field names on the wire (thumbnailKey in
// particular) so readers do not have to branch on kind.
type Metadata interface {
	Kind() Kind
	// Thumbnail returns the derivative key used as the record's thumbnail,
	// or "" when the kind produces none.
	Thumbnail() string
}

// ImageMetadata describes an image source and its two derivatives.
type ImageMetadata struct {
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Format       string `json:"format"`
	ThumbnailKey string `json:"thumbnailKey"`
	MediumKey    string `json:"mediumKey"`
	CameraMake   string `json:"cameraMake,omitempty"`
	CameraModel  string `json:"cameraModel,omitempty"`
	TakenAt      string `json:"takenAt,omitempty"`
}

func (m *ImageMetadata) Kind() Kind        { return KindImage }
func (m *ImageMetadata) Thumbnail() string { return m.ThumbnailKey }

// VideoMetadata is the placeholder shape for video. Duration is always
// present on the wire; nil encodes as null, meaning "not probed".
type VideoMetadata struct {
	Duration     *float64 `json:"duration"`
	Codec        string   `json:"codec"`
	ThumbnailKey string   `json:"thumbnailKey"`
}

func (m *VideoMetadata) Kind() Kind        { return KindVideo }
func (m *VideoMetadata) Thumbnail() string { return m.ThumbnailKey }

// FileMetadata is kept for pass-through media that gets no derivative.
type FileMetadata struct {
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
}

func (m *FileMetadata) Kind() Kind        { return KindFile }
func (m *FileMetadata) Thumbnail() string { return "" }

// MarshalMetadata encodes m with a "kind" discriminator. A nil Metadata
// encodes as JSON null.
func MarshalMetadata(m Metadata) ([]byte, error) {
	if m == nil {
		return []byte("null"), nil
	}
	body, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal %s metadata: %w", m.Kind(), err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("reshape %s metadata: %w", m.Kind(), err)
	}
	fields["kind"] = json.RawMessage(fmt.Sprintf("%q", m.Kind()))
	return json.Marshal(fields)
}

// UnmarshalMetadata decodes the output of MarshalMetadata. Empty input and
// JSON null return (nil, nil).
func UnmarshalMetadata(data []byte) (Metadata, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var probe struct {
		Kind Kind `json:"kind"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode metadata kind: %w", err)
	}

	var m Metadata
	switch probe.Kind {
	case KindImage:
		m = &ImageMetadata{}
	case KindVideo:
		m = &VideoMetadata{}
	case KindFile:
		m = &FileMetadata{}
	default:
		return nil, fmt.Errorf("unknown metadata kind %q", probe.Kind)
	}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("decode %s metadata: %w", probe.Kind, err)
	}
	return m, nil
}

// MarshalJSON lets Record embed the tagged union directly.
func (r Record) MarshalJSON() ([]byte, error) {
	type plain Record
	meta, err := MarshalMetadata(r.Metadata)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		plain
		Metadata json.RawMessage `json:"metadata"`
	}{plain: plain(r), Metadata: meta})
}

// UnmarshalJSON is the inverse of MarshalJSON; the listing cache relies on it.
func (r *Record) UnmarshalJSON(data []byte) error {
	type plain Record
	aux := struct {
		*plain
		Metadata json.RawMessage `json:"metadata"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	meta, err := UnmarshalMetadata(aux.Metadata)
	if err != nil {
		return err
	}
	r.Metadata = meta
	return nil
}
