package media

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"image/jpeg", KindImage},
		{"IMAGE/PNG", KindImage},
		{"video/mp4", KindVideo},
		{"application/pdf", KindFile},
		{"", KindFile},
		{"imagex/foo", KindFile},
	}
	for _, tt := range tests {
		if got := KindOf(tt.in); got != tt.want {
			t.Errorf("KindOf(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusProcessing, StatusReady, StatusFailed} {
		if !s.Valid() {
			t.Errorf("%q reported invalid", s)
		}
	}
	if Status("done").Valid() {
		t.Error("unknown status reported valid")
	}
}

func TestDerivedKeys(t *testing.T) {
	tests := []struct {
		src, thumb, medium string
	}{
		{"uploads/u1/1700000000-cat.jpg", "uploads/u1/1700000000-cat_thumb.jpg", "uploads/u1/1700000000-cat_medium.jpg"},
		{"uploads/u1/clip.tar.gz", "uploads/u1/clip.tar_thumb.jpg", "uploads/u1/clip.tar_medium.jpg"},
		{"uploads/u1/noext", "uploads/u1/noext_thumb.jpg", "uploads/u1/noext_medium.jpg"},
	}
	for _, tt := range tests {
		if got := ThumbnailKey(tt.src); got != tt.thumb {
			t.Errorf("ThumbnailKey(%q) = %q, want %q", tt.src, got, tt.thumb)
		}
		if got := MediumKey(tt.src); got != tt.medium {
			t.Errorf("MediumKey(%q) = %q, want %q", tt.src, got, tt.medium)
		}
	}
}

func TestUploadKey(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	got := UploadKey("42", "dir/../photo.png", now)
	want := "uploads/42/1700000000123-photo.png"
	if got != want {
		t.Errorf("UploadKey() = %q, want %q", got, want)
	}
}

func TestJobValidate(t *testing.T) {
	ok := Job{MediaID: "1", UserID: "2", S3Key: "k", FileType: "image/png"}
	if err := ok.Validate(); err != nil {
		t.Fatalf("Validate() on complete job: %v", err)
	}
	err := Job{MediaID: "1", UserID: "   "}.Validate()
	if err == nil {
		t.Fatal("Validate() on partial job returned nil")
	}
	for _, f := range []string{"userId", "s3Key", "fileType"} {
		if !strings.Contains(err.Error(), f) {
			t.Errorf("error %q does not name %s", err, f)
		}
	}
	if strings.Contains(err.Error(), "mediaId") {
		t.Errorf("error %q names a field that is set", err)
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	cases := []Metadata{
		&ImageMetadata{Width: 10, Height: 20, Format: "jpeg", ThumbnailKey: "a_thumb.jpg", MediumKey: "a_medium.jpg"},
		&VideoMetadata{Codec: UnknownCodec, ThumbnailKey: "v_thumb.jpg"},
		&FileMetadata{Size: 99, ContentType: "application/pdf"},
	}
	for _, m := range cases {
		data, err := MarshalMetadata(m)
		if err != nil {
			t.Fatalf("MarshalMetadata(%s): %v", m.Kind(), err)
		}
		if !strings.Contains(string(data), `"kind":"`+string(m.Kind())+`"`) {
			t.Errorf("encoded %s metadata lacks kind: %s", m.Kind(), data)
		}
		got, err := UnmarshalMetadata(data)
		if err != nil {
			t.Fatalf("UnmarshalMetadata(%s): %v", data, err)
		}
		if got.Kind() != m.Kind() || got.Thumbnail() != m.Thumbnail() {
			t.Errorf("round trip %s: got kind=%s thumb=%q", m.Kind(), got.Kind(), got.Thumbnail())
		}
	}
}

func TestVideoMetadataDurationNull(t *testing.T) {
	data, err := MarshalMetadata(&VideoMetadata{Codec: UnknownCodec, ThumbnailKey: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"duration":null`) {
		t.Errorf("video metadata = %s, want duration null", data)
	}
}

func TestUnmarshalMetadataUnknownKind(t *testing.T) {
	if _, err := UnmarshalMetadata([]byte(`{"kind":"audio"}`)); err == nil {
		t.Error("expected error for unknown kind")
	}
	m, err := UnmarshalMetadata([]byte("null"))
	if err != nil || m != nil {
		t.Errorf("UnmarshalMetadata(null) = %v, %v; want nil, nil", m, err)
	}
}

func TestRecordJSON(t *testing.T) {
	rec := Record{
		ID:       "7",
		OwnerID:  "1",
		Status:   StatusReady,
		Metadata: &FileMetadata{Size: 5, ContentType: "text/plain"},
	}
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatal(err)
	}
	var back Record
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal %s: %v", data, err)
	}
	fm, ok := back.Metadata.(*FileMetadata)
	if !ok {
		t.Fatalf("metadata type = %T, want *FileMetadata", back.Metadata)
	}
	if fm.Size != 5 || back.ID != "7" || back.Status != StatusReady {
		t.Errorf("round trip lost fields: %+v / %+v", back, fm)
	}
}
