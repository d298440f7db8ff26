// Package media holds the domain types shared by the API service and the
// processing worker: the media record and its status machine, the job
// descriptor carried on the queue, and the object key conventions.
package media

import (
	"strings"
	"time"
)

// Status is the processing state of a media record.
//
// Transitions only pending -> processing -> {ready, failed}. Redelivery of a
// job by the queue re-enters processing from whatever state the record is in.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusFailed     Status = "failed"
)

// Valid reports whether s is one of the four known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusReady, StatusFailed:
		return true
	}
	return false
}

// Kind is the coarse media family, derived from the declared content type.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
	KindFile  Kind = "file"
)

// KindOf maps a declared content type to its Kind by prefix.
// Anything that is not image/* or video/* is a plain file.
func KindOf(declaredType string) Kind {
	t := strings.ToLower(strings.TrimSpace(declaredType))
	switch {
	case strings.HasPrefix(t, "image/"):
		return KindImage
	case strings.HasPrefix(t, "video/"):
		return KindVideo
	default:
		return KindFile
	}
}

// Record is a media row as served by the status API.
type Record struct {
	ID           string     `json:"id"`
	OwnerID      string     `json:"ownerId"`
	ObjectKey    string     `json:"s3Key"`
	FileName     string     `json:"fileName"`
	FileType     string     `json:"fileType"`
	Status       Status     `json:"status"`
	Metadata     Metadata   `json:"metadata"`
	ThumbnailKey string     `json:"thumbnailKey,omitempty"`
	ErrorDetail  string     `json:"errorDetail,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	ProcessedAt  *time.Time `json:"processedAt"`
}

// User is an account that owns media.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
