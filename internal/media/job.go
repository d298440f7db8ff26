package media

import (
	"errors"
	"fmt"
	"path"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// Job is the queue message body that asks the worker to process one record.
//
// Produced by the API on confirm, consumed by the worker. The worker is
// idempotent on MediaID: a redelivered job re-runs the whole pipeline and
// overwrites the same derivative keys.
type Job struct {
	MediaID  string `json:"mediaId" validate:"notblank"`
	UserID   string `json:"userId" validate:"notblank"`
	S3Key    string `json:"s3Key" validate:"notblank"`
	FileType string `json:"fileType" validate:"notblank"`
}

var jobValidator = newJobValidator()

func newJobValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]; name != "" {
			return name
		}
		return f.Name
	})
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	return v
}

// Validate checks that every field is present and not blank. The error
// names the offending fields by their JSON names.
func (j Job) Validate() error {
	err := jobValidator.Struct(j)
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	missing := make([]string, 0, len(ve))
	for _, fe := range ve {
		missing = append(missing, fe.Field())
	}
	return fmt.Errorf("job missing required fields: %s", strings.Join(missing, ", "))
}

const (
	thumbSuffix  = "_thumb.jpg"
	mediumSuffix = "_medium.jpg"
)

// UploadKey is the object key a client PUTs the original to:
// uploads/{ownerID}/{unix milliseconds}-{fileName}.
func UploadKey(ownerID, fileName string, now time.Time) string {
	return fmt.Sprintf("uploads/%s/%d-%s", ownerID, now.UnixMilli(), path.Base(fileName))
}

// ThumbnailKey derives the thumbnail key from the original's key by
// replacing its extension. A key with no extension gets the suffix appended.
func ThumbnailKey(sourceKey string) string {
	return stripExt(sourceKey) + thumbSuffix
}

// MediumKey derives the medium-size derivative key the same way.
func MediumKey(sourceKey string) string {
	return stripExt(sourceKey) + mediumSuffix
}

func stripExt(key string) string {
	ext := path.Ext(key)
	if ext == "" || strings.Contains(ext, "/") {
		return key
	}
	return strings.TrimSuffix(key, ext)
}
