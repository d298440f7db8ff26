package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/devstream-shilpa/Media-Platform/internal/media"
)

// ErrInvalidJob is wrapped by every ParseJob failure.
var ErrInvalidJob = errors.New("invalid job")

// ParseJob decodes a queue message body. Unknown fields are ignored; all
// four job fields must be present and non-blank.
func ParseJob(body string) (media.Job, error) {
	var job media.Job
	if err := json.Unmarshal([]byte(body), &job); err != nil {
		return media.Job{}, fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}
	job.MediaID = strings.TrimSpace(job.MediaID)
	job.UserID = strings.TrimSpace(job.UserID)
	job.S3Key = strings.TrimSpace(job.S3Key)
	job.FileType = strings.TrimSpace(job.FileType)

	if err := job.Validate(); err != nil {
		return media.Job{}, fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}
	return job, nil
}
