package s3util

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const (
	projectTagKey   = "Project"
	projectTagValue = "media-platform"
)

// ProjectTagging returns the URL-encoded tagging string for PutObjectInput.
func ProjectTagging() *string {
	t := projectTagKey + "=" + projectTagValue
	return &t
}

// TagObject applies the Project cost-allocation tag to an existing object.
// Browser uploads through presigned PUT URLs cannot be tagged at creation.
func (s *Store) TagObject(ctx context.Context, key string) error {
	_, err := s.client.PutObjectTagging(ctx, &s3.PutObjectTaggingInput{
		Bucket: &s.bucket,
		Key:    &key,
		Tagging: &s3types.Tagging{
			TagSet: []s3types.Tag{
				{Key: aws.String(projectTagKey), Value: aws.String(projectTagValue)},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("PutObjectTagging: %w", err)
	}
	return nil
}
