package activities

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/roomcraft/roomcraft-backend/internal/redesign/domain"
)

// S3 allows up to 1000 objects per delete request.
const maxKeysPerDelete = 1000

// S3API is the part of the S3 client the purger needs.
type S3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// NewS3Client loads the default AWS credential chain. A custom endpoint
// switches to path-style addressing for S3-compatible stores.
func NewS3Client(ctx context.Context, region, endpoint string) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Purger deletes every stored artifact of a project: uploads, generated
// options and revisions all live under <prefix><project-id>/.
type Purger struct {
	client S3API
	bucket string
	prefix string
}

// NewPurger returns a purger. With no bucket configured Purge does nothing.
func NewPurger(client S3API, bucket, prefix string) *Purger {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Purger{client: client, bucket: bucket, prefix: prefix}
}

// Purge removes the project's objects page by page.
func (p *Purger) Purge(ctx context.Context, projectID string) error {
	if p == nil || p.client == nil || p.bucket == "" {
		return nil
	}
	if projectID == "" {
		return &domain.CollaboratorError{Kind: domain.ErrorKindInvalidInput, Message: "empty project id"}
	}

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(p.bucket),
		Prefix: aws.String(p.prefix + projectID + "/"),
	}
	for {
		page, err := p.client.ListObjectsV2(ctx, input)
		if err != nil {
			return &domain.CollaboratorError{Kind: domain.ErrorKindTransient, Message: "list objects", Retryable: true, Err: err}
		}

		keys := make([]string, 0, len(page.Contents))
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
		for start := 0; start < len(keys); start += maxKeysPerDelete {
			end := min(start+maxKeysPerDelete, len(keys))
			if err := p.deleteBatch(ctx, keys[start:end]); err != nil {
				return err
			}
		}

		if !aws.ToBool(page.IsTruncated) || page.NextContinuationToken == nil {
			return nil
		}
		input.ContinuationToken = page.NextContinuationToken
	}
}

func (p *Purger) deleteBatch(ctx context.Context, keys []string) error {
	objects := make([]types.ObjectIdentifier, 0, len(keys))
	for _, key := range keys {
		objects = append(objects, types.ObjectIdentifier{Key: aws.String(key)})
	}

	out, err := p.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(p.bucket),
		Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
	})
	if err != nil {
		return &domain.CollaboratorError{Kind: domain.ErrorKindTransient, Message: "delete objects", Retryable: true, Err: err}
	}
	if len(out.Errors) > 0 {
		first := out.Errors[0]
		return &domain.CollaboratorError{
			Kind:      domain.ErrorKindTransient,
			Message:   fmt.Sprintf("%d objects not deleted, first %s: %s", len(out.Errors), aws.ToString(first.Key), aws.ToString(first.Message)),
			Retryable: true,
		}
	}
	return nil
}
