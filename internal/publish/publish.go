// Package publish uploads composed videos to S3 and exposes their public
// URLs.
package publish

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog/log"

	"github.com/wordreel/wordreel/internal/pipeline"
)

// S3API is the subset of the S3 client the publisher needs.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Publisher stores videos in an S3 bucket under a deterministic key derived
// from the source photo name. Re-publishing the same photo overwrites the
// previous video.
type Publisher struct {
	client  S3API
	bucket  string
	region  string
	urlBase string
}

// New creates a Publisher for the given bucket. urlBase overrides the
// standard S3 public URL prefix when non-empty, for CDN fronted buckets.
func New(client S3API, bucket, region, urlBase string) *Publisher {
	return &Publisher{
		client:  client,
		bucket:  bucket,
		region:  region,
		urlBase: strings.TrimSuffix(urlBase, "/"),
	}
}

// ObjectKey returns the bucket key for a video derived from keyHint, the
// source photo's base name.
func ObjectKey(keyHint string) string {
	return fmt.Sprintf("videos/%s_video.mp4", keyHint)
}

// Publish uploads the video with a public-read ACL and returns its URL.
func (p *Publisher) Publish(ctx context.Context, video pipeline.VideoArtifact, keyHint string) (pipeline.PublishedResult, error) {
	key := ObjectKey(keyHint)

	f, err := os.Open(video.Path)
	if err != nil {
		return pipeline.PublishedResult{}, &pipeline.StageError{
			Stage: pipeline.StagePublication,
			Err:   fmt.Errorf("failed to open video for upload: %w", err),
		}
	}
	defer f.Close()

	log.Debug().
		Str("bucket", p.bucket).
		Str("key", key).
		Str("path", filepath.Base(video.Path)).
		Msg("Uploading video to S3")

	contentType := "video/mp4"
	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &p.bucket,
		Key:         &key,
		Body:        f,
		ContentType: &contentType,
		ACL:         types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return pipeline.PublishedResult{}, &pipeline.StageError{
			Stage: pipeline.StagePublication,
			Err:   classifyS3Error(err),
		}
	}

	url := p.publicURL(key)
	log.Info().Str("key", key).Str("url", url).Msg("Video published")

	return pipeline.PublishedResult{URL: url, Key: key}, nil
}

// classifyS3Error marks throttling and server-side S3 failures as transient
// so the caller can retry them. Access and validation errors are permanent.
func classifyS3Error(err error) error {
	wrapped := fmt.Errorf("failed to upload video to S3: %w", err)

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		code := respErr.HTTPStatusCode()
		if code == http.StatusTooManyRequests || code >= 500 {
			return pipeline.Transient(wrapped)
		}
	}
	return wrapped
}

func (p *Publisher) publicURL(key string) string {
	if p.urlBase != "" {
		return p.urlBase + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", p.bucket, p.region, key)
}
