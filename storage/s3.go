package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/ruteri/tee-provenance-registry/interfaces"
)

// S3Config describes an S3 or S3-compatible bucket.
type S3Config struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	// PathStyle is required by most self-hosted S3 implementations.
	PathStyle bool
}

// S3Backend stores content as objects under an optional key prefix.
// Without static credentials the SDK's default credential chain is used.
type S3Backend struct {
	client *s3.S3
	cfg    S3Config
	log    *slog.Logger
}

func NewS3Backend(cfg S3Config, log *slog.Logger) (*S3Backend, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket name is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	cfg.Prefix = strings.Trim(cfg.Prefix, "/")

	awsCfg := aws.NewConfig().
		WithRegion(cfg.Region).
		WithS3ForcePathStyle(cfg.PathStyle)
	if cfg.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint)
	}
	if cfg.AccessKey != "" {
		awsCfg = awsCfg.WithCredentials(credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, ""))
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return &S3Backend{client: s3.New(sess), cfg: cfg, log: log}, nil
}

func (b *S3Backend) key(id interfaces.ContentID, contentType interfaces.ContentType) string {
	return path.Join(b.cfg.Prefix, objectName(id, contentType))
}

func (b *S3Backend) Fetch(ctx context.Context, id interfaces.ContentID, contentType interfaces.ContentType) ([]byte, error) {
	out, err := b.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(b.key(id, contentType)),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && (aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound") {
			return nil, interfaces.ErrContentNotFound
		}
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}
	if err := verifyContent(id, data); err != nil {
		return nil, err
	}
	return data, nil
}

func (b *S3Backend) Store(ctx context.Context, data []byte, contentType interfaces.ContentType) (interfaces.ContentID, error) {
	id := interfaces.ComputeID(data)
	key := b.key(id, contentType)
	_, err := b.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return id, fmt.Errorf("failed to upload object to S3: %w", err)
	}
	b.log.Debug("Stored content in S3", "bucket", b.cfg.Bucket, "key", key)
	return id, nil
}

func (b *S3Backend) Available(ctx context.Context) bool {
	_, err := b.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{Bucket: aws.String(b.cfg.Bucket)})
	if err != nil {
		b.log.Debug("S3 backend unavailable", "bucket", b.cfg.Bucket, "err", err)
		return false
	}
	return true
}

func (b *S3Backend) Name() string {
	return "s3-" + b.cfg.Bucket
}

// LocationURI never includes credentials.
func (b *S3Backend) LocationURI() string {
	uri := fmt.Sprintf("s3://%s/%s?region=%s", b.cfg.Bucket, b.cfg.Prefix, b.cfg.Region)
	if b.cfg.Endpoint != "" {
		uri += "&endpoint=" + b.cfg.Endpoint
	}
	return uri
}
