package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"

	appconfig "package-dashboard/internal/config"
)

// Client stores snapshot objects in an S3-compatible bucket (MinIO in development).
type Client struct {
	s3     *s3.Client
	bucket string
}

func New(ctx context.Context, c appconfig.Storage) (*Client, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("object storage is not configured")
	}
	endpoint := c.Endpoint
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(c.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, "")),
	)
	if err != nil {
		return nil, err
	}
	cli := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})
	return &Client{s3: cli, bucket: c.Bucket}, nil
}

// SnapshotKey names a new export object.
func SnapshotKey(now time.Time) string {
	return fmt.Sprintf("snapshots/packages-%s.json", now.UTC().Format("20060102T150405Z"))
}

// Put uploads body under key and returns its s3:// reference.
func (c *Client) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &c.bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", err
	}
	ref := fmt.Sprintf("s3://%s/%s", c.bucket, key)
	logrus.WithFields(logrus.Fields{"ref": ref, "bytes": len(body)}).Debug("stored object")
	return ref, nil
}

// Open streams the object behind an s3:// reference. Callers close the reader.
func (c *Client) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	bucket, key, err := ParseRef(ref)
	if err != nil {
		return nil, err
	}
	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", ref, err)
	}
	return out.Body, nil
}

// IsRef reports whether s looks like an s3:// reference.
func IsRef(s string) bool {
	return strings.HasPrefix(s, "s3://")
}

func ParseRef(ref string) (string, string, error) {
	const p = "s3://"
	if !strings.HasPrefix(ref, p) {
		return "", "", fmt.Errorf("bad s3 ref (missing s3://): %q", ref)
	}
	s := strings.TrimPrefix(ref, p)
	slash := strings.IndexByte(s, '/')
	if slash <= 0 || slash == len(s)-1 {
		return "", "", fmt.Errorf("bad s3 ref (need bucket/key): %q", ref)
	}
	return s[:slash], s[slash+1:], nil
}
