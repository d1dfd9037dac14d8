package backup

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "contextgate/config"
	"contextgate/logger"
)

const uploadTimeout = 2 * time.Minute

// putter is the part of the S3 client the mirror needs.
type putter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Mirror copies journal backups and exports into a bucket under a prefix.
// It satisfies trade.Mirror.
type S3Mirror struct {
	client  putter
	bucket  string
	prefix  string
	version string
	log     *logger.Log
}

// NewS3Mirror builds a mirror from the storage.s3 section. Static credentials
// are used when both keys are set, otherwise the default AWS chain applies.
func NewS3Mirror(ctx context.Context, cfg *appconfig.Config) (*S3Mirror, error) {
	if !cfg.Storage.S3.Enabled {
		return nil, fmt.Errorf("s3 storage disabled")
	}
	bucket, err := normalizeBucketName(cfg.Storage.S3.Bucket)
	if err != nil {
		return nil, err
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Storage.S3.Region)}
	if cfg.Storage.S3.AccessKeyID != "" && cfg.Storage.S3.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.Storage.S3.AccessKeyID,
				cfg.Storage.S3.SecretAccessKey,
				"",
			),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.S3.Endpoint)
		}
		o.UsePathStyle = cfg.Storage.S3.PathStyle
	})
	return newS3Mirror(client, bucket, cfg.Storage.S3.Prefix, cfg.App.Version), nil
}

func newS3Mirror(client putter, bucket, prefix, version string) *S3Mirror {
	return &S3Mirror{
		client:  client,
		bucket:  bucket,
		prefix:  strings.Trim(prefix, "/"),
		version: version,
		log:     logger.GetLogger(),
	}
}

func normalizeBucketName(raw string) (string, error) {
	bucket := strings.TrimSpace(raw)
	if bucket == "" {
		return "", fmt.Errorf("s3 bucket not configured")
	}
	return bucket, nil
}

// Key is the object key a local file is stored under.
func (m *S3Mirror) Key(localPath string) string {
	name := filepath.Base(localPath)
	if m.prefix == "" {
		return name
	}
	return path.Join(m.prefix, name)
}

// Upload copies a local file to the bucket.
func (m *S3Mirror) Upload(ctx context.Context, localPath string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", localPath, err)
	}
	return m.Put(ctx, m.Key(localPath), data, contentType(localPath))
}

// Put stores data under key.
func (m *S3Mirror) Put(ctx context.Context, key string, data []byte, ct string) error {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	start := time.Now()
	_, err := m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(ct),
		Metadata: map[string]string{
			"contextgate-version": m.version,
		},
	})
	entry := m.log.WithComponent("s3_mirror").WithFields(logger.Fields{
		"bucket": m.bucket,
		"key":    key,
		"bytes":  len(data),
	})
	if err != nil {
		entry.WithError(err).Error("failed to upload to s3")
		return fmt.Errorf("upload %s: %w", key, err)
	}
	logger.LogPerformanceEntry(entry, "s3_mirror", "put_object", time.Since(start), nil)
	entry.Info("uploaded to s3")
	return nil
}

func contentType(p string) string {
	if strings.EqualFold(filepath.Ext(p), ".csv") {
		return "text/csv"
	}
	return "application/octet-stream"
}
