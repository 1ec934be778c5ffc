// Package backup stores export documents outside the ledger store, either
// in a local directory or in an S3-compatible bucket.
package backup

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"ledger/internal/bundle"
	applog "ledger/internal/log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Sink persists one backup object and returns where it ended up.
type Sink interface {
	Put(ctx context.Context, key string, data []byte) (string, error)
}

// Exporter builds the export document of a user.
type Exporter interface {
	Export(ctx context.Context, userID string) (bundle.Document, error)
}

// Key names the backup of userID taken at now.
func Key(userID string, now time.Time) string {
	return path.Join(userID, bundle.BackupFileName(now))
}

// Run exports userID and writes the document to sink.
func Run(ctx context.Context, exp Exporter, sink Sink, userID string, now time.Time) (string, error) {
	doc, err := exp.Export(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("backup: %w", err)
	}
	data, err := bundle.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("backup: %w", err)
	}

	location, err := sink.Put(ctx, Key(userID, now), data)
	if err != nil {
		return "", fmt.Errorf("backup: %w", err)
	}

	applog.Default(applog.ComponentBackup).InfoContext(ctx, "Backup stored",
		applog.FieldUserID, userID, "location", location, "bytes", len(data))
	return location, nil
}

// DirSink writes backups below a local directory.
type DirSink struct {
	dir string
}

func NewDirSink(dir string) *DirSink {
	return &DirSink{dir: dir}
}

func (s *DirSink) Put(_ context.Context, key string, data []byte) (string, error) {
	target := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}
	if err := os.WriteFile(target, data, 0o600); err != nil {
		return "", fmt.Errorf("write backup file: %w", err)
	}
	return target, nil
}

// S3Config selects the bucket and, optionally, a custom endpoint such as a
// MinIO server. Static credentials are used when AccessKey is set;
// otherwise the default AWS credential chain applies.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Prefix    string
}

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink uploads backups as objects.
type S3Sink struct {
	client objectPutter
	bucket string
	prefix string
}

func NewS3Sink(ctx context.Context, cfg S3Config) (*S3Sink, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 backup: bucket is required")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Sink{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *S3Sink) Put(ctx context.Context, key string, data []byte) (string, error) {
	objectKey := path.Join(s.prefix, key)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", objectKey, err)
	}
	return "s3://" + s.bucket + "/" + objectKey, nil
}
