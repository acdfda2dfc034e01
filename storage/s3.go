package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3Config holds configuration for S3-compatible storage
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // Optional: for DO Spaces, R2, MinIO
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
}

// S3Archive keeps a copy of every raw feed submitted for import.
type S3Archive struct {
	client *s3.Client
	bucket string
	prefix string
	now    func() time.Time
}

func NewS3Archive(ctx context.Context, cfg S3Config) (*S3Archive, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var client *s3.Client
	if cfg.Endpoint != "" {
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	} else {
		client = s3.NewFromConfig(awsCfg)
	}

	return &S3Archive{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		now:    time.Now,
	}, nil
}

// Archive stores content under <prefix>/<tenant>/<yyyy>/<mm>/<dd>/<uuid>.<ext>
// and returns the key.
func (a *S3Archive) Archive(ctx context.Context, tenantID, content string) (string, error) {
	ext, contentType := sniffContent(content)
	key := ArchiveKey(a.prefix, tenantID, a.now(), uuid.NewString(), ext)

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader([]byte(content)),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return key, nil
}

func ArchiveKey(prefix, tenantID string, at time.Time, id, ext string) string {
	at = at.UTC()
	tenant := strings.ReplaceAll(strings.TrimSpace(tenantID), "/", "_")
	if tenant == "" {
		tenant = "_"
	}
	return path.Join(prefix, tenant, at.Format("2006"), at.Format("01"), at.Format("02"), id+"."+ext)
}

// sniffContent guesses the file extension and MIME type of a raw feed.
func sniffContent(content string) (ext, contentType string) {
	s := strings.TrimSpace(strings.TrimPrefix(content, "\ufeff"))
	switch {
	case strings.HasPrefix(s, "<"):
		if strings.Contains(strings.ToLower(s[:min(len(s), 512)]), "<html") {
			return "html", "text/html; charset=utf-8"
		}
		return "xml", "application/xml"
	case strings.HasPrefix(s, "{"), strings.HasPrefix(s, "["):
		return "json", "application/json"
	case strings.HasPrefix(s, "http://"), strings.HasPrefix(s, "https://"):
		if !strings.ContainsAny(s, " \n") {
			return "url", "text/uri-list"
		}
	}
	if strings.Contains(s, "\n") && strings.ContainsAny(s, ",;\t") {
		return "csv", "text/csv"
	}
	return "txt", "text/plain; charset=utf-8"
}
