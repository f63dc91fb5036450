// Package media stores uploaded images in an S3-compatible bucket and hands
// back retrievable URLs. Payloads arrive as base64 data URLs, the format the
// browser client produces from a file picker.
package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrBadDataURL = errors.New("payload is not a base64 data URL")
	ErrNotImage   = errors.New("payload is not an image")
)

// Config defines blob store parameters parsed from environment variables.
// Endpoint stays empty for real AWS; set it for minio and friends.
type Config struct {
	Region        string `env:"S3_REGION" envDefault:"us-east-1"`
	Endpoint      string `env:"S3_ENDPOINT"`
	Bucket        string `env:"S3_BUCKET" envDefault:"chatwire-media"`
	AccessKey     string `env:"S3_ACCESS_KEY"`
	SecretKey     string `env:"S3_SECRET_KEY"`
	PublicBaseURL string `env:"S3_PUBLIC_BASE_URL"`
}

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Uploader writes image blobs to a bucket.
type Uploader struct {
	logger  *zap.SugaredLogger
	client  objectPutter
	bucket  string
	baseURL string
}

func New(ctx context.Context, logger *zap.SugaredLogger, cfg Config) (*Uploader, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	baseURL := strings.TrimSuffix(cfg.PublicBaseURL, "/")
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}

	return &Uploader{
		logger:  logger,
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: baseURL,
	}, nil
}

// UploadDataURL decodes a base64 data URL, verifies the payload really is an
// image, uploads it and returns the public URL. The declared media type in
// the data URL header is ignored; the sniffed one wins.
func (u *Uploader) UploadDataURL(ctx context.Context, dataURL string) (string, error) {
	raw, err := decodeDataURL(dataURL)
	if err != nil {
		return "", err
	}

	mt := mimetype.Detect(raw)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", ErrNotImage
	}

	key := objectKey(mt.Extension())
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(raw),
		ContentType: aws.String(mt.String()),
	})
	if err != nil {
		return "", fmt.Errorf("uploading object %s: %w", key, err)
	}

	url := u.baseURL + "/" + key
	u.logger.Debugw("image uploaded", "key", key, "bytes", len(raw), "content_type", mt.String())

	return url, nil
}

func decodeDataURL(dataURL string) ([]byte, error) {
	if !strings.HasPrefix(dataURL, "data:") {
		return nil, ErrBadDataURL
	}
	_, payload, found := strings.Cut(dataURL, ";base64,")
	if !found {
		return nil, ErrBadDataURL
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil || len(raw) == 0 {
		return nil, ErrBadDataURL
	}
	return raw, nil
}

func objectKey(ext string) string {
	d := time.Now()
	return fmt.Sprintf("uploads/%d/%d/%d/%s%s", d.Year(), d.Month(), d.Day(), uuid.New(), ext)
}
