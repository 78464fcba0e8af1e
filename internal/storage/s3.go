package storage

import (
	"context"
	"fmt"
	"os"
	"strings"

	"ecourts-backend/internal/assert"
	"ecourts-backend/internal/chrono"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3Uploader struct {
	uploader *manager.Uploader
	presign  *s3.PresignClient
	config   Config
	clock    chrono.API
}

func NewS3Uploader(ctx context.Context, config Config, clock chrono.API) (S3Uploader, error) {
	assert.NotNil(clock)
	if config.Bucket == "" {
		return S3Uploader{}, fmt.Errorf("s3 storage: bucket is not configured")
	}
	if config.Region == "" {
		return S3Uploader{}, fmt.Errorf("s3 storage: region is not configured")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(config.Region),
	}
	if config.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.AccessKeyID, config.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return S3Uploader{}, fmt.Errorf("s3 storage: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if config.Endpoint != "" {
			o.BaseEndpoint = aws.String(config.Endpoint)
			o.UsePathStyle = true
		}
	})

	return S3Uploader{
		uploader: manager.NewUploader(client),
		presign:  s3.NewPresignClient(client),
		config:   config,
		clock:    clock,
	}, nil
}

func (u S3Uploader) Upload(ctx context.Context, localPath, name string) (string, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	key := objectKey(u.config.Prefix, name, u.clock.Now())
	_, err = u.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.config.Bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String("application/pdf"),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	if u.config.PresignTTLMinutes > 0 {
		req, err := u.presign.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(u.config.Bucket),
			Key:    aws.String(key),
		}, s3.WithPresignExpires(u.config.presignTTL()))
		if err != nil {
			return "", fmt.Errorf("presign %s: %w", key, err)
		}
		return req.URL, nil
	}
	return objectURL(u.config, key), nil
}

// objectURL is the unsigned reference to key. Custom endpoints are addressed
// path-style, the same way the client talks to them.
func objectURL(config Config, key string) string {
	if config.Endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(config.Endpoint, "/"), config.Bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", config.Bucket, config.Region, key)
}
