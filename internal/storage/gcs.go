package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"ecourts-backend/internal/assert"
	"ecourts-backend/internal/chrono"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

type GCSUploader struct {
	bucket *gcs.BucketHandle
	config Config
	clock  chrono.API
}

func NewGCSUploader(ctx context.Context, config Config, clock chrono.API) (GCSUploader, error) {
	assert.NotNil(clock)
	if config.Bucket == "" {
		return GCSUploader{}, fmt.Errorf("gcs storage: bucket is not configured")
	}

	var opts []option.ClientOption
	if config.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(config.CredentialsFile))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return GCSUploader{}, fmt.Errorf("gcs storage: %w", err)
	}
	return GCSUploader{
		bucket: client.Bucket(config.Bucket),
		config: config,
		clock:  clock,
	}, nil
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}

// Upload never overwrites, an object that already exists under the key is kept as is.
func (u GCSUploader) Upload(ctx context.Context, localPath, name string) (string, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	key := objectKey(u.config.Prefix, name, u.clock.Now())
	ref := fmt.Sprintf("https://storage.googleapis.com/%s/%s", u.config.Bucket, key)

	writer := u.bucket.Object(key).If(gcs.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = "application/pdf"

	_, err = io.Copy(writer, file)
	if err != nil {
		_ = writer.Close()
		if isPreconditionFailed(err) {
			return ref, nil
		}
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	err = writer.Close()
	if err != nil {
		if isPreconditionFailed(err) {
			return ref, nil
		}
		return "", fmt.Errorf("finalize %s: %w", key, err)
	}
	return ref, nil
}
