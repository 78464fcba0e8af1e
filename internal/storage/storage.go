// Package storage uploads downloaded order documents to durable storage.
package storage

import (
	"context"
	"fmt"
	"path"
	"time"

	"ecourts-backend/internal/chrono"
)

// Uploader stores a local file under a name and returns a reference to the stored object.
type Uploader interface {
	Upload(ctx context.Context, localPath, name string) (string, error)
}

type Config struct {
	// Backend is one of "s3", "gcs" or "dir".
	Backend string `json:"backend"`
	Bucket  string `json:"bucket"`
	Region  string `json:"region"`
	// Prefix is prepended to every object key.
	Prefix string `json:"prefix"`

	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	// Endpoint overrides the S3 endpoint, ex. for minio.
	Endpoint string `json:"endpoint"`
	// PresignTTLMinutes makes S3 references presigned GET urls when positive.
	PresignTTLMinutes int `json:"presign_ttl_minutes"`

	CredentialsFile string `json:"credentials_file"`

	// Dir is the destination of the "dir" backend.
	Dir string `json:"dir"`
}

func (c Config) presignTTL() time.Duration {
	return time.Duration(c.PresignTTLMinutes) * time.Minute
}

// objectKey stamps the name with the upload time so repeated queries never collide.
func objectKey(prefix, name string, now time.Time) string {
	return path.Join(prefix, fmt.Sprintf("%d_%s", now.UnixMilli(), name))
}

// New creates the uploader selected by the config.
func New(ctx context.Context, config Config, clock chrono.API) (Uploader, error) {
	switch config.Backend {
	case "", "s3":
		return NewS3Uploader(ctx, config, clock)
	case "gcs":
		return NewGCSUploader(ctx, config, clock)
	case "dir":
		return NewDirUploader(config.Dir, config.Prefix, clock)
	default:
		return nil, fmt.Errorf("unknown storage backend '%s'", config.Backend)
	}
}
