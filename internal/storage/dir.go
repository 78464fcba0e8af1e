package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"ecourts-backend/internal/assert"
	"ecourts-backend/internal/chrono"
)

// DirUploader copies documents into a local directory, for development and tests.
type DirUploader struct {
	dir    string
	prefix string
	clock  chrono.API
}

func NewDirUploader(dir, prefix string, clock chrono.API) (DirUploader, error) {
	assert.NotNil(clock)
	if dir == "" {
		return DirUploader{}, fmt.Errorf("dir storage: directory is not configured")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return DirUploader{}, err
	}
	return DirUploader{dir: abs, prefix: prefix, clock: clock}, nil
}

func (u DirUploader) Upload(ctx context.Context, localPath, name string) (string, error) {
	dest := filepath.Join(u.dir, filepath.FromSlash(objectKey(u.prefix, name, u.clock.Now())))
	err := os.MkdirAll(filepath.Dir(dest), 0777)
	if err != nil {
		return "", err
	}

	src, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer src.Close()
	out, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	_, err = io.Copy(out, src)
	if err != nil {
		out.Close()
		return "", err
	}
	err = out.Close()
	if err != nil {
		return "", err
	}
	return "file://" + filepath.ToSlash(dest), nil
}
