package restyutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FilesystemOutput writes each exchange to its own file, one directory per
// process run so earlier dumps are kept.
type FilesystemOutput struct {
	directory string
}

func NewFilesystemOutput(dir string) (FilesystemOutput, error) {
	runDir := filepath.Join(dir, time.Now().Format("20060102-150405"))
	err := os.MkdirAll(runDir, 0755)
	if err != nil {
		return FilesystemOutput{}, err
	}
	return FilesystemOutput{directory: runDir}, nil
}

func (o FilesystemOutput) Dir() string {
	return o.directory
}

func (o FilesystemOutput) Write(id string, contents string) {
	name := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(id) + ".txt"
	err := os.WriteFile(filepath.Join(o.directory, name), []byte(contents), 0600)
	if err != nil {
		slog.Warn("failed to write exchange dump", "id", id, "err", err)
	}
}
