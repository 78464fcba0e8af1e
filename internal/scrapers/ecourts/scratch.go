package ecourts

import (
	"os"
	"path/filepath"
)

// ScratchDir is where a case's order documents are downloaded to before they are stored.
// Queries for the same case share a directory.
type ScratchDir struct {
	Path string
}

func NewScratchDir(root, caseID string) ScratchDir {
	return ScratchDir{Path: filepath.Join(root, "intrim_orders", caseID)}
}

// Ensure creates the directory if it does not exist yet.
func (d ScratchDir) Ensure() error {
	return os.MkdirAll(d.Path, 0777)
}

// Remove deletes the directory and everything in it.
func (d ScratchDir) Remove() error {
	return os.RemoveAll(d.Path)
}
