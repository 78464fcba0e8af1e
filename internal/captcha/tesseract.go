package captcha

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Recognizer turns a challenge image into text.
//
// note: fault injection point
type Recognizer interface {
	Recognize(ctx context.Context, imagePath string) (string, error)
}

// Tesseract recognizes text with the tesseract command line tool.
type Tesseract struct {
	Binary string
	// Extra arguments after the output base, defaults to a single text line (--psm 7).
	Args []string
}

// DetectTesseract checks whether the tesseract binary is available on PATH.
func DetectTesseract() (Tesseract, error) {
	path, err := exec.LookPath("tesseract")
	if err != nil {
		return Tesseract{}, fmt.Errorf("tesseract not found on PATH: %w", err)
	}
	return Tesseract{Binary: path}, nil
}

func (t Tesseract) Recognize(ctx context.Context, imagePath string) (string, error) {
	binary := t.Binary
	if binary == "" {
		binary = "tesseract"
	}
	args := t.Args
	if len(args) == 0 {
		args = []string{"--psm", "7"}
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, append([]string{imagePath, "stdout"}, args...)...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return string(out), nil
}
