// Package captcha captures the portal's challenge image and reads it with OCR.
package captcha

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ecourts-backend/internal/assert"
	"ecourts-backend/internal/portal"
	"ecourts-backend/internal/telemetry"

	random "github.com/mazen160/go-random"
)

const (
	report_solver_capture   = "solver.capture"
	report_solver_recognize = "solver.recognize"
	report_attempt_discard  = "attempt.discard"
)

// Attempt is one captured challenge and the text read from it. An empty Text
// means the image was unreadable.
type Attempt struct {
	ImagePath string
	Text      string

	tel telemetry.API
}

// Discard deletes the captured image. It is safe to call more than once.
func (a *Attempt) Discard() {
	if a == nil || a.ImagePath == "" {
		return
	}
	err := os.Remove(a.ImagePath)
	if err != nil && !os.IsNotExist(err) {
		a.tel.ReportWarning(report_attempt_discard, err, a.ImagePath)
	}
}

// Solver captures and recognizes challenges.
type Solver struct {
	recognizer Recognizer
	dir        string
	attempts   int
	tel        telemetry.API
}

// NewSolver creates a Solver writing transient images to dir (the system temp dir when empty).
// OCR is attempted twice before the challenge is declared unreadable.
func NewSolver(recognizer Recognizer, dir string, tel telemetry.API) Solver {
	assert.NotNil(recognizer)
	assert.NotNil(tel)
	if dir == "" {
		dir = os.TempDir()
	}
	return Solver{
		recognizer: recognizer,
		dir:        dir,
		attempts:   2,
		tel:        telemetry.NewScopedAPI("captcha", tel),
	}
}

func (s Solver) imagePath() (string, error) {
	suffix, err := random.String(12)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, fmt.Sprintf("captcha_%s.png", suffix)), nil
}

// Solve screenshots the challenge element and reads it. A returned Attempt must be
// discarded by the caller once its text has been submitted.
func (s Solver) Solve(ctx context.Context, page portal.Page, selector string) (*Attempt, error) {
	image, err := page.Screenshot(ctx, selector)
	if err != nil {
		s.tel.ReportWarning(report_solver_capture, err)
		return nil, fmt.Errorf("capture challenge: %w", err)
	}

	err = os.MkdirAll(s.dir, 0777)
	if err != nil {
		return nil, err
	}
	path, err := s.imagePath()
	if err != nil {
		return nil, err
	}
	err = os.WriteFile(path, image, 0600)
	if err != nil {
		s.tel.ReportBroken(report_solver_capture, err, path)
		return nil, fmt.Errorf("write challenge image: %w", err)
	}

	attempt := &Attempt{ImagePath: path, tel: s.tel}
	attempt.Text = s.recognize(ctx, path)
	return attempt, nil
}

func (s Solver) recognize(ctx context.Context, path string) string {
	for i := 0; i < s.attempts; i++ {
		text, err := s.recognizer.Recognize(ctx, path)
		if err != nil {
			s.tel.ReportWarning(report_solver_recognize, err, i+1)
			continue
		}
		return strings.TrimSpace(text)
	}
	return ""
}
