// Package telemetrytest provides an in-memory telemetry.API for assertions in tests.
package telemetrytest

import (
	"strings"
	"sync"
)

type Level int

const (
	LevelDebug Level = iota
	LevelWarning
	LevelBroken
	LevelCount
)

type Report struct {
	Level  Level
	ID     string
	Params []any
	Count  int64
}

// Recorder implements telemetry.API by keeping every report in memory.
type Recorder struct {
	mu      sync.Mutex
	reports []Report
}

func (r *Recorder) add(report Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
}

func (r *Recorder) ReportBroken(id string, params ...any) {
	r.add(Report{Level: LevelBroken, ID: id, Params: params})
}

func (r *Recorder) ReportWarning(id string, params ...any) {
	r.add(Report{Level: LevelWarning, ID: id, Params: params})
}

func (r *Recorder) ReportDebug(msg string, params ...any) {
	r.add(Report{Level: LevelDebug, ID: msg, Params: params})
}

func (r *Recorder) ReportCount(id string, count int64) {
	r.add(Report{Level: LevelCount, ID: id, Count: count})
}

// Reports returns a copy of every report so far.
func (r *Recorder) Reports() []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Report, len(r.reports))
	copy(out, r.reports)
	return out
}

// Find returns the reports of the given level whose id ends with suffix.
func (r *Recorder) Find(level Level, suffix string) []Report {
	var out []Report
	for _, report := range r.Reports() {
		if report.Level == level && strings.HasSuffix(report.ID, suffix) {
			out = append(out, report)
		}
	}
	return out
}
