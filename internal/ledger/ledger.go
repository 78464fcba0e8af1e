// Package ledger keeps a history of acquisitions.
package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"ecourts-backend/internal/assert"
	"ecourts-backend/lib/configlibsql"

	"github.com/google/uuid"
)

//go:embed schema.sql
var Schema string

// Run is one finished acquisition.
type Run struct {
	ID         string
	CaseID     string
	Cutoff     string
	Outcome    string
	Reason     string
	Attempts   int
	Orders     int
	StartedAt  time.Time
	FinishedAt time.Time
}

func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

type Ledger struct {
	db *sql.DB
}

func New(db *sql.DB) Ledger {
	assert.NotNil(db)
	return Ledger{db: db}
}

// Open opens the configured database, creating the ledger table if needed.
func Open(config configlibsql.Struct) (Ledger, error) {
	db, err := config.OpenDB(Schema)
	if err != nil {
		return Ledger{}, fmt.Errorf("open ledger: %w", err)
	}
	return New(db), nil
}

func (l Ledger) Close() error {
	return l.db.Close()
}

// Record stores a run, assigning it an id when it has none.
func (l Ledger) Record(ctx context.Context, run Run) (Run, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	_, err := l.db.ExecContext(
		ctx,
		`insert into acquisition_run (id, case_id, cutoff, outcome, reason, attempts, orders, started_at, finished_at)
		values (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.CaseID,
		run.Cutoff,
		run.Outcome,
		run.Reason,
		run.Attempts,
		run.Orders,
		run.StartedAt.UnixMilli(),
		run.FinishedAt.UnixMilli(),
	)
	if err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}
	return run, nil
}

// Recent returns the latest runs first. An empty caseID returns runs of every case.
func (l Ledger) Recent(ctx context.Context, caseID string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(
		ctx,
		`select id, case_id, cutoff, outcome, reason, attempts, orders, started_at, finished_at
		from acquisition_run
		where ? = '' or case_id = ?
		order by started_at desc
		limit ?`,
		caseID, caseID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var startedAt, finishedAt int64
		err := rows.Scan(
			&run.ID,
			&run.CaseID,
			&run.Cutoff,
			&run.Outcome,
			&run.Reason,
			&run.Attempts,
			&run.Orders,
			&startedAt,
			&finishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		run.StartedAt = time.UnixMilli(startedAt)
		run.FinishedAt = time.UnixMilli(finishedAt)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
