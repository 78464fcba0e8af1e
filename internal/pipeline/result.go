package pipeline

import (
	"ecourts-backend/internal/scrapers/ecourts"
)

type Outcome int

const (
	Success Outcome = iota
	RecordNotFound
	InvalidQuery
	// TransientFailure only ends an attempt, Acquire retries it.
	TransientFailure
	Fatal
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case RecordNotFound:
		return "record_not_found"
	case InvalidQuery:
		return "invalid_query"
	case TransientFailure:
		return "transient_failure"
	default:
		return "fatal"
	}
}

// Terminal reports whether the outcome is a final answer about the case rather than a failure.
func (o Outcome) Terminal() bool {
	return o == Success || o == RecordNotFound || o == InvalidQuery
}

// Result is the single answer to an acquisition. Record and Orders are only set on Success.
type Result struct {
	Outcome Outcome
	Record  ecourts.CaseRecord
	Orders  []ecourts.OrderDocument
	// Reason explains non successful outcomes.
	Reason string
	// Attempts counts every solved challenge, including the ones retried in the same session.
	Attempts int
}

func success(record ecourts.CaseRecord, orders []ecourts.OrderDocument) Result {
	return Result{Outcome: Success, Record: record, Orders: orders}
}

func transient(reason string) Result {
	return Result{Outcome: TransientFailure, Reason: reason}
}

func fatal(reason string) Result {
	return Result{Outcome: Fatal, Reason: reason}
}
