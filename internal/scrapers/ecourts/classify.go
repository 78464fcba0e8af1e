package ecourts

import (
	"context"

	"ecourts-backend/internal/portal"
	"ecourts-backend/lib/textutil"
)

// Classification is what a submitted query's result page shows.
type Classification int

const (
	TransientFailure Classification = iota
	RecordFound
	RecordNotFound
	InvalidQuery
	ChallengeRejected
)

func (c Classification) String() string {
	switch c {
	case RecordFound:
		return "record_found"
	case RecordNotFound:
		return "record_not_found"
	case InvalidQuery:
		return "invalid_query"
	case ChallengeRejected:
		return "challenge_rejected"
	default:
		return "transient_failure"
	}
}

var (
	rejectionPhrases = []string{"invalid captcha", "enter captcha"}
	notFoundPhrases  = []string{"record not found"}
	invalidPhrases   = []string{"this case code does not exist"}
)

// Classifier decides what a result page shows. Checks run in priority order:
// a rejected challenge, then portal messages, then the case details table.
type Classifier struct {
	sel       portal.Selectors
	timeouts  portal.Timeouts
	threshold float64
}

func NewClassifier(sel portal.Selectors, timeouts portal.Timeouts) Classifier {
	return Classifier{sel: sel, timeouts: timeouts, threshold: 0.95}
}

// Classify returns the classification and the text that decided it, if any.
// Read errors count as missing evidence, so a page that cannot be read is a TransientFailure.
func (c Classifier) Classify(ctx context.Context, page portal.Page) (Classification, string) {
	// the validation box is always in the DOM, waiting for it lets the result render
	_ = page.WaitReady(ctx, c.sel.ValidationBox, c.timeouts.ResultSettle)

	if class, evidence, ok := c.messages(ctx, page); ok {
		return class, evidence
	}

	if page.WaitVisible(ctx, c.sel.CaseDetails, c.timeouts.CaseDetails) == nil {
		return RecordFound, ""
	}

	// a message may have rendered while waiting for the table
	if class, evidence, ok := c.messages(ctx, page); ok {
		return class, evidence
	}
	return TransientFailure, ""
}

func (c Classifier) messages(ctx context.Context, page portal.Page) (Classification, string, bool) {
	for _, selector := range []string{c.sel.ValidationBox, c.sel.ErrorAlert} {
		if selector == "" {
			continue
		}
		visible, err := page.Visible(ctx, selector)
		if err != nil || !visible {
			continue
		}
		text, err := portal.Text(ctx, page, selector)
		if err != nil {
			continue
		}
		if textutil.MatchAny(text, rejectionPhrases, c.threshold) != "" {
			return ChallengeRejected, text, true
		}
	}

	spans, err := page.Texts(ctx, c.sel.MessageSpans)
	if err != nil {
		return TransientFailure, "", false
	}
	for _, text := range spans {
		if textutil.MatchAny(text, notFoundPhrases, c.threshold) != "" {
			return RecordNotFound, text, true
		}
		if textutil.MatchAny(text, invalidPhrases, c.threshold) != "" {
			return InvalidQuery, text, true
		}
	}
	return TransientFailure, "", false
}
