package ecourts

import (
	"context"
	"testing"

	"ecourts-backend/internal/portal"
	"ecourts-backend/internal/portal/portaltest"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	sel := portal.DefaultSelectors()

	cases := []struct {
		name     string
		html     string
		hidden   []string
		expected Classification
	}{
		{
			name:     "record found",
			html:     `<div id="validateError"></div><table class="case_details_table"><tr><td>Case Type</td><td>CS</td></tr></table>`,
			hidden:   []string{sel.ValidationBox},
			expected: RecordFound,
		},
		{
			name:     "rejected challenge",
			html:     `<div id="validateError"><p>Invalid Captcha</p></div>`,
			expected: ChallengeRejected,
		},
		{
			name:     "rejected challenge in alert",
			html:     `<div id="validateError"></div><div class="alert alert-danger-cust">Enter  CAPTCHA</div>`,
			hidden:   []string{sel.ValidationBox},
			expected: ChallengeRejected,
		},
		{
			name:     "rejection wins over a rendered table",
			html:     `<div id="validateError">Invalid Captcha...</div><table class="case_details_table"><tr><td>x</td></tr></table>`,
			expected: ChallengeRejected,
		},
		{
			name:     "record not found",
			html:     `<div id="validateError"></div><span>Record not found</span>`,
			hidden:   []string{sel.ValidationBox},
			expected: RecordNotFound,
		},
		{
			name:     "invalid case code",
			html:     `<div id="validateError"></div><span>This Case Code does not exists</span>`,
			hidden:   []string{sel.ValidationBox},
			expected: InvalidQuery,
		},
		{
			name:     "nothing rendered",
			html:     `<div id="validateError"></div><span>Loading...</span>`,
			hidden:   []string{sel.ValidationBox},
			expected: TransientFailure,
		},
		{
			name:     "unrelated validation message",
			html:     `<div id="validateError">Session expired</div>`,
			expected: TransientFailure,
		},
	}

	classifier := NewClassifier(sel, testTimeouts())
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			page := portaltest.New(c.html)
			for _, s := range c.hidden {
				page.Hide(s)
			}
			class, _ := classifier.Classify(context.Background(), page)
			require.Equal(t, c.expected, class, "got %s", class)
		})
	}
}

func TestClassificationString(t *testing.T) {
	require.Equal(t, "challenge_rejected", ChallengeRejected.String())
	require.Equal(t, "transient_failure", Classification(42).String())
}
