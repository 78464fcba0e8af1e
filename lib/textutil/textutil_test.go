package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContainsPhrase(t *testing.T) {
	testCases := []struct {
		text     string
		phrase   string
		expected bool
	}{
		{text: "Invalid Captcha", phrase: "invalid captcha", expected: true},
		{text: "  Invalid\n\tCaptcha...  ", phrase: "invalid captcha", expected: true},
		{text: "Invalid Capcha", phrase: "invalid captcha", expected: true},
		{text: "This Case Code does not exist", phrase: "this case code does not exist", expected: true},
		{text: "Record not found", phrase: "this case code does not exist", expected: false},
		{text: "", phrase: "record not found", expected: false},
		{text: "anything", phrase: "", expected: false},
	}

	for _, test := range testCases {
		require.Equal(t, test.expected, ContainsPhrase(test.text, test.phrase, 0.93), "%q ~ %q", test.text, test.phrase)
	}
}

func TestMatchAny(t *testing.T) {
	phrases := []string{"record not found", "this case code does not exist"}
	require.Equal(t, "record not found", MatchAny("Record Not Found!", phrases, 0.93))
	require.Equal(t, "", MatchAny("Case Status", phrases, 0.93))
}
