package textutil

import (
	"regexp"
	"strings"

	"github.com/antzucaro/matchr"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// Normalize lowercases text and collapses whitespace runs into single spaces.
func Normalize(text string) string {
	text = strings.ToLower(text)
	text = whitespaceRegex.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// ContainsPhrase reports whether text contains phrase after normalization, tolerating
// small spelling differences: any window of words in text with a Jaro-Winkler similarity
// of at least threshold to the phrase counts as a match.
func ContainsPhrase(text, phrase string, threshold float64) bool {
	text = Normalize(text)
	phrase = Normalize(phrase)
	if phrase == "" {
		return false
	}
	if strings.Contains(text, phrase) {
		return true
	}
	if threshold <= 0 || threshold > 1 {
		return false
	}

	words := strings.Split(text, " ")
	width := len(strings.Split(phrase, " "))
	for i := 0; i+width <= len(words); i++ {
		window := strings.Join(words[i:i+width], " ")
		if matchr.JaroWinkler(window, phrase, false) >= threshold {
			return true
		}
	}
	return false
}

// MatchAny returns the first phrase contained in text, or "" when none are.
func MatchAny(text string, phrases []string, threshold float64) string {
	for _, p := range phrases {
		if ContainsPhrase(text, p, threshold) {
			return p
		}
	}
	return ""
}
