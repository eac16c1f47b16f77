package processor

import "unicode/utf8"

const (
	// DefaultCharsPerToken is the usual characters-per-token ratio for English text and code.
	DefaultCharsPerToken = 4
	// StrictCharsPerToken over-estimates tokens for backends with tight context budgets.
	StrictCharsPerToken = 3
)

// TokenEstimator approximates how many model tokens a string consumes.
type TokenEstimator struct {
	CharsPerToken int
}

// NewTokenEstimator returns an estimator, falling back to DefaultCharsPerToken for non-positive ratios.
func NewTokenEstimator(charsPerToken int) TokenEstimator {
	if charsPerToken <= 0 {
		charsPerToken = DefaultCharsPerToken
	}
	return TokenEstimator{CharsPerToken: charsPerToken}
}

func (e TokenEstimator) ratio() int {
	if e.CharsPerToken <= 0 {
		return DefaultCharsPerToken
	}
	return e.CharsPerToken
}

// Estimate returns ceil(runes / CharsPerToken).
func (e TokenEstimator) Estimate(text string) int {
	return ceilDiv(utf8.RuneCountInString(text), e.ratio())
}

// lineCost is the estimate of a line plus its trailing newline, so that the sum
// over lines never undercounts the joined text.
func (e TokenEstimator) lineCost(line string) int {
	return ceilDiv(utf8.RuneCountInString(line)+1, e.ratio())
}

// Chars converts a token budget into a character budget.
func (e TokenEstimator) Chars(tokens int) int {
	return tokens * e.ratio()
}

func ceilDiv(a, b int) int {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
