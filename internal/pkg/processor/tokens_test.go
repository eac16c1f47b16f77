package processor

import "testing"

func TestTokenEstimator_Estimate(t *testing.T) {
	tests := []struct {
		name          string
		charsPerToken int
		text          string
		want          int
	}{
		{"empty", 4, "", 0},
		{"one char", 4, "a", 1},
		{"exact multiple", 4, "abcdefgh", 2},
		{"rounds up", 4, "abcdefghi", 3},
		{"strict ratio", 3, "abcdefghi", 3},
		{"strict rounds up", 3, "abcdefghij", 4},
		{"runes not bytes", 4, "ééééé", 2},
		{"zero ratio falls back", 0, "abcdefgh", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := TokenEstimator{CharsPerToken: tt.charsPerToken}
			if got := e.Estimate(tt.text); got != tt.want {
				t.Errorf("Estimate(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestNewTokenEstimator(t *testing.T) {
	if got := NewTokenEstimator(-1).CharsPerToken; got != DefaultCharsPerToken {
		t.Errorf("NewTokenEstimator(-1).CharsPerToken = %d, want %d", got, DefaultCharsPerToken)
	}
	if got := NewTokenEstimator(StrictCharsPerToken).Chars(10); got != 30 {
		t.Errorf("Chars(10) = %d, want 30", got)
	}
}
