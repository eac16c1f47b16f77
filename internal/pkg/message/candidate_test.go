package message

import (
	"strings"
	"testing"
)

func TestCleanCandidate(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1. feat: add parser", "feat: add parser"},
		{"2) fix: handle nil", "fix: handle nil"},
		{"- docs: update readme", "docs: update readme"},
		{"* chore: bump deps", "chore: bump deps"},
		{`"refactor: split engine"`, "refactor: split engine"},
		{"`test: cover chunker`", "test: cover chunker"},
		{"   feat(ui): add spinner  ", "feat(ui): add spinner"},
		{"fix: don't panic", "fix: don't panic"},
	}

	for _, tt := range tests {
		if got := CleanCandidate(tt.input); got != tt.expected {
			t.Errorf("CleanCandidate(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestValidCandidate(t *testing.T) {
	tests := []struct {
		name         string
		line         string
		conventional bool
		expected     bool
	}{
		{"conventional ok", "feat: add parser", true, true},
		{"scoped", "fix(git): read renames", true, true},
		{"free text when conventional", "Add parser", true, false},
		{"free text allowed", "Add parser", false, true},
		{"empty", "", false, false},
		{"preamble", "Here are three options:", false, false},
		{"too long", "feat: " + strings.Repeat("x", MaxCandidateLength), true, false},
		{"unknown type", "feature: add parser", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidCandidate(tt.line, tt.conventional); got != tt.expected {
				t.Errorf("ValidCandidate(%q, %v) = %v, want %v", tt.line, tt.conventional, got, tt.expected)
			}
		})
	}
}

func TestIsCodeFence(t *testing.T) {
	if !IsCodeFence("```text") || !IsCodeFence("  ```") {
		t.Error("IsCodeFence() = false for a fence line")
	}
	if IsCodeFence("feat: add ```") {
		t.Error("IsCodeFence() = true for a message line")
	}
}
