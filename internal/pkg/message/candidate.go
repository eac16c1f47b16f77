package message

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxCandidateLength is the longest single-line message accepted from a model.
const MaxCandidateLength = 100

// listMarker matches "1.", "2)", "-", "*" and "•" prefixes models put in front of options.
var listMarker = regexp.MustCompile(`^(?:\d+[.)]|[-*•])\s+`)

// CleanCandidate strips list numbering, bullets and wrapping quotes from a model line.
func CleanCandidate(line string) string {
	line = strings.TrimSpace(line)
	line = strings.TrimSpace(listMarker.ReplaceAllString(line, ""))

	for _, q := range []string{"```", "`", `"`, "'"} {
		if len(line) >= 2*len(q) && strings.HasPrefix(line, q) && strings.HasSuffix(line, q) {
			line = strings.TrimSpace(line[len(q) : len(line)-len(q)])
		}
	}
	return line
}

// IsCodeFence reports whether line opens or closes a markdown code block.
func IsCodeFence(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "```")
}

// ValidCandidate reports whether a cleaned line can be offered as a commit message.
func ValidCandidate(line string, conventional bool) bool {
	if line == "" || strings.ContainsAny(line, "\r\n") {
		return false
	}
	if utf8.RuneCountInString(line) > MaxCandidateLength {
		return false
	}
	// Preambles such as "Here are some options:".
	if strings.HasSuffix(line, ":") {
		return false
	}
	if !conventional {
		return true
	}

	cm := &CommitMessage{}
	cm.parseSubject(line)
	return IsValidCommitType(cm.Type) && cm.Subject != ""
}
