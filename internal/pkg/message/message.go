// Package message parses commit messages and checks them against the
// Conventional Commits shape used for generated candidates.
package message

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// ValidCommitTypes contains all valid Conventional Commits types.
var ValidCommitTypes = []string{
	"feat", "fix", "docs", "style", "refactor",
	"test", "chore", "perf", "ci", "build", "revert",
}

// MaxSubjectLength is the recommended maximum length for commit subject lines.
const MaxSubjectLength = 72

var (
	// subjectPattern matches "<type>[(scope)][!]: <subject>".
	subjectPattern = regexp.MustCompile(`^([a-z]+)(?:\(([^()]*)\))?(!)?:\s*(.*)$`)
	// trailerPattern matches git trailers such as "Refs: #12" or "BREAKING CHANGE: ...".
	trailerPattern = regexp.MustCompile(`^(BREAKING CHANGE|[A-Za-z][A-Za-z-]*)(: | #)`)
)

// ValidationError represents a commit message validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationResult contains the result of commit message validation.
type ValidationResult struct {
	IsValid  bool
	Errors   []ValidationError
	Warnings []string
}

// CommitMessage is a commit message split into its conventional parts.
type CommitMessage struct {
	Type     string
	Scope    string
	Breaking bool
	Subject  string
	Body     string
	Trailers []string

	// bodyJoined is set when the body starts right under the subject.
	bodyJoined bool
}

// NewCommitMessage parses raw commit text.
func NewCommitMessage(rawText string) *CommitMessage {
	cm := &CommitMessage{}
	cm.Parse(rawText)
	return cm
}

// Parse fills cm from raw commit text. The last paragraph is taken as
// trailers when every line in it looks like one.
func (cm *CommitMessage) Parse(rawText string) {
	rawText = strings.TrimSpace(strings.ReplaceAll(rawText, "\r\n", "\n"))
	if rawText == "" {
		return
	}

	lines := strings.Split(rawText, "\n")
	cm.parseSubject(strings.TrimSpace(lines[0]))

	rest := lines[1:]
	if len(rest) > 0 && strings.TrimSpace(rest[0]) != "" {
		cm.bodyJoined = true
	}

	paragraphs := splitParagraphs(rest)
	if n := len(paragraphs); n > 0 && allTrailers(paragraphs[n-1]) {
		cm.Trailers = paragraphs[n-1]
		paragraphs = paragraphs[:n-1]
	}

	body := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		body = append(body, strings.Join(p, "\n"))
	}
	cm.Body = strings.Join(body, "\n\n")

	for _, t := range cm.Trailers {
		if strings.HasPrefix(t, "BREAKING CHANGE") || strings.HasPrefix(t, "BREAKING-CHANGE") {
			cm.Breaking = true
		}
	}
}

// parseSubject splits the header line. Lines that do not have the
// "type: subject" shape are kept whole as the subject.
func (cm *CommitMessage) parseSubject(subject string) {
	m := subjectPattern.FindStringSubmatch(subject)
	if m == nil {
		cm.Subject = subject
		return
	}
	cm.Type = m[1]
	cm.Scope = strings.TrimSpace(m[2])
	cm.Breaking = m[3] == "!"
	cm.Subject = strings.TrimSpace(m[4])
}

func splitParagraphs(lines []string) [][]string {
	var paragraphs [][]string
	var current []string
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			if len(current) > 0 {
				paragraphs = append(paragraphs, current)
				current = nil
			}
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		paragraphs = append(paragraphs, current)
	}
	return paragraphs
}

func allTrailers(paragraph []string) bool {
	for _, line := range paragraph {
		if !trailerPattern.MatchString(line) {
			return false
		}
	}
	return true
}

// FormatSubject rebuilds the header line.
func (cm *CommitMessage) FormatSubject() string {
	if cm.Type == "" {
		return cm.Subject
	}

	var sb strings.Builder
	sb.WriteString(cm.Type)
	if cm.Scope != "" {
		sb.WriteString("(" + cm.Scope + ")")
	}
	if cm.Breaking && !strings.Contains(strings.Join(cm.Trailers, "\n"), "BREAKING") {
		sb.WriteString("!")
	}
	sb.WriteString(": ")
	sb.WriteString(cm.Subject)
	return sb.String()
}

// ValidateWithWarnings reports format errors, which make the message
// non-conventional, and style warnings, which do not.
func (cm *CommitMessage) ValidateWithWarnings() *ValidationResult {
	result := &ValidationResult{
		IsValid:  true,
		Errors:   []ValidationError{},
		Warnings: []string{},
	}
	fail := func(field, msg string) {
		result.IsValid = false
		result.Errors = append(result.Errors, ValidationError{Field: field, Message: msg})
	}

	switch {
	case cm.Type == "":
		fail("type", "missing commit type")
	case !IsValidCommitType(cm.Type):
		fail("type", fmt.Sprintf("invalid commit type: %s (valid types: %s)", cm.Type, strings.Join(ValidCommitTypes, ", ")))
	}
	if cm.Subject == "" {
		fail("subject", "missing commit subject")
	}

	if subjectLine := cm.FormatSubject(); len(subjectLine) > MaxSubjectLength {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"subject line exceeds %d characters (%d chars)",
			MaxSubjectLength, len(subjectLine),
		))
	}
	if strings.HasSuffix(cm.Subject, ".") {
		result.Warnings = append(result.Warnings, "subject line should not end with a period")
	}
	if cm.bodyJoined {
		result.Warnings = append(result.Warnings, "separate the subject from the body with a blank line")
	}

	return result
}

// IsValidCommitType checks if the given type is a valid Conventional Commits type.
func IsValidCommitType(commitType string) bool {
	return slices.Contains(ValidCommitTypes, commitType)
}
