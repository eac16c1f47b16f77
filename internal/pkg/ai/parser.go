package ai

import (
	"strings"

	"github.com/samber/lo"

	"github.com/commitwise/commitwise/internal/pkg/message"
)

// ParseCandidates turns a raw model response into distinct, valid candidate lines
// in the order the model produced them. Code fences, numbering, bullets and
// quotes are stripped before validation.
func ParseCandidates(raw string, conventional bool) []string {
	var candidates []string
	for _, line := range strings.Split(raw, "\n") {
		if message.IsCodeFence(line) {
			continue
		}
		line = message.CleanCandidate(line)
		if message.ValidCandidate(line, conventional) {
			candidates = append(candidates, line)
		}
	}
	return lo.Uniq(candidates)
}

// firstLine returns the first non-blank line of text, cleaned.
func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if message.IsCodeFence(line) {
			continue
		}
		if line = message.CleanCandidate(line); line != "" {
			return line
		}
	}
	return ""
}
