package ai

import (
	"regexp"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

var conventionalCommitPattern = regexp.MustCompile(`^(feat|fix|docs|style|refactor|test|chore|perf|ci|build|revert)(\([^)]+\))?!?:\s*.+$`)

func genValidCommitType() gopter.Gen {
	return gen.OneConstOf(
		"feat", "fix", "docs", "style", "refactor",
		"test", "chore", "perf", "ci", "build", "revert",
	)
}

func genOptionalScope() gopter.Gen {
	return gen.OneGenOf(
		gen.Const(""),
		gen.Identifier().Map(func(s string) string {
			if len(s) > 20 {
				return s[:20]
			}
			return s
		}),
	)
}

func genNonEmptySubject() gopter.Gen {
	return gen.Identifier().SuchThat(func(s string) bool {
		return len(s) > 0
	}).Map(func(s string) string {
		if len(s) > 50 {
			return s[:50]
		}
		return s
	})
}

func genValidConventionalCommit() gopter.Gen {
	return gopter.CombineGens(
		genValidCommitType(),
		genOptionalScope(),
		genNonEmptySubject(),
	).Map(func(values []any) string {
		commitType := values[0].(string)
		scope := values[1].(string)
		subject := values[2].(string)

		if scope != "" {
			return commitType + "(" + scope + "): " + subject
		}
		return commitType + ": " + subject
	})
}

// decorate wraps a message the way models tend to: numbering, bullets, quotes.
func decorate(msg string, style int) string {
	switch style {
	case 1:
		return "1. " + msg
	case 2:
		return "- " + msg
	case 3:
		return `"` + msg + `"`
	case 4:
		return "`" + msg + "`"
	default:
		return msg
	}
}

func TestProperty_ParseCandidates(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("every parsed candidate matches the conventional pattern", prop.ForAll(
		func(msgs []string, style int) bool {
			lines := make([]string, len(msgs))
			for i, m := range msgs {
				lines[i] = decorate(m, style)
			}
			raw := "Here are some options:\n```\n" + strings.Join(lines, "\n") + "\n```"

			for _, c := range ParseCandidates(raw, true) {
				if !conventionalCommitPattern.MatchString(c) {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(5, genValidConventionalCommit()),
		gen.IntRange(0, 4),
	))

	properties.Property("decorations are stripped without losing the message", prop.ForAll(
		func(msg string, style int) bool {
			got := ParseCandidates(decorate(msg, style), true)
			return len(got) == 1 && got[0] == msg
		},
		genValidConventionalCommit(),
		gen.IntRange(0, 4),
	))

	properties.Property("candidates are distinct and keep first-seen order", prop.ForAll(
		func(msgs []string) bool {
			doubled := append(append([]string{}, msgs...), msgs...)
			got := ParseCandidates(strings.Join(doubled, "\n"), true)

			seen := make(map[string]bool)
			var want []string
			for _, m := range msgs {
				if !seen[m] {
					seen[m] = true
					want = append(want, m)
				}
			}
			if len(got) != len(want) {
				return false
			}
			for i := range want {
				if got[i] != want[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(4, genValidConventionalCommit()),
	))

	properties.Property("non-conventional text is rejected in conventional mode", prop.ForAll(
		func(word, subject string) bool {
			return len(ParseCandidates(word+" "+subject, true)) == 0
		},
		gen.Identifier().SuchThat(func(s string) bool { return len(s) > 0 }),
		genNonEmptySubject(),
	))

	properties.TestingRun(t)
}
