// Package git reads staged changes and records commits for commitwise.
package git

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"os/exec"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	apperrors "github.com/commitwise/commitwise/internal/pkg/errors"
)

// GitCommandTimeout bounds every git invocation.
const GitCommandTimeout = 10 * time.Second

// ChangeType is how a staged file changed.
type ChangeType int

const (
	ChangeTypeModified ChangeType = iota
	ChangeTypeAdded
	ChangeTypeDeleted
	ChangeTypeRenamed
)

var changeTypeNames = [...]struct{ name, symbol string }{
	ChangeTypeModified: {"modified", "M"},
	ChangeTypeAdded:    {"added", "A"},
	ChangeTypeDeleted:  {"deleted", "D"},
	ChangeTypeRenamed:  {"renamed", "R"},
}

func (c ChangeType) String() string {
	if c < 0 || int(c) >= len(changeTypeNames) {
		return "unknown"
	}
	return changeTypeNames[c].name
}

// Symbol returns the one-letter status git uses for the change.
func (c ChangeType) Symbol() string {
	if c < 0 || int(c) >= len(changeTypeNames) {
		return "?"
	}
	return changeTypeNames[c].symbol
}

// FileDiff is the staged diff of a single file.
type FileDiff struct {
	FilePath   string
	OldPath    string // set for renames
	ChangeType ChangeType
	Additions  int
	Deletions  int
	Content    string
	IsLockFile bool
	IsBinary   bool
}

// DiffStats totals a set of file diffs.
type DiffStats struct {
	TotalFiles     int
	TotalAdditions int
	TotalDeletions int
	Files          []FileDiff
}

// NewDiffStats totals additions and deletions across files.
func NewDiffStats(files []FileDiff) *DiffStats {
	return &DiffStats{
		TotalFiles:     len(files),
		TotalAdditions: lo.SumBy(files, func(f FileDiff) int { return f.Additions }),
		TotalDeletions: lo.SumBy(files, func(f FileDiff) int { return f.Deletions }),
		Files:          files,
	}
}

// Client is the subset of git the commit workflow needs.
type Client interface {
	HasStagedChanges(ctx context.Context) (bool, error)
	GetStagedDiff(ctx context.Context) ([]FileDiff, error)
	Commit(ctx context.Context, message string) error
}

// DefaultClient shells out to the git binary.
type DefaultClient struct {
	workDir string
}

// NewClient returns a client for the repository in the current directory.
func NewClient() *DefaultClient {
	return NewClientWithWorkDir("")
}

// NewClientWithWorkDir returns a client for the repository at workDir.
func NewClientWithWorkDir(workDir string) *DefaultClient {
	return &DefaultClient{workDir: workDir}
}

// run executes git with a timeout. stdin may be nil.
func (c *DefaultClient) run(ctx context.Context, stdin []byte, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, GitCommandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = c.workDir
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	switch {
	case err == nil:
		return out, nil
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return nil, apperrors.NewTimeoutError(ctx.Err())
	default:
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = strings.TrimSpace(string(out))
		}
		return nil, apperrors.NewGitError(err, detail).WithContext("command", "git "+strings.Join(args, " "))
	}
}

// HasStagedChanges reports whether the index differs from HEAD.
func (c *DefaultClient) HasStagedChanges(ctx context.Context) (bool, error) {
	out, err := c.run(ctx, nil, "diff", "--cached", "--name-only")
	if err != nil {
		return false, err
	}
	return len(bytes.TrimSpace(out)) > 0, nil
}

// GetStagedDiff returns the staged changes, one entry per file. It fails with
// ErrNoStagedChanges when nothing is staged.
func (c *DefaultClient) GetStagedDiff(ctx context.Context) ([]FileDiff, error) {
	numstat, err := c.run(ctx, nil, "diff", "--cached", "--numstat")
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(numstat)) == 0 {
		return nil, apperrors.NewNoStagedChangesError()
	}

	patch, err := c.run(ctx, nil, "diff", "--cached")
	if err != nil {
		return nil, err
	}
	return parseDiff(patch, parseNumstat(numstat)), nil
}

// Commit records the staged changes. The message goes through stdin so
// multi-line bodies and leading dashes survive unchanged.
func (c *DefaultClient) Commit(ctx context.Context, message string) error {
	_, err := c.run(ctx, []byte(message), "commit", "--file=-", "--cleanup=whitespace")
	return err
}

var lockFileNames = []string{
	"package-lock.json", "yarn.lock", "pnpm-lock.yaml", "go.sum",
	"Cargo.lock", "Gemfile.lock", "composer.lock", "poetry.lock", "Pipfile.lock",
}

// isLockFile reports whether p is a generated dependency lock file.
func isLockFile(p string) bool {
	base := path.Base(p)
	return lo.Contains(lockFileNames, base) || path.Ext(base) == ".lock"
}

type fileStat struct {
	additions, deletions int
	isBinary             bool
}

// parseNumstat reads "added<TAB>deleted<TAB>path" lines. Binary files report
// "-" for both counts.
func parseNumstat(output []byte) map[string]fileStat {
	stats := make(map[string]fileStat)
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		fields := strings.SplitN(scanner.Text(), "\t", 3)
		if len(fields) != 3 {
			continue
		}
		p := fields[2]
		if strings.Contains(p, " => ") {
			p = extractNewPath(p)
		}
		if fields[0] == "-" && fields[1] == "-" {
			stats[p] = fileStat{isBinary: true}
			continue
		}
		added, _ := strconv.Atoi(fields[0])
		deleted, _ := strconv.Atoi(fields[1])
		stats[p] = fileStat{additions: added, deletions: deleted}
	}
	return stats
}

var braceRename = regexp.MustCompile(`\{([^}]*) => ([^}]*)\}`)

// extractNewPath resolves numstat rename notation such as "a => b" or
// "dir/{old => new}/f.go" to the destination path.
func extractNewPath(renamePath string) string {
	if !strings.Contains(renamePath, "{") {
		if _, after, ok := strings.Cut(renamePath, " => "); ok {
			return strings.TrimSpace(after)
		}
	}
	return strings.ReplaceAll(braceRename.ReplaceAllString(renamePath, "$2"), "//", "/")
}

// parseDiff splits a unified diff at its "diff --git" headers. Each entry's
// Content is the exact text of its section.
func parseDiff(patch []byte, stats map[string]fileStat) []FileDiff {
	var (
		files   []FileDiff
		current *FileDiff
		content strings.Builder
	)
	flush := func() {
		if current == nil {
			return
		}
		current.Content = content.String()
		if st, ok := stats[current.FilePath]; ok {
			current.Additions, current.Deletions = st.additions, st.deletions
			current.IsBinary = current.IsBinary || st.isBinary
		}
		current.IsLockFile = isLockFile(current.FilePath)
		files = append(files, *current)
		content.Reset()
	}

	for _, line := range strings.SplitAfter(string(patch), "\n") {
		text := strings.TrimSuffix(line, "\n")
		if strings.HasPrefix(text, "diff --git ") {
			flush()
			current = &FileDiff{FilePath: headerPath(text)}
		}
		if current == nil {
			continue
		}
		content.WriteString(line)

		switch {
		case strings.HasPrefix(text, "new file mode"):
			current.ChangeType = ChangeTypeAdded
		case strings.HasPrefix(text, "deleted file mode"):
			current.ChangeType = ChangeTypeDeleted
		case strings.HasPrefix(text, "rename from "):
			current.ChangeType = ChangeTypeRenamed
			current.OldPath = strings.TrimPrefix(text, "rename from ")
		case strings.HasPrefix(text, "rename to "):
			current.FilePath = strings.TrimPrefix(text, "rename to ")
		case strings.HasPrefix(text, "Binary files "):
			current.IsBinary = true
		}
	}
	flush()

	return files
}

// headerPath returns the destination path of "diff --git a/x b/y".
func headerPath(header string) string {
	rest := strings.TrimPrefix(header, "diff --git ")
	if i := strings.LastIndex(rest, " b/"); i >= 0 {
		return rest[i+len(" b/"):]
	}
	if fields := strings.Fields(rest); len(fields) > 0 {
		return strings.TrimPrefix(fields[0], "a/")
	}
	return rest
}
