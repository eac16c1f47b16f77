package processor

import (
	"context"
	"strings"
	"testing"

	"github.com/commitwise/commitwise/internal/pkg/git"
)

func TestProcess_FiltersLockFiles(t *testing.T) {
	files := []git.FileDiff{
		{FilePath: "main.go", Content: "diff --git a/main.go b/main.go\n+x\n"},
		{FilePath: "go.sum", Content: "diff --git a/go.sum b/go.sum\n+h1\n", IsLockFile: true},
		{FilePath: "package-lock.json", Content: "{}", IsLockFile: true},
	}

	result, err := NewProcessor().Process(context.Background(), files)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if len(result.Files) != 1 || result.Files[0].FilePath != "main.go" {
		t.Errorf("Files = %v, want only main.go", result.Files)
	}
	if len(result.SkippedFiles) != 2 {
		t.Errorf("SkippedFiles = %v, want 2 entries", result.SkippedFiles)
	}
	if strings.Contains(result.Diff, "go.sum") {
		t.Error("Diff should not contain lock file content")
	}
}

func TestProcess_JoinsDiffAndCountsTokens(t *testing.T) {
	files := []git.FileDiff{
		{FilePath: "a.go", Content: "diff --git a/a.go b/a.go\n+a", Additions: 1},
		{FilePath: "b.go", Content: "diff --git a/b.go b/b.go\n+b\n", Additions: 1, ChangeType: git.ChangeTypeAdded},
	}

	result, err := NewProcessor().Process(context.Background(), files)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	want := "diff --git a/a.go b/a.go\n+a\ndiff --git a/b.go b/b.go\n+b\n"
	if result.Diff != want {
		t.Errorf("Diff = %q, want %q", result.Diff, want)
	}
	if result.TotalTokens != NewTokenEstimator(DefaultCharsPerToken).Estimate(want) {
		t.Errorf("TotalTokens = %d, want estimate of the joined diff", result.TotalTokens)
	}
	if result.Stats.TotalAdditions != 2 {
		t.Errorf("TotalAdditions = %d, want 2", result.Stats.TotalAdditions)
	}
	if !strings.Contains(result.Summary, "[A] b.go (+1/-0)") {
		t.Errorf("Summary = %q, want an entry for b.go", result.Summary)
	}
}

func TestProcess_LargeFileIsSummarized(t *testing.T) {
	big := "diff --git a/big.txt b/big.txt\n+" + strings.Repeat("z", 500) + "\n"
	p := NewProcessorWithConfig(ProcessorConfig{MaxFileTokens: 50})

	result, err := p.Process(context.Background(), []git.FileDiff{
		{FilePath: "big.txt", Content: big, Additions: 1},
	})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if strings.Contains(result.Diff, strings.Repeat("z", 100)) {
		t.Error("large file content should be replaced by a summary")
	}
	if !strings.HasPrefix(result.Diff, "diff --git a/big.txt b/big.txt\n") {
		t.Errorf("summary should keep the file header, got %q", result.Diff)
	}
}

func TestProcess_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewProcessor().Process(ctx, nil); err == nil {
		t.Error("Process() with cancelled context should fail")
	}
}

func TestProcess_NoFiles(t *testing.T) {
	result, err := NewProcessor().Process(context.Background(), nil)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if result.Summary != "No changes" || result.Diff != "" {
		t.Errorf("result = %+v, want empty diff and 'No changes'", result)
	}
}

func TestProcess_ExcludePatterns(t *testing.T) {
	files := []git.FileDiff{
		{FilePath: "main.go", Content: "diff --git a/main.go b/main.go\n+x\n"},
		{FilePath: "web/dist/app.min.js", Content: "diff --git a/web/dist/app.min.js b/web/dist/app.min.js\n+y\n"},
		{FilePath: "vendor/lib/lib.go", Content: "diff --git a/vendor/lib/lib.go b/vendor/lib/lib.go\n+z\n"},
		{FilePath: "api/service.pb.go", Content: "diff --git a/api/service.pb.go b/api/service.pb.go\n+w\n"},
	}

	p := NewProcessorWithConfig(ProcessorConfig{
		ExcludePatterns: []string{"*.min.js", "vendor/**", "api/*.pb.go", "[bad"},
	})
	result, err := p.Process(context.Background(), files)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if len(result.Files) != 1 || result.Files[0].FilePath != "main.go" {
		t.Errorf("Files = %v, want only main.go", result.Files)
	}
	if len(result.SkippedFiles) != 3 {
		t.Errorf("SkippedFiles = %v, want 3 entries", result.SkippedFiles)
	}
}
