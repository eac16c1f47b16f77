// Package processor prepares staged diffs for the model: it drops noise, measures
// token cost and splits oversized diffs into budget-sized chunks.
package processor

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/commitwise/commitwise/internal/pkg/git"
)

// DefaultMaxFileTokens is the size above which a single file is replaced by its statistics.
const DefaultMaxFileTokens = 8000

// ProcessedDiff contains the result of diff processing.
type ProcessedDiff struct {
	Files        []git.FileDiff
	Diff         string
	Summary      string
	TotalTokens  int
	Stats        *git.DiffStats
	SkippedFiles []string
}

// DiffProcessor defines the interface for diff processing.
type DiffProcessor interface {
	Process(ctx context.Context, files []git.FileDiff) (*ProcessedDiff, error)
}

// ProcessorConfig holds configuration for the diff processor.
type ProcessorConfig struct {
	MaxFileTokens int
	Estimator     TokenEstimator
	// ExcludePatterns are glob patterns matched against the full path and the base name.
	ExcludePatterns []string
}

// DefaultProcessor implements the DiffProcessor interface.
type DefaultProcessor struct {
	config ProcessorConfig
}

// NewProcessor creates a new DefaultProcessor with default configuration.
func NewProcessor() *DefaultProcessor {
	return NewProcessorWithConfig(ProcessorConfig{})
}

// NewProcessorWithConfig creates a new DefaultProcessor with custom configuration.
func NewProcessorWithConfig(config ProcessorConfig) *DefaultProcessor {
	if config.MaxFileTokens <= 0 {
		config.MaxFileTokens = DefaultMaxFileTokens
	}
	if config.Estimator.CharsPerToken <= 0 {
		config.Estimator = NewTokenEstimator(DefaultCharsPerToken)
	}
	return &DefaultProcessor{config: config}
}

// Process filters lock files and excluded paths, replaces very large files with their statistics
// and joins what is left into a single diff.
func (p *DefaultProcessor) Process(ctx context.Context, files []git.FileDiff) (*ProcessedDiff, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &ProcessedDiff{}
	for _, f := range files {
		if f.IsLockFile || p.excluded(f.FilePath) {
			result.SkippedFiles = append(result.SkippedFiles, f.FilePath)
			continue
		}
		if p.config.Estimator.Estimate(f.Content) > p.config.MaxFileTokens {
			f.Content = p.fileSummary(&f)
		}
		result.Files = append(result.Files, f)
	}

	var sb strings.Builder
	for _, f := range result.Files {
		sb.WriteString(f.Content)
		if !strings.HasSuffix(f.Content, "\n") {
			sb.WriteString("\n")
		}
	}
	result.Diff = sb.String()
	result.TotalTokens = p.config.Estimator.Estimate(result.Diff)
	result.Stats = git.NewDiffStats(result.Files)
	result.Summary = summarize(result.Stats)

	return result, nil
}

func (p *DefaultProcessor) excluded(filePath string) bool {
	base := path.Base(filePath)
	for _, pattern := range p.config.ExcludePatterns {
		if ok, _ := path.Match(pattern, filePath); ok {
			return true
		}
		if ok, _ := path.Match(pattern, base); ok {
			return true
		}
		// "dir/**" style patterns exclude a whole tree.
		if prefix, found := strings.CutSuffix(pattern, "/**"); found && strings.HasPrefix(filePath, prefix+"/") {
			return true
		}
	}
	return false
}

// fileSummary keeps the diff header so the chunker still sees file boundaries.
func (p *DefaultProcessor) fileSummary(f *git.FileDiff) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "diff --git a/%s b/%s\n", f.FilePath, f.FilePath)
	fmt.Fprintf(&sb, "# %s file, +%d/-%d lines", f.ChangeType, f.Additions, f.Deletions)
	if f.IsBinary {
		sb.WriteString(", binary content not shown")
	} else {
		fmt.Fprintf(&sb, ", %d bytes omitted", len(f.Content))
	}
	if f.OldPath != "" {
		fmt.Fprintf(&sb, ", renamed from %s", f.OldPath)
	}
	sb.WriteString("\n")
	return sb.String()
}

func summarize(stats *git.DiffStats) string {
	if stats == nil || len(stats.Files) == 0 {
		return "No changes"
	}

	var sb strings.Builder
	for _, f := range stats.Files {
		fmt.Fprintf(&sb, "  [%s] %s (+%d/-%d)\n", f.ChangeType.Symbol(), f.FilePath, f.Additions, f.Deletions)
		if f.OldPath != "" {
			fmt.Fprintf(&sb, "      (renamed from %s)\n", f.OldPath)
		}
	}
	fmt.Fprintf(&sb, "Total: %d files, +%d additions, -%d deletions",
		stats.TotalFiles, stats.TotalAdditions, stats.TotalDeletions)

	return sb.String()
}
