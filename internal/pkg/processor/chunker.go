package processor

import (
	"regexp"
	"strings"
)

const (
	// ChunkFloorTokens is the smallest budget the chunker subdivides for. Below it
	// the diff is truncated into a single chunk.
	ChunkFloorTokens = 50
	// MinChunkTokens bounds adaptive shrinking of the chunk budget by callers.
	MinChunkTokens = 100

	truncatedMarker = "[truncated]"
)

var hunkHeader = regexp.MustCompile(`^@@ .* @@`)

// IsHeaderLine reports whether line is diff metadata that must stay intact.
func IsHeaderLine(line string) bool {
	switch {
	case strings.HasPrefix(line, "diff --git "),
		strings.HasPrefix(line, "index "),
		strings.HasPrefix(line, "--- "),
		strings.HasPrefix(line, "+++ "):
		return true
	}
	return hunkHeader.MatchString(line)
}

// DiffChunk is a token-bounded slice of a unified diff.
type DiffChunk struct {
	// Lines holds header and body lines in their original order.
	Lines           []string
	HeaderLines     []string
	BodyLines       []string
	EstimatedTokens int
}

// Text joins the chunk lines back into diff text.
func (c DiffChunk) Text() string {
	return strings.Join(c.Lines, "\n")
}

func (c *DiffChunk) add(line string, cost int, header bool) {
	c.Lines = append(c.Lines, line)
	if header {
		c.HeaderLines = append(c.HeaderLines, line)
	} else {
		c.BodyLines = append(c.BodyLines, line)
	}
	c.EstimatedTokens += cost
}

// Chunker splits oversized diffs into pieces that fit a token budget.
type Chunker struct {
	estimator TokenEstimator
}

// NewChunker creates a chunker that measures lines with estimator.
func NewChunker(estimator TokenEstimator) *Chunker {
	return &Chunker{estimator: estimator}
}

// Estimator returns the estimator used for measuring lines.
func (c *Chunker) Estimator() TokenEstimator {
	return c.estimator
}

// Chunk splits diff into texts of at most maxTokens estimated tokens each.
func (c *Chunker) Chunk(diff string, maxTokens int) []string {
	chunks := c.Split(diff, maxTokens)
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text()
	}
	return texts
}

// Split packs diff lines greedily into chunks of at most maxTokens.
//
// Header lines are never split, so a header longer than the budget forms an
// oversized chunk of its own. Any other line longer than the budget is cut into
// pieces that fit. Budgets under ChunkFloorTokens yield one truncated chunk.
func (c *Chunker) Split(diff string, maxTokens int) []DiffChunk {
	if diff == "" {
		return nil
	}
	if maxTokens < ChunkFloorTokens {
		return []DiffChunk{c.truncate(diff)}
	}

	lines := strings.Split(diff, "\n")
	if len(lines) > 1 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	var chunks []DiffChunk
	var current DiffChunk
	push := func(line string, cost int, header bool) {
		if len(current.Lines) > 0 && current.EstimatedTokens+cost > maxTokens {
			chunks = append(chunks, current)
			current = DiffChunk{}
		}
		current.add(line, cost, header)
	}

	for _, line := range lines {
		header := IsHeaderLine(line)
		cost := c.estimator.lineCost(line)
		if header || cost <= maxTokens {
			push(line, cost, header)
			continue
		}
		for _, piece := range c.splitLine(line, maxTokens) {
			push(piece, c.estimator.lineCost(piece), false)
		}
	}
	if len(current.Lines) > 0 {
		chunks = append(chunks, current)
	}

	return chunks
}

// splitLine cuts line into rune pieces whose cost, newline included, fits maxTokens.
func (c *Chunker) splitLine(line string, maxTokens int) []string {
	size := c.estimator.Chars(maxTokens) - 1
	runes := []rune(line)
	pieces := make([]string, 0, ceilDiv(len(runes), size))
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		pieces = append(pieces, string(runes[start:end]))
	}
	return pieces
}

// truncate keeps the first ChunkFloorTokens worth of characters.
func (c *Chunker) truncate(diff string) DiffChunk {
	limit := c.estimator.Chars(ChunkFloorTokens)
	runes := []rune(diff)
	text := diff
	if len(runes) > limit {
		text = string(runes[:limit]) + "\n" + truncatedMarker
	}

	var chunk DiffChunk
	for _, line := range strings.Split(text, "\n") {
		chunk.add(line, 0, IsHeaderLine(line))
	}
	chunk.EstimatedTokens = c.estimator.Estimate(text)
	return chunk
}
