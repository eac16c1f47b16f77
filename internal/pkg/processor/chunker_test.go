package processor

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func sampleDiff(files, linesPerFile int) string {
	var sb strings.Builder
	for f := 0; f < files; f++ {
		fmt.Fprintf(&sb, "diff --git a/file%d.go b/file%d.go\n", f, f)
		fmt.Fprintf(&sb, "index 83db48f..bf269f4 100644\n")
		fmt.Fprintf(&sb, "--- a/file%d.go\n+++ b/file%d.go\n", f, f)
		fmt.Fprintf(&sb, "@@ -1,%d +1,%d @@ func main() {\n", linesPerFile, linesPerFile)
		for i := 0; i < linesPerFile; i++ {
			fmt.Fprintf(&sb, "+\tfmt.Println(\"line %d of file %d\")\n", i, f)
		}
	}
	return sb.String()
}

func headersOf(lines []string) []string {
	var headers []string
	for _, l := range lines {
		if IsHeaderLine(l) {
			headers = append(headers, l)
		}
	}
	return headers
}

func TestIsHeaderLine(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"diff --git a/x b/x", true},
		{"index 83db48f..bf269f4 100644", true},
		{"--- a/x", true},
		{"+++ b/x", true},
		{"@@ -1,3 +1,4 @@ func main() {", true},
		{"@@ -1 +1 @@", true},
		{"+added line", false},
		{"-removed line", false},
		{" context", false},
		{"@@ not a hunk", false},
	}

	for _, tt := range tests {
		if got := IsHeaderLine(tt.line); got != tt.want {
			t.Errorf("IsHeaderLine(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestChunk_SmallDiffIsSingleChunk(t *testing.T) {
	diff := sampleDiff(1, 3)
	chunks := NewChunker(NewTokenEstimator(DefaultCharsPerToken)).Chunk(diff, 10000)

	if len(chunks) != 1 {
		t.Fatalf("Chunk() returned %d chunks, want 1", len(chunks))
	}
	if chunks[0] != strings.TrimSuffix(diff, "\n") {
		t.Errorf("Chunk() altered a diff that fits the budget")
	}
}

func TestChunk_EmptyInput(t *testing.T) {
	if got := NewChunker(NewTokenEstimator(4)).Chunk("", 100); len(got) != 0 {
		t.Errorf("Chunk(\"\") = %v, want empty", got)
	}
}

func TestChunk_RespectsBudget(t *testing.T) {
	chunker := NewChunker(NewTokenEstimator(DefaultCharsPerToken))
	diff := sampleDiff(4, 40)

	chunks := chunker.Split(diff, 200)
	if len(chunks) < 2 {
		t.Fatalf("Split() returned %d chunks, want several", len(chunks))
	}
	for i, c := range chunks {
		if c.EstimatedTokens > 200 {
			t.Errorf("chunk %d EstimatedTokens = %d, want <= 200", i, c.EstimatedTokens)
		}
		if got := chunker.Estimator().Estimate(c.Text()); got > 200 {
			t.Errorf("chunk %d text estimate = %d, want <= 200", i, got)
		}
	}

	var rebuilt []string
	for _, c := range chunks {
		rebuilt = append(rebuilt, c.Text())
	}
	if strings.Join(rebuilt, "\n") != strings.TrimSuffix(diff, "\n") {
		t.Error("joined chunks should reproduce the diff when no line is split")
	}
}

func TestChunk_OversizedLineIsSplit(t *testing.T) {
	chunker := NewChunker(NewTokenEstimator(DefaultCharsPerToken))
	long := "+" + strings.Repeat("x", 2000)
	diff := "diff --git a/a b/a\n@@ -1 +1 @@\n" + long + "\n"

	chunks := chunker.Split(diff, 100)

	var body strings.Builder
	for _, c := range chunks {
		if c.EstimatedTokens > 100 {
			t.Errorf("chunk EstimatedTokens = %d, want <= 100", c.EstimatedTokens)
		}
		for _, l := range c.BodyLines {
			body.WriteString(l)
		}
	}
	if body.String() != long {
		t.Error("pieces of the oversized line should concatenate back to the line")
	}
	// Header chunk, then 2001 runes in pieces of 399 runes.
	if len(chunks) != 7 {
		t.Errorf("Split() returned %d chunks, want 7", len(chunks))
	}
}

func TestChunk_BelowFloorTruncates(t *testing.T) {
	chunker := NewChunker(NewTokenEstimator(DefaultCharsPerToken))

	chunks := chunker.Chunk(strings.Repeat("a", 1000), 10)

	if len(chunks) != 1 {
		t.Fatalf("Chunk() below floor returned %d chunks, want 1", len(chunks))
	}
	if !strings.HasSuffix(chunks[0], truncatedMarker) {
		t.Errorf("truncated chunk should end with %q", truncatedMarker)
	}
	if len(chunks[0]) > chunker.Estimator().Chars(ChunkFloorTokens)+len(truncatedMarker)+1 {
		t.Errorf("truncated chunk length = %d, want bounded by the floor", len(chunks[0]))
	}
}

func TestChunk_BelowFloorShortDiffUntouched(t *testing.T) {
	chunks := NewChunker(NewTokenEstimator(4)).Chunk("+tiny", 1)
	if len(chunks) != 1 || chunks[0] != "+tiny" {
		t.Errorf("Chunk() = %v, want [+tiny]", chunks)
	}
}

func TestChunker_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)
	chunker := NewChunker(NewTokenEstimator(DefaultCharsPerToken))

	genDiff := gen.IntRange(1, 6).FlatMap(func(v interface{}) gopter.Gen {
		files := v.(int)
		return gen.IntRange(0, 60).Map(func(lines int) string {
			return sampleDiff(files, lines)
		})
	}, reflect.TypeOf(""))

	properties.Property("non-empty input gives non-empty output", prop.ForAll(
		func(diff string, budget int) bool {
			return len(chunker.Chunk(diff, budget)) > 0
		},
		genDiff, gen.IntRange(0, 2000),
	))

	properties.Property("header lines survive in order", prop.ForAll(
		func(diff string, budget int) bool {
			var got []string
			for _, c := range chunker.Split(diff, budget) {
				got = append(got, c.HeaderLines...)
			}
			want := headersOf(strings.Split(diff, "\n"))
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
		genDiff, gen.IntRange(ChunkFloorTokens, 2000),
	))

	properties.Property("chunks stay within budget", prop.ForAll(
		func(diff string, budget int) bool {
			for _, c := range chunker.Split(diff, budget) {
				if c.EstimatedTokens > budget {
					return false
				}
			}
			return true
		},
		genDiff, gen.IntRange(ChunkFloorTokens, 2000),
	))

	properties.Property("budgets under the floor give exactly one chunk", prop.ForAll(
		func(text string, budget int) bool {
			if text == "" {
				return true
			}
			return len(chunker.Chunk(text, budget)) == 1
		},
		gen.AnyString(), gen.IntRange(-10, ChunkFloorTokens-1),
	))

	properties.TestingRun(t)
}
