package ai

import (
	"strings"
	"testing"
)

func TestNewPromptTemplate(t *testing.T) {
	pt := NewPromptTemplate()

	if pt.SystemPrompt == "" {
		t.Error("SystemPrompt should not be empty")
	}
	if pt.UserPrompt == "" {
		t.Error("UserPrompt should not be empty")
	}
}

func TestNewPromptTemplateWithCustom(t *testing.T) {
	customSystem := "Custom system prompt"
	customUser := "Custom user prompt"

	pt := NewPromptTemplateWithCustom(customSystem, customUser)

	if pt.SystemPrompt != customSystem {
		t.Errorf("SystemPrompt = %q, want %q", pt.SystemPrompt, customSystem)
	}
	if pt.UserPrompt != customUser {
		t.Errorf("UserPrompt = %q, want %q", pt.UserPrompt, customUser)
	}
}

func TestNewPromptTemplateWithCustom_EmptyFallsBackToDefault(t *testing.T) {
	pt := NewPromptTemplateWithCustom("", "")

	if pt.SystemPrompt != DefaultSystemPrompt {
		t.Error("Empty system prompt should fall back to default")
	}
	if pt.UserPrompt != DefaultUserPromptTemplate {
		t.Error("Empty user prompt should fall back to default")
	}
}

func TestPromptTemplate_RenderUserPrompt(t *testing.T) {
	pt := NewPromptTemplate()

	result, err := pt.RenderUserPrompt(&PromptData{
		Diff:         "diff --git a/main.go b/main.go\n+fmt.Println()",
		Count:        3,
		Conventional: true,
		Language:     "en",
		ChunkNumber:  1,
		TotalChunks:  1,
	})
	if err != nil {
		t.Fatalf("RenderUserPrompt() error = %v", err)
	}

	for _, want := range []string{"Write 3 alternative commit messages", "Conventional Commits", "diff --git a/main.go"} {
		if !strings.Contains(result, want) {
			t.Errorf("RenderUserPrompt() missing %q in:\n%s", want, result)
		}
	}
	for _, unwanted := range []string{"part 1 of", "language", "rejected"} {
		if strings.Contains(result, unwanted) {
			t.Errorf("RenderUserPrompt() should not contain %q", unwanted)
		}
	}
}

func TestPromptTemplate_RenderUserPrompt_Variants(t *testing.T) {
	tests := []struct {
		name string
		data PromptData
		want []string
		not  []string
	}{
		{
			name: "single candidate",
			data: PromptData{Diff: "d", Count: 1},
			want: []string{"Write 1 alternative commit message for"},
			not:  []string{"Conventional Commits"},
		},
		{
			name: "chunk of larger diff",
			data: PromptData{Diff: "d", Count: 2, ChunkNumber: 2, TotalChunks: 5},
			want: []string{"part 2 of 5"},
		},
		{
			name: "other language",
			data: PromptData{Diff: "d", Count: 2, Language: "zh"},
			want: []string{`language "zh"`},
		},
		{
			name: "previous attempt",
			data: PromptData{Diff: "d", Count: 2, PreviousAttempt: "feat: previous attempt message"},
			want: []string{"rejected", "feat: previous attempt message"},
		},
	}

	pt := NewPromptTemplate()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.data
			result, err := pt.RenderUserPrompt(&data)
			if err != nil {
				t.Fatalf("RenderUserPrompt() error = %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(result, want) {
					t.Errorf("RenderUserPrompt() missing %q in:\n%s", want, result)
				}
			}
			for _, unwanted := range tt.not {
				if strings.Contains(result, unwanted) {
					t.Errorf("RenderUserPrompt() should not contain %q", unwanted)
				}
			}
		})
	}
}

func TestPromptTemplate_RenderUserPrompt_CustomTemplate(t *testing.T) {
	pt := NewPromptTemplateWithCustom("", "Summarize {{.Count}}: {{.Diff}}")

	result, err := pt.RenderUserPrompt(&PromptData{Diff: "abc", Count: 2})
	if err != nil {
		t.Fatalf("RenderUserPrompt() error = %v", err)
	}
	if result != "Summarize 2: abc" {
		t.Errorf("RenderUserPrompt() = %q, want %q", result, "Summarize 2: abc")
	}
}

func TestPromptTemplate_RenderUserPrompt_BadTemplate(t *testing.T) {
	pt := NewPromptTemplateWithCustom("", "{{.Diff")

	if _, err := pt.RenderUserPrompt(&PromptData{}); err == nil {
		t.Error("RenderUserPrompt() error = nil, want a parse error")
	}
	if _, err := pt.RenderUserPrompt(&PromptData{}); err == nil {
		t.Error("RenderUserPrompt() second call error = nil, want the cached parse error")
	}
}

func TestBuildPromptData(t *testing.T) {
	data := BuildPromptData("the diff", GenerateOptions{
		Count:           4,
		Conventional:    true,
		Language:        "fr",
		ChunkIndex:      2,
		TotalChunks:     3,
		PreviousAttempt: "previous",
	})

	want := PromptData{
		Diff:            "the diff",
		Count:           4,
		Conventional:    true,
		Language:        "fr",
		ChunkNumber:     3,
		TotalChunks:     3,
		PreviousAttempt: "previous",
	}
	if *data != want {
		t.Errorf("BuildPromptData() = %+v, want %+v", *data, want)
	}
}

func TestDefaultSystemPrompt(t *testing.T) {
	for _, want := range []string{"imperative", "single line", "one message per line"} {
		if !strings.Contains(DefaultSystemPrompt, want) {
			t.Errorf("DefaultSystemPrompt missing %q", want)
		}
	}
}
