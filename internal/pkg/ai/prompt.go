package ai

import (
	"bytes"
	"sync"
	"text/template"
)

// DefaultSystemPrompt is the default system prompt for generating commit messages.
const DefaultSystemPrompt = `You are an expert at writing git commit messages.

Rules:
1. Be concise and specific
2. Use imperative mood and present tense ("add" not "added")
3. Keep every message on a single line, at most 72 characters, no trailing period
4. Output one message per line, with no numbering, quotes or explanations`

// DefaultUserPromptTemplate is the default user prompt template.
const DefaultUserPromptTemplate = `Write {{.Count}} alternative commit message{{if gt .Count 1}}s{{end}} for the changes below.
{{- if .Conventional}}
Use the Conventional Commits format: <type>(<scope>): <subject>
Types: feat, fix, docs, style, refactor, test, chore, perf, ci, build, revert
{{- end}}
{{- if and .Language (ne .Language "en")}}
Write the subject in language "{{.Language}}".
{{- end}}
{{- if gt .TotalChunks 1}}
This is part {{.ChunkNumber}} of {{.TotalChunks}} of a larger diff; describe the changes in this part.
{{- end}}
{{- if .PreviousAttempt}}

The user rejected these messages, suggest different ones:
{{.PreviousAttempt}}
{{- end}}

Diff:
{{.Diff}}`

// PromptTemplate handles prompt generation for AI providers.
type PromptTemplate struct {
	SystemPrompt string
	UserPrompt   string

	once    sync.Once
	tmpl    *template.Template
	tmplErr error
}

// PromptData contains the data used to render the user prompt template.
type PromptData struct {
	Diff            string
	Count           int
	Conventional    bool
	Language        string
	ChunkNumber     int
	TotalChunks     int
	PreviousAttempt string
}

// NewPromptTemplate creates a new PromptTemplate with default prompts.
func NewPromptTemplate() *PromptTemplate {
	return NewPromptTemplateWithCustom("", "")
}

// NewPromptTemplateWithCustom creates a new PromptTemplate with custom prompts.
// If systemPrompt or userPrompt is empty, the default is used.
func NewPromptTemplateWithCustom(systemPrompt, userPrompt string) *PromptTemplate {
	pt := &PromptTemplate{
		SystemPrompt: DefaultSystemPrompt,
		UserPrompt:   DefaultUserPromptTemplate,
	}
	if systemPrompt != "" {
		pt.SystemPrompt = systemPrompt
	}
	if userPrompt != "" {
		pt.UserPrompt = userPrompt
	}
	return pt
}

// RenderUserPrompt renders the user prompt template with the given data.
func (pt *PromptTemplate) RenderUserPrompt(data *PromptData) (string, error) {
	pt.once.Do(func() {
		pt.tmpl, pt.tmplErr = template.New("userPrompt").Parse(pt.UserPrompt)
	})
	if pt.tmplErr != nil {
		return "", pt.tmplErr
	}

	var buf bytes.Buffer
	if err := pt.tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// GetSystemPrompt returns the system prompt.
func (pt *PromptTemplate) GetSystemPrompt() string {
	return pt.SystemPrompt
}

// BuildPromptData creates PromptData for one piece of a diff.
func BuildPromptData(diff string, opts GenerateOptions) *PromptData {
	return &PromptData{
		Diff:            diff,
		Count:           opts.Count,
		Conventional:    opts.Conventional,
		Language:        opts.Language,
		ChunkNumber:     opts.ChunkIndex + 1,
		TotalChunks:     opts.TotalChunks,
		PreviousAttempt: opts.PreviousAttempt,
	}
}
