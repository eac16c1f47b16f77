package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestActionString(t *testing.T) {
	tests := []struct {
		action   Action
		expected string
	}{
		{ActionAccept, "accept"},
		{ActionEdit, "edit"},
		{ActionRegenerate, "regenerate"},
		{ActionCancel, "cancel"},
		{Action(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.action.String(); got != tt.expected {
				t.Errorf("Action.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func newBufferedManager() (*DefaultManager, *bytes.Buffer) {
	m := NewDefaultManager(false, "")
	buf := &bytes.Buffer{}
	m.out = buf
	return m, buf
}

func TestDisplayCandidates(t *testing.T) {
	m, buf := newBufferedManager()

	if err := m.DisplayCandidates([]string{"feat: add login", "fix: handle empty token"}); err != nil {
		t.Fatalf("DisplayCandidates() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"Generated Commit Messages (2)", "1. feat: add login", "2. fix: handle empty token"} {
		if !strings.Contains(out, want) {
			t.Errorf("DisplayCandidates() output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := m.DisplayCandidates([]string{"chore: bump deps"}); err != nil {
		t.Fatalf("DisplayCandidates() error = %v", err)
	}
	if !strings.Contains(buf.String(), "Generated Commit Message\n") {
		t.Errorf("single candidate title wrong:\n%s", buf.String())
	}

	if err := m.DisplayCandidates(nil); err == nil {
		t.Error("DisplayCandidates(nil) should return an error")
	}
}

func TestSelectCandidate_WithoutPrompt(t *testing.T) {
	m := NewDefaultManager(false, "")

	idx, err := m.SelectCandidate([]string{"only one"})
	if err != nil || idx != 0 {
		t.Errorf("SelectCandidate() = %d, %v, want 0, nil", idx, err)
	}

	if _, err := m.SelectCandidate(nil); err == nil {
		t.Error("SelectCandidate(nil) should return an error")
	}
}

func TestCandidateOptions(t *testing.T) {
	opts := candidateOptions([]string{"a", "b", "c"})
	if len(opts) != 3 {
		t.Fatalf("len(candidateOptions()) = %d, want 3", len(opts))
	}
	for i, o := range opts {
		if o.Value != i {
			t.Errorf("option %d value = %d", i, o.Value)
		}
	}
	if opts[1].Key != "2. b" {
		t.Errorf("option key = %q, want %q", opts[1].Key, "2. b")
	}
}

func TestActionSelectModel(t *testing.T) {
	press := func(m tea.Model, keys ...string) actionSelectModel {
		for _, k := range keys {
			var msg tea.KeyMsg
			switch k {
			case "down":
				msg = tea.KeyMsg{Type: tea.KeyDown}
			case "up":
				msg = tea.KeyMsg{Type: tea.KeyUp}
			case "enter":
				msg = tea.KeyMsg{Type: tea.KeyEnter}
			default:
				msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
			}
			m, _ = m.Update(msg)
		}
		return m.(actionSelectModel)
	}

	tests := []struct {
		name string
		keys []string
		want Action
	}{
		{name: "enter accepts", keys: []string{"enter"}, want: ActionAccept},
		{name: "down then enter edits", keys: []string{"down", "enter"}, want: ActionEdit},
		{name: "cursor stops at top", keys: []string{"up", "up", "enter"}, want: ActionAccept},
		{name: "j moves down", keys: []string{"j", "j", "enter"}, want: ActionRegenerate},
		{name: "quick select", keys: []string{"3"}, want: ActionRegenerate},
		{name: "q cancels", keys: []string{"q"}, want: ActionCancel},
		{name: "cursor stops at bottom", keys: []string{"down", "down", "down", "down", "down", "enter"}, want: ActionCancel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := press(newActionSelectModel(), tt.keys...)
			if !got.done {
				t.Fatal("model not done")
			}
			if got.selected != tt.want {
				t.Errorf("selected = %v, want %v", got.selected, tt.want)
			}
			if got.View() != "" {
				t.Error("View() should be empty once done")
			}
		})
	}

	if view := newActionSelectModel().View(); !strings.Contains(view, "Regenerate") {
		t.Errorf("View() = %q, want the action list", view)
	}
}

func TestNormalizeEdited(t *testing.T) {
	tests := []struct {
		name   string
		edited string
		want   string
	}{
		{name: "unchanged", edited: "feat: add login", want: "feat: add login"},
		{name: "comment lines dropped", edited: "feat: add login\n\n# Lines starting with '#' are ignored.\n", want: "feat: add login"},
		{name: "body kept", edited: "feat: add login\n\nUses OAuth.\r\n", want: "feat: add login\n\nUses OAuth."},
		{name: "trailing spaces", edited: "fix: typo   \n", want: "fix: typo"},
		{name: "only comments", edited: "# nothing\n", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeEdited(tt.edited); got != tt.want {
				t.Errorf("normalizeEdited() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEditMessage_ExternalEditor(t *testing.T) {
	// "true" exits successfully without touching the file, so the message
	// comes back as written minus the instruction comment.
	m, _ := newBufferedManager()
	m.editor = "true"

	got, err := m.EditMessage("docs: explain retries")
	if err != nil {
		t.Fatalf("EditMessage() error = %v", err)
	}
	if got != "docs: explain retries" {
		t.Errorf("EditMessage() = %q", got)
	}

	if _, err := m.EditMessage("   "); err == nil {
		t.Error("EditMessage() with blank message should return an error")
	}
}

func TestGetEditor(t *testing.T) {
	t.Setenv("EDITOR", "nano")
	t.Setenv("VISUAL", "")

	if got := NewDefaultManager(true, "vim").getEditor(); got != "vim" {
		t.Errorf("getEditor() = %q, want %q", got, "vim")
	}
	if got := NewDefaultManager(true, "").getEditor(); got != "nano" {
		t.Errorf("getEditor() = %q, want %q", got, "nano")
	}

	t.Setenv("EDITOR", "")
	t.Setenv("VISUAL", "emacs")
	if got := NewDefaultManager(true, "").getEditor(); got != "emacs" {
		t.Errorf("getEditor() = %q, want %q", got, "emacs")
	}
}

func TestNewDefaultManager(t *testing.T) {
	m := NewDefaultManager(true, "vim")
	if !m.colorEnabled {
		t.Error("colorEnabled should be true")
	}
	if m.editor != "vim" {
		t.Errorf("editor = %q, want %q", m.editor, "vim")
	}
	if m.styles == nil {
		t.Error("styles should not be nil")
	}
}

func TestShowErrorAndSuccess(t *testing.T) {
	m, buf := newBufferedManager()

	m.ShowError(nil)
	if buf.Len() != 0 {
		t.Errorf("ShowError(nil) wrote %q", buf.String())
	}

	m.ShowError(errors.New("rate limit exceeded"))
	if !strings.Contains(buf.String(), "Error: rate limit exceeded") {
		t.Errorf("ShowError() output = %q", buf.String())
	}

	m.ShowSuccess("Successfully committed!")
	if !strings.Contains(buf.String(), "[OK] Successfully committed!") {
		t.Errorf("ShowSuccess() output = %q", buf.String())
	}
}

func TestNonInteractiveManager(t *testing.T) {
	m := NewNonInteractiveManager(false)
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	m.out, m.errOut = out, errOut

	candidates := []string{"feat: first", "feat: second"}
	if err := m.DisplayCandidates(candidates); err != nil {
		t.Fatalf("DisplayCandidates() error = %v", err)
	}
	if out.String() != "feat: first\n" {
		t.Errorf("stdout = %q, want only the first candidate", out.String())
	}

	if idx, err := m.SelectCandidate(candidates); err != nil || idx != 0 {
		t.Errorf("SelectCandidate() = %d, %v", idx, err)
	}
	if _, err := m.SelectCandidate(nil); err == nil {
		t.Error("SelectCandidate(nil) should return an error")
	}

	if action, err := m.PromptAction(); err != nil || action != ActionAccept {
		t.Errorf("PromptAction() = %v, %v, want %v", action, err, ActionAccept)
	}
	if edited, _ := m.EditMessage("feat: first"); edited != "feat: first" {
		t.Errorf("EditMessage() = %q", edited)
	}
	if ok, _ := m.PromptConfirm("Stage everything?"); !ok {
		t.Error("PromptConfirm() should always return true")
	}

	m.ShowSuccess("done")
	m.ShowError(errors.New("boom"))
	if !strings.Contains(errOut.String(), "done") || !strings.Contains(errOut.String(), "Error: boom") {
		t.Errorf("stderr = %q", errOut.String())
	}
	if out.String() != "feat: first\n" {
		t.Errorf("status messages leaked to stdout: %q", out.String())
	}

	// Spinners are no-ops and must not panic.
	s := m.ShowProgressSpinner("Sending", 3)
	s.Start()
	s.SetTotal(4)
	s.SetCurrent(2)
	s.UpdateText("part 2 of 4")
	s.Stop()
	m.ShowSpinner("x").Stop()
}

func TestStatusModel(t *testing.T) {
	m := newStatusModel(statusUpdateMsg{text: "Sending", total: 3}, true)

	next, _ := m.Update(statusUpdateMsg{current: 2, total: 4, text: "part 2 of 4"})
	sm := next.(statusModel)
	if sm.current != 2 || sm.total != 4 || sm.text != "part 2 of 4" {
		t.Errorf("statusModel after update = %+v", sm.statusUpdateMsg)
	}
	if !strings.Contains(sm.View(), "2/4") {
		t.Errorf("View() = %q, want 2/4", sm.View())
	}

	next, _ = sm.Update(statusUpdateMsg{current: 3, total: 4})
	if got := next.(statusModel).text; got != "part 2 of 4" {
		t.Errorf("empty text update replaced text with %q", got)
	}

	next, cmd := sm.Update(statusQuitMsg{})
	if cmd == nil || next.(statusModel).View() != "" {
		t.Error("quit message should stop the model")
	}
}

func TestStatusModel_WithoutBar(t *testing.T) {
	m := newStatusModel(statusUpdateMsg{text: "Generating"}, false)
	view := m.View()
	if !strings.HasSuffix(view, " Generating") || strings.Contains(view, "/") {
		t.Errorf("View() = %q, want spinner and text only", view)
	}
}
