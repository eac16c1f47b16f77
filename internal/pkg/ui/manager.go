// Package ui provides the terminal interaction of commitwise: candidate
// listing, selection, editing and progress feedback.
package ui

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// Action is what the user wants to do with the chosen candidate.
type Action int

const (
	ActionAccept Action = iota
	ActionEdit
	ActionRegenerate
	ActionCancel
)

// actionMenu lists the actions in display order, indexed by Action.
var actionMenu = [...]struct {
	name, label, help string
}{
	ActionAccept:     {"accept", "Accept", "commit with this message"},
	ActionEdit:       {"edit", "Edit", "change the message before committing"},
	ActionRegenerate: {"regenerate", "Regenerate", "ask the provider for new candidates"},
	ActionCancel:     {"cancel", "Cancel", "leave without committing"},
}

func (a Action) String() string {
	if a < 0 || int(a) >= len(actionMenu) {
		return "unknown"
	}
	return actionMenu[a].name
}

// Spinner provides loading animation functionality.
type Spinner interface {
	Start()
	Stop()
	UpdateText(text string)
}

// ProgressSpinner tracks the chunks of a large diff as they are sent.
type ProgressSpinner interface {
	Spinner
	SetTotal(total int)
	SetCurrent(current int)
}

// Manager defines the interface for UI operations.
type Manager interface {
	DisplayCandidates(candidates []string) error
	// SelectCandidate returns the index of the chosen candidate.
	SelectCandidate(candidates []string) (int, error)
	PromptAction() (Action, error)
	EditMessage(message string) (string, error)
	ShowSpinner(text string) Spinner
	ShowProgressSpinner(text string, total int) ProgressSpinner
	ShowError(err error)
	ShowSuccess(message string)
	PromptConfirm(message string) (bool, error)
}

// DefaultManager implements the Manager interface using charmbracelet libraries.
type DefaultManager struct {
	colorEnabled bool
	editor       string
	styles       *styles
	out          io.Writer
}

type styles struct {
	title      lipgloss.Style
	index      lipgloss.Style
	candidate  lipgloss.Style
	success    lipgloss.Style
	errorStyle lipgloss.Style
	info       lipgloss.Style
}

func newStyles(colorEnabled bool) *styles {
	if !colorEnabled {
		plain := lipgloss.NewStyle()
		return &styles{
			title:      plain,
			index:      plain,
			candidate:  plain,
			success:    plain,
			errorStyle: plain,
			info:       plain,
		}
	}

	return &styles{
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")),
		index: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")),
		candidate: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("220")),
		success: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42")),
		errorStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")),
		info: lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")),
	}
}

// NewDefaultManager creates a new DefaultManager with the specified options.
func NewDefaultManager(colorEnabled bool, editor string) *DefaultManager {
	return &DefaultManager{
		colorEnabled: colorEnabled,
		editor:       editor,
		styles:       newStyles(colorEnabled),
		out:          os.Stdout,
	}
}

// DisplayCandidates prints the generated candidates as a numbered list.
func (m *DefaultManager) DisplayCandidates(candidates []string) error {
	if len(candidates) == 0 {
		return fmt.Errorf("no candidates to display")
	}

	title := "Generated Commit Message"
	if len(candidates) > 1 {
		title = fmt.Sprintf("Generated Commit Messages (%d)", len(candidates))
	}

	fmt.Fprintln(m.out)
	fmt.Fprintln(m.out, m.styles.title.Render(title))
	fmt.Fprintln(m.out, strings.Repeat("-", 50))
	for i, c := range candidates {
		fmt.Fprintf(m.out, "%s %s\n", m.styles.index.Render(fmt.Sprintf("%d.", i+1)), m.styles.candidate.Render(c))
	}
	fmt.Fprintln(m.out, strings.Repeat("-", 50))
	fmt.Fprintln(m.out)
	return nil
}

// SelectCandidate asks which candidate to use. A single candidate is chosen
// without prompting.
func (m *DefaultManager) SelectCandidate(candidates []string) (int, error) {
	switch len(candidates) {
	case 0:
		return -1, fmt.Errorf("no candidates to select from")
	case 1:
		return 0, nil
	}

	choice := 0
	err := huh.NewSelect[int]().
		Title("Pick a commit message").
		Options(candidateOptions(candidates)...).
		Value(&choice).
		Run()
	if err != nil {
		return -1, err
	}
	return choice, nil
}

func candidateOptions(candidates []string) []huh.Option[int] {
	opts := make([]huh.Option[int], len(candidates))
	for i, c := range candidates {
		opts[i] = huh.NewOption(fmt.Sprintf("%d. %s", i+1, c), i)
	}
	return opts
}

// PromptAction asks what to do with the selected message.
func (m *DefaultManager) PromptAction() (Action, error) {
	final, err := tea.NewProgram(newActionSelectModel()).Run()
	if err != nil {
		return ActionCancel, err
	}
	return final.(actionSelectModel).selected, nil
}

var actionKeys = struct {
	up, down, choose, cancel key.Binding
}{
	up:     key.NewBinding(key.WithKeys("up", "k")),
	down:   key.NewBinding(key.WithKeys("down", "j")),
	choose: key.NewBinding(key.WithKeys("enter", " ")),
	cancel: key.NewBinding(key.WithKeys("ctrl+c", "esc", "q")),
}

// actionSelectModel is a one-screen menu over actionMenu. Digits pick an
// entry directly.
type actionSelectModel struct {
	cursor   int
	selected Action
	done     bool
}

func newActionSelectModel() actionSelectModel {
	return actionSelectModel{selected: ActionCancel}
}

func (m actionSelectModel) Init() tea.Cmd { return nil }

func (m actionSelectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, actionKeys.cancel):
		return m.finish(ActionCancel)
	case key.Matches(keyMsg, actionKeys.choose):
		return m.finish(Action(m.cursor))
	case key.Matches(keyMsg, actionKeys.up):
		m.cursor = max(m.cursor-1, 0)
	case key.Matches(keyMsg, actionKeys.down):
		m.cursor = min(m.cursor+1, len(actionMenu)-1)
	default:
		if r := keyMsg.Runes; len(r) == 1 && r[0] >= '1' && int(r[0]-'1') < len(actionMenu) {
			return m.finish(Action(r[0] - '1'))
		}
	}
	return m, nil
}

func (m actionSelectModel) finish(a Action) (tea.Model, tea.Cmd) {
	m.selected = a
	m.done = true
	return m, tea.Quit
}

var (
	menuTitle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	menuActive = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	menuFaint  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func (m actionSelectModel) View() string {
	if m.done {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(menuTitle.Render("What would you like to do?") + "\n\n")
	for i, entry := range actionMenu {
		label := fmt.Sprintf("%d) %s", i+1, entry.label)
		if i == m.cursor {
			sb.WriteString("> " + menuActive.Render(label))
		} else {
			sb.WriteString("  " + label)
		}
		sb.WriteString(menuFaint.Render("  " + entry.help))
		sb.WriteString("\n")
	}
	sb.WriteString("\n" + menuFaint.Render("arrows or j/k to move, enter to choose, 1-4 to pick, q to cancel"))
	return sb.String()
}

// EditMessage lets the user rewrite message. The configured editor, then
// $EDITOR and $VISUAL are tried; without one, or when it fails to start, an
// inline huh text area is used.
func (m *DefaultManager) EditMessage(message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", fmt.Errorf("message cannot be empty")
	}

	if editor := m.getEditor(); editor != "" {
		edited, err := runEditor(editor, message)
		if err == nil {
			return normalizeEdited(edited), nil
		}
		fmt.Fprintln(m.out, m.styles.info.Render(fmt.Sprintf("Editor %q failed (%v), editing inline instead.", editor, err)))
	}

	edited, err := m.editWithInlineEditor(message)
	if err != nil {
		return "", fmt.Errorf("failed to edit message: %w", err)
	}
	return normalizeEdited(edited), nil
}

// normalizeEdited applies git's commit template rules: '#' lines are
// comments and outer blank lines are dropped.
func normalizeEdited(edited string) string {
	var kept []string
	for _, line := range strings.Split(strings.ReplaceAll(edited, "\r\n", "\n"), "\n") {
		if !strings.HasPrefix(line, "#") {
			kept = append(kept, strings.TrimRight(line, " \t"))
		}
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func (m *DefaultManager) getEditor() string {
	for _, editor := range []string{m.editor, os.Getenv("EDITOR"), os.Getenv("VISUAL")} {
		if editor != "" {
			return editor
		}
	}
	return ""
}

const editTemplateHint = "\n\n# Edit the commit message above. Lines starting with '#' are ignored.\n"

// runEditor opens message in editor, which may carry arguments such as
// "code --wait". The file is named COMMIT_EDITMSG so editors pick git syntax.
func runEditor(editor, message string) (string, error) {
	dir, err := os.MkdirTemp("", "commitwise-")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(dir)

	file := filepath.Join(dir, "COMMIT_EDITMSG")
	if err := os.WriteFile(file, []byte(message+editTemplateHint), 0o600); err != nil {
		return "", err
	}

	argv := append(strings.Fields(editor), file)
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := cmd.Run(); err != nil {
		return "", err
	}

	edited, err := os.ReadFile(file)
	return string(edited), err
}

func (m *DefaultManager) editWithInlineEditor(content string) (string, error) {
	edited := content

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title("Edit Commit Message").
				Description("Press Tab then Enter to save. Ctrl+C or Esc to cancel.").
				Value(&edited).
				CharLimit(0),
		),
	)
	if err := form.Run(); err != nil {
		return "", err
	}
	return edited, nil
}

// ShowSpinner returns a stopped spinner showing text.
func (m *DefaultManager) ShowSpinner(text string) Spinner {
	return newStatusSpinner(text, 0, false)
}

// ShowProgressSpinner returns a stopped spinner with a chunk progress bar.
func (m *DefaultManager) ShowProgressSpinner(text string, total int) ProgressSpinner {
	return newStatusSpinner(text, total, true)
}

// ShowError displays an error message to the user.
func (m *DefaultManager) ShowError(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(m.out)
	fmt.Fprintln(m.out, m.styles.errorStyle.Render("Error: "+err.Error()))
	fmt.Fprintln(m.out)
}

// ShowSuccess displays a success message to the user.
func (m *DefaultManager) ShowSuccess(message string) {
	fmt.Fprintln(m.out)
	fmt.Fprintln(m.out, m.styles.success.Render("[OK] "+message))
	fmt.Fprintln(m.out)
}

// PromptConfirm prompts the user for a yes/no confirmation using huh.
func (m *DefaultManager) PromptConfirm(message string) (bool, error) {
	confirmed := true
	err := huh.NewConfirm().
		Title(message).
		Affirmative("Yes").
		Negative("No").
		Value(&confirmed).
		Run()
	if err != nil {
		return false, err
	}
	return confirmed, nil
}

// statusSpinner animates a status line on stderr. With a total set it also
// draws a progress bar, which tracks chunked generation.
type statusSpinner struct {
	mu      sync.Mutex
	program *tea.Program
	state   statusUpdateMsg
	withBar bool
}

// statusModel is the Bubble Tea model behind statusSpinner.
type statusModel struct {
	spinner spinner.Model
	bar     *progress.Model
	statusUpdateMsg
	quitting bool
}

type statusUpdateMsg struct {
	text           string
	current, total int
}

type statusQuitMsg struct{}

func newStatusSpinner(text string, total int, withBar bool) *statusSpinner {
	return &statusSpinner{
		state:   statusUpdateMsg{text: text, total: total},
		withBar: withBar,
	}
}

func newStatusModel(state statusUpdateMsg, withBar bool) statusModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	m := statusModel{spinner: sp, statusUpdateMsg: state}
	if withBar {
		bar := progress.New(progress.WithDefaultGradient(), progress.WithWidth(20), progress.WithoutPercentage())
		m.bar = &bar
	}
	return m
}

func (m statusModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m statusModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case statusUpdateMsg:
		if msg.text == "" {
			msg.text = m.text
		}
		m.statusUpdateMsg = msg
	case statusQuitMsg:
		m.quitting = true
		cmd = tea.Quit
	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
	case progress.FrameMsg:
		if m.bar != nil {
			var next tea.Model
			next, cmd = m.bar.Update(msg)
			bar := next.(progress.Model)
			m.bar = &bar
		}
	}
	return m, cmd
}

func (m statusModel) View() string {
	if m.quitting {
		return ""
	}
	if m.bar == nil {
		return m.spinner.View() + " " + m.text
	}

	ratio := 0.0
	if m.total > 0 {
		ratio = float64(m.current) / float64(m.total)
	}
	return fmt.Sprintf("%s %s %d/%d %s", m.spinner.View(), m.bar.ViewAs(ratio), m.current, m.total, m.text)
}

func (s *statusSpinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.program != nil {
		return
	}
	s.program = tea.NewProgram(newStatusModel(s.state, s.withBar), tea.WithOutput(os.Stderr), tea.WithInput(nil))
	go func(p *tea.Program) { _, _ = p.Run() }(s.program)
}

func (s *statusSpinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.program == nil {
		return
	}
	s.program.Send(statusQuitMsg{})
	s.program.Wait()
	s.program = nil
}

// update applies fn to the state and pushes it to a running program.
func (s *statusSpinner) update(fn func(*statusUpdateMsg)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
	if s.program != nil {
		s.program.Send(s.state)
	}
}

func (s *statusSpinner) UpdateText(text string) {
	s.update(func(st *statusUpdateMsg) { st.text = text })
}

func (s *statusSpinner) SetTotal(total int) {
	s.update(func(st *statusUpdateMsg) { st.total = total })
}

func (s *statusSpinner) SetCurrent(current int) {
	s.update(func(st *statusUpdateMsg) { st.current = current })
}

// NonInteractiveManager implements Manager for pipes and the --yes flag: the
// first candidate is accepted and nothing animates.
type NonInteractiveManager struct {
	styles *styles
	out    io.Writer
	errOut io.Writer
}

// NewNonInteractiveManager creates a new NonInteractiveManager.
func NewNonInteractiveManager(colorEnabled bool) *NonInteractiveManager {
	return &NonInteractiveManager{
		styles: newStyles(colorEnabled),
		out:    os.Stdout,
		errOut: os.Stderr,
	}
}

// DisplayCandidates prints the candidate that will be used.
func (m *NonInteractiveManager) DisplayCandidates(candidates []string) error {
	if len(candidates) == 0 {
		return fmt.Errorf("no candidates to display")
	}
	fmt.Fprintln(m.out, candidates[0])
	return nil
}

// SelectCandidate always picks the first candidate.
func (m *NonInteractiveManager) SelectCandidate(candidates []string) (int, error) {
	if len(candidates) == 0 {
		return -1, fmt.Errorf("no candidates to select from")
	}
	return 0, nil
}

// PromptAction always returns ActionAccept in non-interactive mode.
func (m *NonInteractiveManager) PromptAction() (Action, error) {
	return ActionAccept, nil
}

// EditMessage returns the original message unchanged in non-interactive mode.
func (m *NonInteractiveManager) EditMessage(message string) (string, error) {
	return message, nil
}

// ShowSpinner returns a no-op spinner in non-interactive mode.
func (m *NonInteractiveManager) ShowSpinner(text string) Spinner {
	return noopSpinner{}
}

// ShowProgressSpinner returns a no-op progress spinner in non-interactive mode.
func (m *NonInteractiveManager) ShowProgressSpinner(text string, total int) ProgressSpinner {
	return noopSpinner{}
}

// ShowError displays an error message.
func (m *NonInteractiveManager) ShowError(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(m.errOut, m.styles.errorStyle.Render("Error: "+err.Error()))
}

// ShowSuccess reports progress on stderr so stdout carries only the message.
func (m *NonInteractiveManager) ShowSuccess(message string) {
	fmt.Fprintln(m.errOut, m.styles.success.Render(message))
}

// PromptConfirm always returns true in non-interactive mode.
func (m *NonInteractiveManager) PromptConfirm(message string) (bool, error) {
	return true, nil
}

type noopSpinner struct{}

func (noopSpinner) Start()            {}
func (noopSpinner) Stop()             {}
func (noopSpinner) UpdateText(string) {}
func (noopSpinner) SetTotal(int)      {}
func (noopSpinner) SetCurrent(int)    {}
