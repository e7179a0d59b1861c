package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"testhub/internal/config"
	"testhub/internal/logging"
	"testhub/internal/upload"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// clipboardWriteAll is a package-level variable to allow mocking in tests.
var clipboardWriteAll = clipboard.WriteAll

// Generator performs one submission. *upload.Client satisfies it.
type Generator interface {
	Generate(ctx context.Context, req upload.Request) upload.Outcome
}

type focusField int

const (
	focusSingle focusField = iota
	focusArchive
	focusLanguage
	focusFramework
	focusInstructions
	focusSubmit
	focusScript
	focusCount
)

// outcomeMsg carries the result of submission id back to the update loop.
type outcomeMsg struct {
	id      uint64
	outcome upload.Outcome
}

// flashExpiredMsg asks the form to drop the transient status token.
type flashExpiredMsg struct {
	token uint64
}

// fileChangedMsg reports an on-disk change seen by watcher.
type fileChangedMsg struct {
	watcher *upload.Watcher
}

// GeneratePageModel is the Create Test Script page.
type GeneratePageModel struct {
	width  int
	height int

	form   *upload.Form
	client Generator
	ctx    context.Context
	cancel context.CancelFunc

	picker     filepicker.Model
	picking    bool
	pickTarget upload.Mode

	language     textinput.Model
	framework    textinput.Model
	instructions textinput.Model

	spinner    spinner.Model
	script     viewport.Model
	lastScript string

	focus focusField

	flashDelay     time.Duration
	watchSelection bool
	watcher        *upload.Watcher

	styles Styles
}

// NewGeneratePageModel creates the page from config. client performs the
// network exchange.
func NewGeneratePageModel(cfg *config.Config, client Generator, styles Styles) GeneratePageModel {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	target := upload.Target{Language: cfg.Defaults.Language, Framework: cfg.Defaults.Framework}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	fp := filepicker.New()
	fp.AutoHeight = false
	fp.ShowPermissions = false
	fp.SetHeight(PickerMinHeight * 2)

	ctx, cancel := context.WithCancel(context.Background())

	m := GeneratePageModel{
		form:           upload.NewForm(target, upload.WithMaxBytes(cfg.Upload.MaxBytes)),
		client:         client,
		ctx:            ctx,
		cancel:         cancel,
		picker:         fp,
		language:       newInput("python", target.Language),
		framework:      newInput("unittest", target.Framework),
		instructions:   newInput("optional notes for the generator", ""),
		spinner:        sp,
		script:         viewport.New(0, ScriptMinHeight),
		flashDelay:     cfg.GetClipboardStatusDelay(),
		watchSelection: cfg.Upload.WatchSelection,
		styles:         styles,
	}
	return m
}

func newInput(placeholder, value string) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = ""
	ti.CharLimit = 128
	ti.Width = InputMinWidth
	ti.SetValue(value)
	return ti
}

// Form exposes the controller behind the page.
func (m GeneratePageModel) Form() *upload.Form { return m.form }

// SetStartDir sets the directory the file picker opens in.
func (m *GeneratePageModel) SetStartDir(dir string) {
	if dir != "" {
		m.picker.CurrentDirectory = dir
	}
}

// CapturingInput reports whether keys are consumed by a text field or the picker.
func (m GeneratePageModel) CapturingInput() bool {
	if m.picking {
		return true
	}
	switch m.focus {
	case focusLanguage, focusFramework, focusInstructions:
		return true
	}
	return false
}

// Init initializes the model.
func (m GeneratePageModel) Init() tea.Cmd {
	return nil
}

// SetSize updates the component sizes.
func (m *GeneratePageModel) SetSize(w, h int) {
	m.width = w
	m.height = h

	m.picker.SetHeight(max(h-4, PickerMinHeight))

	inputWidth := max(w-18, InputMinWidth)
	m.language.Width = inputWidth
	m.framework.Width = inputWidth
	m.instructions.Width = inputWidth

	m.script.Width = PanelContentWidth(w)
	m.script.Height = max(h-FormHeight-4, ScriptMinHeight)
}

// Close cancels any submission in flight and stops the selection watcher.
func (m *GeneratePageModel) Close() {
	if m.cancel != nil {
		m.cancel()
	}
	m.stopWatching()
}

// Update handles messages.
func (m GeneratePageModel) Update(msg tea.Msg) (GeneratePageModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case outcomeMsg:
		if m.form.Complete(msg.id, msg.outcome) {
			logging.UIDebug("submission %d finished in phase %s", msg.id, m.form.Phase())
		}
		m.syncScript()
		return m, nil

	case flashExpiredMsg:
		m.form.Revert(msg.token)
		return m, nil

	case fileChangedMsg:
		if m.watcher == nil || msg.watcher != m.watcher {
			return m, nil
		}
		if m.form.Refresh() {
			logging.UI("selection changed on disk: %s", m.watcher.Path())
		}
		m.syncScript()
		return m, waitForChange(m.watcher)

	case spinner.TickMsg:
		if !m.form.Loading() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		var cmd tea.Cmd
		if m.picking {
			cmd = m.updatePicker(msg)
		} else {
			cmd = m.updateKeys(msg)
		}
		return m, cmd
	}

	// Directory listings and other picker internals.
	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	return m, cmd
}

func (m *GeneratePageModel) updatePicker(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "q" {
		m.picking = false
		return nil
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	didSelect, path := m.picker.DidSelectFile(msg)
	if !didSelect {
		return cmd
	}

	m.picking = false
	file, err := upload.FileFromPath(path)
	if err != nil {
		logging.UIDebug("cannot use %s: %v", path, err)
		token := m.form.Flash(upload.Status{Text: fmt.Sprintf("Could not read file: %v", err), Kind: upload.StatusError})
		return m.revertAfter(token)
	}
	return m.selectFile(m.pickTarget, &file)
}

func (m *GeneratePageModel) updateKeys(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+s":
		return m.submit()
	case "tab":
		m.setFocus((m.focus + 1) % focusCount)
		return nil
	case "shift+tab":
		m.setFocus((m.focus + focusCount - 1) % focusCount)
		return nil
	}

	if input := m.focusedInput(); input != nil {
		if msg.String() == "enter" {
			m.setFocus(m.focus + 1)
			return nil
		}
		var cmd tea.Cmd
		*input, cmd = input.Update(msg)
		m.form.SetLanguage(m.language.Value())
		m.form.SetFramework(m.framework.Value())
		m.form.SetInstructions(m.instructions.Value())
		return cmd
	}

	switch msg.String() {
	case "enter":
		switch m.focus {
		case focusSingle:
			return m.openPicker(upload.ModeSingle)
		case focusArchive:
			return m.openPicker(upload.ModeArchive)
		case focusSubmit:
			return m.submit()
		}
	case "x", "delete", "backspace":
		switch m.focus {
		case focusSingle:
			if !m.form.Loading() {
				return m.selectFile(upload.ModeSingle, nil)
			}
		case focusArchive:
			if !m.form.Loading() {
				return m.selectFile(upload.ModeArchive, nil)
			}
		}
	case "c", "y":
		if token, ok := m.form.Copy(clipboardWriteAll); ok {
			return m.revertAfter(token)
		}
	case "up", "down", "pgup", "pgdown", "k", "j":
		var cmd tea.Cmd
		m.script, cmd = m.script.Update(msg)
		return cmd
	}
	return nil
}

func (m *GeneratePageModel) focusedInput() *textinput.Model {
	switch m.focus {
	case focusLanguage:
		return &m.language
	case focusFramework:
		return &m.framework
	case focusInstructions:
		return &m.instructions
	}
	return nil
}

func (m *GeneratePageModel) setFocus(f focusField) {
	m.focus = f
	m.language.Blur()
	m.framework.Blur()
	m.instructions.Blur()
	if input := m.focusedInput(); input != nil {
		input.Focus()
	}
}

func (m *GeneratePageModel) openPicker(target upload.Mode) tea.Cmd {
	if m.form.Loading() {
		return nil
	}
	m.picking = true
	m.pickTarget = target
	return m.picker.Init()
}

// selectFile applies a slot change and re-arms the watcher.
func (m *GeneratePageModel) selectFile(target upload.Mode, file *upload.File) tea.Cmd {
	if target == upload.ModeArchive {
		m.form.SelectArchive(file)
	} else {
		m.form.SelectSingle(file)
	}
	m.syncScript()
	return m.rewatch()
}

func (m *GeneratePageModel) submit() tea.Cmd {
	req, ok := m.form.Begin()
	if !ok {
		return nil
	}
	m.syncScript()
	logging.UI("submitting %s as %s", req.File.Name, req.UploadType)

	client, ctx := m.client, m.ctx
	generate := func() tea.Msg {
		return outcomeMsg{id: req.ID, outcome: client.Generate(ctx, req)}
	}
	return tea.Batch(m.spinner.Tick, generate)
}

func (m *GeneratePageModel) revertAfter(token uint64) tea.Cmd {
	return tea.Tick(m.flashDelay, func(time.Time) tea.Msg {
		return flashExpiredMsg{token: token}
	})
}

func (m *GeneratePageModel) syncScript() {
	script, ok := m.form.Script()
	if !ok {
		script = ""
	}
	if script == m.lastScript {
		return
	}
	m.lastScript = script
	m.script.SetContent(script)
	m.script.GotoTop()
}

func (m *GeneratePageModel) rewatch() tea.Cmd {
	m.stopWatching()
	if !m.watchSelection {
		return nil
	}
	file, ok := m.form.Selection().File()
	if !ok {
		return nil
	}
	w, err := upload.NewWatcher(file.Path)
	if err != nil {
		logging.WatchWarn("cannot watch %s: %v", file.Path, err)
		return nil
	}
	m.watcher = w
	return waitForChange(w)
}

func (m *GeneratePageModel) stopWatching() {
	if m.watcher == nil {
		return
	}
	if err := m.watcher.Close(); err != nil {
		logging.WatchWarn("failed to close watcher: %v", err)
	}
	m.watcher = nil
}

func waitForChange(w *upload.Watcher) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-w.Changes(); !ok {
			return nil
		}
		return fileChangedMsg{watcher: w}
	}
}

// View renders the page.
func (m GeneratePageModel) View() string {
	if m.picking {
		return m.viewPicker()
	}

	var sb strings.Builder
	sel := m.form.Selection()

	sb.WriteString(m.styles.Title.Render("Option 1: Upload Single Code File"))
	sb.WriteString("\n")
	sb.WriteString(m.styles.Muted.Render("Select an individual code file (e.g., .js, .py, .java) for analysis."))
	sb.WriteString("\n")
	single, hasSingle := sel.Single()
	sb.WriteString(m.renderSlot(focusSingle, single, hasSingle))
	sb.WriteString("\n\n")

	sb.WriteString(m.styles.Title.Render("Option 2: Upload Project Folder (as .zip)"))
	sb.WriteString("\n")
	sb.WriteString(m.styles.Muted.Render("Compress your entire project folder into a .zip file and upload it."))
	sb.WriteString("\n")
	archive, hasArchive := sel.Archive()
	sb.WriteString(m.renderSlot(focusArchive, archive, hasArchive))
	sb.WriteString("\n\n")

	sb.WriteString(m.renderInput(focusLanguage, "Language", m.language))
	sb.WriteString("\n")
	sb.WriteString(m.renderInput(focusFramework, "Framework", m.framework))
	sb.WriteString("\n")
	sb.WriteString(m.renderInput(focusInstructions, "Instructions", m.instructions))
	sb.WriteString("\n\n")

	if status := m.form.Status(); !status.IsZero() {
		sb.WriteString(m.renderStatus(status))
		sb.WriteString("\n\n")
	}

	sb.WriteString(m.renderButton())
	sb.WriteString("\n")

	if script, ok := m.form.Script(); ok && script != "" {
		sb.WriteString("\n")
		header := "Generated Test Script"
		if m.focus == focusScript {
			header = m.styles.Focused.Render("> " + header)
		} else {
			header = m.styles.Title.Render(header)
		}
		sb.WriteString(header)
		sb.WriteString(m.styles.Muted.Render("  (c to copy)"))
		sb.WriteString("\n")
		sb.WriteString(m.styles.CodeBlock.Render(m.script.View()))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(m.styles.Muted.Render("tab focus • enter choose/submit • x clear slot • ctrl+s submit • c copy"))
	return sb.String()
}

func (m GeneratePageModel) viewPicker() string {
	what := "a code file"
	if m.pickTarget == upload.ModeArchive {
		what = "a .zip archive"
	}
	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render(fmt.Sprintf("Choose %s", what)))
	sb.WriteString("\n")
	sb.WriteString(m.styles.Muted.Render(m.picker.CurrentDirectory))
	sb.WriteString("\n\n")
	sb.WriteString(m.picker.View())
	sb.WriteString("\n")
	sb.WriteString(m.styles.Muted.Render("enter select • esc up a directory • q cancel"))
	return sb.String()
}

func (m GeneratePageModel) renderSlot(f focusField, file upload.File, ok bool) string {
	label := "No file chosen"
	if ok {
		label = file.Name
	}
	slot := m.styles.Slot.Render(label)
	if m.focus == f {
		return lipgloss.JoinHorizontal(lipgloss.Center, m.styles.Focused.Render("> "), slot)
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, "  ", slot)
}

func (m GeneratePageModel) renderInput(f focusField, label string, input textinput.Model) string {
	prefix := "  "
	style := m.styles.Body
	if m.focus == f {
		prefix = "> "
		style = m.styles.Focused
	}
	return style.Render(fmt.Sprintf("%s%-13s", prefix, label+":")) + " " + input.View()
}

func (m GeneratePageModel) renderStatus(s upload.Status) string {
	switch s.Kind {
	case upload.StatusError:
		return m.styles.Error.Render(s.Text)
	case upload.StatusSuccess:
		return m.styles.Success.Render(s.Text)
	default:
		return m.styles.Info.Render(s.Text)
	}
}

func (m GeneratePageModel) renderButton() string {
	prefix := "  "
	if m.focus == focusSubmit {
		prefix = m.styles.Focused.Render("> ")
	}
	if m.form.Loading() {
		return prefix + m.styles.Disabled.Render(m.spinner.View()+" Processing...")
	}
	if m.form.Selection().IsEmpty() {
		return prefix + m.styles.Disabled.Render("Process and Generate Tests")
	}
	return prefix + m.styles.Button.Render("Process and Generate Tests")
}
