package ui

import (
	"strings"

	"testhub/internal/logging"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// Markdown bodies of the informational pages.
const (
	homeMarkdown = `## Welcome

Testing Hub turns source code into ready-to-run test scripts.

- Pick **Create Test Script** to upload a single code file or a zipped project.
- Choose the language and test framework you want the script written for.
- Copy the generated script straight into your project.
`

	aboutMarkdown = `## About

Testing Hub sends your code to a test-generation service and shows the script
it writes. Files are uploaded only when you submit; nothing is kept locally.
`

	projectsMarkdown = `## Projects

Zip a project folder and upload it from **Create Test Script** to get tests
that cover the whole project instead of one file.
`

	contactMarkdown = `## Contact

Questions or feedback about generated scripts are welcome. Open an issue in
the Testing Hub repository.
`
)

// StaticPageModel renders a markdown page in a scrollable viewport.
type StaticPageModel struct {
	width    int
	height   int
	markdown string
	rendered string
	viewport viewport.Model
	styles   Styles
}

// NewStaticPageModel creates a page for the given markdown body.
func NewStaticPageModel(markdown string, styles Styles) StaticPageModel {
	m := StaticPageModel{
		markdown: markdown,
		viewport: viewport.New(0, 0),
		styles:   styles,
	}
	m.render(MarkdownWidth(80))
	return m
}

// Init initializes the model.
func (m StaticPageModel) Init() tea.Cmd {
	return nil
}

// SetSize updates the viewport size and re-wraps the markdown.
func (m *StaticPageModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.viewport.Width = w
	m.viewport.Height = h
	m.render(MarkdownWidth(w))
}

func (m *StaticPageModel) render(wrap int) {
	out, err := DefaultRenderCache.RenderMarkdown(m.markdown, m.styles.GlamourStyle(), wrap)
	if err != nil {
		logging.UIDebug("markdown render failed: %v", err)
		out = m.markdown
	}
	m.rendered = strings.TrimRight(out, "\n")
	m.viewport.SetContent(m.rendered)
}

// Update handles scrolling.
func (m StaticPageModel) Update(msg tea.Msg) (StaticPageModel, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the page.
func (m StaticPageModel) View() string {
	if m.height == 0 {
		return m.rendered
	}
	return m.viewport.View()
}
