package ui

import (
	"strings"

	"testhub/internal/config"
	"testhub/internal/logging"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// NavLink is one entry of the persistent navigation header.
type NavLink struct {
	Text string
	Path string
}

// Route paths.
const (
	PathHome       = "/"
	PathAbout      = "/about"
	PathProjects   = "/projects"
	PathCreateTest = "/create-test"
	PathContact    = "/contact"
)

// FallbackTitle is the banner title for paths without a nav link.
const FallbackTitle = "Testing Hub"

// NavLinks lists the header links in display order.
var NavLinks = []NavLink{
	{Text: "Home", Path: PathHome},
	{Text: "About", Path: PathAbout},
	{Text: "Projects", Path: PathProjects},
	{Text: "Create Test Script", Path: PathCreateTest},
	{Text: "Contact", Path: PathContact},
}

// BannerTitle returns the text of the link whose path equals path, or FallbackTitle.
func BannerTitle(path string) string {
	for _, link := range NavLinks {
		if link.Path == path {
			return link.Text
		}
	}
	return FallbackTitle
}

func navIndex(path string) int {
	for i, link := range NavLinks {
		if link.Path == path {
			return i
		}
	}
	return -1
}

// Shell is the root model: header, banner and the page for the current path.
type Shell struct {
	width  int
	height int
	path   string

	statics  map[string]StaticPageModel
	generate GeneratePageModel

	styles Styles
}

// NewShell builds the shell with all pages. path selects the initial page.
func NewShell(cfg *config.Config, client Generator, styles Styles, path string) Shell {
	s := Shell{
		path: path,
		statics: map[string]StaticPageModel{
			PathHome:     NewStaticPageModel(homeMarkdown, styles),
			PathAbout:    NewStaticPageModel(aboutMarkdown, styles),
			PathProjects: NewStaticPageModel(projectsMarkdown, styles),
			PathContact:  NewStaticPageModel(contactMarkdown, styles),
		},
		generate: NewGeneratePageModel(cfg, client, styles),
		styles:   styles,
	}
	if s.path == "" {
		s.path = PathHome
	}
	return s
}

// Path returns the current path.
func (s Shell) Path() string { return s.path }

// GeneratePage returns the Create Test Script page.
func (s Shell) GeneratePage() GeneratePageModel { return s.generate }

// Navigate switches to path. Unknown paths are kept and render no page.
func (s *Shell) Navigate(path string) {
	if path == s.path {
		return
	}
	logging.UIDebug("navigate %s -> %s", s.path, path)
	s.path = path
}

// Close releases page resources.
func (s *Shell) Close() {
	s.generate.Close()
}

// Init initializes the model.
func (s Shell) Init() tea.Cmd {
	return nil
}

// Update routes messages to the shell keys or the active page.
func (s Shell) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
		layout := NewLayoutConfig(msg.Width, msg.Height)
		for p, page := range s.statics {
			page.SetSize(layout.PageWidth(), layout.PageHeight())
			s.statics[p] = page
		}
		s.generate.SetSize(layout.PageWidth(), layout.PageHeight())
		return s, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return s, tea.Quit
		}
		if !s.capturing() {
			switch key := msg.String(); key {
			case "q":
				return s, tea.Quit
			case "1", "2", "3", "4", "5":
				s.Navigate(NavLinks[int(key[0]-'1')].Path)
				return s, nil
			case "[":
				s.step(-1)
				return s, nil
			case "]":
				s.step(1)
				return s, nil
			}
		}
		return s.updateActive(msg)
	}

	// Results, ticks and watcher events belong to the generate page even
	// while another page is showing.
	var cmd tea.Cmd
	s.generate, cmd = s.generate.Update(msg)
	return s, cmd
}

func (s Shell) updateActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if s.path == PathCreateTest {
		s.generate, cmd = s.generate.Update(msg)
		return s, cmd
	}
	if page, ok := s.statics[s.path]; ok {
		page, cmd = page.Update(msg)
		s.statics[s.path] = page
	}
	return s, cmd
}

func (s Shell) capturing() bool {
	return s.path == PathCreateTest && s.generate.CapturingInput()
}

func (s *Shell) step(delta int) {
	i := navIndex(s.path)
	if i < 0 {
		i = 0
	}
	n := len(NavLinks)
	s.Navigate(NavLinks[(i+delta+n)%n].Path)
}

// View renders the header, the banner and the active page.
func (s Shell) View() string {
	var sb strings.Builder
	sb.WriteString(s.renderHeader())
	sb.WriteString("\n")
	sb.WriteString(s.styles.Banner.Render(BannerTitle(s.path)))
	sb.WriteString("\n")
	sb.WriteString(s.styles.Content.Render(s.renderPage()))
	sb.WriteString("\n")
	sb.WriteString(s.styles.Footer.Render("1-5 / [ ] switch page • q quit"))
	return sb.String()
}

func (s Shell) renderHeader() string {
	items := make([]string, 0, len(NavLinks))
	for i, link := range NavLinks {
		label := string(rune('1'+i)) + " " + link.Text
		if link.Path == s.path {
			items = append(items, s.styles.NavActive.Render(label))
		} else {
			items = append(items, s.styles.NavItem.Render(label))
		}
	}
	header := lipgloss.JoinHorizontal(lipgloss.Top, items...)
	if s.width > 0 {
		return s.styles.Header.Width(s.width).Render(header)
	}
	return s.styles.Header.Render(header)
}

func (s Shell) renderPage() string {
	if s.path == PathCreateTest {
		return s.generate.View()
	}
	if page, ok := s.statics[s.path]; ok {
		return page.View()
	}
	return ""
}

// SetStartDir sets the directory the file picker opens in.
func (s *Shell) SetStartDir(dir string) {
	s.generate.SetStartDir(dir)
}
