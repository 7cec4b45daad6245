package connect

import (
	"fmt"
	"net/url"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/rkalmar/fleetmate/internal/theme"
)

// ConnectedMsg is dispatched when the user submits server details. The
// app persists the base URL to config and the token to the keyring, then
// rebuilds its API client.
type ConnectedMsg struct {
	BaseURL string
	Token   string
}

// CancelMsg is dispatched when the user aborts the connect form. It is
// ignored on first run, where there is nothing to go back to.
type CancelMsg struct{}

type formBindings struct {
	baseURL string
	token   string
}

// Model is the server connection form, shown on first run and whenever
// the server rejects the stored token.
type Model struct {
	form *huh.Form
	fb   *formBindings

	// reason is displayed above the form, e.g. after a 401.
	reason string

	width  int
	height int
}

// New creates the connect form pre-filled with the current base URL.
func New(baseURL, reason string, width, height int) Model {
	m := Model{
		fb:     &formBindings{baseURL: baseURL},
		reason: reason,
		width:  width,
		height: height,
	}
	m.form = m.buildForm()
	return m
}

func (m Model) Init() tea.Cmd {
	return m.form.Init()
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		fb := m.fb
		return m, func() tea.Msg {
			return ConnectedMsg{
				BaseURL: strings.TrimRight(strings.TrimSpace(fb.baseURL), "/"),
				Token:   strings.TrimSpace(fb.token),
			}
		}
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render("Connect to Fleet Server")
	if m.reason != "" {
		content += "\n" + theme.ErrorStyle.Render(m.reason)
	}
	content += "\n" + m.form.View()

	return lipgloss.NewStyle().Padding(1, 2).Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	fb := m.fb

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Server URL").
				Placeholder("https://fleet.example.com/api").
				Value(&fb.baseURL).
				Validate(validateURL),
			huh.NewInput().
				Title("API Token").
				Placeholder("paste your access token").
				EchoMode(huh.EchoModePassword).
				Value(&fb.token).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("token is required")
					}
					return nil
				}),
		),
	).WithWidth(formWidth(m.width))
}

func validateURL(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("server URL is required")
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("enter a full URL like https://host/api")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL must use http or https")
	}
	return nil
}

func formWidth(w int) int {
	w -= 4
	if w < 40 {
		w = 40
	}
	if w > 80 {
		w = 80
	}
	return w
}
