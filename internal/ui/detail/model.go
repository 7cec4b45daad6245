package detail

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rkalmar/fleetmate/internal/keys"
	"github.com/rkalmar/fleetmate/internal/model"
	"github.com/rkalmar/fleetmate/internal/notify"
	"github.com/rkalmar/fleetmate/internal/theme"
)

// BackMsg signals the parent to navigate back to the list view.
type BackMsg struct{}

// DetailLoadedMsg carries the notification plus fleet-wide stats. Stats
// are a derived summary; a zero value renders as unavailable rather than
// blocking the detail pane.
type DetailLoadedMsg struct {
	Notification model.Notification
	Stats        model.NotificationStats
	HaveStats    bool
}

// ActionMsg asks the parent to apply a mutation to the shown
// notification.
type ActionMsg struct {
	Action string
	ID     string
}

// Model is the notification detail view component.
type Model struct {
	notification *model.Notification
	stats        model.NotificationStats
	haveStats    bool

	viewport viewport.Model
	sync     *notify.Sync
	keys     *keys.KeyMap
	width    int
	height   int
	loading  bool
}

// New creates a new detail view model.
func New(s *notify.Sync, keys *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		sync:     s,
		keys:     keys,
		width:    width,
		height:   height,
	}
}

// Init returns the initial command for the detail view.
func (m Model) Init() tea.Cmd {
	return nil
}

// Load returns a command that fetches fleet stats to accompany the
// given notification.
func (m Model) Load(n model.Notification) tea.Cmd {
	s := m.sync
	return func() tea.Msg {
		stats := s.FetchStats(context.Background())
		return DetailLoadedMsg{
			Notification: n,
			Stats:        stats,
			HaveStats:    stats != model.NotificationStats{},
		}
	}
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case DetailLoadedMsg:
		n := msg.Notification
		m.notification = &n
		m.stats = msg.Stats
		m.haveStats = msg.HaveStats
		m.loading = false
		m.viewport.SetContent(m.renderContent())
		m.viewport.GotoTop()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg { return BackMsg{} }

		case key.Matches(msg, m.keys.MarkRead):
			if m.notification != nil && !m.notification.Read {
				id := m.notification.ID
				return m, func() tea.Msg {
					return ActionMsg{Action: "read", ID: id}
				}
			}

		case key.Matches(msg, m.keys.Dismiss):
			if m.notification != nil {
				id := m.notification.ID
				return m, func() tea.Msg {
					return ActionMsg{Action: "dismiss", ID: id}
				}
			}
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the detail view.
func (m Model) View() string {
	if m.loading {
		loadingStyle := lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray)
		return loadingStyle.Render("Loading reminder...")
	}

	if m.notification == nil {
		emptyStyle := lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray)
		return emptyStyle.Render("No reminder selected")
	}

	return m.viewport.View()
}

// SetLoading sets the loading state.
func (m *Model) SetLoading(loading bool) {
	m.loading = loading
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if m.notification == nil {
		return ""
	}

	n := m.notification
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, titleStyle.Render(n.CarDetails))

	// Badges line: severity + read state
	sevBadge := theme.SeverityStyle(n.Type).Render(theme.SeverityLabel(n.Type))
	readBadge := lipgloss.NewStyle().
		Foreground(theme.ColorGray).
		Render("read")
	if !n.Read {
		readBadge = lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorBlue).
			Render("unread")
	}
	sections = append(sections, lipgloss.JoinHorizontal(
		lipgloss.Top, sevBadge, "  ", readBadge,
	))
	sections = append(sections, "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)

	if !n.CreatedAt.IsZero() {
		sections = append(sections, fmt.Sprintf(
			"%s   %s (%s)",
			metaStyle.Render("Created:"),
			valStyle.Render(n.CreatedAt.Format("2006-01-02 15:04")),
			ageString(n.CreatedAt),
		))
	}
	if n.KmToNextService != nil {
		km := *n.KmToNextService
		text := fmt.Sprintf("in %d km", km)
		if km < 0 {
			text = fmt.Sprintf("%d km overdue", -km)
		}
		sections = append(sections, fmt.Sprintf(
			"%s  %s",
			metaStyle.Render("Next service:"),
			valStyle.Render(text),
		))
	}
	if n.ServiceCount != nil {
		sections = append(sections, fmt.Sprintf(
			"%s  %s",
			metaStyle.Render("Services so far:"),
			valStyle.Render(fmt.Sprintf("%d", *n.ServiceCount)),
		))
	}

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", min(m.width-4, 80)))
	sections = append(sections, "", separator, "")

	msgHeaderStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)
	sections = append(sections, msgHeaderStyle.Render("Reminder"))

	body := n.Message
	if body == "" {
		body = lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true).
			Render("No message")
	}
	sections = append(sections, body)

	// Fleet overview from the stats endpoint.
	sections = append(sections, "", separator, "")
	sections = append(sections, msgHeaderStyle.Render("Fleet Overview"))
	if m.haveStats {
		sections = append(sections, fmt.Sprintf(
			"%s %s   %s %s   %s %s   %s %s",
			metaStyle.Render("active:"),
			valStyle.Render(fmt.Sprintf("%d", m.stats.Total)),
			metaStyle.Render("unread:"),
			valStyle.Render(fmt.Sprintf("%d", m.stats.Unread)),
			metaStyle.Render("warnings:"),
			valStyle.Render(fmt.Sprintf("%d", m.stats.Warning)),
			metaStyle.Render("overdue:"),
			valStyle.Render(fmt.Sprintf("%d", m.stats.Overdue)),
		))
	} else {
		sections = append(sections, metaStyle.Render("stats unavailable"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// ageString describes how long ago the notification was created.
func ageString(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
