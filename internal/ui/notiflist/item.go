package notiflist

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rkalmar/fleetmate/internal/model"
	"github.com/rkalmar/fleetmate/internal/theme"
)

// NotificationItem wraps a model.Notification so it can be used in a
// bubbles/list.
type NotificationItem struct {
	Notification model.Notification
}

// FilterValue returns the string used for fuzzy filtering.
func (i NotificationItem) FilterValue() string {
	return i.Notification.CarDetails + " " + i.Notification.Message
}

// ItemDelegate implements list.ItemDelegate for rendering notification rows.
type ItemDelegate struct{}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single notification line: severity badge, vehicle,
// message, remaining distance, and age.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ni, ok := item.(NotificationItem)
	if !ok {
		return
	}

	n := ni.Notification
	isSelected := index == m.Index()

	prefix := "●"
	if n.Read {
		prefix = "○"
	}

	badge := theme.SeverityStyle(n.Type).Render(theme.SeverityLabel(n.Type))

	car := lipgloss.NewStyle().
		Bold(!n.Read).
		Foreground(theme.ColorWhite).
		Render(n.CarDetails)

	kmStr := ""
	if n.KmToNextService != nil {
		kmStr = " " + renderKm(*n.KmToNextService)
	}

	timeStr := lipgloss.NewStyle().
		Foreground(theme.ColorGray).
		Render(relativeTime(n.CreatedAt))

	line := fmt.Sprintf(
		"%s %s %s — %s%s  %s",
		prefix, badge, car, n.Message, kmStr, timeStr,
	)

	if n.Read {
		line = theme.DimmedStyle.Render(line)
	}

	if isSelected {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}

	fmt.Fprint(w, line)
}

// renderKm formats the distance to the next service; negative values
// mean the service is overdue by that many kilometers.
func renderKm(km int) string {
	if km < 0 {
		return theme.ErrorStyle.Render(fmt.Sprintf("%d km overdue", -km))
	}
	return lipgloss.NewStyle().
		Foreground(theme.ColorGray).
		Render(fmt.Sprintf("in %d km", km))
}

// relativeTime returns a human-friendly relative time string.
func relativeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		mins := int(d.Minutes())
		if mins == 1 {
			return "1m ago"
		}
		return fmt.Sprintf("%dm ago", mins)
	case d < 24*time.Hour:
		hrs := int(d.Hours())
		if hrs == 1 {
			return "1h ago"
		}
		return fmt.Sprintf("%dh ago", hrs)
	case d < 7*24*time.Hour:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "1d ago"
		}
		return fmt.Sprintf("%dd ago", days)
	default:
		weeks := int(d.Hours() / 24 / 7)
		if weeks == 1 {
			return "1w ago"
		}
		return fmt.Sprintf("%dw ago", weeks)
	}
}
