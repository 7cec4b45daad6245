package notiflist

import (
	"context"
	"fmt"
	gosync "sync"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rkalmar/fleetmate/internal/keys"
	"github.com/rkalmar/fleetmate/internal/model"
	"github.com/rkalmar/fleetmate/internal/notify"
	"github.com/rkalmar/fleetmate/internal/theme"
)

// NotificationsLoadedMsg is sent when a list fetch has completed. When
// the fetch failed, Notifications carries the previously cached (stale)
// list so the view keeps showing it.
type NotificationsLoadedMsg struct {
	Notifications []model.Notification
	Err           error
}

// CheckDoneMsg carries the result of a server-side reminder recompute.
type CheckDoneMsg struct {
	Result notify.CheckResult
}

// SelectedNotificationMsg is emitted when the user opens a notification.
type SelectedNotificationMsg struct {
	Notification model.Notification
}

// OpenEntryFormMsg asks the root model to open the fuel/service entry form.
type OpenEntryFormMsg struct{}

// statusModes are the read-state filter values cycled by the u key.
var statusModes = []string{"all", "unread", "read"}

// sortModes are the sort keys cycled by Tab.
var sortModes = []string{
	model.SortByPriority,
	model.SortByDate,
	model.SortByKm,
	model.SortByCar,
}

// sharedFilter lets the debounce timer goroutine read the filter the
// user most recently typed, across Bubble Tea model copies.
type sharedFilter struct {
	mu     gosync.Mutex
	filter model.NotificationFilter
}

func (s *sharedFilter) get() model.NotificationFilter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

func (s *sharedFilter) set(f model.NotificationFilter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = f
}

// Model is the notification inbox view.
type Model struct {
	list        list.Model
	sync        *notify.Sync
	keys        *keys.KeyMap
	shared      *sharedFilter
	debouncer   *notify.Debouncer
	reloadCh    chan NotificationsLoadedMsg
	sortIndex   int
	statusIndex int
	searchMode  bool
	searchInput textinput.Model
	statusMsg   string
	width       int
	height      int
}

// New creates a new notification list model.
func New(s *notify.Sync, k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{}, width, height-2)
	l.Title = "Maintenance Reminders"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	si := textinput.New()
	si.Placeholder = "search vehicle or message..."
	si.Prompt = "/ "
	si.Width = width - 4

	shared := &sharedFilter{
		filter: model.NotificationFilter{SortBy: model.SortByPriority},
	}
	reloadCh := make(chan NotificationsLoadedMsg, 4)

	m := Model{
		list:        l,
		sync:        s,
		keys:        k,
		shared:      shared,
		reloadCh:    reloadCh,
		searchInput: si,
		width:       width,
		height:      height,
	}

	// The debouncer coalesces search keystrokes into one fetch; its
	// result reaches the Bubble Tea loop through reloadCh.
	m.debouncer = notify.NewDebouncer(notify.DebounceDelay, func() {
		got := s.FetchNotifications(context.Background(), shared.get())
		msg := NotificationsLoadedMsg{Notifications: got, Err: s.Err()}
		if msg.Err != nil {
			msg.Notifications = s.Notifications()
		}
		select {
		case reloadCh <- msg:
		default:
		}
	})

	return m
}

// Init loads the initial notification list and subscribes to debounced
// reload results.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.LoadNotifications(), m.waitForReload())
}

// Close cancels any pending debounced fetch. Called when the view is
// left so a closed dialog does not fire a fetch.
func (m Model) Close() {
	m.debouncer.Stop()
}

// Update handles messages for the notification list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case NotificationsLoadedMsg:
		if msg.Err != nil {
			m.statusMsg = "refresh failed, showing last known data"
		} else {
			m.statusMsg = ""
		}
		items := make([]list.Item, len(msg.Notifications))
		for i, n := range msg.Notifications {
			items[i] = NotificationItem{Notification: n}
		}
		cmd := m.list.SetItems(items)
		return m, tea.Batch(cmd, m.waitForReload())

	case CheckDoneMsg:
		if msg.Result.Success {
			m.statusMsg = fmt.Sprintf(
				"check complete: %d new reminder(s)", msg.Result.Created,
			)
			return m, m.LoadNotifications()
		}
		m.statusMsg = msg.Result.Message
		return m, nil

	case tea.KeyMsg:
		if m.searchMode {
			return m.handleSearchKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleSearchKeys processes key input while the search line is focused.
// Every edit restarts the debounce timer; enter applies immediately.
func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		m.debouncer.Stop()
		m.updateSearch(m.searchInput.Value())
		return m, m.LoadNotifications()

	case "esc":
		m.searchMode = false
		m.debouncer.Stop()
		m.searchInput.Reset()
		m.updateSearch("")
		return m, m.LoadNotifications()
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)

	m.updateSearch(m.searchInput.Value())
	m.debouncer.Trigger()

	return m, cmd
}

// handleNormalKeys processes key input in normal (non-search) mode.
func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchInput.Reset()
		return m, m.searchInput.Focus()

	case key.Matches(msg, m.keys.Refresh):
		return m, m.LoadNotifications()

	case key.Matches(msg, m.keys.FilterWarning):
		m.toggleSeverity("warning")
		return m, m.LoadNotifications()

	case key.Matches(msg, m.keys.FilterOverdue):
		m.toggleSeverity("overdue")
		return m, m.LoadNotifications()

	case key.Matches(msg, m.keys.FilterInfo):
		m.toggleSeverity("info")
		return m, m.LoadNotifications()

	case key.Matches(msg, m.keys.CycleStatus):
		m.statusIndex = (m.statusIndex + 1) % len(statusModes)
		f := m.shared.get()
		f.Status = statusModes[m.statusIndex]
		m.shared.set(f)
		return m, m.LoadNotifications()

	case key.Matches(msg, m.keys.CycleSort):
		// Cycling the sort reorders the current cache client-side,
		// without a re-fetch.
		m.sortIndex = (m.sortIndex + 1) % len(sortModes)
		f := m.shared.get()
		f.SortBy = sortModes[m.sortIndex]
		m.shared.set(f)
		sorted := notify.Sort(m.sync.Notifications(), f.SortBy)
		items := make([]list.Item, len(sorted))
		for i, n := range sorted {
			items[i] = NotificationItem{Notification: n}
		}
		return m, m.list.SetItems(items)

	case key.Matches(msg, m.keys.MarkRead):
		item, ok := m.list.SelectedItem().(NotificationItem)
		if !ok {
			return m, nil
		}
		return m, m.markRead(item.Notification.ID)

	case key.Matches(msg, m.keys.MarkAllRead):
		return m, m.markAllRead()

	case key.Matches(msg, m.keys.Dismiss):
		item, ok := m.list.SelectedItem().(NotificationItem)
		if !ok {
			return m, nil
		}
		return m, m.dismiss(item.Notification.ID)

	case key.Matches(msg, m.keys.RunCheck):
		m.statusMsg = "recomputing reminders..."
		return m, m.runCheck()

	case key.Matches(msg, m.keys.NewEntry):
		return m, func() tea.Msg { return OpenEntryFormMsg{} }
	}

	if msg.String() == "enter" {
		item, ok := m.list.SelectedItem().(NotificationItem)
		if !ok {
			return m, nil
		}
		n := item.Notification
		return m, func() tea.Msg {
			return SelectedNotificationMsg{Notification: n}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// toggleSeverity switches the severity filter to the given type, or back
// to all when it is already active.
func (m *Model) toggleSeverity(severity string) {
	f := m.shared.get()
	if f.Type == severity {
		f.Type = "all"
	} else {
		f.Type = severity
	}
	m.shared.set(f)
}

// updateSearch stores the new search text in the shared filter.
func (m *Model) updateSearch(query string) {
	f := m.shared.get()
	f.Search = query
	m.shared.set(f)
}

// View renders the notification list view.
func (m Model) View() string {
	var rows []string

	if m.searchMode {
		rows = append(rows, lipgloss.NewStyle().
			Foreground(theme.ColorWhite).
			Padding(0, 1).
			Render(m.searchInput.View()))
	}

	if m.statusMsg != "" {
		style := theme.HelpStyle
		if m.sync.Err() != nil {
			style = theme.ErrorStyle
		}
		rows = append(rows, style.Render(" "+m.statusMsg))
	}

	if len(m.list.Items()) == 0 {
		rows = append(rows, m.renderEmptyState())
	} else {
		rows = append(rows, m.list.View())
	}

	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// renderEmptyState shows guidance text when no notifications match.
func (m Model) renderEmptyState() string {
	f := m.shared.get()
	hasFilters := f.Search != "" ||
		(f.Type != "" && f.Type != "all") ||
		(f.Status != "" && f.Status != "all")

	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height - 2).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if hasFilters {
		return style.Render("No matching reminders.\nTry adjusting your filters.")
	}

	return style.Render(
		"No maintenance reminders.\n\n" +
			"Press C to recompute, or r to refresh.",
	)
}

// FilterSummary describes the active filters for the status bar.
func (m Model) FilterSummary() string {
	f := m.shared.get()
	summary := ""
	if f.Type != "" && f.Type != "all" {
		summary += "type:" + f.Type + " "
	}
	if f.Status != "" && f.Status != "all" {
		summary += "status:" + f.Status + " "
	}
	if f.Search != "" {
		summary += "search:" + f.Search + " "
	}
	if summary == "" {
		return ""
	}
	return summary + "| sort:" + f.SortBy
}

// LoadNotifications returns a tea.Cmd that fetches the list with the
// current filter. A failed fetch reports the error and hands back the
// stale cache so the view never blanks out.
func (m Model) LoadNotifications() tea.Cmd {
	s := m.sync
	shared := m.shared
	return func() tea.Msg {
		got := s.FetchNotifications(context.Background(), shared.get())
		if err := s.Err(); err != nil {
			return NotificationsLoadedMsg{
				Notifications: s.Notifications(),
				Err:           err,
			}
		}
		return NotificationsLoadedMsg{Notifications: got}
	}
}

// markRead marks one notification read and reloads the list on success.
func (m Model) markRead(id string) tea.Cmd {
	s := m.sync
	return func() tea.Msg {
		if err := s.MarkAsRead(context.Background(), id); err != nil {
			return NotificationsLoadedMsg{
				Notifications: s.Notifications(),
				Err:           err,
			}
		}
		return NotificationsLoadedMsg{Notifications: s.Notifications()}
	}
}

// markAllRead applies the bulk mutation.
func (m Model) markAllRead() tea.Cmd {
	s := m.sync
	return func() tea.Msg {
		if err := s.MarkAllAsRead(context.Background()); err != nil {
			return NotificationsLoadedMsg{
				Notifications: s.Notifications(),
				Err:           err,
			}
		}
		return NotificationsLoadedMsg{Notifications: s.Notifications()}
	}
}

// dismiss deactivates one notification.
func (m Model) dismiss(id string) tea.Cmd {
	s := m.sync
	return func() tea.Msg {
		if err := s.Deactivate(context.Background(), id); err != nil {
			return NotificationsLoadedMsg{
				Notifications: s.Notifications(),
				Err:           err,
			}
		}
		return NotificationsLoadedMsg{Notifications: s.Notifications()}
	}
}

// runCheck triggers the server-side reminder recompute.
func (m Model) runCheck() tea.Cmd {
	s := m.sync
	return func() tea.Msg {
		return CheckDoneMsg{Result: s.TriggerCheck(context.Background())}
	}
}

// waitForReload subscribes to results of debounced fetches.
func (m Model) waitForReload() tea.Cmd {
	ch := m.reloadCh
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

// InSearchMode reports whether the search line currently has focus, so
// the root model can avoid intercepting typed characters.
func (m Model) InSearchMode() bool {
	return m.searchMode
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
	m.searchInput.Width = width - 4
}
