package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the global keybindings for the application.
type KeyMap struct {
	// Navigation
	Down key.Binding
	Up   key.Binding

	// Back / Quit
	Back key.Binding
	Quit key.Binding

	// Search
	Search key.Binding

	// Help toggle
	Help key.Binding

	// Manual refresh
	Refresh key.Binding

	// Severity filters
	FilterWarning key.Binding
	FilterOverdue key.Binding
	FilterInfo    key.Binding

	// Read-state filter
	CycleStatus key.Binding

	// Notification actions
	MarkRead    key.Binding
	MarkAllRead key.Binding
	Dismiss     key.Binding
	RunCheck    key.Binding

	// Fuel/service entry form
	NewEntry key.Binding

	// Session
	Logout key.Binding

	// Sort
	CycleSort key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		FilterWarning: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "toggle warnings"),
		),
		FilterOverdue: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "toggle overdue"),
		),
		FilterInfo: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "toggle info"),
		),
		CycleStatus: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "cycle read filter"),
		),
		MarkRead: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "mark read"),
		),
		MarkAllRead: key.NewBinding(
			key.WithKeys("M"),
			key.WithHelp("M", "mark all read"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "dismiss"),
		),
		RunCheck: key.NewBinding(
			key.WithKeys("C"),
			key.WithHelp("C", "recompute reminders"),
		),
		NewEntry: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new fuel/service entry"),
		),
		Logout: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "log out"),
		),
		CycleSort: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "cycle sort"),
		),
	}
}

// ShortHelp returns the most essential keybindings for the compact help view.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Up, k.Down, k.MarkRead, k.Back,
		k.Quit, k.Help, k.Search,
	}
}

// FullHelp returns all keybindings grouped by category for the expanded
// help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Back, k.Quit},
		{k.Search, k.Help, k.Refresh, k.CycleSort},
		{k.FilterWarning, k.FilterOverdue, k.FilterInfo, k.CycleStatus},
		{k.MarkRead, k.MarkAllRead, k.Dismiss, k.RunCheck, k.NewEntry, k.Logout},
	}
}
