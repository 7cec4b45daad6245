package app

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/rkalmar/fleetmate/internal/api"
	"github.com/rkalmar/fleetmate/internal/counter"
	"github.com/rkalmar/fleetmate/internal/credential"
	"github.com/rkalmar/fleetmate/internal/keys"
	"github.com/rkalmar/fleetmate/internal/model"
	"github.com/rkalmar/fleetmate/internal/notify"
	"github.com/rkalmar/fleetmate/internal/ui"
	"github.com/rkalmar/fleetmate/internal/ui/connect"
	"github.com/rkalmar/fleetmate/internal/ui/detail"
	"github.com/rkalmar/fleetmate/internal/ui/entryform"
	helpview "github.com/rkalmar/fleetmate/internal/ui/help"
	"github.com/rkalmar/fleetmate/internal/ui/notiflist"
)

// AuthLostMsg is sent into the program when the server rejects the
// stored credential. The main package wires the API client's
// unauthorized hook to deliver it.
type AuthLostMsg struct{}

// entrySavedMsg reports the outcome of submitting a fuel/service entry.
type entrySavedMsg struct {
	entry entryform.Entry
	err   error
}

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewConnect ViewState = iota
	ViewList
	ViewDetail
	ViewEntryForm
	ViewHelp
)

// Model is the root Bubble Tea model that manages view routing, layout,
// the session lifecycle, and the unread badge.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap
	logger       *log.Logger

	cfg     *model.AppConfig
	cfgPath string

	client *api.Client
	sync   *notify.Sync
	guard  *counter.Guard
	poller *notify.Poller

	notifList   notiflist.Model
	detailView  detail.Model
	entryForm   entryform.Model
	connectView connect.Model
	helpView    helpview.Model

	ready bool

	// unreadKnown distinguishes "zero unread" from "count unavailable":
	// when a poll fails the badge keeps its last value instead of
	// pretending everything was read.
	unreadCount int
	unreadKnown bool

	statusMessage string
}

// New creates the root application model. When no credential is stored
// yet, the app starts on the connect screen.
func New(
	cfg *model.AppConfig,
	cfgPath string,
	client *api.Client,
	sync *notify.Sync,
	guard *counter.Guard,
	poller *notify.Poller,
	logger *log.Logger,
	hasToken bool,
) Model {
	km := keys.DefaultKeyMap()

	view := ViewList
	reason := ""
	if !hasToken {
		view = ViewConnect
		reason = "No credential stored yet. Enter your server and token."
	}

	return Model{
		currentView: view,
		keys:        km,
		logger:      logger,
		cfg:         cfg,
		cfgPath:     cfgPath,
		client:      client,
		sync:        sync,
		guard:       guard,
		poller:      poller,
		notifList:   notiflist.New(sync, km, 80, 24),
		detailView:  detail.New(sync, km, 80, 24),
		entryForm:   entryform.New(guard, 80, 24),
		connectView: connect.New(cfg.Server.BaseURL, reason, 80, 24),
		helpView:    helpview.New(km, 80, 24),
	}
}

// Init starts the notification list and the unread-count poller, or the
// connect form when there is no session yet.
func (m Model) Init() tea.Cmd {
	if m.currentView == ViewConnect {
		return m.connectView.Init()
	}
	return tea.Batch(m.notifList.Init(), m.poller.Start())
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		contentWidth := m.layout.ContentWidth()
		contentHeight := m.layout.ContentHeight()
		m.notifList.SetSize(contentWidth, contentHeight)
		m.detailView.SetSize(contentWidth, contentHeight)
		m.entryForm.SetSize(contentWidth, contentHeight)
		m.connectView.SetSize(contentWidth, contentHeight)
		m.helpView.SetSize(contentWidth, contentHeight)
		// Forward to the active view so huh forms can calculate layout.
		return m.updateActiveView(msg)

	case AuthLostMsg:
		// The server rejected the token mid-session. Stop polling, drop
		// the cached state, and route back to connect.
		m.poller.Stop()
		m.sync.Reset()
		m.guard.FetchCounterInfo(context.Background(), "")
		m.unreadCount = 0
		m.unreadKnown = false
		m.connectView = connect.New(
			m.cfg.Server.BaseURL,
			"Session rejected by the server. Sign in again.",
			m.layout.ContentWidth(), m.layout.ContentHeight(),
		)
		m.currentView = ViewConnect
		return m, m.connectView.Init()

	case notify.CountMsg:
		if msg.OK {
			m.unreadCount = msg.Count
			m.unreadKnown = true
		}
		return m, m.poller.WaitForNextCount()

	case notiflist.SelectedNotificationMsg:
		m.previousView = m.currentView
		m.currentView = ViewDetail
		m.detailView.SetLoading(true)
		return m, m.detailView.Load(msg.Notification)

	case detail.BackMsg:
		m.currentView = ViewList
		return m, nil

	case detail.ActionMsg:
		m.currentView = ViewList
		return m, m.applyDetailAction(msg)

	case notiflist.OpenEntryFormMsg:
		m.previousView = m.currentView
		m.currentView = ViewEntryForm
		return m, m.entryForm.Start("")

	case entryform.EntrySubmittedMsg:
		m.currentView = ViewList
		return m, m.submitEntry(msg.Entry)

	case entryform.EntryCancelMsg:
		m.currentView = ViewList
		return m, nil

	case entrySavedMsg:
		if msg.err != nil {
			m.statusMessage = fmt.Sprintf("entry not saved: %v", msg.err)
			return m, nil
		}
		m.statusMessage = fmt.Sprintf(
			"%s entry saved for %s", msg.entry.Type, msg.entry.CarID,
		)
		// A new record can retire or create reminders; refresh both the
		// list and the badge.
		m.poller.Refresh()
		return m, m.notifList.LoadNotifications()

	case connect.ConnectedMsg:
		return m.handleConnected(msg)

	case connect.CancelMsg:
		// Nothing to go back to without a session.
		return m, tea.Quit

	case tea.KeyMsg:
		if cmd, handled := m.handleGlobalKeys(msg); handled {
			return m, cmd
		}
	}

	return m.updateActiveView(msg)
}

// handleConnected persists the new server details and starts the session.
func (m Model) handleConnected(msg connect.ConnectedMsg) (tea.Model, tea.Cmd) {
	if err := credential.Set(credential.TokenKey, msg.Token); err != nil {
		m.logger.Error("storing credential", "err", err)
		m.connectView = connect.New(
			msg.BaseURL,
			fmt.Sprintf("Could not store the token: %v", err),
			m.layout.ContentWidth(), m.layout.ContentHeight(),
		)
		return m, m.connectView.Init()
	}

	m.cfg.Server.BaseURL = msg.BaseURL
	if err := model.SaveConfig(m.cfgPath, m.cfg); err != nil {
		m.logger.Warn("saving config", "err", err)
	}
	m.client.SetBaseURL(msg.BaseURL)

	// New session: the cache from any previous account must not leak in.
	m.sync.Reset()
	m.unreadCount = 0
	m.unreadKnown = false
	m.statusMessage = ""

	m.currentView = ViewList
	return m, tea.Batch(m.notifList.Init(), m.poller.Start())
}

// logout tears the session down and returns to the connect screen.
func (m *Model) logout() tea.Cmd {
	m.poller.Stop()
	m.notifList.Close()
	if err := credential.Delete(credential.TokenKey); err != nil {
		m.logger.Warn("deleting credential", "err", err)
	}
	m.sync.Reset()
	m.guard.FetchCounterInfo(context.Background(), "")
	m.unreadCount = 0
	m.unreadKnown = false
	m.statusMessage = ""
	m.connectView = connect.New(
		m.cfg.Server.BaseURL,
		"Logged out.",
		m.layout.ContentWidth(), m.layout.ContentHeight(),
	)
	m.currentView = ViewConnect
	return m.connectView.Init()
}

// handleGlobalKeys processes keys that apply regardless of the active
// view. Returns handled=false when the key should go to the view.
func (m *Model) handleGlobalKeys(msg tea.KeyMsg) (tea.Cmd, bool) {
	// Forms and the search line own the keyboard.
	typing := m.currentView == ViewConnect ||
		m.currentView == ViewEntryForm ||
		(m.currentView == ViewList && m.notifList.InSearchMode())

	if msg.String() == "ctrl+c" {
		m.poller.Stop()
		m.notifList.Close()
		return tea.Quit, true
	}
	if typing {
		return nil, false
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.currentView == ViewList {
			m.poller.Stop()
			m.notifList.Close()
			return tea.Quit, true
		}

	case key.Matches(msg, m.keys.Help):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return nil, true
		}
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return nil, true

	case key.Matches(msg, m.keys.Back):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return nil, true
		}

	case key.Matches(msg, m.keys.Logout):
		if m.currentView == ViewList {
			return m.logout(), true
		}
	}

	return nil, false
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewList:
		m.notifList, cmd = m.notifList.Update(msg)
	case ViewDetail:
		m.detailView, cmd = m.detailView.Update(msg)
	case ViewEntryForm:
		m.entryForm, cmd = m.entryForm.Update(msg)
	case ViewConnect:
		m.connectView, cmd = m.connectView.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader(m.headerTitle(), m.syncStatus())
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.keyHints())

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// headerTitle renders the application title with the unread badge. When
// the count is unknown (polls failing) the last known value stays up.
func (m Model) headerTitle() string {
	if m.unreadCount > 0 {
		return fmt.Sprintf("FleetMate [%d unread]", m.unreadCount)
	}
	return "FleetMate"
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewList:
		return m.notifList.View()
	case ViewDetail:
		return m.detailView.View()
	case ViewEntryForm:
		return m.entryForm.View()
	case ViewConnect:
		return m.connectView.View()
	case ViewHelp:
		return m.helpView.View()
	default:
		return ""
	}
}

// syncStatus returns a short string describing the connection state.
func (m Model) syncStatus() string {
	if m.currentView == ViewConnect {
		return "not connected"
	}
	if m.sync.Loading() {
		return "syncing"
	}
	if m.sync.Err() != nil {
		return "⚠ offline, showing last known data"
	}
	if !m.unreadKnown {
		return "connecting"
	}
	return "connected"
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	if m.statusMessage != "" && m.currentView == ViewList {
		return m.statusMessage
	}

	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewDetail:
		return "esc back | m mark read | d dismiss | j/k scroll"
	case ViewEntryForm:
		return "enter next field | esc cancel"
	case ViewConnect:
		return "enter connect | ctrl+c quit"
	default:
		filterSummary := m.notifList.FilterSummary()
		if filterSummary != "" {
			return filterSummary + "| u/1/2/3 filters | esc clear search"
		}
		return "q quit | ? help | / search | n new entry | m mark read | C recompute"
	}
}

// applyDetailAction runs a mutation requested from the detail pane and
// hands the result to the list via its reload message.
func (m Model) applyDetailAction(msg detail.ActionMsg) tea.Cmd {
	s := m.sync
	reload := m.notifList.LoadNotifications()
	return func() tea.Msg {
		var err error
		switch msg.Action {
		case "read":
			err = s.MarkAsRead(context.Background(), msg.ID)
		case "dismiss":
			err = s.Deactivate(context.Background(), msg.ID)
		}
		if err != nil {
			m.logger.Warn("detail action failed",
				"action", msg.Action, "id", msg.ID, "err", err)
		}
		return reload()
	}
}

// submitEntry posts the drafted record to the server off the UI loop.
func (m Model) submitEntry(entry entryform.Entry) tea.Cmd {
	c := m.client
	return func() tea.Msg {
		path := "/fuel-entries"
		if entry.Type == model.RecordService {
			path = "/service-entries"
		}
		err := c.Post(context.Background(), path, entry, nil, api.TimeoutShort)
		return entrySavedMsg{entry: entry, err: err}
	}
}
