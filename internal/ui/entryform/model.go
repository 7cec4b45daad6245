package entryform

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/rkalmar/fleetmate/internal/counter"
	"github.com/rkalmar/fleetmate/internal/model"
	"github.com/rkalmar/fleetmate/internal/theme"
)

// Entry is a fuel or service record drafted in the form, ready to be
// submitted to the server.
type Entry struct {
	CarID       string           `json:"carId"`
	Type        model.RecordType `json:"type"`
	Counter     int              `json:"counter"`
	DateTime    time.Time        `json:"dateTime"`
	Description string           `json:"description"`
}

// EntrySubmittedMsg is dispatched when the form is completed.
type EntrySubmittedMsg struct {
	Entry Entry
}

// EntryCancelMsg is dispatched when the user cancels the form.
type EntryCancelMsg struct{}

// counterInfoMsg signals that the guard finished fetching counter info
// for a vehicle, so the explanation line can re-render.
type counterInfoMsg struct {
	vehicleID string
}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	vehicleID   string
	entryType   string
	counterVal  string
	date        string
	description string
}

// Model is the Bubble Tea model for the fuel/service entry form. The
// odometer field is validated through the counter guard; when the guard
// has no data (fetch pending or failed) the field is permissive and the
// form stays usable.
type Model struct {
	form  *huh.Form
	fb    *formBindings
	guard *counter.Guard

	// lastVehicle tracks the vehicle the guard was last asked about, so
	// an edit to the vehicle field re-fetches the threshold.
	lastVehicle string

	width  int
	height int
}

// New creates a new entry form model.
func New(g *counter.Guard, width, height int) Model {
	return Model{
		fb:     &formBindings{entryType: string(model.RecordFuel)},
		guard:  g,
		width:  width,
		height: height,
	}
}

// Start initializes the form, optionally pre-selecting a vehicle. The
// counter threshold for the pre-selected vehicle is fetched immediately.
func (m *Model) Start(vehicleID string) tea.Cmd {
	m.fb.vehicleID = vehicleID
	m.fb.entryType = string(model.RecordFuel)
	m.fb.counterVal = ""
	m.fb.date = time.Now().Format("2006-01-02 15:04")
	m.fb.description = ""
	m.lastVehicle = vehicleID
	m.form = m.buildForm()

	return tea.Batch(m.form.Init(), m.fetchCounterInfo(vehicleID))
}

// Update handles messages for the entry form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	if _, ok := msg.(counterInfoMsg); ok {
		// Threshold arrived; nothing to do beyond re-rendering.
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	// Re-fetch the threshold when the vehicle field changed. The guard
	// clears the old vehicle's data synchronously, so a reading can
	// never be validated against the previous vehicle.
	var fetchCmd tea.Cmd
	if m.fb.vehicleID != m.lastVehicle {
		m.lastVehicle = m.fb.vehicleID
		fetchCmd = m.fetchCounterInfo(m.fb.vehicleID)
	}

	if m.form.State == huh.StateCompleted {
		return m, m.handleSubmit()
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return EntryCancelMsg{} }
	}

	return m, tea.Batch(cmd, fetchCmd)
}

// View renders the entry form with the guard's explanation line.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render("New Fuel/Service Entry") + "\n" +
		m.form.View() + "\n" + m.renderGuardLine()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// renderGuardLine explains the active counter threshold, or warns when
// the guard is blind because the info fetch failed.
func (m Model) renderGuardLine() string {
	if err := m.guard.Err(); err != nil {
		return theme.ErrorStyle.Render(
			"counter check unavailable: readings are not being validated",
		)
	}
	if m.guard.Loading() {
		return theme.HelpStyle.Render("loading counter history...")
	}

	rec := m.guard.LastRecord()
	if rec == nil {
		if min := m.guard.MinAllowedCounter(); min > 0 {
			return theme.HelpStyle.Render(
				fmt.Sprintf("lowest allowed reading: %d", min),
			)
		}
		return ""
	}

	return theme.HelpStyle.Render(fmt.Sprintf(
		"last %s record: %d on %s (%s)",
		rec.Type, rec.Counter,
		rec.DateTime.Format("2006-01-02"), rec.Description,
	))
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	fb := m.fb
	g := m.guard

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Vehicle ID").
				Placeholder("e.g. truck-12").
				Value(&fb.vehicleID).
				Validate(validateRequired("Vehicle")),
			huh.NewSelect[string]().
				Title("Entry Type").
				Options(
					huh.NewOption("Fuel fill-up", string(model.RecordFuel)),
					huh.NewOption("Service record", string(model.RecordService)),
				).
				Value(&fb.entryType),
			huh.NewInput().
				Title("Odometer / Hours").
				Placeholder("current counter reading").
				Value(&fb.counterVal).
				Validate(func(s string) error {
					if result := g.Validate(fb.vehicleID, s); !result.IsValid {
						return errors.New(result.Message)
					}
					return nil
				}),
			huh.NewInput().
				Title("Date & Time").
				Placeholder("YYYY-MM-DD HH:MM").
				Value(&fb.date).
				Validate(validateDateTime),
			huh.NewText().
				Title("Description").
				Placeholder("Optional details...").
				Value(&fb.description),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

// fetchCounterInfo asks the guard for the vehicle's threshold off the UI
// goroutine.
func (m Model) fetchCounterInfo(vehicleID string) tea.Cmd {
	g := m.guard
	return func() tea.Msg {
		g.FetchCounterInfo(context.Background(), vehicleID)
		return counterInfoMsg{vehicleID: vehicleID}
	}
}

func (m Model) handleSubmit() tea.Cmd {
	fb := m.fb

	counterValue, _ := strconv.Atoi(strings.TrimSpace(fb.counterVal))
	dateTime, err := time.Parse("2006-01-02 15:04", strings.TrimSpace(fb.date))
	if err != nil {
		dateTime = time.Now()
	}

	entry := Entry{
		CarID:       strings.TrimSpace(fb.vehicleID),
		Type:        model.RecordType(fb.entryType),
		Counter:     counterValue,
		DateTime:    dateTime,
		Description: strings.TrimSpace(fb.description),
	}

	return func() tea.Msg { return EntrySubmittedMsg{Entry: entry} }
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func (m Model) formHeight() int {
	h := m.height - 6
	if h < 10 {
		h = 10
	}
	return h
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateDateTime(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if _, err := time.Parse("2006-01-02 15:04", s); err != nil {
		return fmt.Errorf("invalid date, use YYYY-MM-DD HH:MM")
	}
	return nil
}
