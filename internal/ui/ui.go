package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/librec/internal/engine"
)

var _ list.Item = syncItem{}

// syncItem wraps [engine.Item] to implement [list.Item]. Status is read live,
// so rows reflect the engine's state on every render.
type syncItem struct {
	item engine.Item
}

func (i syncItem) FilterValue() string { return i.item.Name() }
func (i syncItem) Title() string       { return i.item.Name() }
func (i syncItem) Description() string { return i.item.Status() }

type itemUpdatedMsg struct{}

type diagnosticMsg struct {
	text string
}

type phaseDoneMsg struct {
	phase string
}

// Notifier bridges engine notifications into bubbletea messages. Sends never
// block the engine; a full channel drops the event, which is safe because
// rows re-read their status on render.
type Notifier struct {
	events chan tea.Msg
}

// NewNotifier creates a Notifier with a buffered event channel.
func NewNotifier() *Notifier {
	return &Notifier{events: make(chan tea.Msg, 64)}
}

func (n *Notifier) Update(engine.Item) {
	select {
	case n.events <- itemUpdatedMsg{}:
	default:
	}
}

func (n *Notifier) Error(msg string) {
	select {
	case n.events <- diagnosticMsg{text: msg}:
	default:
	}
}

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	engine   *engine.Engine
	notifier *Notifier

	width  int
	height int

	itemList   list.Model
	spinner    spinner.Model
	busy       bool
	phase      string
	diagnostic string

	help help.Model
	keys keyMap
}

// NewModel creates a new TUI model over the engine. The notifier must be the
// one registered with the engine.
func NewModel(ctx context.Context, eng *engine.Engine, notifier *Notifier) *Model {
	items := eng.Items()
	rows := make([]list.Item, len(items))
	for i, item := range items {
		rows[i] = syncItem{item: item}
	}

	l := list.New(rows, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Library Sync"
	l.SetShowHelp(false)

	return &Model{
		ctx:      ctx,
		engine:   eng,
		notifier: notifier,
		itemList: l,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Init starts listening for engine events.
func (m *Model) Init() tea.Cmd {
	return m.waitForEvent()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.itemList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case itemUpdatedMsg:
		// Statuses render live; the event only forces a redraw.
		return m, m.waitForEvent()

	case diagnosticMsg:
		m.diagnostic = msg.text
		return m, m.waitForEvent()

	case phaseDoneMsg:
		m.busy = false
		m.phase = ""
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.itemList, cmd = m.itemList.Update(msg)
	return m, cmd
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "s":
		return m, m.runPhase("syncing tracks", m.engine.SyncAll)
	case "f":
		return m, m.runPhase("finding remote matches", m.engine.FindAll)
	case "a":
		return m, m.runPhase("committing all", m.engine.CommitAll)
	case "enter":
		selected := m.itemList.SelectedItem()
		if selected == nil {
			return m, nil
		}
		row, ok := selected.(syncItem)
		if !ok || !row.item.Committable() {
			return m, nil
		}
		return m, m.runPhase(fmt.Sprintf("committing %q", row.item.Name()), func(ctx context.Context) {
			if err := row.item.Commit(ctx); err != nil {
				m.notifier.Error(fmt.Sprintf("commit %q: %v", row.item.Name(), err))
			}
		})
	}

	var cmd tea.Cmd
	m.itemList, cmd = m.itemList.Update(msg)
	return m, cmd
}

// runPhase starts a background engine phase, ignored while one is running.
func (m *Model) runPhase(name string, fn func(context.Context)) tea.Cmd {
	if m.busy {
		return nil
	}
	m.busy = true
	m.phase = name
	m.diagnostic = ""

	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		fn(m.ctx)
		return phaseDoneMsg{phase: name}
	})
}

func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		return <-m.notifier.events
	}
}

// View renders the item list with a status line underneath.
func (m *Model) View() string {
	var status string
	switch {
	case m.busy:
		status = fmt.Sprintf("%s %s", m.spinner.View(), m.phase)
	case m.diagnostic != "":
		status = styles.warn.Render(m.diagnostic)
	default:
		status = styles.help.Render("idle")
	}

	helpView := m.help.ShortHelpView(m.keys.ShortHelp())
	return fmt.Sprintf("%s\n%s\n\n%s", m.itemList.View(), status, helpView)
}
