package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/idilsaglam/tada/internal/model"
	"github.com/idilsaglam/tada/internal/state"
	"github.com/idilsaglam/tada/internal/ui"
	"github.com/idilsaglam/tada/internal/view"
)

type mode int

const (
	modeBrowse mode = iota
	modeAdd
	modeEdit
)

// changedMsg is delivered whenever the store signals a change.
type changedMsg struct{}

// doneMsg reports the outcome of an intent run inside a tea.Cmd.
type doneMsg struct {
	op  string
	err error
}

// addedMsg settles an add started from the input bar.
type addedMsg struct{ err error }

// Model is the interactive list. It holds only UI state; the collection
// and its sync status live in the store.
type Model struct {
	ctx   context.Context
	store *state.Store
	log   logrus.FieldLogger
	keys  keyMap

	snap   state.Snapshot
	filter model.Filter

	list  list.Model
	rows  *rows
	spin  spinner.Model
	input textinput.Model

	mode       mode
	editing    model.Todo
	submitting bool

	width, height int
}

// New builds the model over store. Intents run with ctx.
func New(ctx context.Context, store *state.Store, log logrus.FieldLogger) Model {
	if log == nil {
		log = logrus.StandardLogger()
	}
	t := ui.Current()
	keys := defaultKeys()
	r := &rows{pending: map[int]bool{}}

	l := list.New(nil, itemDelegate{rows: r}, 0, 0)
	l.SetShowTitle(false)
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()
	l.Styles.HelpStyle = t.Help
	l.Styles.PaginationStyle = t.Help
	l.SetStatusBarItemName("todo", "todos")
	l.AdditionalShortHelpKeys = keys.short
	l.AdditionalFullHelpKeys = keys.full

	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(t.Pending))

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "What needs to be done?"
	ti.CharLimit = 200

	r.spin = sp.View()
	m := Model{
		ctx:    ctx,
		store:  store,
		log:    log,
		keys:   keys,
		filter: model.FilterAll,
		list:   l,
		rows:   r,
		spin:   sp,
		input:  ti,
		width:  80,
		height: 24,
	}
	m.resize()
	return m
}

// Filter returns the selected filter.
func (m Model) Filter() model.Filter { return m.filter }

// Init fetches the collection and starts listening for store changes.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.intent("fetch", m.store.FetchAll),
		waitForChange(m.store.Changes()),
		m.spin.Tick,
	)
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return changedMsg{}
	}
}

func (m Model) intent(op string, fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return doneMsg{op: op, err: fn(ctx)}
	}
}

func (m Model) submit(title string) tea.Cmd {
	ctx, store := m.ctx, m.store
	return func() tea.Msg {
		_, err := store.Add(ctx, title)
		return addedMsg{err: err}
	}
}

// refresh pulls a fresh snapshot, re-applies the filter reset rule and
// rebuilds the visible rows.
func (m *Model) refresh() {
	m.snap = m.store.Snapshot()
	m.filter = view.ResetFilter(m.filter, m.snap.Todos)

	visible := view.Visible(m.snap.Todos, m.filter)
	items := make([]list.Item, 0, len(visible))
	for _, t := range visible {
		items = append(items, item{todo: t})
	}
	m.list.SetItems(items)
	if n := len(items); n > 0 && m.list.Index() >= n {
		m.list.Select(n - 1)
	}
	m.rows.pending = m.snap.Pending
}

func (m Model) selected() (model.Todo, bool) {
	it, ok := m.list.SelectedItem().(item)
	if !ok {
		return model.Todo{}, false
	}
	return it.todo, true
}

func (m *Model) selectFilter(f model.Filter) {
	m.filter = view.SelectFilter(f, m.snap.Todos)
	m.refresh()
	m.list.Select(0)
}

func (m *Model) closeInput() {
	m.mode = modeBrowse
	m.input.SetValue("")
	m.input.Blur()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case changedMsg:
		m.refresh()
		return m, waitForChange(m.store.Changes())

	case doneMsg:
		if msg.err != nil {
			m.logFailure(msg.op, msg.err)
		}
		m.refresh()
		return m, nil

	case addedMsg:
		if msg.err != nil {
			m.logFailure("add", msg.err)
		}
		m.submitting = false
		m.input.SetValue("")
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		m.rows.spin = m.spin.View()
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.mode {
		case modeAdd:
			return m.updateAdd(msg)
		case modeEdit:
			return m.updateEdit(msg)
		}
		return m.updateBrowse(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateAdd(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// input is disabled while the add is in flight
	if m.submitting {
		return m, nil
	}
	switch msg.String() {
	case "enter":
		m.submitting = true
		return m, m.submit(m.input.Value())
	case "esc":
		m.closeInput()
		m.resize()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		todo, title := m.editing, m.input.Value()
		m.closeInput()
		m.resize()
		return m, m.intent("rename", func(ctx context.Context) error {
			return m.store.RenameOrDelete(ctx, todo, title)
		})
	case "esc":
		m.closeInput()
		m.resize()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	switch {
	case key.Matches(msg, k.Quit):
		return m, tea.Quit

	case key.Matches(msg, k.Toggle):
		todo, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.intent("toggle", func(ctx context.Context) error {
			return m.store.ToggleStatus(ctx, todo)
		})

	case key.Matches(msg, k.ToggleAll):
		if len(m.snap.Todos) == 0 {
			return m, nil
		}
		return m, m.intent("toggle-all", m.store.ToggleAll)

	case key.Matches(msg, k.Add):
		m.mode = modeAdd
		m.input.SetValue("")
		m.input.Placeholder = "What needs to be done?"
		m.resize()
		cmd := m.input.Focus()
		return m, cmd

	case key.Matches(msg, k.Edit):
		todo, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.mode = modeEdit
		m.editing = todo
		m.input.SetValue(todo.Title)
		m.input.CursorEnd()
		m.input.Placeholder = "Empty title deletes the todo"
		m.resize()
		cmd := m.input.Focus()
		return m, cmd

	case key.Matches(msg, k.Delete):
		todo, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.intent("delete", func(ctx context.Context) error {
			return m.store.Delete(ctx, todo.ID)
		})

	case key.Matches(msg, k.Clear):
		if len(view.Completed(m.snap.Todos)) == 0 {
			return m, nil
		}
		return m, m.intent("clear", m.store.ClearCompleted)

	case key.Matches(msg, k.All):
		m.selectFilter(model.FilterAll)
		return m, nil
	case key.Matches(msg, k.Active):
		m.selectFilter(model.FilterActive)
		return m, nil
	case key.Matches(msg, k.Completed):
		m.selectFilter(model.FilterCompleted)
		return m, nil
	case key.Matches(msg, k.NextTab):
		next := m.filter.Next()
		for next != model.FilterAll && view.SelectFilter(next, m.snap.Todos) == model.FilterAll {
			next = next.Next()
		}
		m.selectFilter(next)
		return m, nil

	case key.Matches(msg, k.Dismiss):
		m.store.DismissError()
		m.refresh()
		return m, nil

	case key.Matches(msg, k.Refresh):
		return m, m.intent("fetch", m.store.FetchAll)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) logFailure(op string, err error) {
	entry := m.log.WithField("op", op).WithError(err)
	if errors.Is(err, state.ErrEmptyTitle) {
		entry.Debug("intent rejected")
		return
	}
	entry.Warn("intent failed")
}

// resize fits the list between the header, the optional input bar and
// the footer, inside the outer panel.
func (m *Model) resize() {
	chrome := 8 // panel border, header, banner, footer
	if m.mode != modeBrowse {
		chrome += 4
	}
	h := m.height - chrome
	if h < 3 {
		h = 3
	}
	m.list.SetSize(m.width-4, h)
	m.input.Width = m.width - 12
}

func (m Model) View() string {
	t := ui.Current()
	var b strings.Builder

	b.WriteString(m.header())
	b.WriteString("\n")
	if m.snap.Err != model.ErrNone {
		b.WriteString(t.Error.Render("✖ "+m.snap.Err.Message()) + t.Muted.Render("  (x to dismiss)"))
	}
	b.WriteString("\n")

	if len(m.snap.Todos) == 0 && !m.snap.Fetching {
		b.WriteString(t.Muted.Render("Nothing to do. Press a to add a todo."))
		b.WriteString("\n")
	}
	b.WriteString(m.list.View())

	if m.mode != modeBrowse {
		title := "Add new todo"
		if m.mode == modeEdit {
			title = "Edit todo"
		}
		if m.submitting {
			title += " " + m.spin.View()
		}
		bar := lipgloss.NewStyle().Border(t.Border).BorderForeground(t.BorderColor).Padding(0, 1)
		b.WriteString("\n")
		b.WriteString(bar.Render(title + "\n" + m.input.View()))
	}

	if len(m.snap.Todos) > 0 {
		b.WriteString("\n")
		b.WriteString(m.footer())
	}
	return ui.PanelString(b.String())
}

func (m Model) header() string {
	t := ui.Current()
	active, completed := view.Counts(m.snap.Todos)
	h := fmt.Sprintf("%s   %s %d  %s %d  %s %d",
		t.Title.Render("Todos"),
		t.Success.Render(t.SymDone), completed,
		t.Pending.Render(t.SymPending), active,
		t.Accent.Render("Total"), len(m.snap.Todos),
	)
	if m.snap.Loading {
		h += "  " + m.spin.View()
	}
	return h
}

func (m Model) footer() string {
	t := ui.Current()
	active, completed := view.Counts(m.snap.Todos)

	tabs := make([]string, 0, len(model.Filters))
	for _, f := range model.Filters {
		label := f.String()
		if f == m.filter {
			tabs = append(tabs, t.Accent.Underline(true).Render(label))
			continue
		}
		tabs = append(tabs, t.Muted.Render(label))
	}

	parts := []string{
		fmt.Sprintf("%d items left", active),
		strings.Join(tabs, " "),
	}
	if completed > 0 {
		parts = append(parts, t.Help.Render("c clear completed"))
	}
	return strings.Join(parts, "   ")
}
