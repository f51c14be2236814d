package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/idilsaglam/tada/internal/model"
	"github.com/idilsaglam/tada/internal/ui"
)

// item adapts model.Todo to bubbles/list.Item
type item struct{ todo model.Todo }

func (i item) Title() string       { return i.todo.Title }
func (i item) Description() string { return "" }
func (i item) FilterValue() string { return i.todo.Title }

// rows is shared between the model and its delegate so rows can show
// per-todo sync status without rebuilding the delegate.
type rows struct {
	pending map[int]bool
	spin    string
}

// Custom delegate to control how items render (single line)
type itemDelegate struct{ rows *rows }

func (d itemDelegate) Height() int                         { return 1 }
func (d itemDelegate) Spacing() int                        { return 0 }
func (d itemDelegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, li list.Item) {
	it, ok := li.(item)
	if !ok {
		return
	}
	t := ui.Current()

	box := t.Muted.Render(t.BoxUnchecked)
	text := it.todo.Title
	if it.todo.Completed {
		box = t.Success.Render(t.BoxChecked)
		text = t.Done.Render(text)
	}
	if d.rows != nil && d.rows.pending[it.todo.ID] {
		box = t.Pending.Render(d.rows.spin)
	}

	prefix := "  "
	if index == m.Index() {
		prefix = t.Selected.Render(">") + " "
	}
	fmt.Fprintf(w, "%s%s %s", prefix, box, text)
}
