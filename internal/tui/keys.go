package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Toggle    key.Binding
	ToggleAll key.Binding
	Add       key.Binding
	Edit      key.Binding
	Delete    key.Binding
	Clear     key.Binding
	All       key.Binding
	Active    key.Binding
	Completed key.Binding
	NextTab   key.Binding
	Dismiss   key.Binding
	Refresh   key.Binding
	Quit      key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Toggle:    key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
		ToggleAll: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "toggle all")),
		Add:       key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		Edit:      key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		Delete:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Clear:     key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear completed")),
		All:       key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "all")),
		Active:    key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "active")),
		Completed: key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "completed")),
		NextTab:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next filter")),
		Dismiss:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "dismiss error")),
		Refresh:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) short() []key.Binding {
	return []key.Binding{k.Toggle, k.Add, k.Edit, k.Delete, k.NextTab}
}

func (k keyMap) full() []key.Binding {
	return []key.Binding{
		k.Toggle, k.ToggleAll, k.Add, k.Edit, k.Delete, k.Clear,
		k.All, k.Active, k.Completed, k.NextTab, k.Dismiss, k.Refresh,
	}
}
