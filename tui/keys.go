package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds the dashboard-wide bindings. Panel bindings stay in the panels.
type keyMap struct {
	Refresh key.Binding
	Brief   key.Binding
	Weather key.Binding
	Next    key.Binding
	Prev    key.Binding
	Select  key.Binding
	Close   key.Binding
	Quit    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Brief:   key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "brief")),
		Weather: key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "weather")),
		Next:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "panels")),
		Prev:    key.NewBinding(key.WithKeys("shift+tab")),
		Select:  key.NewBinding(key.WithKeys("up", "down", "k", "j"), key.WithHelp("↑↓", "select")),
		Close:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Refresh, k.Brief, k.Weather, k.Next, k.Select, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp(), {k.Prev, k.Close}}
}
