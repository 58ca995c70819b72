package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up        key.Binding
	down      key.Binding
	sync      key.Binding
	find      key.Binding
	commit    key.Binding
	commitAll key.Binding
	quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		sync:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sync tracks")),
		find:      key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "find remote")),
		commit:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "commit selected")),
		commitAll: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "commit all")),
		quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.sync, k.find, k.commit, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down},
		{k.sync, k.find},
		{k.commit, k.commitAll, k.quit},
	}
}
