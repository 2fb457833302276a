package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up      key.Binding
	down    key.Binding
	nextTab key.Binding
	prevTab key.Binding
	reload  key.Binding
	like    key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		nextTab: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next feed")),
		prevTab: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev feed")),
		reload:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		like:    key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "like")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.nextTab, k.reload, k.like, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down},
		{k.nextTab, k.prevTab},
		{k.reload, k.like, k.quit},
	}
}
