package main

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Back    key.Binding
	Enter   key.Binding
	Refresh key.Binding
	Open    key.Binding
	Info    key.Binding
	Delete  key.Binding
	Top     key.Binding
	Export  key.Binding
	Cancel  key.Binding
	Quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑↓", "move"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
		),
		Back: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←", "back"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter", "right", "l"),
			key.WithHelp("enter", "open dir"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r", "R"),
			key.WithHelp("R", "refresh"),
		),
		Open: key.NewBinding(
			key.WithKeys("o", "O"),
			key.WithHelp("O", "open"),
		),
		Info: key.NewBinding(
			key.WithKeys("f", "F"),
			key.WithHelp("F", "file"),
		),
		Delete: key.NewBinding(
			key.WithKeys("backspace", "delete"),
			key.WithHelp("⌫", "del"),
		),
		Top: key.NewBinding(
			key.WithKeys("t", "T"),
			key.WithHelp("T", "top"),
		),
		Export: key.NewBinding(
			key.WithKeys("e", "E"),
			key.WithHelp("E", "export"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "Q", "ctrl+c"),
			key.WithHelp("Q", "quit"),
		),
	}
}

// footerBindings lists the bindings shown in the footer for the current
// state of m.
func (m *model) footerBindings() []key.Binding {
	k := m.keys
	switch {
	case m.showLargeFiles:
		return []key.Binding{k.Up, k.Refresh, k.Open, k.Info, k.Delete, k.Back, k.Quit}
	case m.mode == modeOverview:
		bindings := []key.Binding{k.Up, k.Enter, k.Refresh, k.Open, k.Info}
		if len(m.history) > 0 {
			bindings = append(bindings, k.Back)
		}
		return append(bindings, k.Quit)
	default:
		bindings := []key.Binding{k.Up, k.Enter, k.Back, k.Refresh, k.Open, k.Info, k.Delete}
		if n := len(m.largeFiles); n > 0 {
			top := k.Top
			top.SetHelp("T", "top("+formatNumber(int64(n))+")")
			bindings = append(bindings, top)
		}
		return append(bindings, k.Export, k.Quit)
	}
}
