// internal/ui/models.go

package ui

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap definiuje skróty klawiszowe. W zakładce terminala wszystkie
// pozostałe klawisze trafiają do zdalnej powłoki.
type KeyMap struct {
	Quit        key.Binding
	TerminalTab key.Binding
	SftpTab     key.Binding
	ForwardsTab key.Binding

	// Terminal
	ScrollUp   key.Binding
	ScrollDown key.Binding

	// SFTP i przekierowania
	Up       key.Binding
	Down     key.Binding
	Enter    key.Binding
	Back     key.Binding
	Download key.Binding
	Upload   key.Binding
	Mkdir    key.Binding
	Rename   key.Binding
	Remove   key.Binding
	Refresh  key.Binding
	AddRule  key.Binding
	StopRule key.Binding
}

// DefaultKeyMap zwraca domyślne ustawienia klawiszy
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+q"),
			key.WithHelp("ctrl+q", "quit"),
		),
		TerminalTab: key.NewBinding(
			key.WithKeys("alt+1"),
			key.WithHelp("alt+1", "terminal"),
		),
		SftpTab: key.NewBinding(
			key.WithKeys("alt+2"),
			key.WithHelp("alt+2", "sftp"),
		),
		ForwardsTab: key.NewBinding(
			key.WithKeys("alt+3"),
			key.WithHelp("alt+3", "forwards"),
		),
		ScrollUp: key.NewBinding(
			key.WithKeys("shift+pgup", "ctrl+pgup"),
			key.WithHelp("shift+pgup", "scroll up"),
		),
		ScrollDown: key.NewBinding(
			key.WithKeys("shift+pgdown", "ctrl+pgdown"),
			key.WithHelp("shift+pgdown", "scroll down"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		Back: key.NewBinding(
			key.WithKeys("backspace", "h"),
			key.WithHelp("bksp", "parent"),
		),
		Download: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "download"),
		),
		Upload: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "upload"),
		),
		Mkdir: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "mkdir"),
		),
		Rename: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "rename"),
		),
		Remove: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "remove"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "refresh"),
		),
		AddRule: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add rule"),
		),
		StopRule: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "stop rule"),
		),
	}
}

// HelpLine składa opis skrótów do stopki
func HelpLine(bindings ...key.Binding) string {
	var out string
	for i, b := range bindings {
		if i > 0 {
			out += "  "
		}
		h := b.Help()
		out += h.Key + " " + h.Desc
	}
	return out
}

// Status reprezentuje komunikat paska statusu
type Status struct {
	Message string
	IsError bool
}

// Tab to aktywna zakładka
type Tab int

const (
	TabTerminal Tab = iota
	TabSftp
	TabForwards
)

func (t Tab) String() string {
	switch t {
	case TabSftp:
		return "SFTP"
	case TabForwards:
		return "Forwards"
	}
	return "Terminal"
}
