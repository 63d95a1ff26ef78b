// internal/ui/components/popup.go

package components

import (
	"strings"

	"sshDeck/internal/ui"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type PopupType int

const (
	PopupNone PopupType = iota
	PopupUpload
	PopupMkdir
	PopupRename
	PopupDelete
	PopupAddRule
	PopupMessage
)

// PopupResult to wynik obsługi klawisza przez popup
type PopupResult int

const (
	PopupPending PopupResult = iota
	PopupConfirmed
	PopupCancelled
)

type Popup struct {
	Type         PopupType
	Title        string
	Message      string
	Input        textinput.Model
	Width        int
	ScreenWidth  int
	ScreenHeight int
}

func NewPopup(popupType PopupType, title, message string, width, screenWidth, screenHeight int) *Popup {
	input := textinput.New()
	input.Placeholder = "Enter value..."
	input.Width = width - 8
	input.Focus()

	return &Popup{
		Type:         popupType,
		Title:        title,
		Message:      message,
		Input:        input,
		Width:        width,
		ScreenWidth:  screenWidth,
		ScreenHeight: screenHeight,
	}
}

// HasInput mówi, czy popup zbiera tekst
func (p *Popup) HasInput() bool {
	switch p.Type {
	case PopupUpload, PopupMkdir, PopupRename, PopupAddRule:
		return true
	}
	return false
}

// Value zwraca wpisany tekst bez otaczających spacji
func (p *Popup) Value() string {
	return strings.TrimSpace(p.Input.Value())
}

// Update obsługuje klawisz: potwierdzenie, anulowanie albo edycję pola
func (p *Popup) Update(msg tea.KeyMsg) (PopupResult, tea.Cmd) {
	switch p.Type {
	case PopupDelete:
		switch msg.String() {
		case "y", "Y":
			return PopupConfirmed, nil
		case "n", "N", "esc":
			return PopupCancelled, nil
		}
		return PopupPending, nil
	case PopupMessage:
		switch msg.String() {
		case "esc", "enter":
			return PopupCancelled, nil
		}
		return PopupPending, nil
	}

	switch msg.Type {
	case tea.KeyEnter:
		if p.Value() == "" {
			return PopupPending, nil
		}
		return PopupConfirmed, nil
	case tea.KeyEsc:
		return PopupCancelled, nil
	}
	var cmd tea.Cmd
	p.Input, cmd = p.Input.Update(msg)
	return PopupPending, cmd
}

func (p *Popup) Render() string {
	popupStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ui.Border).
		Padding(1, 2).
		Width(p.Width)

	titleStyle := ui.TitleStyle.
		Align(lipgloss.Center).
		Width(p.Width - 4)

	var content strings.Builder
	content.WriteString(titleStyle.Render(p.Title) + "\n\n")
	content.WriteString(p.Message + "\n")

	if p.HasInput() {
		content.WriteString("\n" + p.Input.View())
	}

	var keys string
	switch p.Type {
	case PopupDelete:
		keys = "y - Yes, n - No"
	case PopupMessage:
		keys = "ESC/ENTER - Close"
	default:
		keys = "ENTER - Confirm, ESC - Cancel"
	}
	content.WriteString("\n\n" + ui.DescriptionStyle.Render(keys))

	// Wyśrodkowanie popupu na ekranie
	return lipgloss.Place(
		p.ScreenWidth,
		p.ScreenHeight,
		lipgloss.Center,
		lipgloss.Center,
		popupStyle.Render(content.String()),
	)
}
