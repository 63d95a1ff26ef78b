// internal/ui/styles.go

package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	// Kolory
	Subtle     = lipgloss.Color("#6C7086")
	Highlight  = lipgloss.Color("#7DC4E4")
	Special    = lipgloss.Color("#FF9E64")
	ErrorColor = lipgloss.Color("#F38BA8")
	StatusBar  = lipgloss.Color("#E7E7E7")
	Border     = lipgloss.Color("#33B2FF")
	Directory  = lipgloss.Color("#1E90FF")

	// Tytuł
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Highlight)

	// Opisy i informacje
	DescriptionStyle = lipgloss.NewStyle().
				Foreground(Subtle)

	// Zakładki
	TabStyle = lipgloss.NewStyle().
			Foreground(Subtle).
			Padding(0, 1)

	ActiveTabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(Highlight).
			Bold(true).
			Padding(0, 1)

	// Statusy
	SuccessStyle = lipgloss.NewStyle().
			Foreground(Special).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	StatusBarStyle = lipgloss.NewStyle().
			Foreground(StatusBar)

	DirectoryStyle = lipgloss.NewStyle().
			Foreground(Directory).
			Bold(true)

	// Pasek postępu
	ProgressStyle = lipgloss.NewStyle().
			Foreground(Special)
)

// Truncate przycina tekst do podanej szerokości, dodając "..." na początku
func Truncate(text string, width int) string {
	if width <= 3 || lipgloss.Width(text) <= width {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 && lipgloss.Width(string(runes))+3 > width {
		runes = runes[1:]
	}
	return "..." + string(runes)
}
