// internal/ui/layout.go

package ui

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
)

// BaseLayout zawiera podstawowe wymiary layoutu
type BaseLayout struct {
	Width         int
	Height        int
	HeaderHeight  int
	FooterHeight  int
	ContentHeight int
}

// NewBaseLayout tworzy layout: wiersz zakładek, zawartość, pasek statusu i skróty
func NewBaseLayout(width, height int) BaseLayout {
	const (
		headerHeight = 1 // Zakładki
		footerHeight = 2 // Status + skróty
	)

	content := height - headerHeight - footerHeight
	if content < 1 {
		content = 1
	}
	return BaseLayout{
		Width:         width,
		Height:        height,
		HeaderHeight:  headerHeight,
		FooterHeight:  footerHeight,
		ContentHeight: content,
	}
}

// ContentArea tworzy styl dla głównej zawartości
func (l BaseLayout) ContentArea() lipgloss.Style {
	return lipgloss.NewStyle().
		Width(l.Width).
		Height(l.ContentHeight).
		MaxHeight(l.ContentHeight)
}

// Footer tworzy styl dla stopki
func (l BaseLayout) Footer() lipgloss.Style {
	return lipgloss.NewStyle().
		Width(l.Width).
		MaxHeight(l.FooterHeight)
}

// CreateBubbleTable tworzy tabelę bubble tea z odpowiednimi stylami
func CreateBubbleTable(columns []table.Column, rows []table.Row, width, height int) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithHeight(height),
		table.WithWidth(width),
		table.WithFocused(true),
	)

	style := table.Styles{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(Highlight).
			Padding(0, 1),
		Selected: lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(Highlight).
			Bold(true),
		Cell: lipgloss.NewStyle().
			Padding(0, 1),
	}

	// d/u służą do transferów
	t.KeyMap.HalfPageDown.SetKeys("ctrl+d")
	t.KeyMap.HalfPageUp.SetKeys("ctrl+u")

	t.SetStyles(style)
	return t
}

// CreateLipglossTable tworzy tabelę lipgloss; selected < 0 oznacza brak zaznaczenia
func CreateLipglossTable(headers []string, rows [][]string, selected int) string {
	tableStyle := func(row, col int) lipgloss.Style {
		switch {
		case row == -1: // Nagłówki
			return lipgloss.NewStyle().
				Padding(0, 1).
				Foreground(Highlight).
				Bold(true)
		case row == selected:
			return lipgloss.NewStyle().
				Padding(0, 1).
				Foreground(lipgloss.Color("0")).
				Background(Highlight)
		default:
			return lipgloss.NewStyle().
				Padding(0, 1).
				Foreground(Special)
		}
	}

	return ltable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Border)).
		StyleFunc(tableStyle).
		Headers(headers...).
		Rows(rows...).
		Render()
}
