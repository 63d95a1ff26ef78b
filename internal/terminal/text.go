// internal/terminal/text.go

package terminal

import "strings"

// Pos to pozycja w widocznych wierszach
type Pos struct {
	Row, Col int
}

// RowText zamienia wiersz komórek na tekst bez końcowych spacji
func RowText(row []Cell) string {
	var b strings.Builder
	for _, c := range row {
		if c.Ch == 0 {
			continue
		}
		b.WriteRune(c.Ch)
	}
	return strings.TrimRight(b.String(), " ")
}

// Text zwraca tekst widocznych wierszy rozdzielony znakami nowej linii
func (e *Emulator) Text() string {
	rows := e.VisibleRows()
	lines := make([]string, len(rows))
	for i, row := range rows {
		lines[i] = RowText(row)
	}
	return strings.Join(lines, "\n")
}

// SelectionText zwraca tekst zaznaczenia między dwoma pozycjami (włącznie),
// liczonymi względem widocznych wierszy
func (e *Emulator) SelectionText(start, end Pos) string {
	if end.Row < start.Row || (end.Row == start.Row && end.Col < start.Col) {
		start, end = end, start
	}
	rows := e.VisibleRows()
	start.Row = clamp(start.Row, 0, len(rows)-1)
	end.Row = clamp(end.Row, 0, len(rows)-1)

	var lines []string
	for r := start.Row; r <= end.Row; r++ {
		row := rows[r]
		from, to := 0, len(row)
		if r == start.Row {
			from = clamp(start.Col, 0, len(row))
		}
		if r == end.Row {
			to = clamp(end.Col+1, from, len(row))
		}
		lines = append(lines, RowText(row[from:to]))
	}
	return strings.Join(lines, "\n")
}
