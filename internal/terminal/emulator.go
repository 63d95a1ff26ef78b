// internal/terminal/emulator.go

package terminal

import (
	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
)

const (
	tabWidth          = 8
	DefaultScrollback = 10000
)

// widthCond liczy szerokość znaków niezależnie od ustawień locale
var widthCond = func() *runewidth.Condition {
	c := runewidth.NewCondition()
	c.EastAsianWidth = false
	return c
}()

// Option konfiguruje emulator
type Option func(*Emulator)

// WithScrollback ustawia maksymalną liczbę linii historii (0 = bez limitu)
func WithScrollback(lines int) Option {
	return func(e *Emulator) {
		if lines >= 0 {
			e.maxScrollback = lines
		}
	}
}

type cursorPos struct {
	row, col int
}

// savedCursor przechowuje stan zapisany przez DECSC/SCOSC
type savedCursor struct {
	pos      cursorPos
	pen      Attr
	autowrap bool
}

// altScreen przechowuje główny ekran na czas pracy w ekranie alternatywnym
type altScreen struct {
	grid [][]Cell
	pos  cursorPos
}

// Emulator interpretuje strumień wyjściowy powłoki i utrzymuje siatkę znaków.
// Nie jest bezpieczny dla współbieżnego użycia; należy do wątku UI.
type Emulator struct {
	cols, rows int
	grid       [][]Cell

	scrollback    [][]Cell
	maxScrollback int
	scrollOffset  int

	cur      cursorPos
	wrapNext bool
	pen      Attr

	scrollTop    int
	scrollBottom int
	tabStops     []bool

	cursorVisible  bool
	autowrap       bool
	appCursorKeys  bool
	bracketedPaste bool

	alt   *altScreen
	saved *savedCursor

	title    string
	lastChar rune
	replies  []byte

	parser *ansi.Parser
}

// New tworzy emulator o podanym rozmiarze
func New(cols, rows int, opts ...Option) *Emulator {
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	e := &Emulator{maxScrollback: DefaultScrollback, parser: newParser()}
	for _, opt := range opts {
		opt(e)
	}
	e.reset(cols, rows)
	return e
}

func (e *Emulator) reset(cols, rows int) {
	e.cols, e.rows = cols, rows
	e.grid = newGrid(cols, rows)
	e.scrollback = nil
	e.scrollOffset = 0
	e.cur = cursorPos{}
	e.wrapNext = false
	e.pen = Attr{}
	e.scrollTop, e.scrollBottom = 0, rows-1
	e.tabStops = defaultTabStops(cols)
	e.cursorVisible = true
	e.autowrap = true
	e.appCursorKeys = false
	e.bracketedPaste = false
	e.alt = nil
	e.saved = nil
	e.title = ""
	e.lastChar = 0
}

func newGrid(cols, rows int) [][]Cell {
	grid := make([][]Cell, rows)
	for i := range grid {
		grid[i] = blankRow(cols)
	}
	return grid
}

func blankRow(cols int) []Cell {
	row := make([]Cell, cols)
	for i := range row {
		row[i] = BlankCell()
	}
	return row
}

func defaultTabStops(cols int) []bool {
	stops := make([]bool, cols)
	for i := tabWidth; i < cols; i += tabWidth {
		stops[i] = true
	}
	return stops
}

// fitRow przycina lub dopełnia wiersz do zadanej szerokości
func fitRow(row []Cell, cols int) []Cell {
	if len(row) == cols {
		return row
	}
	out := blankRow(cols)
	copy(out, row)
	if n := len(out); n > 0 && out[n-1].Wide {
		out[n-1] = BlankCell()
	}
	return out
}

// Process przetwarza bajty wyjściowe powłoki i przywraca widok na bieżący ekran
func (e *Emulator) Process(data []byte) {
	e.scrollOffset = 0
	e.parser.Parse(e.dispatch, data)
}

// Resize zmienia rozmiar siatki; zerowe lub niezmienione wymiary są ignorowane
func (e *Emulator) Resize(cols, rows int) {
	if cols <= 0 || rows <= 0 || (cols == e.cols && rows == e.rows) {
		return
	}

	if e.cur.row >= rows {
		shift := e.cur.row - rows + 1
		if e.alt == nil {
			for i := 0; i < shift; i++ {
				e.pushScrollback(e.grid[i])
			}
		}
		e.grid = e.grid[shift:]
		e.cur.row = rows - 1
	}
	e.grid = resizeGrid(e.grid, cols, rows)

	if e.alt != nil {
		// Zapisany ekran główny traci górne wiersze tak samo jak aktywny
		if e.alt.pos.row >= rows {
			shift := e.alt.pos.row - rows + 1
			for i := 0; i < shift; i++ {
				e.pushScrollback(e.alt.grid[i])
			}
			e.alt.grid = e.alt.grid[shift:]
			e.alt.pos.row = rows - 1
		}
		e.alt.grid = resizeGrid(e.alt.grid, cols, rows)
		e.alt.pos = clampPos(e.alt.pos, cols, rows)
	}
	if e.saved != nil {
		e.saved.pos = clampPos(e.saved.pos, cols, rows)
	}

	e.cols, e.rows = cols, rows
	e.scrollTop, e.scrollBottom = 0, rows-1
	e.cur = clampPos(e.cur, cols, rows)
	e.wrapNext = false
	e.tabStops = defaultTabStops(cols)
	if e.scrollOffset > len(e.scrollback) {
		e.scrollOffset = len(e.scrollback)
	}
}

func resizeGrid(grid [][]Cell, cols, rows int) [][]Cell {
	out := make([][]Cell, rows)
	for i := range out {
		if i < len(grid) {
			out[i] = fitRow(grid[i], cols)
		} else {
			out[i] = blankRow(cols)
		}
	}
	return out
}

func clampPos(p cursorPos, cols, rows int) cursorPos {
	return cursorPos{row: clamp(p.row, 0, rows-1), col: clamp(p.col, 0, cols-1)}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (e *Emulator) pushScrollback(row []Cell) {
	line := make([]Cell, len(row))
	copy(line, row)
	e.scrollback = append(e.scrollback, line)
	if e.maxScrollback > 0 && len(e.scrollback) > e.maxScrollback {
		drop := len(e.scrollback) - e.maxScrollback
		for i := 0; i < drop; i++ {
			e.scrollback[i] = nil
		}
		e.scrollback = e.scrollback[drop:]
	}
}

// Size zwraca aktualny rozmiar siatki
func (e *Emulator) Size() (cols, rows int) {
	return e.cols, e.rows
}

// Cursor zwraca pozycję kursora (wiersz, kolumna)
func (e *Emulator) Cursor() (row, col int) {
	return e.cur.row, e.cur.col
}

// CursorVisible informuje czy kursor ma być rysowany
func (e *Emulator) CursorVisible() bool {
	return e.cursorVisible
}

// AppCursorKeys zwraca stan trybu DECCKM
func (e *Emulator) AppCursorKeys() bool {
	return e.appCursorKeys
}

// BracketedPaste zwraca stan trybu ?2004
func (e *Emulator) BracketedPaste() bool {
	return e.bracketedPaste
}

// AltScreen informuje czy aktywny jest ekran alternatywny
func (e *Emulator) AltScreen() bool {
	return e.alt != nil
}

// Title zwraca tytuł ustawiony przez OSC 0/2
func (e *Emulator) Title() string {
	return e.title
}

// Cell zwraca komórkę bieżącej siatki; poza zakresem zwraca pustą komórkę
func (e *Emulator) Cell(row, col int) Cell {
	if row < 0 || row >= e.rows || col < 0 || col >= e.cols {
		return BlankCell()
	}
	return e.grid[row][col]
}

// Grid zwraca wiersze bieżącego ekranu (bez kopiowania)
func (e *Emulator) Grid() [][]Cell {
	return e.grid
}

// ScrollbackLen zwraca liczbę linii w historii
func (e *Emulator) ScrollbackLen() int {
	return len(e.scrollback)
}

// ScrollOffset zwraca przesunięcie widoku w historii (0 = widok bieżący)
func (e *Emulator) ScrollOffset() int {
	return e.scrollOffset
}

// ScrollViewUp przewija widok w stronę historii
func (e *Emulator) ScrollViewUp(lines int) {
	e.scrollOffset = clamp(e.scrollOffset+lines, 0, len(e.scrollback))
}

// ScrollViewDown przewija widok w stronę bieżącego ekranu
func (e *Emulator) ScrollViewDown(lines int) {
	e.scrollOffset = clamp(e.scrollOffset-lines, 0, len(e.scrollback))
}

// ResetView wraca do widoku bieżącego ekranu
func (e *Emulator) ResetView() {
	e.scrollOffset = 0
}

// VisibleRows zwraca wiersze aktualnie widoczne: bieżący ekran albo
// okno złożone z linii historii i początkowych wierszy ekranu.
func (e *Emulator) VisibleRows() [][]Cell {
	if e.scrollOffset == 0 {
		return e.grid
	}
	start := len(e.scrollback) - e.scrollOffset
	out := make([][]Cell, 0, e.rows)
	for i := start; i < start+e.rows; i++ {
		if i < len(e.scrollback) {
			out = append(out, fitRow(e.scrollback[i], e.cols))
		} else {
			out = append(out, e.grid[i-len(e.scrollback)])
		}
	}
	return out
}

// TakeReplies zwraca i czyści odpowiedzi na zapytania terminala (DA, DSR),
// które właściciel powinien odesłać do zdalnej powłoki
func (e *Emulator) TakeReplies() []byte {
	out := e.replies
	e.replies = nil
	return out
}

// Paste przygotowuje wklejany tekst do wysłania, uwzględniając tryb bracketed paste
func (e *Emulator) Paste(text string) []byte {
	if !e.bracketedPaste {
		return []byte(text)
	}
	out := make([]byte, 0, len(text)+12)
	out = append(out, "\x1b[200~"...)
	out = append(out, text...)
	out = append(out, "\x1b[201~"...)
	return out
}

// --- akcje parsera ---

func (e *Emulator) print(r rune) {
	w := widthCond.RuneWidth(r)
	if w == 0 {
		return
	}
	if w > 2 || e.cols < 2 {
		w = 1
	}

	if e.wrapNext && e.autowrap {
		e.cur.col = 0
		e.lineFeed()
	}
	e.wrapNext = false

	if w == 2 && e.cur.col == e.cols-1 {
		if !e.autowrap {
			return
		}
		e.setCell(e.cur.row, e.cur.col, e.blank())
		e.cur.col = 0
		e.lineFeed()
	}

	row := e.grid[e.cur.row]
	e.clearWide(e.cur.row, e.cur.col)
	row[e.cur.col] = Cell{Ch: r, Wide: w == 2, Attr: e.pen}
	if w == 2 {
		e.clearWide(e.cur.row, e.cur.col+1)
		row[e.cur.col+1] = Cell{Ch: 0, Attr: e.pen}
	}
	e.lastChar = r

	if e.cur.col+w >= e.cols {
		e.cur.col = e.cols - 1
		if e.autowrap {
			e.wrapNext = true
		}
		return
	}
	e.cur.col += w
}

// clearWide usuwa połówki szerokiego znaku nadpisywanego w danej komórce
func (e *Emulator) clearWide(row, col int) {
	line := e.grid[row]
	c := line[col]
	switch {
	case c.Wide && col+1 < len(line):
		line[col+1] = BlankCell()
	case c.Ch == 0 && col > 0:
		line[col-1] = BlankCell()
	}
}

func (e *Emulator) setCell(row, col int, c Cell) {
	e.clearWide(row, col)
	e.grid[row][col] = c
}

func (e *Emulator) blank() Cell {
	return BlankCell()
}

func (e *Emulator) execute(b byte) {
	switch b {
	case 0x08: // BS
		if e.cur.col > 0 {
			e.cur.col--
		}
		e.wrapNext = false
	case 0x09: // HT
		e.cur.col = e.nextTabStop(e.cur.col)
		e.wrapNext = false
	case 0x0A, 0x0B, 0x0C: // LF, VT, FF
		e.lineFeed()
		e.wrapNext = false
	case 0x0D: // CR
		e.cur.col = 0
		e.wrapNext = false
	}
}

func (e *Emulator) nextTabStop(col int) int {
	for c := col + 1; c < e.cols; c++ {
		if e.tabStops[c] {
			return c
		}
	}
	return e.cols - 1
}

func (e *Emulator) prevTabStop(col int) int {
	for c := col - 1; c > 0; c-- {
		if e.tabStops[c] {
			return c
		}
	}
	return 0
}

// lineFeed przesuwa kursor w dół, przewijając region na jego dolnej krawędzi
func (e *Emulator) lineFeed() {
	switch {
	case e.cur.row == e.scrollBottom:
		e.scrollUp(1)
	case e.cur.row < e.rows-1:
		e.cur.row++
	}
}

// reverseIndex przesuwa kursor w górę, przewijając region w dół na jego górnej krawędzi
func (e *Emulator) reverseIndex() {
	switch {
	case e.cur.row == e.scrollTop:
		e.scrollDown(1)
	case e.cur.row > 0:
		e.cur.row--
	}
}

// scrollUp przesuwa region przewijania w górę. Do historii trafiają tylko
// wiersze zdjęte z samej góry ekranu głównego.
func (e *Emulator) scrollUp(n int) {
	n = clamp(n, 0, e.scrollBottom-e.scrollTop+1)
	for i := 0; i < n; i++ {
		top := e.grid[e.scrollTop]
		if e.scrollTop == 0 && e.alt == nil {
			e.pushScrollback(top)
		}
		copy(e.grid[e.scrollTop:e.scrollBottom], e.grid[e.scrollTop+1:e.scrollBottom+1])
		e.grid[e.scrollBottom] = blankRow(e.cols)
	}
}

func (e *Emulator) scrollDown(n int) {
	n = clamp(n, 0, e.scrollBottom-e.scrollTop+1)
	for i := 0; i < n; i++ {
		copy(e.grid[e.scrollTop+1:e.scrollBottom+1], e.grid[e.scrollTop:e.scrollBottom])
		e.grid[e.scrollTop] = blankRow(e.cols)
	}
}

func (e *Emulator) escDispatch(intermediates []byte, final byte) {
	if len(intermediates) > 0 {
		// Wybór zestawów znaków (ESC ( B itp.) nie jest obsługiwany
		return
	}
	switch final {
	case '7':
		e.saveCursor()
	case '8':
		e.restoreCursor()
	case 'D': // IND
		e.lineFeed()
		e.wrapNext = false
	case 'E': // NEL
		e.cur.col = 0
		e.lineFeed()
		e.wrapNext = false
	case 'H': // HTS
		e.tabStops[e.cur.col] = true
	case 'M': // RI
		e.reverseIndex()
		e.wrapNext = false
	case 'c': // RIS
		e.reset(e.cols, e.rows)
	}
}

func (e *Emulator) oscDispatch(data []byte) {
	sep := -1
	for i, b := range data {
		if b == ';' {
			sep = i
			break
		}
	}
	if sep < 0 {
		return
	}
	switch string(data[:sep]) {
	case "0", "2":
		e.title = string(data[sep+1:])
	}
}

func (e *Emulator) saveCursor() {
	e.saved = &savedCursor{pos: e.cur, pen: e.pen, autowrap: e.autowrap}
}

// restoreCursor przywraca zapisany kursor; pusty slot nic nie zmienia
func (e *Emulator) restoreCursor() {
	if e.saved == nil {
		return
	}
	e.cur = clampPos(e.saved.pos, e.cols, e.rows)
	e.pen = e.saved.pen
	e.autowrap = e.saved.autowrap
	e.wrapNext = false
}

func (e *Emulator) enterAltScreen() {
	if e.alt != nil {
		return
	}
	e.alt = &altScreen{grid: e.grid, pos: e.cur}
	e.grid = newGrid(e.cols, e.rows)
	e.cur = cursorPos{}
	e.scrollOffset = 0
	e.wrapNext = false
}

func (e *Emulator) exitAltScreen() {
	if e.alt == nil {
		return
	}
	e.grid = e.alt.grid
	e.cur = clampPos(e.alt.pos, e.cols, e.rows)
	e.alt = nil
	e.wrapNext = false
}

func (e *Emulator) reply(s string) {
	e.replies = append(e.replies, s...)
}
