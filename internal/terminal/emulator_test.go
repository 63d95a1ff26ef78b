package terminal

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feed(e *Emulator, s string) {
	e.Process([]byte(s))
}

func lineAt(e *Emulator, row int) string {
	return RowText(e.Grid()[row])
}

func TestResizeMatchesRequestedSize(t *testing.T) {
	sizes := []struct{ cols, rows int }{
		{1, 1}, {80, 24}, {20, 5}, {132, 50}, {3, 100}, {200, 2},
	}
	e := New(80, 24)
	feed(e, "some text\r\nmore text\r\n\x1b[10;10H")
	for _, s := range sizes {
		t.Run(fmt.Sprintf("%dx%d", s.cols, s.rows), func(t *testing.T) {
			e.Resize(s.cols, s.rows)
			cols, rows := e.Size()
			assert.Equal(t, s.cols, cols)
			assert.Equal(t, s.rows, rows)
			require.Len(t, e.Grid(), s.rows)
			for _, row := range e.Grid() {
				assert.Len(t, row, s.cols)
			}
			r, c := e.Cursor()
			assert.Less(t, r, s.rows)
			assert.Less(t, c, s.cols)
		})
	}
}

func TestResizeIgnoresZeroDimensions(t *testing.T) {
	e := New(10, 4)
	e.Resize(0, 5)
	e.Resize(5, 0)
	cols, rows := e.Size()
	assert.Equal(t, 10, cols)
	assert.Equal(t, 4, rows)
}

func TestResizePushesRowsAboveCursorToScrollback(t *testing.T) {
	e := New(10, 5)
	feed(e, "1\r\n2\r\n3\r\n4\r\n5")

	e.Resize(10, 3)

	assert.Equal(t, 2, e.ScrollbackLen())
	assert.Equal(t, "3", lineAt(e, 0))
	assert.Equal(t, "5", lineAt(e, 2))
	row, _ := e.Cursor()
	assert.Equal(t, 2, row)
}

func TestResizePreservesTopLeftRegion(t *testing.T) {
	e := New(6, 3)
	feed(e, "abcdef\x1b[2;1Hghi")
	e.Resize(3, 3)
	assert.Equal(t, "abc", lineAt(e, 0))
	assert.Equal(t, "ghi", lineAt(e, 1))

	e.Resize(8, 4)
	assert.Equal(t, "abc", lineAt(e, 0))
	assert.Equal(t, "", lineAt(e, 3))
}

func TestFullResetClearsEverything(t *testing.T) {
	e := New(10, 3)
	feed(e, "1\r\n2\r\n3\r\n4\r\n5")
	feed(e, "\x1b7\x1b[31m\x1b[?1049hinside alt\x1b[2;2r")
	require.True(t, e.AltScreen())
	require.NotZero(t, e.ScrollbackLen())

	feed(e, "\x1bc")

	assert.False(t, e.AltScreen())
	assert.Zero(t, e.ScrollbackLen())
	cols, rows := e.Size()
	assert.Equal(t, 10, cols)
	assert.Equal(t, 3, rows)
	for r := 0; r < rows; r++ {
		assert.Equal(t, "", lineAt(e, r))
	}
	row, col := e.Cursor()
	assert.Equal(t, 0, row)
	assert.Equal(t, 0, col)

	// Zapisany kursor również został wyczyszczony
	feed(e, "\x1b[3;3H\x1b8x")
	assert.Equal(t, 'x', e.Cell(2, 2).Ch)
	assert.Equal(t, DefaultColor, e.Cell(2, 2).Fg)
}

func TestAlternateScreenRestoresPrimary(t *testing.T) {
	for _, mode := range []string{"47", "1047", "1049"} {
		t.Run(mode, func(t *testing.T) {
			e := New(10, 3)
			feed(e, "hello\r\nworld\x1b[2;3H")

			feed(e, "\x1b[?"+mode+"h")
			require.True(t, e.AltScreen())
			feed(e, "\x1b[2J\x1b[Hjunk\r\nmore junk\x1b[3;8H")

			feed(e, "\x1b[?"+mode+"l")
			assert.False(t, e.AltScreen())
			assert.Equal(t, "hello", lineAt(e, 0))
			assert.Equal(t, "world", lineAt(e, 1))
			row, col := e.Cursor()
			assert.Equal(t, 1, row)
			assert.Equal(t, 2, col)
		})
	}
}

func TestAlternateScreenHomesCursor(t *testing.T) {
	e := New(10, 4)
	feed(e, "\x1b[3;4H\x1b[?47h")
	row, col := e.Cursor()
	assert.Equal(t, 0, row)
	assert.Equal(t, 0, col)

	feed(e, "\x1b[?47l")
	row, col = e.Cursor()
	assert.Equal(t, 2, row)
	assert.Equal(t, 3, col)
}

func TestRestoreCursorWithoutSaveKeepsPosition(t *testing.T) {
	e := New(10, 5)
	feed(e, "\x1b[31m\x1b[3;4H\x1b8x")
	assert.Equal(t, 'x', e.Cell(2, 3).Ch)
	assert.Equal(t, Indexed(1), e.Cell(2, 3).Fg)

	feed(e, "\x1b[4;2H\x1b[uy")
	assert.Equal(t, 'y', e.Cell(3, 1).Ch)
}

func TestLeavingAlternateScreenConsumesSavedCursor(t *testing.T) {
	e := New(10, 5)
	feed(e, "\x1b[2;3H\x1b[?1049h\x1b[?1049l")
	row, col := e.Cursor()
	assert.Equal(t, 1, row)
	assert.Equal(t, 2, col)

	feed(e, "\x1b[4;4H\x1b8")
	row, col = e.Cursor()
	assert.Equal(t, 3, row)
	assert.Equal(t, 3, col)
}

func TestResizeWhileAlternateKeepsPrimaryCursorRow(t *testing.T) {
	e := New(20, 6)
	feed(e, "l0\r\nl1\r\nl2\r\nl3\r\nl4\r\n$ prompt")
	feed(e, "\x1b[?1049h")

	e.Resize(20, 3)
	feed(e, "\x1b[?1049l")

	require.False(t, e.AltScreen())
	assert.Equal(t, "l3", lineAt(e, 0))
	assert.Equal(t, "l4", lineAt(e, 1))
	assert.Equal(t, "$ prompt", lineAt(e, 2))
	assert.Equal(t, 3, e.ScrollbackLen())
	row, col := e.Cursor()
	assert.Equal(t, 2, row)
	assert.Equal(t, 8, col)
}

func TestAlternateScreenEnterTwiceIsNoop(t *testing.T) {
	e := New(10, 3)
	feed(e, "primary\x1b[?1049h\x1b[Halt text\x1b[?1049h")
	assert.Equal(t, "alt text", lineAt(e, 0))

	feed(e, "\x1b[?1049l\x1b[?1049l")
	assert.Equal(t, "primary", lineAt(e, 0))
}

func TestAlternateScreenDoesNotGrowScrollback(t *testing.T) {
	e := New(10, 2)
	feed(e, "\x1b[?1049h")
	feed(e, "a\r\nb\r\nc\r\nd\r\n")
	assert.Zero(t, e.ScrollbackLen())
}

func TestDeferredWrap(t *testing.T) {
	e := New(5, 3)
	feed(e, "abcde")

	row, col := e.Cursor()
	assert.Equal(t, 0, row)
	assert.Equal(t, 4, col)
	assert.Equal(t, "", lineAt(e, 1))

	feed(e, "\r\n")
	row, _ = e.Cursor()
	assert.Equal(t, 1, row, "CR LF po pełnej linii nie dodaje pustego wiersza")

	feed(e, "\x1b[Hvwxyzq")
	assert.Equal(t, "vwxyz", lineAt(e, 0))
	assert.Equal(t, "q", lineAt(e, 1))
	row, col = e.Cursor()
	assert.Equal(t, 1, row)
	assert.Equal(t, 1, col)
}

func TestAutowrapDisabledOverwritesLastColumn(t *testing.T) {
	e := New(5, 2)
	feed(e, "\x1b[?7labcdefg")
	assert.Equal(t, "abcdg", lineAt(e, 0))
	assert.Equal(t, "", lineAt(e, 1))
}

func TestLineFeedAtBottomFillsScrollback(t *testing.T) {
	e := New(10, 3)
	feed(e, "1\r\n2\r\n3\r\n4")

	assert.Equal(t, 1, e.ScrollbackLen())
	assert.Equal(t, "2", lineAt(e, 0))
	assert.Equal(t, "4", lineAt(e, 2))
}

func TestPartialScrollRegionKeepsScrollback(t *testing.T) {
	e := New(10, 3)
	feed(e, "top\x1b[2;3r")
	row, col := e.Cursor()
	require.Equal(t, 1, row)
	require.Equal(t, 0, col)

	feed(e, "a\nb\nc")

	assert.Zero(t, e.ScrollbackLen())
	assert.Equal(t, "top", lineAt(e, 0))
	assert.Equal(t, " b", lineAt(e, 1))
	assert.Equal(t, "  c", lineAt(e, 2))
}

func TestInvalidScrollRegionResetsToFullScreen(t *testing.T) {
	e := New(10, 4)
	feed(e, "\x1b[3;2r")
	for i := 0; i < 5; i++ {
		feed(e, "x\r\n")
	}
	assert.Equal(t, 2, e.ScrollbackLen())
}

func TestVisibleRowsWithScrollOffset(t *testing.T) {
	e := New(10, 3)
	feed(e, "1\r\n2\r\n3\r\n4\r\n5")
	require.Equal(t, 2, e.ScrollbackLen())

	e.ScrollViewUp(1)
	rows := e.VisibleRows()
	require.Len(t, rows, 3)
	assert.Equal(t, "2", RowText(rows[0]))
	assert.Equal(t, "3", RowText(rows[1]))
	assert.Equal(t, "4", RowText(rows[2]))

	e.ScrollViewUp(100)
	assert.Equal(t, 2, e.ScrollOffset())
	assert.Equal(t, "1", RowText(e.VisibleRows()[0]))

	e.ScrollViewDown(1)
	assert.Equal(t, 1, e.ScrollOffset())

	feed(e, "")
	assert.Zero(t, e.ScrollOffset(), "nowe dane wracają do widoku bieżącego")
	assert.Equal(t, "3", RowText(e.VisibleRows()[0]))
}

func TestScrollbackLimit(t *testing.T) {
	e := New(5, 2, WithScrollback(3))
	for i := 0; i < 10; i++ {
		feed(e, fmt.Sprintf("%d\r\n", i))
	}
	assert.Equal(t, 3, e.ScrollbackLen())
	e.ScrollViewUp(3)
	assert.Equal(t, "6", RowText(e.VisibleRows()[0]))
}

func TestEraseDisplayModes(t *testing.T) {
	e := New(5, 3)
	feed(e, "aaaaa\r\nbbbbb\r\nccccc\x1b[2;3H\x1b[J")
	assert.Equal(t, "aaaaa", lineAt(e, 0))
	assert.Equal(t, "bb", lineAt(e, 1))
	assert.Equal(t, "", lineAt(e, 2))

	feed(e, "\x1b[1;1Haaaaa\r\nbbbbb\r\nccccc\x1b[2;3H\x1b[1J")
	assert.Equal(t, "", lineAt(e, 0))
	assert.Equal(t, "   bb", lineAt(e, 1))
	assert.Equal(t, "ccccc", lineAt(e, 2))

	feed(e, "\x1b[2J")
	for r := 0; r < 3; r++ {
		assert.Equal(t, "", lineAt(e, r))
	}
}

func TestEraseDisplayModeThreeClearsScrollback(t *testing.T) {
	e := New(5, 2)
	feed(e, "1\r\n2\r\n3\r\n4")
	require.NotZero(t, e.ScrollbackLen())
	e.ScrollViewUp(1)

	feed(e, "\x1b[3J")

	assert.Zero(t, e.ScrollbackLen())
	assert.Zero(t, e.ScrollOffset())
}

func TestEraseLineModes(t *testing.T) {
	e := New(6, 1)
	feed(e, "abcdef\x1b[1;3H\x1b[K")
	assert.Equal(t, "ab", lineAt(e, 0))

	feed(e, "\x1b[1;1Habcdef\x1b[1;3H\x1b[1K")
	assert.Equal(t, "   def", lineAt(e, 0))

	feed(e, "\x1b[2K")
	assert.Equal(t, "", lineAt(e, 0))
}

func TestLineAndCharacterEditing(t *testing.T) {
	e := New(8, 3)
	feed(e, "abcdef\x1b[1;2H\x1b[2P")
	assert.Equal(t, "adef", lineAt(e, 0))

	feed(e, "\x1b[2@")
	assert.Equal(t, "a  def", lineAt(e, 0))

	feed(e, "\x1b[1;1H\x1b[3X")
	assert.Equal(t, "   def", lineAt(e, 0))

	feed(e, "\x1b[2J\x1b[Ha\r\nb\r\nc\x1b[1;1H\x1b[L")
	assert.Equal(t, "", lineAt(e, 0))
	assert.Equal(t, "a", lineAt(e, 1))
	assert.Equal(t, "b", lineAt(e, 2))

	feed(e, "\x1b[M")
	assert.Equal(t, "a", lineAt(e, 0))
	assert.Equal(t, "b", lineAt(e, 1))
	assert.Equal(t, "", lineAt(e, 2))
}

func TestScrollUpAndDown(t *testing.T) {
	e := New(5, 3)
	feed(e, "a\r\nb\r\nc\x1b[S")
	assert.Equal(t, "b", lineAt(e, 0))
	assert.Equal(t, "", lineAt(e, 2))
	assert.Equal(t, 1, e.ScrollbackLen())

	feed(e, "\x1b[2T")
	assert.Equal(t, "", lineAt(e, 0))
	assert.Equal(t, "", lineAt(e, 1))
	assert.Equal(t, "b", lineAt(e, 2))
}

func TestCursorMovementIsClamped(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		row, col int
	}{
		{"cup", "\x1b[3;4H", 2, 3},
		{"cup out of bounds", "\x1b[99;99H", 4, 9},
		{"cup default", "\x1b[3;4H\x1b[H", 0, 0},
		{"cuu clamps", "\x1b[3;4H\x1b[10A", 0, 3},
		{"cud", "\x1b[2B", 2, 0},
		{"cuf clamps", "\x1b[50C", 0, 9},
		{"cub", "\x1b[1;6H\x1b[2D", 0, 3},
		{"cnl", "\x1b[1;6H\x1b[2E", 2, 0},
		{"cpl", "\x1b[4;6H\x1b[2F", 1, 0},
		{"cha", "\x1b[7G", 0, 6},
		{"vpa", "\x1b[1;5H\x1b[4d", 3, 4},
		{"backspace", "abc\b", 0, 2},
		{"tab", "a\t", 0, 8},
		{"tab at end", "\x1b[1;9H\t\t", 0, 9},
		{"save restore", "\x1b[2;2H\x1b7\x1b[5;5H\x1b8", 1, 1},
		{"sco save restore", "\x1b[3;3H\x1b[s\x1b[H\x1b[u", 2, 2},
		{"reverse index at top", "\x1bM", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(10, 5)
			feed(e, tt.input)
			row, col := e.Cursor()
			assert.Equal(t, tt.row, row)
			assert.Equal(t, tt.col, col)
		})
	}
}

func TestReverseIndexScrollsRegionDown(t *testing.T) {
	e := New(5, 3)
	feed(e, "a\r\nb\r\nc\x1b[H\x1bM")
	assert.Equal(t, "", lineAt(e, 0))
	assert.Equal(t, "a", lineAt(e, 1))
	assert.Equal(t, "b", lineAt(e, 2))
}

func TestTabStops(t *testing.T) {
	e := New(20, 2)
	feed(e, "\x1b[1;4H\x1bH\r\t")
	_, col := e.Cursor()
	assert.Equal(t, 3, col)

	feed(e, "\x1b[3g\r\t")
	_, col = e.Cursor()
	assert.Equal(t, 19, col)
}

func TestPrivateModes(t *testing.T) {
	e := New(10, 2)
	assert.True(t, e.CursorVisible())
	assert.False(t, e.AppCursorKeys())

	feed(e, "\x1b[?25l\x1b[?1h\x1b[?2004h")
	assert.False(t, e.CursorVisible())
	assert.True(t, e.AppCursorKeys())
	assert.True(t, e.BracketedPaste())
	assert.Equal(t, []byte("\x1b[200~ls\x1b[201~"), e.Paste("ls"))

	feed(e, "\x1b[?25;1;2004l")
	assert.True(t, e.CursorVisible())
	assert.False(t, e.AppCursorKeys())
	assert.Equal(t, []byte("ls"), e.Paste("ls"))
}

func TestRepeatLastCharacter(t *testing.T) {
	e := New(10, 1)
	feed(e, "x\x1b[3b")
	assert.Equal(t, "xxxx", lineAt(e, 0))
}

func TestSelectionText(t *testing.T) {
	e := New(10, 2)
	feed(e, "hello\r\nworld")
	assert.Equal(t, "ello\nwor", e.SelectionText(Pos{0, 1}, Pos{1, 2}))
	assert.Equal(t, "ello\nwor", e.SelectionText(Pos{1, 2}, Pos{0, 1}))
	assert.Equal(t, "hello\nworld", e.Text())
}
