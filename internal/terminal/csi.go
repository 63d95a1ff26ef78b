// internal/terminal/csi.go

package terminal

import "fmt"

// param zwraca wartość parametru lub wartość domyślną, gdy brak albo 0
func param(params [][]int, i, def int) int {
	if i < len(params) && params[i][0] != 0 {
		return params[i][0]
	}
	return def
}

// rawParam zwraca wartość parametru bez zamiany zera na wartość domyślną
func rawParam(params [][]int, i int) int {
	if i < len(params) {
		return params[i][0]
	}
	return 0
}

func (e *Emulator) csiDispatch(params [][]int, private byte, intermediates []byte, final byte) {
	if len(intermediates) > 0 {
		return
	}

	if private == '?' {
		switch final {
		case 'h':
			e.setPrivateModes(params, true)
		case 'l':
			e.setPrivateModes(params, false)
		case 'J':
			e.eraseDisplay(rawParam(params, 0))
		case 'K':
			e.eraseLine(rawParam(params, 0))
		}
		return
	}
	if private != 0 {
		return
	}

	n := param(params, 0, 1)
	switch final {
	case 'A': // CUU
		e.cursorUp(n)
	case 'B', 'e': // CUD, VPR
		e.cursorDown(n)
	case 'C', 'a': // CUF, HPR
		e.moveTo(e.cur.row, e.cur.col+n)
	case 'D': // CUB
		e.moveTo(e.cur.row, e.cur.col-n)
	case 'E': // CNL
		e.cursorDown(n)
		e.cur.col = 0
	case 'F': // CPL
		e.cursorUp(n)
		e.cur.col = 0
	case 'G', '`': // CHA, HPA
		e.moveTo(e.cur.row, n-1)
	case 'H', 'f': // CUP, HVP
		e.moveTo(n-1, param(params, 1, 1)-1)
	case 'd': // VPA
		e.moveTo(n-1, e.cur.col)
	case 'I': // CHT
		for i := 0; i < n; i++ {
			e.cur.col = e.nextTabStop(e.cur.col)
		}
		e.wrapNext = false
	case 'Z': // CBT
		for i := 0; i < n; i++ {
			e.cur.col = e.prevTabStop(e.cur.col)
		}
		e.wrapNext = false
	case 'J': // ED
		e.eraseDisplay(rawParam(params, 0))
	case 'K': // EL
		e.eraseLine(rawParam(params, 0))
	case 'L': // IL
		e.insertLines(n)
	case 'M': // DL
		e.deleteLines(n)
	case 'P': // DCH
		e.deleteChars(n)
	case '@': // ICH
		e.insertChars(n)
	case 'X': // ECH
		e.eraseChars(n)
	case 'S': // SU
		e.scrollUp(n)
	case 'T': // SD
		e.scrollDown(n)
	case 'b': // REP
		if e.lastChar != 0 {
			for i := 0; i < n && i < e.cols*e.rows; i++ {
				e.print(e.lastChar)
			}
		}
	case 'g': // TBC
		switch rawParam(params, 0) {
		case 0:
			e.tabStops[e.cur.col] = false
		case 3:
			for i := range e.tabStops {
				e.tabStops[i] = false
			}
		}
	case 'h', 'l':
		// Tryby ANSI (IRM, LNM) nie są obsługiwane
	case 'm':
		e.selectGraphicRendition(params)
	case 'r': // DECSTBM
		e.setScrollRegion(param(params, 0, 1), param(params, 1, e.rows))
	case 's': // SCOSC
		e.saveCursor()
	case 'u': // SCORC
		e.restoreCursor()
	case 'c': // DA1
		if rawParam(params, 0) == 0 {
			e.reply("\x1b[?1;2c")
		}
	case 'n': // DSR
		switch rawParam(params, 0) {
		case 5:
			e.reply("\x1b[0n")
		case 6:
			e.reply(fmt.Sprintf("\x1b[%d;%dR", e.cur.row+1, e.cur.col+1))
		}
	}
}

func (e *Emulator) moveTo(row, col int) {
	e.cur = clampPos(cursorPos{row: row, col: col}, e.cols, e.rows)
	e.wrapNext = false
}

func (e *Emulator) cursorUp(n int) {
	top := 0
	if e.cur.row >= e.scrollTop {
		top = e.scrollTop
	}
	e.cur.row = clamp(e.cur.row-n, top, e.rows-1)
	e.wrapNext = false
}

func (e *Emulator) cursorDown(n int) {
	bottom := e.rows - 1
	if e.cur.row <= e.scrollBottom {
		bottom = e.scrollBottom
	}
	e.cur.row = clamp(e.cur.row+n, 0, bottom)
	e.wrapNext = false
}

func (e *Emulator) setScrollRegion(top, bottom int) {
	top = clamp(top, 1, e.rows) - 1
	bottom = clamp(bottom, 1, e.rows) - 1
	if top >= bottom {
		top, bottom = 0, e.rows-1
	}
	e.scrollTop, e.scrollBottom = top, bottom
	e.cur = cursorPos{row: top, col: 0}
	e.wrapNext = false
}

func (e *Emulator) setPrivateModes(params [][]int, on bool) {
	for _, p := range params {
		switch p[0] {
		case 1:
			e.appCursorKeys = on
		case 7:
			e.autowrap = on
			if !on {
				e.wrapNext = false
			}
		case 25:
			e.cursorVisible = on
		case 47, 1047:
			if on {
				e.enterAltScreen()
			} else {
				e.exitAltScreen()
			}
		case 1049:
			if on {
				if e.alt == nil {
					e.saveCursor()
				}
				e.enterAltScreen()
			} else if e.alt != nil {
				e.exitAltScreen()
				e.restoreCursor()
				e.saved = nil
			}
		case 2004:
			e.bracketedPaste = on
		}
	}
}

func (e *Emulator) clearRange(row, from, to int) {
	line := e.grid[row]
	from = clamp(from, 0, e.cols)
	to = clamp(to, 0, e.cols)
	if from < to {
		e.clearWide(row, from)
		e.clearWide(row, to-1)
	}
	for c := from; c < to; c++ {
		line[c] = BlankCell()
	}
}

func (e *Emulator) eraseDisplay(mode int) {
	switch mode {
	case 0:
		e.clearRange(e.cur.row, e.cur.col, e.cols)
		for r := e.cur.row + 1; r < e.rows; r++ {
			e.grid[r] = blankRow(e.cols)
		}
	case 1:
		for r := 0; r < e.cur.row; r++ {
			e.grid[r] = blankRow(e.cols)
		}
		e.clearRange(e.cur.row, 0, e.cur.col+1)
	case 2, 3:
		for r := range e.grid {
			e.grid[r] = blankRow(e.cols)
		}
		if mode == 3 {
			e.scrollback = nil
			e.scrollOffset = 0
		}
	}
	e.wrapNext = false
}

func (e *Emulator) eraseLine(mode int) {
	switch mode {
	case 0:
		e.clearRange(e.cur.row, e.cur.col, e.cols)
	case 1:
		e.clearRange(e.cur.row, 0, e.cur.col+1)
	case 2:
		e.grid[e.cur.row] = blankRow(e.cols)
	}
	e.wrapNext = false
}

func (e *Emulator) insertLines(n int) {
	if e.cur.row < e.scrollTop || e.cur.row > e.scrollBottom {
		return
	}
	n = clamp(n, 0, e.scrollBottom-e.cur.row+1)
	region := e.grid[e.cur.row : e.scrollBottom+1]
	copy(region[n:], region[:len(region)-n])
	for i := 0; i < n; i++ {
		region[i] = blankRow(e.cols)
	}
	e.cur.col = 0
	e.wrapNext = false
}

func (e *Emulator) deleteLines(n int) {
	if e.cur.row < e.scrollTop || e.cur.row > e.scrollBottom {
		return
	}
	n = clamp(n, 0, e.scrollBottom-e.cur.row+1)
	region := e.grid[e.cur.row : e.scrollBottom+1]
	copy(region, region[n:])
	for i := len(region) - n; i < len(region); i++ {
		region[i] = blankRow(e.cols)
	}
	e.cur.col = 0
	e.wrapNext = false
}

func (e *Emulator) deleteChars(n int) {
	line := e.grid[e.cur.row]
	n = clamp(n, 0, e.cols-e.cur.col)
	e.clearWide(e.cur.row, e.cur.col)
	copy(line[e.cur.col:], line[e.cur.col+n:])
	for c := e.cols - n; c < e.cols; c++ {
		line[c] = BlankCell()
	}
	e.wrapNext = false
}

func (e *Emulator) insertChars(n int) {
	line := e.grid[e.cur.row]
	n = clamp(n, 0, e.cols-e.cur.col)
	e.clearWide(e.cur.row, e.cur.col)
	copy(line[e.cur.col+n:], line[e.cur.col:e.cols-n])
	for c := e.cur.col; c < e.cur.col+n; c++ {
		line[c] = BlankCell()
	}
	if last := line[e.cols-1]; last.Wide {
		line[e.cols-1] = BlankCell()
	}
	e.wrapNext = false
}

func (e *Emulator) eraseChars(n int) {
	e.clearRange(e.cur.row, e.cur.col, e.cur.col+n)
	e.wrapNext = false
}
