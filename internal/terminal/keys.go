// internal/terminal/keys.go

package terminal

import "strconv"

// Key to klawisz specjalny, który nie jest zwykłym znakiem
type Key int

const (
	KeyEnter Key = iota
	KeyTab
	KeyBacktab
	KeyBackspace
	KeyEscape
	KeyUp
	KeyDown
	KeyRight
	KeyLeft
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
	KeyInsert
	KeyDelete
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
)

// Mod to maska modyfikatorów
type Mod uint8

const (
	ModShift Mod = 1 << iota
	ModAlt
	ModCtrl
)

// xtermModifier zwraca parametr modyfikatora w konwencji xterm (1 + maska)
func (m Mod) xtermModifier() int {
	return 1 + int(m&(ModShift|ModAlt|ModCtrl))
}

var cursorFinals = map[Key]byte{
	KeyUp:    'A',
	KeyDown:  'B',
	KeyRight: 'C',
	KeyLeft:  'D',
	KeyHome:  'H',
	KeyEnd:   'F',
}

var tildeCodes = map[Key]int{
	KeyInsert:   2,
	KeyDelete:   3,
	KeyPageUp:   5,
	KeyPageDown: 6,
	KeyF5:       15,
	KeyF6:       17,
	KeyF7:       18,
	KeyF8:       19,
	KeyF9:       20,
	KeyF10:      21,
	KeyF11:      23,
	KeyF12:      24,
}

var ss3Finals = map[Key]byte{
	KeyF1: 'P',
	KeyF2: 'Q',
	KeyF3: 'R',
	KeyF4: 'S',
}

// EncodeKey zamienia klawisz specjalny na bajty wysyłane do zdalnej powłoki.
// appCursor odpowiada trybowi DECCKM (strzałki jako SS3).
func EncodeKey(k Key, mod Mod, appCursor bool) []byte {
	switch k {
	case KeyEnter:
		return withAlt([]byte{'\r'}, mod)
	case KeyTab:
		if mod&ModShift != 0 {
			return []byte("\x1b[Z")
		}
		return withAlt([]byte{'\t'}, mod)
	case KeyBacktab:
		return []byte("\x1b[Z")
	case KeyBackspace:
		if mod&ModCtrl != 0 {
			return withAlt([]byte{0x08}, mod)
		}
		return withAlt([]byte{0x7f}, mod)
	case KeyEscape:
		return []byte{0x1b}
	}

	if final, ok := cursorFinals[k]; ok {
		if mod != 0 {
			return []byte("\x1b[1;" + strconv.Itoa(mod.xtermModifier()) + string(final))
		}
		if appCursor {
			return []byte{0x1b, 'O', final}
		}
		return []byte{0x1b, '[', final}
	}

	if final, ok := ss3Finals[k]; ok {
		if mod != 0 {
			return []byte("\x1b[1;" + strconv.Itoa(mod.xtermModifier()) + string(final))
		}
		return []byte{0x1b, 'O', final}
	}

	if code, ok := tildeCodes[k]; ok {
		seq := "\x1b[" + strconv.Itoa(code)
		if mod != 0 {
			seq += ";" + strconv.Itoa(mod.xtermModifier())
		}
		return []byte(seq + "~")
	}

	return nil
}

// EncodeRune zamienia znak z modyfikatorami na bajty (Ctrl+litera daje bajt sterujący)
func EncodeRune(r rune, mod Mod) []byte {
	if mod&ModCtrl != 0 {
		switch {
		case r >= 'a' && r <= 'z':
			return withAlt([]byte{byte(r - 'a' + 1)}, mod)
		case r >= 'A' && r <= 'Z':
			return withAlt([]byte{byte(r - 'A' + 1)}, mod)
		case r >= '@' && r <= '_':
			return withAlt([]byte{byte(r) & 0x1f}, mod)
		case r == ' ' || r == '2':
			return withAlt([]byte{0}, mod)
		case r == '?':
			return withAlt([]byte{0x7f}, mod)
		}
	}
	return withAlt([]byte(string(r)), mod)
}

func withAlt(b []byte, mod Mod) []byte {
	if mod&ModAlt == 0 {
		return b
	}
	return append([]byte{0x1b}, b...)
}
