// internal/terminal/sgr.go

package terminal

import "fmt"

// ColorKind określa rodzaj koloru komórki
type ColorKind uint8

const (
	ColorDefault ColorKind = iota
	ColorIndexed
	ColorRGB
)

// Color reprezentuje kolor pierwszego planu lub tła
type Color struct {
	Kind    ColorKind
	Index   uint8
	R, G, B uint8
}

// DefaultColor to kolor domyślny terminala
var DefaultColor = Color{}

// Indexed zwraca kolor z palety 256 kolorów
func Indexed(n uint8) Color {
	return Color{Kind: ColorIndexed, Index: n}
}

// RGB zwraca kolor 24-bitowy
func RGB(r, g, b uint8) Color {
	return Color{Kind: ColorRGB, R: r, G: g, B: b}
}

// Hex zwraca kolor w formacie #rrggbb albo pusty napis dla koloru domyślnego
func (c Color) Hex() string {
	switch c.Kind {
	case ColorIndexed:
		r, g, b := Palette256(c.Index)
		return fmt.Sprintf("#%02x%02x%02x", r, g, b)
	case ColorRGB:
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return ""
}

// Attr to atrybuty graficzne komórki
type Attr struct {
	Fg        Color
	Bg        Color
	Bold      bool
	Italic    bool
	Underline bool
	Inverse   bool
}

// Cell to pojedyncza komórka siatki. Ch == 0 oznacza drugą połowę szerokiego znaku.
type Cell struct {
	Ch   rune
	Wide bool
	Attr
}

// BlankCell zwraca pustą komórkę z domyślnymi atrybutami
func BlankCell() Cell {
	return Cell{Ch: ' '}
}

var basePalette = [16][3]uint8{
	{0x00, 0x00, 0x00}, {0xcd, 0x00, 0x00}, {0x00, 0xcd, 0x00}, {0xcd, 0xcd, 0x00},
	{0x00, 0x00, 0xee}, {0xcd, 0x00, 0xcd}, {0x00, 0xcd, 0xcd}, {0xe5, 0xe5, 0xe5},
	{0x7f, 0x7f, 0x7f}, {0xff, 0x00, 0x00}, {0x00, 0xff, 0x00}, {0xff, 0xff, 0x00},
	{0x5c, 0x5c, 0xff}, {0xff, 0x00, 0xff}, {0x00, 0xff, 0xff}, {0xff, 0xff, 0xff},
}

// Palette256 zwraca składowe RGB koloru indeksowanego (paleta xterm)
func Palette256(i uint8) (r, g, b uint8) {
	switch {
	case i < 16:
		c := basePalette[i]
		return c[0], c[1], c[2]
	case i < 232:
		n := int(i) - 16
		level := func(v int) uint8 {
			if v == 0 {
				return 0
			}
			return uint8(55 + v*40)
		}
		return level(n / 36), level((n / 6) % 6), level(n % 6)
	default:
		v := uint8(8 + (int(i)-232)*10)
		return v, v, v
	}
}

func clampByte(v int) uint8 {
	if v > 255 {
		return 255
	}
	if v < 0 {
		return 0
	}
	return uint8(v)
}

// selectGraphicRendition obsługuje CSI ... m
func (e *Emulator) selectGraphicRendition(params [][]int) {
	if len(params) == 0 {
		e.pen = Attr{}
		return
	}

	for i := 0; i < len(params); i++ {
		group := params[i]
		switch p := group[0]; {
		case p == 0:
			e.pen = Attr{}
		case p == 1:
			e.pen.Bold = true
		case p == 3:
			e.pen.Italic = true
		case p == 4:
			// 4:0 wyłącza podkreślenie, pozostałe style traktujemy jak zwykłe
			e.pen.Underline = len(group) < 2 || group[1] != 0
		case p == 7:
			e.pen.Inverse = true
		case p == 21 || p == 22:
			e.pen.Bold = false
		case p == 23:
			e.pen.Italic = false
		case p == 24:
			e.pen.Underline = false
		case p == 27:
			e.pen.Inverse = false
		case p >= 30 && p <= 37:
			e.pen.Fg = Indexed(uint8(p - 30))
		case p == 38:
			c, skip, ok := extendedColor(params, i)
			if ok {
				e.pen.Fg = c
			}
			i += skip
		case p == 39:
			e.pen.Fg = DefaultColor
		case p >= 40 && p <= 47:
			e.pen.Bg = Indexed(uint8(p - 40))
		case p == 48:
			c, skip, ok := extendedColor(params, i)
			if ok {
				e.pen.Bg = c
			}
			i += skip
		case p == 49:
			e.pen.Bg = DefaultColor
		case p >= 90 && p <= 97:
			e.pen.Fg = Indexed(uint8(p - 90 + 8))
		case p >= 100 && p <= 107:
			e.pen.Bg = Indexed(uint8(p - 100 + 8))
		}
	}
}

// extendedColor dekoduje 38/48 w postaci z dwukropkami (38:5:n, 38:2::r:g:b)
// albo średnikami (38;5;n, 38;2;r;g;b). Zwraca liczbę zużytych dodatkowych parametrów.
func extendedColor(params [][]int, i int) (Color, int, bool) {
	group := params[i]
	if len(group) > 1 {
		switch group[1] {
		case 5:
			if len(group) >= 3 {
				return Indexed(clampByte(group[2])), 0, true
			}
		case 2:
			if len(group) >= 6 {
				return RGB(clampByte(group[3]), clampByte(group[4]), clampByte(group[5])), 0, true
			}
			if len(group) == 5 {
				return RGB(clampByte(group[2]), clampByte(group[3]), clampByte(group[4])), 0, true
			}
		}
		return Color{}, 0, false
	}

	rest := params[i+1:]
	if len(rest) == 0 {
		return Color{}, 0, false
	}
	switch rest[0][0] {
	case 5:
		if len(rest) < 2 {
			return Color{}, len(rest), false
		}
		return Indexed(clampByte(rest[1][0])), 2, true
	case 2:
		if len(rest) < 4 {
			return Color{}, len(rest), false
		}
		return RGB(clampByte(rest[1][0]), clampByte(rest[2][0]), clampByte(rest[3][0])), 4, true
	}
	return Color{}, 1, false
}
