// internal/terminal/parser.go

package terminal

import (
	"math"

	"github.com/charmbracelet/x/ansi"
)

const (
	maxParams     = 32
	maxParamValue = 65535
	maxOSCLength  = 4096
)

// Parametr CSI w ansi.CsiSequence: najstarszy bit słowa 32-bitowego oznacza,
// że po nim następuje podparametr (':'), reszta to wartość. Brakujący
// parametr ma wszystkie bity wartości ustawione.
const (
	paramMoreFlag = math.MinInt32
	paramMask     = ^paramMoreFlag
)

func newParser() *ansi.Parser {
	return ansi.NewParser(maxParams, maxOSCLength)
}

// dispatch rozdziela sekwencje z parsera na akcje emulatora
func (e *Emulator) dispatch(seq ansi.Sequence) {
	switch s := seq.(type) {
	case ansi.Rune:
		e.print(rune(s))
	case ansi.ControlCode:
		e.execute(byte(s))
	case ansi.EscSequence:
		e.escDispatch(intermediates(s.Intermediate()), byte(s.Command()))
	case ansi.CsiSequence:
		e.csiDispatch(csiParams(s.Params), byte(s.Marker()), intermediates(s.Intermediate()), byte(s.Command()))
	case ansi.OscSequence:
		e.oscDispatch(s.Data)
	}
	// DCS, SOS, PM i APC są pomijane
}

func intermediates(b int) []byte {
	if b == 0 {
		return nil
	}
	return []byte{byte(b)}
}

// csiParams grupuje surowe parametry w listy [wartość, podparametry...].
// Brakujące wartości stają się zerem.
func csiParams(raw []int) [][]int {
	if len(raw) == 0 {
		return nil
	}
	out := make([][]int, 0, len(raw))
	more := false
	for _, p := range raw {
		v := p & paramMask
		if v == paramMask {
			v = 0
		}
		if v > maxParamValue {
			v = maxParamValue
		}
		if more {
			last := len(out) - 1
			out[last] = append(out[last], v)
		} else {
			out = append(out, []int{v})
		}
		more = p&paramMoreFlag != 0
	}
	return out
}
