// internal/ui/views/terminal.go

package views

import (
	"strings"

	"sshDeck/internal/ssh"
	"sshDeck/internal/terminal"
	"sshDeck/internal/ui"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type specialKey struct {
	key terminal.Key
	mod terminal.Mod
}

// specialKeys mapuje klawisze bubbletea na klawisze emulatora
var specialKeys = map[tea.KeyType]specialKey{
	tea.KeyEnter:      {key: terminal.KeyEnter},
	tea.KeyTab:        {key: terminal.KeyTab},
	tea.KeyShiftTab:   {key: terminal.KeyBacktab},
	tea.KeyBackspace:  {key: terminal.KeyBackspace},
	tea.KeyEsc:        {key: terminal.KeyEscape},
	tea.KeyUp:         {key: terminal.KeyUp},
	tea.KeyDown:       {key: terminal.KeyDown},
	tea.KeyRight:      {key: terminal.KeyRight},
	tea.KeyLeft:       {key: terminal.KeyLeft},
	tea.KeyShiftUp:    {key: terminal.KeyUp, mod: terminal.ModShift},
	tea.KeyShiftDown:  {key: terminal.KeyDown, mod: terminal.ModShift},
	tea.KeyShiftRight: {key: terminal.KeyRight, mod: terminal.ModShift},
	tea.KeyShiftLeft:  {key: terminal.KeyLeft, mod: terminal.ModShift},
	tea.KeyCtrlUp:     {key: terminal.KeyUp, mod: terminal.ModCtrl},
	tea.KeyCtrlDown:   {key: terminal.KeyDown, mod: terminal.ModCtrl},
	tea.KeyCtrlRight:  {key: terminal.KeyRight, mod: terminal.ModCtrl},
	tea.KeyCtrlLeft:   {key: terminal.KeyLeft, mod: terminal.ModCtrl},
	tea.KeyHome:       {key: terminal.KeyHome},
	tea.KeyEnd:        {key: terminal.KeyEnd},
	tea.KeyShiftHome:  {key: terminal.KeyHome, mod: terminal.ModShift},
	tea.KeyShiftEnd:   {key: terminal.KeyEnd, mod: terminal.ModShift},
	tea.KeyCtrlHome:   {key: terminal.KeyHome, mod: terminal.ModCtrl},
	tea.KeyCtrlEnd:    {key: terminal.KeyEnd, mod: terminal.ModCtrl},
	tea.KeyPgUp:       {key: terminal.KeyPageUp},
	tea.KeyPgDown:     {key: terminal.KeyPageDown},
	tea.KeyInsert:     {key: terminal.KeyInsert},
	tea.KeyDelete:     {key: terminal.KeyDelete},
	tea.KeyF1:         {key: terminal.KeyF1},
	tea.KeyF2:         {key: terminal.KeyF2},
	tea.KeyF3:         {key: terminal.KeyF3},
	tea.KeyF4:         {key: terminal.KeyF4},
	tea.KeyF5:         {key: terminal.KeyF5},
	tea.KeyF6:         {key: terminal.KeyF6},
	tea.KeyF7:         {key: terminal.KeyF7},
	tea.KeyF8:         {key: terminal.KeyF8},
	tea.KeyF9:         {key: terminal.KeyF9},
	tea.KeyF10:        {key: terminal.KeyF10},
	tea.KeyF11:        {key: terminal.KeyF11},
	tea.KeyF12:        {key: terminal.KeyF12},
}

// encodeKeyMsg zamienia zdarzenie klawiatury na bajty dla zdalnej powłoki
func encodeKeyMsg(msg tea.KeyMsg, appCursor bool) []byte {
	var mod terminal.Mod
	if msg.Alt {
		mod |= terminal.ModAlt
	}

	if sk, ok := specialKeys[msg.Type]; ok {
		return terminal.EncodeKey(sk.key, sk.mod|mod, appCursor)
	}

	switch msg.Type {
	case tea.KeyRunes:
		var out []byte
		for _, r := range msg.Runes {
			out = append(out, terminal.EncodeRune(r, mod)...)
		}
		return out
	case tea.KeySpace:
		return terminal.EncodeRune(' ', mod)
	}

	// Klawisze Ctrl+litera mają w bubbletea wartość bajtu sterującego
	if msg.Type >= 0 && msg.Type < 0x20 {
		b := []byte{byte(msg.Type)}
		if mod&terminal.ModAlt != 0 {
			return append([]byte{0x1b}, b...)
		}
		return b
	}
	return nil
}

// terminalView łączy emulator z sesją powłoki
type terminalView struct {
	session *ssh.ShellSession
	emu     *terminal.Emulator
	keys    ui.KeyMap
}

func newTerminalView(session *ssh.ShellSession, emu *terminal.Emulator, keys ui.KeyMap) *terminalView {
	return &terminalView{session: session, emu: emu, keys: keys}
}

// poll przenosi wyjście sesji do emulatora i odsyła odpowiedzi na zapytania
func (v *terminalView) poll() error {
	if out := v.session.ReadOutput(); len(out) > 0 {
		v.emu.Process(out)
		if replies := v.emu.TakeReplies(); len(replies) > 0 {
			v.session.Send(replies)
		}
	}
	return v.session.TakeError()
}

func (v *terminalView) resize(cols, rows int) {
	cur, curRows := v.emu.Size()
	if cur == cols && curRows == rows {
		return
	}
	v.emu.Resize(cols, rows)
	v.session.Resize(cols, rows)
}

func (v *terminalView) handleKey(msg tea.KeyMsg) {
	_, rows := v.emu.Size()
	switch {
	case key.Matches(msg, v.keys.ScrollUp):
		v.emu.ScrollViewUp(rows / 2)
		return
	case key.Matches(msg, v.keys.ScrollDown):
		v.emu.ScrollViewDown(rows / 2)
		return
	}

	var data []byte
	if msg.Paste {
		data = v.emu.Paste(string(msg.Runes))
	} else {
		data = encodeKeyMsg(msg, v.emu.AppCursorKeys())
	}
	if len(data) == 0 {
		return
	}
	v.emu.ResetView()
	v.session.Send(data)
}

func (v *terminalView) View() string {
	return renderScreen(v.emu)
}

// cellStyle zamienia atrybuty komórki na styl lipgloss
func cellStyle(a terminal.Attr) lipgloss.Style {
	s := lipgloss.NewStyle()
	if hex := a.Fg.Hex(); hex != "" {
		s = s.Foreground(lipgloss.Color(hex))
	}
	if hex := a.Bg.Hex(); hex != "" {
		s = s.Background(lipgloss.Color(hex))
	}
	return s.Bold(a.Bold).
		Italic(a.Italic).
		Underline(a.Underline).
		Reverse(a.Inverse)
}

// renderScreen rysuje widoczne wiersze, łącząc sąsiednie komórki o tych samych atrybutach
func renderScreen(emu *terminal.Emulator) string {
	rows := emu.VisibleRows()
	curRow, curCol := emu.Cursor()
	showCursor := emu.CursorVisible() && emu.ScrollOffset() == 0

	lines := make([]string, len(rows))
	for r, row := range rows {
		var line strings.Builder
		var run strings.Builder
		var runAttr terminal.Attr

		flush := func() {
			if run.Len() == 0 {
				return
			}
			line.WriteString(cellStyle(runAttr).Render(run.String()))
			run.Reset()
		}

		for c, cell := range row {
			if cell.Ch == 0 {
				continue
			}
			attr := cell.Attr
			if showCursor && r == curRow && c == curCol {
				attr.Inverse = !attr.Inverse
			}
			if attr != runAttr {
				flush()
				runAttr = attr
			}
			run.WriteRune(cell.Ch)
		}
		flush()
		lines[r] = line.String()
	}
	return strings.Join(lines, "\n")
}
