package views

import (
	"context"
	"strings"
	"testing"
	"time"

	"sshDeck/internal/models"
	"sshDeck/internal/ssh"
	"sshDeck/internal/sshtest"
	"sshDeck/internal/terminal"
	"sshDeck/internal/ui"
	"sshDeck/internal/ui/messages"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeKeyMsg(t *testing.T) {
	tests := []struct {
		name      string
		msg       tea.KeyMsg
		appCursor bool
		want      string
	}{
		{"rune", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")}, false, "a"},
		{"unicode runes", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("zó")}, false, "zó"},
		{"alt rune", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("b"), Alt: true}, false, "\x1bb"},
		{"space", tea.KeyMsg{Type: tea.KeySpace}, false, " "},
		{"enter", tea.KeyMsg{Type: tea.KeyEnter}, false, "\r"},
		{"tab", tea.KeyMsg{Type: tea.KeyTab}, false, "\t"},
		{"backtab", tea.KeyMsg{Type: tea.KeyShiftTab}, false, "\x1b[Z"},
		{"backspace", tea.KeyMsg{Type: tea.KeyBackspace}, false, "\x7f"},
		{"escape", tea.KeyMsg{Type: tea.KeyEsc}, false, "\x1b"},
		{"ctrl+c", tea.KeyMsg{Type: tea.KeyCtrlC}, false, "\x03"},
		{"alt+ctrl+a", tea.KeyMsg{Type: tea.KeyCtrlA, Alt: true}, false, "\x1b\x01"},
		{"up", tea.KeyMsg{Type: tea.KeyUp}, false, "\x1b[A"},
		{"up app cursor", tea.KeyMsg{Type: tea.KeyUp}, true, "\x1bOA"},
		{"shift up", tea.KeyMsg{Type: tea.KeyShiftUp}, false, "\x1b[1;2A"},
		{"ctrl left", tea.KeyMsg{Type: tea.KeyCtrlLeft}, false, "\x1b[1;5D"},
		{"page down", tea.KeyMsg{Type: tea.KeyPgDown}, false, "\x1b[6~"},
		{"delete", tea.KeyMsg{Type: tea.KeyDelete}, false, "\x1b[3~"},
		{"f1", tea.KeyMsg{Type: tea.KeyF1}, false, "\x1bOP"},
		{"f5", tea.KeyMsg{Type: tea.KeyF5}, false, "\x1b[15~"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(encodeKeyMsg(tt.msg, tt.appCursor)))
		})
	}
}

func TestRenderScreenKeepsGridWidth(t *testing.T) {
	emu := terminal.New(10, 3)
	emu.Process([]byte("hi \x1b[31mred\x1b[0m\r\n漢x"))

	lines := strings.Split(renderScreen(emu), "\n")
	require.Len(t, lines, 3)
	for _, line := range lines {
		assert.Equal(t, 10, lipgloss.Width(line))
	}
	assert.Contains(t, lines[0], "hi ")
	assert.Contains(t, lines[0], "red")
	assert.Contains(t, lines[1], "漢x")
}

func TestParseRuleInput(t *testing.T) {
	rule, err := parseRuleInput("-L 8080:db:5432")
	require.NoError(t, err)
	assert.Equal(t, models.ForwardLocal, rule.Type)
	assert.Equal(t, 8080, rule.BindPort)
	assert.Equal(t, "db", rule.DestHost)
	assert.Equal(t, 5432, rule.DestPort)

	rule, err = parseRuleInput("D 1080")
	require.NoError(t, err)
	assert.Equal(t, models.ForwardDynamic, rule.Type)
	assert.Equal(t, "127.0.0.1", rule.BindHost)

	_, err = parseRuleInput("-X 1:2:3")
	assert.Error(t, err)
	_, err = parseRuleInput("-L")
	assert.Error(t, err)
}

func TestRemoteTarget(t *testing.T) {
	assert.Equal(t, "/home/u/new", remoteTarget("/home/u", "new"))
	assert.Equal(t, "/tmp/x", remoteTarget("/home/u", "/tmp//x"))
}

func TestProgressLine(t *testing.T) {
	assert.Empty(t, progressLine(nil, 80))

	st := ssh.NewTransferState("file.bin", true)
	line := progressLine(st, 80)
	assert.Contains(t, line, "file.bin")
	assert.Contains(t, line, "0%")
}

func tick(app *App) {
	app.Update(messages.TickMsg(time.Now()))
}

func TestAppDrivesSessionAndSftp(t *testing.T) {
	srv := sshtest.Start(t, nil)
	app := NewApp(context.Background(), ssh.NewConnector(), Options{
		Host:     srv.Host(),
		LocalDir: t.TempDir(),
		Forwards: []models.ForwardRule{{Type: models.ForwardDynamic, BindHost: "127.0.0.1"}},
	})
	app.Init()
	app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	require.Eventually(t, func() bool {
		tick(app)
		return strings.Contains(app.term.emu.Text(), strings.TrimSpace(sshtest.Banner))
	}, 5*time.Second, 10*time.Millisecond)
	cols, rows := app.term.emu.Size()
	assert.Equal(t, 100, cols)
	assert.Equal(t, app.layout.ContentHeight, rows)
	assert.Equal(t, "connected to "+srv.Host().Label(), app.status.Message)

	app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("typed")})
	require.Eventually(t, func() bool {
		tick(app)
		return strings.Contains(app.term.emu.Text(), "typed")
	}, 5*time.Second, 10*time.Millisecond)

	app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("2"), Alt: true})
	assert.Equal(t, ui.TabSftp, app.tab)
	require.NotNil(t, app.sftp)
	require.Eventually(t, func() bool {
		tick(app)
		return app.sftp.dir == "/"
	}, 5*time.Second, 10*time.Millisecond)

	app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("3"), Alt: true})
	assert.Equal(t, ui.TabForwards, app.tab)
	require.Eventually(t, func() bool {
		tick(app)
		return len(app.forwards.rules) == 1 && app.forwards.rules[0].State == ssh.RuleRunning
	}, 5*time.Second, 10*time.Millisecond)
	assert.Contains(t, app.View(), "SOCKS5")

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlQ})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	select {
	case <-app.session.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("session still running after quit")
	}
	assert.NoError(t, app.Err())
}
