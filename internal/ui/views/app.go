// internal/ui/views/app.go

package views

import (
	"context"
	"strings"
	"time"

	"sshDeck/internal/config"
	"sshDeck/internal/models"
	"sshDeck/internal/ssh"
	"sshDeck/internal/terminal"
	"sshDeck/internal/ui"
	"sshDeck/internal/ui/messages"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
)

// refreshInterval to odstęp odpytywania kolejek silnika
const refreshInterval = 30 * time.Millisecond

// Options opisuje połączenie prowadzone przez interfejs
type Options struct {
	Host     models.Host
	Settings *config.Settings
	Logger   zerolog.Logger
	Forwards []models.ForwardRule
	LocalDir string
}

// App to główny model interfejsu: jedna sesja powłoki, opcjonalny
// silnik SFTP i silnik przekierowań dla jednego połączenia
type App struct {
	ctx    context.Context
	cancel context.CancelFunc
	log    zerolog.Logger

	host     models.Host
	settings *config.Settings
	keys     ui.KeyMap
	layout   ui.BaseLayout
	tab      ui.Tab
	status   ui.Status

	connector *ssh.Connector
	sshOpts   []ssh.Option
	localDir  string
	initial   []models.ForwardRule

	session  *ssh.ShellSession
	term     *terminalView
	sftp     *sftpView
	forwards *forwardsView

	err      error
	quitting bool
}

// NewApp buduje model; połączenia powstają dopiero w Init
func NewApp(ctx context.Context, connector *ssh.Connector, opts Options, sshOpts ...ssh.Option) *App {
	settings := opts.Settings
	if settings == nil {
		settings = config.DefaultSettings()
	}
	ctx, cancel := context.WithCancel(ctx)
	keys := ui.DefaultKeyMap()
	cols, rows := settings.Term.Cols, settings.Term.Rows

	session := ssh.NewShellSession(connector, opts.Host, cols, rows, sshOpts...)
	emu := terminal.New(cols, rows, terminal.WithScrollback(settings.Term.Scrollback))

	return &App{
		ctx:       ctx,
		cancel:    cancel,
		log:       opts.Logger.With().Str("component", "ui").Logger(),
		host:      opts.Host,
		settings:  settings,
		keys:      keys,
		layout:    ui.NewBaseLayout(cols, rows+3),
		connector: connector,
		sshOpts:   sshOpts,
		localDir:  opts.LocalDir,
		initial:   opts.Forwards,
		session:   session,
		term:      newTerminalView(session, emu, keys),
		forwards:  newForwardsView(ctx, ssh.NewForwardEngine(connector, opts.Host, sshOpts...), keys),
		status:    ui.Status{Message: "connecting to " + opts.Host.Label()},
	}
}

// Err zwraca błąd, który zakończył sesję powłoki
func (a *App) Err() error {
	return a.err
}

func (a *App) Init() tea.Cmd {
	a.session.Start(a.ctx)

	cmds := []tea.Cmd{tickCmd(), waitShell(a.session)}
	for _, rule := range a.initial {
		if err := a.forwards.add(rule); err != nil {
			a.log.Warn().Err(err).Str("rule", rule.String()).Msg("forward rejected")
			cmds = append(cmds, statusCmd(err.Error(), true))
		}
	}
	return tea.Batch(cmds...)
}

func tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return messages.TickMsg(t)
	})
}

func waitShell(s *ssh.ShellSession) tea.Cmd {
	return func() tea.Msg {
		<-s.Done()
		return messages.ShellExitedMsg{}
	}
}

func statusCmd(text string, isError bool) tea.Cmd {
	return func() tea.Msg {
		return messages.StatusMsg{Text: text, IsError: isError}
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.layout = ui.NewBaseLayout(msg.Width, msg.Height)
		a.term.resize(msg.Width, a.layout.ContentHeight)
		a.forwards.resize(msg.Width, a.layout.ContentHeight)
		if a.sftp != nil {
			a.sftp.resize(msg.Width, a.layout.ContentHeight)
		}
		return a, nil

	case messages.TickMsg:
		a.poll()
		return a, tickCmd()

	case messages.StatusMsg:
		a.status = ui.Status{Message: msg.Text, IsError: msg.IsError}
		return a, nil

	case messages.ShellExitedMsg:
		a.poll()
		a.log.Info().Err(a.err).Msg("shell session ended")
		a.shutdown()
		return a, tea.Quit

	case tea.KeyMsg:
		return a, a.handleKey(msg)
	}
	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, a.keys.Quit):
		a.shutdown()
		return tea.Quit
	case key.Matches(msg, a.keys.TerminalTab):
		a.tab = ui.TabTerminal
		return nil
	case key.Matches(msg, a.keys.SftpTab):
		a.openSftp()
		a.tab = ui.TabSftp
		return nil
	case key.Matches(msg, a.keys.ForwardsTab):
		a.tab = ui.TabForwards
		return nil
	}

	switch a.tab {
	case ui.TabSftp:
		return a.sftp.handleKey(msg)
	case ui.TabForwards:
		cmd, status := a.forwards.handleKey(msg)
		if status != nil {
			a.status = *status
		}
		return cmd
	}
	a.term.handleKey(msg)
	return nil
}

// openSftp uruchamia silnik SFTP przy pierwszym wejściu do zakładki
func (a *App) openSftp() {
	if a.sftp != nil {
		return
	}
	engine := ssh.NewSftpEngine(a.connector, a.host, a.sshOpts...)
	engine.Start(a.ctx)
	a.sftp = newSftpView(engine, a.keys, a.localDir)
	a.sftp.resize(a.layout.Width, a.layout.ContentHeight)
}

// poll odpytuje wszystkie komponenty; ostatni błąd trafia na pasek statusu
func (a *App) poll() {
	if err := a.term.poll(); err != nil {
		a.err = err
		a.status = ui.Status{Message: err.Error(), IsError: true}
	} else if a.session.State() == ssh.StateConnected && strings.HasPrefix(a.status.Message, "connecting") {
		a.status = ui.Status{Message: "connected to " + a.host.Label()}
	}
	if a.sftp != nil {
		if st, ok := a.sftp.poll(); ok {
			a.status = st
		}
	}
	if st, ok := a.forwards.poll(); ok {
		a.status = st
	}
}

func (a *App) shutdown() {
	if a.quitting {
		return
	}
	a.quitting = true
	a.session.Close()
	if a.sftp != nil {
		a.sftp.engine.Close()
	}
	a.forwards.engine.Close()
	a.cancel()
}

func (a *App) renderTabs() string {
	tabs := []ui.Tab{ui.TabTerminal, ui.TabSftp, ui.TabForwards}
	parts := make([]string, 0, len(tabs)+1)
	for i, t := range tabs {
		label := string(rune('1'+i)) + " " + t.String()
		if t == a.tab {
			parts = append(parts, ui.ActiveTabStyle.Render(label))
		} else {
			parts = append(parts, ui.TabStyle.Render(label))
		}
	}
	title := a.host.Label()
	if t := a.term.emu.Title(); t != "" {
		title = t
	}
	parts = append(parts, ui.TitleStyle.Render(" "+title))
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (a *App) renderFooter() string {
	style := ui.SuccessStyle
	if a.status.IsError {
		style = ui.ErrorStyle
	}
	state := ui.StatusBarStyle.Render("[" + a.session.State().String() + "] ")
	statusLine := state + style.Render(ui.Truncate(a.status.Message, max(a.layout.Width-16, 10)))

	var help string
	switch a.tab {
	case ui.TabSftp:
		help = ui.HelpLine(a.keys.Enter, a.keys.Back, a.keys.Download, a.keys.Upload,
			a.keys.Mkdir, a.keys.Rename, a.keys.Remove, a.keys.Refresh)
	case ui.TabForwards:
		help = ui.HelpLine(a.keys.AddRule, a.keys.StopRule, a.keys.Up, a.keys.Down)
	default:
		help = ui.HelpLine(a.keys.ScrollUp, a.keys.ScrollDown, a.keys.SftpTab, a.keys.ForwardsTab, a.keys.Quit)
	}
	return a.layout.Footer().Render(statusLine + "\n" + ui.DescriptionStyle.Render(help))
}

func (a *App) View() string {
	if a.quitting {
		return ""
	}

	var content string
	switch a.tab {
	case ui.TabSftp:
		content = a.sftp.View()
	case ui.TabForwards:
		content = a.forwards.View()
	default:
		content = a.term.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		a.renderTabs(),
		a.layout.ContentArea().Render(content),
		a.renderFooter(),
	)
}
