// cmd/sshdeck/raw.go

package main

import (
	"context"
	"io"
	"os"
	"time"

	"sshDeck/internal/models"
	"sshDeck/internal/ssh"

	mobyterm "github.com/moby/term"
)

// winsizeInterval to odstęp sprawdzania rozmiaru lokalnego terminala
const winsizeInterval = 250 * time.Millisecond

func terminalSize(fd uintptr) (cols, rows int, ok bool) {
	ws, err := mobyterm.GetWinsize(fd)
	if err != nil || ws.Width == 0 || ws.Height == 0 {
		return 0, 0, false
	}
	return int(ws.Width), int(ws.Height), true
}

// runRaw przepuszcza bajty między lokalnym terminalem a sesją bez emulatora
func runRaw(ctx context.Context, connector *ssh.Connector, host models.Host, rules []models.ForwardRule, opts []ssh.Option) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fd, isTerminal := mobyterm.GetFdInfo(os.Stdin)
	cols, rows, ok := terminalSize(fd)
	if !ok {
		cols, rows = 80, 24
	}

	if isTerminal {
		state, err := mobyterm.SetRawTerminal(fd)
		if err != nil {
			return err
		}
		defer mobyterm.RestoreTerminal(fd, state)
	}

	engine := ssh.NewForwardEngine(connector, host, opts...)
	defer engine.Close()
	for _, rule := range rules {
		if _, err := engine.Add(ctx, rule); err != nil {
			return err
		}
	}

	session := ssh.NewShellSession(connector, host, cols, rows, opts...)
	session.Start(ctx)
	defer session.Close()

	go pumpStdin(os.Stdin, session)

	resize := time.NewTicker(winsizeInterval)
	defer resize.Stop()
	for {
		select {
		case <-session.Done():
			_, _ = os.Stdout.Write(session.ReadOutput())
			return session.TakeError()
		case <-session.OutputReady():
			_, _ = os.Stdout.Write(session.ReadOutput())
		case <-resize.C:
			if c, r, ok := terminalSize(fd); ok && (c != cols || r != rows) {
				cols, rows = c, r
				session.Resize(cols, rows)
			}
		}
	}
}

// pumpStdin kopiuje wejście do sesji aż do EOF
func pumpStdin(r io.Reader, session *ssh.ShellSession) {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			session.Send(data)
		}
		if err != nil {
			return
		}
	}
}
