// internal/ssh/session.go

package ssh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	apperr "sshDeck/internal/error"
	"sshDeck/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
)

type shellCommand struct {
	data       []byte
	cols, rows int
}

// ShellSession prowadzi jeden interaktywny kanał w tle. Interfejs
// komunikuje się z nim wyłącznie przez nieblokujące kolejki.
type ShellSession struct {
	connector *Connector
	host      models.Host
	opts      options
	log       zerolog.Logger

	cols, rows int

	output   *Queue[[]byte]
	commands *Queue[shellCommand]

	alive   atomic.Bool
	state   atomic.Int32
	errs    errorSlot
	started atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewShellSession przygotowuje sesję; połączenie powstaje dopiero w Start
func NewShellSession(connector *Connector, host models.Host, cols, rows int, opts ...Option) *ShellSession {
	o := newOptions(opts)
	if cols <= 0 {
		cols = 80
	}
	if rows <= 0 {
		rows = 24
	}
	s := &ShellSession{
		connector: connector,
		host:      host,
		opts:      o,
		log:       o.logger.With().Str("component", "shell").Str("host", host.Address).Logger(),
		cols:      cols,
		rows:      rows,
		output:    NewQueue[[]byte](),
		commands:  NewQueue[shellCommand](),
		done:      make(chan struct{}),
	}
	s.state.Store(int32(StateConnecting))
	return s
}

// Start uruchamia pompę w tle. Anulowanie ctx działa jak Close.
func (s *ShellSession) Start(ctx context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.alive.Store(true)
	go s.run(ctx)
}

// Send kolejkuje bajty klawiatury bez blokowania
func (s *ShellSession) Send(data []byte) {
	if len(data) == 0 {
		return
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	s.commands.Push(shellCommand{data: buf})
}

// Resize kolejkuje zmianę rozmiaru pseudoterminala
func (s *ShellSession) Resize(cols, rows int) {
	if cols <= 0 || rows <= 0 {
		return
	}
	s.commands.Push(shellCommand{cols: cols, rows: rows})
}

// ReadOutput zwraca wszystkie bajty odebrane od ostatniego wywołania
func (s *ShellSession) ReadOutput() []byte {
	chunks := s.output.Drain()
	switch len(chunks) {
	case 0:
		return nil
	case 1:
		return chunks[0]
	}
	var n int
	for _, c := range chunks {
		n += len(c)
	}
	out := make([]byte, 0, n)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

// OutputReady jest sygnalizowany po nadejściu nowych danych
func (s *ShellSession) OutputReady() <-chan struct{} {
	return s.output.Notify()
}

func (s *ShellSession) IsAlive() bool {
	return s.alive.Load()
}

func (s *ShellSession) State() SessionState {
	return SessionState(s.state.Load())
}

// TakeError zwraca i czyści ostatni błąd
func (s *ShellSession) TakeError() error {
	return s.errs.Take()
}

// Done jest zamykany po zakończeniu pompy
func (s *ShellSession) Done() <-chan struct{} {
	return s.done
}

// Close prosi pompę o zakończenie; pompa zauważa to przy najbliższym obiegu
func (s *ShellSession) Close() {
	s.alive.Store(false)
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *ShellSession) fail(err error) {
	s.log.Warn().Err(err).Msg("shell session failed")
	s.errs.Set(err)
}

func (s *ShellSession) run(ctx context.Context) {
	defer close(s.done)
	defer s.output.Close()
	defer s.alive.Store(false)
	defer s.state.Store(int32(StateDisconnected))

	client, err := s.connector.Connect(ctx, &s.host)
	if err != nil {
		s.fail(err)
		return
	}
	// Błąd rozłączenia jest pomijany
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		s.fail(apperr.New(apperr.ChannelError, "failed to open session channel", err))
		return
	}
	defer session.Close()

	stdin, stdout, stderr, err := sessionPipes(session)
	if err != nil {
		s.fail(apperr.New(apperr.ChannelError, "failed to attach session streams", err))
		return
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
		ssh.VINTR:         3,  // Ctrl+C
		ssh.VQUIT:         28, // Ctrl+\
		ssh.VERASE:        127,
		ssh.VKILL:         21, // Ctrl+U
		ssh.VEOF:          4,  // Ctrl+D
		ssh.VWERASE:       23, // Ctrl+W
		ssh.VLNEXT:        22, // Ctrl+V
		ssh.VSUSP:         26, // Ctrl+Z
	}
	if err := session.RequestPty(s.opts.termType, s.rows, s.cols, modes); err != nil {
		s.fail(apperr.New(apperr.ChannelError, "failed to request PTY", err))
		return
	}
	if err := session.Shell(); err != nil {
		s.fail(apperr.New(apperr.ChannelError, "failed to start shell", err))
		return
	}

	s.state.Store(int32(StateConnected))
	s.log.Info().Int("cols", s.cols).Int("rows", s.rows).Msg("shell started")

	var readers sync.WaitGroup
	readers.Add(2)
	go s.pipeOutput(stdout, &readers)
	go s.pipeOutput(stderr, &readers)
	eof := make(chan struct{})
	go func() {
		readers.Wait()
		close(eof)
	}()

	poll := time.NewTicker(s.opts.pollInterval)
	defer poll.Stop()

	var keepAlive <-chan time.Time
	if s.opts.keepAlive > 0 {
		ticker := time.NewTicker(s.opts.keepAlive)
		defer ticker.Stop()
		keepAlive = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			s.log.Debug().Msg("shell cancelled")
			return
		case <-eof:
			s.log.Info().Msg("shell channel closed")
			return
		case <-poll.C:
			if !s.alive.Load() {
				return
			}
		case <-s.commands.Notify():
			if err := s.flushCommands(session, stdin); err != nil {
				s.fail(err)
				return
			}
		case <-keepAlive:
			if _, _, err := client.SendRequest("keepalive@openssh.com", true, nil); err != nil {
				s.fail(apperr.New(apperr.ConnectionError, "keepalive failed", err))
				return
			}
		}
	}
}

func (s *ShellSession) flushCommands(session *ssh.Session, stdin io.Writer) error {
	for _, cmd := range s.commands.Drain() {
		if cmd.data != nil {
			if _, err := stdin.Write(cmd.data); err != nil {
				return apperr.New(apperr.ChannelError, "failed to write to shell", err)
			}
			continue
		}
		if err := session.WindowChange(cmd.rows, cmd.cols); err != nil {
			return apperr.New(apperr.ChannelError, "failed to update window size", err)
		}
		s.cols, s.rows = cmd.cols, cmd.rows
	}
	return nil
}

func (s *ShellSession) pipeOutput(r io.Reader, wg *sync.WaitGroup) {
	defer wg.Done()
	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			s.output.Push(chunk)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.log.Debug().Err(err).Msg("shell read ended")
			}
			return
		}
	}
}

func sessionPipes(session *ssh.Session) (io.WriteCloser, io.Reader, io.Reader, error) {
	stdin, err := session.StdinPipe()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("stdin: %w", err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("stdout: %w", err)
	}
	stderr, err := session.StderrPipe()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("stderr: %w", err)
	}
	return stdin, stdout, stderr, nil
}
