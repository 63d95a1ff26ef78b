// internal/ssh/state.go

package ssh

import (
	"sync"
	"time"

	"sshDeck/internal/config"

	"github.com/rs/zerolog"
)

// SessionState reprezentuje stan sesji SSH
type SessionState int32

const (
	StateConnecting SessionState = iota
	StateConnected
	StateDisconnected
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	}
	return "disconnected"
}

// errorSlot przechowuje tylko ostatni nieodebrany błąd
type errorSlot struct {
	mu  sync.Mutex
	err error
}

func (s *errorSlot) Set(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// Take zwraca błąd i czyści slot
func (s *errorSlot) Take() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.err
	s.err = nil
	return err
}

// options to wspólne ustawienia komponentów pakietu
type options struct {
	logger         zerolog.Logger
	connectTimeout time.Duration
	keepAlive      time.Duration
	pollInterval   time.Duration
	acceptTimeout  time.Duration
	chunkSize      int
	termType       string
	startDir       string
}

type Option func(*options)

func newOptions(opts []Option) options {
	o := options{
		logger:         zerolog.Nop(),
		connectTimeout: 10 * time.Second,
		pollInterval:   5 * time.Millisecond,
		acceptTimeout:  500 * time.Millisecond,
		chunkSize:      256 * 1024,
		termType:       "xterm-256color",
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithSettings przenosi wartości z konfiguracji aplikacji
func WithSettings(s *config.Settings) Option {
	return func(o *options) {
		if s == nil {
			return
		}
		if s.SSH.ConnectTimeout > 0 {
			o.connectTimeout = s.SSH.ConnectTimeout
		}
		o.keepAlive = s.SSH.KeepAlive
		if s.SSH.PollInterval > 0 {
			o.pollInterval = s.SSH.PollInterval
		}
		if s.Forward.AcceptTimeout > 0 {
			o.acceptTimeout = s.Forward.AcceptTimeout
		}
		if s.SFTP.ChunkSize > 0 {
			o.chunkSize = s.SFTP.ChunkSize
		}
		if s.Term.Type != "" {
			o.termType = s.Term.Type
		}
		o.startDir = s.SFTP.StartDir
	}
}

func WithConnectTimeout(d time.Duration) Option {
	return func(o *options) { o.connectTimeout = d }
}

func WithKeepAlive(d time.Duration) Option {
	return func(o *options) { o.keepAlive = d }
}

// Wartości niedodatnie w WithPollInterval, WithAcceptTimeout i WithChunkSize
// zostawiają domyślne.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

func WithAcceptTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.acceptTimeout = d
		}
	}
}

func WithChunkSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.chunkSize = n
		}
	}
}

func WithTermType(t string) Option {
	return func(o *options) { o.termType = t }
}

func WithStartDir(dir string) Option {
	return func(o *options) { o.startDir = dir }
}
