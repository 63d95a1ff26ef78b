// internal/ssh/forward.go

package ssh

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	apperr "sshDeck/internal/error"
	"sshDeck/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
)

// RuleState to stan pojedynczej reguły przekierowania
type RuleState int32

const (
	RuleStarting RuleState = iota
	RuleRunning
	RuleStopped
)

func (s RuleState) String() string {
	switch s {
	case RuleStarting:
		return "starting"
	case RuleRunning:
		return "running"
	}
	return "stopped"
}

// RuleStatus to migawka reguły do wyświetlenia
type RuleStatus struct {
	Index       int
	Rule        models.ForwardRule
	State       RuleState
	Alive       bool
	Connections uint64
	// Bound to faktyczny adres nasłuchu (istotny gdy port wiązania to 0)
	Bound string
}

// ProxyEndpoint to adres działającego lokalnego serwera SOCKS5
type ProxyEndpoint struct {
	Host string
	Port int
}

type forwardRule struct {
	index int
	rule  models.ForwardRule
	log   zerolog.Logger

	alive       atomic.Bool
	state       atomic.Int32
	connections atomic.Uint64
	errs        errorSlot

	mu    sync.Mutex
	bound string

	cancel context.CancelFunc
	done   chan struct{}
}

func (r *forwardRule) setBound(addr string) {
	r.mu.Lock()
	r.bound = addr
	r.mu.Unlock()
}

func (r *forwardRule) boundAddr() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bound
}

func (r *forwardRule) fail(err error) {
	r.log.Warn().Err(err).Msg("forward rule failed")
	r.errs.Set(err)
}

func (r *forwardRule) stop() {
	r.alive.Store(false)
	r.cancel()
}

// ForwardEngine prowadzi niezależne reguły przekierowania. Każda reguła
// ma własne połączenie SSH i własną pętlę w tle.
type ForwardEngine struct {
	connector *Connector
	host      models.Host
	opts      options
	log       zerolog.Logger

	mu    sync.Mutex
	rules []*forwardRule
}

func NewForwardEngine(connector *Connector, host models.Host, opts ...Option) *ForwardEngine {
	o := newOptions(opts)
	return &ForwardEngine{
		connector: connector,
		host:      host,
		opts:      o,
		log:       o.logger.With().Str("component", "forward").Str("host", host.Address).Logger(),
	}
}

// Add uruchamia regułę w tle i zwraca jej indeks
func (e *ForwardEngine) Add(ctx context.Context, rule models.ForwardRule) (int, error) {
	if err := rule.Validate(); err != nil {
		return -1, err
	}

	ruleCtx, cancel := context.WithCancel(ctx)

	e.mu.Lock()
	r := &forwardRule{
		index:  len(e.rules),
		rule:   rule,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	r.log = e.log.With().Int("rule", r.index).Str("type", rule.Type.String()).Str("bind", rule.BindAddr()).Logger()
	r.alive.Store(true)
	r.state.Store(int32(RuleStarting))
	e.rules = append(e.rules, r)
	e.mu.Unlock()

	r.log.Info().Msg("starting forward")

	go e.run(ruleCtx, r)
	return r.index, nil
}

// Stop zatrzymuje regułę; pętla zauważa to w ciągu jednego limitu akceptacji
func (e *ForwardEngine) Stop(index int) error {
	r, err := e.rule(index)
	if err != nil {
		return err
	}
	r.stop()
	return nil
}

// Wait czeka na zakończenie pętli reguły
func (e *ForwardEngine) Wait(ctx context.Context, index int) error {
	r, err := e.rule(index)
	if err != nil {
		return err
	}
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TakeError zwraca i czyści ostatni błąd reguły
func (e *ForwardEngine) TakeError(index int) error {
	r, err := e.rule(index)
	if err != nil {
		return nil
	}
	return r.errs.Take()
}

func (e *ForwardEngine) Rules() []RuleStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]RuleStatus, 0, len(e.rules))
	for _, r := range e.rules {
		out = append(out, RuleStatus{
			Index:       r.index,
			Rule:        r.rule,
			State:       RuleState(r.state.Load()),
			Alive:       r.alive.Load(),
			Connections: r.connections.Load(),
			Bound:       r.boundAddr(),
		})
	}
	return out
}

// ActiveSocks5Proxies zwraca adresy działających reguł Dynamic
func (e *ForwardEngine) ActiveSocks5Proxies() []ProxyEndpoint {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []ProxyEndpoint
	for _, r := range e.rules {
		if r.rule.Type != models.ForwardDynamic || !r.alive.Load() || RuleState(r.state.Load()) != RuleRunning {
			continue
		}
		ep := ProxyEndpoint{Host: r.rule.BindHost, Port: r.rule.BindPort}
		if _, port, err := net.SplitHostPort(r.boundAddr()); err == nil {
			ep.Port, _ = strconv.Atoi(port)
		}
		out = append(out, ep)
	}
	return out
}

// Close zatrzymuje wszystkie reguły
func (e *ForwardEngine) Close() {
	e.mu.Lock()
	rules := append([]*forwardRule(nil), e.rules...)
	e.mu.Unlock()
	for _, r := range rules {
		r.stop()
	}
}

func (e *ForwardEngine) rule(index int) (*forwardRule, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if index < 0 || index >= len(e.rules) {
		return nil, apperr.New(apperr.ValidationError, fmt.Sprintf("no forward rule with index %d", index), nil)
	}
	return e.rules[index], nil
}

func (e *ForwardEngine) run(ctx context.Context, r *forwardRule) {
	defer close(r.done)
	defer r.state.Store(int32(RuleStopped))
	defer r.alive.Store(false)
	defer r.cancel()

	client, err := e.connector.Connect(ctx, &e.host)
	if err != nil {
		r.fail(err)
		return
	}
	defer client.Close()

	switch r.rule.Type {
	case models.ForwardLocal:
		err = e.runLocal(ctx, r, client)
	case models.ForwardRemote:
		err = e.runRemote(ctx, r, client)
	case models.ForwardDynamic:
		err = e.runDynamic(ctx, r, client)
	default:
		err = apperr.New(apperr.ValidationError, fmt.Sprintf("unknown forward type %v", r.rule.Type), nil)
	}
	if err != nil {
		r.fail(err)
	}
	r.log.Info().Uint64("connections", r.connections.Load()).Msg("forward stopped")
}

// acceptLoop akceptuje połączenia z limitem czasu, żeby regularnie
// sprawdzać flagę aktywności
func (e *ForwardEngine) acceptLoop(ctx context.Context, r *forwardRule, ln *net.TCPListener, handle func(net.Conn)) error {
	defer ln.Close()
	for r.alive.Load() && ctx.Err() == nil {
		_ = ln.SetDeadline(time.Now().Add(e.opts.acceptTimeout))
		conn, err := ln.Accept()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return apperr.New(apperr.ConnectionError, "accept failed", err)
		}
		n := r.connections.Add(1)
		r.log.Debug().Uint64("connections", n).Str("peer", conn.RemoteAddr().String()).Msg("accepted connection")
		go handle(conn)
	}
	return nil
}

func (e *ForwardEngine) listen(r *forwardRule) (*net.TCPListener, error) {
	ln, err := net.Listen("tcp", r.rule.BindAddr())
	if err != nil {
		return nil, apperr.New(apperr.ConnectionError, fmt.Sprintf("failed to listen on %s", r.rule.BindAddr()), err)
	}
	r.setBound(ln.Addr().String())
	r.state.Store(int32(RuleRunning))
	r.log.Info().Str("bound", ln.Addr().String()).Msg("forward running")
	return ln.(*net.TCPListener), nil
}

func (e *ForwardEngine) runLocal(ctx context.Context, r *forwardRule, client *ssh.Client) error {
	ln, err := e.listen(r)
	if err != nil {
		return err
	}
	dest := r.rule.DestAddr()
	return e.acceptLoop(ctx, r, ln, func(conn net.Conn) {
		ch, err := client.Dial("tcp", dest)
		if err != nil {
			r.log.Warn().Err(err).Str("dest", dest).Msg("failed to open direct channel")
			conn.Close()
			return
		}
		relay(ctx, conn, ch)
	})
}

func (e *ForwardEngine) runDynamic(ctx context.Context, r *forwardRule, client *ssh.Client) error {
	ln, err := e.listen(r)
	if err != nil {
		return err
	}
	return e.acceptLoop(ctx, r, ln, func(conn net.Conn) {
		target, dest, err := socks5Handshake(conn, client.Dial)
		if err != nil {
			r.log.Debug().Err(err).Str("dest", dest).Msg("socks5 handshake failed")
			conn.Close()
			return
		}
		relay(ctx, conn, target)
	})
}

// runRemote prosi serwer o nasłuch. Listener z x/crypto nie ma limitu
// czasu akceptacji, więc kanały odbiera osobna gorutyna.
func (e *ForwardEngine) runRemote(ctx context.Context, r *forwardRule, client *ssh.Client) error {
	ln, err := client.Listen("tcp", r.rule.BindAddr())
	if err != nil {
		return apperr.New(apperr.ChannelError, fmt.Sprintf("remote forwarding request for %s rejected", r.rule.BindAddr()), err)
	}
	defer func() {
		// Anulowanie przekierowania po stronie serwera jest najlepszym wysiłkiem
		if err := ln.Close(); err != nil {
			r.log.Debug().Err(err).Msg("failed to cancel remote forward")
		}
	}()

	r.setBound(ln.Addr().String())
	r.state.Store(int32(RuleRunning))
	r.log.Info().Str("bound", ln.Addr().String()).Msg("forward running")

	conns := make(chan net.Conn)
	acceptErr := make(chan error, 1)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				acceptErr <- err
				return
			}
			select {
			case conns <- conn:
			case <-ctx.Done():
				conn.Close()
				return
			}
		}
	}()

	dest := r.rule.DestAddr()
	ticker := time.NewTicker(e.opts.acceptTimeout)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if !r.alive.Load() {
				return nil
			}
		case err := <-acceptErr:
			if !r.alive.Load() {
				return nil
			}
			return apperr.New(apperr.ChannelError, "remote forward closed", err)
		case conn := <-conns:
			n := r.connections.Add(1)
			r.log.Debug().Uint64("connections", n).Msg("accepted forwarded channel")
			go func() {
				local, err := net.DialTimeout("tcp", dest, e.opts.connectTimeout)
				if err != nil {
					r.log.Warn().Err(err).Str("dest", dest).Msg("failed to connect to local destination")
					conn.Close()
					return
				}
				relay(ctx, conn, local)
			}()
		}
	}
}
