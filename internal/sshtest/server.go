// Package sshtest uruchamia w procesie serwer SSH do testów: powłoka z echem,
// podsystem sftp w pamięci, kanały direct-tcpip i zdalne przekierowania.
package sshtest

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"sshDeck/internal/models"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

const (
	User     = "tester"
	Password = "secret"
	// Banner jest wysyłany na stdout po starcie powłoki
	Banner = "ready\r\n"
	// StderrBanner jest wysyłany na strumień błędów po starcie powłoki
	StderrBanner = "warn\r\n"
)

// WindowSize to rozmiar zgłoszony przez pty-req albo window-change
type WindowSize struct {
	Cols, Rows int
}

type Server struct {
	Addr string

	listener net.Listener
	config   *ssh.ServerConfig
	sftpFS   sftp.Handlers

	mu        sync.Mutex
	conns     []net.Conn
	term      string
	windows   []WindowSize
	forwards  map[string]net.Listener
	keepalive int
	wg        sync.WaitGroup
}

// Start uruchamia serwer na 127.0.0.1:0; authorizedKey może być nil
func Start(t testing.TB, authorizedKey ssh.PublicKey) *Server {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate host key: %v", err)
	}
	hostSigner, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatalf("host signer: %v", err)
	}

	config := &ssh.ServerConfig{
		PasswordCallback: func(conn ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
			if conn.User() == User && string(password) == Password {
				return &ssh.Permissions{}, nil
			}
			return nil, fmt.Errorf("password rejected for %q", conn.User())
		},
		PublicKeyCallback: func(conn ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if authorizedKey != nil && ssh.FingerprintSHA256(key) == ssh.FingerprintSHA256(authorizedKey) {
				return &ssh.Permissions{}, nil
			}
			return nil, fmt.Errorf("unknown public key")
		},
	}
	config.AddHostKey(hostSigner)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	s := &Server{
		Addr:     listener.Addr().String(),
		listener: listener,
		config:   config,
		sftpFS:   sftp.InMemHandler(),
		forwards: make(map[string]net.Listener),
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			netConn, err := listener.Accept()
			if err != nil {
				return
			}
			s.mu.Lock()
			s.conns = append(s.conns, netConn)
			s.mu.Unlock()
			go s.handleConn(netConn)
		}
	}()

	t.Cleanup(s.Close)
	return s
}

// Host zwraca opis połączenia z poprawnym hasłem
func (s *Server) Host() models.Host {
	host, portStr, _ := net.SplitHostPort(s.Addr)
	port, _ := strconv.Atoi(portStr)
	h := models.NewHost(User, host, port)
	h.Password = Password
	return h
}

// Close zamyka listener, wszystkie połączenia i przekierowania
func (s *Server) Close() {
	s.listener.Close()
	s.mu.Lock()
	for _, c := range s.conns {
		c.Close()
	}
	for key, ln := range s.forwards {
		ln.Close()
		delete(s.forwards, key)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// TermType zwraca typ terminala z ostatniego pty-req
func (s *Server) TermType() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.term
}

// WindowSizes zwraca wszystkie zgłoszone rozmiary, od pty-req
func (s *Server) WindowSizes() []WindowSize {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]WindowSize(nil), s.windows...)
}

// ActiveForwards zwraca liczbę aktywnych zdalnych przekierowań
func (s *Server) ActiveForwards() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.forwards)
}

// KeepAlives zwraca liczbę odebranych żądań keepalive
func (s *Server) KeepAlives() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keepalive
}

func (s *Server) handleConn(netConn net.Conn) {
	sshConn, chans, reqs, err := ssh.NewServerConn(netConn, s.config)
	if err != nil {
		netConn.Close()
		return
	}
	defer sshConn.Close()

	go s.handleGlobalRequests(sshConn, reqs)

	for newChan := range chans {
		switch newChan.ChannelType() {
		case "session":
			ch, requests, err := newChan.Accept()
			if err != nil {
				continue
			}
			go s.handleSession(ch, requests)
		case "direct-tcpip":
			var msg directTCPIPMsg
			if err := ssh.Unmarshal(newChan.ExtraData(), &msg); err != nil {
				newChan.Reject(ssh.ConnectionFailed, "bad payload")
				continue
			}
			target, err := net.Dial("tcp", net.JoinHostPort(msg.DestAddr, strconv.Itoa(int(msg.DestPort))))
			if err != nil {
				newChan.Reject(ssh.ConnectionFailed, err.Error())
				continue
			}
			ch, requests, err := newChan.Accept()
			if err != nil {
				target.Close()
				continue
			}
			go ssh.DiscardRequests(requests)
			go pipe(ch, target)
		default:
			newChan.Reject(ssh.UnknownChannelType, "unknown channel type")
		}
	}
}

type ptyRequestMsg struct {
	Term     string
	Columns  uint32
	Rows     uint32
	Width    uint32
	Height   uint32
	Modelist string
}

type windowChangeMsg struct {
	Columns uint32
	Rows    uint32
	Width   uint32
	Height  uint32
}

type subsystemMsg struct {
	Name string
}

type directTCPIPMsg struct {
	DestAddr   string
	DestPort   uint32
	OriginAddr string
	OriginPort uint32
}

type tcpipForwardMsg struct {
	BindAddr string
	BindPort uint32
}

type tcpipForwardReplyMsg struct {
	BoundPort uint32
}

type forwardedTCPPayload struct {
	DestAddr   string
	DestPort   uint32
	OriginAddr string
	OriginPort uint32
}

func (s *Server) handleSession(ch ssh.Channel, requests <-chan *ssh.Request) {
	defer ch.Close()
	for req := range requests {
		switch req.Type {
		case "pty-req":
			var msg ptyRequestMsg
			ok := ssh.Unmarshal(req.Payload, &msg) == nil
			if ok {
				s.mu.Lock()
				s.term = msg.Term
				s.windows = append(s.windows, WindowSize{Cols: int(msg.Columns), Rows: int(msg.Rows)})
				s.mu.Unlock()
			}
			reply(req, ok)
		case "window-change":
			var msg windowChangeMsg
			if ssh.Unmarshal(req.Payload, &msg) == nil {
				s.mu.Lock()
				s.windows = append(s.windows, WindowSize{Cols: int(msg.Columns), Rows: int(msg.Rows)})
				s.mu.Unlock()
			}
			reply(req, true)
		case "shell":
			reply(req, true)
			go echoShell(ch)
		case "subsystem":
			var msg subsystemMsg
			if ssh.Unmarshal(req.Payload, &msg) != nil || msg.Name != "sftp" {
				reply(req, false)
				continue
			}
			reply(req, true)
			go func() {
				server := sftp.NewRequestServer(ch, s.sftpFS)
				_ = server.Serve()
				server.Close()
			}()
		default:
			reply(req, false)
		}
	}
}

// echoShell odsyła wejście; Ctrl+D kończy powłokę ze statusem 0
func echoShell(ch ssh.Channel) {
	_, _ = io.WriteString(ch, Banner)
	_, _ = io.WriteString(ch.Stderr(), StderrBanner)
	buf := make([]byte, 4096)
	for {
		n, err := ch.Read(buf)
		for i := 0; i < n; i++ {
			if buf[i] == 0x04 {
				_, _ = ch.Write(buf[:i])
				_, _ = ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{0}))
				ch.Close()
				return
			}
		}
		if n > 0 {
			if _, werr := ch.Write(buf[:n]); werr != nil {
				return
			}
		}
		if err != nil {
			return
		}
	}
}

func (s *Server) handleGlobalRequests(sshConn *ssh.ServerConn, reqs <-chan *ssh.Request) {
	for req := range reqs {
		switch req.Type {
		case "tcpip-forward":
			s.handleTCPIPForward(sshConn, req)
		case "cancel-tcpip-forward":
			var msg tcpipForwardMsg
			if ssh.Unmarshal(req.Payload, &msg) != nil {
				reply(req, false)
				continue
			}
			key := net.JoinHostPort(msg.BindAddr, strconv.Itoa(int(msg.BindPort)))
			s.mu.Lock()
			ln, ok := s.forwards[key]
			delete(s.forwards, key)
			s.mu.Unlock()
			if ok {
				ln.Close()
			}
			reply(req, ok)
		case "keepalive@openssh.com":
			s.mu.Lock()
			s.keepalive++
			s.mu.Unlock()
			reply(req, true)
		default:
			reply(req, false)
		}
	}
}

func (s *Server) handleTCPIPForward(sshConn *ssh.ServerConn, req *ssh.Request) {
	var msg tcpipForwardMsg
	if err := ssh.Unmarshal(req.Payload, &msg); err != nil {
		reply(req, false)
		return
	}
	listener, err := net.Listen("tcp", net.JoinHostPort(msg.BindAddr, strconv.Itoa(int(msg.BindPort))))
	if err != nil {
		reply(req, false)
		return
	}
	boundPort := uint32(listener.Addr().(*net.TCPAddr).Port)
	key := net.JoinHostPort(msg.BindAddr, strconv.Itoa(int(boundPort)))
	s.mu.Lock()
	s.forwards[key] = listener
	s.mu.Unlock()
	if req.WantReply {
		_ = req.Reply(true, ssh.Marshal(&tcpipForwardReplyMsg{BoundPort: boundPort}))
	}

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			origin := conn.RemoteAddr().(*net.TCPAddr)
			payload := ssh.Marshal(&forwardedTCPPayload{
				DestAddr:   msg.BindAddr,
				DestPort:   boundPort,
				OriginAddr: origin.IP.String(),
				OriginPort: uint32(origin.Port),
			})
			ch, requests, err := sshConn.OpenChannel("forwarded-tcpip", payload)
			if err != nil {
				conn.Close()
				continue
			}
			go ssh.DiscardRequests(requests)
			go pipe(ch, conn)
		}
	}()
}

func pipe(ch ssh.Channel, conn net.Conn) {
	defer ch.Close()
	defer conn.Close()
	done := make(chan struct{}, 2)
	go func() {
		_, _ = io.Copy(ch, conn)
		done <- struct{}{}
	}()
	go func() {
		_, _ = io.Copy(conn, ch)
		done <- struct{}{}
	}()
	<-done
}

func reply(req *ssh.Request, ok bool) {
	if req.WantReply {
		_ = req.Reply(ok, nil)
	}
}

// WriteKey zapisuje nowy klucz ed25519 w formacie OpenSSH; pusta fraza
// oznacza klucz bez szyfrowania
func WriteKey(t testing.TB, dir, passphrase string) (string, ssh.PublicKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	var block *pem.Block
	if passphrase == "" {
		block, err = ssh.MarshalPrivateKey(priv, "sshtest")
	} else {
		block, err = ssh.MarshalPrivateKeyWithPassphrase(priv, "sshtest", []byte(passphrase))
	}
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	path := filepath.Join(dir, "id_ed25519")
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0600); err != nil {
		t.Fatalf("write key: %v", err)
	}
	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		t.Fatalf("public key: %v", err)
	}
	return path, sshPub
}
