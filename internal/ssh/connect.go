// internal/ssh/connect.go

package ssh

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	apperr "sshDeck/internal/error"
	"sshDeck/internal/models"
	"sshDeck/internal/utils"

	"golang.org/x/crypto/ssh"
	"golang.org/x/net/proxy"
)

// dialTransport otwiera połączenie TCP do serwera, bezpośrednio albo przez
// nadrzędny serwer SOCKS5 (komenda CONNECT bez uwierzytelnienia)
func dialTransport(ctx context.Context, host *models.Host) (net.Conn, error) {
	direct := &net.Dialer{}
	if host.Proxy == nil {
		conn, err := direct.DialContext(ctx, "tcp", host.Addr())
		if err != nil {
			return nil, apperr.New(apperr.ConnectionError, fmt.Sprintf("failed to dial %s", host.Addr()), err)
		}
		return conn, nil
	}

	dialer, err := proxy.SOCKS5("tcp", host.Proxy.Addr(), nil, direct)
	if err != nil {
		return nil, apperr.New(apperr.ConnectionError, "failed to configure socks5 proxy", err)
	}
	cd, ok := dialer.(proxy.ContextDialer)
	if !ok {
		return nil, apperr.New(apperr.ConnectionError, "socks5 dialer does not support context", nil)
	}
	conn, err := cd.DialContext(ctx, "tcp", host.Addr())
	if err != nil {
		return nil, apperr.New(apperr.ConnectionError,
			fmt.Sprintf("failed to connect to %s via proxy %s", host.Addr(), host.Proxy.Addr()), err)
	}
	return conn, nil
}

// authMethod wybiera dokładnie jedną metodę uwierzytelnienia
func authMethod(host *models.Host) (ssh.AuthMethod, error) {
	switch host.Auth {
	case models.AuthPassword:
		return ssh.Password(host.Password), nil
	case models.AuthKey:
		path := utils.ExpandTilde(host.KeyPath)
		key, err := os.ReadFile(path)
		if err != nil {
			return nil, apperr.New(apperr.AuthError, fmt.Sprintf("failed to read SSH key %s", path), err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			var missing *ssh.PassphraseMissingError
			if errors.As(err, &missing) {
				return nil, apperr.New(apperr.AuthError, fmt.Sprintf("SSH key %s is passphrase-protected", path), err)
			}
			return nil, apperr.New(apperr.AuthError, fmt.Sprintf("failed to parse SSH key %s", path), err)
		}
		return ssh.PublicKeys(signer), nil
	case models.AuthAgent:
		return nil, apperr.New(apperr.AuthError, "ssh-agent authentication is not supported", nil)
	}
	return nil, apperr.New(apperr.AuthError, fmt.Sprintf("unknown auth type %q", host.Auth), nil)
}

// handshake nakłada warstwę SSH na gotowe połączenie
func handshake(ctx context.Context, conn net.Conn, host *models.Host, cfg *ssh.ClientConfig) (*ssh.Client, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	// Zamknięcie połączenia przerywa handshake po anulowaniu kontekstu
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	c, chans, reqs, err := ssh.NewClientConn(conn, host.Addr(), cfg)
	stopped := stop()
	if err != nil {
		conn.Close()
		if isAuthFailure(err) {
			return nil, apperr.New(apperr.AuthError, fmt.Sprintf("authentication failed for %s", host.Login), err)
		}
		return nil, apperr.New(apperr.ConnectionError, "ssh handshake failed", err)
	}
	if !stopped {
		c.Close()
		return nil, apperr.New(apperr.ConnectionError, "ssh handshake cancelled", ctx.Err())
	}
	_ = conn.SetDeadline(time.Time{})
	return ssh.NewClient(c, chans, reqs), nil
}

// x/crypto nie eksportuje typu błędu uwierzytelnienia po stronie klienta
func isAuthFailure(err error) bool {
	return err != nil && strings.Contains(err.Error(), "unable to authenticate")
}
