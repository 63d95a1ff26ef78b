// internal/ssh/socks5.go

package ssh

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	apperr "sshDeck/internal/error"
)

const (
	socksVersion = 0x05

	socksMethodNoAuth       = 0x00
	socksMethodNoAcceptable = 0xFF

	socksCmdConnect = 0x01

	socksAtypIPv4   = 0x01
	socksAtypDomain = 0x03
	socksAtypIPv6   = 0x04

	socksReplySuccess         = 0x00
	socksReplyRefused         = 0x05
	socksReplyCmdUnsupported  = 0x07
	socksReplyAtypUnsupported = 0x08
)

const socksHandshakeTimeout = 10 * time.Second

// dialFunc otwiera kanał direct-tcpip; *ssh.Client.Dial ma tę sygnaturę
type dialFunc func(network, addr string) (net.Conn, error)

// socks5Handshake obsługuje serwerową stronę SOCKS5 dla klienta używającego
// wyłącznie CONNECT bez uwierzytelnienia. Zwraca otwarty kanał do celu.
func socks5Handshake(conn net.Conn, dial dialFunc) (net.Conn, string, error) {
	_ = conn.SetDeadline(time.Now().Add(socksHandshakeTimeout))
	defer conn.SetDeadline(time.Time{})

	header := make([]byte, 2)
	if _, err := io.ReadFull(conn, header); err != nil {
		return nil, "", apperr.New(apperr.ProtocolError, "failed to read socks5 greeting", err)
	}
	if header[0] != socksVersion {
		return nil, "", apperr.New(apperr.ProtocolError, fmt.Sprintf("unsupported socks version %d", header[0]), nil)
	}
	methods := make([]byte, int(header[1]))
	if _, err := io.ReadFull(conn, methods); err != nil {
		return nil, "", apperr.New(apperr.ProtocolError, "failed to read socks5 methods", err)
	}
	if bytes.IndexByte(methods, socksMethodNoAuth) < 0 {
		_, _ = conn.Write([]byte{socksVersion, socksMethodNoAcceptable})
		return nil, "", apperr.New(apperr.ProtocolError, "socks5 client does not offer no-auth method", nil)
	}
	if _, err := conn.Write([]byte{socksVersion, socksMethodNoAuth}); err != nil {
		return nil, "", apperr.New(apperr.ProtocolError, "failed to write socks5 method", err)
	}

	req := make([]byte, 4)
	if _, err := io.ReadFull(conn, req); err != nil {
		return nil, "", apperr.New(apperr.ProtocolError, "failed to read socks5 request", err)
	}
	if req[0] != socksVersion || req[1] != socksCmdConnect {
		writeSocksReply(conn, socksReplyCmdUnsupported)
		return nil, "", apperr.New(apperr.ProtocolError, fmt.Sprintf("unsupported socks5 command %d", req[1]), nil)
	}

	host, err := readSocksAddr(conn, req[3])
	if err != nil {
		return nil, "", err
	}
	portBuf := make([]byte, 2)
	if _, err := io.ReadFull(conn, portBuf); err != nil {
		return nil, "", apperr.New(apperr.ProtocolError, "failed to read socks5 port", err)
	}
	dest := net.JoinHostPort(host, strconv.Itoa(int(binary.BigEndian.Uint16(portBuf))))

	target, err := dial("tcp", dest)
	if err != nil {
		writeSocksReply(conn, socksReplyRefused)
		return nil, dest, apperr.New(apperr.ChannelError, fmt.Sprintf("failed to open channel to %s", dest), err)
	}
	if err := writeSocksReply(conn, socksReplySuccess); err != nil {
		target.Close()
		return nil, dest, apperr.New(apperr.ProtocolError, "failed to write socks5 reply", err)
	}
	return target, dest, nil
}

func readSocksAddr(conn net.Conn, atyp byte) (string, error) {
	switch atyp {
	case socksAtypIPv4:
		ip := make([]byte, 4)
		if _, err := io.ReadFull(conn, ip); err != nil {
			return "", apperr.New(apperr.ProtocolError, "failed to read socks5 IPv4 address", err)
		}
		return net.IP(ip).String(), nil
	case socksAtypDomain:
		n := make([]byte, 1)
		if _, err := io.ReadFull(conn, n); err != nil {
			return "", apperr.New(apperr.ProtocolError, "failed to read socks5 domain length", err)
		}
		name := make([]byte, int(n[0]))
		if _, err := io.ReadFull(conn, name); err != nil {
			return "", apperr.New(apperr.ProtocolError, "failed to read socks5 domain", err)
		}
		return string(name), nil
	case socksAtypIPv6:
		ip := make([]byte, 16)
		if _, err := io.ReadFull(conn, ip); err != nil {
			return "", apperr.New(apperr.ProtocolError, "failed to read socks5 IPv6 address", err)
		}
		return formatIPv6Groups(ip), nil
	}
	writeSocksReply(conn, socksReplyAtypUnsupported)
	return "", apperr.New(apperr.ProtocolError, fmt.Sprintf("unsupported socks5 address type %d", atyp), nil)
}

// formatIPv6Groups zapisuje adres jako osiem grup szesnastkowych bez skracania
func formatIPv6Groups(ip []byte) string {
	groups := make([]string, 8)
	for i := range groups {
		groups[i] = fmt.Sprintf("%x", binary.BigEndian.Uint16(ip[i*2:]))
	}
	return strings.Join(groups, ":")
}

// writeSocksReply wysyła odpowiedź z adresem powiązanym 0.0.0.0:0
func writeSocksReply(conn net.Conn, code byte) error {
	_, err := conn.Write([]byte{socksVersion, code, 0x00, socksAtypIPv4, 0, 0, 0, 0, 0, 0})
	return err
}
