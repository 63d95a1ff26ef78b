// internal/models/host.go

package models

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	apperr "sshDeck/internal/error"

	"github.com/google/uuid"
)

// AuthType określa sposób uwierzytelnienia
type AuthType string

const (
	AuthPassword AuthType = "password"
	AuthKey      AuthType = "key"
	AuthAgent    AuthType = "agent"
)

const DefaultSSHPort = 22

// Proxy to nadrzędny serwer SOCKS5
type Proxy struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// Addr zwraca adres proxy w formacie host:port
func (p Proxy) Addr() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

// Host opisuje połączenie SSH. Hasło nigdy nie trafia do pliku konfiguracyjnego.
type Host struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Login        string   `json:"login"`
	Address      string   `json:"address"`
	Port         int      `json:"port"`
	Auth         AuthType `json:"auth"`
	Password     string   `json:"-"`
	KeyPath      string   `json:"key_path,omitempty"`
	Proxy        *Proxy   `json:"proxy,omitempty"`
	TerminalType string   `json:"terminal_type,omitempty"`
	KeepAlive    bool     `json:"keep_alive"`
}

type Config struct {
	Hosts []Host `json:"hosts"`
}

// NewHost tworzy opis połączenia z nowym identyfikatorem
func NewHost(login, address string, port int) Host {
	if port == 0 {
		port = DefaultSSHPort
	}
	return Host{
		ID:      uuid.NewString(),
		Login:   login,
		Address: address,
		Port:    port,
		Auth:    AuthPassword,
	}
}

// Addr zwraca adres serwera w formacie host:port
func (h Host) Addr() string {
	port := h.Port
	if port == 0 {
		port = DefaultSSHPort
	}
	return net.JoinHostPort(h.Address, strconv.Itoa(port))
}

// Label zwraca krótki opis do wyświetlenia
func (h Host) Label() string {
	if h.Name != "" {
		return h.Name
	}
	return fmt.Sprintf("%s@%s", h.Login, h.Addr())
}

// Validate sprawdza kompletność opisu połączenia
func (h Host) Validate() error {
	if h.Address == "" {
		return apperr.New(apperr.ValidationError, "host address cannot be empty", nil)
	}
	if h.Login == "" {
		return apperr.New(apperr.ValidationError, "login cannot be empty", nil)
	}
	if h.Port < 0 || h.Port > 65535 {
		return apperr.New(apperr.ValidationError, fmt.Sprintf("invalid port %d", h.Port), nil)
	}
	switch h.Auth {
	case AuthPassword, AuthAgent:
	case AuthKey:
		if h.KeyPath == "" {
			return apperr.New(apperr.ValidationError, "key authentication requires a key path", nil)
		}
	default:
		return apperr.New(apperr.ValidationError, fmt.Sprintf("unknown auth type %q", h.Auth), nil)
	}
	if h.Proxy != nil && (h.Proxy.Host == "" || h.Proxy.Port <= 0 || h.Proxy.Port > 65535) {
		return apperr.New(apperr.ValidationError, "invalid proxy address", nil)
	}
	return nil
}

// ParseTarget rozkłada zapis [user@]host[:port]
func ParseTarget(target string) (login, address string, port int, err error) {
	if target == "" {
		return "", "", 0, apperr.New(apperr.ValidationError, "empty target", nil)
	}
	if i := strings.LastIndex(target, "@"); i >= 0 {
		login, target = target[:i], target[i+1:]
	}

	address = target
	if h, p, splitErr := net.SplitHostPort(target); splitErr == nil {
		port, err = parsePort(p)
		if err != nil {
			return "", "", 0, err
		}
		address = h
	} else {
		address = strings.Trim(target, "[]")
	}
	if address == "" {
		return "", "", 0, apperr.New(apperr.ValidationError, "empty host in target", nil)
	}
	return login, address, port, nil
}

// ParseHostPort rozkłada adres host:port (np. proxy)
func ParseHostPort(s string) (string, int, error) {
	h, p, err := net.SplitHostPort(s)
	if err != nil {
		return "", 0, apperr.New(apperr.ValidationError, fmt.Sprintf("invalid address %q", s), err)
	}
	port, err := parsePort(p)
	if err != nil {
		return "", 0, err
	}
	return h, port, nil
}

func parsePort(s string) (int, error) {
	port, err := strconv.Atoi(s)
	if err != nil || port < 0 || port > 65535 {
		return 0, apperr.New(apperr.ValidationError, fmt.Sprintf("invalid port %q", s), err)
	}
	return port, nil
}
