// internal/models/forward.go

package models

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	apperr "sshDeck/internal/error"
)

// ForwardType to rodzaj przekierowania portów
type ForwardType int

const (
	ForwardLocal ForwardType = iota
	ForwardRemote
	ForwardDynamic
)

func (t ForwardType) String() string {
	switch t {
	case ForwardLocal:
		return "local"
	case ForwardRemote:
		return "remote"
	case ForwardDynamic:
		return "dynamic"
	}
	return fmt.Sprintf("ForwardType(%d)", int(t))
}

// Flag zwraca odpowiadającą opcję klienta OpenSSH
func (t ForwardType) Flag() string {
	switch t {
	case ForwardRemote:
		return "-R"
	case ForwardDynamic:
		return "-D"
	}
	return "-L"
}

// ForwardRule opisuje jedną regułę przekierowania.
// Dla Remote BindHost/BindPort to adres nasłuchu po stronie serwera,
// a DestHost/DestPort to cel po stronie lokalnej. Dynamic nie używa celu.
type ForwardRule struct {
	Type     ForwardType `json:"type"`
	BindHost string      `json:"bind_host"`
	BindPort int         `json:"bind_port"`
	DestHost string      `json:"dest_host,omitempty"`
	DestPort int         `json:"dest_port,omitempty"`
}

// BindAddr zwraca adres nasłuchu
func (r ForwardRule) BindAddr() string {
	return net.JoinHostPort(r.BindHost, strconv.Itoa(r.BindPort))
}

// DestAddr zwraca adres docelowy
func (r ForwardRule) DestAddr() string {
	return net.JoinHostPort(r.DestHost, strconv.Itoa(r.DestPort))
}

func (r ForwardRule) String() string {
	switch r.Type {
	case ForwardDynamic:
		return fmt.Sprintf("%s socks5 %s", r.Type.Flag(), r.BindAddr())
	case ForwardRemote:
		return fmt.Sprintf("%s remote %s -> %s", r.Type.Flag(), r.BindAddr(), r.DestAddr())
	}
	return fmt.Sprintf("%s %s -> %s", r.Type.Flag(), r.BindAddr(), r.DestAddr())
}

// Validate sprawdza poprawność reguły
func (r ForwardRule) Validate() error {
	if r.BindPort < 0 || r.BindPort > 65535 {
		return apperr.New(apperr.ValidationError, fmt.Sprintf("invalid bind port %d", r.BindPort), nil)
	}
	if r.Type == ForwardDynamic {
		return nil
	}
	if r.DestHost == "" {
		return apperr.New(apperr.ValidationError, "destination host cannot be empty", nil)
	}
	if r.DestPort <= 0 || r.DestPort > 65535 {
		return apperr.New(apperr.ValidationError, fmt.Sprintf("invalid destination port %d", r.DestPort), nil)
	}
	return nil
}

// ParseForwardRule rozkłada regułę w składni OpenSSH:
// [bind_host:]port:host:hostport dla -L/-R oraz [bind_host:]port dla -D.
func ParseForwardRule(t ForwardType, spec string) (ForwardRule, error) {
	parts, err := splitForwardSpec(spec)
	if err != nil {
		return ForwardRule{}, err
	}

	rule := ForwardRule{Type: t, BindHost: defaultBindHost(t)}
	var bindPort, destPort string

	switch {
	case t == ForwardDynamic && len(parts) == 1:
		bindPort = parts[0]
	case t == ForwardDynamic && len(parts) == 2:
		rule.BindHost, bindPort = parts[0], parts[1]
	case t != ForwardDynamic && len(parts) == 3:
		bindPort, rule.DestHost, destPort = parts[0], parts[1], parts[2]
	case t != ForwardDynamic && len(parts) == 4:
		rule.BindHost, bindPort, rule.DestHost, destPort = parts[0], parts[1], parts[2], parts[3]
	default:
		return ForwardRule{}, apperr.New(apperr.ValidationError, fmt.Sprintf("invalid %s forward spec %q", t, spec), nil)
	}

	if rule.BindHost == "" || rule.BindHost == "*" {
		rule.BindHost = "0.0.0.0"
	}
	if rule.BindPort, err = parsePort(bindPort); err != nil {
		return ForwardRule{}, err
	}
	if destPort != "" {
		if rule.DestPort, err = parsePort(destPort); err != nil {
			return ForwardRule{}, err
		}
	}
	return rule, rule.Validate()
}

func defaultBindHost(t ForwardType) string {
	if t == ForwardRemote {
		return "localhost"
	}
	return "127.0.0.1"
}

// splitForwardSpec dzieli po dwukropkach, zachowując adresy IPv6 w nawiasach
func splitForwardSpec(spec string) ([]string, error) {
	var parts []string
	for len(spec) > 0 {
		if spec[0] == '[' {
			end := strings.IndexByte(spec, ']')
			if end < 0 {
				return nil, apperr.New(apperr.ValidationError, fmt.Sprintf("unterminated bracket in %q", spec), nil)
			}
			parts = append(parts, spec[1:end])
			spec = spec[end+1:]
			if spec != "" {
				if spec[0] != ':' {
					return nil, apperr.New(apperr.ValidationError, fmt.Sprintf("unexpected %q after address", spec), nil)
				}
				spec = spec[1:]
			}
			continue
		}
		i := strings.IndexByte(spec, ':')
		if i < 0 {
			parts = append(parts, spec)
			break
		}
		parts = append(parts, spec[:i])
		spec = spec[i+1:]
		if spec == "" {
			parts = append(parts, "")
		}
	}
	return parts, nil
}
