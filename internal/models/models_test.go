package models

import (
	"testing"

	apperr "sshDeck/internal/error"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseForwardRule(t *testing.T) {
	tests := []struct {
		name string
		typ  ForwardType
		spec string
		want ForwardRule
	}{
		{
			name: "local short",
			typ:  ForwardLocal,
			spec: "8080:db.internal:5432",
			want: ForwardRule{Type: ForwardLocal, BindHost: "127.0.0.1", BindPort: 8080, DestHost: "db.internal", DestPort: 5432},
		},
		{
			name: "local with bind host",
			typ:  ForwardLocal,
			spec: "0.0.0.0:8080:localhost:80",
			want: ForwardRule{Type: ForwardLocal, BindHost: "0.0.0.0", BindPort: 8080, DestHost: "localhost", DestPort: 80},
		},
		{
			name: "remote default bind",
			typ:  ForwardRemote,
			spec: "9000:127.0.0.1:3000",
			want: ForwardRule{Type: ForwardRemote, BindHost: "localhost", BindPort: 9000, DestHost: "127.0.0.1", DestPort: 3000},
		},
		{
			name: "dynamic port only",
			typ:  ForwardDynamic,
			spec: "1080",
			want: ForwardRule{Type: ForwardDynamic, BindHost: "127.0.0.1", BindPort: 1080},
		},
		{
			name: "dynamic wildcard",
			typ:  ForwardDynamic,
			spec: "*:1080",
			want: ForwardRule{Type: ForwardDynamic, BindHost: "0.0.0.0", BindPort: 1080},
		},
		{
			name: "ipv6 destination",
			typ:  ForwardLocal,
			spec: "[::1]:8080:[2001:db8::1]:443",
			want: ForwardRule{Type: ForwardLocal, BindHost: "::1", BindPort: 8080, DestHost: "2001:db8::1", DestPort: 443},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseForwardRule(tt.typ, tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseForwardRuleErrors(t *testing.T) {
	tests := []struct {
		name string
		typ  ForwardType
		spec string
	}{
		{"missing dest", ForwardLocal, "8080"},
		{"bad port", ForwardLocal, "http:host:80"},
		{"port out of range", ForwardDynamic, "70000"},
		{"too many parts dynamic", ForwardDynamic, "a:1:b"},
		{"empty dest port", ForwardRemote, "8080:host:"},
		{"unterminated bracket", ForwardLocal, "[::1:8080:h:1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseForwardRule(tt.typ, tt.spec)
			require.Error(t, err)
			assert.True(t, apperr.IsType(err, apperr.ValidationError))
		})
	}
}

func TestForwardRuleString(t *testing.T) {
	rule := ForwardRule{Type: ForwardLocal, BindHost: "127.0.0.1", BindPort: 8080, DestHost: "db", DestPort: 5432}
	assert.Equal(t, "-L 127.0.0.1:8080 -> db:5432", rule.String())

	dyn := ForwardRule{Type: ForwardDynamic, BindHost: "::1", BindPort: 1080}
	assert.Equal(t, "-D socks5 [::1]:1080", dyn.String())
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		target  string
		login   string
		address string
		port    int
	}{
		{"example.com", "", "example.com", 0},
		{"root@example.com", "root", "example.com", 0},
		{"root@example.com:2222", "root", "example.com", 2222},
		{"admin@[::1]:22", "admin", "::1", 22},
		{"user@name@host", "user@name", "host", 0},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			login, address, port, err := ParseTarget(tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.login, login)
			assert.Equal(t, tt.address, address)
			assert.Equal(t, tt.port, port)
		})
	}

	_, _, _, err := ParseTarget("root@")
	assert.Error(t, err)
}

func TestHostValidate(t *testing.T) {
	h := NewHost("root", "example.com", 0)
	assert.NotEmpty(t, h.ID)
	assert.Equal(t, DefaultSSHPort, h.Port)
	assert.Equal(t, "example.com:22", h.Addr())
	assert.NoError(t, h.Validate())

	h.Auth = AuthKey
	assert.Error(t, h.Validate())
	h.KeyPath = "~/.ssh/id_ed25519"
	assert.NoError(t, h.Validate())

	h.Proxy = &Proxy{Host: "proxy", Port: 0}
	assert.Error(t, h.Validate())

	h.Auth = "kerberos"
	h.Proxy = nil
	assert.True(t, apperr.IsType(h.Validate(), apperr.ValidationError))
}
