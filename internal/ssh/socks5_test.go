package ssh

import (
	"errors"
	"io"
	"net"
	"testing"
	"time"

	apperr "sshDeck/internal/error"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type handshakeResult struct {
	target net.Conn
	dest   string
	err    error
}

// startHandshake uruchamia serwerową stronę na jednym końcu net.Pipe
func startHandshake(t *testing.T, dial dialFunc) (net.Conn, <-chan handshakeResult) {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	_ = client.SetDeadline(time.Now().Add(5 * time.Second))

	result := make(chan handshakeResult, 1)
	go func() {
		target, dest, err := socks5Handshake(server, dial)
		result <- handshakeResult{target, dest, err}
	}()
	return client, result
}

func recordingDial(dests *[]string) dialFunc {
	return func(network, addr string) (net.Conn, error) {
		*dests = append(*dests, addr)
		a, b := net.Pipe()
		go func() {
			_, _ = io.Copy(io.Discard, b)
		}()
		return a, nil
	}
}

func readN(t *testing.T, r io.Reader, n int) []byte {
	t.Helper()
	buf := make([]byte, n)
	_, err := io.ReadFull(r, buf)
	require.NoError(t, err)
	return buf
}

func TestSocks5ConnectIPv4(t *testing.T) {
	var dests []string
	client, result := startHandshake(t, recordingDial(&dests))

	_, err := client.Write([]byte{0x05, 0x01, 0x00})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x05, 0x00}, readN(t, client, 2))

	_, err = client.Write([]byte{0x05, 0x01, 0x00, 0x01, 0x7F, 0x00, 0x00, 0x01, 0x00, 0x50})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x05, 0x00, 0x00, 0x01, 0, 0, 0, 0, 0, 0}, readN(t, client, 10))

	res := <-result
	require.NoError(t, res.err)
	require.NotNil(t, res.target)
	res.target.Close()
	assert.Equal(t, "127.0.0.1:80", res.dest)
	assert.Equal(t, []string{"127.0.0.1:80"}, dests)
}

func TestSocks5AddressEncodings(t *testing.T) {
	tests := []struct {
		name    string
		request []byte
		want    string
	}{
		{
			name:    "domain",
			request: append([]byte{0x05, 0x01, 0x00, 0x03, 11}, append([]byte("example.com"), 0x01, 0xBB)...),
			want:    "example.com:443",
		},
		{
			name: "ipv6",
			request: []byte{0x05, 0x01, 0x00, 0x04,
				0x20, 0x01, 0x0d, 0xb8, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0x01,
				0x00, 0x16},
			want: "[2001:db8:0:0:0:0:0:1]:22",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dests []string
			client, result := startHandshake(t, recordingDial(&dests))

			_, err := client.Write([]byte{0x05, 0x02, 0x02, 0x00})
			require.NoError(t, err)
			assert.Equal(t, []byte{0x05, 0x00}, readN(t, client, 2))

			_, err = client.Write(tt.request)
			require.NoError(t, err)
			assert.Equal(t, byte(0x00), readN(t, client, 10)[1])

			res := <-result
			require.NoError(t, res.err)
			res.target.Close()
			assert.Equal(t, tt.want, res.dest)
		})
	}
}

func TestSocks5RejectsWithoutNoAuth(t *testing.T) {
	var dests []string
	client, result := startHandshake(t, recordingDial(&dests))

	_, err := client.Write([]byte{0x05, 0x01, 0x02})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x05, 0xFF}, readN(t, client, 2))

	res := <-result
	assert.True(t, apperr.IsType(res.err, apperr.ProtocolError))
	assert.Empty(t, dests)
}

func TestSocks5ReplyCodes(t *testing.T) {
	tests := []struct {
		name    string
		request []byte
		dial    dialFunc
		code    byte
	}{
		{
			name:    "bind command",
			request: []byte{0x05, 0x02, 0x00, 0x01},
			code:    0x07,
		},
		{
			name:    "unknown address type",
			request: []byte{0x05, 0x01, 0x00, 0x09},
			code:    0x08,
		},
		{
			name:    "dial failure",
			request: []byte{0x05, 0x01, 0x00, 0x01, 10, 0, 0, 1, 0x00, 0x50},
			dial: func(string, string) (net.Conn, error) {
				return nil, errors.New("connect failed")
			},
			code: 0x05,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dial := tt.dial
			if dial == nil {
				var dests []string
				dial = recordingDial(&dests)
			}
			client, result := startHandshake(t, dial)

			_, err := client.Write([]byte{0x05, 0x01, 0x00})
			require.NoError(t, err)
			readN(t, client, 2)

			_, err = client.Write(tt.request)
			require.NoError(t, err)
			reply := readN(t, client, 10)
			assert.Equal(t, byte(0x05), reply[0])
			assert.Equal(t, tt.code, reply[1])

			res := <-result
			assert.Error(t, res.err)
			assert.Nil(t, res.target)
		})
	}
}

func TestSocks5BadVersion(t *testing.T) {
	var dests []string
	client, result := startHandshake(t, recordingDial(&dests))

	_, err := client.Write([]byte{0x04, 0x01})
	require.NoError(t, err)

	res := <-result
	assert.True(t, apperr.IsType(res.err, apperr.ProtocolError))
}

func TestFormatIPv6Groups(t *testing.T) {
	ip := net.ParseIP("fe80::1:2").To16()
	assert.Equal(t, "fe80:0:0:0:0:0:1:2", formatIPv6Groups(ip))
}
