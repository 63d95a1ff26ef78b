// internal/ssh/ssh_client.go

package ssh

import (
	"context"
	"time"

	apperr "sshDeck/internal/error"
	"sshDeck/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
)

// Connector otwiera uwierzytelnione połączenia SSH. Każda sesja powłoki,
// reguła przekierowania i silnik SFTP dostaje własne połączenie.
type Connector struct {
	timeout time.Duration
	log     zerolog.Logger
}

func NewConnector(opts ...Option) *Connector {
	o := newOptions(opts)
	return &Connector{
		timeout: o.connectTimeout,
		log:     o.logger,
	}
}

// Connect nawiązuje połączenie i uwierzytelnia się jedną metodą.
// Błąd uwierzytelnienia kończy próbę; ponowienie należy do wywołującego.
func (c *Connector) Connect(ctx context.Context, host *models.Host) (*ssh.Client, error) {
	if host == nil {
		return nil, apperr.New(apperr.ValidationError, "host configuration is required", nil)
	}
	if err := host.Validate(); err != nil {
		return nil, err
	}

	auth, err := authMethod(host)
	if err != nil {
		return nil, err
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	event := c.log.Info().Str("host", host.Address).Int("port", host.Port).Str("auth", string(host.Auth))
	if host.Proxy != nil {
		event = event.Str("proxy", host.Proxy.Addr())
	}
	event.Msg("connecting")

	conn, err := dialTransport(ctx, host)
	if err != nil {
		c.log.Warn().Err(err).Str("host", host.Address).Msg("transport failed")
		return nil, err
	}

	config := &ssh.ClientConfig{
		User: host.Login,
		Auth: []ssh.AuthMethod{auth},
		// Klucze hosta są akceptowane bez weryfikacji
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         c.timeout,
	}

	client, err := handshake(ctx, conn, host, config)
	if err != nil {
		c.log.Warn().Err(err).Str("host", host.Address).Msg("handshake failed")
		return nil, err
	}
	c.log.Debug().Str("host", host.Address).Str("server", string(client.ServerVersion())).Msg("connected")
	return client, nil
}
