// cmd/sshdeck/host.go

package main

import (
	"fmt"
	"os"
	"os/user"
	"time"

	"sshDeck/internal/config"
	apperr "sshDeck/internal/error"
	"sshDeck/internal/models"
	"sshDeck/internal/ssh"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// hostKeepAlive to odstęp keepalive dla hostów z włączoną opcją keep_alive
const hostKeepAlive = 30 * time.Second

// hostFlags to opcje połączenia podane w linii poleceń
type hostFlags struct {
	port          int
	login         string
	identity      string
	forcePassword bool
	proxy         string
	local         []string
	remote        []string
	dynamic       []string
}

// resolveHost buduje opis połączenia: zapisany host o tej nazwie albo zapis [user@]host[:port],
// nadpisany flagami
func resolveHost(store *config.Manager, target string, f hostFlags) (models.Host, error) {
	host, err := store.FindHostByName(target)
	if err != nil {
		login, address, port, perr := models.ParseTarget(target)
		if perr != nil {
			return models.Host{}, perr
		}
		host = models.NewHost(login, address, port)
	}

	if f.port > 0 {
		host.Port = f.port
	}
	if f.login != "" {
		host.Login = f.login
	}
	if host.Login == "" {
		host.Login = currentUser()
	}
	if f.identity != "" {
		host.Auth = models.AuthKey
		host.KeyPath = f.identity
	}
	if f.forcePassword {
		host.Auth = models.AuthPassword
	}
	if f.proxy != "" {
		h, p, err := models.ParseHostPort(f.proxy)
		if err != nil {
			return models.Host{}, err
		}
		host.Proxy = &models.Proxy{Host: h, Port: p}
	}
	return host, host.Validate()
}

// forwardRules rozkłada reguły z flag -L, -R i -D
func forwardRules(f hostFlags) ([]models.ForwardRule, error) {
	var rules []models.ForwardRule
	groups := []struct {
		t     models.ForwardType
		specs []string
	}{
		{models.ForwardLocal, f.local},
		{models.ForwardRemote, f.remote},
		{models.ForwardDynamic, f.dynamic},
	}
	for _, g := range groups {
		for _, spec := range g.specs {
			rule, err := models.ParseForwardRule(g.t, spec)
			if err != nil {
				return nil, err
			}
			rules = append(rules, rule)
		}
	}
	return rules, nil
}

func currentUser() string {
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return os.Getenv("USER")
}

// readPassword pyta o hasło bez echa; hasło żyje tylko w pamięci
func readPassword(host *models.Host) error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return apperr.New(apperr.AuthError, "password required but stdin is not a terminal", nil)
	}
	fmt.Fprintf(os.Stderr, "%s@%s's password: ", host.Login, host.Address)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return apperr.New(apperr.AuthError, "failed to read password", err)
	}
	host.Password = string(pw)
	return nil
}

// sessionOptions składa opcje silnika z ustawień i opisu hosta
func sessionOptions(settings *config.Settings, host models.Host, log zerolog.Logger) []ssh.Option {
	opts := []ssh.Option{ssh.WithSettings(settings), ssh.WithLogger(log)}
	if host.TerminalType != "" {
		opts = append(opts, ssh.WithTermType(host.TerminalType))
	}
	if host.KeepAlive && settings.SSH.KeepAlive == 0 {
		opts = append(opts, ssh.WithKeepAlive(hostKeepAlive))
	}
	return opts
}
