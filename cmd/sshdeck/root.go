// cmd/sshdeck/root.go

package main

import (
	"context"
	"fmt"
	"os"

	"sshDeck/internal/config"
	"sshDeck/internal/logging"
	"sshDeck/internal/models"
	"sshDeck/internal/ssh"
	"sshDeck/internal/ui/views"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app przechowuje stan współdzielony przez polecenia
type app struct {
	v         *viper.Viper
	cfgFile   string
	hostsFile string
	settings  *config.Settings
	store     *config.Manager
	flags     hostFlags
	save      string
	raw       bool
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "sshdeck [user@]host[:port] | NAME",
		Short: "Interactive SSH client with SFTP and port forwarding",
		Long: `sshdeck opens an interactive shell on a remote host through a built-in
terminal emulator. The same connection settings drive an SFTP browser and
local, remote and dynamic (SOCKS5) port forwards.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
		RunE: a.runConnect,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "settings file (default is ~/.config/sshdeck/config.yaml)")
	pf.StringVar(&a.hostsFile, "hosts-file", "", "saved hosts file (default is ~/.config/sshdeck/hosts.json)")
	pf.IntVarP(&a.flags.port, "port", "p", 0, "remote port")
	pf.StringVarP(&a.flags.login, "login", "l", "", "remote user name")
	pf.StringVarP(&a.flags.identity, "identity", "i", "", "private key file")
	pf.BoolVar(&a.flags.forcePassword, "password", false, "authenticate with a password prompt")
	pf.StringVar(&a.flags.proxy, "proxy", "", "upstream SOCKS5 proxy host:port")
	pf.String("log-level", "", "log level (trace, debug, info, warn, error)")
	pf.String("log-file", "", "log file used by the interactive mode")
	pf.Duration("keepalive", 0, "keepalive interval (0 disables)")
	pf.Duration("connect-timeout", 0, "connection timeout")

	f := root.Flags()
	f.StringArrayVarP(&a.flags.local, "local", "L", nil, "local forward [bind_host:]port:host:hostport")
	f.StringArrayVarP(&a.flags.remote, "remote", "R", nil, "remote forward [bind_host:]port:host:hostport")
	f.StringArrayVarP(&a.flags.dynamic, "dynamic", "D", nil, "dynamic SOCKS5 forward [bind_host:]port")
	f.StringVar(&a.save, "save", "", "save the connection under NAME")
	f.BoolVar(&a.raw, "raw", false, "plain pass-through mode without the terminal UI")
	f.String("term", "", "terminal type sent to the server")

	_ = a.v.BindPFlag("log.level", pf.Lookup("log-level"))
	_ = a.v.BindPFlag("log.file", pf.Lookup("log-file"))
	_ = a.v.BindPFlag("ssh.keepalive", pf.Lookup("keepalive"))
	_ = a.v.BindPFlag("ssh.connect_timeout", pf.Lookup("connect-timeout"))
	_ = a.v.BindPFlag("term.type", f.Lookup("term"))

	root.AddCommand(newHostsCmd(a), newCopyCmd(a))
	return root
}

// load wczytuje ustawienia i zapisane hosty
func (a *app) load() error {
	settings, err := config.LoadSettings(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.settings = settings

	path := a.hostsFile
	if path == "" {
		if path, err = config.GetDefaultConfigPath(); err != nil {
			path = config.DefaultConfigFileName
		}
	}
	a.store = config.NewManager(path)
	return a.store.Load()
}

// prepareHost rozwiązuje cel, pyta o hasło i opcjonalnie zapisuje hosta
func (a *app) prepareHost(target string) (models.Host, error) {
	host, err := resolveHost(a.store, target, a.flags)
	if err != nil {
		return models.Host{}, err
	}
	if a.save != "" {
		host.Name = a.save
		if err := a.store.AddHost(host); err != nil {
			return models.Host{}, err
		}
		if err := a.store.Save(); err != nil {
			return models.Host{}, err
		}
	}
	if host.Auth == models.AuthPassword {
		if err := readPassword(&host); err != nil {
			return models.Host{}, err
		}
	}
	return host, nil
}

func (a *app) runConnect(cmd *cobra.Command, args []string) error {
	rules, err := forwardRules(a.flags)
	if err != nil {
		return err
	}
	host, err := a.prepareHost(args[0])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if a.raw {
		log := logging.Console(a.settings.Log.Level)
		opts := sessionOptions(a.settings, host, log)
		return runRaw(ctx, ssh.NewConnector(opts...), host, rules, opts)
	}

	log, closeLog, err := logging.Setup(a.settings.Log.Level, a.settings.Log.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not open log file: %v\n", err)
		log, closeLog = zerolog.Nop(), func() error { return nil }
	}
	defer closeLog()

	opts := sessionOptions(a.settings, host, log)
	localDir, err := os.Getwd()
	if err != nil {
		localDir = "."
	}
	model := views.NewApp(ctx, ssh.NewConnector(opts...), views.Options{
		Host:     host,
		Settings: a.settings,
		Logger:   log,
		Forwards: rules,
		LocalDir: localDir,
	}, opts...)

	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("failed to run interface: %w", err)
	}
	return model.Err()
}
