// internal/config/settings.go

package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	apperr "sshDeck/internal/error"

	"github.com/spf13/viper"
)

const (
	EnvPrefix          = "SSHDECK"
	SettingsFileName   = "config"
	SettingsFileType   = "yaml"
	DefaultLogFileName = "sshdeck.log"
)

// Settings to ustawienia silnika wczytywane przez viper (plik, zmienne środowiskowe, flagi)
type Settings struct {
	Term    TermSettings    `mapstructure:"term"`
	SSH     SSHSettings     `mapstructure:"ssh"`
	Forward ForwardSettings `mapstructure:"forward"`
	SFTP    SFTPSettings    `mapstructure:"sftp"`
	Log     LogSettings     `mapstructure:"log"`
}

type TermSettings struct {
	Type       string `mapstructure:"type"`
	Cols       int    `mapstructure:"cols"`
	Rows       int    `mapstructure:"rows"`
	Scrollback int    `mapstructure:"scrollback"`
}

type SSHSettings struct {
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	KeepAlive      time.Duration `mapstructure:"keepalive"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
}

type ForwardSettings struct {
	AcceptTimeout time.Duration `mapstructure:"accept_timeout"`
}

type SFTPSettings struct {
	ChunkSize int    `mapstructure:"chunk_size"`
	StartDir  string `mapstructure:"start_dir"`
}

type LogSettings struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// SetDefaults rejestruje wartości domyślne w instancji viper
func SetDefaults(v *viper.Viper) {
	v.SetDefault("term.type", "xterm-256color")
	v.SetDefault("term.cols", 80)
	v.SetDefault("term.rows", 24)
	v.SetDefault("term.scrollback", 10000)
	v.SetDefault("ssh.connect_timeout", 10*time.Second)
	v.SetDefault("ssh.keepalive", time.Duration(0))
	v.SetDefault("ssh.poll_interval", 5*time.Millisecond)
	v.SetDefault("forward.accept_timeout", 500*time.Millisecond)
	v.SetDefault("sftp.chunk_size", 256*1024)
	v.SetDefault("sftp.start_dir", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
}

// DefaultSettings zwraca ustawienia domyślne bez czytania plików i środowiska
func DefaultSettings() *Settings {
	v := viper.New()
	SetDefaults(v)
	var s Settings
	// Same wartości domyślne zawsze się dekodują
	_ = v.Unmarshal(&s)
	return &s
}

// LoadSettings wczytuje ustawienia. Pusty configFile oznacza config.yaml w katalogu konfiguracyjnym;
// brak tego pliku nie jest błędem.
func LoadSettings(v *viper.Viper, configFile string) (*Settings, error) {
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(SettingsFileName)
		v.SetConfigType(SettingsFileType)
		if dir, err := ConfigDir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, apperr.New(apperr.ConfigError, "failed to read settings", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, apperr.New(apperr.ConfigError, "failed to decode settings", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if s.Log.File == "" {
		if dir, err := ConfigDir(); err == nil {
			s.Log.File = filepath.Join(dir, DefaultLogFileName)
		}
	}
	return &s, nil
}

// Validate sprawdza zakresy wartości
func (s *Settings) Validate() error {
	switch {
	case s.Term.Cols <= 0 || s.Term.Rows <= 0:
		return apperr.New(apperr.ConfigError, fmt.Sprintf("invalid terminal size %dx%d", s.Term.Cols, s.Term.Rows), nil)
	case s.Term.Scrollback < 0:
		return apperr.New(apperr.ConfigError, "scrollback cannot be negative", nil)
	case s.SSH.PollInterval <= 0:
		return apperr.New(apperr.ConfigError, "poll interval must be positive", nil)
	case s.Forward.AcceptTimeout <= 0:
		return apperr.New(apperr.ConfigError, "accept timeout must be positive", nil)
	case s.SFTP.ChunkSize <= 0:
		return apperr.New(apperr.ConfigError, "sftp chunk size must be positive", nil)
	}
	return nil
}
