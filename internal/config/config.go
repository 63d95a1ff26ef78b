// internal/config/config.go

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	apperr "sshDeck/internal/error"
	"sshDeck/internal/models"
)

const (
	DefaultConfigFileName = "hosts.json"
	DefaultConfigDir      = ".config/sshdeck"
	DefaultFilePerms      = 0600
)

// Manager zarządza zapisanymi hostami. Hasła nie są zapisywane na dysk.
type Manager struct {
	mu         sync.RWMutex
	configPath string
	config     *models.Config
}

// NewManager tworzy nowego menedżera konfiguracji
func NewManager(configPath string) *Manager {
	if configPath == "" {
		defaultPath, err := GetDefaultConfigPath()
		if err == nil {
			configPath = defaultPath
		} else {
			// Fallback do bieżącego katalogu jeśli nie można uzyskać ścieżki domowej
			configPath = DefaultConfigFileName
		}
	}

	return &Manager{
		configPath: configPath,
		config:     &models.Config{},
	}
}

// Path zwraca ścieżkę pliku z hostami
func (m *Manager) Path() string {
	return m.configPath
}

// Load wczytuje konfigurację z pliku; brak pliku daje pustą listę
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			m.config = &models.Config{Hosts: make([]models.Host, 0)}
			return nil
		}
		return apperr.New(apperr.ConfigError, "failed to read config file", err)
	}

	cfg := &models.Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return apperr.New(apperr.ConfigError, "failed to parse config file", err)
	}
	m.config = cfg
	return nil
}

// Save zapisuje konfigurację do pliku
func (m *Manager) Save() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	configDir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return apperr.New(apperr.ConfigError, "failed to create config directory", err)
	}

	// Pole Password ma tag json:"-", więc nigdy nie trafia do pliku
	data, err := json.MarshalIndent(m.config, "", "    ")
	if err != nil {
		return apperr.New(apperr.ConfigError, "failed to marshal config", err)
	}

	if err := os.WriteFile(m.configPath, data, DefaultFilePerms); err != nil {
		return apperr.New(apperr.ConfigError, "failed to write config file", err)
	}
	return nil
}

// GetHosts zwraca kopię listy hostów
func (m *Manager) GetHosts() []models.Host {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Host, len(m.config.Hosts))
	copy(out, m.config.Hosts)
	return out
}

// AddHost dodaje nowego hosta albo zastępuje hosta o tej samej nazwie
func (m *Manager) AddHost(host models.Host) error {
	if host.Name == "" {
		return apperr.New(apperr.ValidationError, "host name cannot be empty", nil)
	}
	if err := host.Validate(); err != nil {
		return err
	}
	host.Password = ""

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, h := range m.config.Hosts {
		if h.Name == host.Name {
			host.ID = h.ID
			m.config.Hosts[i] = host
			return nil
		}
	}
	m.config.Hosts = append(m.config.Hosts, host)
	return nil
}

// DeleteHost usuwa hosta o podanej nazwie
func (m *Manager) DeleteHost(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, h := range m.config.Hosts {
		if h.Name == name {
			m.config.Hosts = append(m.config.Hosts[:i], m.config.Hosts[i+1:]...)
			return nil
		}
	}
	return apperr.New(apperr.ConfigError, fmt.Sprintf("host %q not found", name), nil)
}

// FindHostByName szuka hosta po nazwie
func (m *Manager) FindHostByName(name string) (models.Host, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, host := range m.config.Hosts {
		if host.Name == name {
			return host, nil
		}
	}
	return models.Host{}, apperr.New(apperr.ConfigError, fmt.Sprintf("host %q not found", name), nil)
}

// ConfigDir zwraca katalog konfiguracyjny aplikacji
func ConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not get home directory: %w", err)
	}
	return filepath.Join(homeDir, DefaultConfigDir), nil
}

// GetDefaultConfigPath zwraca domyślną ścieżkę pliku z hostami
func GetDefaultConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultConfigFileName), nil
}
