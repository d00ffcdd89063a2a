package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfig overrides the config file location.
const EnvConfig = "ASARKIT_CONFIG"

type Config struct {
	WorkspaceDir   string        `yaml:"workspace_dir"`
	Archiver       []string      `yaml:"archiver"`
	ExtractTimeout time.Duration `yaml:"extract_timeout"`
	PackTimeout    time.Duration `yaml:"pack_timeout"`
	BackupSuffix   string        `yaml:"backup_suffix"`
	OpenCommand    []string      `yaml:"open_command"`
	History        struct {
		KeepLast int `yaml:"keep_last"`
	} `yaml:"history"`
	Log Logger `yaml:"log"`
}

func DefaultConfig() *Config {
	cfg := &Config{
		WorkspaceDir:   "~/asarkit",
		Archiver:       []string{"npx", "--yes", "@electron/asar"},
		ExtractTimeout: 2 * time.Minute,
		PackTimeout:    3 * time.Minute,
		BackupSuffix:   ".backup",
		OpenCommand:    []string{},
		Log:            Logger{Level: "warn"},
	}
	cfg.History.KeepLast = 20
	return cfg
}

// ConfigPath returns ASARKIT_CONFIG when set, else ~/.asarkit/config.yaml.
func ConfigPath() (string, error) {
	if p := os.Getenv(EnvConfig); p != "" {
		return ExpandPath(p)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".asarkit", "config.yaml"), nil
}

// Load reads the config file. A missing file yields the defaults.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	var errs []error
	if len(c.Archiver) == 0 || c.Archiver[0] == "" {
		errs = append(errs, errors.New("archiver must name a command"))
	}
	if c.ExtractTimeout <= 0 {
		errs = append(errs, errors.New("extract_timeout must be positive"))
	}
	if c.PackTimeout <= 0 {
		errs = append(errs, errors.New("pack_timeout must be positive"))
	}
	if c.BackupSuffix == "" {
		errs = append(errs, errors.New("backup_suffix must not be empty"))
	}
	if c.History.KeepLast < 0 {
		errs = append(errs, errors.New("history.keep_last must not be negative"))
	}
	return errors.Join(errs...)
}

// Workspace returns the expanded, absolute workspace directory.
func (c *Config) Workspace() (string, error) {
	dir, err := ExpandPath(c.WorkspaceDir)
	if err != nil {
		return "", err
	}
	return filepath.Abs(dir)
}

// ExpandPath expands ~ to home directory
func ExpandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}
