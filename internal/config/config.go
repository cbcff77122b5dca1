package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	appDir                 = "asana-planner"
	defaultConfigFile      = "config.json"
	defaultCredentialsFile = "credentials.json"
	projectConfigBase      = ".asana-planner"

	DefaultTimeoutSeconds = 10
	DefaultRateLimit      = 25.0
	DefaultRateBurst      = 5
	DefaultListenAddr     = "127.0.0.1:3000"
)

type Config struct {
	BaseURL        string  `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	TimeoutSeconds int     `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`
	RateLimit      float64 `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`
	RateBurst      int     `json:"rate_burst,omitempty" yaml:"rate_burst,omitempty"`
	ListenAddr     string  `json:"listen_addr,omitempty" yaml:"listen_addr,omitempty"`
	AuditDB        string  `json:"audit_db,omitempty" yaml:"audit_db,omitempty"`
	DefaultProfile string  `json:"default_profile,omitempty" yaml:"default_profile,omitempty"`
	TableWidth     int     `json:"table_width,omitempty" yaml:"table_width,omitempty"`
}

type Credentials struct {
	Profiles map[string]Credential `json:"profiles"`
}

// Credential is one saved login. The gids are defaults for actions that do
// not name a workspace or project themselves.
type Credential struct {
	Token        string `json:"token"`
	WorkspaceGID string `json:"workspace_gid,omitempty"`
	ProjectGID   string `json:"project_gid,omitempty"`
	UserGID      string `json:"user_gid,omitempty"`
}

func DefaultUserConfigPath() (string, error) {
	xdg := os.Getenv("XDG_CONFIG_HOME")
	if xdg == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		xdg = filepath.Join(home, ".config")
	}
	return filepath.Join(xdg, appDir, defaultConfigFile), nil
}

// DefaultProjectConfigPath returns the first project file present in cwd,
// preferring JSON, or the JSON name when neither exists.
func DefaultProjectConfigPath(cwd string) string {
	for _, ext := range []string{".json", ".yaml", ".yml"} {
		path := filepath.Join(cwd, projectConfigBase+ext)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return filepath.Join(cwd, projectConfigBase+".json")
}

func CredentialsPathFromConfig(configPath string) string {
	dir := filepath.Dir(configPath)
	return filepath.Join(dir, defaultCredentialsFile)
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func LoadConfig(path string) (Config, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, false, nil
		}
		return Config{}, false, err
	}
	var cfg Config
	if isYAML(path) {
		err = yaml.Unmarshal(data, &cfg)
	} else {
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return Config{}, true, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, true, nil
}

func LoadCredentials(path string) (Credentials, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Credentials{Profiles: map[string]Credential{}}, false, nil
		}
		return Credentials{}, false, err
	}
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return Credentials{}, true, fmt.Errorf("parse credentials: %w", err)
	}
	if creds.Profiles == nil {
		creds.Profiles = map[string]Credential{}
	}
	return creds, true, nil
}

func SaveCredentials(path string, creds Credentials) error {
	if creds.Profiles == nil {
		creds.Profiles = map[string]Credential{}
	}
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

func EnsureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return os.MkdirAll(path, 0o700)
}

func SaveConfig(path string, cfg Config) error {
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

func MergeConfig(base Config, override Config) Config {
	result := base
	if override.BaseURL != "" {
		result.BaseURL = override.BaseURL
	}
	if override.TimeoutSeconds > 0 {
		result.TimeoutSeconds = override.TimeoutSeconds
	}
	if override.RateLimit > 0 {
		result.RateLimit = override.RateLimit
	}
	if override.RateBurst > 0 {
		result.RateBurst = override.RateBurst
	}
	if override.ListenAddr != "" {
		result.ListenAddr = override.ListenAddr
	}
	if override.AuditDB != "" {
		result.AuditDB = override.AuditDB
	}
	if override.DefaultProfile != "" {
		result.DefaultProfile = override.DefaultProfile
	}
	if override.TableWidth > 0 {
		result.TableWidth = override.TableWidth
	}
	return result
}

// WithDefaults fills every unset tunable.
func WithDefaults(cfg Config) Config {
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = DefaultRateBurst
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultListenAddr
	}
	return cfg
}
