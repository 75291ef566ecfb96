package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/delguard/delguard/internal/logger"
	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

var cfgLog = logger.New("config")

// Backup modes.
const (
	BackupModeCentralized = "centralized"
	BackupModePerFolder   = "per-folder"
)

// Config is the delguard configuration, loaded once at process start and
// passed explicitly into the engine. Core packages never read it ambiently.
type Config struct {
	// Workspace optionally pins the workspace root. Empty means derive it
	// from the hook's cwd (or DELGUARD_PROJECT_DIR).
	Workspace string `yaml:"workspace"`

	// WhitelistedFolders are extra roots whose contents may be deleted with
	// backup, like the workspace itself. Order matters: first match wins.
	WhitelistedFolders []string `yaml:"whitelisted_folders"`

	BackupMode string `yaml:"backup_mode" validate:"oneof=centralized per-folder"`
	BackupRoot string `yaml:"backup_root"`

	// Compress stores regular-file backups zstd-compressed (centralized mode).
	Compress bool `yaml:"compress"`

	LogLevel string `yaml:"log_level"`
	NoColor  bool   `yaml:"no_color"`
}

// Env holds environment overrides (DELGUARD_* variables).
type Env struct {
	ProjectDir string `envconfig:"PROJECT_DIR"`
	ConfigPath string `envconfig:"CONFIG"`
	LogLevel   string `envconfig:"LOG_LEVEL"`
	NoColor    bool   `envconfig:"NO_COLOR"`
}

// LoadEnv reads DELGUARD_* environment overrides.
func LoadEnv() Env {
	var e Env
	if err := envconfig.Process("delguard", &e); err != nil {
		cfgLog.Warn("bad environment override ignored: %v", err)
	}
	return e
}

// DefaultConfigPath returns the default config file path (~/.delguard/config.yaml).
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".delguard", "config.yaml")
}

// defaultBackupRoot returns the default centralized backup root.
func defaultBackupRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".delguard-backups"
	}
	return filepath.Join(home, ".delguard", "backups")
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		BackupMode: BackupModeCentralized,
		BackupRoot: defaultBackupRoot(),
		LogLevel:   "info",
	}
}

var validate = validator.New()

// Validate checks the configuration after overrides have been applied.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: backup_mode must be %q or %q (got %q)",
			BackupModeCentralized, BackupModePerFolder, c.BackupMode)
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config validation failed: log_level: %w", err)
	}
	return nil
}

// ApplyEnv overlays environment overrides onto the loaded config.
func (c *Config) ApplyEnv(e Env) {
	if e.LogLevel != "" {
		c.LogLevel = e.LogLevel
	}
	if e.NoColor {
		c.NoColor = true
	}
	if e.ProjectDir != "" {
		c.Workspace = e.ProjectDir
	}
}

// WhitelistRoots resolves the configured whitelist folders to absolute paths,
// preserving configuration order. Unresolvable entries are dropped with a
// warning rather than failing the whole invocation.
func (c *Config) WhitelistRoots() []string {
	var roots []string
	for _, raw := range c.WhitelistedFolders {
		p := ExpandHome(raw)
		abs, err := filepath.Abs(p)
		if err != nil {
			cfgLog.Warn("whitelisted folder %q ignored: %v", raw, err)
			continue
		}
		if resolved, err := filepath.EvalSymlinks(abs); err == nil {
			abs = resolved
		}
		roots = append(roots, filepath.Clean(abs))
	}
	return roots
}

// ResolvedBackupRoot returns the backup root with ~ expanded and the path
// made absolute.
func (c *Config) ResolvedBackupRoot() string {
	p := ExpandHome(c.BackupRoot)
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// ExpandHome expands a leading ~ or ~/ to the user's home directory.
func ExpandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		if p == "~" {
			return home
		}
		return filepath.Join(home, p[2:])
	}
	return p
}

// isUnknownFieldError returns true if the error is from yaml.Decoder.KnownFields(true)
// detecting an unrecognized key (e.g. a typo like "backupmode:").
func isUnknownFieldError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "not found in type")
}

// Load loads configuration from a YAML file. A missing file yields defaults.
// Note: Load does NOT call Validate(). Callers should apply env overrides
// first, then call cfg.Validate() themselves.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	// Strict decode first to surface typos, then lenient re-parse so an
	// unknown key never breaks the hook.
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if isUnknownFieldError(err) {
			cfgLog.Warn("config has unknown fields (ignored): %v", err)
			cfg = DefaultConfig()
			if err2 := yaml.Unmarshal(data, cfg); err2 != nil {
				return nil, fmt.Errorf("config parse error: %w", err2)
			}
		} else {
			return nil, fmt.Errorf("config parse error: %w", err)
		}
	}

	if cfg.BackupMode == "" {
		cfg.BackupMode = BackupModeCentralized
	}
	if cfg.BackupRoot == "" {
		cfg.BackupRoot = defaultBackupRoot()
	}

	return cfg, nil
}
