package context

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"

	"github.com/user/mobproto/internal/document"
)

// ConfigFileName is the per-directory config file.
const ConfigFileName = ".mobproto.json"

var (
	ErrConfigInvalid      = errors.New("invalid config")
	ErrConfigFileNotFound = errors.New("config file not found")
)

// Config holds the settings read from config files. Unset pointer
// fields fall back to the layer below.
type Config struct {
	File         string `json:"file,omitempty"`
	NamesFile    string `json:"names_file,omitempty"`
	HistoryLimit int    `json:"history_limit,omitempty"`
	Backup       *bool  `json:"backup,omitempty"`
	Journal      *bool  `json:"journal,omitempty"`
	SortOnSave   *bool  `json:"sort_on_save,omitempty"`

	Sources ConfigSources `json:"-"`
}

// ConfigSources records which config files were loaded.
type ConfigSources struct {
	Global  string
	Project string
}

func boolPtr(b bool) *bool { return &b }

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return Config{
		HistoryLimit: document.DefaultHistoryLimit,
		Backup:       boolPtr(true),
		Journal:      boolPtr(true),
		SortOnSave:   boolPtr(false),
	}
}

// BackupEnabled reports whether saves make a backup first.
func (c Config) BackupEnabled() bool { return c.Backup == nil || *c.Backup }

// JournalEnabled reports whether the undo journal is kept.
func (c Config) JournalEnabled() bool { return c.Journal == nil || *c.Journal }

// SortEnabled reports whether rows are written in VNUM order.
func (c Config) SortEnabled() bool { return c.SortOnSave != nil && *c.SortOnSave }

// globalConfigPath is $XDG_CONFIG_HOME/mobproto/config.json, falling
// back to ~/.config/mobproto/config.json.
func globalConfigPath(env map[string]string) string {
	if xdg := env["XDG_CONFIG_HOME"]; xdg != "" {
		return filepath.Join(xdg, "mobproto", "config.json")
	}
	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "mobproto", "config.json")
	}
	return ""
}

// LoadConfigInput holds the inputs for LoadConfig.
type LoadConfigInput struct {
	WorkDir    string            // if empty, os.Getwd() is used
	ConfigPath string            // --config flag value
	Env        map[string]string // environment variables
}

// LoadConfig merges, lowest to highest precedence: defaults, the global
// config, then either the --config file or .mobproto.json in the
// working directory. Relative paths in a file are taken relative to
// that file.
func LoadConfig(input LoadConfigInput) (Config, error) {
	workDir := input.WorkDir
	if workDir == "" {
		var err error
		if workDir, err = os.Getwd(); err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	cfg := DefaultConfig()

	if path := globalConfigPath(input.Env); path != "" {
		global, loaded, err := loadConfigFile(path, false)
		if err != nil {
			return Config{}, err
		}
		if loaded {
			cfg = mergeConfig(cfg, global)
			cfg.Sources.Global = path
		}
	}

	path, mustExist := filepath.Join(workDir, ConfigFileName), false
	if input.ConfigPath != "" {
		path, mustExist = input.ConfigPath, true
		if !filepath.IsAbs(path) {
			path = filepath.Join(workDir, path)
		}
	}
	project, loaded, err := loadConfigFile(path, mustExist)
	if err != nil {
		return Config{}, err
	}
	if loaded {
		cfg = mergeConfig(cfg, project)
		cfg.Sources.Project = path
	}

	if cfg.HistoryLimit < 1 {
		return Config{}, fmt.Errorf("%w: history_limit must be at least 1", ErrConfigInvalid)
	}
	return cfg, nil
}

// loadConfigFile reads one config file. A missing optional file is not
// an error and reports loaded=false.
func loadConfigFile(path string, mustExist bool) (Config, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if mustExist {
				return Config{}, false, fmt.Errorf("%w: %s", ErrConfigFileNotFound, path)
			}
			return Config{}, false, nil
		}
		return Config{}, false, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg, err := parseConfig(data)
	if err != nil {
		return Config{}, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, err)
	}
	dir := filepath.Dir(path)
	cfg.File = resolvePath(dir, cfg.File)
	cfg.NamesFile = resolvePath(dir, cfg.NamesFile)
	return cfg, true, nil
}

func resolvePath(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// parseConfig accepts JSON with comments and trailing commas.
func parseConfig(data []byte) (Config, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", err)
	}
	if cfg.HistoryLimit < 0 {
		return Config{}, errors.New("history_limit must be positive")
	}
	return cfg, nil
}

func mergeConfig(base, overlay Config) Config {
	if overlay.File != "" {
		base.File = overlay.File
	}
	if overlay.NamesFile != "" {
		base.NamesFile = overlay.NamesFile
	}
	if overlay.HistoryLimit != 0 {
		base.HistoryLimit = overlay.HistoryLimit
	}
	if overlay.Backup != nil {
		base.Backup = overlay.Backup
	}
	if overlay.Journal != nil {
		base.Journal = overlay.Journal
	}
	if overlay.SortOnSave != nil {
		base.SortOnSave = overlay.SortOnSave
	}
	return base
}
