// Package config locates the loom workspace and loads its settings.
//
// A workspace is a directory containing a .loom/ subdirectory. Settings come
// from .loom/config.yaml, overridable through LOOM_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// WorkspaceDirName is the marker directory at the workspace root.
	WorkspaceDirName = ".loom"

	// ConfigFileName is the settings file inside the workspace directory.
	ConfigFileName = "config.yaml"

	// LockFileName is the advisory write lock inside the workspace directory.
	LockFileName = "loom.lock"

	envPrefix = "LOOM"
)

// Config holds workspace settings.
type Config struct {
	// Database is the SQLite file name, relative to the workspace directory.
	Database string

	// LogFile is where structured logs go. Empty means stderr.
	LogFile string

	// LogLevel is one of debug, info, warn, error.
	LogLevel string

	// LogMaxSizeMB caps a single log file before rotation.
	LogMaxSizeMB int

	// LogMaxBackups caps the number of rotated files kept.
	LogMaxBackups int

	// LockTimeout bounds how long a command waits for the workspace lock.
	LockTimeout time.Duration

	// HistoryLimit is the default number of actions shown by history listings.
	HistoryLimit int

	// NoColor disables terminal styling.
	NoColor bool
}

func defaults(v *viper.Viper) {
	v.SetDefault("database", "loom.db")
	v.SetDefault("log-file", "")
	v.SetDefault("log-level", "info")
	v.SetDefault("log-max-size-mb", 10)
	v.SetDefault("log-max-backups", 3)
	v.SetDefault("lock-timeout", 10*time.Second)
	v.SetDefault("history-limit", 20)
	v.SetDefault("no-color", false)
}

// Load reads settings from loomDir/config.yaml. A missing file yields the
// defaults; environment variables always apply.
func Load(loomDir string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(filepath.Join(loomDir, ConfigFileName))
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	defaults(v)

	if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := &Config{
		Database:      v.GetString("database"),
		LogFile:       v.GetString("log-file"),
		LogLevel:      v.GetString("log-level"),
		LogMaxSizeMB:  v.GetInt("log-max-size-mb"),
		LogMaxBackups: v.GetInt("log-max-backups"),
		LockTimeout:   v.GetDuration("lock-timeout"),
		HistoryLimit:  v.GetInt("history-limit"),
		NoColor:       v.GetBool("no-color"),
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("database name must not be empty")
	}
	return cfg, nil
}

// DatabasePath resolves the SQLite file within the workspace directory.
func (c *Config) DatabasePath(loomDir string) string {
	if filepath.IsAbs(c.Database) {
		return c.Database
	}
	return filepath.Join(loomDir, c.Database)
}

// LockPath resolves the workspace lock file.
func LockPath(loomDir string) string {
	return filepath.Join(loomDir, LockFileName)
}

// FindWorkspace walks up from start looking for a .loom directory and
// returns its path. Returns os.ErrNotExist when no workspace is found.
func FindWorkspace(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", start, err)
	}
	for {
		candidate := filepath.Join(dir, WorkspaceDirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s directory found above %s: %w",
				WorkspaceDirName, start, os.ErrNotExist)
		}
		dir = parent
	}
}

// InitWorkspace creates the .loom directory under root with a commented
// default config.yaml. It fails if the workspace already exists.
func InitWorkspace(root string) (string, error) {
	loomDir := filepath.Join(root, WorkspaceDirName)
	if _, err := os.Stat(loomDir); err == nil {
		return "", fmt.Errorf("workspace already initialized at %s", loomDir)
	}
	if err := os.MkdirAll(loomDir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", loomDir, err)
	}
	configPath := filepath.Join(loomDir, ConfigFileName)
	if err := os.WriteFile(configPath, []byte(defaultConfigYAML), 0o600); err != nil {
		return "", fmt.Errorf("writing %s: %w", configPath, err)
	}
	return loomDir, nil
}

const defaultConfigYAML = `# loom workspace configuration.
# Every key can be overridden with a LOOM_* environment variable,
# e.g. LOOM_LOG_LEVEL=debug.

# database: loom.db
# log-file: loom.log
# log-level: info
# lock-timeout: 10s
# history-limit: 20
# no-color: false
`
