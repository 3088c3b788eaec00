package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/roster/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
	envPrefix      = "ROSTER"

	keyBackend = "backend"
	keyDataDir = "data_dir"

	defaultAddr = ":8080"
)

// settings is the decoded configuration.
type settings struct {
	Backend  string               `mapstructure:"backend"`
	DataDir  string               `mapstructure:"data_dir"`
	SQLite   types.SQLiteConfig   `mapstructure:"sqlite"`
	Postgres types.PostgresConfig `mapstructure:"postgres"`
	HTTP     httpSettings         `mapstructure:"http"`
	Log      logSettings          `mapstructure:"log"`
}

type httpSettings struct {
	Addr        string   `mapstructure:"addr"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type logSettings struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// configFile is the shape written to a fresh config.yaml.
type configFile struct {
	Backend string     `yaml:"backend"`
	DataDir string     `yaml:"data_dir,omitempty"`
	SQLite  sqliteFile `yaml:"sqlite"`
	HTTP    httpFile   `yaml:"http"`
	Log     logFile    `yaml:"log"`
}

type sqliteFile struct {
	SyncStrategy string `yaml:"sync_strategy"`
}

type httpFile struct {
	Addr string `yaml:"addr"`
}

type logFile struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

const configHeader = `# Roster configuration.
# Every key can be overridden by a ROSTER_ environment variable, for example
# ROSTER_BACKEND=postgres or ROSTER_POSTGRES_DSN=postgres://...
`

func setDefaults(v *viper.Viper) {
	v.SetDefault(keyBackend, types.BackendSQLite)
	v.SetDefault(keyDataDir, "")
	v.SetDefault("sqlite.sync_strategy", types.SyncImmediate)
	v.SetDefault("sqlite.batch_size", types.DefaultBatchSize)
	v.SetDefault("sqlite.batch_interval", types.DefaultBatchInterval)
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.max_conns", 0)
	v.SetDefault("http.addr", defaultAddr)
	v.SetDefault("http.cors_origins", []string{})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// loadConfig reads config.yaml from configDir, creating the directory and a
// default file on first run. dataDir, when set, is recorded in a new file.
func loadConfig(configDir, dataDir string) (settings, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return settings{}, fmt.Errorf("create config dir: %w", err)
	}
	if err := writeConfigIfMissing(filepath.Join(configDir, configFileExt), dataDir); err != nil {
		return settings{}, fmt.Errorf("write default config: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return settings{}, fmt.Errorf("read config: %w", err)
		}
	}

	// data_dir from the file outranks ROSTER_DATA_DIR, so take it before
	// environment lookups are switched on.
	fileDataDir := v.GetString(keyDataDir)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var s settings
	if err := v.Unmarshal(&s); err != nil {
		return settings{}, fmt.Errorf("decode config: %w", err)
	}
	s.DataDir = fileDataDir
	return s, nil
}

// writeConfigIfMissing creates a default config.yaml at path. An existing
// file is left alone.
func writeConfigIfMissing(path, dataDir string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}

	data, err := yaml.Marshal(configFile{
		Backend: types.BackendSQLite,
		DataDir: dataDir,
		SQLite:  sqliteFile{SyncStrategy: types.SyncImmediate},
		HTTP:    httpFile{Addr: defaultAddr},
		Log:     logFile{Level: "info"},
	})
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, append([]byte(configHeader), data...), 0o644)
}

// storeConfig assembles the backend configuration for this invocation.
func (a *app) storeConfig() types.Config {
	return types.Config{
		Backend:        a.settings.Backend,
		DataDir:        a.dataDir,
		SQLiteConfig:   a.settings.SQLite,
		PostgresConfig: a.settings.Postgres,
	}
}
