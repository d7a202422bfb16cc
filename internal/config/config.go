package config

import (
	"time"
)

const appName = "talentflow"

// Backend is the platform settings store: UserDefaults on macOS, a YAML file
// elsewhere. Secrets never go through it.
type Backend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	Delete(key string) error
}

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Log     LogConfig
	Client  ClientConfig
	View    ViewConfig
	Notify  NotifyConfig
}

type ServerConfig struct {
	Port     int
	BaseURL  string
	APIToken string
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

type ClientConfig struct {
	Timeout time.Duration
}

// ViewConfig sizes the windowed list views.
type ViewConfig struct {
	RowHeight      int
	ViewportHeight int
	Overscan       int
	PageSize       int
}

type NotifyConfig struct {
	Duration time.Duration
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:    4100,
			BaseURL: "http://127.0.0.1:4100",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
		Client: ClientConfig{
			Timeout: 10 * time.Second,
		},
		View: ViewConfig{
			RowHeight:      76,
			ViewportHeight: 600,
			Overscan:       5,
			PageSize:       10,
		},
		Notify: NotifyConfig{
			Duration: 3 * time.Second,
		},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and platform secret store.
//
// On macOS the backend is UserDefaults (domain io.talentflow.cli) and the
// API token lives in the Keychain.
// Elsewhere the backend is $XDG_CONFIG_HOME/talentflow/config.yaml and the
// token lives in $XDG_DATA_HOME/talentflow/secrets.yaml.
//
// Environment variables (TALENTFLOW_*) override backend values on all platforms.
// A missing API token is not an error; see APIToken.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), NewKeychain())
}

func loadWith(b Backend, kc Keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Server.APIToken == "" {
		if tok, err := kc.Get(secretService, tokenAccount); err == nil && tok != "" {
			cfg.Server.APIToken = tok
		}
	}

	return cfg, nil
}
