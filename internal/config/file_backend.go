//go:build !darwin

package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"
)

// xdgDir returns $env, or the home-relative fallback when it is unset.
func xdgDir(env string, fallback ...string) string {
	if dir := os.Getenv(env); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(append([]string{home}, fallback...)...)
}

func defaultDataDir() string {
	return filepath.Join(xdgDir("XDG_DATA_HOME", ".local", "share"), appName)
}

func configFilePath() string {
	return filepath.Join(xdgDir("XDG_CONFIG_HOME", ".config"), appName, "config.yaml")
}

func readYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, v)
}

// writeYAML replaces path with v, readable by the owner only.
func writeYAML(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// fileBackend keeps settings as dotted keys in one YAML mapping:
//
//	server.port: 4100
//	view.row_height: 76
type fileBackend struct {
	mu   sync.Mutex
	path string
	data map[string]any
}

func newPlatformBackend() Backend {
	return openFileBackend(configFilePath())
}

func openFileBackend(path string) *fileBackend {
	b := &fileBackend{path: path}
	if err := readYAML(path, &b.data); err != nil {
		slog.Warn("config file unreadable, using defaults", "path", path, "error", err)
		b.data = nil
	}
	if b.data == nil {
		b.data = make(map[string]any)
	}
	return b
}

func (b *fileBackend) GetString(key string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.data[key]
	if !ok {
		return "", false, nil
	}
	if s, isStr := v.(string); isStr {
		return s, true, nil
	}
	return fmt.Sprint(v), true, nil
}

func (b *fileBackend) GetInt(key string) (int, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.data[key]
	if !ok {
		return 0, false, nil
	}
	switch val := v.(type) {
	case int:
		return val, true, nil
	case string:
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, true, fmt.Errorf("invalid integer for %s: %w", key, err)
		}
		return i, true, nil
	default:
		return 0, true, fmt.Errorf("%s: want an integer, got %v", key, v)
	}
}

func (b *fileBackend) set(key string, v any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if v == nil {
		delete(b.data, key)
	} else {
		b.data[key] = v
	}
	return writeYAML(b.path, b.data)
}

func (b *fileBackend) SetString(key, val string) error  { return b.set(key, val) }
func (b *fileBackend) SetInt(key string, val int) error { return b.set(key, val) }
func (b *fileBackend) Delete(key string) error          { return b.set(key, nil) }
