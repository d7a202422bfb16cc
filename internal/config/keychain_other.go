//go:build !darwin

package config

import (
	"fmt"
	"path/filepath"
)

// secrets.yaml maps service -> account -> value. It lives next to the data
// dir rather than the config dir so `config show` never reads it.
func secretsFilePath() string {
	return filepath.Join(xdgDir("XDG_DATA_HOME", ".local", "share"), appName, "secrets.yaml")
}

func loadSecrets(path string) (map[string]map[string]string, error) {
	var secrets map[string]map[string]string
	if err := readYAML(path, &secrets); err != nil {
		return nil, fmt.Errorf("parsing secrets file: %w", err)
	}
	return secrets, nil
}

func keychainGet(service, account string) ([]byte, error) {
	secrets, err := loadSecrets(secretsFilePath())
	if err != nil {
		return nil, err
	}
	val, ok := secrets[service][account]
	if !ok {
		return nil, fmt.Errorf("no secret %s/%s", service, account)
	}
	return []byte(val), nil
}

func keychainSet(service, account, value string) error {
	path := secretsFilePath()
	secrets, err := loadSecrets(path)
	if err != nil {
		return err
	}
	if secrets == nil {
		secrets = make(map[string]map[string]string)
	}
	if secrets[service] == nil {
		secrets[service] = make(map[string]string)
	}
	secrets[service][account] = value
	return writeYAML(path, secrets)
}
