// Package config names the three files plexdrive persists in its config
// directory: config.json (application OAuth credentials), token.json (the
// OAuth token cache, owned by internal/remote/auth), and cache.db (the
// metadata store, owned by internal/metadata). It loads and writes
// config.json itself; Wipe removes all three.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Credentials is the shape of config.json.
type Credentials struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// fileName is config.json's name within the config directory.
const fileName = "config.json"

// TokenFileName is token.json's name within the config directory.
const TokenFileName = "token.json"

// DatabaseFileName is cache.db's name within the config directory.
const DatabaseFileName = "cache.db"

// Path returns the path to config.json within dir.
func Path(dir string) string {
	return filepath.Join(dir, fileName)
}

// Load reads and parses config.json from dir.
func Load(dir string) (Credentials, error) {
	data, err := os.ReadFile(Path(dir))
	if err != nil {
		return Credentials{}, fmt.Errorf("config: reading %q: %w", Path(dir), err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return Credentials{}, fmt.Errorf("config: parsing %q: %w", Path(dir), err)
	}
	return creds, nil
}

// Write creates dir if necessary and writes config.json.
func Write(dir string, creds Credentials) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("config: creating %q: %w", dir, err)
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("config: encoding credentials: %w", err)
	}

	if err := os.WriteFile(Path(dir), data, 0o600); err != nil {
		return fmt.Errorf("config: writing %q: %w", Path(dir), err)
	}
	return nil
}

// Wipe removes every file plexdrive persists in dir, used by `init` to
// start from a clean slate.
func Wipe(dir string) error {
	for _, name := range []string{fileName, TokenFileName, DatabaseFileName} {
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("config: removing %q: %w", path, err)
		}
	}
	return nil
}
