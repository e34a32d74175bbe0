package client

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	appDirName      = "baymax"
	sessionFileName = "session.yaml"
)

// ErrNoSession is returned by LoadSession when nobody is logged in.
var ErrNoSession = errors.New("not logged in")

// Session is the persisted login state of the terminal client.
type Session struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
	UserID  string `yaml:"user_id"`
	Email   string `yaml:"email"`
	Name    string `yaml:"name,omitempty"`
}

func DefaultSessionPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(base, appDirName, sessionFileName), nil
}

// LoadSession reads the session at path.
func LoadSession(path string) (Session, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Session{}, ErrNoSession
		}
		return Session{}, fmt.Errorf("read session %s: %w", path, err)
	}
	var s Session
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return Session{}, fmt.Errorf("parse session %s: %w", path, err)
	}
	if s.Token == "" {
		return Session{}, ErrNoSession
	}
	return s, nil
}

// Save writes s to path, readable only by the current user.
func (s Session) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}
	raw, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("write session %s: %w", path, err)
	}
	return nil
}

// ClearSession removes the session at path. A missing file is not an error.
func ClearSession(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session %s: %w", path, err)
	}
	return nil
}

// Client returns an API client authenticated as s.
func (s Session) Client() *Client {
	return New(s.BaseURL, s.Token)
}
