package client

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrNoIdentity is returned by identity sources when no usable user
// record exists.
var ErrNoIdentity = errors.New("no stored user identity")

// Identity is the user record attached to every submission.
type Identity struct {
	UserID string `yaml:"user_id" json:"user_id"`
	APIKey string `yaml:"api_key" json:"api_key"`
}

// IdentitySource resolves the current user identity. The client treats it
// as a read-only external input and fails cleanly when it is absent.
type IdentitySource interface {
	Identity() (Identity, error)
}

type staticIdentity struct {
	id Identity
}

func (s staticIdentity) Identity() (Identity, error) {
	if s.id.UserID == "" {
		return Identity{}, ErrNoIdentity
	}
	return s.id, nil
}

// Static returns an IdentitySource with a fixed user ID and API key.
func Static(userID, apiKey string) IdentitySource {
	return staticIdentity{id: Identity{UserID: userID, APIKey: apiKey}}
}

type fileIdentity struct {
	path string
}

func (f fileIdentity) Identity() (Identity, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Identity{}, ErrNoIdentity
		}
		return Identity{}, fmt.Errorf("reading credentials file: %w", err)
	}
	var id Identity
	if err := yaml.Unmarshal(data, &id); err != nil {
		return Identity{}, fmt.Errorf("parsing credentials file: %w", err)
	}
	if id.UserID == "" {
		return Identity{}, ErrNoIdentity
	}
	return id, nil
}

// FromFile returns an IdentitySource that reads a YAML credentials file
// on every resolution, so external updates are picked up without restart.
func FromFile(path string) IdentitySource {
	return fileIdentity{path: path}
}

// DefaultCredentialsPath returns ~/.contentry/credentials.yaml.
func DefaultCredentialsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".contentry", "credentials.yaml"), nil
}
