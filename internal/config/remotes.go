package config

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
)

// RemotesConfig holds all named remotes and tracks which one is active.
type RemotesConfig struct {
	Active  string            `toml:"active"`
	Remotes map[string]Remote `toml:"remotes"`
}

// Remote is a named flow engine profile.
type Remote struct {
	URL         string `toml:"url"`
	WSURL       string `toml:"ws_url,omitempty"`
	Token       string `toml:"token,omitempty"`
	NATSURL     string `toml:"nats_url,omitempty"`
	Description string `toml:"description,omitempty"`
}

// ActiveRemote returns the active remote, if one is set and exists.
func (c RemotesConfig) ActiveRemote() (string, Remote, bool) {
	if c.Active == "" {
		return "", Remote{}, false
	}
	r, ok := c.Remotes[c.Active]
	return c.Active, r, ok
}

// Names returns the remote names in sorted order.
func (c RemotesConfig) Names() []string {
	names := make([]string, 0, len(c.Remotes))
	for name := range c.Remotes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RemotesPath returns ~/.local/state/flowview/remotes.toml, creating the
// directory if needed.
func RemotesPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".local", "state", "flowview")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "remotes.toml"), nil
}

// LoadRemotes reads remotes.toml. A missing file yields an empty config.
func LoadRemotes() (RemotesConfig, error) {
	path, err := RemotesPath()
	if err != nil {
		return RemotesConfig{}, err
	}
	var cfg RemotesConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if os.IsNotExist(err) {
			return RemotesConfig{Remotes: map[string]Remote{}}, nil
		}
		return RemotesConfig{}, err
	}
	if cfg.Remotes == nil {
		cfg.Remotes = map[string]Remote{}
	}
	return cfg, nil
}

// SaveRemotes writes cfg to remotes.toml with owner-only permissions.
func SaveRemotes(cfg RemotesConfig) error {
	path, err := RemotesPath()
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}
