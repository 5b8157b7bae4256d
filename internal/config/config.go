// Package config loads fv settings from FLOWVIEW_* environment variables,
// falling back to the active named remote and then to built-in defaults.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Backoff strategies accepted by FLOWVIEW_BACKOFF.
const (
	BackoffFixed       = "fixed"
	BackoffExponential = "exponential"
)

type Config struct {
	Remote   string // name of the active remote, if one was applied
	URL      string // FLOWVIEW_URL (default "http://localhost:2376")
	WSURL    string // FLOWVIEW_WS_URL (derived from URL when empty)
	BasePath string // FLOWVIEW_BASE_PATH (default "/api/v1")
	Token    string // FLOWVIEW_TOKEN (optional)

	NATSURL     string // FLOWVIEW_NATS_URL (optional, empty = SSE events only)
	NATSSubject string // FLOWVIEW_NATS_SUBJECT (default "flow.events.>")

	// Push channel settings
	ReconnectDelay    time.Duration // FLOWVIEW_RECONNECT_DELAY (default 5s)
	Backoff           string        // FLOWVIEW_BACKOFF (fixed|exponential, default fixed)
	MaxBackoff        time.Duration // FLOWVIEW_MAX_BACKOFF (default 1m)
	MaxReconnects     int           // FLOWVIEW_MAX_RECONNECTS (0 = unbounded)
	IdleTimeout       time.Duration // FLOWVIEW_IDLE_TIMEOUT (0 = off)
	PageSize          int           // FLOWVIEW_PAGE_SIZE (default 15)
	ResyncOnReconnect bool          // FLOWVIEW_RESYNC_ON_RECONNECT (default false)

	// Export settings
	ExportDir        string        // FLOWVIEW_EXPORT_DIR (enables file export when set)
	ExportInterval   time.Duration // FLOWVIEW_EXPORT_INTERVAL (0 = on demand only)
	ExportS3Bucket   string        // FLOWVIEW_EXPORT_S3_BUCKET (enables S3 when set)
	ExportS3Endpoint string        // FLOWVIEW_EXPORT_S3_ENDPOINT (custom endpoint for MinIO)
	ExportS3Region   string        // FLOWVIEW_EXPORT_S3_REGION (default "us-east-1")
	ExportS3Key      string        // FLOWVIEW_EXPORT_S3_KEY (key prefix, default "flowview/")
}

// Load reads the configuration. Values set in the environment win over the
// active remote in remotes.toml, which wins over defaults.
func Load() (*Config, error) {
	remotes, err := LoadRemotes()
	if err != nil {
		return nil, fmt.Errorf("loading remotes: %w", err)
	}
	name, remote, _ := remotes.ActiveRemote()
	return load(name, remote)
}

func load(remoteName string, r Remote) (*Config, error) {
	c := &Config{
		URL:              envOrDefault("FLOWVIEW_URL", r.URL, "http://localhost:2376"),
		WSURL:            envOrDefault("FLOWVIEW_WS_URL", r.WSURL, ""),
		BasePath:         envOrDefault("FLOWVIEW_BASE_PATH", "", "/api/v1"),
		Token:            envOrDefault("FLOWVIEW_TOKEN", r.Token, ""),
		NATSURL:          envOrDefault("FLOWVIEW_NATS_URL", r.NATSURL, ""),
		NATSSubject:      envOrDefault("FLOWVIEW_NATS_SUBJECT", "", "flow.events.>"),
		Backoff:          strings.ToLower(envOrDefault("FLOWVIEW_BACKOFF", "", BackoffFixed)),
		ExportDir:        os.Getenv("FLOWVIEW_EXPORT_DIR"),
		ExportS3Bucket:   os.Getenv("FLOWVIEW_EXPORT_S3_BUCKET"),
		ExportS3Endpoint: os.Getenv("FLOWVIEW_EXPORT_S3_ENDPOINT"),
		ExportS3Region:   envOrDefault("FLOWVIEW_EXPORT_S3_REGION", "", "us-east-1"),
		ExportS3Key:      envOrDefault("FLOWVIEW_EXPORT_S3_KEY", "", "flowview/"),
	}
	if os.Getenv("FLOWVIEW_URL") == "" && r.URL != "" {
		c.Remote = remoteName
	}

	if _, err := url.Parse(c.URL); err != nil {
		return nil, fmt.Errorf("FLOWVIEW_URL: %w", err)
	}
	if c.WSURL == "" {
		ws, err := DeriveWSURL(c.URL)
		if err != nil {
			return nil, fmt.Errorf("FLOWVIEW_URL: %w", err)
		}
		c.WSURL = ws
	}
	if !strings.HasPrefix(c.BasePath, "/") {
		c.BasePath = "/" + c.BasePath
	}

	switch c.Backoff {
	case BackoffFixed, BackoffExponential:
	default:
		return nil, fmt.Errorf("FLOWVIEW_BACKOFF: unknown strategy %q (want %s or %s)", c.Backoff, BackoffFixed, BackoffExponential)
	}

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"FLOWVIEW_RECONNECT_DELAY", "5s", &c.ReconnectDelay},
		{"FLOWVIEW_MAX_BACKOFF", "1m", &c.MaxBackoff},
		{"FLOWVIEW_IDLE_TIMEOUT", "0", &c.IdleTimeout},
		{"FLOWVIEW_EXPORT_INTERVAL", "0", &c.ExportInterval},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(envOrDefault(d.key, "", d.def))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.key, err)
		}
		if v < 0 {
			return nil, fmt.Errorf("%s: must not be negative", d.key)
		}
		*d.dst = v
	}

	if v := os.Getenv("FLOWVIEW_MAX_RECONNECTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("FLOWVIEW_MAX_RECONNECTS: want a non-negative integer, got %q", v)
		}
		c.MaxReconnects = n
	}

	c.PageSize = 15
	if v := os.Getenv("FLOWVIEW_PAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("FLOWVIEW_PAGE_SIZE: want a positive integer, got %q", v)
		}
		c.PageSize = n
	}

	if v := os.Getenv("FLOWVIEW_RESYNC_ON_RECONNECT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("FLOWVIEW_RESYNC_ON_RECONNECT: %w", err)
		}
		c.ResyncOnReconnect = b
	}

	return c, nil
}

// APIURL is the REST base, e.g. http://localhost:2376/api/v1.
func (c *Config) APIURL() string {
	return strings.TrimRight(c.URL, "/") + c.BasePath
}

// WSBase is the websocket base, e.g. ws://localhost:2376/api/v1.
func (c *Config) WSBase() string {
	return strings.TrimRight(c.WSURL, "/") + c.BasePath
}

// DeriveWSURL maps an http(s) origin to the matching ws(s) origin.
func DeriveWSURL(httpURL string) (string, error) {
	u, err := url.Parse(httpURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	return u.String(), nil
}

func envOrDefault(key, remote, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	if remote != "" {
		return remote
	}
	return fallback
}
