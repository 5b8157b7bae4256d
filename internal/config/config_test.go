package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// envVars lists every variable Load reads; each test starts with all of them cleared.
var envVars = []string{
	"FLOWVIEW_URL", "FLOWVIEW_WS_URL", "FLOWVIEW_BASE_PATH", "FLOWVIEW_TOKEN",
	"FLOWVIEW_NATS_URL", "FLOWVIEW_NATS_SUBJECT", "FLOWVIEW_RECONNECT_DELAY",
	"FLOWVIEW_BACKOFF", "FLOWVIEW_MAX_BACKOFF", "FLOWVIEW_MAX_RECONNECTS",
	"FLOWVIEW_IDLE_TIMEOUT", "FLOWVIEW_PAGE_SIZE", "FLOWVIEW_RESYNC_ON_RECONNECT",
	"FLOWVIEW_EXPORT_DIR", "FLOWVIEW_EXPORT_INTERVAL", "FLOWVIEW_EXPORT_S3_BUCKET",
	"FLOWVIEW_EXPORT_S3_ENDPOINT", "FLOWVIEW_EXPORT_S3_REGION", "FLOWVIEW_EXPORT_S3_KEY",
}

func clearAllEnv(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, key := range envVars {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearAllEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.APIURL() != "http://localhost:2376/api/v1" {
		t.Errorf("APIURL = %q", cfg.APIURL())
	}
	if cfg.WSBase() != "ws://localhost:2376/api/v1" {
		t.Errorf("WSBase = %q", cfg.WSBase())
	}
	if cfg.ReconnectDelay != 5*time.Second {
		t.Errorf("ReconnectDelay = %v, want 5s", cfg.ReconnectDelay)
	}
	if cfg.Backoff != BackoffFixed || cfg.MaxBackoff != time.Minute || cfg.MaxReconnects != 0 {
		t.Errorf("backoff = %s/%v/%d", cfg.Backoff, cfg.MaxBackoff, cfg.MaxReconnects)
	}
	if cfg.IdleTimeout != 0 || cfg.ResyncOnReconnect {
		t.Error("liveness and resync must be off by default")
	}
	if cfg.PageSize != 15 {
		t.Errorf("PageSize = %d, want 15", cfg.PageSize)
	}
	if cfg.NATSSubject != "flow.events.>" {
		t.Errorf("NATSSubject = %q", cfg.NATSSubject)
	}
	if cfg.ExportS3Region != "us-east-1" || cfg.ExportS3Key != "flowview/" {
		t.Errorf("export defaults = %q/%q", cfg.ExportS3Region, cfg.ExportS3Key)
	}
	if cfg.Remote != "" {
		t.Errorf("Remote = %q, want none", cfg.Remote)
	}
}

func TestLoadCustom(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("FLOWVIEW_URL", "https://flow.example.com/")
	t.Setenv("FLOWVIEW_BASE_PATH", "api/v2")
	t.Setenv("FLOWVIEW_TOKEN", "tok")
	t.Setenv("FLOWVIEW_BACKOFF", "Exponential")
	t.Setenv("FLOWVIEW_MAX_BACKOFF", "30s")
	t.Setenv("FLOWVIEW_MAX_RECONNECTS", "8")
	t.Setenv("FLOWVIEW_IDLE_TIMEOUT", "45s")
	t.Setenv("FLOWVIEW_PAGE_SIZE", "50")
	t.Setenv("FLOWVIEW_RESYNC_ON_RECONNECT", "true")
	t.Setenv("FLOWVIEW_EXPORT_INTERVAL", "10m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.APIURL() != "https://flow.example.com/api/v2" {
		t.Errorf("APIURL = %q", cfg.APIURL())
	}
	if cfg.WSBase() != "wss://flow.example.com/api/v2" {
		t.Errorf("WSBase = %q", cfg.WSBase())
	}
	if cfg.Backoff != BackoffExponential || cfg.MaxBackoff != 30*time.Second || cfg.MaxReconnects != 8 {
		t.Errorf("backoff = %s/%v/%d", cfg.Backoff, cfg.MaxBackoff, cfg.MaxReconnects)
	}
	if cfg.IdleTimeout != 45*time.Second || !cfg.ResyncOnReconnect || cfg.PageSize != 50 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.ExportInterval != 10*time.Minute {
		t.Errorf("ExportInterval = %v", cfg.ExportInterval)
	}
}

func TestLoadExplicitWSURL(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("FLOWVIEW_URL", "http://api.internal:8080")
	t.Setenv("FLOWVIEW_WS_URL", "ws://push.internal:9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.WSBase() != "ws://push.internal:9090/api/v1" {
		t.Errorf("WSBase = %q", cfg.WSBase())
	}
}

func TestLoadInvalid(t *testing.T) {
	for _, tc := range []struct {
		key, value string
	}{
		{"FLOWVIEW_RECONNECT_DELAY", "soon"},
		{"FLOWVIEW_IDLE_TIMEOUT", "-1s"},
		{"FLOWVIEW_BACKOFF", "jittered"},
		{"FLOWVIEW_MAX_RECONNECTS", "-3"},
		{"FLOWVIEW_PAGE_SIZE", "0"},
		{"FLOWVIEW_RESYNC_ON_RECONNECT", "sometimes"},
		{"FLOWVIEW_URL", "ftp://flow"},
	} {
		t.Run(tc.key, func(t *testing.T) {
			clearAllEnv(t)
			t.Setenv(tc.key, tc.value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", tc.key, tc.value)
			}
		})
	}
}

func TestLoadActiveRemote(t *testing.T) {
	clearAllEnv(t)
	err := SaveRemotes(RemotesConfig{
		Active: "prod",
		Remotes: map[string]Remote{
			"prod": {URL: "https://flow.prod:2376", Token: "tok_abc", NATSURL: "nats://prod:4222"},
		},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Remote != "prod" || cfg.URL != "https://flow.prod:2376" || cfg.Token != "tok_abc" || cfg.NATSURL != "nats://prod:4222" {
		t.Errorf("cfg = %+v, want prod remote applied", cfg)
	}

	// Environment wins over the remote.
	t.Setenv("FLOWVIEW_URL", "http://localhost:9999")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.URL != "http://localhost:9999" || cfg.Remote != "" {
		t.Errorf("URL = %q remote = %q", cfg.URL, cfg.Remote)
	}
	if cfg.Token != "tok_abc" {
		t.Errorf("Token = %q, want the remote's token", cfg.Token)
	}
}

func TestRemotesRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	in := RemotesConfig{
		Active: "prod",
		Remotes: map[string]Remote{
			"prod":  {URL: "https://flow.prod", Token: "tok_abc", Description: "production"},
			"local": {URL: "http://localhost:2376"},
		},
	}
	if err := SaveRemotes(in); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := LoadRemotes()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if name, r, ok := got.ActiveRemote(); !ok || name != "prod" || r.Description != "production" {
		t.Errorf("active = %q %+v %v", name, r, ok)
	}
	if names := got.Names(); len(names) != 2 || names[0] != "local" {
		t.Errorf("Names = %v", names)
	}
}

func TestLoadRemotes_NoFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadRemotes()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Active != "" || cfg.Remotes == nil || len(cfg.Remotes) != 0 {
		t.Errorf("expected empty config, got %+v", cfg)
	}
	if _, _, ok := cfg.ActiveRemote(); ok {
		t.Error("ActiveRemote reported a remote for an empty config")
	}
}

func TestSaveRemotes_Permissions(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if err := SaveRemotes(RemotesConfig{Remotes: map[string]Remote{}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	path, _ := RemotesPath()
	check := func(p string, want os.FileMode) {
		t.Helper()
		info, err := os.Stat(p)
		if err != nil {
			t.Fatalf("stat %s: %v", p, err)
		}
		if got := info.Mode().Perm(); got != want {
			t.Errorf("%s permissions = %04o, want %04o", p, got, want)
		}
	}
	check(path, 0o600)
	check(filepath.Dir(path), 0o700)
}

func TestEnvOrDefault(t *testing.T) {
	for _, tc := range []struct {
		name     string
		key      string
		envVal   string
		remote   string
		fallback string
		want     string
	}{
		{"EmptyUsesDefault", "TEST_ENVDEFAULT_EMPTY", "", "", "default-val", "default-val"},
		{"RemoteBeatsDefault", "TEST_ENVDEFAULT_REMOTE", "", "remote-val", "default-val", "remote-val"},
		{"SetUsesEnv", "TEST_ENVDEFAULT_SET", "custom", "remote-val", "default-val", "custom"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.envVal)
			got := envOrDefault(tc.key, tc.remote, tc.fallback)
			if got != tc.want {
				t.Errorf("envOrDefault(%q) = %q, want %q", tc.key, got, tc.want)
			}
		})
	}
}
