package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/alfredjeanlab/flowview/internal/config"
)

func TestRemoteLifecycle(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	mustRun := func(fn func() error) {
		t.Helper()
		if err := fn(); err != nil {
			t.Fatal(err)
		}
	}
	var buf bytes.Buffer
	remoteAddCmd.SetOut(&buf)
	remoteUseCmd.SetOut(&buf)
	remoteRemoveCmd.SetOut(&buf)

	mustRun(func() error { return remoteAddCmd.RunE(remoteAddCmd, []string{"local", "http://localhost:8080"}) })
	mustRun(func() error { return remoteAddCmd.RunE(remoteAddCmd, []string{"local", "http://localhost:8080"}) }) // upsert
	mustRun(func() error { return remoteUseCmd.RunE(remoteUseCmd, []string{"local"}) })

	rc, err := config.LoadRemotes()
	if err != nil {
		t.Fatal(err)
	}
	if rc.Active != "local" || len(rc.Remotes) != 1 {
		t.Fatalf("remotes = %+v", rc)
	}

	buf.Reset()
	remoteListCmd.SetOut(&buf)
	mustRun(func() error { return remoteListCmd.RunE(remoteListCmd, nil) })
	if !strings.Contains(buf.String(), "* local") {
		t.Errorf("list missing active marker; got:\n%s", buf.String())
	}

	buf.Reset()
	remoteShowCmd.SetOut(&buf)
	mustRun(func() error { return remoteShowCmd.RunE(remoteShowCmd, nil) })
	out := buf.String()
	if !strings.Contains(out, "http://localhost:8080") || !strings.Contains(out, "(active)") {
		t.Errorf("show missing expected content; got:\n%s", out)
	}

	mustRun(func() error { return remoteRemoveCmd.RunE(remoteRemoveCmd, []string{"local"}) })
	rc, _ = config.LoadRemotes()
	if _, ok := rc.Remotes["local"]; ok {
		t.Error("remote 'local' should be gone")
	}
	if rc.Active != "" {
		t.Errorf("Active should be cleared, got %q", rc.Active)
	}
}

func TestRemoteAdd_RejectsBadURL(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	if err := remoteAddCmd.RunE(remoteAddCmd, []string{"bad", "ftp://example.com"}); err == nil {
		t.Fatal("expected error for non-http url")
	}
}

func TestRemoteTokenHandling(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if err := remoteAddCmd.Flags().Set("token", "tok_verylongsecret"); err != nil {
		t.Fatalf("set token flag: %v", err)
	}
	t.Cleanup(func() { _ = remoteAddCmd.Flags().Set("token", "") })

	var buf bytes.Buffer
	remoteAddCmd.SetOut(&buf)
	remoteUseCmd.SetOut(&buf)
	if err := remoteAddCmd.RunE(remoteAddCmd, []string{"prod", "https://flow.example.com"}); err != nil {
		t.Fatal(err)
	}
	if err := remoteUseCmd.RunE(remoteUseCmd, []string{"prod"}); err != nil {
		t.Fatal(err)
	}

	buf.Reset()
	remoteListCmd.SetOut(&buf)
	if err := remoteListCmd.RunE(remoteListCmd, nil); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "tok_verylongsecret") {
		t.Error("full token must not appear in list output")
	}
	if !strings.Contains(buf.String(), "tok_very...") {
		t.Errorf("expected truncated token in list; got:\n%s", buf.String())
	}

	buf.Reset()
	remoteShowCmd.SetOut(&buf)
	if err := remoteShowCmd.RunE(remoteShowCmd, nil); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "tok_verylongsecret") {
		t.Error("full token must not appear in show output")
	}
	if !strings.Contains(buf.String(), "tok_very**********") {
		t.Errorf("expected masked token in show; got:\n%s", buf.String())
	}
}

func TestRemoteErrorCases(t *testing.T) {
	tests := []struct {
		name string
		fn   func() error
	}{
		{"use unknown", func() error { return remoteUseCmd.RunE(remoteUseCmd, []string{"ghost"}) }},
		{"remove unknown", func() error { return remoteRemoveCmd.RunE(remoteRemoveCmd, []string{"ghost"}) }},
		{"show no active", func() error { return remoteShowCmd.RunE(remoteShowCmd, nil) }},
		{"show unknown", func() error { return remoteShowCmd.RunE(remoteShowCmd, []string{"ghost"}) }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("HOME", t.TempDir())
			if err := tc.fn(); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestMaskToken(t *testing.T) {
	tests := []struct {
		token, mask, want string
	}{
		{"short", "*", "short"},
		{"abcdefgh", "...", "abcdefgh"},
		{"abcdefghij", "*", "abcdefgh**"},
		{"abcdefghij", "...", "abcdefgh..."},
	}
	for _, tt := range tests {
		if got := maskToken(tt.token, tt.mask); got != tt.want {
			t.Errorf("maskToken(%q, %q) = %q, want %q", tt.token, tt.mask, got, tt.want)
		}
	}
}

func TestEditRemotes_PersistsEdit(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	var buf bytes.Buffer
	err := editRemotes(&buf, func(rc *config.RemotesConfig) (string, error) {
		rc.Remotes["prod"] = config.Remote{URL: "https://flow.example.com"}
		rc.Active = "prod"
		return "edited", nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if buf.String() != "edited\n" {
		t.Errorf("message = %q", buf.String())
	}
	rc, err := config.LoadRemotes()
	if err != nil {
		t.Fatal(err)
	}
	if rc.Active != "prod" || rc.Remotes["prod"].URL != "https://flow.example.com" {
		t.Fatalf("remotes = %+v", rc)
	}

	// A failing edit leaves the file untouched.
	err = editRemotes(&buf, func(rc *config.RemotesConfig) (string, error) {
		delete(rc.Remotes, "prod")
		return "", errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	rc, _ = config.LoadRemotes()
	if _, ok := rc.Remotes["prod"]; !ok {
		t.Error("failed edit was saved")
	}
}
