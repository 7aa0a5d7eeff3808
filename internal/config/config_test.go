package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mailbak.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

const validConfig = `
name = "personal"

[jmap]
session_url = "https://mail.example.com/.well-known/jmap"
auth_mode = "bearer"
username = "me@example.com"

[storage]
backend = "fs"
path = "/var/backups/mail"

[search]
enabled = true
path = "/var/backups/mail.bleve"
`

func TestLoadValidFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Name != "personal" {
		t.Errorf("Name = %q, want %q", cfg.Name, "personal")
	}
	if cfg.JMAP.AuthMode != "bearer" {
		t.Errorf("AuthMode = %q, want %q", cfg.JMAP.AuthMode, "bearer")
	}
	if cfg.Storage.Path != "/var/backups/mail" {
		t.Errorf("Storage.Path = %q, want %q", cfg.Storage.Path, "/var/backups/mail")
	}
	if !cfg.Search.Enabled {
		t.Error("Search.Enabled = false, want true")
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
[jmap]
session_url = "https://mail.example.com/.well-known/jmap"
username = "me@example.com"

[storage]
path = "/tmp/backup"
`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.JMAP.AuthMode != "basic" {
		t.Errorf("default AuthMode = %q, want basic", cfg.JMAP.AuthMode)
	}
	if cfg.Storage.Backend != "fs" {
		t.Errorf("default Backend = %q, want fs", cfg.Storage.Backend)
	}
	if !cfg.Search.Enabled {
		t.Error("default Search.Enabled = false, want true")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("MAILBAK_JMAP_USERNAME", "env@example.com")
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.JMAP.Username != "env@example.com" {
		t.Errorf("Username = %q, want the environment override", cfg.JMAP.Username)
	}
}

func TestLoadExplicitPathMustExist(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("Load() error = nil, want failure for a missing explicit file")
	}
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name string
		toml string
	}{
		{"missing session url", `
[jmap]
username = "me@example.com"
[storage]
path = "/tmp/b"
`},
		{"missing username", `
[jmap]
session_url = "https://x/.well-known/jmap"
[storage]
path = "/tmp/b"
`},
		{"bad auth mode", `
[jmap]
session_url = "https://x/.well-known/jmap"
username = "me@example.com"
auth_mode = "ntlm"
[storage]
path = "/tmp/b"
`},
		{"fs without path", `
[jmap]
session_url = "https://x/.well-known/jmap"
username = "me@example.com"
[storage]
backend = "fs"
`},
		{"s3 without bucket", `
[jmap]
session_url = "https://x/.well-known/jmap"
username = "me@example.com"
[storage]
backend = "s3"
`},
		{"unknown backend", `
[jmap]
session_url = "https://x/.well-known/jmap"
username = "me@example.com"
[storage]
backend = "tape"
`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.toml))
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("Load() error = %v, want ErrInvalid", err)
			}
		})
	}
}
