package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "formflow.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[server]
addr = ":9000"
shutdown_timeout = "3s"

[schemas]
dir = "./schemas"

[storage]
driver = "postgres"
dsn = "postgres://localhost/formflow"
migrate = true

[log]
level = "debug"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":9000" || cfg.Server.ShutdownTimeout.Duration != 3*time.Second {
		t.Fatalf("unexpected server config %#v", cfg.Server)
	}
	if cfg.Server.ReadTimeout.Duration != 15*time.Second {
		t.Fatalf("expected default read timeout kept, got %s", cfg.Server.ReadTimeout)
	}
	if diff := cmp.Diff(DefaultCORSOrigins, cfg.Server.CORSOrigins); diff != "" {
		t.Fatalf("cors mismatch (-want +got):\n%s", diff)
	}
	if cfg.Schemas.Dir != "./schemas" || !cfg.Storage.Migrate || cfg.Log.Level != "debug" {
		t.Fatalf("unexpected config %#v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{name: "unknown key", body: "[server]\nport = 1\n"},
		{name: "bad duration", body: "[server]\nread_timeout = \"soon\"\n"},
		{name: "postgres without dsn", body: "[storage]\ndriver = \"postgres\"\n"},
		{name: "unknown driver", body: "[storage]\ndriver = \"mongo\"\n"},
		{name: "syntax", body: "[server\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.body)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
