package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"plcdb/transport"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("PLCDB_DATA_DIR", tempDir)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ExportDir != filepath.Join(tempDir, "exports") {
		t.Fatalf("unexpected export dir %q", cfg.ExportDir)
	}
	if cfg.JournalPath != filepath.Join(tempDir, "journal.db") {
		t.Fatalf("unexpected journal path %q", cfg.JournalPath)
	}
	if len(cfg.Credentials) != 1 || cfg.Credentials[0] != transport.DefaultCredential {
		t.Fatalf("expected factory credential, got %+v", cfg.Credentials)
	}
	if len(cfg.PLCs) != 0 {
		t.Fatalf("expected no configured PLCs, got %+v", cfg.PLCs)
	}

	opts := cfg.Transport("plc-kfe-motion")
	if opts.Protocol != "" || opts.Port != 0 || opts.Directory != "" {
		t.Fatalf("expected zero transport options for unknown host, got %+v", opts)
	}
	if len(opts.Credentials) != 1 || opts.Credentials[0] != transport.DefaultCredential {
		t.Fatalf("expected factory credential in transport options, got %+v", opts.Credentials)
	}
}

func TestLoadFromFile(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("PLCDB_DATA_DIR", tempDir)

	cfgPath := filepath.Join(tempDir, "config.yaml")
	raw := `export_dir: /srv/plcdb/exports
journal_path: /srv/plcdb/journal.db
scan_timeout: 5s
credentials:
  - username: Administrator
    password: 1
  - username: service
    password: secret
plcs:
  plc-kfe-motion:
    protocol: ftp
  plc-tmo-motion:
    protocol: ssh
    port: 2222
    directory: /data/pmps
`
	if err := os.WriteFile(cfgPath, []byte(raw), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ExportDir != "/srv/plcdb/exports" {
		t.Fatalf("unexpected export dir %q", cfg.ExportDir)
	}
	if cfg.JournalPath != "/srv/plcdb/journal.db" {
		t.Fatalf("unexpected journal path %q", cfg.JournalPath)
	}
	if cfg.ScanTimeout != 5*time.Second {
		t.Fatalf("unexpected scan timeout %v", cfg.ScanTimeout)
	}
	if len(cfg.Credentials) != 2 {
		t.Fatalf("expected 2 credentials, got %+v", cfg.Credentials)
	}
	if cfg.Credentials[0] != (transport.Credential{Username: "Administrator", Password: "1"}) {
		t.Fatalf("expected numeric password to load as string, got %+v", cfg.Credentials[0])
	}
	if cfg.Credentials[1].Username != "service" {
		t.Fatalf("credential order not preserved: %+v", cfg.Credentials)
	}

	opts := cfg.Transport("plc-tmo-motion")
	if opts.Protocol != transport.ProtocolSSH || opts.Port != 2222 || opts.Directory != "/data/pmps" {
		t.Fatalf("unexpected transport options %+v", opts)
	}
	if len(opts.Credentials) != 2 {
		t.Fatalf("expected shared credentials, got %+v", opts.Credentials)
	}
	if cfg.Transport("plc-kfe-motion").Protocol != transport.ProtocolFTP {
		t.Fatalf("expected ftp protocol for plc-kfe-motion")
	}
}

func TestLoadRejectsUnknownProtocol(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("PLCDB_DATA_DIR", tempDir)

	cfgPath := filepath.Join(tempDir, "config.yaml")
	raw := `plcs:
  plc-kfe-motion:
    protocol: telnet
`
	if err := os.WriteFile(cfgPath, []byte(raw), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(cfgPath); err == nil {
		t.Fatalf("expected invalid protocol to be rejected")
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("PLCDB_DATA_DIR", tempDir)

	if _, err := Load(filepath.Join(tempDir, "absent.yaml")); err == nil {
		t.Fatalf("expected missing explicit config to be an error")
	}
}
