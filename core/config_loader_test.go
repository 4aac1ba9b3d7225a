package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseYAMLConfig_NormalizesDurations(t *testing.T) {
	raw, err := ParseYAMLConfig([]byte(`
client_name: billing
fail_on_fault: true
transport:
  user_agent: billing-agent/1.0
  timeout: 45s
poll:
  max_attempts: 12
  initial_wait: 2s
  max_wait: 1m
  timeout: 10m
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	transport, ok := raw["transport"].(map[string]any)
	if !ok {
		t.Fatalf("expected transport map, got %#v", raw["transport"])
	}
	if transport["timeout"] != 45*time.Second {
		t.Fatalf("expected parsed transport timeout, got %#v", transport["timeout"])
	}
	poll := raw["poll"].(map[string]any)
	if poll["initial_wait"] != 2*time.Second || poll["max_wait"] != time.Minute || poll["timeout"] != 10*time.Minute {
		t.Fatalf("unexpected poll durations: %#v", poll)
	}
	if poll["max_attempts"] != 12 {
		t.Fatalf("expected max_attempts untouched, got %#v", poll["max_attempts"])
	}
}

func TestParseYAMLConfig_RejectsInvalidDuration(t *testing.T) {
	if _, err := ParseYAMLConfig([]byte("poll:\n  max_wait: soon\n")); err == nil {
		t.Fatalf("expected invalid duration error")
	}
}

func TestYAMLFileLoader_LoadsFileIntoClientConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "soap.yaml")
	content := "client_name: from-file\npoll:\n  max_attempts: 7\n  initial_wait: 3s\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	client, err := NewClient(Config{},
		WithConfigProvider(NewCfgxConfigProvider(NewYAMLFileLoader(path))),
		WithTransport(newScriptedTransport()),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	cfg := client.Config()
	if cfg.ClientName != "from-file" {
		t.Fatalf("expected client name from file, got %q", cfg.ClientName)
	}
	if cfg.Poll.MaxAttempts != 7 || cfg.Poll.InitialWait != 3*time.Second {
		t.Fatalf("unexpected poll settings from file: %#v", cfg.Poll)
	}
}

func TestYAMLFileLoader_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := NewYAMLFileLoader(path).LoadRaw(context.Background()); err == nil {
		t.Fatalf("expected missing file error")
	}
	raw, err := YAMLFileLoader{Path: path, Optional: true}.LoadRaw(context.Background())
	if err != nil {
		t.Fatalf("optional load: %v", err)
	}
	if len(raw) != 0 {
		t.Fatalf("expected empty config, got %#v", raw)
	}
}
