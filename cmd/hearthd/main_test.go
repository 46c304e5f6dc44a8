package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestRun_InvalidConfig verifies run fails with a missing config file.
func TestRun_InvalidConfig(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx, "/nonexistent/path/config.yaml", false)
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_IssueTokenWithoutSecret verifies token minting requires a secret.
func TestRun_IssueTokenWithoutSecret(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
site:
  id: test-site
database:
  path: ` + filepath.Join(tmpDir, "hearth.db") + `
`
	if err := os.WriteFile(configPath, []byte(configContent), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx, configPath, true)
	if err == nil {
		t.Fatal("run() should fail minting a token with no auth secret")
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("HEARTH_CONFIG", "")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}

	t.Setenv("HEARTH_CONFIG", "/etc/hearth/config.yaml")
	if got := getConfigPath(); got != "/etc/hearth/config.yaml" {
		t.Errorf("getConfigPath() = %q, want env override", got)
	}
}
