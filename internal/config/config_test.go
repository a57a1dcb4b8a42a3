package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if !cfg.DryRun {
		t.Error("Dry-run should be the default mode")
	}
	if cfg.MaxBatchSize != 10 {
		t.Errorf("Expected default batch size 10, got %d", cfg.MaxBatchSize)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("Expected default max retries 3, got %d", cfg.MaxRetries)
	}
	if cfg.PollInterval != 2*time.Second {
		t.Errorf("Expected 2s poll interval, got %v", cfg.PollInterval)
	}
	if cfg.ProxyMode != "no-proxy" {
		t.Errorf("Expected no-proxy default, got %q", cfg.ProxyMode)
	}
}

func TestLoadFromEnvFile(t *testing.T) {
	base := t.TempDir()
	if err := os.MkdirAll(filepath.Join(base, "config"), 0o755); err != nil {
		t.Fatal(err)
	}
	envContent := "TJ_USERNAME=alice\nTJ_PASSWORD=secret\nDRY_RUN=false\nBATCH_SIZE=5\nTIMEOUT=10000\n"
	if err := os.WriteFile(filepath.Join(base, "config", ".env"), []byte(envContent), 0o600); err != nil {
		t.Fatal(err)
	}
	// godotenv only sets unset variables; clear anything a developer shell
	// might have exported.
	for _, key := range []string{"TJ_USERNAME", "TJ_PASSWORD", "DRY_RUN", "BATCH_SIZE", "TIMEOUT"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := Load(base)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Username != "alice" || cfg.Password != "secret" {
		t.Errorf("Credentials not loaded: %q/%q", cfg.Username, cfg.Password)
	}
	if cfg.DryRun {
		t.Error("DRY_RUN=false should disable dry-run")
	}
	if cfg.MaxBatchSize != 5 {
		t.Errorf("Expected batch size 5, got %d", cfg.MaxBatchSize)
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Errorf("Expected 10s request timeout, got %v", cfg.RequestTimeout)
	}
	if !cfg.HasCredentials() {
		t.Error("HasCredentials should be true")
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	base := t.TempDir()
	if err := os.MkdirAll(filepath.Join(base, "config"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(base, "config", ".env"), []byte("TJ_USERNAME=filename\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TJ_USERNAME", "envname")

	cfg, err := Load(base)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Username != "envname" {
		t.Errorf("Process env should win over .env file, got %q", cfg.Username)
	}
}

func TestLoadRejectsBadLimits(t *testing.T) {
	base := t.TempDir()
	t.Setenv("BATCH_SIZE", "0")
	if _, err := Load(base); err == nil {
		t.Error("BATCH_SIZE=0 should be rejected")
	}
	t.Setenv("BATCH_SIZE", "10")
	t.Setenv("MAX_RETRIES", "0")
	if _, err := Load(base); err == nil {
		t.Error("MAX_RETRIES=0 should be rejected")
	}
}

func TestLoadMissingEnvFileUsesDefaults(t *testing.T) {
	for _, key := range []string{"TJ_USERNAME", "TJ_PASSWORD", "DRY_RUN", "BATCH_SIZE", "MAX_RETRIES", "TIMEOUT"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.HasCredentials() {
		t.Error("No credentials expected without config")
	}
	if !cfg.DryRun {
		t.Error("Dry-run default expected")
	}
}

func TestPathsLayout(t *testing.T) {
	p := NewPaths("/work/flow")

	if p.MasterLedger != filepath.Join("/work/flow", "tracking", "creative_inventory.csv") {
		t.Errorf("Unexpected master ledger path: %s", p.MasterLedger)
	}
	if p.KindDir("native_video") != p.NativeVideoDir {
		t.Error("native_video should map to the Native/Video directory")
	}
	if p.KindDir("short_video") != p.VideoDir {
		t.Error("short_video should map to the Video directory")
	}
	if p.KindDir("unknown") != p.UploadDir {
		t.Error("Unknown kinds fall back to the upload root")
	}
}

func TestEnsureDirs(t *testing.T) {
	p := NewPaths(t.TempDir())
	if err := p.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs failed: %v", err)
	}
	for _, dir := range []string{p.TrackingDir, p.UploadLogDir, p.SessionDir, p.ArchiveDir} {
		if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
			t.Errorf("Directory not created: %s", dir)
		}
	}
}
