package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

func TestBuild_Defaults(t *testing.T) {
	cfg, err := Build("", nil)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.Model != "gemini-2.5-flash" {
		t.Errorf("expected default model, got %q", cfg.Model)
	}
	if cfg.QueueSize != 100 {
		t.Errorf("expected default queue size 100, got %d", cfg.QueueSize)
	}
}

func TestBuild_Environment(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("PORT", "9090")

	cfg, err := Build("", nil)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	if cfg.GeminiAPIKey != "test-key" {
		t.Errorf("expected api key from environment, got %q", cfg.GeminiAPIKey)
	}
	if cfg.Port != "9090" {
		t.Errorf("expected port from environment, got %q", cfg.Port)
	}
}

func TestBuild_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := "port: \"3000\"\nmodel: gemini-2.0-flash\nqueue_size: 10\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := Build(path, nil)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	if cfg.Port != "3000" {
		t.Errorf("expected port from file, got %q", cfg.Port)
	}
	if cfg.Model != "gemini-2.0-flash" {
		t.Errorf("expected model from file, got %q", cfg.Model)
	}
	if cfg.QueueSize != 10 {
		t.Errorf("expected queue size from file, got %d", cfg.QueueSize)
	}
}

func TestBuild_MissingConfigFile(t *testing.T) {
	if _, err := Build(filepath.Join(t.TempDir(), "absent.yaml"), nil); err == nil {
		t.Error("expected an error for a missing config file")
	}
}

func TestBuild_FlagsOverride(t *testing.T) {
	t.Setenv("PORT", "9090")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("port", "8080", "")
	if err := flags.Set("port", "7070"); err != nil {
		t.Fatalf("set flag: %v", err)
	}

	cfg, err := Build("", flags)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	if cfg.Port != "7070" {
		t.Errorf("expected flag to win, got %q", cfg.Port)
	}
}
