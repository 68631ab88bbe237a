package sftpclient

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigDefaults(t *testing.T) {
	cfg := Config{Host: "test-host", User: "test-user", Pass: "test-pass"}.withDefaults()

	if cfg.Port != 22 {
		t.Errorf("Expected default Port to be 22, got %d", cfg.Port)
	}
	if cfg.RemoteDir != "/" {
		t.Errorf("Expected default RemoteDir to be '/', got %q", cfg.RemoteDir)
	}
}

func TestArchiveValidation(t *testing.T) {
	a := NewArchiver(Config{})

	err := a.Archive(context.Background(), "course.json", []byte("{}"))
	if !errors.Is(err, ErrMissingConfig) {
		t.Errorf("Expected ErrMissingConfig, got %v", err)
	}
}

func TestHostKeyCallback(t *testing.T) {
	cb, err := Config{InsecureIgnoreHostKey: true}.hostKeyCallback()
	if err != nil || cb == nil {
		t.Errorf("Expected insecure callback, got %v", err)
	}

	missing := filepath.Join(t.TempDir(), "known_hosts")
	if _, err := (Config{KnownHostsFile: missing}).hostKeyCallback(); err == nil {
		t.Error("Expected error for missing known_hosts file")
	}

	if err := os.WriteFile(missing, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := (Config{KnownHostsFile: missing}).hostKeyCallback(); err != nil {
		t.Errorf("Expected empty known_hosts to load, got %v", err)
	}
}

func TestUploadDialError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg := Config{
		Host:                  "127.0.0.1",
		Port:                  1, // nothing listens here
		User:                  "test-user",
		Pass:                  "test-pass",
		InsecureIgnoreHostKey: true,
	}
	err := Upload(ctx, cfg, strings.NewReader("{}"), "course.json")
	if err == nil || !strings.Contains(err.Error(), "sftp:") {
		t.Errorf("Expected sftp dial error, got %v", err)
	}
}

func TestUploadCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := Config{
		Host:                  "192.0.2.1", // TEST-NET-1, never answers
		User:                  "test-user",
		Pass:                  "test-pass",
		InsecureIgnoreHostKey: true,
	}
	err := Upload(ctx, cfg, strings.NewReader("{}"), "course.json")
	if err == nil {
		t.Fatal("Expected error for canceled context")
	}
}
