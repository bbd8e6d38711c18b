package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yiya1989/netlink/internal/config"
	"github.com/yiya1989/netlink/internal/ethtool"
	"github.com/yiya1989/netlink/internal/testutil/testlog"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadRuntimeConfigDefaultsAndOverrides(t *testing.T) {
	testlog.Start(t)
	path := writeConfig(t, `
log_level = "debug"
decode_policy = "abort"
reply_queue_depth = 16
monitor = true
cors_origins = ["http://ops.local"]
unknown_key = 1
`)

	cfg, err := loadRuntimeConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	def := config.Default()
	if cfg.LogLevel != "debug" {
		t.Fatalf("unexpected log level: %q", cfg.LogLevel)
	}
	if cfg.Policy() != ethtool.DecodeAbort {
		t.Fatalf("unexpected decode policy: %v", cfg.Policy())
	}
	if cfg.ReplyQueueDepth != 16 || !cfg.Monitor {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.ListenAddr != def.ListenAddr || cfg.PollIntervalMS != def.PollIntervalMS {
		t.Fatalf("defaults lost: %+v", cfg)
	}
	if len(cfg.CorsOrigins) != 1 || cfg.CorsOrigins[0] != "http://ops.local" {
		t.Fatalf("unexpected cors origins: %+v", cfg.CorsOrigins)
	}
}

func TestLoadRuntimeConfigEmptyPath(t *testing.T) {
	testlog.Start(t)
	cfg, err := loadRuntimeConfig("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if cfg.ListenAddr != config.Default().ListenAddr {
		t.Fatalf("unexpected listen addr: %q", cfg.ListenAddr)
	}
}

func TestLoadRuntimeConfigRejectsInvalid(t *testing.T) {
	testlog.Start(t)
	path := writeConfig(t, "decode_policy = \"drop\"\n")
	_, err := loadRuntimeConfig(path)
	if err == nil || !strings.Contains(err.Error(), "decode_policy") {
		t.Fatalf("expected decode_policy error, got %v", err)
	}
}

func TestLoadRuntimeConfigMissingFile(t *testing.T) {
	testlog.Start(t)
	if _, err := loadRuntimeConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected missing file error")
	}
}
