package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog/log"

	"github.com/yiya1989/netlink/internal/config"
)

// ethtoolctl config.toml key mapping to runtime settings.
type fileConfig struct {
	LogLevel        string   `toml:"log_level"`
	DecodePolicy    string   `toml:"decode_policy"`
	RecvBufferBytes int      `toml:"recv_buffer_bytes"`
	ReplyQueueDepth int      `toml:"reply_queue_depth"`
	PollIntervalMS  int      `toml:"poll_interval_ms"`
	Monitor         bool     `toml:"monitor"`
	ListenAddr      string   `toml:"listen_addr"`
	CorsOrigins     []string `toml:"cors_origins"`
}

// loadRuntimeConfig overlays the keys present in path on config.Default. An
// empty path yields the defaults.
func loadRuntimeConfig(path string) (config.Config, error) {
	cfg := config.Default()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return config.Config{}, fmt.Errorf("load ethtoolctl config: %w", err)
	}

	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("decode_policy") {
		cfg.DecodePolicy = strings.TrimSpace(raw.DecodePolicy)
	}
	if meta.IsDefined("recv_buffer_bytes") {
		cfg.RecvBufferBytes = raw.RecvBufferBytes
	}
	if meta.IsDefined("reply_queue_depth") {
		cfg.ReplyQueueDepth = raw.ReplyQueueDepth
	}
	if meta.IsDefined("poll_interval_ms") {
		cfg.PollIntervalMS = raw.PollIntervalMS
	}
	if meta.IsDefined("monitor") {
		cfg.Monitor = raw.Monitor
	}
	if meta.IsDefined("listen_addr") {
		cfg.ListenAddr = strings.TrimSpace(raw.ListenAddr)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = raw.CorsOrigins
	}

	for _, key := range meta.Undecoded() {
		log.Warn().Str("key", key.String()).Str("path", path).Msg("ignoring unknown config key")
	}

	if err := config.Validate(cfg); err != nil {
		return config.Config{}, fmt.Errorf("load ethtoolctl config: %w", err)
	}
	return cfg, nil
}
