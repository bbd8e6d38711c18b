package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/yiya1989/netlink/internal/ethtool"
	"github.com/yiya1989/netlink/internal/logging"
	"github.com/yiya1989/netlink/internal/netlinkmux"
)

// Config is the ethtoolctl config.toml.
type Config struct {
	LogLevel        string   `toml:"log_level"`
	DecodePolicy    string   `toml:"decode_policy"`
	RecvBufferBytes int      `toml:"recv_buffer_bytes"`
	ReplyQueueDepth int      `toml:"reply_queue_depth"`
	PollIntervalMS  int      `toml:"poll_interval_ms"`
	Monitor         bool     `toml:"monitor"`
	ListenAddr      string   `toml:"listen_addr"`
	CorsOrigins     []string `toml:"cors_origins"`
}

func Default() Config {
	mux := netlinkmux.DefaultConfig()
	return Config{
		LogLevel:        "info",
		DecodePolicy:    ethtool.DecodeReport.String(),
		RecvBufferBytes: mux.RecvBufferBytes,
		ReplyQueueDepth: mux.ReplyQueueDepth,
		PollIntervalMS:  int(mux.PollInterval / time.Millisecond),
		ListenAddr:      ":9300",
		CorsOrigins:     []string{"http://localhost:3000"},
	}
}

// Load strictly parses path over Default: unknown keys are an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	if _, ok := logging.ParseLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("config log_level invalid: %q", cfg.LogLevel)
	}
	if _, err := ethtool.ParseDecodePolicy(cfg.DecodePolicy); err != nil {
		return fmt.Errorf("config decode_policy invalid: %w", err)
	}
	if cfg.RecvBufferBytes < 4096 {
		return fmt.Errorf("config recv_buffer_bytes must be at least 4096, got %d", cfg.RecvBufferBytes)
	}
	if cfg.ReplyQueueDepth <= 0 {
		return fmt.Errorf("config reply_queue_depth must be positive, got %d", cfg.ReplyQueueDepth)
	}
	if cfg.PollIntervalMS <= 0 {
		return fmt.Errorf("config poll_interval_ms must be positive, got %d", cfg.PollIntervalMS)
	}
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		return fmt.Errorf("config missing listen_addr")
	}
	for i, origin := range cfg.CorsOrigins {
		if strings.TrimSpace(origin) == "" {
			return fmt.Errorf("config cors_origins[%d] is empty", i)
		}
	}
	return nil
}

// Policy returns the decode policy; Validate has already accepted it.
func (c Config) Policy() ethtool.DecodePolicy {
	p, _ := ethtool.ParseDecodePolicy(c.DecodePolicy)
	return p
}

func (c Config) MuxConfig() netlinkmux.Config {
	mux := netlinkmux.DefaultConfig()
	mux.RecvBufferBytes = c.RecvBufferBytes
	mux.ReplyQueueDepth = c.ReplyQueueDepth
	mux.PollInterval = time.Duration(c.PollIntervalMS) * time.Millisecond
	return mux.WithDefaults()
}

func (c Config) ConnectionConfig() ethtool.ConnectionConfig {
	cc := ethtool.DefaultConnectionConfig()
	cc.Mux = c.MuxConfig()
	cc.Handle.DecodePolicy = c.Policy()
	cc.Monitor = c.Monitor
	return cc
}

// Encode renders cfg as TOML.
func Encode(cfg Config) ([]byte, error) {
	return toml.Marshal(cfg)
}
