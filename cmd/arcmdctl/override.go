package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/Parrot-Developers/libARCommands-sub002/internal/config"
)

// overrideFile is the flat key layout accepted by --override.
type overrideFile struct {
	Network      string   `toml:"network"`
	Addr         string   `toml:"addr"`
	Listen       string   `toml:"listen"`
	HTTPAddr     string   `toml:"http_addr"`
	HTTPEnabled  bool     `toml:"http_enabled"`
	CorsOrigins  []string `toml:"cors_origins"`
	NATSURL      string   `toml:"nats_url"`
	NATSEnabled  bool     `toml:"nats_enabled"`
	MaxAttempts  int      `toml:"max_attempts"`
	ReadTimeout  string   `toml:"read_timeout"`
	MinFirmware  string   `toml:"min_firmware"`
	MonitorLines int      `toml:"monitor_lines"`
}

func applyOverride(cfg config.Config, path string) (config.Config, error) {
	var raw overrideFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return config.Config{}, fmt.Errorf("load override: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return config.Config{}, fmt.Errorf("override %s: unknown key %q", path, undecoded[0].String())
	}

	if meta.IsDefined("network") {
		cfg.Transport.Network = strings.ToLower(strings.TrimSpace(raw.Network))
	}
	if meta.IsDefined("addr") {
		cfg.Transport.Addr = strings.TrimSpace(raw.Addr)
	}
	if meta.IsDefined("listen") {
		cfg.Transport.Listen = strings.TrimSpace(raw.Listen)
	}
	if meta.IsDefined("http_addr") {
		cfg.HTTP.Addr = strings.TrimSpace(raw.HTTPAddr)
	}
	if meta.IsDefined("http_enabled") {
		cfg.HTTP.Enabled = raw.HTTPEnabled
	}
	if meta.IsDefined("cors_origins") {
		cfg.HTTP.CorsOrigins = normalizeList(raw.CorsOrigins)
	}
	if meta.IsDefined("nats_url") {
		cfg.NATS.URL = strings.TrimSpace(raw.NATSURL)
	}
	if meta.IsDefined("nats_enabled") {
		cfg.NATS.Enabled = raw.NATSEnabled
	}
	if meta.IsDefined("max_attempts") {
		cfg.Session.MaxAttempts = raw.MaxAttempts
	}
	if meta.IsDefined("read_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ReadTimeout))
		if err != nil {
			return config.Config{}, fmt.Errorf("parse read_timeout: %w", err)
		}
		cfg.Session.ReadTimeout = config.Duration(d)
	}
	if meta.IsDefined("min_firmware") {
		cfg.Session.MinFirmware = strings.TrimSpace(raw.MinFirmware)
	}
	if meta.IsDefined("monitor_lines") {
		cfg.Monitor.MaxLines = raw.MonitorLines
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("override %s: %w", path, err)
	}
	return cfg, nil
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
