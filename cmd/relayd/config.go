package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/danmuck/fmtrelay/internal/relay"
	"github.com/danmuck/fmtrelay/internal/resolver"
)

type toolConfig struct {
	Name         string   `toml:"name"`
	Command      string   `toml:"command"`
	Args         []string `toml:"args"`
	Env          []string `toml:"env"`
	AllowedFlags []string `toml:"allowed_flags"`
	Detached     bool     `toml:"detached"`
}

type fileConfig struct {
	ListenAddr     string       `toml:"listen_addr"`
	Subprotocol    string       `toml:"subprotocol"`
	ScratchRoot    string       `toml:"scratch_root"`
	MaxDepth       int          `toml:"max_depth"`
	MaxNameLength  int          `toml:"max_name_length"`
	MaxMessageSize int64        `toml:"max_message_size"`
	CORSOrigins    []string     `toml:"cors_origins"`
	ShutdownGrace  string       `toml:"shutdown_grace"`
	Tools          []toolConfig `toml:"tools"`
}

func loadServiceConfig(path string) (relay.ServiceConfig, error) {
	cfg := relay.DefaultServiceConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return relay.ServiceConfig{}, fmt.Errorf("load relay config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return relay.ServiceConfig{}, fmt.Errorf("load relay config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("listen_addr") {
		cfg.ListenAddr = strings.TrimSpace(raw.ListenAddr)
	}

	if meta.IsDefined("subprotocol") {
		cfg.Subprotocol = strings.TrimSpace(raw.Subprotocol)
	}

	if meta.IsDefined("scratch_root") {
		cfg.ScratchRoot = strings.TrimSpace(raw.ScratchRoot)
	}

	if meta.IsDefined("max_depth") {
		cfg.Limits.MaxDepth = raw.MaxDepth
	}

	if meta.IsDefined("max_name_length") {
		cfg.Limits.MaxNameLength = raw.MaxNameLength
	}

	if meta.IsDefined("max_message_size") {
		cfg.MaxMessageSize = raw.MaxMessageSize
	}

	if meta.IsDefined("cors_origins") {
		cfg.CORSOrigins = normalizeList(raw.CORSOrigins)
	}

	if meta.IsDefined("shutdown_grace") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ShutdownGrace))
		if err != nil {
			return relay.ServiceConfig{}, fmt.Errorf("parse shutdown_grace: %w", err)
		}
		cfg.ShutdownGrace = d
	}

	if meta.IsDefined("tools") {
		cfg.Tools = make([]resolver.ToolSpec, 0, len(raw.Tools))
		for _, tool := range raw.Tools {
			cfg.Tools = append(cfg.Tools, resolver.ToolSpec{
				Name:         strings.TrimSpace(tool.Name),
				Command:      strings.TrimSpace(tool.Command),
				Args:         tool.Args,
				Env:          normalizeList(tool.Env),
				AllowedFlags: normalizeList(tool.AllowedFlags),
				Detached:     tool.Detached,
			})
		}
	}

	return cfg, nil
}

func normalizeList(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(in))
	for _, item := range in {
		v := strings.TrimSpace(item)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
