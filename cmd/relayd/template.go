package main

import (
	"fmt"
	"io"
	"os"
	"time"

	gotoml "github.com/pelletier/go-toml/v2"

	"github.com/danmuck/fmtrelay/internal/relay"
)

const configTemplate = `listen_addr = ":1234"
subprotocol = "fmt-tool"
scratch_root = "/tmp/fmtrelay"
max_depth = 6
max_name_length = 64
max_message_size = 10485760
cors_origins = ["http://localhost:3000"]
shutdown_grace = "5s"

[[tools]]
name = "gofmt"
command = "gofmt"
args = ["-l"]
allowed_flags = ["-s", "-d"]
detached = true
`

func writeTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(configTemplate), 0o600)
}

// printConfig renders the effective configuration back into file form.
func printConfig(w io.Writer, cfg relay.ServiceConfig) error {
	out := fileConfig{
		ListenAddr:     cfg.ListenAddr,
		Subprotocol:    cfg.Subprotocol,
		ScratchRoot:    cfg.ScratchRoot,
		MaxDepth:       cfg.Limits.MaxDepth,
		MaxNameLength:  cfg.Limits.MaxNameLength,
		MaxMessageSize: cfg.MaxMessageSize,
		CORSOrigins:    cfg.CORSOrigins,
		ShutdownGrace:  cfg.ShutdownGrace.Round(time.Millisecond).String(),
	}
	for _, tool := range cfg.Tools {
		out.Tools = append(out.Tools, toolConfig{
			Name:         tool.Name,
			Command:      tool.Command,
			Args:         tool.Args,
			Env:          tool.Env,
			AllowedFlags: tool.AllowedFlags,
			Detached:     tool.Detached,
		})
	}
	data, err := gotoml.Marshal(out)
	if err != nil {
		return fmt.Errorf("render config: %w", err)
	}
	_, err = w.Write(data)
	return err
}
