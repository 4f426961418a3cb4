package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/danmuck/fmtrelay/internal/observability"
	"github.com/danmuck/fmtrelay/internal/relay"
	"github.com/danmuck/fmtrelay/internal/resolver"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "relayd: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	flags := pflag.NewFlagSet("relayd", pflag.ContinueOnError)
	configPath := flags.StringP("config", "c", "", "path to a TOML config file")
	listen := flags.StringP("listen", "l", "", "listen address (overrides config)")
	scratch := flags.String("scratch-root", "", "directory for materialized submissions (overrides config)")
	writeConfig := flags.String("write-config", "", "write a config template to this path and exit")
	force := flags.Bool("force", false, "overwrite an existing file with --write-config")
	checkConfig := flags.Bool("check-config", false, "load and validate --config, then exit")
	showConfig := flags.Bool("print-config", false, "print the effective config and exit")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if *writeConfig != "" {
		if err := writeTemplate(*writeConfig, *force); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "wrote config template to %s\n", *writeConfig)
		return nil
	}

	cfg := relay.DefaultServiceConfig()
	if *configPath != "" {
		loaded, err := loadServiceConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if *listen != "" {
		cfg.ListenAddr = *listen
	}
	if *scratch != "" {
		cfg.ScratchRoot = *scratch
	}

	if *checkConfig {
		cfg = cfg.WithDefaults()
		if err := cfg.Validate(); err != nil {
			return err
		}
		if _, err := resolver.NewToolResolver(cfg.Tools, cfg.Limits); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "config ok\n")
		return nil
	}
	if *showConfig {
		return printConfig(stdout, cfg.WithDefaults())
	}

	observability.InitLogger("relayd")
	svc, err := relay.NewService(cfg)
	if err != nil {
		return err
	}
	log.Info().Str("listen", cfg.ListenAddr).Msg("relayd starting")
	return svc.Run()
}
