package relay

import (
	"context"
	"fmt"
	"net"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/fmtrelay/internal/filetree"
	"github.com/danmuck/fmtrelay/internal/resolver"
	"github.com/danmuck/fmtrelay/internal/tools"
)

// Service runs the relay as a standalone process.
type Service struct {
	cfg    ServiceConfig
	server *Server
}

// NewService builds the scratch root and the tool resolver from cfg.
func NewService(cfg ServiceConfig) (*Service, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	scratch, err := filetree.NewScratch(cfg.ScratchRoot)
	if err != nil {
		return nil, err
	}
	table, err := resolver.NewToolResolver(cfg.Tools, cfg.Limits)
	if err != nil {
		return nil, err
	}
	commands := make([]string, 0, len(cfg.Tools))
	for _, tool := range cfg.Tools {
		commands = append(commands, tool.Command)
	}
	if missing := tools.Missing(tools.PathLookup{}, commands...); len(missing) > 0 {
		log.Warn().Strs("commands", missing).Msg("configured tools not found on PATH")
	}

	log.Info().
		Str("scratch_root", scratch.Root()).
		Strs("tools", table.Names()).
		Int("max_depth", cfg.Limits.MaxDepth).
		Int("max_name_length", cfg.Limits.MaxNameLength).
		Msg("relay configured")
	return &Service{
		cfg:    cfg,
		server: NewServer(cfg, scratch, table),
	}, nil
}

func (s *Service) Server() *Server {
	return s.server
}

// Run listens on the configured address and blocks until SIGINT/SIGTERM.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("relay: listen %s: %w", s.cfg.ListenAddr, err)
	}
	return s.server.Serve(ctx, ln)
}
