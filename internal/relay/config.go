package relay

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/danmuck/fmtrelay/internal/filetree"
	"github.com/danmuck/fmtrelay/internal/resolver"
)

var (
	ErrListenAddrRequired  = errors.New("relay: listen address required")
	ErrSubprotocolRequired = errors.New("relay: subprotocol required")
	ErrInvalidMessageSize  = errors.New("relay: invalid max message size")
)

const (
	DefaultListenAddr     = ":1234"
	DefaultSubprotocol    = "fmt-tool"
	DefaultMaxMessageSize = 10 * 1024 * 1024
	DefaultShutdownGrace  = 5 * time.Second
)

// ServiceConfig configures the relay server.
type ServiceConfig struct {
	ListenAddr     string
	Subprotocol    string
	ScratchRoot    string
	Limits         filetree.Limits
	MaxMessageSize int64
	CORSOrigins    []string
	ShutdownGrace  time.Duration
	Tools          []resolver.ToolSpec
}

func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		ListenAddr:     DefaultListenAddr,
		Subprotocol:    DefaultSubprotocol,
		ScratchRoot:    os.TempDir(),
		Limits:         filetree.DefaultLimits(),
		MaxMessageSize: DefaultMaxMessageSize,
		ShutdownGrace:  DefaultShutdownGrace,
	}
}

// WithDefaults fills unset optional fields.
func (c ServiceConfig) WithDefaults() ServiceConfig {
	def := DefaultServiceConfig()
	if strings.TrimSpace(c.Subprotocol) == "" {
		c.Subprotocol = def.Subprotocol
	}
	if strings.TrimSpace(c.ScratchRoot) == "" {
		c.ScratchRoot = def.ScratchRoot
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = def.MaxMessageSize
	}
	if c.ShutdownGrace <= 0 {
		c.ShutdownGrace = def.ShutdownGrace
	}
	c.Limits = c.Limits.WithDefaults()
	return c
}

func (c ServiceConfig) Validate() error {
	if strings.TrimSpace(c.ListenAddr) == "" {
		return ErrListenAddrRequired
	}
	if strings.TrimSpace(c.Subprotocol) == "" {
		return ErrSubprotocolRequired
	}
	if c.MaxMessageSize < 0 {
		return ErrInvalidMessageSize
	}
	return nil
}
