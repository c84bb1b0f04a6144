package app

import (
	"context"

	"github.com/dokzlo13/ledseqd/internal/config"
	"github.com/dokzlo13/ledseqd/internal/library"
	"github.com/dokzlo13/ledseqd/internal/luaseq"
)

// LuaService wraps the Lua runtime and provides thread-safe execution.
// When scripting is disabled the service is inert.
type LuaService struct {
	cfg     *config.Config
	Runtime *luaseq.Runtime
}

// NewLuaService creates a new LuaService.
func NewLuaService(cfg *config.Config, lib *library.Library) *LuaService {
	svc := &LuaService{cfg: cfg}
	if cfg.Lua.Enabled {
		svc.Runtime = luaseq.NewRuntime(lib)
	}
	return svc
}

// LoadScript loads and executes the Lua script.
// Must be called before Start().
func (s *LuaService) LoadScript() error {
	if s.Runtime == nil {
		return nil
	}
	return s.Runtime.LoadScript(s.cfg.Lua.Script)
}

// Start begins the Lua worker goroutine. All later VM access goes through
// the runtime's work queue.
func (s *LuaService) Start(ctx context.Context) {
	if s.Runtime == nil {
		return
	}
	go s.Runtime.Run(ctx)
}

// Close closes the Lua runtime.
func (s *LuaService) Close() {
	if s.Runtime != nil {
		s.Runtime.Close()
	}
}
