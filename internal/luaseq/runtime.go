// Package luaseq embeds a Lua VM for defining sequences in script. Static
// definitions go through the same builder as YAML files; dynamic ones wrap
// Lua functions that are called back on every evaluation.
package luaseq

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/ledseqd/internal/library"
)

// ErrRuntimeClosed is returned when the Lua runtime is closed
var ErrRuntimeClosed = fmt.Errorf("lua runtime closed")

// Work represents work to be executed on the Lua VM.
// All Lua execution MUST go through this to ensure thread safety.
type Work func(ctx context.Context)

// Runtime manages the Lua VM with single-threaded execution.
type Runtime struct {
	L   *lua.LState
	lib *library.Library

	// Work queue for thread-safe Lua execution
	workQueue chan Work

	// Shutdown signaling - closing this channel signals senders to stop
	closing   chan struct{}
	closeOnce sync.Once
}

// NewRuntime creates a Lua runtime registering sequences into lib.
func NewRuntime(lib *library.Library) *Runtime {
	r := &Runtime{
		L:         lua.NewState(),
		lib:       lib,
		workQueue: make(chan Work, 100),
		closing:   make(chan struct{}),
	}

	r.registerModules()

	return r
}

func (r *Runtime) registerModules() {
	logModule := NewLogModule()
	r.L.PreloadModule("log", logModule.Loader)

	seqModule := NewSeqModule(r)
	r.L.PreloadModule("ledseq", seqModule.Loader)
}

// LoadScript loads and executes a Lua script (call before Run).
func (r *Runtime) LoadScript(path string) error {
	log.Info().Str("path", path).Msg("Loading Lua script")

	if err := r.L.DoFile(path); err != nil {
		return fmt.Errorf("failed to execute Lua script: %w", err)
	}

	log.Info().Msg("Lua script loaded successfully")
	return nil
}

// Close signals the runtime to stop accepting new work and closes the Lua
// state. Safe to call concurrently with Do/DoSync - they will see the
// closing signal.
func (r *Runtime) Close() {
	r.closeOnce.Do(func() {
		close(r.closing)
		// workQueue stays open to avoid send-on-closed-channel panics; it
		// is collected once unreferenced.
		r.L.Close()
	})
}

// Do queues work without blocking. Returns false if the runtime is
// closing, the queue is full, or the context is cancelled.
func (r *Runtime) Do(ctx context.Context, work Work) bool {
	// Checked before the send: once closing is signaled the worker loop
	// exits, and queued work would never execute.
	select {
	case <-r.closing:
		log.Warn().Msg("Lua runtime closing, dropping work")
		return false
	case <-ctx.Done():
		log.Warn().Msg("Context cancelled, dropping Lua work")
		return false
	default:
	}

	select {
	case r.workQueue <- work:
		return true
	default:
		log.Warn().Msg("Lua work queue full, dropping work")
		return false
	}
}

// DoSync queues work, blocking until there is space. Returns an error if
// the runtime is closing or the context is cancelled.
func (r *Runtime) DoSync(ctx context.Context, work Work) error {
	select {
	case <-r.closing:
		return ErrRuntimeClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	select {
	case <-r.closing:
		return ErrRuntimeClosed
	case <-ctx.Done():
		return ctx.Err()
	case r.workQueue <- work:
		return nil
	}
}

// Run starts the Lua worker loop - this is the ONLY goroutine that touches
// the VM after LoadScript. It includes panic recovery so a bad callback
// cannot kill the worker. Exits when the context is cancelled or the
// runtime is closed.
func (r *Runtime) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			r.drainQueue(ctx)
			return
		case <-r.closing:
			r.drainQueue(ctx)
			return
		case work := <-r.workQueue:
			r.executeWork(ctx, work)
		}
	}
}

// drainQueue processes any remaining work in the queue before exiting
func (r *Runtime) drainQueue(ctx context.Context) {
	for {
		select {
		case work := <-r.workQueue:
			r.executeWork(ctx, work)
		default:
			return
		}
	}
}

// executeWork runs a single work item with panic recovery
func (r *Runtime) executeWork(ctx context.Context, work Work) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().
				Interface("panic", rec).
				Msg("Lua work panicked - worker continuing")
		}
	}()
	r.L.SetContext(ctx)
	work(ctx)
}
