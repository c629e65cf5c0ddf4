// Package script runs scripts against the event bus and the host sockets.
//
// A script runs on its own goroutine. It usually registers its listeners on
// the bus and then calls Runtime.Run, which turns host packets into bus
// events until the host asks it to stop.
package script

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/amirasaad/awgen/pkg/domain/packet"
	"github.com/amirasaad/awgen/pkg/eventbus"
	"github.com/amirasaad/awgen/pkg/repository/settings"
	"github.com/amirasaad/awgen/pkg/socket"
)

var (
	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("script engine already started")
	// ErrScriptPanic wraps a recovered script panic.
	ErrScriptPanic = errors.New("script panicked")
)

// Script is the entry point of a script.
type Script func(ctx context.Context, rt *Runtime) error

// Pump is the script that only forwards host packets to the bus.
func Pump(ctx context.Context, rt *Runtime) error {
	return rt.Run(ctx)
}

// PacketObserver counts packets crossing the socket.
type PacketObserver interface {
	ObservePacket(direction, packetType string)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithObserver sets the packet observer.
func WithObserver(o PacketObserver) Option {
	return func(e *Engine) {
		e.observer = o
	}
}

// Engine owns the goroutine a script runs on.
type Engine struct {
	socket   *socket.Engine
	bus      *eventbus.Bus
	settings settings.Store
	logger   *slog.Logger
	observer PacketObserver

	mu      sync.Mutex
	started bool
	done    chan struct{}
	err     error
}

// NewEngine creates an engine for the runtime end of a socket pair.
func NewEngine(
	sock *socket.Engine,
	bus *eventbus.Bus,
	store settings.Store,
	opts ...Option,
) *Engine {
	e := &Engine{
		socket:   sock,
		bus:      bus,
		settings: store,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "script_engine")
	return e
}

// Start runs script on a new goroutine. When the script fails for any reason
// other than cancellation the host is sent a crashed packet. The socket is
// closed once the script returns.
func (e *Engine) Start(ctx context.Context, script Script) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return ErrAlreadyStarted
	}
	e.started = true

	rt := &Runtime{engine: e}
	go func() {
		defer close(e.done)
		defer e.socket.Close()

		err := e.call(ctx, script, rt)
		switch {
		case errors.Is(err, context.Canceled):
			e.logger.Info("Script cancelled")
		case err != nil:
			e.logger.Error("Script crashed", "error", err)
			if sendErr := rt.SendPackets(packet.Crashed{Error: err.Error()}); sendErr != nil {
				e.logger.Warn("Failed to report crash to host", "error", sendErr)
			}
		default:
			e.logger.Info("Script finished")
		}
		e.mu.Lock()
		e.err = err
		e.mu.Unlock()
	}()
	e.logger.Info("Script started")
	return nil
}

func (e *Engine) call(ctx context.Context, script Script, rt *Runtime) (err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Debug("Script panic stack", "stack", string(debug.Stack()))
			err = fmt.Errorf("%w: %v", ErrScriptPanic, r)
		}
	}()
	return script(ctx, rt)
}

// Wait blocks until the script returns and reports its error.
func (e *Engine) Wait() error {
	<-e.done
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// Done is closed when the script returns.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

func (e *Engine) observe(direction string, t packet.Type) {
	if e.observer != nil {
		e.observer.ObservePacket(direction, t.String())
	}
}
