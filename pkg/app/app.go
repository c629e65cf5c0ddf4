package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/amirasaad/awgen/pkg/config"
	"github.com/amirasaad/awgen/pkg/domain"
	"github.com/amirasaad/awgen/pkg/domain/events"
	"github.com/amirasaad/awgen/pkg/domain/packet"
	"github.com/amirasaad/awgen/pkg/eventbus"
	"github.com/amirasaad/awgen/pkg/handler"
	"github.com/amirasaad/awgen/pkg/repository/settings"
	"github.com/amirasaad/awgen/pkg/script"
	"github.com/amirasaad/awgen/pkg/socket"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
)

// Deps contains the infrastructure the app is built from.
type Deps struct {
	Settings settings.Store
	Bus      *eventbus.Bus
	Packets  script.PacketObserver
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
	Closers  []io.Closer
}

type App struct {
	Deps   *Deps
	Config *config.App
	Engine *script.Engine
	Host   *handler.Host

	script script.Script
	sink   handler.WorldSink
}

// Option configures an App.
type Option func(*App)

// WithScript replaces the built-in script.
func WithScript(s script.Script) Option {
	return func(a *App) {
		a.script = s
	}
}

// WithWorldSink sets where tileset and block packets are delivered.
func WithWorldSink(s handler.WorldSink) Option {
	return func(a *App) {
		a.sink = s
	}
}

func New(deps *Deps, cfg *config.App, opts ...Option) *App {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Bus == nil {
		deps.Bus = eventbus.New(eventbus.WithLogger(deps.Logger))
	}
	a := &App{Deps: deps, Config: cfg}
	a.script = a.builtinScript
	for _, opt := range opts {
		opt(a)
	}

	engineSock, client := socket.NewPair(cfg.Scripts.SocketBuffer, deps.Logger)
	engineOpts := []script.Option{script.WithLogger(deps.Logger)}
	if deps.Packets != nil {
		engineOpts = append(engineOpts, script.WithObserver(deps.Packets))
	}
	a.Engine = script.NewEngine(engineSock, deps.Bus, deps.Settings, engineOpts...)

	chain := handler.NewChainBuilder(cfg.Scripts.ProjectFolder, a.sink, deps.Logger).Build()
	a.Host = handler.NewHost(client, chain, deps.Logger)
	return a
}

// Start runs the script and sends it the init packet.
func (a *App) Start(ctx context.Context) error {
	if err := a.Engine.Start(ctx, a.script); err != nil {
		return err
	}
	return a.Host.Send(packet.Init{ProjectFolder: a.Config.Scripts.ProjectFolder})
}

// Serve handles script packets until the script asks the host to exit.
func (a *App) Serve(ctx context.Context) (handler.ExitStatus, error) {
	return a.Host.Serve(ctx)
}

// SendEvent asks the script to emit an application event.
func (a *App) SendEvent(name string, args []any) error {
	if name == "" || events.IsReserved(eventbus.Key(name)) {
		return fmt.Errorf("event %q: %w: %w", name, domain.ErrValidation, events.ErrReservedKey)
	}
	return a.send(packet.Event{Name: name, Args: args})
}

// RequestShutdown asks the script to stop without waiting for it.
func (a *App) RequestShutdown() error {
	return a.send(packet.Shutdown{})
}

func (a *App) send(p packet.Out) error {
	select {
	case <-a.Engine.Done():
		return fmt.Errorf("script runtime: %w", domain.ErrUnavailable)
	default:
	}
	if err := a.Host.Send(p); err != nil {
		if errors.Is(err, socket.ErrSocketClosed) {
			return fmt.Errorf("script runtime: %w", domain.ErrUnavailable)
		}
		return err
	}
	return nil
}

// Shutdown asks the script to stop and waits for it until ctx is done.
func (a *App) Shutdown(ctx context.Context) error {
	if err := a.Host.Shutdown(); err != nil && !errors.Is(err, socket.ErrSocketClosed) {
		return err
	}
	select {
	case <-a.Engine.Done():
		err := a.Engine.Wait()
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	case <-ctx.Done():
		return fmt.Errorf("waiting for script runtime: %w", ctx.Err())
	}
}

// Close releases the infrastructure held by the dependencies.
func (a *App) Close() error {
	var err error
	for _, c := range a.Deps.Closers {
		err = multierr.Append(err, c.Close())
	}
	return err
}
