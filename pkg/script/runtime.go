package script

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"

	"github.com/amirasaad/awgen/pkg/domain/events"
	"github.com/amirasaad/awgen/pkg/domain/packet"
	"github.com/amirasaad/awgen/pkg/eventbus"
	"github.com/amirasaad/awgen/pkg/socket"
)

// Runtime is the API a script uses to talk to the host.
type Runtime struct {
	engine *Engine

	mu            sync.RWMutex
	projectFolder string
}

// Bus returns the event bus shared with the script.
func (r *Runtime) Bus() *eventbus.Bus {
	return r.engine.bus
}

// ProjectFolder returns the folder received with the init packet.
func (r *Runtime) ProjectFolder() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.projectFolder
}

// FetchPacket waits for the next packet from the host.
func (r *Runtime) FetchPacket(ctx context.Context) (packet.Out, error) {
	p, err := r.engine.socket.FetchPacket(ctx)
	if err != nil {
		return nil, err
	}
	r.engine.observe("out", p.Type())
	return p, nil
}

// SendPackets sends packets to the host without waiting for them to be
// handled.
func (r *Runtime) SendPackets(packets ...packet.In) error {
	if err := r.engine.socket.SendPackets(packets...); err != nil {
		return err
	}
	for _, p := range packets {
		r.engine.observe("in", p.Type())
	}
	return nil
}

// GetSetting reads a project setting. It returns nil for unset keys.
func (r *Runtime) GetSetting(ctx context.Context, key string) (*string, error) {
	return r.engine.settings.GetSetting(ctx, key)
}

// SetSetting writes a project setting. A nil value clears it.
func (r *Runtime) SetSetting(ctx context.Context, key string, value *string) error {
	return r.engine.settings.SetSetting(ctx, key, value)
}

// Run forwards host packets to the bus until a shutdown packet arrives, the
// host closes its socket, or ctx is done. Every packet is first emitted as
// events.PacketReceived. Handler failures are logged and do not stop the
// loop.
func (r *Runtime) Run(ctx context.Context) error {
	log := r.engine.logger
	for {
		p, err := r.FetchPacket(ctx)
		if errors.Is(err, socket.ErrSocketClosed) {
			log.Info("Host closed the socket")
			return nil
		}
		if err != nil {
			return err
		}
		log.Debug("Packet received", "type", p.Type())

		r.emit(ctx, events.PacketReceived{Packet: p})

		switch p := p.(type) {
		case packet.Init:
			if err := r.ready(ctx, p); err != nil {
				return err
			}
		case packet.Event:
			if events.IsReserved(eventbus.Key(p.Name)) {
				log.Warn("Dropping event with a reserved name", "name", p.Name)
				continue
			}
			r.emit(ctx, events.Custom{Name: eventbus.Key(p.Name), Args: p.Args})
		case packet.Shutdown:
			r.emit(ctx, events.Shutdown{Reason: "host requested shutdown"})
			return nil
		default:
			log.Warn("Unhandled packet", "type", p.Type())
		}
	}
}

func (r *Runtime) ready(ctx context.Context, p packet.Init) error {
	r.mu.Lock()
	r.projectFolder = p.ProjectFolder
	r.mu.Unlock()

	all, err := r.engine.settings.All(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	r.emit(ctx, events.Ready{ProjectFolder: p.ProjectFolder, Settings: maps.Clone(all)})
	return nil
}

func (r *Runtime) emit(ctx context.Context, event eventbus.Event) {
	if err := r.engine.bus.Emit(ctx, event); err != nil {
		r.engine.logger.Error("Event handler failed", "key", event.Key(), "error", err)
	}
}
