// Package app wires the event bus, the script runtime and the host together.
package app

import (
	"context"
	"fmt"

	"github.com/amirasaad/awgen/pkg/domain"
	"github.com/amirasaad/awgen/pkg/domain/events"
	"github.com/amirasaad/awgen/pkg/domain/packet"
	"github.com/amirasaad/awgen/pkg/eventbus"
	"github.com/amirasaad/awgen/pkg/script"
)

// Event names understood by the built-in script.
const (
	EventImportAsset eventbus.Key = "importAsset"
	EventSetSetting  eventbus.Key = "setSetting"
)

// SettingOpaqueTileset names the setting restored as the active tileset on ready.
const SettingOpaqueTileset = "tilesets.opaque"

// builtinScript registers the default listeners and pumps host packets.
func (a *App) builtinScript(ctx context.Context, rt *script.Runtime) error {
	a.setupEventBus(rt)
	return rt.Run(ctx)
}

// setupEventBus registers the built-in event handlers on the runtime bus.
func (a *App) setupEventBus(rt *script.Runtime) {
	bus := rt.Bus()
	logger := a.Deps.Logger.With("component", "builtin_script")

	eventbus.Subscribe(bus, func(_ context.Context, e events.PacketReceived) error {
		logger.Debug("Packet from host", "type", e.Packet.Type())
		return nil
	})

	eventbus.Subscribe(bus, func(_ context.Context, e events.Ready) error {
		logger.Info("Script runtime ready", "project_folder", e.ProjectFolder, "settings", len(e.Settings))
		if path, ok := e.Setting(SettingOpaqueTileset); ok {
			return rt.SendPackets(packet.SetTilesets{OpaqueTilesetPath: path})
		}
		return nil
	})

	bus.OnFunc(EventImportAsset, eventbus.Typed(func(_ context.Context, e events.Custom) error {
		assetPath, ok1 := e.Arg(0).(string)
		file, ok2 := e.Arg(1).(string)
		if !ok1 || !ok2 {
			return fmt.Errorf("%w: %s expects (assetPath, file)", domain.ErrValidation, EventImportAsset)
		}
		return rt.SendPackets(packet.ImportAsset{File: file, AssetPath: assetPath})
	}))

	bus.OnFunc(EventSetSetting, eventbus.Typed(func(ctx context.Context, e events.Custom) error {
		key, ok := e.Arg(0).(string)
		if !ok || key == "" {
			return fmt.Errorf("%w: %s expects (key, value)", domain.ErrValidation, EventSetSetting)
		}
		var value *string
		switch v := e.Arg(1).(type) {
		case nil:
		case string:
			value = &v
		default:
			s := fmt.Sprint(v)
			value = &s
		}
		return rt.SetSetting(ctx, key, value)
	}))

	eventbus.Subscribe(bus, func(_ context.Context, e events.Shutdown) error {
		logger.Info("Script runtime shutting down", "reason", e.Reason)
		return rt.SendPackets(packet.ScriptShutdown{})
	})
}
