// Package packet defines the messages exchanged between the host and the
// script runtime.
//
// Out packets travel from the host to the script runtime, In packets travel
// from the script runtime to the host. On the wire every packet is a JSON
// object tagged by its "type" field with camelCase field names.
package packet

import (
	"encoding/json"
)

// Type is the wire discriminator of a packet.
type Type string

// Packet types sent by the host.
const (
	TypeInit     Type = "init"
	TypeShutdown Type = "shutdown"
	TypeEvent    Type = "event"
)

// Packet types sent by the script runtime. init and shutdown are shared with
// the host direction.
const (
	TypeSet           Type = "set"
	TypeCrashed       Type = "crashed"
	TypeImportAsset   Type = "importAsset"
	TypeCreateTileset Type = "createTileset"
	TypeSetTilesets   Type = "setTilesets"
	TypeSetBlock      Type = "setBlock"
)

// String returns the string representation of the packet type.
func (t Type) String() string {
	return string(t)
}

// Out is a packet sent from the host to the script runtime.
type Out interface {
	Type() Type
	out()
}

// In is a packet sent from the script runtime to the host.
type In interface {
	Type() Type
	in()
}

// Init is sent to the script runtime on startup.
type Init struct {
	// ProjectFolder is the absolute path of the project folder.
	ProjectFolder string `json:"projectFolder"`
}

// Shutdown asks the script runtime to stop.
type Shutdown struct{}

// Event asks the script runtime to emit an application event.
type Event struct {
	Name string `json:"name"`
	Args []any  `json:"args,omitempty"`
}

func (Init) Type() Type     { return TypeInit }
func (Shutdown) Type() Type { return TypeShutdown }
func (Event) Type() Type    { return TypeEvent }

func (Init) out()     {}
func (Shutdown) out() {}
func (Event) out()    {}

// ScriptInit is the init packet as seen from the script side. The host only
// expects to send init, so receiving one is logged and ignored.
type ScriptInit struct{}

// ScriptShutdown asks the host to exit.
type ScriptShutdown struct{}

// Set bundles several packets into one delivery.
type Set struct {
	Packets []In `json:"packets"`
}

// Crashed reports that the script runtime failed.
type Crashed struct {
	Error string `json:"error"`
}

// ImportAsset copies an external file into the project under AssetPath.
type ImportAsset struct {
	File      string `json:"file"`
	AssetPath string `json:"assetPath"`
}

// CreateTileset builds a tileset image from individual tiles.
type CreateTileset struct {
	TilePaths  []string `json:"tilePaths"`
	OutputPath string   `json:"outputPath"`
}

// SetTilesets selects the active tilesets.
type SetTilesets struct {
	OpaqueTilesetPath string `json:"opaqueTilesetPath"`
}

// SetBlock places a block model at a world position. The model is kept as raw
// JSON; its schema belongs to the renderer.
type SetBlock struct {
	Pos   [3]int32        `json:"pos"`
	Model json.RawMessage `json:"model"`
}

func (ScriptInit) Type() Type     { return TypeInit }
func (ScriptShutdown) Type() Type { return TypeShutdown }
func (Set) Type() Type            { return TypeSet }
func (Crashed) Type() Type        { return TypeCrashed }
func (ImportAsset) Type() Type    { return TypeImportAsset }
func (CreateTileset) Type() Type  { return TypeCreateTileset }
func (SetTilesets) Type() Type    { return TypeSetTilesets }
func (SetBlock) Type() Type       { return TypeSetBlock }

func (ScriptInit) in()     {}
func (ScriptShutdown) in() {}
func (Set) in()            {}
func (Crashed) in()        {}
func (ImportAsset) in()    {}
func (CreateTileset) in()  {}
func (SetTilesets) in()    {}
func (SetBlock) in()       {}

// Bundle returns the single packet unchanged, or wraps several packets in a
// Set. It returns nil for no packets.
func Bundle(packets ...In) In {
	switch len(packets) {
	case 0:
		return nil
	case 1:
		return packets[0]
	default:
		return Set{Packets: packets}
	}
}

// Flatten expands nested Set packets in delivery order.
func Flatten(p In) []In {
	set, ok := p.(Set)
	if !ok {
		return []In{p}
	}
	var out []In
	for _, inner := range set.Packets {
		out = append(out, Flatten(inner)...)
	}
	return out
}
