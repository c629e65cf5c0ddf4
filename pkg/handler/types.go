package handler

import (
	"context"
	"encoding/json"

	"github.com/amirasaad/awgen/pkg/domain/packet"
)

// PacketHandler defines the interface for handling script packets in the chain
type PacketHandler interface {
	Handle(ctx context.Context, req *PacketRequest) (*PacketResponse, error)
	SetNext(handler PacketHandler)
}

// PacketRequest carries one packet received from the script runtime.
type PacketRequest struct {
	Packet packet.In
	// Depth is the set nesting level the packet was found at.
	Depth int
}

// ExitStatus asks the host to stop.
type ExitStatus struct {
	Code   int
	Reason string
}

// PacketResponse contains the result of handling a packet.
type PacketResponse struct {
	Handled bool
	Exit    *ExitStatus
}

// merge folds another response into r. The exit with the highest code wins.
func (r *PacketResponse) merge(other *PacketResponse) {
	if other == nil {
		return
	}
	r.Handled = r.Handled || other.Handled
	if other.Exit != nil && (r.Exit == nil || other.Exit.Code > r.Exit.Code) {
		r.Exit = other.Exit
	}
}

// WorldSink applies world changes requested by scripts. Tileset images and
// block models are owned by the renderer, so the host only validates and
// resolves paths before handing them over.
type WorldSink interface {
	CreateTileset(ctx context.Context, tileFiles []string, outputFile string) error
	SetTilesets(ctx context.Context, opaqueTilesetPath string) error
	SetBlock(ctx context.Context, pos [3]int32, model json.RawMessage) error
}
