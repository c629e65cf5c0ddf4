package handler

import (
	"context"
	"log/slog"

	"github.com/amirasaad/awgen/pkg/domain/packet"
)

// SetHandler unpacks set packets and runs every inner packet through the
// whole chain. A failing inner packet is logged and does not stop the rest.
type SetHandler struct {
	BaseHandler
	root   PacketHandler
	logger *slog.Logger
}

func (h *SetHandler) Handle(ctx context.Context, req *PacketRequest) (*PacketResponse, error) {
	set, ok := req.Packet.(packet.Set)
	if !ok {
		return h.BaseHandler.Handle(ctx, req)
	}
	h.logger.Debug("Received set packet", "items", len(set.Packets), "depth", req.Depth)

	resp := &PacketResponse{Handled: true}
	for _, inner := range set.Packets {
		if inner == nil {
			continue
		}
		r, err := h.root.Handle(ctx, &PacketRequest{Packet: inner, Depth: req.Depth + 1})
		if err != nil {
			h.logger.Error("Packet in set failed", "type", inner.Type(), "error", err)
			continue
		}
		resp.merge(r)
	}
	return resp, nil
}
