package handler

import (
	"context"
	"log/slog"

	"github.com/amirasaad/awgen/pkg/domain/packet"
)

// LifecycleHandler handles init, shutdown and crashed packets.
type LifecycleHandler struct {
	BaseHandler
	logger *slog.Logger
}

func (h *LifecycleHandler) Handle(ctx context.Context, req *PacketRequest) (*PacketResponse, error) {
	switch p := req.Packet.(type) {
	case packet.ScriptInit:
		h.logger.Warn("Received init packet, but only the host sends init")
		return &PacketResponse{Handled: true}, nil
	case packet.ScriptShutdown:
		h.logger.Info("Script requested shutdown")
		return &PacketResponse{Handled: true, Exit: &ExitStatus{Code: 0, Reason: "script requested shutdown"}}, nil
	case packet.Crashed:
		h.logger.Error("The script runtime has crashed", "error", p.Error)
		return &PacketResponse{Handled: true, Exit: &ExitStatus{Code: 1, Reason: p.Error}}, nil
	}
	return h.BaseHandler.Handle(ctx, req)
}
