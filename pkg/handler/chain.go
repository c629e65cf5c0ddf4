package handler

import (
	"context"
	"io"
	"log/slog"

	"github.com/amirasaad/awgen/pkg/domain/packet"
	"github.com/amirasaad/awgen/pkg/socket"
)

// Host reads packets sent by the script runtime and runs them through the
// handler chain.
type Host struct {
	client *socket.Client
	chain  PacketHandler
	logger *slog.Logger
}

// NewHost creates a host for the client end of a socket pair.
func NewHost(client *socket.Client, chain PacketHandler, logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Host{client: client, chain: chain, logger: logger.With("component", "host")}
}

// Serve handles packets until one asks the host to exit, the script runtime
// closes its socket, or ctx is done. Failing packets are logged and skipped.
func (h *Host) Serve(ctx context.Context) (ExitStatus, error) {
	for {
		select {
		case <-ctx.Done():
			return ExitStatus{}, ctx.Err()
		case p, ok := <-h.client.Packets():
			if !ok {
				h.logger.Info("Script runtime closed its socket")
				return ExitStatus{Code: 0, Reason: "script runtime stopped"}, nil
			}
			resp, err := h.Handle(ctx, p)
			if err != nil {
				h.logger.Error("Failed to handle packet", "type", p.Type(), "error", err)
				continue
			}
			if resp.Exit != nil {
				return *resp.Exit, nil
			}
		}
	}
}

// Handle runs a single packet through the chain.
func (h *Host) Handle(ctx context.Context, p packet.In) (*PacketResponse, error) {
	resp, err := h.chain.Handle(ctx, &PacketRequest{Packet: p})
	if err != nil {
		return nil, err
	}
	if !resp.Handled {
		h.logger.Warn("Unhandled packet", "type", p.Type())
	}
	return resp, nil
}

// Send forwards a packet to the script runtime.
func (h *Host) Send(p packet.Out) error {
	return h.client.Send(p)
}

// Shutdown asks the script runtime to stop.
func (h *Host) Shutdown() error {
	return h.client.Shutdown()
}
