package handler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amirasaad/awgen/pkg/domain"
	"github.com/amirasaad/awgen/pkg/domain/asset"
	"github.com/amirasaad/awgen/pkg/domain/packet"
)

// TilesetExt is the extension tileset assets must use.
const TilesetExt = ".tiles"

// WorldHandler validates tileset and block packets and forwards them to a
// WorldSink. Without a sink the packets are only logged.
type WorldHandler struct {
	BaseHandler
	projectFolder string
	sink          WorldSink
	logger        *slog.Logger
}

func (h *WorldHandler) Handle(ctx context.Context, req *PacketRequest) (*PacketResponse, error) {
	switch p := req.Packet.(type) {
	case packet.CreateTileset:
		return h.createTileset(ctx, p)
	case packet.SetTilesets:
		h.logger.Info("Received set tilesets packet", "opaque_tileset_path", p.OpaqueTilesetPath)
		if _, err := asset.Parse(p.OpaqueTilesetPath); err != nil {
			return nil, err
		}
		if h.sink == nil {
			return &PacketResponse{Handled: true}, nil
		}
		return &PacketResponse{Handled: true}, h.sink.SetTilesets(ctx, p.OpaqueTilesetPath)
	case packet.SetBlock:
		h.logger.Debug("Received set block packet", "pos", p.Pos)
		if h.sink == nil {
			return &PacketResponse{Handled: true}, nil
		}
		return &PacketResponse{Handled: true}, h.sink.SetBlock(ctx, p.Pos, p.Model)
	}
	return h.BaseHandler.Handle(ctx, req)
}

func (h *WorldHandler) createTileset(ctx context.Context, p packet.CreateTileset) (*PacketResponse, error) {
	h.logger.Info("Received create tileset packet", "tile_paths", p.TilePaths, "output_path", p.OutputPath)

	out, err := asset.Parse(p.OutputPath)
	if err != nil {
		return nil, err
	}
	if out.Ext() != TilesetExt {
		return nil, fmt.Errorf("%w: tilesets must have a %q extension, found %s",
			domain.ErrValidation, TilesetExt, p.OutputPath)
	}

	tiles := make([]string, 0, len(p.TilePaths))
	for _, tp := range p.TilePaths {
		file, err := resolveAsset(h.projectFolder, tp)
		if err != nil {
			return nil, err
		}
		tiles = append(tiles, file)
	}
	outFile, err := resolveAsset(h.projectFolder, p.OutputPath)
	if err != nil {
		return nil, err
	}

	if h.sink == nil {
		return &PacketResponse{Handled: true}, nil
	}
	return &PacketResponse{Handled: true}, h.sink.CreateTileset(ctx, tiles, outFile)
}
