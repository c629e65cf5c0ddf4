package handler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/amirasaad/awgen/pkg/domain/asset"
	"github.com/amirasaad/awgen/pkg/domain/packet"
)

// AssetHandler copies files into the project for importAsset packets.
type AssetHandler struct {
	BaseHandler
	projectFolder string
	logger        *slog.Logger
}

func (h *AssetHandler) Handle(ctx context.Context, req *PacketRequest) (*PacketResponse, error) {
	p, ok := req.Packet.(packet.ImportAsset)
	if !ok {
		return h.BaseHandler.Handle(ctx, req)
	}
	logger := h.logger.With("file", p.File, "asset_path", p.AssetPath)
	logger.Info("Importing asset")

	dest, err := resolveAsset(h.projectFolder, p.AssetPath)
	if err != nil {
		return nil, err
	}
	if err := copyFile(p.File, dest); err != nil {
		logger.Error("Failed to copy asset file", "dest", dest, "error", err)
		return nil, err
	}
	logger.Debug("Imported asset", "dest", dest)
	return &PacketResponse{Handled: true}, nil
}

// resolveAsset parses an asset path and creates the folder it lives in.
func resolveAsset(projectFolder, assetPath string) (string, error) {
	path, err := asset.Parse(assetPath)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(path.Dir(projectFolder), 0o755); err != nil {
		return "", fmt.Errorf("create asset folder for %s: %w", assetPath, err)
	}
	return path.File(projectFolder), nil
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close() //nolint:errcheck

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	_, err = io.Copy(out, in)
	return err
}
