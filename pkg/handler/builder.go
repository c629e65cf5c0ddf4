package handler

import (
	"io"
	"log/slog"
)

// ChainBuilder builds the packet handling chain
type ChainBuilder struct {
	projectFolder string
	sink          WorldSink
	logger        *slog.Logger
}

// NewChainBuilder creates a new chain builder. sink may be nil.
func NewChainBuilder(projectFolder string, sink WorldSink, logger *slog.Logger) *ChainBuilder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ChainBuilder{
		projectFolder: projectFolder,
		sink:          sink,
		logger:        logger.With("component", "packet_handler"),
	}
}

// Build links lifecycle, set, asset and world handlers in that order.
func (b *ChainBuilder) Build() PacketHandler {
	lifecycle := &LifecycleHandler{logger: b.logger}
	set := &SetHandler{root: lifecycle, logger: b.logger}
	assets := &AssetHandler{projectFolder: b.projectFolder, logger: b.logger}
	world := &WorldHandler{projectFolder: b.projectFolder, sink: b.sink, logger: b.logger}

	lifecycle.SetNext(set)
	set.SetNext(assets)
	assets.SetNext(world)

	return lifecycle
}
