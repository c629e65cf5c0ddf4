// Package socket connects the host with the script runtime through a pair of
// in-process packet channels.
package socket

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/amirasaad/awgen/pkg/domain/packet"
)

// ErrSocketClosed is returned when sending on, or fetching from, a closed socket.
var ErrSocketClosed = errors.New("socket closed")

// DefaultBuffer is the per-direction buffer used when NewPair gets a
// non-positive size.
const DefaultBuffer = 64

// pipe is one direction of the pair. Closing it wakes up blocked senders and
// lets receivers drain what was already queued.
type pipe[T any] struct {
	mu     sync.RWMutex
	ch     chan T
	done   chan struct{}
	once   sync.Once
	closed bool
}

func newPipe[T any](buffer int) *pipe[T] {
	return &pipe[T]{ch: make(chan T, buffer), done: make(chan struct{})}
}

func (p *pipe[T]) send(v T) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrSocketClosed
	}
	select {
	case p.ch <- v:
		return nil
	case <-p.done:
		return ErrSocketClosed
	}
}

func (p *pipe[T]) close() {
	p.once.Do(func() {
		close(p.done)
		p.mu.Lock()
		p.closed = true
		close(p.ch)
		p.mu.Unlock()
	})
}

// Engine is the script runtime's end of the pair.
type Engine struct {
	in     *pipe[packet.Out]
	out    *pipe[packet.In]
	logger *slog.Logger
}

// Client is the host's end of the pair.
type Client struct {
	in     *pipe[packet.Out]
	out    *pipe[packet.In]
	logger *slog.Logger
}

// NewPair creates connected engine and client sockets.
func NewPair(buffer int, logger *slog.Logger) (*Engine, *Client) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = logger.With("component", "socket")
	toEngine := newPipe[packet.Out](buffer)
	toClient := newPipe[packet.In](buffer)
	return &Engine{in: toEngine, out: toClient, logger: logger},
		&Client{in: toEngine, out: toClient, logger: logger}
}

// FetchPacket blocks until the host sends the next packet.
func (e *Engine) FetchPacket(ctx context.Context) (packet.Out, error) {
	select {
	case p, ok := <-e.in.ch:
		if !ok {
			return nil, ErrSocketClosed
		}
		return p, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SendPackets queues packets for the host without waiting for them to be
// handled. Several packets are delivered together as one set packet.
func (e *Engine) SendPackets(packets ...packet.In) error {
	p := packet.Bundle(packets...)
	if p == nil {
		return nil
	}
	e.logger.Debug("Sending packets to host", "type", p.Type(), "count", len(packets))
	return e.out.send(p)
}

// Close stops delivery to the host. Packets already queued can still be read.
func (e *Engine) Close() {
	e.out.close()
}

// Send queues a packet for the script runtime.
func (c *Client) Send(p packet.Out) error {
	c.logger.Debug("Sending packet to script runtime", "type", p.Type())
	return c.in.send(p)
}

// Shutdown asks the script runtime to stop.
func (c *Client) Shutdown() error {
	return c.Send(packet.Shutdown{})
}

// Recv returns the next packet from the script runtime if one is available.
// It returns ErrSocketClosed once the runtime closed its end and every queued
// packet was read.
func (c *Client) Recv() (packet.In, bool, error) {
	select {
	case p, ok := <-c.out.ch:
		if !ok {
			return nil, false, ErrSocketClosed
		}
		return p, true, nil
	default:
		return nil, false, nil
	}
}

// Packets exposes the incoming packets as a channel that is closed together
// with the engine socket.
func (c *Client) Packets() <-chan packet.In {
	return c.out.ch
}

// Close stops delivery to the script runtime.
func (c *Client) Close() {
	c.in.close()
}
