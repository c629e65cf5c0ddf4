package eventbus

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// pendingAdd is a registration requested while an emission was running.
type pendingAdd struct {
	key     Key
	handler *Handler
}

// Bus is an in-process publish/subscribe primitive with persistent and
// one-shot handler registries.
//
// The lock only guards the registries and the pending queues. It is never
// held while a handler runs, so handlers may call back into the bus.
type Bus struct {
	mu         sync.Mutex
	persistent map[Key][]*Handler
	once       map[Key][]*Handler
	depth      int

	// Changes requested while dispatching. Flushed as additions to the
	// persistent registry, then to the one-shot registry, then removals.
	pendingOn     []pendingAdd
	pendingOnce   []pendingAdd
	pendingRemove []*Handler

	logger   *slog.Logger
	recorder Recorder
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger used for dispatch diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithRecorder sets the recorder notified after every emission.
func WithRecorder(r Recorder) Option {
	return func(b *Bus) {
		b.recorder = r
	}
}

// New creates an empty bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		persistent: make(map[Key][]*Handler),
		once:       make(map[Key][]*Handler),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With("component", "eventbus")
	return b
}

// On registers a persistent handler for key. Registering the same handler
// twice makes it run twice per emission.
func (b *Bus) On(key Key, h *Handler) {
	if h == nil || h.fn == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.depth > 0 {
		b.pendingOn = append(b.pendingOn, pendingAdd{key: key, handler: h})
		b.logger.Debug("Deferred registration", "key", key, "handler", h.id)
		return
	}
	b.persistent[key] = append(b.persistent[key], h)
}

// Once registers a handler that runs on the next emission of key only.
func (b *Bus) Once(key Key, h *Handler) {
	if h == nil || h.fn == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.depth > 0 {
		b.pendingOnce = append(b.pendingOnce, pendingAdd{key: key, handler: h})
		b.logger.Debug("Deferred one-shot registration", "key", key, "handler", h.id)
		return
	}
	b.once[key] = append(b.once[key], h)
}

// OnFunc registers fn as a persistent handler and returns its handle.
func (b *Bus) OnFunc(key Key, fn HandlerFunc) *Handler {
	h := NewHandler(fn)
	b.On(key, h)
	return h
}

// OnceFunc registers fn as a one-shot handler and returns its handle.
func (b *Bus) OnceFunc(key Key, fn HandlerFunc) *Handler {
	h := NewHandler(fn)
	b.Once(key, h)
	return h
}

// RemoveListener removes h from every persistent and one-shot registration.
// Removing an unknown handler is a no-op. A removal requested during an
// emission is applied after the additions requested during that emission.
func (b *Bus) RemoveListener(h *Handler) {
	if h == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.depth > 0 {
		b.pendingRemove = append(b.pendingRemove, h)
		b.logger.Debug("Deferred removal", "handler", h.id)
		return
	}
	b.remove(h)
}

// remove drops h from both registries. The caller holds b.mu.
func (b *Bus) remove(h *Handler) {
	removeFrom(b.persistent, h)
	removeFrom(b.once, h)
}

func removeFrom(registry map[Key][]*Handler, h *Handler) {
	for key, handlers := range registry {
		kept := slices.DeleteFunc(slices.Clone(handlers), func(x *Handler) bool { return x == h })
		if len(kept) == 0 {
			delete(registry, key)
			continue
		}
		registry[key] = kept
	}
}

// Emit runs every persistent handler registered for the event's key, then
// every one-shot handler, one at a time and in registration order.
//
// The first handler error aborts the pass and is returned as a *HandlerError.
// One-shot handlers that were not reached stay registered. Registry changes
// requested during the emission are applied when the outermost emission
// returns, whether it succeeded or not.
func (b *Bus) Emit(ctx context.Context, event Event) (err error) {
	if event == nil {
		return ErrNilEvent
	}
	key := event.Key()
	start := time.Now()
	invoked := 0

	b.mu.Lock()
	b.depth++
	persistent := slices.Clone(b.persistent[key])
	b.mu.Unlock()

	defer func() {
		b.finish()
		if b.recorder != nil {
			b.recorder.ObserveEmit(key, invoked, time.Since(start), err)
		}
	}()

	b.logger.Debug("Emitting event", "key", key, "persistent", len(persistent))

	for _, h := range persistent {
		invoked++
		if err := b.invoke(ctx, key, h, event); err != nil {
			return err
		}
	}

	b.mu.Lock()
	once := b.once[key]
	delete(b.once, key)
	b.mu.Unlock()

	for i, h := range once {
		invoked++
		if err := b.invoke(ctx, key, h, event); err != nil {
			b.restoreOnce(key, once[i+1:])
			return err
		}
	}
	return nil
}

func (b *Bus) invoke(ctx context.Context, key Key, h *Handler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &HandlerError{Key: key, HandlerID: h.id, Err: fmt.Errorf("%w: %v", ErrHandlerPanic, r)}
			b.logger.Debug("Handler panicked", "key", key, "handler", h.id, "panic", r)
		}
	}()
	if err := h.fn(ctx, event); err != nil {
		b.logger.Debug("Handler failed", "key", key, "handler", h.id, "error", err)
		return &HandlerError{Key: key, HandlerID: h.id, Err: err}
	}
	return nil
}

// restoreOnce puts one-shot handlers that were never reached back in front of
// the registry for key.
func (b *Bus) restoreOnce(key Key, rest []*Handler) {
	if len(rest) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.once[key] = append(slices.Clone(rest), b.once[key]...)
}

// finish leaves one dispatch level and flushes the pending queues once no
// emission is running anymore.
func (b *Bus) finish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.depth--
	if b.depth > 0 {
		return
	}
	n := len(b.pendingOn) + len(b.pendingOnce) + len(b.pendingRemove)
	if n == 0 {
		return
	}
	for _, op := range b.pendingOn {
		b.persistent[op.key] = append(b.persistent[op.key], op.handler)
	}
	for _, op := range b.pendingOnce {
		b.once[op.key] = append(b.once[op.key], op.handler)
	}
	for _, h := range b.pendingRemove {
		b.remove(h)
	}
	b.pendingOn, b.pendingOnce, b.pendingRemove = nil, nil, nil
	b.logger.Debug("Flushed deferred registry changes", "count", n)
}

// Dispatching reports whether an emission is in progress.
func (b *Bus) Dispatching() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.depth > 0
}

// Listeners returns how many persistent and one-shot registrations exist for
// key. Pending changes are not counted.
func (b *Bus) Listeners(key Key) (persistent, once int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.persistent[key]), len(b.once[key])
}

// Await registers a one-shot handler for key and returns a channel that
// receives the next event emitted under it. Unlike WaitFor it never blocks,
// so it is safe to use from inside a handler.
func (b *Bus) Await(key Key) <-chan Event {
	ch, _ := b.await(key)
	return ch
}

func (b *Bus) await(key Key) (<-chan Event, *Handler) {
	ch := make(chan Event, 1)
	h := b.OnceFunc(key, func(_ context.Context, event Event) error {
		ch <- event
		return nil
	})
	return ch, h
}

// WaitFor blocks until key is emitted and returns the emitted event. It only
// fails when ctx is done, in which case the pending registration is removed.
func (b *Bus) WaitFor(ctx context.Context, key Key) (Event, error) {
	ch, h := b.await(key)
	select {
	case event := <-ch:
		return event, nil
	case <-ctx.Done():
		b.RemoveListener(h)
		select {
		case event := <-ch:
			return event, nil
		default:
		}
		return nil, ctx.Err()
	}
}
