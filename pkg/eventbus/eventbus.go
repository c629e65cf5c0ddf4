// Package eventbus implements the in-process event bus used by the script
// runtime to sequence lifecycle notifications and application events.
//
// Handlers run sequentially, persistent handlers before one-shot handlers,
// each in registration order. Registering or removing handlers while an
// emission is in progress is always allowed: the change is queued and applied
// once the outermost emission completes, so it never affects the handler list
// currently being iterated.
package eventbus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Key names a category of events. Any key may be used.
type Key string

// String returns the string representation of the key.
func (k Key) String() string {
	return string(k)
}

// Event is the payload handed to handlers. Each key has a fixed payload shape
// and the payload reports the key it is emitted under.
type Event interface {
	Key() Key
}

// HandlerFunc processes a single event.
type HandlerFunc func(ctx context.Context, event Event) error

// Handler is a registered callback. Handlers are compared by identity, so the
// same *Handler must be passed to RemoveListener to unregister it.
type Handler struct {
	id string
	fn HandlerFunc
}

// NewHandler wraps fn into a handler with its own identity.
func NewHandler(fn HandlerFunc) *Handler {
	return &Handler{id: uuid.NewString(), fn: fn}
}

// ID returns the identifier used in logs for this handler.
func (h *Handler) ID() string {
	return h.id
}

var (
	// ErrHandlerPanic is wrapped by a HandlerError when a handler panics.
	ErrHandlerPanic = errors.New("eventbus: handler panicked")
	// ErrUnexpectedEvent is returned by typed handlers that receive a payload
	// of the wrong type for their key.
	ErrUnexpectedEvent = errors.New("eventbus: unexpected event payload")
	// ErrNilEvent is returned by Emit for a nil event. No handler runs.
	ErrNilEvent = errors.New("eventbus: nil event")
)

// HandlerError reports a handler failure during Emit. Handlers after the
// failing one are not invoked for that emission.
type HandlerError struct {
	Key       Key
	HandlerID string
	Err       error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("eventbus: handler %s for %q failed: %v", e.HandlerID, e.Key, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

// Recorder observes completed emissions. It is used for metrics.
type Recorder interface {
	ObserveEmit(key Key, handlers int, duration time.Duration, err error)
}
