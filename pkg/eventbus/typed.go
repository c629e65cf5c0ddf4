package eventbus

import (
	"context"
	"fmt"
)

// Typed wraps fn so it only accepts payloads of type E. The key is taken from
// the zero value of E.
func Typed[E Event](fn func(context.Context, E) error) HandlerFunc {
	return func(ctx context.Context, event Event) error {
		e, ok := event.(E)
		if !ok {
			var want E
			return fmt.Errorf("%w: want %T, got %T", ErrUnexpectedEvent, want, event)
		}
		return fn(ctx, e)
	}
}

// KeyOf returns the key events of type E are emitted under.
func KeyOf[E Event]() Key {
	var zero E
	return zero.Key()
}

// Subscribe registers a persistent typed handler for E's key.
func Subscribe[E Event](b *Bus, fn func(context.Context, E) error) *Handler {
	return b.OnFunc(KeyOf[E](), Typed(fn))
}

// SubscribeOnce registers a one-shot typed handler for E's key.
func SubscribeOnce[E Event](b *Bus, fn func(context.Context, E) error) *Handler {
	return b.OnceFunc(KeyOf[E](), Typed(fn))
}

// WaitForEvent blocks until an event of type E is emitted.
func WaitForEvent[E Event](ctx context.Context, b *Bus) (E, error) {
	var zero E
	event, err := b.WaitFor(ctx, KeyOf[E]())
	if err != nil {
		return zero, err
	}
	e, ok := event.(E)
	if !ok {
		return zero, fmt.Errorf("%w: want %T, got %T", ErrUnexpectedEvent, zero, event)
	}
	return e, nil
}
