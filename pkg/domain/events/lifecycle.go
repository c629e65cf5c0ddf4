// Package events defines the payloads emitted on the script runtime's event
// bus. Every payload type is bound to exactly one key, except Custom which
// carries its own.
package events

import (
	"errors"

	"github.com/amirasaad/awgen/pkg/domain/packet"
	"github.com/amirasaad/awgen/pkg/eventbus"
)

// Event keys emitted by the script runtime.
const (
	KeyReady    eventbus.Key = "ready"
	KeyShutdown eventbus.Key = "shutdown"
	KeyPacket   eventbus.Key = "packet"
	KeyCustom   eventbus.Key = "custom"
)

// ErrReservedKey is returned for custom events named after a lifecycle key.
var ErrReservedKey = errors.New("event name is reserved")

// IsReserved reports whether key belongs to a lifecycle event with its own
// payload type. Custom events must not use these names.
func IsReserved(key eventbus.Key) bool {
	switch key {
	case KeyReady, KeyShutdown, KeyPacket:
		return true
	}
	return false
}

// Ready is emitted once the init packet has been received. Settings holds the
// cached settings at that moment.
type Ready struct {
	ProjectFolder string
	Settings      map[string]string
}

func (Ready) Key() eventbus.Key { return KeyReady }

// Setting returns a cached setting and whether it was present.
func (r Ready) Setting(key string) (string, bool) {
	v, ok := r.Settings[key]
	return v, ok
}

// Shutdown is emitted when the host asks the runtime to stop.
type Shutdown struct {
	Reason string
}

func (Shutdown) Key() eventbus.Key { return KeyShutdown }

// PacketReceived is emitted for every packet before it is routed.
type PacketReceived struct {
	Packet packet.Out
}

func (PacketReceived) Key() eventbus.Key { return KeyPacket }

// Custom is a free-form application event. It is emitted under Name, or under
// KeyCustom when Name is empty.
type Custom struct {
	Name eventbus.Key
	Args []any
}

func (c Custom) Key() eventbus.Key {
	if c.Name == "" {
		return KeyCustom
	}
	return c.Name
}

// Arg returns the i-th argument or nil when out of range.
func (c Custom) Arg(i int) any {
	if i < 0 || i >= len(c.Args) {
		return nil
	}
	return c.Args[i]
}

var (
	_ eventbus.Event = Ready{}
	_ eventbus.Event = Shutdown{}
	_ eventbus.Event = PacketReceived{}
	_ eventbus.Event = Custom{}
)
