package packet

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrUnknownPacket is returned when the "type" field names no known packet.
	ErrUnknownPacket = errors.New("unknown packet type")
	// ErrMalformedPacket is returned when a packet is not a JSON object with a
	// string "type" field.
	ErrMalformedPacket = errors.New("malformed packet")
)

var outFactories = map[Type]func() Out{
	TypeInit:     func() Out { return &Init{} },
	TypeShutdown: func() Out { return &Shutdown{} },
	TypeEvent:    func() Out { return &Event{} },
}

var inFactories = map[Type]func() In{
	TypeInit:          func() In { return &ScriptInit{} },
	TypeShutdown:      func() In { return &ScriptShutdown{} },
	TypeSet:           func() In { return &Set{} },
	TypeCrashed:       func() In { return &Crashed{} },
	TypeImportAsset:   func() In { return &ImportAsset{} },
	TypeCreateTileset: func() In { return &CreateTileset{} },
	TypeSetTilesets:   func() In { return &SetTilesets{} },
	TypeSetBlock:      func() In { return &SetBlock{} },
}

// MarshalOut encodes a host packet.
func MarshalOut(p Out) ([]byte, error) {
	return marshalTagged(p.Type(), p)
}

// MarshalIn encodes a script packet.
func MarshalIn(p In) ([]byte, error) {
	return marshalTagged(p.Type(), p)
}

// UnmarshalOut decodes a host packet.
func UnmarshalOut(data []byte) (Out, error) {
	typ, body, err := splitTagged(data)
	if err != nil {
		return nil, err
	}
	factory, ok := outFactories[typ]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPacket, typ)
	}
	p := factory()
	if err := decodeStrict(body, p); err != nil {
		return nil, fmt.Errorf("decode %s packet: %w", typ, err)
	}
	return deref(p).(Out), nil
}

// UnmarshalIn decodes a script packet.
func UnmarshalIn(data []byte) (In, error) {
	typ, body, err := splitTagged(data)
	if err != nil {
		return nil, err
	}
	factory, ok := inFactories[typ]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPacket, typ)
	}
	p := factory()
	if err := decodeStrict(body, p); err != nil {
		return nil, fmt.Errorf("decode %s packet: %w", typ, err)
	}
	return deref(p).(In), nil
}

// MarshalJSON encodes the bundled packets with their own type tags.
func (s Set) MarshalJSON() ([]byte, error) {
	packets := make([]json.RawMessage, 0, len(s.Packets))
	for _, p := range s.Packets {
		raw, err := MarshalIn(p)
		if err != nil {
			return nil, err
		}
		packets = append(packets, raw)
	}
	return json.Marshal(struct {
		Packets []json.RawMessage `json:"packets"`
	}{Packets: packets})
}

// UnmarshalJSON decodes the bundled packets by their type tags.
func (s *Set) UnmarshalJSON(data []byte) error {
	var body struct {
		Packets []json.RawMessage `json:"packets"`
	}
	if err := decodeStrict(data, &body); err != nil {
		return err
	}
	s.Packets = make([]In, 0, len(body.Packets))
	for _, raw := range body.Packets {
		p, err := UnmarshalIn(raw)
		if err != nil {
			return err
		}
		s.Packets = append(s.Packets, p)
	}
	return nil
}

func marshalTagged(typ Type, v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: %s does not encode to an object", ErrMalformedPacket, typ)
	}
	tag, err := json.Marshal(typ)
	if err != nil {
		return nil, err
	}
	fields["type"] = tag
	return json.Marshal(fields)
}

// splitTagged returns the type tag and the remaining fields of a packet.
func splitTagged(data []byte) (Type, []byte, error) {
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformedPacket, err)
	}
	rawType, ok := fields["type"]
	if !ok {
		return "", nil, fmt.Errorf("%w: missing type", ErrMalformedPacket)
	}
	var typ Type
	if err := json.Unmarshal(rawType, &typ); err != nil {
		return "", nil, fmt.Errorf("%w: type must be a string", ErrMalformedPacket)
	}
	delete(fields, "type")
	body, err := json.Marshal(fields)
	if err != nil {
		return "", nil, err
	}
	return typ, body, nil
}

func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func deref(p any) any {
	switch v := p.(type) {
	case *Init:
		return *v
	case *Shutdown:
		return *v
	case *Event:
		return *v
	case *ScriptInit:
		return *v
	case *ScriptShutdown:
		return *v
	case *Set:
		return *v
	case *Crashed:
		return *v
	case *ImportAsset:
		return *v
	case *CreateTileset:
		return *v
	case *SetTilesets:
		return *v
	case *SetBlock:
		return *v
	default:
		return p
	}
}
