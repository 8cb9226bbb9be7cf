package adv

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// MaxEIRPacketLength is the maximum allowed AdvertisingPacket
// and ScanResponsePacket length.
const MaxEIRPacketLength = 31

// ErrNotFit is returned when a field does not fit into the remaining space of a packet.
var ErrNotFit = errors.New("field doesn't fit into the packet")

// Packet is used for crafting an advertising packet or scan response.
// Refer to Supplement to Bluetooth Core Specification | CSSv6, Part A.
type Packet struct {
	b []byte
}

// Bytes returns the bytes of the packet.
func (p *Packet) Bytes() []byte {
	return p.b
}

// Len returns the length of the packet.
func (p *Packet) Len() int {
	return len(p.b)
}

// NewPacket returns a new advertising Packet.
func NewPacket(fields ...FieldFunc) (*Packet, error) {
	p := &Packet{b: make([]byte, 0, MaxEIRPacketLength)}
	for _, f := range fields {
		if err := f(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// FieldFunc is an advertising field which can be appended to a packet.
type FieldFunc func(p *Packet) error

// Append appends a field to the packet. It returns ErrNotFit if the field
// doesn't fit into the packet, and leaves the packet intact.
func (p *Packet) Append(f FieldFunc) error {
	return f(p)
}

func (p *Packet) append(typ byte, b []byte) error {
	if p.Len()+1+1+len(b) > MaxEIRPacketLength {
		return ErrNotFit
	}
	p.b = append(p.b, byte(len(b)+1))
	p.b = append(p.b, typ)
	p.b = append(p.b, b...)
	return nil
}

// Raw appends the bytes to the current packet as is.
func Raw(b []byte) FieldFunc {
	return func(p *Packet) error {
		if p.Len()+len(b) > MaxEIRPacketLength {
			return ErrNotFit
		}
		p.b = append(p.b, b...)
		return nil
	}
}

// Flags is a flags field.
func Flags(f byte) FieldFunc {
	return func(p *Packet) error {
		return p.append(types.flags, []byte{f})
	}
}

// UUID16List is a complete list of 16-bit service UUIDs.
func UUID16List(uu ...uint16) FieldFunc {
	return func(p *Packet) error {
		b := make([]byte, 2*len(uu))
		for i, u := range uu {
			binary.LittleEndian.PutUint16(b[2*i:], u)
		}
		return p.append(types.uuid16comp, b)
	}
}

// ShortName is a short local name.
func ShortName(n string) FieldFunc {
	return func(p *Packet) error {
		return p.append(types.nameshort, []byte(n))
	}
}

// CompleteName is a complete local name.
func CompleteName(n string) FieldFunc {
	return func(p *Packet) error {
		return p.append(types.namecomp, []byte(n))
	}
}

// ManufacturerData is manufacturer specific data prefixed with the company id.
func ManufacturerData(id uint16, b []byte) FieldFunc {
	return func(p *Packet) error {
		d := append([]byte{uint8(id), uint8(id >> 8)}, b...)
		return p.append(types.mfgdata, d)
	}
}
