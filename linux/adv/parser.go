package adv

import (
	"bytes"
	"encoding/binary"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rigado/ipsp"
	"github.com/rigado/ipsp/sliceops"
)

// https://www.bluetooth.org/en-us/specification/assigned-numbers/generic-access-profile
var types = struct {
	flags       byte
	uuid16inc   byte
	uuid16comp  byte
	uuid128inc  byte
	uuid128comp byte
	nameshort   byte
	namecomp    byte
	mfgdata     byte
}{
	flags:       0x01,
	uuid16inc:   0x02,
	uuid16comp:  0x03,
	uuid128inc:  0x06,
	uuid128comp: 0x07,
	nameshort:   0x08,
	namecomp:    0x09,
	mfgdata:     0xff,
}

type pduRecord struct {
	arrayElementSz int
	minSz          int
}

// size constraints of the field types we interpret, everything else is skipped
var pduDecodeMap = map[byte]pduRecord{
	types.uuid16inc:   {2, 2},
	types.uuid16comp:  {2, 2},
	types.uuid128inc:  {16, 16},
	types.uuid128comp: {16, 16},
	types.nameshort:   {0, 1},
	types.namecomp:    {0, 1},
	types.mfgdata:     {0, 2},
}

// ipspUUID128 is the IPSP service UUID expanded on the Bluetooth base UUID.
var ipspUUID128 = uuid.MustParse("00001820-0000-1000-8000-00805f9b34fb")

// Field is one tagged field of an advertising payload.
type Field struct {
	Type byte
	Data []byte
}

// Vendor is the payload of a manufacturer specific field.
type Vendor struct {
	CompanyID uint16
	Data      []byte
}

// Record is the decoded content of one advertising payload.
type Record struct {
	Fields []Field

	// IPSP is set when a service UUID list carries the IPSP UUID.
	IPSP bool

	// Name is the advertised local name, empty if absent or too long.
	Name string

	// Vendor is the manufacturer specific field, nil if absent.
	Vendor *Vendor
}

// cursor walks a bounded slice of tagged fields. Reads never go past the end
// of the slice; a field that would is reported as malformed.
type cursor struct {
	b   []byte
	off int
}

var errEnd = errors.New("end of data")

func (c *cursor) next() (Field, error) {
	if c.off >= len(c.b) {
		return Field{}, errEnd
	}

	//length @ offset 0, counts the type byte and the payload
	length := int(c.b[c.off])
	if length == 0 {
		// zero length marks the end of the significant part, the rest is padding
		return Field{}, errEnd
	}

	//type @ offset 1, data @ 2 .. length
	end := c.off + 1 + length
	if end > len(c.b) {
		return Field{}, errors.Wrapf(ipsp.ErrMalformedInput, "field @ %d: want %d bytes, have %d", c.off, length, len(c.b)-c.off-1)
	}

	f := Field{Type: c.b[c.off+1], Data: c.b[c.off+2 : end]}
	c.off = end
	return f, nil
}

// Parse decodes an advertising payload. Any field that does not fit its declared
// bounds makes the whole payload malformed; the returned error then has
// ipsp.ErrMalformedInput as its cause.
func Parse(b []byte) (*Record, error) {
	if len(b) == 0 {
		return nil, errors.Wrap(ipsp.ErrMalformedInput, "nil/empty pdu")
	}

	r := &Record{}
	c := cursor{b: b}
	for {
		f, err := c.next()
		if err == errEnd {
			break
		}
		if err != nil {
			return nil, err
		}

		if err := r.decode(f); err != nil {
			return nil, errors.Wrapf(err, "adv type %v", f.Type)
		}
		r.Fields = append(r.Fields, f)
	}

	return r, nil
}

func (r *Record) decode(f Field) error {
	dec, ok := pduDecodeMap[f.Type]
	if !ok {
		// forward compatible, unknown types are kept but not interpreted
		return nil
	}

	//have min length?
	if dec.minSz > len(f.Data) {
		return errors.Wrapf(ipsp.ErrMalformedInput, "min length %v, have %v", dec.minSz, len(f.Data))
	}

	//expecting array?
	if dec.arrayElementSz > 0 && len(f.Data)%dec.arrayElementSz != 0 {
		return errors.Wrapf(ipsp.ErrMalformedInput, "length %v not a multiple of %v", len(f.Data), dec.arrayElementSz)
	}

	switch f.Type {
	case types.uuid16inc, types.uuid16comp:
		for i := 0; i < len(f.Data); i += 2 {
			if binary.LittleEndian.Uint16(f.Data[i:]) == ipsp.IPSPUUID {
				r.IPSP = true
			}
		}

	case types.uuid128inc, types.uuid128comp:
		for i := 0; i < len(f.Data); i += 16 {
			u, err := uuid.FromBytes(sliceops.SwapBuf(f.Data[i : i+16]))
			if err == nil && u == ipspUUID128 {
				r.IPSP = true
			}
		}

	case types.nameshort, types.namecomp:
		// refuse names that do not fit, a later name field may still fit
		if len(f.Data) <= ipsp.MaxNameLen {
			r.Name = string(f.Data)
		}

	case types.mfgdata:
		r.Vendor = &Vendor{
			CompanyID: binary.LittleEndian.Uint16(f.Data),
			Data:      f.Data[2:],
		}
	}

	return nil
}

// Authenticated reports whether the vendor field carries identifier. Both
// length and content must match.
func (r *Record) Authenticated(identifier string) bool {
	if r.Vendor == nil || r.Vendor.CompanyID != ipsp.NordicCompanyID {
		return false
	}
	return bytes.Equal(r.Vendor.Data, []byte(identifier))
}

// Accept reports whether the advertisement describes an IPSP node acceptable
// under auth. With authentication disabled the capability alone suffices.
func (r *Record) Accept(auth ipsp.AuthConfig) bool {
	if !r.IPSP {
		return false
	}
	if !auth.Enabled() {
		return true
	}
	return r.Authenticated(auth.Identifier)
}
