package ipsp

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/rigado/ipsp/sliceops"
)

// AddrLen is the length of a canonical address string, e.g. "00:AA:BB:CC:DD:EE".
const AddrLen = 17

// Addr is a 48-bit BLE device address in canonical form: six colon separated,
// upper case, two digit hex octets.
type Addr string

// ParseAddr parses and canonicalises s. Comparison of addresses is case
// insensitive, so "aa:bb:cc:dd:ee:ff" and "AA:BB:CC:DD:EE:FF" parse equal.
func ParseAddr(s string) (Addr, error) {
	s = strings.TrimSpace(s)
	if len(s) != AddrLen {
		return "", errors.Wrapf(ErrInvalidAddr, "%q: want %d characters, have %d", s, AddrLen, len(s))
	}

	for i := 0; i < AddrLen; i++ {
		c := s[i]
		if i%3 == 2 {
			if c != ':' {
				return "", errors.Wrapf(ErrInvalidAddr, "%q: missing separator at %d", s, i)
			}
			continue
		}
		if !isHex(c) {
			return "", errors.Wrapf(ErrInvalidAddr, "%q: invalid hex digit at %d", s, i)
		}
	}

	return Addr(strings.ToUpper(s)), nil
}

// MustParseAddr is like ParseAddr but panics on error.
func MustParseAddr(s string) Addr {
	a, err := ParseAddr(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AddrFromLE builds an Addr from the little-endian byte order used on the air,
// in HCI events and in management frames.
func AddrFromLE(b [6]byte) Addr {
	be := sliceops.SwapBuf(b[:])
	return Addr(fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", be[0], be[1], be[2], be[3], be[4], be[5]))
}

func (a Addr) String() string {
	return string(a)
}

// Bytes returns the address octets most significant first.
func (a Addr) Bytes() []byte {
	out, err := hex.DecodeString(strings.Replace(string(a), ":", "", -1))
	if err != nil || len(out) != 6 {
		return nil
	}
	return out
}

// LE returns the address in little-endian order, as used on the wire.
func (a Addr) LE() [6]byte {
	var out [6]byte
	copy(out[:], sliceops.SwapBuf(a.Bytes()))
	return out
}

// Equal reports whether a and b denote the same device.
func (a Addr) Equal(b Addr) bool {
	return strings.EqualFold(string(a), string(b))
}

func isHex(c byte) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case c >= 'a' && c <= 'f':
		return true
	case c >= 'A' && c <= 'F':
		return true
	}
	return false
}
