package ipsp

import (
	"testing"

	"github.com/pkg/errors"
)

func TestParseAddr(t *testing.T) {
	good := map[string]Addr{
		"00:11:22:33:44:55":   "00:11:22:33:44:55",
		"aa:bb:cc:dd:ee:ff":   "AA:BB:CC:DD:EE:FF",
		" Aa:bB:0c:Dd:eE:f0 ": "AA:BB:0C:DD:EE:F0",
	}
	for in, want := range good {
		a, err := ParseAddr(in)
		if err != nil {
			t.Fatalf("%q: unexpected error %v", in, err)
		}
		if a != want {
			t.Fatalf("%q: want %v, have %v", in, want, a)
		}
	}

	bad := []string{
		"",
		"00:11:22:33:44",
		"00:11:22:33:44:555",
		"00-11-22-33-44-55",
		"0g:11:22:33:44:55",
		"001122334455",
	}
	for _, in := range bad {
		_, err := ParseAddr(in)
		if errors.Cause(err) != ErrInvalidAddr {
			t.Fatalf("%q: expected ErrInvalidAddr, have %v", in, err)
		}
	}
}

func TestAddrByteOrder(t *testing.T) {
	a := MustParseAddr("00:11:22:33:44:55")

	le := a.LE()
	if le != [6]byte{0x55, 0x44, 0x33, 0x22, 0x11, 0x00} {
		t.Fatalf("wrong little-endian bytes %x", le)
	}

	if b := AddrFromLE(le); b != a {
		t.Fatalf("round trip: want %v, have %v", a, b)
	}

	if !a.Equal("00:11:22:33:44:55") || a.Equal("00:11:22:33:44:56") {
		t.Fatal("Equal mismatch")
	}
	if !Addr("aa:bb:cc:dd:ee:ff").Equal("AA:BB:CC:DD:EE:FF") {
		t.Fatal("Equal should ignore case")
	}
}
