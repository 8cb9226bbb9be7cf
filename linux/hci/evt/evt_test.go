package evt

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	"github.com/rigado/ipsp"
)

func TestAdvertisingReport(t *testing.T) {
	data := []byte{0x03, 0x03, 0x20, 0x18}
	params := []byte{
		LEAdvertisingReportSubCode,
		0x01,                               // reports
		0x00,                               // ADV_IND
		0x00,                               // public
		0xee, 0xdd, 0xcc, 0xbb, 0xaa, 0x00, // address, little endian
		byte(len(data)),
	}
	params = append(params, data...)
	params = append(params, 0xc4) // -60 dBm

	pkt := append([]byte{PktTypeEvent, LEMetaCode, byte(len(params))}, params...)
	code, p, err := Split(pkt)
	if err != nil {
		t.Fatal(err)
	}
	if code != LEMetaCode {
		t.Fatalf("code 0x%02x", code)
	}

	rr, err := LEAdvertisingReport(p).Reports()
	if err != nil {
		t.Fatal(err)
	}
	if len(rr) != 1 {
		t.Fatalf("reports %+v", rr)
	}

	r := rr[0]
	if r.Addr != "00:AA:BB:CC:DD:EE" || r.RSSI != -60 || !bytes.Equal(r.Data, data) {
		t.Fatalf("unexpected report %+v", r)
	}
}

func TestAdvertisingReportTruncated(t *testing.T) {
	full := []byte{
		LEAdvertisingReportSubCode, 0x01, 0x00, 0x00,
		0xee, 0xdd, 0xcc, 0xbb, 0xaa, 0x00,
		0x04, 0x03, 0x03, 0x20, 0x18,
		0xc4,
	}

	for n := 0; n < len(full); n++ {
		_, err := LEAdvertisingReport(full[:n]).Reports()
		if errors.Cause(err) != ipsp.ErrMalformedInput {
			t.Fatalf("len %d: want malformed, have %v", n, err)
		}
	}

	// data length pointing past the end
	bad := append([]byte{}, full...)
	bad[10] = 0x20
	if _, err := LEAdvertisingReport(bad).Reports(); errors.Cause(err) != ipsp.ErrMalformedInput {
		t.Fatalf("want malformed, have %v", err)
	}
}

func TestSplit(t *testing.T) {
	for _, b := range [][]byte{
		nil,
		{0x02, 0x0e, 0x00},
		{PktTypeEvent, CommandCompleteCode, 0x04, 0x01},
	} {
		if _, _, err := Split(b); errors.Cause(err) != ipsp.ErrMalformedInput {
			t.Fatalf("[% x]: want malformed, have %v", b, err)
		}
	}
}

func TestCommandComplete(t *testing.T) {
	cc := CommandComplete{0x01, 0x0b, 0x20, 0x00}
	op, err := cc.CommandOpcodeWErr()
	if err != nil || op != 0x200b {
		t.Fatalf("opcode 0x%04x %v", op, err)
	}
	st, err := cc.Status()
	if err != nil || st != 0 {
		t.Fatalf("status %v %v", st, err)
	}

	if _, err := (CommandComplete{0x01, 0x0b, 0x20}).Status(); err == nil {
		t.Fatal("missing status accepted")
	}
}
