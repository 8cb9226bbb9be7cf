// +build linux

package socket

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rigado/ipsp"
)

type fakeTransport struct {
	written [][]byte
	inbound [][]byte
	status  uint8
	conns   int
}

func (f *fakeTransport) Write(p []byte) (int, error) {
	f.written = append(f.written, append([]byte{}, p...))
	op := uint16(p[1]) | uint16(p[2])<<8
	f.inbound = append(f.inbound, []byte{0x04, 0x0e, 0x04, 0x01, byte(op), byte(op >> 8), f.status})
	return len(p), nil
}

func (f *fakeTransport) ReadTimeout(p []byte, d time.Duration) (int, error) {
	if len(f.inbound) == 0 {
		time.Sleep(d)
		return 0, nil
	}
	b := f.inbound[0]
	f.inbound = f.inbound[1:]
	return copy(p, b), nil
}

func (f *fakeTransport) ConnectionCount() (int, error) { return f.conns, nil }
func (f *fakeTransport) Close() error                  { return nil }

func advReport(addr byte, data []byte) []byte {
	params := []byte{0x02, 0x01, 0x00, 0x00, addr, 0, 0, 0, 0, 0, byte(len(data))}
	params = append(params, data...)
	params = append(params, 0xc4)
	return append([]byte{0x04, 0x3e, byte(len(params))}, params...)
}

func TestValidateScanParams(t *testing.T) {
	if err := ValidateScanParams(ipsp.DefaultScanParams()); err != nil {
		t.Fatal(err)
	}

	for _, p := range []ipsp.ScanParams{
		{Interval: 0x0003, Window: 0x0003},
		{Interval: 0x4001, Window: 0x0004},
		{Interval: 0x0010, Window: 0x0020},
		{Interval: 0x0010, Window: 0x0004, FilterPolicy: 2},
	} {
		if errors.Cause(ValidateScanParams(p)) != ipsp.ErrConfig {
			t.Fatalf("%+v accepted", p)
		}
	}
}

func TestDeviceID(t *testing.T) {
	id, err := DeviceID("hci1")
	if err != nil || id != 1 {
		t.Fatalf("hci1: %v %v", id, err)
	}
	for _, n := range []string{"", "hci", "hcix", "eth0", "hci-1"} {
		if _, err := DeviceID(n); errors.Cause(err) != ipsp.ErrConfig {
			t.Fatalf("%q accepted", n)
		}
	}
	if DeviceName(0) != "hci0" {
		t.Fatal(DeviceName(0))
	}
}

func TestScanCommands(t *testing.T) {
	f := &fakeTransport{}
	r := newRadio(f, "hci0", nil)

	if err := r.SetScanParameters(ipsp.DefaultScanParams()); err != nil {
		t.Fatal(err)
	}
	if err := r.SetScanEnable(true, true); err != nil {
		t.Fatal(err)
	}

	want := [][]byte{
		{0x01, 0x0b, 0x20, 0x07, 0x01, 0x10, 0x00, 0x04, 0x00, 0x00, 0x00},
		{0x01, 0x0c, 0x20, 0x02, 0x01, 0x01},
	}
	for i := range want {
		if !bytes.Equal(f.written[i], want[i]) {
			t.Fatalf("command %d: want [% x], have [% x]", i, want[i], f.written[i])
		}
	}

	f.status = 0x0c
	if err := r.SetScanEnable(false, true); err == nil {
		t.Fatal("failed command accepted")
	}
}

func TestNextAdvertisement(t *testing.T) {
	f := &fakeTransport{}
	r := newRadio(f, "hci0", nil)

	f.inbound = append(f.inbound,
		[]byte{0x04, 0x3e, 0x02, 0x02}, // malformed
		advReport(0x01, []byte{0x02, 0x01, 0x06}),
	)

	a, ok, err := r.NextAdvertisement(context.Background(), time.Now().Add(time.Second))
	if err != nil || !ok {
		t.Fatalf("ok %v err %v", ok, err)
	}
	if a.Addr != "00:00:00:00:00:01" || !bytes.Equal(a.Data, []byte{0x02, 0x01, 0x06}) {
		t.Fatalf("unexpected advertisement %+v", a)
	}

	start := time.Now()
	_, ok, err = r.NextAdvertisement(context.Background(), time.Now().Add(150*time.Millisecond))
	if err != nil || ok {
		t.Fatalf("ok %v err %v", ok, err)
	}
	if time.Since(start) < 150*time.Millisecond {
		t.Fatal("returned before the deadline")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok, err = r.NextAdvertisement(ctx, time.Now().Add(time.Hour))
	if err != nil || ok {
		t.Fatalf("ok %v err %v", ok, err)
	}
}

func TestReportsDuringCommand(t *testing.T) {
	f := &fakeTransport{}
	r := newRadio(f, "hci0", nil)

	// a report arriving ahead of the completion is kept
	f.inbound = append(f.inbound, advReport(0x02, []byte{0x02, 0x01, 0x06}))
	if err := r.SetScanEnable(true, true); err != nil {
		t.Fatal(err)
	}
	if len(r.pending) != 1 {
		t.Fatalf("pending %d", len(r.pending))
	}

	// and one arriving ahead of the disable completion is dropped with it
	f.inbound = append(f.inbound, advReport(0x03, []byte{0x02, 0x01, 0x06}))
	if err := r.SetScanEnable(false, true); err != nil {
		t.Fatal(err)
	}
	if len(r.pending) != 0 {
		t.Fatalf("pending %d after disable", len(r.pending))
	}

	_, ok, err := r.NextAdvertisement(context.Background(), time.Now().Add(50*time.Millisecond))
	if err != nil || ok {
		t.Fatalf("stale report returned: ok %v err %v", ok, err)
	}
}

func TestEventFilter(t *testing.T) {
	b := eventFilter(0x0e, 0x0f, 0x3e)
	want := []byte{
		0x10, 0, 0, 0,
		0x00, 0xc0, 0, 0,
		0, 0, 0, 0x40,
		0, 0, 0, 0,
	}
	if !bytes.Equal(b, want) {
		t.Fatalf("want [% x], have [% x]", want, b)
	}
}
