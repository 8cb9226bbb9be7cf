package lowpan

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/rigado/ipsp"
)

func TestConnectDisconnect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "6lowpan_control")
	if err := ioutil.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}
	c := New(path, nil)

	a := ipsp.MustParseAddr("00:aa:bb:cc:dd:ee")
	if err := c.Connect(a); err != nil {
		t.Fatal(err)
	}
	b, err := ioutil.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "connect 00:AA:BB:CC:DD:EE 1" {
		t.Fatalf("unexpected command %q", b)
	}

	if err := c.Disconnect(a); err != nil {
		t.Fatal(err)
	}
	b, err = ioutil.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(b)[:len("disconnect 00:AA:BB:CC:DD:EE 1")] != "disconnect 00:AA:BB:CC:DD:EE 1" {
		t.Fatalf("unexpected command %q", b)
	}
}

func TestConnectMissingController(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "missing"), nil)
	if err := c.Connect("00:AA:BB:CC:DD:EE"); err == nil {
		t.Fatal("expected error")
	}
}

func TestConnections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "6lowpan_control")
	content := "00:11:22:33:44:55 (type 1)\n" +
		"aa:bb:cc:dd:ee:ff (type 1)\n" +
		"garbage-of-17-chr (type 1)\n"
	if err := ioutil.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	list, err := New(path, nil).Connections()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0] != "00:11:22:33:44:55" || list[1] != "AA:BB:CC:DD:EE:FF" {
		t.Fatalf("unexpected connections %v", list)
	}
}
