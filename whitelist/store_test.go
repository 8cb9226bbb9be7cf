package whitelist

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rigado/ipsp"
)

func testStore(t *testing.T) *Store {
	dir := t.TempDir()
	s, err := New(Config{
		Path:              filepath.Join(dir, "bluetooth_6lowpand.conf"),
		PollInterval:      10 * time.Millisecond,
		LockRetryInterval: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestAddContains(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	a := ipsp.MustParseAddr("00:AA:BB:CC:DD:EE")

	ok, err := s.Contains(ctx, a)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatalf("empty whitelist contains %v", a)
	}

	if err := s.Add(ctx, a); err != nil {
		t.Fatal(err)
	}

	ok, err = s.Contains(ctx, "00:aa:bb:cc:dd:ee")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatalf("%v not found after add", a)
	}

	b, err := ioutil.ReadFile(s.cfg.Path)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "{\n\taddress=\"00:AA:BB:CC:DD:EE\"\n}\n" {
		t.Fatalf("unexpected file content %q", b)
	}
}

func TestAddIdempotent(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	for _, v := range []ipsp.Addr{"00:AA:BB:CC:DD:EE", "00:aa:bb:cc:dd:ee", "00:AA:BB:CC:DD:EE"} {
		if err := s.Add(ctx, v); err != nil {
			t.Fatal(err)
		}
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("want 1 entry, have %v", list)
	}
}

func TestAddInvalid(t *testing.T) {
	s := testStore(t)
	err := s.Add(context.Background(), "00:AA:BB:CC:DD")
	if errors.Cause(err) != ipsp.ErrInvalidAddr {
		t.Fatalf("want ErrInvalidAddr, have %v", err)
	}
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	in := []ipsp.Addr{"00:00:00:00:00:01", "00:00:00:00:00:02", "00:00:00:00:00:03"}
	for _, v := range in {
		if err := s.Add(ctx, v); err != nil {
			t.Fatal(err)
		}
	}

	if err := s.Remove(ctx, "00:00:00:00:00:02"); err != nil {
		t.Fatal(err)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0] != in[0] || list[1] != in[2] {
		t.Fatalf("unexpected list after remove %v", list)
	}

	if _, err := os.Stat(s.cfg.SwapPath); !os.IsNotExist(err) {
		t.Fatalf("staging file left behind: %v", err)
	}

	// absent address
	if err := s.Remove(ctx, "00:00:00:00:00:09"); err != nil {
		t.Fatal(err)
	}
	list, err = s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("unexpected list %v", list)
	}
}

func TestRemoveStagingFailure(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := New(Config{
		Path:     filepath.Join(dir, "wl.conf"),
		SwapPath: filepath.Join(dir, "missing", "wl.conf.swp"),
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Add(ctx, "00:00:00:00:00:01"); err != nil {
		t.Fatal(err)
	}
	before, err := ioutil.ReadFile(s.cfg.Path)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Remove(ctx, "00:00:00:00:00:01"); err == nil {
		t.Fatal("expected staging error")
	}

	after, err := ioutil.ReadFile(s.cfg.Path)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Fatalf("primary modified by failed remove: %q", after)
	}
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	if err := s.Add(ctx, "00:00:00:00:00:01"); err != nil {
		t.Fatal(err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatal(err)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Fatalf("list not empty after clear: %v", list)
	}
}

func TestTolerantFormat(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	content := "{\n  address = \"aa:bb:cc:dd:ee:01\"  \n}\n" +
		"{\n\tname=\"no address here\"\n}\n" +
		"{\n\taddress=\"not-an-address\"\n}\n" +
		"\n{\naddress=\"AA:BB:CC:DD:EE:02\"\n}\n"
	if err := ioutil.WriteFile(s.cfg.Path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0] != "AA:BB:CC:DD:EE:01" || list[1] != "AA:BB:CC:DD:EE:02" {
		t.Fatalf("unexpected list %v", list)
	}

	// rewrite drops blocks without a valid address
	if err := s.Remove(ctx, "AA:BB:CC:DD:EE:02"); err != nil {
		t.Fatal(err)
	}
	b, err := ioutil.ReadFile(s.cfg.Path)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "{\n\taddress=\"AA:BB:CC:DD:EE:01\"\n}\n" {
		t.Fatalf("unexpected file content %q", b)
	}
}

func TestWaitStaging(t *testing.T) {
	s := testStore(t)

	if err := ioutil.WriteFile(s.cfg.SwapPath, nil, 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := s.List(ctx)
	if err != context.DeadlineExceeded {
		t.Fatalf("want deadline exceeded, have %v", err)
	}

	if err := os.Remove(s.cfg.SwapPath); err != nil {
		t.Fatal(err)
	}
	if _, err := s.List(context.Background()); err != nil {
		t.Fatal(err)
	}
}
