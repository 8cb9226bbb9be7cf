package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/rigado/ipsp"
	"github.com/rigado/ipsp/linux/token"
)

func TestBuildAuth(t *testing.T) {
	auth, src, err := buildAuth("", false, 0)
	if err != nil || auth.Enabled() || src != nil {
		t.Fatalf("none: %+v %v %v", auth, src, err)
	}

	auth, src, err = buildAuth("OpenWRT:123456", false, 0)
	if err != nil || auth.Mode != ipsp.AuthManual || auth.Identifier != "OpenWRT" || auth.Credential != "123456" || src != nil {
		t.Fatalf("manual: %+v %v %v", auth, src, err)
	}

	auth, src, err = buildAuth("", true, 1)
	if err != nil || auth.Mode != ipsp.AuthLocalConfig {
		t.Fatalf("local: %+v %v", auth, err)
	}
	if u, ok := src.(*token.UCI); !ok || u.Iface != 1 {
		t.Fatalf("source %#v", src)
	}

	for _, tc := range []struct {
		manual string
		local  bool
		wifi   int
	}{
		{"OpenWRT:123456", true, 0},
		{"OpenWRT", false, 0},
		{"OpenWRT:12345", false, 0},
		{"OpenWRT:abcdef", false, 0},
		{"", true, -1},
	} {
		if _, _, err := buildAuth(tc.manual, tc.local, tc.wifi); errors.Cause(err) != ipsp.ErrConfig {
			t.Fatalf("%+v: %v", tc, err)
		}
	}
}

func TestPrintAddrs(t *testing.T) {
	list := []ipsp.Addr{"00:AA:BB:CC:DD:01", "00:AA:BB:CC:DD:02"}

	var b bytes.Buffer
	if err := printAddrs(&b, list, false); err != nil {
		t.Fatal(err)
	}
	if b.String() != "00:AA:BB:CC:DD:01\n00:AA:BB:CC:DD:02\n" {
		t.Fatalf("text %q", b.String())
	}

	b.Reset()
	if err := printAddrs(&b, list, true); err != nil {
		t.Fatal(err)
	}
	if b.String() != `["00:AA:BB:CC:DD:01","00:AA:BB:CC:DD:02"]`+"\n" {
		t.Fatalf("json %q", b.String())
	}

	b.Reset()
	if err := printAddrs(&b, nil, true); err != nil || b.String() != "[]\n" {
		t.Fatalf("empty json %q %v", b.String(), err)
	}
}

func TestChkErr(t *testing.T) {
	if chkErr(nil) != nil {
		t.Fatal("nil")
	}
	if err := chkErr(errors.Wrap(ipsp.ErrLocked, "add")); err == nil || errors.Cause(err) == ipsp.ErrLocked {
		t.Fatalf("locked: %v", err)
	}
	if err := chkErr(errors.Wrap(ipsp.ErrConfig, "x")); errors.Cause(err) != ipsp.ErrConfig {
		t.Fatalf("config: %v", err)
	}
}

type fakeTokens struct {
	id, cred string
}

func (f fakeTokens) Read(ctx context.Context) (string, string, error) {
	return f.id, f.cred, nil
}

func TestStartupAuth(t *testing.T) {
	ctx := context.Background()
	local := ipsp.AuthConfig{Mode: ipsp.AuthLocalConfig}

	auth, err := startupAuth(ctx, local, fakeTokens{"OpenWRT", "123456"})
	if err != nil {
		t.Fatal(err)
	}
	if auth.Identifier != "OpenWRT" || auth.Credential != "123456" {
		t.Fatalf("token not kept: %+v", auth)
	}

	if _, err := startupAuth(ctx, local, fakeTokens{"OpenWRT", "abcdef"}); errors.Cause(err) != ipsp.ErrConfig {
		t.Fatalf("bad key: %v", err)
	}

	manual, _ := ipsp.ParseManualAuth("OpenWRT:123456")
	if auth, err := startupAuth(ctx, manual, nil); err != nil || auth != manual {
		t.Fatalf("manual: %+v %v", auth, err)
	}
}
