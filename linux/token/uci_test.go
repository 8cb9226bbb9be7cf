package token

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/rigado/ipsp"
)

func fakeUCI(values map[string]string) Runner {
	return func(ctx context.Context, name string, args ...string) ([]byte, error) {
		if name != "uci" || len(args) != 2 || args[0] != "get" {
			return nil, fmt.Errorf("unexpected command %v %v", name, args)
		}
		v, ok := values[args[1]]
		if !ok {
			return nil, fmt.Errorf("uci: Entry not found")
		}
		return []byte(v + "\n"), nil
	}
}

func TestUCIRead(t *testing.T) {
	u := &UCI{Iface: 1, Run: fakeUCI(map[string]string{
		"wireless.@wifi-iface[1].ssid": "OpenWRT",
		"wireless.@wifi-iface[1].key":  "12345678",
	})}

	id, cred, err := u.Read(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if id != "OpenWRT" || cred != "123456" {
		t.Fatalf("unexpected token %q %q", id, cred)
	}

	a, err := ipsp.AuthConfig{Mode: ipsp.AuthLocalConfig}.Refresh(context.Background(), u)
	if err != nil {
		t.Fatal(err)
	}
	if a.Identifier != "OpenWRT" || a.Passkey() != 123456 {
		t.Fatalf("unexpected auth %+v", a)
	}
}

func TestUCIMissing(t *testing.T) {
	u := &UCI{Iface: 0, Run: fakeUCI(map[string]string{
		"wireless.@wifi-iface[0].ssid": "OpenWRT",
	})}
	if _, _, err := u.Read(context.Background()); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected lookup error, have %v", err)
	}

	u = &UCI{Iface: 0, Run: fakeUCI(map[string]string{
		"wireless.@wifi-iface[0].ssid": "",
		"wireless.@wifi-iface[0].key":  "123456",
	})}
	if _, _, err := u.Read(context.Background()); errors.Cause(err) != ipsp.ErrConfig {
		t.Fatalf("want ErrConfig, have %v", err)
	}
}

func TestUCIBadKey(t *testing.T) {
	u := &UCI{Iface: 0, Run: fakeUCI(map[string]string{
		"wireless.@wifi-iface[0].ssid": "OpenWRT",
		"wireless.@wifi-iface[0].key":  "secret-passphrase",
	})}

	_, err := ipsp.AuthConfig{Mode: ipsp.AuthLocalConfig}.Refresh(context.Background(), u)
	if errors.Cause(err) != ipsp.ErrConfig {
		t.Fatalf("want ErrConfig, have %v", err)
	}
}
