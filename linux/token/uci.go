// Package token reads the network identifier and credential from the
// router's wireless configuration.
package token

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
	"github.com/rigado/ipsp"
)

// Runner runs a command and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, errors.Wrapf(err, "%v %v: %v", name, strings.Join(args, " "), strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// UCI reads the SSID and key of wireless interface Iface with `uci get`.
// It implements ipsp.TokenSource.
type UCI struct {
	Iface int
	Run   Runner
}

// NewUCI returns a token source for wireless interface iface.
func NewUCI(iface int) *UCI {
	return &UCI{Iface: iface, Run: ExecRunner}
}

// Read returns the SSID as identifier and the leading ipsp.CredentialLen
// characters of the key as credential.
func (u *UCI) Read(ctx context.Context) (string, string, error) {
	ssid, err := u.get(ctx, "ssid")
	if err != nil {
		return "", "", err
	}
	key, err := u.get(ctx, "key")
	if err != nil {
		return "", "", err
	}

	if len(key) > ipsp.CredentialLen {
		key = key[:ipsp.CredentialLen]
	}
	return ssid, key, nil
}

func (u *UCI) get(ctx context.Context, option string) (string, error) {
	run := u.Run
	if run == nil {
		run = ExecRunner
	}

	out, err := run(ctx, "uci", "get", fmt.Sprintf("wireless.@wifi-iface[%d].%s", u.Iface, option))
	if err != nil {
		return "", err
	}

	v := strings.TrimRight(string(out), "\r\n")
	if v == "" {
		return "", errors.Wrapf(ipsp.ErrConfig, "wifi-iface[%d] has no %v", u.Iface, option)
	}
	return v, nil
}
