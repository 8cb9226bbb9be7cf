package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rigado/ipsp"
	"github.com/rigado/ipsp/linux/token"
)

// buildAuth turns the --auth and --auth-local flags into the daemon
// authentication. The returned source is nil unless local is set.
func buildAuth(manual string, local bool, wifi int) (ipsp.AuthConfig, ipsp.TokenSource, error) {
	switch {
	case manual != "" && local:
		return ipsp.AuthConfig{}, nil, errors.Wrap(ipsp.ErrConfig, "--auth and --auth-local are exclusive")
	case manual != "":
		auth, err := ipsp.ParseManualAuth(manual)
		return auth, nil, err
	case local:
		if wifi < 0 {
			return ipsp.AuthConfig{}, nil, errors.Wrapf(ipsp.ErrConfig, "wireless interface %d", wifi)
		}
		return ipsp.AuthConfig{Mode: ipsp.AuthLocalConfig}, token.NewUCI(wifi), nil
	}
	return ipsp.AuthConfig{Mode: ipsp.AuthNone}, nil, nil
}

// startupAuth reads the local token once before the daemon starts so that a
// broken wireless configuration fails the start. The returned config carries
// the identifier and credential read.
func startupAuth(ctx context.Context, auth ipsp.AuthConfig, src ipsp.TokenSource) (ipsp.AuthConfig, error) {
	auth, err := auth.Refresh(ctx, src)
	if err != nil {
		return ipsp.AuthConfig{}, errors.Wrap(err, "local wireless configuration")
	}
	return auth, nil
}
