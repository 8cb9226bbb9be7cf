package ipsp

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	// IdentifierMaxLen bounds the identifier compared against the vendor field.
	IdentifierMaxLen = 16
	// CredentialLen is the exact length of the numeric credential (passkey).
	CredentialLen = 6
)

// AuthMode selects how candidates are authenticated.
type AuthMode int

const (
	// AuthNone connects every IPSP device without pairing.
	AuthNone AuthMode = iota
	// AuthLocalConfig derives identifier and credential from the local
	// wireless configuration, re-read on every vendor advertisement.
	AuthLocalConfig
	// AuthManual uses an identifier and credential given at startup.
	AuthManual
)

func (m AuthMode) String() string {
	switch m {
	case AuthNone:
		return "none"
	case AuthLocalConfig:
		return "local-config"
	case AuthManual:
		return "manual"
	}
	return fmt.Sprintf("AuthMode(%d)", int(m))
}

// AuthConfig holds the authentication parameters of the daemon.
type AuthConfig struct {
	Mode       AuthMode
	Identifier string
	Credential string
}

// TokenSource returns the identifier and credential configured locally.
type TokenSource interface {
	Read(ctx context.Context) (identifier, credential string, err error)
}

// NewAuth validates identifier and credential and returns the config for mode.
// The identifier is truncated to IdentifierMaxLen characters, the credential
// must be exactly CredentialLen ASCII digits.
func NewAuth(mode AuthMode, identifier, credential string) (AuthConfig, error) {
	if mode == AuthNone {
		return AuthConfig{Mode: AuthNone}, nil
	}

	if identifier == "" || credential == "" {
		return AuthConfig{}, errors.Wrap(ErrConfig, "identifier and credential cannot be empty")
	}

	if len(identifier) > IdentifierMaxLen {
		identifier = identifier[:IdentifierMaxLen]
	}

	if err := ValidateCredential(credential); err != nil {
		return AuthConfig{}, err
	}

	return AuthConfig{Mode: mode, Identifier: identifier, Credential: credential}, nil
}

// ParseManualAuth parses the "IDENTIFIER:CREDENTIAL" form, e.g. "OpenWRT:123456".
func ParseManualAuth(s string) (AuthConfig, error) {
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return AuthConfig{}, errors.Wrapf(ErrConfig, "credential is required, use IDENTIFIER:123456 (have %q)", s)
	}
	return NewAuth(AuthManual, s[:i], s[i+1:])
}

// ValidateCredential checks that c is exactly CredentialLen ASCII digits.
func ValidateCredential(c string) error {
	if len(c) != CredentialLen {
		return errors.Wrapf(ErrConfig, "credential must have %d digits, have %d characters", CredentialLen, len(c))
	}
	for i := 0; i < len(c); i++ {
		if c[i] < '0' || c[i] > '9' {
			return errors.Wrapf(ErrConfig, "credential must be numeric (position %d)", i)
		}
	}
	return nil
}

// Enabled reports whether candidates must be authenticated.
func (a AuthConfig) Enabled() bool {
	return a.Mode != AuthNone
}

// Passkey returns the credential as the numeric passkey sent to the kernel.
func (a AuthConfig) Passkey() uint32 {
	v, err := strconv.ParseUint(a.Credential, 10, 32)
	if err != nil {
		return 0
	}
	return uint32(v)
}

// Refresh re-reads identifier and credential from src for AuthLocalConfig;
// other modes are returned unchanged.
func (a AuthConfig) Refresh(ctx context.Context, src TokenSource) (AuthConfig, error) {
	if a.Mode != AuthLocalConfig {
		return a, nil
	}
	if src == nil {
		return AuthConfig{}, errors.Wrap(ErrConfig, "no token source")
	}

	id, cred, err := src.Read(ctx)
	if err != nil {
		return AuthConfig{}, errors.Wrap(err, "read local token")
	}
	return NewAuth(AuthLocalConfig, id, cred)
}
