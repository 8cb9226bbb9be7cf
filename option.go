package ipsp

import (
	"time"

	"github.com/pkg/errors"
)

// DaemonOption is implemented by the scan/pair daemon to accept configuration options.
type DaemonOption interface {
	SetScanWindow(time.Duration) error
	SetScanInterval(time.Duration) error
	SetScanParams(ScanParams) error
	SetMaxConnections(int) error
	SetWhitelist(Whitelist) error
	SetAuth(AuthConfig, TokenSource) error
	SetPairer(Pairer) error
	SetLogger(Logger) error
}

// An Option is a configuration function, which configures the daemon.
type Option func(DaemonOption) error

// OptScanWindow sets how long each scan runs, 1 to 30 seconds.
func OptScanWindow(d time.Duration) Option {
	return func(opt DaemonOption) error {
		if err := ValidateScanWindow(d); err != nil {
			return err
		}
		return opt.SetScanWindow(d)
	}
}

// OptScanInterval sets the pause between scan cycles, 1 to 300 seconds.
func OptScanInterval(d time.Duration) Option {
	return func(opt DaemonOption) error {
		if err := ValidateScanInterval(d); err != nil {
			return err
		}
		return opt.SetScanInterval(d)
	}
}

// OptScanParams overrides default scanning parameters.
func OptScanParams(p ScanParams) Option {
	return func(opt DaemonOption) error {
		return opt.SetScanParams(p)
	}
}

// OptMaxConnections overrides the connection pool capacity.
func OptMaxConnections(n int) Option {
	return func(opt DaemonOption) error {
		if n <= 0 {
			return errors.Wrapf(ErrConfig, "max connections %d", n)
		}
		return opt.SetMaxConnections(n)
	}
}

// OptWhitelist restricts candidates to members of wl.
func OptWhitelist(wl Whitelist) Option {
	return func(opt DaemonOption) error {
		return opt.SetWhitelist(wl)
	}
}

// OptAuth enables authentication. src is only consulted for AuthLocalConfig.
func OptAuth(auth AuthConfig, src TokenSource) Option {
	return func(opt DaemonOption) error {
		if auth.Mode == AuthLocalConfig && src == nil {
			return errors.Wrap(ErrConfig, "local config authentication needs a token source")
		}
		return opt.SetAuth(auth, src)
	}
}

// OptPairer sets the pairing handshake implementation.
func OptPairer(p Pairer) Option {
	return func(opt DaemonOption) error {
		return opt.SetPairer(p)
	}
}

// OptLogger overrides the default logger.
func OptLogger(l Logger) Option {
	return func(opt DaemonOption) error {
		return opt.SetLogger(l)
	}
}

// ValidateScanWindow checks d against the 1 to 30 second range.
func ValidateScanWindow(d time.Duration) error {
	if d < time.Second || d > MaxScanWindow {
		return errors.Wrapf(ErrConfig, "scan window %v: should be between 1s and %v", d, MaxScanWindow)
	}
	return nil
}

// ValidateScanInterval checks d against the 1 to 300 second range.
func ValidateScanInterval(d time.Duration) error {
	if d < time.Second || d > MaxScanInterval {
		return errors.Wrapf(ErrConfig, "scan interval %v: should be between 1s and %v", d, MaxScanInterval)
	}
	return nil
}
