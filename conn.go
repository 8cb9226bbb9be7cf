package ipsp

import (
	"context"
	"time"
)

// ScanParams are the LE scan parameters programmed before every scan.
type ScanParams struct {
	Active       bool
	Interval     uint16 // N * 0.625 msec
	Window       uint16 // N * 0.625 msec
	RandomAddr   bool
	FilterPolicy uint8
}

// DefaultScanParams returns active scanning with a 10 msec interval and a
// 2.5 msec window.
func DefaultScanParams() ScanParams {
	return ScanParams{
		Active:   true,
		Interval: 0x0010,
		Window:   0x0004,
	}
}

// Scanner is the local radio seen from the scan loop.
type Scanner interface {
	SetScanParameters(p ScanParams) error
	SetScanEnable(enable, filterDup bool) error

	// NextAdvertisement waits for the next advertising report until deadline.
	// It returns ok == false when the deadline passed or ctx ended first.
	NextAdvertisement(ctx context.Context, deadline time.Time) (a Advertisement, ok bool, err error)
}

// CapacityGate reports the number of active links of the local radio.
type CapacityGate interface {
	ConnectionCount() (int, error)
}

// Connector establishes and tears down 6LoWPAN links.
type Connector interface {
	Connect(a Addr) error
	Disconnect(a Addr) error
}

// Whitelist is the access control list consulted before pairing.
type Whitelist interface {
	Contains(ctx context.Context, a Addr) (bool, error)
}

// Pairer runs the authenticated pairing handshake with a candidate.
type Pairer interface {
	Pair(ctx context.Context, a Addr, auth AuthConfig) error
}
