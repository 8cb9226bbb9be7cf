package ipsp

import "time"

const (
	// IPSPUUID is the 16-bit service UUID of the Internet Protocol Support Profile.
	IPSPUUID uint16 = 0x1820

	// NordicCompanyID is the company identifier expected in the vendor
	// specific advertising field carrying the network identifier.
	NordicCompanyID uint16 = 0x0059

	// MaxConnections is the number of 6LoWPAN links the controller supports.
	MaxConnections = 8

	// MaxNameLen bounds the advertised device name kept from an advertisement.
	MaxNameLen = 29
)

// Scanning defaults and limits.
const (
	DefaultScanWindow   = 5 * time.Second
	DefaultScanInterval = 10 * time.Second
	MaxScanWindow       = 30 * time.Second
	MaxScanInterval     = 300 * time.Second
)

// Default file locations.
const (
	DefaultControllerPath = "/sys/kernel/debug/bluetooth/6lowpan_control"
	DefaultWhitelistPath  = "/etc/bluetooth/bluetooth_6lowpand.conf"
	DefaultWhitelistSwap  = "/etc/bluetooth/bluetooth_6lowpand.conf.swp"
)
