package socket

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/rigado/ipsp"
)

const (
	LEScanIntervalMin = 0x0004
	LEScanIntervalMax = 0x4000
	LEScanWindowMin   = 0x0004
	LEScanWindowMax   = 0x4000

	FilterPolicyAcceptAll       = 0
	FilterPolicyAcceptWhitelist = 1
)

// HCI command opcodes, OGF 0x08.
const (
	opLESetScanParameters = 0x200b
	opLESetScanEnable     = 0x200c
)

// ValidateScanParams checks p against the ranges allowed by the controller.
func ValidateScanParams(p ipsp.ScanParams) error {
	switch {
	case p.Interval < LEScanIntervalMin || p.Interval > LEScanIntervalMax:
		return errors.Wrapf(ipsp.ErrConfig, "scan interval 0x%04x out of range", p.Interval)
	case p.Window < LEScanWindowMin || p.Window > LEScanWindowMax:
		return errors.Wrapf(ipsp.ErrConfig, "scan window 0x%04x out of range", p.Window)
	case p.Window > p.Interval:
		return errors.Wrapf(ipsp.ErrConfig, "scan window 0x%04x larger than interval 0x%04x", p.Window, p.Interval)
	case p.FilterPolicy > FilterPolicyAcceptWhitelist:
		return errors.Wrapf(ipsp.ErrConfig, "invalid filter policy %d", p.FilterPolicy)
	}
	return nil
}

func scanParamsCommand(p ipsp.ScanParams) []byte {
	b := make([]byte, 7)
	if p.Active {
		b[0] = 0x01
	}
	b[1] = byte(p.Interval)
	b[2] = byte(p.Interval >> 8)
	b[3] = byte(p.Window)
	b[4] = byte(p.Window >> 8)
	if p.RandomAddr {
		b[5] = 0x01
	}
	b[6] = p.FilterPolicy
	return encodeCommand(opLESetScanParameters, b)
}

func scanEnableCommand(enable, filterDup bool) []byte {
	b := []byte{0, 0}
	if enable {
		b[0] = 0x01
	}
	if filterDup {
		b[1] = 0x01
	}
	return encodeCommand(opLESetScanEnable, b)
}

func encodeCommand(op uint16, params []byte) []byte {
	const pktTypeCommand = 0x01
	b := []byte{pktTypeCommand, byte(op), byte(op >> 8), byte(len(params))}
	return append(b, params...)
}

// DeviceID returns the index of a controller name such as "hci0".
func DeviceID(name string) (int, error) {
	if !strings.HasPrefix(name, "hci") {
		return 0, errors.Wrapf(ipsp.ErrConfig, "invalid device %q", name)
	}
	id, err := strconv.Atoi(name[3:])
	if err != nil || id < 0 || id > 0xfffe {
		return 0, errors.Wrapf(ipsp.ErrConfig, "invalid device %q", name)
	}
	return id, nil
}

// DeviceName is the inverse of DeviceID.
func DeviceName(id int) string {
	return fmt.Sprintf("hci%d", id)
}
