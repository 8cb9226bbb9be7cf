// Package evt decodes the HCI events the scanner consumes. Every accessor
// is bounds checked against the event parameters.
package evt

import (
	"github.com/pkg/errors"
	"github.com/rigado/ipsp"
)

// HCI packet indicator of an event packet.
const PktTypeEvent = 0x04

// Event codes.
const (
	CommandCompleteCode = 0x0e
	CommandStatusCode   = 0x0f
	LEMetaCode          = 0x3e

	LEAdvertisingReportSubCode = 0x02
)

// CommandComplete is the parameter block of a Command Complete event.
type CommandComplete []byte

// CommandStatus is the parameter block of a Command Status event.
type CommandStatus []byte

// LEAdvertisingReport is the parameter block of an LE Meta event carrying
// advertising reports, starting with the subevent code.
type LEAdvertisingReport []byte

// Split splits a raw event packet into its code and parameters.
func Split(b []byte) (code uint8, params []byte, err error) {
	if len(b) < 3 || b[0] != PktTypeEvent {
		return 0, nil, errors.Wrapf(ipsp.ErrMalformedInput, "not an event packet [% x]", b)
	}
	if int(b[2]) != len(b)-3 {
		return 0, nil, errors.Wrapf(ipsp.ErrMalformedInput, "event 0x%02x: length %d, have %d", b[1], b[2], len(b)-3)
	}
	return b[1], b[3:], nil
}

// Status returns the status of the completed command, the first return
// parameter.
func (e CommandComplete) Status() (uint8, error) {
	rp, err := e.ReturnParametersWErr()
	if err != nil {
		return 0, err
	}
	return getByte(rp, 0, 0xff)
}

// Reports decodes every report of the event.
func (e LEAdvertisingReport) Reports() ([]ipsp.Advertisement, error) {
	sub, err := e.SubeventCodeWErr()
	if err != nil {
		return nil, err
	}
	if sub != LEAdvertisingReportSubCode {
		return nil, errors.Wrapf(ipsp.ErrMalformedInput, "subevent 0x%02x", sub)
	}

	nr, err := e.NumReportsWErr()
	if err != nil {
		return nil, err
	}

	out := make([]ipsp.Advertisement, 0, nr)
	for i := 0; i < int(nr); i++ {
		a, err := e.report(i)
		if err != nil {
			return nil, errors.Wrapf(err, "report %d", i)
		}
		out = append(out, a)
	}
	return out, nil
}

func (e LEAdvertisingReport) report(i int) (ipsp.Advertisement, error) {
	et, err := e.EventTypeWErr(i)
	if err != nil {
		return ipsp.Advertisement{}, err
	}
	at, err := e.AddressTypeWErr(i)
	if err != nil {
		return ipsp.Advertisement{}, err
	}
	addr, err := e.AddressWErr(i)
	if err != nil {
		return ipsp.Advertisement{}, err
	}
	data, err := e.DataWErr(i)
	if err != nil {
		return ipsp.Advertisement{}, err
	}
	rssi, err := e.RSSIWErr(i)
	if err != nil {
		return ipsp.Advertisement{}, err
	}

	d := make([]byte, len(data))
	copy(d, data)
	return ipsp.Advertisement{
		Addr:      ipsp.AddrFromLE(addr),
		AddrType:  at,
		EventType: et,
		RSSI:      rssi,
		Data:      d,
	}, nil
}
