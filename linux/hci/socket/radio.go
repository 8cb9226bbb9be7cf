// +build linux

package socket

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rigado/ipsp"
	"github.com/rigado/ipsp/linux/hci/evt"
)

const (
	// CommandTimeout bounds the wait for a command completion.
	CommandTimeout = 10 * time.Second

	// pollSlice bounds a single wait on the socket so cancellation is noticed.
	pollSlice = 100 * time.Millisecond
)

type transport interface {
	Write(p []byte) (int, error)
	ReadTimeout(p []byte, d time.Duration) (int, error)
	ConnectionCount() (int, error)
	Close() error
}

// Radio scans with one local controller and reports its link count.
type Radio struct {
	t       transport
	name    string
	buf     []byte
	pending []ipsp.Advertisement
	logger  ipsp.Logger
}

// Open opens the controller called name, e.g. "hci0".
func Open(name string, l ipsp.Logger) (*Radio, error) {
	id, err := DeviceID(name)
	if err != nil {
		return nil, err
	}

	s, err := NewSocket(id, evt.CommandCompleteCode, evt.CommandStatusCode, evt.LEMetaCode)
	if err != nil {
		return nil, errors.Wrapf(err, "open %v", name)
	}
	return newRadio(s, name, l), nil
}

func newRadio(t transport, name string, l ipsp.Logger) *Radio {
	return &Radio{
		t:      t,
		name:   name,
		buf:    make([]byte, 1024),
		logger: ipsp.ComponentLogger(l, "radio").ChildLogger(map[string]interface{}{"dev": name}),
	}
}

func (r *Radio) Close() error {
	return r.t.Close()
}

// ConnectionCount returns the number of active links of the controller.
func (r *Radio) ConnectionCount() (int, error) {
	return r.t.ConnectionCount()
}

// SetScanParameters programs the LE scan parameters.
func (r *Radio) SetScanParameters(p ipsp.ScanParams) error {
	if err := ValidateScanParams(p); err != nil {
		return err
	}
	return r.command(opLESetScanParameters, scanParamsCommand(p))
}

// SetScanEnable starts or stops LE scanning. Stopping drops reports that
// were received but not consumed.
func (r *Radio) SetScanEnable(enable, filterDup bool) error {
	err := r.command(opLESetScanEnable, scanEnableCommand(enable, filterDup))
	if !enable {
		// includes reports that arrived ahead of the completion
		r.pending = nil
	}
	return err
}

// NextAdvertisement returns the next advertising report. ok is false once
// deadline passed or ctx ended.
func (r *Radio) NextAdvertisement(ctx context.Context, deadline time.Time) (ipsp.Advertisement, bool, error) {
	for {
		if len(r.pending) > 0 {
			a := r.pending[0]
			r.pending = r.pending[1:]
			return a, true, nil
		}

		if ctx.Err() != nil {
			return ipsp.Advertisement{}, false, nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ipsp.Advertisement{}, false, nil
		}
		if remaining > pollSlice {
			remaining = pollSlice
		}

		n, err := r.t.ReadTimeout(r.buf, remaining)
		if err != nil {
			return ipsp.Advertisement{}, false, err
		}
		if n == 0 {
			continue
		}
		r.handle(r.buf[:n], 0)
	}
}

// command writes an HCI command and waits for its completion.
func (r *Radio) command(op uint16, b []byte) error {
	if _, err := r.t.Write(b); err != nil {
		return errors.Wrapf(err, "command 0x%04x", op)
	}

	deadline := time.Now().Add(CommandTimeout)
	for time.Now().Before(deadline) {
		n, err := r.t.ReadTimeout(r.buf, pollSlice)
		if err != nil {
			return errors.Wrapf(err, "command 0x%04x", op)
		}
		if n == 0 {
			continue
		}

		status, done := r.handle(r.buf[:n], op)
		if !done {
			continue
		}
		if status != 0 {
			return errors.Errorf("command 0x%04x failed: status 0x%02x", op, status)
		}
		return nil
	}

	return errors.Errorf("command 0x%04x: no response", op)
}

// handle consumes one event packet. Advertising reports are queued; a
// completion of op is reported with its status. Malformed packets are dropped.
func (r *Radio) handle(b []byte, op uint16) (status uint8, done bool) {
	code, params, err := evt.Split(b)
	if err != nil {
		r.logger.Debugf("drop packet: %v", err)
		return 0, false
	}

	switch code {
	case evt.LEMetaCode:
		reports, err := evt.LEAdvertisingReport(params).Reports()
		if err != nil {
			r.logger.Debugf("drop advertising report: %v", err)
			return 0, false
		}
		r.pending = append(r.pending, reports...)

	case evt.CommandCompleteCode:
		e := evt.CommandComplete(params)
		got, err := e.CommandOpcodeWErr()
		if err != nil || got != op || op == 0 {
			return 0, false
		}
		st, err := e.Status()
		if err != nil {
			return 0xff, true
		}
		return st, true

	case evt.CommandStatusCode:
		e := evt.CommandStatus(params)
		got, err := e.CommandOpcodeWErr()
		if err != nil || got != op || op == 0 {
			return 0, false
		}
		st, err := e.StatusWErr()
		if err != nil {
			return 0xff, true
		}
		return st, true
	}

	return 0, false
}
