// Package daemon implements the scan, pair and connect loop.
//
// Each cycle checks the link count, scans for one window and hands the first
// acceptable IPSP node either to the pairing handshake followed by a connect,
// or, without authentication, straight to the connect. Cycles repeat after
// the scan interval until the context ends.
package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rigado/ipsp"
	"github.com/rigado/ipsp/linux/adv"
)

type State int

const (
	Idle State = iota
	Scanning
	Evaluating
	Authenticating
	Connecting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scanning:
		return "scanning"
	case Evaluating:
		return "evaluating"
	case Authenticating:
		return "authenticating"
	case Connecting:
		return "connecting"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Result is the outcome of one cycle.
type Result int

const (
	Skipped Result = iota
	Timeout
	Canceled
	Connected
	PairFailed
	ConnectFailed
	ScanFailed
)

func (r Result) String() string {
	switch r {
	case Skipped:
		return "skipped"
	case Timeout:
		return "timeout"
	case Canceled:
		return "canceled"
	case Connected:
		return "connected"
	case PairFailed:
		return "pair-failed"
	case ConnectFailed:
		return "connect-failed"
	case ScanFailed:
		return "scan-failed"
	}
	return fmt.Sprintf("Result(%d)", int(r))
}

// Daemon is the control loop. It is not safe for concurrent use.
type Daemon struct {
	radio ipsp.Scanner
	gate  ipsp.CapacityGate
	conn  ipsp.Connector

	window    time.Duration
	interval  time.Duration
	params    ipsp.ScanParams
	filterDup bool
	maxConns  int

	whitelist ipsp.Whitelist
	auth      ipsp.AuthConfig
	tokens    ipsp.TokenSource
	pairer    ipsp.Pairer

	state  State
	logger ipsp.Logger
}

// New returns a daemon scanning with radio, sizing the pool with gate and
// connecting through conn.
func New(radio ipsp.Scanner, gate ipsp.CapacityGate, conn ipsp.Connector, opts ...ipsp.Option) (*Daemon, error) {
	d := &Daemon{
		radio:     radio,
		gate:      gate,
		conn:      conn,
		window:    ipsp.DefaultScanWindow,
		interval:  ipsp.DefaultScanInterval,
		params:    ipsp.DefaultScanParams(),
		filterDup: true,
		maxConns:  ipsp.MaxConnections,
		logger:    ipsp.ComponentLogger(nil, "daemon"),
	}

	for _, o := range opts {
		if err := o(d); err != nil {
			return nil, err
		}
	}

	if d.auth.Enabled() && d.pairer == nil {
		return nil, errors.Wrapf(ipsp.ErrConfig, "authentication %v needs a pairer", d.auth.Mode)
	}
	return d, nil
}

func (d *Daemon) SetScanWindow(w time.Duration) error {
	d.window = w
	return nil
}

func (d *Daemon) SetScanInterval(i time.Duration) error {
	d.interval = i
	return nil
}

func (d *Daemon) SetScanParams(p ipsp.ScanParams) error {
	d.params = p
	return nil
}

func (d *Daemon) SetMaxConnections(n int) error {
	d.maxConns = n
	return nil
}

func (d *Daemon) SetWhitelist(wl ipsp.Whitelist) error {
	d.whitelist = wl
	return nil
}

func (d *Daemon) SetAuth(a ipsp.AuthConfig, src ipsp.TokenSource) error {
	d.auth = a
	d.tokens = src
	return nil
}

func (d *Daemon) SetPairer(p ipsp.Pairer) error {
	d.pairer = p
	return nil
}

func (d *Daemon) SetLogger(l ipsp.Logger) error {
	d.logger = ipsp.ComponentLogger(l, "daemon")
	return nil
}

// State returns the current state of the loop.
func (d *Daemon) State() State {
	return d.state
}

func (d *Daemon) setState(s State) {
	if d.state != s {
		d.logger.Debugf("%v -> %v", d.state, s)
	}
	d.state = s
}

// Run repeats cycles until ctx ends. A cycle in progress when ctx ends is
// finished first: scanning is disabled and a pairing attempt abandoned.
func (d *Daemon) Run(ctx context.Context) error {
	d.logger.Infof("scan window %v, interval %v, auth %v, whitelist %v", d.window, d.interval, d.auth.Mode, d.whitelist != nil)

	for {
		res, err := d.Cycle(ctx)
		switch {
		case err != nil:
			d.logger.Warnf("cycle %v: %v", res, err)
		default:
			d.logger.Debugf("cycle %v", res)
		}

		if ctx.Err() != nil {
			d.logger.Infof("stopped")
			return nil
		}

		select {
		case <-ctx.Done():
			d.logger.Infof("stopped")
			return nil
		case <-time.After(d.interval):
		}
	}
}

// Cycle runs one pass of the loop and returns to Idle.
func (d *Daemon) Cycle(ctx context.Context) (Result, error) {
	d.setState(Idle)
	defer d.setState(Idle)

	if ctx.Err() != nil {
		return Canceled, nil
	}

	n, err := d.gate.ConnectionCount()
	if err != nil {
		d.logger.Warnf("connection count: %v", err)
		return Skipped, nil
	}
	if n >= d.maxConns {
		d.logger.Debugf("%d of %d links in use, not scanning", n, d.maxConns)
		return Skipped, nil
	}

	a, auth, res, err := d.scan(ctx)
	if a == "" {
		return res, err
	}

	if auth.Enabled() {
		d.setState(Authenticating)
		if err := d.pairer.Pair(ctx, a, auth); err != nil {
			if ctx.Err() != nil {
				return Canceled, nil
			}
			return PairFailed, errors.Wrapf(err, "pair %v", a)
		}
	}

	d.setState(Connecting)
	if err := d.conn.Connect(a); err != nil {
		return ConnectFailed, errors.Wrapf(err, "connect %v", a)
	}
	d.logger.Infof("device %v connect ok", a)
	return Connected, nil
}

// scan runs one scan window and returns the first accepted candidate with
// the authentication it was accepted under. Scanning is disabled on return.
func (d *Daemon) scan(ctx context.Context) (ipsp.Addr, ipsp.AuthConfig, Result, error) {
	d.setState(Scanning)

	if err := d.radio.SetScanParameters(d.params); err != nil {
		return "", ipsp.AuthConfig{}, ScanFailed, errors.Wrap(err, "set scan parameters")
	}

	err := d.radio.SetScanEnable(true, d.filterDup)
	defer func() {
		if err := d.radio.SetScanEnable(false, d.filterDup); err != nil {
			d.logger.Warnf("disable scan: %v", err)
		}
	}()
	if err != nil {
		return "", ipsp.AuthConfig{}, ScanFailed, errors.Wrap(err, "enable scan")
	}

	d.logger.Debugf("LE scan for %v", d.window)
	deadline := time.Now().Add(d.window)
	for {
		a, ok, err := d.radio.NextAdvertisement(ctx, deadline)
		if err != nil {
			return "", ipsp.AuthConfig{}, ScanFailed, errors.Wrap(err, "scan")
		}
		if !ok {
			if ctx.Err() != nil {
				return "", ipsp.AuthConfig{}, Canceled, nil
			}
			return "", ipsp.AuthConfig{}, Timeout, nil
		}

		d.setState(Evaluating)
		auth, accepted := d.evaluate(ctx, a)
		if accepted {
			return a.Addr, auth, Timeout, nil
		}
		d.setState(Scanning)
	}
}

// evaluate decides whether a is a candidate. Every failure rejects a.
func (d *Daemon) evaluate(ctx context.Context, a ipsp.Advertisement) (ipsp.AuthConfig, bool) {
	rec, err := adv.Parse(a.Data)
	if err != nil {
		d.logger.Debugf("%v: %v", a.Addr, err)
		return ipsp.AuthConfig{}, false
	}
	if !rec.IPSP {
		return ipsp.AuthConfig{}, false
	}

	auth := d.auth
	if auth.Mode == ipsp.AuthLocalConfig && rec.Vendor != nil {
		auth, err = d.auth.Refresh(ctx, d.tokens)
		if err != nil {
			d.logger.Warnf("cannot read wifi configuration: %v", err)
			return ipsp.AuthConfig{}, false
		}
	}

	if !rec.Accept(auth) {
		d.logger.Debugf("%v %q: not authenticated", a.Addr, rec.Name)
		return ipsp.AuthConfig{}, false
	}

	if d.whitelist != nil {
		ok, err := d.whitelist.Contains(ctx, a.Addr)
		if err != nil {
			d.logger.Warnf("whitelist: %v", err)
			return ipsp.AuthConfig{}, false
		}
		if !ok {
			d.logger.Debugf("%v is not in whitelist", a.Addr)
			return ipsp.AuthConfig{}, false
		}
	}

	d.logger.Infof("found IPSP device %v %q", a.Addr, rec.Name)
	return auth, true
}
