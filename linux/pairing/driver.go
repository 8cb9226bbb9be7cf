package pairing

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rigado/ipsp"
	"github.com/rigado/ipsp/linux/hci/mgmt"
)

// DefaultTimeout bounds one session.
const DefaultTimeout = 30 * time.Second

// Driver runs sessions over a management client, one at a time.
type Driver struct {
	client  *mgmt.Client
	index   uint16
	timeout time.Duration
	logger  ipsp.Logger
}

// NewDriver returns a driver for controller index. A zero timeout selects
// DefaultTimeout.
func NewDriver(c *mgmt.Client, index uint16, timeout time.Duration, l ipsp.Logger) *Driver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Driver{
		client:  c,
		index:   index,
		timeout: timeout,
		logger:  l,
	}
}

// BringUp powers the controller with low energy enabled and a keyboard only
// I/O capability.
func (d *Driver) BringUp(ctx context.Context) error {
	return d.run(ctx, NewBringUp(d.index, d.logger))
}

// Pair configures the controller and pairs with a, answering the passkey
// request with the credential of auth. It returns once the kernel reported
// the pairing result.
func (d *Driver) Pair(ctx context.Context, a ipsp.Addr, auth ipsp.AuthConfig) error {
	if !auth.Enabled() {
		return errors.Wrap(ipsp.ErrConfig, "pairing needs a credential")
	}
	return d.run(ctx, NewSession(d.index, a, auth, d.logger))
}

func (d *Driver) run(ctx context.Context, s *Session) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	id := d.client.Register(mgmt.EvtUserPasskeyRequest, d.index, func(index uint16, params []byte) {
		peer, err := mgmt.DecodeAddrInfo(params)
		if err != nil {
			s.logger.Warnf("passkey request: %v", err)
			return
		}
		reqs, _ := s.OnPasskeyRequest(PasskeyRequest{Index: index, Peer: peer})
		d.send(s, reqs)
	})
	defer d.client.Unregister(id)

	d.send(s, s.Start())

	if err := d.client.Process(ctx, s.Done); err != nil {
		s.Abort(err)
		return errors.Wrapf(err, "session %v", s.ID)
	}
	return s.Err()
}

// send writes reqs and chains each completion back into the session. A
// failed write ends the session.
func (d *Driver) send(s *Session, reqs []Request) {
	for _, r := range reqs {
		tag := r.Tag
		err := d.client.Send(r.Op, r.Index, r.Params, func(c mgmt.Completion) {
			next, err := s.OnComplete(Completion{Tag: tag, Completion: c})
			if err != nil {
				return
			}
			d.send(s, next)
		})
		if err != nil {
			s.Abort(err)
			return
		}
	}
}
