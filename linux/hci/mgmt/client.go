package mgmt

import (
	"context"
	"io"
	"sync"

	"github.com/pkg/errors"
	"github.com/rigado/ipsp"
)

// Callback receives the completion of a command.
type Callback func(c Completion)

// EventHandler receives the parameters of a subscribed event.
type EventHandler func(index uint16, params []byte)

type pending struct {
	op    uint16
	index uint16
	cb    Callback
}

type subscription struct {
	event   uint16
	index   uint16
	handler EventHandler
}

// Client multiplexes commands and events over a management channel.
// Completions are matched to commands in send order per (opcode, index),
// so the same command may be outstanding several times.
type Client struct {
	rw io.ReadWriter

	mu      sync.Mutex
	pending []*pending
	subs    map[uint]*subscription
	nextID  uint

	buf    []byte
	logger ipsp.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger overrides the default logger.
func WithLogger(l ipsp.Logger) ClientOption {
	return func(c *Client) {
		c.logger = ipsp.ComponentLogger(l, "mgmt")
	}
}

// NewClient returns a client writing commands to and reading events from rw.
// Reads from rw may return 0, nil to signal a poll timeout.
func NewClient(rw io.ReadWriter, opts ...ClientOption) *Client {
	c := &Client{
		rw:     rw,
		subs:   make(map[uint]*subscription),
		nextID: 1,
		buf:    make([]byte, 4096),
		logger: ipsp.ComponentLogger(nil, "mgmt"),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Send writes a command and queues cb for its completion. It does not wait.
func (c *Client) Send(op, index uint16, params []byte, cb Callback) error {
	p := &pending{op: op, index: index, cb: cb}

	c.mu.Lock()
	c.pending = append(c.pending, p)
	c.mu.Unlock()

	b := Encode(op, index, params)
	c.logger.Debugf("mgmt < %v idx %v [% x]", OpString(op), index, params)

	n, err := c.rw.Write(b)
	if err == nil && n != len(b) {
		err = errors.Errorf("short write %d of %d", n, len(b))
	}
	if err != nil {
		c.drop(p)
		return errors.Wrapf(err, "send %v", OpString(op))
	}
	return nil
}

// Register subscribes h to event on index and returns the subscription id.
func (c *Client) Register(event, index uint16, h EventHandler) uint {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.subs[id] = &subscription{event: event, index: index, handler: h}
	return id
}

// Unregister removes a subscription.
func (c *Client) Unregister(id uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subs, id)
}

// Pending returns the number of commands waiting for completion.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Dispatch decodes one inbound frame and runs the matching callbacks.
// Callbacks run without the client lock held and may send further commands.
func (c *Client) Dispatch(frame []byte) error {
	h, params, err := Decode(frame)
	if err != nil {
		return err
	}

	switch h.Code {
	case EvtCmdComplete, EvtCmdStatus:
		cc, err := decodeCompletion(params)
		if err != nil {
			return err
		}
		c.logger.Debugf("mgmt > %v idx %v status %v [% x]", OpString(cc.Op), h.Index, StatusString(cc.Status), cc.Params)

		p := c.take(cc.Op, h.Index)
		if p == nil {
			c.logger.Debugf("unmatched completion %v idx %v", OpString(cc.Op), h.Index)
			return nil
		}
		if p.cb != nil {
			p.cb(cc)
		}

	default:
		c.logger.Debugf("mgmt > event 0x%04x idx %v [% x]", h.Code, h.Index, params)
		for _, s := range c.subscribers(h.Code, h.Index) {
			s.handler(h.Index, params)
		}
	}

	return nil
}

// Process reads and dispatches frames until done returns true, ctx ends or
// the transport fails. Malformed frames are logged and skipped.
func (c *Client) Process(ctx context.Context, done func() bool) error {
	for !done() {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := c.rw.Read(c.buf)
		switch {
		case n == 0 && err == nil:
			// read timeout
			continue
		case err != nil:
			return errors.Wrap(err, "mgmt read")
		}

		frame := make([]byte, n)
		copy(frame, c.buf)
		if err := c.Dispatch(frame); err != nil {
			c.logger.Warnf("dropping frame: %v", err)
		}
	}
	return nil
}

// take removes and returns the oldest pending command for (op, index).
func (c *Client) take(op, index uint16) *pending {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, p := range c.pending {
		if p.op == op && p.index == index {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return p
		}
	}
	return nil
}

func (c *Client) drop(p *pending) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, v := range c.pending {
		if v == p {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return
		}
	}
}

func (c *Client) subscribers(event, index uint16) []*subscription {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []*subscription
	for _, s := range c.subs {
		if s.event == event && s.index == index {
			out = append(out, s)
		}
	}
	return out
}
