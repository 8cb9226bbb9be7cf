// Package pairing drives a candidate through the kernel pairing handshake.
//
// A Session is a plain state machine: it produces management requests and
// consumes the completions and events that answer them, and never touches a
// socket itself. A Driver binds sessions to a mgmt.Client.
package pairing

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rigado/ipsp"
	"github.com/rigado/ipsp/linux/hci/mgmt"
)

type State int

const (
	Init State = iota
	ReadingInfo
	Configuring
	Ready
	Pairing
	Paired
	Failed
)

func (s State) String() string {
	switch s {
	case Init:
		return "init"
	case ReadingInfo:
		return "reading-info"
	case Configuring:
		return "configuring"
	case Ready:
		return "ready"
	case Pairing:
		return "pairing"
	case Paired:
		return "paired"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Tag names the step a request belongs to; its completion carries it back.
type Tag string

const (
	TagReadInfo     Tag = "read-info"
	TagPowerOff     Tag = "set-powered-off"
	TagSetLE        Tag = "set-le"
	TagSetIOCap     Tag = "set-io-cap"
	TagPowerOn      Tag = "set-powered-on"
	TagPair         Tag = "pair"
	TagPasskeyReply Tag = "passkey-reply"
)

// Request is a management command the session wants sent.
type Request struct {
	Tag    Tag
	Op     uint16
	Index  uint16
	Params []byte
}

// Completion is the answer to the request with the same tag.
type Completion struct {
	Tag Tag
	mgmt.Completion
}

// PasskeyRequest is a USER_PASSKEY_REQUEST event.
type PasskeyRequest struct {
	Index uint16
	Peer  mgmt.AddrInfo
}

// Session is one bring-up, optionally followed by pairing with a peer.
type Session struct {
	ID string

	index   uint16
	peer    ipsp.Addr
	auth    ipsp.AuthConfig
	state   State
	waiting map[Tag]bool
	replied bool
	err     error
	logger  ipsp.Logger
}

// NewSession returns a session that configures controller index and then
// pairs with peer using the credential of auth.
func NewSession(index uint16, peer ipsp.Addr, auth ipsp.AuthConfig, l ipsp.Logger) *Session {
	s := &Session{
		ID:    uuid.NewString(),
		index: index,
		peer:  peer,
		auth:  auth,
		state: Init,
	}
	s.logger = ipsp.ComponentLogger(l, "pairing").ChildLogger(map[string]interface{}{"session": s.ID})
	return s
}

// NewBringUp returns a session that only configures controller index and
// ends in Ready.
func NewBringUp(index uint16, l ipsp.Logger) *Session {
	return NewSession(index, "", ipsp.AuthConfig{}, l)
}

func (s *Session) State() State {
	return s.state
}

// Done reports whether the session reached a final state.
func (s *Session) Done() bool {
	switch s.state {
	case Ready, Paired, Failed:
		return true
	}
	return false
}

// Err returns the failure of a Failed session.
func (s *Session) Err() error {
	return s.err
}

// Peer returns the address being paired, empty for bring-up sessions.
func (s *Session) Peer() ipsp.Addr {
	return s.peer
}

// Start begins the session with READ_INFO.
func (s *Session) Start() []Request {
	if s.state != Init {
		return nil
	}
	s.state = ReadingInfo
	return []Request{s.request(TagReadInfo, mgmt.OpReadInfo, nil)}
}

// OnComplete advances the session with the completion of one of its
// requests. A returned error means the session failed.
func (s *Session) OnComplete(c Completion) ([]Request, error) {
	if s.Done() {
		s.logger.Debugf("%v completion after %v, ignored", c.Tag, s.state)
		return nil, nil
	}

	switch s.state {
	case ReadingInfo:
		if c.Tag != TagReadInfo {
			break
		}
		return s.onReadInfo(c)

	case Configuring:
		if !s.waiting[c.Tag] {
			break
		}
		return s.onConfigured(c)

	case Pairing:
		switch c.Tag {
		case TagPair:
			return s.onPaired(c)
		case TagPasskeyReply:
			if err := c.Err(); err != nil {
				return s.fail(err)
			}
			return nil, nil
		}
	}

	s.logger.Debugf("unexpected %v completion in %v", c.Tag, s.state)
	return nil, nil
}

func (s *Session) onReadInfo(c Completion) ([]Request, error) {
	if err := c.Err(); err != nil {
		return s.fail(err)
	}

	info, err := mgmt.DecodeReadInfo(c.Params)
	if err != nil {
		return s.fail(err)
	}
	if info.SupportedSettings&mgmt.SettingLE == 0 {
		return s.fail(errors.Wrapf(ipsp.ErrProtocol, "hci%d: low energy not supported", s.index))
	}

	s.logger.Debugf("hci%d %v, settings 0x%08x", s.index, info.Addr, info.CurrentSettings)

	s.state = Configuring
	s.waiting = map[Tag]bool{
		TagPowerOff: true,
		TagSetLE:    true,
		TagSetIOCap: true,
		TagPowerOn:  true,
	}
	return []Request{
		s.request(TagPowerOff, mgmt.OpSetPowered, mgmt.BoolParam(false)),
		s.request(TagSetLE, mgmt.OpSetLE, mgmt.BoolParam(true)),
		s.request(TagSetIOCap, mgmt.OpSetIOCapability, []byte{mgmt.IOCapKeyboard}),
		s.request(TagPowerOn, mgmt.OpSetPowered, mgmt.BoolParam(true)),
	}, nil
}

func (s *Session) onConfigured(c Completion) ([]Request, error) {
	if err := c.Err(); err != nil {
		return s.fail(err)
	}

	if c.Tag == TagPowerOn {
		settings, err := mgmt.DecodeSettings(c.Params)
		if err != nil {
			return s.fail(err)
		}
		if settings&mgmt.SettingPowered == 0 {
			return s.fail(errors.Wrapf(ipsp.ErrProtocol, "hci%d: controller is not powered", s.index))
		}
	}

	delete(s.waiting, c.Tag)
	if len(s.waiting) > 0 {
		return nil, nil
	}

	if s.peer == "" {
		s.state = Ready
		s.logger.Debugf("hci%d ready", s.index)
		return nil, nil
	}

	s.state = Pairing
	s.logger.Infof("pairing with %v", s.peer)
	peer := mgmt.AddrInfo{Addr: s.peer, Type: mgmt.AddrLEPublic}
	return []Request{s.request(TagPair, mgmt.OpPairDevice, mgmt.PairDeviceParams(peer, mgmt.IOCapKeyboard))}, nil
}

func (s *Session) onPaired(c Completion) ([]Request, error) {
	if err := c.Err(); err != nil {
		return s.fail(errors.Wrapf(err, "pair %v", s.peer))
	}
	s.state = Paired
	s.logger.Infof("paired with %v", s.peer)
	return nil, nil
}

// OnPasskeyRequest answers the passkey request for the session peer with the
// credential. Only the first request of a session is answered.
func (s *Session) OnPasskeyRequest(r PasskeyRequest) ([]Request, error) {
	if s.state != Pairing || r.Index != s.index {
		s.logger.Debugf("passkey request in %v, ignored", s.state)
		return nil, nil
	}
	if !r.Peer.Addr.Equal(s.peer) {
		s.logger.Debugf("passkey request for %v, ignored", r.Peer.Addr)
		return nil, nil
	}
	if s.replied {
		s.logger.Warnf("repeated passkey request for %v, ignored", r.Peer.Addr)
		return nil, nil
	}

	s.replied = true
	s.logger.Debugf("passkey request from %v", r.Peer.Addr)
	return []Request{s.request(TagPasskeyReply, mgmt.OpUserPasskeyReply, mgmt.PasskeyReplyParams(r.Peer, s.auth.Passkey()))}, nil
}

// Abort fails the session with err unless it already finished.
func (s *Session) Abort(err error) {
	if !s.Done() {
		s.fail(err)
	}
}

func (s *Session) fail(err error) ([]Request, error) {
	s.logger.Warnf("%v failed: %v", s.state, err)
	s.state = Failed
	s.err = err
	return nil, err
}

func (s *Session) request(tag Tag, op uint16, params []byte) Request {
	return Request{Tag: tag, Op: op, Index: s.index, Params: params}
}
