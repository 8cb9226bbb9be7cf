package mgmt

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
	"github.com/rigado/ipsp"
)

// HeaderLen is the length of the header in front of every frame.
const HeaderLen = 6

// IndexNone addresses the management interface itself instead of a controller.
const IndexNone uint16 = 0xffff

// Command opcodes.
const (
	OpReadIndexList    uint16 = 0x0003
	OpReadInfo         uint16 = 0x0004
	OpSetPowered       uint16 = 0x0005
	OpSetLE            uint16 = 0x000d
	OpSetIOCapability  uint16 = 0x0018
	OpPairDevice       uint16 = 0x0019
	OpUserPasskeyReply uint16 = 0x001e
	OpUserPasskeyNeg   uint16 = 0x001f
)

// Event codes.
const (
	EvtCmdComplete        uint16 = 0x0001
	EvtCmdStatus          uint16 = 0x0002
	EvtControllerError    uint16 = 0x0003
	EvtIndexAdded         uint16 = 0x0004
	EvtIndexRemoved       uint16 = 0x0005
	EvtNewSettings        uint16 = 0x0006
	EvtUserPasskeyRequest uint16 = 0x0017
)

// Controller settings bits.
const (
	SettingPowered uint32 = 1 << 0
	SettingLE      uint32 = 1 << 9
)

// Address types.
const (
	AddrBREDR     uint8 = 0x00
	AddrLEPublic  uint8 = 0x01
	AddrLERandom  uint8 = 0x02
	IOCapKeyboard uint8 = 0x02 // KeyboardOnly
)

// Status codes.
const (
	StatusSuccess          uint8 = 0x00
	StatusUnknownCommand   uint8 = 0x01
	StatusNotConnected     uint8 = 0x02
	StatusFailed           uint8 = 0x03
	StatusConnectFailed    uint8 = 0x04
	StatusAuthFailed       uint8 = 0x05
	StatusNotPaired        uint8 = 0x06
	StatusNoResources      uint8 = 0x07
	StatusTimeout          uint8 = 0x08
	StatusAlreadyConnected uint8 = 0x09
	StatusBusy             uint8 = 0x0a
	StatusRejected         uint8 = 0x0b
	StatusNotSupported     uint8 = 0x0c
	StatusInvalidParams    uint8 = 0x0d
	StatusDisconnected     uint8 = 0x0e
	StatusNotPowered       uint8 = 0x0f
	StatusCancelled        uint8 = 0x10
	StatusInvalidIndex     uint8 = 0x11
	StatusRFKilled         uint8 = 0x12
	StatusAlreadyPaired    uint8 = 0x13
	StatusPermissionDenied uint8 = 0x14
)

var statusStrings = map[uint8]string{
	StatusSuccess:          "Success",
	StatusUnknownCommand:   "Unknown Command",
	StatusNotConnected:     "Not Connected",
	StatusFailed:           "Failed",
	StatusConnectFailed:    "Connect Failed",
	StatusAuthFailed:       "Authentication Failed",
	StatusNotPaired:        "Not Paired",
	StatusNoResources:      "No Resources",
	StatusTimeout:          "Timeout",
	StatusAlreadyConnected: "Already Connected",
	StatusBusy:             "Busy",
	StatusRejected:         "Rejected",
	StatusNotSupported:     "Not Supported",
	StatusInvalidParams:    "Invalid Parameters",
	StatusDisconnected:     "Disconnected",
	StatusNotPowered:       "Not Powered",
	StatusCancelled:        "Cancelled",
	StatusInvalidIndex:     "Invalid Index",
	StatusRFKilled:         "Blocked through rfkill",
	StatusAlreadyPaired:    "Already Paired",
	StatusPermissionDenied: "Permission Denied",
}

// StatusString returns the text of a management status code.
func StatusString(s uint8) string {
	if str, ok := statusStrings[s]; ok {
		return str
	}
	return "Unknown"
}

var opStrings = map[uint16]string{
	OpReadIndexList:    "READ_INDEX_LIST",
	OpReadInfo:         "READ_INFO",
	OpSetPowered:       "SET_POWERED",
	OpSetLE:            "SET_LE",
	OpSetIOCapability:  "SET_IO_CAPABILITY",
	OpPairDevice:       "PAIR_DEVICE",
	OpUserPasskeyReply: "USER_PASSKEY_REPLY",
	OpUserPasskeyNeg:   "USER_PASSKEY_NEG_REPLY",
}

// OpString returns the name of a command opcode.
func OpString(op uint16) string {
	if str, ok := opStrings[op]; ok {
		return str
	}
	return fmt.Sprintf("0x%04x", op)
}

// StatusError is a command that completed with a non-zero status.
type StatusError struct {
	Op     uint16
	Status uint8
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v failed: %v (0x%02x)", OpString(e.Op), StatusString(e.Status), e.Status)
}

// Cause makes errors.Cause classify every status error as ipsp.ErrProtocol.
func (e *StatusError) Cause() error {
	return ipsp.ErrProtocol
}

// Header precedes every command and event.
type Header struct {
	Code   uint16 // opcode or event code
	Index  uint16
	Length uint16
}

// Encode returns a frame for code on index carrying params.
func Encode(code, index uint16, params []byte) []byte {
	b := make([]byte, HeaderLen+len(params))
	binary.LittleEndian.PutUint16(b[0:], code)
	binary.LittleEndian.PutUint16(b[2:], index)
	binary.LittleEndian.PutUint16(b[4:], uint16(len(params)))
	copy(b[HeaderLen:], params)
	return b
}

// Decode splits a frame into its header and parameters. The parameters
// must have the length announced by the header.
func Decode(b []byte) (Header, []byte, error) {
	if len(b) < HeaderLen {
		return Header{}, nil, errors.Wrapf(ipsp.ErrMalformedInput, "mgmt frame: %d bytes", len(b))
	}

	h := Header{
		Code:   binary.LittleEndian.Uint16(b[0:]),
		Index:  binary.LittleEndian.Uint16(b[2:]),
		Length: binary.LittleEndian.Uint16(b[4:]),
	}

	if int(h.Length) != len(b)-HeaderLen {
		return h, nil, errors.Wrapf(ipsp.ErrMalformedInput, "mgmt frame: length %d, have %d", h.Length, len(b)-HeaderLen)
	}

	return h, b[HeaderLen:], nil
}

// Completion is the payload of a Command Complete or Command Status event.
type Completion struct {
	Op     uint16
	Status uint8
	Params []byte
}

func decodeCompletion(b []byte) (Completion, error) {
	if len(b) < 3 {
		return Completion{}, errors.Wrapf(ipsp.ErrMalformedInput, "completion: %d bytes", len(b))
	}
	return Completion{
		Op:     binary.LittleEndian.Uint16(b[0:]),
		Status: b[2],
		Params: b[3:],
	}, nil
}

// Err returns a *StatusError for a non-zero status.
func (c Completion) Err() error {
	if c.Status == StatusSuccess {
		return nil
	}
	return &StatusError{Op: c.Op, Status: c.Status}
}

// ReadInfo is the reply to READ_INFO.
type ReadInfo struct {
	Addr              ipsp.Addr
	Version           uint8
	Manufacturer      uint16
	SupportedSettings uint32
	CurrentSettings   uint32
}

// DecodeReadInfo decodes the fixed part of a READ_INFO reply.
func DecodeReadInfo(b []byte) (ReadInfo, error) {
	if len(b) < 17 {
		return ReadInfo{}, errors.Wrapf(ipsp.ErrMalformedInput, "read info: %d bytes", len(b))
	}

	var a [6]byte
	copy(a[:], b[0:6])
	return ReadInfo{
		Addr:              ipsp.AddrFromLE(a),
		Version:           b[6],
		Manufacturer:      binary.LittleEndian.Uint16(b[7:]),
		SupportedSettings: binary.LittleEndian.Uint32(b[9:]),
		CurrentSettings:   binary.LittleEndian.Uint32(b[13:]),
	}, nil
}

// DecodeSettings decodes the settings word returned by the SET_* commands.
func DecodeSettings(b []byte) (uint32, error) {
	if len(b) < 4 {
		return 0, errors.Wrapf(ipsp.ErrMalformedInput, "settings: %d bytes", len(b))
	}
	return binary.LittleEndian.Uint32(b), nil
}

// AddrInfo is the address and address type pair used by pairing commands
// and events.
type AddrInfo struct {
	Addr ipsp.Addr
	Type uint8
}

func (a AddrInfo) marshal() []byte {
	le := a.Addr.LE()
	return append(le[:], a.Type)
}

// DecodeAddrInfo decodes the leading address of an event or reply.
func DecodeAddrInfo(b []byte) (AddrInfo, error) {
	if len(b) < 7 {
		return AddrInfo{}, errors.Wrapf(ipsp.ErrMalformedInput, "address info: %d bytes", len(b))
	}
	var a [6]byte
	copy(a[:], b[0:6])
	return AddrInfo{Addr: ipsp.AddrFromLE(a), Type: b[6]}, nil
}

// PairDeviceParams returns the PAIR_DEVICE parameters.
func PairDeviceParams(a AddrInfo, ioCap uint8) []byte {
	return append(a.marshal(), ioCap)
}

// PasskeyReplyParams returns the USER_PASSKEY_REPLY parameters.
func PasskeyReplyParams(a AddrInfo, passkey uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, passkey)
	return append(a.marshal(), b...)
}

// BoolParam is the single octet parameter of SET_POWERED and SET_LE.
func BoolParam(v bool) []byte {
	if v {
		return []byte{0x01}
	}
	return []byte{0x00}
}
