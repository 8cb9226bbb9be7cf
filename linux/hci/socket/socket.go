// +build linux

package socket

import (
	"encoding/binary"
	"io"
	"sync"
	"time"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

func ioR(t, nr, size uintptr) uintptr {
	return (2 << 30) | (t << 8) | nr | (size << 16)
}

func ioctl(fd, op, arg uintptr) error {
	if _, _, ep := unix.Syscall(unix.SYS_IOCTL, fd, op, arg); ep != 0 {
		return ep
	}
	return nil
}

const (
	ioctlSize      = 4
	typHCI         = 72 // 'H'
	solHCI         = 0
	hciFilter      = 2
	hciChannelRaw  = 0
	maxConnList    = 16
	unixPollErrors = int16(unix.POLLHUP | unix.POLLNVAL | unix.POLLERR)
	unixPollDataIn = int16(unix.POLLIN)
)

var (
	hciGetConnList = ioR(typHCI, 212, ioctlSize) // HCIGETCONNLIST
)

type connInfo struct {
	handle   uint16
	bdaddr   [6]byte
	typ      uint8
	out      uint8
	state    uint16
	linkMode uint32
}

type connListRequest struct {
	devID    uint16
	connNum  uint16
	connInfo [maxConnList]connInfo
}

// Socket is a raw HCI socket bound to one controller. The kernel keeps
// owning the controller; the socket sees the events selected by its filter.
type Socket struct {
	fd   int
	dev  int
	rmu  sync.Mutex
	wmu  sync.Mutex
	done chan int
	cmu  sync.Mutex
}

// NewSocket returns a raw socket on controller id receiving the given events.
func NewSocket(id int, events ...uint8) (*Socket, error) {
	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.BTPROTO_HCI)
	if err != nil {
		return nil, errors.Wrap(err, "can't create socket")
	}

	sa := unix.SockaddrHCI{Dev: uint16(id), Channel: hciChannelRaw}
	if err := unix.Bind(fd, &sa); err != nil {
		unix.Close(fd)
		return nil, errors.Wrapf(err, "can't bind socket to hci%d", id)
	}

	if err := unix.SetsockoptString(fd, solHCI, hciFilter, string(eventFilter(events...))); err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "can't set hci filter")
	}

	return &Socket{fd: fd, dev: id, done: make(chan int)}, nil
}

// eventFilter returns a struct hci_ufilter passing event packets of the
// given codes.
func eventFilter(events ...uint8) []byte {
	const pktTypeEvent = 0x04

	b := make([]byte, 16)
	binary.LittleEndian.PutUint32(b[0:], 1<<pktTypeEvent)
	var mask [2]uint32
	for _, e := range events {
		mask[e/32] |= 1 << (e % 32)
	}
	binary.LittleEndian.PutUint32(b[4:], mask[0])
	binary.LittleEndian.PutUint32(b[8:], mask[1])
	return b
}

// ReadTimeout reads one packet, waiting at most d. It returns 0, nil when
// nothing arrived in time.
func (s *Socket) ReadTimeout(p []byte, d time.Duration) (int, error) {
	if !s.isOpen() {
		return 0, io.EOF
	}

	s.rmu.Lock()
	defer s.rmu.Unlock()

	// dont need to add unixPollErrors, they are always returned
	pfds := []unix.PollFd{{Fd: int32(s.fd), Events: unixPollDataIn}}
	if _, err := unix.Poll(pfds, int(d/time.Millisecond)); err != nil && err != unix.EINTR {
		return 0, errors.Wrap(err, "can't poll hci socket")
	}
	evts := pfds[0].Revents

	var n int
	var err error
	switch {
	case evts&unixPollErrors != 0:
		return 0, io.EOF

	case evts&unixPollDataIn != 0:
		// there is data!
		n, err = unix.Read(s.fd, p)

	default:
		// no data, read timeout
		return 0, nil
	}

	// check if we are still open since the read takes a while
	if !s.isOpen() {
		return 0, io.EOF
	}
	if err != nil {
		return 0, errors.Wrap(err, "can't read hci socket")
	}
	return n, nil
}

func (s *Socket) Write(p []byte) (int, error) {
	if !s.isOpen() {
		return 0, io.EOF
	}

	s.wmu.Lock()
	defer s.wmu.Unlock()
	n, err := unix.Write(s.fd, p)
	return n, errors.Wrap(err, "can't write hci socket")
}

// ConnectionCount returns the number of links of the controller.
func (s *Socket) ConnectionCount() (int, error) {
	req := connListRequest{devID: uint16(s.dev), connNum: maxConnList}
	if err := ioctl(uintptr(s.fd), hciGetConnList, uintptr(unsafe.Pointer(&req))); err != nil {
		return 0, errors.Wrap(err, "can't get connection list")
	}
	return int(req.connNum), nil
}

func (s *Socket) Close() error {
	s.cmu.Lock()
	defer s.cmu.Unlock()

	select {
	case <-s.done:
		return nil

	default:
		close(s.done)
		s.rmu.Lock()
		err := unix.Close(s.fd)
		s.rmu.Unlock()

		return errors.Wrap(err, "can't close hci socket")
	}
}

func (s *Socket) isOpen() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}
