// +build darwin dragonfly freebsd netbsd openbsd

package whitelist

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/rigado/ipsp"
	"golang.org/x/sys/unix"
)

// lock takes an exclusive record lock on the whole of f without waiting.
// Without open file description locks, descriptors of one process do not
// exclude each other; only other processes are kept out.
func lock(f *os.File) error {
	lk := unix.Flock_t{
		Type:   unix.F_WRLCK,
		Whence: io.SeekStart,
	}

	err := unix.FcntlFlock(f.Fd(), unix.F_SETLK, &lk)
	if err == unix.EAGAIN || err == unix.EACCES {
		return errors.Wrapf(ipsp.ErrLocked, "%v", f.Name())
	}
	if err != nil {
		return errors.Wrapf(err, "lock %v", f.Name())
	}
	return nil
}
