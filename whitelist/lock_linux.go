package whitelist

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/rigado/ipsp"
	"golang.org/x/sys/unix"
)

// lock takes an exclusive lock on the whole of f without waiting. Open file
// description locks conflict with classic record locks held by other
// processes, and also with other descriptors of this process.
func lock(f *os.File) error {
	lk := unix.Flock_t{
		Type:   unix.F_WRLCK,
		Whence: io.SeekStart,
	}

	err := unix.FcntlFlock(f.Fd(), unix.F_OFD_SETLK, &lk)
	if err == unix.EAGAIN || err == unix.EACCES {
		return errors.Wrapf(ipsp.ErrLocked, "%v", f.Name())
	}
	if err != nil {
		return errors.Wrapf(err, "lock %v", f.Name())
	}
	return nil
}
