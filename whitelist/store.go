// Package whitelist implements the persistent list of peer addresses allowed
// to pair with the daemon.
//
// The list lives in a plain text file that is shared between the long running
// daemon and short lived command invocations. Every access takes an exclusive
// fcntl record lock on the file. Removal rewrites the list into a staging file
// next to it and renames that over the primary; while the staging file exists
// every other access waits.
package whitelist

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	"github.com/rigado/ipsp"
)

const (
	DefaultPollInterval      = time.Second
	DefaultLockRetryInterval = 100 * time.Millisecond
)

// Config locates the whitelist files and tunes the waits.
type Config struct {
	Path     string
	SwapPath string

	// PollInterval is the period of the staging file existence check.
	PollInterval time.Duration

	// LockRetryInterval is the pause between attempts on a contended lock.
	LockRetryInterval time.Duration

	Logger ipsp.Logger
}

// DefaultConfig returns the system wide whitelist locations.
func DefaultConfig() Config {
	return Config{
		Path:              ipsp.DefaultWhitelistPath,
		SwapPath:          ipsp.DefaultWhitelistSwap,
		PollInterval:      DefaultPollInterval,
		LockRetryInterval: DefaultLockRetryInterval,
	}
}

// Store is a whitelist file. It holds no state between calls, several
// processes may use the same files concurrently.
type Store struct {
	cfg    Config
	logger ipsp.Logger
}

// New returns a store for cfg. Zero fields take their defaults; SwapPath
// defaults to Path with a ".swp" suffix.
func New(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.Wrap(ipsp.ErrConfig, "whitelist path is empty")
	}
	if cfg.SwapPath == "" {
		cfg.SwapPath = cfg.Path + ".swp"
	}
	if cfg.SwapPath == cfg.Path {
		return nil, errors.Wrapf(ipsp.ErrConfig, "whitelist staging path %v equals primary", cfg.Path)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.LockRetryInterval <= 0 {
		cfg.LockRetryInterval = DefaultLockRetryInterval
	}

	return &Store{
		cfg:    cfg,
		logger: ipsp.ComponentLogger(cfg.Logger, "whitelist"),
	}, nil
}

// Contains reports whether a is listed. It does not wait for a contended lock:
// a locked file yields ipsp.ErrLocked and the caller treats a as absent.
func (s *Store) Contains(ctx context.Context, a ipsp.Addr) (bool, error) {
	if err := s.waitStaging(ctx); err != nil {
		return false, err
	}

	f, err := s.openLocked()
	if err != nil {
		return false, err
	}
	defer f.Close()

	list, err := decode(f)
	if err != nil {
		return false, errors.Wrapf(err, "read %v", s.cfg.Path)
	}

	ok := contains(list, a)
	s.logger.Debugf("%v in whitelist: %v", a, ok)
	return ok, nil
}

// List returns the listed addresses in file order.
func (s *Store) List(ctx context.Context) ([]ipsp.Addr, error) {
	if err := s.waitStaging(ctx); err != nil {
		return nil, err
	}

	f, err := s.openLockedRetry(ctx)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	list, err := decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "read %v", s.cfg.Path)
	}
	return list, nil
}

// Add appends a. Adding an address that is already listed is a no-op.
func (s *Store) Add(ctx context.Context, a ipsp.Addr) error {
	a, err := ipsp.ParseAddr(string(a))
	if err != nil {
		return err
	}

	if err := s.waitStaging(ctx); err != nil {
		return err
	}

	f, err := s.openLockedRetry(ctx)
	if err != nil {
		return err
	}
	defer f.Close()

	err = s.add(f, a)
	if errors.Cause(err) == ipsp.ErrAlreadyPresent {
		s.logger.Debugf("%v is already in whitelist", a)
		return nil
	}
	return err
}

func (s *Store) add(f *os.File, a ipsp.Addr) error {
	list, err := decode(f)
	if err != nil {
		return errors.Wrapf(err, "read %v", s.cfg.Path)
	}
	if contains(list, a) {
		return errors.Wrap(ipsp.ErrAlreadyPresent, a.String())
	}

	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return err
	}
	if err := encode(f, a); err != nil {
		return errors.Wrapf(err, "write %v", s.cfg.Path)
	}
	return f.Sync()
}

// Remove rewrites the list without a. The primary file is replaced atomically;
// on any failure it is left as it was and the staging file is removed.
func (s *Store) Remove(ctx context.Context, a ipsp.Addr) error {
	if err := s.waitStaging(ctx); err != nil {
		return err
	}

	f, err := s.openLockedRetry(ctx)
	if err != nil {
		return err
	}
	defer f.Close()

	list, err := decode(f)
	if err != nil {
		return errors.Wrapf(err, "read %v", s.cfg.Path)
	}

	swp, err := os.OpenFile(s.cfg.SwapPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if os.IsExist(err) {
		return errors.Wrapf(ipsp.ErrLocked, "staging file %v exists", s.cfg.SwapPath)
	}
	if err != nil {
		return errors.Wrap(err, "create staging file")
	}

	if err := s.stage(swp, list, a); err != nil {
		swp.Close()
		os.Remove(s.cfg.SwapPath)
		return err
	}
	defer swp.Close()

	if err := os.Rename(s.cfg.SwapPath, s.cfg.Path); err != nil {
		os.Remove(s.cfg.SwapPath)
		return errors.Wrap(err, "replace whitelist")
	}

	s.logger.Debugf("%v removed from whitelist", a)
	return nil
}

func (s *Store) stage(swp *os.File, list []ipsp.Addr, a ipsp.Addr) error {
	if err := lock(swp); err != nil {
		return err
	}
	for _, v := range list {
		if v.Equal(a) {
			continue
		}
		if err := encode(swp, v); err != nil {
			return errors.Wrapf(err, "write %v", s.cfg.SwapPath)
		}
	}
	return swp.Sync()
}

// Clear empties the list.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.waitStaging(ctx); err != nil {
		return err
	}

	f, err := s.openLockedRetry(ctx)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Truncate(0); err != nil {
		return errors.Wrapf(err, "truncate %v", s.cfg.Path)
	}
	return f.Sync()
}

// waitStaging blocks while the staging file exists.
func (s *Store) waitStaging(ctx context.Context) error {
	for {
		_, err := os.Stat(s.cfg.SwapPath)
		if os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "stat %v", s.cfg.SwapPath)
		}

		s.logger.Debugf("waiting for %v", s.cfg.SwapPath)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.PollInterval):
		}
	}
}

// openLocked opens the primary file, creating it if needed, and locks it.
// A file that a concurrent remove renamed away between the open and the lock
// is reported as ipsp.ErrLocked so that retrying callers reopen the path.
func (s *Store) openLocked() (*os.File, error) {
	f, err := os.OpenFile(s.cfg.Path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "open whitelist")
	}
	if err := lock(f); err != nil {
		f.Close()
		return nil, err
	}
	if err := s.checkCurrent(f); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// checkCurrent fails unless f is still the file at the primary path.
func (s *Store) checkCurrent(f *os.File) error {
	held, err := f.Stat()
	if err != nil {
		return errors.Wrapf(err, "stat %v", f.Name())
	}
	cur, err := os.Stat(s.cfg.Path)
	if os.IsNotExist(err) {
		return errors.Wrapf(ipsp.ErrLocked, "%v replaced", s.cfg.Path)
	}
	if err != nil {
		return errors.Wrapf(err, "stat %v", s.cfg.Path)
	}
	if !os.SameFile(held, cur) {
		return errors.Wrapf(ipsp.ErrLocked, "%v replaced", s.cfg.Path)
	}
	return nil
}

// openLockedRetry is openLocked that retries while the lock is contended.
func (s *Store) openLockedRetry(ctx context.Context) (*os.File, error) {
	var f *os.File
	var fatal error

	op := func() error {
		ff, err := s.openLocked()
		switch {
		case err == nil:
			f = ff
			return nil
		case errors.Cause(err) == ipsp.ErrLocked:
			return err
		default:
			fatal = err
			return nil
		}
	}

	b := backoff.WithContext(backoff.NewConstantBackOff(s.cfg.LockRetryInterval), ctx)
	if err := backoff.Retry(op, b); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	if fatal != nil {
		return nil, fatal
	}
	return f, nil
}
