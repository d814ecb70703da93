package govfs

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// LockMode selects an advisory lock operation for [File.Lock].
type LockMode int

// Advisory lock operations; exactly one base mode, optionally combined with
// [LockNonBlock].
const (
	LockShared    LockMode = unix.LOCK_SH
	LockExclusive LockMode = unix.LOCK_EX
	LockUnlock    LockMode = unix.LOCK_UN
	LockNonBlock  LockMode = unix.LOCK_NB
)

// Lock applies an advisory lock operation to the open stream. The mode must
// be exactly one of [LockShared], [LockExclusive] or [LockUnlock], optionally
// combined with [LockNonBlock]; any other combination fails with
// [ErrInvalidLockMode] before the native handle is touched. Without
// [LockNonBlock] the call blocks until the lock is granted.
func (h *File) Lock(mode LockMode) error {
	switch mode &^ LockNonBlock {
	case LockShared, LockExclusive, LockUnlock:
	default:
		return fmt.Errorf("(fs-lock) %w: %#x", ErrInvalidLockMode, int(mode))
	}

	if err := h.valid(); err != nil {
		return err
	}

	if err := h.unixOps.Flock(int(h.file.Fd()), int(mode)); err != nil {
		return fmt.Errorf("(fs-lock) failed to flock: %w", err)
	}

	return nil
}
