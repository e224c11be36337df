package apt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/quantmind-br/dpm/internal/syspkg"
	"golang.org/x/sys/unix"
)

// LockFiles are the locks apt and dpkg take while mutating the database
var LockFiles = []string{
	"/var/lib/dpkg/lock-frontend",
	"/var/lib/dpkg/lock",
	"/var/lib/apt/lists/lock",
	"/var/cache/apt/archives/lock",
}

// Locks implements syspkg.LockInspector. Missing or unreadable lock files
// are skipped.
func (b *Backend) Locks(_ context.Context) ([]syspkg.LockStatus, error) {
	var locks []syspkg.LockStatus
	for _, path := range LockFiles {
		st, err := queryLock(path)
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrPermission) {
			b.log.Debug().Err(err).Str("lock", path).Msg("skipping lock file")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("inspect lock %s: %w", path, err)
		}
		locks = append(locks, st)
	}
	return locks, nil
}

// queryLock asks the kernel whether another process holds a write lock
// on path, the way dpkg's own lock check works
func queryLock(path string) (syspkg.LockStatus, error) {
	f, err := os.Open(path)
	if err != nil {
		return syspkg.LockStatus{}, err
	}
	defer f.Close()

	lk := unix.Flock_t{
		Type:   unix.F_WRLCK,
		Whence: io.SeekStart,
	}
	if err := unix.FcntlFlock(f.Fd(), unix.F_GETLK, &lk); err != nil {
		return syspkg.LockStatus{}, err
	}

	st := syspkg.LockStatus{Path: path}
	if lk.Type != unix.F_UNLCK {
		st.Held = true
		st.PID = int(lk.Pid)
	}
	return st, nil
}
