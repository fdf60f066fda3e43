package storage

import (
	"fmt"
	"os"
	"syscall"
)

// lockMode selects a shared (reader) or exclusive (writer) advisory lock.
type lockMode int

const (
	lockShared    lockMode = syscall.LOCK_SH
	lockExclusive lockMode = syscall.LOCK_EX
)

func (m lockMode) String() string {
	if m == lockShared {
		return "shared"
	}
	return "exclusive"
}

// flock takes an advisory lock of the given mode on path, creating the lock
// file if needed. Readers share the lock; a writer waits for all of them.
// The returned release drops the lock and closes the file.
func flock(path string, mode lockMode) (release func(), err error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening schedule lock: %w", err)
	}
	if err := syscall.Flock(int(f.Fd()), int(mode)); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("taking %s schedule lock: %w", mode, err)
	}
	return func() {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		_ = f.Close()
	}, nil
}
