// Package lock serializes mutating operations across client processes.
// One lock.json per data dir; whoever holds it names the operation in
// flight so a competing invocation can tell the user what is running.
package lock

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	clierrors "github.com/entctl/entctl/internal/errors"
	"github.com/entctl/entctl/internal/logging"
	"github.com/google/uuid"
)

const lockFile = "lock.json"

// injectable for tests
var (
	pidFn       = os.Getpid
	pidAliveFn  = pidAlive
	removeFn    = os.Remove
	readFileFn  = os.ReadFile
	writeFileFn = os.WriteFile
)

// Lock is a held operation lock. Release it when the operation finishes.
type Lock struct {
	path string
	id   string
}

type lockRecord struct {
	PID       int       `json:"pid"`
	Operation string    `json:"operation"`
	ID        string    `json:"id"`
	Created   time.Time `json:"created"`
}

// Acquire takes the operation lock under dataDir. A lock held by a live
// process fails with ErrLockHeld naming the holder; a lock left behind by
// a dead process is cleared and re-taken.
func Acquire(dataDir, operation string) (*Lock, error) {
	logger := logging.Component("lock")
	path := filepath.Join(dataDir, lockFile)

	if data, err := readFileFn(path); err == nil {
		var held lockRecord
		if json.Unmarshal(data, &held) == nil && pidAliveFn(held.PID) {
			return nil, clierrors.New(clierrors.KindLock, operation, fmt.Errorf(
				"%w: operation %q in progress (pid %d)",
				clierrors.ErrLockHeld, held.Operation, held.PID))
		}
		// Stale or unreadable: the writer is gone.
		logger.Debug().Str("path", path).Msg("Clearing stale operation lock")
		if err := removeFn(path); err != nil && !os.IsNotExist(err) {
			return nil, clierrors.New(clierrors.KindLock, operation, err)
		}
	}

	record := lockRecord{
		PID:       pidFn(),
		Operation: operation,
		ID:        uuid.New().String(),
		Created:   time.Now().UTC(),
	}
	data, err := json.Marshal(record)
	if err != nil {
		return nil, clierrors.New(clierrors.KindLock, operation, err)
	}
	if err := writeFileFn(path, data, 0o600); err != nil {
		return nil, clierrors.New(clierrors.KindLock, operation, err)
	}
	logger.Debug().Str("operation", operation).Int("pid", record.PID).Msg("Acquired operation lock")
	return &Lock{path: path, id: record.ID}, nil
}

// Release removes the lock file. Releasing a lock that another process has
// since replaced is a no-op.
func (l *Lock) Release() error {
	data, err := readFileFn(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var held lockRecord
	if err := json.Unmarshal(data, &held); err == nil && held.ID != l.id {
		return nil
	}
	if err := removeFn(l.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// pidAlive probes the process with signal 0. EPERM means the process
// exists but belongs to another user, which still counts as alive.
func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || err == syscall.EPERM
}
