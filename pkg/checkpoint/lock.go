// Package checkpoint implements the persistent state manager: the
// checkpoint directory's exclusive lock, the current/prev rotation
// and save/result link policy, and restore.
package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/arcetri/gollr/pkg/stats"
	"github.com/gofrs/flock"
)

// Dir owns one checkpoint directory: its lock, rotation state, and
// the signal flags that drive the checkpoint-needed predicate.
//
// Dir stores the directory's absolute path and resolves every file
// against it rather than chdir'ing the process into it, avoiding a
// process-wide working-directory mutation while still guaranteeing
// every checkpoint file lives under one resolved directory.
type Dir struct {
	path string
	lock *flock.Flock

	Signals  *Signals
	statsAcc *stats.Accumulator
}

// Open ensures dir exists (creating missing parents with dirMode),
// verifies it is usable, and acquires the exclusive non-blocking
// whole-file lock on run.lock. It returns ErrInaccessible or
// ErrLocked on failure.
func Open(dir string) (*Dir, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInaccessible, err)
	}

	if err := os.MkdirAll(abs, dirMode); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInaccessible, err)
	}
	if err := checkAccess(abs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInaccessible, err)
	}

	lockPath := filepath.Join(abs, lockFile)
	fl := flock.New(lockPath)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInaccessible, err)
	}
	if !locked {
		return nil, ErrLocked
	}

	d := &Dir{path: abs, lock: fl, Signals: newSignals()}
	if err := d.writeLockDiagnostics(); err != nil {
		fl.Unlock()
		return nil, fmt.Errorf("%w: %v", ErrInaccessible, err)
	}
	return d, nil
}

// Close releases the directory lock and stops signal handling. Safe
// to call multiple times.
func (d *Dir) Close() error {
	d.Signals.Stop()
	if d.lock == nil {
		return nil
	}
	err := d.lock.Unlock()
	d.lock = nil
	return err
}

// Path returns the checkpoint directory's absolute path.
func (d *Dir) Path() string { return d.path }

func (d *Dir) file(name string) string { return filepath.Join(d.path, name) }

// checkAccess verifies dir is a directory in which we can create and
// remove a file.
func checkAccess(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	probe := filepath.Join(dir, ".gollr-access-check")
	f, err := os.OpenFile(probe, os.O_CREATE|os.O_WRONLY, fileMode)
	if err != nil {
		return err
	}
	f.Close()
	return os.Remove(probe)
}

// writeLockDiagnostics writes self-describing metadata into the lock
// file after acquisition.
func (d *Dir) writeLockDiagnostics() error {
	f, err := os.OpenFile(d.file(lockFile), os.O_WRONLY|os.O_TRUNC, lockMode)
	if err != nil {
		return err
	}
	defer f.Close()

	hostname, _ := os.Hostname()
	cwd, _ := os.Getwd()
	_, err = fmt.Fprintf(f, "pid = %d ;\nppid = %d ;\nhostname = %q ;\ncwd = %q ;\ncheckpoint_dir = %q ;\nlocked_at = %q ;\n",
		os.Getpid(), os.Getppid(), hostname, cwd, d.path, time.Now().UTC().Format(time.RFC3339))
	return err
}
