package checkpoint

import "errors"

// Sentinel errors surfaced by this package. Callers (pkg/driver) map
// these onto an exit-code taxonomy.
var (
	// ErrIncomplete means a checkpoint file was read but never reached
	// its completion sentinel — a partial write.
	ErrIncomplete = errors.New("checkpoint record missing completion sentinel")

	// ErrLocked means another process already holds the directory lock.
	ErrLocked = errors.New("checkpoint directory is locked by another process")

	// ErrInaccessible means the checkpoint directory cannot be created
	// or does not have the required permissions.
	ErrInaccessible = errors.New("checkpoint directory is inaccessible")

	// ErrCannotRestore means a checkpoint file was found and parsed but
	// its (h, n) disagreed with the caller-supplied values, or no
	// candidate file could be restored and at least one of them failed
	// to read/parse for a reason other than simply not existing yet.
	ErrCannotRestore = errors.New("cannot restore checkpoint")

	// ErrNoCheckpoint means no checkpoint file exists yet in the
	// directory — the ordinary first-run case, distinct from
	// ErrCannotRestore so callers can tell "start fresh" apart from
	// "a checkpoint exists but disagrees with what was requested".
	ErrNoCheckpoint = errors.New("no checkpoint file found")
)
