package driver

import (
	"errors"
	"testing"

	"github.com/arcetri/gollr/pkg/checkpoint"
	"github.com/arcetri/gollr/pkg/riesel"
)

func TestRunEndToEnd(t *testing.T) {
	cases := []struct {
		name  string
		h, n  uint64
		prime bool
	}{
		{"h1n2-trivial-prime", 1, 2, true},
		{"h1n1-trivial-composite", 1, 1, false},
		{"h1n4-divisible-by-three", 1, 4, false},
		{"h1n3-mersenne", 1, 3, true},
		{"h3n3", 3, 3, true},
		{"h3n4", 3, 4, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Run(Config{H: tc.h, Exp: tc.n})
			if err != nil {
				t.Fatalf("Run(%d,%d): unexpected error: %v", tc.h, tc.n, err)
			}
			if res.Prime != tc.prime {
				t.Errorf("Run(%d,%d).Prime = %v, want %v", tc.h, tc.n, res.Prime, tc.prime)
			}
		})
	}
}

func TestRunArgumentError(t *testing.T) {
	_, err := Run(Config{H: 0, Exp: 5})
	var derr *Error
	if !errors.As(err, &derr) || derr.Code != ExitArgument {
		t.Fatalf("want argument error (exit %d), got %v", ExitArgument, err)
	}
}

func TestRunDomainError(t *testing.T) {
	// h is odd (no halving applies) and already >= 2^n.
	_, err := Run(Config{H: 9, Exp: 2})
	var derr *Error
	if !errors.As(err, &derr) || derr.Code != ExitDomain {
		t.Fatalf("want domain error (exit %d), got %v", ExitDomain, err)
	}
}

// TestRunCheckpointResume checks that a run checkpointed at every
// term agrees with a non-checkpointed run on the same candidate.
func TestRunCheckpointResume(t *testing.T) {
	dir := t.TempDir()

	var checkpoints int
	res1, err := Run(Config{
		H: 1, Exp: 127,
		CheckpointDir:      dir,
		CheckpointSecs:     -1,
		CheckpointMultiple: 1,
		Hooks: Hooks{
			OnCheckpoint: func(uint64) { checkpoints++ },
		},
	})
	if err != nil {
		t.Fatalf("checkpointed run: %v", err)
	}

	res2, err := Run(Config{H: 1, Exp: 127})
	if err != nil {
		t.Fatalf("non-checkpointed comparison run: %v", err)
	}

	if res1.Prime != res2.Prime {
		t.Fatalf("checkpointed run disagreed with non-checkpointed run: %v vs %v", res1.Prime, res2.Prime)
	}
	if checkpoints == 0 {
		t.Fatal("expected at least one checkpoint to have been written")
	}
}

// TestRunRestoreOnly checks that a run started with no (h, n), only a
// checkpoint directory, recovers (h, n, i, v1, U) from the checkpoint
// and reaches the same verdict as an uninterrupted run.
func TestRunRestoreOnly(t *testing.T) {
	dir := t.TempDir()

	_, err := Run(Config{
		H: 1, Exp: 127,
		CheckpointDir:      dir,
		CheckpointSecs:     -1,
		CheckpointMultiple: 1,
	})
	if err != nil {
		t.Fatalf("seeding checkpoint: %v", err)
	}

	var started riesel.Params
	res, err := Run(Config{
		Restore:        true,
		CheckpointDir:  dir,
		CheckpointSecs: -1,
		Hooks: Hooks{
			OnStart: func(p riesel.Params) { started = p },
		},
	})
	if err != nil {
		t.Fatalf("restore-only run: %v", err)
	}
	if started.H != 1 || started.Exp != 127 {
		t.Fatalf("OnStart got (h=%d, n=%d), want (h=1, n=127)", started.H, started.Exp)
	}
	if !res.Prime {
		t.Fatalf("restore-only run: Prime = %v, want true", res.Prime)
	}
}

// TestRunRestoreOnlyNoDir checks that Restore without a checkpoint
// directory is an argument error, not a nil-pointer dereference.
func TestRunRestoreOnlyNoDir(t *testing.T) {
	_, err := Run(Config{Restore: true})
	var derr *Error
	if !errors.As(err, &derr) || derr.Code != ExitArgument {
		t.Fatalf("want argument error (exit %d), got %v", ExitArgument, err)
	}
}

// TestRunLockContention checks that a second run against a directory
// whose lock is already held exits with the lock error code.
func TestRunLockContention(t *testing.T) {
	dir := t.TempDir()

	held, err := checkpoint.Open(dir)
	if err != nil {
		t.Fatalf("acquiring lock directly: %v", err)
	}
	defer held.Close()

	_, err = Run(Config{H: 1, Exp: 3, CheckpointDir: dir})
	var derr *Error
	if !errors.As(err, &derr) || derr.Code != ExitLock {
		t.Fatalf("want lock error (exit %d), got %v", ExitLock, err)
	}
}
