package driver

import (
	"errors"
	"math/big"
	"time"

	"github.com/arcetri/gollr/pkg/checkpoint"
	"github.com/arcetri/gollr/pkg/lucas"
	"github.com/arcetri/gollr/pkg/modengine"
	"github.com/arcetri/gollr/pkg/riesel"
	"github.com/arcetri/gollr/pkg/stats"
)

// Hooks lets a caller observe a run without being wired into the core
// loop, so verbose tracing and the verifier-script emitter stay
// external collaborators.
type Hooks struct {
	// OnStart is called once (h, n) is known — either from Config
	// directly, or recovered from a restored checkpoint when
	// Config.Restore is set — before the iteration loop begins.
	OnStart func(p riesel.Params)
	// OnStep is called once per completed term, after the modular
	// squaring step and before the checkpoint-needed check.
	OnStep func(i uint64, elapsed time.Duration)
	// OnCheckpoint is called after a checkpoint has been written.
	OnCheckpoint func(i uint64)
}

// Config is the input to Run.
type Config struct {
	H, Exp uint64

	// Restore, when set, ignores H and Exp and instead recovers
	// (h, n, i, v1, U) from the checkpoint in CheckpointDir. Used for
	// a resume-only invocation with no positional arguments.
	Restore bool

	CheckpointDir      string
	ForceReinit        bool
	CheckpointSecs     int // <0 means on-demand only (no periodic timer); 0 means every term
	CheckpointMultiple uint64

	Hooks Hooks
}

// PrimeStats groups the four resource/time accounting snapshots a
// completed run reports: begin-of-run, current (at completion),
// restored (carried over from a prior checkpointed run, zero
// otherwise), and total (restored + (current - beginrun)).
type PrimeStats struct {
	Beginrun, Current, Restored, Total stats.Snapshot
}

// Result is the outcome of a completed (or trivially decided) test.
type Result struct {
	Params     riesel.Params
	Prime      bool
	Iterations uint64
	Stats      PrimeStats
}

// Run executes the full state machine for the candidate h*2^exp-1:
// trivial prefilter, normalization, Lucas setup, the i=2..n loop
// (checkpointing as pkg/checkpoint's predicate demands), and the
// verdict. Every returned error is a *Error carrying the exit-code
// taxonomy.
func Run(cfg Config) (*Result, error) {
	if !cfg.Restore && (cfg.H == 0 || cfg.Exp == 0) {
		return nil, argumentError("h and n must both be positive (got h=%d, n=%d)", cfg.H, cfg.Exp)
	}
	if cfg.Restore && cfg.CheckpointDir == "" {
		return nil, argumentError("restoring (h, n) from a checkpoint requires a checkpoint directory")
	}

	var (
		dir      *checkpoint.Dir
		p        riesel.Params
		i        uint64 = 2
		v1       int64
		u        *big.Int
		restored stats.Snapshot
	)

	if cfg.Restore {
		var err error
		dir, err = checkpoint.Open(cfg.CheckpointDir)
		if err != nil {
			switch {
			case errors.Is(err, checkpoint.ErrLocked):
				return nil, lockError(err)
			default:
				return nil, checkpointIOError(err)
			}
		}
		defer dir.Close()

		st, err := checkpoint.Restore(dir, nil, nil)
		if err != nil {
			return nil, restoreError(err)
		}
		p = riesel.Params{H: st.H, Exp: st.Exp}
		i, v1, u, restored = st.I, st.V1, st.U, st.Restored

		if cfg.CheckpointSecs > 0 {
			if err := dir.Signals.ArmPeriodic(cfg.CheckpointSecs); err != nil {
				return nil, internalError("arming periodic checkpoint timer: %v", err)
			}
		}
	} else {
		var ok bool
		p, ok = riesel.Normalize(riesel.Params{H: cfg.H, Exp: cfg.Exp})
		if !ok {
			return nil, domainError("h*2^n-1 is not a testable Riesel candidate after normalization (h=%d, n=%d)", p.H, p.Exp)
		}

		if riesel.IsTrivialPrime(p) {
			return &Result{Params: p, Prime: true}, nil
		}
		if riesel.IsTrivialComposite(p) {
			return &Result{Params: p, Prime: false}, nil
		}
		if p.DivisibleByThree() {
			return &Result{Params: p, Prime: false}, nil
		}

		if cfg.CheckpointDir != "" {
			var err error
			dir, err = checkpoint.Open(cfg.CheckpointDir)
			if err != nil {
				switch {
				case errors.Is(err, checkpoint.ErrLocked):
					return nil, lockError(err)
				default:
					return nil, checkpointIOError(err)
				}
			}
			defer dir.Close()

			if cfg.ForceReinit {
				if err := dir.ForceInit(); err != nil {
					return nil, checkpointIOError(err)
				}
			}
			if cfg.CheckpointSecs > 0 {
				if err := dir.Signals.ArmPeriodic(cfg.CheckpointSecs); err != nil {
					return nil, internalError("arming periodic checkpoint timer: %v", err)
				}
			}

			if !cfg.ForceReinit {
				st, err := checkpoint.Restore(dir, &p.H, &p.Exp)
				switch {
				case err == nil:
					i, v1, u, restored = st.I, st.V1, st.U, st.Restored
				case errors.Is(err, checkpoint.ErrNoCheckpoint):
					// Ordinary first-run case; start fresh below.
				default:
					return nil, restoreError(err)
				}
			}
		}
	}

	if cfg.Hooks.OnStart != nil {
		cfg.Hooks.OnStart(p)
	}

	n := p.Candidate()

	freshStart := u == nil
	if freshStart {
		v1 = lucas.SelectV1(p.H, n)
		u = lucas.U2(p.H, v1, n)
	}

	acc, err := stats.NewAccumulator(&restored)
	if err != nil {
		return nil, internalError("starting resource accumulator: %v", err)
	}
	if dir != nil {
		dir.AttachStats(acc)
	}

	engine := modengine.New(p.H, p.Exp, n)
	start := time.Now()

	// checkpointAt writes a checkpoint for term idx (and its
	// result link, if idx is the final term) when the predicate says
	// to, returning a *Error on a request to stop after this write.
	multiple := cfg.CheckpointMultiple
	if cfg.CheckpointSecs == 0 {
		multiple = 1 // CheckpointSecs == 0: checkpoint every term
	}
	checkpointAt := func(idx uint64) *Error {
		if dir == nil || !dir.NeedsCheckpoint(idx, p.Exp, multiple) {
			return nil
		}
		kind := checkpoint.ResultNone
		if idx == p.Exp {
			if u.Sign() == 0 {
				kind = checkpoint.ResultPrime
			} else {
				kind = checkpoint.ResultComposite
			}
		}
		if err := dir.Write(kind, p.H, p.Exp, idx, v1, u); err != nil {
			return internalCheckpointError(err)
		}
		if cfg.Hooks.OnCheckpoint != nil {
			cfg.Hooks.OnCheckpoint(idx)
		}
		if dir.Signals.EndRequested() {
			return signalTermination(idx)
		}
		return nil
	}

	if cfg.Hooks.OnStep != nil {
		cfg.Hooks.OnStep(i, time.Since(start))
	}
	if freshStart {
		if err := checkpointAt(i); err != nil {
			return nil, err
		}
	}

	for idx := i + 1; idx <= p.Exp; idx++ {
		u = engine.Step(u)
		i = idx

		if cfg.Hooks.OnStep != nil {
			cfg.Hooks.OnStep(idx, time.Since(start))
		}
		if err := checkpointAt(idx); err != nil {
			return nil, err
		}
	}

	if err := acc.Update(); err != nil {
		return nil, internalError("updating resource accumulator: %v", err)
	}
	return &Result{
		Params:     p,
		Prime:      u.Sign() == 0,
		Iterations: p.Exp - 1,
		Stats: PrimeStats{
			Beginrun: acc.Begin,
			Current:  acc.Current,
			Restored: acc.Restored,
			Total:    acc.Total(nil),
		},
	}, nil
}
