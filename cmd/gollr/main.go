package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/arcetri/gollr/pkg/driver"
	"github.com/arcetri/gollr/pkg/lucas"
	"github.com/arcetri/gollr/pkg/progress"
	"github.com/arcetri/gollr/pkg/riesel"
	"github.com/arcetri/gollr/pkg/stats"
	"github.com/arcetri/gollr/pkg/verifier"
	"github.com/spf13/cobra"
)

func main() {
	var (
		verbose            int
		verifyScript       bool
		showStats          bool
		showStatsExtended  bool
		checkpointDir      string
		forceReinit        bool
		checkpointSecs     int
		checkpointMultiple uint64
	)

	root := &cobra.Command{
		Use:   "gollr [h n]",
		Short: "Lucas-Lehmer-Riesel primality test for N = h * 2^n - 1",
		Args: func(cmd *cobra.Command, args []string) error {
			switch len(args) {
			case 0, 2:
				return nil
			default:
				return fmt.Errorf("expected exactly 2 positional args (h n), or none when restoring from --checkpoint-dir")
			}
		},
		// Exit codes are taxonomy-driven, not cobra's generic
		// usage/error dump; main prints its own diagnostic.
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var h, n uint64
			restoreOnly := len(args) == 0
			switch {
			case restoreOnly && checkpointDir == "":
				return &driver.Error{Code: driver.ExitArgument, Kind: "argument error", Err: fmt.Errorf("h and n are required unless restoring from --checkpoint-dir")}
			case !restoreOnly:
				var err error
				h, err = strconv.ParseUint(args[0], 10, 64)
				if err != nil {
					return &driver.Error{Code: driver.ExitArgument, Kind: "argument error", Err: fmt.Errorf("h must be a positive integer: %w", err)}
				}
				n, err = strconv.ParseUint(args[1], 10, 64)
				if err != nil {
					return &driver.Error{Code: driver.ExitArgument, Kind: "argument error", Err: fmt.Errorf("n must be a positive integer: %w", err)}
				}
			}
			cfg := driver.Config{
				H: h, Exp: n,
				Restore:            restoreOnly,
				CheckpointDir:      checkpointDir,
				ForceReinit:        forceReinit,
				CheckpointSecs:     checkpointSecs,
				CheckpointMultiple: checkpointMultiple,
			}

			var rep *progress.Reporter
			if verbose > 0 {
				cfg.Hooks.OnStart = func(p riesel.Params) {
					rep = progress.NewReporter(os.Stderr, p.Exp, 10*time.Second)
				}
				cfg.Hooks.OnStep = func(i uint64, _ time.Duration) { rep.Tick(i) }
				cfg.Hooks.OnCheckpoint = func(i uint64) {
					fmt.Fprintf(os.Stderr, "checkpoint written at term %d\n", i)
				}
			}

			res, err := driver.Run(cfg)
			if rep != nil {
				rep.Stop()
			}
			if err != nil {
				return err
			}

			p := res.Params

			// Stdout is a stable contract: either the verdict line, or,
			// when --verify-script is on, a self-checking script for an
			// external arbitrary-precision calculator — never both.
			if verifyScript {
				v1 := lucas.SelectV1(p.H, p.Candidate())
				bw := bufio.NewWriter(os.Stdout)
				if err := verifier.Write(bw, p, v1); err != nil {
					return &driver.Error{Code: driver.ExitInternal, Kind: "internal error", Err: err}
				}
				if err := bw.Flush(); err != nil {
					return &driver.Error{Code: driver.ExitInternal, Kind: "internal error", Err: err}
				}
			} else {
				verdict := "prime"
				if !res.Prime {
					verdict = "composite"
				}
				fmt.Printf("%d * 2 ^ %d - 1 is %s\n", p.H, p.Exp, verdict)
			}

			if showStats || showStatsExtended {
				printStats(os.Stderr, res, showStatsExtended)
			}

			if res.Prime {
				os.Exit(driver.ExitPrime)
			}
			os.Exit(driver.ExitComposite)
			return nil
		},
	}

	root.Flags().CountVarP(&verbose, "verbose", "v", "increase verbosity (repeatable)")
	root.Flags().BoolVar(&verifyScript, "verify-script", false, "emit a self-checking bc(1) verification script to stdout instead of the verdict line")
	root.Flags().BoolVar(&showStats, "stats", false, "print resource/time accounting to stderr after the run")
	root.Flags().BoolVar(&showStatsExtended, "stats-extended", false, "print extended resource/time accounting to stderr after the run")
	root.Flags().StringVar(&checkpointDir, "checkpoint-dir", "", "directory to checkpoint to/restore from")
	root.Flags().BoolVar(&forceReinit, "force-reinit", false, "discard any existing checkpoint in --checkpoint-dir and start over")
	root.Flags().IntVar(&checkpointSecs, "checkpoint-secs", -1, "checkpoint every N seconds of virtual time (0 = every term, -1 = on-demand only)")
	root.Flags().Uint64Var(&checkpointMultiple, "checkpoint-multiple", 0, "also checkpoint every N terms (0 = disabled)")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "gollr: %v\n", err)
		var derr *driver.Error
		if errors.As(err, &derr) {
			os.Exit(derr.Code)
		}
		os.Exit(driver.ExitArgument)
	}

	// RunE always exits explicitly (prime/composite/argument/internal
	// error, above); reaching here with a nil error means cobra handled
	// --help itself without ever calling RunE.
	os.Exit(driver.ExitHelp)
}

// basicStatsFields are the fields --stats prints; --stats-extended adds
// the page-fault/block-I/O/context-switch counters on top.
var basicStatsFields = map[string]bool{
	"timestamp": true, "date_time": true,
	"ru_utime": true, "ru_stime": true, "wall_clock": true, "ru_maxrss": true,
}

// printStats writes a structured dump of res.Stats's four snapshots
// (beginrun, current, restored, total) to w, one "block_field = value"
// line per field, using the same epoch sec.usec / RFC-3339-like UTC
// formatting as the on-disk checkpoint record.
func printStats(w io.Writer, res *driver.Result, extended bool) {
	blocks := []struct {
		prefix string
		s      stats.Snapshot
	}{
		{"beginrun", res.Stats.Beginrun},
		{"current", res.Stats.Current},
		{"restored", res.Stats.Restored},
		{"total", res.Stats.Total},
	}
	for _, b := range blocks {
		for _, f := range b.s.Fields() {
			if !extended && !basicStatsFields[f.Suffix] {
				continue
			}
			fmt.Fprintf(w, "%s_%s = %s\n", b.prefix, f.Suffix, f.Value)
		}
	}
}
