package checkpoint

import (
	"bytes"
	"fmt"
	"math/big"
	"os"

	"github.com/arcetri/gollr/pkg/stats"
)

// AttachStats binds the long-lived resource accumulator this
// directory's writes should serialize. Set once after Open/restore.
func (d *Dir) AttachStats(acc *stats.Accumulator) { d.statsAcc = acc }

// NeedsCheckpoint reports exactly the conditions under which a
// checkpoint is written at the end of step i.
func (d *Dir) NeedsCheckpoint(i, exp, multiple uint64) bool {
	if d.Signals.CheckpointRequested() || d.Signals.EndRequested() {
		return true
	}
	if i == 2 {
		return true
	}
	if exp > PREVIEW && i == exp-PREVIEW {
		return true
	}
	if exp >= 1 && i == exp-1 {
		return true
	}
	if i == exp {
		return true
	}
	if multiple > 0 && i%multiple == 0 {
		return true
	}
	return false
}

// Write persists (h, exp, i, v1, u) as the new current checkpoint,
// following the rotate-then-create-exclusively protocol, then creates
// whatever save/result hard links that index and kind call for.
// After a successful write, checkpoint_alarm is cleared.
func (d *Dir) Write(kind Result, h, exp, i uint64, v1 int64, u *big.Int) error {
	rec := Record{
		Version: recordVersion,
		Dir:     d.path,
		PID:     os.Getpid(),
		PPID:    os.Getppid(),
		H:       h,
		Exp:     exp,
		I:       i,
		V1:      v1,
		U:       u,
	}
	rec.Hostname, _ = os.Hostname()
	rec.Cwd, _ = os.Getwd()

	if d.statsAcc != nil {
		if err := d.statsAcc.Update(); err != nil {
			return fmt.Errorf("checkpoint: stats update: %w", err)
		}
		rec.Beginrun = d.statsAcc.Begin
		rec.Current = d.statsAcc.Current
		rec.Restored = d.statsAcc.Restored
		rec.Total = d.statsAcc.Total(os.Stderr)
	}

	var buf bytes.Buffer
	if err := rec.write(&buf); err != nil {
		return fmt.Errorf("checkpoint: encode: %w", err)
	}

	if err := d.rotate(); err != nil {
		return fmt.Errorf("checkpoint: rotate: %w", err)
	}

	curPath := d.file(curFile)
	f, err := os.OpenFile(curPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, fileMode)
	if err != nil {
		return fmt.Errorf("checkpoint: create current: %w", err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return fmt.Errorf("checkpoint: write current: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("checkpoint: sync current: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("checkpoint: close current: %w", err)
	}

	if err := d.linkSaves(i, exp, kind); err != nil {
		return fmt.Errorf("checkpoint: link saves: %w", err)
	}

	d.Signals.ClearAlarm()
	return nil
}

// rotate shifts prev-2<-prev-1<-prev-0<-cur, dropping the oldest generation,
// with each step skipped if its source doesn't exist yet.
func (d *Dir) rotate() error {
	steps := [][2]string{
		{prev1File, prev2File},
		{prev0File, prev1File},
		{curFile, prev0File},
	}
	for _, step := range steps {
		src := d.file(step[0])
		dst := d.file(step[1])
		if _, err := os.Stat(src); os.IsNotExist(err) {
			continue
		} else if err != nil {
			return err
		}
		if err := os.Rename(src, dst); err != nil {
			return err
		}
		// Rotated-in files stay read-only (fileMode=0440), matching
		// freshly-created ones.
		os.Chmod(dst, fileMode) //nolint:errcheck
	}
	return nil
}

// linkSaves creates whatever save/result hard links this index/kind
// calls for, replacing anything previously linked there.
func (d *Dir) linkSaves(i, exp uint64, kind Result) error {
	link := func(name string) error {
		dst := d.file(name)
		os.Remove(dst) //nolint:errcheck
		return os.Link(d.file(curFile), dst)
	}

	if i == 2 {
		if err := link(savU2File); err != nil {
			return err
		}
	}
	if exp > PREVIEW && i == exp-PREVIEW {
		if err := link(savNearFile); err != nil {
			return err
		}
	}
	if exp >= 1 && i == exp-1 {
		if err := link(savNm1File); err != nil {
			return err
		}
	}
	if i == exp {
		if err := link(savEndFile); err != nil {
			return err
		}
	}
	if name := kind.filename(); name != "" {
		if err := link(name); err != nil {
			return err
		}
	}
	return nil
}

// ForceInit removes exactly the files needed for a fresh start: the
// terminal result file, the initial save, and all rolling checkpoint
// files. It is the only path allowed to remove terminal result files.
func (d *Dir) ForceInit() error {
	for _, name := range forceInitFiles {
		path := d.file(name)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("checkpoint: force-init remove %s: %w", name, err)
		}
	}
	// sav.near.pt / sav.n-1.pt / sav.end.pt outlive later re-runs only
	// by construction (a fresh run never reaches those indices without
	// rewriting them first), so they're intentionally left alone here.
	return nil
}
