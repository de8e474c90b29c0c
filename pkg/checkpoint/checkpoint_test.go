package checkpoint

import (
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteRestoreRoundTrip(t *testing.T) {
	dir, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer dir.Close()

	u := big.NewInt(123456789)
	h, exp, i, v1 := uint64(3), uint64(500), uint64(17), int64(9)

	if err := dir.Write(ResultNone, h, exp, i, v1, u); err != nil {
		t.Fatalf("Write: %v", err)
	}

	st, err := Restore(dir, &h, &exp)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if st.H != h || st.Exp != exp || st.I != i || st.V1 != v1 {
		t.Fatalf("Restore = %+v, want h=%d exp=%d i=%d v1=%d", st, h, exp, i, v1)
	}
	if st.U.Cmp(u) != 0 {
		t.Errorf("Restore U = %s, want %s", st.U, u)
	}
}

func TestRestoreMismatchIsFatal(t *testing.T) {
	dir, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer dir.Close()

	h, exp := uint64(3), uint64(500)
	if err := dir.Write(ResultNone, h, exp, 2, 4, big.NewInt(7)); err != nil {
		t.Fatalf("Write: %v", err)
	}

	wrongH := h + 1
	_, err = Restore(dir, &wrongH, &exp)
	if !errors.Is(err, ErrCannotRestore) {
		t.Fatalf("Restore with mismatched h = %v, want ErrCannotRestore", err)
	}
}

func TestRestoreFallsBackThroughRotation(t *testing.T) {
	dir, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer dir.Close()

	h, exp := uint64(1), uint64(1000)
	for i := uint64(2); i <= 5; i++ {
		if err := dir.Write(ResultNone, h, exp, i, 4, big.NewInt(int64(i))); err != nil {
			t.Fatalf("Write(i=%d): %v", i, err)
		}
	}

	// Corrupt the current file to simulate a crash mid-write; restore
	// should fall back to prev-0, the newest complete file.
	if err := os.WriteFile(dir.file(curFile), []byte("garbage, no sentinel"), 0o600); err != nil {
		t.Fatalf("corrupting current: %v", err)
	}

	st, err := Restore(dir, &h, &exp)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if st.I != 4 {
		t.Errorf("Restore after corruption picked i=%d, want 4 (prev-0, the newest complete file)", st.I)
	}
}

func TestLockExclusivity(t *testing.T) {
	dir := t.TempDir()

	first, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	defer first.Close()

	entriesBefore, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}

	_, err = Open(dir)
	if !errors.Is(err, ErrLocked) {
		t.Fatalf("second Open = %v, want ErrLocked", err)
	}

	entriesAfter, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entriesBefore) != len(entriesAfter) {
		t.Errorf("second Open attempt modified the directory: before=%d entries, after=%d", len(entriesBefore), len(entriesAfter))
	}
}

func TestForceInitRemovesExactlyEnumeratedFiles(t *testing.T) {
	dir, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer dir.Close()

	h, exp := uint64(1), uint64(2000)
	for i := uint64(2); i <= 6; i++ {
		if err := dir.Write(ResultNone, h, exp, i, 4, big.NewInt(int64(i))); err != nil {
			t.Fatalf("Write(i=%d): %v", i, err)
		}
	}
	if err := dir.Write(ResultPrime, h, exp, exp, 4, big.NewInt(0)); err != nil {
		t.Fatalf("final Write: %v", err)
	}

	// A near-end save that force-init must leave untouched.
	nearPath := dir.file(savNearFile)
	os.Remove(nearPath)
	if err := os.Link(dir.file(curFile), nearPath); err != nil {
		t.Fatalf("linking sav.near.pt: %v", err)
	}

	if err := dir.ForceInit(); err != nil {
		t.Fatalf("ForceInit: %v", err)
	}

	for _, name := range forceInitFiles {
		if _, err := os.Stat(dir.file(name)); !os.IsNotExist(err) {
			t.Errorf("force-init left %s behind (err=%v)", name, err)
		}
	}
	if _, err := os.Stat(nearPath); err != nil {
		t.Errorf("force-init removed sav.near.pt, which it should never touch: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir.Path(), lockFile)); err != nil {
		t.Errorf("force-init removed the lock file, which it should never touch: %v", err)
	}
}
