package checkpoint

import (
	"fmt"
	"math/big"
	"os"

	"github.com/arcetri/gollr/pkg/stats"
)

// State is everything a driver needs to resume an in-progress test
// from a restored checkpoint record.
type State struct {
	H, Exp, I uint64
	V1        int64
	U         *big.Int

	Restored stats.Snapshot
}

// Restore tries cur, then prev-0, prev-1, prev-2 in that order,
// returning the first one that parses with an intact completion
// sentinel. If wantH/wantN are non-nil, a successfully parsed record
// whose (h, n) disagrees is a fatal ErrCannotRestore rather than a
// fallback to the next file — that mismatch is an operator error, not
// a corrupt-file retry case.
func Restore(dir *Dir, wantH, wantN *uint64) (*State, error) {
	var lastErr error
	for _, name := range rotationFiles {
		data, err := os.ReadFile(dir.file(name))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			lastErr = err
			continue
		}

		rec, err := parseRecord(data)
		if err != nil {
			lastErr = err
			continue
		}

		if wantH != nil && rec.H != *wantH {
			return nil, fmt.Errorf("%w: checkpoint h=%d, requested h=%d", ErrCannotRestore, rec.H, *wantH)
		}
		if wantN != nil && rec.Exp != *wantN {
			return nil, fmt.Errorf("%w: checkpoint n=%d, requested n=%d", ErrCannotRestore, rec.Exp, *wantN)
		}

		return &State{
			H:        rec.H,
			Exp:      rec.Exp,
			I:        rec.I,
			V1:       rec.V1,
			U:        rec.U,
			Restored: rec.Total,
		}, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrCannotRestore, lastErr)
	}
	return nil, ErrNoCheckpoint
}
