package checkpoint

// File names within a checkpoint directory.
const (
	lockFile = "run.lock"

	curFile   = "chk.cur.pt"
	prev0File = "chk.prev-0.pt"
	prev1File = "chk.prev-1.pt"
	prev2File = "chk.prev-2.pt"

	savU2File   = "sav.u2.pt"
	savNearFile = "sav.near.pt"
	savNm1File  = "sav.n-1.pt"
	savEndFile  = "sav.end.pt"

	resultPrimeFile     = "result.prime.pt"
	resultCompositeFile = "result.composite.pt"
	resultErrorFile     = "result.error.pt"
)

// PREVIEW is the offset before n at which the near-end save snapshot
// is taken.
const PREVIEW = 1024

// recordVersion is the current on-disk checkpoint record version.
const recordVersion = 2

// Result identifies which terminal result file (if any) a checkpoint
// write should also link.
type Result int

const (
	// ResultNone means this write is not a terminal checkpoint.
	ResultNone Result = iota
	ResultPrime
	ResultComposite
	ResultError
)

func (r Result) filename() string {
	switch r {
	case ResultPrime:
		return resultPrimeFile
	case ResultComposite:
		return resultCompositeFile
	case ResultError:
		return resultErrorFile
	default:
		return ""
	}
}

// dirMode, fileMode, lockMode are the default permissions:
// directories 0770, checkpoint files 0440, lock file 0660.
const (
	dirMode  = 0o770
	fileMode = 0o440
	lockMode = 0o660
)

// rotationFiles lists cur/prev-0/prev-1/prev-2 in write order, newest
// first — used both by the rotation step and by restore's fallback
// search order.
var rotationFiles = []string{curFile, prev0File, prev1File, prev2File}

// forceInitFiles enumerates exactly the files force-reinitialization
// is allowed to remove.
var forceInitFiles = []string{
	curFile, prev0File, prev1File, prev2File,
	savU2File,
	resultPrimeFile, resultCompositeFile, resultErrorFile,
}
