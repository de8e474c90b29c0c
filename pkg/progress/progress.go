// Package progress implements verbose human-facing progress tracing
// for a run: an atomically-published counter, a background goroutine
// that wakes on a time.Ticker and prints a progress/ETA line, torn down
// deterministically via a done channel.
package progress

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"
)

// Reporter prints periodic "[elapsed] i/n (pct%) eta=..." lines to
// an io.Writer while a run of known total length is in progress.
// Tick is safe to call from the run's main goroutine; the reporter's
// own goroutine only ever reads the published counter.
type Reporter struct {
	w        io.Writer
	total    uint64
	interval time.Duration
	start    time.Time

	current atomic.Uint64
	done    chan struct{}
	stopped chan struct{}
}

// NewReporter starts a Reporter that prints to w every interval,
// tracking progress toward total. Call Stop when the run ends.
func NewReporter(w io.Writer, total uint64, interval time.Duration) *Reporter {
	r := &Reporter{
		w:        w,
		total:    total,
		interval: interval,
		start:    time.Now(),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go r.loop()
	return r
}

// Tick publishes the current term index. Only the most recent value
// at each tick is ever printed.
func (r *Reporter) Tick(i uint64) { r.current.Store(i) }

func (r *Reporter) loop() {
	defer close(r.stopped)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			r.print(r.current.Load())
		}
	}
}

func (r *Reporter) print(i uint64) {
	elapsed := time.Since(r.start)
	pct := float64(i) / float64(r.total) * 100

	var eta string
	if i > 0 {
		remaining := time.Duration(float64(elapsed) * float64(r.total-i) / float64(i))
		eta = remaining.Round(time.Second).String()
	} else {
		eta = "..."
	}

	fmt.Fprintf(r.w, "  [%s] %d/%d (%.1f%%) eta=%s\n", elapsed.Round(time.Second), i, r.total, pct, eta)
}

// Stop tears down the reporter's goroutine and prints a final status
// line reflecting the last tick. Safe to call once.
func (r *Reporter) Stop() {
	close(r.done)
	<-r.stopped
	r.print(r.current.Load())
}
