// Package stats implements resource/time accounting for a run: three
// snapshots (begin-of-run, current, restored) and a derived total,
// sampled via golang.org/x/sys/unix's rusage call.
package stats

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// Snapshot is one point-in-time resource/time reading.
type Snapshot struct {
	Timestamp time.Time

	UserTime   time.Duration
	SystemTime time.Duration
	WallClock  time.Duration

	MaxRSS   int64
	MinFlt   int64
	MajFlt   int64
	InBlock  int64
	OutBlock int64
	NVCSw    int64
	NIVCSw   int64
}

// Capture samples the current process's rusage and wall clock.
func Capture(wallClockOrigin time.Time) (Snapshot, error) {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return Snapshot{}, fmt.Errorf("stats: getrusage: %w", err)
	}
	now := time.Now()
	s := Snapshot{
		Timestamp:  now,
		UserTime:   timevalDuration(ru.Utime),
		SystemTime: timevalDuration(ru.Stime),
		MaxRSS:     int64(ru.Maxrss),
		MinFlt:     int64(ru.Minflt),
		MajFlt:     int64(ru.Majflt),
		InBlock:    int64(ru.Inblock),
		OutBlock:   int64(ru.Oublock),
		NVCSw:      int64(ru.Nvcsw),
		NIVCSw:     int64(ru.Nivcsw),
	}
	if !wallClockOrigin.IsZero() {
		s.WallClock = now.Sub(wallClockOrigin)
	}
	return s, nil
}

func timevalDuration(tv unix.Timeval) time.Duration {
	return time.Duration(tv.Sec)*time.Second + time.Duration(tv.Usec)*time.Microsecond
}

// Accumulator holds the begin-of-run, current, and restored snapshots
// and derives Total = restored + (current - beginrun), component-wise,
// with negative time deltas clamped to zero and warned rather than
// aborting.
type Accumulator struct {
	Begin    Snapshot
	Current  Snapshot
	Restored Snapshot

	origin time.Time
}

// NewAccumulator starts a fresh accumulator, capturing Begin now.
// If restored is non-nil, it seeds Restored (used after a checkpoint
// restore); otherwise Restored stays zero.
func NewAccumulator(restored *Snapshot) (*Accumulator, error) {
	a := &Accumulator{origin: time.Now()}
	begin, err := Capture(a.origin)
	if err != nil {
		return nil, err
	}
	a.Begin = begin
	a.Current = begin
	if restored != nil {
		a.Restored = *restored
	}
	return a, nil
}

// Update refreshes Current. Call once per checkpoint write.
func (a *Accumulator) Update() error {
	cur, err := Capture(a.origin)
	if err != nil {
		return err
	}
	a.Current = cur
	return nil
}

// Total computes restored + (current - beginrun), clamping negative
// time-valued deltas to zero and reporting the clamp via warn (nil
// warn is fine — the clamp is still applied, just unreported).
func (a *Accumulator) Total(warn io.Writer) Snapshot {
	sub := func(name string, cur, begin time.Duration) time.Duration {
		d := cur - begin
		if d < 0 {
			if warn != nil {
				fmt.Fprintf(warn, "warning: %s regressed (cur=%s begin=%s); clamped to 0\n", name, cur, begin)
			}
			d = 0
		}
		return d
	}

	t := Snapshot{Timestamp: a.Current.Timestamp}
	t.UserTime = a.Restored.UserTime + sub("ru_utime", a.Current.UserTime, a.Begin.UserTime)
	t.SystemTime = a.Restored.SystemTime + sub("ru_stime", a.Current.SystemTime, a.Begin.SystemTime)
	t.WallClock = a.Restored.WallClock + sub("wall_clock", a.Current.WallClock, a.Begin.WallClock)

	t.MaxRSS = maxInt64(a.Restored.MaxRSS, a.Current.MaxRSS)
	t.MinFlt = a.Restored.MinFlt + clampInt64(a.Current.MinFlt-a.Begin.MinFlt)
	t.MajFlt = a.Restored.MajFlt + clampInt64(a.Current.MajFlt-a.Begin.MajFlt)
	t.InBlock = a.Restored.InBlock + clampInt64(a.Current.InBlock-a.Begin.InBlock)
	t.OutBlock = a.Restored.OutBlock + clampInt64(a.Current.OutBlock-a.Begin.OutBlock)
	t.NVCSw = a.Restored.NVCSw + clampInt64(a.Current.NVCSw-a.Begin.NVCSw)
	t.NIVCSw = a.Restored.NIVCSw + clampInt64(a.Current.NIVCSw-a.Begin.NIVCSw)
	return t
}

// Field is one named, pre-formatted value of a Snapshot: the key
// suffix ("ru_utime", "date_time", ...) paired with its rendered
// string. Fields is the single source of truth for the sec.usec /
// RFC-3339-like textual format shared by the on-disk checkpoint
// record and the stderr diagnostic dump, so both stay in sync with
// exactly one rendering of a Snapshot.
type Field struct {
	Suffix, Value string
}

// Fields renders s as the ordered (suffix, value) pairs persisted in a
// checkpoint record and printed in a diagnostic dump: timestamp and
// date_time first, then the timeval-valued fields as sec.usec, then
// the plain integer counters.
func (s Snapshot) Fields() []Field {
	return []Field{
		{"timestamp", FormatTimestamp(s.Timestamp)},
		{"date_time", FormatDateTime(s.Timestamp)},
		{"ru_utime", FormatSecUsec(s.UserTime)},
		{"ru_stime", FormatSecUsec(s.SystemTime)},
		{"wall_clock", FormatSecUsec(s.WallClock)},
		{"ru_maxrss", strconv.FormatInt(s.MaxRSS, 10)},
		{"ru_minflt", strconv.FormatInt(s.MinFlt, 10)},
		{"ru_majflt", strconv.FormatInt(s.MajFlt, 10)},
		{"ru_inblock", strconv.FormatInt(s.InBlock, 10)},
		{"ru_oublock", strconv.FormatInt(s.OutBlock, 10)},
		{"ru_nvcsw", strconv.FormatInt(s.NVCSw, 10)},
		{"ru_nivcsw", strconv.FormatInt(s.NIVCSw, 10)},
	}
}

// FormatSecUsec formats a duration as "sec.usec", the timeval-style
// fixed-point format used for every duration-valued field.
func FormatSecUsec(d time.Duration) string {
	sec := int64(d / time.Second)
	usec := int64((d % time.Second) / time.Microsecond)
	if usec < 0 {
		usec = -usec
	}
	return fmt.Sprintf("%d.%06d", sec, usec)
}

// ParseSecUsec parses a duration previously formatted by FormatSecUsec.
func ParseSecUsec(s string) (time.Duration, error) {
	parts := strings.SplitN(s, ".", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("stats: bad sec.usec %q", s)
	}
	sec, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, err
	}
	usec, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(sec)*time.Second + time.Duration(usec)*time.Microsecond, nil
}

// FormatTimestamp formats t as an epoch "sec.usec" value.
func FormatTimestamp(t time.Time) string {
	return fmt.Sprintf("%d.%06d", t.Unix(), t.Nanosecond()/1000)
}

// ParseTimestamp parses a timestamp previously formatted by
// FormatTimestamp.
func ParseTimestamp(s string) (time.Time, error) {
	parts := strings.SplitN(s, ".", 2)
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("stats: bad timestamp %q", s)
	}
	sec, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	usec, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(sec, usec*1000).UTC(), nil
}

// FormatDateTime formats t as the RFC-3339-like UTC date-time string
// paired with every timestamp field.
func FormatDateTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05 UTC")
}

func clampInt64(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
