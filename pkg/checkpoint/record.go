package checkpoint

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/arcetri/gollr/pkg/stats"
)

// sentinelKey = sentinelValue is the final line of a fully written record. A file
// lacking it is treated as invalid/partial.
const sentinelKey = "complete"
const sentinelValue = "true"

// Record is the parsed/serializable form of a single checkpoint file.
type Record struct {
	Version  int
	Hostname string
	Cwd      string
	Dir      string
	PID      int
	PPID     int

	H, Exp, I uint64
	V1        int64
	U         *big.Int

	Beginrun, Current, Restored, Total stats.Snapshot
}

// write serializes r to w using the "key = value ;\n" format, ending
// with the completion sentinel. Every field write is checked for
// error uniformly, not just the big-integer hex field.
func (r Record) write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	kv := &kvWriter{w: bw}

	kv.int("version", r.Version)
	kv.str("hostname", r.Hostname)
	kv.str("cwd", r.Cwd)
	kv.str("checkpoint_dir", r.Dir)
	kv.uint("pid", uint64(r.PID))
	kv.uint("ppid", uint64(r.PPID))

	kv.uint("n", r.Exp)
	kv.uint("h", r.H)
	kv.uint("i", r.I)
	kv.uint("v1", uint64(r.V1))

	kv.statsBlock("beginrun", r.Beginrun)
	kv.statsBlock("current", r.Current)
	kv.statsBlock("restored", r.Restored)
	kv.statsBlock("total", r.Total)

	kv.hex("u_term", r.U)

	kv.str(sentinelKey, sentinelValue)

	if kv.err != nil {
		return kv.err
	}
	return bw.Flush()
}

// parseRecord reads a Record previously written by write. It returns an
// error if the data is truncated, malformed, or missing the
// completion sentinel.
func parseRecord(data []byte) (Record, error) {
	fields := make(map[string]string)
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		key, val, ok := splitKV(line)
		if !ok {
			return Record{}, fmt.Errorf("checkpoint: malformed line %q", line)
		}
		fields[key] = val
	}
	if err := sc.Err(); err != nil {
		return Record{}, fmt.Errorf("checkpoint: read: %w", err)
	}

	if fields[sentinelKey] != sentinelValue {
		return Record{}, fmt.Errorf("checkpoint: %w", ErrIncomplete)
	}

	var r Record
	var err error
	get := func(name string) string { return fields[name] }
	must := func(name string) (uint64, error) { return strconv.ParseUint(get(name), 10, 64) }

	if v, e := strconv.Atoi(get("version")); e == nil {
		r.Version = v
	} else {
		err = joinErr(err, e)
	}
	r.Hostname = get("hostname")
	r.Cwd = get("cwd")
	r.Dir = get("checkpoint_dir")
	if v, e := must("pid"); e == nil {
		r.PID = int(v)
	} else {
		err = joinErr(err, e)
	}
	if v, e := must("ppid"); e == nil {
		r.PPID = int(v)
	} else {
		err = joinErr(err, e)
	}
	if v, e := must("n"); e == nil {
		r.Exp = v
	} else {
		err = joinErr(err, e)
	}
	if v, e := must("h"); e == nil {
		r.H = v
	} else {
		err = joinErr(err, e)
	}
	if v, e := must("i"); e == nil {
		r.I = v
	} else {
		err = joinErr(err, e)
	}
	if v, e := must("v1"); e == nil {
		r.V1 = int64(v)
	} else {
		err = joinErr(err, e)
	}

	r.Beginrun, err = parseStatsBlock(fields, "beginrun", err)
	r.Current, err = parseStatsBlock(fields, "current", err)
	r.Restored, err = parseStatsBlock(fields, "restored", err)
	r.Total, err = parseStatsBlock(fields, "total", err)

	uHex := get("u_term")
	uHex = strings.TrimPrefix(uHex, "0x")
	u, ok := new(big.Int).SetString(uHex, 16)
	if !ok {
		err = joinErr(err, fmt.Errorf("checkpoint: bad u_term hex %q", get("u_term")))
	}
	r.U = u

	if err != nil {
		return Record{}, fmt.Errorf("checkpoint: parse: %w", err)
	}
	return r, nil
}

func joinErr(a, b error) error {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return fmt.Errorf("%w; %w", a, b)
}

func splitKV(line string) (key, value string, ok bool) {
	line = strings.TrimSuffix(strings.TrimSpace(line), ";")
	line = strings.TrimSpace(line)
	idx := strings.Index(line, "=")
	if idx < 0 {
		return "", "", false
	}
	key = strings.TrimSpace(line[:idx])
	value = strings.TrimSpace(line[idx+1:])
	if unquoted, err := strconv.Unquote(value); err == nil {
		value = unquoted
	}
	return key, value, true
}

// kvWriter writes "key = value ;\n" lines, tracking the first error
// encountered so callers can check it once at the end rather than
// after every field.
type kvWriter struct {
	w   *bufio.Writer
	err error
}

func (k *kvWriter) line(key, value string) {
	if k.err != nil {
		return
	}
	_, err := fmt.Fprintf(k.w, "%s = %q ;\n", key, value)
	if err != nil {
		k.err = err
	}
}

func (k *kvWriter) rawLine(key, value string) {
	if k.err != nil {
		return
	}
	_, err := fmt.Fprintf(k.w, "%s = %s ;\n", key, value)
	if err != nil {
		k.err = err
	}
}

func (k *kvWriter) str(key, value string) { k.line(key, value) }
func (k *kvWriter) int(key string, v int) { k.rawLine(key, strconv.Itoa(v)) }
func (k *kvWriter) uint(key string, v uint64) {
	k.rawLine(key, strconv.FormatUint(v, 10))
}

// hex writes a big.Int field as "0x<hex>", with the same
// write-error-checking discipline as every other field.
func (k *kvWriter) hex(key string, v *big.Int) {
	if v == nil {
		v = new(big.Int)
	}
	k.rawLine(key, "0x"+v.Text(16))
}

// statsBlock writes a Snapshot's fields under prefix, using the
// format stats.Snapshot.Fields renders — the on-disk checkpoint record
// and the CLI's stderr diagnostic dump share that one rendering.
func (k *kvWriter) statsBlock(prefix string, s stats.Snapshot) {
	for _, f := range s.Fields() {
		key := prefix + "_" + f.Suffix
		if f.Suffix == "date_time" {
			k.line(key, f.Value)
		} else {
			k.rawLine(key, f.Value)
		}
	}
}

func parseStatsBlock(fields map[string]string, prefix string, errIn error) (stats.Snapshot, error) {
	err := errIn
	getInt := func(name string) int64 {
		v, e := strconv.ParseInt(fields[prefix+"_"+name], 10, 64)
		if e != nil {
			err = joinErr(err, e)
		}
		return v
	}
	getDur := func(name string) time.Duration {
		d, e := stats.ParseSecUsec(fields[prefix+"_"+name])
		if e != nil {
			err = joinErr(err, e)
		}
		return d
	}

	var s stats.Snapshot
	if ts, e := stats.ParseTimestamp(fields[prefix+"_timestamp"]); e == nil {
		s.Timestamp = ts
	} else {
		err = joinErr(err, e)
	}
	s.UserTime = getDur("ru_utime")
	s.SystemTime = getDur("ru_stime")
	s.WallClock = getDur("wall_clock")
	s.MaxRSS = getInt("ru_maxrss")
	s.MinFlt = getInt("ru_minflt")
	s.MajFlt = getInt("ru_majflt")
	s.InBlock = getInt("ru_inblock")
	s.OutBlock = getInt("ru_oublock")
	s.NVCSw = getInt("ru_nvcsw")
	s.NIVCSw = getInt("ru_nivcsw")
	return s, err
}
