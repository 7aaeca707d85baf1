package dailylog

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/unklstewy/ads-loiter/pkg/flight"
)

// Log is a daily-deduplicated verdict log backed by one text file.
// Record serializes its read-then-append so concurrent cycles in one
// process cannot both write the same callsign for a day. Separate
// processes sharing a file are not coordinated.
type Log struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// New returns a log at path. The file is created on first write.
func New(path string) *Log {
	return &Log{path: path, now: time.Now}
}

// WithClock replaces the time source used for "today".
func (l *Log) WithClock(now func() time.Time) *Log {
	l.now = now
	return l
}

// Path returns the backing file path.
func (l *Log) Path() string {
	return l.path
}

// ReadAll returns every parseable entry. A missing file is an empty log.
func (l *Log) ReadAll() ([]Entry, error) {
	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open log: %w", err)
	}
	defer f.Close()

	entries, skipped, err := Parse(f)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		log.Printf("⚠️  Skipped %d malformed entries in %s", skipped, l.path)
	}
	return entries, nil
}

// EntriesOn returns the entries whose date is day (YYYY-MM-DD).
func (l *Log) EntriesOn(day string) ([]Entry, error) {
	all, err := l.ReadAll()
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, e := range all {
		if e.Day() == day {
			out = append(out, e)
		}
	}
	return out, nil
}

// Days lists the distinct dates present in the log, newest first.
func (l *Log) Days() ([]string, error) {
	all, err := l.ReadAll()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var days []string
	for _, e := range all {
		if d := e.Day(); !seen[d] {
			seen[d] = true
			days = append(days, d)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(days)))
	return days, nil
}

// Record appends each verdict whose callsign has no entry for the day it
// will be written under, and returns the verdicts written. The day comes from
// the verdict's DetectedAt, or the clock when that is zero. The first verdict
// for a callsign and day wins, including repeats within the same call.
func (l *Log) Record(ctx context.Context, verdicts []flight.Verdict) ([]flight.Verdict, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	existing, err := l.ReadAll()
	if err != nil {
		return nil, err
	}
	recorded := make(map[dayKey]bool, len(existing))
	for _, e := range existing {
		recorded[keyOf(e)] = true
	}

	var pending []Entry
	var written []flight.Verdict
	for _, v := range verdicts {
		e := EntryFromVerdict(v, now)
		k := keyOf(e)
		if recorded[k] {
			continue
		}
		recorded[k] = true
		pending = append(pending, e)
		written = append(written, v)
	}
	if len(pending) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := l.append(pending); err != nil {
		return nil, err
	}
	for _, e := range pending {
		log.Printf("✓ Flight: %s is recorded in %s", e.Callsign, filepath.Base(l.path))
	}
	return written, nil
}

// dayKey identifies the at-most-one entry allowed per callsign and date.
type dayKey struct {
	day      string
	callsign string
}

func keyOf(e Entry) dayKey {
	return dayKey{day: e.Day(), callsign: oneLine(e.Callsign)}
}

func (l *Log) append(entries []Entry) error {
	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log for append: %w", err)
	}

	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.Format())
	}
	if _, err := f.WriteString(b.String()); err != nil {
		f.Close()
		return fmt.Errorf("failed to append to log: %w", err)
	}
	return f.Close()
}
