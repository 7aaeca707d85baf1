// Package dailylog persists loitering verdicts to an append-only text log and
// suppresses repeat entries for a callsign on the same calendar day.
//
// Each entry occupies four lines:
//
//	Owner: <owner>
//	Callsign: <callsign>
//	Model: <model>
//	Date: <YYYY-MM-DD HH:MM>
//
// The format is shared with earlier tooling and must stay stable.
package dailylog

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/unklstewy/ads-loiter/pkg/flight"
)

const (
	// DateLayout is the timestamp format of the Date line
	DateLayout = "2006-01-02 15:04"

	// DayLayout is the calendar-date prefix of DateLayout
	DayLayout = "2006-01-02"
)

// Entry is one parsed log record.
type Entry struct {
	Owner    string    `json:"owner"`
	Callsign string    `json:"callsign"`
	Model    string    `json:"model"`
	Date     time.Time `json:"date"`
}

// Day returns the entry's calendar date in local time.
func (e Entry) Day() string {
	return e.Date.Format(DayLayout)
}

// Format renders the entry in the four-line log format.
func (e Entry) Format() string {
	return fmt.Sprintf("Owner: %s\nCallsign: %s\nModel: %s\nDate: %s\n",
		oneLine(e.Owner), oneLine(e.Callsign), oneLine(e.Model), e.Date.Format(DateLayout))
}

// EntryFromVerdict builds the log entry for a verdict. A zero DetectedAt
// is replaced by now.
func EntryFromVerdict(v flight.Verdict, now time.Time) Entry {
	at := v.DetectedAt
	if at.IsZero() {
		at = now
	}
	return Entry{
		Owner:    v.Owner,
		Callsign: v.Callsign,
		Model:    v.Model,
		Date:     at.Local().Truncate(time.Minute),
	}
}

// oneLine keeps a field from breaking the line structure.
func oneLine(s string) string {
	return strings.TrimSpace(strings.NewReplacer("\r", " ", "\n", " ").Replace(s))
}

// maxLineBytes bounds one log line. Longer lines are corrupt and end the
// entry they appear in.
const maxLineBytes = 4096

// Parse reads entries from r. Whitespace around lines and fields is ignored.
// An entry starts at an Owner line and completes at its Date line; entries
// whose Date does not parse, or that contain an overlong line, are skipped
// and counted.
func Parse(r io.Reader) (entries []Entry, skipped int, err error) {
	var p parser
	br := bufio.NewReader(r)
	for {
		raw, rerr := br.ReadString('\n')
		if rerr != nil && rerr != io.EOF {
			return p.entries, p.skipped, fmt.Errorf("failed to read log: %w", rerr)
		}
		if len(raw) > maxLineBytes {
			p.drop()
		} else {
			p.line(strings.TrimSpace(raw))
		}
		if rerr == io.EOF {
			break
		}
	}
	if p.cur != nil {
		p.skipped++
	}
	return p.entries, p.skipped, nil
}

type parser struct {
	cur     *Entry
	entries []Entry
	skipped int

	// discarding ignores the rest of a corrupt entry up to its Date line
	discarding bool
}

// drop counts the entry holding a corrupt line as skipped and ignores its remaining lines.
func (p *parser) drop() {
	p.skipped++
	p.cur = nil
	p.discarding = true
}

func (p *parser) line(line string) {
	tag, value, ok := strings.Cut(line, ":")
	if !ok {
		return
	}
	value = strings.TrimSpace(value)
	tag = strings.TrimSpace(tag)

	if p.discarding {
		if tag != "Owner" {
			if tag == "Date" {
				p.discarding = false
			}
			return
		}
		p.discarding = false
	}

	switch tag {
	case "Owner":
		if p.cur != nil {
			p.skipped++
		}
		p.cur = &Entry{Owner: value}
	case "Callsign":
		if p.cur == nil {
			p.cur = &Entry{}
		}
		p.cur.Callsign = value
	case "Model":
		if p.cur == nil {
			p.cur = &Entry{}
		}
		p.cur.Model = value
	case "Date":
		if p.cur == nil {
			p.skipped++
			return
		}
		t, perr := time.ParseInLocation(DateLayout, value, time.Local)
		if perr != nil {
			p.skipped++
		} else {
			p.cur.Date = t
			p.entries = append(p.entries, *p.cur)
		}
		p.cur = nil
	}
}
