// Package loiter runs detection cycles: collect flights over an area, test
// each for a heading reversal and record the loitering ones once per day.
package loiter

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/unklstewy/ads-loiter/pkg/coordinates"
	"github.com/unklstewy/ads-loiter/pkg/detector"
	"github.com/unklstewy/ads-loiter/pkg/flight"
	"github.com/unklstewy/ads-loiter/pkg/flightdata"
)

// Collector produces the candidate records for one cycle.
type Collector interface {
	Collect(ctx context.Context, area coordinates.Area) (*flightdata.Collection, error)
}

// Recorder persists loitering verdicts and returns the ones newly written.
type Recorder interface {
	Record(ctx context.Context, verdicts []flight.Verdict) ([]flight.Verdict, error)
}

// Mirror is a secondary recorder. Its failures are logged, not returned.
type Mirror interface {
	Recorder
	Name() string
}

// Observer receives cycle statistics.
type Observer interface {
	CycleFinished(d time.Duration, err error)
	FlightsCollected(found, excluded, skipped int)
	VerdictReached(reason string)
	Recorded(sink string, n int)
}

type nopObserver struct{}

func (nopObserver) CycleFinished(time.Duration, error) {}
func (nopObserver) FlightsCollected(int, int, int)     {}
func (nopObserver) VerdictReached(string)              {}
func (nopObserver) Recorded(string, int)               {}

// PrimarySink is the metrics label of the text log.
const PrimarySink = "textlog"

// Outcome is the detector's view of one candidate flight.
type Outcome struct {
	FlightID  string           `json:"flight_id"`
	Callsign  string           `json:"callsign"`
	Owner     string           `json:"owner"`
	Model     string           `json:"model"`
	Samples   int              `json:"samples"`
	Reason    detector.Reason  `json:"reason"`
	Summary   detector.Summary `json:"summary"`
	Loitering bool             `json:"loitering"`
	Recorded  bool             `json:"recorded"`
}

// CycleResult describes one completed cycle.
type CycleResult struct {
	ID         uuid.UUID                  `json:"id"`
	Area       coordinates.Area           `json:"area"`
	StartedAt  time.Time                  `json:"started_at"`
	FinishedAt time.Time                  `json:"finished_at"`
	Found      int                        `json:"found"`
	Excluded   int                        `json:"excluded"`
	Skipped    []flightdata.SkippedFlight `json:"skipped,omitempty"`
	Outcomes   []Outcome                  `json:"outcomes"`
	Recorded   []flight.Verdict           `json:"recorded"`
}

// Pipeline wires a collector, a detector and the recorders together.
// Cycles are serialized so a scheduled run and an on-demand run never
// interleave their log writes.
type Pipeline struct {
	mu        sync.Mutex
	collector Collector
	detector  *detector.Detector
	log       Recorder
	mirrors   []Mirror
	observer  Observer
	verbose   bool
}

// New creates a pipeline recording to log.
func New(collector Collector, det *detector.Detector, log Recorder) *Pipeline {
	return &Pipeline{
		collector: collector,
		detector:  det,
		log:       log,
		observer:  nopObserver{},
	}
}

// AddMirror registers a secondary recorder such as the database.
func (p *Pipeline) AddMirror(m Mirror) {
	p.mirrors = append(p.mirrors, m)
}

// SetObserver installs a metrics observer.
func (p *Pipeline) SetObserver(o Observer) {
	if o == nil {
		o = nopObserver{}
	}
	p.observer = o
}

// SetVerbose enables per-half statistics output.
func (p *Pipeline) SetVerbose(v bool) {
	p.verbose = v
}

// RunCycle performs one collect, detect and record pass over area.
// Finding no flights or no loitering flights is a normal result.
func (p *Pipeline) RunCycle(ctx context.Context, area coordinates.Area) (res *CycleResult, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := area.Validate(); err != nil {
		return nil, err
	}

	res = &CycleResult{ID: uuid.New(), Area: area, StartedAt: time.Now()}
	defer func() {
		res.FinishedAt = time.Now()
		p.observer.CycleFinished(res.FinishedAt.Sub(res.StartedAt), err)
	}()

	coll, err := p.collector.Collect(ctx, area)
	if err != nil {
		return res, fmt.Errorf("collect: %w", err)
	}
	res.Found = coll.Found
	res.Excluded = coll.Excluded
	res.Skipped = coll.Skipped
	p.observer.FlightsCollected(coll.Found, coll.Excluded, len(coll.Skipped))

	if coll.Found == 0 {
		log.Println("ℹ No flights found in the area")
		return res, nil
	}
	if len(coll.Records) == 0 {
		log.Printf("ℹ No candidate flights after exclusion (%d found, %d excluded)", coll.Found, coll.Excluded)
		return res, nil
	}

	var loitering []flight.Verdict
	for _, rec := range coll.Records {
		out, verdict := p.evaluate(rec)
		res.Outcomes = append(res.Outcomes, out)
		if out.Loitering {
			loitering = append(loitering, verdict)
		}
	}

	if len(loitering) == 0 {
		log.Printf("ℹ No loitering flights detected among %d candidate(s)", len(coll.Records))
		return res, nil
	}

	written, err := p.log.Record(ctx, loitering)
	if err != nil {
		return res, fmt.Errorf("record: %w", err)
	}
	res.Recorded = written
	p.observer.Recorded(PrimarySink, len(written))
	markRecorded(res.Outcomes, written)

	for _, m := range p.mirrors {
		n, err := m.Record(ctx, loitering)
		if err != nil {
			log.Printf("⚠️  Mirror %s failed: %v", m.Name(), err)
			continue
		}
		p.observer.Recorded(m.Name(), len(n))
	}

	log.Printf("📊 Cycle %s: %d found, %d candidates, %d loitering, %d newly recorded",
		res.ID, res.Found, len(coll.Records), len(loitering), len(written))
	return res, nil
}

// evaluate runs the detector on one record and reports what it found.
func (p *Pipeline) evaluate(rec flight.Record) (Outcome, flight.Verdict) {
	result, err := p.detector.Detect(rec)
	out := Outcome{
		FlightID: rec.ID,
		Callsign: rec.Callsign,
		Owner:    rec.Owner,
		Model:    rec.Model,
		Samples:  len(rec.Samples),
		Reason:   result.Reason,
		Summary:  result.Summary,
	}
	p.observer.VerdictReached(string(result.Reason))

	if err != nil {
		if errors.Is(err, detector.ErrMalformedSample) {
			log.Printf("  ℹ Skipping flight %s: %v", rec.Callsign, err)
		} else {
			log.Printf("  ✗ Detector failed for %s: %v", rec.Callsign, err)
		}
		return out, result.Verdict
	}

	if p.verbose {
		if result.Reason == detector.ReasonInsufficientSamples {
			log.Printf("    %s: %d / %d samples per half, need %d",
				rec.Callsign, result.Summary.Half1.Count, result.Summary.Half2.Count, p.detector.Params().MinSamplesPerHalf)
		} else {
			logHalf(rec.Callsign, "0-180", result.Summary.Half1)
			logHalf(rec.Callsign, "180-360", result.Summary.Half2)
		}
	}

	switch result.Reason {
	case detector.ReasonLoitering, detector.ReasonNoReversal:
		log.Printf("  ℹ %s flies at %.0f m, inside the altitude band", rec.Callsign, result.Summary.MeanAltitudeM)
	}

	if result.Verdict.IsLoitering {
		out.Loitering = true
		log.Printf("  ✓ %s (%s, %s) reversed course: modes %d° / %d°",
			rec.Callsign, rec.Model, rec.Owner, result.Summary.Half1.Mode, result.Summary.Half2.Mode)
	}
	return out, result.Verdict
}

func logHalf(callsign, label string, h detector.HalfStats) {
	log.Printf("    %s half %s: n=%d median=%.1f mode=%d mean=%.1f std=%.1f",
		callsign, label, h.Count, h.Median, h.Mode, h.Mean, h.StdDev)
}

func markRecorded(outcomes []Outcome, written []flight.Verdict) {
	done := make(map[string]bool, len(written))
	for _, v := range written {
		done[v.Callsign] = true
	}
	for i := range outcomes {
		if outcomes[i].Loitering && done[outcomes[i].Callsign] {
			outcomes[i].Recorded = true
			done[outcomes[i].Callsign] = false
		}
	}
}
