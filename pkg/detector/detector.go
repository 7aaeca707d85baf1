// Package detector decides whether a flight trail shows a back-and-forth
// pattern over an area.
//
// Headings are split statically at 180°. A loitering flight produces two
// dense heading clusters, one on each side, whose dominant integer headings
// are opposed within a tolerance. The flight must also hold its mean altitude
// inside a low-altitude band so high transit traffic is ignored.
package detector

import (
	"errors"
	"fmt"
	"time"

	"github.com/unklstewy/ads-loiter/pkg/flight"
)

// Reason explains a detection outcome.
type Reason string

const (
	ReasonInsufficientSamples Reason = "insufficient_samples"
	ReasonAltitudeOutOfBand   Reason = "altitude_out_of_band"
	ReasonNoReversal          Reason = "no_reversal"
	ReasonLoitering           Reason = "loitering"
	ReasonMalformed           Reason = "malformed"
)

// ErrMalformedSample is returned when a trail contains a sample that cannot
// be used. Callers skip the flight and carry on with the batch.
var ErrMalformedSample = errors.New("malformed sample")

// Params tunes the detector.
type Params struct {
	// MinAltitudeM is the lower bound of the mean-altitude band in meters (default: 500)
	MinAltitudeM float64 `json:"min_altitude_m" yaml:"min_altitude_m"`

	// MaxAltitudeM is the upper bound of the mean-altitude band in meters (default: 5000)
	MaxAltitudeM float64 `json:"max_altitude_m" yaml:"max_altitude_m"`

	// MinSamplesPerHalf is the minimum sample count required on each side of the split (default: 10)
	MinSamplesPerHalf int `json:"min_samples_per_half" yaml:"min_samples_per_half"`

	// ToleranceDeg is how far the rotated half-1 mode may sit from the half-2 mode (default: 5)
	ToleranceDeg float64 `json:"tolerance_deg" yaml:"tolerance_deg"`
}

// DefaultParams returns the stock detection settings.
func DefaultParams() Params {
	return Params{
		MinAltitudeM:      500,
		MaxAltitudeM:      5000,
		MinSamplesPerHalf: 10,
		ToleranceDeg:      5,
	}
}

// Validate checks that the parameters describe a usable band.
func (p Params) Validate() error {
	if p.MinAltitudeM < 0 {
		return fmt.Errorf("min altitude must be >= 0, got %.1f", p.MinAltitudeM)
	}
	if p.MaxAltitudeM < p.MinAltitudeM {
		return fmt.Errorf("max altitude %.1f is below min altitude %.1f", p.MaxAltitudeM, p.MinAltitudeM)
	}
	if p.MinSamplesPerHalf < 1 {
		return fmt.Errorf("min samples per half must be >= 1, got %d", p.MinSamplesPerHalf)
	}
	if p.ToleranceDeg < 0 {
		return fmt.Errorf("tolerance must be >= 0, got %.1f", p.ToleranceDeg)
	}
	return nil
}

// Summary carries the derived values behind a decision.
type Summary struct {
	Half1         HalfStats `json:"half1"`
	Half2         HalfStats `json:"half2"`
	MeanAltitudeM float64   `json:"mean_altitude_m"`

	// ReversalOffset is mode(half1) + 180 - mode(half2), valid once both halves qualify
	ReversalOffset int `json:"reversal_offset"`
}

// Result is the outcome of one detection pass.
type Result struct {
	Verdict flight.Verdict `json:"verdict"`
	Summary Summary        `json:"summary"`
	Reason  Reason         `json:"reason"`
}

// Detector applies the heading-reversal test to flight records.
// It holds no per-flight state and is safe for concurrent use.
type Detector struct {
	params Params
	now    func() time.Time
}

// New creates a detector using the wall clock for detection stamps.
// params is not validated here; Detect still treats an empty half as
// insufficient when MinSamplesPerHalf is below 1.
func New(params Params) *Detector {
	return &Detector{
		params: params,
		now:    time.Now,
	}
}

// WithClock replaces the time source. Used by tests and replays.
func (d *Detector) WithClock(now func() time.Time) *Detector {
	d.now = now
	return d
}

// Params returns the settings in use.
func (d *Detector) Params() Params {
	return d.params
}

// Detect runs the reversal test on one flight.
// Degenerate trails are a negative result, not an error. A malformed sample
// returns ErrMalformedSample with Reason set to ReasonMalformed.
func (d *Detector) Detect(rec flight.Record) (Result, error) {
	res := Result{Verdict: flight.NewVerdict(rec)}

	var half1, half2 []float64
	for i, s := range rec.Samples {
		if err := s.Validate(); err != nil {
			res.Reason = ReasonMalformed
			return res, fmt.Errorf("%w: flight %s sample %d: %v", ErrMalformedSample, rec.Callsign, i, err)
		}
		if s.HeadingDeg < 180 {
			half1 = append(half1, s.HeadingDeg)
		} else {
			half2 = append(half2, s.HeadingDeg)
		}
	}

	res.Summary.Half1.Count = len(half1)
	res.Summary.Half2.Count = len(half2)
	if len(half1) < d.params.MinSamplesPerHalf || len(half2) < d.params.MinSamplesPerHalf || len(half1) == 0 || len(half2) == 0 {
		res.Reason = ReasonInsufficientSamples
		return res, nil
	}

	res.Summary.Half1 = computeHalfStats(half1)
	res.Summary.Half2 = computeHalfStats(half2)

	meanAlt := meanAltitude(rec.Samples)
	res.Summary.MeanAltitudeM = meanAlt
	res.Verdict.MeanAltitudeM = meanAlt
	if meanAlt < d.params.MinAltitudeM || meanAlt > d.params.MaxAltitudeM {
		res.Reason = ReasonAltitudeOutOfBand
		return res, nil
	}

	offset := res.Summary.Half1.Mode + 180 - res.Summary.Half2.Mode
	res.Summary.ReversalOffset = offset
	if float64(offset) < -d.params.ToleranceDeg || float64(offset) > d.params.ToleranceDeg {
		res.Reason = ReasonNoReversal
		return res, nil
	}

	res.Verdict.IsLoitering = true
	res.Verdict.DetectedAt = d.now().Truncate(time.Minute)
	res.Reason = ReasonLoitering
	return res, nil
}

func meanAltitude(samples []flight.Sample) float64 {
	alts := make([]float64, len(samples))
	for i, s := range samples {
		alts[i] = s.AltitudeM
	}
	return meanOf(alts)
}
