// Package flight defines the per-cycle flight data passed between the
// collector, the reversal detector and the recorders.
package flight

import (
	"fmt"
	"math"
	"time"
)

// UnknownField is substituted for owner or model metadata the provider omits.
const UnknownField = "Unknown"

// Sample is one point of a flight trail.
// Samples are ordered chronologically; the slice index is the ordinal.
type Sample struct {
	// HeadingDeg is the ground track in degrees, [0, 360)
	// 0 = North, 90 = East, 180 = South, 270 = West
	HeadingDeg float64 `json:"heading_deg"`

	// AltitudeM is the altitude in meters above mean sea level
	AltitudeM float64 `json:"altitude_m"`
}

// Validate reports whether the sample can take part in detection.
func (s Sample) Validate() error {
	if math.IsNaN(s.HeadingDeg) || math.IsInf(s.HeadingDeg, 0) {
		return fmt.Errorf("heading is not a number")
	}
	if s.HeadingDeg < 0 || s.HeadingDeg >= 360 {
		return fmt.Errorf("heading %.2f outside [0, 360)", s.HeadingDeg)
	}
	if math.IsNaN(s.AltitudeM) || math.IsInf(s.AltitudeM, 0) {
		return fmt.Errorf("altitude is not a number")
	}
	if s.AltitudeM < 0 {
		return fmt.Errorf("altitude %.1f is negative", s.AltitudeM)
	}
	return nil
}

// Record is everything known about one candidate flight in a cycle.
type Record struct {
	// ID is the provider's flight identifier
	ID string `json:"id"`

	// Owner is the operating airline or registered owner
	Owner string `json:"owner"`

	// Callsign is the flight callsign, used as the dedup key
	Callsign string `json:"callsign"`

	// Model is the aircraft type text (e.g., "Cessna 208B Grand Caravan")
	Model string `json:"model"`

	// Samples is the chronological heading/altitude trail
	Samples []Sample `json:"samples"`
}

// Verdict is the detector's decision for one flight.
type Verdict struct {
	Owner         string    `json:"owner"`
	Callsign      string    `json:"callsign"`
	Model         string    `json:"model"`
	DetectedAt    time.Time `json:"detected_at"`
	IsLoitering   bool      `json:"is_loitering"`
	MeanAltitudeM float64   `json:"mean_altitude_m"`
}

// NewVerdict copies the identifying metadata of rec into a Verdict.
func NewVerdict(rec Record) Verdict {
	return Verdict{
		Owner:    rec.Owner,
		Callsign: rec.Callsign,
		Model:    rec.Model,
	}
}
