package detector

import (
	"math"
	"sort"
)

// HalfStats summarizes the headings on one side of the 180° split.
// Only Mode takes part in the decision; the rest is diagnostic output.
type HalfStats struct {
	Count  int     `json:"count"`
	Mode   int     `json:"mode"`
	Median float64 `json:"median"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// computeHalfStats returns the statistics for a non-empty set of headings.
func computeHalfStats(headings []float64) HalfStats {
	sorted := append([]float64(nil), headings...)
	sort.Float64s(sorted)

	mean := meanOf(sorted)
	return HalfStats{
		Count:  len(sorted),
		Mode:   integerMode(sorted),
		Median: medianOf(sorted),
		Mean:   mean,
		StdDev: populationStdDev(sorted, mean),
	}
}

// integerMode bins headings by whole degree and returns the most populated bin.
// Ties go to the lowest degree.
func integerMode(headings []float64) int {
	var bins [360]int
	for _, h := range headings {
		bins[int(math.Floor(h))]++
	}

	mode, best := 0, -1
	for deg, n := range bins {
		if n > best {
			mode, best = deg, n
		}
	}
	return mode
}

// medianOf expects sorted input.
func medianOf(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func populationStdDev(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sq := 0.0
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)))
}
