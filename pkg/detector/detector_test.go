package detector

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unklstewy/ads-loiter/pkg/flight"
)

var fixedNow = time.Date(2026, 5, 14, 10, 42, 37, 0, time.Local)

func newTestDetector() *Detector {
	return New(DefaultParams()).WithClock(func() time.Time { return fixedNow })
}

// trail builds n samples at each heading, all at the same altitude.
func trail(alt float64, groups ...[2]float64) []flight.Sample {
	var out []flight.Sample
	for _, g := range groups {
		for i := 0; i < int(g[1]); i++ {
			out = append(out, flight.Sample{HeadingDeg: g[0], AltitudeM: alt})
		}
	}
	return out
}

func record(samples []flight.Sample) flight.Record {
	return flight.Record{ID: "2f9a1c0d", Owner: "Aerodata", Callsign: "PHX21", Model: "Cessna 404", Samples: samples}
}

// TestDetectReversal tests the back-and-forth scenarios end to end.
func TestDetectReversal(t *testing.T) {
	d := newTestDetector()

	t.Run("Opposed clusters at low altitude", func(t *testing.T) {
		res, err := d.Detect(record(trail(1000, [2]float64{10, 10}, [2]float64{190, 10})))
		require.NoError(t, err)

		assert.True(t, res.Verdict.IsLoitering)
		assert.Equal(t, ReasonLoitering, res.Reason)
		assert.Equal(t, 10, res.Summary.Half1.Mode)
		assert.Equal(t, 190, res.Summary.Half2.Mode)
		assert.Equal(t, 0, res.Summary.ReversalOffset)
		assert.InDelta(t, 1000.0, res.Verdict.MeanAltitudeM, 1e-9)
		assert.Equal(t, fixedNow.Truncate(time.Minute), res.Verdict.DetectedAt)
		assert.Equal(t, "PHX21", res.Verdict.Callsign)
	})

	t.Run("Same headings above band", func(t *testing.T) {
		res, err := d.Detect(record(trail(8000, [2]float64{10, 10}, [2]float64{190, 10})))
		require.NoError(t, err)

		assert.False(t, res.Verdict.IsLoitering)
		assert.Equal(t, ReasonAltitudeOutOfBand, res.Reason)
		assert.True(t, res.Verdict.DetectedAt.IsZero())
	})

	t.Run("Offset at tolerance edge", func(t *testing.T) {
		res, err := d.Detect(record(trail(1500, [2]float64{15, 12}, [2]float64{190, 12})))
		require.NoError(t, err)
		assert.Equal(t, 5, res.Summary.ReversalOffset)
		assert.True(t, res.Verdict.IsLoitering)
	})

	t.Run("Offset just outside tolerance", func(t *testing.T) {
		res, err := d.Detect(record(trail(1500, [2]float64{16, 12}, [2]float64{190, 12})))
		require.NoError(t, err)
		assert.Equal(t, 6, res.Summary.ReversalOffset)
		assert.False(t, res.Verdict.IsLoitering)
		assert.Equal(t, ReasonNoReversal, res.Reason)
	})

	t.Run("Negative offset within tolerance", func(t *testing.T) {
		res, err := d.Detect(record(trail(2000, [2]float64{88, 10}, [2]float64{271, 10})))
		require.NoError(t, err)
		assert.Equal(t, -3, res.Summary.ReversalOffset)
		assert.True(t, res.Verdict.IsLoitering)
	})

	t.Run("Perpendicular legs", func(t *testing.T) {
		res, err := d.Detect(record(trail(1200, [2]float64{90, 10}, [2]float64{180, 10})))
		require.NoError(t, err)
		assert.False(t, res.Verdict.IsLoitering)
	})
}

// TestDetectInsufficientSamples tests the fail-fast path.
func TestDetectInsufficientSamples(t *testing.T) {
	d := newTestDetector()

	tests := []struct {
		name    string
		samples []flight.Sample
	}{
		{"Empty trail", nil},
		{"Only eastbound", trail(1000, [2]float64{10, 25})},
		{"Nine on second half", trail(1000, [2]float64{10, 10}, [2]float64{190, 9})},
		{"Nine on first half", trail(1000, [2]float64{10, 9}, [2]float64{190, 40})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := d.Detect(record(tt.samples))
			require.NoError(t, err)
			assert.False(t, res.Verdict.IsLoitering)
			assert.Equal(t, ReasonInsufficientSamples, res.Reason)
		})
	}
}

// TestDetectEmptyHalfWithUnvalidatedParams tests that a zero sample minimum
// still never computes statistics over an empty half.
func TestDetectEmptyHalfWithUnvalidatedParams(t *testing.T) {
	params := DefaultParams()
	params.MinSamplesPerHalf = 0
	require.Error(t, params.Validate())

	d := New(params).WithClock(func() time.Time { return fixedNow })
	res, err := d.Detect(record(trail(1000, [2]float64{10, 20})))
	require.NoError(t, err)
	assert.False(t, res.Verdict.IsLoitering)
	assert.Equal(t, ReasonInsufficientSamples, res.Reason)
	assert.Equal(t, 0, res.Summary.Half2.Count)
}

// TestDetectAltitudeBand tests that both band edges are inclusive.
func TestDetectAltitudeBand(t *testing.T) {
	d := newTestDetector()

	for _, alt := range []float64{500, 5000} {
		res, err := d.Detect(record(trail(alt, [2]float64{45, 10}, [2]float64{225, 10})))
		require.NoError(t, err)
		assert.True(t, res.Verdict.IsLoitering, "altitude %.0f should be inside the band", alt)
	}

	res, err := d.Detect(record(trail(499.9, [2]float64{45, 10}, [2]float64{225, 10})))
	require.NoError(t, err)
	assert.Equal(t, ReasonAltitudeOutOfBand, res.Reason)
}

// TestDetectMeanAltitudeUsesAllSamples tests that altitude is averaged across both halves.
func TestDetectMeanAltitudeUsesAllSamples(t *testing.T) {
	samples := append(trail(200, [2]float64{30, 10}), trail(1000, [2]float64{210, 10})...)
	res, err := newTestDetector().Detect(record(samples))
	require.NoError(t, err)

	assert.InDelta(t, 600.0, res.Summary.MeanAltitudeM, 1e-9)
	assert.True(t, res.Verdict.IsLoitering)
}

// TestDetectMalformed tests that bad samples are reported without panicking.
func TestDetectMalformed(t *testing.T) {
	samples := trail(1000, [2]float64{10, 10}, [2]float64{190, 10})
	samples[4].HeadingDeg = math.NaN()

	res, err := newTestDetector().Detect(record(samples))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedSample)
	assert.Equal(t, ReasonMalformed, res.Reason)
	assert.False(t, res.Verdict.IsLoitering)
}

// TestIntegerMode tests binning and tie-breaking.
func TestIntegerMode(t *testing.T) {
	tests := []struct {
		name     string
		headings []float64
		want     int
	}{
		{"Fractions fall into their degree", []float64{10.2, 10.9, 11.1}, 10},
		{"Tie goes to lowest degree", []float64{40, 40, 12, 12}, 12},
		{"Single value", []float64{359.99}, 359},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, integerMode(tt.headings))
		})
	}
}

// TestComputeHalfStats tests the diagnostic statistics.
func TestComputeHalfStats(t *testing.T) {
	stats := computeHalfStats([]float64{4, 2, 2, 8})

	assert.Equal(t, 4, stats.Count)
	assert.Equal(t, 2, stats.Mode)
	assert.InDelta(t, 3.0, stats.Median, 1e-9)
	assert.InDelta(t, 4.0, stats.Mean, 1e-9)
	assert.InDelta(t, math.Sqrt(6), stats.StdDev, 1e-9)
}

// TestParamsValidate tests parameter checks.
func TestParamsValidate(t *testing.T) {
	assert.NoError(t, DefaultParams().Validate())

	p := DefaultParams()
	p.MaxAltitudeM = 100
	assert.Error(t, p.Validate())

	p = DefaultParams()
	p.MinSamplesPerHalf = 0
	assert.Error(t, p.Validate())
}

// TestCustomParams tests that a narrower band and smaller half size are honored.
func TestCustomParams(t *testing.T) {
	d := New(Params{MinAltitudeM: 0, MaxAltitudeM: 300, MinSamplesPerHalf: 3, ToleranceDeg: 0})

	res, err := d.Detect(record(trail(250, [2]float64{100, 3}, [2]float64{280, 3})))
	require.NoError(t, err)
	assert.True(t, res.Verdict.IsLoitering)
	assert.False(t, res.Verdict.DetectedAt.IsZero())
}
