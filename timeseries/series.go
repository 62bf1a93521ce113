package timeseries

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

var (
	// ErrInvalidSeries indicates a series that breaks the engine's input contract.
	ErrInvalidSeries = errors.New("timeseries: invalid series")

	// ErrNoData indicates that no usable observations were found.
	ErrNoData = errors.New("timeseries: no valid data found")
)

// epoch anchors the synthetic daily index used by New.
var epoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// Series represents a time series with timestamps and values.
type Series struct {
	Timestamps []time.Time
	Values     []float64
	Name       string
}

// New creates a new daily time series from values, indexed from 2000-01-01 UTC.
func New(values []float64) *Series {
	timestamps := make([]time.Time, len(values))
	for i := range timestamps {
		timestamps[i] = epoch.AddDate(0, 0, i)
	}
	return &Series{
		Timestamps: timestamps,
		Values:     values,
	}
}

// NewWithTimestamps creates a time series with explicit timestamps.
func NewWithTimestamps(timestamps []time.Time, values []float64) (*Series, error) {
	if len(timestamps) != len(values) {
		return nil, fmt.Errorf("%w: %d timestamps for %d values", ErrInvalidSeries, len(timestamps), len(values))
	}
	return &Series{
		Timestamps: timestamps,
		Values:     values,
	}, nil
}

// Validate checks the contract every analysis relies on: aligned slices,
// strictly increasing timestamps and finite values.
func (s *Series) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: nil series", ErrInvalidSeries)
	}
	if len(s.Timestamps) != len(s.Values) {
		return fmt.Errorf("%w: %d timestamps for %d values", ErrInvalidSeries, len(s.Timestamps), len(s.Values))
	}
	for i, v := range s.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite value at index %d", ErrInvalidSeries, i)
		}
		if i > 0 && !s.Timestamps[i].After(s.Timestamps[i-1]) {
			return fmt.Errorf("%w: timestamp at index %d (%s) does not follow %s",
				ErrInvalidSeries, i, s.Timestamps[i].Format(time.DateOnly), s.Timestamps[i-1].Format(time.DateOnly))
		}
	}
	return nil
}

// Len returns the length of the series.
func (s *Series) Len() int {
	return len(s.Values)
}

// Mean calculates the arithmetic mean of the series.
func (s *Series) Mean() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	return stat.Mean(s.Values, nil)
}

// Variance calculates the sample variance of the series.
func (s *Series) Variance() float64 {
	if len(s.Values) < 2 {
		return 0
	}
	return stat.Variance(s.Values, nil)
}

// Std calculates the standard deviation of the series.
func (s *Series) Std() float64 {
	return math.Sqrt(s.Variance())
}

// TimeAt returns the timestamp at index i, or the zero time when the series
// carries no timestamp for it.
func (s *Series) TimeAt(i int) time.Time {
	if i < 0 || i >= len(s.Timestamps) {
		return time.Time{}
	}
	return s.Timestamps[i]
}

// Diff calculates the first difference of the series.
func (s *Series) Diff() *Series {
	if len(s.Values) <= 1 {
		return &Series{Values: []float64{}}
	}

	result := make([]float64, len(s.Values)-1)
	for i := 1; i < len(s.Values); i++ {
		result[i-1] = s.Values[i] - s.Values[i-1]
	}

	timestamps := make([]time.Time, len(result))
	if len(s.Timestamps) > 1 {
		copy(timestamps, s.Timestamps[1:])
	}

	return &Series{
		Timestamps: timestamps,
		Values:     result,
		Name:       s.Name + "_diff",
	}
}

// PctChange returns the percentage change between consecutive observations
// (daily returns when the series is daily). The first position is absent, as
// is any position following a zero value.
func (s *Series) PctChange() []NullFloat64 {
	out := make([]NullFloat64, len(s.Values))
	for i := 1; i < len(s.Values); i++ {
		prev := s.Values[i-1]
		if prev == 0 {
			continue
		}
		out[i] = Valid((s.Values[i] - prev) / prev * 100)
	}
	return out
}

// RollingStd returns the sample standard deviation of the trailing window of
// present values ending at each position. Positions whose window is not fully
// present are absent. With PctChange this gives rolling volatility.
func RollingStd(values []NullFloat64, window int) []NullFloat64 {
	out := make([]NullFloat64, len(values))
	if window < 2 {
		return out
	}
	buf := make([]float64, window)
	for i := window - 1; i < len(values); i++ {
		complete := true
		for j := 0; j < window; j++ {
			v := values[i-window+1+j]
			if !v.Valid {
				complete = false
				break
			}
			buf[j] = v.Float64
		}
		if complete {
			out[i] = Valid(stat.StdDev(buf, nil))
		}
	}
	return out
}

// Slice returns a slice of the series from start to end (exclusive).
func (s *Series) Slice(start, end int) *Series {
	if start < 0 {
		start = 0
	}
	if end > len(s.Values) {
		end = len(s.Values)
	}
	if start >= end {
		return &Series{Values: []float64{}}
	}

	values := make([]float64, end-start)
	copy(values, s.Values[start:end])

	timestamps := make([]time.Time, len(values))
	if len(s.Timestamps) >= end {
		copy(timestamps, s.Timestamps[start:end])
	}

	return &Series{
		Timestamps: timestamps,
		Values:     values,
		Name:       s.Name,
	}
}

// Copy creates a deep copy of the series.
func (s *Series) Copy() *Series {
	values := make([]float64, len(s.Values))
	copy(values, s.Values)

	timestamps := make([]time.Time, len(s.Timestamps))
	copy(timestamps, s.Timestamps)

	return &Series{
		Timestamps: timestamps,
		Values:     values,
		Name:       s.Name,
	}
}
