package stats

import (
	"fmt"
	"time"

	"github.com/sartorproj/goregime/timeseries"
)

// DecompositionModel selects how the components combine.
type DecompositionModel string

const (
	Additive       DecompositionModel = "additive"       // Y = T + S + R
	Multiplicative DecompositionModel = "multiplicative" // Y = T * S * R
)

// Decomposition represents the classical decomposition of a time series.
// Trend, Seasonal and Residual are aligned with Timestamps; positions the
// moving average cannot centre are absent.
type Decomposition struct {
	Timestamps []time.Time              `json:"timestamps"`
	Observed   []float64                `json:"observed"`
	Trend      []timeseries.NullFloat64 `json:"trend"`
	Seasonal   []timeseries.NullFloat64 `json:"seasonal"`
	Residual   []timeseries.NullFloat64 `json:"residual"`
	Period     int                      `json:"period"`
	Model      DecompositionModel       `json:"model"`
}

// Decompose performs seasonal decomposition of a time series.
// Uses classical decomposition with a centred moving average for the trend
// (a 2×period average when the period is even), per-phase means of the
// detrended series for the seasonal component, and the remainder as residual.
func Decompose(series *timeseries.Series, period int, model DecompositionModel) (*Decomposition, error) {
	n := series.Len()
	if period < 2 || period >= n {
		return nil, fmt.Errorf("%w: period %d for %d observations (need 2 <= period < n)", ErrInvalidPeriod, period, n)
	}
	if model == "" {
		model = Additive
	}
	if model != Additive && model != Multiplicative {
		return nil, fmt.Errorf("%w: decomposition model %q", ErrInvalidModel, model)
	}

	// Step 1: Calculate trend using centered moving average
	trend := centeredMovingAverage(series.Values, period)

	// Step 2: Detrend the series
	detrended := make([]timeseries.NullFloat64, n)
	for i, t := range trend {
		switch {
		case !t.Valid:
		case model == Multiplicative:
			if t.Float64 != 0 {
				detrended[i] = timeseries.Valid(series.Values[i] / t.Float64)
			}
		default:
			detrended[i] = timeseries.Valid(series.Values[i] - t.Float64)
		}
	}

	// Step 3: Calculate seasonal component by averaging within each period
	pattern := make([]float64, period)
	counts := make([]int, period)
	for i, d := range detrended {
		if d.Valid {
			pattern[i%period] += d.Float64
			counts[i%period]++
		}
	}

	sum, phases := 0.0, 0
	for i := range pattern {
		if counts[i] > 0 {
			pattern[i] /= float64(counts[i])
			sum += pattern[i]
			phases++
		}
	}

	// Normalize seasonal component
	mean := sum / float64(max(phases, 1))
	if model == Multiplicative && mean == 0 {
		return nil, fmt.Errorf("%w: multiplicative seasonal pattern has zero mean", ErrNumericalInstability)
	}
	for i := range pattern {
		if model == Multiplicative {
			pattern[i] /= mean
		} else {
			pattern[i] -= mean
		}
	}

	// Extend seasonal pattern to full series length
	seasonal := make([]timeseries.NullFloat64, n)
	for i := range seasonal {
		if counts[i%period] > 0 {
			seasonal[i] = timeseries.Valid(pattern[i%period])
		}
	}

	// Step 4: Calculate residual
	residual := make([]timeseries.NullFloat64, n)
	for i := range residual {
		t, s := trend[i], seasonal[i]
		if !t.Valid || !s.Valid {
			continue
		}
		if model == Multiplicative {
			if t.Float64 != 0 && s.Float64 != 0 {
				residual[i] = timeseries.Valid(series.Values[i] / (t.Float64 * s.Float64))
			}
		} else {
			residual[i] = timeseries.Valid(series.Values[i] - t.Float64 - s.Float64)
		}
	}

	observed := series.Copy()

	return &Decomposition{
		Timestamps: observed.Timestamps,
		Observed:   observed.Values,
		Trend:      trend,
		Seasonal:   seasonal,
		Residual:   residual,
		Period:     period,
		Model:      model,
	}, nil
}

// centeredMovingAverage calculates a centred moving average of width period.
// The first and last period/2 positions are absent.
func centeredMovingAverage(values []float64, period int) []timeseries.NullFloat64 {
	n := len(values)
	trend := make([]timeseries.NullFloat64, n)
	half := period / 2

	if period%2 == 0 {
		// Even period: use 2xperiod MA (centered), ends get half weight
		for i := half; i < n-half; i++ {
			sum := 0.5*values[i-half] + 0.5*values[i+half]
			for j := i - half + 1; j < i+half; j++ {
				sum += values[j]
			}
			trend[i] = timeseries.Valid(sum / float64(period))
		}
		return trend
	}

	// Odd period: simple centered MA
	for i := half; i < n-half; i++ {
		sum := 0.0
		for j := i - half; j <= i+half; j++ {
			sum += values[j]
		}
		trend[i] = timeseries.Valid(sum / float64(period))
	}
	return trend
}
