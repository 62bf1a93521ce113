package timeseries

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	s := New(values)

	require.Equal(t, 5, s.Len())
	assert.Equal(t, values, s.Values)
	require.NoError(t, s.Validate())
	assert.Equal(t, 24*time.Hour, s.Timestamps[1].Sub(s.Timestamps[0]))
}

func TestNewWithTimestamps(t *testing.T) {
	_, err := NewWithTimestamps([]time.Time{time.Now()}, []float64{1, 2})
	assert.ErrorIs(t, err, ErrInvalidSeries)
}

func TestValidate(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2020, 1, d, 0, 0, 0, 0, time.UTC) }

	tests := []struct {
		name    string
		series  *Series
		wantErr bool
	}{
		{"valid", &Series{Timestamps: []time.Time{day(1), day(2)}, Values: []float64{1, 2}}, false},
		{"empty", &Series{}, false},
		{"nil", nil, true},
		{"misaligned", &Series{Timestamps: []time.Time{day(1)}, Values: []float64{1, 2}}, true},
		{"nan", &Series{Timestamps: []time.Time{day(1), day(2)}, Values: []float64{1, math.NaN()}}, true},
		{"inf", &Series{Timestamps: []time.Time{day(1), day(2)}, Values: []float64{math.Inf(1), 2}}, true},
		{"duplicate", &Series{Timestamps: []time.Time{day(1), day(1)}, Values: []float64{1, 2}}, true},
		{"decreasing", &Series{Timestamps: []time.Time{day(2), day(1)}, Values: []float64{1, 2}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.series.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSeries)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMean(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected float64
	}{
		{"simple", []float64{1, 2, 3, 4, 5}, 3.0},
		{"single", []float64{5}, 5.0},
		{"negative", []float64{-1, -2, -3}, -2.0},
		{"empty", []float64{}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, New(tt.values).Mean(), 1e-10)
		})
	}
}

func TestVarianceStd(t *testing.T) {
	s := New([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 4.571428571428571, s.Variance(), 1e-10)
	assert.InDelta(t, math.Sqrt(4.571428571428571), s.Std(), 1e-10)
	assert.Zero(t, New([]float64{3}).Variance())
}

func TestDiff(t *testing.T) {
	s := New([]float64{1, 3, 6, 10, 15})
	diff := s.Diff()

	assert.Equal(t, []float64{2, 3, 4, 5}, diff.Values)
	assert.Equal(t, s.Timestamps[1:], diff.Timestamps)
	assert.Empty(t, New([]float64{1}).Diff().Values)
}

func TestPctChange(t *testing.T) {
	s := New([]float64{100, 110, 99, 0, 5})
	got := s.PctChange()

	require.Len(t, got, 5)
	assert.False(t, got[0].Valid)
	assert.InDelta(t, 10.0, got[1].Float64, 1e-10)
	assert.InDelta(t, -10.0, got[2].Float64, 1e-10)
	assert.True(t, got[3].Valid)
	assert.False(t, got[4].Valid, "change after a zero price is undefined")
}

func TestRollingStd(t *testing.T) {
	values := []NullFloat64{Absent, Valid(1), Valid(2), Valid(3), Valid(4)}
	got := RollingStd(values, 3)

	require.Len(t, got, 5)
	assert.Equal(t, 0, CountValid(got[:3]))
	assert.InDelta(t, 1.0, got[3].Float64, 1e-10)
	assert.InDelta(t, 1.0, got[4].Float64, 1e-10)
	assert.Equal(t, 0, CountValid(RollingStd(values, 1)))
}

func TestSlice(t *testing.T) {
	s := New([]float64{1, 2, 3, 4, 5})
	sliced := s.Slice(1, 4)

	assert.Equal(t, []float64{2, 3, 4}, sliced.Values)
	assert.Equal(t, s.Timestamps[1:4], sliced.Timestamps)
	assert.Empty(t, s.Slice(4, 2).Values)
}

func TestCopy(t *testing.T) {
	s := New([]float64{1, 2, 3})
	copied := s.Copy()

	s.Values[0] = 100
	assert.Equal(t, 1.0, copied.Values[0])
}

func TestTimeAt(t *testing.T) {
	s := New([]float64{1, 2})
	assert.Equal(t, s.Timestamps[1], s.TimeAt(1))
	assert.True(t, s.TimeAt(5).IsZero())
}

func TestNullFloat64JSON(t *testing.T) {
	data, err := json.Marshal([]NullFloat64{Valid(1.5), Absent})
	require.NoError(t, err)
	assert.JSONEq(t, `[1.5, null]`, string(data))

	var back []NullFloat64
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, []NullFloat64{Valid(1.5), Absent}, back)
	assert.Equal(t, "", Absent.String())
	assert.Equal(t, "1.5", Valid(1.5).String())
}

func TestDescribe(t *testing.T) {
	s := New([]float64{1, 2, 3, 4, 5})
	sum, err := s.Describe()
	require.NoError(t, err)

	assert.Equal(t, 5, sum.Count)
	assert.InDelta(t, 3.0, sum.Mean, 1e-10)
	assert.Equal(t, 1.0, sum.Min)
	assert.Equal(t, 5.0, sum.Max)
	assert.Equal(t, 3.0, sum.Q50)
	assert.LessOrEqual(t, sum.Q25, sum.Q50)
	assert.GreaterOrEqual(t, sum.Q75, sum.Q50)
	assert.Equal(t, "2000-01-01", sum.Start)

	_, err = New(nil).Describe()
	assert.ErrorIs(t, err, ErrNoData)
}
