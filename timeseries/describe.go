package timeseries

import (
	"github.com/montanaflynn/stats"
)

// Summary holds descriptive statistics of a series.
type Summary struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	Q25   float64 `json:"q25"`
	Q50   float64 `json:"q50"`
	Q75   float64 `json:"q75"`
	Max   float64 `json:"max"`
	Start string  `json:"start,omitempty"`
	End   string  `json:"end,omitempty"`
}

// Describe computes count, mean, sample std, min, quartiles (nearest rank)
// and max.
func (s *Series) Describe() (Summary, error) {
	if s.Len() == 0 {
		return Summary{}, ErrNoData
	}
	data := stats.Float64Data(s.Values)

	sum := Summary{Count: s.Len(), Mean: s.Mean(), Std: s.Std()}

	var err error
	if sum.Min, err = stats.Min(data); err != nil {
		return Summary{}, err
	}
	if sum.Max, err = stats.Max(data); err != nil {
		return Summary{}, err
	}
	if sum.Q25, err = stats.PercentileNearestRank(data, 25); err != nil {
		return Summary{}, err
	}
	if sum.Q50, err = stats.Median(data); err != nil {
		return Summary{}, err
	}
	if sum.Q75, err = stats.PercentileNearestRank(data, 75); err != nil {
		return Summary{}, err
	}
	if len(s.Timestamps) == s.Len() {
		sum.Start = s.Timestamps[0].Format("2006-01-02")
		sum.End = s.Timestamps[s.Len()-1].Format("2006-01-02")
	}
	return sum, nil
}
