package timeseries

import (
	"encoding/json"
	"strconv"
)

// NullFloat64 is a float64 that may be absent, mirroring sql.NullFloat64.
// Positions a computation cannot define (the edges of a centred moving
// average, the warm-up of a rolling window) carry Valid == false instead of
// a sentinel number.
type NullFloat64 struct {
	Float64 float64
	Valid   bool
}

// Valid wraps a present value.
func Valid(v float64) NullFloat64 {
	return NullFloat64{Float64: v, Valid: true}
}

// Absent is the undefined value.
var Absent = NullFloat64{}

// MarshalJSON encodes absent values as null.
func (n NullFloat64) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Float64)
}

// UnmarshalJSON decodes null as absent.
func (n *NullFloat64) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*n = Absent
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = Valid(v)
	return nil
}

// String formats the value for tabular output; absent values render empty.
func (n NullFloat64) String() string {
	if !n.Valid {
		return ""
	}
	return strconv.FormatFloat(n.Float64, 'f', -1, 64)
}

// CountValid returns how many values are present.
func CountValid(values []NullFloat64) int {
	count := 0
	for _, v := range values {
		if v.Valid {
			count++
		}
	}
	return count
}
