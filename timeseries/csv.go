package timeseries

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// CSVOptions holds options for CSV loading.
type CSVOptions struct {
	DateColumn  string   // Column name for dates (default: case-insensitive "date")
	ValueColumn string   // Column name for values (default: price, value, close or y)
	DateFormats []string // Layouts tried in order before the built-in fallbacks
	HasHeader   bool     // Whether CSV has header row (default: true)
	Delimiter   rune     // Field delimiter (default: ',')
	SkipRows    int      // Number of rows to skip at start
}

// DefaultCSVOptions returns default options for CSV loading.
func DefaultCSVOptions() *CSVOptions {
	return &CSVOptions{
		DateFormats: []string{"02-Jan-06", "2006-01-02"},
		HasHeader:   true,
		Delimiter:   ',',
	}
}

// PrepareStats describes what cleaning did to the raw rows.
type PrepareStats struct {
	Rows           int `json:"rows"`
	BadDates       int `json:"bad_dates"`
	Duplicates     int `json:"duplicates"`
	MissingBefore  int `json:"missing_before"`
	Interpolated   int `json:"interpolated"`
	DroppedAtEdges int `json:"dropped_at_edges"`
	Observations   int `json:"observations"`
}

// fallbackDateFormats are tried after the configured layouts.
var fallbackDateFormats = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006/01/02",
	"01/02/2006",
	"02-Jan-2006",
	"Jan 02, 2006",
}

var valueColumnNames = []string{"price", "value", "close", "y"}

// LoadCSV loads and cleans a time series from a CSV file.
func LoadCSV(filename string, opts *CSVOptions) (*Series, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	series, _, err := Prepare(file, opts)
	return series, err
}

// LoadCSVFromReader loads and cleans a time series from an io.Reader.
func LoadCSVFromReader(r io.Reader, opts *CSVOptions) (*Series, error) {
	series, _, err := Prepare(r, opts)
	return series, err
}

type rawRow struct {
	ts    time.Time
	value NullFloat64
}

// Prepare turns raw CSV rows into a series that satisfies Validate: rows with
// unparseable dates are dropped, rows are sorted by date, duplicate dates keep
// their first row, missing prices are linearly interpolated in time, and
// missing values that cannot be interpolated (before the first or after the
// last observed price) are dropped.
func Prepare(r io.Reader, opts *CSVOptions) (*Series, PrepareStats, error) {
	if opts == nil {
		opts = DefaultCSVOptions()
	}
	var st PrepareStats

	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	for i := 0; i < opts.SkipRows; i++ {
		if _, err := reader.Read(); err != nil {
			return nil, st, err
		}
	}

	dateIdx, valueIdx := 0, 1
	name := ""
	if opts.HasHeader {
		header, err := reader.Read()
		if err != nil {
			return nil, st, fmt.Errorf("timeseries: read header: %w", err)
		}
		dateIdx, valueIdx = findColumns(header, opts)
		if dateIdx < 0 {
			return nil, st, errors.New("timeseries: no date column found in the data")
		}
		if valueIdx < 0 {
			return nil, st, errors.New("timeseries: no price column found in the data")
		}
		name = cleanField(header[valueIdx])
	}

	formats := append(append([]string{}, opts.DateFormats...), fallbackDateFormats...)

	var rows []rawRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, st, err
		}
		st.Rows++

		if dateIdx >= len(record) {
			st.BadDates++
			continue
		}
		ts, ok := parseDate(cleanField(record[dateIdx]), formats)
		if !ok {
			st.BadDates++
			continue
		}

		row := rawRow{ts: ts}
		if valueIdx < len(record) {
			row.value = parseValue(cleanField(record[valueIdx]))
		}
		if !row.value.Valid {
			st.MissingBefore++
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].ts.Before(rows[j].ts) })

	deduped := rows[:0]
	for i, row := range rows {
		if i > 0 && row.ts.Equal(deduped[len(deduped)-1].ts) {
			st.Duplicates++
			continue
		}
		deduped = append(deduped, row)
	}
	rows = deduped

	st.Interpolated = interpolateTime(rows)

	timestamps := make([]time.Time, 0, len(rows))
	values := make([]float64, 0, len(rows))
	for _, row := range rows {
		if !row.value.Valid {
			st.DroppedAtEdges++
			continue
		}
		timestamps = append(timestamps, row.ts)
		values = append(values, row.value.Float64)
	}
	st.Observations = len(values)

	if len(values) == 0 {
		return nil, st, ErrNoData
	}

	return &Series{
		Timestamps: timestamps,
		Values:     values,
		Name:       name,
	}, st, nil
}

// interpolateTime fills absent values lying between two present values,
// weighting by elapsed time. It returns the number of values filled.
func interpolateTime(rows []rawRow) int {
	filled := 0
	prev := -1
	for i := range rows {
		if !rows[i].value.Valid {
			continue
		}
		if prev >= 0 && i-prev > 1 {
			x0, y0 := rows[prev].ts, rows[prev].value.Float64
			x1, y1 := rows[i].ts, rows[i].value.Float64
			span := x1.Sub(x0).Seconds()
			for j := prev + 1; j < i; j++ {
				w := rows[j].ts.Sub(x0).Seconds() / span
				rows[j].value = Valid(y0 + w*(y1-y0))
				filled++
			}
		}
		prev = i
	}
	return filled
}

// findColumns locates the date and value columns, case-insensitively.
func findColumns(header []string, opts *CSVOptions) (dateIdx, valueIdx int) {
	dateIdx, valueIdx = -1, -1
	for i, h := range header {
		h = strings.ToLower(cleanField(h))
		switch {
		case opts.DateColumn != "" && h == strings.ToLower(opts.DateColumn):
			dateIdx = i
		case opts.DateColumn == "" && dateIdx == -1 && (h == "date" || h == "ds"):
			dateIdx = i
		case opts.ValueColumn != "" && h == strings.ToLower(opts.ValueColumn):
			valueIdx = i
		}
	}
	if valueIdx == -1 && opts.ValueColumn == "" {
		for _, want := range valueColumnNames {
			for i, h := range header {
				if strings.ToLower(cleanField(h)) == want {
					return dateIdx, i
				}
			}
		}
	}
	return dateIdx, valueIdx
}

func cleanField(s string) string {
	return strings.TrimSpace(strings.Trim(s, "\""))
}

func parseDate(s string, formats []string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range formats {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func parseValue(s string) NullFloat64 {
	switch s {
	case "", "NA", "NaN", "nan", "null", ".":
		return Absent
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Absent
	}
	return Valid(v)
}

// Column is an extra output column aligned with a series. Absent values are
// written as empty fields.
type Column struct {
	Name   string
	Values []NullFloat64
}

// ReturnColumns derives the daily_return (percent change) and volatility
// (rolling standard deviation of returns over window observations) columns.
func ReturnColumns(series *Series, window int) []Column {
	returns := series.PctChange()
	return []Column{
		{Name: "daily_return", Values: returns},
		{Name: "volatility", Values: RollingStd(returns, window)},
	}
}

// SaveCSV saves a time series to a CSV file with a Date,Price header followed
// by any extra columns.
func SaveCSV(series *Series, filename string, extra ...Column) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := WriteCSV(file, series, extra...); err != nil {
		return err
	}
	return file.Close()
}

// WriteCSV writes a time series as Date,Price rows followed by any extra
// columns.
func WriteCSV(w io.Writer, series *Series, extra ...Column) error {
	for _, col := range extra {
		if len(col.Values) != series.Len() {
			return fmt.Errorf("%w: column %s has %d values for %d observations",
				ErrInvalidSeries, col.Name, len(col.Values), series.Len())
		}
	}

	writer := bufio.NewWriter(w)

	header := series.Name
	if header == "" {
		header = "Price"
	}
	writer.WriteString("Date," + header)
	for _, col := range extra {
		writer.WriteString("," + col.Name)
	}
	writer.WriteString("\n")

	for i, v := range series.Values {
		writer.WriteString(series.TimeAt(i).Format("2006-01-02"))
		writer.WriteString(",")
		writer.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
		for _, col := range extra {
			writer.WriteString(",")
			if x := col.Values[i]; x.Valid {
				writer.WriteString(strconv.FormatFloat(x.Float64, 'f', -1, 64))
			}
		}
		writer.WriteString("\n")
	}

	return writer.Flush()
}
