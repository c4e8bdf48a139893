package frame

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/YuminosukeSato/framefit/pkg/errors"
)

// DefaultTimeLayouts are tried in order when ReadCSV gets an empty layout.
var DefaultTimeLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

// ReadCSV loads a frame from CSV with a header row. indexColumn names the time
// column and layout its format (empty tries DefaultTimeLayouts). Rows are sorted
// by time; duplicate timestamps are an error. Empty cells and NaN/NA become NaN,
// true/false become 1/0.
func ReadCSV(r io.Reader, indexColumn, layout string) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read CSV header")
	}

	indexPos := -1
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
		if header[i] == indexColumn {
			indexPos = i
		}
	}
	if indexPos < 0 {
		return nil, errors.NewValueError("frame.ReadCSV", fmt.Sprintf("index column %q not found in header", indexColumn))
	}

	type row struct {
		ts     time.Time
		values []float64
	}
	var rows []row
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read CSV line %d", line)
		}

		ts, err := parseTime(record[indexPos], layout)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		values := make([]float64, 0, len(record)-1)
		for j, cell := range record {
			if j == indexPos {
				continue
			}
			v, err := parseCell(cell)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d column %q", line, header[j])
			}
			values = append(values, v)
		}
		rows = append(rows, row{ts: ts, values: values})
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].ts.Before(rows[j].ts) })

	index := make([]time.Time, len(rows))
	for i, r := range rows {
		index[i] = r.ts
	}
	f, err := New(index)
	if err != nil {
		return nil, err
	}

	col := 0
	for j, name := range header {
		if j == indexPos {
			continue
		}
		values := make([]float64, len(rows))
		for i, r := range rows {
			values[i] = r.values[col]
		}
		if err := f.AddColumn(name, values); err != nil {
			return nil, err
		}
		col++
	}
	return f, nil
}

func parseTime(s, layout string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if layout != "" {
		return time.Parse(layout, s)
	}
	var lastErr error
	for _, l := range DefaultTimeLayouts {
		ts, err := time.Parse(l, s)
		if err == nil {
			return ts, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func parseCell(cell string) (float64, error) {
	s := strings.TrimSpace(cell)
	switch strings.ToLower(s) {
	case "", "nan", "na", "null":
		return math.NaN(), nil
	case "true":
		return 1, nil
	case "false":
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}

// WriteCSV writes the labeled frame with one header row of "top/role/sub" keys.
// Values are rendered with the given number of decimal places; NaN is written empty.
func (lf *LabeledFrame) WriteCSV(w io.Writer, layout string, places int32) error {
	if layout == "" {
		layout = time.RFC3339
	}
	writer := csv.NewWriter(w)

	header := make([]string, 0, len(lf.keys)+1)
	header = append(header, "index")
	for _, k := range lf.keys {
		header = append(header, k.String())
	}
	if err := writer.Write(header); err != nil {
		return errors.Wrap(err, "write csv header")
	}

	record := make([]string, len(header))
	for i, ts := range lf.index {
		record[0] = ts.Format(layout)
		for j, k := range lf.keys {
			v := lf.columns[k][i]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				record[j+1] = ""
				continue
			}
			record[j+1] = decimal.NewFromFloat(v).StringFixed(places)
		}
		if err := writer.Write(record); err != nil {
			return errors.Wrap(err, "write csv row")
		}
	}
	writer.Flush()
	return writer.Error()
}
