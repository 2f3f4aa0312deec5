package normalize

import (
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"learnerdash/adapters/coercer"
	"learnerdash/domain/markbook"
	"learnerdash/internal/errors"
)

// placeholderPrefix is given to blank header cells, matching what pandas
// produces for unnamed columns.
const placeholderPrefix = "Unnamed: "

// Options configures the header and column discovery
type Options struct {
	HeaderMarker    string   `yaml:"header_marker" json:"header_marker"`
	NameMarker      string   `yaml:"name_marker" json:"name_marker"`
	MaxMarker       string   `yaml:"max_marker" json:"max_marker"`
	DateColumn      string   `yaml:"date_column" json:"date_column"`
	ExcludedColumns []string `yaml:"excluded_columns" json:"excluded_columns"`
	// HeaderScanRows limits the header search to the first N rows; 0 scans all
	HeaderScanRows int `yaml:"header_scan_rows" json:"header_scan_rows"`
}

// DefaultOptions returns the markers used by the school mark sheets
func DefaultOptions() Options {
	return Options{
		HeaderMarker:    "name of learner",
		NameMarker:      "name of learner",
		MaxMarker:       "totaal:",
		DateColumn:      "test date",
		ExcludedColumns: []string{"no", "total", "totaal", "percentage", "%", "average"},
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.HeaderMarker == "" {
		o.HeaderMarker = d.HeaderMarker
	}
	if o.NameMarker == "" {
		o.NameMarker = d.NameMarker
	}
	if o.MaxMarker == "" {
		o.MaxMarker = d.MaxMarker
	}
	if o.DateColumn == "" {
		o.DateColumn = d.DateColumn
	}
	if o.ExcludedColumns == nil {
		o.ExcludedColumns = d.ExcludedColumns
	}
	return o
}

// Normalizer converts raw sheets into normalized tables. It holds no state
// between calls, so normalizing the same RawTable twice yields equal results.
type Normalizer struct {
	opts Options
}

// New creates a normalizer; empty option fields fall back to DefaultOptions
func New(opts Options) *Normalizer {
	return &Normalizer{opts: opts.withDefaults()}
}

// Options returns the effective options
func (n *Normalizer) Options() Options {
	return n.opts
}

// Normalize locates the header, classifies columns and derives totals and
// percentages. Errors are terminal: HeaderNotFound, NameColumnNotFound or
// NoQuestionColumns.
func (n *Normalizer) Normalize(raw *markbook.RawTable) (*markbook.NormalizedTable, error) {
	start := time.Now()
	if raw == nil {
		return nil, errors.HeaderNotFound(n.opts.HeaderMarker)
	}

	headerRow, err := LocateHeader(raw, n.opts.HeaderMarker, n.opts.HeaderScanRows)
	if err != nil {
		return nil, err
	}
	headers := HeaderNames(raw, headerRow)

	nameIdx := -1
	nameMarker := strings.ToLower(n.opts.NameMarker)
	for i, h := range headers {
		if strings.Contains(strings.ToLower(h), nameMarker) {
			nameIdx = i
			break
		}
	}
	if nameIdx < 0 {
		return nil, errors.NameColumnNotFound(n.opts.NameMarker)
	}

	dataRows := n.dataRows(raw, headerRow, nameIdx)
	questions := n.questionColumns(raw, headers, nameIdx, dataRows)
	if len(questions) == 0 {
		return nil, errors.NoQuestionColumns()
	}

	table := &markbook.NormalizedTable{
		NameColumn: markbook.Column{Index: nameIdx, Header: headers[nameIdx], Kind: markbook.ColumnName},
		Questions:  questions,
		Learners:   make([]markbook.Learner, 0, len(dataRows)),
	}
	if dateIdx := n.dateColumn(headers); dateIdx >= 0 {
		table.DateColumn = &markbook.Column{Index: dateIdx, Header: headers[dateIdx], Kind: markbook.ColumnDate}
	}

	sums := make([]float64, len(questions))
	for _, r := range dataRows {
		learner := markbook.Learner{
			Name:   strings.TrimSpace(raw.At(r, nameIdx).String()),
			Scores: make(map[string]float64, len(questions)),
		}
		for qi, q := range questions {
			// absence of a mark counts as zero
			v := 0.0
			if c := raw.At(r, q.Index); c.Kind == markbook.CellNumber {
				v = c.Number
			}
			learner.Scores[q.Header] = v
			learner.Total += v
			sums[qi] += v
		}
		if table.DateColumn != nil {
			if d, ok := cellDate(raw.At(r, table.DateColumn.Index)); ok {
				learner.TestDate = &d
			}
		}
		table.Learners = append(table.Learners, learner)
	}

	for qi, q := range questions {
		if sums[qi] > 0 {
			table.ActiveQuestions = append(table.ActiveQuestions, q.Header)
		}
	}

	if declared, ok := DeclaredMaximum(raw, n.opts.MaxMarker, n.totalColumns(headers)); ok {
		table.DeclaredMax = &declared
	}
	applyPercentages(table)

	log.Printf("[Normalizer] header row %d, name column %q, %d questions (%d active), %d learners in %.2fms",
		headerRow, table.NameColumn.Header, len(questions), len(table.ActiveQuestions), len(table.Learners),
		float64(time.Since(start).Nanoseconds())/1e6)
	return table, nil
}

// LocateHeader returns the index of the first row with a cell containing the
// marker, case-insensitively. limit > 0 restricts the scan to the first rows.
func LocateHeader(raw *markbook.RawTable, marker string, limit int) (int, error) {
	m := strings.ToLower(marker)
	for i, row := range raw.Rows {
		if limit > 0 && i >= limit {
			break
		}
		for _, c := range row {
			if c.Kind == markbook.CellText && strings.Contains(strings.ToLower(c.Text), m) {
				return i, nil
			}
		}
	}
	return -1, errors.HeaderNotFound(marker)
}

// HeaderNames reads the trimmed column names of a header row. Blank cells
// become placeholders and duplicates get a numeric suffix.
func HeaderNames(raw *markbook.RawTable, row int) []string {
	width := raw.Width()
	names := make([]string, width)
	seen := make(map[string]int, width)
	for j := 0; j < width; j++ {
		h := strings.TrimSpace(raw.At(row, j).String())
		if h == "" {
			h = fmt.Sprintf("%s%d", placeholderPrefix, j)
		}
		if k, dup := seen[h]; dup {
			seen[h] = k + 1
			h = fmt.Sprintf("%s.%d", h, k+1)
		} else {
			seen[h] = 0
		}
		names[j] = h
	}
	return names
}

// dataRows returns the indices of learner rows: below the header, with a
// name, and not the declared-maximum row.
func (n *Normalizer) dataRows(raw *markbook.RawTable, headerRow, nameIdx int) []int {
	maxMarker := strings.ToLower(n.opts.MaxMarker)
	var rows []int
	for r := headerRow + 1; r < len(raw.Rows); r++ {
		name := raw.At(r, nameIdx)
		if name.IsEmpty() {
			continue
		}
		if strings.Contains(strings.ToLower(name.String()), maxMarker) {
			continue
		}
		rows = append(rows, r)
	}
	return rows
}

// questionColumns keeps the columns after the name column whose values are
// uniformly numeric and which carry at least one mark.
func (n *Normalizer) questionColumns(raw *markbook.RawTable, headers []string, nameIdx int, rows []int) []markbook.Column {
	var out []markbook.Column
	for j := nameIdx + 1; j < len(headers); j++ {
		if n.skipHeader(headers[j]) {
			continue
		}
		numeric, other := 0, 0
		for _, r := range rows {
			c := raw.At(r, j)
			switch {
			case c.Kind == markbook.CellNumber:
				numeric++
			case !c.IsEmpty():
				other++
			}
		}
		if numeric == 0 || other > 0 {
			continue
		}
		out = append(out, markbook.Column{Index: j, Header: headers[j], Kind: markbook.ColumnQuestion})
	}
	return out
}

func (n *Normalizer) skipHeader(h string) bool {
	lower := strings.ToLower(strings.TrimSpace(h))
	if strings.HasPrefix(lower, strings.ToLower(placeholderPrefix)) {
		return true
	}
	if strings.EqualFold(lower, n.opts.DateColumn) {
		return true
	}
	if strings.Contains(lower, strings.ToLower(n.opts.MaxMarker)) {
		return true
	}
	for _, ex := range n.opts.ExcludedColumns {
		if strings.EqualFold(lower, ex) {
			return true
		}
	}
	return false
}

func (n *Normalizer) dateColumn(headers []string) int {
	for i, h := range headers {
		if strings.EqualFold(strings.TrimSpace(h), n.opts.DateColumn) {
			return i
		}
	}
	return -1
}

// totalColumns returns the indices of headers naming a row total
func (n *Normalizer) totalColumns(headers []string) []int {
	var out []int
	for i, h := range headers {
		switch strings.Trim(strings.ToLower(h), " :") {
		case "total", "totaal":
			out = append(out, i)
		}
	}
	return out
}

// DeclaredMaximum scans every cell for the max marker. The value is the
// number following the marker in the same cell. Otherwise the marker's row
// is read to the right: a number under one of totalCols wins, else the last
// numeric cell, since rows listing per-question maxima end with the total.
func DeclaredMaximum(raw *markbook.RawTable, marker string, totalCols []int) (float64, bool) {
	m := strings.ToLower(marker)
	if m == "" {
		return 0, false
	}
	for _, row := range raw.Rows {
		for j, c := range row {
			if c.Kind != markbook.CellText {
				continue
			}
			lower := strings.ToLower(c.Text)
			idx := strings.Index(lower, m)
			if idx < 0 {
				continue
			}
			if v, ok := coercer.ParseNumber(lower[idx+len(m):]); ok {
				return v, true
			}
			for _, k := range totalCols {
				if k > j && k < len(row) && row[k].Kind == markbook.CellNumber {
					return row[k].Number, true
				}
			}
			for k := len(row) - 1; k > j; k-- {
				if row[k].Kind == markbook.CellNumber {
					return row[k].Number, true
				}
			}
		}
	}
	return 0, false
}

// applyPercentages scales totals by the declared maximum, else by the
// highest observed total. A non-positive denominator yields zero for every row.
func applyPercentages(t *markbook.NormalizedTable) {
	denominator := 0.0
	if t.DeclaredMax != nil {
		denominator = *t.DeclaredMax
	} else {
		for i, l := range t.Learners {
			if i == 0 || l.Total > denominator {
				denominator = l.Total
			}
		}
	}
	t.Denominator = denominator

	for i := range t.Learners {
		if denominator <= 0 {
			t.Learners[i].Percentage = 0
			continue
		}
		t.Learners[i].Percentage = clamp(t.Learners[i].Total/denominator*100, 0, 100)
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func cellDate(c markbook.Cell) (time.Time, bool) {
	switch c.Kind {
	case markbook.CellNumber:
		if c.Number >= 1 {
			return coercer.FromExcelSerial(c.Number), true
		}
	case markbook.CellText:
		return coercer.ParseDate(c.Text)
	}
	return time.Time{}, false
}
