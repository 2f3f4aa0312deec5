package markbook

import (
	"strconv"
	"strings"
	"time"
)

// CellKind classifies a raw spreadsheet cell
type CellKind int

const (
	CellEmpty CellKind = iota
	CellText
	CellNumber
)

// Cell is one heterogeneous spreadsheet value as read from the workbook
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
}

// EmptyCell returns a cell with no value
func EmptyCell() Cell { return Cell{Kind: CellEmpty} }

// TextCell returns a text cell
func TextCell(s string) Cell { return Cell{Kind: CellText, Text: s} }

// NumberCell returns a numeric cell; Text carries the rendered value
func NumberCell(v float64) Cell {
	return Cell{Kind: CellNumber, Number: v, Text: strconv.FormatFloat(v, 'f', -1, 64)}
}

// IsEmpty reports whether the cell holds no value (blank text counts as empty)
func (c Cell) IsEmpty() bool {
	return c.Kind == CellEmpty || (c.Kind == CellText && strings.TrimSpace(c.Text) == "")
}

// String returns the display text of the cell
func (c Cell) String() string {
	if c.Kind == CellEmpty {
		return ""
	}
	return c.Text
}

// RawTable is an ordered sequence of rows with no schema assumed
type RawTable struct {
	Rows [][]Cell
}

// Width returns the widest row length
func (t *RawTable) Width() int {
	w := 0
	for _, r := range t.Rows {
		if len(r) > w {
			w = len(r)
		}
	}
	return w
}

// At returns the cell at (row, col), or an empty cell when out of bounds
func (t *RawTable) At(row, col int) Cell {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return EmptyCell()
	}
	return t.Rows[row][col]
}

// ColumnKind tells what a normalized column represents
type ColumnKind string

const (
	ColumnName     ColumnKind = "name"
	ColumnQuestion ColumnKind = "question"
	ColumnDate     ColumnKind = "date"
)

// Column is a classified column of the normalized table
type Column struct {
	Index  int        `json:"index"`
	Header string     `json:"header"`
	Kind   ColumnKind `json:"kind"`
}

// Learner is one normalized row
type Learner struct {
	Name       string             `json:"name"`
	Scores     map[string]float64 `json:"scores"`
	Total      float64            `json:"total"`
	Percentage float64            `json:"percentage"`
	TestDate   *time.Time         `json:"test_date,omitempty"`
}

// Score returns the learner's zero-filled mark for a question
func (l Learner) Score(question string) float64 {
	return l.Scores[question]
}

// NormalizedTable is the cleaned table with its inferred column schema.
// Every question score is numeric; Percentage is within [0,100].
type NormalizedTable struct {
	NameColumn      Column    `json:"name_column"`
	Questions       []Column  `json:"questions"`
	ActiveQuestions []string  `json:"active_questions"`
	DateColumn      *Column   `json:"date_column,omitempty"`
	Learners        []Learner `json:"learners"`
	DeclaredMax     *float64  `json:"declared_max,omitempty"`
	Denominator     float64   `json:"denominator"`
}

// QuestionNames returns the headers of all question columns in sheet order
func (t *NormalizedTable) QuestionNames() []string {
	names := make([]string, len(t.Questions))
	for i, q := range t.Questions {
		names[i] = q.Header
	}
	return names
}

// IsActive reports whether a question has a positive column sum
func (t *NormalizedTable) IsActive(question string) bool {
	for _, q := range t.ActiveQuestions {
		if q == question {
			return true
		}
	}
	return false
}

// Column returns the scores of one question across learners
func (t *NormalizedTable) Column(question string) []float64 {
	out := make([]float64, len(t.Learners))
	for i, l := range t.Learners {
		out[i] = l.Scores[question]
	}
	return out
}

// Percentages returns every learner's percentage in row order
func (t *NormalizedTable) Percentages() []float64 {
	out := make([]float64, len(t.Learners))
	for i, l := range t.Learners {
		out[i] = l.Percentage
	}
	return out
}

// FindLearner returns the first learner with the given name
func (t *NormalizedTable) FindLearner(name string) (Learner, bool) {
	for _, l := range t.Learners {
		if l.Name == name {
			return l, true
		}
	}
	return Learner{}, false
}

// IsEmpty reports whether there is nothing to analyse
func (t *NormalizedTable) IsEmpty() bool {
	return t == nil || len(t.Learners) == 0 || len(t.Questions) == 0
}
