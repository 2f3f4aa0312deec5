package testkit

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"learnerdash/adapters/excel"
	"learnerdash/domain/markbook"
)

// MarkbookGeneratorConfig configures the synthetic markbook generator
type MarkbookGeneratorConfig struct {
	LearnerCount   int       `json:"learner_count"`
	QuestionCount  int       `json:"question_count"`
	MaxPerQuestion int       `json:"max_per_question"`
	BlankRate      float64   `json:"blank_rate"`
	ZeroQuestion   bool      `json:"zero_question"`
	DeclaredMax    bool      `json:"declared_max"`
	TestDates      int       `json:"test_dates"`
	StartDate      time.Time `json:"start_date"`
	SchoolName     string    `json:"school_name"`
	Subject        string    `json:"subject"`
	Seed           int64     `json:"seed"`
}

// DefaultMarkbookConfig returns a class-sized markbook with every optional feature on
func DefaultMarkbookConfig() MarkbookGeneratorConfig {
	return MarkbookGeneratorConfig{
		LearnerCount:   30,
		QuestionCount:  8,
		MaxPerQuestion: 10,
		BlankRate:      0.05,
		ZeroQuestion:   true,
		DeclaredMax:    true,
		TestDates:      3,
		StartDate:      time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC),
		SchoolName:     "SAUL DAMON HIGH SCHOOL",
		Subject:        "Mathematics",
		Seed:           42,
	}
}

var (
	firstNames = []string{"Thabo", "Anika", "Lerato", "Pieter", "Naledi", "Johan", "Zanele", "Ruan", "Ayesha", "Sipho", "Megan", "Kagiso", "Liezl", "Themba", "Chloe", "Bongani"}
	surnames   = []string{"Mokoena", "van Wyk", "Dlamini", "Botha", "Naidoo", "Khumalo", "Pretorius", "Ndlovu", "Jacobs", "Mahlangu"}
)

// MarkbookGenerator produces deterministic mark sheets shaped like the ones
// teachers export: preamble rows, a NAME OF LEARNER header, a TOTAL column
// and a "Totaal:" row declaring the maximum.
type MarkbookGenerator struct {
	config MarkbookGeneratorConfig
	rng    *rand.Rand
}

// NewMarkbookGenerator creates a new generator
func NewMarkbookGenerator(config MarkbookGeneratorConfig) *MarkbookGenerator {
	if config.MaxPerQuestion <= 0 {
		config.MaxPerQuestion = 10
	}
	return &MarkbookGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// QuestionNames returns the question headers the generator writes, in order
func (g *MarkbookGenerator) QuestionNames() []string {
	names := make([]string, 0, g.config.QuestionCount+1)
	for i := 0; i < g.config.QuestionCount; i++ {
		names = append(names, fmt.Sprintf("%d.%d", i/3+1, i%3+1))
	}
	if g.config.ZeroQuestion {
		names = append(names, "Bonus")
	}
	return names
}

// MaxTotal is the declared maximum written to the Totaal row
func (g *MarkbookGenerator) MaxTotal() float64 {
	return float64(g.config.QuestionCount * g.config.MaxPerQuestion)
}

// Generate builds the sheet. The same config always yields the same sheet.
func (g *MarkbookGenerator) Generate() *markbook.RawTable {
	g.rng = rand.New(rand.NewSource(g.config.Seed))
	questions := g.QuestionNames()

	t := &markbook.RawTable{}
	t.Rows = append(t.Rows,
		[]markbook.Cell{markbook.TextCell(g.config.SchoolName)},
		[]markbook.Cell{markbook.TextCell("Grade 10 " + g.config.Subject), markbook.EmptyCell(), markbook.TextCell("Term 2")},
		[]markbook.Cell{},
	)

	header := []markbook.Cell{markbook.TextCell("NO"), markbook.TextCell("NAME OF LEARNER")}
	for _, q := range questions {
		header = append(header, markbook.TextCell(q))
	}
	if g.config.TestDates > 0 {
		header = append(header, markbook.TextCell("TEST DATE"))
	}
	header = append(header, markbook.TextCell("TOTAL"))
	t.Rows = append(t.Rows, header)

	for i := 0; i < g.config.LearnerCount; i++ {
		t.Rows = append(t.Rows, g.learnerRow(i))
	}

	if g.config.DeclaredMax {
		row := []markbook.Cell{markbook.EmptyCell(), markbook.TextCell("Totaal:")}
		for range questions {
			row = append(row, markbook.EmptyCell())
		}
		if g.config.TestDates > 0 {
			row = append(row, markbook.EmptyCell())
		}
		row = append(row, markbook.NumberCell(g.MaxTotal()))
		t.Rows = append(t.Rows, row)
	}
	return t
}

func (g *MarkbookGenerator) learnerRow(i int) []markbook.Cell {
	name := fmt.Sprintf("%s %s", firstNames[i%len(firstNames)], surnames[(i/len(firstNames)+i)%len(surnames)])
	row := []markbook.Cell{markbook.NumberCell(float64(i + 1)), markbook.TextCell(name)}

	ability := 0.25 + 0.7*g.rng.Float64()
	maxMark := float64(g.config.MaxPerQuestion)
	total := 0.0
	for q := 0; q < g.config.QuestionCount; q++ {
		if g.rng.Float64() < g.config.BlankRate {
			row = append(row, markbook.EmptyCell())
			continue
		}
		// later questions are harder
		difficulty := 1 - 0.4*float64(q)/math.Max(1, float64(g.config.QuestionCount-1))
		mark := math.Round(maxMark * ability * difficulty * (0.8 + 0.4*g.rng.Float64()))
		mark = math.Max(0, math.Min(maxMark, mark))
		total += mark
		row = append(row, markbook.NumberCell(mark))
	}
	if g.config.ZeroQuestion {
		row = append(row, markbook.NumberCell(0))
	}
	if g.config.TestDates > 0 {
		date := g.config.StartDate.AddDate(0, 0, 7*(i%g.config.TestDates))
		row = append(row, markbook.TextCell(date.Format("2006-01-02")))
	}
	return append(row, markbook.NumberCell(total))
}

// WorkbookBytes renders the sheet as an xlsx workbook
func (g *MarkbookGenerator) WorkbookBytes() ([]byte, error) {
	return excel.WriteWorkbook(g.Generate())
}

// WriteToFile writes the xlsx workbook to path
func (g *MarkbookGenerator) WriteToFile(path string) error {
	data, err := g.WorkbookBytes()
	if err != nil {
		return fmt.Errorf("failed to build workbook: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}
	return nil
}
