package charts

import (
	"fmt"

	"learnerdash/domain/markbook"
	"learnerdash/internal/errors"
)

// HistogramBins is the bin count of the custom histogram
const HistogramBins = 10

// Custom renders the chart builder's selection: grouped bars of each
// learner's selected scores, a scatter of the first two questions, or a
// histogram of the first question.
func Custom(kind Kind, t *markbook.NormalizedTable, questions []string) ([]byte, error) {
	if len(questions) == 0 {
		return nil, errors.InvalidInput("select at least one question")
	}
	for _, q := range questions {
		if !hasQuestion(t, q) {
			return nil, errors.NotFound(fmt.Sprintf("question %q", q))
		}
	}

	switch kind {
	case KindBar:
		names := make([]string, len(t.Learners))
		for i, l := range t.Learners {
			names[i] = l.Name
		}
		series := make([]Series, len(questions))
		for i, q := range questions {
			series[i] = Series{Name: q, Values: t.Column(q)}
		}
		return GroupedBars("Custom Bar Chart", names, series)
	case KindScatter:
		if len(questions) < 2 {
			return nil, errors.InvalidInput("Select at least 2 questions for a Scatter plot.")
		}
		return Scatter(questions[0], questions[1], t.Column(questions[0]), t.Column(questions[1]))
	case KindHistogram:
		return Histogram(fmt.Sprintf("Histogram of %s", questions[0]), t.Column(questions[0]), HistogramBins)
	}
	return nil, errors.InvalidInput(fmt.Sprintf("unknown chart type %q", kind))
}

func hasQuestion(t *markbook.NormalizedTable, q string) bool {
	for _, c := range t.Questions {
		if c.Header == q {
			return true
		}
	}
	return false
}
