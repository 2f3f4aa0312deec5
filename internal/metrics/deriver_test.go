package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learnerdash/domain/markbook"
	"learnerdash/internal/errors"
)

type row struct {
	name   string
	scores []float64
	pct    float64
}

// tableOf builds a NormalizedTable directly; every question is active unless
// its column sums to zero.
func tableOf(questions []string, rows ...row) *markbook.NormalizedTable {
	t := &markbook.NormalizedTable{
		NameColumn: markbook.Column{Index: 0, Header: "Name of learner", Kind: markbook.ColumnName},
	}
	sums := make([]float64, len(questions))
	for i, q := range questions {
		t.Questions = append(t.Questions, markbook.Column{Index: i + 1, Header: q, Kind: markbook.ColumnQuestion})
	}
	for _, r := range rows {
		l := markbook.Learner{Name: r.name, Scores: map[string]float64{}, Percentage: r.pct}
		for i, q := range questions {
			l.Scores[q] = r.scores[i]
			l.Total += r.scores[i]
			sums[i] += r.scores[i]
		}
		t.Learners = append(t.Learners, l)
	}
	for i, q := range questions {
		if sums[i] > 0 {
			t.ActiveQuestions = append(t.ActiveQuestions, q)
		}
	}
	return t
}

func rules(a *markbook.Analysis) []string {
	var out []string
	for _, f := range a.Findings {
		out = append(out, f.Rule)
	}
	return out
}

func TestDerive_TwoLearners(t *testing.T) {
	table := tableOf([]string{"Q1", "Q2"},
		row{"A", []float64{5, 3}, 100},
		row{"B", []float64{2, 2}, 50},
	)

	a := Derive(table, DefaultThresholds())

	assert.InDelta(t, 75.0, a.ClassAverage, 1e-9)
	assert.Equal(t, "The class average is 75.00%, indicating overall performance.", a.Findings[0].Insight)
	assert.Empty(t, a.Findings[0].Recommendation)
	assert.Equal(t, []string{"B"}, a.LowPerformers)
	assert.Empty(t, a.Failing)
	assert.Equal(t, []string{"A"}, a.HighPerformers)
	assert.Equal(t, []string{"Q2"}, a.WeakQuestions)
	assert.True(t, a.HighVariability)
	assert.InDelta(t, 35.3553, a.StdDev, 1e-3)

	assert.Equal(t, []string{
		markbook.RuleClassAverage,
		markbook.RuleLowPerformers,
		markbook.RuleHighPerformers,
		markbook.RuleWeakQuestions,
		markbook.RuleHighVariability,
		markbook.RuleTiers,
	}, rules(a))
}

func TestDerive_EmptyInput(t *testing.T) {
	a := Derive(&markbook.NormalizedTable{}, DefaultThresholds())
	assert.Empty(t, a.Findings)
	assert.Empty(t, a.Insights())

	a = Derive(nil, DefaultThresholds())
	assert.Empty(t, a.Findings)
}

func TestDerive_FailingAndSingleLearner(t *testing.T) {
	table := tableOf([]string{"Q1"}, row{"Solo", []float64{1}, 20})

	a := Derive(table, DefaultThresholds())

	assert.Equal(t, []string{"Solo"}, a.Failing)
	assert.Empty(t, a.LowPerformers, "nobody is below 80% of their own average")
	assert.Equal(t, 0.0, a.StdDev)
	assert.False(t, a.HighVariability)
	assert.Contains(t, a.Insights(), "Learners scoring below 30%: Solo.")
}

func TestDerive_InsightsAndRecommendationsInRuleOrder(t *testing.T) {
	table := tableOf([]string{"Q1", "Q2"},
		row{"A", []float64{9, 9}, 90},
		row{"B", []float64{1, 1}, 10},
	)

	a := Derive(table, DefaultThresholds())
	recs := a.Recommendations()
	require.NotEmpty(t, recs)
	assert.Contains(t, recs[0], "targeted interventions")
	assert.Contains(t, recs[len(recs)-1], "need support")
	assert.Len(t, a.Insights(), len(a.Findings))
}

func TestWeakQuestions(t *testing.T) {
	means := []markbook.QuestionMean{{Question: "Q1", Mean: 8}, {Question: "Q2", Mean: 2}}
	assert.Equal(t, []string{"Q2"}, WeakQuestions(means, 0.7))
	assert.Nil(t, WeakQuestions(nil, 0.7))
}

func TestDerive_InactiveQuestionsIgnored(t *testing.T) {
	table := tableOf([]string{"Q1", "Q2"},
		row{"A", []float64{4, 0}, 100},
		row{"B", []float64{4, 0}, 100},
	)

	a := Derive(table, DefaultThresholds())
	require.Len(t, a.QuestionMeans, 1)
	assert.Equal(t, "Q1", a.QuestionMeans[0].Question)
	assert.Empty(t, a.WeakQuestions)
}

func TestTiers(t *testing.T) {
	table := tableOf([]string{"Q1", "Q2"},
		row{"Low", []float64{1, 0}, 10},
		row{"Mid", []float64{3, 3}, 50},
		row{"Top", []float64{5, 6}, 90},
	)
	th := DefaultThresholds()

	tiers := Tiers(table, QuestionMeans(table), th)
	require.Len(t, tiers, 3)
	assert.Equal(t, markbook.TierSupport, tiers[0].Name)
	require.Len(t, tiers[0].Members, 1)
	assert.Equal(t, "Low", tiers[0].Members[0].Name)
	assert.Equal(t, []string{"Q1", "Q2"}, tiers[0].Members[0].Below)
	require.Len(t, tiers[2].Members, 1)
	assert.Equal(t, []string{"Q1", "Q2"}, tiers[2].Members[0].Above)

	assert.Equal(t, markbook.TierDeveloping, TierOf(40, th))
	assert.Equal(t, markbook.TierProficient, TierOf(70, th))
	assert.Equal(t, markbook.TierSupport, TierOf(39.9, th))
}

func TestThresholds_Validate(t *testing.T) {
	assert.NoError(t, DefaultThresholds().Validate())

	th := DefaultThresholds()
	th.WeakQuestionFraction = 0
	err := th.Validate()
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))

	th = DefaultThresholds()
	th.TierLowerBound = 80
	assert.Error(t, th.Validate())
}

func TestWeakestQuestions(t *testing.T) {
	table := tableOf([]string{"Q1", "Q2", "Q3"},
		row{"A", []float64{5, 1, 3}, 0},
		row{"B", []float64{5, 1, 3}, 0},
	)
	weakest := WeakestQuestions(table, 2)
	require.Len(t, weakest, 2)
	assert.Equal(t, "Q2", weakest[0].Question)
	assert.Equal(t, "Q3", weakest[1].Question)
}

func TestDescribe(t *testing.T) {
	s := Describe("Q1", []float64{4, 1, 3, 2})
	assert.Equal(t, 4, s.Count)
	assert.InDelta(t, 2.5, s.Mean, 1e-9)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 4.0, s.Max)
	assert.InDelta(t, 2.5, s.Median, 1e-9)
	assert.LessOrEqual(t, s.Min, s.Q25)
	assert.LessOrEqual(t, s.Q25, s.Median)
	assert.LessOrEqual(t, s.Median, s.Q75)
	assert.LessOrEqual(t, s.Q75, s.Max)
	assert.InDelta(t, 1.2910, s.StdDev, 1e-3)
}

func TestDescribeQuestion(t *testing.T) {
	table := tableOf([]string{"Q1", "Q2"},
		row{"A", []float64{4, 0}, 50},
		row{"B", []float64{2, 0}, 25},
	)

	s, ok := DescribeQuestion(table, "Q1")
	require.True(t, ok)
	assert.Equal(t, 2, s.Count)
	assert.InDelta(t, 3.0, s.Mean, 1e-9)

	_, ok = DescribeQuestion(table, "Q2")
	assert.False(t, ok, "zero-sum question")
	_, ok = DescribeQuestion(table, "NoSuchQ")
	assert.False(t, ok)
}

func TestMarkDistribution(t *testing.T) {
	table := tableOf([]string{"Q1"},
		row{"A", []float64{2}, 0},
		row{"B", []float64{0}, 0},
		row{"C", []float64{2}, 0},
	)
	assert.Equal(t, []markbook.MarkCount{{Mark: 0, Count: 1}, {Mark: 2, Count: 2}}, MarkDistribution(table, "Q1"))
}

func TestProfile(t *testing.T) {
	table := tableOf([]string{"Q1", "Q2", "Q3"},
		row{"A", []float64{5, 1, 3}, 60},
		row{"B", []float64{1, 3, 3}, 46},
	)

	p, err := Profile(table, "A", DefaultThresholds())
	require.NoError(t, err)
	assert.Equal(t, "Q2", p.FocusArea)
	assert.Equal(t, 1.0, p.FocusScore)
	assert.Equal(t, []string{"Q1"}, p.Strengths)
	assert.Equal(t, []string{"Q2"}, p.Weaknesses)
	assert.Equal(t, []float64{3, 2, 3}, p.ClassMeans)
	assert.Equal(t, markbook.TierDeveloping, p.Tier)

	_, err = Profile(table, "Nobody", DefaultThresholds())
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
}

func TestProgress(t *testing.T) {
	table := tableOf([]string{"Q1"},
		row{"A", []float64{4}, 0},
		row{"B", []float64{2}, 0},
		row{"C", []float64{6}, 0},
	)
	_, ok := Progress(table)
	assert.False(t, ok, "no date column")

	table.DateColumn = &markbook.Column{Index: 2, Header: "Test Date", Kind: markbook.ColumnDate}
	d1 := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)
	d0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	table.Learners[0].TestDate = &d1
	table.Learners[1].TestDate = &d1
	table.Learners[2].TestDate = &d0

	points, ok := Progress(table)
	require.True(t, ok)
	require.Len(t, points, 2)
	assert.Equal(t, d0, points[0].Date)
	assert.Equal(t, 6.0, points[0].Means["Q1"])
	assert.Equal(t, 3.0, points[1].Means["Q1"])
}

func TestCompare(t *testing.T) {
	a := tableOf([]string{"Q1", "Q2"}, row{"A", []float64{4, 2}, 0})
	b := tableOf([]string{"Q2", "Q3"}, row{"A", []float64{1, 5}, 0})

	c, err := Compare(a, b)
	require.NoError(t, err)
	assert.Equal(t, []string{"Q2"}, c.Questions)
	assert.Equal(t, []float64{2}, c.Original)
	assert.Equal(t, []float64{1}, c.Other)

	_, err = Compare(a, tableOf([]string{"X"}, row{"A", []float64{1}, 0}))
	assert.True(t, errors.Is(err, errors.ErrNoCommonQuestions))
}

func TestHistogram(t *testing.T) {
	bins := Histogram([]float64{0, 1, 2, 3, 4}, 2)
	require.Len(t, bins, 2)
	assert.Equal(t, 2, bins[0].Count)
	assert.Equal(t, 3, bins[1].Count)

	single := Histogram([]float64{7, 7}, 5)
	require.Len(t, single, 1)
	assert.Equal(t, 2, single[0].Count)

	assert.Nil(t, Histogram(nil, 3))
}
