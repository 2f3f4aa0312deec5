package metrics

import (
	"fmt"
	"strings"

	"github.com/montanaflynn/stats"

	"learnerdash/domain/markbook"
)

// Derive evaluates the insight rules over a normalized table in their fixed
// order: class average, relative low performers, absolute failing, high
// performers, weak questions, variability, tiers. Empty input yields an
// empty Analysis.
func Derive(t *markbook.NormalizedTable, th Thresholds) *markbook.Analysis {
	a := &markbook.Analysis{}
	if t.IsEmpty() {
		return a
	}

	percentages := t.Percentages()
	a.ClassAverage = mean(percentages)
	a.StdDev = sampleStdDev(percentages)
	a.QuestionMeans = QuestionMeans(t)
	a.MeanOfMeans = meanOfMeans(a.QuestionMeans)

	// 1. class average
	a.Findings = append(a.Findings, markbook.Finding{
		Rule:    markbook.RuleClassAverage,
		Insight: fmt.Sprintf("The class average is %.2f%%, indicating overall performance.", a.ClassAverage),
	})

	// 2. relative low performers
	lowCut := a.ClassAverage * th.LowPerformerFraction
	for _, l := range t.Learners {
		if l.Percentage < lowCut {
			a.LowPerformers = append(a.LowPerformers, l.Name)
		}
	}
	if len(a.LowPerformers) > 0 {
		pct := th.LowPerformerFraction * 100
		a.Findings = append(a.Findings, markbook.Finding{
			Rule:           markbook.RuleLowPerformers,
			Insight:        fmt.Sprintf("Learners below %.0f%% of class average: %s.", pct, strings.Join(a.LowPerformers, ", ")),
			Recommendation: fmt.Sprintf("Consider targeted interventions or extra support for learners struggling below the %.0f%% threshold.", pct),
		})
	}

	// 3. absolute failing
	for _, l := range t.Learners {
		if l.Percentage < th.FailingPercent {
			a.Failing = append(a.Failing, l.Name)
		}
	}
	if len(a.Failing) > 0 {
		a.Findings = append(a.Findings, markbook.Finding{
			Rule:           markbook.RuleFailing,
			Insight:        fmt.Sprintf("Learners scoring below %.0f%%: %s.", th.FailingPercent, strings.Join(a.Failing, ", ")),
			Recommendation: "Arrange remedial sessions and contact the parents of learners who are failing.",
		})
	}

	// 4. high performers
	for _, l := range t.Learners {
		if l.Percentage >= th.HighPerformerPercent {
			a.HighPerformers = append(a.HighPerformers, l.Name)
		}
	}
	if len(a.HighPerformers) > 0 {
		a.Findings = append(a.Findings, markbook.Finding{
			Rule:           markbook.RuleHighPerformers,
			Insight:        fmt.Sprintf("Top performers (%.0f%% and above): %s.", th.HighPerformerPercent, strings.Join(a.HighPerformers, ", ")),
			Recommendation: "Offer enrichment or extension work to keep top performers challenged.",
		})
	}

	// 5. weak questions
	a.WeakQuestions = WeakQuestions(a.QuestionMeans, th.WeakQuestionFraction)
	if len(a.WeakQuestions) > 0 {
		a.Findings = append(a.Findings, markbook.Finding{
			Rule:           markbook.RuleWeakQuestions,
			Insight:        fmt.Sprintf("Challenging questions (below %.0f%% of mean): %s.", th.WeakQuestionFraction*100, strings.Join(a.WeakQuestions, ", ")),
			Recommendation: "Review teaching methods or materials for these topics to improve understanding.",
		})
	}

	// 6. variability
	if a.StdDev > th.VariabilityStdDev {
		a.HighVariability = true
		a.Findings = append(a.Findings, markbook.Finding{
			Rule:           markbook.RuleHighVariability,
			Insight:        fmt.Sprintf("High variability in learner performance (std > %.0f), suggesting inconsistent understanding.", th.VariabilityStdDev),
			Recommendation: "Implement peer tutoring or group work to balance performance across learners.",
		})
	}

	// 7. tiers
	a.Tiers = Tiers(t, a.QuestionMeans, th)
	a.Findings = append(a.Findings, tierFinding(a.Tiers, th))

	return a
}

// QuestionMeans returns the class mean of every active question in sheet order
func QuestionMeans(t *markbook.NormalizedTable) []markbook.QuestionMean {
	out := make([]markbook.QuestionMean, 0, len(t.ActiveQuestions))
	for _, q := range t.ActiveQuestions {
		out = append(out, markbook.QuestionMean{Question: q, Mean: mean(t.Column(q))})
	}
	return out
}

// WeakQuestions returns the questions whose mean is below fraction times the
// mean of all question means.
func WeakQuestions(means []markbook.QuestionMean, fraction float64) []string {
	if len(means) == 0 {
		return nil
	}
	cut := meanOfMeans(means) * fraction
	var weak []string
	for _, qm := range means {
		if qm.Mean < cut {
			weak = append(weak, qm.Question)
		}
	}
	return weak
}

// TierOf places a percentage into one of the three bands
func TierOf(percentage float64, th Thresholds) markbook.TierName {
	switch {
	case percentage < th.TierLowerBound:
		return markbook.TierSupport
	case percentage < th.TierUpperBound:
		return markbook.TierDeveloping
	default:
		return markbook.TierProficient
	}
}

// Tiers groups learners into the three bands, recording per learner the
// questions scored above and below the question's class mean.
func Tiers(t *markbook.NormalizedTable, means []markbook.QuestionMean, th Thresholds) []markbook.Tier {
	tiers := []markbook.Tier{
		{Name: markbook.TierSupport, Label: fmt.Sprintf("Needs support (below %.0f%%)", th.TierLowerBound)},
		{Name: markbook.TierDeveloping, Label: fmt.Sprintf("Developing (%.0f%% to %.0f%%)", th.TierLowerBound, th.TierUpperBound)},
		{Name: markbook.TierProficient, Label: fmt.Sprintf("Proficient (%.0f%% and above)", th.TierUpperBound)},
	}
	index := map[markbook.TierName]int{
		markbook.TierSupport:    0,
		markbook.TierDeveloping: 1,
		markbook.TierProficient: 2,
	}

	for _, l := range t.Learners {
		m := markbook.TierMember{Name: l.Name, Percentage: l.Percentage}
		for _, qm := range means {
			switch s := l.Score(qm.Question); {
			case s > qm.Mean:
				m.Above = append(m.Above, qm.Question)
			case s < qm.Mean:
				m.Below = append(m.Below, qm.Question)
			}
		}
		i := index[TierOf(l.Percentage, th)]
		tiers[i].Members = append(tiers[i].Members, m)
	}
	return tiers
}

func tierFinding(tiers []markbook.Tier, th Thresholds) markbook.Finding {
	f := markbook.Finding{
		Rule: markbook.RuleTiers,
		Insight: fmt.Sprintf("Performance bands: %d need support (below %.0f%%), %d developing, %d proficient (%.0f%% and above).",
			len(tiers[0].Members), th.TierLowerBound, len(tiers[1].Members), len(tiers[2].Members), th.TierUpperBound),
	}
	if len(tiers[0].Members) > 0 {
		f.Recommendation = "Group the learners who need support for focused revision of the questions they scored below the class mean on."
	}
	return f
}

func meanOfMeans(means []markbook.QuestionMean) float64 {
	values := make([]float64, len(means))
	for i, qm := range means {
		values[i] = qm.Mean
	}
	return mean(values)
}

func mean(values []float64) float64 {
	m, err := stats.Mean(values)
	if err != nil {
		return 0
	}
	return m
}

// sampleStdDev matches the n-1 estimator spreadsheets and pandas report;
// fewer than two values have no spread.
func sampleStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	sd, err := stats.StandardDeviationSample(values)
	if err != nil {
		return 0
	}
	return sd
}
