package metrics

import (
	"sort"
	"time"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"learnerdash/domain/markbook"
	"learnerdash/internal/errors"
)

// WeakestQuestions returns the n active questions with the lowest class mean,
// ascending. Ties keep sheet order.
func WeakestQuestions(t *markbook.NormalizedTable, n int) []markbook.QuestionMean {
	means := QuestionMeans(t)
	sort.SliceStable(means, func(i, j int) bool { return means[i].Mean < means[j].Mean })
	if n > 0 && len(means) > n {
		means = means[:n]
	}
	return means
}

// DescribeQuestion summarizes the marks of one active question; unknown or
// zero-sum questions report false
func DescribeQuestion(t *markbook.NormalizedTable, question string) (markbook.QuestionSummary, bool) {
	if t == nil || !t.IsActive(question) {
		return markbook.QuestionSummary{}, false
	}
	values := t.Column(question)
	if len(values) == 0 {
		return markbook.QuestionSummary{}, false
	}
	return Describe(question, values), true
}

// Describe computes count, mean, sample std-dev and the five-number summary.
// Quartiles interpolate linearly between order statistics.
func Describe(label string, values []float64) markbook.QuestionSummary {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	summary := markbook.QuestionSummary{
		Question: label,
		Count:    len(sorted),
		Mean:     mean(sorted),
		StdDev:   sampleStdDev(sorted),
	}
	if len(sorted) == 0 {
		return summary
	}
	summary.Min = sorted[0]
	summary.Max = sorted[len(sorted)-1]
	if med, err := stats.Median(sorted); err == nil {
		summary.Median = med
	}
	summary.Q25 = stat.Quantile(0.25, stat.LinInterp, sorted, nil)
	summary.Q75 = stat.Quantile(0.75, stat.LinInterp, sorted, nil)
	return summary
}

// MarkDistribution counts how many learners received each mark, ascending by mark
func MarkDistribution(t *markbook.NormalizedTable, question string) []markbook.MarkCount {
	counts := make(map[float64]int)
	for _, v := range t.Column(question) {
		counts[v]++
	}
	out := make([]markbook.MarkCount, 0, len(counts))
	for mark, n := range counts {
		out = append(out, markbook.MarkCount{Mark: mark, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Mark < out[j].Mark })
	return out
}

// Profile builds the per-learner view: scores against class means, the
// focus area (lowest-scoring question) and the learner's tier.
func Profile(t *markbook.NormalizedTable, name string, th Thresholds) (markbook.LearnerProfile, error) {
	learner, ok := t.FindLearner(name)
	if !ok {
		return markbook.LearnerProfile{}, errors.NotFound("learner " + name)
	}

	p := markbook.LearnerProfile{
		Name:       learner.Name,
		Percentage: learner.Percentage,
		Tier:       TierOf(learner.Percentage, th),
	}
	first := true
	for _, qm := range QuestionMeans(t) {
		s := learner.Score(qm.Question)
		p.Questions = append(p.Questions, qm.Question)
		p.Scores = append(p.Scores, s)
		p.ClassMeans = append(p.ClassMeans, qm.Mean)
		if first || s < p.FocusScore {
			p.FocusArea, p.FocusScore = qm.Question, s
			first = false
		}
		switch {
		case s > qm.Mean:
			p.Strengths = append(p.Strengths, qm.Question)
		case s < qm.Mean:
			p.Weaknesses = append(p.Weaknesses, qm.Question)
		}
	}
	return p, nil
}

// Progress groups learners by test date and averages each active question
// per date. It reports false when the table has no dated rows.
func Progress(t *markbook.NormalizedTable) ([]markbook.ProgressPoint, bool) {
	if t.DateColumn == nil {
		return nil, false
	}

	type bucket struct {
		sums  map[string]float64
		count int
	}
	buckets := make(map[time.Time]*bucket)
	for _, l := range t.Learners {
		if l.TestDate == nil {
			continue
		}
		day := l.TestDate.Truncate(24 * time.Hour)
		b, ok := buckets[day]
		if !ok {
			b = &bucket{sums: make(map[string]float64)}
			buckets[day] = b
		}
		for _, q := range t.ActiveQuestions {
			b.sums[q] += l.Score(q)
		}
		b.count++
	}
	if len(buckets) == 0 {
		return nil, false
	}

	points := make([]markbook.ProgressPoint, 0, len(buckets))
	for day, b := range buckets {
		p := markbook.ProgressPoint{Date: day, Means: make(map[string]float64, len(b.sums))}
		for _, q := range t.ActiveQuestions {
			p.Means[q] = b.sums[q] / float64(b.count)
		}
		points = append(points, p)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points, true
}

// Compare lines up the question means of two tables on the questions both
// have active, in the order of the first table.
func Compare(original, other *markbook.NormalizedTable) (*markbook.Comparison, error) {
	otherMeans := make(map[string]float64)
	for _, qm := range QuestionMeans(other) {
		otherMeans[qm.Question] = qm.Mean
	}

	c := &markbook.Comparison{}
	for _, qm := range QuestionMeans(original) {
		m, ok := otherMeans[qm.Question]
		if !ok {
			continue
		}
		c.Questions = append(c.Questions, qm.Question)
		c.Original = append(c.Original, qm.Mean)
		c.Other = append(c.Other, m)
	}
	if len(c.Questions) == 0 {
		return nil, errors.New(errors.CodeNoCommonQuestions, "No matching question columns between the two files.")
	}
	return c, nil
}

// Bin is one histogram bucket, [Lower, Upper) except the last which is closed
type Bin struct {
	Lower float64
	Upper float64
	Count int
}

// Histogram buckets values into n equal-width bins spanning their range
func Histogram(values []float64, n int) []Bin {
	if len(values) == 0 || n <= 0 {
		return nil
	}
	lo, _ := stats.Min(values)
	hi, _ := stats.Max(values)
	if hi == lo {
		return []Bin{{Lower: lo, Upper: hi, Count: len(values)}}
	}

	width := (hi - lo) / float64(n)
	bins := make([]Bin, n)
	for i := range bins {
		bins[i].Lower = lo + float64(i)*width
		bins[i].Upper = lo + float64(i+1)*width
	}
	for _, v := range values {
		i := int((v - lo) / width)
		if i >= n {
			i = n - 1
		}
		bins[i].Count++
	}
	return bins
}
