package ui

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"learnerdash/domain/markbook"
	"learnerdash/internal/charts"
	"learnerdash/internal/errors"
	"learnerdash/internal/metrics"
	"learnerdash/internal/session"
)

// handleChart serves the PNG charts embedded by the pages
func (s *Server) handleChart(c *gin.Context) {
	state, ok := s.currentState(c)
	if !ok {
		c.String(http.StatusConflict, noDataMessage)
		return
	}

	start := time.Now()
	kind := c.Param("kind")
	png, err := s.renderChart(c, kind, state)
	if err != nil {
		status, msg := describeError(err)
		if status == http.StatusInternalServerError {
			log.Printf("[handleChart] Rendering %s failed: %v", kind, err)
		}
		c.String(status, msg)
		return
	}
	log.Printf("[handleChart] Rendered %s in %.2fms (%d bytes)", kind, float64(time.Since(start).Microseconds())/1000, len(png))

	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

func (s *Server) renderChart(c *gin.Context, kind string, state *session.State) ([]byte, error) {
	table, analysis := state.Table, state.Analysis

	switch kind {
	case "averages":
		return charts.LearnerAverages(table.Learners)
	case "question-means":
		return charts.QuestionMeans("Average Marks per Question", analysis.QuestionMeans)
	case "percentages":
		return charts.Histogram("Distribution of Percentages", table.Percentages(), charts.HistogramBins)
	case "boxplot":
		summaries := make([]markbook.QuestionSummary, 0, len(table.ActiveQuestions))
		for _, q := range table.ActiveQuestions {
			if sum, ok := metrics.DescribeQuestion(table, q); ok {
				summaries = append(summaries, sum)
			}
		}
		return charts.BoxPlot("Mark Spread per Question", summaries)
	case "weakest":
		return charts.QuestionMeans(fmt.Sprintf("Top %d Weakest Questions", weakestCount), metrics.WeakestQuestions(table, weakestCount))
	case "pie":
		q := c.Query("question")
		if !table.IsActive(q) {
			return nil, errors.NotFound(fmt.Sprintf("question %q", q))
		}
		return charts.MarkDistribution(q, metrics.MarkDistribution(table, q))
	case "radar", "learner":
		profile, err := metrics.Profile(table, c.Query("learner"), s.analysis.Thresholds())
		if err != nil {
			return nil, err
		}
		series := []charts.Series{
			{Name: profile.Name, Values: profile.Scores},
			{Name: "Class average", Values: profile.ClassMeans},
		}
		if kind == "radar" {
			return charts.Radar(profile.Name+" vs Class", profile.Questions, series, maxMark(table))
		}
		return charts.GroupedBars(profile.Name+" vs Class Average", profile.Questions, series)
	case "progress":
		points, ok := metrics.Progress(table)
		if !ok {
			return nil, errors.NotFound("test date column")
		}
		return charts.Progress(table.ActiveQuestions, points)
	case "compare":
		if state.Comparison == nil {
			return nil, errors.NotFound("comparison")
		}
		r := state.Comparison.Result
		return charts.GroupedBars("Question Means Comparison", r.Questions, []charts.Series{
			{Name: state.Filename, Values: r.Original},
			{Name: state.Comparison.Filename, Values: r.Other},
		})
	case "custom":
		chartKind, err := charts.ParseKind(c.Query("chart"))
		if err != nil {
			return nil, err
		}
		return charts.Custom(chartKind, table, selectedQuestions(c))
	}
	return nil, errors.NotFound(fmt.Sprintf("chart %q", kind))
}

// maxMark is the highest mark any learner scored on an active question
func maxMark(t *markbook.NormalizedTable) float64 {
	top := 0.0
	for _, l := range t.Learners {
		for _, q := range t.ActiveQuestions {
			if v := l.Score(q); v > top {
				top = v
			}
		}
	}
	return top
}
