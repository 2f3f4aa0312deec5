package ui

import (
	"encoding/base64"
	"html/template"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"learnerdash/domain/markbook"
	"learnerdash/internal/charts"
	"learnerdash/internal/metrics"
	"learnerdash/internal/session"
	"learnerdash/ui/middleware"
)

// weakestCount is how many questions the weakest-questions chart shows
const weakestCount = 5

// requireState renders the page with the no-data message and reports false
// when the session has no markbook yet
func (s *Server) requireState(c *gin.Context, tmpl string, data gin.H) (*session.State, bool) {
	state, ok := s.currentState(c)
	if !ok {
		data["Message"] = noDataMessage
		s.renderTemplate(c, http.StatusOK, tmpl, data)
		return nil, false
	}
	data["State"] = state
	return state, true
}

// renderPageError shows an error on a page and halts it
func (s *Server) renderPageError(c *gin.Context, tmpl string, data gin.H, err error) {
	status, msg := describeError(err)
	data["Error"] = msg
	s.renderTemplate(c, status, tmpl, data)
}

// handleQuestions renders the describe table, box plot, weakest questions
// and the mark distribution of one question
func (s *Server) handleQuestions(c *gin.Context) {
	data := gin.H{"Page": "Question Analysis", "Active": "questions"}
	state, ok := s.requireState(c, "questions.html", data)
	if !ok {
		return
	}
	table := state.Table
	if len(table.ActiveQuestions) == 0 {
		data["Message"] = "Every question column sums to zero; there is nothing to analyse."
		s.renderTemplate(c, http.StatusOK, "questions.html", data)
		return
	}

	selected := c.DefaultQuery("q", table.ActiveQuestions[0])
	if !table.IsActive(selected) {
		data["Error"] = "Unknown question: " + selected
		s.renderTemplate(c, http.StatusNotFound, "questions.html", data)
		return
	}

	summaries := make([]markbook.QuestionSummary, 0, len(table.ActiveQuestions))
	for _, q := range table.ActiveQuestions {
		if sum, ok := metrics.DescribeQuestion(table, q); ok {
			summaries = append(summaries, sum)
		}
	}

	data["Questions"] = table.ActiveQuestions
	data["Selected"] = selected
	data["Summaries"] = summaries
	data["Weakest"] = metrics.WeakestQuestions(table, weakestCount)
	data["Distribution"] = metrics.MarkDistribution(table, selected)
	s.renderTemplate(c, http.StatusOK, "questions.html", data)
}

// handleLearners renders one learner against the class and the tier bands
func (s *Server) handleLearners(c *gin.Context) {
	data := gin.H{"Page": "Learner Analysis", "Active": "learners"}
	state, ok := s.requireState(c, "learners.html", data)
	if !ok {
		return
	}
	table := state.Table

	names := make([]string, len(table.Learners))
	for i, l := range table.Learners {
		names[i] = l.Name
	}
	data["Learners"] = names
	data["Tiers"] = state.Analysis.Tiers
	if len(names) == 0 {
		data["Message"] = "The uploaded markbook has no learner rows."
		s.renderTemplate(c, http.StatusOK, "learners.html", data)
		return
	}

	selected := c.DefaultQuery("learner", names[0])
	data["Selected"] = selected
	profile, err := metrics.Profile(table, selected, s.analysis.Thresholds())
	if err != nil {
		s.renderPageError(c, "learners.html", data, err)
		return
	}
	data["Profile"] = profile
	s.renderTemplate(c, http.StatusOK, "learners.html", data)
}

// handleProgress renders class means per question over test dates
func (s *Server) handleProgress(c *gin.Context) {
	data := gin.H{"Page": "Progress Tracking", "Active": "progress"}
	state, ok := s.requireState(c, "progress.html", data)
	if !ok {
		return
	}
	points, ok := metrics.Progress(state.Table)
	if !ok {
		data["Warning"] = "Your current Excel file lacks a 'Test Date' column. Add it to track progress."
	}
	data["Points"] = points
	data["Questions"] = state.Table.ActiveQuestions
	s.renderTemplate(c, http.StatusOK, "progress.html", data)
}

// handleCompare renders the comparison form and the last comparison
func (s *Server) handleCompare(c *gin.Context) {
	data := gin.H{"Page": "Compare Groups", "Active": "compare"}
	if _, ok := s.requireState(c, "compare.html", data); !ok {
		return
	}
	s.renderTemplate(c, http.StatusOK, "compare.html", data)
}

// handleCompareUpload compares a second markbook with the session's one
func (s *Server) handleCompareUpload(c *gin.Context) {
	data := gin.H{"Page": "Compare Groups", "Active": "compare"}
	state, ok := s.requireState(c, "compare.html", data)
	if !ok {
		return
	}

	upload, filename, err := s.readUpload(c)
	if err != nil {
		s.renderPageError(c, "compare.html", data, err)
		return
	}
	next, err := s.analysis.Compare(c.Request.Context(), state, upload, filename)
	if err != nil {
		log.Printf("[handleCompareUpload] Comparison with %s failed: %v", filename, err)
		s.renderPageError(c, "compare.html", data, err)
		return
	}
	s.store.Put(middleware.SessionID(c), next)
	c.Redirect(http.StatusSeeOther, "/compare")
}

// handleExplore renders the custom chart builder
func (s *Server) handleExplore(c *gin.Context) {
	data := gin.H{"Page": "Explore", "Active": "explore", "Kinds": []charts.Kind{charts.KindBar, charts.KindScatter, charts.KindHistogram}}
	state, ok := s.requireState(c, "explore.html", data)
	if !ok {
		return
	}
	selected := selectedQuestions(c)
	data["Questions"] = state.Table.ActiveQuestions
	data["Selected"] = selected
	data["Kind"] = charts.KindBar

	kind, err := charts.ParseKind(c.Query("chart"))
	if err != nil {
		s.renderPageError(c, "explore.html", data, err)
		return
	}
	data["Kind"] = kind
	if len(selected) == 0 {
		s.renderTemplate(c, http.StatusOK, "explore.html", data)
		return
	}

	png, err := charts.Custom(kind, state.Table, selected)
	if err != nil {
		s.renderPageError(c, "explore.html", data, err)
		return
	}
	data["Chart"] = template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png))
	s.renderTemplate(c, http.StatusOK, "explore.html", data)
}
