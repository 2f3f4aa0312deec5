package ui

import (
	"log"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"

	"learnerdash/internal/report"
	"learnerdash/ui/middleware"
)

// handleIndex renders the upload form and, once a markbook is loaded, the
// class overview
func (s *Server) handleIndex(c *gin.Context) {
	data := gin.H{"Page": "Home", "Active": "home", "Formats": report.Formats}
	if state, ok := s.currentState(c); ok {
		data["State"] = state
		data["Insights"] = state.Analysis.Insights()
		data["Recommendations"] = state.Analysis.Recommendations()
	}
	s.renderTemplate(c, http.StatusOK, "index.html", data)
}

// handleUpload replaces the session state with a freshly analyzed markbook.
// On any failure the previous state is kept and the error is shown.
func (s *Server) handleUpload(c *gin.Context) {
	id := middleware.SessionID(c)
	data, filename, err := s.readUpload(c)
	if err != nil {
		s.renderUploadError(c, err)
		return
	}

	state, err := s.analysis.Analyze(c.Request.Context(), data, filename)
	if err != nil {
		log.Printf("[handleUpload] Analysis of %s failed: %v", filename, err)
		s.renderUploadError(c, err)
		return
	}
	state.ID = id
	s.store.Put(id, state)
	log.Printf("[handleUpload] Session %s loaded %s (%d learners)", id, state.Filename, len(state.Table.Learners))
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) renderUploadError(c *gin.Context, err error) {
	status, msg := describeError(err)
	data := gin.H{"Page": "Home", "Active": "home", "Formats": report.Formats, "Error": msg}
	s.renderTemplate(c, status, "index.html", data)
}

// handleReport exports the dashboard as a downloadable document
func (s *Server) handleReport(c *gin.Context) {
	state, ok := s.currentState(c)
	if !ok {
		c.String(http.StatusConflict, noDataMessage)
		return
	}
	format, err := report.ParseFormat(c.Query("format"))
	if err != nil {
		status, msg := describeError(err)
		c.String(status, msg)
		return
	}

	doc, err := s.reports.Build(c.Request.Context(), state, format)
	if err != nil {
		log.Printf("[handleReport] Export failed: %v", err)
		status, msg := describeError(err)
		c.String(status, msg)
		return
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Filename}))
	c.Data(http.StatusOK, doc.ContentType, doc.Data)
}

// handleHealth reports liveness and the number of live sessions
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": s.store.Len()})
}
