package ui

import (
	"bytes"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// renderTemplate executes a template with the given data and status
func (s *Server) renderTemplate(c *gin.Context, status int, templateName string, data gin.H) {
	data["School"] = s.config.Report.SchoolName
	data["ReportTitle"] = s.config.Report.Title
	data["Footer"] = s.config.Report.Footer

	// Render to a buffer first so a template error never leaves half a page
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, templateName, data); err != nil {
		log.Printf("Template error for %s: %v", templateName, err)
		log.Printf("Template data keys: %v", getMapKeys(data))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Template rendering failed", "details": err.Error()})
		return
	}

	if !strings.Contains(buf.String(), "</html>") {
		log.Printf("WARNING: Rendered template %s appears truncated - missing </html> tag", templateName)
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(status)
	if _, err := buf.WriteTo(c.Writer); err != nil {
		log.Printf("Error writing template response: %v", err)
	}
}

// Helper function to get map keys for logging
func getMapKeys(m gin.H) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
