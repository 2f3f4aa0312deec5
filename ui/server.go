package ui

import (
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"learnerdash/app"
	"learnerdash/internal/config"
	"learnerdash/internal/report"
	"learnerdash/internal/session"
	"learnerdash/ui/middleware"
)

// noDataMessage is shown by every page that needs an uploaded markbook
const noDataMessage = "Please upload an Excel file on the Home page first."

// Server represents the web server for the learner dashboard
type Server struct {
	router    *gin.Engine
	templates *template.Template
	files     fs.FS
	config    *config.Config
	store     *session.Store
	analysis  *app.AnalysisService
	reports   *report.Builder
	preload   *session.State
}

// NewServer creates a new web server instance. files must contain
// ui/templates/*.html and ui/static.
func NewServer(files fs.FS, cfg *config.Config, store *session.Store, analysis *app.AnalysisService) *Server {
	router := gin.Default()
	router.MaxMultipartMemory = cfg.Server.MaxUploadBytes()
	return &Server{
		router:   router,
		files:    files,
		config:   cfg,
		store:    store,
		analysis: analysis,
		reports:  report.NewBuilder(cfg.Report),
	}
}

// Initialize parses templates and sets up middleware and routes
func (s *Server) Initialize() error {
	funcMap := template.FuncMap{
		"pct":  func(v float64) string { return fmt.Sprintf("%.2f%%", v) },
		"num":  func(v float64) string { return fmt.Sprintf("%.2f", v) },
		"join": strings.Join,
		"add":  func(a, b int) int { return a + b },
		"at": func(values []float64, i int) float64 {
			if i < 0 || i >= len(values) {
				return 0
			}
			return values[i]
		},
		"contains": func(list []string, v string) bool {
			for _, s := range list {
				if s == v {
					return true
				}
			}
			return false
		},
	}

	templatesFS, err := fs.Sub(s.files, "ui/templates")
	if err != nil {
		return fmt.Errorf("failed to create templates filesystem: %w", err)
	}
	files, err := fs.Glob(templatesFS, "*.html")
	if err != nil {
		return fmt.Errorf("failed to glob templates: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no templates found under ui/templates")
	}

	s.templates = template.New("").Funcs(funcMap)
	for _, file := range files {
		content, err := fs.ReadFile(templatesFS, file)
		if err != nil {
			return fmt.Errorf("failed to read template %s: %w", file, err)
		}
		if _, err := s.templates.New(file).Parse(string(content)); err != nil {
			return fmt.Errorf("failed to parse template %s: %w", file, err)
		}
	}
	log.Printf("[TemplateInit] Parsed %d template files: %v", len(files), files)

	s.setupMiddleware()
	s.setupRoutes()
	return nil
}

// setupMiddleware configures static files and the session cookie
func (s *Server) setupMiddleware() {
	staticFS, err := fs.Sub(s.files, "ui/static")
	if err != nil {
		log.Printf("[setupMiddleware] Error creating static filesystem: %v", err)
	} else {
		s.router.StaticFS("/static", http.FS(staticFS))
	}

	maxAge := int(s.config.Server.SessionTTL.Seconds())
	s.router.Use(middleware.EnsureSession(maxAge, s.config.Server.CookieSecure))
}

// setupRoutes configures the application routes
func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleIndex)
	s.router.POST("/upload", s.handleUpload)

	s.router.GET("/questions", s.handleQuestions)
	s.router.GET("/learners", s.handleLearners)
	s.router.GET("/progress", s.handleProgress)
	s.router.GET("/compare", s.handleCompare)
	s.router.POST("/compare", s.handleCompareUpload)
	s.router.GET("/explore", s.handleExplore)

	s.router.GET("/charts/:kind", s.handleChart)
	s.router.GET("/report", s.handleReport)
	s.router.GET("/healthz", s.handleHealth)
}

// Preload sets a markbook that sessions without an upload start from
func (s *Server) Preload(state *session.State) {
	s.preload = state
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the web server
func (s *Server) Start(addr string) error {
	log.Printf("Starting learner dashboard on http://%s", addr)
	return s.router.Run(addr)
}
