package server

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kaikteck/Mult-Function/internal/controller"
	"github.com/kaikteck/Mult-Function/internal/yamlconfig"
)

// Server represents the web server
type Server struct {
	router     *gin.Engine
	config     *yamlconfig.Config
	controller *controller.Controller
}

// New creates a new server instance. staticFS must hold a static/ directory with index.html.
func New(cfg *yamlconfig.Config, ctrl *controller.Controller, staticFS fs.FS) (*Server, error) {
	router := gin.Default()

	tmpl, err := loadTemplatesFromFS(staticFS)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}
	router.SetHTMLTemplate(tmpl)

	s := &Server{
		router:     router,
		config:     cfg,
		controller: ctrl,
	}

	s.setupRoutes()
	return s, nil
}

// setupRoutes sets up all routes
func (s *Server) setupRoutes() {
	s.router.GET("/", s.indexHandler)

	s.router.GET("/get_tasks", s.getTasks)
	s.router.POST("/save_tasks", s.saveTasks)
	s.router.GET("/speed_test", s.speedTest)

	api := s.router.Group("/api")
	{
		api.GET("/tasks", s.listTasks)
		api.POST("/tasks", s.addTask)
		api.POST("/tasks/complete", s.completeAll)
		api.DELETE("/tasks/:index", s.removeTask)
		api.GET("/tasks/export/:format", s.exportTasks)
		api.GET("/speedtest", s.speedTestDetailed)
		api.GET("/config", s.getConfig)
		api.GET("/status", s.getStatus)
		api.GET("/metrics", s.getMetrics)
		api.GET("/metrics/:name", s.getMetric)
		api.GET("/errors", s.getErrorStats)
	}
}

// Handler returns the HTTP handler serving all routes
func (s *Server) Handler() http.Handler {
	return s.router
}

// indexHandler serves the main HTML page
func (s *Server) indexHandler(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{
		"MaxTasks": s.config.Tasks.MaxTasks,
	})
}

// loadTemplatesFromFS parses every .html file in the static directory
func loadTemplatesFromFS(staticFS fs.FS) (*template.Template, error) {
	tmpl := template.New("")

	entries, err := fs.ReadDir(staticFS, "static")
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".html") {
			continue
		}
		// embed.FS paths always use forward slashes
		filePath := "static/" + entry.Name()
		data, err := fs.ReadFile(staticFS, filePath)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", filePath, err)
		}
		if _, err := tmpl.New(entry.Name()).Parse(string(data)); err != nil {
			return nil, fmt.Errorf("parse %s: %w", entry.Name(), err)
		}
	}

	if tmpl.Lookup("index.html") == nil {
		return nil, fmt.Errorf("static/index.html not found")
	}
	return tmpl, nil
}
