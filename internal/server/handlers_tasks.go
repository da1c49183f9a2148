package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kaikteck/Mult-Function/internal/taskstore"
	"github.com/kaikteck/Mult-Function/pkg/models"
)

// taskMutation is the response of every list-changing API call
type taskMutation struct {
	models.TaskState
	Changed bool `json:"changed"`
}

// getTasks returns the task document
func (s *Server) getTasks(c *gin.Context) {
	state := s.controller.Tasks()
	c.JSON(http.StatusOK, models.TaskList{Tasks: state.Tasks})
}

// saveTasks replaces the task list with the posted document.
// Labels are stored trimmed and blank labels are dropped, so /get_tasks
// may return fewer or shorter entries than were posted.
func (s *Server) saveTasks(c *gin.Context) {
	var doc models.TaskList
	if err := c.ShouldBindJSON(&doc); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid JSON format: " + err.Error()})
		return
	}

	if _, _, err := s.controller.ReplaceTasks(doc.Tasks); err != nil {
		s.taskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// listTasks returns the list with its capacity state
func (s *Server) listTasks(c *gin.Context) {
	c.JSON(http.StatusOK, s.controller.Tasks())
}

// addTask appends one task
func (s *Server) addTask(c *gin.Context) {
	var req struct {
		Task string `json:"task"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid JSON format: " + err.Error()})
		return
	}

	state, added, err := s.controller.AddTask(req.Task)
	if err != nil {
		s.taskError(c, err)
		return
	}
	c.JSON(http.StatusOK, taskMutation{TaskState: state, Changed: added})
}

// removeTask deletes the task at the given position
func (s *Server) removeTask(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "index must be an integer"})
		return
	}

	state, removed, err := s.controller.RemoveTask(index)
	if err != nil {
		s.taskError(c, err)
		return
	}
	c.JSON(http.StatusOK, taskMutation{TaskState: state, Changed: removed})
}

// completeAll clears the list when the completion rule allows it
func (s *Server) completeAll(c *gin.Context) {
	state, done, err := s.controller.CompleteAll()
	if err != nil {
		s.taskError(c, err)
		return
	}
	c.JSON(http.StatusOK, taskMutation{TaskState: state, Changed: done})
}

// exportTasks streams the list as an attachment
func (s *Server) exportTasks(c *gin.Context) {
	format, err := taskstore.ParseFormat(c.Param("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Unsupported format. Use csv, json, txt or pdf"})
		return
	}

	filename := fmt.Sprintf("tasks-%s.%s", time.Now().Format("20060102-150405"), format)
	c.Header("Content-Type", format.ContentType())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	if err := taskstore.Export(c.Writer, format, s.controller.Tasks().Tasks); err != nil {
		fmt.Printf("Export error: %v\n", err)
		c.Status(http.StatusInternalServerError)
		return
	}
}

func (s *Server) taskError(c *gin.Context, err error) {
	if errors.Is(err, taskstore.ErrCapacityExceeded) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to save tasks"})
}
