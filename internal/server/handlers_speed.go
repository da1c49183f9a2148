package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kaikteck/Mult-Function/internal/controller"
	"github.com/kaikteck/Mult-Function/internal/tester"
	"github.com/kaikteck/Mult-Function/pkg/models"
)

// speedTest runs a measurement and answers {download, upload, ping}
func (s *Server) speedTest(c *gin.Context) {
	report, ok := s.runSpeedTest(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"download": report.Download,
		"upload":   report.Upload,
		"ping":     report.Ping,
	})
}

// speedTestDetailed runs a measurement and answers with raw values too
func (s *Server) speedTestDetailed(c *gin.Context) {
	report, ok := s.runSpeedTest(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) runSpeedTest(c *gin.Context) (models.SpeedReport, bool) {
	fmt.Println("Starting speed test...")

	report, err := s.controller.RunSpeedTest(c.Request.Context())
	switch {
	case err == nil:
		fmt.Printf("Speed test completed: download=%s upload=%s ping=%v server=%s\n",
			report.Download, report.Upload, report.Ping, report.Server)
		return report, true
	case errors.Is(err, controller.ErrBusy):
		c.JSON(http.StatusConflict, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, controller.ErrCooldown):
		c.JSON(http.StatusTooManyRequests, models.ErrorResponse{Error: err.Error()})
	default:
		fmt.Printf("Error during speed test: %v\n", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: tester.GenericFailureMessage})
	}
	return models.SpeedReport{}, false
}
