package errorhandler

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrorType represents different types of errors
type ErrorType string

const (
	ErrorTypeSpeedTest       ErrorType = "speedtest"
	ErrorTypeServerSelection ErrorType = "server_selection"
	ErrorTypeDownload        ErrorType = "download"
	ErrorTypeUpload          ErrorType = "upload"
	ErrorTypeTimeout         ErrorType = "timeout"
	ErrorTypeCanceled        ErrorType = "canceled"
	ErrorTypePanic           ErrorType = "panic"
	ErrorTypeStorage         ErrorType = "storage"
	ErrorTypeValidation      ErrorType = "validation"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	SeverityLow      ErrorSeverity = "low"
	SeverityMedium   ErrorSeverity = "medium"
	SeverityHigh     ErrorSeverity = "high"
	SeverityCritical ErrorSeverity = "critical"
)

// ErrorInfo contains detailed information about an error
type ErrorInfo struct {
	Type      ErrorType     `json:"type"`
	Severity  ErrorSeverity `json:"severity"`
	Message   string        `json:"message"`
	Context   string        `json:"context"`
	Timestamp time.Time     `json:"timestamp"`
	Component string        `json:"component"`
	Operation string        `json:"operation"`
	Details   any           `json:"details,omitempty"`
}

// ErrorStats tracks statistics for each error type
type ErrorStats struct {
	TotalCount   int       `json:"total_count"`
	SuccessCount int       `json:"success_count"`
	LastOccurred time.Time `json:"last_occurred"`
	LastSuccess  time.Time `json:"last_success"`
	LastMessage  string    `json:"last_message,omitempty"`
}

// ErrorHandler records failures per type and logs them. Nothing is retried.
type ErrorHandler struct {
	mu         sync.RWMutex
	errorStats map[ErrorType]*ErrorStats
	logger     *StructuredLogger
}

// StructuredLogger provides structured logging capabilities
type StructuredLogger struct {
	logger *logrus.Logger
}

// New creates a new error handler logging to stderr
func New() *ErrorHandler {
	return NewWithLogger(NewStructuredLogger())
}

// NewWithLogger creates an error handler that logs through logger
func NewWithLogger(logger *StructuredLogger) *ErrorHandler {
	return &ErrorHandler{
		errorStats: make(map[ErrorType]*ErrorStats),
		logger:     logger,
	}
}

// NewStructuredLogger creates a new structured logger
func NewStructuredLogger() *StructuredLogger {
	return NewStructuredLoggerTo(os.Stderr)
}

// NewStructuredLoggerTo creates a structured logger writing to w
func NewStructuredLoggerTo(w io.Writer) *StructuredLogger {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
		DisableColors: true,
	})
	return &StructuredLogger{logger: logger}
}

// Logger returns the handler's structured logger
func (eh *ErrorHandler) Logger() *StructuredLogger {
	return eh.logger
}

// HandleError records and logs an error
func (eh *ErrorHandler) HandleError(errorInfo *ErrorInfo) {
	if errorInfo == nil {
		return
	}

	eh.mu.Lock()
	stats := eh.getOrCreateErrorStats(errorInfo.Type)
	stats.TotalCount++
	stats.LastOccurred = errorInfo.Timestamp
	stats.LastMessage = errorInfo.Message
	eh.mu.Unlock()

	eh.logError(errorInfo)
}

// HandleSuccess records a successful operation
func (eh *ErrorHandler) HandleSuccess(errorType ErrorType, component, operation string) {
	eh.mu.Lock()
	stats := eh.getOrCreateErrorStats(errorType)
	stats.SuccessCount++
	stats.LastSuccess = time.Now()
	count := stats.SuccessCount
	eh.mu.Unlock()

	eh.logger.LogInfo("Operation succeeded", map[string]any{
		"component":     component,
		"operation":     operation,
		"success_count": count,
	})
}

// GetErrorStats returns error statistics for all error types
func (eh *ErrorHandler) GetErrorStats() map[ErrorType]*ErrorStats {
	eh.mu.RLock()
	defer eh.mu.RUnlock()

	result := make(map[ErrorType]*ErrorStats, len(eh.errorStats))
	for errorType, stats := range eh.errorStats {
		copied := *stats
		result[errorType] = &copied
	}

	return result
}

// getOrCreateErrorStats gets or creates error statistics for a type (lock held)
func (eh *ErrorHandler) getOrCreateErrorStats(errorType ErrorType) *ErrorStats {
	if stats, exists := eh.errorStats[errorType]; exists {
		return stats
	}

	stats := &ErrorStats{}
	eh.errorStats[errorType] = stats
	return stats
}

// logError logs an error with structured information
func (eh *ErrorHandler) logError(errorInfo *ErrorInfo) {
	logData := map[string]any{
		"type":      errorInfo.Type,
		"severity":  errorInfo.Severity,
		"message":   errorInfo.Message,
		"context":   errorInfo.Context,
		"timestamp": errorInfo.Timestamp.Format(time.RFC3339),
		"component": errorInfo.Component,
		"operation": errorInfo.Operation,
	}

	if errorInfo.Details != nil {
		logData["details"] = errorInfo.Details
	}

	switch errorInfo.Severity {
	case SeverityCritical:
		eh.logger.LogError("CRITICAL ERROR", logData)
	case SeverityHigh:
		eh.logger.LogError("HIGH SEVERITY ERROR", logData)
	case SeverityMedium:
		eh.logger.LogWarning("MEDIUM SEVERITY ERROR", logData)
	case SeverityLow:
		eh.logger.LogInfo("LOW SEVERITY ERROR", logData)
	default:
		eh.logger.LogError("ERROR", logData)
	}
}

// LogInfo logs an informational message
func (sl *StructuredLogger) LogInfo(message string, data map[string]any) {
	sl.log(logrus.InfoLevel, message, data)
}

// LogWarning logs a warning message
func (sl *StructuredLogger) LogWarning(message string, data map[string]any) {
	sl.log(logrus.WarnLevel, message, data)
}

// LogError logs an error message
func (sl *StructuredLogger) LogError(message string, data map[string]any) {
	sl.log(logrus.ErrorLevel, message, data)
}

func (sl *StructuredLogger) log(level logrus.Level, message string, data map[string]any) {
	sl.logger.WithFields(logrus.Fields(data)).Log(level, message)
}

// CreateErrorInfo creates a new ErrorInfo instance
func CreateErrorInfo(errorType ErrorType, severity ErrorSeverity, message, context, component, operation string) *ErrorInfo {
	return &ErrorInfo{
		Type:      errorType,
		Severity:  severity,
		Message:   message,
		Context:   context,
		Timestamp: time.Now(),
		Component: component,
		Operation: operation,
	}
}
