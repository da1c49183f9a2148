// Package controller holds the command handlers shared by the web and console front-ends.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/kaikteck/Mult-Function/internal/errorhandler"
	"github.com/kaikteck/Mult-Function/internal/metrics"
	"github.com/kaikteck/Mult-Function/internal/taskstore"
	"github.com/kaikteck/Mult-Function/internal/tester"
	"github.com/kaikteck/Mult-Function/pkg/models"
)

var (
	// ErrBusy is returned when a speed test is already running
	ErrBusy = errors.New("speed test already running")
	// ErrCooldown is returned when a speed test is requested before the cooldown elapsed
	ErrCooldown = errors.New("speed test cooldown in effect")
)

// SpeedRunner performs one measurement
type SpeedRunner interface {
	Run(ctx context.Context) (models.SpeedReport, error)
}

// TaskStore persists the task list
type TaskStore interface {
	Load() ([]string, error)
	Save(tasks []string) error
}

// Controller owns the task list and the speed runner
type Controller struct {
	mu    sync.Mutex
	list  *taskstore.List
	store TaskStore

	runner  SpeedRunner
	limiter *rate.Limiter
	testing bool
	testMu  sync.RWMutex

	metrics      *metrics.Metrics
	errorHandler *errorhandler.ErrorHandler
}

// Options configures a Controller
type Options struct {
	MaxTasks int
	// Cooldown is the minimum gap between speed tests; 0 disables it.
	Cooldown     time.Duration
	Metrics      *metrics.Metrics
	ErrorHandler *errorhandler.ErrorHandler
}

// New creates a controller. Call Load before serving commands.
func New(store TaskStore, runner SpeedRunner, opts Options) *Controller {
	c := &Controller{
		list:         taskstore.NewList(opts.MaxTasks),
		store:        store,
		runner:       runner,
		metrics:      opts.Metrics,
		errorHandler: opts.ErrorHandler,
	}
	if opts.Cooldown > 0 {
		c.limiter = rate.NewLimiter(rate.Every(opts.Cooldown), 1)
	}
	if c.metrics == nil {
		c.metrics = metrics.New(0)
	}
	if c.errorHandler == nil {
		c.errorHandler = errorhandler.New()
	}
	return c
}

// Load reads the persisted list. Stored tasks beyond the cap are dropped.
func (c *Controller) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tasks, err := c.store.Load()
	if err != nil {
		c.storageError("load", err)
		return err
	}
	tasks = taskstore.CleanLabels(tasks)
	if limit := c.list.MaxTasks(); limit > 0 && len(tasks) > limit {
		c.errorHandler.Logger().LogWarning("Stored task list exceeds capacity, truncating", map[string]any{
			"stored":    len(tasks),
			"max_tasks": limit,
		})
		tasks = tasks[:limit]
	}
	return c.list.Replace(tasks)
}

// Tasks returns the current list and its capacity state
func (c *Controller) Tasks() models.TaskState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// AddTask appends label. At capacity or for a blank label nothing changes.
func (c *Controller) AddTask(label string) (models.TaskState, bool, error) {
	return c.mutate("add", func(l *taskstore.List) (bool, error) {
		return l.Add(label), nil
	})
}

// RemoveTask deletes the task at index (0-based). Out-of-range is a no-op.
func (c *Controller) RemoveTask(index int) (models.TaskState, bool, error) {
	return c.mutate("remove", func(l *taskstore.List) (bool, error) {
		return l.Remove(index), nil
	})
}

// CompleteAll clears the list following the list's completion rule
func (c *Controller) CompleteAll() (models.TaskState, bool, error) {
	return c.mutate("complete_all", func(l *taskstore.List) (bool, error) {
		return l.CompleteAll(), nil
	})
}

// ReplaceTasks swaps the whole list, as the web save endpoint does
func (c *Controller) ReplaceTasks(labels []string) (models.TaskState, bool, error) {
	return c.mutate("replace", func(l *taskstore.List) (bool, error) {
		if err := l.Replace(labels); err != nil {
			return false, err
		}
		return true, nil
	})
}

func (c *Controller) mutate(op string, fn func(*taskstore.List) (bool, error)) (models.TaskState, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	before := c.list.Items()
	changed, err := fn(c.list)
	if err != nil {
		return c.stateLocked(), false, err
	}
	if !changed {
		return c.stateLocked(), false, nil
	}

	if err := c.store.Save(c.list.Items()); err != nil {
		// keep memory and disk in agreement
		_ = c.list.Replace(before)
		c.storageError(op, err)
		return c.stateLocked(), false, fmt.Errorf("save tasks: %w", err)
	}

	c.metrics.RecordCounter("tasks."+op, 1, nil)
	return c.stateLocked(), true, nil
}

func (c *Controller) stateLocked() models.TaskState {
	return models.TaskState{
		Tasks:    c.list.Items(),
		Count:    c.list.Len(),
		MaxTasks: c.list.MaxTasks(),
		Full:     c.list.Full(),
	}
}

// Busy reports whether a speed test is running
func (c *Controller) Busy() bool {
	c.testMu.RLock()
	defer c.testMu.RUnlock()
	return c.testing
}

// RunSpeedTest performs one blocking measurement.
// Measurement faults come back as *tester.Failure.
func (c *Controller) RunSpeedTest(ctx context.Context) (models.SpeedReport, error) {
	c.testMu.Lock()
	if c.testing {
		c.testMu.Unlock()
		return models.SpeedReport{}, ErrBusy
	}
	if c.limiter != nil && !c.limiter.Allow() {
		c.testMu.Unlock()
		return models.SpeedReport{}, ErrCooldown
	}
	c.testing = true
	c.testMu.Unlock()

	defer func() {
		c.testMu.Lock()
		c.testing = false
		c.testMu.Unlock()
	}()

	runID := uuid.NewString()
	c.metrics.RecordRunStart()
	start := time.Now()
	report, err := c.runner.Run(ctx)
	elapsed := time.Since(start)
	c.metrics.RecordTimer("speedtest.duration", elapsed, nil)

	if err != nil {
		c.metrics.RecordRunFailure()
		c.measurementError(runID, err)
		return models.SpeedReport{}, err
	}

	report.RunID = runID
	c.metrics.RecordRunSuccess(metrics.RunSample{
		ID:           runID,
		DownloadMbps: report.DownloadBps / 1_000_000,
		UploadMbps:   report.UploadBps / 1_000_000,
		PingMS:       report.PingMS,
		Duration:     elapsed.Seconds(),
	})
	c.errorHandler.HandleSuccess(errorhandler.ErrorTypeSpeedTest, "speedtest", "run")
	return report, nil
}

// Metrics returns the controller's metrics
func (c *Controller) Metrics() *metrics.Metrics {
	return c.metrics
}

// ErrorHandler returns the controller's error handler
func (c *Controller) ErrorHandler() *errorhandler.ErrorHandler {
	return c.errorHandler
}

func (c *Controller) measurementError(runID string, err error) {
	errorType := errorhandler.ErrorTypeServerSelection
	stage := ""
	var f *tester.Failure
	if errors.As(err, &f) {
		errorType = errorhandler.ErrorType(f.Kind)
		stage = string(f.Stage)
	}
	c.metrics.RecordCounter("speedtest.failed."+string(errorType), 1, map[string]string{"kind": string(errorType)})
	info := errorhandler.CreateErrorInfo(errorType, errorhandler.SeverityHigh, err.Error(), stage, "speedtest", "run")
	info.Details = map[string]string{"run_id": runID}
	c.errorHandler.HandleError(info)
}

func (c *Controller) storageError(op string, err error) {
	c.errorHandler.HandleError(errorhandler.CreateErrorInfo(
		errorhandler.ErrorTypeStorage, errorhandler.SeverityHigh, err.Error(), op, "taskstore", op))
}
