// Package console is the terminal front-end: each command mirrors a button of the desktop app.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"

	"github.com/kaikteck/Mult-Function/internal/controller"
	"github.com/kaikteck/Mult-Function/internal/speedfmt"
	"github.com/kaikteck/Mult-Function/internal/taskstore"
	"github.com/kaikteck/Mult-Function/internal/tester"
)

var (
	bold   = color.New(color.Bold)
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
)

const helpText = `Commands:
  add <task>              add a task
  rm <n>                  remove task number n
  done                    complete all tasks
  list                    show tasks
  speed                   run a speed test
  export <format> <file>  write tasks as csv, json, txt or pdf
  help                    show this help
  quit                    exit`

// Console dispatches text commands to the controller
type Console struct {
	ctrl   *controller.Controller
	out    io.Writer
	policy speedfmt.PingRounding

	// ShowProgress enables the spinner while a speed test runs.
	ShowProgress bool

	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

// New creates a console writing to out
func New(ctrl *controller.Controller, out io.Writer, policy speedfmt.PingRounding) *Console {
	return &Console{
		ctrl:   ctrl,
		out:    out,
		policy: policy,
	}
}

// Run reads commands from in until quit, EOF or ctx is done
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	bold.Fprintln(c.out, "Multi-Function console. Type 'help' for commands.")
	c.printTasks()

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(c.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(c.out)
			return scanner.Err()
		}
		if c.Execute(ctx, scanner.Text()) {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// Execute runs one command line and reports whether the console should exit
func (c *Console) Execute(ctx context.Context, line string) bool {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(cmd) {
	case "":
	case "add":
		c.addTask(arg)
	case "rm", "remove":
		c.removeTask(arg)
	case "done", "complete":
		c.completeAll()
	case "list", "ls":
		c.printTasks()
	case "speed":
		c.speedTest(ctx)
	case "export":
		c.export(arg)
	case "help", "?":
		fmt.Fprintln(c.out, helpText)
	case "quit", "exit", "q":
		return true
	default:
		yellow.Fprintf(c.out, "Unknown command %q. Type 'help'.\n", cmd)
	}
	return false
}

func (c *Console) addTask(label string) {
	if label == "" {
		yellow.Fprintln(c.out, "Usage: add <task>")
		return
	}
	state, added, err := c.ctrl.AddTask(label)
	switch {
	case err != nil:
		red.Fprintf(c.out, "Error: %v\n", err)
	case !added:
		yellow.Fprintf(c.out, "Task list is full (%d tasks).\n", state.MaxTasks)
	default:
		green.Fprintf(c.out, "Added: %s\n", label)
		c.printTasks()
	}
}

func (c *Console) removeTask(arg string) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		yellow.Fprintln(c.out, "Usage: rm <n>")
		return
	}
	_, removed, err := c.ctrl.RemoveTask(n - 1)
	switch {
	case err != nil:
		red.Fprintf(c.out, "Error: %v\n", err)
	case !removed:
		yellow.Fprintf(c.out, "No task number %d.\n", n)
	default:
		green.Fprintf(c.out, "Removed task %d.\n", n)
		c.printTasks()
	}
}

func (c *Console) completeAll() {
	state, done, err := c.ctrl.CompleteAll()
	switch {
	case err != nil:
		red.Fprintf(c.out, "Error: %v\n", err)
	case !done && state.MaxTasks > 0 && state.Count > 0:
		yellow.Fprintf(c.out, "Complete All needs a full list (%d/%d).\n", state.Count, state.MaxTasks)
	case !done:
		yellow.Fprintln(c.out, "Nothing to complete.")
	default:
		green.Fprintln(c.out, "All tasks completed.")
	}
}

func (c *Console) printTasks() {
	state := c.ctrl.Tasks()
	if state.Count == 0 {
		fmt.Fprintln(c.out, "No tasks.")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Task")
	for i, task := range state.Tasks {
		_ = table.Append(strconv.Itoa(i+1), task)
	}
	_ = table.Render()

	if state.MaxTasks > 0 {
		fmt.Fprintf(c.out, "%d/%d tasks\n", state.Count, state.MaxTasks)
	}
}

func (c *Console) export(arg string) {
	name, path, _ := strings.Cut(arg, " ")
	path = strings.TrimSpace(path)
	format, err := taskstore.ParseFormat(name)
	if err != nil || path == "" {
		yellow.Fprintln(c.out, "Usage: export <csv|json|txt|pdf> <file>")
		return
	}

	if err := writeExport(path, format, c.ctrl.Tasks().Tasks); err != nil {
		red.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	green.Fprintf(c.out, "Exported tasks to %s\n", path)
}

var exportTasks = taskstore.Export

// writeExport writes tasks to path; on any failure the file is removed
func writeExport(path string, format taskstore.ExportFormat, tasks []string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	return exportTasks(f, format, tasks)
}

func (c *Console) speedTest(ctx context.Context) {
	fmt.Fprintln(c.out, "Testing... Please wait.")

	stop := c.startSpinner()
	report, err := c.ctrl.RunSpeedTest(ctx)
	stop()

	switch {
	case err == nil:
		bold.Fprintf(c.out, "Download: %s\n", report.Download)
		bold.Fprintf(c.out, "Upload: %s\n", report.Upload)
		bold.Fprintf(c.out, "Ping: %s\n", speedfmt.FormatPing(report.PingMS, c.policy))
		if report.Server != "" {
			fmt.Fprintf(c.out, "Server: %s\n", report.Server)
		}
	case errors.Is(err, controller.ErrBusy), errors.Is(err, controller.ErrCooldown):
		yellow.Fprintf(c.out, "Error: %v\n", err)
	default:
		red.Fprintf(c.out, "Error: %s\n", tester.GenericFailureMessage)
	}
}

// StageHook returns a callback for tester.Runner.OnStage that labels the spinner
func (c *Console) StageHook() func(tester.Stage) {
	labels := map[tester.Stage]string{
		tester.StageSelectServer: "Finding best server...",
		tester.StageDownload:     "Testing download speed...",
		tester.StageUpload:       "Testing upload speed...",
		tester.StagePing:         "Getting ping...",
	}
	return func(stage tester.Stage) {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.bar != nil {
			c.bar.Describe(labels[stage])
		}
	}
}

func (c *Console) startSpinner() func() {
	if !c.ShowProgress {
		return func() {}
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(c.out),
		progressbar.OptionSetDescription("Starting..."),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	c.mu.Lock()
	c.bar = bar
	c.mu.Unlock()

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				c.mu.Lock()
				_ = bar.Add(1)
				c.mu.Unlock()
			}
		}
	}()

	return func() {
		close(done)
		wg.Wait()
		c.mu.Lock()
		_ = bar.Finish()
		c.bar = nil
		c.mu.Unlock()
	}
}
