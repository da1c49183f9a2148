package tester

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/kaikteck/Mult-Function/internal/speedfmt"
	"github.com/kaikteck/Mult-Function/pkg/models"
)

// GenericFailureMessage is the only failure text shown to users
const GenericFailureMessage = "Speed test failed. Please try again."

// Stage names one step of a measurement
type Stage string

const (
	StageSelectServer Stage = "select_server"
	StageDownload     Stage = "download"
	StageUpload       Stage = "upload"
	StagePing         Stage = "ping"
)

// FailureKind classifies why a measurement failed
type FailureKind string

const (
	KindServerSelection FailureKind = "server_selection"
	KindDownload        FailureKind = "download"
	KindUpload          FailureKind = "upload"
	KindTimeout         FailureKind = "timeout"
	KindCanceled        FailureKind = "canceled"
	KindPanic           FailureKind = "panic"
)

// Failure is the error returned by Runner.Run
type Failure struct {
	Kind  FailureKind
	Stage Stage
	Err   error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("speed test failed during %s (%s): %v", f.Stage, f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// UserMessage returns the text shown to users regardless of the cause
func (f *Failure) UserMessage() string {
	return GenericFailureMessage
}

// Runner sequences a Probe and formats its results
type Runner struct {
	probe   Probe
	policy  speedfmt.PingRounding
	timeout time.Duration

	// OnStage, when set, is called before each stage starts.
	OnStage func(Stage)
}

// NewRunner creates a runner. timeout <= 0 leaves the run unbounded.
func NewRunner(probe Probe, policy speedfmt.PingRounding, timeout time.Duration) *Runner {
	return &Runner{
		probe:   probe,
		policy:  policy,
		timeout: timeout,
	}
}

// Policy returns the ping rounding policy
func (r *Runner) Policy() speedfmt.PingRounding {
	return r.policy
}

// Run performs one measurement. On failure the report is zero and err is a *Failure.
func (r *Runner) Run(ctx context.Context) (report models.SpeedReport, err error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	stage := StageSelectServer
	defer func() {
		if rec := recover(); rec != nil {
			report = models.SpeedReport{}
			err = &Failure{Kind: KindPanic, Stage: stage, Err: fmt.Errorf("panic: %v", rec)}
		}
	}()

	r.notify(stage)
	server, err := r.probe.SelectBestServer(ctx)
	if err = r.check(ctx, err); err != nil {
		return models.SpeedReport{}, r.fail(ctx, stage, err)
	}

	stage = StageDownload
	r.notify(stage)
	download, err := r.probe.MeasureDownload(ctx, server)
	if err = r.check(ctx, err); err != nil {
		return models.SpeedReport{}, r.fail(ctx, stage, err)
	}

	stage = StageUpload
	r.notify(stage)
	upload, err := r.probe.MeasureUpload(ctx, server)
	if err = r.check(ctx, err); err != nil {
		return models.SpeedReport{}, r.fail(ctx, stage, err)
	}

	stage = StagePing
	r.notify(stage)
	ping := r.probe.LastPingMS()
	if math.IsNaN(ping) || ping < 0 {
		ping = 0
	}

	return models.SpeedReport{
		Download:    speedfmt.FormatRate(download),
		Upload:      speedfmt.FormatRate(upload),
		Ping:        speedfmt.RoundPing(ping, r.policy),
		DownloadBps: download,
		UploadBps:   upload,
		PingMS:      ping,
		Server:      server.Label(),
	}, nil
}

func (r *Runner) notify(stage Stage) {
	if r.OnStage != nil {
		r.OnStage(stage)
	}
}

// check surfaces a context that expired while the probe reported success
func (r *Runner) check(ctx context.Context, err error) error {
	if err != nil {
		return err
	}
	return ctx.Err()
}

func (r *Runner) fail(ctx context.Context, stage Stage, err error) *Failure {
	kind := stageKind(stage)
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		kind = KindTimeout
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		kind = KindCanceled
	}
	return &Failure{Kind: kind, Stage: stage, Err: err}
}

func stageKind(stage Stage) FailureKind {
	switch stage {
	case StageDownload:
		return KindDownload
	case StageUpload:
		return KindUpload
	default:
		return KindServerSelection
	}
}
