package tester

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kaikteck/Mult-Function/internal/speedfmt"
)

type fakeProbe struct {
	selectErr   error
	downloadErr error
	uploadErr   error
	download    float64
	upload      float64
	ping        float64
	panicOn     Stage
	block       bool

	calls []Stage
}

func (f *fakeProbe) SelectBestServer(ctx context.Context) (ServerHandle, error) {
	f.calls = append(f.calls, StageSelectServer)
	if f.panicOn == StageSelectServer {
		panic("boom")
	}
	return ServerHandle{ID: "1", Name: "Lisbon", Sponsor: "ISP"}, f.selectErr
}

func (f *fakeProbe) MeasureDownload(ctx context.Context, _ ServerHandle) (float64, error) {
	f.calls = append(f.calls, StageDownload)
	if f.block {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	return f.download, f.downloadErr
}

func (f *fakeProbe) MeasureUpload(ctx context.Context, _ ServerHandle) (float64, error) {
	f.calls = append(f.calls, StageUpload)
	if f.panicOn == StageUpload {
		panic("upload exploded")
	}
	return f.upload, f.uploadErr
}

func (f *fakeProbe) LastPingMS() float64 {
	f.calls = append(f.calls, StagePing)
	return f.ping
}

func TestRunFormatsResults(t *testing.T) {
	probe := &fakeProbe{download: 94_230_000, upload: 512_000, ping: 23.456}
	var stages []Stage
	r := NewRunner(probe, speedfmt.RoundInteger, 0)
	r.OnStage = func(s Stage) { stages = append(stages, s) }

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Download != "94.2 Mbps" || report.Upload != "512.0 Kbps" || report.Ping != 23 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.Server != "ISP (Lisbon)" {
		t.Fatalf("unexpected server label: %q", report.Server)
	}
	want := []Stage{StageSelectServer, StageDownload, StageUpload, StagePing}
	if len(stages) != len(want) {
		t.Fatalf("unexpected stages: %v", stages)
	}
	for i := range want {
		if stages[i] != want[i] || probe.calls[i] != want[i] {
			t.Fatalf("stage %d: notified %v, called %v, want %v", i, stages, probe.calls, want)
		}
	}
}

func TestRunTwoDecimalPing(t *testing.T) {
	r := NewRunner(&fakeProbe{download: 1_000_000, ping: 23.456}, speedfmt.RoundTwoDecimals, 0)
	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Ping != 23.46 || report.Download != "1.0 Mbps" || report.Upload != "0.0 Kbps" {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestRunFailures(t *testing.T) {
	tests := []struct {
		name  string
		probe *fakeProbe
		kind  FailureKind
		stage Stage
	}{
		{"no server", &fakeProbe{selectErr: ErrNoServers}, KindServerSelection, StageSelectServer},
		{"download", &fakeProbe{downloadErr: errors.New("connection reset")}, KindDownload, StageDownload},
		{"upload", &fakeProbe{uploadErr: errors.New("broken pipe")}, KindUpload, StageUpload},
		{"panic", &fakeProbe{panicOn: StageUpload}, KindPanic, StageUpload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := NewRunner(tt.probe, speedfmt.RoundInteger, 0).Run(context.Background())
			var f *Failure
			if !errors.As(err, &f) {
				t.Fatalf("expected *Failure, got %v", err)
			}
			if f.Kind != tt.kind || f.Stage != tt.stage {
				t.Fatalf("got kind=%s stage=%s, want %s/%s", f.Kind, f.Stage, tt.kind, tt.stage)
			}
			if report.Download != "" || report.Upload != "" || report.Ping != 0 {
				t.Fatalf("partial report returned with failure: %+v", report)
			}
			if f.UserMessage() != GenericFailureMessage {
				t.Fatalf("unexpected user message: %q", f.UserMessage())
			}
		})
	}
}

func TestRunNoRetry(t *testing.T) {
	probe := &fakeProbe{downloadErr: errors.New("flaky")}
	_, _ = NewRunner(probe, speedfmt.RoundInteger, 0).Run(context.Background())
	downloads := 0
	for _, c := range probe.calls {
		if c == StageDownload {
			downloads++
		}
	}
	if downloads != 1 {
		t.Fatalf("expected exactly one download attempt, got %d", downloads)
	}
}

func TestRunTimeout(t *testing.T) {
	r := NewRunner(&fakeProbe{block: true}, speedfmt.RoundInteger, 20*time.Millisecond)
	_, err := r.Run(context.Background())
	var f *Failure
	if !errors.As(err, &f) || f.Kind != KindTimeout {
		t.Fatalf("expected timeout failure, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("failure should wrap the context error: %v", err)
	}
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRunner(&fakeProbe{}, speedfmt.RoundInteger, 0).Run(ctx)
	var f *Failure
	if !errors.As(err, &f) || f.Kind != KindCanceled || f.Stage != StageSelectServer {
		t.Fatalf("expected canceled failure at server selection, got %v", err)
	}
}

func TestServerHandleLabel(t *testing.T) {
	if got := (ServerHandle{Host: "speed.example:8080"}).Label(); got != "speed.example:8080" {
		t.Fatalf("got %q", got)
	}
	if got := (ServerHandle{Name: "Porto"}).Label(); got != "Porto" {
		t.Fatalf("got %q", got)
	}
}

func TestOoklaProbeRejectsUnknownServer(t *testing.T) {
	p := NewOoklaProbe(0)
	if _, err := p.MeasureDownload(context.Background(), ServerHandle{ID: "nope"}); err == nil {
		t.Fatal("expected error for a server that was never selected")
	}
	if p.LastPingMS() != 0 {
		t.Fatalf("expected zero ping before selection, got %v", p.LastPingMS())
	}
}
