package tester

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/showwin/speedtest-go/speedtest"

	"github.com/kaikteck/Mult-Function/internal/workerpool"
)

// ErrNoServers is returned when the server list comes back empty
var ErrNoServers = errors.New("no measurement servers available")

// OoklaProbe measures against speedtest.net servers through speedtest-go
type OoklaProbe struct {
	candidates int

	mu       sync.Mutex
	servers  map[string]*speedtest.Server
	lastPing time.Duration
}

// NewOoklaProbe creates a probe that pings up to candidates nearest servers
// and keeps the one with the lowest latency.
func NewOoklaProbe(candidates int) *OoklaProbe {
	if candidates < 1 {
		candidates = 1
	}
	return &OoklaProbe{
		candidates: candidates,
		servers:    make(map[string]*speedtest.Server),
	}
}

// SelectBestServer fetches the server list and picks the lowest-latency candidate
func (p *OoklaProbe) SelectBestServer(ctx context.Context) (ServerHandle, error) {
	client := speedtest.New()

	if _, err := client.FetchUserInfoContext(ctx); err != nil {
		return ServerHandle{}, fmt.Errorf("fetch user info: %w", err)
	}

	servers, err := client.FetchServerListContext(ctx)
	if err != nil {
		return ServerHandle{}, fmt.Errorf("fetch server list: %w", err)
	}
	if len(servers) == 0 {
		return ServerHandle{}, ErrNoServers
	}

	candidates := servers
	if len(candidates) > p.candidates {
		candidates = candidates[:p.candidates]
	}

	// PingTestContext sets Latency on each server, so candidates are pinged in parallel
	errs := workerpool.Run(ctx, len(candidates), []*speedtest.Server(candidates),
		func(ctx context.Context, s *speedtest.Server) error {
			return s.PingTestContext(ctx, nil)
		})

	var best *speedtest.Server
	var lastErr error
	for i, s := range candidates {
		if errs[i] != nil {
			lastErr = errs[i]
			continue
		}
		if best == nil || s.Latency < best.Latency {
			best = s
		}
	}
	if best == nil {
		if lastErr == nil {
			lastErr = ErrNoServers
		}
		return ServerHandle{}, fmt.Errorf("ping candidates: %w", lastErr)
	}

	p.mu.Lock()
	p.servers = map[string]*speedtest.Server{best.ID: best}
	p.lastPing = best.Latency
	p.mu.Unlock()

	return ServerHandle{
		ID:         best.ID,
		Name:       best.Name,
		Sponsor:    best.Sponsor,
		Country:    best.Country,
		Host:       best.Host,
		DistanceKm: best.Distance,
	}, nil
}

// MeasureDownload runs the download test and returns bits per second
func (p *OoklaProbe) MeasureDownload(ctx context.Context, handle ServerHandle) (float64, error) {
	s, err := p.lookup(handle)
	if err != nil {
		return 0, err
	}
	if err := s.DownloadTestContext(ctx); err != nil {
		return 0, fmt.Errorf("download test: %w", err)
	}
	// DLSpeed is bytes per second
	return float64(s.DLSpeed) * 8, nil
}

// MeasureUpload runs the upload test and returns bits per second
func (p *OoklaProbe) MeasureUpload(ctx context.Context, handle ServerHandle) (float64, error) {
	s, err := p.lookup(handle)
	if err != nil {
		return 0, err
	}
	if err := s.UploadTestContext(ctx); err != nil {
		return 0, fmt.Errorf("upload test: %w", err)
	}
	return float64(s.ULSpeed) * 8, nil
}

// LastPingMS returns the latency of the last selected server in milliseconds
func (p *OoklaProbe) LastPingMS() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return float64(p.lastPing) / float64(time.Millisecond)
}

func (p *OoklaProbe) lookup(handle ServerHandle) (*speedtest.Server, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.servers[handle.ID]
	if !ok {
		return nil, fmt.Errorf("server %s was not selected by this probe", handle.ID)
	}
	return s, nil
}
