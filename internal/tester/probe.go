package tester

import "context"

// ServerHandle identifies the measurement server chosen by a Probe
type ServerHandle struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Sponsor    string  `json:"sponsor"`
	Country    string  `json:"country"`
	Host       string  `json:"host"`
	DistanceKm float64 `json:"distance_km"`
}

// Label returns a short human-readable server description
func (h ServerHandle) Label() string {
	switch {
	case h.Sponsor != "" && h.Name != "":
		return h.Sponsor + " (" + h.Name + ")"
	case h.Name != "":
		return h.Name
	default:
		return h.Host
	}
}

// Probe is the external speed measurement capability.
// Rates are bits per second, ping is milliseconds.
type Probe interface {
	SelectBestServer(ctx context.Context) (ServerHandle, error)
	MeasureDownload(ctx context.Context, server ServerHandle) (float64, error)
	MeasureUpload(ctx context.Context, server ServerHandle) (float64, error)
	LastPingMS() float64
}
