package metrics

import (
	"sync"
	"time"
)

// MetricType represents different types of metrics
type MetricType string

const (
	MetricTypeCounter MetricType = "counter"
	MetricTypeTimer   MetricType = "timer"
)

// Metric represents a single metric
type Metric struct {
	Name        string            `json:"name"`
	Type        MetricType        `json:"type"`
	Value       float64           `json:"value"`
	Count       int64             `json:"count"`
	LastUpdated time.Time         `json:"last_updated"`
	Tags        map[string]string `json:"tags,omitempty"`
}

// RunSample is one completed speed measurement
type RunSample struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	DownloadMbps float64   `json:"download_mbps"`
	UploadMbps   float64   `json:"upload_mbps"`
	PingMS       float64   `json:"ping_ms"`
	Duration     float64   `json:"duration_seconds"`
}

// PerformanceStats represents overall measurement statistics
type PerformanceStats struct {
	RunsStarted     int64     `json:"runs_started"`
	RunsCompleted   int64     `json:"runs_completed"`
	RunsSuccessful  int64     `json:"runs_successful"`
	RunsFailed      int64     `json:"runs_failed"`
	AverageDownload float64   `json:"average_download_mbps"`
	PeakDownload    float64   `json:"peak_download_mbps"`
	AverageUpload   float64   `json:"average_upload_mbps"`
	PeakUpload      float64   `json:"peak_upload_mbps"`
	AveragePing     float64   `json:"average_ping_ms"`
	MinPing         float64   `json:"min_ping_ms"`
	MaxPing         float64   `json:"max_ping_ms"`
	LastUpdated     time.Time `json:"last_updated"`
}

// Metrics manages counters and measurement statistics
type Metrics struct {
	mu         sync.RWMutex
	metrics    map[string]*Metric
	samples    []RunSample
	maxSamples int
	stats      PerformanceStats
}

// New creates a metrics manager keeping up to maxSamples recent runs
func New(maxSamples int) *Metrics {
	if maxSamples <= 0 {
		maxSamples = 100
	}
	return &Metrics{
		metrics:    make(map[string]*Metric),
		samples:    make([]RunSample, 0, maxSamples),
		maxSamples: maxSamples,
	}
}

// RecordCounter increments a counter metric
func (m *Metrics) RecordCounter(name string, value float64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	metric := m.getOrCreate(name, MetricTypeCounter, tags)
	metric.Value += value
	metric.Count++
	metric.LastUpdated = time.Now()
}

// RecordTimer records a duration as a running average in seconds
func (m *Metrics) RecordTimer(name string, duration time.Duration, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	metric := m.getOrCreate(name, MetricTypeTimer, tags)
	totalValue := metric.Value * float64(metric.Count)
	metric.Count++
	metric.Value = (totalValue + duration.Seconds()) / float64(metric.Count)
	metric.LastUpdated = time.Now()
}

// RecordRunStart records the start of a measurement
func (m *Metrics) RecordRunStart() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats.RunsStarted++
	m.stats.LastUpdated = time.Now()
}

// RecordRunFailure records a measurement that ended in a failure
func (m *Metrics) RecordRunFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats.RunsCompleted++
	m.stats.RunsFailed++
	m.stats.LastUpdated = time.Now()
}

// RecordRunSuccess records a completed measurement and folds it into the averages
func (m *Metrics) RecordRunSuccess(sample RunSample) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sample.Timestamp.IsZero() {
		sample.Timestamp = time.Now()
	}

	m.samples = append(m.samples, sample)
	if len(m.samples) > m.maxSamples {
		m.samples = m.samples[1:]
	}

	s := &m.stats
	n := float64(s.RunsSuccessful)
	s.RunsCompleted++
	s.RunsSuccessful++

	s.AverageDownload = (s.AverageDownload*n + sample.DownloadMbps) / (n + 1)
	s.AverageUpload = (s.AverageUpload*n + sample.UploadMbps) / (n + 1)
	s.AveragePing = (s.AveragePing*n + sample.PingMS) / (n + 1)

	if sample.DownloadMbps > s.PeakDownload {
		s.PeakDownload = sample.DownloadMbps
	}
	if sample.UploadMbps > s.PeakUpload {
		s.PeakUpload = sample.UploadMbps
	}
	if n == 0 || sample.PingMS < s.MinPing {
		s.MinPing = sample.PingMS
	}
	if sample.PingMS > s.MaxPing {
		s.MaxPing = sample.PingMS
	}
	s.LastUpdated = time.Now()
}

// GetMetric returns a copy of a specific metric
func (m *Metrics) GetMetric(name string) *Metric {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if metric, exists := m.metrics[name]; exists {
		copied := *metric
		return &copied
	}
	return nil
}

// GetAllMetrics returns copies of all metrics
func (m *Metrics) GetAllMetrics() map[string]*Metric {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]*Metric, len(m.metrics))
	for name, metric := range m.metrics {
		copied := *metric
		result[name] = &copied
	}
	return result
}

// GetPerformanceStats returns current performance statistics
func (m *Metrics) GetPerformanceStats() PerformanceStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.stats
}

// GetRecentSamples returns up to count of the newest samples, oldest first
func (m *Metrics) GetRecentSamples(count int) []RunSample {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if count <= 0 || count > len(m.samples) {
		count = len(m.samples)
	}
	out := make([]RunSample, count)
	copy(out, m.samples[len(m.samples)-count:])
	return out
}

func (m *Metrics) getOrCreate(name string, metricType MetricType, tags map[string]string) *Metric {
	metric, exists := m.metrics[name]
	if !exists {
		metric = &Metric{
			Name: name,
			Type: metricType,
			Tags: tags,
		}
		m.metrics[name] = metric
	}
	return metric
}
