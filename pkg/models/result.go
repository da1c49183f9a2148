package models

import "time"

// TaskList is the persisted task document and the /get_tasks payload
type TaskList struct {
	Tasks []string `json:"tasks"`
}

// SpeedReport is the outcome of one speed measurement
type SpeedReport struct {
	Download    string  `json:"download"`
	Upload      string  `json:"upload"`
	Ping        float64 `json:"ping"`
	DownloadBps float64 `json:"download_bps"`
	UploadBps   float64 `json:"upload_bps"`
	PingMS      float64 `json:"ping_ms"`
	Server      string  `json:"server,omitempty"`
	RunID       string  `json:"run_id,omitempty"`
}

// ErrorResponse is the body of every failed API call
type ErrorResponse struct {
	Error string `json:"error"`
}

// TaskState describes the list together with its capacity policy
type TaskState struct {
	Tasks    []string `json:"tasks"`
	Count    int      `json:"count"`
	MaxTasks int      `json:"max_tasks"` // 0 = unbounded
	Full     bool     `json:"full"`
}

// Status holds the server status snapshot
type Status struct {
	Testing   bool      `json:"testing"`
	TaskCount int       `json:"task_count"`
	MaxTasks  int       `json:"max_tasks"`
	Timestamp time.Time `json:"timestamp"`
}
