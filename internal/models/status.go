package models

import "time"

// Status is the service overview returned by GET /api/v1/status and the status command.
type Status struct {
	Documents      int64        `json:"documents"`
	Pages          int64        `json:"pages"`
	UnsavedPages   []string     `json:"unsaved_pages,omitempty"`
	DiskUsageBytes *int64       `json:"disk_usage_bytes,omitempty"`
	DatabasePath   string       `json:"database_path,omitempty"`
	AI             *AIStatus    `json:"ai,omitempty"`
	Watch          *WatchStatus `json:"watch,omitempty"`
}

// AIStatus describes the configured provider. The API key is never included.
type AIStatus struct {
	Provider          string `json:"provider"`
	Model             string `json:"model"`
	KeyConfigured     bool   `json:"key_configured"`
	MaxInputTokens    int    `json:"max_input_tokens"`
	RequestsPerMinute int    `json:"requests_per_minute"`
}

// WatchStatus lists the watched directories and what the watcher has done.
type WatchStatus struct {
	Directories []string   `json:"directories"`
	Stats       WatchStats `json:"stats"`
}

// WatchStats counts watcher imports since start.
type WatchStats struct {
	Imported   int64     `json:"imported"`
	Skipped    int64     `json:"skipped"`
	Failed     int64     `json:"failed"`
	Removed    int64     `json:"removed"`
	Pending    int       `json:"pending"`
	LastPath   string    `json:"last_path,omitempty"`
	LastError  string    `json:"last_error,omitempty"`
	LastImport time.Time `json:"last_import"`
}
