package db

import "time"

// Run statuses persisted alongside the batch package's terminal statuses.
const (
	StatusRunning = "running"
)

// RunRecord is one conversion run.
type RunRecord struct {
	ID         string     `gorm:"primaryKey" json:"id"`
	SourceDir  string     `json:"source_dir"`
	DestDir    string     `json:"dest_dir"`
	DestFormat string     `json:"dest_format"`
	Status     string     `json:"status"` // running, completed, cancelled, nothing to convert
	Processed  int        `json:"processed"`
	Total      int        `json:"total"`
	Log        string     `json:"log"` // full log text, written at run end
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
}

// TaskHistory is one encoder invocation within a run.
type TaskHistory struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	RunID        string    `gorm:"index" json:"run_id"`
	FilePath     string    `json:"file_path"`
	Status       string    `json:"status"` // success, failed
	ErrorMessage string    `json:"error_message"`
	DurationMs   int64     `json:"duration_ms"`
	CreatedAt    time.Time `json:"created_at"`
}

// Stats aggregates conversion outcomes across all runs.
type Stats struct {
	TotalRuns    int64 `json:"total_runs"`
	TotalFiles   int64 `json:"total_files"`
	SuccessCount int64 `json:"success_count"`
	FailedCount  int64 `json:"failed_count"`
}
