package batch

import "time"

// Terminal progress statuses. Exactly one of these appears in the final
// ProgressEvent of a run.
const (
	StatusCompleted        = "completed"
	StatusCancelled        = "cancelled"
	StatusNothingToConvert = "nothing to convert"
)

// LogEvent is one human-readable log line from a run.
type LogEvent struct {
	Time    time.Time
	Message string
}

// ProgressEvent reports run progress. Processed never decreases within a
// run and Total is fixed once the run has scanned its sources.
type ProgressEvent struct {
	Processed int
	Total     int
	Status    string
}

// Terminal reports whether the event carries a terminal status.
func (e ProgressEvent) Terminal() bool {
	switch e.Status {
	case StatusCompleted, StatusCancelled, StatusNothingToConvert:
		return true
	}
	return false
}
