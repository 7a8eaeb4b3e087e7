// Package batch drives one conversion run: scan the source tree, invoke the
// external encoder once per file, and publish log and progress events to a
// polling consumer. Files are processed strictly sequentially; cancellation
// is cooperative and takes effect between files.
package batch

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/vidbatch/vidbatch/internal/profile"
	"github.com/vidbatch/vidbatch/internal/scan"
)

// Diagnostic excerpts in failure log lines are capped so a chatty encoder
// cannot flood the consumer.
const diagnosticLimit = 200

var (
	ErrSourceDirMissing = errors.New("source directory does not exist")
	ErrNoSourceFormats  = errors.New("no source formats selected")
	ErrEncoderMissing   = errors.New("encoder executable not found")
)

// Invoker runs the external encoder for a single file.
type Invoker interface {
	Invoke(bin string, args []string) (ok bool, diagnostic string)
}

// Request describes one conversion run. It is treated as immutable once a
// run has been started with it.
type Request struct {
	SourceDir         string
	DestDir           string
	EncoderPath       string
	SourceExts        []string
	DestExt           string
	PreserveStructure bool
}

// Validate reports setup errors that must keep a run from starting at all.
func (r Request) Validate() error {
	fi, err := os.Stat(r.SourceDir)
	if err != nil || !fi.IsDir() {
		return fmt.Errorf("%w: %s", ErrSourceDirMissing, r.SourceDir)
	}
	if len(scan.NormalizeExts(r.SourceExts)) == 0 {
		return ErrNoSourceFormats
	}
	if _, err := exec.LookPath(r.EncoderPath); err != nil {
		return fmt.Errorf("%w: %s", ErrEncoderMissing, r.EncoderPath)
	}
	return nil
}

// Run executes one conversion batch on its own goroutine. A Run instance is
// single-use: once it reaches a terminal state it cannot be restarted.
type Run struct {
	req Request
	inv Invoker

	cancel  atomic.Bool
	started atomic.Bool
	done    chan struct{}

	// Owned by the run goroutine. Everything else observes these through
	// progress events only.
	processed int
	total     int

	logs     eventQueue[LogEvent]
	progress eventQueue[ProgressEvent]
}

// New builds a run for req. Callers should Validate the request first;
// setup errors never enter the run itself.
func New(req Request, inv Invoker) *Run {
	return &Run{
		req:  req,
		inv:  inv,
		done: make(chan struct{}),
	}
}

// Start spawns the run goroutine and returns immediately. Calling Start
// more than once has no effect.
func (r *Run) Start() {
	if !r.started.CompareAndSwap(false, true) {
		return
	}
	go r.run()
}

// RequestCancel asks the run to stop before starting its next file. An
// encoder invocation already in flight is not interrupted; the run ends
// after it returns. Safe to call from any goroutine, any number of times.
func (r *Run) RequestCancel() {
	r.cancel.Store(true)
}

// Running reports whether the run goroutine is still executing.
func (r *Run) Running() bool {
	if !r.started.Load() {
		return false
	}
	select {
	case <-r.done:
		return false
	default:
		return true
	}
}

// Done is closed after the run's terminal events have been enqueued, so a
// consumer that drains after Done fires cannot miss them.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// DrainLogs returns all log events produced since the previous drain.
func (r *Run) DrainLogs() []LogEvent {
	return r.logs.drain()
}

// DrainProgress returns all progress events produced since the previous drain.
func (r *Run) DrainProgress() []ProgressEvent {
	return r.progress.drain()
}

func (r *Run) run() {
	defer close(r.done)

	r.logf("starting conversion")
	r.logf("source dir: %s", r.req.SourceDir)
	r.logf("dest dir: %s", r.req.DestDir)
	r.logf("source formats: %s", strings.Join(scan.NormalizeExts(r.req.SourceExts), ", "))
	r.logf("destination format: %s", r.req.DestExt)
	r.logf("preserve structure: %t", r.req.PreserveStructure)
	r.logf(strings.Repeat("-", 60))

	files, err := scan.Enumerate(r.req.SourceDir, r.req.SourceExts, r.req.PreserveStructure)
	if err != nil {
		r.logf("file scan failed: %v", err)
	}

	r.total = len(files)
	if r.total == 0 {
		r.logf("no convertible files found")
		r.pushProgress(StatusNothingToConvert)
		return
	}

	for _, f := range files {
		if r.cancel.Load() {
			r.logf("cancellation requested, stopping")
			break
		}

		outName := strings.TrimSuffix(f.Name, filepath.Ext(f.Name)) + r.req.DestExt
		r.logf("converting: %s -> %s", f.Name, outName)
		r.pushProgress("processing: " + f.Name)

		ok, diag := r.convertOne(f, outName)
		if ok {
			r.logf("converted: %s", f.Name)
		} else {
			r.logf("failed: %s", f.Name)
			r.logf("error: %s", excerpt(diag))
		}

		r.processed++
		pct := r.processed * 100 / r.total
		r.pushProgress(fmt.Sprintf("progress: %d/%d (%d%%)", r.processed, r.total, pct))
	}

	if r.cancel.Load() {
		r.logf("conversion cancelled")
		r.pushProgress(StatusCancelled)
		return
	}

	r.logf(strings.Repeat("=", 60))
	r.logf("conversion complete: %d/%d files", r.processed, r.total)
	r.pushProgress(StatusCompleted)
}

// convertOne resolves the destination path for one file and invokes the
// encoder. Any failure comes back as (false, diagnostic); it never aborts
// the run.
func (r *Run) convertOne(f scan.FileEntry, outName string) (bool, string) {
	outDir := r.req.DestDir
	if r.req.PreserveStructure {
		rel, err := filepath.Rel(r.req.SourceDir, f.Dir)
		if err != nil {
			return false, err.Error()
		}
		outDir = filepath.Join(r.req.DestDir, rel)
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return false, err.Error()
	}

	args := profile.Args(r.req.DestExt, f.Path(), filepath.Join(outDir, outName))
	return r.inv.Invoke(r.req.EncoderPath, args)
}

func (r *Run) logf(format string, args ...interface{}) {
	r.logs.push(LogEvent{Time: time.Now(), Message: fmt.Sprintf(format, args...)})
}

func (r *Run) pushProgress(status string) {
	r.progress.push(ProgressEvent{Processed: r.processed, Total: r.total, Status: status})
}

func excerpt(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > diagnosticLimit {
		return s[:diagnosticLimit] + "..."
	}
	return s
}
