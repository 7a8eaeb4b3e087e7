package api

import (
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vidbatch/vidbatch/internal/batch"
	"github.com/vidbatch/vidbatch/internal/db"
)

// ErrRunActive is returned when a second run is started while one is still
// executing. Runs are strictly one at a time: the batch itself is
// sequential and a second run would mean concurrent encoder processes.
var ErrRunActive = errors.New("a conversion run is already active")

// Manager owns conversion runs on behalf of the HTTP surface. It is the
// consumer side of the batch event queues: a drain goroutine per run polls
// both queues on a fixed interval, keeps an in-memory view, and persists
// progress and history to the database.
type Manager struct {
	conn          *gorm.DB
	inv           batch.Invoker
	drainInterval time.Duration
	logTailLimit  int

	mu   sync.Mutex
	runs map[string]*managedRun
}

type managedRun struct {
	id  string
	run *batch.Run

	// consumed closes when the drain goroutine has flushed the final
	// events and persisted the terminal state.
	consumed chan struct{}

	mu        sync.Mutex
	status    string
	label     string
	processed int
	total     int
	logTail   []string
	logAll    []string
	startedAt time.Time
	endedAt   *time.Time
}

// RunView is a point-in-time snapshot of a run for API responses.
type RunView struct {
	ID        string     `json:"id"`
	Status    string     `json:"status"`
	Label     string     `json:"label,omitempty"`
	Processed int        `json:"processed"`
	Total     int        `json:"total"`
	Percent   int        `json:"percent"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// NewManager builds a run manager. inv is the encoder invoker used for
// every run; tests substitute a fake.
func NewManager(conn *gorm.DB, inv batch.Invoker, drainInterval time.Duration, logTailLimit int) *Manager {
	if drainInterval <= 0 {
		drainInterval = 250 * time.Millisecond
	}
	if logTailLimit <= 0 {
		logTailLimit = 500
	}
	return &Manager{
		conn:          conn,
		inv:           inv,
		drainInterval: drainInterval,
		logTailLimit:  logTailLimit,
		runs:          make(map[string]*managedRun),
	}
}

// StartRun validates req, spawns the run and its drain goroutine, and
// returns the new run's ID.
func (m *Manager) StartRun(req batch.Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	m.mu.Lock()
	for _, mr := range m.runs {
		if mr.run.Running() {
			m.mu.Unlock()
			return "", ErrRunActive
		}
	}

	id := uuid.NewString()
	run := batch.New(req, &recordingInvoker{conn: m.conn, runID: id, next: m.inv})
	mr := &managedRun{
		id:        id,
		run:       run,
		consumed:  make(chan struct{}),
		status:    db.StatusRunning,
		startedAt: time.Now(),
	}
	m.runs[id] = mr
	m.mu.Unlock()

	if err := db.InsertRun(m.conn, &db.RunRecord{
		ID:         id,
		SourceDir:  req.SourceDir,
		DestDir:    req.DestDir,
		DestFormat: req.DestExt,
		StartedAt:  mr.startedAt,
	}); err != nil {
		log.Printf("run %s: insert record: %v", id, err)
	}

	run.Start()
	go m.consume(mr)
	return id, nil
}

// Cancel requests cooperative cancellation of a run. The in-flight encoder
// invocation, if any, still runs to completion.
func (m *Manager) Cancel(id string) error {
	m.mu.Lock()
	mr, ok := m.runs[id]
	m.mu.Unlock()
	if !ok {
		return gorm.ErrRecordNotFound
	}
	mr.run.RequestCancel()
	return nil
}

// Active reports whether any run is still executing.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mr := range m.runs {
		if mr.run.Running() {
			return true
		}
	}
	return false
}

// WaitDone blocks until the run's drain goroutine has finished. Unknown
// IDs return immediately.
func (m *Manager) WaitDone(id string) {
	m.mu.Lock()
	mr, ok := m.runs[id]
	m.mu.Unlock()
	if !ok {
		return
	}
	<-mr.consumed
}

// Get returns a snapshot of a run held in memory.
func (m *Manager) Get(id string) (RunView, bool) {
	m.mu.Lock()
	mr, ok := m.runs[id]
	m.mu.Unlock()
	if !ok {
		return RunView{}, false
	}
	return mr.view(), true
}

// Logs returns the retained log tail of a run.
func (m *Manager) Logs(id string) ([]string, bool) {
	m.mu.Lock()
	mr, ok := m.runs[id]
	m.mu.Unlock()
	if !ok {
		return nil, false
	}
	mr.mu.Lock()
	defer mr.mu.Unlock()
	out := make([]string, len(mr.logTail))
	copy(out, mr.logTail)
	return out, true
}

// List returns snapshots of all runs this manager has started, newest first.
func (m *Manager) List() []RunView {
	m.mu.Lock()
	views := make([]RunView, 0, len(m.runs))
	for _, mr := range m.runs {
		views = append(views, mr.view())
	}
	m.mu.Unlock()

	sort.Slice(views, func(i, j int) bool {
		return views[i].StartedAt.After(views[j].StartedAt)
	})
	return views
}

// consume is the polling consumer for one run. It drains both queues every
// tick, in queue order, and performs a final drain after the run goroutine
// ends so no terminal event is lost.
func (m *Manager) consume(mr *managedRun) {
	defer close(mr.consumed)

	ticker := time.NewTicker(m.drainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.drainOnce(mr)
			processed, total := mr.snapshotCounts()
			if err := db.UpdateRunProgress(m.conn, mr.id, processed, total); err != nil {
				log.Printf("run %s: update progress: %v", mr.id, err)
			}
		case <-mr.run.Done():
			m.drainOnce(mr)
			m.finish(mr)
			return
		}
	}
}

func (m *Manager) drainOnce(mr *managedRun) {
	logs := mr.run.DrainLogs()
	progress := mr.run.DrainProgress()

	mr.mu.Lock()
	defer mr.mu.Unlock()
	for _, ev := range logs {
		line := ev.Time.Format("15:04:05") + " " + ev.Message
		mr.logAll = append(mr.logAll, line)
		mr.logTail = append(mr.logTail, line)
		if len(mr.logTail) > m.logTailLimit {
			mr.logTail = mr.logTail[len(mr.logTail)-m.logTailLimit:]
		}
	}
	for _, ev := range progress {
		mr.processed = ev.Processed
		mr.total = ev.Total
		mr.label = ev.Status
		if ev.Terminal() {
			mr.status = ev.Status
		}
	}
}

func (m *Manager) finish(mr *managedRun) {
	mr.mu.Lock()
	now := time.Now()
	mr.endedAt = &now
	status := mr.status
	processed, total := mr.processed, mr.total
	logText := ""
	for _, line := range mr.logAll {
		logText += line + "\n"
	}
	mr.mu.Unlock()

	if err := db.FinishRun(m.conn, mr.id, status, processed, total, logText); err != nil {
		log.Printf("run %s: finish record: %v", mr.id, err)
	}
	log.Printf("run %s: %s (%d/%d)", mr.id, status, processed, total)
}

func (mr *managedRun) snapshotCounts() (processed, total int) {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	return mr.processed, mr.total
}

func (mr *managedRun) view() RunView {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	percent := 0
	if mr.total > 0 {
		percent = mr.processed * 100 / mr.total
	}
	return RunView{
		ID:        mr.id,
		Status:    mr.status,
		Label:     mr.label,
		Processed: mr.processed,
		Total:     mr.total,
		Percent:   percent,
		StartedAt: mr.startedAt,
		EndedAt:   mr.endedAt,
	}
}

// recordingInvoker wraps the real invoker and writes one TaskHistory row
// per encoder invocation.
type recordingInvoker struct {
	conn  *gorm.DB
	runID string
	next  batch.Invoker
}

func (r *recordingInvoker) Invoke(bin string, args []string) (bool, string) {
	start := time.Now()
	ok, diag := r.next.Invoke(bin, args)

	task := &db.TaskHistory{
		RunID:      r.runID,
		FilePath:   inputPath(args),
		Status:     "success",
		DurationMs: time.Since(start).Milliseconds(),
	}
	if !ok {
		task.Status = "failed"
		task.ErrorMessage = diag
	}
	if err := db.InsertTask(r.conn, task); err != nil {
		log.Printf("run %s: insert task: %v", r.runID, err)
	}
	return ok, diag
}

// inputPath pulls the source file out of the encoder argument list.
func inputPath(args []string) string {
	for i, a := range args {
		if a == "-i" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}
