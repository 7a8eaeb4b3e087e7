// Package watch implements hot-folder mode: it observes the source tree and
// signals once new matching files have settled, so the daemon can start a
// conversion run over them.
package watch

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/vidbatch/vidbatch/internal/scan"
)

type Watcher struct {
	root   string
	exts   []string
	settle time.Duration
	w      *fsnotify.Watcher
	notify chan struct{}

	mu     sync.Mutex
	paused bool
}

// New watches root for files matching exts. settle is how long the tree must
// stay quiet after the last relevant event before a notification fires.
func New(root string, exts []string, settle time.Duration) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		root:   root,
		exts:   scan.NormalizeExts(exts),
		settle: settle,
		w:      w,
		notify: make(chan struct{}, 1),
	}, nil
}

// Start registers the directory tree and dispatches events until ctx ends.
func (wr *Watcher) Start(ctx context.Context) error {
	if err := wr.registerAll(); err != nil {
		return err
	}

	var settle *time.Timer
	var settleC <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-wr.w.Events:
			if wr.handleEvent(ev) {
				if settle == nil {
					settle = time.NewTimer(wr.settle)
					settleC = settle.C
				} else {
					if !settle.Stop() {
						select {
						case <-settle.C:
						default:
						}
					}
					settle.Reset(wr.settle)
				}
			}
		case <-settleC:
			settle = nil
			settleC = nil
			if wr.Paused() {
				continue
			}
			select {
			case wr.notify <- struct{}{}:
			default:
			}
		case err := <-wr.w.Errors:
			log.Printf("watch error: %v", err)
		}
	}
}

// Notify delivers one signal per settled burst of file activity. Signals
// are coalesced; a receiver that is busy misses nothing but duplicates.
func (wr *Watcher) Notify() <-chan struct{} { return wr.notify }

func (wr *Watcher) Close() error { return wr.w.Close() }

// Pause suppresses notifications while a run is active.
func (wr *Watcher) Pause()       { wr.mu.Lock(); wr.paused = true; wr.mu.Unlock() }
func (wr *Watcher) Resume()      { wr.mu.Lock(); wr.paused = false; wr.mu.Unlock() }
func (wr *Watcher) Paused() bool { wr.mu.Lock(); defer wr.mu.Unlock(); return wr.paused }

func (wr *Watcher) registerAll() error {
	return filepath.WalkDir(wr.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			_ = wr.w.Add(path)
		}
		return nil
	})
}

// handleEvent reports whether the event is a relevant file change. New
// directories are registered as a side effect.
func (wr *Watcher) handleEvent(ev fsnotify.Event) bool {
	if ev.Op&fsnotify.Create != 0 {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = filepath.WalkDir(ev.Name, func(path string, d os.DirEntry, err error) error {
				if err != nil {
					return nil
				}
				if d.IsDir() {
					_ = wr.w.Add(path)
				}
				return nil
			})
			return false
		}
	}
	if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return false
	}
	lower := strings.ToLower(ev.Name)
	for _, ext := range wr.exts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
